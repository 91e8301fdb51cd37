package repository

// Repos agrupa los puertos de persistencia atados a una misma transacción.
// El TxRunner de infraestructura construye una instancia por transacción y la
// pasa al callback del caso de uso.
type Repos struct {
	Products     ProductRepository
	Lots         LotRepository
	LotLocations LotLocationRepository
	Locations    LocationRepository
	Movements    MovementRepository
	Orders       ProductionOrderRepository
	Shipments    ShipmentRepository
	Returns      ReturnRepository
	Customers    CustomerRepository
	Sequences    SequenceRepository
}
