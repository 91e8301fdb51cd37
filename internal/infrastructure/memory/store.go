// Package memory implementa los puertos de persistencia sobre estructuras en
// memoria. Sirve para tests y demos sin PostgreSQL. El TxRunner serializa las
// transacciones con un mutex y restaura un snapshot si el callback falla, así
// conserva la semántica todo-o-nada del ledger.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/Trazabilidad-api/internal/application/ledger"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ ledger.TxRunner = (*Store)(nil)

// Store contiene todo el estado en memoria. Las cabeceras de órdenes, albaranes
// y devoluciones se guardan sin hijos; los hijos viven en slices propios y se
// ensamblan al leer.
type Store struct {
	mu   sync.RWMutex // protege data en cada operación
	txMu sync.Mutex   // serializa transacciones completas

	data *data
}

type data struct {
	products        map[string]entity.Product
	locations       map[string]entity.Location
	lots            map[string]entity.Lot
	lotLocations    []entity.LotLocation
	movements       []entity.Movement
	orders          map[string]entity.ProductionOrder
	lines           []entity.ProductionOrderLine
	materials       []entity.ProductionOrderMaterial
	customers       map[string]entity.Customer
	shipments       map[string]entity.Shipment
	shipmentDetails []entity.ShipmentDetail
	returns         map[string]entity.Return
	returnDetails   []entity.ReturnDetail
	sequences       map[string]int
}

// NewStore crea un almacén vacío con las ubicaciones estándar ya dadas de alta
// (REC, LIB, FAB, DEV), igual que las migraciones de PostgreSQL.
func NewStore() *Store {
	s := &Store{data: newData()}
	for _, loc := range []entity.Location{
		{ID: "loc-rec", Code: entity.LocationReception, Name: "Recepción", IsAvailable: false, Active: true},
		{ID: "loc-lib", Code: entity.LocationReleased, Name: "Liberado", IsAvailable: true, Active: true},
		{ID: "loc-fab", Code: entity.LocationProduction, Name: "Fabricación", IsAvailable: false, Active: true},
		{ID: "loc-dev", Code: entity.LocationReturns, Name: "Devoluciones", IsAvailable: false, Active: true},
	} {
		s.data.locations[loc.ID] = loc
	}
	return s
}

func newData() *data {
	return &data{
		products:  map[string]entity.Product{},
		locations: map[string]entity.Location{},
		lots:      map[string]entity.Lot{},
		orders:    map[string]entity.ProductionOrder{},
		customers: map[string]entity.Customer{},
		shipments: map[string]entity.Shipment{},
		returns:   map[string]entity.Return{},
		sequences: map[string]int{},
	}
}

func (d *data) clone() *data {
	c := &data{
		products:        make(map[string]entity.Product, len(d.products)),
		locations:       make(map[string]entity.Location, len(d.locations)),
		lots:            make(map[string]entity.Lot, len(d.lots)),
		lotLocations:    append([]entity.LotLocation(nil), d.lotLocations...),
		movements:       append([]entity.Movement(nil), d.movements...),
		orders:          make(map[string]entity.ProductionOrder, len(d.orders)),
		lines:           append([]entity.ProductionOrderLine(nil), d.lines...),
		materials:       append([]entity.ProductionOrderMaterial(nil), d.materials...),
		customers:       make(map[string]entity.Customer, len(d.customers)),
		shipments:       make(map[string]entity.Shipment, len(d.shipments)),
		shipmentDetails: append([]entity.ShipmentDetail(nil), d.shipmentDetails...),
		returns:         make(map[string]entity.Return, len(d.returns)),
		returnDetails:   append([]entity.ReturnDetail(nil), d.returnDetails...),
		sequences:       make(map[string]int, len(d.sequences)),
	}
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.locations {
		c.locations[k] = v
	}
	for k, v := range d.lots {
		c.lots[k] = v
	}
	for k, v := range d.orders {
		c.orders[k] = v
	}
	for k, v := range d.customers {
		c.customers[k] = v
	}
	for k, v := range d.shipments {
		c.shipments[k] = v
	}
	for k, v := range d.returns {
		c.returns[k] = v
	}
	for k, v := range d.sequences {
		c.sequences[k] = v
	}
	return c
}

// Run ejecuta fn como transacción: toma el mutex de transacciones, guarda un
// snapshot y lo restaura si fn devuelve error. Dos Run concurrentes nunca se
// entrelazan, el equivalente en memoria de los locks de fila de PostgreSQL.
func (s *Store) Run(ctx context.Context, fn func(repos repository.Repos) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(s.Repos()); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Repos devuelve el conjunto completo de adaptadores sobre este almacén.
func (s *Store) Repos() repository.Repos {
	return repository.Repos{
		Products:     &ProductRepo{s: s},
		Lots:         &LotRepo{s: s},
		LotLocations: &LotLocationRepo{s: s},
		Locations:    &LocationRepo{s: s},
		Movements:    &MovementRepo{s: s},
		Orders:       &ProductionOrderRepo{s: s},
		Shipments:    &ShipmentRepo{s: s},
		Returns:      &ReturnRepo{s: s},
		Customers:    &CustomerRepo{s: s},
		Sequences:    &SequenceRepo{s: s},
	}
}
