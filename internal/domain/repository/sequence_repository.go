package repository

// SequenceRepository asigna números de documento secuenciales. Las
// implementaciones deben serializar cada secuencia (bloqueo de fila o mutex)
// para que dos peticiones concurrentes nunca reciban el mismo número; por eso
// estos métodos se llaman siempre dentro de la transacción que crea el documento.
type SequenceRepository interface {
	// NextOrderNumber devuelve el siguiente número de orden del año: YYYY-NNN.
	NextOrderNumber(year int) (string, error)
	// NextReturnNumber devuelve el siguiente número de devolución: DEV-YYYY-NNN.
	NextReturnNumber(year int) (string, error)
	// NextCustomerCode devuelve el siguiente código de cliente: CLI-NNNN.
	NextCustomerCode() (string, error)
}
