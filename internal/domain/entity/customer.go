package entity

import "time"

// Customer es un cliente destinatario de envíos. Code se autogenera (CLI-NNNN)
// cuando el cliente se crea al vuelo desde un albarán.
type Customer struct {
	ID        string
	Code      string
	Name      string
	Email     string
	Phone     string
	Address   string
	Active    bool
	CreatedAt time.Time
}
