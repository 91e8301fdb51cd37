package clock

import "time"

// Clock abstrae la hora actual para que los cálculos por fecha (estados de
// lote, alertas de caducidad) sean deterministas en tests.
type Clock interface {
	Now() time.Time
}

// System es el reloj real del sistema.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed es un reloj congelado para tests.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }
