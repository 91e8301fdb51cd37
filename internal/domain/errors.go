package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias externas). Los errores con contexto
// (InsufficientStockError, etc.) hacen Unwrap a estos centinelas para que
// errors.Is siga funcionando en los llamadores.
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrOrderClosed       = errors.New("la orden de producción está cerrada")
	ErrLotInUse          = errors.New("el lote tiene movimientos o documentos asociados")
)

// InsufficientStockError indica que la cantidad solicitada supera la disponible.
// Recuperable: el llamador puede elegir menos cantidad u otro lote.
type InsufficientStockError struct {
	LotID      string
	LocationID string // "" si el déficit es sobre el total del lote
	Requested  decimal.Decimal
	Available  decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	if e.LocationID != "" {
		return fmt.Sprintf("stock insuficiente en ubicación %s para lote %s: solicitado %s, disponible %s",
			e.LocationID, e.LotID, e.Requested, e.Available)
	}
	return fmt.Sprintf("stock insuficiente para lote %s: solicitado %s, disponible %s",
		e.LotID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// DuplicateLotNumberError indica que ya existe un lote con ese número para el producto.
type DuplicateLotNumberError struct {
	ProductID string
	LotNumber string
}

func (e *DuplicateLotNumberError) Error() string {
	return fmt.Sprintf("el número de lote %s ya existe para el producto %s", e.LotNumber, e.ProductID)
}

func (e *DuplicateLotNumberError) Unwrap() error { return ErrDuplicate }

// LotInUseError indica que el lote no puede eliminarse porque ya fue usado.
type LotInUseError struct {
	LotID  string
	Reason string
}

func (e *LotInUseError) Error() string {
	return fmt.Sprintf("no se puede eliminar el lote %s: %s", e.LotID, e.Reason)
}

func (e *LotInUseError) Unwrap() error { return ErrLotInUse }

// ValidationError indica datos de entrada incompletos o incoherentes.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Validationf construye un ValidationError con formato.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
