package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Motivos válidos de devolución.
const (
	ReturnReasonCustomer     = "customer_return"
	ReturnReasonMarketRecall = "market_recall"
	ReturnReasonQualityIssue = "quality_issue"
)

// Return es una devolución o retirada del mercado. CustomerID puede estar vacío
// (devolución interna). Registrarla bloquea los lotes afectados.
type Return struct {
	ID           string
	CustomerID   string // "" para devoluciones internas
	ReturnNumber string // DEV-YYYY-NNN
	ReturnDate   time.Time
	Reason       string
	Notes        string
	CreatedAt    time.Time

	Details []*ReturnDetail
}

// ValidReturnReason indica si el motivo es uno de los aceptados.
func ValidReturnReason(reason string) bool {
	switch reason {
	case ReturnReasonCustomer, ReturnReasonMarketRecall, ReturnReasonQualityIssue:
		return true
	}
	return false
}

// ReturnDetail es una línea de devolución: un lote y la cantidad devuelta.
type ReturnDetail struct {
	ID       string
	ReturnID string
	LotID    string
	Quantity decimal.Decimal
	Unit     string
}
