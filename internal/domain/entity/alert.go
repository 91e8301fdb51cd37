package entity

// Clases de alerta derivadas del estado del inventario.
const (
	AlertLowStock     = "low_stock"
	AlertExpiringSoon = "expiring_soon"
	AlertExpired      = "expired"
	AlertBlocked      = "blocked"
)

// Severidades de alerta.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert es un aviso calculado bajo demanda a partir del estado actual; no se
// persiste en este núcleo. ProductID/LotID pueden estar vacíos según la clase.
type Alert struct {
	Type      string
	Severity  string
	ProductID string
	LotID     string
	Message   string
}
