package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de producto.
const (
	ProductTypeRawMaterial     = "raw_material"
	ProductTypePackaging       = "packaging"
	ProductTypeFinishedProduct = "finished_product"
)

// Product representa un producto del inventario (materia prima, envase o producto acabado).
// MinStock opcional dispara alertas de stock bajo; Density permite conversión L↔kg.
type Product struct {
	ID              string
	Code            string // código único
	Name            string
	Type            string // raw_material, packaging, finished_product
	Description     string
	MinStock        *decimal.Decimal
	StorageUnit     string           // unidad de almacenamiento (ej. 'l', 'kg')
	ConsumptionUnit string           // unidad usada en recetas (ej. 'kg', 'l')
	Density         *decimal.Decimal // factor de conversión (kg/l)
	Active          bool
	CreatedAt       time.Time
}

// IsConsumable indica si el producto puede usarse como material en producción.
func (p *Product) IsConsumable() bool {
	return p.Type == ProductTypeRawMaterial || p.Type == ProductTypePackaging
}

var thousand = decimal.NewFromInt(1000)

// ConvertToStorageUnit convierte una cantidad desde la unidad indicada a la unidad
// de almacenamiento del producto.
//
// Conversiones automáticas:
//   - g ↔ kg: factor 1000, sin densidad
//   - misma unidad: sin conversión
//   - resto (ej. kg ↔ l): usa la densidad configurada
//
// Si no hay conversión definida devuelve la cantidad tal cual.
func (p *Product) ConvertToStorageUnit(quantity decimal.Decimal, fromUnit string) decimal.Decimal {
	from := normalizeUnit(fromUnit)
	storage := normalizeUnit(p.StorageUnit)
	if from == "" || from == storage {
		return quantity
	}
	if from == "g" && storage == "kg" {
		return quantity.Div(thousand)
	}
	if from == "kg" && storage == "g" {
		return quantity.Mul(thousand)
	}
	if p.Density != nil && !p.Density.IsZero() {
		density := *p.Density // kg por litro
		switch {
		case from == "kg" && storage == "l":
			return quantity.Div(density)
		case from == "l" && storage == "kg":
			return quantity.Mul(density)
		case from == "g" && storage == "l":
			return quantity.Div(thousand).Div(density)
		case from == "l" && storage == "g":
			return quantity.Mul(density).Mul(thousand)
		}
		// Conversión declarada receta → almacenamiento
		if from == normalizeUnit(p.ConsumptionUnit) {
			return quantity.Div(density)
		}
	}
	return quantity
}

// ConvertToConsumptionUnit convierte una cantidad desde la unidad indicada a la
// unidad de consumo (receta) del producto. Simétrica a ConvertToStorageUnit.
func (p *Product) ConvertToConsumptionUnit(quantity decimal.Decimal, fromUnit string) decimal.Decimal {
	from := normalizeUnit(fromUnit)
	consumption := normalizeUnit(p.ConsumptionUnit)
	if from == "" || from == consumption {
		return quantity
	}
	if from == "kg" && consumption == "g" {
		return quantity.Mul(thousand)
	}
	if from == "g" && consumption == "kg" {
		return quantity.Div(thousand)
	}
	if p.Density != nil && !p.Density.IsZero() && from == normalizeUnit(p.StorageUnit) {
		return quantity.Mul(*p.Density)
	}
	return quantity
}

func normalizeUnit(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}
