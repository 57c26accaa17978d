package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesNote es una nota de venta. MetodoPago decide si la venta se cobra
// de contado (CashPayment) o genera un plan de crédito (CreditSale).
type SalesNote struct {
	gorm.Model
	Fecha      time.Time       `json:"fecha" gorm:"not null;index"`
	Total      decimal.Decimal `json:"total" gorm:"type:numeric(10,2);not null"`
	Estado     string          `json:"estado" gorm:"default:'completada'"` // completada | pendiente | anulada
	MetodoPago string          `json:"metodo_pago" gorm:"not null"`        // efectivo | tarjeta | credito
	ClienteID  uint            `json:"cliente_id" gorm:"not null;index"`
	Cliente    Usuario         `json:"cliente" gorm:"foreignKey:ClienteID"`
	EmpleadoID uint            `json:"empleado_id" gorm:"index"`
	Empleado   Usuario         `json:"empleado" gorm:"foreignKey:EmpleadoID"`
	Detalles   []DetailNote    `json:"detalles"`
}

// DetailNote es una línea de la nota: producto, cantidad y precio al
// momento de la venta.
type DetailNote struct {
	gorm.Model
	SalesNoteID    uint            `json:"sales_note_id" gorm:"not null;index"`
	ProductID      uint            `json:"product_id" gorm:"not null;index"`
	Product        Product         `json:"product"`
	Cantidad       int             `json:"cantidad" gorm:"not null"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario" gorm:"type:numeric(10,2);not null"`
	Subtotal       decimal.Decimal `json:"subtotal" gorm:"type:numeric(10,2);not null"`
}

// CashPayment registra el cobro de contado de una nota.
type CashPayment struct {
	gorm.Model
	SalesNoteID uint            `json:"sales_note_id" gorm:"not null;uniqueIndex"`
	Monto       decimal.Decimal `json:"monto" gorm:"type:numeric(10,2);not null"`
	Fecha       time.Time       `json:"fecha" gorm:"not null"`
}
