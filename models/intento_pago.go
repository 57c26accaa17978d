package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentIntent es una intención de pago creada contra la pasarela externa.
// El webhook de la pasarela la marca como exitosa y finaliza la venta.
type PaymentIntent struct {
	gorm.Model
	IntentID    string          `json:"intent_id" gorm:"uniqueIndex;not null"`
	SalesNoteID uint            `json:"sales_note_id" gorm:"not null;index"`
	SalesNote   SalesNote       `json:"sales_note"`
	Monto       decimal.Decimal `json:"monto" gorm:"type:numeric(10,2);not null"`
	Estado      string          `json:"estado" gorm:"default:'pendiente'"` // pendiente | exitoso | cancelado
	Procesado   *time.Time      `json:"procesado"`
}
