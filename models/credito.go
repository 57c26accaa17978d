package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreditConfig define los términos vigentes para nuevas ventas a crédito.
// Solo una configuración está activa a la vez.
type CreditConfig struct {
	gorm.Model
	MontoMax        decimal.Decimal `json:"monto_max" gorm:"type:numeric(10,2);not null"`
	TasaInteres     decimal.Decimal `json:"tasa_interes" gorm:"type:numeric(5,2);not null"` // porcentaje, ej. 10.00
	CantidadCuotas  int             `json:"cantidad_cuotas" gorm:"not null"`
	DiasEntreCuotas int             `json:"dias_entre_cuotas" gorm:"not null"`
	Activo          bool            `json:"activo" gorm:"default:true"`
}

// CreditSale es el plan de crédito generado por una nota de venta.
type CreditSale struct {
	gorm.Model
	SalesNoteID       uint               `json:"sales_note_id" gorm:"not null;uniqueIndex"`
	SalesNote         SalesNote          `json:"sales_note"`
	ClienteID         uint               `json:"cliente_id" gorm:"not null;index"`
	Cliente           Usuario            `json:"cliente" gorm:"foreignKey:ClienteID"`
	TotalOriginal     decimal.Decimal    `json:"total_original" gorm:"type:numeric(10,2);not null"`
	TotalConIntereses decimal.Decimal    `json:"total_con_intereses" gorm:"type:numeric(10,2);not null"`
	SaldoPendiente    decimal.Decimal    `json:"saldo_pendiente" gorm:"type:numeric(10,2);not null"`
	TasaInteres       decimal.Decimal    `json:"tasa_interes" gorm:"type:numeric(5,2);not null"`
	Estado            string             `json:"estado" gorm:"default:'activo';index"` // activo | pagado | atrasado
	FechaInicio       time.Time          `json:"fecha_inicio" gorm:"not null"`
	Cuotas            []CreditInstallment `json:"cuotas"`
}

// CreditInstallment es una cuota del plan, con su fecha de vencimiento.
type CreditInstallment struct {
	gorm.Model
	CreditSaleID     uint            `json:"credit_sale_id" gorm:"not null;index"`
	Numero           int             `json:"numero" gorm:"not null"`
	Monto            decimal.Decimal `json:"monto" gorm:"type:numeric(10,2);not null"`
	FechaVencimiento time.Time       `json:"fecha_vencimiento" gorm:"not null;index"`
	Pagada           bool            `json:"pagada" gorm:"default:false"`
	FechaPago        *time.Time      `json:"fecha_pago"`
}

// CreditPayment registra cada pago aplicado a una cuota.
type CreditPayment struct {
	gorm.Model
	CreditInstallmentID uint            `json:"credit_installment_id" gorm:"not null;index"`
	Monto               decimal.Decimal `json:"monto" gorm:"type:numeric(10,2);not null"`
	Metodo              string          `json:"metodo" gorm:"default:'efectivo'"`
	Fecha               time.Time       `json:"fecha" gorm:"not null"`
}
