// Package creditos implementa el motor de ventas a crédito: generación de
// planes de cuotas, cobro de cuotas y recálculo de estado del plan.
package creditos

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/TaddyRiv/tiendaback/models"
)

var (
	ErrMontoExcedeLimite = errors.New("el monto excede el límite de crédito configurado")
	ErrCuotaPagada       = errors.New("la cuota ya está pagada")
	ErrCuotaNoEncontrada = errors.New("cuota no encontrada")
	ErrMontoInvalido     = errors.New("el monto del pago debe ser mayor a cero")
	ErrSinConfiguracion  = errors.New("no hay configuración de crédito activa")
)

var cien = decimal.NewFromInt(100)

// ConfigActiva devuelve la configuración de crédito vigente.
func ConfigActiva(db *gorm.DB) (*models.CreditConfig, error) {
	var config models.CreditConfig
	err := db.Where("activo = ?", true).Order("id DESC").First(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSinConfiguracion
	}
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// CrearPlan genera el plan de crédito para una nota de venta dentro de la
// transacción del llamador. El interés es simple sobre el total:
// total_con_intereses = total × (1 + tasa/100), redondeado a centavos.
// Las cuotas se redondean a centavos y la última absorbe la diferencia
// para que la suma coincida exactamente con el total con intereses.
func CrearPlan(tx *gorm.DB, nota *models.SalesNote, config *models.CreditConfig) (*models.CreditSale, error) {
	if nota.Total.GreaterThan(config.MontoMax) {
		return nil, ErrMontoExcedeLimite
	}

	factor := decimal.NewFromInt(1).Add(config.TasaInteres.Div(cien))
	totalConIntereses := nota.Total.Mul(factor).Round(2)

	credito := models.CreditSale{
		SalesNoteID:       nota.ID,
		ClienteID:         nota.ClienteID,
		TotalOriginal:     nota.Total,
		TotalConIntereses: totalConIntereses,
		SaldoPendiente:    totalConIntereses,
		TasaInteres:       config.TasaInteres,
		Estado:            "activo",
		FechaInicio:       nota.Fecha,
	}
	if err := tx.Create(&credito).Error; err != nil {
		return nil, err
	}

	n := config.CantidadCuotas
	montoCuota := totalConIntereses.Div(decimal.NewFromInt(int64(n))).Round(2)
	acumulado := decimal.Zero

	cuotas := make([]models.CreditInstallment, 0, n)
	for i := 1; i <= n; i++ {
		monto := montoCuota
		if i == n {
			// La última cuota cierra el plan al centavo
			monto = totalConIntereses.Sub(acumulado)
		}
		acumulado = acumulado.Add(monto)
		cuotas = append(cuotas, models.CreditInstallment{
			CreditSaleID:     credito.ID,
			Numero:           i,
			Monto:            monto,
			FechaVencimiento: nota.Fecha.AddDate(0, 0, i*config.DiasEntreCuotas),
		})
	}
	if err := tx.Create(&cuotas).Error; err != nil {
		return nil, err
	}

	credito.Cuotas = cuotas
	return &credito, nil
}

// PagarCuota aplica un pago a una cuota dentro de una transacción con
// bloqueo de fila. Si monto es cero se cobra el monto completo de la cuota.
// Devuelve el crédito actualizado.
func PagarCuota(db *gorm.DB, cuotaID uint, monto decimal.Decimal, metodo string) (*models.CreditSale, error) {
	if monto.IsNegative() {
		return nil, ErrMontoInvalido
	}
	if metodo == "" {
		metodo = "efectivo"
	}

	var credito models.CreditSale
	err := db.Transaction(func(tx *gorm.DB) error {
		var cuota models.CreditInstallment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&cuota, cuotaID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCuotaNoEncontrada
			}
			return err
		}
		if cuota.Pagada {
			return ErrCuotaPagada
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&credito, cuota.CreditSaleID).Error; err != nil {
			return err
		}

		if monto.IsZero() {
			monto = cuota.Monto
		}

		ahora := time.Now()
		pago := models.CreditPayment{
			CreditInstallmentID: cuota.ID,
			Monto:               monto,
			Metodo:              metodo,
			Fecha:               ahora,
		}
		if err := tx.Create(&pago).Error; err != nil {
			return err
		}

		cuota.Pagada = true
		cuota.FechaPago = &ahora
		if err := tx.Save(&cuota).Error; err != nil {
			return err
		}

		saldo := credito.SaldoPendiente.Sub(monto)
		if saldo.IsNegative() {
			saldo = decimal.Zero
		}
		credito.SaldoPendiente = saldo

		if err := recalcularEstado(tx, &credito); err != nil {
			return err
		}
		return tx.Save(&credito).Error
	})
	if err != nil {
		return nil, err
	}
	return &credito, nil
}

// recalcularEstado fija el estado del plan según su saldo y sus cuotas
// vencidas. Saldo en cero es plan pagado, sin importar cuántas cuotas
// queden formalmente abiertas: un sobrepago las liquida. Un plan atrasado
// vuelve a activo si ya no tiene cuotas vencidas sin pagar.
func recalcularEstado(tx *gorm.DB, credito *models.CreditSale) error {
	if !credito.SaldoPendiente.IsPositive() {
		ahora := time.Now()
		if err := tx.Model(&models.CreditInstallment{}).
			Where("credit_sale_id = ? AND pagada = ?", credito.ID, false).
			Updates(map[string]interface{}{"pagada": true, "fecha_pago": ahora}).
			Error; err != nil {
			return err
		}
		credito.Estado = "pagado"
		return nil
	}

	var vencidas int64
	if err := tx.Model(&models.CreditInstallment{}).
		Where("credit_sale_id = ? AND pagada = ? AND fecha_vencimiento < ?",
			credito.ID, false, time.Now()).
		Count(&vencidas).Error; err != nil {
		return err
	}
	if vencidas > 0 {
		credito.Estado = "atrasado"
	} else {
		credito.Estado = "activo"
	}
	return nil
}

// ActualizarEstados recorre los créditos no pagados y recalcula su estado.
// Se llama antes de los resúmenes para que los atrasos sean visibles sin
// esperar un pago.
func ActualizarEstados(db *gorm.DB) error {
	var creditos []models.CreditSale
	if err := db.Where("estado <> ?", "pagado").Find(&creditos).Error; err != nil {
		return err
	}
	for i := range creditos {
		estadoPrevio := creditos[i].Estado
		if err := recalcularEstado(db, &creditos[i]); err != nil {
			return err
		}
		if creditos[i].Estado != estadoPrevio {
			if err := db.Model(&creditos[i]).
				Update("estado", creditos[i].Estado).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// Resumen agrega el estado global de la cartera de créditos.
type Resumen struct {
	CreditosActivos   int64           `json:"creditos_activos"`
	CreditosAtrasados int64           `json:"creditos_atrasados"`
	CreditosPagados   int64           `json:"creditos_pagados"`
	SaldoTotal        decimal.Decimal `json:"saldo_total"`
	CuotasVencenHoy   int64           `json:"cuotas_vencen_hoy"`
}

// ResumenCreditos calcula los totales de la cartera. Recalcula estados
// primero para no reportar como activos créditos ya vencidos.
func ResumenCreditos(db *gorm.DB) (*Resumen, error) {
	if err := ActualizarEstados(db); err != nil {
		return nil, err
	}

	var r Resumen
	type conteo struct {
		Estado string
		Total  int64
	}
	var conteos []conteo
	if err := db.Model(&models.CreditSale{}).
		Select("estado, COUNT(*) AS total").
		Group("estado").
		Scan(&conteos).Error; err != nil {
		return nil, err
	}
	for _, c := range conteos {
		switch c.Estado {
		case "activo":
			r.CreditosActivos = c.Total
		case "atrasado":
			r.CreditosAtrasados = c.Total
		case "pagado":
			r.CreditosPagados = c.Total
		}
	}

	var saldo struct{ Saldo decimal.Decimal }
	if err := db.Model(&models.CreditSale{}).
		Select("COALESCE(SUM(saldo_pendiente), 0) AS saldo").
		Where("estado <> ?", "pagado").
		Scan(&saldo).Error; err != nil {
		return nil, err
	}
	r.SaldoTotal = saldo.Saldo

	hoy := time.Now()
	inicio := time.Date(hoy.Year(), hoy.Month(), hoy.Day(), 0, 0, 0, 0, hoy.Location())
	fin := inicio.AddDate(0, 0, 1)
	if err := db.Model(&models.CreditInstallment{}).
		Where("pagada = ? AND fecha_vencimiento >= ? AND fecha_vencimiento < ?",
			false, inicio, fin).
		Count(&r.CuotasVencenHoy).Error; err != nil {
		return nil, err
	}

	return &r, nil
}
