package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/TaddyRiv/tiendaback/config"
	"github.com/TaddyRiv/tiendaback/internal/creditos"
	"github.com/TaddyRiv/tiendaback/models"
)

// IntentRequest crea una intención de pago contra la pasarela para una
// venta pendiente.
type IntentRequest struct {
	SalesNoteID uint `json:"sales_note_id" binding:"required"`
}

// CreateIntentHandler genera la intención de pago. El ID opaco es lo único
// que viaja a la pasarela; el monto queda fijado acá.
func CreateIntentHandler(c *gin.Context) {
	var req IntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}

	var nota models.SalesNote
	if err := config.DB.First(&nota, req.SalesNoteID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Venta no encontrada"})
		return
	}

	monto := nota.Total
	switch {
	case nota.Estado == "pendiente":
		// Venta con tarjeta: la pasarela cobra el total
	case nota.MetodoPago == "credito":
		// Venta a crédito: la pasarela cobra el anticipo (primera cuota)
		primera, err := primeraCuotaPendiente(config.DB, nota.ID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "La venta a crédito no tiene cuotas por cobrar"})
			return
		}
		monto = primera.Monto
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "La venta no está pendiente de pago"})
		return
	}

	intento := models.PaymentIntent{
		IntentID:    uuid.NewString(),
		SalesNoteID: nota.ID,
		Monto:       monto,
		Estado:      "pendiente",
	}
	if err := config.DB.Create(&intento).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo crear la intención de pago"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"intent_id": intento.IntentID,
		"monto":     intento.Monto,
	})
}

// primeraCuotaPendiente busca la primera cuota sin pagar del plan de
// crédito de una venta.
func primeraCuotaPendiente(db *gorm.DB, salesNoteID uint) (*models.CreditInstallment, error) {
	var credito models.CreditSale
	if err := db.Where("sales_note_id = ?", salesNoteID).First(&credito).Error; err != nil {
		return nil, err
	}
	var cuota models.CreditInstallment
	if err := db.Where("credit_sale_id = ? AND pagada = ?", credito.ID, false).
		Order("numero ASC").First(&cuota).Error; err != nil {
		return nil, err
	}
	return &cuota, nil
}

// WebhookInput es el callback asíncrono de la pasarela.
type WebhookInput struct {
	IntentID string `json:"intent_id" binding:"required"`
	Evento   string `json:"evento" binding:"required"` // succeeded | failed
}

// WebhookPasarelaHandler procesa la confirmación de la pasarela: finaliza
// la venta pendiente y, si es a crédito, cobra la primera cuota. El
// webhook es idempotente: una intención ya procesada responde OK sin
// repetir efectos.
func WebhookPasarelaHandler(c *gin.Context) {
	var input WebhookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}

	var intento models.PaymentIntent
	if err := config.DB.Where("intent_id = ?", input.IntentID).First(&intento).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Intención de pago no encontrada"})
		return
	}
	if intento.Estado != "pendiente" {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Intención ya procesada"})
		return
	}

	if input.Evento != "succeeded" {
		ahora := time.Now()
		config.DB.Model(&intento).Updates(map[string]interface{}{
			"estado": "cancelado", "procesado": &ahora,
		})
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Intención cancelada"})
		return
	}

	var esCredito bool
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		ahora := time.Now()
		if err := tx.Model(&intento).Updates(map[string]interface{}{
			"estado": "exitoso", "procesado": &ahora,
		}).Error; err != nil {
			return err
		}

		var nota models.SalesNote
		if err := tx.First(&nota, intento.SalesNoteID).Error; err != nil {
			return err
		}
		esCredito = nota.MetodoPago == "credito"
		if esCredito {
			// El cobro del crédito se registra sobre la cuota, no como
			// pago de contado
			return nil
		}

		if err := tx.Model(&nota).Update("estado", "completada").Error; err != nil {
			return err
		}
		pago := models.CashPayment{SalesNoteID: nota.ID, Monto: intento.Monto, Fecha: ahora}
		return tx.Create(&pago).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo finalizar la venta: " + err.Error()})
		return
	}

	// Ventas a crédito financian el anticipo con la primera cuota
	if esCredito {
		primera, err := primeraCuotaPendiente(config.DB, intento.SalesNoteID)
		if err == nil {
			if _, err := creditos.PagarCuota(config.DB, primera.ID, primera.Monto, "pasarela"); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo cobrar la primera cuota: " + err.Error()})
				return
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Pago procesado"})
}
