package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/TaddyRiv/tiendaback/config"
	"github.com/TaddyRiv/tiendaback/internal/creditos"
	"github.com/TaddyRiv/tiendaback/models"
)

// ListCreditosHandler lista créditos con paginación, filtrables por estado
// y por cliente. Recalcula estados antes de listar para que los atrasos
// estén al día.
func ListCreditosHandler(c *gin.Context) {
	if err := creditos.ActualizarEstados(config.DB); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al actualizar los estados"})
		return
	}

	consulta := config.DB.Model(&models.CreditSale{})
	if estado := c.Query("estado"); estado != "" {
		consulta = consulta.Where("estado = ?", estado)
	}
	if cliente := c.Query("cliente_id"); cliente != "" {
		consulta = consulta.Where("cliente_id = ?", cliente)
	}

	var totalRows int64
	if err := consulta.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al contar los créditos"})
		return
	}
	var creditosLista []models.CreditSale
	if err := consulta.Scopes(Paginate(c)).
		Preload("Cliente").Preload("Cuotas").
		Order("fecha_inicio DESC").
		Find(&creditosLista).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al listar los créditos"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, creditosLista, totalRows))
}

// GetCreditoHandler devuelve un crédito con sus cuotas.
func GetCreditoHandler(c *gin.Context) {
	var credito models.CreditSale
	if err := config.DB.Preload("Cliente").Preload("Cuotas").
		First(&credito, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Crédito no encontrado"})
		return
	}
	c.JSON(http.StatusOK, credito)
}

// PagarCuotaRequest son los datos del cobro de una cuota. Sin monto se
// cobra la cuota completa.
type PagarCuotaRequest struct {
	Monto  decimal.Decimal `json:"monto"`
	Metodo string          `json:"metodo"`
}

// PagarCuotaHandler cobra una cuota. Pagar una cuota ya pagada es un error
// de negocio, no del servidor.
func PagarCuotaHandler(c *gin.Context) {
	var cuota models.CreditInstallment
	if err := config.DB.First(&cuota, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cuota no encontrada"})
		return
	}

	var req PagarCuotaRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}

	credito, err := creditos.PagarCuota(config.DB, cuota.ID, req.Monto, req.Metodo)
	if err != nil {
		switch {
		case errors.Is(err, creditos.ErrCuotaPagada),
			errors.Is(err, creditos.ErrMontoInvalido):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, creditos.ErrCuotaNoEncontrada):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo registrar el pago: " + err.Error()})
		}
		return
	}

	config.DB.Preload("Cuotas").First(credito, credito.ID)
	c.JSON(http.StatusOK, gin.H{
		"message": "Pago registrado",
		"credito": credito,
	})
}

// ResumenCreditosHandler devuelve los totales de la cartera.
func ResumenCreditosHandler(c *gin.Context) {
	resumen, err := creditos.ResumenCreditos(config.DB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al calcular el resumen: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, resumen)
}

// --- Configuración de crédito ---

type CreditConfigRequest struct {
	MontoMax        decimal.Decimal `json:"monto_max" binding:"required"`
	TasaInteres     decimal.Decimal `json:"tasa_interes" binding:"required"`
	CantidadCuotas  int             `json:"cantidad_cuotas" binding:"required"`
	DiasEntreCuotas int             `json:"dias_entre_cuotas" binding:"required"`
}

// GetCreditConfigHandler devuelve la configuración vigente.
func GetCreditConfigHandler(c *gin.Context) {
	configCredito, err := creditos.ConfigActiva(config.DB)
	if err != nil {
		if errors.Is(err, creditos.ErrSinConfiguracion) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al leer la configuración"})
		return
	}
	c.JSON(http.StatusOK, configCredito)
}

// CreateCreditConfigHandler crea una configuración nueva y desactiva la
// anterior. Los planes ya generados no se ven afectados.
func CreateCreditConfigHandler(c *gin.Context) {
	var req CreditConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}
	if req.CantidadCuotas <= 0 || req.DiasEntreCuotas <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cuotas y días entre cuotas deben ser mayores a cero"})
		return
	}
	if req.MontoMax.IsNegative() || req.TasaInteres.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Monto máximo y tasa no pueden ser negativos"})
		return
	}

	nueva := models.CreditConfig{
		MontoMax:        req.MontoMax,
		TasaInteres:     req.TasaInteres,
		CantidadCuotas:  req.CantidadCuotas,
		DiasEntreCuotas: req.DiasEntreCuotas,
		Activo:          true,
	}
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.CreditConfig{}).
			Where("activo = ?", true).
			Update("activo", false).Error; err != nil {
			return err
		}
		return tx.Create(&nueva).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo guardar la configuración"})
		return
	}
	c.JSON(http.StatusCreated, nueva)
}
