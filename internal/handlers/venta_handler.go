package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/TaddyRiv/tiendaback/config"
	"github.com/TaddyRiv/tiendaback/internal/creditos"
	"github.com/TaddyRiv/tiendaback/models"
)

var ErrStockInsuficiente = errors.New("stock insuficiente")

// DetalleRequest es una línea de la venta entrante.
type DetalleRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Cantidad  int  `json:"cantidad" binding:"required"`
}

// VentaRequest son los datos para registrar una venta.
type VentaRequest struct {
	ClienteID  uint             `json:"cliente_id" binding:"required"`
	MetodoPago string           `json:"metodo_pago" binding:"required"` // efectivo | tarjeta | credito
	Detalles   []DetalleRequest `json:"detalles" binding:"required,min=1"`
}

// CreateVentaHandler registra una venta completa en una transacción:
// descuenta stock con bloqueo de fila, calcula el total desde las líneas y
// según el método de pago registra el cobro de contado o genera el plan de
// crédito. Las ventas con tarjeta quedan pendientes hasta el webhook de la
// pasarela.
func CreateVentaHandler(c *gin.Context) {
	var req VentaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}
	switch req.MetodoPago {
	case "efectivo", "tarjeta", "credito":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Método de pago inválido: " + req.MetodoPago})
		return
	}
	for _, d := range req.Detalles {
		if d.Cantidad <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Las cantidades deben ser mayores a cero"})
			return
		}
	}

	var cliente models.Usuario
	if err := config.DB.First(&cliente, req.ClienteID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El cliente no existe"})
		return
	}

	empleadoID := c.GetUint("user_id")
	var nota models.SalesNote

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		total := decimal.Zero
		detalles := make([]models.DetailNote, 0, len(req.Detalles))

		for _, d := range req.Detalles {
			var producto models.Product
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&producto, d.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("producto %d no encontrado", d.ProductID)
				}
				return err
			}
			if producto.Stock < d.Cantidad {
				return fmt.Errorf("%w para %q: disponible %d, pedido %d",
					ErrStockInsuficiente, producto.Nombre, producto.Stock, d.Cantidad)
			}

			if err := tx.Model(&producto).
				Update("stock", gorm.Expr("stock - ?", d.Cantidad)).Error; err != nil {
				return err
			}

			subtotal := producto.Precio.Mul(decimal.NewFromInt(int64(d.Cantidad))).Round(2)
			total = total.Add(subtotal)
			detalles = append(detalles, models.DetailNote{
				ProductID:      d.ProductID,
				Cantidad:       d.Cantidad,
				PrecioUnitario: producto.Precio,
				Subtotal:       subtotal,
			})
		}

		estado := "completada"
		if req.MetodoPago == "tarjeta" {
			// Queda pendiente hasta que la pasarela confirme
			estado = "pendiente"
		}
		nota = models.SalesNote{
			Fecha:      time.Now(),
			Total:      total,
			Estado:     estado,
			MetodoPago: req.MetodoPago,
			ClienteID:  req.ClienteID,
			EmpleadoID: empleadoID,
			Detalles:   detalles,
		}
		if err := tx.Create(&nota).Error; err != nil {
			return err
		}

		switch req.MetodoPago {
		case "efectivo":
			pago := models.CashPayment{SalesNoteID: nota.ID, Monto: total, Fecha: nota.Fecha}
			if err := tx.Create(&pago).Error; err != nil {
				return err
			}
		case "credito":
			configCredito, err := creditos.ConfigActiva(tx)
			if err != nil {
				return err
			}
			if _, err := creditos.CrearPlan(tx, &nota, configCredito); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		switch {
		case errors.Is(err, ErrStockInsuficiente),
			errors.Is(err, creditos.ErrMontoExcedeLimite),
			errors.Is(err, creditos.ErrSinConfiguracion):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo registrar la venta: " + err.Error()})
		}
		return
	}

	config.DB.Preload("Detalles.Product").Preload("Cliente").First(&nota, nota.ID)
	c.JSON(http.StatusCreated, nota)
}

// ListVentasHandler lista ventas con paginación, filtrables por cliente,
// método de pago y rango de fechas.
func ListVentasHandler(c *gin.Context) {
	inicio, fin, err := rangoFechas(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	consulta := config.DB.Model(&models.SalesNote{}).
		Where("fecha >= ? AND fecha <= ?", inicio, fin)
	if cliente := c.Query("cliente_id"); cliente != "" {
		consulta = consulta.Where("cliente_id = ?", cliente)
	}
	if metodo := c.Query("metodo_pago"); metodo != "" {
		consulta = consulta.Where("metodo_pago = ?", metodo)
	}

	var totalRows int64
	if err := consulta.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al contar las ventas"})
		return
	}
	var ventas []models.SalesNote
	if err := consulta.Scopes(Paginate(c)).
		Preload("Cliente").Preload("Detalles.Product").
		Order("fecha DESC").
		Find(&ventas).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al listar las ventas"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, ventas, totalRows))
}

// GetVentaHandler devuelve una venta con sus líneas y su crédito si tiene.
func GetVentaHandler(c *gin.Context) {
	var nota models.SalesNote
	if err := config.DB.Preload("Detalles.Product").Preload("Cliente").
		First(&nota, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Venta no encontrada"})
		return
	}

	respuesta := gin.H{"venta": nota}
	if nota.MetodoPago == "credito" {
		var credito models.CreditSale
		if err := config.DB.Preload("Cuotas").
			Where("sales_note_id = ?", nota.ID).First(&credito).Error; err == nil {
			respuesta["credito"] = credito
		}
	}
	c.JSON(http.StatusOK, respuesta)
}

// AnularVentaHandler anula una venta y devuelve el stock. Las ventas a
// crédito con pagos aplicados no se pueden anular.
func AnularVentaHandler(c *gin.Context) {
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var nota models.SalesNote
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Detalles").
			First(&nota, c.Param("id")).Error; err != nil {
			return err
		}
		if nota.Estado == "anulada" {
			return errors.New("la venta ya está anulada")
		}

		if nota.MetodoPago == "credito" {
			var credito models.CreditSale
			if err := tx.Where("sales_note_id = ?", nota.ID).First(&credito).Error; err == nil {
				var pagos int64
				tx.Model(&models.CreditPayment{}).
					Joins("JOIN credit_installments ON credit_installments.id = credit_payments.credit_installment_id").
					Where("credit_installments.credit_sale_id = ?", credito.ID).
					Count(&pagos)
				if pagos > 0 {
					return errors.New("el crédito ya tiene pagos aplicados, no se puede anular")
				}
				if err := tx.Where("credit_sale_id = ?", credito.ID).
					Delete(&models.CreditInstallment{}).Error; err != nil {
					return err
				}
				if err := tx.Delete(&credito).Error; err != nil {
					return err
				}
			}
		}

		for _, d := range nota.Detalles {
			if err := tx.Model(&models.Product{}).Where("id = ?", d.ProductID).
				Update("stock", gorm.Expr("stock + ?", d.Cantidad)).Error; err != nil {
				return err
			}
		}
		return tx.Model(&nota).Update("estado", "anulada").Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Venta no encontrada"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Venta anulada y stock restituido"})
}
