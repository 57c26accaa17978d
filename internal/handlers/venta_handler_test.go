package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/TaddyRiv/tiendaback/config"
	"github.com/TaddyRiv/tiendaback/models"
)

func setupVentasTest(t *testing.T) *gin.Engine {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Usuario{},
		&models.Category{},
		&models.Product{},
		&models.SalesNote{},
		&models.DetailNote{},
		&models.CashPayment{},
		&models.CreditConfig{},
		&models.CreditSale{},
		&models.CreditInstallment{},
		&models.CreditPayment{},
		&models.PaymentIntent{},
	))
	config.DB = db

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", uint(1))
	})
	router.POST("/ventas", CreateVentaHandler)
	router.POST("/ventas/:id/anular", AnularVentaHandler)
	router.POST("/pagos/intentos", CreateIntentHandler)
	router.POST("/pagos/webhook", WebhookPasarelaHandler)
	return router
}

func sembrarTienda(t *testing.T) (*models.Usuario, *models.Product) {
	t.Helper()
	cliente := models.Usuario{Email: "cliente@test.com", Password: "x", Nombre: "Ana", Rol: "cliente", Activo: true}
	require.NoError(t, config.DB.Create(&cliente).Error)
	producto := models.Product{Nombre: "Aceite", Precio: decimal.RequireFromString("12.50"), Stock: 20}
	require.NoError(t, config.DB.Create(&producto).Error)
	return &cliente, &producto
}

func postVenta(router *gin.Engine, req VentaRequest) *httptest.ResponseRecorder {
	cuerpo, _ := json.Marshal(req)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/ventas", bytes.NewReader(cuerpo))
	r.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, r)
	return w
}

func TestCreateVentaEfectivo(t *testing.T) {
	router := setupVentasTest(t)
	cliente, producto := sembrarTienda(t)

	w := postVenta(router, VentaRequest{
		ClienteID:  cliente.ID,
		MetodoPago: "efectivo",
		Detalles:   []DetalleRequest{{ProductID: producto.ID, Cantidad: 4}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var actualizado models.Product
	require.NoError(t, config.DB.First(&actualizado, producto.ID).Error)
	assert.Equal(t, 16, actualizado.Stock)

	var nota models.SalesNote
	require.NoError(t, config.DB.Preload("Detalles").First(&nota).Error)
	assert.Equal(t, "completada", nota.Estado)
	assert.True(t, nota.Total.Equal(decimal.RequireFromString("50.00")), "total: %s", nota.Total)
	require.Len(t, nota.Detalles, 1)

	var pago models.CashPayment
	require.NoError(t, config.DB.Where("sales_note_id = ?", nota.ID).First(&pago).Error)
	assert.True(t, pago.Monto.Equal(nota.Total))
}

func TestCreateVentaTarjetaQuedaPendiente(t *testing.T) {
	router := setupVentasTest(t)
	cliente, producto := sembrarTienda(t)

	w := postVenta(router, VentaRequest{
		ClienteID:  cliente.ID,
		MetodoPago: "tarjeta",
		Detalles:   []DetalleRequest{{ProductID: producto.ID, Cantidad: 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var nota models.SalesNote
	require.NoError(t, config.DB.First(&nota).Error)
	assert.Equal(t, "pendiente", nota.Estado)

	var pagos int64
	config.DB.Model(&models.CashPayment{}).Count(&pagos)
	assert.Equal(t, int64(0), pagos)
}

func TestCreateVentaSinStock(t *testing.T) {
	router := setupVentasTest(t)
	cliente, producto := sembrarTienda(t)

	w := postVenta(router, VentaRequest{
		ClienteID:  cliente.ID,
		MetodoPago: "efectivo",
		Detalles:   []DetalleRequest{{ProductID: producto.ID, Cantidad: 50}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// El stock queda intacto y no se registra la venta
	var actualizado models.Product
	require.NoError(t, config.DB.First(&actualizado, producto.ID).Error)
	assert.Equal(t, 20, actualizado.Stock)

	var ventas int64
	config.DB.Model(&models.SalesNote{}).Count(&ventas)
	assert.Equal(t, int64(0), ventas)
}

func TestCreateVentaCreditoGeneraPlan(t *testing.T) {
	router := setupVentasTest(t)
	cliente, producto := sembrarTienda(t)
	require.NoError(t, config.DB.Create(&models.CreditConfig{
		MontoMax:        decimal.NewFromInt(500),
		TasaInteres:     decimal.NewFromInt(10),
		CantidadCuotas:  3,
		DiasEntreCuotas: 10,
		Activo:          true,
	}).Error)

	w := postVenta(router, VentaRequest{
		ClienteID:  cliente.ID,
		MetodoPago: "credito",
		Detalles:   []DetalleRequest{{ProductID: producto.ID, Cantidad: 8}}, // 100.00
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var credito models.CreditSale
	require.NoError(t, config.DB.Preload("Cuotas").First(&credito).Error)
	assert.True(t, credito.TotalConIntereses.Equal(decimal.RequireFromString("110.00")))
	assert.Len(t, credito.Cuotas, 3)
}

func TestCreateVentaCreditoSinConfiguracion(t *testing.T) {
	router := setupVentasTest(t)
	cliente, producto := sembrarTienda(t)

	w := postVenta(router, VentaRequest{
		ClienteID:  cliente.ID,
		MetodoPago: "credito",
		Detalles:   []DetalleRequest{{ProductID: producto.ID, Cantidad: 1}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnularVentaRestituyeStock(t *testing.T) {
	router := setupVentasTest(t)
	cliente, producto := sembrarTienda(t)

	w := postVenta(router, VentaRequest{
		ClienteID:  cliente.ID,
		MetodoPago: "efectivo",
		Detalles:   []DetalleRequest{{ProductID: producto.ID, Cantidad: 5}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var nota models.SalesNote
	require.NoError(t, config.DB.First(&nota).Error)

	r := httptest.NewRequest("POST", fmt.Sprintf("/ventas/%d/anular", nota.ID), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var actualizado models.Product
	require.NoError(t, config.DB.First(&actualizado, producto.ID).Error)
	assert.Equal(t, 20, actualizado.Stock)

	require.NoError(t, config.DB.First(&nota).Error)
	assert.Equal(t, "anulada", nota.Estado)

	// Anular dos veces falla
	r = httptest.NewRequest("POST", fmt.Sprintf("/ventas/%d/anular", nota.ID), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
