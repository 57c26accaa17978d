package handlers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/TaddyRiv/tiendaback/config"
	"github.com/TaddyRiv/tiendaback/internal/creditos"
	"github.com/TaddyRiv/tiendaback/internal/reportes"
	"github.com/TaddyRiv/tiendaback/models"
)

// ReporteCache es el caché compartido de reportes, inicializado en el boot.
var ReporteCache *reportes.Cache

// InitReporteCache configura el caché de reportes.
func InitReporteCache(cache *reportes.Cache) {
	ReporteCache = cache
}

// registrarHistorial deja constancia del reporte generado. Un fallo acá no
// interrumpe la respuesta.
func registrarHistorial(c *gin.Context, tipo string, parametros models.JSONMap, resumen string) {
	historial := models.HistorialReporte{
		UsuarioID:  c.GetUint("user_id"),
		Tipo:       tipo,
		Parametros: parametros,
		Resumen:    resumen,
	}
	config.DB.Create(&historial)
}

// VentasPorPeriodoHandler responde el resumen de ventas del rango pedido.
func VentasPorPeriodoHandler(c *gin.Context) {
	inicio, fin, err := rangoFechas(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := gin.H{"inicio": inicio, "fin": fin}
	var resumen reportes.ResumenVentas
	if ReporteCache.Obtener(c.Request.Context(), "ventas_periodo", params, &resumen) {
		c.JSON(http.StatusOK, resumen)
		return
	}

	resultado, err := reportes.VentasPorPeriodo(config.DB, inicio, fin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al generar el reporte: " + err.Error()})
		return
	}
	ReporteCache.Guardar(c.Request.Context(), "ventas_periodo", params, resultado)
	c.JSON(http.StatusOK, resultado)
}

// TopProductosHandler responde el ranking de productos del período.
func TopProductosHandler(c *gin.Context) {
	inicio, fin, err := rangoFechas(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limite, _ := strconv.Atoi(c.Query("limite"))

	top, err := reportes.TopProductos(config.DB, inicio, fin, limite)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al generar el reporte: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, top)
}

// BajoStockHandler lista los productos bajo el umbral de stock.
func BajoStockHandler(c *gin.Context) {
	umbral, _ := strconv.Atoi(c.Query("umbral"))
	productos, err := reportes.ProductosBajoStock(config.DB, umbral)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al generar el reporte: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, productos)
}

// VentasPorDiaHandler responde la serie diaria del período.
func VentasPorDiaHandler(c *gin.Context) {
	inicio, fin, err := rangoFechas(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	serie, err := reportes.VentasPorDia(config.DB, inicio, fin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al generar el reporte: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, serie)
}

// CategoriasReporteHandler responde el análisis por categoría.
func CategoriasReporteHandler(c *gin.Context) {
	inicio, fin, err := rangoFechas(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filas, err := reportes.AnalisisPorCategoria(config.DB, inicio, fin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al generar el reporte: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, filas)
}

// EmpleadosReporteHandler responde el rendimiento por empleado.
func EmpleadosReporteHandler(c *gin.Context) {
	inicio, fin, err := rangoFechas(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filas, err := reportes.RendimientoEmpleados(config.DB, inicio, fin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al generar el reporte: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, filas)
}

// ClientesFrecuentesHandler responde el ranking de clientes.
func ClientesFrecuentesHandler(c *gin.Context) {
	inicio, fin, err := rangoFechas(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limite, _ := strconv.Atoi(c.Query("limite"))
	filas, err := reportes.ClientesFrecuentes(config.DB, inicio, fin, limite)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al generar el reporte: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, filas)
}

// FlujoCajaHandler responde el flujo de caja del período.
func FlujoCajaHandler(c *gin.Context) {
	inicio, fin, err := rangoFechas(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	flujo, err := reportes.FlujoCajaDetallado(config.DB, inicio, fin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al generar el reporte: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, flujo)
}

// RotacionHandler responde la rotación de inventario del período.
func RotacionHandler(c *gin.Context) {
	inicio, fin, err := rangoFechas(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filas, err := reportes.RotacionInventario(config.DB, inicio, fin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al generar el reporte: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, filas)
}

// RFMHandler responde la segmentación RFM de la clientela.
func RFMHandler(c *gin.Context) {
	params := gin.H{"dia": time.Now().Format("2006-01-02")}
	var clientes []reportes.ClienteRFM
	if ReporteCache.Obtener(c.Request.Context(), "rfm", params, &clientes) {
		c.JSON(http.StatusOK, clientes)
		return
	}

	clientes, err := reportes.AnalisisRFM(config.DB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al generar el reporte: " + err.Error()})
		return
	}
	ReporteCache.Guardar(c.Request.Context(), "rfm", params, clientes)
	c.JSON(http.StatusOK, clientes)
}

// TendenciasHandler responde la serie mensual con crecimiento.
func TendenciasHandler(c *gin.Context) {
	meses, _ := strconv.Atoi(c.Query("meses"))
	serie, err := reportes.TendenciasVentas(config.DB, meses)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al generar el reporte: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, serie)
}

// CohortesHandler responde la retención por camadas de clientes.
func CohortesHandler(c *gin.Context) {
	cohortes, err := reportes.CohortesRetencion(config.DB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al generar el reporte: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, cohortes)
}

// CarteraHandler responde el análisis de la cartera de créditos.
func CarteraHandler(c *gin.Context) {
	cartera, err := reportes.CarteraCreditos(config.DB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al generar el reporte: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, cartera)
}

// MarketBasketHandler responde los pares de productos asociados. Es la
// consulta más pesada del sistema, corre con timeout propio.
func MarketBasketHandler(c *gin.Context) {
	inicio, fin, err := rangoFechas(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	minSoporte, _ := strconv.Atoi(c.Query("min_soporte"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	params := gin.H{"inicio": inicio, "fin": fin, "min_soporte": minSoporte}
	var pares []reportes.ParAsociado
	if ReporteCache.Obtener(ctx, "market_basket", params, &pares) {
		c.JSON(http.StatusOK, pares)
		return
	}

	pares, err = reportes.MarketBasket(config.DB.WithContext(ctx), inicio, fin, minSoporte)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al generar el reporte: " + err.Error()})
		return
	}
	ReporteCache.Guardar(ctx, "market_basket", params, pares)
	c.JSON(http.StatusOK, pares)
}

// DashboardHandler arma el tablero del período pedido con los reportes
// principales. Un período sin movimiento devuelve todo en ceros.
func DashboardHandler(c *gin.Context) {
	inicio, fin, err := rangoPeriodo(c.Query("periodo"), time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ventas, err := reportes.VentasPorPeriodo(config.DB, inicio, fin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error en el resumen de ventas: " + err.Error()})
		return
	}
	top, err := reportes.TopProductos(config.DB, inicio, fin, 5)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error en el top de productos: " + err.Error()})
		return
	}
	bajoStock, err := reportes.ProductosBajoStock(config.DB, 10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error en el stock bajo: " + err.Error()})
		return
	}
	resumenCreditos, err := creditos.ResumenCreditos(config.DB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error en el resumen de créditos: " + err.Error()})
		return
	}
	serie, err := reportes.VentasPorDia(config.DB, inicio, fin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error en la serie diaria: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"periodo":          c.DefaultQuery("periodo", "mes_actual"),
		"ventas":           ventas,
		"top_productos":    top,
		"bajo_stock":       bajoStock,
		"creditos":         resumenCreditos,
		"ventas_por_dia":   serie,
	})
}

// DinamicoHandler ejecuta un reporte definido por el cliente y lo deja
// registrado en el historial.
func DinamicoHandler(c *gin.Context) {
	var configReporte reportes.ConfigReporte
	if err := c.ShouldBindJSON(&configReporte); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}

	filas, err := reportes.Generar(config.DB, configReporte)
	if err != nil {
		switch {
		case errors.Is(err, reportes.ErrModeloInvalido),
			errors.Is(err, reportes.ErrCampoInvalido),
			errors.Is(err, reportes.ErrOperadorInvalido),
			errors.Is(err, reportes.ErrMetricaInvalida):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al ejecutar el reporte: " + err.Error()})
		}
		return
	}

	parametros := models.JSONMap{
		"modelo":      configReporte.Modelo,
		"filtros":     len(configReporte.Filtros),
		"agrupar_por": configReporte.AgruparPor,
	}
	registrarHistorial(c, "dinamico", parametros, fmt.Sprintf("%d filas", len(filas)))

	c.JSON(http.StatusOK, gin.H{"total": len(filas), "filas": filas})
}

// HistorialHandler lista el historial de reportes generados.
func HistorialHandler(c *gin.Context) {
	consulta := config.DB.Model(&models.HistorialReporte{})
	if tipo := c.Query("tipo"); tipo != "" {
		consulta = consulta.Where("tipo = ?", tipo)
	}

	var totalRows int64
	if err := consulta.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al contar el historial"})
		return
	}
	var historial []models.HistorialReporte
	if err := consulta.Scopes(Paginate(c)).
		Preload("Usuario").
		Order("created_at DESC").
		Find(&historial).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al listar el historial"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, historial, totalRows))
}

// LimpiarCacheHandler borra el caché de reportes.
func LimpiarCacheHandler(c *gin.Context) {
	if err := ReporteCache.Limpiar(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo limpiar el caché: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Caché de reportes limpio"})
}

// ExportarRequest pide la exportación de un reporte dinámico.
type ExportarRequest struct {
	Formato string                 `json:"formato"` // xlsx | csv
	Reporte reportes.ConfigReporte `json:"reporte" binding:"required"`
}

// ExportarHandler ejecuta un reporte dinámico y lo baja como planilla.
func ExportarHandler(c *gin.Context) {
	var req ExportarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}
	if req.Formato == "" {
		req.Formato = "xlsx"
	}

	filas, err := reportes.Generar(config.DB, req.Reporte)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error al ejecutar el reporte: " + err.Error()})
		return
	}

	columnas := columnasDe(req.Reporte, filas)
	nombre := fmt.Sprintf("reporte_%s_%s", req.Reporte.Modelo, time.Now().Format("20060102_150405"))

	registrarHistorial(c, "exportacion", models.JSONMap{
		"modelo": req.Reporte.Modelo, "formato": req.Formato,
	}, fmt.Sprintf("%d filas", len(filas)))

	switch req.Formato {
	case "csv":
		exportarCSV(c, nombre, columnas, filas)
	case "xlsx":
		exportarXLSX(c, nombre, columnas, filas)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Formato no soportado: " + req.Formato})
	}
}

// columnasDe deriva el orden de columnas de la definición del reporte, y
// completa con lo que aparezca en la primera fila.
func columnasDe(configReporte reportes.ConfigReporte, filas []map[string]interface{}) []string {
	columnas := []string{}
	vistas := map[string]bool{}
	for _, campo := range configReporte.AgruparPor {
		columnas = append(columnas, campo)
		vistas[campo] = true
	}
	if len(filas) > 0 {
		restantes := []string{}
		for clave := range filas[0] {
			if !vistas[clave] {
				restantes = append(restantes, clave)
			}
		}
		sort.Strings(restantes)
		columnas = append(columnas, restantes...)
	}
	return columnas
}

func exportarCSV(c *gin.Context, nombre string, columnas []string, filas []map[string]interface{}) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", nombre))

	// BOM para que Excel abra el UTF-8 sin romper acentos
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	w := csv.NewWriter(c.Writer)
	defer w.Flush()

	w.Write(columnas)
	for _, fila := range filas {
		registro := make([]string, len(columnas))
		for i, col := range columnas {
			registro[i] = fmt.Sprintf("%v", fila[col])
		}
		w.Write(registro)
	}
}

func exportarXLSX(c *gin.Context, nombre string, columnas []string, filas []map[string]interface{}) {
	f := excelize.NewFile()
	defer f.Close()

	hoja := "Reporte"
	f.SetSheetName("Sheet1", hoja)

	for i, col := range columnas {
		celda, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(hoja, celda, col)
	}
	for nf, fila := range filas {
		for i, col := range columnas {
			celda, _ := excelize.CoordinatesToCellName(i+1, nf+2)
			f.SetCellValue(hoja, celda, fmt.Sprintf("%v", fila[col]))
		}
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", nombre))
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo escribir la planilla: " + err.Error()})
	}
}
