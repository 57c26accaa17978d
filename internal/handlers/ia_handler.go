package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"

	"github.com/TaddyRiv/tiendaback/config"
	"github.com/TaddyRiv/tiendaback/internal/creditos"
	"github.com/TaddyRiv/tiendaback/internal/reportes"
	"github.com/TaddyRiv/tiendaback/models"
)

// interpretacionIA es la respuesta estructurada que se le exige al modelo.
type interpretacionIA struct {
	Tipo        string                 `json:"tipo"` // predefinido | dinamico
	Reporte     string                 `json:"reporte"`
	Parametros  map[string]interface{} `json:"parametros"`
	Config      *reportes.ConfigReporte `json:"config"`
	Descripcion string                 `json:"descripcion"`
}

const promptInterprete = `Eres el asistente de reportes de una tienda. Interpreta el pedido del usuario y responde SOLO un JSON con esta estructura, sin texto adicional:
{"tipo": "predefinido" | "dinamico", "reporte": "<nombre>", "parametros": {...}, "config": {...}, "descripcion": "<explicación breve en español>"}
Reportes predefinidos disponibles: ventas_periodo, top_productos, bajo_stock, ventas_por_dia, resumen_creditos, categorias, empleados, clientes_frecuentes, flujo_caja, rotacion, rfm, tendencias, cohortes, cartera, market_basket.
Parámetros aceptados: fecha_inicio y fecha_fin (YYYY-MM-DD), limite, umbral, meses, min_soporte.
Si el pedido no encaja en ninguno, usa tipo "dinamico" y arma config con: modelo (ventas|detalles|productos|creditos|cuotas), filtros [{campo, operador: eq|ne|gt|gte|lt|lte|contains|in, valor}], agrupar_por, metricas {nombre: {tipo: sum|count|avg|max|min, campo}}, ordenar_por, limite.
Pedido del usuario: `

// ConsultaTextoHandler recibe un pedido en texto libre, lo interpreta con
// Gemini y ejecuta el reporte correspondiente.
func ConsultaTextoHandler(c *gin.Context) {
	var req struct {
		Consulta string `json:"consulta" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}
	resolverConsulta(c, []genai.Part{genai.Text(promptInterprete + req.Consulta)}, req.Consulta)
}

// ConsultaVozHandler recibe un audio, lo transcribe e interpreta con
// Gemini en una sola pasada, y ejecuta el reporte.
func ConsultaVozHandler(c *gin.Context) {
	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Falta el archivo de audio"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo leer el audio"})
		return
	}

	prompt := []genai.Part{
		genai.Text(promptInterprete + "(transcribe primero el audio adjunto)"),
		&genai.Blob{MIMEType: header.Header.Get("Content-Type"), Data: data},
	}
	resolverConsulta(c, prompt, "audio:"+header.Filename)
}

func resolverConsulta(c *gin.Context, prompt []genai.Part, consultaOriginal string) {
	if config.GeminiClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "El asistente de reportes no está configurado"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 45*time.Second)
	defer cancel()

	resp, err := config.GeminiClient.GenerateContent(ctx, prompt...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "El asistente no respondió: " + err.Error()})
		return
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "El asistente devolvió una respuesta vacía"})
		return
	}
	jsonResponse, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "El asistente devolvió un formato inesperado"})
		return
	}

	cleanJSON := strings.Trim(string(jsonResponse), "```json \n")
	var interpretacion interpretacionIA
	if err := json.Unmarshal([]byte(cleanJSON), &interpretacion); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo interpretar la consulta: " + err.Error()})
		return
	}

	var resultado interface{}
	switch interpretacion.Tipo {
	case "predefinido":
		resultado, err = despacharPredefinido(interpretacion.Reporte, interpretacion.Parametros)
	case "dinamico":
		if interpretacion.Config == nil {
			err = fmt.Errorf("la interpretación dinámica no trajo configuración")
		} else {
			resultado, err = reportes.Generar(config.DB, *interpretacion.Config)
		}
	default:
		err = fmt.Errorf("tipo de interpretación desconocido: %q", interpretacion.Tipo)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No se pudo ejecutar el reporte interpretado: " + err.Error()})
		return
	}

	registrarHistorial(c, "asistente_ia", models.JSONMap{
		"consulta": consultaOriginal,
		"tipo":     interpretacion.Tipo,
		"reporte":  interpretacion.Reporte,
	}, interpretacion.Descripcion)

	c.JSON(http.StatusOK, gin.H{
		"descripcion": interpretacion.Descripcion,
		"tipo":        interpretacion.Tipo,
		"reporte":     interpretacion.Reporte,
		"resultado":   resultado,
	})
}

// despacharPredefinido mapea el nombre interpretado a la función de
// reporte correspondiente, con sus parámetros validados.
func despacharPredefinido(nombre string, params map[string]interface{}) (interface{}, error) {
	inicio, fin, err := fechasDeParams(params)
	if err != nil {
		return nil, err
	}

	switch nombre {
	case "ventas_periodo":
		return reportes.VentasPorPeriodo(config.DB, inicio, fin)
	case "top_productos":
		return reportes.TopProductos(config.DB, inicio, fin, enteroDe(params, "limite"))
	case "bajo_stock":
		return reportes.ProductosBajoStock(config.DB, enteroDe(params, "umbral"))
	case "ventas_por_dia":
		return reportes.VentasPorDia(config.DB, inicio, fin)
	case "resumen_creditos":
		return creditos.ResumenCreditos(config.DB)
	case "categorias":
		return reportes.AnalisisPorCategoria(config.DB, inicio, fin)
	case "empleados":
		return reportes.RendimientoEmpleados(config.DB, inicio, fin)
	case "clientes_frecuentes":
		return reportes.ClientesFrecuentes(config.DB, inicio, fin, enteroDe(params, "limite"))
	case "flujo_caja":
		return reportes.FlujoCajaDetallado(config.DB, inicio, fin)
	case "rotacion":
		return reportes.RotacionInventario(config.DB, inicio, fin)
	case "rfm":
		return reportes.AnalisisRFM(config.DB)
	case "tendencias":
		return reportes.TendenciasVentas(config.DB, enteroDe(params, "meses"))
	case "cohortes":
		return reportes.CohortesRetencion(config.DB)
	case "cartera":
		return reportes.CarteraCreditos(config.DB)
	case "market_basket":
		return reportes.MarketBasket(config.DB, inicio, fin, enteroDe(params, "min_soporte"))
	default:
		return nil, fmt.Errorf("reporte predefinido desconocido: %q", nombre)
	}
}

func fechasDeParams(params map[string]interface{}) (time.Time, time.Time, error) {
	ahora := time.Now()
	inicio := time.Date(ahora.Year(), ahora.Month(), 1, 0, 0, 0, 0, ahora.Location())
	fin := inicio.AddDate(0, 1, 0).Add(-time.Second)

	if v, ok := params["fecha_inicio"].(string); ok && v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return inicio, fin, fmt.Errorf("fecha_inicio inválida: %q", v)
		}
		inicio = parsed
	}
	if v, ok := params["fecha_fin"].(string); ok && v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return inicio, fin, fmt.Errorf("fecha_fin inválida: %q", v)
		}
		fin = parsed.AddDate(0, 0, 1).Add(-time.Second)
	}
	return inicio, fin, nil
}

func enteroDe(params map[string]interface{}, clave string) int {
	switch v := params[clave].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		var n int
		fmt.Sscanf(v, "%d", &n)
		return n
	default:
		return 0
	}
}
