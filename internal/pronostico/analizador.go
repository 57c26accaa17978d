// Package pronostico implementa el pipeline de pronóstico de demanda:
// análisis histórico por producto, predicción por niveles heurísticos con
// un modelo de regresión opcional, y recomendaciones de compra.
package pronostico

import (
	"errors"
	"math"
	"sort"
	"time"

	"gorm.io/gorm"
)

var ErrSinHistorial = errors.New("el producto no tiene historial de ventas")

// mesesPorEstacion usa el calendario del hemisferio sur.
var mesesPorEstacion = map[string][]int{
	"verano":    {12, 1, 2},
	"otono":     {3, 4, 5},
	"invierno":  {6, 7, 8},
	"primavera": {9, 10, 11},
}

// fechaEspecial es un evento del calendario comercial con su ventana de
// anticipación en días.
type fechaEspecial struct {
	Nombre       string
	Mes          int
	Dia          int
	Anticipacion int
}

var fechasEspeciales = []fechaEspecial{
	{"navidad", 12, 25, 45},
	{"ano_nuevo", 1, 1, 30},
	{"san_valentin", 2, 14, 30},
	{"dia_madre", 5, 27, 15},
	{"dia_padre", 3, 19, 15},
	{"todos_santos", 11, 2, 15},
}

// VentaMensual es un mes del historial de un producto.
type VentaMensual struct {
	Mes      string `json:"mes"` // YYYY-MM
	Unidades int    `json:"unidades"`
}

// AnalisisProducto es el resultado completo del análisis histórico.
type AnalisisProducto struct {
	ProductID        uint               `json:"product_id"`
	MesesConDatos    int                `json:"meses_con_datos"`
	Historial        []VentaMensual     `json:"historial"`
	PromedioMensual  float64            `json:"promedio_mensual"`
	PromedioPorMes   map[int]float64    `json:"promedio_por_mes"`
	MesesTemporadaAlta []int            `json:"meses_temporada_alta"`
	MesesTemporadaBaja []int            `json:"meses_temporada_baja"`
	Tendencia        string             `json:"tendencia"` // creciente | decreciente | estable
	PendienteMensual float64            `json:"pendiente_mensual"`
	Estable          bool               `json:"estable"`
	CoefVariacion    float64            `json:"coef_variacion"`
	RotacionDiaria   float64            `json:"rotacion_diaria"`
	Velocidad        string             `json:"velocidad"`
	EventosProximos  []EventoProximo    `json:"eventos_proximos"`
}

// EventoProximo es una fecha comercial dentro de su ventana de anticipación.
type EventoProximo struct {
	Nombre        string `json:"nombre"`
	DiasRestantes int    `json:"dias_restantes"`
}

// AnalizarProducto reconstruye el historial mensual de un producto en la
// ventana de lookback y deriva estacionalidad, tendencia y rotación.
func AnalizarProducto(db *gorm.DB, productID uint, mesesLookback int) (*AnalisisProducto, error) {
	if mesesLookback <= 0 {
		mesesLookback = 24
	}
	ahora := time.Now()
	desde := ahora.AddDate(0, -mesesLookback, 0)

	type linea struct {
		Fecha    time.Time
		Cantidad int
	}
	var lineas []linea
	err := db.Table("detail_notes").
		Select("sales_notes.fecha, detail_notes.cantidad").
		Joins("JOIN sales_notes ON sales_notes.id = detail_notes.sales_note_id").
		Where("detail_notes.product_id = ? AND sales_notes.fecha >= ? AND sales_notes.estado <> ?",
			productID, desde, "anulada").
		Where("detail_notes.deleted_at IS NULL").
		Order("sales_notes.fecha ASC").
		Scan(&lineas).Error
	if err != nil {
		return nil, err
	}
	if len(lineas) == 0 {
		return nil, ErrSinHistorial
	}

	porMes := make(map[string]int)
	for _, l := range lineas {
		porMes[l.Fecha.Format("2006-01")] += l.Cantidad
	}
	claves := make([]string, 0, len(porMes))
	for mes := range porMes {
		claves = append(claves, mes)
	}
	sort.Strings(claves)

	analisis := AnalisisProducto{
		ProductID:      productID,
		MesesConDatos:  len(claves),
		Historial:      make([]VentaMensual, 0, len(claves)),
		PromedioPorMes: map[int]float64{},
	}

	totales := make([]float64, 0, len(claves))
	sumaPorMesCalendario := make(map[int]float64)
	conteoPorMesCalendario := make(map[int]int)
	for _, mes := range claves {
		unidades := porMes[mes]
		analisis.Historial = append(analisis.Historial, VentaMensual{Mes: mes, Unidades: unidades})
		totales = append(totales, float64(unidades))

		t, _ := time.Parse("2006-01", mes)
		numMes := int(t.Month())
		sumaPorMesCalendario[numMes] += float64(unidades)
		conteoPorMesCalendario[numMes]++
	}

	suma := 0.0
	for _, t := range totales {
		suma += t
	}
	analisis.PromedioMensual = suma / float64(len(totales))

	for numMes, total := range sumaPorMesCalendario {
		analisis.PromedioPorMes[numMes] = total / float64(conteoPorMesCalendario[numMes])
	}

	// Temporadas: >120% del promedio es alta, <80% es baja
	if analisis.PromedioMensual > 0 {
		meses := make([]int, 0, len(analisis.PromedioPorMes))
		for numMes := range analisis.PromedioPorMes {
			meses = append(meses, numMes)
		}
		sort.Ints(meses)
		for _, numMes := range meses {
			ratio := analisis.PromedioPorMes[numMes] / analisis.PromedioMensual
			if ratio > 1.2 {
				analisis.MesesTemporadaAlta = append(analisis.MesesTemporadaAlta, numMes)
			} else if ratio < 0.8 {
				analisis.MesesTemporadaBaja = append(analisis.MesesTemporadaBaja, numMes)
			}
		}
	}

	analisis.PendienteMensual = pendienteMinimosCuadrados(totales)
	analisis.Tendencia = clasificarTendencia(analisis.PendienteMensual, analisis.PromedioMensual)
	analisis.CoefVariacion = coeficienteVariacion(totales)
	analisis.Estable = analisis.CoefVariacion < 0.30

	analisis.RotacionDiaria = rotacionReciente(db, productID, ahora)
	analisis.Velocidad = clasificarVelocidad(analisis.RotacionDiaria)

	analisis.EventosProximos = EventosProximos(ahora)
	return &analisis, nil
}

// pendienteMinimosCuadrados ajusta una recta sobre la serie mensual y
// devuelve su pendiente en unidades por mes.
func pendienteMinimosCuadrados(serie []float64) float64 {
	n := float64(len(serie))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range serie {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denominador := n*sumXX - sumX*sumX
	if denominador == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denominador
}

// clasificarTendencia compara la pendiente con el promedio: más de un 5%
// mensual en cualquier dirección deja de ser estable.
func clasificarTendencia(pendiente, promedio float64) string {
	if promedio == 0 {
		return "estable"
	}
	relativa := pendiente / promedio
	switch {
	case relativa > 0.05:
		return "creciente"
	case relativa < -0.05:
		return "decreciente"
	default:
		return "estable"
	}
}

func coeficienteVariacion(serie []float64) float64 {
	if len(serie) == 0 {
		return 0
	}
	var suma float64
	for _, v := range serie {
		suma += v
	}
	media := suma / float64(len(serie))
	if media == 0 {
		return 0
	}
	var varianza float64
	for _, v := range serie {
		varianza += (v - media) * (v - media)
	}
	varianza /= float64(len(serie))
	return math.Sqrt(varianza) / media
}

// rotacionReciente mide unidades por día en los últimos 90 días.
func rotacionReciente(db *gorm.DB, productID uint, ahora time.Time) float64 {
	desde := ahora.AddDate(0, 0, -90)
	var vendidos struct{ Total int64 }
	err := db.Table("detail_notes").
		Select("COALESCE(SUM(detail_notes.cantidad), 0) AS total").
		Joins("JOIN sales_notes ON sales_notes.id = detail_notes.sales_note_id").
		Where("detail_notes.product_id = ? AND sales_notes.fecha >= ? AND sales_notes.estado <> ?",
			productID, desde, "anulada").
		Where("detail_notes.deleted_at IS NULL").
		Scan(&vendidos).Error
	if err != nil {
		return 0
	}
	return float64(vendidos.Total) / 90
}

func clasificarVelocidad(rotacionDiaria float64) string {
	switch {
	case rotacionDiaria >= 5:
		return "muy_rapida"
	case rotacionDiaria >= 2:
		return "rapida"
	case rotacionDiaria >= 0.5:
		return "normal"
	case rotacionDiaria > 0:
		return "lenta"
	default:
		return "sin_movimiento"
	}
}

// EstacionDe devuelve la estación del mes dado (hemisferio sur).
func EstacionDe(mes int) string {
	for estacion, meses := range mesesPorEstacion {
		for _, m := range meses {
			if m == mes {
				return estacion
			}
		}
	}
	return ""
}

// EventosProximos lista las fechas comerciales cuya ventana de
// anticipación incluye la fecha dada.
func EventosProximos(fecha time.Time) []EventoProximo {
	eventos := []EventoProximo{}
	for _, fe := range fechasEspeciales {
		objetivo := time.Date(fecha.Year(), time.Month(fe.Mes), fe.Dia, 0, 0, 0, 0, fecha.Location())
		if objetivo.Before(fecha) {
			objetivo = objetivo.AddDate(1, 0, 0)
		}
		dias := int(objetivo.Sub(fecha).Hours() / 24)
		if dias <= fe.Anticipacion {
			eventos = append(eventos, EventoProximo{Nombre: fe.Nombre, DiasRestantes: dias})
		}
	}
	sort.Slice(eventos, func(i, j int) bool {
		return eventos[i].DiasRestantes < eventos[j].DiasRestantes
	})
	return eventos
}

// FactorTemporal combina temporada y eventos próximos en un multiplicador
// de demanda acotado a [0.5, 2.0].
func FactorTemporal(analisis *AnalisisProducto, fecha time.Time) float64 {
	factor := 1.0
	mes := int(fecha.Month())

	for _, alto := range analisis.MesesTemporadaAlta {
		if alto == mes {
			factor *= 1.3
		}
	}
	for _, bajo := range analisis.MesesTemporadaBaja {
		if bajo == mes {
			factor *= 0.7
		}
	}

	for _, evento := range EventosProximos(fecha) {
		switch evento.Nombre {
		case "navidad":
			factor *= 1.4
		case "dia_madre", "dia_padre", "san_valentin":
			factor *= 1.2
		default:
			factor *= 1.1
		}
	}

	return math.Min(2.0, math.Max(0.5, factor))
}
