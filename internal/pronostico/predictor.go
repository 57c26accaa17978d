package pronostico

import (
	"log/slog"
	"math"
	"time"

	"gorm.io/gorm"
)

// Prediccion es la demanda estimada de un producto para un horizonte dado.
type Prediccion struct {
	ProductID      uint    `json:"product_id"`
	Dias           int     `json:"dias"`
	DemandaEstimada float64 `json:"demanda_estimada"`
	IntervaloMin   float64 `json:"intervalo_min"`
	IntervaloMax   float64 `json:"intervalo_max"`
	Confianza      float64 `json:"confianza"`
	Metodo         string  `json:"metodo"`
	FactorTemporal float64 `json:"factor_temporal"`
}

// Predecir estima la demanda de un producto para los próximos dias días.
// El método se elige según el volumen de historial disponible; si hay un
// modelo entrenado vigente tiene prioridad, con caída a la heurística ante
// cualquier falla.
func Predecir(db *gorm.DB, productID uint, dias int) (*Prediccion, error) {
	if dias <= 0 {
		dias = 30
	}
	analisis, err := AnalizarProducto(db, productID, 24)
	if err != nil {
		return nil, err
	}

	fechaObjetivo := time.Now().AddDate(0, 0, dias)
	factor := FactorTemporal(analisis, fechaObjetivo)

	if pred, ok := predecirConModelo(analisis, dias, factor); ok {
		return pred, nil
	}

	pred := predecirHeuristico(analisis, dias, factor)
	return pred, nil
}

// predecirConModelo intenta la ruta del modelo entrenado. Cualquier error
// (sin artefacto, esquema viejo, archivo corrupto) devuelve ok=false y la
// heurística toma el control; nunca es fatal.
func predecirConModelo(analisis *AnalisisProducto, dias int, factor float64) (*Prediccion, bool) {
	modelo, err := Cargar(RutaModelo())
	if err != nil {
		if err != ErrModeloNoEntrenado {
			slog.Warn("Modelo entrenado no utilizable, se usa la heurística", "error", err)
		}
		return nil, false
	}

	n := len(analisis.Historial)
	ultimoMes := float64(analisis.Historial[n-1].Unidades)
	promedio3 := ultimoMes
	if n >= 3 {
		promedio3 = (float64(analisis.Historial[n-1].Unidades) +
			float64(analisis.Historial[n-2].Unidades) +
			float64(analisis.Historial[n-3].Unidades)) / 3
	}
	mesObjetivo := float64(time.Now().AddDate(0, 0, dias).Month())

	mensual, err := modelo.Predecir([]float64{mesObjetivo, ultimoMes, promedio3})
	if err != nil {
		slog.Warn("Predicción del modelo falló, se usa la heurística", "error", err)
		return nil, false
	}

	demanda := mensual / 30 * float64(dias) * factor
	return &Prediccion{
		ProductID:       analisis.ProductID,
		Dias:            dias,
		DemandaEstimada: redondear(demanda),
		IntervaloMin:    redondear(demanda * 0.9),
		IntervaloMax:    redondear(demanda * 1.1),
		Confianza:       0.90,
		Metodo:          "regresion_entrenada",
		FactorTemporal:  factor,
	}, true
}

// predecirHeuristico elige el nivel según los meses con datos:
// <3 extrapolación simple, <6 promedio móvil con tendencia, <12 tendencia
// compuesta, y con un año o más mezcla estacional del mes objetivo.
func predecirHeuristico(analisis *AnalisisProducto, dias int, factor float64) *Prediccion {
	meses := analisis.MesesConDatos
	tendenciaRelativa := 0.0
	if analisis.PromedioMensual > 0 {
		tendenciaRelativa = analisis.PendienteMensual / analisis.PromedioMensual
	}

	var base, confianza, margen float64
	var metodo string

	switch {
	case meses < 3:
		base = analisis.PromedioMensual / 30 * float64(dias)
		confianza, margen = 0.60, 0.30
		metodo = "extrapolacion_simple"

	case meses < 6:
		base = promedioUltimos(analisis, 3) / 30 * float64(dias) * (1 + tendenciaRelativa)
		confianza, margen = 0.75, 0.20
		metodo = "promedio_movil_tendencia"

	case meses < 12:
		crecimiento := math.Pow(1+tendenciaRelativa, float64(dias)/30)
		base = promedioUltimos(analisis, 3) / 30 * float64(dias) * crecimiento
		confianza, margen = 0.82, 0.15
		metodo = "tendencia_compuesta"

	default:
		mesObjetivo := int(time.Now().AddDate(0, 0, dias).Month())
		referencia := analisis.PromedioPorMes[mesObjetivo]
		if referencia == 0 {
			referencia = analisis.PromedioMensual
		}
		base = referencia / 30 * float64(dias) * (1 + tendenciaRelativa)
		confianza, margen = 0.88, 0.10
		metodo = "estacional_completo"
	}

	demanda := base * factor
	if demanda < 0 {
		demanda = 0
	}
	return &Prediccion{
		ProductID:       analisis.ProductID,
		Dias:            dias,
		DemandaEstimada: redondear(demanda),
		IntervaloMin:    redondear(demanda * (1 - margen)),
		IntervaloMax:    redondear(demanda * (1 + margen)),
		Confianza:       confianza,
		Metodo:          metodo,
		FactorTemporal:  factor,
	}
}

func promedioUltimos(analisis *AnalisisProducto, n int) float64 {
	historial := analisis.Historial
	if len(historial) < n {
		n = len(historial)
	}
	suma := 0.0
	for _, mes := range historial[len(historial)-n:] {
		suma += float64(mes.Unidades)
	}
	return suma / float64(n)
}

func redondear(v float64) float64 {
	return math.Round(v*100) / 100
}
