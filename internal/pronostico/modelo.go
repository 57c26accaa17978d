package pronostico

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gorm.io/gorm"
)

var (
	ErrModeloNoEntrenado    = errors.New("no hay un modelo entrenado disponible")
	ErrCaracteristicasModelo = errors.New("las características del modelo no coinciden")
	ErrDatosInsuficientes   = errors.New("no hay suficientes datos para entrenar el modelo")
)

// caracteristicasActuales define el esquema de entrada del modelo. Un
// artefacto guardado con otro esquema se descarta y se usa la heurística.
var caracteristicasActuales = []string{"mes_del_ano", "unidades_mes_anterior", "promedio_3_meses"}

// ModeloRegresion es una regresión lineal serializada como JSON en disco.
// Predice las unidades del mes siguiente de un producto.
type ModeloRegresion struct {
	Coeficientes    []float64 `json:"coeficientes"`
	Intercepto      float64   `json:"intercepto"`
	Caracteristicas []string  `json:"caracteristicas"`
	Muestras        int       `json:"muestras"`
	EntrenadoEn     time.Time `json:"entrenado_en"`
}

// RutaModelo devuelve la ruta del artefacto, configurable por entorno.
func RutaModelo() string {
	if ruta := os.Getenv("MODELO_DEMANDA_PATH"); ruta != "" {
		return ruta
	}
	return "modelo_demanda.json"
}

// Cargar lee el modelo desde disco. La ausencia del archivo es una
// condición normal, no un error fatal.
func Cargar(ruta string) (*ModeloRegresion, error) {
	crudo, err := os.ReadFile(ruta)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrModeloNoEntrenado
		}
		return nil, err
	}
	var modelo ModeloRegresion
	if err := json.Unmarshal(crudo, &modelo); err != nil {
		return nil, fmt.Errorf("artefacto de modelo corrupto: %w", err)
	}
	if len(modelo.Caracteristicas) != len(caracteristicasActuales) {
		return nil, ErrCaracteristicasModelo
	}
	for i, c := range modelo.Caracteristicas {
		if c != caracteristicasActuales[i] {
			return nil, ErrCaracteristicasModelo
		}
	}
	return &modelo, nil
}

// Predecir evalúa la regresión sobre un vector de características.
func (m *ModeloRegresion) Predecir(caracteristicas []float64) (float64, error) {
	if len(caracteristicas) != len(m.Coeficientes) {
		return 0, ErrCaracteristicasModelo
	}
	prediccion := m.Intercepto
	for i, x := range caracteristicas {
		prediccion += m.Coeficientes[i] * x
	}
	if prediccion < 0 {
		prediccion = 0
	}
	return prediccion, nil
}

// Entrenar arma el dataset mensual de todos los productos y ajusta la
// regresión por mínimos cuadrados. Guarda el artefacto en ruta.
func Entrenar(db *gorm.DB, ruta string) (*ModeloRegresion, error) {
	type linea struct {
		ProductID uint
		Fecha     time.Time
		Cantidad  int
	}
	var lineas []linea
	err := db.Table("detail_notes").
		Select("detail_notes.product_id, sales_notes.fecha, detail_notes.cantidad").
		Joins("JOIN sales_notes ON sales_notes.id = detail_notes.sales_note_id").
		Where("sales_notes.estado <> ? AND detail_notes.deleted_at IS NULL", "anulada").
		Scan(&lineas).Error
	if err != nil {
		return nil, err
	}

	// Serie mensual por producto
	porProducto := make(map[uint]map[string]float64)
	for _, l := range lineas {
		if porProducto[l.ProductID] == nil {
			porProducto[l.ProductID] = make(map[string]float64)
		}
		porProducto[l.ProductID][l.Fecha.Format("2006-01")] += float64(l.Cantidad)
	}

	var X [][]float64
	var y []float64
	for _, serie := range porProducto {
		claves := make([]string, 0, len(serie))
		for mes := range serie {
			claves = append(claves, mes)
		}
		sort.Strings(claves)
		for i := 3; i < len(claves); i++ {
			t, _ := time.Parse("2006-01", claves[i])
			promedio3 := (serie[claves[i-1]] + serie[claves[i-2]] + serie[claves[i-3]]) / 3
			X = append(X, []float64{
				float64(t.Month()),
				serie[claves[i-1]],
				promedio3,
			})
			y = append(y, serie[claves[i]])
		}
	}
	if len(y) < len(caracteristicasActuales)+1 {
		return nil, ErrDatosInsuficientes
	}

	coeficientes, intercepto, err := minimosCuadrados(X, y)
	if err != nil {
		return nil, err
	}

	modelo := ModeloRegresion{
		Coeficientes:    coeficientes,
		Intercepto:      intercepto,
		Caracteristicas: caracteristicasActuales,
		Muestras:        len(y),
		EntrenadoEn:     time.Now(),
	}
	crudo, err := json.MarshalIndent(modelo, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(ruta, crudo, 0644); err != nil {
		return nil, err
	}
	return &modelo, nil
}

// minimosCuadrados resuelve las ecuaciones normales (XᵀX)β = Xᵀy por
// eliminación gaussiana. La primera componente de β es el intercepto.
func minimosCuadrados(X [][]float64, y []float64) ([]float64, float64, error) {
	n := len(X)
	p := len(X[0]) + 1 // columna de unos para el intercepto

	A := make([][]float64, p)
	b := make([]float64, p)
	for i := range A {
		A[i] = make([]float64, p)
	}
	for k := 0; k < n; k++ {
		fila := append([]float64{1}, X[k]...)
		for i := 0; i < p; i++ {
			for j := 0; j < p; j++ {
				A[i][j] += fila[i] * fila[j]
			}
			b[i] += fila[i] * y[k]
		}
	}

	for col := 0; col < p; col++ {
		pivote := col
		for fila := col + 1; fila < p; fila++ {
			if abs(A[fila][col]) > abs(A[pivote][col]) {
				pivote = fila
			}
		}
		if abs(A[pivote][col]) < 1e-12 {
			return nil, 0, ErrDatosInsuficientes
		}
		A[col], A[pivote] = A[pivote], A[col]
		b[col], b[pivote] = b[pivote], b[col]

		for fila := col + 1; fila < p; fila++ {
			factor := A[fila][col] / A[col][col]
			for j := col; j < p; j++ {
				A[fila][j] -= factor * A[col][j]
			}
			b[fila] -= factor * b[col]
		}
	}

	beta := make([]float64, p)
	for i := p - 1; i >= 0; i-- {
		suma := b[i]
		for j := i + 1; j < p; j++ {
			suma -= A[i][j] * beta[j]
		}
		beta[i] = suma / A[i][i]
	}
	return beta[1:], beta[0], nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
