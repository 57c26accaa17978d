package pronostico

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/TaddyRiv/tiendaback/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Usuario{},
		&models.Category{},
		&models.Product{},
		&models.Provider{},
		&models.ProviderProduct{},
		&models.SalesNote{},
		&models.DetailNote{},
	))
	return db
}

// sinModeloEntrenado apunta la ruta del artefacto a un archivo inexistente
// para que las predicciones usen solo la heurística.
func sinModeloEntrenado(t *testing.T) {
	t.Helper()
	t.Setenv("MODELO_DEMANDA_PATH", filepath.Join(t.TempDir(), "no_existe.json"))
}

// sembrarMeses crea un producto con ventas de `unidades[i]` unidades en cada
// uno de los últimos len(unidades) meses, del más viejo al más reciente.
func sembrarMeses(t *testing.T, db *gorm.DB, unidades []int) *models.Product {
	t.Helper()
	producto := models.Product{Nombre: "Refresco", Precio: decimal.RequireFromString("10.00"), Stock: 0}
	require.NoError(t, db.Create(&producto).Error)

	cliente := models.Usuario{Email: "cliente@test.com", Password: "x", Nombre: "Ana", Rol: "cliente", Activo: true}
	require.NoError(t, db.Create(&cliente).Error)

	ahora := time.Now()
	// Día 15 para que restar meses no cruce de mes
	base := time.Date(ahora.Year(), ahora.Month(), 15, 12, 0, 0, 0, time.UTC)
	n := len(unidades)
	for i, cantidad := range unidades {
		fecha := base.AddDate(0, -(n - i), 0)
		nota := models.SalesNote{
			Fecha:      fecha,
			Total:      decimal.NewFromInt(int64(cantidad) * 10),
			Estado:     "completada",
			MetodoPago: "efectivo",
			ClienteID:  cliente.ID,
		}
		require.NoError(t, db.Create(&nota).Error)
		detalle := models.DetailNote{
			SalesNoteID:    nota.ID,
			ProductID:      producto.ID,
			Cantidad:       cantidad,
			PrecioUnitario: decimal.RequireFromString("10.00"),
			Subtotal:       decimal.NewFromInt(int64(cantidad) * 10),
		}
		require.NoError(t, db.Create(&detalle).Error)
	}
	return &producto
}

func TestAnalizarProductoSinHistorial(t *testing.T) {
	db := testDB(t)
	producto := models.Product{Nombre: "Nuevo", Precio: decimal.RequireFromString("5.00"), Stock: 10}
	require.NoError(t, db.Create(&producto).Error)

	_, err := AnalizarProducto(db, producto.ID, 24)
	assert.ErrorIs(t, err, ErrSinHistorial)
}

func TestAnalizarProductoPromedioYTendencia(t *testing.T) {
	db := testDB(t)
	producto := sembrarMeses(t, db, []int{10, 20, 30, 40, 50, 60})

	analisis, err := AnalizarProducto(db, producto.ID, 24)
	require.NoError(t, err)

	assert.Equal(t, 6, analisis.MesesConDatos)
	assert.InDelta(t, 35.0, analisis.PromedioMensual, 0.001)
	assert.Equal(t, "creciente", analisis.Tendencia)
	assert.InDelta(t, 10.0, analisis.PendienteMensual, 0.001)
}

func TestPredecirEligeMetodoPorHistorial(t *testing.T) {
	casos := []struct {
		meses     int
		metodo    string
		confianza float64
	}{
		{2, "extrapolacion_simple", 0.60},
		{4, "promedio_movil_tendencia", 0.75},
		{8, "tendencia_compuesta", 0.82},
		{13, "estacional_completo", 0.88},
	}
	for _, caso := range casos {
		t.Run(caso.metodo, func(t *testing.T) {
			sinModeloEntrenado(t)
			db := testDB(t)
			unidades := make([]int, caso.meses)
			for i := range unidades {
				unidades[i] = 30
			}
			producto := sembrarMeses(t, db, unidades)

			pred, err := Predecir(db, producto.ID, 30)
			require.NoError(t, err)
			assert.Equal(t, caso.metodo, pred.Metodo)
			assert.Equal(t, caso.confianza, pred.Confianza)
			assert.GreaterOrEqual(t, pred.DemandaEstimada, 0.0)
			assert.LessOrEqual(t, pred.IntervaloMin, pred.DemandaEstimada)
			assert.GreaterOrEqual(t, pred.IntervaloMax, pred.DemandaEstimada)
		})
	}
}

func TestPredecirConModeloEntrenadoTienePrioridad(t *testing.T) {
	db := testDB(t)
	producto := sembrarMeses(t, db, []int{30, 30, 30, 30})

	ruta := filepath.Join(t.TempDir(), "modelo.json")
	t.Setenv("MODELO_DEMANDA_PATH", ruta)
	artefacto := ModeloRegresion{
		Coeficientes:    []float64{0, 1, 0},
		Intercepto:      0,
		Caracteristicas: []string{"mes_del_ano", "unidades_mes_anterior", "promedio_3_meses"},
		Muestras:        50,
		EntrenadoEn:     time.Now(),
	}
	crudo, err := json.Marshal(artefacto)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(ruta, crudo, 0644))

	pred, err := Predecir(db, producto.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, "regresion_entrenada", pred.Metodo)
	assert.Equal(t, 0.90, pred.Confianza)
}

func TestFactorTemporal(t *testing.T) {
	analisis := &AnalisisProducto{
		MesesTemporadaAlta: []int{12},
		MesesTemporadaBaja: []int{6},
	}

	// Junio sin eventos cercanos: solo el factor de temporada baja
	junio := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, 0.7, FactorTemporal(analisis, junio), 0.001)

	// 20 de diciembre: temporada alta, navidad y año nuevo en ventana;
	// el producto excede 2.0 y se recorta al tope
	diciembre := time.Date(2026, 12, 20, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 2.0, FactorTemporal(analisis, diciembre))

	// Mes neutro sin eventos queda en 1.0
	abril := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, 1.0, FactorTemporal(&AnalisisProducto{}, abril), 0.001)
}

func TestEstacionDe(t *testing.T) {
	assert.Equal(t, "verano", EstacionDe(1))
	assert.Equal(t, "otono", EstacionDe(4))
	assert.Equal(t, "invierno", EstacionDe(7))
	assert.Equal(t, "primavera", EstacionDe(10))
}

func TestEventosProximos(t *testing.T) {
	// 5 de diciembre: navidad a 20 días y año nuevo a 27
	fecha := time.Date(2026, 12, 5, 0, 0, 0, 0, time.UTC)
	eventos := EventosProximos(fecha)
	require.Len(t, eventos, 2)
	assert.Equal(t, "navidad", eventos[0].Nombre)
	assert.Equal(t, 20, eventos[0].DiasRestantes)
	assert.Equal(t, "ano_nuevo", eventos[1].Nombre)
	assert.Equal(t, 27, eventos[1].DiasRestantes)

	// Mediados de agosto: ninguna ventana abierta
	agosto := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, EventosProximos(agosto))
}

func TestRedondearLote(t *testing.T) {
	casos := []struct {
		cantidad float64
		esperado int
	}{
		{3, 5},
		{7, 7},
		{9.6, 10},
		{12, 15},
		{47, 50},
		{55, 60},
		{199, 200},
		{230, 250},
	}
	for _, caso := range casos {
		assert.Equal(t, caso.esperado, redondearLote(caso.cantidad),
			"cantidad %.1f", caso.cantidad)
	}
}

func TestClasificarUrgencia(t *testing.T) {
	urgencia, _ := clasificarUrgencia(3, 10, 100)
	assert.Equal(t, "critico", urgencia)

	urgencia, _ = clasificarUrgencia(10, 60, 100)
	assert.Equal(t, "alto", urgencia)

	urgencia, _ = clasificarUrgencia(20, 75, 100)
	assert.Equal(t, "medio", urgencia)

	urgencia, _ = clasificarUrgencia(120, 95, 100)
	assert.Equal(t, "bajo", urgencia)
}

func TestRecomendarProductoSinStock(t *testing.T) {
	sinModeloEntrenado(t)
	db := testDB(t)
	producto := sembrarMeses(t, db, []int{30, 30, 30, 30, 30, 30})

	rec, err := RecomendarProducto(db, producto.ID, 30)
	require.NoError(t, err)

	assert.True(t, rec.RequiereCompra)
	assert.Equal(t, "critico", rec.Urgencia)
	assert.GreaterOrEqual(t, rec.CantidadSugerida, 5)

	// Sin proveedor, el costo se estima al 60% del precio de venta
	assert.True(t, rec.CostoUnitario.Equal(decimal.RequireFromString("6.00")),
		"costo unitario: %s", rec.CostoUnitario)
	assert.True(t, rec.InversionEstimada.IsPositive())
	assert.InDelta(t, 0.6667, rec.ROIEstimado, 0.001)
}

func TestRecomendarProductoConStockSuficiente(t *testing.T) {
	sinModeloEntrenado(t)
	db := testDB(t)
	producto := sembrarMeses(t, db, []int{30, 30, 30, 30, 30, 30})
	require.NoError(t, db.Model(producto).Update("stock", 10000).Error)

	rec, err := RecomendarProducto(db, producto.ID, 30)
	require.NoError(t, err)
	assert.False(t, rec.RequiereCompra)
	assert.Equal(t, 0, rec.CantidadSugerida)
}

func TestRecomendarProductoUsaPrecioDeProveedor(t *testing.T) {
	sinModeloEntrenado(t)
	db := testDB(t)
	producto := sembrarMeses(t, db, []int{30, 30, 30, 30, 30, 30})

	proveedor := models.Provider{Nombre: "Distribuidora Sur"}
	require.NoError(t, db.Create(&proveedor).Error)
	require.NoError(t, db.Create(&models.ProviderProduct{
		ProviderID:   proveedor.ID,
		ProductID:    producto.ID,
		PrecioCompra: decimal.RequireFromString("7.50"),
	}).Error)

	rec, err := RecomendarProducto(db, producto.ID, 30)
	require.NoError(t, err)
	assert.True(t, rec.CostoUnitario.Equal(decimal.RequireFromString("7.50")))
}

func TestRecomendarProductoInexistente(t *testing.T) {
	db := testDB(t)
	_, err := RecomendarProducto(db, 999, 30)
	assert.ErrorIs(t, err, ErrProductoNoEncontrado)
}

func TestCargarModeloInexistente(t *testing.T) {
	_, err := Cargar(filepath.Join(t.TempDir(), "no_existe.json"))
	assert.ErrorIs(t, err, ErrModeloNoEntrenado)
}

func TestCargarModeloCorrupto(t *testing.T) {
	ruta := filepath.Join(t.TempDir(), "modelo.json")
	require.NoError(t, os.WriteFile(ruta, []byte("{no es json"), 0644))

	_, err := Cargar(ruta)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrModeloNoEntrenado)
}

func TestCargarModeloConEsquemaViejo(t *testing.T) {
	ruta := filepath.Join(t.TempDir(), "modelo.json")
	viejo := ModeloRegresion{
		Coeficientes:    []float64{1, 2},
		Caracteristicas: []string{"mes_del_ano", "unidades_mes_anterior"},
	}
	crudo, err := json.Marshal(viejo)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(ruta, crudo, 0644))

	_, err = Cargar(ruta)
	assert.ErrorIs(t, err, ErrCaracteristicasModelo)
}

func TestModeloPredecir(t *testing.T) {
	modelo := ModeloRegresion{
		Coeficientes: []float64{2, 0.5, 1},
		Intercepto:   10,
	}

	pred, err := modelo.Predecir([]float64{3, 4, 5})
	require.NoError(t, err)
	assert.InDelta(t, 23.0, pred, 0.001) // 10 + 2·3 + 0.5·4 + 1·5

	// Las predicciones negativas se recortan a cero
	negativo := ModeloRegresion{Coeficientes: []float64{-10}, Intercepto: 0}
	pred, err = negativo.Predecir([]float64{5})
	require.NoError(t, err)
	assert.Equal(t, 0.0, pred)

	_, err = modelo.Predecir([]float64{1})
	assert.ErrorIs(t, err, ErrCaracteristicasModelo)
}

func TestMinimosCuadradosRecuperaCoeficientes(t *testing.T) {
	// y = 2 + 3a - b, datos exactos
	X := [][]float64{
		{1, 1}, {2, 1}, {3, 2}, {4, 3}, {5, 5}, {6, 8},
	}
	y := make([]float64, len(X))
	for i, fila := range X {
		y[i] = 2 + 3*fila[0] - fila[1]
	}

	coeficientes, intercepto, err := minimosCuadrados(X, y)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, intercepto, 1e-6)
	assert.InDelta(t, 3.0, coeficientes[0], 1e-6)
	assert.InDelta(t, -1.0, coeficientes[1], 1e-6)
}

func TestEntrenarYUsarModelo(t *testing.T) {
	db := testDB(t)
	sembrarMeses(t, db, []int{10, 22, 15, 31, 24, 40, 33, 52, 45, 61, 58, 70})

	ruta := filepath.Join(t.TempDir(), "modelo.json")
	modelo, err := Entrenar(db, ruta)
	require.NoError(t, err)
	assert.Equal(t, 9, modelo.Muestras)
	assert.Len(t, modelo.Coeficientes, 3)

	cargado, err := Cargar(ruta)
	require.NoError(t, err)
	assert.Equal(t, modelo.Muestras, cargado.Muestras)

	pred, err := cargado.Predecir([]float64{6, 70, 63})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pred, 0.0)
}

func TestEntrenarSinDatosSuficientes(t *testing.T) {
	db := testDB(t)
	sembrarMeses(t, db, []int{10, 20, 30})

	_, err := Entrenar(db, filepath.Join(t.TempDir(), "modelo.json"))
	assert.ErrorIs(t, err, ErrDatosInsuficientes)
}
