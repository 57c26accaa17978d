package reportes

import (
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
		&models.SalesNote{},
		&models.DetailNote{},
		&models.CashPayment{},
		&models.CreditSale{},
		&models.CreditInstallment{},
		&models.CreditPayment{},
	))
	return db
}

func crearCliente(t *testing.T, db *gorm.DB, email string) *models.Usuario {
	t.Helper()
	u := models.Usuario{Email: email, Password: "x", Nombre: "Cliente", Apellido: email, Rol: "cliente", Activo: true}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func crearVenta(t *testing.T, db *gorm.DB, clienteID uint, fecha time.Time, total, metodo string) *models.SalesNote {
	t.Helper()
	nota := models.SalesNote{
		Fecha:      fecha,
		Total:      decimal.RequireFromString(total),
		Estado:     "completada",
		MetodoPago: metodo,
		ClienteID:  clienteID,
	}
	require.NoError(t, db.Create(&nota).Error)
	return &nota
}

func crearProducto(t *testing.T, db *gorm.DB, nombre string, precio string, stock int) *models.Product {
	t.Helper()
	p := models.Product{Nombre: nombre, Precio: decimal.RequireFromString(precio), Stock: stock}
	require.NoError(t, db.Create(&p).Error)
	return &p
}

func agregarDetalle(t *testing.T, db *gorm.DB, notaID, productID uint, cantidad int, precio string) {
	t.Helper()
	unitario := decimal.RequireFromString(precio)
	detalle := models.DetailNote{
		SalesNoteID:    notaID,
		ProductID:      productID,
		Cantidad:       cantidad,
		PrecioUnitario: unitario,
		Subtotal:       unitario.Mul(decimal.NewFromInt(int64(cantidad))),
	}
	require.NoError(t, db.Create(&detalle).Error)
}

func TestVentasPorPeriodo(t *testing.T) {
	db := testDB(t)
	cliente := crearCliente(t, db, "a@test.com")
	dia := time.Date(2026, 5, 10, 10, 0, 0, 0, time.UTC)

	crearVenta(t, db, cliente.ID, dia, "100.00", "efectivo")
	crearVenta(t, db, cliente.ID, dia.AddDate(0, 0, 1), "50.00", "tarjeta")
	anulada := crearVenta(t, db, cliente.ID, dia, "999.00", "efectivo")
	require.NoError(t, db.Model(anulada).Update("estado", "anulada").Error)

	inicio := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	fin := time.Date(2026, 5, 31, 23, 59, 59, 0, time.UTC)
	resumen, err := VentasPorPeriodo(db, inicio, fin)
	require.NoError(t, err)

	assert.Equal(t, int64(2), resumen.TotalVentas)
	assert.True(t, resumen.MontoTotal.Equal(decimal.RequireFromString("150.00")),
		"monto total: %s", resumen.MontoTotal)
	assert.True(t, resumen.Promedio.Equal(decimal.RequireFromString("75.00")))
	assert.True(t, resumen.VentaMaxima.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, resumen.VentaMinima.Equal(decimal.RequireFromString("50.00")))
	assert.Len(t, resumen.PorMetodo, 2)
}

func TestVentasPorPeriodoSinVentas(t *testing.T) {
	db := testDB(t)

	inicio := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fin := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	resumen, err := VentasPorPeriodo(db, inicio, fin)
	require.NoError(t, err)

	assert.Equal(t, int64(0), resumen.TotalVentas)
	assert.True(t, resumen.MontoTotal.IsZero())
	assert.True(t, resumen.Promedio.IsZero())
	assert.Empty(t, resumen.PorMetodo)
}

func TestVentasPorDiaRellenaDiasSinVentas(t *testing.T) {
	db := testDB(t)
	cliente := crearCliente(t, db, "a@test.com")

	inicio := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	crearVenta(t, db, cliente.ID, inicio.AddDate(0, 0, 1).Add(9*time.Hour), "40.00", "efectivo")

	serie, err := VentasPorDia(db, inicio, inicio.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, serie, 3)

	assert.Equal(t, "2026-05-01", serie[0].Fecha)
	assert.Equal(t, int64(0), serie[0].Cantidad)
	assert.Equal(t, int64(1), serie[1].Cantidad)
	assert.True(t, serie[1].Monto.Equal(decimal.RequireFromString("40.00")))
	assert.Equal(t, int64(0), serie[2].Cantidad)
}

func TestTopProductos(t *testing.T) {
	db := testDB(t)
	cliente := crearCliente(t, db, "a@test.com")
	arroz := crearProducto(t, db, "Arroz", "6.00", 100)
	azucar := crearProducto(t, db, "Azúcar", "5.00", 100)

	dia := time.Date(2026, 5, 10, 10, 0, 0, 0, time.UTC)
	nota := crearVenta(t, db, cliente.ID, dia, "60.00", "efectivo")
	agregarDetalle(t, db, nota.ID, arroz.ID, 5, "6.00")
	agregarDetalle(t, db, nota.ID, azucar.ID, 2, "5.00")

	top, err := TopProductos(db, dia.AddDate(0, 0, -1), dia.AddDate(0, 0, 1), 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Arroz", top[0].Nombre)
	assert.Equal(t, int64(5), top[0].UnidadesVendidas)
	assert.True(t, top[0].Ingresos.Equal(decimal.RequireFromString("30.00")))
}

func TestRotacionInventario(t *testing.T) {
	db := testDB(t)
	cliente := crearCliente(t, db, "a@test.com")
	harina := crearProducto(t, db, "Harina", "8.00", 30)
	sal := crearProducto(t, db, "Sal", "2.00", 50)

	inicio := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	fin := inicio.AddDate(0, 0, 30)
	nota := crearVenta(t, db, cliente.ID, inicio.AddDate(0, 0, 5), "720.00", "efectivo")
	agregarDetalle(t, db, nota.ID, harina.ID, 90, "8.00")

	rotacion, err := RotacionInventario(db, inicio, fin)
	require.NoError(t, err)
	require.Len(t, rotacion, 2)

	porNombre := map[string]RotacionProducto{}
	for _, r := range rotacion {
		porNombre[r.Nombre] = r
	}

	// 90 unidades en 30 días: 3 por día, 10 días de inventario para stock 30
	assert.InDelta(t, 3.0, porNombre["Harina"].RotacionDiaria, 0.001)
	assert.InDelta(t, 10.0, porNombre["Harina"].DiasInventario, 0.001)

	// Sin ventas, los días de inventario quedan en el tope
	assert.Equal(t, sal.ID, porNombre["Sal"].ProductID)
	assert.Equal(t, 999.0, porNombre["Sal"].DiasInventario)
}

func TestRotacionIgnoraVentasAnuladas(t *testing.T) {
	db := testDB(t)
	cliente := crearCliente(t, db, "a@test.com")
	harina := crearProducto(t, db, "Harina", "8.00", 30)

	inicio := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	fin := inicio.AddDate(0, 0, 30)
	nota := crearVenta(t, db, cliente.ID, inicio.AddDate(0, 0, 5), "720.00", "efectivo")
	agregarDetalle(t, db, nota.ID, harina.ID, 90, "8.00")
	// Anular la venta devuelve el stock: esas unidades no rotaron
	require.NoError(t, db.Model(nota).Update("estado", "anulada").Error)

	rotacion, err := RotacionInventario(db, inicio, fin)
	require.NoError(t, err)
	require.Len(t, rotacion, 1)
	assert.Equal(t, int64(0), rotacion[0].UnidadesVendidas)
	assert.Equal(t, 999.0, rotacion[0].DiasInventario)
}

func TestBajoStockIgnoraVentasAnuladas(t *testing.T) {
	db := testDB(t)
	cliente := crearCliente(t, db, "a@test.com")
	sal := crearProducto(t, db, "Sal", "2.00", 3)

	nota := crearVenta(t, db, cliente.ID, time.Now().AddDate(0, 0, -5), "6.00", "efectivo")
	agregarDetalle(t, db, nota.ID, sal.ID, 3, "2.00")
	require.NoError(t, db.Model(nota).Update("estado", "anulada").Error)

	bajos, err := ProductosBajoStock(db, 10)
	require.NoError(t, err)
	require.Len(t, bajos, 1)
	assert.Equal(t, sal.ID, bajos[0].ProductID)
	assert.Equal(t, int64(0), bajos[0].Vendidos30Dias)
}

func TestClientesFrecuentes(t *testing.T) {
	db := testDB(t)
	ana := crearCliente(t, db, "ana@test.com")
	beto := crearCliente(t, db, "beto@test.com")

	dia := time.Date(2026, 5, 10, 10, 0, 0, 0, time.UTC)
	crearVenta(t, db, ana.ID, dia, "50.00", "efectivo")
	ultimaAna := dia.AddDate(0, 0, 3)
	crearVenta(t, db, ana.ID, ultimaAna, "30.00", "efectivo")
	crearVenta(t, db, beto.ID, dia, "200.00", "efectivo")

	filas, err := ClientesFrecuentes(db, dia.AddDate(0, 0, -1), dia.AddDate(0, 0, 5), 10)
	require.NoError(t, err)
	require.Len(t, filas, 2)
	assert.Equal(t, ana.ID, filas[0].ClienteID)
	assert.Equal(t, int64(2), filas[0].TotalCompras)
	assert.True(t, filas[0].MontoTotal.Equal(decimal.RequireFromString("80.00")))
	assert.True(t, filas[0].UltimaCompra.Equal(ultimaAna))
}

func TestAnalisisRFMDegenerado(t *testing.T) {
	db := testDB(t)
	dia := time.Now().AddDate(0, 0, -2)
	for _, email := range []string{"a@test.com", "b@test.com", "c@test.com"} {
		c := crearCliente(t, db, email)
		crearVenta(t, db, c.ID, dia, "50.00", "efectivo")
	}

	clientes, err := AnalisisRFM(db)
	require.NoError(t, err)
	require.Len(t, clientes, 3)

	// Con una población sin variación cada dimensión puntúa 3
	for _, c := range clientes {
		assert.Equal(t, 3, c.ScoreR)
		assert.Equal(t, 3, c.ScoreF)
		assert.Equal(t, 3, c.ScoreM)
		assert.Equal(t, "Leales", c.Segmento)
	}
}

func TestAnalisisRFMSinVentas(t *testing.T) {
	db := testDB(t)
	clientes, err := AnalisisRFM(db)
	require.NoError(t, err)
	assert.Empty(t, clientes)
}

func TestMarketBasket(t *testing.T) {
	db := testDB(t)
	cliente := crearCliente(t, db, "a@test.com")
	cafe := crearProducto(t, db, "Café", "20.00", 50)
	leche := crearProducto(t, db, "Leche", "7.00", 50)
	pan := crearProducto(t, db, "Pan", "1.00", 200)

	dia := time.Date(2026, 5, 10, 10, 0, 0, 0, time.UTC)
	// 4 ventas con café y leche juntos, 1 con café solo, 5 con pan solo:
	// café en 5 de 10, leche en 4 de 10, el par en 4
	for i := 0; i < 4; i++ {
		nota := crearVenta(t, db, cliente.ID, dia, "27.00", "efectivo")
		agregarDetalle(t, db, nota.ID, cafe.ID, 1, "20.00")
		agregarDetalle(t, db, nota.ID, leche.ID, 1, "7.00")
	}
	nota := crearVenta(t, db, cliente.ID, dia, "20.00", "efectivo")
	agregarDetalle(t, db, nota.ID, cafe.ID, 1, "20.00")
	for i := 0; i < 5; i++ {
		nota := crearVenta(t, db, cliente.ID, dia, "1.00", "efectivo")
		agregarDetalle(t, db, nota.ID, pan.ID, 1, "1.00")
	}

	pares, err := MarketBasket(db, dia.AddDate(0, 0, -1), dia.AddDate(0, 0, 1), 3)
	require.NoError(t, err)
	require.Len(t, pares, 1)

	par := pares[0]
	assert.Equal(t, "Café", par.ProductoA)
	assert.Equal(t, "Leche", par.ProductoB)
	assert.Equal(t, 4, par.Frecuencia)
	assert.InDelta(t, 0.40, par.Soporte, 0.001)
	assert.InDelta(t, 0.80, par.Confianza, 0.001)
	assert.InDelta(t, 2.00, par.Lift, 0.001)
}

func TestMarketBasketFiltraPorSoporteMinimo(t *testing.T) {
	db := testDB(t)
	cliente := crearCliente(t, db, "a@test.com")
	a := crearProducto(t, db, "A", "1.00", 10)
	b := crearProducto(t, db, "B", "1.00", 10)

	dia := time.Date(2026, 5, 10, 10, 0, 0, 0, time.UTC)
	nota := crearVenta(t, db, cliente.ID, dia, "2.00", "efectivo")
	agregarDetalle(t, db, nota.ID, a.ID, 1, "1.00")
	agregarDetalle(t, db, nota.ID, b.ID, 1, "1.00")

	pares, err := MarketBasket(db, dia.AddDate(0, 0, -1), dia.AddDate(0, 0, 1), 3)
	require.NoError(t, err)
	assert.Empty(t, pares)
}

func TestGenerarReporteDinamico(t *testing.T) {
	db := testDB(t)
	cliente := crearCliente(t, db, "a@test.com")
	dia := time.Date(2026, 5, 10, 10, 0, 0, 0, time.UTC)

	crearVenta(t, db, cliente.ID, dia, "100.00", "efectivo")
	crearVenta(t, db, cliente.ID, dia, "60.00", "efectivo")
	crearVenta(t, db, cliente.ID, dia, "50.00", "tarjeta")

	filas, err := Generar(db, ConfigReporte{
		Modelo:     "ventas",
		Filtros:    []Filtro{{Campo: "estado", Operador: "eq", Valor: "completada"}},
		AgruparPor: []string{"metodo_pago"},
		Metricas: map[string]Metrica{
			"cantidad":    {Tipo: "count"},
			"monto_total": {Tipo: "sum", Campo: "total"},
			"promedio":    {Tipo: "formula", Formula: "monto_total / cantidad"},
		},
		OrdenarPor: []string{"-monto_total"},
	})
	require.NoError(t, err)
	require.Len(t, filas, 2)

	assert.Equal(t, "efectivo", filas[0]["metodo_pago"])
	assert.EqualValues(t, 2, filas[0]["cantidad"])
	assert.InDelta(t, 80.0, filas[0]["promedio"].(float64), 0.001)
	assert.Equal(t, "tarjeta", filas[1]["metodo_pago"])
}

func TestGenerarRechazaModeloDesconocido(t *testing.T) {
	db := testDB(t)
	_, err := Generar(db, ConfigReporte{Modelo: "usuarios"})
	assert.ErrorIs(t, err, ErrModeloInvalido)
}

func TestGenerarRechazaCampoFueraDeLista(t *testing.T) {
	db := testDB(t)
	_, err := Generar(db, ConfigReporte{
		Modelo:  "ventas",
		Filtros: []Filtro{{Campo: "password", Operador: "eq", Valor: "x"}},
	})
	assert.ErrorIs(t, err, ErrCampoInvalido)

	_, err = Generar(db, ConfigReporte{
		Modelo:     "ventas",
		AgruparPor: []string{"total; DROP TABLE sales_notes"},
	})
	assert.ErrorIs(t, err, ErrCampoInvalido)
}

func TestGenerarRechazaOperadorDesconocido(t *testing.T) {
	db := testDB(t)
	_, err := Generar(db, ConfigReporte{
		Modelo:  "ventas",
		Filtros: []Filtro{{Campo: "total", Operador: "like", Valor: "1"}},
	})
	assert.ErrorIs(t, err, ErrOperadorInvalido)
}

func TestFlujoCajaDetallado(t *testing.T) {
	db := testDB(t)
	dia := time.Date(2026, 5, 10, 10, 0, 0, 0, time.UTC)

	require.NoError(t, db.Create(&models.CashPayment{
		SalesNoteID: 1, Monto: decimal.RequireFromString("80.00"), Fecha: dia,
	}).Error)
	require.NoError(t, db.Create(&models.CreditPayment{
		CreditInstallmentID: 1, Monto: decimal.RequireFromString("36.67"),
		Metodo: "efectivo", Fecha: dia,
	}).Error)

	flujo, err := FlujoCajaDetallado(db, dia.AddDate(0, 0, -1), dia.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, flujo.CobrosContado.Equal(decimal.RequireFromString("80.00")))
	assert.True(t, flujo.PagosCuotas.Equal(decimal.RequireFromString("36.67")))
	assert.True(t, flujo.TotalIngresos.Equal(decimal.RequireFromString("116.67")))
}
