package reportes

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/TaddyRiv/tiendaback/models"
)

// CategoriaResumen es el rendimiento de una categoría en el período.
type CategoriaResumen struct {
	CategoryID     uint            `json:"category_id"`
	Categoria      string          `json:"categoria"`
	TotalProductos int64           `json:"total_productos"`
	Unidades       int64           `json:"unidades_vendidas"`
	Ingresos       decimal.Decimal `json:"ingresos"`
	PrecioPromedio decimal.Decimal `json:"precio_promedio"`
}

// AnalisisPorCategoria agrega ventas del período por categoría de producto.
func AnalisisPorCategoria(db *gorm.DB, inicio, fin time.Time) ([]CategoriaResumen, error) {
	var filas []CategoriaResumen
	err := db.Table("categories").
		Select("categories.id AS category_id, categories.nombre AS categoria, " +
			"COUNT(DISTINCT products.id) AS total_productos, " +
			"COALESCE(SUM(detail_notes.cantidad), 0) AS unidades, " +
			"COALESCE(SUM(detail_notes.subtotal), 0) AS ingresos").
		Joins("JOIN products ON products.category_id = categories.id").
		Joins("LEFT JOIN detail_notes ON detail_notes.product_id = products.id AND detail_notes.deleted_at IS NULL").
		Joins("LEFT JOIN sales_notes ON sales_notes.id = detail_notes.sales_note_id "+
			"AND sales_notes.fecha >= ? AND sales_notes.fecha <= ? AND sales_notes.estado <> ?",
			inicio, fin, "anulada").
		Where("categories.deleted_at IS NULL").
		Group("categories.id, categories.nombre").
		Order("ingresos DESC").
		Scan(&filas).Error
	if err != nil {
		return nil, err
	}

	for i := range filas {
		if filas[i].Unidades > 0 {
			filas[i].PrecioPromedio = filas[i].Ingresos.
				Div(decimal.NewFromInt(filas[i].Unidades)).Round(2)
		} else {
			filas[i].PrecioPromedio = decimal.Zero
		}
	}
	if filas == nil {
		filas = []CategoriaResumen{}
	}
	return filas, nil
}

// EmpleadoResumen es el rendimiento de un empleado en el período.
type EmpleadoResumen struct {
	EmpleadoID     uint            `json:"empleado_id"`
	Nombre         string          `json:"nombre"`
	TotalVentas    int64           `json:"total_ventas"`
	MontoTotal     decimal.Decimal `json:"monto_total"`
	TicketPromedio decimal.Decimal `json:"ticket_promedio"`
	VentasCredito  int64           `json:"ventas_credito"`
	VentasContado  int64           `json:"ventas_contado"`
}

// RendimientoEmpleados agrega las ventas del período por empleado, con la
// división entre ventas a crédito y de contado.
func RendimientoEmpleados(db *gorm.DB, inicio, fin time.Time) ([]EmpleadoResumen, error) {
	var filas []EmpleadoResumen
	err := db.Table("sales_notes").
		Select("sales_notes.empleado_id, usuarios.nombre || ' ' || usuarios.apellido AS nombre, "+
			"COUNT(*) AS total_ventas, COALESCE(SUM(sales_notes.total), 0) AS monto_total, "+
			"SUM(CASE WHEN sales_notes.metodo_pago = 'credito' THEN 1 ELSE 0 END) AS ventas_credito, "+
			"SUM(CASE WHEN sales_notes.metodo_pago <> 'credito' THEN 1 ELSE 0 END) AS ventas_contado").
		Joins("JOIN usuarios ON usuarios.id = sales_notes.empleado_id").
		Where("sales_notes.fecha >= ? AND sales_notes.fecha <= ? AND sales_notes.estado <> ?", inicio, fin, "anulada").
		Where("sales_notes.deleted_at IS NULL").
		Group("sales_notes.empleado_id, usuarios.nombre, usuarios.apellido").
		Order("monto_total DESC").
		Scan(&filas).Error
	if err != nil {
		return nil, err
	}

	for i := range filas {
		if filas[i].TotalVentas > 0 {
			filas[i].TicketPromedio = filas[i].MontoTotal.
				Div(decimal.NewFromInt(filas[i].TotalVentas)).Round(2)
		}
	}
	if filas == nil {
		filas = []EmpleadoResumen{}
	}
	return filas, nil
}

// ClienteFrecuente es una fila del ranking de clientes.
type ClienteFrecuente struct {
	ClienteID      uint            `json:"cliente_id"`
	Nombre         string          `json:"nombre"`
	Email          string          `json:"email"`
	TotalCompras   int64           `json:"total_compras"`
	MontoTotal     decimal.Decimal `json:"monto_total"`
	UltimaCompra   time.Time       `json:"ultima_compra"`
	SaldoCredito   decimal.Decimal `json:"saldo_credito"`
}

// ClientesFrecuentes rankea clientes por cantidad de compras en el período
// e incluye el saldo de crédito abierto de cada uno.
func ClientesFrecuentes(db *gorm.DB, inicio, fin time.Time, limite int) ([]ClienteFrecuente, error) {
	if limite <= 0 {
		limite = 20
	}
	var filas []ClienteFrecuente
	err := db.Table("sales_notes").
		Select("sales_notes.cliente_id, usuarios.nombre || ' ' || usuarios.apellido AS nombre, usuarios.email, "+
			"COUNT(*) AS total_compras, COALESCE(SUM(sales_notes.total), 0) AS monto_total").
		Joins("JOIN usuarios ON usuarios.id = sales_notes.cliente_id").
		Where("sales_notes.fecha >= ? AND sales_notes.fecha <= ? AND sales_notes.estado <> ?", inicio, fin, "anulada").
		Where("sales_notes.deleted_at IS NULL").
		Group("sales_notes.cliente_id, usuarios.nombre, usuarios.apellido, usuarios.email").
		Order("total_compras DESC").
		Limit(limite).
		Scan(&filas).Error
	if err != nil {
		return nil, err
	}

	for i := range filas {
		// La fecha se lee del modelo en vez de un MAX() agregado para
		// que el driver la entregue como time.Time en cualquier dialecto
		var ultima models.SalesNote
		err := db.Where("cliente_id = ? AND fecha >= ? AND fecha <= ? AND estado <> ?",
			filas[i].ClienteID, inicio, fin, "anulada").
			Order("fecha DESC").First(&ultima).Error
		if err != nil {
			return nil, err
		}
		filas[i].UltimaCompra = ultima.Fecha

		var saldo struct{ Saldo decimal.Decimal }
		err = db.Model(&models.CreditSale{}).
			Select("COALESCE(SUM(saldo_pendiente), 0) AS saldo").
			Where("cliente_id = ? AND estado <> ?", filas[i].ClienteID, "pagado").
			Scan(&saldo).Error
		if err != nil {
			return nil, err
		}
		filas[i].SaldoCredito = saldo.Saldo
	}
	if filas == nil {
		filas = []ClienteFrecuente{}
	}
	return filas, nil
}

// FlujoCaja es el flujo de caja detallado del período: cobros de contado
// más pagos de cuotas, desglosados por método.
type FlujoCaja struct {
	TotalIngresos  decimal.Decimal   `json:"total_ingresos"`
	CobrosContado  decimal.Decimal   `json:"cobros_contado"`
	PagosCuotas    decimal.Decimal   `json:"pagos_cuotas"`
	PorMetodo      []VentasPorMetodo `json:"por_metodo"`
}

// FlujoCajaDetallado suma todo el dinero que entró en el período.
func FlujoCajaDetallado(db *gorm.DB, inicio, fin time.Time) (*FlujoCaja, error) {
	flujo := FlujoCaja{
		TotalIngresos: decimal.Zero,
		CobrosContado: decimal.Zero,
		PagosCuotas:   decimal.Zero,
		PorMetodo:     []VentasPorMetodo{},
	}

	var contado struct{ Monto decimal.Decimal }
	err := db.Model(&models.CashPayment{}).
		Select("COALESCE(SUM(monto), 0) AS monto").
		Where("fecha >= ? AND fecha <= ?", inicio, fin).
		Scan(&contado).Error
	if err != nil {
		return nil, err
	}
	flujo.CobrosContado = contado.Monto

	var cuotas struct{ Monto decimal.Decimal }
	err = db.Model(&models.CreditPayment{}).
		Select("COALESCE(SUM(monto), 0) AS monto").
		Where("fecha >= ? AND fecha <= ?", inicio, fin).
		Scan(&cuotas).Error
	if err != nil {
		return nil, err
	}
	flujo.PagosCuotas = cuotas.Monto

	var porMetodo []VentasPorMetodo
	err = db.Model(&models.CreditPayment{}).
		Select("metodo AS metodo_pago, COUNT(*) AS cantidad, COALESCE(SUM(monto), 0) AS monto").
		Where("fecha >= ? AND fecha <= ?", inicio, fin).
		Group("metodo").
		Scan(&porMetodo).Error
	if err != nil {
		return nil, err
	}
	if porMetodo != nil {
		flujo.PorMetodo = porMetodo
	}

	flujo.TotalIngresos = flujo.CobrosContado.Add(flujo.PagosCuotas)
	return &flujo, nil
}

// RotacionProducto mide la velocidad de venta de un producto en el período.
type RotacionProducto struct {
	ProductID       uint    `json:"product_id"`
	Nombre          string  `json:"nombre"`
	Stock           int     `json:"stock"`
	UnidadesVendidas int64  `json:"unidades_vendidas"`
	RotacionDiaria  float64 `json:"rotacion_diaria"`
	DiasInventario  float64 `json:"dias_inventario"`
}

// RotacionInventario calcula unidades vendidas por día y días de inventario
// restantes por producto. Sin rotación, los días de inventario quedan en 999.
func RotacionInventario(db *gorm.DB, inicio, fin time.Time) ([]RotacionProducto, error) {
	dias := fin.Sub(inicio).Hours() / 24
	if dias < 1 {
		dias = 1
	}

	var productos []models.Product
	if err := db.Find(&productos).Error; err != nil {
		return nil, err
	}

	resultado := make([]RotacionProducto, 0, len(productos))
	for _, p := range productos {
		var vendidos struct{ Total int64 }
		err := db.Table("detail_notes").
			Select("COALESCE(SUM(detail_notes.cantidad), 0) AS total").
			Joins("JOIN sales_notes ON sales_notes.id = detail_notes.sales_note_id").
			Where("detail_notes.product_id = ? AND sales_notes.fecha >= ? AND sales_notes.fecha <= ?", p.ID, inicio, fin).
			Where("sales_notes.estado <> ?", "anulada").
			Where("detail_notes.deleted_at IS NULL").
			Scan(&vendidos).Error
		if err != nil {
			return nil, err
		}

		rotacion := float64(vendidos.Total) / dias
		diasInventario := 999.0
		if rotacion > 0 {
			diasInventario = float64(p.Stock) / rotacion
		}
		resultado = append(resultado, RotacionProducto{
			ProductID:        p.ID,
			Nombre:           p.Nombre,
			Stock:            p.Stock,
			UnidadesVendidas: vendidos.Total,
			RotacionDiaria:   rotacion,
			DiasInventario:   diasInventario,
		})
	}
	return resultado, nil
}
