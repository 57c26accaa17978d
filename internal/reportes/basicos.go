// Package reportes implementa el motor de reportes en tres niveles
// (básicos, intermedios y avanzados), el generador dinámico y el caché.
// Todas las funciones son de solo lectura sobre el libro de ventas.
package reportes

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/TaddyRiv/tiendaback/models"
)

// ResumenVentas es el resumen de ventas de un período.
type ResumenVentas struct {
	FechaInicio  string            `json:"fecha_inicio"`
	FechaFin     string            `json:"fecha_fin"`
	TotalVentas  int64             `json:"total_ventas"`
	MontoTotal   decimal.Decimal   `json:"monto_total"`
	Promedio     decimal.Decimal   `json:"promedio"`
	VentaMaxima  decimal.Decimal   `json:"venta_maxima"`
	VentaMinima  decimal.Decimal   `json:"venta_minima"`
	PorMetodo    []VentasPorMetodo `json:"por_metodo_pago"`
}

// VentasPorMetodo desglosa el período por método de pago.
type VentasPorMetodo struct {
	MetodoPago string          `json:"metodo_pago"`
	Cantidad   int64           `json:"cantidad"`
	Monto      decimal.Decimal `json:"monto"`
}

func ventasDelPeriodo(db *gorm.DB, inicio, fin time.Time) *gorm.DB {
	return db.Model(&models.SalesNote{}).
		Where("fecha >= ? AND fecha <= ? AND estado <> ?", inicio, fin, "anulada")
}

// VentasPorPeriodo calcula conteo, suma, promedio y extremos de las ventas
// del período, con desglose por método de pago. Un período sin ventas
// devuelve el resumen en ceros, nunca un error.
func VentasPorPeriodo(db *gorm.DB, inicio, fin time.Time) (*ResumenVentas, error) {
	resumen := ResumenVentas{
		FechaInicio: inicio.Format("2006-01-02"),
		FechaFin:    fin.Format("2006-01-02"),
		MontoTotal:  decimal.Zero,
		Promedio:    decimal.Zero,
		VentaMaxima: decimal.Zero,
		VentaMinima: decimal.Zero,
		PorMetodo:   []VentasPorMetodo{},
	}

	var agregados struct {
		Total  int64
		Monto  decimal.Decimal
		Maximo decimal.Decimal
		Minimo decimal.Decimal
	}
	err := ventasDelPeriodo(db, inicio, fin).
		Select("COUNT(*) AS total, COALESCE(SUM(total), 0) AS monto, COALESCE(MAX(total), 0) AS maximo, COALESCE(MIN(total), 0) AS minimo").
		Scan(&agregados).Error
	if err != nil {
		return nil, err
	}

	resumen.TotalVentas = agregados.Total
	resumen.MontoTotal = agregados.Monto
	resumen.VentaMaxima = agregados.Maximo
	resumen.VentaMinima = agregados.Minimo
	if agregados.Total > 0 {
		resumen.Promedio = agregados.Monto.
			Div(decimal.NewFromInt(agregados.Total)).Round(2)
	}

	var porMetodo []VentasPorMetodo
	err = ventasDelPeriodo(db, inicio, fin).
		Select("metodo_pago, COUNT(*) AS cantidad, COALESCE(SUM(total), 0) AS monto").
		Group("metodo_pago").
		Order("monto DESC").
		Scan(&porMetodo).Error
	if err != nil {
		return nil, err
	}
	if porMetodo != nil {
		resumen.PorMetodo = porMetodo
	}

	return &resumen, nil
}

// ProductoTop es una fila del ranking de productos más vendidos.
type ProductoTop struct {
	ProductID        uint            `json:"product_id"`
	Nombre           string          `json:"nombre"`
	UnidadesVendidas int64           `json:"unidades_vendidas"`
	Ingresos         decimal.Decimal `json:"ingresos"`
}

// TopProductos devuelve los productos más vendidos del período por unidades.
func TopProductos(db *gorm.DB, inicio, fin time.Time, limite int) ([]ProductoTop, error) {
	if limite <= 0 {
		limite = 10
	}
	var top []ProductoTop
	err := db.Table("detail_notes").
		Select("detail_notes.product_id, products.nombre, SUM(detail_notes.cantidad) AS unidades_vendidas, COALESCE(SUM(detail_notes.subtotal), 0) AS ingresos").
		Joins("JOIN products ON products.id = detail_notes.product_id").
		Joins("JOIN sales_notes ON sales_notes.id = detail_notes.sales_note_id").
		Where("sales_notes.fecha >= ? AND sales_notes.fecha <= ? AND sales_notes.estado <> ?", inicio, fin, "anulada").
		Where("detail_notes.deleted_at IS NULL").
		Group("detail_notes.product_id, products.nombre").
		Order("unidades_vendidas DESC").
		Limit(limite).
		Scan(&top).Error
	if err != nil {
		return nil, err
	}
	if top == nil {
		top = []ProductoTop{}
	}
	return top, nil
}

// ProductoBajoStock es un producto por debajo del umbral, anotado con las
// unidades vendidas en los últimos 30 días.
type ProductoBajoStock struct {
	ProductID     uint   `json:"product_id"`
	Nombre        string `json:"nombre"`
	Categoria     string `json:"categoria"`
	Stock         int    `json:"stock"`
	Vendidos30Dias int64 `json:"vendidos_30_dias"`
}

// ProductosBajoStock lista los productos con stock bajo el umbral.
func ProductosBajoStock(db *gorm.DB, umbral int) ([]ProductoBajoStock, error) {
	if umbral <= 0 {
		umbral = 10
	}
	var productos []models.Product
	err := db.Preload("Category").
		Where("stock < ?", umbral).
		Order("stock ASC").
		Find(&productos).Error
	if err != nil {
		return nil, err
	}

	desde := time.Now().AddDate(0, 0, -30)
	resultado := make([]ProductoBajoStock, 0, len(productos))
	for _, p := range productos {
		var vendidos struct{ Total int64 }
		err := db.Table("detail_notes").
			Select("COALESCE(SUM(detail_notes.cantidad), 0) AS total").
			Joins("JOIN sales_notes ON sales_notes.id = detail_notes.sales_note_id").
			Where("detail_notes.product_id = ? AND sales_notes.fecha >= ?", p.ID, desde).
			Where("sales_notes.estado <> ?", "anulada").
			Where("detail_notes.deleted_at IS NULL").
			Scan(&vendidos).Error
		if err != nil {
			return nil, err
		}
		resultado = append(resultado, ProductoBajoStock{
			ProductID:      p.ID,
			Nombre:         p.Nombre,
			Categoria:      p.Category.Nombre,
			Stock:          p.Stock,
			Vendidos30Dias: vendidos.Total,
		})
	}
	return resultado, nil
}

// VentaDiaria es un punto de la serie diaria de ventas.
type VentaDiaria struct {
	Fecha    string          `json:"fecha"`
	Cantidad int64           `json:"cantidad"`
	Monto    decimal.Decimal `json:"monto"`
}

// VentasPorDia devuelve la serie diaria del período, con los días sin
// ventas rellenados en cero.
func VentasPorDia(db *gorm.DB, inicio, fin time.Time) ([]VentaDiaria, error) {
	var notas []models.SalesNote
	err := ventasDelPeriodo(db, inicio, fin).Find(&notas).Error
	if err != nil {
		return nil, err
	}

	porDia := make(map[string]*VentaDiaria)
	for _, nota := range notas {
		dia := nota.Fecha.Format("2006-01-02")
		punto, ok := porDia[dia]
		if !ok {
			punto = &VentaDiaria{Fecha: dia, Monto: decimal.Zero}
			porDia[dia] = punto
		}
		punto.Cantidad++
		punto.Monto = punto.Monto.Add(nota.Total)
	}

	serie := []VentaDiaria{}
	for d := inicio; !d.After(fin); d = d.AddDate(0, 0, 1) {
		dia := d.Format("2006-01-02")
		if punto, ok := porDia[dia]; ok {
			serie = append(serie, *punto)
		} else {
			serie = append(serie, VentaDiaria{Fecha: dia, Monto: decimal.Zero})
		}
	}
	return serie, nil
}
