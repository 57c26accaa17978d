package pronostico

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/TaddyRiv/tiendaback/models"
)

// Política de reposición de la tienda.
const (
	DiasStockSeguridad = 15
	DiasLeadTime       = 7
)

var ErrProductoNoEncontrado = errors.New("producto no encontrado")

// Recomendacion es la sugerencia de compra para un producto.
type Recomendacion struct {
	ProductID          uint            `json:"product_id"`
	Nombre             string          `json:"nombre"`
	StockActual        int             `json:"stock_actual"`
	DemandaDiaria      float64         `json:"demanda_diaria"`
	PuntoReorden       float64         `json:"punto_reorden"`
	StockSeguridad     float64         `json:"stock_seguridad"`
	DiasCobertura      float64         `json:"dias_cobertura"`
	RequiereCompra     bool            `json:"requiere_compra"`
	CantidadSugerida   int             `json:"cantidad_sugerida"`
	Urgencia           string          `json:"urgencia"`
	Alerta             string          `json:"alerta"`
	CostoUnitario      decimal.Decimal `json:"costo_unitario"`
	InversionEstimada  decimal.Decimal `json:"inversion_estimada"`
	GananciaEstimada   decimal.Decimal `json:"ganancia_estimada"`
	ROIEstimado        float64         `json:"roi_estimado"`
	Prediccion         *Prediccion     `json:"prediccion"`
}

// RecomendarProducto calcula la recomendación de compra de un producto a
// partir de su demanda pronosticada y su stock actual.
func RecomendarProducto(db *gorm.DB, productID uint, dias int) (*Recomendacion, error) {
	if dias <= 0 {
		dias = 30
	}

	var producto models.Product
	if err := db.First(&producto, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductoNoEncontrado
		}
		return nil, err
	}

	prediccion, err := Predecir(db, productID, dias)
	if err != nil {
		return nil, err
	}

	demandaDiaria := prediccion.DemandaEstimada / float64(dias)
	puntoReorden := demandaDiaria * float64(dias+DiasLeadTime+DiasStockSeguridad)
	stockSeguridad := demandaDiaria * DiasStockSeguridad

	rec := Recomendacion{
		ProductID:      producto.ID,
		Nombre:         producto.Nombre,
		StockActual:    producto.Stock,
		DemandaDiaria:  redondear(demandaDiaria),
		PuntoReorden:   redondear(puntoReorden),
		StockSeguridad: redondear(stockSeguridad),
		Prediccion:     prediccion,
		CostoUnitario:  decimal.Zero,
		InversionEstimada: decimal.Zero,
		GananciaEstimada:  decimal.Zero,
	}

	if demandaDiaria > 0 {
		rec.DiasCobertura = redondear(float64(producto.Stock) / demandaDiaria)
	} else {
		rec.DiasCobertura = 999
	}

	rec.Urgencia, rec.Alerta = clasificarUrgencia(rec.DiasCobertura, float64(producto.Stock), puntoReorden)

	if float64(producto.Stock) >= puntoReorden {
		rec.RequiereCompra = false
		return &rec, nil
	}
	rec.RequiereCompra = true

	faltante := prediccion.DemandaEstimada + stockSeguridad - float64(producto.Stock)
	if faltante < 0 {
		faltante = 0
	}
	rec.CantidadSugerida = redondearLote(faltante)

	costo, err := costoUnitario(db, &producto)
	if err != nil {
		return nil, err
	}
	rec.CostoUnitario = costo

	cantidad := decimal.NewFromInt(int64(rec.CantidadSugerida))
	rec.InversionEstimada = costo.Mul(cantidad).Round(2)
	rec.GananciaEstimada = producto.Precio.Sub(costo).Mul(cantidad).Round(2)
	if rec.InversionEstimada.IsPositive() {
		roi, _ := rec.GananciaEstimada.Div(rec.InversionEstimada).Round(4).Float64()
		rec.ROIEstimado = roi
	}

	return &rec, nil
}

// RecomendarCategoria corre el recomendador sobre todos los productos de
// una categoría. Los productos sin historial se omiten.
func RecomendarCategoria(db *gorm.DB, categoryID uint, dias int) ([]Recomendacion, error) {
	var productos []models.Product
	if err := db.Where("category_id = ?", categoryID).Find(&productos).Error; err != nil {
		return nil, err
	}
	return recomendarLote(db, productos, dias)
}

// RecomendarTodos corre el recomendador sobre todo el catálogo.
func RecomendarTodos(db *gorm.DB, dias int) ([]Recomendacion, error) {
	var productos []models.Product
	if err := db.Find(&productos).Error; err != nil {
		return nil, err
	}
	return recomendarLote(db, productos, dias)
}

func recomendarLote(db *gorm.DB, productos []models.Product, dias int) ([]Recomendacion, error) {
	recomendaciones := []Recomendacion{}
	for _, p := range productos {
		rec, err := RecomendarProducto(db, p.ID, dias)
		if err != nil {
			if errors.Is(err, ErrSinHistorial) {
				continue
			}
			return nil, err
		}
		if rec.RequiereCompra {
			recomendaciones = append(recomendaciones, *rec)
		}
	}
	return recomendaciones, nil
}

func clasificarUrgencia(diasCobertura, stock, puntoReorden float64) (string, string) {
	fraccion := 1.0
	if puntoReorden > 0 {
		fraccion = stock / puntoReorden
	}
	switch {
	case diasCobertura < 7 || fraccion < 0.30:
		return "critico", fmt.Sprintf("Stock crítico: cobertura de %.0f días, comprar de inmediato", diasCobertura)
	case diasCobertura < 15 || fraccion < 0.50:
		return "alto", fmt.Sprintf("Stock bajo: cobertura de %.0f días, programar compra esta semana", diasCobertura)
	case diasCobertura < 30 || fraccion < 0.80:
		return "medio", fmt.Sprintf("Cobertura de %.0f días, incluir en la próxima orden", diasCobertura)
	default:
		return "bajo", "Stock suficiente por ahora"
	}
}

// redondearLote ajusta la cantidad a los lotes de compra habituales:
// pedidos chicos a múltiplos de 5, medianos de 10, grandes de 25.
func redondearLote(cantidad float64) int {
	switch {
	case cantidad < 10:
		redondeada := int(math.Round(cantidad))
		if redondeada < 5 {
			return 5
		}
		return redondeada
	case cantidad < 50:
		return int(math.Ceil(cantidad/5) * 5)
	case cantidad < 200:
		return int(math.Ceil(cantidad/10) * 10)
	default:
		return int(math.Ceil(cantidad/25) * 25)
	}
}

// costoUnitario toma el mejor precio de compra conocido entre los
// proveedores del producto; sin proveedor, estima el 60% del precio de
// venta.
func costoUnitario(db *gorm.DB, producto *models.Product) (decimal.Decimal, error) {
	var oferta models.ProviderProduct
	err := db.Where("product_id = ?", producto.ID).
		Order("precio_compra ASC").
		First(&oferta).Error
	if err == nil {
		return oferta.PrecioCompra, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, err
	}
	return producto.Precio.Mul(decimal.NewFromFloat(0.6)).Round(2), nil
}
