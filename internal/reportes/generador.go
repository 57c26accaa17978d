package reportes

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrModeloInvalido   = errors.New("modelo no permitido")
	ErrCampoInvalido    = errors.New("campo no permitido para el modelo")
	ErrOperadorInvalido = errors.New("operador de filtro no soportado")
	ErrMetricaInvalida  = errors.New("tipo de métrica no soportado")
)

// Filtro es una condición campo/operador/valor del reporte dinámico.
type Filtro struct {
	Campo    string      `json:"campo"`
	Operador string      `json:"operador"`
	Valor    interface{} `json:"valor"`
}

// Metrica define una columna agregada del reporte. Tipo "formula" evalúa
// una expresión sobre las demás métricas de la fila.
type Metrica struct {
	Tipo    string `json:"tipo"` // sum | count | avg | max | min | formula
	Campo   string `json:"campo"`
	Formula string `json:"formula"`
}

// ConfigReporte es la definición completa de un reporte dinámico.
type ConfigReporte struct {
	Modelo     string             `json:"modelo"`
	Filtros    []Filtro           `json:"filtros"`
	AgruparPor []string           `json:"agrupar_por"`
	Metricas   map[string]Metrica `json:"metricas"`
	OrdenarPor []string           `json:"ordenar_por"` // prefijo "-" para descendente
	Limite     int                `json:"limite"`
}

// modelosPermitidos mapea cada modelo expuesto al generador con su tabla
// y los campos consultables. Nada fuera de esta lista llega al SQL.
var modelosPermitidos = map[string]struct {
	tabla  string
	campos map[string]bool
}{
	"ventas": {
		tabla: "sales_notes",
		campos: map[string]bool{
			"id": true, "fecha": true, "total": true, "estado": true,
			"metodo_pago": true, "cliente_id": true, "empleado_id": true,
		},
	},
	"detalles": {
		tabla: "detail_notes",
		campos: map[string]bool{
			"id": true, "sales_note_id": true, "product_id": true,
			"cantidad": true, "precio_unitario": true, "subtotal": true,
		},
	},
	"productos": {
		tabla: "products",
		campos: map[string]bool{
			"id": true, "nombre": true, "precio": true, "stock": true,
			"category_id": true,
		},
	},
	"creditos": {
		tabla: "credit_sales",
		campos: map[string]bool{
			"id": true, "cliente_id": true, "total_original": true,
			"total_con_intereses": true, "saldo_pendiente": true,
			"estado": true, "fecha_inicio": true,
		},
	},
	"cuotas": {
		tabla: "credit_installments",
		campos: map[string]bool{
			"id": true, "credit_sale_id": true, "numero": true,
			"monto": true, "fecha_vencimiento": true, "pagada": true,
		},
	},
}

var operadoresSQL = map[string]string{
	"eq":  "=",
	"ne":  "<>",
	"gt":  ">",
	"gte": ">=",
	"lt":  "<",
	"lte": "<=",
}

// Generar construye y ejecuta el reporte definido por config. Devuelve las
// filas como registros planos listos para serializar o exportar.
func Generar(db *gorm.DB, config ConfigReporte) ([]map[string]interface{}, error) {
	modelo, ok := modelosPermitidos[config.Modelo]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrModeloInvalido, config.Modelo)
	}

	consulta := db.Table(modelo.tabla).Where(modelo.tabla + ".deleted_at IS NULL")

	for _, filtro := range config.Filtros {
		if !modelo.campos[filtro.Campo] {
			return nil, fmt.Errorf("%w: %q", ErrCampoInvalido, filtro.Campo)
		}
		switch filtro.Operador {
		case "eq", "ne", "gt", "gte", "lt", "lte":
			consulta = consulta.Where(
				fmt.Sprintf("%s %s ?", filtro.Campo, operadoresSQL[filtro.Operador]),
				filtro.Valor)
		case "contains":
			consulta = consulta.Where(filtro.Campo+" LIKE ?",
				fmt.Sprintf("%%%v%%", filtro.Valor))
		case "in":
			consulta = consulta.Where(filtro.Campo+" IN ?", filtro.Valor)
		default:
			return nil, fmt.Errorf("%w: %q", ErrOperadorInvalido, filtro.Operador)
		}
	}

	columnas := []string{}
	for _, campo := range config.AgruparPor {
		if !modelo.campos[campo] {
			return nil, fmt.Errorf("%w: %q", ErrCampoInvalido, campo)
		}
		columnas = append(columnas, campo)
	}

	formulas := map[string]string{}
	nombresMetricas := nombresOrdenados(config.Metricas)
	for _, nombre := range nombresMetricas {
		metrica := config.Metricas[nombre]
		switch metrica.Tipo {
		case "sum", "avg", "max", "min":
			if !modelo.campos[metrica.Campo] {
				return nil, fmt.Errorf("%w: %q", ErrCampoInvalido, metrica.Campo)
			}
			columnas = append(columnas, fmt.Sprintf("%s(%s) AS %s",
				strings.ToUpper(metrica.Tipo), metrica.Campo, nombre))
		case "count":
			columnas = append(columnas, fmt.Sprintf("COUNT(*) AS %s", nombre))
		case "formula":
			formulas[nombre] = metrica.Formula
		default:
			return nil, fmt.Errorf("%w: %q", ErrMetricaInvalida, metrica.Tipo)
		}
	}

	consulta = consulta.Select(strings.Join(columnas, ", "))
	if len(config.AgruparPor) > 0 {
		consulta = consulta.Group(strings.Join(config.AgruparPor, ", "))
	}

	for _, orden := range config.OrdenarPor {
		campo := orden
		direccion := "ASC"
		if strings.HasPrefix(orden, "-") {
			campo = orden[1:]
			direccion = "DESC"
		}
		if !modelo.campos[campo] && !esMetrica(config.Metricas, campo) {
			return nil, fmt.Errorf("%w: %q", ErrCampoInvalido, campo)
		}
		consulta = consulta.Order(campo + " " + direccion)
	}

	if config.Limite > 0 {
		consulta = consulta.Limit(config.Limite)
	}

	filas := []map[string]interface{}{}
	if err := consulta.Find(&filas).Error; err != nil {
		return nil, err
	}

	for nombre, formula := range formulas {
		expr, err := govaluate.NewEvaluableExpression(formula)
		if err != nil {
			return nil, fmt.Errorf("fórmula inválida en métrica %q: %w", nombre, err)
		}
		for _, fila := range filas {
			parametros := make(map[string]interface{}, len(fila))
			for clave, valor := range fila {
				parametros[clave] = aNumero(valor)
			}
			resultado, err := expr.Evaluate(parametros)
			if err != nil {
				return nil, fmt.Errorf("error evaluando métrica %q: %w", nombre, err)
			}
			fila[nombre] = resultado
		}
	}

	return filas, nil
}

func nombresOrdenados(metricas map[string]Metrica) []string {
	nombres := make([]string, 0, len(metricas))
	for nombre := range metricas {
		nombres = append(nombres, nombre)
	}
	// Orden estable para que el SQL generado sea determinista
	sort.Strings(nombres)
	return nombres
}

func esMetrica(metricas map[string]Metrica, nombre string) bool {
	_, ok := metricas[nombre]
	return ok
}

// aNumero normaliza los valores que devuelve el driver para que govaluate
// pueda operar con ellos. Las columnas agregadas llegan envueltas en
// *interface{} y hay que desreferenciarlas antes de convertir.
func aNumero(valor interface{}) interface{} {
	if p, ok := valor.(*interface{}); ok {
		if p == nil {
			return nil
		}
		valor = *p
	}
	switch v := valor.(type) {
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case float64:
		return v
	case decimal.Decimal:
		f, _ := v.Float64()
		return f
	case []byte:
		if f, err := strconv.ParseFloat(string(v), 64); err == nil {
			return f
		}
		return string(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		return v
	default:
		return valor
	}
}
