package reportes

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/TaddyRiv/tiendaback/models"
)

// ClienteRFM es un cliente con sus métricas y puntajes RFM.
type ClienteRFM struct {
	ClienteID    uint            `json:"cliente_id"`
	Nombre       string          `json:"nombre"`
	RecenciaDias int             `json:"recencia_dias"`
	Frecuencia   int64           `json:"frecuencia"`
	Monetario    decimal.Decimal `json:"monetario"`
	ScoreR       int             `json:"score_r"`
	ScoreF       int             `json:"score_f"`
	ScoreM       int             `json:"score_m"`
	Segmento     string          `json:"segmento"`
}

// AnalisisRFM segmenta a los clientes con al menos una compra por
// Recencia, Frecuencia y Monetario. Cada dimensión se puntúa 1-5 por
// quintiles; la recencia se invierte (menos días, mejor puntaje).
func AnalisisRFM(db *gorm.DB) ([]ClienteRFM, error) {
	var notas []models.SalesNote
	if err := db.Where("estado <> ?", "anulada").Find(&notas).Error; err != nil {
		return nil, err
	}
	if len(notas) == 0 {
		return []ClienteRFM{}, nil
	}

	// Agregación en Go: las fechas vienen del modelo y el cálculo queda
	// igual en postgres y en sqlite
	type metricas struct {
		ultimaCompra time.Time
		frecuencia   int64
		monetario    decimal.Decimal
	}
	porCliente := make(map[uint]*metricas)
	for _, nota := range notas {
		m, ok := porCliente[nota.ClienteID]
		if !ok {
			m = &metricas{monetario: decimal.Zero}
			porCliente[nota.ClienteID] = m
		}
		m.frecuencia++
		m.monetario = m.monetario.Add(nota.Total)
		if nota.Fecha.After(m.ultimaCompra) {
			m.ultimaCompra = nota.Fecha
		}
	}

	ids := make([]uint, 0, len(porCliente))
	for id := range porCliente {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var usuarios []models.Usuario
	if err := db.Where("id IN ?", ids).Find(&usuarios).Error; err != nil {
		return nil, err
	}
	nombres := make(map[uint]string, len(usuarios))
	for _, u := range usuarios {
		nombres[u.ID] = u.Nombre + " " + u.Apellido
	}

	ahora := time.Now()
	recencias := make([]float64, len(ids))
	frecuencias := make([]float64, len(ids))
	montos := make([]float64, len(ids))
	for i, id := range ids {
		m := porCliente[id]
		recencias[i] = ahora.Sub(m.ultimaCompra).Hours() / 24
		frecuencias[i] = float64(m.frecuencia)
		montos[i], _ = m.monetario.Float64()
	}

	clientes := make([]ClienteRFM, len(ids))
	for i, id := range ids {
		met := porCliente[id]
		r := puntajeQuintil(recencias[i], recencias, true)
		fr := puntajeQuintil(frecuencias[i], frecuencias, false)
		m := puntajeQuintil(montos[i], montos, false)
		clientes[i] = ClienteRFM{
			ClienteID:    id,
			Nombre:       nombres[id],
			RecenciaDias: int(recencias[i]),
			Frecuencia:   met.frecuencia,
			Monetario:    met.monetario,
			ScoreR:       r,
			ScoreF:       fr,
			ScoreM:       m,
			Segmento:     segmentoRFM(r, fr, m),
		}
	}

	sort.Slice(clientes, func(i, j int) bool {
		si := clientes[i].ScoreR + clientes[i].ScoreF + clientes[i].ScoreM
		sj := clientes[j].ScoreR + clientes[j].ScoreF + clientes[j].ScoreM
		return si > sj
	})
	return clientes, nil
}

// puntajeQuintil asigna 1-5 según el quintil del valor en la población.
// Con un solo valor distinto todos reciben 3. invertido puntúa alto a los
// valores bajos (recencia).
func puntajeQuintil(valor float64, poblacion []float64, invertido bool) int {
	minimo, maximo := poblacion[0], poblacion[0]
	for _, v := range poblacion {
		if v < minimo {
			minimo = v
		}
		if v > maximo {
			maximo = v
		}
	}
	if minimo == maximo {
		return 3
	}

	ordenada := make([]float64, len(poblacion))
	copy(ordenada, poblacion)
	sort.Float64s(ordenada)

	score := 1
	for _, p := range []float64{20, 40, 60, 80} {
		if valor > percentil(ordenada, p) {
			score++
		}
	}
	if invertido {
		score = 6 - score
	}
	return score
}

// percentil calcula el percentil p (0-100) por interpolación lineal sobre
// una muestra ya ordenada.
func percentil(ordenada []float64, p float64) float64 {
	if len(ordenada) == 1 {
		return ordenada[0]
	}
	pos := p / 100 * float64(len(ordenada)-1)
	base := int(pos)
	resto := pos - float64(base)
	if base+1 >= len(ordenada) {
		return ordenada[len(ordenada)-1]
	}
	return ordenada[base] + resto*(ordenada[base+1]-ordenada[base])
}

func segmentoRFM(r, f, m int) string {
	switch {
	case r >= 4 && f >= 4 && m >= 4:
		return "Champions"
	case r >= 3 && f >= 3 && m >= 3:
		return "Leales"
	case r >= 4 && f <= 2:
		return "Nuevos Prometedores"
	case r <= 2 && f >= 4:
		return "En Riesgo"
	case r <= 2 && f <= 2:
		return "Perdidos"
	default:
		return "Normales"
	}
}

// TendenciaMensual es un punto de la serie de tendencia mes a mes.
type TendenciaMensual struct {
	Mes               string          `json:"mes"`
	Cantidad          int64           `json:"cantidad"`
	Ingresos          decimal.Decimal `json:"ingresos"`
	CrecimientoMonto  float64         `json:"crecimiento_monto"`
	CrecimientoVentas float64         `json:"crecimiento_ventas"`
}

// TendenciasVentas arma la serie mensual con el crecimiento porcentual
// respecto del mes anterior. El primer mes reporta crecimiento 0.
func TendenciasVentas(db *gorm.DB, meses int) ([]TendenciaMensual, error) {
	if meses <= 0 {
		meses = 12
	}
	desde := time.Now().AddDate(0, -meses, 0)

	var notas []models.SalesNote
	err := db.Where("fecha >= ? AND estado <> ?", desde, "anulada").
		Order("fecha ASC").
		Find(&notas).Error
	if err != nil {
		return nil, err
	}

	type bucket struct {
		cantidad int64
		ingresos decimal.Decimal
	}
	porMes := make(map[string]*bucket)
	claves := []string{}
	for _, nota := range notas {
		mes := nota.Fecha.Format("2006-01")
		b, ok := porMes[mes]
		if !ok {
			b = &bucket{ingresos: decimal.Zero}
			porMes[mes] = b
			claves = append(claves, mes)
		}
		b.cantidad++
		b.ingresos = b.ingresos.Add(nota.Total)
	}
	sort.Strings(claves)

	serie := make([]TendenciaMensual, 0, len(claves))
	for i, mes := range claves {
		b := porMes[mes]
		punto := TendenciaMensual{Mes: mes, Cantidad: b.cantidad, Ingresos: b.ingresos}
		if i > 0 {
			anterior := porMes[claves[i-1]]
			if !anterior.ingresos.IsZero() {
				crecimiento, _ := b.ingresos.Sub(anterior.ingresos).
					Div(anterior.ingresos).Mul(decimal.NewFromInt(100)).Round(2).Float64()
				punto.CrecimientoMonto = crecimiento
			}
			if anterior.cantidad > 0 {
				punto.CrecimientoVentas = float64(b.cantidad-anterior.cantidad) / float64(anterior.cantidad) * 100
			}
		}
		serie = append(serie, punto)
	}
	return serie, nil
}

// Cohorte es una camada de clientes agrupada por el mes de su primera
// compra, con la retención de los 6 meses siguientes.
type Cohorte struct {
	Mes       string    `json:"mes"`
	Clientes  int       `json:"clientes"`
	Retencion []float64 `json:"retencion"`
}

// CohortesRetencion agrupa clientes por mes de primera compra y calcula la
// fracción que vuelve a comprar en cada uno de los 6 meses siguientes.
func CohortesRetencion(db *gorm.DB) ([]Cohorte, error) {
	var notas []models.SalesNote
	err := db.Where("estado <> ?", "anulada").Order("fecha ASC").Find(&notas).Error
	if err != nil {
		return nil, err
	}

	primeraCompra := make(map[uint]time.Time)
	comprasPorMes := make(map[uint]map[string]bool)
	for _, nota := range notas {
		if _, ok := primeraCompra[nota.ClienteID]; !ok {
			primeraCompra[nota.ClienteID] = nota.Fecha
			comprasPorMes[nota.ClienteID] = make(map[string]bool)
		}
		comprasPorMes[nota.ClienteID][nota.Fecha.Format("2006-01")] = true
	}

	miembros := make(map[string][]uint)
	for cliente, fecha := range primeraCompra {
		mes := fecha.Format("2006-01")
		miembros[mes] = append(miembros[mes], cliente)
	}

	meses := make([]string, 0, len(miembros))
	for mes := range miembros {
		meses = append(meses, mes)
	}
	sort.Strings(meses)

	cohortes := make([]Cohorte, 0, len(meses))
	for _, mes := range meses {
		clientes := miembros[mes]
		inicio, _ := time.Parse("2006-01", mes)
		retencion := make([]float64, 6)
		for offset := 1; offset <= 6; offset++ {
			objetivo := inicio.AddDate(0, offset, 0).Format("2006-01")
			activos := 0
			for _, cliente := range clientes {
				if comprasPorMes[cliente][objetivo] {
					activos++
				}
			}
			retencion[offset-1] = float64(activos) / float64(len(clientes))
		}
		cohortes = append(cohortes, Cohorte{Mes: mes, Clientes: len(clientes), Retencion: retencion})
	}
	return cohortes, nil
}

// CreditoEnCartera es un crédito abierto con su antigüedad.
type CreditoEnCartera struct {
	CreditoID       uint            `json:"credito_id"`
	Cliente         string          `json:"cliente"`
	SaldoPendiente  decimal.Decimal `json:"saldo_pendiente"`
	Estado          string          `json:"estado"`
	DiasTranscurridos int           `json:"dias_transcurridos"`
}

// CuotaPorVencer es una cuota que vence dentro de los próximos 15 días.
type CuotaPorVencer struct {
	CuotaID          uint            `json:"cuota_id"`
	CreditoID        uint            `json:"credito_id"`
	Cliente          string          `json:"cliente"`
	Numero           int             `json:"numero"`
	Monto            decimal.Decimal `json:"monto"`
	FechaVencimiento time.Time       `json:"fecha_vencimiento"`
	DiasRestantes    int             `json:"dias_restantes"`
}

// CarteraResumen es el análisis completo de la cartera de créditos.
type CarteraResumen struct {
	Creditos        []CreditoEnCartera         `json:"creditos"`
	PorCliente      map[string]decimal.Decimal `json:"exposicion_por_cliente"`
	CuotasPorVencer []CuotaPorVencer           `json:"cuotas_por_vencer"`
}

// CarteraCreditos analiza la cartera abierta: antigüedad de cada crédito,
// exposición por cliente y cuotas que vencen en los próximos 15 días.
func CarteraCreditos(db *gorm.DB) (*CarteraResumen, error) {
	var creditos []models.CreditSale
	err := db.Preload("Cliente").
		Where("estado <> ?", "pagado").
		Find(&creditos).Error
	if err != nil {
		return nil, err
	}

	ahora := time.Now()
	resumen := CarteraResumen{
		Creditos:        []CreditoEnCartera{},
		PorCliente:      map[string]decimal.Decimal{},
		CuotasPorVencer: []CuotaPorVencer{},
	}
	clientePorCredito := make(map[uint]string)
	for _, c := range creditos {
		nombre := fmt.Sprintf("%s %s", c.Cliente.Nombre, c.Cliente.Apellido)
		clientePorCredito[c.ID] = nombre
		resumen.Creditos = append(resumen.Creditos, CreditoEnCartera{
			CreditoID:         c.ID,
			Cliente:           nombre,
			SaldoPendiente:    c.SaldoPendiente,
			Estado:            c.Estado,
			DiasTranscurridos: int(ahora.Sub(c.FechaInicio).Hours() / 24),
		})
		acumulado, ok := resumen.PorCliente[nombre]
		if !ok {
			acumulado = decimal.Zero
		}
		resumen.PorCliente[nombre] = acumulado.Add(c.SaldoPendiente)
	}

	limite := ahora.AddDate(0, 0, 15)
	var cuotas []models.CreditInstallment
	err = db.Where("pagada = ? AND fecha_vencimiento >= ? AND fecha_vencimiento <= ?",
		false, ahora, limite).
		Order("fecha_vencimiento ASC").
		Find(&cuotas).Error
	if err != nil {
		return nil, err
	}
	for _, cuota := range cuotas {
		resumen.CuotasPorVencer = append(resumen.CuotasPorVencer, CuotaPorVencer{
			CuotaID:          cuota.ID,
			CreditoID:        cuota.CreditSaleID,
			Cliente:          clientePorCredito[cuota.CreditSaleID],
			Numero:           cuota.Numero,
			Monto:            cuota.Monto,
			FechaVencimiento: cuota.FechaVencimiento,
			DiasRestantes:    int(cuota.FechaVencimiento.Sub(ahora).Hours() / 24),
		})
	}
	return &resumen, nil
}

// ParAsociado es un par de productos que suelen comprarse juntos.
type ParAsociado struct {
	ProductoA  string  `json:"producto_a"`
	ProductoB  string  `json:"producto_b"`
	Frecuencia int     `json:"frecuencia"`
	Soporte    float64 `json:"soporte"`
	Confianza  float64 `json:"confianza"`
	Lift       float64 `json:"lift"`
}

// MarketBasket busca pares de productos que co-ocurren en las ventas del
// período. Solo reporta pares con al menos minSoporte co-ocurrencias y
// lift mayor a 1.2, ordenados por lift descendente.
func MarketBasket(db *gorm.DB, inicio, fin time.Time, minSoporte int) ([]ParAsociado, error) {
	if minSoporte <= 0 {
		minSoporte = 3
	}

	type linea struct {
		SalesNoteID uint
		ProductID   uint
		Nombre      string
	}
	var lineas []linea
	err := db.Table("detail_notes").
		Select("detail_notes.sales_note_id, detail_notes.product_id, products.nombre").
		Joins("JOIN products ON products.id = detail_notes.product_id").
		Joins("JOIN sales_notes ON sales_notes.id = detail_notes.sales_note_id").
		Where("sales_notes.fecha >= ? AND sales_notes.fecha <= ? AND sales_notes.estado <> ?", inicio, fin, "anulada").
		Where("detail_notes.deleted_at IS NULL").
		Scan(&lineas).Error
	if err != nil {
		return nil, err
	}

	canastas := make(map[uint]map[uint]bool)
	nombres := make(map[uint]string)
	for _, l := range lineas {
		if canastas[l.SalesNoteID] == nil {
			canastas[l.SalesNoteID] = make(map[uint]bool)
		}
		canastas[l.SalesNoteID][l.ProductID] = true
		nombres[l.ProductID] = l.Nombre
	}

	totalVentas := len(canastas)
	if totalVentas == 0 {
		return []ParAsociado{}, nil
	}

	frecuenciaProducto := make(map[uint]int)
	type par struct{ a, b uint }
	frecuenciaPar := make(map[par]int)
	for _, canasta := range canastas {
		ids := make([]uint, 0, len(canasta))
		for id := range canasta {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			frecuenciaProducto[id]++
		}
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				frecuenciaPar[par{ids[i], ids[j]}]++
			}
		}
	}

	pares := []ParAsociado{}
	for p, freq := range frecuenciaPar {
		if freq < minSoporte {
			continue
		}
		soporte := float64(freq) / float64(totalVentas)
		confianza := float64(freq) / float64(frecuenciaProducto[p.a])
		probB := float64(frecuenciaProducto[p.b]) / float64(totalVentas)
		lift := confianza / probB
		if lift <= 1.2 {
			continue
		}
		pares = append(pares, ParAsociado{
			ProductoA:  nombres[p.a],
			ProductoB:  nombres[p.b],
			Frecuencia: freq,
			Soporte:    soporte,
			Confianza:  confianza,
			Lift:       lift,
		})
	}

	sort.Slice(pares, func(i, j int) bool { return pares[i].Lift > pares[j].Lift })
	return pares, nil
}
