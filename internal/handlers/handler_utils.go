package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

func cacheKeyUsuario(userID uint) string {
	return fmt.Sprintf("usuario:%d:datos", userID)
}

// rangoFechas lee fecha_inicio y fecha_fin (YYYY-MM-DD) del query string.
// Sin parámetros se asume el mes en curso.
func rangoFechas(c *gin.Context) (time.Time, time.Time, error) {
	ahora := time.Now()
	inicio := time.Date(ahora.Year(), ahora.Month(), 1, 0, 0, 0, 0, ahora.Location())
	fin := inicio.AddDate(0, 1, 0).Add(-time.Second)

	if v := c.Query("fecha_inicio"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return inicio, fin, fmt.Errorf("fecha_inicio inválida, use YYYY-MM-DD")
		}
		inicio = parsed
	}
	if v := c.Query("fecha_fin"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return inicio, fin, fmt.Errorf("fecha_fin inválida, use YYYY-MM-DD")
		}
		fin = parsed.AddDate(0, 0, 1).Add(-time.Second)
	}
	if fin.Before(inicio) {
		return inicio, fin, fmt.Errorf("fecha_fin no puede ser anterior a fecha_inicio")
	}
	return inicio, fin, nil
}

// rangoPeriodo convierte un período con nombre en su rango de fechas.
func rangoPeriodo(periodo string, ahora time.Time) (time.Time, time.Time, error) {
	inicioDia := time.Date(ahora.Year(), ahora.Month(), ahora.Day(), 0, 0, 0, 0, ahora.Location())
	switch periodo {
	case "hoy":
		return inicioDia, inicioDia.AddDate(0, 0, 1).Add(-time.Second), nil
	case "semana_actual":
		diasDesdeLunes := (int(ahora.Weekday()) + 6) % 7
		inicio := inicioDia.AddDate(0, 0, -diasDesdeLunes)
		return inicio, inicio.AddDate(0, 0, 7).Add(-time.Second), nil
	case "mes_actual", "":
		inicio := time.Date(ahora.Year(), ahora.Month(), 1, 0, 0, 0, 0, ahora.Location())
		return inicio, inicio.AddDate(0, 1, 0).Add(-time.Second), nil
	case "mes_anterior":
		inicio := time.Date(ahora.Year(), ahora.Month(), 1, 0, 0, 0, 0, ahora.Location()).AddDate(0, -1, 0)
		return inicio, inicio.AddDate(0, 1, 0).Add(-time.Second), nil
	case "trimestre":
		mesInicio := time.Month(((int(ahora.Month())-1)/3)*3 + 1)
		inicio := time.Date(ahora.Year(), mesInicio, 1, 0, 0, 0, 0, ahora.Location())
		return inicio, inicio.AddDate(0, 3, 0).Add(-time.Second), nil
	case "ano", "año":
		inicio := time.Date(ahora.Year(), 1, 1, 0, 0, 0, 0, ahora.Location())
		return inicio, inicio.AddDate(1, 0, 0).Add(-time.Second), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("período desconocido: %q", periodo)
	}
}
