package handlers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contextoConQuery(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return c
}

func TestRangoFechasExplicito(t *testing.T) {
	c := contextoConQuery("fecha_inicio=2026-05-01&fecha_fin=2026-05-15")

	inicio, fin, err := rangoFechas(c)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), inicio)
	// La fecha fin es inclusiva: cubre hasta el último segundo del día
	assert.Equal(t, time.Date(2026, 5, 15, 23, 59, 59, 0, time.UTC), fin)
}

func TestRangoFechasInvalidas(t *testing.T) {
	_, _, err := rangoFechas(contextoConQuery("fecha_inicio=15-05-2026"))
	assert.Error(t, err)

	_, _, err = rangoFechas(contextoConQuery("fecha_inicio=2026-05-15&fecha_fin=2026-05-01"))
	assert.Error(t, err)
}

func TestRangoFechasPorDefectoEsElMes(t *testing.T) {
	inicio, fin, err := rangoFechas(contextoConQuery(""))
	require.NoError(t, err)

	ahora := time.Now()
	assert.Equal(t, ahora.Year(), inicio.Year())
	assert.Equal(t, ahora.Month(), inicio.Month())
	assert.Equal(t, 1, inicio.Day())
	assert.True(t, fin.After(inicio))
}

func TestRangoPeriodo(t *testing.T) {
	// Miércoles 13 de mayo de 2026
	ahora := time.Date(2026, 5, 13, 15, 30, 0, 0, time.UTC)

	inicio, fin, err := rangoPeriodo("hoy", ahora)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 13, 0, 0, 0, 0, time.UTC), inicio)
	assert.Equal(t, time.Date(2026, 5, 13, 23, 59, 59, 0, time.UTC), fin)

	// La semana arranca el lunes
	inicio, _, err = rangoPeriodo("semana_actual", ahora)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC), inicio)

	inicio, fin, err = rangoPeriodo("mes_anterior", ahora)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), inicio)
	assert.Equal(t, time.Date(2026, 4, 30, 23, 59, 59, 0, time.UTC), fin)

	inicio, _, err = rangoPeriodo("trimestre", ahora)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), inicio)

	inicio, _, err = rangoPeriodo("ano", ahora)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), inicio)

	// Sin período se asume el mes en curso
	inicio, _, err = rangoPeriodo("", ahora)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), inicio)

	_, _, err = rangoPeriodo("bimestre", ahora)
	assert.Error(t, err)
}
