package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/TaddyRiv/tiendaback/config"
	"github.com/TaddyRiv/tiendaback/internal/pronostico"
)

func productoIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de producto inválido"})
		return 0, false
	}
	return uint(id), true
}

// AnalizarProductoHandler responde el análisis histórico de un producto.
func AnalizarProductoHandler(c *gin.Context) {
	productID, ok := productoIDParam(c)
	if !ok {
		return
	}
	meses, _ := strconv.Atoi(c.Query("meses"))

	analisis, err := pronostico.AnalizarProducto(config.DB, productID, meses)
	if err != nil {
		if errors.Is(err, pronostico.ErrSinHistorial) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al analizar el producto: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, analisis)
}

// PredecirDemandaHandler responde la predicción de demanda. El parámetro
// dias acepta 30, 60 o 90.
func PredecirDemandaHandler(c *gin.Context) {
	productID, ok := productoIDParam(c)
	if !ok {
		return
	}
	dias, _ := strconv.Atoi(c.DefaultQuery("dias", "30"))
	switch dias {
	case 30, 60, 90:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "El horizonte debe ser 30, 60 o 90 días"})
		return
	}

	prediccion, err := pronostico.Predecir(config.DB, productID, dias)
	if err != nil {
		if errors.Is(err, pronostico.ErrSinHistorial) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al predecir la demanda: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, prediccion)
}

// RecomendarProductoHandler responde la recomendación de compra de un
// producto.
func RecomendarProductoHandler(c *gin.Context) {
	productID, ok := productoIDParam(c)
	if !ok {
		return
	}
	dias, _ := strconv.Atoi(c.DefaultQuery("dias", "30"))

	rec, err := pronostico.RecomendarProducto(config.DB, productID, dias)
	if err != nil {
		switch {
		case errors.Is(err, pronostico.ErrProductoNoEncontrado):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, pronostico.ErrSinHistorial):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al recomendar: " + err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, rec)
}

// RecomendacionesHandler corre el recomendador sobre una categoría o sobre
// todo el catálogo.
func RecomendacionesHandler(c *gin.Context) {
	dias, _ := strconv.Atoi(c.DefaultQuery("dias", "30"))

	var (
		recomendaciones []pronostico.Recomendacion
		err             error
	)
	if categoria := c.Query("category_id"); categoria != "" {
		categoryID, parseErr := strconv.ParseUint(categoria, 10, 32)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ID de categoría inválido"})
			return
		}
		recomendaciones, err = pronostico.RecomendarCategoria(config.DB, uint(categoryID), dias)
	} else {
		recomendaciones, err = pronostico.RecomendarTodos(config.DB, dias)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al generar las recomendaciones: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(recomendaciones), "recomendaciones": recomendaciones})
}

// EntrenarModeloHandler reentrena el modelo de regresión y guarda el
// artefacto.
func EntrenarModeloHandler(c *gin.Context) {
	modelo, err := pronostico.Entrenar(config.DB, pronostico.RutaModelo())
	if err != nil {
		if errors.Is(err, pronostico.ErrDatosInsuficientes) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo entrenar el modelo: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Modelo entrenado",
		"muestras":     modelo.Muestras,
		"entrenado_en": modelo.EntrenadoEn,
	})
}
