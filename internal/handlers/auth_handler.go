package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/TaddyRiv/tiendaback/config"
	"github.com/TaddyRiv/tiendaback/models"
)

// LoginRequest define las credenciales de ingreso.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginHandler valida credenciales y emite un JWT de 24 horas.
func LoginHandler(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}

	var usuario models.Usuario
	if err := config.DB.Where("email = ?", req.Email).First(&usuario).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Credenciales incorrectas"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al buscar el usuario"})
		return
	}
	if !usuario.Activo {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Usuario deshabilitado"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(usuario.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Credenciales incorrectas"})
		return
	}

	claims := jwt.MapClaims{
		"user_id": usuario.ID,
		"email":   usuario.Email,
		"rol":     usuario.Rol,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(config.JwtKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo generar el token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": tokenStr,
		"usuario": gin.H{
			"id":       usuario.ID,
			"email":    usuario.Email,
			"nombre":   usuario.Nombre,
			"apellido": usuario.Apellido,
			"rol":      usuario.Rol,
		},
	})
}

// PerfilHandler devuelve los datos del usuario autenticado.
func PerfilHandler(c *gin.Context) {
	userID := c.GetUint("user_id")
	var usuario models.Usuario
	if err := config.DB.First(&usuario, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Usuario no encontrado"})
		return
	}
	c.JSON(http.StatusOK, usuario)
}
