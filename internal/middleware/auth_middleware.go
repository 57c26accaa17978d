package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/TaddyRiv/tiendaback/config"
	"github.com/TaddyRiv/tiendaback/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// CachedUserData agrupa los datos del usuario que viajan en el contexto
// de cada request. Se cachea en Redis para no golpear la base en cada una.
type CachedUserData struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Nombre string `json:"nombre"`
	Rol    string `json:"rol"`
}

// AuthMiddleware valida el token JWT y carga los datos del usuario.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			handleAuthError(c, "Token de autorización no provisto")
			return
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			handleAuthError(c, "Formato de encabezado Authorization inválido")
			return
		}
		tokenStr := parts[1]

		token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("método de firma inesperado: %v", token.Header["alg"])
			}
			return config.JwtKey, nil
		})
		if err != nil || !token.Valid {
			handleAuthError(c, "Token inválido o expirado")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			handleAuthError(c, "Claims del token inválidos")
			return
		}
		userIDFloat, ok := claims["user_id"].(float64)
		if !ok {
			handleAuthError(c, "ID de usuario inválido en el token")
			return
		}
		userID := uint(userIDFloat)

		cacheKey := fmt.Sprintf("usuario:%d:datos", userID)
		if config.RDB != nil {
			cached, err := config.RDB.Get(config.Ctx, cacheKey).Result()
			if err == nil {
				var userData CachedUserData
				if json.Unmarshal([]byte(cached), &userData) == nil {
					setContextAndProceed(c, &userData)
					return
				}
				slog.Warn("Datos de usuario cacheados ilegibles", "user_id", userID)
			} else if err != redis.Nil {
				slog.Error("Fallo el GET de Redis", "error", err, "user_id", userID)
			}
		}

		var usuario models.Usuario
		if err := config.DB.First(&usuario, userID).Error; err != nil {
			handleAuthError(c, "El usuario del token no existe")
			return
		}
		if !usuario.Activo {
			handleAuthError(c, "Usuario deshabilitado")
			return
		}

		userData := CachedUserData{
			UserID: usuario.ID,
			Email:  usuario.Email,
			Nombre: usuario.Nombre + " " + usuario.Apellido,
			Rol:    usuario.Rol,
		}
		if config.RDB != nil {
			if jsonData, err := json.Marshal(userData); err == nil {
				if err := config.RDB.Set(config.Ctx, cacheKey, jsonData, 10*time.Minute).Err(); err != nil {
					slog.Error("No se pudo cachear al usuario", "error", err, "user_id", userID)
				}
			}
		}

		setContextAndProceed(c, &userData)
	}
}

func setContextAndProceed(c *gin.Context, userData *CachedUserData) {
	c.Set("user_id", userData.UserID)
	c.Set("email", userData.Email)
	c.Set("nombre", userData.Nombre)
	c.Set("rol", userData.Rol)
	c.Next()
}

// RolMiddleware restringe la ruta a los roles indicados. El admin pasa
// siempre.
func RolMiddleware(rolesPermitidos ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rol, exists := c.Get("rol")
		if !exists {
			c.JSON(http.StatusForbidden, gin.H{"error": "Rol no encontrado en el contexto"})
			c.Abort()
			return
		}
		rolUsuario, ok := rol.(string)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "Formato de rol inválido"})
			c.Abort()
			return
		}
		if rolUsuario == "admin" {
			c.Next()
			return
		}
		for _, permitido := range rolesPermitidos {
			if rolUsuario == permitido {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "Permiso denegado"})
		c.Abort()
	}
}

func handleAuthError(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": message})
	c.Abort()
}
