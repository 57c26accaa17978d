package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/TaddyRiv/tiendaback/config"
	"github.com/TaddyRiv/tiendaback/models"
)

// UsuarioRequest define los datos para crear o actualizar un usuario.
type UsuarioRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password"`
	Nombre   string `json:"nombre" binding:"required"`
	Apellido string `json:"apellido"`
	Telefono string `json:"telefono"`
	Rol      string `json:"rol"`
}

var rolesValidos = map[string]bool{"admin": true, "empleado": true, "cliente": true}

// ListUsuariosHandler lista usuarios con paginación, filtrables por rol.
func ListUsuariosHandler(c *gin.Context) {
	consulta := config.DB.Model(&models.Usuario{})
	if rol := c.Query("rol"); rol != "" {
		consulta = consulta.Where("rol = ?", rol)
	}

	var totalRows int64
	if err := consulta.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al contar los usuarios"})
		return
	}

	var usuarios []models.Usuario
	if err := consulta.Scopes(Paginate(c)).Order("id ASC").Find(&usuarios).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al listar los usuarios"})
		return
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, usuarios, totalRows))
}

// CreateUsuarioHandler registra un usuario nuevo.
func CreateUsuarioHandler(c *gin.Context) {
	var req UsuarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}
	if req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "La contraseña es obligatoria"})
		return
	}
	if req.Rol == "" {
		req.Rol = "cliente"
	}
	if !rolesValidos[req.Rol] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rol inválido: " + req.Rol})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo procesar la contraseña"})
		return
	}

	usuario := models.Usuario{
		Email:    req.Email,
		Password: string(hash),
		Nombre:   req.Nombre,
		Apellido: req.Apellido,
		Telefono: req.Telefono,
		Rol:      req.Rol,
		Activo:   true,
	}
	if err := config.DB.Create(&usuario).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No se pudo crear el usuario (¿email repetido?)"})
		return
	}
	c.JSON(http.StatusCreated, usuario)
}

// UpdateUsuarioHandler actualiza los datos de un usuario.
func UpdateUsuarioHandler(c *gin.Context) {
	var usuario models.Usuario
	if err := config.DB.First(&usuario, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Usuario no encontrado"})
		return
	}

	var req UsuarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}
	if req.Rol != "" && !rolesValidos[req.Rol] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rol inválido: " + req.Rol})
		return
	}

	usuario.Email = req.Email
	usuario.Nombre = req.Nombre
	usuario.Apellido = req.Apellido
	usuario.Telefono = req.Telefono
	if req.Rol != "" {
		usuario.Rol = req.Rol
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo procesar la contraseña"})
			return
		}
		usuario.Password = string(hash)
	}

	if err := config.DB.Save(&usuario).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo actualizar el usuario"})
		return
	}

	// El cambio de rol invalida los datos cacheados del usuario
	if config.RDB != nil {
		config.RDB.Del(config.Ctx, cacheKeyUsuario(usuario.ID))
	}
	c.JSON(http.StatusOK, usuario)
}

// DeleteUsuarioHandler deshabilita un usuario. No se borran filas para no
// romper el historial de ventas.
func DeleteUsuarioHandler(c *gin.Context) {
	var usuario models.Usuario
	if err := config.DB.First(&usuario, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Usuario no encontrado"})
		return
	}
	if err := config.DB.Model(&usuario).Update("activo", false).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo deshabilitar el usuario"})
		return
	}
	if config.RDB != nil {
		config.RDB.Del(config.Ctx, cacheKeyUsuario(usuario.ID))
	}
	c.JSON(http.StatusOK, gin.H{"message": "Usuario deshabilitado"})
}
