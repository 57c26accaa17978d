package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/TaddyRiv/tiendaback/config"
	"github.com/TaddyRiv/tiendaback/models"
)

// ProductoRequest son los datos de alta o edición de un producto.
type ProductoRequest struct {
	Nombre      string          `json:"nombre" binding:"required"`
	Descripcion string          `json:"descripcion"`
	Precio      decimal.Decimal `json:"precio" binding:"required"`
	Stock       int             `json:"stock"`
	CategoryID  uint            `json:"category_id" binding:"required"`
}

// ListProductosHandler lista productos con paginación, filtrables por
// categoría o por nombre.
func ListProductosHandler(c *gin.Context) {
	consulta := config.DB.Model(&models.Product{}).Preload("Category")
	if categoria := c.Query("category_id"); categoria != "" {
		consulta = consulta.Where("category_id = ?", categoria)
	}
	if nombre := c.Query("buscar"); nombre != "" {
		consulta = consulta.Where("nombre LIKE ?", "%"+nombre+"%")
	}

	var totalRows int64
	if err := consulta.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al contar los productos"})
		return
	}
	var productos []models.Product
	if err := consulta.Scopes(Paginate(c)).Order("id ASC").Find(&productos).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al listar los productos"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, productos, totalRows))
}

// GetProductoHandler devuelve un producto con su categoría.
func GetProductoHandler(c *gin.Context) {
	var producto models.Product
	if err := config.DB.Preload("Category").First(&producto, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Producto no encontrado"})
		return
	}
	c.JSON(http.StatusOK, producto)
}

// CreateProductoHandler da de alta un producto.
func CreateProductoHandler(c *gin.Context) {
	var req ProductoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}
	if req.Precio.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El precio no puede ser negativo"})
		return
	}
	if req.Stock < 0 {
		req.Stock = 0
	}

	var categoria models.Category
	if err := config.DB.First(&categoria, req.CategoryID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "La categoría no existe"})
		return
	}

	producto := models.Product{
		Nombre:      req.Nombre,
		Descripcion: req.Descripcion,
		Precio:      req.Precio,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
	}
	if err := config.DB.Create(&producto).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo crear el producto"})
		return
	}
	c.JSON(http.StatusCreated, producto)
}

// UpdateProductoHandler edita un producto. El stock nunca queda negativo.
func UpdateProductoHandler(c *gin.Context) {
	var producto models.Product
	if err := config.DB.First(&producto, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Producto no encontrado"})
		return
	}
	var req ProductoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}
	if req.Precio.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El precio no puede ser negativo"})
		return
	}

	producto.Nombre = req.Nombre
	producto.Descripcion = req.Descripcion
	producto.Precio = req.Precio
	producto.CategoryID = req.CategoryID
	producto.Stock = req.Stock
	if producto.Stock < 0 {
		producto.Stock = 0
	}
	if err := config.DB.Save(&producto).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo actualizar el producto"})
		return
	}
	c.JSON(http.StatusOK, producto)
}

// DeleteProductoHandler borra (soft delete) un producto.
func DeleteProductoHandler(c *gin.Context) {
	if err := config.DB.Delete(&models.Product{}, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo eliminar el producto"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Producto eliminado"})
}

// --- Categorías ---

type CategoriaRequest struct {
	Nombre      string `json:"nombre" binding:"required"`
	Descripcion string `json:"descripcion"`
}

func ListCategoriasHandler(c *gin.Context) {
	var categorias []models.Category
	if err := config.DB.Order("nombre ASC").Find(&categorias).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al listar las categorías"})
		return
	}
	c.JSON(http.StatusOK, categorias)
}

func CreateCategoriaHandler(c *gin.Context) {
	var req CategoriaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}
	categoria := models.Category{Nombre: req.Nombre, Descripcion: req.Descripcion}
	if err := config.DB.Create(&categoria).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No se pudo crear la categoría (¿nombre repetido?)"})
		return
	}
	c.JSON(http.StatusCreated, categoria)
}

func UpdateCategoriaHandler(c *gin.Context) {
	var categoria models.Category
	if err := config.DB.First(&categoria, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Categoría no encontrada"})
		return
	}
	var req CategoriaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}
	categoria.Nombre = req.Nombre
	categoria.Descripcion = req.Descripcion
	if err := config.DB.Save(&categoria).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo actualizar la categoría"})
		return
	}
	c.JSON(http.StatusOK, categoria)
}

func DeleteCategoriaHandler(c *gin.Context) {
	var enUso int64
	config.DB.Model(&models.Product{}).Where("category_id = ?", c.Param("id")).Count(&enUso)
	if enUso > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "La categoría tiene productos asociados"})
		return
	}
	if err := config.DB.Delete(&models.Category{}, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo eliminar la categoría"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Categoría eliminada"})
}

// --- Proveedores ---

type ProveedorRequest struct {
	Nombre    string `json:"nombre" binding:"required"`
	Telefono  string `json:"telefono"`
	Email     string `json:"email"`
	Direccion string `json:"direccion"`
}

func ListProveedoresHandler(c *gin.Context) {
	var proveedores []models.Provider
	if err := config.DB.Order("nombre ASC").Find(&proveedores).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al listar los proveedores"})
		return
	}
	c.JSON(http.StatusOK, proveedores)
}

func CreateProveedorHandler(c *gin.Context) {
	var req ProveedorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}
	proveedor := models.Provider{
		Nombre: req.Nombre, Telefono: req.Telefono,
		Email: req.Email, Direccion: req.Direccion,
	}
	if err := config.DB.Create(&proveedor).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo crear el proveedor"})
		return
	}
	c.JSON(http.StatusCreated, proveedor)
}

// OfertaProveedorRequest vincula un proveedor con un producto y su precio
// de compra.
type OfertaProveedorRequest struct {
	ProviderID   uint            `json:"provider_id" binding:"required"`
	ProductID    uint            `json:"product_id" binding:"required"`
	PrecioCompra decimal.Decimal `json:"precio_compra" binding:"required"`
}

func CreateOfertaProveedorHandler(c *gin.Context) {
	var req OfertaProveedorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}
	if req.PrecioCompra.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El precio de compra no puede ser negativo"})
		return
	}

	var existente models.ProviderProduct
	err := config.DB.Where("provider_id = ? AND product_id = ?", req.ProviderID, req.ProductID).
		First(&existente).Error
	if err == nil {
		existente.PrecioCompra = req.PrecioCompra
		if err := config.DB.Save(&existente).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo actualizar la oferta"})
			return
		}
		c.JSON(http.StatusOK, existente)
		return
	}
	if err != gorm.ErrRecordNotFound {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al buscar la oferta"})
		return
	}

	oferta := models.ProviderProduct{
		ProviderID:   req.ProviderID,
		ProductID:    req.ProductID,
		PrecioCompra: req.PrecioCompra,
	}
	if err := config.DB.Create(&oferta).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No se pudo crear la oferta (¿proveedor o producto inexistente?)"})
		return
	}
	c.JSON(http.StatusCreated, oferta)
}
