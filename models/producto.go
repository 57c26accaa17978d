package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category agrupa productos para los reportes por categoría.
type Category struct {
	gorm.Model
	Nombre      string `json:"nombre" gorm:"uniqueIndex;not null"`
	Descripcion string `json:"descripcion"`
}

// Provider es un proveedor al que se le pueden comprar productos.
type Provider struct {
	gorm.Model
	Nombre    string `json:"nombre" gorm:"not null"`
	Telefono  string `json:"telefono"`
	Email     string `json:"email"`
	Direccion string `json:"direccion"`
}

// Product es un artículo del inventario. El precio es el precio de venta
// al público; el precio de compra vive en ProviderProduct.
type Product struct {
	gorm.Model
	Nombre      string          `json:"nombre" gorm:"not null"`
	Descripcion string          `json:"descripcion"`
	Precio      decimal.Decimal `json:"precio" gorm:"type:numeric(10,2);not null"`
	Stock       int             `json:"stock" gorm:"not null;default:0"`
	CategoryID  uint            `json:"category_id" gorm:"not null;index"`
	Category    Category        `json:"category"`
}

// ProviderProduct vincula un proveedor con un producto que ofrece y el
// precio de compra acordado. Un proveedor lista cada producto una sola vez.
type ProviderProduct struct {
	gorm.Model
	ProviderID   uint            `json:"provider_id" gorm:"not null;uniqueIndex:idx_provider_product"`
	Provider     Provider        `json:"provider"`
	ProductID    uint            `json:"product_id" gorm:"not null;uniqueIndex:idx_provider_product"`
	Product      Product         `json:"product"`
	PrecioCompra decimal.Decimal `json:"precio_compra" gorm:"type:numeric(10,2);not null"`
}
