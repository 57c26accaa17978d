package models

import (
	"gorm.io/gorm"
)

// Usuario representa a un usuario del sistema: administradores y empleados
// operan la tienda, los clientes compran y pueden tener ventas a crédito.
type Usuario struct {
	gorm.Model
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Password string `json:"-" gorm:"not null"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Telefono string `json:"telefono"`
	Rol      string `json:"rol" gorm:"default:'cliente'"` // admin | empleado | cliente
	Activo   bool   `json:"activo" gorm:"default:true"`
}
