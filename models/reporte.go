package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
)

// JSONMap guarda los parámetros de un reporte como JSONB.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return errors.New("type assertion to []byte failed")
		}
	}
	return json.Unmarshal(bytes, m)
}

// HistorialReporte es el registro de auditoría de reportes generados.
// Solo se insertan filas, nunca se modifican.
type HistorialReporte struct {
	gorm.Model
	UsuarioID  uint    `json:"usuario_id" gorm:"index"`
	Usuario    Usuario `json:"usuario"`
	Tipo       string  `json:"tipo" gorm:"not null;index"`
	Parametros JSONMap `json:"parametros" gorm:"type:jsonb"`
	Resumen    string  `json:"resumen"`
}
