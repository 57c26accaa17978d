package config

import (
	"log/slog"
	"os"
)

var JwtKey []byte

// LoadSettings lee la configuración general del entorno.
func LoadSettings() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		slog.Error("Error crítico: la variable de entorno JWT_SECRET no está definida.")
		os.Exit(1)
	}
	JwtKey = []byte(secret)
}
