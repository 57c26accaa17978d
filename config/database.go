package config

import (
	"log/slog"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDB() {
	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		slog.Error("Error crítico: la variable de entorno DB_URL no está definida.")
		os.Exit(1)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		slog.Error("Error de conexión a la base de datos", "error", err)
		os.Exit(1)
	}

	DB = db
	slog.Info("Conexión exitosa a la base de datos!")
}
