package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TaddyRiv/tiendaback/config"
	"github.com/TaddyRiv/tiendaback/internal/handlers"
	"github.com/TaddyRiv/tiendaback/internal/reportes"
	"github.com/TaddyRiv/tiendaback/internal/routes"
	"github.com/TaddyRiv/tiendaback/models"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No se encontró archivo .env, se usan las variables del entorno")
	}

	config.LoadSettings()
	config.ConnectDB()
	config.ConnectRedis()

	if err := config.InitGemini(); err != nil {
		// El asistente de IA es opcional, el resto del sistema funciona igual
		slog.Warn("Asistente de IA deshabilitado", "error", err)
	}

	if err := config.DB.AutoMigrate(
		&models.Usuario{},
		&models.Category{},
		&models.Provider{},
		&models.Product{},
		&models.ProviderProduct{},
		&models.SalesNote{},
		&models.DetailNote{},
		&models.CashPayment{},
		&models.PaymentIntent{},
		&models.CreditConfig{},
		&models.CreditSale{},
		&models.CreditInstallment{},
		&models.CreditPayment{},
		&models.HistorialReporte{},
	); err != nil {
		slog.Error("Error en la migración de la base de datos", "error", err)
		os.Exit(1)
	}

	handlers.InitReporteCache(reportes.NewCache(config.RDB, 5*time.Minute))

	r := gin.Default()

	if os.Getenv("PROMETHEUS_ENABLED") == "true" {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	routes.RegisterAPIRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	slog.Info("Servidor iniciado", "puerto", port)
	if err := r.Run(":" + port); err != nil {
		slog.Error("El servidor terminó con error", "error", err)
		os.Exit(1)
	}
}
