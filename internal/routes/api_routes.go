package routes

import (
	"github.com/TaddyRiv/tiendaback/internal/handlers"
	"github.com/TaddyRiv/tiendaback/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterAPIRoutes registra todas las rutas de la API. El login y el
// webhook de la pasarela quedan fuera del middleware de autenticación.
func RegisterAPIRoutes(r *gin.Engine) {
	r.POST("/api/login", handlers.LoginHandler)
	r.POST("/api/pagos/webhook", handlers.WebhookPasarelaHandler)

	api := r.Group("/api", middleware.AuthMiddleware())
	{
		api.GET("/perfil", handlers.PerfilHandler)

		usuarios := api.Group("/usuarios", middleware.RolMiddleware("admin"))
		{
			usuarios.GET("", handlers.ListUsuariosHandler)
			usuarios.POST("", handlers.CreateUsuarioHandler)
			usuarios.PUT("/:id", handlers.UpdateUsuarioHandler)
			usuarios.DELETE("/:id", handlers.DeleteUsuarioHandler)
		}

		productos := api.Group("/productos")
		{
			productos.GET("", handlers.ListProductosHandler)
			productos.GET("/:id", handlers.GetProductoHandler)
			productos.POST("", middleware.RolMiddleware("empleado"), handlers.CreateProductoHandler)
			productos.PUT("/:id", middleware.RolMiddleware("empleado"), handlers.UpdateProductoHandler)
			productos.DELETE("/:id", middleware.RolMiddleware("admin"), handlers.DeleteProductoHandler)
		}

		categorias := api.Group("/categorias")
		{
			categorias.GET("", handlers.ListCategoriasHandler)
			categorias.POST("", middleware.RolMiddleware("empleado"), handlers.CreateCategoriaHandler)
			categorias.PUT("/:id", middleware.RolMiddleware("empleado"), handlers.UpdateCategoriaHandler)
			categorias.DELETE("/:id", middleware.RolMiddleware("admin"), handlers.DeleteCategoriaHandler)
		}

		proveedores := api.Group("/proveedores", middleware.RolMiddleware("empleado"))
		{
			proveedores.GET("", handlers.ListProveedoresHandler)
			proveedores.POST("", handlers.CreateProveedorHandler)
			proveedores.POST("/ofertas", handlers.CreateOfertaProveedorHandler)
		}

		ventas := api.Group("/ventas", middleware.RolMiddleware("empleado"))
		{
			ventas.GET("", handlers.ListVentasHandler)
			ventas.GET("/:id", handlers.GetVentaHandler)
			ventas.POST("", handlers.CreateVentaHandler)
			ventas.POST("/:id/anular", middleware.RolMiddleware("admin"), handlers.AnularVentaHandler)
		}

		creditos := api.Group("/creditos", middleware.RolMiddleware("empleado"))
		{
			creditos.GET("", handlers.ListCreditosHandler)
			creditos.GET("/resumen", handlers.ResumenCreditosHandler)
			creditos.GET("/:id", handlers.GetCreditoHandler)
			creditos.POST("/cuotas/:id/pagar", handlers.PagarCuotaHandler)
			creditos.GET("/config", handlers.GetCreditConfigHandler)
			creditos.POST("/config", middleware.RolMiddleware("admin"), handlers.CreateCreditConfigHandler)
		}

		pagos := api.Group("/pagos", middleware.RolMiddleware("empleado"))
		{
			pagos.POST("/intentos", handlers.CreateIntentHandler)
		}

		reportes := api.Group("/reportes", middleware.RolMiddleware("empleado"))
		{
			reportes.GET("/dashboard", handlers.DashboardHandler)
			reportes.GET("/ventas-periodo", handlers.VentasPorPeriodoHandler)
			reportes.GET("/top-productos", handlers.TopProductosHandler)
			reportes.GET("/bajo-stock", handlers.BajoStockHandler)
			reportes.GET("/ventas-por-dia", handlers.VentasPorDiaHandler)
			reportes.GET("/categorias", handlers.CategoriasReporteHandler)
			reportes.GET("/empleados", handlers.EmpleadosReporteHandler)
			reportes.GET("/clientes-frecuentes", handlers.ClientesFrecuentesHandler)
			reportes.GET("/flujo-caja", handlers.FlujoCajaHandler)
			reportes.GET("/rotacion", handlers.RotacionHandler)
			reportes.GET("/rfm", handlers.RFMHandler)
			reportes.GET("/tendencias", handlers.TendenciasHandler)
			reportes.GET("/cohortes", handlers.CohortesHandler)
			reportes.GET("/cartera", handlers.CarteraHandler)
			reportes.GET("/market-basket", handlers.MarketBasketHandler)
			reportes.POST("/dinamico", handlers.DinamicoHandler)
			reportes.POST("/exportar", handlers.ExportarHandler)
			reportes.GET("/historial", handlers.HistorialHandler)
			reportes.DELETE("/cache", middleware.RolMiddleware("admin"), handlers.LimpiarCacheHandler)
		}

		ml := api.Group("/ml", middleware.RolMiddleware("empleado"))
		{
			ml.GET("/productos/:id/analisis", handlers.AnalizarProductoHandler)
			ml.GET("/productos/:id/prediccion", handlers.PredecirDemandaHandler)
			ml.GET("/productos/:id/recomendacion", handlers.RecomendarProductoHandler)
			ml.GET("/recomendaciones", handlers.RecomendacionesHandler)
			ml.POST("/entrenar", middleware.RolMiddleware("admin"), handlers.EntrenarModeloHandler)
		}

		ia := api.Group("/ia", middleware.RolMiddleware("empleado"))
		{
			ia.POST("/consulta", handlers.ConsultaTextoHandler)
			ia.POST("/voz", handlers.ConsultaVozHandler)
		}
	}
}
