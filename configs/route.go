package configs

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/juliettescloset/storefront-api/api"
	"github.com/juliettescloset/storefront-api/internal/events"
	"github.com/juliettescloset/storefront-api/internal/repository"
)

// SetupRoutes wires middleware and the API surface onto the router.
func SetupRoutes(router *gin.Engine, cfg *Config, repo repository.ProductRepository, bus *events.Bus) {
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "API is running",
		})
	})

	apiGroup := router.Group("/api")
	{
		products := apiGroup.Group("/products")
		{
			api.RegisterProductRoutes(products, repo, bus)
		}

		checkout := apiGroup.Group("/checkout")
		{
			api.RegisterCheckoutRoutes(checkout, repo, cfg.Checkout.WhatsAppNumber)
		}
	}
}

func CORSMiddleware() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
}
