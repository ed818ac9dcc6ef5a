package restapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter builds the gin engine with the API routes under /api/v1.
func SetupRouter(handler *DeployerHandler, logger *zap.Logger, corsOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), AccessLog(logger.Named("http")))

	if len(corsOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     corsOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/networks", handler.ListNetworksHandler)
		v1.GET("/recommendations", handler.RecommendHandler)
		v1.POST("/compile", handler.CompileHandler)

		v1.POST("/sessions", handler.CreateSessionHandler)
		sessions := v1.Group("/sessions/:sessionID")
		{
			sessions.GET("", handler.GetSessionHandler)
			sessions.DELETE("", handler.DeleteSessionHandler)
			sessions.POST("/network", handler.SelectNetworkHandler)
			sessions.POST("/switch", handler.SwitchNetworkHandler)
			sessions.POST("/wallet/connect", handler.ConnectWalletHandler)
			sessions.POST("/wallet/disconnect", handler.DisconnectWalletHandler)
			sessions.POST("/wallet/chain", handler.WalletChainHandler)
			sessions.POST("/deployments", handler.DeployHandler)
			sessions.GET("/deployment", handler.GetDeploymentHandler)
		}
	}

	router.GET("/healthz", handler.HealthHandler)
	return router
}
