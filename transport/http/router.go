package http

import (
	"github.com/gin-gonic/gin"
	"github.com/layer-3/rangda/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, sessionService *service.SessionService) *gin.Engine {
	router := gin.Default()

	handlers := NewAuthHandlers(authService, sessionService)

	auth := router.Group("/auth")
	{
		auth.POST("/wallet/token", handlers.WalletToken)
		auth.POST("/passkey/registration-options", handlers.PasskeyRegistrationOptions)
		auth.POST("/passkey/verify", handlers.PasskeyVerify)
		auth.POST("/session", handlers.Exchange)
		auth.POST("/refresh", handlers.Refresh)
		auth.POST("/logout", handlers.Logout)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(sessionService))
	{
		api.GET("/me", handlers.Me)
	}

	return router
}
