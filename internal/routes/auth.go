package routes

import (
	"github.com/asmaravianti/ecg-compression/internal/handlers"
	"github.com/asmaravianti/ecg-compression/internal/middleware"
	"github.com/gin-gonic/gin"
)

func RegisterAuthRoutes(r gin.IRouter) {
	r.POST("/register", middleware.AuthRateLimit(), handlers.Register)
	r.POST("/login", middleware.AuthRateLimit(), handlers.Login)
}
