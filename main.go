package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/hxzem/ticket-control/handler"
)

func init() {
	_ = godotenv.Load()

	requiredEnv := []string{
		"DISCORD_TOKEN",
	}
	for _, env := range requiredEnv {
		if os.Getenv(env) == "" {
			slog.Error("required environment variable not set", slog.String("env", env))
			os.Exit(1)
		}
	}
}

func main() {
	h, err := handler.NewHandler()
	if err != nil {
		slog.Error("NewHandler failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Liveness endpoint for uptime monitors.
	go runLiveness()

	if err := h.Handle(); err != nil {
		slog.Error("Bot failed", slog.Any("err", err))
		os.Exit(1)
	}
}

func livenessRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Bot is Alive")
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
	})
	return r
}

func runLiveness() {
	r := livenessRouter()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	slog.Info("liveness server listening", slog.String("port", port))
	if err := r.Run(":" + port); err != nil {
		slog.Error("liveness server failed", slog.Any("err", err))
	}
}
