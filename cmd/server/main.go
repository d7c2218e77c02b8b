package main

import (
	"os"

	_ "kpiboard/docs"
	"kpiboard/internal/config"
	"kpiboard/internal/logger"
	"kpiboard/internal/server"
)

// @title           KPI Board API
// @version         1.0
// @description     API for KPI dashboards with RAG status, aggregation and share links.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @schemes http
func main() {
	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	s, err := server.Init(cfg, log)
	if err != nil {
		log.Error("server initialization failed", "error", err)
		os.Exit(1)
	}

	if err := s.Run(); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
