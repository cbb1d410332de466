package main

import (
	"flag"
	"log"
	"os"

	"nw_quizbot/internal/app"
	"nw_quizbot/internal/config"
	"nw_quizbot/internal/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to load .env: %v", err)
	}

	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "config.yaml"
	}
	configPath := flag.String("config", defaultPath, "path to the YAML config")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config %s: %v", *configPath, err)
	}

	zlog, err := logger.New(logger.Config{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	bot, err := app.NewBotApp(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to start", zap.Error(err))
	}

	if err := bot.Run(); err != nil {
		zlog.Error("bot stopped with error", zap.Error(err))
		os.Exit(1)
	}
	zlog.Info("bot stopped")
}
