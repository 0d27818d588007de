package main

import (
	"flag"
	"os"

	"courtbook-api/core/config"
	"courtbook-api/core/logger"
	"courtbook-api/core/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "optional config file (yaml, json or toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load config error", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Pretty)

	if err := server.Run(cfg); err != nil {
		logger.Error("run server error", err)
		os.Exit(1)
	}
}
