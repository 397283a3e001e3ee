package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/cmd/printer-helper/app"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/configs"
)

func main() {
	env := os.Getenv("APP_ENV") // dev | shop
	configDir := os.Getenv("PRINTERHELPER_CONFIG_DIR")
	if configDir == "" {
		configDir = "configs"
	}

	cfg, err := configs.Load(configDir, env)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := app.InitWithConfig(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer cleanup()

	if err := a.Run(ctx); err != nil {
		a.Log.Error("printer-helper stopped", "error", err)
		cleanup()
		os.Exit(1)
	}
}
