package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/infra/db"
	"storefront/internal/server"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

func main() {
	// .envが無いのは本番では普通
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := server.Build(ctx, cfg, gormDB)
	if err != nil {
		log.Fatalf("build server: %v", err)
	}

	//Server起動
	if err := server.Start(ctx, e, cfg.Port); err != nil {
		e.Logger.Fatal(err)
	}
}
