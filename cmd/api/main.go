package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sandeepkv93/cms-admin-backend/internal/di"
)

func main() {
	// A missing .env is fine; real environment variables always win.
	_ = godotenv.Load()

	a, err := di.InitializeApp()
	if err != nil {
		log.Fatal(err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := a.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
