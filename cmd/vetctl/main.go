package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "v0.0.1-default"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if err := newApp(os.Stdout, logger).Run(context.Background(), os.Args); err != nil {
		logger.Fatal("fatal error", zap.Error(err))
	}
}
