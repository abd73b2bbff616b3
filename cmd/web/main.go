package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"attendcli/internal/app"
)

func main() {
	// Load .env if present; deployed environments set variables directly
	_ = godotenv.Load()

	// Create application instance
	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start application
	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
