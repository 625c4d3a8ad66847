package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/agenthands/attendance/internal/config"
	"github.com/agenthands/attendance/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("Warning: could not load %s: %v. Using defaults", cfgPath, err)
		cfg = config.Default()
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	srv, err := server.NewServer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}
	defer srv.Close()

	r := srv.SetupRouter()

	log.Printf("Starting server on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal(err)
	}
}
