package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"ewaste-backend/internal/cache"
	"ewaste-backend/internal/config"
	"ewaste-backend/internal/db"
)

// Child tables first; TRUNCATE ... CASCADE would cover it but the output is
// clearer this way.
var tables = []string{
	"request_status_history",
	"volunteer_assignments",
	"recycler_assignments",
	"requests",
	"users",
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Parse()

	fmt.Println("========================================")
	fmt.Println("   Reset Database for Testing")
	fmt.Println("========================================")
	fmt.Println()
	fmt.Println("WARNING: This will DELETE ALL DATA!")
	fmt.Println()
	fmt.Println("This will:")
	fmt.Println("  - Delete all users, including admins")
	fmt.Println("  - Delete all donation requests and their history")
	fmt.Println("  - Delete all recycler and volunteer assignments")
	fmt.Println("  - Reset all ID sequences and flush the read cache")
	fmt.Println()

	if !*yes {
		fmt.Print("Type 'yes' to confirm: ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" {
			fmt.Println("Reset cancelled.")
			return
		}
	}

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	ctx := context.Background()

	if cfg.Database.Driver == config.DriverSQLite {
		// history rows cannot be deleted in place; start from an empty file
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if err := os.Remove(cfg.Database.SQLitePath + suffix); err != nil && !os.IsNotExist(err) {
				log.Fatalf("Failed to remove %s: %v\n", cfg.Database.SQLitePath+suffix, err)
			}
		}
		fmt.Printf("  Removed %s\n", cfg.Database.SQLitePath)
	} else {
		pool, err := db.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("Unable to connect to database: %v\n", err)
		}
		defer pool.Close()

		fmt.Println()
		fmt.Println("Resetting database...")

		stmt := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", "))
		if _, err := pool.Exec(ctx, stmt); err != nil {
			log.Fatalf("Failed to truncate tables: %v\n", err)
		}
		for _, table := range tables {
			fmt.Printf("  Cleared %s\n", table)
		}
	}

	if err := cache.Init(cfg); err != nil {
		log.Printf("Warning: cache unavailable: %v\n", err)
	}
	if err := cache.Flush(ctx); err != nil {
		log.Printf("Warning: failed to flush cache: %v\n", err)
	}
	cache.Close()

	fmt.Println()
	fmt.Println("Database reset successful!")
	fmt.Println()
	fmt.Println("Create an administrator with:")
	fmt.Println("  ewaste-server seed-admin --email <email> --password <password>")
}
