package main

import (
	"flag"
	"os"

	"timetracker/internal/config"
	"timetracker/internal/db"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	dir := flag.String("dir", "migrations", "directory holding the migration files")
	down := flag.Bool("down", false, "roll back every migration")
	flag.Parse()

	if p := os.Getenv("CONFIG_PATH"); p != "" && !isFlagSet("config") {
		*configPath = p
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := db.Migrate(cfg.Database, *dir, *down); err != nil {
		log.Fatalf("Error executing migration: %v", err)
	}

	log.Println("Migration completed successfully")
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
