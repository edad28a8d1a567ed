package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"timetracker/internal/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate applies the schema migrations found in dir. With down set it
// rolls every migration back instead.
func Migrate(cfg config.Database, dir string, down bool) error {
	migrationsPath, err := findMigrationsPath(dir)
	if err != nil {
		return err
	}

	m, err := migrate.New("file://"+migrationsPath, cfg.URL())
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// findMigrationsPath resolves dir against the working directory and its
// parents so the command works from any folder of the checkout.
func findMigrationsPath(dir string) (string, error) {
	if filepath.IsAbs(dir) {
		return dir, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(cwd, dir)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}
	return "", fmt.Errorf("migrations directory %q not found", dir)
}
