package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"

	"github.com/ManuelReschke/BizDesk/internal/pkg/env"
	"github.com/ManuelReschke/BizDesk/internal/pkg/logging"
)

func main() {
	env.SetupEnvFile()
	logging.Setup()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	dsn := strings.TrimSpace(env.GetEnv("DB_DSN", ""))
	if dsn == "" {
		log.Error().Msg("DB_DSN is required")
		os.Exit(78)
	}

	m, err := migrate.New(
		env.GetEnv("MIGRATIONS_SOURCE", "file://migrations"),
		migrationURL(dsn),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize migrations")
	}

	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Warn().AnErr("source", sourceErr).AnErr("db", dbErr).Msg("failed to close migration resources")
		}
	}()

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("migration failed")
		} else if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Msg("no change: database is up to date")
		} else {
			log.Info().Msg("migrations applied")
		}

	case "down":
		if err := m.Steps(-1); err != nil {
			log.Fatal().Err(err).Msg("rollback failed")
		}
		log.Info().Msg("last migration rolled back")

	case "goto":
		if len(os.Args) < 3 {
			log.Fatal().Msg("a version number is required")
		}
		version, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid version number")
		}

		if err := m.Migrate(uint(version)); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Uint64("version", version).Msg("migration failed")
		} else if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Uint64("version", version).Msg("no change: database already at version")
		} else {
			log.Info().Uint64("version", version).Msg("migrated")
		}

	case "status":
		version, dirty, err := m.Version()
		if err != nil {
			if errors.Is(err, migrate.ErrNilVersion) {
				log.Info().Msg("no migrations applied yet")
			} else {
				log.Fatal().Err(err).Msg("failed to read migration version")
			}
		} else {
			log.Info().Uint("version", version).Bool("dirty", dirty).Msg("current migration version")
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

// migrationURL turns a go-sql-driver DSN into a golang-migrate database URL.
func migrationURL(dsn string) string {
	dsn = strings.TrimPrefix(dsn, "mysql://")
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if !strings.Contains(dsn, "multiStatements=") {
		dsn += sep + "multiStatements=true"
	}
	return "mysql://" + dsn
}

func printUsage() {
	fmt.Println("Usage: go run cmd/migrate/main.go [command]")
	fmt.Println("Commands:")
	fmt.Println("  up     - apply all pending migrations")
	fmt.Println("  down   - roll back the last migration")
	fmt.Println("  goto N - migrate to version N")
	fmt.Println("  status - show the current migration version")
}
