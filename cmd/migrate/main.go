// cmd/migrate/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/onerilhan/go-credit-ledger/internal/config"
	"github.com/onerilhan/go-credit-ledger/internal/db"
	"github.com/onerilhan/go-credit-ledger/internal/logger"
	"github.com/onerilhan/go-credit-ledger/internal/migration"
)

func main() {
	// .env dosyasını yükle
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv, cfg.LogLevel)

	database, err := db.Connect(context.Background(), cfg.GetDSN(), db.PoolOptions{MaxOpenConns: 2})
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Veritabanı bağlantısı başarısız")
	}

	m, err := migration.NewMigrator(database)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Migrator oluşturulamadı")
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Error().AnErr("source", sourceErr).AnErr("db", dbErr).Msg("Migration kaynakları kapatılamadı")
		}
	}()

	switch command {
	case "up":
		report("up", m.Up())
	case "down":
		// Sadece son migration'ı geri al
		report("down", m.Steps(-1))
	case "goto":
		version := parseVersion(os.Args[2:])
		report(fmt.Sprintf("goto %d", version), m.Migrate(uint(version)))
	case "force":
		version := parseVersion(os.Args[2:])
		report(fmt.Sprintf("force %d", version), m.Force(int(version)))
	case "status":
		printStatus(m)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func parseVersion(args []string) uint64 {
	if len(args) < 1 {
		log.Fatal().Msg("Versiyon numarası gerekli")
	}
	version, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		log.Fatal().Err(err).Str("version", args[0]).Msg("Geçersiz versiyon numarası")
	}
	return version
}

func report(op string, err error) {
	switch {
	case err == nil:
		log.Info().Str("op", op).Msg("✅ Migration tamamlandı")
	case errors.Is(err, migrate.ErrNoChange):
		log.Info().Str("op", op).Msg("Değişiklik yok: veritabanı güncel")
	default:
		log.Fatal().Err(err).Str("op", op).Msg("❌ Migration başarısız")
	}
}

func printStatus(m *migrate.Migrate) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Println("Henüz hiç migration uygulanmadı")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Migration versiyonu okunamadı")
	}

	dirtyStatus := ""
	if dirty {
		dirtyStatus = " (dirty)"
	}
	fmt.Printf("Mevcut migration versiyonu: %d%s\n", version, dirtyStatus)
}

func printUsage() {
	fmt.Print(`
Migration CLI Tool

USAGE:
    go run cmd/migrate/main.go <command> [arguments]

COMMANDS:
    status              Show current migration version
    up                  Apply all pending migrations
    down                Roll back the last migration
    goto <version>      Migrate up or down to the given version
    force <version>     Set version without running migrations (clears dirty flag)
`)
}
