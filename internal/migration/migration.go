package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Source gömülü migration dosyalarını döner
func Source() (fs.FS, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("migration dizini açılamadı: %w", err)
	}
	return sub, nil
}

// NewMigrator paylaşılan *sql.DB üzerinde migrate instance'ı oluşturur.
// Close çağrısı db'yi de kapatır; sunucu içinde kullanırken Close çağırmayın.
func NewMigrator(db *sql.DB) (*migrate.Migrate, error) {
	if db == nil {
		return nil, errors.New("migration için veritabanı bağlantısı gerekli")
	}

	sub, err := Source()
	if err != nil {
		return nil, err
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("migration kaynağı oluşturulamadı: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver oluşturulamadı: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migrator oluşturulamadı: %w", err)
	}
	return m, nil
}

// RunMigrations bekleyen tüm migration'ları uygular
func RunMigrations(db *sql.DB) error {
	m, err := NewMigrator(db)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration uygulanamadı: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migration versiyonu okunamadı: %w", err)
	}

	log.Info().
		Uint("version", version).
		Bool("dirty", dirty).
		Msg("🗄️  Migration'lar güncel")
	return nil
}
