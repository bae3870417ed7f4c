package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"devfest-certs/certificate-portal/certificate-portal-backend/internal/config"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "certs.db")}

	db, err := Open(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	assert.True(t, db.Migrator().HasTable("attendees"))
	assert.True(t, db.Migrator().HasTable("import_batches"))
	assert.True(t, db.Migrator().HasTable("settings"))
	assert.NoError(t, Ping(db, time.Second))
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"}, zap.NewNop())

	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "certs", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=certs sslmode=disable", dsn(cfg))
}
