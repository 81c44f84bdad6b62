package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"organize/internal/config"
	"organize/internal/core"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", UserID: "u1", AMQPURL: "amqp://h"}
	bc, err := FromAppConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, bc.Type)
	assert.Equal(t, "u1", bc.UserID)
	assert.Equal(t, "amqp://h", bc.AMQPURL)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)
	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, Config{Type: MemoryBackend, UserID: "u"}.Validate())
	assert.Error(t, Config{Type: MemoryBackend}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend, UserID: "u"}.Validate())
	assert.Error(t, Config{Type: "postgres", UserID: "u"}.Validate())
}

func TestCreateBackend_MemoryDefaults(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, UserID: "u1"})
	require.NoError(t, err)
	defer res.Cleanup()

	assert.Nil(t, res.Publisher)
	snap, err := res.Repository.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.DefaultCards(), snap.Cards)
}

func TestCreateBackend_SQLiteWithSeed(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.toml")
	doc := `
[[cards]]
id = "blue"
name = "Blue"
limit = "1000"
closing_day = 5
due_day = 12

[[adjustments]]
description = "Opening balance"
amount = "250,00"
category = "Previous Balance"
date = "2024-01-01"
`
	require.NoError(t, os.WriteFile(seedPath, []byte(doc), 0o644))

	ctx := context.Background()
	res, err := NewFactory(nil).CreateBackend(ctx, Config{
		Type:         SQLiteBackend,
		UserID:       "u1",
		SeedFile:     seedPath,
		SQLiteDBPath: filepath.Join(dir, "ledger.db"),
	})
	require.NoError(t, err)
	defer res.Cleanup()

	snap, err := res.Repository.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Cards, 1)
	assert.Equal(t, "blue", snap.Cards[0].ID)
	require.Len(t, snap.Transactions, 1)
	assert.True(t, snap.Transactions[0].IsAdjustment)
}

func TestCreateBackend_BadSeed(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:     MemoryBackend,
		UserID:   "u1",
		SeedFile: filepath.Join(t.TempDir(), "missing.toml"),
	})
	assert.ErrorContains(t, err, "load seed")
}
