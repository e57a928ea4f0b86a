package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestNewSQLiteMemory(t *testing.T) {
	db, err := New(&Config{Driver: "sqlite", FilePath: "file::memory:", LogLevel: "silent"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, AutoMigrate(db, &widget{}))
	require.NoError(t, db.Create(&widget{Name: "lamp"}).Error)

	var got widget
	require.NoError(t, db.First(&got).Error)
	assert.Equal(t, "lamp", got.Name)
	assert.NotZero(t, got.ID)
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(&Config{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestDialectorNames(t *testing.T) {
	for _, driver := range []string{"postgres", "mysql", "sqlite"} {
		d, err := Dialector(&Config{Driver: driver, Host: "localhost", Port: 1})
		require.NoError(t, err, driver)
		assert.Equal(t, driver, d.Name())
	}
}
