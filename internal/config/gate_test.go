package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "enthrall.yaml")
	require.NoError(t, os.WriteFile(path, []byte("master: {}\n"), mode))
	require.NoError(t, os.Chmod(path, mode))
	return path
}

func TestCheckOwnershipAcceptsOwnedPrivateFile(t *testing.T) {
	path := writeTemp(t, 0o600)
	assert.NoError(t, CheckOwnership(path))
}

func TestCheckOwnershipRejectsGroupWritable(t *testing.T) {
	path := writeTemp(t, 0o660)
	err := CheckOwnership(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWritableByOthers)
}

func TestCheckOwnershipRejectsWorldWritable(t *testing.T) {
	path := writeTemp(t, 0o606)
	err := CheckOwnership(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWritableByOthers)
}

func TestCheckOwnershipMissingFile(t *testing.T) {
	err := CheckOwnership(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotOwner)
}
