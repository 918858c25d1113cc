package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateDirIfNotExist(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "data", "db")

	assert.False(t, FileExist(nested))
	assert.NoError(t, CreateDirIfNotExist(nested))
	assert.True(t, FileExist(nested))

	// second call is a no-op
	assert.NoError(t, CreateDirIfNotExist(nested))
}
