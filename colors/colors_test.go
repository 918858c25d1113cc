package colors

import (
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	color.NoColor = true

	assert.Equal(t, "200", Status(200))
	assert.Equal(t, "503", Status(503))
	assert.Equal(t, "[1.5s]", Duration(1500*time.Millisecond))
}
