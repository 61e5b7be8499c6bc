package dsslog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLog_FiltersBelowMinLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Warning, false)

	logger.Info("should not appear")
	assert.Empty(t, buf.String())

	logger.Warning("should appear")
	assert.Contains(t, buf.String(), "should appear")
	assert.Contains(t, buf.String(), "WARNING")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, Debug, ParseLevel("DEBUG"))
	assert.Equal(t, Emerg, ParseLevel("EMERG"))
	assert.Equal(t, Info, ParseLevel("nonsense"))
}

func TestLog_FormatsArgs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Debug, false)

	logger.Error("failed after %d attempts", 3)
	line := buf.String()
	assert.True(t, strings.Contains(line, "failed after 3 attempts"))
	assert.True(t, strings.Contains(line, "ERROR"))
}
