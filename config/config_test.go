package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	c := Load()
	assert.Equal(t, 3, c.ModelRetries)
	assert.Equal(t, 5000*time.Millisecond, c.RateLimitFloor)
	assert.Equal(t, 2, c.ChainMaxRounds)
}

func TestLoadEnvOverride(t *testing.T) {
	os.Setenv("CARTO_MODEL_RETRIES", "5")
	defer os.Unsetenv("CARTO_MODEL_RETRIES")

	c := Load()
	assert.Equal(t, 5, c.ModelRetries)
}

func TestLoadOptionWinsOverEnv(t *testing.T) {
	os.Setenv("CARTO_MODEL_RETRIES", "5")
	defer os.Unsetenv("CARTO_MODEL_RETRIES")

	c := Load(WithModelRetries(7))
	assert.Equal(t, 7, c.ModelRetries)
}
