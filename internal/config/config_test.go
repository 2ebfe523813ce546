package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.Equal(t, ":8080", c.Addr())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9001")
	t.Setenv("TICK_INTERVAL", "50ms")
	t.Setenv("GRID_WIDTH", "20")
	t.Setenv("GRID_HEIGHT", "20")
	t.Setenv("APP_ENV", "development")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9001, c.Port)
	assert.Equal(t, 50*time.Millisecond, c.TickInterval)
	assert.Equal(t, 20, c.GridWidth)
	assert.Equal(t, "development", c.Env)
}

func TestLoad_RejectsMalformedValues(t *testing.T) {
	cases := []struct {
		name, key, value string
	}{
		{"port not a number", "PORT", "eighty"},
		{"tick not a duration", "TICK_INTERVAL", "fast"},
		{"tick not positive", "TICK_INTERVAL", "0s"},
		{"outbox empty", "OUTBOX_SIZE", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.ErrorIs(t, err, ErrInvalidValue)
		})
	}
}

func TestNewLogger(t *testing.T) {
	c := Default()
	l, err := c.NewLogger()
	require.NoError(t, err)
	require.NotNil(t, l)

	c.LogLevel = "loud"
	_, err = c.NewLogger()
	assert.Error(t, err)
}

func TestLoadBot(t *testing.T) {
	c, err := LoadBot()
	require.NoError(t, err)
	assert.Equal(t, DefaultBot(), c)

	t.Setenv("BOT_SERVER_URL", "ws://game:9000/ws")
	t.Setenv("BOT_COUNT", "4")
	t.Setenv("BOT_GAMES", "10")
	c, err = LoadBot()
	require.NoError(t, err)
	assert.Equal(t, "ws://game:9000/ws", c.ServerURL)
	assert.Equal(t, 4, c.Count)
	assert.Equal(t, 10, c.Games)

	t.Setenv("BOT_COUNT", "0")
	_, err = LoadBot()
	assert.ErrorIs(t, err, ErrInvalidValue)

	t.Setenv("BOT_COUNT", "two")
	_, err = LoadBot()
	assert.ErrorIs(t, err, ErrInvalidValue)
}
