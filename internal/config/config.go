package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var ErrInvalidValue = errors.New("invalid config value")

// Config holds the server's settings, read once at startup.
type Config struct {
	Host                  string        // Interface to listen on
	Port                  int           // Port for HTTP and websocket traffic
	GridWidth             int           // Grid width in cells, fixed for every session
	GridHeight            int           // Grid height in cells, fixed for every session
	InitialLength         int           // Snake length at spawn
	TickInterval          time.Duration // Period of the simulation loop
	StartDelay            time.Duration // Time spent in Waiting before the first tick
	StallTimeout          time.Duration // How long an outbox may stay full before a disconnect
	WriteTimeout          time.Duration // Per-message websocket write deadline
	ReadTimeout           time.Duration // Keepalive period; an unanswered ping within it drops the connection
	EndedIdleTimeout      time.Duration // How long an ended session waits for requeue/quit
	MaxProtocolViolations int           // Bad messages tolerated before the connection is closed
	OutboxSize            int           // Buffered server messages per connection
	LogLevel              string        // zap level: debug, info, warn, error
	Env                   string        // "production" or "development"
}

func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

func Default() Config {
	return Config{
		Port:                  8080,
		GridWidth:             40,
		GridHeight:            40,
		InitialLength:         3,
		TickInterval:          100 * time.Millisecond,
		StallTimeout:          2 * time.Second,
		WriteTimeout:          3 * time.Second,
		ReadTimeout:           60 * time.Second,
		EndedIdleTimeout:      60 * time.Second,
		MaxProtocolViolations: 5,
		OutboxSize:            8,
		LogLevel:              "info",
		Env:                   "production",
	}
}

// Load reads an optional .env file, then the environment, on top of Default.
func Load() (Config, error) {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()

	c := Default()
	var errs []error
	c.Host = getEnvWithDefault("HOST", c.Host)
	c.Port = getEnvAsInt("PORT", c.Port, &errs)
	c.GridWidth = getEnvAsInt("GRID_WIDTH", c.GridWidth, &errs)
	c.GridHeight = getEnvAsInt("GRID_HEIGHT", c.GridHeight, &errs)
	c.InitialLength = getEnvAsInt("INITIAL_LENGTH", c.InitialLength, &errs)
	c.TickInterval = getEnvAsDuration("TICK_INTERVAL", c.TickInterval, &errs)
	c.StartDelay = getEnvAsDuration("START_DELAY", c.StartDelay, &errs)
	c.StallTimeout = getEnvAsDuration("STALL_TIMEOUT", c.StallTimeout, &errs)
	c.WriteTimeout = getEnvAsDuration("WRITE_TIMEOUT", c.WriteTimeout, &errs)
	c.ReadTimeout = getEnvAsDuration("READ_TIMEOUT", c.ReadTimeout, &errs)
	c.EndedIdleTimeout = getEnvAsDuration("ENDED_IDLE_TIMEOUT", c.EndedIdleTimeout, &errs)
	c.MaxProtocolViolations = getEnvAsInt("MAX_PROTOCOL_VIOLATIONS", c.MaxProtocolViolations, &errs)
	c.OutboxSize = getEnvAsInt("OUTBOX_SIZE", c.OutboxSize, &errs)
	c.LogLevel = getEnvWithDefault("LOG_LEVEL", c.LogLevel)
	c.Env = getEnvWithDefault("APP_ENV", c.Env)

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("%w: PORT %d", ErrInvalidValue, c.Port)
	case c.TickInterval <= 0:
		return fmt.Errorf("%w: TICK_INTERVAL must be positive", ErrInvalidValue)
	case c.InitialLength < 1:
		return fmt.Errorf("%w: INITIAL_LENGTH must be at least 1", ErrInvalidValue)
	case c.OutboxSize < 1:
		return fmt.Errorf("%w: OUTBOX_SIZE must be at least 1", ErrInvalidValue)
	case c.MaxProtocolViolations < 1:
		return fmt.Errorf("%w: MAX_PROTOCOL_VIOLATIONS must be at least 1", ErrInvalidValue)
	}
	return nil
}

// getEnvWithDefault retrieves the value of an environment variable or returns a default value if not set.
func getEnvWithDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int, errs *[]error) int {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%w: %s must be an integer: %v", ErrInvalidValue, key, err))
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%w: %s must be a duration: %v", ErrInvalidValue, key, err))
		return defaultValue
	}
	return value
}
