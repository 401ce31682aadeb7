// Package config reads the daemon and batch runner settings from the
// environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/traffic-sim/internal/auth"
	"github.com/ukydev/traffic-sim/internal/models"
	"github.com/ukydev/traffic-sim/internal/roadnet"
	"github.com/ukydev/traffic-sim/internal/sim"
)

// Sink names accepted in SINKS.
const (
	SinkLog      = "log"
	SinkMongo    = "mongo"
	SinkPostgres = "postgres"
	SinkMQTT     = "mqtt"
)

var knownSinks = []string{SinkLog, SinkMongo, SinkPostgres, SinkMQTT}

var (
	ErrUnknownSink    = errors.New("unknown sink")
	ErrMissingSetting = errors.New("missing setting")
)

// Config is everything the binaries read from the environment.
type Config struct {
	TickInterval   time.Duration
	Delta          float64
	FleetSize      int
	Seed           uint64
	Speed          float64
	ReserveRadius  float64
	StallThreshold int
	RunID          string

	NetworkPath    string
	NetworkBuiltin string
	Network        roadnet.Settings

	Port      string
	RateLimit int
	JWTSecret string
	JWTExpiry time.Duration
	Operator  auth.Operator

	Sinks        []string
	PersistEvery int64
	MongoURI     string
	MongoDB      string
	DatabaseURL  string
	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string

	LogLevel  string
	LogFormat string
}

// LoadDotEnv reads .env into the environment when present.
func LoadDotEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.WithError(err).Debug("No .env file loaded, using environment variables")
	}
}

// Load builds a Config from the environment. Unparsable numbers fall back to
// their defaults with a warning; inconsistent settings are an error.
func Load() (Config, error) {
	tick := time.Duration(getInt("SIM_TICK_MS", 100)) * time.Millisecond
	if tick <= 0 {
		log.WithField("key", "SIM_TICK_MS").Warn("Non-positive tick, using default")
		tick = 100 * time.Millisecond
	}
	defaults := roadnet.DefaultSettings()

	cfg := Config{
		TickInterval:   tick,
		Delta:          getFloat("SIM_DELTA", tick.Seconds()),
		FleetSize:      getInt("FLEET_SIZE", 10),
		Seed:           uint64(getInt("SIM_SEED", 1)),
		Speed:          getFloat("SIM_SPEED", 5),
		ReserveRadius:  getFloat("SIM_RESERVE_RADIUS", 1),
		StallThreshold: getInt("SIM_STALL_THRESHOLD", 200),
		RunID:          os.Getenv("SIM_RUN_ID"),

		NetworkPath:    os.Getenv("NETWORK_PATH"),
		NetworkBuiltin: getEnv("NETWORK_BUILTIN", "grid"),
		Network: roadnet.Settings{
			InteractionDistance:     getFloat("INTERSECTION_INTERACTION_DISTANCE", defaults.InteractionDistance),
			SampleDistance:          getFloat("SAMPLE_DISTANCE", defaults.SampleDistance),
			EntranceTraversalFactor: getFloat("ENTRANCE_TRAVERSAL_FACTOR", defaults.EntranceTraversalFactor),
		},

		Port:      getEnv("PORT", "8080"),
		RateLimit: getInt("RATE_LIMIT_PER_MINUTE", 120),
		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTExpiry: getDuration("JWT_EXPIRY", 24*time.Hour),
		Operator: auth.Operator{
			Username:     os.Getenv("OPERATOR_USERNAME"),
			Password:     os.Getenv("OPERATOR_PASSWORD"),
			PasswordHash: os.Getenv("OPERATOR_PASSWORD_HASH"),
			Role:         models.Role(getEnv("OPERATOR_ROLE", string(models.RoleViewer))),
		},

		Sinks:        splitList(getEnv("SINKS", SinkLog)),
		PersistEvery: int64(getInt("PERSIST_EVERY", 10)),
		MongoURI:     os.Getenv("MONGO_URI"),
		MongoDB:      getEnv("MONGO_DB", "traffic_sim"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		MQTTBroker:   os.Getenv("MQTT_BROKER"),
		MQTTTopic:    getEnv("MQTT_TOPIC", "traffic/vehicles"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "traffic-sim"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings that cannot fall back to a default.
func (c Config) Validate() error {
	if err := c.Network.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.FleetSize < 0 {
		return fmt.Errorf("config: negative FLEET_SIZE %d", c.FleetSize)
	}
	if c.Speed <= 0 || c.ReserveRadius <= 0 || c.Delta <= 0 {
		return fmt.Errorf("config: SIM_SPEED, SIM_RESERVE_RADIUS and SIM_DELTA must be positive")
	}
	if c.Operator.Username != "" && !models.IsValidRole(c.Operator.Role) {
		return fmt.Errorf("config: invalid OPERATOR_ROLE %q", c.Operator.Role)
	}
	for _, sink := range c.Sinks {
		if !slices.Contains(knownSinks, sink) {
			return fmt.Errorf("config: %w: %q", ErrUnknownSink, sink)
		}
	}
	required := map[string]string{SinkMongo: c.MongoURI, SinkPostgres: c.DatabaseURL, SinkMQTT: c.MQTTBroker}
	for sink, value := range required {
		if c.HasSink(sink) && value == "" {
			return fmt.Errorf("config: %w for sink %s", ErrMissingSetting, sink)
		}
	}
	return nil
}

// HasSink reports whether SINKS names sink.
func (c Config) HasSink(sink string) bool {
	return slices.Contains(c.Sinks, sink)
}

// SimOptions returns the engine options.
func (c Config) SimOptions() sim.Options {
	return sim.Options{
		Speed:          c.Speed,
		Radius:         c.ReserveRadius,
		Delta:          c.Delta,
		Seed:           c.Seed,
		StallThreshold: c.StallThreshold,
		RunID:          c.RunID,
	}
}

// ConfigureLogging applies LOG_LEVEL and LOG_FORMAT to the standard logger.
func (c Config) ConfigureLogging() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log.SetLevel(level)
	switch c.LogFormat {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("config: unknown LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.WithFields(log.Fields{"key": key, "value": v}).Warn("Invalid integer, using default")
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.WithFields(log.Fields{"key": key, "value": v}).Warn("Invalid number, using default")
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.WithFields(log.Fields{"key": key, "value": v}).Warn("Invalid duration, using default")
		return fallback
	}
	return d
}

func splitList(v string) []string {
	parts := lo.Map(strings.Split(v, ","), func(s string, _ int) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
	return lo.Uniq(lo.Compact(parts))
}
