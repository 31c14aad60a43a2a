package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rl1809/plant-floor/internal/core/domain"
	"github.com/rl1809/plant-floor/internal/core/generator"
	"github.com/rl1809/plant-floor/internal/core/service"
)

// Config represents the application configuration
type Config struct {
	Workers    WorkersConfig    `mapstructure:"workers"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Orders     OrdersConfig     `mapstructure:"orders"`
	Admission  AdmissionConfig  `mapstructure:"admission"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Log        LogConfig        `mapstructure:"log"`
	Sinks      SinksConfig      `mapstructure:"sinks"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Server     ServerConfig     `mapstructure:"server"`
}

type WorkersConfig struct {
	Part    int `mapstructure:"part"`
	Product int `mapstructure:"product"`
	Cycles  int `mapstructure:"cycles"`
}

type SimulationConfig struct {
	Seed          int64 `mapstructure:"seed"` // 0 picks a time based seed
	InitialBuffer []int `mapstructure:"initialBuffer"`
}

type OrdersConfig struct {
	LoadMax      int    `mapstructure:"loadMax"`
	PickupMax    int    `mapstructure:"pickupMax"`
	PickupPolicy string `mapstructure:"pickupPolicy"` // joint-cap, independent
}

type AdmissionConfig struct {
	RollbackProbability float64       `mapstructure:"rollbackProbability"`
	MaxAttempts         int           `mapstructure:"maxAttempts"` // 0 = spin forever
	Backoff             BackoffConfig `mapstructure:"backoff"`
}

type BackoffConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Base    time.Duration `mapstructure:"base"`
	Cap     time.Duration `mapstructure:"cap"`
	Factor  float64       `mapstructure:"factor"`
}

type LedgerConfig struct {
	CountProductCompletions bool `mapstructure:"countProductCompletions"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console, json
}

type SinksConfig struct {
	File  FileSinkConfig  `mapstructure:"file"`
	Zap   ZapSinkConfig   `mapstructure:"zap"`
	Redis RedisSinkConfig `mapstructure:"redis"`
	Kafka KafkaSinkConfig `mapstructure:"kafka"`
}

type FileSinkConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Format  string `mapstructure:"format"` // text, json
}

type ZapSinkConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type RedisSinkConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr"`
	KeyPrefix string        `mapstructure:"keyPrefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type KafkaSinkConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	Brokers          []string `mapstructure:"brokers"`
	Topic            string   `mapstructure:"topic"`
	SecurityProtocol string   `mapstructure:"securityProtocol"` // PLAINTEXT, SASL_PLAINTEXT, SASL_SSL
	SASLMechanism    string   `mapstructure:"saslMechanism"`    // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	SASLUsername     string   `mapstructure:"saslUsername"`
	SASLPassword     string   `mapstructure:"saslPassword"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	MaxConcurrentRuns int64         `mapstructure:"maxConcurrentRuns"`
	MaxWorkers        int           `mapstructure:"maxWorkers"`       // per kind, per request
	MaxAdmitAttempts  int           `mapstructure:"maxAdmitAttempts"` // used when admission.maxAttempts is 0
	ShutdownTimeout   time.Duration `mapstructure:"shutdownTimeout"`
}

// Loader handles configuration loading and validation
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PLANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// Viper exposes the underlying instance so CLI flags can be bound onto it.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads defaults, the file at path and PLANT_* environment variables, in
// increasing precedence. An empty path runs on defaults and environment only;
// a path that was given must exist.
func (l *Loader) Load(path string) (*Config, error) {
	l.setDefaults()

	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (l *Loader) setDefaults() {
	l.v.SetDefault("workers.part", 20)
	l.v.SetDefault("workers.product", 16)
	l.v.SetDefault("workers.cycles", 5)

	l.v.SetDefault("simulation.seed", 0)
	l.v.SetDefault("simulation.initialBuffer", []int{5, 5, 4, 3, 3})

	l.v.SetDefault("orders.loadMax", 5)
	l.v.SetDefault("orders.pickupMax", 3)
	l.v.SetDefault("orders.pickupPolicy", "joint-cap")

	l.v.SetDefault("admission.rollbackProbability", 0.5)
	l.v.SetDefault("admission.maxAttempts", 0)
	l.v.SetDefault("admission.backoff.enabled", false)
	l.v.SetDefault("admission.backoff.base", time.Millisecond)
	l.v.SetDefault("admission.backoff.cap", 50*time.Millisecond)
	l.v.SetDefault("admission.backoff.factor", 2.0)

	l.v.SetDefault("ledger.countProductCompletions", false)

	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "console")

	l.v.SetDefault("sinks.file.enabled", true)
	l.v.SetDefault("sinks.file.path", "log.txt")
	l.v.SetDefault("sinks.file.format", "text")
	l.v.SetDefault("sinks.zap.enabled", false)
	l.v.SetDefault("sinks.redis.enabled", false)
	l.v.SetDefault("sinks.redis.addr", "localhost:6379")
	l.v.SetDefault("sinks.redis.keyPrefix", "plant:events:")
	l.v.SetDefault("sinks.redis.ttl", 24*time.Hour)
	l.v.SetDefault("sinks.kafka.enabled", false)
	l.v.SetDefault("sinks.kafka.brokers", []string{"localhost:9092"})
	l.v.SetDefault("sinks.kafka.topic", "plant.events")
	l.v.SetDefault("sinks.kafka.securityProtocol", "PLAINTEXT")

	l.v.SetDefault("metrics.textfile", "")

	l.v.SetDefault("server.addr", ":8080")
	l.v.SetDefault("server.maxConcurrentRuns", 4)
	l.v.SetDefault("server.maxWorkers", 256)
	l.v.SetDefault("server.maxAdmitAttempts", 100000)
	l.v.SetDefault("server.shutdownTimeout", 5*time.Second)
}

// Validate checks the configuration for values the simulation cannot run with.
func Validate(cfg *Config) error {
	if cfg.Workers.Part < 0 || cfg.Workers.Product < 0 {
		return fmt.Errorf("worker counts must not be negative")
	}
	if cfg.Workers.Cycles < 1 {
		return fmt.Errorf("workers.cycles must be at least 1")
	}
	if len(cfg.Simulation.InitialBuffer) != domain.NumKinds {
		return fmt.Errorf("simulation.initialBuffer needs %d quantities, got %d", domain.NumKinds, len(cfg.Simulation.InitialBuffer))
	}
	for i, q := range cfg.Simulation.InitialBuffer {
		if q < 0 {
			return fmt.Errorf("simulation.initialBuffer[%d] must not be negative", i)
		}
	}
	if cfg.Orders.LoadMax < 0 || cfg.Orders.PickupMax < 0 {
		return fmt.Errorf("order limits must not be negative")
	}
	switch cfg.Orders.PickupPolicy {
	case "joint-cap", "independent":
	default:
		return fmt.Errorf("orders.pickupPolicy must be joint-cap or independent, got %q", cfg.Orders.PickupPolicy)
	}
	if p := cfg.Admission.RollbackProbability; p < 0 || p > 1 {
		return fmt.Errorf("admission.rollbackProbability must be within [0,1]")
	}
	if cfg.Admission.MaxAttempts < 0 {
		return fmt.Errorf("admission.maxAttempts must not be negative")
	}
	if b := cfg.Admission.Backoff; b.Enabled && b.Base <= 0 {
		return fmt.Errorf("admission.backoff.base must be positive when backoff is enabled")
	}
	if cfg.Sinks.File.Enabled && cfg.Sinks.File.Path == "" {
		return fmt.Errorf("sinks.file.path must be set when the file sink is enabled")
	}
	if cfg.Server.MaxConcurrentRuns < 1 {
		return fmt.Errorf("server.maxConcurrentRuns must be at least 1")
	}
	if cfg.Server.MaxWorkers < 1 {
		return fmt.Errorf("server.maxWorkers must be at least 1")
	}
	if cfg.Server.MaxAdmitAttempts < 1 {
		return fmt.Errorf("server.maxAdmitAttempts must be at least 1")
	}
	if cfg.Sinks.Kafka.Enabled {
		if len(cfg.Sinks.Kafka.Brokers) == 0 {
			return fmt.Errorf("at least one Kafka broker must be configured")
		}
		if cfg.Sinks.Kafka.Topic == "" {
			return fmt.Errorf("sinks.kafka.topic must be configured")
		}
	}
	return nil
}

func (c *Config) InitialBuffer() domain.Vector {
	return domain.VectorOf(c.Simulation.InitialBuffer...)
}

// ServerAdmitAttempts is the admission bound for runs started over HTTP:
// admission.maxAttempts, or server.maxAdmitAttempts when that is unbounded.
func (c *Config) ServerAdmitAttempts() int {
	if c.Admission.MaxAttempts > 0 {
		return c.Admission.MaxAttempts
	}
	return c.Server.MaxAdmitAttempts
}

// SimulationOptions maps the simulation part of the config onto service
// options. Sinks, metrics and logging are wired by the caller.
func (c *Config) SimulationOptions() []service.Option {
	opts := []service.Option{
		service.WithCycles(c.Workers.Cycles),
		service.WithInitialBuffer(c.InitialBuffer()),
		service.WithLimits(generator.Limits{
			LoadMax:      c.Orders.LoadMax,
			PickupMax:    c.Orders.PickupMax,
			PickupPolicy: generator.Policy(c.Orders.PickupPolicy),
		}),
		service.WithRollbackProbability(c.Admission.RollbackProbability),
		service.WithMaxAdmitAttempts(c.Admission.MaxAttempts),
		service.WithProductCompletions(c.Ledger.CountProductCompletions),
	}
	if c.Simulation.Seed != 0 {
		opts = append(opts, service.WithSeed(c.Simulation.Seed))
	}
	if b := c.Admission.Backoff; b.Enabled {
		opts = append(opts, service.WithBackoff(service.BackoffPolicy{
			Base:   b.Base,
			Cap:    b.Cap,
			Factor: b.Factor,
		}))
	}
	return opts
}
