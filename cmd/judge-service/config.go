package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"gopkg.in/yaml.v3"

	"codejudge/internal/common/cache"
	"codejudge/internal/common/db"
	"codejudge/internal/common/mq"
	"codejudge/internal/common/storage"
	"codejudge/internal/judge/language"
	sandboxdocker "codejudge/internal/judge/sandbox/docker"
	"codejudge/pkg/utils/logger"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8086"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second

	defaultTaskDir       = "tasks"
	defaultTaskCacheTTL  = 10 * time.Minute
	defaultTaskEmptyTTL  = time.Minute
	defaultVerdictTTL    = time.Hour
	defaultWorkerPool    = 4
	defaultEvaluateTopic = "judge.evaluate"
	defaultResultTopic   = "judge.results"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// KafkaConfig holds Kafka settings. The queue is optional; leave brokers
// empty to run HTTP-only.
type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers"`
	ClientID      string        `yaml:"clientID"`
	MinBytes      int           `yaml:"minBytes"`
	MaxBytes      int           `yaml:"maxBytes"`
	MaxWait       time.Duration `yaml:"maxWait"`
	BatchSize     int           `yaml:"batchSize"`
	BatchTimeout  time.Duration `yaml:"batchTimeout"`
	DialTimeout   time.Duration `yaml:"dialTimeout"`
	ReadTimeout   time.Duration `yaml:"readTimeout"`
	WriteTimeout  time.Duration `yaml:"writeTimeout"`
	RequiredAcks  int           `yaml:"requiredAcks"`
	Compression   string        `yaml:"compression"`
	EvaluateTopic string        `yaml:"evaluateTopic"`
	ResultTopic   string        `yaml:"resultTopic"`
	ConsumerGroup string        `yaml:"consumerGroup"`
	Concurrency   int           `yaml:"concurrency"`
	MaxRetries    int           `yaml:"maxRetries"`
	RetryDelay    time.Duration `yaml:"retryDelay"`
	DeadLetter    string        `yaml:"deadLetterTopic"`
}

func (c KafkaConfig) toMQConfig() mq.KafkaConfig {
	return mq.KafkaConfig{
		Brokers:      c.Brokers,
		ClientID:     c.ClientID,
		RequiredAcks: kafka.RequiredAcks(c.RequiredAcks),
		BatchSize:    c.BatchSize,
		BatchTimeout: c.BatchTimeout,
		Compression:  parseCompression(c.Compression),
		MinBytes:     c.MinBytes,
		MaxBytes:     c.MaxBytes,
		MaxWait:      c.MaxWait,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

func parseCompression(name string) kafka.Compression {
	switch strings.ToLower(name) {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return 0
	}
}

// TaskConfig selects the task definition source. Source is "local" or
// "minio"; the cache TTLs apply when Redis is configured.
type TaskConfig struct {
	Source        string        `yaml:"source"`
	Dir           string        `yaml:"dir"`
	Bucket        string        `yaml:"bucket"`
	Prefix        string        `yaml:"prefix"`
	CacheTTL      time.Duration `yaml:"cacheTTL"`
	EmptyCacheTTL time.Duration `yaml:"emptyCacheTTL"`
}

// WorkerConfig holds worker pool settings.
type WorkerConfig struct {
	PoolSize int           `yaml:"poolSize"`
	SlotWait time.Duration `yaml:"slotWait"`
}

// JudgeConfig holds judging settings.
type JudgeConfig struct {
	MaxCodeBytes int           `yaml:"maxCodeBytes"`
	VerdictTTL   time.Duration `yaml:"verdictTTL"`
}

// SandboxConfig holds execution settings.
type SandboxConfig struct {
	MemoryLimitBytes int64         `yaml:"memoryLimitBytes"`
	RunTimeout       time.Duration `yaml:"runTimeout"`
	PullImages       bool          `yaml:"pullImages"`
}

func (c SandboxConfig) toRunnerConfig(catalog *language.Catalog) sandboxdocker.Config {
	return sandboxdocker.Config{
		Catalog:          catalog,
		MemoryLimitBytes: c.MemoryLimitBytes,
		RunTimeout:       c.RunTimeout,
	}
}

// LanguageConfig optionally overrides the built-in language catalog.
type LanguageConfig struct {
	Languages []language.Descriptor `yaml:"languages"`
}

// AppConfig holds judge-service config.
type AppConfig struct {
	Server   ServerConfig        `yaml:"server"`
	Logger   logger.Config       `yaml:"logger"`
	Kafka    KafkaConfig         `yaml:"kafka"`
	Database db.MySQLConfig      `yaml:"database"`
	Redis    cache.RedisConfig   `yaml:"redis"`
	MinIO    storage.MinIOConfig `yaml:"minio"`
	Tasks    TaskConfig          `yaml:"tasks"`
	Worker   WorkerConfig        `yaml:"worker"`
	Judge    JudgeConfig         `yaml:"judge"`
	Sandbox  SandboxConfig       `yaml:"sandbox"`
	Language LanguageConfig      `yaml:"language"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		// Synchronous judging holds the connection for the whole run.
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Tasks.Source == "" {
		cfg.Tasks.Source = "local"
	}
	switch cfg.Tasks.Source {
	case "local":
		if cfg.Tasks.Dir == "" {
			cfg.Tasks.Dir = defaultTaskDir
		}
	case "minio":
		if cfg.MinIO.Endpoint == "" {
			return nil, fmt.Errorf("minio endpoint is required for task source %q", cfg.Tasks.Source)
		}
		if cfg.Tasks.Bucket == "" {
			cfg.Tasks.Bucket = cfg.MinIO.Bucket
		}
		if cfg.Tasks.Bucket == "" {
			return nil, fmt.Errorf("task bucket is required for task source %q", cfg.Tasks.Source)
		}
	default:
		return nil, fmt.Errorf("unknown task source %q", cfg.Tasks.Source)
	}
	if cfg.Tasks.CacheTTL == 0 {
		cfg.Tasks.CacheTTL = defaultTaskCacheTTL
	}
	if cfg.Tasks.EmptyCacheTTL == 0 {
		cfg.Tasks.EmptyCacheTTL = defaultTaskEmptyTTL
	}
	if cfg.Judge.VerdictTTL == 0 {
		cfg.Judge.VerdictTTL = defaultVerdictTTL
	}
	if cfg.Worker.PoolSize <= 0 {
		cfg.Worker.PoolSize = defaultWorkerPool
	}
	if len(cfg.Kafka.Brokers) > 0 {
		if cfg.Kafka.EvaluateTopic == "" {
			cfg.Kafka.EvaluateTopic = defaultEvaluateTopic
		}
		if cfg.Kafka.ResultTopic == "" {
			cfg.Kafka.ResultTopic = defaultResultTopic
		}
	}
	if cfg.Redis.Addr != "" {
		applyRedisDefaults(&cfg.Redis)
	}
	return &cfg, nil
}

func applyRedisDefaults(cfg *cache.RedisConfig) {
	defaults := cache.DefaultRedisConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaults.PoolSize
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = defaults.MinIdleConns
	}
}
