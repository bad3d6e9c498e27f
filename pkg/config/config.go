package config

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Generator GeneratorConfig
	Optimizer OptimizerConfig
	Jobs      JobsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// GeneratorConfig carries fallback knobs for the placement engine. Per-schedule
// generation configs stored in the database override these.
type GeneratorConfig struct {
	MinCompletionRatio     float64
	MaxConsecutiveFailures int
}

// OptimizerConfig holds default parameter bags for the metaheuristics.
type OptimizerConfig struct {
	Genetic   GeneticDefaults
	Annealing AnnealingDefaults
}

type GeneticDefaults struct {
	PopulationSize int
	Generations    int
	CrossoverRate  float64
	MutationRate   float64
	EliteSize      int
}

type AnnealingDefaults struct {
	InitialTemperature float64
	CoolingRate        float64
	MinTemperature     float64
	MaxIterations      int
}

// JobsConfig tunes the background optimization queue.
type JobsConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	ProgressTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Generator = GeneratorConfig{
		MinCompletionRatio:     parseFloat(v.GetString("GENERATOR_MIN_COMPLETION_RATIO"), 0.8),
		MaxConsecutiveFailures: v.GetInt("GENERATOR_MAX_CONSECUTIVE_FAILURES"),
	}

	cfg.Optimizer = OptimizerConfig{
		Genetic: GeneticDefaults{
			PopulationSize: v.GetInt("GA_POPULATION_SIZE"),
			Generations:    v.GetInt("GA_GENERATIONS"),
			CrossoverRate:  parseFloat(v.GetString("GA_CROSSOVER_RATE"), 0.8),
			MutationRate:   parseFloat(v.GetString("GA_MUTATION_RATE"), 0.1),
			EliteSize:      v.GetInt("GA_ELITE_SIZE"),
		},
		Annealing: AnnealingDefaults{
			InitialTemperature: parseFloat(v.GetString("SA_INITIAL_TEMPERATURE"), 1000.0),
			CoolingRate:        parseFloat(v.GetString("SA_COOLING_RATE"), 0.95),
			MinTemperature:     parseFloat(v.GetString("SA_MIN_TEMPERATURE"), 0.01),
			MaxIterations:      v.GetInt("SA_MAX_ITERATIONS"),
		},
	}

	cfg.Jobs = JobsConfig{
		Workers:     v.GetInt("JOBS_WORKERS"),
		BufferSize:  v.GetInt("JOBS_BUFFER_SIZE"),
		MaxRetries:  v.GetInt("JOBS_MAX_RETRIES"),
		RetryDelay:  parseDuration(v.GetString("JOBS_RETRY_DELAY"), 5*time.Second),
		ProgressTTL: parseDuration(v.GetString("JOBS_PROGRESS_TTL"), time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("GENERATOR_MAX_CONSECUTIVE_FAILURES", 10)

	v.SetDefault("GA_POPULATION_SIZE", 100)
	v.SetDefault("GA_GENERATIONS", 500)
	v.SetDefault("GA_ELITE_SIZE", 10)
	v.SetDefault("SA_MAX_ITERATIONS", 10000)

	v.SetDefault("JOBS_WORKERS", 2)
	v.SetDefault("JOBS_BUFFER_SIZE", 16)
	v.SetDefault("JOBS_MAX_RETRIES", 3)
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func parseFloat(raw string, fallback float64) float64 {
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return f
}
