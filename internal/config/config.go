package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Database *dbConfig
	Service  *svcConfig
	Redis    *redisConfig
	Google   *googleConfig
	Scoring  *scoringConfig
	Worker   *workerConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"prospectgrid"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address         string `envconfig:"PROSPECTGRID_ADDRESS" default:":3443"`
	BaseUrl         string `envconfig:"PROSPECTGRID_BASE_URL" default:"https://localhost:3443"`
	LogLevel        string `envconfig:"PROSPECTGRID_LOG_LEVEL" default:"info"`
	MigrationFolder string `envconfig:"PROSPECTGRID_MIGRATIONS_FOLDER" default:""`
	NotifyWebhook   string `envconfig:"PROSPECTGRID_NOTIFY_WEBHOOK" default:""`
	MaxAddresses    int    `envconfig:"PROSPECTGRID_MAX_ADDRESSES" default:"500"`
}

type redisConfig struct {
	URL string `envconfig:"REDIS_URL" default:""`
}

type googleConfig struct {
	APIKey        string `envconfig:"GOOGLE_MAPS_API_KEY" default:""`
	GeocodeURL    string `envconfig:"PROSPECTGRID_GEOCODE_URL" default:"https://maps.googleapis.com/maps/api/geocode/json"`
	StreetViewURL string `envconfig:"PROSPECTGRID_STREETVIEW_URL" default:"https://maps.googleapis.com/maps/api/streetview"`
	MultiAngle    bool   `envconfig:"PROSPECTGRID_MULTI_ANGLE" default:"false"`
}

type scoringConfig struct {
	APIKey       string `envconfig:"SCORING_API_KEY" default:""`
	Endpoint     string `envconfig:"SCORING_ENDPOINT" default:"https://generativelanguage.googleapis.com/v1beta"`
	Model        string `envconfig:"SCORING_MODEL" default:"gemini-2.0-flash"`
	MinDelayMs   int    `envconfig:"SCORING_MIN_DELAY_MS" default:"1500"`
	MaxRetries   int    `envconfig:"SCORING_MAX_RETRIES" default:"3"`
	BackoffMs    int    `envconfig:"SCORING_BACKOFF_MS" default:"2000"`
	BackoffCapMs int    `envconfig:"SCORING_BACKOFF_CAP_MS" default:"30000"`
}

type workerConfig struct {
	Concurrency      int `envconfig:"WORKER_CONCURRENCY" default:"5"`
	PipelineWorkers  int `envconfig:"PROCESSING_WORKERS" default:"5"`
	JobTimeoutMin    int `envconfig:"WORKER_JOB_TIMEOUT_MINUTES" default:"60"`
	StopTimeoutSec   int `envconfig:"WORKER_STOP_TIMEOUT_SECONDS" default:"30"`
	ResolverRetries  int `envconfig:"RESOLVER_MAX_RETRIES" default:"3"`
	ResolverDelayMs  int `envconfig:"RESOLVER_BACKOFF_MS" default:"1000"`
	ResolverCapMs    int `envconfig:"RESOLVER_BACKOFF_CAP_MS" default:"15000"`
	ImageryRetries   int `envconfig:"IMAGERY_MAX_RETRIES" default:"3"`
	ImageryDelayMs   int `envconfig:"IMAGERY_BACKOFF_MS" default:"1000"`
	ImageryCapMs     int `envconfig:"IMAGERY_BACKOFF_CAP_MS" default:"15000"`
}

// New loads the configuration from the environment.
func New() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewDefault returns a configuration with every default applied and no
// environment lookup, handy for tests.
func NewDefault() *Config {
	return &Config{
		Database: &dbConfig{Type: "pgsql", Hostname: "localhost", Port: "5432", Name: "prospectgrid", User: "admin", Password: "adminpass"},
		Service:  &svcConfig{Address: ":3443", LogLevel: "info", MaxAddresses: 500},
		Redis:    &redisConfig{},
		Google:   &googleConfig{GeocodeURL: "https://maps.googleapis.com/maps/api/geocode/json", StreetViewURL: "https://maps.googleapis.com/maps/api/streetview"},
		Scoring:  &scoringConfig{Model: "gemini-2.0-flash", MinDelayMs: 1500, MaxRetries: 3, BackoffMs: 2000, BackoffCapMs: 30000},
		Worker:   &workerConfig{Concurrency: 5, PipelineWorkers: 5, JobTimeoutMin: 60, StopTimeoutSec: 30, ResolverRetries: 3, ResolverDelayMs: 1000, ResolverCapMs: 15000, ImageryRetries: 3, ImageryDelayMs: 1000, ImageryCapMs: 15000},
	}
}
