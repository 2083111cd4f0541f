package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"Server"`
	Database DatabaseConfig `mapstructure:"Database"`
	Quota    QuotaConfig    `mapstructure:"Quota"`
}

type ServerConfig struct {
	Port    string `mapstructure:"Port"`
	BaseURL string `mapstructure:"BaseURL"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"Driver"`
	Host     string `mapstructure:"Host"`
	Port     string `mapstructure:"Port"`
	User     string `mapstructure:"User"`
	Password string `mapstructure:"Password"`
	Name     string `mapstructure:"Name"`
	SSLMode  string `mapstructure:"SSLMode"`
}

// QuotaConfig — параметры выдачи и сверки
type QuotaConfig struct {
	DefaultLimit      int           `mapstructure:"DefaultLimit"`
	DefaultTTL        time.Duration `mapstructure:"DefaultTTL"`
	MaxAttempts       int           `mapstructure:"MaxAttempts"`
	MirrorAttempts    int           `mapstructure:"MirrorAttempts"`
	SignedURLTTL      time.Duration `mapstructure:"SignedURLTTL"`
	URLCacheTTL       time.Duration `mapstructure:"URLCacheTTL"`
	URLCacheSize      int           `mapstructure:"URLCacheSize"`
	ReconcileInterval time.Duration `mapstructure:"ReconcileInterval"`
	MaxUploadBytes    int64         `mapstructure:"MaxUploadBytes"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()

	// Устанавливаем файл конфигурации
	v.SetConfigFile(path)

	// Привязываем переменные окружения
	v.BindEnv("Database.Driver", "DATABASE_DRIVER")
	v.BindEnv("Database.Host", "DATABASE_HOST")
	v.BindEnv("Database.Port", "DATABASE_PORT")
	v.BindEnv("Database.User", "DATABASE_USER")
	v.BindEnv("Database.Password", "DATABASE_PASSWORD")
	v.BindEnv("Database.Name", "DATABASE_NAME")
	v.BindEnv("Database.SSLMode", "DATABASE_SSLMODE")
	v.BindEnv("Server.Port", "HTTP_PORT")
	v.BindEnv("Server.BaseURL", "BASE_URL")
	v.BindEnv("Quota.DefaultLimit", "QUOTA_DEFAULT_LIMIT")
	v.BindEnv("Quota.DefaultTTL", "QUOTA_DEFAULT_TTL")
	v.BindEnv("Quota.MaxAttempts", "QUOTA_MAX_ATTEMPTS")
	v.BindEnv("Quota.MirrorAttempts", "QUOTA_MIRROR_ATTEMPTS")
	v.BindEnv("Quota.SignedURLTTL", "QUOTA_SIGNED_URL_TTL")
	v.BindEnv("Quota.URLCacheTTL", "QUOTA_URL_CACHE_TTL")
	v.BindEnv("Quota.URLCacheSize", "QUOTA_URL_CACHE_SIZE")
	v.BindEnv("Quota.ReconcileInterval", "QUOTA_RECONCILE_INTERVAL")
	v.BindEnv("Quota.MaxUploadBytes", "QUOTA_MAX_UPLOAD_BYTES")

	// Установка значений по умолчанию
	v.SetDefault("Server.Port", "2525")
	v.SetDefault("Database.Driver", DriverPostgres)
	v.SetDefault("Database.SSLMode", "disable")
	v.SetDefault("Quota.DefaultLimit", 100)
	v.SetDefault("Quota.DefaultTTL", 24*time.Hour)
	v.SetDefault("Quota.MaxAttempts", 5)
	v.SetDefault("Quota.MirrorAttempts", 3)
	v.SetDefault("Quota.SignedURLTTL", 15*time.Minute)
	v.SetDefault("Quota.URLCacheTTL", 5*time.Minute)
	v.SetDefault("Quota.URLCacheSize", 1024)
	v.SetDefault("Quota.ReconcileInterval", time.Minute)
	v.SetDefault("Quota.MaxUploadBytes", int64(100<<20))

	// Читаем конфигурацию из файла
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: using only environment variables: %v\n", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.Host == "" ||
			c.Database.Port == "" ||
			c.Database.User == "" ||
			c.Database.Password == "" ||
			c.Database.Name == "" {
			return fmt.Errorf("database configuration is incomplete: host=%s, port=%s, user=%s, name=%s",
				c.Database.Host, c.Database.Port, c.Database.User, c.Database.Name)
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Quota.DefaultLimit < 0 {
		return fmt.Errorf("Quota.DefaultLimit must not be negative, got %d", c.Quota.DefaultLimit)
	}
	if c.Quota.SignedURLTTL <= 0 {
		return fmt.Errorf("Quota.SignedURLTTL must be positive, got %s", c.Quota.SignedURLTTL)
	}
	if c.Quota.URLCacheTTL >= c.Quota.SignedURLTTL {
		return fmt.Errorf("Quota.URLCacheTTL (%s) must be shorter than Quota.SignedURLTTL (%s)",
			c.Quota.URLCacheTTL, c.Quota.SignedURLTTL)
	}
	if c.Quota.ReconcileInterval <= 0 {
		return fmt.Errorf("Quota.ReconcileInterval must be positive, got %s", c.Quota.ReconcileInterval)
	}

	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

// GetURL возвращает строку подключения в формате golang-migrate
func (c *DatabaseConfig) GetURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}
