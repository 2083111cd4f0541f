package s3

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	AccessKeyID     string `mapstructure:"AccessKeyID"`
	SecretAccessKey string `mapstructure:"SecretAccessKey"`
	Bucket          string `mapstructure:"Bucket"`
	Endpoint        string `mapstructure:"Endpoint"`
	Region          string `mapstructure:"Region"`
	UsePathStyle    bool   `mapstructure:"UsePathStyle"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.BindEnv("AccessKeyID", "S3_ACCESS_KEY_ID")
	v.BindEnv("SecretAccessKey", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("Bucket", "S3_BUCKET")
	v.BindEnv("Endpoint", "S3_ENDPOINT")
	v.BindEnv("Region", "S3_REGION")
	v.BindEnv("UsePathStyle", "S3_USE_PATH_STYLE")

	v.SetDefault("Endpoint", "https://storage.yandexcloud.net")
	v.SetDefault("Region", "ru-central1")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: S3 config file %s not read, using environment: %v\n", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}

	// Проверяем, что все необходимые поля заполнены
	var missing []string
	if cfg.AccessKeyID == "" {
		missing = append(missing, "AccessKeyID")
	}
	if cfg.SecretAccessKey == "" {
		missing = append(missing, "SecretAccessKey")
	}
	if cfg.Bucket == "" {
		missing = append(missing, "Bucket")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("S3 configuration is incomplete: %s required", strings.Join(missing, ", "))
	}

	return &cfg, nil
}
