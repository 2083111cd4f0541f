package s3

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewConfig_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s3.yaml")
	body := "AccessKeyID: key\nSecretAccessKey: secret\nBucket: links\nEndpoint: http://minio:9000\nUsePathStyle: true\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewConfig(path)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.Bucket != "links" || cfg.Endpoint != "http://minio:9000" || !cfg.UsePathStyle {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Region != "ru-central1" {
		t.Errorf("Region = %q, ожидался регион по умолчанию", cfg.Region)
	}
}

func TestNewConfig_FromEnv(t *testing.T) {
	t.Setenv("S3_ACCESS_KEY_ID", "key")
	t.Setenv("S3_SECRET_ACCESS_KEY", "secret")
	t.Setenv("S3_BUCKET", "env-bucket")

	cfg, err := NewConfig(filepath.Join(t.TempDir(), "absent.env"))
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.Bucket != "env-bucket" {
		t.Errorf("Bucket = %q", cfg.Bucket)
	}
	if cfg.Endpoint != "https://storage.yandexcloud.net" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
}

func TestNewConfig_Incomplete(t *testing.T) {
	t.Setenv("S3_ACCESS_KEY_ID", "key")

	_, err := NewConfig(filepath.Join(t.TempDir(), "absent.env"))
	if err == nil {
		t.Fatal("ожидалась ошибка неполной конфигурации")
	}
	for _, field := range []string{"SecretAccessKey", "Bucket"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("ошибка %q не упоминает %s", err, field)
		}
	}
}
