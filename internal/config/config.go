package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Product struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	PricePaise int64  `yaml:"pricePaise"`
	Stock      int    `yaml:"stock"`
}

type Razorpay struct {
	BaseURL   string `yaml:"baseUrl"`
	KeyID     string `yaml:"keyId"`
	KeySecret string `yaml:"keySecret"`
}

type Config struct {
	HTTPAddr             string    `yaml:"httpAddr"`
	MySQLDSN             string    `yaml:"mysqlDsn"`
	RedisAddr            string    `yaml:"redisAddr"`
	HoldTTLSeconds       int       `yaml:"holdTtlSeconds"`
	SweepIntervalSeconds int       `yaml:"sweepIntervalSeconds"`
	Razorpay             Razorpay  `yaml:"razorpay"`
	Products             []Product `yaml:"products"`
}

func Default() Config {
	return Config{
		HTTPAddr:             ":8080",
		MySQLDSN:             "root:root@tcp(localhost:3306)/stockhold?parseTime=true",
		RedisAddr:            "localhost:6379",
		HoldTTLSeconds:       900,
		SweepIntervalSeconds: 60,
		Razorpay: Razorpay{
			BaseURL: "https://api.razorpay.com",
		},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// environment overrides. An empty path loads defaults plus environment only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	applyEnv(&cfg.MySQLDSN, "MYSQL_DSN")
	applyEnv(&cfg.RedisAddr, "REDIS_ADDR")
	applyEnv(&cfg.Razorpay.BaseURL, "RAZORPAY_BASE_URL")
	applyEnv(&cfg.Razorpay.KeyID, "RAZORPAY_KEY_ID")
	applyEnv(&cfg.Razorpay.KeySecret, "RAZORPAY_KEY_SECRET")

	if cfg.HoldTTLSeconds <= 0 {
		return cfg, fmt.Errorf("holdTtlSeconds must be positive, got %d", cfg.HoldTTLSeconds)
	}
	if cfg.SweepIntervalSeconds <= 0 {
		return cfg, fmt.Errorf("sweepIntervalSeconds must be positive, got %d", cfg.SweepIntervalSeconds)
	}
	return cfg, nil
}

func applyEnv(target *string, key string) {
	if value, ok := os.LookupEnv(key); ok {
		*target = value
	}
}
