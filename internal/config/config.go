package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

const (
	defaultAddress               = ":4002"
	defaultRedisAddr             = "localhost:6379"
	defaultCatalogRefreshMinutes = 5
)

type Config struct {
	Server struct {
		Address string `yaml:"address"`
	} `yaml:"server"`
	Merchant struct {
		ID          string `yaml:"id"`
		DeviceToken string `yaml:"device_token"`
		Timezone    string `yaml:"timezone"`
	} `yaml:"merchant"`
	Firebase struct {
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"firebase"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	CatalogRefreshMinutes int `yaml:"catalog_refresh_minutes"`
}

// Load reads the optional yaml config file and applies environment
// overrides on top of the defaults.
func Load(path string) (Config, error) {
	var cfg Config
	cfg.Server.Address = defaultAddress
	cfg.Redis.Addr = defaultRedisAddr
	cfg.CatalogRefreshMinutes = defaultCatalogRefreshMinutes

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: unmarshal %s: %w", path, err)
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Address = ":" + v
	}
	if v := os.Getenv("MERCHANT_ID"); v != "" {
		cfg.Merchant.ID = v
	}
	if v := os.Getenv("MERCHANT_DEVICE_TOKEN"); v != "" {
		cfg.Merchant.DeviceToken = v
	}
	if v := os.Getenv("MERCHANT_TIMEZONE"); v != "" {
		cfg.Merchant.Timezone = v
	}
	if v := os.Getenv("FIREBASE_CREDENTIALS"); v != "" {
		cfg.Firebase.CredentialsFile = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v, err := readIntEnv("REDIS_DB"); err != nil {
		return Config{}, fmt.Errorf("config: parse REDIS_DB: %w", err)
	} else if v != nil {
		cfg.Redis.DB = *v
	}
	if v, err := readIntEnv("CATALOG_REFRESH_MINUTES"); err != nil {
		return Config{}, fmt.Errorf("config: parse CATALOG_REFRESH_MINUTES: %w", err)
	} else if v != nil {
		cfg.CatalogRefreshMinutes = *v
	}

	if cfg.Merchant.ID == "" {
		return Config{}, fmt.Errorf("config: merchant id is required")
	}
	return cfg, nil
}

func readIntEnv(name string) (*int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
