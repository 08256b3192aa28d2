// Package config содержит логику чтения конфигурации сервиса промокодов.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса промокодов.
type Config struct {
	RunAddress            string  `env:"RUN_ADDRESS"`
	DatabaseURI           string  `env:"DATABASE_URI"`
	AdminPassword         string  `env:"ADMIN_PASSWORD"`
	AdminSecret           string  `env:"ADMIN_SECRET"`
	AllowedOrigin         string  `env:"ALLOWED_ORIGIN"`
	FlatShippingFee       float64 `env:"SHIPPING_FEE"`
	FreeShippingThreshold float64 `env:"FREE_SHIPPING_THRESHOLD"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значение из окружения имеет приоритет над флагом.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAllowedOrigin := cfg.AllowedOrigin
	envShippingFee := cfg.FlatShippingFee
	envFreeThreshold := cfg.FreeShippingThreshold

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8000", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AllowedOrigin, "o", "", "allowed CORS origin for the storefront")
	flag.Float64Var(&cfg.FlatShippingFee, "f", 5.99, "flat shipping fee")
	flag.Float64Var(&cfg.FreeShippingThreshold, "t", 50, "free shipping threshold")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAllowedOrigin != "" {
		cfg.AllowedOrigin = envAllowedOrigin
	}
	if envShippingFee != 0 {
		cfg.FlatShippingFee = envShippingFee
	}
	if envFreeThreshold != 0 {
		cfg.FreeShippingThreshold = envFreeThreshold
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8000"
	}

	return cfg, nil
}
