package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Registration RegistrationConfig `yaml:"registration"`
	Cache        CacheConfig        `yaml:"cache"`
	Worker       WorkerConfig       `yaml:"worker"`
	Providers    ProvidersConfig    `yaml:"providers"`
}

type HTTPConfig struct {
	Address         string `yaml:"address"`
	ShutdownSeconds int    `yaml:"shutdown_seconds"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int32  `yaml:"max_conns"`
	// InMemory switches every binary to the in-memory store. Local runs only.
	InMemory bool `yaml:"in_memory"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	PaymentEventsTopic string   `yaml:"payment_events_topic"`
	GroupID            string   `yaml:"group_id"`
}

type RegistrationConfig struct {
	HoldTTLMinutes      int `yaml:"hold_ttl_minutes"`
	WaitlistWindowHours int `yaml:"waitlist_window_hours"`
}

func (r RegistrationConfig) HoldTTL() time.Duration {
	return time.Duration(r.HoldTTLMinutes) * time.Minute
}

func (r RegistrationConfig) WaitlistWindow() time.Duration {
	return time.Duration(r.WaitlistWindowHours) * time.Hour
}

type CacheConfig struct {
	CohortsTTLSeconds  int `yaml:"cohorts_ttl_seconds"`
	WebhookDedupeHours int `yaml:"webhook_dedupe_hours"`
}

type WorkerConfig struct {
	HoldSweepSeconds     int `yaml:"hold_sweep_seconds"`
	WaitlistSweepMinutes int `yaml:"waitlist_sweep_minutes"`
	LocalWebhookWorkers  int `yaml:"local_webhook_workers"`
}

type ProvidersConfig struct {
	Card  ProviderConfig `yaml:"card"`
	BNPLA ProviderConfig `yaml:"bnpl_a"`
	BNPLB ProviderConfig `yaml:"bnpl_b"`
}

type ProviderConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	WebhookSecret  string `yaml:"webhook_secret"`
	ReturnURL      string `yaml:"return_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// Defaults returns the configuration used for any key the file leaves empty.
func Defaults() Config {
	return Config{
		HTTP: HTTPConfig{Address: ":8080", ShutdownSeconds: 5},
		Database: DatabaseConfig{
			Host: "localhost", Port: 5432, User: "postgres", Name: "cohortseat", SSLMode: "disable", MaxConns: 20,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Kafka: KafkaConfig{
			NotificationsTopic: "cohortseat.notifications",
			PaymentEventsTopic: "cohortseat.payment-events",
			GroupID:            "cohortseat-worker",
		},
		Registration: RegistrationConfig{HoldTTLMinutes: 15, WaitlistWindowHours: 24},
		Cache:        CacheConfig{CohortsTTLSeconds: 30, WebhookDedupeHours: 72},
		Worker:       WorkerConfig{HoldSweepSeconds: 60, WaitlistSweepMinutes: 5, LocalWebhookWorkers: 4},
		Providers: ProvidersConfig{
			Card:  ProviderConfig{TimeoutSeconds: 10},
			BNPLA: ProviderConfig{TimeoutSeconds: 10},
			BNPLB: ProviderConfig{TimeoutSeconds: 10},
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// applyDefaults restores defaults for numeric keys explicitly set to zero.
func (c *Config) applyDefaults() {
	d := Defaults()
	if c.Registration.HoldTTLMinutes <= 0 {
		c.Registration.HoldTTLMinutes = d.Registration.HoldTTLMinutes
	}
	if c.Registration.WaitlistWindowHours <= 0 {
		c.Registration.WaitlistWindowHours = d.Registration.WaitlistWindowHours
	}
	if c.Worker.HoldSweepSeconds <= 0 {
		c.Worker.HoldSweepSeconds = d.Worker.HoldSweepSeconds
	}
	if c.Worker.WaitlistSweepMinutes <= 0 {
		c.Worker.WaitlistSweepMinutes = d.Worker.WaitlistSweepMinutes
	}
	if c.Worker.LocalWebhookWorkers <= 0 {
		c.Worker.LocalWebhookWorkers = d.Worker.LocalWebhookWorkers
	}
	for _, p := range []*ProviderConfig{&c.Providers.Card, &c.Providers.BNPLA, &c.Providers.BNPLB} {
		if p.TimeoutSeconds <= 0 {
			p.TimeoutSeconds = 10
		}
	}
}

func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address is required")
	}
	if !c.Database.InMemory && c.Database.Name == "" {
		return errors.New("database.name is required")
	}
	if c.Providers.BNPLB.BaseURL != "" && c.Providers.BNPLB.WebhookSecret == "" {
		return errors.New("providers.bnpl_b.webhook_secret is required when bnpl_b is configured")
	}
	return nil
}
