package config

import (
	"os"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		App:       AppConfig{Name: "test", Environment: "development"},
		Server:    ServerConfig{Port: 8080},
		Storage:   StorageConfig{Driver: StorageDriverPostgres},
		Database:  DatabaseConfig{Host: "localhost", DBName: "events"},
		Messaging: MessagingConfig{Driver: MessagingDriverNone},
		JWT:       JWTConfig{Secret: "secret"},
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	envVars := []string{
		"APP_NAME", "APP_ENVIRONMENT", "APP_DEBUG",
		"SERVER_HOST", "SERVER_PORT",
		"STORAGE_DRIVER", "MESSAGING_DRIVER",
		"DATABASE_HOST", "DATABASE_PORT", "DATABASE_DBNAME",
		"REDIS_ENABLED", "REDIS_HOST", "REDIS_PORT",
		"VIEWS_BUFFERED", "VIEWS_FLUSH_INTERVAL", "RATE_LIMIT_BURST",
		"JWT_SECRET",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.App.Name != "founder-events" {
		t.Errorf("App.Name = %q, want %q", cfg.App.Name, "founder-events")
	}

	if cfg.App.Environment != "development" {
		t.Errorf("App.Environment = %q, want %q", cfg.App.Environment, "development")
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}

	if cfg.Storage.Driver != StorageDriverPostgres {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, StorageDriverPostgres)
	}

	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}

	if cfg.Redis.Enabled {
		t.Error("Redis.Enabled = true, want false")
	}

	if !cfg.Views.Buffered || cfg.BufferViews() {
		t.Errorf("Views.Buffered = %v, BufferViews() = %v, want true and false", cfg.Views.Buffered, cfg.BufferViews())
	}

	if cfg.Messaging.Driver != MessagingDriverNone {
		t.Errorf("Messaging.Driver = %q, want %q", cfg.Messaging.Driver, MessagingDriverNone)
	}

	if cfg.Views.FlushInterval != 10*time.Second {
		t.Errorf("Views.FlushInterval = %v, want %v", cfg.Views.FlushInterval, 10*time.Second)
	}

	if cfg.RateLimit.Burst != 10 {
		t.Errorf("RateLimit.Burst = %d, want %d", cfg.RateLimit.Burst, 10)
	}
}

func TestLoad_WithEnvOverride(t *testing.T) {
	t.Setenv("APP_NAME", "test-app")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("MESSAGING_DRIVER", "kafka")
	t.Setenv("MESSAGING_KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.App.Name != "test-app" {
		t.Errorf("App.Name = %q, want %q", cfg.App.Name, "test-app")
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}

	if cfg.Storage.Driver != StorageDriverMemory {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, StorageDriverMemory)
	}

	if len(cfg.Messaging.KafkaBrokers) != 2 || cfg.Messaging.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("Messaging.KafkaBrokers = %v, want [k1:9092 k2:9092]", cfg.Messaging.KafkaBrokers)
	}

	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Errorf("Server.AllowedOrigins = %v, want 2 entries", cfg.Server.AllowedOrigins)
	}
}

func TestLoadWithPath_MissingFile(t *testing.T) {
	if _, err := LoadWithPath("does-not-exist.env"); err == nil {
		t.Error("LoadWithPath() expected error for missing file")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	if dsn := cfg.DSN(); dsn != expected {
		t.Errorf("DSN() = %q, want %q", dsn, expected)
	}
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{
		Host: "redis.example.com",
		Port: 6380,
	}

	expected := "redis.example.com:6380"
	if addr := cfg.Addr(); addr != expected {
		t.Errorf("Addr() = %q, want %q", addr, expected)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "missing app name", mutate: func(c *Config) { c.App.Name = "" }, wantErr: true},
		{name: "invalid port", mutate: func(c *Config) { c.Server.Port = -1 }, wantErr: true},
		{name: "port too high", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "missing database host", mutate: func(c *Config) { c.Database.Host = "" }, wantErr: true},
		{name: "missing database name", mutate: func(c *Config) { c.Database.DBName = "" }, wantErr: true},
		{
			name: "memory storage ignores database",
			mutate: func(c *Config) {
				c.Storage.Driver = StorageDriverMemory
				c.Database = DatabaseConfig{}
			},
		},
		{name: "unknown storage driver", mutate: func(c *Config) { c.Storage.Driver = "sqlite" }, wantErr: true},
		{name: "unknown messaging driver", mutate: func(c *Config) { c.Messaging.Driver = "nats" }, wantErr: true},
		{
			name: "kafka without brokers",
			mutate: func(c *Config) {
				c.Messaging.Driver = MessagingDriverKafka
				c.Messaging.KafkaBrokers = nil
			},
			wantErr: true,
		},
		{
			name: "rabbitmq without url",
			mutate: func(c *Config) {
				c.Messaging.Driver = MessagingDriverRabbitMQ
				c.Messaging.RabbitMQURL = ""
			},
			wantErr: true,
		},
		{name: "missing JWT secret", mutate: func(c *Config) { c.JWT.Secret = "" }, wantErr: true},
		{
			name: "default JWT secret in production",
			mutate: func(c *Config) {
				c.App.Environment = "production"
				c.JWT.Secret = defaultJWTSecret
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_BufferViews(t *testing.T) {
	tests := []struct {
		name     string
		buffered bool
		redis    bool
		want     bool
	}{
		{"buffered with redis", true, true, true},
		{"buffered without redis", true, false, false},
		{"direct with redis", false, true, false},
		{"direct without redis", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Views.Buffered = tt.buffered
			cfg.Redis.Enabled = tt.redis
			if got := cfg.BufferViews(); got != tt.want {
				t.Errorf("BufferViews() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	cfg := &Config{
		App: AppConfig{Environment: "production"},
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction() = false, want true")
	}

	cfg.App.Environment = "development"
	if cfg.IsProduction() {
		t.Error("IsProduction() = true, want false")
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{
		App: AppConfig{Environment: "development"},
	}
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true")
	}

	cfg.App.Environment = "production"
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false")
	}
}
