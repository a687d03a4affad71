// Package config builds runtime configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strings"
	"time"
)

// Config captures everything the server binary needs.
type Config struct {
	Addr string

	PostgresDSN string
	RedisURL    string

	KafkaBrokers []string
	AuditTopic   string

	JWTSigningKey string

	// BootstrapAdminCode is the seeded admin enrollment code. Optional;
	// without it the first admin can only be created while the system has
	// zero admins via a direct tier mutation.
	BootstrapAdminCode string

	ShutdownTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	addr := os.Getenv("AGORA_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default; override in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	topic := os.Getenv("AUDIT_TOPIC")
	if topic == "" {
		topic = "agora.audit.events"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Config{
		Addr:               addr,
		PostgresDSN:        os.Getenv("POSTGRES_DSN"),
		RedisURL:           os.Getenv("REDIS_URL"),
		KafkaBrokers:       brokers,
		AuditTopic:         topic,
		JWTSigningKey:      jwtSigningKey,
		BootstrapAdminCode: os.Getenv("BOOTSTRAP_ADMIN_CODE"),
		ShutdownTimeout:    15 * time.Second,
	}
}
