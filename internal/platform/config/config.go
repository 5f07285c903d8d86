// Package config holds process configuration: server settings from the
// environment and the engine property store consumed by the membership
// manager and the plugin registry.
package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"certgate/internal/platform/props"
)

// Server captures process level configuration so main stays lean.
type Server struct {
	Addr         string
	EngineConfig string
	RegistryFile string
	DatabaseURL  string
	RedisURL     string
	KafkaBrokers string
	AuditTopic   string
	SigningKey   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("CERTGATE_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	topic := os.Getenv("CERTGATE_AUDIT_TOPIC")
	if topic == "" {
		topic = "certgate.audit"
	}
	return Server{
		Addr:         addr,
		EngineConfig: os.Getenv("CERTGATE_ENGINE_CONFIG"),
		RegistryFile: os.Getenv("CERTGATE_REGISTRY_FILE"),
		DatabaseURL:  os.Getenv("CERTGATE_DATABASE_URL"),
		RedisURL:     os.Getenv("CERTGATE_REDIS_URL"),
		KafkaBrokers: os.Getenv("CERTGATE_KAFKA_BROKERS"),
		AuditTopic:   topic,
		SigningKey:   os.Getenv("CERTGATE_SIGNING_KEY"),
	}
}

// Engine exposes the flat engine properties (multiroles.*, registry.file, ...).
// Reads are concurrency-safe; the property set is fixed after load.
type Engine struct {
	mu         sync.RWMutex
	properties map[string]string
}

// NewEngine builds an engine config from an in-memory property set.
// Tests and embedders use this directly.
func NewEngine(properties map[string]string) *Engine {
	if properties == nil {
		properties = make(map[string]string)
	}
	return &Engine{properties: properties}
}

// LoadEngine reads engine properties from a flat key=value file. A missing
// path yields an empty config: every consumer has a documented default.
func LoadEngine(path string) (*Engine, error) {
	if path == "" {
		return NewEngine(nil), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open engine config: %w", err)
	}
	defer f.Close()

	properties, err := props.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse engine config %s: %w", path, err)
	}
	return NewEngine(properties), nil
}

// GetString returns the property value, or def when the key is absent.
func (e *Engine) GetString(key, def string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if value, ok := e.properties[key]; ok {
		return value
	}
	return def
}

// GetBoolean returns the property parsed as a bool. Absent or unparsable
// values yield def so a broken config degrades to documented behavior instead
// of failing the operation.
func (e *Engine) GetBoolean(key string, def bool) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	value, ok := e.properties[key]
	if !ok {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}

// Set overrides a property. Used by tests and bootstrap seeding.
func (e *Engine) Set(key, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.properties[key] = value
}
