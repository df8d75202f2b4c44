// Package config handles configuration loading for the agentwire gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	broker:
//	  redis_url: "${AGENTWIRE_REDIS_URL}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	turns:
//	  dedupe_ttl: "5m"
//	  turn_timeout: "10s"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  listen_addr: "0.0.0.0:8080"
//	  allowed_origins:
//	    - "https://app.example.com"
//
// Session store:
//
//	database:
//	  path: "/var/lib/agentwire/gateway.db"
//
// Broker (empty redis_url selects the in-process broker):
//
//	broker:
//	  redis_url: "redis://localhost:6379/0"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
//	cfg, err := config.Load("/etc/agentwire/gateway.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
