// Package config handles configuration loading for cergdb.
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
//	auth:
//	  jwt_secret: "${CERGDB_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}, or ${VAR_NAME:-default} to fall back to a default
// when the variable is unset or empty.
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:3000"
//	  cert_file: "/etc/cergdb/tls.crt"   # optional, enables TLS with key_file
//	  key_file: "/etc/cergdb/tls.key"
//	  request_timeout: "10s"
//
// Database (one of two drivers):
//
//	database:
//	  driver: "sqlite"
//	  path: "/var/lib/cergdb/cergdb.db"
//
//	database:
//	  driver: "postgres"
//	  dsn: "${DATABASE_URL}"
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${CERGDB_JWT_SECRET}"          # signs access tokens
//	  password_pepper: "${CERGDB_PASSWORD_PEPPER}" # keyed into password hashes
//	  admin_password: "${CERGDB_ADMIN_PASSWORD}"   # bootstrap admin credential
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() validates:
//
//   - JWT secret and password pepper minimum length (32 bytes)
//   - Pepper is not a copy of the JWT secret
//   - Database driver selection and its required field
//   - Duration format validity
//
// # Usage
//
// Load configuration from a path:
//
//	cfg, err := config.Load("/etc/cergdb/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
