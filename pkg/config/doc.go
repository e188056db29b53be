// Package config provides configuration management for Bastion.
//
// This package handles loading and validating configuration from YAML files
// with environment variable overrides. Every field has a default, so an empty
// file is a valid configuration.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("bastion.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("bastion.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention BASTION_SECTION_FIELD.
// For example:
//
//   - BASTION_SANDBOX_POLICY_FILE_PATH overrides sandbox.policy.file_path
//   - BASTION_CACHE_BACKEND overrides cache.backend
//   - BASTION_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// The file is decoded over Default, so options that default to true keep
// their value unless the file sets them explicitly.
//
// # Validation
//
// Validation errors are collected and reported together with field paths:
//
//	configuration validation failed with 2 errors:
//	  - cache.backend: invalid backend "disk": must be 'memory', 'redis', 'sqlite', or 'tiered'
//	  - telemetry.logging.format: invalid logging format "xml": must be 'json' or 'text'
//
// # Example Configuration
//
//	sandbox:
//	  id: "tenant-42"
//	  options:
//	    allow_functions: true
//	    sandbox_strings: true
//	  policy:
//	    mode: "file"
//	    file_path: "./policy.yaml"
//	    watch: true
//
//	cache:
//	  backend: "sqlite"
//	  ttl: "24h"
//	  sqlite:
//	    path: "data/validation-cache.db"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config
