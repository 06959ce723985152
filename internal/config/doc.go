// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// A .env file next to the working directory is loaded first when present; variables
// already set in the process environment take precedence.
package config
