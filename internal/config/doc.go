// Package config loads, normalizes, and validates scrapbook configuration.
//
// Settings come from a TOML file, then from a .env file and the process
// environment: PORT and DATABASE_URL override the file so deployments that
// only set those two keep working. Paths may start with "~".
package config
