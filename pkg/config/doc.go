// Package config loads env-tagged configuration structs, with optional .env
// file support for development.
package config
