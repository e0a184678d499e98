// Package redis connects to the Redis instance backing the shared preference
// and delivery stores, with retrying connect and a health probe.
package redis
