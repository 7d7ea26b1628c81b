// Package env reads the handful of platform variables that live outside the
// ETHOPARTS_ config namespace.
package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// InstanceID names the running process for log correlation. WORKER_ID wins,
// then the platform's DYNO, then the hostname.
func InstanceID() string {
	if id := Get("WORKER_ID", Get("DYNO", "")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
