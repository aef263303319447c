// Package instance identifies the running process among its replicas.
package instance

import (
	"os"
	"strings"
)

const envInstanceID = "RENTMATE_INSTANCE_ID"

// GetID returns RENTMATE_INSTANCE_ID, then the hostname, then "local".
func GetID() string {
	if id := strings.TrimSpace(os.Getenv(envInstanceID)); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
