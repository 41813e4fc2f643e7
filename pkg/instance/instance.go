package instance

import "os"

// EnvInstanceID overrides the worker identity reported in logs.
const EnvInstanceID = "DEALDESK_INSTANCE_ID"

// GetID returns the worker instance identifier, falling back to the hostname.
func GetID() string {
	if id := os.Getenv(EnvInstanceID); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
