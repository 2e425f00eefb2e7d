package config

import "os"

// Default endpoints used by cmd/vss-sim.
const (
	DefaultServerURL = "http://localhost:8080"
	DefaultHubURL    = "ws://localhost:8081"
)

// ServerURL returns the dashboard API URL from VSS_SERVER_URL.
// Falls back to DefaultServerURL if not set.
func ServerURL() string {
	if url := os.Getenv("VSS_SERVER_URL"); url != "" {
		return url
	}
	return DefaultServerURL
}

// HubURL returns the robot websocket hub URL from VSS_HUB_URL.
// Falls back to DefaultHubURL if not set.
func HubURL() string {
	if url := os.Getenv("VSS_HUB_URL"); url != "" {
		return url
	}
	return DefaultHubURL
}
