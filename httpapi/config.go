package httpapi

import "time"

const shutdownTimeout = 5 * time.Second

// Config defines HTTP API settings.
type Config struct {
	Addr     string
	BasePath string
	// StreamBacklog is the number of trace entries replayed to a new stream
	// that sends no Last-Event-ID.
	StreamBacklog int
}
