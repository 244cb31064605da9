package models

import "time"

// Event is an ephemeral notification fanned out to connected
// observers. Never persisted.
type Event struct {
	Type    string `json:"event"`
	Payload any    `json:"payload"`
}

// CacheEntry is one row of the durable key-value cache. An entry is
// logically absent once ExpiresAt has passed, even if still stored.
type CacheEntry struct {
	Key       string
	Value     []byte
	ExpiresAt time.Time
}
