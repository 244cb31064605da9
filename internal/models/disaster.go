package models

import "time"

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

// AuditEntry is one immutable row of a record's change history.
type AuditEntry struct {
	Action    AuditAction    `json:"action"`
	ActorID   string         `json:"actor_id"`
	Timestamp time.Time      `json:"timestamp"`
	Changes   map[string]any `json:"changes"`
}

type LocationSource string

const (
	LocationSourceCache         LocationSource = "cache"
	LocationSourceGoogle        LocationSource = "google"
	LocationSourceNominatim     LocationSource = "nominatim"
	LocationSourceFallbackTable LocationSource = "fallback_table"
)

// ResolvedLocation is the outcome of geocoding a location name.
// Immutable once produced; Source records which backend answered.
type ResolvedLocation struct {
	Latitude         float64        `json:"latitude"`
	Longitude        float64        `json:"longitude"`
	FormattedAddress string         `json:"formatted_address"`
	Source           LocationSource `json:"source"`
}

type DisasterRecord struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	LocationName string            `json:"location_name,omitempty"`
	Description  string            `json:"description"`
	Tags         []string          `json:"tags"`
	OwnerID      string            `json:"owner_id"`
	Coordinates  *ResolvedLocation `json:"coordinates"` // nil when resolution was never attempted or failed everywhere
	AuditTrail   []AuditEntry      `json:"audit_trail"`
	Version      int64             `json:"version"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
