package disasters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/go-disaster-response/internal/audit"
	"github.com/mr1hm/go-disaster-response/internal/geocode"
	"github.com/mr1hm/go-disaster-response/internal/models"
	"github.com/mr1hm/go-disaster-response/internal/repository"
	"github.com/mr1hm/go-disaster-response/internal/resolver"
)

var (
	// ErrNotFound is surfaced verbatim when the target record is absent.
	ErrNotFound = errors.New("disaster not found")
	// ErrPermissionDenied is surfaced verbatim when the actor is
	// neither the record's owner nor an admin. No mutation, no audit
	// entry, no event.
	ErrPermissionDenied = errors.New("insufficient permissions")
)

// updateRetries bounds optimistic-concurrency retries before a
// version conflict is surfaced.
const updateRetries = 3

// EventDisasterUpdated is emitted on every successful mutation.
const EventDisasterUpdated = "disaster_updated"

// MutationEvent is the payload of a disaster_updated event. Disaster
// is set for creates and updates, DisasterID for deletes.
type MutationEvent struct {
	Action     string                 `json:"action"`
	Disaster   *models.DisasterRecord `json:"disaster,omitempty"`
	DisasterID string                 `json:"disaster_id,omitempty"`
}

const (
	RoleAdmin       = "admin"
	RoleContributor = "contributor"
)

// Actor identifies who is performing a mutation. Identity derivation
// belongs to the transport layer.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) canModify(rec *models.DisasterRecord) bool {
	return rec.OwnerID == a.ID || a.Role == RoleAdmin
}

type CreateInput struct {
	Title        string
	LocationName string
	Description  string
	Tags         []string
}

// UpdatePatch carries the fields to change; nil pointers leave the
// current value untouched.
type UpdatePatch struct {
	Title        *string
	LocationName *string
	Description  *string
	Tags         []string
}

// LocationResolver is the resolution capability the service depends
// on; no resolution failure is ever fatal to a mutation.
type LocationResolver interface {
	Resolve(ctx context.Context, q resolver.Query) (models.ResolvedLocation, error)
}

// Publisher fans mutation events out to connected observers.
type Publisher interface {
	Publish(eventType string, payload any)
}

type Service struct {
	repo      repository.DisasterRepository
	resolver  LocationResolver
	ledger    *audit.Ledger
	publisher Publisher
	clock     clockwork.Clock
}

func NewService(repo repository.DisasterRepository, res LocationResolver, ledger *audit.Ledger, publisher Publisher, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		repo:      repo,
		resolver:  res,
		ledger:    ledger,
		publisher: publisher,
		clock:     clock,
	}
}

// Create persists a new disaster record. It always succeeds at
// producing a record; location resolution only determines whether
// Coordinates is populated.
func (s *Service) Create(ctx context.Context, input CreateInput, actor Actor) (*models.DisasterRecord, error) {
	now := s.clock.Now().UTC()
	rec := &models.DisasterRecord{
		ID:           uuid.NewString(),
		Title:        input.Title,
		LocationName: input.LocationName,
		Description:  input.Description,
		Tags:         input.Tags,
		OwnerID:      actor.ID,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if loc, ok := s.resolve(ctx, resolver.Query{
		Description:  input.Description,
		LocationName: input.LocationName,
	}); ok {
		rec.Coordinates = &loc
		if rec.LocationName == "" {
			rec.LocationName = loc.FormattedAddress
		}
	}

	s.ledger.Append(rec, models.AuditActionCreate, actor.ID, map[string]any{
		"title":         rec.Title,
		"location_name": rec.LocationName,
		"description":   rec.Description,
		"tags":          rec.Tags,
	})

	if err := s.repo.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("error creating disaster: %w", err)
	}

	s.publisher.Publish(EventDisasterUpdated, MutationEvent{Action: "created", Disaster: rec})
	slog.Info("disaster created", "id", rec.ID, "title", rec.Title, "owner", actor.ID)
	return rec, nil
}

// Update applies a patch to an existing record. The write is guarded
// by a version check and retried on conflict so a concurrent sibling
// update cannot silently drop an audit entry.
func (s *Service) Update(ctx context.Context, id string, patch UpdatePatch, actor Actor) (*models.DisasterRecord, error) {
	var lastErr error
	for attempt := 0; attempt < updateRetries; attempt++ {
		rec, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("error fetching disaster %s: %w", id, err)
		}
		if rec == nil {
			return nil, ErrNotFound
		}
		if !actor.canModify(rec) {
			return nil, ErrPermissionDenied
		}

		changes := s.apply(ctx, rec, patch)
		s.ledger.Append(rec, models.AuditActionUpdate, actor.ID, changes)
		rec.UpdatedAt = s.clock.Now().UTC()

		err = s.repo.UpdateVersioned(ctx, rec, rec.Version)
		if errors.Is(err, repository.ErrVersionConflict) {
			slog.Debug("version conflict on update, retrying", "id", id, "attempt", attempt+1)
			lastErr = err
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error updating disaster %s: %w", id, err)
		}

		s.publisher.Publish(EventDisasterUpdated, MutationEvent{Action: "updated", Disaster: rec})
		slog.Info("disaster updated", "id", id, "actor", actor.ID)
		return rec, nil
	}
	return nil, fmt.Errorf("error updating disaster %s: %w", id, lastErr)
}

// Delete removes a record. Terminal failures skip audit and events
// entirely.
func (s *Service) Delete(ctx context.Context, id string, actor Actor) error {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("error fetching disaster %s: %w", id, err)
	}
	if rec == nil {
		return ErrNotFound
	}
	if !actor.canModify(rec) {
		return ErrPermissionDenied
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("error deleting disaster %s: %w", id, err)
	}

	s.publisher.Publish(EventDisasterUpdated, MutationEvent{Action: "deleted", DisasterID: id})
	slog.Info("disaster deleted", "id", id, "title", rec.Title, "actor", actor.ID)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.DisasterRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error fetching disaster %s: %w", id, err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (s *Service) List(ctx context.Context, opts repository.Filter) ([]models.DisasterRecord, error) {
	return s.repo.List(ctx, opts)
}

// apply mutates rec per the patch and returns the changes map for the
// audit entry. A new location name triggers re-resolution; failing to
// re-resolve leaves the record without coordinates rather than keeping
// stale ones.
func (s *Service) apply(ctx context.Context, rec *models.DisasterRecord, patch UpdatePatch) map[string]any {
	changes := make(map[string]any)

	if patch.Title != nil {
		rec.Title = *patch.Title
		changes["title"] = rec.Title
	}
	if patch.Description != nil {
		rec.Description = *patch.Description
		changes["description"] = rec.Description
	}
	if patch.Tags != nil {
		rec.Tags = patch.Tags
		changes["tags"] = rec.Tags
	}
	if patch.LocationName != nil && *patch.LocationName != rec.LocationName {
		rec.LocationName = *patch.LocationName
		changes["location_name"] = rec.LocationName

		if loc, ok := s.resolve(ctx, resolver.Query{LocationName: rec.LocationName}); ok {
			rec.Coordinates = &loc
		} else {
			rec.Coordinates = nil
		}
	}

	return changes
}

// resolve swallows every resolution failure: an unresolvable or
// ungeocodable location never blocks the mutation.
func (s *Service) resolve(ctx context.Context, q resolver.Query) (models.ResolvedLocation, bool) {
	loc, err := s.resolver.Resolve(ctx, q)
	if err == nil {
		return loc, true
	}
	switch {
	case errors.Is(err, resolver.ErrUnresolved):
		slog.Debug("no location subject in request")
	case errors.Is(err, geocode.ErrGeocodeFailed):
		slog.Warn("geocoding failed, continuing without coordinates")
	default:
		slog.Warn("location resolution error, continuing without coordinates", "error", err)
	}
	return models.ResolvedLocation{}, false
}
