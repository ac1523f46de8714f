package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/shelf-api/internal/domain"
)

// EntityCreated is emitted after an entity has been stored.
type EntityCreated struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Kind is the type of the created entity
	Kind domain.EntityKind `json:"kind"`

	// EntityID is the id assigned by the store
	EntityID int `json:"entityId"`

	// Name is the stored name of the entity
	Name string `json:"name"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"createdAt"`
}

// NewEntityCreated creates an event describing e.
func NewEntityCreated(e domain.Entity, name string) *EntityCreated {
	return &EntityCreated{
		ID:        uuid.New(),
		Kind:      e.EntityKind(),
		EntityID:  e.EntityID(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *EntityCreated) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *EntityCreated) error
}

// HandlerFunc adapts an ordinary function to EventHandler.
type HandlerFunc func(ctx context.Context, event *EntityCreated) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *EntityCreated) error {
	return f(ctx, event)
}

// AuditLogHandler writes one structured log line per created entity.
type AuditLogHandler struct {
	logger *slog.Logger
}

// NewAuditLogHandler creates an AuditLogHandler.
// If logger is nil, a default logger will be used.
func NewAuditLogHandler(logger *slog.Logger) *AuditLogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogHandler{logger: logger.With("component", "audit")}
}

// HandleEvent implements EventHandler.
func (h *AuditLogHandler) HandleEvent(ctx context.Context, event *EntityCreated) error {
	h.logger.InfoContext(ctx, "entity created",
		"event_id", event.ID.String(),
		"kind", event.Kind.String(),
		"entity_id", event.EntityID,
		"name", event.Name)
	return nil
}
