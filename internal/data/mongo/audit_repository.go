// Package mongo provides the MongoDB-backed audit store. Audit events are
// append-only: the ledger core writes them and never reads them back.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// AuditCollectionName is the name of the audit event collection
	AuditCollectionName = "audit_events"
)

// AuditEvent is one operator or system action worth keeping a trail of
type AuditEvent struct {
	ActorID      string                 `bson:"actor_id"`
	Action       string                 `bson:"action"`
	ResourceType string                 `bson:"resource_type"`
	ResourceID   string                 `bson:"resource_id"`
	Details      map[string]interface{} `bson:"details,omitempty"`
	CreatedAt    time.Time              `bson:"created_at"`
}

// AuditRepository writes audit events to MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Record appends one audit event
func (r *AuditRepository) Record(ctx context.Context, actorID, action, resourceType, resourceID string, details map[string]interface{}) error {
	event := AuditEvent{
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		CreatedAt:    time.Now(),
	}

	collection := r.db.Collection(AuditCollectionName)
	if _, err := collection.InsertOne(ctx, event); err != nil {
		r.logger.Error("Failed to record audit event",
			"actor_id", actorID,
			"action", action,
			"resource_id", resourceID,
			"error", err)
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	return nil
}
