package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agrobolivia/farm-platform/internal/core/domain"
)

const auditCollection = "audit_log"

// AuditRepository persists audit events in MongoDB. Insert-only: this
// core never updates or deletes an event.
type AuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection)}
}

func auditIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
}

type mongoAuditEvent struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Kind       string             `bson:"kind"`
	UserID     string             `bson:"user_id,omitempty"`
	Resource   string             `bson:"resource,omitempty"`
	ResourceID string             `bson:"resource_id,omitempty"`
	Action     string             `bson:"action,omitempty"`
	OldValue   string             `bson:"old_value,omitempty"`
	NewValue   string             `bson:"new_value,omitempty"`
	IP         string             `bson:"ip,omitempty"`
	UserAgent  string             `bson:"user_agent,omitempty"`
	RequestID  string             `bson:"request_id,omitempty"`
	Metadata   map[string]string  `bson:"metadata,omitempty"`
	CreatedAt  int64              `bson:"created_at"`
}

func (m mongoAuditEvent) toDomain() domain.AuditEvent {
	return domain.AuditEvent{
		ID:         m.ID.Hex(),
		Kind:       m.Kind,
		UserID:     m.UserID,
		Resource:   m.Resource,
		ResourceID: m.ResourceID,
		Action:     m.Action,
		OldValue:   m.OldValue,
		NewValue:   m.NewValue,
		IP:         m.IP,
		UserAgent:  m.UserAgent,
		RequestID:  m.RequestID,
		Metadata:   m.Metadata,
		CreatedAt:  unixToTime(m.CreatedAt),
	}
}

func (r *AuditRepository) Insert(ctx context.Context, event *domain.AuditEvent) error {
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	doc := mongoAuditEvent{
		Kind:       event.Kind,
		UserID:     event.UserID,
		Resource:   event.Resource,
		ResourceID: event.ResourceID,
		Action:     event.Action,
		OldValue:   event.OldValue,
		NewValue:   event.NewValue,
		IP:         event.IP,
		UserAgent:  event.UserAgent,
		RequestID:  event.RequestID,
		Metadata:   event.Metadata,
		CreatedAt:  createdAt.Unix(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (r *AuditRepository) FindRecentByKinds(ctx context.Context, kinds []string, limit int64) ([]domain.AuditEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	return r.find(ctx, bson.M{"kind": bson.M{"$in": kinds}}, opts)
}

func (r *AuditRepository) FindByUser(ctx context.Context, userID string, limit, offset int64) ([]domain.AuditEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)
	return r.find(ctx, bson.M{"user_id": userID}, opts)
}

func (r *AuditRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.AuditEvent, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find audit events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []domain.AuditEvent
	for cursor.Next(ctx) {
		var me mongoAuditEvent
		if err := cursor.Decode(&me); err != nil {
			return nil, fmt.Errorf("decode audit event: %w", err)
		}
		events = append(events, me.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func (r *AuditRepository) CountByKindSince(ctx context.Context, kind string, since time.Time) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"kind":       kind,
		"created_at": bson.M{"$gte": since.Unix()},
	})
	if err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return n, nil
}
