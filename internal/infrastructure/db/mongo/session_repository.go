package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/agrobolivia/farm-platform/internal/core/domain"
)

const sessionCollection = "sessions"

// SessionRepository persists the session registry in MongoDB. The
// refresh-rotation compare-and-swap rides on FindOneAndUpdate, which is
// atomic per document, so two concurrent rotations can never both win.
type SessionRepository struct {
	coll *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{coll: db.Collection(sessionCollection)}
}

func sessionIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "revoked", Value: 1}, {Key: "expires_at", Value: 1}}},
	}
}

type mongoSession struct {
	ID          string `bson:"_id"`
	UserID      string `bson:"user_id"`
	RefreshHash string `bson:"refresh_hash"`
	Revoked     bool   `bson:"revoked"`
	IP          string `bson:"ip,omitempty"`
	UserAgent   string `bson:"user_agent,omitempty"`
	CreatedAt   int64  `bson:"created_at"`
	LastSeenAt  int64  `bson:"last_seen_at"`
	ExpiresAt   int64  `bson:"expires_at"`
}

func (m mongoSession) toDomain() *domain.Session {
	return &domain.Session{
		ID:          m.ID,
		UserID:      m.UserID,
		RefreshHash: m.RefreshHash,
		Revoked:     m.Revoked,
		IP:          m.IP,
		UserAgent:   m.UserAgent,
		CreatedAt:   unixToTime(m.CreatedAt),
		LastSeenAt:  unixToTime(m.LastSeenAt),
		ExpiresAt:   unixToTime(m.ExpiresAt),
	}
}

func (r *SessionRepository) Insert(ctx context.Context, s *domain.Session) error {
	doc := mongoSession{
		ID:          s.ID,
		UserID:      s.UserID,
		RefreshHash: s.RefreshHash,
		Revoked:     s.Revoked,
		IP:          s.IP,
		UserAgent:   s.UserAgent,
		CreatedAt:   s.CreatedAt.Unix(),
		LastSeenAt:  s.LastSeenAt.Unix(),
		ExpiresAt:   s.ExpiresAt.Unix(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) FindByID(ctx context.Context, id string) (*domain.Session, error) {
	var ms mongoSession
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&ms); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return ms.toDomain(), nil
}

// SwapRefreshHash replaces the current refresh reference only when the
// presented hash still matches and the session is live. A miss is then
// classified by re-reading the document: gone, revoked, or reused.
func (r *SessionRepository) SwapRefreshHash(ctx context.Context, id, currentHash, nextHash string) error {
	now := time.Now().Unix()
	filter := bson.M{
		"_id":          id,
		"refresh_hash": currentHash,
		"revoked":      false,
		"expires_at":   bson.M{"$gt": now},
	}
	update := bson.M{"$set": bson.M{"refresh_hash": nextHash, "last_seen_at": now}}

	err := r.coll.FindOneAndUpdate(ctx, filter, update).Err()
	if err == nil {
		return nil
	}
	if err != mongo.ErrNoDocuments {
		return fmt.Errorf("rotate session: %w", err)
	}

	session, findErr := r.FindByID(ctx, id)
	if findErr != nil {
		return findErr
	}
	if !session.ActiveAt(time.Now()) {
		return domain.ErrTokenRevoked
	}
	return domain.ErrRefreshReused
}

func (r *SessionRepository) Touch(ctx context.Context, id string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"last_seen_at": time.Now().Unix()}},
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Revoke(ctx context.Context, id string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"revoked": true}},
	)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"user_id": userID, "revoked": false},
		bson.M{"$set": bson.M{"revoked": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("revoke sessions: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *SessionRepository) CountActive(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"revoked":    false,
		"expires_at": bson.M{"$gt": time.Now().Unix()},
	})
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}
