package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agrobolivia/farm-platform/internal/core/domain"
)

const userCollection = "users"

// UserRepository persists user accounts in MongoDB.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(userCollection)}
}

func userEmailIndex() mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
}

type mongoUser struct {
	ID              string `bson:"_id"`
	Email           string `bson:"email"`
	PasswordHash    string `bson:"password_hash"`
	FirstName       string `bson:"first_name,omitempty"`
	LastName        string `bson:"last_name,omitempty"`
	Phone           string `bson:"phone,omitempty"`
	Department      string `bson:"department,omitempty"`
	Community       string `bson:"community,omitempty"`
	Role            string `bson:"role"`
	Active          bool   `bson:"active"`
	TwoFactorState  string `bson:"two_factor_state"`
	TwoFactorSecret string `bson:"two_factor_secret,omitempty"`
	LastLoginAt     int64  `bson:"last_login_at,omitempty"`
	CreatedAt       int64  `bson:"created_at"`
	UpdatedAt       int64  `bson:"updated_at"`
}

func toMongoUser(u *domain.User) mongoUser {
	return mongoUser{
		ID:              u.ID,
		Email:           u.Email,
		PasswordHash:    u.PasswordHash,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Phone:           u.Phone,
		Department:      u.Department,
		Community:       u.Community,
		Role:            u.Role,
		Active:          u.Active,
		TwoFactorState:  u.TwoFactorState,
		TwoFactorSecret: u.TwoFactorSecret,
		LastLoginAt:     unixOrZero(u.LastLoginAt),
		CreatedAt:       u.CreatedAt.Unix(),
		UpdatedAt:       u.UpdatedAt.Unix(),
	}
}

func (m mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:              m.ID,
		Email:           m.Email,
		PasswordHash:    m.PasswordHash,
		FirstName:       m.FirstName,
		LastName:        m.LastName,
		Phone:           m.Phone,
		Department:      m.Department,
		Community:       m.Community,
		Role:            m.Role,
		Active:          m.Active,
		TwoFactorState:  m.TwoFactorState,
		TwoFactorSecret: m.TwoFactorSecret,
		LastLoginAt:     unixToTime(m.LastLoginAt),
		CreatedAt:       unixToTime(m.CreatedAt),
		UpdatedAt:       unixToTime(m.UpdatedAt),
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if _, err := r.coll.InsertOne(ctx, toMongoUser(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.update(ctx, id, bson.M{"password_hash": passwordHash})
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string) error {
	return r.update(ctx, id, bson.M{"last_login_at": time.Now().Unix()})
}

func (r *UserRepository) SetTwoFactor(ctx context.Context, id, secret, state string) error {
	return r.update(ctx, id, bson.M{"two_factor_secret": secret, "two_factor_state": state})
}

// profileFields are the only user fields self-service updates may touch.
var profileFields = map[string]string{
	"first_name": "first_name",
	"last_name":  "last_name",
	"phone":      "phone",
	"department": "department",
	"community":  "community",
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, fields map[string]string) (*domain.User, error) {
	set := bson.M{}
	for k, v := range fields {
		if col, ok := profileFields[k]; ok && v != "" {
			set[col] = v
		}
	}
	if len(set) > 0 {
		if err := r.update(ctx, id, set); err != nil {
			return nil, err
		}
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) update(ctx context.Context, id string, set bson.M) error {
	set["updated_at"] = time.Now().Unix()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
