package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agrobolivia/farm-platform/internal/core/domain"
	"github.com/agrobolivia/farm-platform/internal/core/ports"
)

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User // by id
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *stubUserRepo) UpdateLastLogin(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.LastLoginAt = time.Now().UTC()
	return nil
}

func (r *stubUserRepo) SetTwoFactor(_ context.Context, id, secret, state string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.TwoFactorSecret = secret
	u.TwoFactorState = state
	return nil
}

func (r *stubUserRepo) UpdateProfile(_ context.Context, id string, fields map[string]string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	for field, value := range fields {
		switch field {
		case "first_name":
			u.FirstName = value
		case "last_name":
			u.LastName = value
		case "phone":
			u.Phone = value
		case "department":
			u.Department = value
		case "community":
			u.Community = value
		}
	}
	return cloneUser(u), nil
}

// stubSessionRepo gives SwapRefreshHash the same compare-and-swap
// semantics the Mongo implementation has, guarded by a mutex so the
// exactly-one-winner property holds under concurrent rotation.
type stubSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{sessions: make(map[string]*domain.Session)}
}

func (r *stubSessionRepo) Insert(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *session
	r.sessions[session.ID] = &clone
	return nil
}

func (r *stubSessionRepo) FindByID(_ context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	clone := *s
	return &clone, nil
}

func (r *stubSessionRepo) SwapRefreshHash(_ context.Context, id, currentHash, nextHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if s.Revoked {
		return domain.ErrTokenRevoked
	}
	if s.RefreshHash != currentHash {
		return domain.ErrRefreshReused
	}
	s.RefreshHash = nextHash
	s.LastSeenAt = time.Now().UTC()
	return nil
}

func (r *stubSessionRepo) Touch(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.LastSeenAt = time.Now().UTC()
	}
	return nil
}

func (r *stubSessionRepo) Revoke(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.Revoked = true
	}
	return nil
}

func (r *stubSessionRepo) RevokeAllForUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sessions {
		if s.UserID == userID && !s.Revoked {
			s.Revoked = true
			n++
		}
	}
	return n, nil
}

func (r *stubSessionRepo) CountActive(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var n int64
	for _, s := range r.sessions {
		if s.ActiveAt(now) {
			n++
		}
	}
	return n, nil
}

type stubRecorder struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (r *stubRecorder) Record(event domain.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *stubRecorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func (r *stubRecorder) has(kind string) bool {
	for _, k := range r.kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// stubLimiter mimics the redis fixed window in memory.
type stubLimiter struct {
	mu     sync.Mutex
	max    int64
	counts map[string]int64
}

func newStubLimiter(max int64) *stubLimiter {
	return &stubLimiter{max: max, counts: make(map[string]int64)}
}

func (l *stubLimiter) Check(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counts[key] >= l.max {
		return domain.ErrRateLimitExceeded
	}
	return nil
}

func (l *stubLimiter) RecordFailure(_ context.Context, key string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[key]++
	return l.counts[key], nil
}

func (l *stubLimiter) RecordSuccess(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.counts, key)
	return nil
}

func (l *stubLimiter) Allow(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[key]++
	if l.counts[key] > l.max {
		return domain.ErrRateLimitExceeded
	}
	return nil
}

type stubChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]ports.LoginChallenge
	ttls       map[string]time.Duration
}

func newStubChallengeStore() *stubChallengeStore {
	return &stubChallengeStore{
		challenges: make(map[string]ports.LoginChallenge),
		ttls:       make(map[string]time.Duration),
	}
}

func (s *stubChallengeStore) Save(_ context.Context, id string, challenge *ports.LoginChallenge, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[id] = *challenge
	s.ttls[id] = ttl
	return nil
}

func (s *stubChallengeStore) lastTTL(id string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttls[id]
}

func (s *stubChallengeStore) Get(_ context.Context, id string) (*ports.LoginChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok {
		return nil, domain.ErrChallengeExpired
	}
	clone := c
	return &clone, nil
}

func (s *stubChallengeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, id)
	return nil
}

type stubReplayGuard struct {
	mu      sync.Mutex
	claimed map[string]bool
}

func newStubReplayGuard() *stubReplayGuard {
	return &stubReplayGuard{claimed: make(map[string]bool)}
}

func (g *stubReplayGuard) Claim(_ context.Context, userID string, counter int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := fmt.Sprintf("%s:%d", userID, counter)
	if g.claimed[key] {
		return false, nil
	}
	g.claimed[key] = true
	return true, nil
}
