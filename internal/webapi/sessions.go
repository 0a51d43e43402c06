package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"guildpilot/internal/storage"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const sessionKeyPrefix = "dashboard-session:"

var ErrSessionNotFound = errors.New("session not found")

type ManagedGuild struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Owner bool   `json:"owner"`
}

type SessionUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
}

// Session is what a dashboard bearer token resolves to.
type Session struct {
	Token     string         `json:"token"`
	User      SessionUser    `json:"user"`
	Guilds    []ManagedGuild `json:"guilds"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

func (s *Session) CanManage(guildID string) bool {
	for _, g := range s.Guilds {
		if g.ID == guildID {
			return true
		}
	}
	return false
}

type SessionStore interface {
	Create(ctx context.Context, user SessionUser, guilds []ManagedGuild) (Session, error)
	Get(ctx context.Context, token string) (Session, error)
	Delete(ctx context.Context, token string) error
}

type MemorySessions struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]Session
}

func NewMemorySessions(ttl time.Duration) *MemorySessions {
	return &MemorySessions{ttl: ttl, now: time.Now, sessions: make(map[string]Session)}
}

func (m *MemorySessions) Create(ctx context.Context, user SessionUser, guilds []ManagedGuild) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for token, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, token)
		}
	}
	session := Session{
		Token:     uuid.NewString(),
		User:      user,
		Guilds:    append([]ManagedGuild{}, guilds...),
		ExpiresAt: now.Add(m.ttl),
	}
	m.sessions[session.Token] = session
	return session, nil
}

func (m *MemorySessions) Get(ctx context.Context, token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if !m.now().Before(session.ExpiresAt) {
		delete(m.sessions, token)
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (m *MemorySessions) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

// RedisSessions keeps sessions in Redis so they survive restarts and are
// shared between instances. Expiry is left to the key TTL.
type RedisSessions struct {
	rdb storage.RedisClient
	ttl time.Duration
}

func NewRedisSessions(rdb storage.RedisClient, ttl time.Duration) *RedisSessions {
	return &RedisSessions{rdb: rdb, ttl: ttl}
}

func (r *RedisSessions) Create(ctx context.Context, user SessionUser, guilds []ManagedGuild) (Session, error) {
	session := Session{
		Token:     uuid.NewString(),
		User:      user,
		Guilds:    guilds,
		ExpiresAt: time.Now().Add(r.ttl),
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return Session{}, err
	}
	if err := r.rdb.Set(ctx, sessionKeyPrefix+session.Token, payload, r.ttl).Err(); err != nil {
		return Session{}, err
	}
	return session, nil
}

func (r *RedisSessions) Get(ctx context.Context, token string) (Session, error) {
	raw, err := r.rdb.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return Session{}, err
	}
	return session, nil
}

func (r *RedisSessions) Delete(ctx context.Context, token string) error {
	return r.rdb.Del(ctx, sessionKeyPrefix+token).Err()
}
