package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/exim-session/internal/domain"
)

// SessionRepository stores cookie sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) (int, error)
}

type sessionRepository struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewSessionRepository returns a Redis-backed implementation. Sessions live
// under <prefix>:sid:<id> and expire with the session; <prefix>:user:<id>
// indexes a user's sessions.
func NewSessionRepository(client redis.UniversalClient, prefix string) SessionRepository {
	if prefix == "" {
		prefix = "exim:session"
	}
	return &sessionRepository{client: client, prefix: prefix, now: time.Now}
}

func (r *sessionRepository) sessionKey(id string) string {
	return fmt.Sprintf("%s:sid:%s", r.prefix, id)
}

func (r *sessionRepository) userKey(userID string) string {
	return fmt.Sprintf("%s:user:%s", r.prefix, userID)
}

func (r *sessionRepository) Create(ctx context.Context, s *domain.Session) error {
	if s.ID == "" || s.UserID == "" {
		return errors.New("session id and user id are required")
	}
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return errors.New("session already expired")
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	userKey := r.userKey(s.UserID)
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.sessionKey(s.ID), payload, ttl)
	pipe.SAdd(ctx, userKey, s.ID)
	pipe.Expire(ctx, userKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	raw, err := r.client.Get(ctx, r.sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.Expired(r.now()) {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	s, err := r.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.sessionKey(id))
	if s != nil {
		pipe.SRem(ctx, r.userKey(s.UserID), id)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *sessionRepository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	userKey := r.userKey(userID)
	ids, err := r.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return 0, err
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.sessionKey(id))
	}
	keys = append(keys, userKey)

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return 0, err
	}
	return len(ids), nil
}
