package utils

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"todoapi/models"
)

const (
	redisTimeout  = 5 * time.Second
	sessionPrefix = "session:"
	userIndexKey  = "user_sessions:"
	tokenBytes    = 32
)

var ErrSessionNotFound = errors.New("session not found")

// OpenRedisPool parses dsn, configures the connection pool and pings the server.
func OpenRedisPool(ctx context.Context, dsn string) (*redis.Client, error) {
	opt, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	opt.PoolSize = 100
	opt.MinIdleConns = 2
	opt.DialTimeout = 5 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// SessionStore keeps access-token sessions in Redis. Each session is a hash at
// session:<token> expiring after ttl; user_sessions:<id> indexes a user's sessions.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

// Create issues a fresh token for userID and stores its session.
func (s *SessionStore) Create(ctx context.Context, userID int64, userAgent, ip string) (models.Session, error) {
	token, err := GenerateToken(tokenBytes)
	if err != nil {
		return models.Session{}, err
	}

	now := time.Now().UTC()
	session := models.Session{
		Token:        token,
		UserID:       userID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
		LastActivity: now,
		UserAgent:    userAgent,
		IPAddress:    ip,
	}

	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	key := sessionPrefix + token
	fields := map[string]any{
		"user_id":       strconv.FormatInt(userID, 10),
		"created_at":    session.CreatedAt.Format(time.RFC3339Nano),
		"expires_at":    session.ExpiresAt.Format(time.RFC3339Nano),
		"last_activity": session.LastActivity.Format(time.RFC3339Nano),
		"user_agent":    userAgent,
		"ip_address":    ip,
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, s.ttl)
		pipe.SAdd(ctx, userIndex(userID), key)
		return nil
	})
	if err != nil {
		return models.Session{}, fmt.Errorf("storing session: %w", err)
	}
	return session, nil
}

// Get returns the live session for token or ErrSessionNotFound.
func (s *SessionStore) Get(ctx context.Context, token string) (models.Session, error) {
	if token == "" {
		return models.Session{}, ErrSessionNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	data, err := s.client.HGetAll(ctx, sessionPrefix+token).Result()
	if err != nil {
		return models.Session{}, fmt.Errorf("reading session: %w", err)
	}
	if len(data) == 0 {
		return models.Session{}, ErrSessionNotFound
	}

	session, err := parseSession(token, data)
	if err != nil {
		return models.Session{}, err
	}
	if !time.Now().Before(session.ExpiresAt) {
		return models.Session{}, ErrSessionNotFound
	}
	return session, nil
}

func parseSession(token string, data map[string]string) (models.Session, error) {
	userID, err := strconv.ParseInt(data["user_id"], 10, 64)
	if err != nil {
		return models.Session{}, fmt.Errorf("session user id: %w", err)
	}

	session := models.Session{
		Token:     token,
		UserID:    userID,
		UserAgent: data["user_agent"],
		IPAddress: data["ip_address"],
	}
	for field, dst := range map[string]*time.Time{
		"created_at":    &session.CreatedAt,
		"expires_at":    &session.ExpiresAt,
		"last_activity": &session.LastActivity,
	} {
		ts, err := time.Parse(time.RFC3339Nano, data[field])
		if err != nil {
			return models.Session{}, fmt.Errorf("session %s: %w", field, err)
		}
		*dst = ts
	}
	return session, nil
}

// Touch records activity on a session. The expiry is left unchanged.
func (s *SessionStore) Touch(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	key := sessionPrefix + token
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("checking session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return s.client.HSet(ctx, key, "last_activity", time.Now().UTC().Format(time.RFC3339Nano)).Err()
}

// Delete removes a single session and its entry in the user index.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	key := sessionPrefix + token
	uid, err := s.client.HGet(ctx, key, "user_id").Result()
	if errors.Is(err, redis.Nil) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, userIndexKey+uid, key)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// CountForUser returns how many of the user's indexed sessions are still alive.
// Index entries whose session has expired are pruned.
func (s *SessionStore) CountForUser(ctx context.Context, userID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	index := userIndex(userID)
	keys, err := s.client.SMembers(ctx, index).Result()
	if err != nil {
		return 0, fmt.Errorf("listing user sessions: %w", err)
	}

	var count int64
	for _, key := range keys {
		n, err := s.client.Exists(ctx, key).Result()
		if err != nil {
			return 0, fmt.Errorf("checking session: %w", err)
		}
		if n == 0 {
			if err := s.client.SRem(ctx, index, key).Err(); err != nil {
				return 0, fmt.Errorf("pruning user sessions: %w", err)
			}
			continue
		}
		count++
	}
	return count, nil
}

// DeleteAllForUser removes every session of the user and the index itself.
func (s *SessionStore) DeleteAllForUser(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	index := userIndex(userID)
	keys, err := s.client.SMembers(ctx, index).Result()
	if err != nil {
		return fmt.Errorf("listing user sessions: %w", err)
	}

	if len(keys) > 0 {
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("deleting user sessions: %w", err)
		}
	}
	return s.client.Del(ctx, index).Err()
}

func userIndex(userID int64) string {
	return userIndexKey + strconv.FormatInt(userID, 10)
}
