package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"soundcheck/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionData is the server-side session record. The mfa_verified flag only
// ever lives here, never in the client-held token.
type SessionData struct {
	UserID      uuid.UUID `json:"user_id"`
	MFAVerified bool      `json:"mfa_verified"`
	CreatedAt   time.Time `json:"created_at"`
}

type CacheService interface {
	// Session management
	SetSession(ctx context.Context, tenantID uuid.UUID, sessionID string, data *SessionData, ttl time.Duration) error
	GetSession(ctx context.Context, tenantID uuid.UUID, sessionID string) (*SessionData, error)
	MarkSessionVerified(ctx context.Context, tenantID uuid.UUID, sessionID string) error
	DeleteSession(ctx context.Context, tenantID uuid.UUID, sessionID string) error

	// Summary KPI caching
	GetSummaryKPIs(ctx context.Context, tenantID uuid.UUID, clientID *uuid.UUID) (*models.SummaryKPIs, error)
	SetSummaryKPIs(ctx context.Context, tenantID uuid.UUID, clientID *uuid.UUID, kpis *models.SummaryKPIs, ttl time.Duration) error
	InvalidateSummaryKPIs(ctx context.Context, tenantID uuid.UUID) error

	// Rate limiting (fixed window)
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type redisCacheService struct {
	client *redis.Client
}

// NewRedisCacheService also returns the underlying client so health checks
// can ping Redis directly.
func NewRedisCacheService(addr, password string, db int) (CacheService, *redis.Client) {
	// Accept redis:// and rediss:// style addresses too
	parsedAddr := strings.TrimPrefix(strings.TrimPrefix(addr, "rediss://"), "redis://")

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		log.Printf("WARN: Redis ping failed on initialization: %v (address: %s)", pingErr, parsedAddr)
	}

	return &redisCacheService{client: client}, client
}

func sessionKey(tenantID uuid.UUID, sessionID string) string {
	return fmt.Sprintf("session:%s:%s", tenantID, sessionID)
}

func kpiKey(tenantID uuid.UUID, clientID *uuid.UUID) string {
	scope := "all"
	if clientID != nil {
		scope = clientID.String()
	}
	return fmt.Sprintf("kpis:%s:%s", tenantID, scope)
}

func (s *redisCacheService) SetSession(ctx context.Context, tenantID uuid.UUID, sessionID string, data *SessionData, ttl time.Duration) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return s.client.Set(ctx, sessionKey(tenantID, sessionID), payload, ttl).Err()
}

func (s *redisCacheService) GetSession(ctx context.Context, tenantID uuid.UUID, sessionID string) (*SessionData, error) {
	raw, err := s.client.Get(ctx, sessionKey(tenantID, sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	data := &SessionData{}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return data, nil
}

// MarkSessionVerified flips the mfa_verified flag while preserving the
// session's remaining TTL.
func (s *redisCacheService) MarkSessionVerified(ctx context.Context, tenantID uuid.UUID, sessionID string) error {
	key := sessionKey(tenantID, sessionID)
	data, err := s.GetSession(ctx, tenantID, sessionID)
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("session not found")
	}
	data.MFAVerified = true

	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		return fmt.Errorf("session expired")
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return s.client.Set(ctx, key, payload, ttl).Err()
}

func (s *redisCacheService) DeleteSession(ctx context.Context, tenantID uuid.UUID, sessionID string) error {
	return s.client.Del(ctx, sessionKey(tenantID, sessionID)).Err()
}

func (s *redisCacheService) GetSummaryKPIs(ctx context.Context, tenantID uuid.UUID, clientID *uuid.UUID) (*models.SummaryKPIs, error) {
	raw, err := s.client.Get(ctx, kpiKey(tenantID, clientID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	kpis := &models.SummaryKPIs{}
	if err := json.Unmarshal(raw, kpis); err != nil {
		return nil, fmt.Errorf("failed to unmarshal KPIs: %w", err)
	}
	return kpis, nil
}

func (s *redisCacheService) SetSummaryKPIs(ctx context.Context, tenantID uuid.UUID, clientID *uuid.UUID, kpis *models.SummaryKPIs, ttl time.Duration) error {
	payload, err := json.Marshal(kpis)
	if err != nil {
		return fmt.Errorf("failed to marshal KPIs: %w", err)
	}
	return s.client.Set(ctx, kpiKey(tenantID, clientID), payload, ttl).Err()
}

func (s *redisCacheService) InvalidateSummaryKPIs(ctx context.Context, tenantID uuid.UUID) error {
	pattern := fmt.Sprintf("kpis:%s:*", tenantID)
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// IsRateLimited increments a fixed-window counter and reports whether the
// window's budget is exhausted.
func (s *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	rateKey := fmt.Sprintf("ratelimit:%s", key)
	count, err := s.client.Incr(ctx, rateKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := s.client.Expire(ctx, rateKey, window).Err(); err != nil {
			return false, err
		}
	}
	return count > int64(limit), nil
}
