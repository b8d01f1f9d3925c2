// Package store persists game sessions, the crash round history, and rate
// limit counters in Redis. Wallet state lives behind the ledger gateway, not
// here; the store never touches balances.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BT0mob40-bot/gameplay/internal/models"
)

type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (s *Redis) SaveSession(ctx context.Context, session *models.GameSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal game session: %w", err)
	}

	key := fmt.Sprintf(KeySession, session.ID)
	if err := s.client.Set(ctx, key, data, TTLSession).Err(); err != nil {
		return fmt.Errorf("failed to save game session: %w", err)
	}

	activeKey := fmt.Sprintf(KeyUserActiveSessions, session.UserID)
	if err := s.client.SAdd(ctx, activeKey, session.ID).Err(); err != nil {
		return fmt.Errorf("failed to index active session: %w", err)
	}
	s.client.Expire(ctx, activeKey, TTLSession)

	return nil
}

func (s *Redis) GetSession(ctx context.Context, id string) (*models.GameSession, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeySession, id)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("game not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game session: %w", err)
	}

	var session models.GameSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game session: %w", err)
	}
	return &session, nil
}

func (s *Redis) UpdateSession(ctx context.Context, session *models.GameSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal game session: %w", err)
	}
	return s.client.Set(ctx, fmt.Sprintf(KeySession, session.ID), data, TTLSession).Err()
}

// CompleteSession moves a session from the user's active index to the
// completed history.
func (s *Redis) CompleteSession(ctx context.Context, userID int64, id string) error {
	activeKey := fmt.Sprintf(KeyUserActiveSessions, userID)
	if err := s.client.SRem(ctx, activeKey, id).Err(); err != nil {
		return fmt.Errorf("failed to remove active session: %w", err)
	}

	completedKey := fmt.Sprintf(KeyUserCompletedSessions, userID)
	if err := s.client.ZAdd(ctx, completedKey, redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: id,
	}).Err(); err != nil {
		return fmt.Errorf("failed to index completed session: %w", err)
	}
	s.client.ZRemRangeByRank(ctx, completedKey, 0, -(CompletedSessionsKept + 1))

	return nil
}

func (s *Redis) ActiveSessions(ctx context.Context, userID int64) ([]*models.GameSession, error) {
	ids, err := s.client.SMembers(ctx, fmt.Sprintf(KeyUserActiveSessions, userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	return s.bulkGetSessions(ctx, ids)
}

func (s *Redis) SessionHistory(ctx context.Context, userID int64, limit int64) ([]*models.GameSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	ids, err := s.client.ZRevRange(ctx, fmt.Sprintf(KeyUserCompletedSessions, userID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list completed sessions: %w", err)
	}
	return s.bulkGetSessions(ctx, ids)
}

// PushCrashOutcome prepends a settled round to the shared rolling history,
// most recent first, keeping the newest `keep` rounds.
func (s *Redis) PushCrashOutcome(ctx context.Context, outcome models.CrashOutcome, keep int64) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal crash outcome: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, KeyCrashHistory, data)
	pipe.LTrim(ctx, KeyCrashHistory, 0, keep-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push crash outcome: %w", err)
	}
	return nil
}

func (s *Redis) CrashOutcomes(ctx context.Context, limit int64) ([]models.CrashOutcome, error) {
	if limit <= 0 {
		limit = 10
	}

	raw, err := s.client.LRange(ctx, KeyCrashHistory, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read crash history: %w", err)
	}

	outcomes := make([]models.CrashOutcome, 0, len(raw))
	for _, item := range raw {
		var outcome models.CrashOutcome
		if err := json.Unmarshal([]byte(item), &outcome); err != nil {
			continue
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (s *Redis) CheckRateLimit(ctx context.Context, userID int64, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, userID, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if count == 1 {
		s.client.Expire(ctx, key, window)
	}
	return count <= int64(limit), nil
}

func (s *Redis) bulkGetSessions(ctx context.Context, ids []string) ([]*models.GameSession, error) {
	if len(ids) == 0 {
		return []*models.GameSession{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, fmt.Sprintf(KeySession, id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("pipeline execution failed: %w", err)
	}

	sessions := make([]*models.GameSession, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			continue
		}
		var session models.GameSession
		if err := json.Unmarshal([]byte(data), &session); err != nil {
			continue
		}
		sessions = append(sessions, &session)
	}
	return sessions, nil
}
