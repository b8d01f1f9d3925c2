package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BT0mob40-bot/gameplay/internal/models"
	"github.com/BT0mob40-bot/gameplay/internal/store"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func newTestSession(userID int64) *models.GameSession {
	return &models.GameSession{
		ID:        models.NewGameID(),
		UserID:    userID,
		GameType:  models.GameTypeMines,
		BetCents:  10000,
		Status:    models.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
}

func TestRedisSessionLifecycle(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	s := store.NewRedis(client)
	ctx := context.Background()
	userID := time.Now().UnixNano()

	session := newTestSession(userID)
	if err := s.SaveSession(ctx, session); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	got, err := s.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	if got.BetCents != session.BetCents || got.Status != models.StatusActive {
		t.Errorf("Round-tripped session does not match: %+v", got)
	}

	active, err := s.ActiveSessions(ctx, userID)
	if err != nil {
		t.Fatalf("Failed to list active sessions: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("Expected 1 active session, got %d", len(active))
	}

	got.End(models.StatusCashedOut, 1.5, 15000)
	if err := s.UpdateSession(ctx, got); err != nil {
		t.Fatalf("Failed to update session: %v", err)
	}
	if err := s.CompleteSession(ctx, userID, got.ID); err != nil {
		t.Fatalf("Failed to complete session: %v", err)
	}

	active, _ = s.ActiveSessions(ctx, userID)
	if len(active) != 0 {
		t.Errorf("Expected no active sessions after completion, got %d", len(active))
	}

	history, err := s.SessionHistory(ctx, userID, 10)
	if err != nil {
		t.Fatalf("Failed to list history: %v", err)
	}
	if len(history) != 1 || history[0].Status != models.StatusCashedOut {
		t.Errorf("Expected completed session in history, got %+v", history)
	}
}

func TestRedisCrashHistory(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	s := store.NewRedis(client)
	ctx := context.Background()

	client.Del(ctx, "crash:history")
	defer client.Del(ctx, "crash:history")

	for i := 0; i < 12; i++ {
		outcome := models.CrashOutcome{
			RoundID:    models.NewRoundID(),
			CrashPoint: float64(i) + 1.5,
			EndedAt:    time.Now().UTC(),
		}
		if err := s.PushCrashOutcome(ctx, outcome, 10); err != nil {
			t.Fatalf("Failed to push outcome: %v", err)
		}
	}

	outcomes, err := s.CrashOutcomes(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to read crash history: %v", err)
	}
	if len(outcomes) != 10 {
		t.Fatalf("Expected history trimmed to 10, got %d", len(outcomes))
	}
	if outcomes[0].CrashPoint != 12.5 {
		t.Errorf("Expected newest round first, got crash point %f", outcomes[0].CrashPoint)
	}
}

func TestRedisRateLimit(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	s := store.NewRedis(client)
	ctx := context.Background()
	userID := time.Now().UnixNano()

	for i := 0; i < 3; i++ {
		ok, err := s.CheckRateLimit(ctx, userID, "bet", 3, time.Minute)
		if err != nil {
			t.Fatalf("Rate limit check failed: %v", err)
		}
		if !ok {
			t.Errorf("Request %d should be within the limit", i+1)
		}
	}

	ok, _ := s.CheckRateLimit(ctx, userID, "bet", 3, time.Minute)
	if ok {
		t.Error("Fourth request should exceed the limit of 3")
	}
}

func TestMemorySessionLifecycle(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	userID := int64(42)

	session := newTestSession(userID)
	if err := s.SaveSession(ctx, session); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	got, err := s.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}

	// Mutating the returned copy must not leak into the store.
	got.Status = models.StatusLost
	again, _ := s.GetSession(ctx, session.ID)
	if again.Status != models.StatusActive {
		t.Error("Store should hand out copies, not shared pointers")
	}

	if err := s.CompleteSession(ctx, userID, session.ID); err != nil {
		t.Fatalf("Failed to complete session: %v", err)
	}
	active, _ := s.ActiveSessions(ctx, userID)
	if len(active) != 0 {
		t.Errorf("Expected no active sessions, got %d", len(active))
	}
	history, _ := s.SessionHistory(ctx, userID, 10)
	if len(history) != 1 {
		t.Errorf("Expected 1 completed session, got %d", len(history))
	}

	if _, err := s.GetSession(ctx, "game_nope"); err == nil {
		t.Error("Expected an error for an unknown session id")
	}
}

func TestMemoryCrashHistory(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.PushCrashOutcome(ctx, models.CrashOutcome{RoundID: models.NewRoundID(), CrashPoint: float64(i)}, 3)
	}

	outcomes, _ := s.CrashOutcomes(ctx, 10)
	if len(outcomes) != 3 {
		t.Fatalf("Expected history trimmed to 3, got %d", len(outcomes))
	}
	if outcomes[0].CrashPoint != 4 {
		t.Errorf("Expected newest outcome first, got %f", outcomes[0].CrashPoint)
	}
}
