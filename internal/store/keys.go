package store

import "time"

const (
	KeySession               = "game:session:%s"
	KeyUserActiveSessions    = "user:%d:active_games"
	KeyUserCompletedSessions = "user:%d:completed_games"
	KeyCrashHistory          = "crash:history"
	KeyRateLimit             = "ratelimit:%d:%s"

	TTLSession = 7 * 24 * time.Hour

	// Completed-session indexes are capped; the ledger, not the session
	// index, is the audit trail.
	CompletedSessionsKept = 100
)
