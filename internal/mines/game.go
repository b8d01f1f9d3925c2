// Package mines runs the mines game. The grid is server-authoritative: mine
// positions are derived up front under the commit/reveal scheme, kept out of
// every response while the game is live, and disclosed only once the session
// is terminal.
package mines

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/BT0mob40-bot/gameplay/internal/fair"
	"github.com/BT0mob40-bot/gameplay/internal/ledger"
	"github.com/BT0mob40-bot/gameplay/internal/models"
	"github.com/BT0mob40-bot/gameplay/internal/payout"
)

var (
	ErrGameNotFound = errors.New("game not found")

	// ErrGameOver rejects moves on a terminal session.
	ErrGameOver = errors.New("game is already over")

	ErrInvalidPosition = errors.New("position must be between 0 and 24")
	ErrAlreadyRevealed = errors.New("position already revealed")

	// ErrNothingRevealed rejects a cashout before any safe cell is revealed.
	ErrNothingRevealed = errors.New("reveal at least one cell before cashing out")
)

// SessionStore is the slice of the session store the mines engine needs.
type SessionStore interface {
	SaveSession(ctx context.Context, session *models.GameSession) error
	GetSession(ctx context.Context, id string) (*models.GameSession, error)
	UpdateSession(ctx context.Context, session *models.GameSession) error
	CompleteSession(ctx context.Context, userID int64, id string) error
	ActiveSessions(ctx context.Context, userID int64) ([]*models.GameSession, error)
}

type Config struct {
	HouseEdge     float64
	MaxMultiplier float64
}

// Engine coordinates mines sessions. A per-session lock serializes reveals
// and cashouts, so two concurrent cashouts on one game pay exactly once.
type Engine struct {
	cfg      Config
	gen      *fair.Generator
	wallet   ledger.Gateway
	sessions SessionStore
	locks    sync.Map // session ID -> *sync.Mutex
}

func New(cfg Config, gen *fair.Generator, wallet ledger.Gateway, sessions SessionStore) *Engine {
	return &Engine{
		cfg:      cfg,
		gen:      gen,
		wallet:   wallet,
		sessions: sessions,
	}
}

// Start debits the stake and opens a new game. The mine layout is fixed here,
// before the first reveal, from the committed server seed and the wallet's
// client seed and nonce.
func (e *Engine) Start(ctx context.Context, userID int64, amount decimal.Decimal, mineCount int) (*models.GameSession, error) {
	serverSeed, err := fair.NewServerSeed()
	if err != nil {
		return nil, err
	}

	clientSeed, nonce, err := e.wallet.NextFairness(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to draw fairness state: %w", err)
	}

	minePositions, err := e.gen.MinesLayout(serverSeed, clientSeed, nonce, mineCount)
	if err != nil {
		return nil, err
	}

	session := &models.GameSession{
		ID:       models.NewGameID(),
		UserID:   userID,
		GameType: models.GameTypeMines,
		BetCents: models.ToCents(amount),
		Status:   models.StatusActive,
		MinesData: &models.MinesData{
			MineCount:  mineCount,
			Mines:      minePositions,
			Revealed:   []int{},
			Nonce:      nonce,
			ClientSeed: clientSeed,
			ServerSeed: serverSeed,
			SeedHash:   fair.SeedHash(serverSeed),
		},
		CreatedAt: time.Now().UTC(),
	}

	if _, err := e.wallet.Debit(ctx, userID, amount, ledger.Entry{
		Type:        models.EntryTypeBet,
		SessionID:   session.ID,
		Description: fmt.Sprintf("mines bet, %d mines", mineCount),
	}); err != nil {
		return nil, err
	}

	if err := e.sessions.SaveSession(ctx, session); err != nil {
		// The stake is already taken; hand it back rather than strand it.
		if _, refundErr := e.wallet.Credit(ctx, userID, amount, ledger.Entry{
			Type:        models.EntryTypeAdjustment,
			SessionID:   session.ID,
			Description: "mines game could not be created, stake refunded",
		}); refundErr != nil {
			log.WithError(refundErr).WithFields(log.Fields{
				"user_id":    userID,
				"session_id": session.ID,
			}).Error("Failed to refund stake after session save failure")
		}
		return nil, fmt.Errorf("failed to persist mines session: %w", err)
	}

	return session, nil
}

// Reveal uncovers one cell. A safe cell advances the multiplier; the last
// safe cell wins the game outright; a mine loses the stake.
func (e *Engine) Reveal(ctx context.Context, userID int64, gameID string, position int) (*models.GameSession, error) {
	if position < 0 || position >= models.GridSize {
		return nil, ErrInvalidPosition
	}

	unlock := e.lock(gameID)
	defer unlock()

	session, err := e.load(ctx, userID, gameID)
	if err != nil {
		return nil, err
	}

	data := session.MinesData
	for _, p := range data.Revealed {
		if p == position {
			return nil, ErrAlreadyRevealed
		}
	}

	if contains(data.Mines, position) {
		session.End(models.StatusLost, 1.0, 0)
		if err := e.finalize(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	}

	data.Revealed = append(data.Revealed, position)
	session.Multiplier = payout.MinesMultiplier(len(data.Revealed), data.MineCount, e.cfg.HouseEdge, e.cfg.MaxMultiplier)

	// All safe cells revealed wins the game without an explicit cashout.
	if len(data.Revealed) == models.GridSize-data.MineCount {
		return session, e.settle(ctx, session, models.StatusWon)
	}

	if err := e.sessions.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist reveal: %w", err)
	}
	return session, nil
}

// CashOut collects the current multiplier and ends the game. The credit lands
// before the session is marked terminal, so a retried cashout after a partial
// failure can still settle; the per-session lock keeps it to one payout.
func (e *Engine) CashOut(ctx context.Context, userID int64, gameID string) (*models.GameSession, error) {
	unlock := e.lock(gameID)
	defer unlock()

	session, err := e.load(ctx, userID, gameID)
	if err != nil {
		return nil, err
	}
	if len(session.MinesData.Revealed) == 0 {
		return nil, ErrNothingRevealed
	}

	if err := e.settle(ctx, session, models.StatusCashedOut); err != nil {
		return nil, err
	}
	return session, nil
}

// ActiveGames lists the caller's live mines sessions.
func (e *Engine) ActiveGames(ctx context.Context, userID int64) ([]*models.GameSession, error) {
	all, err := e.sessions.ActiveSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	games := make([]*models.GameSession, 0, len(all))
	for _, s := range all {
		if s.GameType == models.GameTypeMines {
			games = append(games, s)
		}
	}
	return games, nil
}

func (e *Engine) settle(ctx context.Context, session *models.GameSession, status models.SessionStatus) error {
	multiplier := payout.MinesMultiplier(len(session.MinesData.Revealed), session.MinesData.MineCount, e.cfg.HouseEdge, e.cfg.MaxMultiplier)
	payoutCents := int64(math.Round(float64(session.BetCents) * multiplier))

	if _, err := e.wallet.Credit(ctx, session.UserID, models.FromCents(payoutCents), ledger.Entry{
		Type:        models.EntryTypeWin,
		SessionID:   session.ID,
		Description: fmt.Sprintf("mines payout at %.4fx", multiplier),
	}); err != nil {
		return fmt.Errorf("failed to credit mines payout: %w", err)
	}

	session.End(status, multiplier, payoutCents)
	return e.finalize(ctx, session)
}

func (e *Engine) finalize(ctx context.Context, session *models.GameSession) error {
	if err := e.sessions.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to persist terminal session: %w", err)
	}
	if err := e.sessions.CompleteSession(ctx, session.UserID, session.ID); err != nil {
		log.WithError(err).WithField("session_id", session.ID).Error("Failed to move session to completed index")
	}
	e.locks.Delete(session.ID)
	return nil
}

// load fetches an active mines session owned by userID. Another user's game
// reads as not found rather than forbidden.
func (e *Engine) load(ctx context.Context, userID int64, gameID string) (*models.GameSession, error) {
	session, err := e.sessions.GetSession(ctx, gameID)
	if err != nil {
		return nil, ErrGameNotFound
	}
	if session.UserID != userID || session.GameType != models.GameTypeMines {
		return nil, ErrGameNotFound
	}
	if session.Status.Terminal() {
		return nil, ErrGameOver
	}
	return session, nil
}

func (e *Engine) lock(gameID string) func() {
	mu, _ := e.locks.LoadOrStore(gameID, &sync.Mutex{})
	lock := mu.(*sync.Mutex)
	lock.Lock()
	return lock.Unlock
}

func contains(positions []int, p int) bool {
	for _, pos := range positions {
		if pos == p {
			return true
		}
	}
	return false
}
