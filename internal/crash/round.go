// Package crash runs the shared multiplayer crash round. A single goroutine
// owns all round state and serializes every bet, cashout, and phase change, so
// no multiplier read ever races a crash. Wallet and session I/O happens
// outside that goroutine; the round clock never blocks on Redis.
package crash

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/BT0mob40-bot/gameplay/internal/fair"
	"github.com/BT0mob40-bot/gameplay/internal/ledger"
	"github.com/BT0mob40-bot/gameplay/internal/models"
	"github.com/BT0mob40-bot/gameplay/internal/payout"
)

var (
	// ErrBettingClosed rejects a bet outside the betting window.
	ErrBettingClosed = errors.New("betting is closed for this round")

	// ErrDuplicateBet rejects a second bet from the same user in one round.
	ErrDuplicateBet = errors.New("bet already placed this round")

	ErrNoActiveBet      = errors.New("no active bet this round")
	ErrAlreadyCashedOut = errors.New("bet already cashed out")

	// ErrRoundCrashed means the cashout arrived at or after the crash point.
	// The bet settles as a loss.
	ErrRoundCrashed = errors.New("round already crashed")

	ErrStopped = errors.New("round engine is stopped")
)

type Phase string

const (
	PhaseBetting Phase = "betting"
	PhasePlaying Phase = "playing"
	PhaseCrashed Phase = "crashed"
)

// Event is one websocket broadcast frame.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type Broadcaster interface {
	Broadcast(event Event)
}

// SessionStore is the slice of the session store the round engine needs.
type SessionStore interface {
	SaveSession(ctx context.Context, session *models.GameSession) error
	UpdateSession(ctx context.Context, session *models.GameSession) error
	CompleteSession(ctx context.Context, userID int64, id string) error
	PushCrashOutcome(ctx context.Context, outcome models.CrashOutcome, keep int64) error
	CrashOutcomes(ctx context.Context, limit int64) ([]models.CrashOutcome, error)
}

type Config struct {
	BettingPhase time.Duration
	Cooldown     time.Duration
	TickInterval time.Duration
	Curve        payout.CrashCurve
	HistorySize  int64
}

// Snapshot is the public view of the live round.
type Snapshot struct {
	Phase         Phase   `json:"phase"`
	RoundID       string  `json:"round_id"`
	SeedHash      string  `json:"seed_hash"`
	Multiplier    float64 `json:"multiplier"`
	CrashPoint    float64 `json:"crash_point,omitempty"`
	Players       int     `json:"players"`
	BettingEndsMs int64   `json:"betting_ends_ms,omitempty"`
}

type reserveReq struct {
	userID int64
	resp   chan reserveResp
}

type reserveResp struct {
	roundID string
	err     error
}

type confirmReq struct {
	userID  int64
	roundID string
	// nil session releases the reservation (the debit failed)
	session *models.GameSession
	resp    chan error
}

type cashoutReq struct {
	userID     int64
	receivedAt time.Time
	resp       chan cashoutResp
}

type cashoutResp struct {
	session *models.GameSession
	err     error
}

type revertReq struct {
	userID  int64
	roundID string
	done    chan struct{}
}

type betState struct {
	session *models.GameSession
	cashed  bool
}

// Round is the crash round engine. Construct with New, then Start; all
// exported methods are safe for concurrent use.
type Round struct {
	cfg      Config
	gen      *fair.Generator
	wallet   ledger.Gateway
	sessions SessionStore
	bcast    Broadcaster
	pointFn  func(serverSeed, roundID string) float64

	reserveCh  chan reserveReq
	confirmCh  chan confirmReq
	cashoutCh  chan cashoutReq
	revertCh   chan revertReq
	snapshotCh chan chan Snapshot
	stopCh     chan chan struct{}
	done       chan struct{}

	// goroutine-owned round state
	phase        Phase
	roundID      string
	serverSeed   string
	seedHash     string
	crashPoint   float64
	playStart    time.Time
	bettingEnds  time.Time
	live         float64
	reservations map[int64]bool
	bets         map[int64]*betState
}

type Option func(*Round)

// WithCrashPoint overrides crash point derivation. Used by tests to pin the
// outcome of a round.
func WithCrashPoint(fn func(serverSeed, roundID string) float64) Option {
	return func(r *Round) { r.pointFn = fn }
}

func New(cfg Config, gen *fair.Generator, wallet ledger.Gateway, sessions SessionStore, bcast Broadcaster, opts ...Option) *Round {
	r := &Round{
		cfg:        cfg,
		gen:        gen,
		wallet:     wallet,
		sessions:   sessions,
		bcast:      bcast,
		reserveCh:  make(chan reserveReq),
		confirmCh:  make(chan confirmReq),
		cashoutCh:  make(chan cashoutReq),
		revertCh:   make(chan revertReq),
		snapshotCh: make(chan chan Snapshot),
		stopCh:     make(chan chan struct{}),
		done:       make(chan struct{}),
	}
	r.pointFn = func(serverSeed, roundID string) float64 {
		return gen.CrashPoint(serverSeed, roundID, 0)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetBroadcaster wires the event sink. Must be called before Start.
func (r *Round) SetBroadcaster(b Broadcaster) { r.bcast = b }

func (r *Round) Start() { go r.run() }

// Stop shuts the engine down and refunds every open bet at 1.00x through an
// adjustment entry, so no stake is stranded by a deploy.
func (r *Round) Stop(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case r.stopCh <- ack:
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PlaceBet debits the stake and enters the user into the current round. The
// round slot is reserved before the debit and confirmed after it, so a failed
// debit never leaves a phantom bet and a crashed round never keeps the stake.
func (r *Round) PlaceBet(ctx context.Context, userID int64, amount decimal.Decimal, autoCashout float64) (*models.GameSession, error) {
	resp := make(chan reserveResp, 1)
	select {
	case r.reserveCh <- reserveReq{userID: userID, resp: resp}:
	case <-r.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	res := <-resp
	if res.err != nil {
		return nil, res.err
	}

	betCents := models.ToCents(amount)
	session := &models.GameSession{
		ID:       models.NewGameID(),
		UserID:   userID,
		GameType: models.GameTypeCrash,
		BetCents: betCents,
		Status:   models.StatusActive,
		CrashData: &models.CrashData{
			RoundID:     res.roundID,
			AutoCashout: autoCashout,
		},
		CreatedAt: time.Now().UTC(),
	}

	if _, err := r.wallet.Debit(ctx, userID, amount, ledger.Entry{
		Type:        models.EntryTypeBet,
		SessionID:   session.ID,
		Description: fmt.Sprintf("crash bet, round %s", res.roundID),
	}); err != nil {
		r.release(userID, res.roundID)
		return nil, err
	}

	if err := r.sessions.SaveSession(ctx, session); err != nil {
		log.WithError(err).WithField("session_id", session.ID).Error("Failed to persist crash session")
	}

	if err := r.confirm(ctx, userID, res.roundID, session); err != nil {
		r.refundStake(context.Background(), session, "betting closed before bet confirmed")
		return nil, err
	}
	return session, nil
}

// CashOut settles the caller's bet at the multiplier in effect when the
// request arrived. Timestamping at receipt means a cashout sent before the
// crash still wins even if the engine processes it a beat later. A failed
// credit reverts the bet to its pre-cashout state so the caller can retry;
// the win is never marked paid without the money moving.
func (r *Round) CashOut(ctx context.Context, userID int64) (*models.GameSession, error) {
	resp := make(chan cashoutResp, 1)
	req := cashoutReq{userID: userID, receivedAt: time.Now(), resp: resp}
	select {
	case r.cashoutCh <- req:
	case <-r.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	res := <-resp
	if res.err != nil {
		return nil, res.err
	}

	if err := r.settleWin(ctx, res.session); err != nil {
		r.revertCashout(res.session)
		return nil, err
	}
	return res.session, nil
}

func (r *Round) revertCashout(session *models.GameSession) {
	done := make(chan struct{})
	select {
	case r.revertCh <- revertReq{userID: session.UserID, roundID: session.CrashData.RoundID, done: done}:
		<-done
	case <-r.done:
	}
}

// Snapshot returns the live round state.
func (r *Round) Snapshot(ctx context.Context) (Snapshot, error) {
	resp := make(chan Snapshot, 1)
	select {
	case r.snapshotCh <- resp:
	case <-r.done:
		return Snapshot{}, ErrStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	return <-resp, nil
}

// History returns recent settled rounds, newest first, server seeds included.
func (r *Round) History(ctx context.Context, limit int64) ([]models.CrashOutcome, error) {
	if limit <= 0 || limit > r.cfg.HistorySize {
		limit = r.cfg.HistorySize
	}
	return r.sessions.CrashOutcomes(ctx, limit)
}

func (r *Round) release(userID int64, roundID string) {
	resp := make(chan error, 1)
	select {
	case r.confirmCh <- confirmReq{userID: userID, roundID: roundID, resp: resp}:
		<-resp
	case <-r.done:
	}
}

func (r *Round) confirm(ctx context.Context, userID int64, roundID string, session *models.GameSession) error {
	resp := make(chan error, 1)
	select {
	case r.confirmCh <- confirmReq{userID: userID, roundID: roundID, session: session, resp: resp}:
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-resp
}

func (r *Round) run() {
	defer close(r.done)

	if err := r.startBetting(); err != nil {
		log.WithError(err).Error("Failed to start crash round, engine halted")
		return
	}

	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()
	phaseTimer := time.NewTimer(r.cfg.BettingPhase)
	defer phaseTimer.Stop()

	for {
		select {
		case <-phaseTimer.C:
			switch r.phase {
			case PhaseBetting:
				r.startPlaying()
			case PhaseCrashed:
				if err := r.startBetting(); err != nil {
					log.WithError(err).Error("Failed to start crash round, engine halted")
					return
				}
				phaseTimer.Reset(r.cfg.BettingPhase)
			}

		case <-ticker.C:
			if r.phase != PhasePlaying {
				continue
			}
			if r.tick() {
				phaseTimer.Reset(r.cfg.Cooldown)
			}

		case req := <-r.reserveCh:
			req.resp <- r.handleReserve(req)

		case req := <-r.confirmCh:
			req.resp <- r.handleConfirm(req)

		case req := <-r.cashoutCh:
			req.resp <- r.handleCashout(req)

		case req := <-r.revertCh:
			r.handleRevert(req)
			close(req.done)

		case resp := <-r.snapshotCh:
			resp <- r.snapshot()

		case ack := <-r.stopCh:
			r.refundOpenBets()
			close(ack)
			return
		}
	}
}

// startBetting settles the previous round's losses, then opens a fresh round
// with a new seed commitment. Loss settlement waits until here rather than
// the moment of the crash, which leaves the cooldown as a grace window for
// cashouts that were in flight when the round crashed.
func (r *Round) startBetting() error {
	r.settleLosses()

	seed, err := fair.NewServerSeed()
	if err != nil {
		return err
	}

	r.phase = PhaseBetting
	r.roundID = models.NewRoundID()
	r.serverSeed = seed
	r.seedHash = fair.SeedHash(seed)
	r.crashPoint = 0
	r.live = 1.0
	r.bettingEnds = time.Now().Add(r.cfg.BettingPhase)
	r.reservations = make(map[int64]bool)
	r.bets = make(map[int64]*betState)

	r.broadcast(Event{Type: "betting_open", Data: map[string]interface{}{
		"round_id":        r.roundID,
		"seed_hash":       r.seedHash,
		"betting_ends_ms": r.cfg.BettingPhase.Milliseconds(),
	}})
	return nil
}

// startPlaying fixes the crash point. The point is a pure function of the
// seed committed when betting opened, but it is derived only now, once the
// betting window has closed.
func (r *Round) startPlaying() {
	r.phase = PhasePlaying
	r.crashPoint = r.pointFn(r.serverSeed, r.roundID)
	r.playStart = time.Now()
	r.live = 1.0

	r.broadcast(Event{Type: "round_start", Data: map[string]interface{}{
		"round_id": r.roundID,
		"players":  len(r.bets),
	}})
}

// tick advances the multiplier one step. Auto cashouts fire before the crash
// check so a target below the crash point pays even when both thresholds fall
// inside the same tick. Returns true when the round crashed.
func (r *Round) tick() bool {
	r.live = r.cfg.Curve.MultiplierAt(time.Since(r.playStart))

	for userID, bet := range r.bets {
		if bet.cashed {
			continue
		}
		target := bet.session.CrashData.AutoCashout
		if target > 1.0 && r.live >= target && target < r.crashPoint {
			r.markCashed(bet, target)
			go r.settleAuto(userID, bet.session)
		}
	}

	if r.live >= r.crashPoint {
		r.crash()
		return true
	}

	r.broadcast(Event{Type: "multiplier", Data: map[string]interface{}{
		"round_id":   r.roundID,
		"multiplier": math.Floor(r.live*100) / 100,
	}})
	return false
}

func (r *Round) crash() {
	r.phase = PhaseCrashed

	r.broadcast(Event{Type: "crash", Data: map[string]interface{}{
		"round_id":    r.roundID,
		"crash_point": r.crashPoint,
		"server_seed": r.serverSeed,
		"seed_hash":   r.seedHash,
	}})

	outcome := models.CrashOutcome{
		RoundID:    r.roundID,
		CrashPoint: r.crashPoint,
		ServerSeed: r.serverSeed,
		SeedHash:   r.seedHash,
		EndedAt:    time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.sessions.PushCrashOutcome(ctx, outcome, r.cfg.HistorySize); err != nil {
			log.WithError(err).WithField("round_id", outcome.RoundID).Error("Failed to record crash outcome")
		}
	}()
}

func (r *Round) handleReserve(req reserveReq) reserveResp {
	if r.phase != PhaseBetting {
		return reserveResp{err: ErrBettingClosed}
	}
	if r.reservations[req.userID] {
		return reserveResp{err: ErrDuplicateBet}
	}
	if _, ok := r.bets[req.userID]; ok {
		return reserveResp{err: ErrDuplicateBet}
	}
	r.reservations[req.userID] = true
	return reserveResp{roundID: r.roundID}
}

func (r *Round) handleConfirm(req confirmReq) error {
	if req.roundID != r.roundID {
		return ErrBettingClosed
	}
	if !r.reservations[req.userID] {
		return ErrNoActiveBet
	}
	delete(r.reservations, req.userID)

	if req.session == nil {
		return nil
	}
	if r.phase == PhaseCrashed {
		return ErrBettingClosed
	}

	r.bets[req.userID] = &betState{session: req.session}
	r.broadcast(Event{Type: "player_bet", Data: map[string]interface{}{
		"round_id": r.roundID,
		"user_id":  req.userID,
		"amount":   req.session.BetAmount(),
	}})
	return nil
}

func (r *Round) handleCashout(req cashoutReq) cashoutResp {
	bet, ok := r.bets[req.userID]
	if !ok {
		return cashoutResp{err: ErrNoActiveBet}
	}
	if bet.cashed {
		return cashoutResp{err: ErrAlreadyCashedOut}
	}
	if r.phase == PhaseBetting {
		return cashoutResp{err: ErrNoActiveBet}
	}

	multiplier := r.cfg.Curve.MultiplierAt(req.receivedAt.Sub(r.playStart))
	multiplier = math.Floor(multiplier*100) / 100
	if multiplier >= r.crashPoint {
		return cashoutResp{err: ErrRoundCrashed}
	}

	r.markCashed(bet, multiplier)
	copied := *bet.session
	return cashoutResp{session: &copied}
}

// handleRevert undoes a cashout whose credit failed, restoring the bet to
// its pre-cashout state so a retry can settle it. If the round has already
// turned over the bet record is gone and the unpaid win is escalated for
// operator replay instead of being silently dropped.
func (r *Round) handleRevert(req revertReq) {
	if req.roundID != r.roundID {
		log.WithFields(log.Fields{
			"user_id":  req.userID,
			"round_id": req.roundID,
		}).Error("Cashout credit failed after round turnover, win requires operator replay")
		return
	}

	bet, ok := r.bets[req.userID]
	if !ok || !bet.cashed {
		return
	}

	bet.cashed = false
	bet.session.Status = models.StatusActive
	bet.session.Multiplier = 0
	bet.session.PayoutCents = 0
	bet.session.EndedAt = nil
	log.WithFields(log.Fields{
		"user_id":    req.userID,
		"session_id": bet.session.ID,
	}).Warn("Cashout rolled back after credit failure")
}

func (r *Round) markCashed(bet *betState, multiplier float64) {
	bet.cashed = true
	payoutCents := int64(math.Round(float64(bet.session.BetCents) * multiplier))
	bet.session.End(models.StatusCashedOut, multiplier, payoutCents)
}

func (r *Round) snapshot() Snapshot {
	snap := Snapshot{
		Phase:      r.phase,
		RoundID:    r.roundID,
		SeedHash:   r.seedHash,
		Multiplier: math.Floor(r.live*100) / 100,
		Players:    len(r.bets),
	}
	switch r.phase {
	case PhaseBetting:
		if remaining := time.Until(r.bettingEnds); remaining > 0 {
			snap.BettingEndsMs = remaining.Milliseconds()
		}
	case PhaseCrashed:
		snap.CrashPoint = r.crashPoint
	}
	return snap
}

func (r *Round) settleLosses() {
	for _, bet := range r.bets {
		if bet.cashed {
			continue
		}
		bet.session.End(models.StatusLost, r.crashPoint, 0)
		session := bet.session
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := r.sessions.UpdateSession(ctx, session); err != nil {
				log.WithError(err).WithField("session_id", session.ID).Error("Failed to settle crash loss")
				return
			}
			if err := r.sessions.CompleteSession(ctx, session.UserID, session.ID); err != nil {
				log.WithError(err).WithField("session_id", session.ID).Error("Failed to complete crash loss")
			}
		}()
	}
}

// settleAuto has no caller to surface a credit failure to, so it retries the
// credit itself before escalating. settleWin only errors when the credit did
// not land, which is what makes the retry safe.
func (r *Round) settleAuto(userID int64, session *models.GameSession) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if err = r.settleWin(ctx, session); err == nil {
			return
		}
		time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
	}
	log.WithError(err).WithFields(log.Fields{
		"user_id":      userID,
		"session_id":   session.ID,
		"payout_cents": session.PayoutCents,
	}).Error("Failed to credit auto cashout, win requires operator replay")
}

// settleWin credits the payout and finalizes the session. A credit failure is
// returned to the caller, never swallowed; the ledger stays consistent because
// the credit and its entry commit atomically or not at all.
func (r *Round) settleWin(ctx context.Context, session *models.GameSession) error {
	if _, err := r.wallet.Credit(ctx, session.UserID, session.Payout(), ledger.Entry{
		Type:        models.EntryTypeWin,
		SessionID:   session.ID,
		Description: fmt.Sprintf("crash cashout at %.2fx", session.Multiplier),
	}); err != nil {
		return fmt.Errorf("failed to credit crash win: %w", err)
	}

	if err := r.sessions.UpdateSession(ctx, session); err != nil {
		log.WithError(err).WithField("session_id", session.ID).Error("Failed to persist cashed out session")
	}
	if err := r.sessions.CompleteSession(ctx, session.UserID, session.ID); err != nil {
		log.WithError(err).WithField("session_id", session.ID).Error("Failed to complete cashed out session")
	}

	r.broadcast(Event{Type: "player_cashout", Data: map[string]interface{}{
		"round_id":   session.CrashData.RoundID,
		"user_id":    session.UserID,
		"multiplier": session.Multiplier,
		"payout":     session.Payout(),
	}})
	return nil
}

func (r *Round) refundStake(ctx context.Context, session *models.GameSession, reason string) {
	if _, err := r.wallet.Credit(ctx, session.UserID, session.BetAmount(), ledger.Entry{
		Type:        models.EntryTypeAdjustment,
		SessionID:   session.ID,
		Description: reason,
	}); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user_id":    session.UserID,
			"session_id": session.ID,
		}).Error("Failed to refund crash stake")
		return
	}

	session.End(models.StatusCashedOut, 1.0, session.BetCents)
	if err := r.sessions.UpdateSession(ctx, session); err == nil {
		r.sessions.CompleteSession(ctx, session.UserID, session.ID)
	}
}

func (r *Round) refundOpenBets() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, bet := range r.bets {
		if bet.cashed {
			continue
		}
		r.refundStake(ctx, bet.session, "round aborted on shutdown, stake refunded")
	}
}

func (r *Round) broadcast(event Event) {
	if r.bcast != nil {
		r.bcast.Broadcast(event)
	}
}
