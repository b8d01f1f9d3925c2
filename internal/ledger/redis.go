package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/BT0mob40-bot/gameplay/internal/models"
)

const (
	keyWallet     = "wallet:%d"
	keyEntry      = "ledger:entry:%s"
	keyUserLedger = "user:%d:ledger"
)

// Redis implements Gateway on a Redis wallet record. Each movement runs as
// one Lua script so the balance check, the balance write, and the ledger
// entry are a single atomic step on the server.
type Redis struct {
	client        *redis.Client
	startingCents int64
}

func NewRedis(client *redis.Client, startingCents int64) *Redis {
	return &Redis{
		client:        client,
		startingCents: startingCents,
	}
}

var debitScript = redis.NewScript(`
	local data = redis.call("GET", KEYS[1])
	if not data then
		return redis.error_reply("wallet not found")
	end

	local wallet = cjson.decode(data)
	local amount = tonumber(ARGV[1])

	if wallet.balance_cents < amount then
		return redis.error_reply("insufficient balance")
	end

	wallet.balance_cents = wallet.balance_cents - amount
	if ARGV[5] == "bet" then
		wallet.total_wagered_cents = wallet.total_wagered_cents + amount
	end
	wallet.updated_at = ARGV[4]

	redis.call("SET", KEYS[1], cjson.encode(wallet))
	redis.call("SET", KEYS[2], ARGV[2])
	redis.call("ZADD", KEYS[3], ARGV[3], ARGV[6])

	return wallet.balance_cents
`)

var creditScript = redis.NewScript(`
	local data = redis.call("GET", KEYS[1])
	if not data then
		return redis.error_reply("wallet not found")
	end

	local wallet = cjson.decode(data)
	local amount = tonumber(ARGV[1])

	wallet.balance_cents = wallet.balance_cents + amount
	if ARGV[5] == "win" then
		wallet.total_won_cents = wallet.total_won_cents + amount
	end
	wallet.updated_at = ARGV[4]

	redis.call("SET", KEYS[1], cjson.encode(wallet))
	redis.call("SET", KEYS[2], ARGV[2])
	redis.call("ZADD", KEYS[3], ARGV[3], ARGV[6])

	return wallet.balance_cents
`)

var nextFairnessScript = redis.NewScript(`
	local data = redis.call("GET", KEYS[1])
	if not data then
		return redis.error_reply("wallet not found")
	end

	local wallet = cjson.decode(data)
	local nonce = wallet.nonce

	wallet.nonce = nonce + 1
	redis.call("SET", KEYS[1], cjson.encode(wallet))

	return {wallet.client_seed, nonce}
`)

func (r *Redis) Debit(ctx context.Context, userID int64, amount decimal.Decimal, meta Entry) (*models.Wallet, error) {
	return r.move(ctx, debitScript, userID, amount, -1, meta)
}

func (r *Redis) Credit(ctx context.Context, userID int64, amount decimal.Decimal, meta Entry) (*models.Wallet, error) {
	return r.move(ctx, creditScript, userID, amount, +1, meta)
}

func (r *Redis) move(ctx context.Context, script *redis.Script, userID int64, amount decimal.Decimal, sign int64, meta Entry) (*models.Wallet, error) {
	cents, err := checkAmount(amount)
	if err != nil {
		return nil, err
	}

	// Creates the wallet on first use, like every read path.
	if _, err := r.Wallet(ctx, userID); err != nil {
		return nil, err
	}

	entry := newEntry(userID, sign*cents, meta)
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ledger entry: %w", err)
	}

	keys := []string{
		fmt.Sprintf(keyWallet, userID),
		fmt.Sprintf(keyEntry, entry.ID),
		fmt.Sprintf(keyUserLedger, userID),
	}
	argv := []interface{}{
		cents,
		string(data),
		entry.CreatedAt.UnixNano(),
		time.Now().UTC().Format(time.RFC3339Nano),
		string(meta.Type),
		entry.ID,
	}

	if err := script.Run(ctx, r.client, keys, argv...).Err(); err != nil {
		if strings.Contains(err.Error(), "insufficient balance") {
			return nil, ErrInsufficientBalance
		}
		if strings.Contains(err.Error(), "wallet not found") {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrInconsistency, err)
	}

	return r.Wallet(ctx, userID)
}

func (r *Redis) Wallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	key := fmt.Sprintf(keyWallet, userID)

	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		wallet, err := models.NewWallet(userID, r.startingCents)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(wallet)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal wallet: %w", err)
		}
		// SETNX so two first-touch requests cannot clobber each other.
		created, err := r.client.SetNX(ctx, key, raw, 0).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to create wallet: %w", err)
		}
		if created {
			return wallet, nil
		}
		return r.Wallet(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	var wallet models.Wallet
	if err := json.Unmarshal([]byte(data), &wallet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet: %w", err)
	}
	return &wallet, nil
}

func (r *Redis) Entries(ctx context.Context, userID int64, limit int64) ([]*models.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	ids, err := r.client.ZRevRange(ctx, fmt.Sprintf(keyUserLedger, userID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	return r.fetchEntries(ctx, ids)
}

func (r *Redis) NextFairness(ctx context.Context, userID int64) (string, int64, error) {
	if _, err := r.Wallet(ctx, userID); err != nil {
		return "", 0, err
	}

	res, err := nextFairnessScript.Run(ctx, r.client, []string{fmt.Sprintf(keyWallet, userID)}).Result()
	if err != nil {
		return "", 0, fmt.Errorf("failed to advance nonce: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) != 2 {
		return "", 0, fmt.Errorf("unexpected fairness reply: %v", res)
	}
	seed, _ := values[0].(string)
	nonce, _ := values[1].(int64)
	return seed, nonce, nil
}

// Reconcile checks that the starting balance plus the sum of all completed
// entries equals the wallet balance. Used by tests and operational tooling.
func (r *Redis) Reconcile(ctx context.Context, userID int64) (bool, error) {
	wallet, err := r.Wallet(ctx, userID)
	if err != nil {
		return false, err
	}

	ids, err := r.client.ZRange(ctx, fmt.Sprintf(keyUserLedger, userID), 0, -1).Result()
	if err != nil {
		return false, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	entries, err := r.fetchEntries(ctx, ids)
	if err != nil {
		return false, err
	}

	var sum int64
	for _, e := range entries {
		if e.Status == models.EntryStatusCompleted {
			sum += e.AmountCents
		}
	}
	return sum+r.startingCents == wallet.BalanceCents, nil
}

func (r *Redis) fetchEntries(ctx context.Context, ids []string) ([]*models.LedgerEntry, error) {
	if len(ids) == 0 {
		return []*models.LedgerEntry{}, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, fmt.Sprintf(keyEntry, id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("pipeline execution failed: %w", err)
	}

	entries := make([]*models.LedgerEntry, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			continue
		}
		var entry models.LedgerEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			continue
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}
