// Package fair produces the random outcomes for both games under a
// commit/reveal scheme: the SHA-256 hash of the server seed is published
// before play, outcomes are derived with HMAC-SHA256 from the seeds and a
// nonce, and revealing the server seed afterwards lets anyone recompute the
// result. Seeds come from crypto/rand; if the entropy source fails the error
// is surfaced and no outcome is produced.
package fair

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"
)

// ErrEntropy means the system random source failed. Callers must treat this
// as fatal for the round being started, never fall back to a weaker source.
var ErrEntropy = errors.New("entropy source unavailable")

type Generator struct {
	crashHouseEdge float64
	crashMax       float64
}

func New(crashHouseEdge, crashMax float64) *Generator {
	return &Generator{
		crashHouseEdge: crashHouseEdge,
		crashMax:       crashMax,
	}
}

// NewServerSeed returns 256 bits of hex-encoded entropy.
func NewServerSeed() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropy, err)
	}
	return hex.EncodeToString(bytes), nil
}

// SeedHash is the public commitment to a server seed.
func SeedHash(seed string) string {
	hash := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(hash[:])
}

// CrashPoint derives the multiplier a crash round will end at. With
// probability crashHouseEdge the round is an instant crash at exactly 1.00;
// otherwise the point follows the inverse distribution 0.99/(1-u), clamped to
// [1, crashMax] and truncated to two decimals. Deterministic given the seeds
// and nonce, so a revealed seed lets players verify the round.
func (g *Generator) CrashPoint(serverSeed, clientSeed string, nonce int64) float64 {
	u := roll(serverSeed, fmt.Sprintf("crash:%s:%d", clientSeed, nonce))

	if u < g.crashHouseEdge {
		return 1.0
	}

	crash := 0.99 / (1 - u)
	crash = math.Floor(crash*100) / 100

	if crash < 1.0 {
		crash = 1.0
	}
	if crash > g.crashMax {
		crash = g.crashMax
	}
	return crash
}

// MinesLayout selects mineCount distinct positions on the 25-cell grid,
// uniformly without replacement, from the same HMAC stream the crash point
// uses. The returned positions are sorted.
func (g *Generator) MinesLayout(serverSeed, clientSeed string, nonce int64, mineCount int) ([]int, error) {
	if mineCount < 1 || mineCount > 24 {
		return nil, fmt.Errorf("mine count must be between 1 and 24, got %d", mineCount)
	}

	cells := make([]int, 25)
	for i := range cells {
		cells[i] = i
	}

	stream := newByteStream(serverSeed, fmt.Sprintf("mines:%s:%d", clientSeed, nonce))
	for i := len(cells) - 1; i >= 1; i-- {
		j := stream.intn(i + 1)
		cells[i], cells[j] = cells[j], cells[i]
	}

	mines := cells[:mineCount]
	sort.Ints(mines)
	return mines, nil
}

// roll maps the first 52 bits of an HMAC-SHA256 digest to [0,1).
func roll(serverSeed, message string) float64 {
	h := hmac.New(sha256.New, []byte(serverSeed))
	h.Write([]byte(message))
	hash := hex.EncodeToString(h.Sum(nil))

	n := new(big.Int)
	n.SetString(hash[:13], 16)

	return float64(n.Int64()) / math.Pow(2, 52)
}

// byteStream is a counter-mode HMAC expansion of the seed material, used when
// one digest is not enough entropy (the grid shuffle).
type byteStream struct {
	serverSeed string
	message    string
	block      []byte
	offset     int
	counter    int
}

func newByteStream(serverSeed, message string) *byteStream {
	return &byteStream{serverSeed: serverSeed, message: message}
}

func (s *byteStream) next4() uint32 {
	if s.block == nil || s.offset+4 > len(s.block) {
		h := hmac.New(sha256.New, []byte(s.serverSeed))
		fmt.Fprintf(h, "%s:%d", s.message, s.counter)
		s.block = h.Sum(nil)
		s.offset = 0
		s.counter++
	}
	v := binary.BigEndian.Uint32(s.block[s.offset:])
	s.offset += 4
	return v
}

// intn draws uniformly from [0,n), rejecting draws that would bias the
// modulus.
func (s *byteStream) intn(n int) int {
	bound := uint64(1<<32) - uint64(1<<32)%uint64(n)
	for {
		v := s.next4()
		if uint64(v) < bound {
			return int(v % uint32(n))
		}
	}
}
