// Package pow gates global-token minting behind proof of work. The issuer
// holds one current puzzle seed; the first valid solution for that seed mints
// the reward and replaces the seed. A puzzle never expires on a timer, it
// lives until someone solves it.
package pow

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"strings"
	"sync"
)

// Issuer is safe for concurrent use. Submit holds the mutex across the seed
// comparison and the seed replacement, so one seed can pay at most once.
type Issuer struct {
	mu         sync.Mutex
	seed       string
	difficulty int
}

func NewIssuer(difficulty int) *Issuer {
	if difficulty < 0 {
		difficulty = 0
	}
	return &Issuer{seed: newSeed(), difficulty: difficulty}
}

func newSeed() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Current returns the live puzzle seed and the difficulty.
func (i *Issuer) Current() (string, int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.seed, i.difficulty
}

// Submit checks a candidate solution. It rejects solutions for a seed that is
// no longer current, which is how racing solvers are collapsed to a single
// mint: the winner's Submit swaps the seed before anyone else's comparison
// runs. On success it returns the reward and the freshly issued seed.
func (i *Issuer) Submit(seed, identity, nonce string) (reward uint64, next string, ok bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if seed != i.seed {
		return 0, "", false
	}
	if !MeetsDifficulty(SolutionDigest(seed, identity, nonce), i.difficulty) {
		return 0, "", false
	}
	i.seed = newSeed()
	return Reward(i.difficulty), i.seed, true
}

// SolutionDigest is the double hash the puzzle is defined over: the outer
// SHA-256 runs over the hex digest of the inner one, not its raw bytes.
// Miners and the issuer must compute exactly this; single hashing or hashing
// raw digest bytes yields a different search space.
func SolutionDigest(seed, identity, nonce string) string {
	inner := sha256.Sum256([]byte(seed + identity + nonce))
	outer := sha256.Sum256([]byte(hex.EncodeToString(inner[:])))
	return hex.EncodeToString(outer[:])
}

// MeetsDifficulty reports whether digest has at least difficulty leading
// zero hex digits.
func MeetsDifficulty(digest string, difficulty int) bool {
	if difficulty > len(digest) {
		return false
	}
	return strings.HasPrefix(digest, strings.Repeat("0", difficulty))
}

// Reward is 16^difficulty: one unit per expected hash attempt.
func Reward(difficulty int) uint64 {
	return 1 << (4 * uint(difficulty))
}

// Search tries up to attempts sequential nonces from a random starting point
// and returns the first one whose digest meets difficulty. Callers run it in
// batches so a stale puzzle can be abandoned between calls.
func Search(seed, identity string, difficulty, attempts int) (string, bool) {
	start, _ := rand.Int(rand.Reader, big.NewInt(1_000_000_000))
	n := start.Uint64()
	for i := 0; i < attempts; i++ {
		nonce := new(big.Int).SetUint64(n + uint64(i)).String()
		if MeetsDifficulty(SolutionDigest(seed, identity, nonce), difficulty) {
			return nonce, true
		}
	}
	return "", false
}
