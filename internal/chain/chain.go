// Package chain tracks, per identity, the hash of the last accepted action.
// Each accepted action hashes over its predecessor, giving every identity a
// strict total order over its own actions: a captured action cannot be
// replayed and actions cannot be accepted out of order, because both would
// present a stale predecessor hash.
package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
)

// GenesisHash is the chain tip of an identity with no accepted actions: the
// hex of a 32-byte zero digest. Clients must use the same sentinel.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Ledger maps identities to their chain tips. Tips only ever move forward.
type Ledger struct {
	mu   sync.Mutex
	tips map[string]string
}

func New() *Ledger {
	return &Ledger{tips: make(map[string]string)}
}

// LastHash returns the identity's chain tip, or GenesisHash if the identity
// has no accepted actions yet.
func (l *Ledger) LastHash(identity string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastHashLocked(identity)
}

func (l *Ledger) lastHashLocked(identity string) string {
	if tip, ok := l.tips[identity]; ok {
		return tip
	}
	return GenesisHash
}

// TryAdvance accepts an action iff prevHash matches the identity's current
// tip, then moves the tip to the new action hash. The check and the update
// happen under one lock hold, so two concurrent actions presenting the same
// predecessor cannot both succeed.
func (l *Ledger) TryAdvance(identity, prevHash, payload string, timestamp int64) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if prevHash != l.lastHashLocked(identity) {
		return "", false
	}
	next := ActionHash(payload, identity, timestamp, prevHash)
	l.tips[identity] = next
	return next, true
}

// ActionHash computes the chain hash of one action. The field order here is
// part of the protocol; clients that predict their next tip must hash the
// same bytes.
func ActionHash(payload, identity string, timestamp int64, prevHash string) string {
	sum := sha256.Sum256([]byte(payload + identity + strconv.FormatInt(timestamp, 10) + prevHash))
	return hex.EncodeToString(sum[:])
}
