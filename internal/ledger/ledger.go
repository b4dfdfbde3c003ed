// Package ledger keeps the token balances: one global ledger minted through
// proof of work, and one ledger per room whose supply is fixed at room
// creation. Absence of an entry means a zero balance. Transfers are zero-sum
// and all-or-nothing; balances never go negative.
package ledger

import "sync"

type Ledger struct {
	mu     sync.Mutex
	global map[string]uint64
	rooms  map[string]map[string]uint64
}

func New() *Ledger {
	return &Ledger{
		global: make(map[string]uint64),
		rooms:  make(map[string]map[string]uint64),
	}
}

// Global returns the identity's global-token balance.
func (l *Ledger) Global(identity string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.global[identity]
}

// Credit mints amount to identity. Only the proof-of-work path may call this;
// everything else moves existing supply.
func (l *Ledger) Credit(identity string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.global[identity] += amount
}

// TransferGlobal moves amount from one identity to another. It reports false
// and changes nothing when amount is zero or exceeds the sender's balance.
func (l *Ledger) TransferGlobal(from, to string, amount uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount == 0 || l.global[from] < amount {
		return false
	}
	l.global[from] -= amount
	l.global[to] += amount
	return true
}

// RoomBalance returns the identity's balance of the room's token.
func (l *Ledger) RoomBalance(room, identity string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rooms[room][identity]
}

// HasRoomLedger reports whether a supply was ever minted for the room.
func (l *Ledger) HasRoomLedger(room string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.rooms[room]
	return ok
}

// MintRoomSupply creates the room's ledger with the entire supply on the
// creator. A room that already has a ledger is left untouched: supply is
// minted once, at creation.
func (l *Ledger) MintRoomSupply(room, creator string, supply uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.rooms[room]; ok {
		return
	}
	l.rooms[room] = map[string]uint64{creator: supply}
}

// TransferRoom moves amount of the room's token between identities, with the
// same rejection rules as TransferGlobal. A room with no minted ledger
// rejects every transfer.
func (l *Ledger) TransferRoom(room, from, to string, amount uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	balances, ok := l.rooms[room]
	if !ok || amount == 0 || balances[from] < amount {
		return false
	}
	balances[from] -= amount
	balances[to] += amount
	return true
}
