package models

// Room is a chat room as known to the room directory. Token balances for the
// room's currency live in the core ledger, not here.
type Room struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Creator string `json:"creator"`
}

// Message is an accepted chat message. ChainHash is the author's chain tip
// that resulted from accepting it; a message never changes once appended.
type Message struct {
	Content   string `json:"message"`
	PublicKey string `json:"publicKey"`
	Timestamp int64  `json:"timestamp"`
	ChainHash string `json:"messageHash"`
}
