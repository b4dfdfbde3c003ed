package core

import (
	"encoding/json"

	"github.com/pliu/chainchat/internal/models"
)

// Inbound envelopes. Each frame carries a type discriminator; the rest of the
// fields depend on it. Signed actions additionally carry signature, publicKey
// and prevHash. Nonces travel as json.Number so the digest sees the exact
// decimal text the miner hashed.

type envelope struct {
	Type string `json:"type"`
}

type solutionRequest struct {
	Puzzle    string      `json:"puzzle"`
	Nonce     json.Number `json:"nonce"`
	PublicKey string      `json:"publicKey"`
}

type messageRequest struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
	PublicKey string `json:"publicKey"`
	PrevHash  string `json:"prevHash"`
}

type transferRequest struct {
	RecipientPublicKey string `json:"recipientPublicKey"`
	Amount             uint64 `json:"amount"`
	Timestamp          int64  `json:"timestamp"`
	Signature          string `json:"signature"`
	PublicKey          string `json:"publicKey"`
	PrevHash           string `json:"prevHash"`
}

type createRoomRequest struct {
	RoomName  string `json:"roomName"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
	PublicKey string `json:"publicKey"`
	PrevHash  string `json:"prevHash"`
}

type roomTransferRequest struct {
	RoomID             string `json:"roomId"`
	RecipientPublicKey string `json:"recipientPublicKey"`
	Amount             uint64 `json:"amount"`
	Timestamp          int64  `json:"timestamp"`
	Signature          string `json:"signature"`
	PublicKey          string `json:"publicKey"`
	PrevHash           string `json:"prevHash"`
}

type joinRoomRequest struct {
	RoomID string `json:"roomId"`
}

type keyedRequest struct {
	PublicKey string `json:"publicKey"`
}

type roomBalanceRequest struct {
	RoomID    string `json:"roomId"`
	PublicKey string `json:"publicKey"`
}

// Outbound notifications.

type puzzleNotice struct {
	Type       string `json:"type"`
	Puzzle     string `json:"puzzle"`
	Difficulty int    `json:"difficulty"`
}

type balanceNotice struct {
	Type        string `json:"type"`
	Balance     uint64 `json:"balance"`
	PublicKey   string `json:"publicKey,omitempty"`
	MessageHash string `json:"messageHash,omitempty"`
}

type roomBalanceNotice struct {
	Type        string `json:"type"`
	RoomID      string `json:"roomId"`
	Balance     uint64 `json:"balance"`
	PublicKey   string `json:"publicKey,omitempty"`
	MessageHash string `json:"messageHash,omitempty"`
}

type roomEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Creator      string `json:"creator"`
	TokenBalance uint64 `json:"tokenBalance,omitempty"`
}

type roomListNotice struct {
	Type        string      `json:"type"`
	Rooms       []roomEntry `json:"rooms"`
	MessageHash string      `json:"messageHash,omitempty"`
}

type roomHistoryNotice struct {
	Type     string           `json:"type"`
	Messages []models.Message `json:"messages"`
}

type lastHashNotice struct {
	Type            string `json:"type"`
	PublicKey       string `json:"publicKey"`
	LastMessageHash string `json:"lastMessageHash"`
}

// chatBroadcast is the room-scoped fan-out of an accepted message. It carries
// no type field; clients treat untyped frames as chat.
type chatBroadcast struct {
	Message     string `json:"message"`
	PublicKey   string `json:"publicKey"`
	RoomID      string `json:"roomId"`
	MessageHash string `json:"messageHash"`
}
