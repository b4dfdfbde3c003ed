// Package core composes the protocol: every signed action passes signature
// verification, then the hash-chain continuity check, then its balance or
// room effect, in that order. Rejections at any step change nothing and send
// nothing; the reasons differ only in the local log.
package core

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/pliu/chainchat/internal/chain"
	"github.com/pliu/chainchat/internal/ledger"
	"github.com/pliu/chainchat/internal/models"
	"github.com/pliu/chainchat/internal/pow"
	"github.com/pliu/chainchat/internal/sig"
	"github.com/pliu/chainchat/internal/store"
)

// InitialRoomSupply is minted to a room's creator when the room is created.
// No room token is ever minted after that.
const InitialRoomSupply uint64 = 1_000_000_000

// GeneralRoomCreator owns the seeded general room and its token supply.
const GeneralRoomCreator = "0438e37b46e8e8756e3df4c3351e98e3f9638c424ed6c2eef39f74831b5eaeac5ada70b0d4f138a7eef6a4757bf8f2a732b76ccf7b17aeb6501908a21e40c2d605"

// Session is one connected client as the router sees it: a current room and
// a way to push frames to it.
type Session interface {
	Room() string
	SetRoom(room string)
	Send(v any)
}

// Emitter fans frames out to other sessions. The websocket hub implements it.
type Emitter interface {
	Broadcast(v any)
	BroadcastRoom(room string, v any)
	BroadcastOthers(s Session, v any)
}

type Router struct {
	chain  *chain.Ledger
	issuer *pow.Issuer
	tokens *ledger.Ledger
	rooms  store.Store
	emit   Emitter

	// mu serializes chain advancement together with the action's effect, so
	// no interleaving can advance a chain without applying its effect.
	mu sync.Mutex
}

func NewRouter(c *chain.Ledger, issuer *pow.Issuer, tokens *ledger.Ledger, rooms store.Store, emit Emitter) *Router {
	return &Router{chain: c, issuer: issuer, tokens: tokens, rooms: rooms, emit: emit}
}

// Hello sends a fresh session the room list and the current puzzle.
func (r *Router) Hello(sess Session) {
	sess.Send(r.roomList("", ""))
	seed, difficulty := r.issuer.Current()
	sess.Send(puzzleNotice{Type: "puzzle", Puzzle: seed, Difficulty: difficulty})
}

// Handle processes one inbound frame. Unparseable or unknown frames are
// dropped with a local log line and no response.
func (r *Router) Handle(sess Session, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("dropping unparseable frame: %v", err)
		return
	}

	switch env.Type {
	case "solution":
		r.handleSolution(sess, raw)
	case "message":
		r.handleMessage(sess, raw)
	case "transfer":
		r.handleTransfer(sess, raw)
	case "createRoom":
		r.handleCreateRoom(sess, raw)
	case "roomTokenTransfer":
		r.handleRoomTransfer(sess, raw)
	case "joinRoom":
		r.handleJoinRoom(sess, raw)
	case "getBalance":
		r.handleGetBalance(sess, raw)
	case "getRoomTokenBalance":
		r.handleGetRoomBalance(sess, raw)
	case "getRoomList":
		r.handleGetRoomList(sess, raw)
	case "getLastMessageHash":
		r.handleGetLastHash(sess, raw)
	default:
		log.Printf("dropping frame with unknown type %q", env.Type)
	}
}

func (r *Router) handleSolution(sess Session, raw []byte) {
	var req solutionRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		log.Printf("solution: unparseable: %v", err)
		return
	}

	reward, next, ok := r.issuer.Submit(req.Puzzle, req.PublicKey, req.Nonce.String())
	if !ok {
		// Failed proof-of-work attempts are normal search traffic, not a
		// protocol error. No response.
		return
	}
	r.tokens.Credit(req.PublicKey, reward)
	log.Printf("pow: %s mined %d", shortKey(req.PublicKey), reward)

	_, difficulty := r.issuer.Current()
	r.emit.Broadcast(puzzleNotice{Type: "puzzle", Puzzle: next, Difficulty: difficulty})
	sess.Send(balanceNotice{Type: "balance", Balance: r.tokens.Global(req.PublicKey)})
}

func (r *Router) handleMessage(sess Session, raw []byte) {
	var req messageRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		log.Printf("message: unparseable: %v", err)
		return
	}

	payload := MessageSignPayload(req.Message, req.Timestamp, req.PrevHash)
	if !sig.Verify(payload, req.Signature, req.PublicKey) {
		log.Printf("message: bad signature from %s", shortKey(req.PublicKey))
		return
	}

	roomID := sess.Room()

	r.mu.Lock()
	newHash, ok := r.chain.TryAdvance(req.PublicKey, req.PrevHash, messageChainPayload(req.Message), req.Timestamp)
	if !ok {
		r.mu.Unlock()
		log.Printf("message: chain mismatch for %s (got %s, want %s)",
			shortKey(req.PublicKey), req.PrevHash, r.chain.LastHash(req.PublicKey))
		return
	}
	msg := &models.Message{
		Content:   req.Message,
		PublicKey: req.PublicKey,
		Timestamp: req.Timestamp,
		ChainHash: newHash,
	}
	if err := r.rooms.AppendMessage(roomID, msg); err != nil {
		// Chain already advanced; the message is accepted but has no home.
		log.Printf("message: append to %s failed: %v", roomID, err)
	}
	r.mu.Unlock()

	r.emit.BroadcastRoom(roomID, chatBroadcast{
		Message:     req.Message,
		PublicKey:   req.PublicKey,
		RoomID:      roomID,
		MessageHash: newHash,
	})
}

func (r *Router) handleTransfer(sess Session, raw []byte) {
	var req transferRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		log.Printf("transfer: unparseable: %v", err)
		return
	}

	payload := TransferSignPayload(req.RecipientPublicKey, req.Amount, req.Timestamp, req.PrevHash)
	if !sig.Verify(payload, req.Signature, req.PublicKey) {
		log.Printf("transfer: bad signature from %s", shortKey(req.PublicKey))
		return
	}

	r.mu.Lock()
	if req.PrevHash != r.chain.LastHash(req.PublicKey) {
		r.mu.Unlock()
		log.Printf("transfer: chain mismatch for %s", shortKey(req.PublicKey))
		return
	}
	if req.Amount == 0 || r.tokens.Global(req.PublicKey) < req.Amount {
		r.mu.Unlock()
		log.Printf("transfer: insufficient balance for %s", shortKey(req.PublicKey))
		return
	}
	newHash, _ := r.chain.TryAdvance(req.PublicKey, req.PrevHash,
		transferChainPayload(req.RecipientPublicKey, req.Amount), req.Timestamp)
	r.tokens.TransferGlobal(req.PublicKey, req.RecipientPublicKey, req.Amount)
	r.mu.Unlock()

	sess.Send(balanceNotice{
		Type:        "balance",
		Balance:     r.tokens.Global(req.PublicKey),
		MessageHash: newHash,
	})
	r.emit.BroadcastOthers(sess, balanceNotice{
		Type:      "balance",
		Balance:   r.tokens.Global(req.RecipientPublicKey),
		PublicKey: req.RecipientPublicKey,
	})
}

func (r *Router) handleCreateRoom(sess Session, raw []byte) {
	var req createRoomRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		log.Printf("createRoom: unparseable: %v", err)
		return
	}

	payload := CreateRoomSignPayload(req.RoomName, req.Timestamp, req.PrevHash)
	if !sig.Verify(payload, req.Signature, req.PublicKey) {
		log.Printf("createRoom: bad signature from %s", shortKey(req.PublicKey))
		return
	}

	r.mu.Lock()
	newHash, ok := r.chain.TryAdvance(req.PublicKey, req.PrevHash,
		createRoomChainPayload(req.RoomName), req.Timestamp)
	if !ok {
		r.mu.Unlock()
		log.Printf("createRoom: chain mismatch for %s", shortKey(req.PublicKey))
		return
	}
	roomID, err := r.rooms.CreateRoom(req.RoomName, req.PublicKey)
	if err != nil {
		r.mu.Unlock()
		log.Printf("createRoom: directory insert failed: %v", err)
		return
	}
	r.tokens.MintRoomSupply(roomID, req.PublicKey, InitialRoomSupply)
	r.mu.Unlock()

	sess.Send(r.roomList("", newHash))
	r.emit.BroadcastOthers(sess, r.roomList("", ""))
}

func (r *Router) handleRoomTransfer(sess Session, raw []byte) {
	var req roomTransferRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		log.Printf("roomTokenTransfer: unparseable: %v", err)
		return
	}

	exists, err := r.rooms.RoomExists(req.RoomID)
	if err != nil || !exists {
		log.Printf("roomTokenTransfer: room %s not found", req.RoomID)
		return
	}

	payload := RoomTransferSignPayload(req.RoomID, req.RecipientPublicKey, req.Amount, req.Timestamp, req.PrevHash)
	if !sig.Verify(payload, req.Signature, req.PublicKey) {
		log.Printf("roomTokenTransfer: bad signature from %s", shortKey(req.PublicKey))
		return
	}

	r.mu.Lock()
	if req.PrevHash != r.chain.LastHash(req.PublicKey) {
		r.mu.Unlock()
		log.Printf("roomTokenTransfer: chain mismatch for %s", shortKey(req.PublicKey))
		return
	}
	if !r.tokens.HasRoomLedger(req.RoomID) {
		r.mu.Unlock()
		log.Printf("roomTokenTransfer: no ledger for room %s", req.RoomID)
		return
	}
	if req.Amount == 0 || r.tokens.RoomBalance(req.RoomID, req.PublicKey) < req.Amount {
		r.mu.Unlock()
		log.Printf("roomTokenTransfer: insufficient balance for %s in %s", shortKey(req.PublicKey), req.RoomID)
		return
	}
	newHash, _ := r.chain.TryAdvance(req.PublicKey, req.PrevHash,
		roomTransferChainPayload(req.RoomID, req.RecipientPublicKey, req.Amount), req.Timestamp)
	r.tokens.TransferRoom(req.RoomID, req.PublicKey, req.RecipientPublicKey, req.Amount)
	r.mu.Unlock()

	sess.Send(roomBalanceNotice{
		Type:        "roomTokenBalance",
		RoomID:      req.RoomID,
		Balance:     r.tokens.RoomBalance(req.RoomID, req.PublicKey),
		MessageHash: newHash,
	})
	// The recipient learns their new balance; no chain hash, it is not their
	// chain that advanced.
	r.emit.BroadcastOthers(sess, roomBalanceNotice{
		Type:      "roomTokenBalance",
		RoomID:    req.RoomID,
		Balance:   r.tokens.RoomBalance(req.RoomID, req.RecipientPublicKey),
		PublicKey: req.RecipientPublicKey,
	})
}

func (r *Router) handleJoinRoom(sess Session, raw []byte) {
	var req joinRoomRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		log.Printf("joinRoom: unparseable: %v", err)
		return
	}

	exists, err := r.rooms.RoomExists(req.RoomID)
	if err != nil || !exists {
		log.Printf("joinRoom: room %s not found", req.RoomID)
		return
	}

	sess.SetRoom(req.RoomID)

	msgs, err := r.rooms.RoomMessages(req.RoomID)
	if err != nil {
		log.Printf("joinRoom: history read failed: %v", err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	sess.Send(roomHistoryNotice{Type: "roomHistory", Messages: msgs})
}

func (r *Router) handleGetBalance(sess Session, raw []byte) {
	var req keyedRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		log.Printf("getBalance: unparseable: %v", err)
		return
	}
	sess.Send(balanceNotice{
		Type:      "balance",
		Balance:   r.tokens.Global(req.PublicKey),
		PublicKey: req.PublicKey,
	})
}

func (r *Router) handleGetRoomBalance(sess Session, raw []byte) {
	var req roomBalanceRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		log.Printf("getRoomTokenBalance: unparseable: %v", err)
		return
	}
	exists, err := r.rooms.RoomExists(req.RoomID)
	if err != nil || !exists || !r.tokens.HasRoomLedger(req.RoomID) {
		log.Printf("getRoomTokenBalance: room %s not found", req.RoomID)
		return
	}
	sess.Send(roomBalanceNotice{
		Type:        "roomTokenBalance",
		RoomID:      req.RoomID,
		Balance:     r.tokens.RoomBalance(req.RoomID, req.PublicKey),
		PublicKey:   req.PublicKey,
		MessageHash: r.chain.LastHash(req.PublicKey),
	})
}

func (r *Router) handleGetRoomList(sess Session, raw []byte) {
	var req keyedRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		log.Printf("getRoomList: unparseable: %v", err)
		return
	}
	sess.Send(r.roomList(req.PublicKey, ""))
}

func (r *Router) handleGetLastHash(sess Session, raw []byte) {
	var req keyedRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		log.Printf("getLastMessageHash: unparseable: %v", err)
		return
	}
	sess.Send(lastHashNotice{
		Type:            "lastMessageHash",
		PublicKey:       req.PublicKey,
		LastMessageHash: r.chain.LastHash(req.PublicKey),
	})
}

// roomList builds a room list notice. With a requesting key it includes that
// key's token balance per room; with a chain hash it stamps the creator's
// copy after a createRoom.
func (r *Router) roomList(forKey, chainHash string) roomListNotice {
	rooms, err := r.rooms.ListRooms()
	if err != nil {
		log.Printf("roomList: directory read failed: %v", err)
	}
	entries := make([]roomEntry, 0, len(rooms))
	for _, room := range rooms {
		entry := roomEntry{ID: room.ID, Name: room.Name, Creator: room.Creator}
		if forKey != "" {
			entry.TokenBalance = r.tokens.RoomBalance(room.ID, forKey)
		}
		entries = append(entries, entry)
	}
	return roomListNotice{Type: "roomList", Rooms: entries, MessageHash: chainHash}
}

func shortKey(key string) string {
	if len(key) <= 16 {
		return key
	}
	return key[:16] + "..."
}
