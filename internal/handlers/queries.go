package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pliu/chainchat/internal/chain"
	"github.com/pliu/chainchat/internal/ledger"
	"github.com/pliu/chainchat/internal/pow"
	"github.com/pliu/chainchat/internal/store"
)

// QueryHandler serves the read-only views of the core state. None of these
// require a signature or a chain link; they exist so clients can resync
// (chain tip, balances) and observe (puzzle, rooms) without acting.
type QueryHandler struct {
	Chain  *chain.Ledger
	Tokens *ledger.Ledger
	Issuer *pow.Issuer
	Store  store.Store
}

func (h *QueryHandler) GetPuzzle(w http.ResponseWriter, r *http.Request) {
	seed, difficulty := h.Issuer.Current()
	json.NewEncoder(w).Encode(map[string]any{
		"puzzle":     seed,
		"difficulty": difficulty,
	})
}

func (h *QueryHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	json.NewEncoder(w).Encode(map[string]any{
		"publicKey": key,
		"balance":   h.Tokens.Global(key),
	})
}

func (h *QueryHandler) GetChainTip(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	json.NewEncoder(w).Encode(map[string]any{
		"publicKey":       key,
		"lastMessageHash": h.Chain.LastHash(key),
	})
}

func (h *QueryHandler) GetRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.Store.ListRooms()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(rooms)
}

func (h *QueryHandler) GetRoomMessages(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]
	exists, err := h.Store.RoomExists(roomID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}
	messages, err := h.Store.RoomMessages(roomID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(messages)
}

func (h *QueryHandler) GetRoomBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	roomID, key := vars["id"], vars["key"]
	exists, err := h.Store.RoomExists(roomID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"roomId":    roomID,
		"publicKey": key,
		"balance":   h.Tokens.RoomBalance(roomID, key),
	})
}
