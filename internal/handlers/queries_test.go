package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/pliu/chainchat/internal/chain"
	"github.com/pliu/chainchat/internal/ledger"
	"github.com/pliu/chainchat/internal/pow"
	"github.com/pliu/chainchat/internal/store/sqlstore"
)

func newTestHandler(t *testing.T) (*QueryHandler, *mux.Router) {
	t.Helper()
	st, err := sqlstore.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	h := &QueryHandler{
		Chain:  chain.New(),
		Tokens: ledger.New(),
		Issuer: pow.NewIssuer(4),
		Store:  st,
	}
	r := mux.NewRouter()
	r.HandleFunc("/api/puzzle", h.GetPuzzle).Methods("GET")
	r.HandleFunc("/api/balance/{key}", h.GetBalance).Methods("GET")
	r.HandleFunc("/api/chain/{key}", h.GetChainTip).Methods("GET")
	r.HandleFunc("/api/rooms", h.GetRooms).Methods("GET")
	r.HandleFunc("/api/rooms/{id}/messages", h.GetRoomMessages).Methods("GET")
	r.HandleFunc("/api/rooms/{id}/balance/{key}", h.GetRoomBalance).Methods("GET")
	return h, r
}

func get(t *testing.T, r *mux.Router, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, _ := http.NewRequest("GET", path, nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestGetPuzzle(t *testing.T) {
	h, r := newTestHandler(t)

	rr := get(t, r, "/api/puzzle")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var body map[string]any
	json.NewDecoder(rr.Body).Decode(&body)
	seed, _ := h.Issuer.Current()
	if body["puzzle"] != seed {
		t.Error("Puzzle endpoint should return the current seed")
	}
	if body["difficulty"] != float64(4) {
		t.Errorf("Expected difficulty 4, got %v", body["difficulty"])
	}
}

func TestGetBalanceAndChainTip(t *testing.T) {
	h, r := newTestHandler(t)
	h.Tokens.Credit("04abc", 500)

	rr := get(t, r, "/api/balance/04abc")
	var balance map[string]any
	json.NewDecoder(rr.Body).Decode(&balance)
	if balance["balance"] != float64(500) {
		t.Errorf("Expected balance 500, got %v", balance["balance"])
	}

	rr = get(t, r, "/api/chain/04abc")
	var tip map[string]any
	json.NewDecoder(rr.Body).Decode(&tip)
	if tip["lastMessageHash"] != chain.GenesisHash {
		t.Errorf("Expected genesis tip for fresh identity, got %v", tip["lastMessageHash"])
	}
}

func TestGetRoomMessagesNotFound(t *testing.T) {
	_, r := newTestHandler(t)

	rr := get(t, r, "/api/rooms/room_missing/messages")
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown room, got %d", rr.Code)
	}
}

func TestGetRoomBalance(t *testing.T) {
	h, r := newTestHandler(t)
	id, err := h.Store.(*sqlstore.SQLStore).CreateRoom("Room", "creator")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	h.Tokens.MintRoomSupply(id, "creator", 1000)

	rr := get(t, r, "/api/rooms/"+id+"/balance/creator")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var body map[string]any
	json.NewDecoder(rr.Body).Decode(&body)
	if body["balance"] != float64(1000) {
		t.Errorf("Expected balance 1000, got %v", body["balance"])
	}
}
