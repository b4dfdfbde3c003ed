package main

import (
	"flag"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pliu/chainchat/internal/chain"
	"github.com/pliu/chainchat/internal/core"
	"github.com/pliu/chainchat/internal/handlers"
	"github.com/pliu/chainchat/internal/ledger"
	"github.com/pliu/chainchat/internal/pow"
	"github.com/pliu/chainchat/internal/store/sqlstore"
	"github.com/pliu/chainchat/internal/ws"
)

var (
	addr       = flag.String("addr", ":8080", "http service address")
	driver     = flag.String("driver", "sqlite3", "room directory driver (sqlite3 or postgres)")
	dsn        = flag.String("db", "chainchat.db", "room directory data source")
	difficulty = flag.Int("difficulty", 4, "leading zero hex digits required of a proof-of-work solution")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Room directory. For Postgres (running via docker-compose):
	// -driver postgres -db "user=user password=password dbname=chainchat sslmode=disable host=localhost port=5432"
	store, err := sqlstore.New(*driver, *dsn)
	if err != nil {
		log.Fatal(err)
	}

	// Core state: chains, balances, puzzle. In-memory by design; rooms and
	// history outlive a restart, ledgers do not.
	chains := chain.New()
	tokens := ledger.New()
	issuer := pow.NewIssuer(*difficulty)

	// The general room always exists, with its supply on the well-known
	// creator key. The ledger mint is a no-op if somehow already present.
	if err := store.EnsureRoom("general", "General", core.GeneralRoomCreator); err != nil {
		log.Fatal(err)
	}
	tokens.MintRoomSupply("general", core.GeneralRoomCreator, core.InitialRoomSupply)

	// Initialize WebSocket Hub and Action Router
	hub := ws.NewHub()
	go hub.Run()
	router := core.NewRouter(chains, issuer, tokens, store, hub)

	queryHandler := &handlers.QueryHandler{
		Chain:  chains,
		Tokens: tokens,
		Issuer: issuer,
		Store:  store,
	}

	r := mux.NewRouter()
	r.Use(loggingMiddleware)

	// Read-only API Endpoints
	r.HandleFunc("/api/puzzle", queryHandler.GetPuzzle).Methods("GET")
	r.HandleFunc("/api/balance/{key}", queryHandler.GetBalance).Methods("GET")
	r.HandleFunc("/api/chain/{key}", queryHandler.GetChainTip).Methods("GET")
	r.HandleFunc("/api/rooms", queryHandler.GetRooms).Methods("GET")
	r.HandleFunc("/api/rooms/{id}/messages", queryHandler.GetRoomMessages).Methods("GET")
	r.HandleFunc("/api/rooms/{id}/balance/{key}", queryHandler.GetRoomBalance).Methods("GET")

	// WebSocket Endpoint
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		ws.ServeWs(hub, router, w, req)
	})

	// Serve index.html
	r.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/" {
			http.NotFound(w, req)
			return
		}
		http.ServeFile(w, req, "static/index.html")
	})

	// Serve static files with cache-busting headers for development
	r.PathPrefix("/").Handler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if strings.HasSuffix(req.URL.Path, ".css") || strings.HasSuffix(req.URL.Path, ".js") {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			w.Header().Set("Pragma", "no-cache")
			w.Header().Set("Expires", "0")
		}
		http.FileServer(http.Dir("static")).ServeHTTP(w, req)
	}))

	log.Println("Starting server on", *addr)
	log.Fatal(http.ListenAndServe(*addr, r))
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}
