// The miner connects to a chainchat server, watches puzzle broadcasts, and
// searches for proof-of-work solutions on behalf of one identity. Rewards
// accumulate on the identity's global balance server-side.
package main

import (
	"crypto/ecdsa"
	"encoding/json"
	"flag"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"
	"github.com/pterm/pterm"

	"github.com/pliu/chainchat/internal/pow"
	"github.com/pliu/chainchat/internal/sig"
)

var (
	addr       = flag.String("addr", "ws://localhost:8080/ws", "websocket address of the server")
	passphrase = flag.String("passphrase", "", "derive the mining identity from this passphrase (empty: fresh random key)")
	batch      = flag.Int("batch", 50000, "nonces to try between checks for a newer puzzle")
)

type serverFrame struct {
	Type       string `json:"type"`
	Puzzle     string `json:"puzzle"`
	Difficulty int    `json:"difficulty"`
	Balance    uint64 `json:"balance"`
	PublicKey  string `json:"publicKey"`
}

type solution struct {
	Type      string      `json:"type"`
	Puzzle    string      `json:"puzzle"`
	Nonce     json.Number `json:"nonce"`
	PublicKey string      `json:"publicKey"`
}

func main() {
	flag.Parse()

	var priv *ecdsa.PrivateKey
	var err error
	if *passphrase != "" {
		priv, err = sig.KeyFromPassphrase(*passphrase)
	} else {
		priv, err = sig.GenerateKey()
	}
	if err != nil {
		pterm.Error.Printfln("Key setup failed: %v", err)
		os.Exit(1)
	}
	pub := sig.EncodePublicKey(&priv.PublicKey)
	pterm.Info.Printfln("Mining as %s...", pub[:16])

	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		pterm.Error.Printfln("Connection to %s failed: %v", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()
	pterm.Success.Printfln("Connected to %s", *addr)

	// puzzles carries the latest seed/difficulty to the mining goroutine;
	// found carries solved nonces back for submission.
	puzzles := make(chan serverFrame, 8)
	found := make(chan solution, 8)
	go mineLoop(pub, puzzles, found)

	go func() {
		for sol := range found {
			if err := conn.WriteJSON(sol); err != nil {
				pterm.Error.Printfln("Submit failed: %v", err)
				return
			}
			pterm.Success.Printfln("Submitted nonce %s for puzzle %s...", sol.Nonce, sol.Puzzle[:12])
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			pterm.Info.Println("Connection closed")
			return
		}
		var frame serverFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		switch frame.Type {
		case "puzzle":
			pterm.Info.Printfln("New puzzle %s... (difficulty %d, reward %d)",
				frame.Puzzle[:12], frame.Difficulty, pow.Reward(frame.Difficulty))
			puzzles <- frame
		case "balance":
			if frame.PublicKey == "" || frame.PublicKey == pub {
				pterm.Success.Printfln("Balance: %d", frame.Balance)
			}
		}
	}
}

// mineLoop searches the newest puzzle in batches, abandoning the current
// seed whenever a fresher one arrives.
func mineLoop(pub string, puzzles <-chan serverFrame, found chan<- solution) {
	current := <-puzzles
	for {
		select {
		case current = <-puzzles:
			continue
		default:
		}
		nonce, ok := pow.Search(current.Puzzle, pub, current.Difficulty, *batch)
		if ok {
			found <- solution{Type: "solution", Puzzle: current.Puzzle, Nonce: json.Number(nonce), PublicKey: pub}
			// Wait for the next puzzle; this seed is spent either way.
			current = <-puzzles
		}
	}
}
