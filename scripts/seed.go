// Seed script for creating a demo debate on a running ArborVote server.
// SEED_PRIVATE_KEYS holds comma-separated hex keys whose addresses are in
// the server's VERIFIED_ADDRESSES. Every key joins; the first one opens the
// debate. Requests are signed the way the server authenticates callers.
// Run with: go run ./scripts/seed.go
package main

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/arborvote/arborvote/internal/api/middleware"
	"github.com/arborvote/arborvote/internal/config"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

func main() {
	_ = config.Load()

	baseURL := os.Getenv("ARBOR_URL")
	if baseURL == "" {
		baseURL = "http://localhost" + config.ServerAddr()
	}

	var participants []*ecdsa.PrivateKey
	for _, raw := range strings.Split(os.Getenv("SEED_PRIVATE_KEYS"), ",") {
		raw = strings.TrimPrefix(strings.TrimSpace(raw), "0x")
		if raw == "" {
			continue
		}
		key, err := crypto.HexToECDSA(raw)
		if err != nil {
			log.Fatalf("Invalid SEED_PRIVATE_KEYS entry: %v", err)
		}
		participants = append(participants, key)
	}
	if len(participants) < 2 {
		log.Fatal("SEED_PRIVATE_KEYS needs at least two keys")
	}
	creator := participants[0]

	var debate struct {
		ID uint64 `json:"id"`
	}
	mustDo(baseURL, creator, "/v1/debates", map[string]any{
		"thesis":    content("Cities should replace parking minimums with parking maximums."),
		"time_unit": 60,
	}, &debate)
	fmt.Printf("Created debate %d\n", debate.ID)

	for _, p := range participants {
		mustDo(baseURL, p, fmt.Sprintf("/v1/debates/%d/join", debate.ID), nil, nil)
		fmt.Printf("Joined %s\n", crypto.PubkeyToAddress(p.PublicKey).Hex())
	}

	arguments := []struct {
		author     *ecdsa.PrivateKey
		parent     uint64
		text       string
		supporting bool
		approval   uint64
	}{
		{participants[0], 0, "Minimums force housing to carry the cost of unused stalls.", true, 75},
		{participants[1], 0, "Maximums push parking onto already crowded streets.", false, 60},
		{participants[0], 2, "Street parking can be priced to clear the curb.", false, 55},
	}
	for _, a := range arguments {
		var created struct {
			ID uint64 `json:"id"`
		}
		mustDo(baseURL, a.author, fmt.Sprintf("/v1/debates/%d/arguments", debate.ID), map[string]any{
			"parent_id":        a.parent,
			"content_uri":      content(a.text),
			"is_supporting":    a.supporting,
			"initial_approval": a.approval,
		}, &created)
		fmt.Printf("Added argument %d under %d\n", created.ID, a.parent)
	}

	fmt.Println()
	fmt.Println("========================================")
	fmt.Printf("Debate ID: %d\n", debate.ID)
	fmt.Printf("Voting opens in %d seconds\n", 7*60)
	fmt.Println("========================================")
}

// content hashes text into the content reference stored on chain-style ids.
func content(text string) string {
	return crypto.Keccak256Hash([]byte(text)).Hex()
}

func mustDo(baseURL string, as *ecdsa.PrivateKey, path string, body, out any) {
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, baseURL+path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if err := middleware.SignRequest(req, as, uuid.NewString(), time.Now()); err != nil {
		log.Fatalf("POST %s: %v", path, err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		log.Fatalf("POST %s: API error (%d): %s", path, resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			log.Fatalf("POST %s: decode response: %v", path, err)
		}
	}
}
