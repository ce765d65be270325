package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mev-competition-lab/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSSource_Connect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		// Keep connection open
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	source, err := NewWSSource(context.Background(), wsURL(server), "run-1", nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWSSource: %v", err)
	}
	defer source.Close()

	if source.closed.Load() {
		t.Error("source should not be closed")
	}
}

func TestWSSource_ReceiveIntents(t *testing.T) {
	messages := []string{
		`{"victim_id":"whale-1","profile":"whale","direction":"sell0","amount_in":"250","max_slippage_bps":120,"gas_price_gwei":"40"}`,
		`{"victim_id":"retail-1","profile":"retail","direction":"sell1","amount_in":"12.5","max_slippage_bps":200,"gas_price_gwei":"25"}`,
		`{"victim_id":"bad","direction":"sell0","amount_in":"-1","gas_price_gwei":"25"}`,
		`not json`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		// Keep connection open until client disconnects
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	source, err := NewWSSource(context.Background(), wsURL(server), "run-1", nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWSSource: %v", err)
	}
	defer source.Close()

	// Wait for the reader to buffer the two valid intents
	var got []domain.TradeIntent
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		batch, err := source.Next(context.Background(), 7)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, batch...)
		if len(got) >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if len(got) != 2 {
		t.Fatalf("got %d intents, want 2 (malformed messages must be skipped)", len(got))
	}
	if got[0].AgentID != "whale-1" || got[0].Direction != domain.Sell0 {
		t.Errorf("first intent: %+v", got[0])
	}
	if !got[0].AmountIn.Equal(decimal.NewFromInt(250)) {
		t.Errorf("first intent amount = %s, want 250", got[0].AmountIn)
	}
	if got[1].AgentID != "retail-1" || got[1].Direction != domain.Sell1 {
		t.Errorf("second intent: %+v", got[1])
	}
	for _, intent := range got {
		if intent.SubmittedAtRound != 7 {
			t.Errorf("intent %s round = %d, want 7", intent.AgentID, intent.SubmittedAtRound)
		}
		if intent.IntentID == "" {
			t.Errorf("intent %s has no ID", intent.AgentID)
		}
	}
}

func TestWSSource_IdenticalMessagesGetDistinctIDs(t *testing.T) {
	// Two byte-identical intents in the same round must stay two trades.
	msg := `{"victim_id":"retail-1","profile":"retail","direction":"sell0","amount_in":"25","max_slippage_bps":200,"gas_price_gwei":"25"}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		for i := 0; i < 2; i++ {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	source, err := NewWSSource(context.Background(), wsURL(server), "run-1", nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWSSource: %v", err)
	}
	defer source.Close()

	var got []domain.TradeIntent
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		batch, err := source.Next(context.Background(), 3)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, batch...)
		if len(got) >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if len(got) != 2 {
		t.Fatalf("got %d intents, want 2", len(got))
	}
	if got[0].IntentID == got[1].IntentID {
		t.Fatalf("identical messages collided on intent ID %s", got[0].IntentID)
	}
}

func TestWSSource_NextAfterClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	source, err := NewWSSource(context.Background(), wsURL(server), "run-1", nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWSSource: %v", err)
	}

	if err := source.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Idempotent
	if err := source.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, err := source.Next(context.Background(), 0); err == nil {
		t.Error("Next after Close should fail")
	}
}
