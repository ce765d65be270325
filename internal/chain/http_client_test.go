package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"mev-competition-lab/internal/domain"
)

func sampleResults() []domain.TradeResult {
	return []domain.TradeResult{
		{ResultID: "r1", Kind: domain.ItemFrontrun, AgentID: "agg-1", Success: true,
			AmountIn: decimal.NewFromInt(80), AmountOut: decimal.RequireFromString("147.73")},
		{ResultID: "r2", Kind: domain.ItemVictim, AgentID: "victim-1", Success: true,
			AmountIn: decimal.NewFromInt(100), AmountOut: decimal.RequireFromString("156.53")},
		{ResultID: "r3", Kind: domain.ItemBackrun, AgentID: "agg-1", Success: false},
	}
}

func TestHTTPClient_Submit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Method != "mevlab_submitBundle" {
			t.Errorf("method = %s", req.Method)
		}
		if req.JSONRPC != "2.0" {
			t.Errorf("jsonrpc = %s", req.JSONRPC)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  []string{"confirmed", "confirmed", "failed"},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	statuses, err := client.Submit(context.Background(), domain.ResolvedOrder{Round: 3}, sampleResults())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	want := []domain.SubmissionStatus{domain.SubmissionConfirmed, domain.SubmissionConfirmed, domain.SubmissionFailed}
	for i, s := range statuses {
		if s != want[i] {
			t.Errorf("status[%d] = %s, want %s", i, s, want[i])
		}
	}
}

func TestHTTPClient_Submit_ShortOrUnknownStatuses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"result":  []string{"confirmed", "maybe"},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	statuses, err := client.Submit(context.Background(), domain.ResolvedOrder{}, sampleResults())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if statuses[0] != domain.SubmissionConfirmed {
		t.Errorf("status[0] = %s", statuses[0])
	}
	// Unknown and missing entries degrade to pending.
	if statuses[1] != domain.SubmissionPending || statuses[2] != domain.SubmissionPending {
		t.Errorf("statuses = %v, want pending tail", statuses)
	}
}

func TestHTTPClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"result":  []string{},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithRetryDelay(time.Millisecond), WithMaxRetries(3))
	if _, err := client.Submit(context.Background(), domain.ResolvedOrder{}, nil); err != nil {
		t.Fatalf("Submit after retries: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestHTTPClient_RPCErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"error":   map[string]interface{}{"code": -32000, "message": "bundle rejected"},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithRetryDelay(time.Millisecond))
	_, err := client.Submit(context.Background(), domain.ResolvedOrder{}, nil)
	if err == nil {
		t.Fatal("expected RPC error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("RPC error retried: %d calls", got)
	}
}

func TestNopAdapter(t *testing.T) {
	statuses, err := NopAdapter{}.Submit(context.Background(), domain.ResolvedOrder{}, sampleResults())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(statuses) != 3 {
		t.Fatalf("got %d statuses", len(statuses))
	}
	for i, s := range statuses {
		if s != domain.SubmissionConfirmed {
			t.Errorf("status[%d] = %s, want confirmed", i, s)
		}
	}
}
