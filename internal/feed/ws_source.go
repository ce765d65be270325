package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/idhash"
)

// WSConfig configures WebSocket source behavior.
type WSConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// Buffer is the intent channel capacity; messages beyond it are
	// dropped with a log line rather than blocking the reader.
	Buffer int
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		Buffer:            256,
	}
}

// wireIntent is the JSON message shape the feed emits.
type wireIntent struct {
	VictimID       string `json:"victim_id"`
	Profile        string `json:"profile"`
	Direction      string `json:"direction"`
	AmountIn       string `json:"amount_in"`
	MaxSlippageBps int64  `json:"max_slippage_bps"`
	GasPriceGwei   string `json:"gas_price_gwei"`
}

// WSSource streams victim intents from a websocket feed. The reader
// goroutine buffers incoming intents; Next drains whatever arrived since
// the previous round without blocking, so round cadence stays with the
// caller.
type WSSource struct {
	endpoint string
	runID    string
	config   WSConfig
	logger   *zap.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	intents chan domain.TradeIntent
	done    chan struct{}
	wg      sync.WaitGroup

	// seq numbers drained intents over the source's lifetime so two
	// identical wire messages in one round still get distinct IDs.
	// Touched only by Next, which has a single caller.
	seq int64
}

// NewWSSource connects to the endpoint and starts the reader goroutine.
func NewWSSource(ctx context.Context, endpoint, runID string, config *WSConfig, logger *zap.Logger) (*WSSource, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	s := &WSSource{
		endpoint: endpoint,
		runID:    runID,
		config:   cfg,
		logger:   logger,
		intents:  make(chan domain.TradeIntent, cfg.Buffer),
		done:     make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop()

	return s, nil
}

// connect establishes the WebSocket connection.
func (s *WSSource) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

// readLoop reads intents until Close, reconnecting with exponential backoff
// on read errors.
func (s *WSSource) readLoop() {
	defer s.wg.Done()

	delay := s.config.ReconnectDelay
	for {
		select {
		case <-s.done:
			return
		default:
		}

		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()
		if conn == nil {
			if !s.reconnect(&delay) {
				return
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}
			s.logger.Warn("feed read failed, reconnecting", zap.Error(err))
			conn.Close()
			s.connMu.Lock()
			s.conn = nil
			s.connMu.Unlock()
			continue
		}
		delay = s.config.ReconnectDelay

		var msg wireIntent
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("feed message malformed", zap.Error(err))
			continue
		}

		intent, err := s.toIntent(msg)
		if err != nil {
			s.logger.Warn("feed intent rejected", zap.Error(err), zap.String("victim_id", msg.VictimID))
			continue
		}

		select {
		case s.intents <- intent:
		default:
			s.logger.Warn("feed buffer full, dropping intent", zap.String("intent_id", intent.IntentID))
		}
	}
}

// reconnect waits out the backoff and redials. Returns false on shutdown.
func (s *WSSource) reconnect(delay *time.Duration) bool {
	select {
	case <-s.done:
		return false
	case <-time.After(*delay):
	}

	*delay *= 2
	if *delay > s.config.MaxReconnectDelay {
		*delay = s.config.MaxReconnectDelay
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.connect(ctx); err != nil {
		s.logger.Warn("feed reconnect failed", zap.Error(err))
		return true
	}

	s.logger.Info("feed reconnected", zap.String("endpoint", s.endpoint))
	return true
}

// toIntent validates and converts one wire message.
func (s *WSSource) toIntent(msg wireIntent) (domain.TradeIntent, error) {
	if msg.VictimID == "" {
		return domain.TradeIntent{}, fmt.Errorf("missing victim_id")
	}

	amount, err := decimal.NewFromString(msg.AmountIn)
	if err != nil || amount.Sign() <= 0 {
		return domain.TradeIntent{}, fmt.Errorf("bad amount_in %q", msg.AmountIn)
	}
	gas, err := decimal.NewFromString(msg.GasPriceGwei)
	if err != nil || gas.Sign() < 0 {
		return domain.TradeIntent{}, fmt.Errorf("bad gas_price_gwei %q", msg.GasPriceGwei)
	}

	var dir domain.Direction
	switch msg.Direction {
	case "sell0":
		dir = domain.Sell0
	case "sell1":
		dir = domain.Sell1
	default:
		return domain.TradeIntent{}, fmt.Errorf("bad direction %q", msg.Direction)
	}

	return domain.TradeIntent{
		AgentID:        msg.VictimID,
		Profile:        domain.VictimProfile(msg.Profile),
		Direction:      dir,
		AmountIn:       amount,
		MaxSlippageBps: msg.MaxSlippageBps,
		GasPriceGwei:   gas,
	}, nil
}

// Next drains the buffered intents for this round. Intent IDs are assigned
// here because the round number is part of the ID.
func (s *WSSource) Next(ctx context.Context, round int64) ([]domain.TradeIntent, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("source closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []domain.TradeIntent
	for {
		select {
		case intent := <-s.intents:
			intent.SubmittedAtRound = round
			intent.IntentID = idhash.ComputeWireIntentID(s.runID, round, intent.AgentID,
				intent.Direction.String(), intent.AmountIn.String(), s.seq)
			s.seq++
			out = append(out, intent)
		default:
			return out, nil
		}
	}
}

// Close shuts the reader down and closes the connection.
func (s *WSSource) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	s.wg.Wait()
	return nil
}

// Compile-time interface check.
var _ IntentSource = (*WSSource)(nil)
