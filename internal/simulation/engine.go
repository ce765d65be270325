// Package simulation runs the round loop: victim intents in, detector bids,
// auction resolution, pool application, agent settlement, ledger appends.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mev-competition-lab/internal/auction"
	"mev-competition-lab/internal/chain"
	"mev-competition-lab/internal/detector"
	"mev-competition-lab/internal/domain"
	"mev-competition-lab/internal/feed"
	"mev-competition-lab/internal/idhash"
	"mev-competition-lab/internal/latency"
	"mev-competition-lab/internal/pool"
	"mev-competition-lab/internal/storage"
)

// Engine errors
var (
	ErrNoPool   = errors.New("simulation requires a pool machine")
	ErrNoSource = errors.New("simulation requires an intent source")
	ErrNoAgents = errors.New("simulation requires at least one agent")
)

// Adaptive bid-percentage bounds and learning step.
const (
	minBidPercentage  = 30.0
	maxBidPercentage  = 90.0
	bidPercentageStep = 5.0
)

// recentOutcomeWindow bounds AgentState.RecentOutcomes.
const recentOutcomeWindow = 20

// agentSlot pairs one agent's immutable wiring with its mutable state.
type agentSlot struct {
	cfg   domain.StrategyConfig
	det   detector.Detector
	prof  latency.Profile
	state *domain.AgentState
}

// Engine executes rounds against a single pool. Not safe for concurrent
// use: one round at a time, from one goroutine.
type Engine struct {
	runID   string
	runSeed int64
	flags   domain.PolicyFlags

	machine *pool.Machine
	poolCfg domain.PoolConfig
	source  feed.IntentSource
	agents  []*agentSlot
	logger  *zap.Logger

	// submitter annotates landed results with chain confirmation
	// statuses. Optional; economics never depend on it.
	submitter chain.SubmissionAdapter

	// Ledger stores; any of them may be nil to skip persistence.
	resultStore   storage.TradeResultStore
	roundStore    storage.RoundStore
	snapshotStore storage.PoolSnapshotStore
}

// Options contains configuration for creating an Engine.
type Options struct {
	RunID   string
	RunSeed int64
	Flags   domain.PolicyFlags

	Machine    *pool.Machine
	PoolConfig domain.PoolConfig
	Source     feed.IntentSource
	Agents     []domain.StrategyConfig
	Logger     *zap.Logger
	Submitter  chain.SubmissionAdapter

	TradeResultStore storage.TradeResultStore
	RoundStore       storage.RoundStore
	SnapshotStore    storage.PoolSnapshotStore
}

// New wires the engine: one detector and one latency profile per agent,
// agent states at their initial balances.
func New(opts Options) (*Engine, error) {
	if opts.Machine == nil {
		return nil, ErrNoPool
	}
	if opts.Source == nil {
		return nil, ErrNoSource
	}
	if len(opts.Agents) == 0 {
		return nil, ErrNoAgents
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	agents := make([]*agentSlot, 0, len(opts.Agents))
	for _, cfg := range opts.Agents {
		det, err := detector.FromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", cfg.AgentID, err)
		}
		prof, err := latency.ByName(cfg.LatencyProfile)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", cfg.AgentID, err)
		}
		agents = append(agents, &agentSlot{
			cfg:  cfg,
			det:  det,
			prof: prof,
			state: &domain.AgentState{
				AgentID:       cfg.AgentID,
				Kind:          cfg.Kind,
				Balance0:      cfg.InitialBalance0,
				Balance1:      cfg.InitialBalance1,
				BidPercentage: cfg.BidPercentage,
			},
		})
	}

	// Fixed agent order keeps bid collection deterministic.
	sort.Slice(agents, func(i, j int) bool { return agents[i].cfg.AgentID < agents[j].cfg.AgentID })

	return &Engine{
		runID:         opts.RunID,
		runSeed:       opts.RunSeed,
		flags:         opts.Flags,
		machine:       opts.Machine,
		poolCfg:       opts.PoolConfig,
		source:        opts.Source,
		agents:        agents,
		logger:        opts.Logger,
		submitter:     opts.Submitter,
		resultStore:   opts.TradeResultStore,
		roundStore:    opts.RoundStore,
		snapshotStore: opts.SnapshotStore,
	}, nil
}

// RoundResult is everything one committed round produced.
type RoundResult struct {
	Round    int64
	Intents  []domain.TradeIntent
	Bids     []domain.Bid
	Order    domain.ResolvedOrder
	Results  []domain.TradeResult
	Snapshot domain.PoolState
}

// AgentStates returns copies of the live agent records, sorted by agent ID.
func (e *Engine) AgentStates() []domain.AgentState {
	out := make([]domain.AgentState, 0, len(e.agents))
	for _, slot := range e.agents {
		s := *slot.state
		s.RecentOutcomes = append([]decimal.Decimal(nil), slot.state.RecentOutcomes...)
		out = append(out, s)
	}
	return out
}

// AgentConfigs returns the engine's agent configurations, sorted by agent ID.
func (e *Engine) AgentConfigs() []domain.StrategyConfig {
	out := make([]domain.StrategyConfig, 0, len(e.agents))
	for _, slot := range e.agents {
		out = append(out, slot.cfg)
	}
	return out
}

// PoolState returns the current pool state.
func (e *Engine) PoolState() domain.PoolState {
	return e.machine.State()
}

// RunRound executes one round end to end. The pool snapshot every detector
// sees is the committed state from the previous round; evaluation runs one
// goroutine per agent against that immutable copy.
func (e *Engine) RunRound(ctx context.Context, round int64) (*RoundResult, error) {
	snapshot := e.machine.State()

	intents, err := e.source.Next(ctx, round)
	if err != nil {
		return nil, fmt.Errorf("round %d intents: %w", round, err)
	}

	bids := e.evaluateAgents(ctx, round, snapshot, intents)

	order := auction.Resolve(round, intents, bids, e.flags)

	results, err := e.machine.ApplyRound(e.runID, order)
	if err != nil {
		return nil, fmt.Errorf("round %d apply: %w", round, err)
	}

	e.settle(round, bids, order, results)
	e.annotateSubmissions(ctx, order, results)

	res := &RoundResult{
		Round:    round,
		Intents:  intents,
		Bids:     bids,
		Order:    order,
		Results:  results,
		Snapshot: e.machine.State(),
	}

	if err := e.persist(ctx, res); err != nil {
		return nil, fmt.Errorf("round %d persist: %w", round, err)
	}

	e.logger.Debug("round committed",
		zap.Int64("round", round),
		zap.Int("intents", len(intents)),
		zap.Int("bids", len(bids)),
		zap.Int("items", len(order.Items)),
		zap.Int("failed", len(order.Failed)),
	)

	return res, nil
}

// evaluateAgents runs every detector in parallel against the immutable
// snapshot. Bids land in a per-agent slot, so the collected order depends
// only on agent IDs, never on goroutine scheduling.
func (e *Engine) evaluateAgents(ctx context.Context, round int64, snapshot domain.PoolState, intents []domain.TradeIntent) []domain.Bid {
	slots := make([]*domain.Bid, len(e.agents))

	var wg sync.WaitGroup
	for i, slot := range e.agents {
		wg.Add(1)
		go func(i int, slot *agentSlot) {
			defer wg.Done()
			seed := idhash.DeriveSeed(e.runSeed, round, slot.cfg.AgentID)
			lat := latency.Sample(slot.prof, seed)
			slots[i] = e.bestBid(ctx, round, slot, snapshot, intents, lat)
		}(i, slot)
	}
	wg.Wait()

	var bids []domain.Bid
	for _, b := range slots {
		if b != nil {
			bids = append(bids, *b)
		}
	}
	return bids
}

// bestBid evaluates the agent against each intent and keeps the most
// profitable bid; at most one bid per agent per round. With no victim flow
// the detector still runs once, which is how corrective agents bid on
// quiet rounds.
func (e *Engine) bestBid(ctx context.Context, round int64, slot *agentSlot, snapshot domain.PoolState, intents []domain.TradeIntent, lat latency.AgentLatency) *domain.Bid {
	input := detector.Input{
		RunID:      e.runID,
		Round:      round,
		Agent:      slot.state,
		Config:     slot.cfg,
		Pool:       snapshot,
		PoolConfig: e.poolCfg,
		Latency:    lat,
	}

	if len(intents) == 0 {
		bid, err := slot.det.Evaluate(ctx, &input)
		if err != nil {
			e.logger.Warn("detector failed", zap.String("agent_id", slot.cfg.AgentID), zap.Error(err))
			return nil
		}
		return bid
	}

	var best *domain.Bid
	for i := range intents {
		in := input
		in.Intent = &intents[i]
		bid, err := slot.det.Evaluate(ctx, &in)
		if err != nil {
			e.logger.Warn("detector failed", zap.String("agent_id", slot.cfg.AgentID), zap.Error(err))
			continue
		}
		if bid == nil {
			continue
		}
		if best == nil || bid.ProjectedProfit.Cmp(best.ProjectedProfit) > 0 {
			best = bid
		}
	}
	return best
}

// settle updates agent balances and statistics from the committed results.
// Strictly post-commit: detectors never see mid-round state.
func (e *Engine) settle(round int64, bids []domain.Bid, order domain.ResolvedOrder, results []domain.TradeResult) {
	byID := make(map[string]*agentSlot, len(e.agents))
	bidBy := make(map[string]*domain.Bid, len(bids))
	for _, slot := range e.agents {
		byID[slot.cfg.AgentID] = slot
	}
	for i := range bids {
		bidBy[bids[i].BidID] = &bids[i]
	}

	// Net profit per bid, accumulated across its legs.
	bidProfit := make(map[string]decimal.Decimal, len(bids))
	bidLanded := make(map[string]bool, len(bids))

	for i := range results {
		res := &results[i]
		slot, ok := byID[res.AgentID]
		if !ok {
			continue // victim item
		}

		// Every landed leg occupies a block slot and burns gas, filled
		// or not.
		gas := slot.cfg.GasCostPerTrade
		slot.state.Balance0 = slot.state.Balance0.Sub(gas)

		if res.Success {
			if res.Direction == domain.Sell0 {
				slot.state.Balance0 = slot.state.Balance0.Sub(res.AmountIn)
				slot.state.Balance1 = slot.state.Balance1.Add(res.AmountOut)
			} else {
				slot.state.Balance1 = slot.state.Balance1.Sub(res.AmountIn)
				slot.state.Balance0 = slot.state.Balance0.Add(res.AmountOut)
			}
		}

		res.GasCost = gas
		bidProfit[res.RefID] = bidProfit[res.RefID].Add(res.Profit).Sub(gas)
		if res.Success {
			bidLanded[res.RefID] = true
		}
	}

	// Per-bid outcome bookkeeping. Bids that lost the auction entirely
	// appear only in order.Failed.
	settledBids := make(map[string]bool, len(bids))
	for bidID, bid := range bidBy {
		if _, landed := bidProfit[bidID]; !landed {
			continue
		}
		slot := byID[bid.AgentID]
		net := bidProfit[bidID]
		e.recordOutcome(slot, net, bidLanded[bidID] && net.Sign() > 0)
		settledBids[bidID] = true
	}

	for _, fail := range order.Failed {
		if settledBids[fail.BidID] {
			// Suppressed back legs are already settled through their
			// executed front leg.
			continue
		}
		slot, ok := byID[fail.AgentID]
		if !ok {
			continue
		}
		e.recordOutcome(slot, decimal.Zero, false)
		settledBids[fail.BidID] = true
	}

	// Agents that produced no bid sat the round out.
	for _, slot := range e.agents {
		if !e.agentBid(slot.cfg.AgentID, bids) {
			slot.state.RoundsSat++
		}
	}
}

// recordOutcome applies one bid's terminal outcome to its agent.
func (e *Engine) recordOutcome(slot *agentSlot, net decimal.Decimal, won bool) {
	st := slot.state
	st.Attempts++
	if won {
		st.Wins++
	} else {
		st.Losses++
	}
	st.CumulativeProfit = st.CumulativeProfit.Add(net)

	st.RecentOutcomes = append(st.RecentOutcomes, net)
	if len(st.RecentOutcomes) > recentOutcomeWindow {
		st.RecentOutcomes = st.RecentOutcomes[len(st.RecentOutcomes)-recentOutcomeWindow:]
	}

	if slot.cfg.Kind == domain.StrategyAdaptive {
		st.BidPercentage = adaptBidPercentage(st.BidPercentage, won)
	}
}

// adaptBidPercentage nudges an adaptive agent's fee aggressiveness: bid
// more of the profit after a loss, keep more after a win. Bounded so the
// agent never bids the whole spread away.
func adaptBidPercentage(current float64, won bool) float64 {
	if won {
		current -= bidPercentageStep
	} else {
		current += bidPercentageStep
	}
	if current < minBidPercentage {
		return minBidPercentage
	}
	if current > maxBidPercentage {
		return maxBidPercentage
	}
	return current
}

func (e *Engine) agentBid(agentID string, bids []domain.Bid) bool {
	for i := range bids {
		if bids[i].AgentID == agentID {
			return true
		}
	}
	return false
}

// annotateSubmissions asks the chain adapter for confirmation statuses. A
// transport failure leaves results pending; the round stands either way.
func (e *Engine) annotateSubmissions(ctx context.Context, order domain.ResolvedOrder, results []domain.TradeResult) {
	if e.submitter == nil || len(results) == 0 {
		return
	}
	statuses, err := e.submitter.Submit(ctx, order, results)
	if err != nil {
		e.logger.Warn("chain submission failed", zap.Int64("round", order.Round), zap.Error(err))
		return
	}
	for i := range results {
		if i < len(statuses) {
			results[i].Submission = statuses[i]
		}
	}
}

// persist appends the round to the ledger stores.
func (e *Engine) persist(ctx context.Context, res *RoundResult) error {
	if e.resultStore != nil && len(res.Results) > 0 {
		ptrs := make([]*domain.TradeResult, len(res.Results))
		for i := range res.Results {
			ptrs[i] = &res.Results[i]
		}
		if err := e.resultStore.InsertBulk(ctx, ptrs); err != nil {
			return fmt.Errorf("insert trade results: %w", err)
		}
	}

	if e.roundStore != nil {
		if err := e.roundStore.Insert(ctx, e.roundRecord(res)); err != nil {
			return fmt.Errorf("insert round record: %w", err)
		}
	}

	if e.snapshotStore != nil {
		snap := &domain.PoolSnapshot{RunID: e.runID, Round: res.Round, State: res.Snapshot}
		if err := e.snapshotStore.InsertBulk(ctx, []*domain.PoolSnapshot{snap}); err != nil {
			return fmt.Errorf("insert pool snapshot: %w", err)
		}
	}

	return nil
}

// roundRecord summarizes one round for the ledger.
func (e *Engine) roundRecord(res *RoundResult) *domain.RoundRecord {
	rec := &domain.RoundRecord{
		RunID:       e.runID,
		Round:       res.Round,
		IntentCount: len(res.Intents),
		BidCount:    len(res.Bids),
		FailedCount: len(res.Order.Failed),
	}

	extracted := decimal.Zero
	var victimSlippage int64
	var victimCount int64
	for i := range res.Results {
		r := &res.Results[i]
		if r.Success {
			rec.ExecutedCount++
		} else {
			rec.FailedCount++
		}
		if r.Profit.Sign() > 0 {
			extracted = extracted.Add(r.Profit)
		}
		if r.Kind == domain.ItemVictim && r.Success {
			victimSlippage += r.SlippageBps
			victimCount++
		}
	}
	rec.ExtractedValue = extracted
	if victimCount > 0 {
		rec.VictimLossBps = victimSlippage / victimCount
	}
	return rec
}
