// Package auction turns one round's intents and bids into a total execution
// order. Resolution is pure and deterministic: identical inputs always
// produce an identical ResolvedOrder.
package auction

import (
	"sort"

	"github.com/shopspring/decimal"

	"mev-competition-lab/internal/domain"
)

// submission is one ranked participant: a victim intent competing with its
// plain gas price, or an agent bid competing with its priority fee.
type submission struct {
	fee     decimal.Decimal
	latency int64
	agentID string

	intent *domain.TradeIntent
	bid    *domain.Bid
}

// less implements the ordering rule: priority fee descending, effective
// latency ascending, agent ID ascending as the stable tie-break.
func (s submission) less(o submission) bool {
	if c := s.fee.Cmp(o.fee); c != 0 {
		return c > 0
	}
	if s.latency != o.latency {
		return s.latency < o.latency
	}
	return s.agentID < o.agentID
}

func intentSubmission(it *domain.TradeIntent) submission {
	// Victims pay plain gas and traverse no MEV pipeline, so their
	// latency key is zero.
	return submission{fee: it.GasPriceGwei, agentID: it.AgentID, intent: it}
}

func bidSubmission(b *domain.Bid) submission {
	return submission{fee: b.PriorityFeeGwei, latency: b.DetectedAtLatencyNs, agentID: b.AgentID, bid: b}
}

// Resolve ranks the round's submissions and emits the total execution
// order. Sandwich legs are atomic: a front leg that cannot precede its
// victim drops the back leg with it. Losing submissions are recorded as
// failed attempts, never silently dropped.
func Resolve(round int64, intents []domain.TradeIntent, bids []domain.Bid, flags domain.PolicyFlags) domain.ResolvedOrder {
	out := domain.ResolvedOrder{Round: round}

	victims := make([]submission, 0, len(intents))
	for i := range intents {
		victims = append(victims, intentSubmission(&intents[i]))
	}
	sort.Slice(victims, func(i, j int) bool { return victims[i].less(victims[j]) })

	victimByID := make(map[string]submission, len(victims))
	for _, v := range victims {
		victimByID[v.intent.IntentID] = v
	}

	sandwiches := make([]submission, 0, len(bids))
	correctives := make([]submission, 0, len(bids))
	for i := range bids {
		b := &bids[i]
		if b.Kind == domain.BidBackrun {
			correctives = append(correctives, bidSubmission(b))
			continue
		}
		if flags.Ordering == domain.PolicyBackrunOnly {
			out.Failed = append(out.Failed, failed(b, domain.FailPolicy))
			continue
		}
		sandwiches = append(sandwiches, bidSubmission(b))
	}
	sort.Slice(sandwiches, func(i, j int) bool { return sandwiches[i].less(sandwiches[j]) })
	sort.Slice(correctives, func(i, j int) bool { return correctives[i].less(correctives[j]) })

	// At most one sandwich wins per victim: the best-ranked bid that can
	// still outrank its target. Everyone else is recorded as failed.
	winners := make(map[string]*domain.Bid, len(victims))
	for _, s := range sandwiches {
		victim, ok := victimByID[s.bid.IntentRef]
		if !ok {
			out.Failed = append(out.Failed, failed(s.bid, domain.FailNoPosition))
			continue
		}
		if !s.less(victim) {
			// Out-priced or out-latencied: the front leg cannot land
			// before the victim, so the whole sandwich unwinds.
			out.Failed = append(out.Failed, failed(s.bid, domain.FailNoPosition))
			continue
		}
		if _, taken := winners[s.bid.IntentRef]; taken {
			out.Failed = append(out.Failed, failed(s.bid, domain.FailOutbid))
			continue
		}
		winners[s.bid.IntentRef] = s.bid
	}

	// Victim blocks in rank order. A winning sandwich wraps its victim:
	// front leg immediately before, back leg immediately after.
	idx := 0
	for _, v := range victims {
		win := winners[v.intent.IntentID]
		if win != nil {
			out.Items = append(out.Items, domain.OrderItem{
				ExecutionIndex: idx, Kind: domain.ItemFrontrun, Bid: win,
			})
			idx++
		}
		out.Items = append(out.Items, domain.OrderItem{
			ExecutionIndex: idx, Kind: domain.ItemVictim, Intent: v.intent,
		})
		idx++
		if win != nil {
			if flags.FrontrunOnly || win.FrontrunOnly {
				out.Failed = append(out.Failed, failed(win, domain.FailOrderingConflict))
			} else {
				out.Items = append(out.Items, domain.OrderItem{
					ExecutionIndex: idx, Kind: domain.ItemBackrun, Bid: win,
				})
				idx++
			}
		}
	}

	// Corrective bids carry no victim dependency beyond following the
	// round's intents; they execute last, in rank order.
	for _, s := range correctives {
		out.Items = append(out.Items, domain.OrderItem{
			ExecutionIndex: idx, Kind: domain.ItemCorrective, Bid: s.bid,
		})
		idx++
	}

	return out
}

func failed(b *domain.Bid, reason domain.FailReason) domain.FailedAttempt {
	return domain.FailedAttempt{
		AgentID:   b.AgentID,
		BidID:     b.BidID,
		IntentRef: b.IntentRef,
		Reason:    reason,
	}
}
