package parlay

import (
	"container/heap"
	"fmt"
	"math/bits"

	"github.com/Fawl3r/parlay-gorilla/internal/models"
)

// MaxCoverageLegs bounds scenario enumeration: 2^N scenarios are walked, so
// requests above this are rejected outright.
const MaxCoverageLegs = 20

// rankedMask is a scenario bitmask with its joint probability.
type rankedMask struct {
	mask uint32
	prob float64
}

// maskHeap is a min-heap of rankedMask, used as a bounded top-K container:
// push while under capacity, then replace the minimum only when beaten.
type maskHeap []rankedMask

func (h maskHeap) Len() int            { return len(h) }
func (h maskHeap) Less(i, j int) bool  { return h[i].prob < h[j].prob }
func (h maskHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maskHeap) Push(x interface{}) { *h = append(*h, x.(rankedMask)) }
func (h *maskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// topK keeps the K highest-probability masks seen so far.
type topK struct {
	h   maskHeap
	cap int
}

func newTopK(k int) *topK {
	t := &topK{h: make(maskHeap, 0, k), cap: k}
	heap.Init(&t.h)
	return t
}

func (t *topK) offer(m rankedMask) {
	if t.cap <= 0 {
		return
	}
	if len(t.h) < t.cap {
		heap.Push(&t.h, m)
		return
	}
	if m.prob > t.h[0].prob {
		t.h[0] = m
		heap.Fix(&t.h, 0)
	}
}

// drain returns the retained masks ordered by probability descending.
func (t *topK) drain() []rankedMask {
	out := make([]rankedMask, len(t.h))
	for i := len(t.h) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&t.h).(rankedMask)
	}
	return out
}

// CoverageBuilder enumerates flip scenarios and round-robin sub-parlays for
// a base selection, keeping only the top-K of each by joint probability.
type CoverageBuilder struct {
	flipper    *Flipper
	calculator *ProbabilityCalculator
}

// NewCoverageBuilder creates a CoverageBuilder.
func NewCoverageBuilder(flipper *Flipper, calculator *ProbabilityCalculator) *CoverageBuilder {
	return &CoverageBuilder{flipper: flipper, calculator: calculator}
}

// Build enumerates all 2^N flip scenarios and all size-r round robins over
// the base legs, returning the top scenarioMax and roundRobinMax tickets.
func (b *CoverageBuilder) Build(legs []models.Leg, scenarioMax, roundRobinSize, roundRobinMax int) (*models.CoveragePack, error) {
	n := len(legs)
	if n == 0 {
		return nil, models.NewValidationError("legs", "coverage requires at least one leg")
	}
	if n > MaxCoverageLegs {
		return nil, models.NewValidationError("legs",
			fmt.Sprintf("coverage enumeration is bounded to %d legs, got %d", MaxCoverageLegs, n))
	}
	if roundRobinSize < 2 || roundRobinSize > n {
		roundRobinSize = defaultRoundRobinSize(n)
	}

	flipped := make([]models.Leg, n)
	for i := range legs {
		f, err := b.flipper.Flip(legs[i])
		if err != nil {
			return nil, err
		}
		flipped[i] = f
	}

	pack := &models.CoveragePack{
		TotalScenarios: 1 << uint(n),
		ByUpsetCount:   upsetCountDistribution(n),
	}

	pack.ScenarioTickets = b.scenarioTickets(legs, flipped, scenarioMax)
	pack.RoundRobinTickets = b.roundRobinTickets(legs, roundRobinSize, roundRobinMax)

	return pack, nil
}

// scenarioTickets ranks every flip bitmask by the product of the chosen
// per-leg probabilities, then materializes only the winners.
func (b *CoverageBuilder) scenarioTickets(legs, flipped []models.Leg, max int) []models.CoverageTicket {
	n := len(legs)
	top := newTopK(max)

	total := uint32(1) << uint(n)
	for mask := uint32(0); mask < total; mask++ {
		prob := 1.0
		for i := 0; i < n; i++ {
			if mask&(1<<uint(i)) != 0 {
				prob *= flipped[i].ModelProbability
			} else {
				prob *= legs[i].ModelProbability
			}
		}
		top.offer(rankedMask{mask: mask, prob: prob})
	}

	ranked := top.drain()
	tickets := make([]models.CoverageTicket, 0, len(ranked))
	for _, rm := range ranked {
		ticketLegs := make([]models.Leg, n)
		for i := 0; i < n; i++ {
			if rm.mask&(1<<uint(i)) != 0 {
				ticketLegs[i] = flipped[i]
			} else {
				ticketLegs[i] = legs[i]
			}
		}
		ticket := b.analyzeTicket(ticketLegs)
		ticket.FlippedMask = rm.mask
		ticket.FlippedCount = bits.OnesCount32(rm.mask)
		tickets = append(tickets, ticket)
	}
	return tickets
}

// roundRobinTickets ranks every size-r subset of the original legs.
func (b *CoverageBuilder) roundRobinTickets(legs []models.Leg, r, max int) []models.CoverageTicket {
	n := len(legs)
	top := newTopK(max)

	total := uint32(1) << uint(n)
	for mask := uint32(0); mask < total; mask++ {
		if bits.OnesCount32(mask) != r {
			continue
		}
		prob := 1.0
		for i := 0; i < n; i++ {
			if mask&(1<<uint(i)) != 0 {
				prob *= legs[i].ModelProbability
			}
		}
		top.offer(rankedMask{mask: mask, prob: prob})
	}

	ranked := top.drain()
	tickets := make([]models.CoverageTicket, 0, len(ranked))
	for _, rm := range ranked {
		subset := make([]models.Leg, 0, r)
		for i := 0; i < n; i++ {
			if rm.mask&(1<<uint(i)) != 0 {
				subset = append(subset, legs[i])
			}
		}
		ticket := b.analyzeTicket(subset)
		ticket.FlippedMask = 0
		tickets = append(tickets, ticket)
	}
	return tickets
}

// analyzeTicket derives the full parlay-shaped analysis for a ticket from
// already-known leg probabilities; no external calls are made.
func (b *CoverageBuilder) analyzeTicket(legs []models.Leg) models.CoverageTicket {
	ticket := models.CoverageTicket{
		Legs:                legs,
		CombinedProbability: b.calculator.Calculate(legs, models.ProfileBalanced),
		CombinedDecimalOdds: models.CombinedDecimal(legs),
		OverallConfidence:   models.AverageConfidence(legs),
	}

	for i := range legs {
		if ticket.WeakestLeg == nil || legs[i].ModelProbability < ticket.WeakestLeg.ModelProbability {
			leg := legs[i]
			ticket.WeakestLeg = &leg
		}
		if ticket.StrongestLeg == nil || legs[i].ModelProbability > ticket.StrongestLeg.ModelProbability {
			leg := legs[i]
			ticket.StrongestLeg = &leg
		}
	}
	return ticket
}

// upsetCountDistribution returns C(n, k) for every k in 0..n; the counts sum
// to 2^n.
func upsetCountDistribution(n int) []uint64 {
	counts := make([]uint64, n+1)
	counts[0] = 1
	for k := 1; k <= n; k++ {
		counts[k] = counts[k-1] * uint64(n-k+1) / uint64(k)
	}
	return counts
}

func defaultRoundRobinSize(n int) int {
	if n <= 2 {
		return 2
	}
	return n - 1
}
