package calendar

import (
	"fmt"
	"time"

	"github.com/hay-kot/daygap/internal/core/prefs"
	"github.com/hay-kot/daygap/internal/core/timeutil"
)

// DedupeDecision records one collapse of mirrored blocks, naming the kept
// identity and the dropped ones. Decisions are persisted for auditability.
type DedupeDecision struct {
	Date      timeutil.Date    `json:"date"`
	Start     timeutil.Minutes `json:"start"`
	End       timeutil.Minutes `json:"end"`
	KeptUID   string           `json:"kept_uid"`
	KeptFrom  Source           `json:"kept_from"`
	Dropped   []string         `json:"dropped"`
	Reason    string           `json:"reason"`
	DecidedAt time.Time        `json:"decided_at"`
}

type dedupeKey struct {
	date  timeutil.Date
	start timeutil.Minutes
	end   timeutil.Minutes
}

// DeduplicateEvents collapses mirrored busy blocks from multiple calendar
// sources. Identity is the exact (date, start, end) triple; no fuzzy matching
// is attempted, so near-duplicates differing by seconds or end-exclusivity
// conventions pass through untouched. Input order determines "first member"
// tie-breaking. Singleton groups pass through unchanged.
func DeduplicateEvents(blocks []BusyBlock, strategy prefs.DedupeStrategy) ([]BusyBlock, []DedupeDecision) {
	if strategy == prefs.DedupeNone {
		return blocks, nil
	}

	groups := make(map[dedupeKey][]BusyBlock)
	var order []dedupeKey
	for _, b := range blocks {
		key := dedupeKey{date: b.Date, start: b.Start, end: b.End}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], b)
	}

	kept := make([]BusyBlock, 0, len(order))
	var decisions []DedupeDecision

	for _, key := range order {
		group := groups[key]
		if len(group) == 1 {
			kept = append(kept, group[0])
			continue
		}

		winnerIdx := pickWinner(group, strategy)
		winner := group[winnerIdx]
		kept = append(kept, winner)

		decision := DedupeDecision{
			Date:      key.date,
			Start:     key.start,
			End:       key.end,
			KeptUID:   winner.UID,
			KeptFrom:  winner.Source,
			Reason:    string(strategy),
			DecidedAt: time.Now(),
		}
		for i, b := range group {
			if i == winnerIdx {
				continue
			}
			decision.Dropped = append(decision.Dropped, fmt.Sprintf("%s/%s", b.Source, b.UID))
		}
		decisions = append(decisions, decision)
	}

	return kept, decisions
}

// pickWinner selects the index of the representative block for a duplicate
// group.
func pickWinner(group []BusyBlock, strategy prefs.DedupeStrategy) int {
	switch strategy {
	case prefs.DedupePreferGoogle:
		for i, b := range group {
			if b.Source == SourceGoogle {
				return i
			}
		}
	case prefs.DedupePreferDevice:
		for i, b := range group {
			if b.Source == SourceDevice {
				return i
			}
		}
	default: // auto: first member that is neither free nor tentative
		for i, b := range group {
			if b.Transparency != TransparencyFree && b.Status != StatusTentative {
				return i
			}
		}
	}
	return 0
}
