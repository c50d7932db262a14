// Package tally counts vote responses and resolves quorum.
// Nothing here touches storage; results are computed on every read.
package tally

import (
	"group_fund/internal/domain" // Importing domain models

	"github.com/shopspring/decimal" // Decimal amounts
)

// OptionCount is the number of responses for one option.
type OptionCount struct {
	Option string `json:"option"`
	Count  int    `json:"count"`
}

// Counts holds one entry per declared option, in declaration order.
type Counts []OptionCount

// Count initializes every option to zero and increments per response choice.
// Choices outside options are ignored. Duplicate options are counted once.
func Count(options []string, responses []domain.VoteResponse) Counts {
	counts := make(Counts, 0, len(options))
	index := make(map[string]int, len(options))
	for _, opt := range options {
		if _, dup := index[opt]; dup {
			continue
		}
		index[opt] = len(counts)
		counts = append(counts, OptionCount{Option: opt})
	}
	for _, r := range responses {
		if i, ok := index[r.Choice]; ok {
			counts[i].Count++
		}
	}
	return counts
}

// Total is the number of counted responses.
func (c Counts) Total() int {
	total := 0
	for _, oc := range c {
		total += oc.Count
	}
	return total
}

// Map returns the counts keyed by option.
func (c Counts) Map() map[string]int {
	m := make(map[string]int, len(c))
	for _, oc := range c {
		m[oc.Option] = oc.Count
	}
	return m
}

// Leader returns the first option holding the maximum count and whether
// another option shares that maximum. With no votes it returns "", 0, false.
func Leader(c Counts) (option string, count int, tied bool) {
	for _, oc := range c {
		switch {
		case oc.Count > count:
			option, count, tied = oc.Option, oc.Count, false
		case oc.Count == count && count > 0:
			tied = true
		}
	}
	return option, count, tied
}

// HasPassed reports whether the leading option's share of all votes is at
// least requiredPercentage. No votes never passes.
func HasPassed(requiredPercentage float64, c Counts) bool {
	total := c.Total()
	if total == 0 {
		return false
	}
	_, top, _ := Leader(c)
	// top/total*100 >= required, kept exact by cross-multiplying.
	share := decimal.NewFromInt(int64(top) * 100)
	need := decimal.NewFromFloat(requiredPercentage).Mul(decimal.NewFromInt(int64(total)))
	return share.GreaterThanOrEqual(need)
}

// Percentage is the leading option's share of all votes, 0 without votes.
func Percentage(c Counts) float64 {
	total := c.Total()
	if total == 0 {
		return 0
	}
	_, top, _ := Leader(c)
	pct, _ := decimal.NewFromInt(int64(top) * 100).Div(decimal.NewFromInt(int64(total))).Float64()
	return pct
}
