package duty

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/trezcool/coffeeduty/core/roster"
)

// BootstrapDays stands in for "days since last auto selection" when a person was never
// auto-selected, so newcomers start with a high weight.
const BootstrapDays = 10

// Uniform yields values in [0, 1). *rand.Rand satisfies it.
type Uniform interface {
	Float64() float64
}

type globalUniform struct{}

func (globalUniform) Float64() float64 { return rand.Float64() }

// PersonStats are the fairness statistics of one eligible person.
// Only auto selections count.
type PersonStats struct {
	Person      roster.Person `json:"person"`
	Total       int           `json:"total"`
	Last        *time.Time    `json:"last,omitempty"`
	DaysSince   int           `json:"days_since"`
	Weight      float64       `json:"weight"`
	Probability float64       `json:"probability"` // percent, 1 decimal; display only
}

// Weight grows with the days since the last auto selection and shrinks with the number
// of auto selections.
func Weight(daysSince, total int) float64 {
	return float64(daysSince+1) / float64(total+1)
}

// DaysBetween returns the whole days elapsed from last to now, never negative.
func DaysBetween(last, now time.Time) int {
	d := now.Sub(last)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// ComputeStats computes the weight and display probability of every person in people
// from the auto selections found in history.
func ComputeStats(people []roster.Person, history []Selection, now time.Time) []PersonStats {
	totals := make(map[string]int, len(people))
	lasts := make(map[string]time.Time, len(people))
	for _, sel := range history {
		if sel.Source != SourceAuto {
			continue
		}
		totals[sel.PersonID]++
		if last, ok := lasts[sel.PersonID]; !ok || sel.SelectedAt.After(last) {
			lasts[sel.PersonID] = sel.SelectedAt
		}
	}

	stats := make([]PersonStats, 0, len(people))
	for _, p := range people {
		st := PersonStats{
			Person:    p,
			Total:     totals[p.ID],
			DaysSince: BootstrapDays,
		}
		if last, ok := lasts[p.ID]; ok {
			last := last
			st.Last = &last
			st.DaysSince = DaysBetween(last, now)
		}
		st.Weight = Weight(st.DaysSince, st.Total)
		stats = append(stats, st)
	}

	sort.SliceStable(stats, func(i, j int) bool {
		a, b := stats[i].Person, stats[j].Person
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		return a.ID < b.ID
	})

	normalize(stats)
	return stats
}

func normalize(stats []PersonStats) {
	sum := totalWeight(stats)
	for i := range stats {
		if sum <= 0 || stats[i].Weight <= 0 {
			stats[i].Probability = 0
			continue
		}
		stats[i].Probability = math.Round(stats[i].Weight/sum*1000) / 10
	}
}

func totalWeight(stats []PersonStats) float64 {
	var sum float64
	for _, st := range stats {
		if st.Weight > 0 {
			sum += st.Weight
		}
	}
	return sum
}

// Draw picks one person with a probability proportional to their weight.
// It returns ErrNoEligible when stats is empty or all weights are zero.
func Draw(stats []PersonStats, rnd Uniform) (PersonStats, error) {
	sum := totalWeight(stats)
	if len(stats) == 0 || sum <= 0 {
		return PersonStats{}, ErrNoEligible
	}
	if rnd == nil {
		rnd = globalUniform{}
	}

	r := rnd.Float64() * sum
	var cum float64
	last := -1
	for i, st := range stats {
		if st.Weight <= 0 {
			continue
		}
		cum += st.Weight
		if r < cum {
			return st, nil
		}
		last = i
	}
	// r can reach sum through rounding
	return stats[last], nil
}
