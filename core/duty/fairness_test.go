package duty

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coffeeduty/core/roster"
)

type fixedUniform float64

func (u fixedUniform) Float64() float64 { return float64(u) }

var fairnessNow = time.Date(2024, 3, 11, 8, 15, 0, 0, time.UTC)

func person(id, first, last string) roster.Person {
	return roster.Person{ID: id, FirstName: first, LastName: last, IsPresent: true, Active: true}
}

func autoSel(personID string, at time.Time) Selection {
	return Selection{PersonID: personID, SelectedAt: at, Source: SourceAuto}
}

func TestWeight(t *testing.T) {
	tests := []struct {
		name      string
		daysSince int
		total     int
		want      float64
	}{
		{name: "never selected", daysSince: BootstrapDays, total: 0, want: 11},
		{name: "selected today once", daysSince: 0, total: 1, want: 0.5},
		{name: "five days five times", daysSince: 5, total: 5, want: 1},
		{name: "selected today five times", daysSince: 0, total: 5, want: 1.0 / 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Weight(tt.daysSince, tt.total), 1e-9)
		})
	}
}

func TestWeight_Monotonic(t *testing.T) {
	for total := 0; total < 10; total++ {
		for days := 0; days < 30; days++ {
			assert.Greater(t, Weight(days+1, total), Weight(days, total))
			assert.Less(t, Weight(days, total+1), Weight(days, total))
		}
	}
}

func TestComputeStats(t *testing.T) {
	a := person("a", "Ana", "Novak")
	b := person("b", "Bojan", "Kranjc")
	history := make([]Selection, 0, 6)
	for i := 0; i < 5; i++ {
		history = append(history, autoSel(b.ID, fairnessNow.Add(-time.Duration(i)*24*time.Hour-time.Hour)))
	}
	// manual rows never count
	history = append(history, Selection{PersonID: a.ID, SelectedAt: fairnessNow, Source: SourceManual})

	stats := ComputeStats([]roster.Person{a, b}, history, fairnessNow)
	require.Len(t, stats, 2)

	// ordered by last name
	assert.Equal(t, b.ID, stats[0].Person.ID)
	assert.Equal(t, a.ID, stats[1].Person.ID)

	sb, sa := stats[0], stats[1]
	assert.Equal(t, 0, sa.Total)
	assert.Nil(t, sa.Last)
	assert.Equal(t, BootstrapDays, sa.DaysSince)
	assert.InDelta(t, 11, sa.Weight, 1e-9)
	assert.InDelta(t, 98.5, sa.Probability, 1e-9)

	assert.Equal(t, 5, sb.Total)
	require.NotNil(t, sb.Last)
	assert.Equal(t, 0, sb.DaysSince)
	assert.InDelta(t, 1.0/6, sb.Weight, 1e-9)
	assert.InDelta(t, 1.5, sb.Probability, 1e-9)
}

func TestComputeStats_ProbabilitiesSumTo100(t *testing.T) {
	people := []roster.Person{
		person("1", "Ana", "Novak"),
		person("2", "Bojan", "Kranjc"),
		person("3", "Cene", "Zupan"),
		person("4", "Dora", "Horvat"),
	}
	history := []Selection{
		autoSel("1", fairnessNow.AddDate(0, 0, -3)),
		autoSel("1", fairnessNow.AddDate(0, 0, -9)),
		autoSel("2", fairnessNow.AddDate(0, 0, -1)),
		autoSel("3", fairnessNow.AddDate(0, 0, -20)),
	}
	var sum float64
	for _, st := range ComputeStats(people, history, fairnessNow) {
		assert.Greater(t, st.Weight, 0.0)
		sum += st.Probability
	}
	assert.InDelta(t, 100, sum, 0.1*float64(len(people)))
}

func TestComputeStats_FutureSelectionClamped(t *testing.T) {
	p := person("a", "Ana", "Novak")
	stats := ComputeStats([]roster.Person{p}, []Selection{autoSel(p.ID, fairnessNow.Add(time.Hour))}, fairnessNow)
	require.Len(t, stats, 1)
	assert.Equal(t, 0, stats[0].DaysSince)
	assert.Equal(t, 100.0, stats[0].Probability)
}

func TestDraw(t *testing.T) {
	a := person("a", "Ana", "Novak")
	b := person("b", "Bojan", "Kranjc")
	stats := []PersonStats{
		{Person: a, Weight: 3},
		{Person: b, Weight: 1},
	}

	tests := []struct {
		name string
		u    float64
		want string
	}{
		{name: "start", u: 0, want: "a"},
		{name: "inside first", u: 0.74, want: "a"},
		{name: "boundary", u: 0.75, want: "b"},
		{name: "end", u: 0.999999, want: "b"},
		{name: "overshoot", u: 1, want: "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Draw(stats, fixedUniform(tt.u))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Person.ID)
		})
	}
}

func TestDraw_SkipsZeroWeights(t *testing.T) {
	stats := []PersonStats{
		{Person: person("a", "Ana", "Novak"), Weight: 0},
		{Person: person("b", "Bojan", "Kranjc"), Weight: 2},
		{Person: person("c", "Cene", "Zupan"), Weight: 0},
	}
	for _, u := range []float64{0, 0.5, 1} {
		got, err := Draw(stats, fixedUniform(u))
		require.NoError(t, err)
		assert.Equal(t, "b", got.Person.ID)
	}
}

func TestDraw_NoEligible(t *testing.T) {
	_, err := Draw(nil, fixedUniform(0.5))
	assert.ErrorIs(t, err, ErrNoEligible)

	_, err = Draw([]PersonStats{{Person: person("a", "Ana", "Novak"), Weight: 0}}, fixedUniform(0.5))
	assert.ErrorIs(t, err, ErrNoEligible)
}

func TestDraw_Distribution(t *testing.T) {
	a := person("a", "Ana", "Novak")
	b := person("b", "Bojan", "Kranjc")
	stats := []PersonStats{{Person: a, Weight: 11}, {Person: b, Weight: 1.0 / 6}}

	const n = 10000
	var hits int
	for i := 0; i < n; i++ {
		got, err := Draw(stats, fixedUniform(float64(i)/n))
		require.NoError(t, err)
		if got.Person.ID == a.ID {
			hits++
		}
	}
	assert.InDelta(t, 0.985, float64(hits)/n, 0.002)
}
