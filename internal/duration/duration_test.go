package duration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, time.January, 31, 12, 0, 0, 0, time.UTC)

func TestResolveUnits(t *testing.T) {
	cases := []struct {
		name    string
		spec    Spec
		allowed UnitSet
		want    time.Time
	}{
		{"days", Spec{3, Days}, ContributionUnits, time.Date(2026, time.February, 3, 12, 0, 0, 0, time.UTC)},
		{"weeks", Spec{2, Weeks}, ContributionUnits, time.Date(2026, time.February, 14, 12, 0, 0, 0, time.UTC)},
		{"calendar month", Spec{1, Months}, ContributionUnits, time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC)},
		{"twelve months", Spec{12, Months}, ContributionUnits, time.Date(2027, time.January, 31, 12, 0, 0, 0, time.UTC)},
		{"hours", Spec{36, Hours}, VoteUnits, time.Date(2026, time.February, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Resolve(base, &tc.spec, tc.allowed)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, tc.want.Equal(*got), "want %s got %s", tc.want, got)
		})
	}
}

func TestResolveNoExpiry(t *testing.T) {
	got, err := Resolve(base, nil, ContributionUnits)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolveRejectsIncompleteSpec(t *testing.T) {
	for _, spec := range []*Spec{{Value: 0, Unit: Days}, {Value: 5}, {}} {
		got, err := Resolve(base, spec, ContributionUnits)
		assert.ErrorIs(t, err, ErrInvalid, "%+v", *spec)
		assert.Nil(t, got)
	}
}

func TestResolveRejects(t *testing.T) {
	_, err := Resolve(base, &Spec{Value: 1, Unit: Hours}, ContributionUnits)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Resolve(base, &Spec{Value: 1, Unit: Months}, VoteUnits)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Resolve(base, &Spec{Value: -2, Unit: Days}, VoteUnits)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Resolve(base, &Spec{Value: 2, Unit: "fortnights"}, VoteUnits)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestEnded(t *testing.T) {
	end := base.Add(time.Hour)
	assert.False(t, Ended(nil, base.Add(1000*time.Hour)))
	assert.False(t, Ended(&end, base))
	assert.False(t, Ended(&end, end))
	assert.True(t, Ended(&end, end.Add(time.Nanosecond)))
}
