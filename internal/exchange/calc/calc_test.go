package calc

import (
	"testing"

	"github.com/agencyhub/entitlex/internal/catalog"
	"github.com/agencyhub/entitlex/internal/exchange/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

// The canonical scenario: plan {seats:5, projects:20, storage:10GB}, usage
// {seats:5, projects:10, storage:3GB}, default rates.
func scenarioLimits() Limits {
	return Limits{
		Base: map[catalog.Dimension]*int64{
			catalog.DimensionSeats:    ptr(5),
			catalog.DimensionProjects: ptr(20),
			catalog.DimensionStorage:  ptr(10),
		},
		Usage: map[catalog.Dimension]int64{
			catalog.DimensionSeats:    5,
			catalog.DimensionProjects: 10,
			catalog.DimensionStorage:  3,
		},
	}
}

func rejectionCodes(ev domain.Evaluation) []string {
	codes := make([]string, 0, len(ev.Rejections))
	for _, r := range ev.Rejections {
		codes = append(codes, r.Code)
	}
	return codes
}

func TestFloorsNeverBelowUsage(t *testing.T) {
	cat := catalog.Default()
	limits := scenarioLimits()

	assert.Equal(t, int64(5), Floor(cat, limits, catalog.DimensionSeats))
	assert.Equal(t, int64(10), Floor(cat, limits, catalog.DimensionProjects))
	assert.Equal(t, int64(3), Floor(cat, limits, catalog.DimensionStorage))

	// seats floor is 1 even with zero usage
	limits.Usage[catalog.DimensionSeats] = 0
	assert.Equal(t, int64(1), Floor(cat, limits, catalog.DimensionSeats))

	// usage above base still raises the floor
	limits.Usage[catalog.DimensionSeats] = 9
	assert.Equal(t, int64(9), Floor(cat, limits, catalog.DimensionSeats))
}

func TestCeilingsCrossFundedOnly(t *testing.T) {
	cat := catalog.Default()
	limits := scenarioLimits()

	// seats: projects surplus 10*0.8 + storage surplus 7*0.3 = 10.1 points,
	// buys 1 seat at 7.0
	assert.Equal(t, int64(6), Ceiling(cat, limits, catalog.DimensionSeats))
	// projects: 2.1 points buys 0 projects at 2.5, then step-5 rounding
	assert.Equal(t, int64(20), Ceiling(cat, limits, catalog.DimensionProjects))
	// storage: 8.0 points buys 8 GB at 1.0
	assert.Equal(t, int64(18), Ceiling(cat, limits, catalog.DimensionStorage))
}

func TestCeilingStepRounding(t *testing.T) {
	cat := catalog.Default()
	limits := scenarioLimits()
	// free 27 GB of storage surplus: sellable 7 -> raise storage base
	limits.Base[catalog.DimensionStorage] = ptr(30)
	// projects budget: seats 0 + storage 27*0.3 = 8.1 points -> 3 projects
	// at 2.5, rounded down to the 5-step -> 0 extra
	assert.Equal(t, int64(20), Ceiling(cat, limits, catalog.DimensionProjects))
}

func TestAdmissibleScenario(t *testing.T) {
	cat := catalog.Default()
	ev := Evaluate(cat, scenarioLimits(), domain.Proposal{ProjectsDelta: -10, StorageDelta: 2})

	require.True(t, ev.Admissible, "rejections: %v", ev.Rejections)
	assert.InDelta(t, 8.0, ev.PointsEarned, 1e-9)
	assert.InDelta(t, 2.0, ev.PointsSpent, 1e-9)
	assert.InDelta(t, 6.0, ev.PointsBalance, 1e-9)
}

func TestInsufficientPoints(t *testing.T) {
	cat := catalog.Default()
	ev := Evaluate(cat, scenarioLimits(), domain.Proposal{SeatsDelta: 3})

	require.False(t, ev.Admissible)
	assert.InDelta(t, 21.0, ev.PointsSpent, 1e-9)
	assert.InDelta(t, 0.0, ev.PointsEarned, 1e-9)
	assert.Contains(t, rejectionCodes(ev), domain.CodeInsufficientPoints)
}

func TestSellToUsageBoundary(t *testing.T) {
	cat := catalog.Default()

	// selling projects exactly down to usage is admissible
	ev := Evaluate(cat, scenarioLimits(), domain.Proposal{ProjectsDelta: -10})
	assert.True(t, ev.Admissible, "rejections: %v", ev.Rejections)

	// one step further is below the floor
	ev = Evaluate(cat, scenarioLimits(), domain.Proposal{ProjectsDelta: -15})
	require.False(t, ev.Admissible)
	require.Len(t, ev.Rejections, 1)
	assert.Equal(t, domain.CodeBelowFloor, ev.Rejections[0].Code)
	assert.Equal(t, catalog.DimensionProjects, ev.Rejections[0].Dimension)
}

func TestZeroBalanceDoesNotOverrideBounds(t *testing.T) {
	cat := catalog.Default()
	// earned = 10*0.8 + 20*0.3 = 14 = spent = 2*7.0, but storage dives far
	// below its floor
	ev := Evaluate(cat, scenarioLimits(), domain.Proposal{SeatsDelta: 2, ProjectsDelta: -10, StorageDelta: -20})

	require.False(t, ev.Admissible)
	assert.InDelta(t, 0.0, ev.PointsBalance, 1e-9)
	assert.Contains(t, rejectionCodes(ev), domain.CodeBelowFloor)
}

func TestNoSelfFunding(t *testing.T) {
	cat := catalog.Default()
	// storage has 7 GB of its own surplus but no other dimension has any;
	// that surplus must not fund a storage increase
	limits := scenarioLimits()
	limits.Usage[catalog.DimensionSeats] = 5
	limits.Usage[catalog.DimensionProjects] = 20

	assert.Equal(t, int64(10), Ceiling(cat, limits, catalog.DimensionStorage))

	ev := Evaluate(cat, limits, domain.Proposal{StorageDelta: 1})
	require.False(t, ev.Admissible)
	assert.Contains(t, rejectionCodes(ev), domain.CodeAboveCeiling)
}

func TestInvalidStep(t *testing.T) {
	cat := catalog.Default()
	ev := Evaluate(cat, scenarioLimits(), domain.Proposal{ProjectsDelta: -3})

	require.False(t, ev.Admissible)
	require.Len(t, ev.Rejections, 1)
	assert.Equal(t, domain.CodeInvalidStep, ev.Rejections[0].Code)
	assert.Equal(t, catalog.DimensionProjects, ev.Rejections[0].Dimension)
}

func TestUnboundedDimensionNotTradable(t *testing.T) {
	cat := catalog.Default()
	limits := scenarioLimits()
	limits.Base[catalog.DimensionProjects] = nil

	ev := Evaluate(cat, limits, domain.Proposal{ProjectsDelta: -5})
	require.False(t, ev.Admissible)
	assert.Contains(t, rejectionCodes(ev), domain.CodeDimensionUnbounded)

	// the unbounded dimension also disappears from bounds and budgets
	_, ok := ev.Bounds[catalog.DimensionProjects]
	assert.False(t, ok)
	assert.Equal(t, int64(5), Ceiling(cat, limits, catalog.DimensionSeats)) // storage only: 2.1/7.0 -> 0
}

func TestOverQuotaDimensionUntouchedIsFine(t *testing.T) {
	cat := catalog.Default()
	limits := scenarioLimits()
	limits.Usage[catalog.DimensionSeats] = 7 // over the base of 5

	// leaving seats alone keeps the proposal admissible
	ev := Evaluate(cat, limits, domain.Proposal{ProjectsDelta: -10, StorageDelta: 2})
	assert.True(t, ev.Admissible, "rejections: %v", ev.Rejections)

	// selling seats is impossible while over quota
	ev = Evaluate(cat, limits, domain.Proposal{SeatsDelta: -1})
	require.False(t, ev.Admissible)
	assert.Contains(t, rejectionCodes(ev), domain.CodeBelowFloor)
}

func TestEpsilonAbsorbsRounding(t *testing.T) {
	cat := catalog.Default()
	// projects -5 earns 4.0; storage +4 spends 4.0; exact break-even stays
	// admissible even with accumulated float error
	ev := Evaluate(cat, scenarioLimits(), domain.Proposal{ProjectsDelta: -5, StorageDelta: 4})
	assert.True(t, ev.Admissible, "rejections: %v", ev.Rejections)
}
