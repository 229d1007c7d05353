package processors

import (
	"math"
	"sort"
	"strings"

	"github.com/username/insiderfolio/backend/src/models"
	"github.com/username/insiderfolio/backend/src/utils"
)

// MatchConfig holds the linking tolerances. Passed in explicitly so tests and
// callers can parameterize the engine instead of patching package globals.
type MatchConfig struct {
	AbsTolerance float64 // shares
	PctTolerance float64 // fraction of max(|estimate|, |linked|)
}

// DefaultMatchConfig returns the production tolerances: 5 shares absolute,
// 0.5% relative.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{AbsTolerance: 5, PctTolerance: 0.005}
}

// LinkResult is the outcome of one linking pass: one exercise-date group
// matched against the filing's unlinked sale-common pool.
type LinkResult struct {
	ExerciseDate string
	ExerciseRows []*models.Transaction

	// Linked disposals in consumption order: whole SOURCE rows plus, at most
	// once, a SYNTHETIC fragment created by splitting the last consumed row.
	LinkedSales []*models.Transaction

	EstimateShares float64
	EstimateMethod string
	LinkedShares   float64

	// LinkedValue is a best-effort partial total: linked legs without a price
	// contribute nothing. ValueComplete reports whether every leg was priced.
	LinkedValue   float64
	ValueComplete bool

	Delta         float64
	Status        models.MatchStatus
	ToleranceUsed bool
}

// Matcher links disposal rows to exercise groups.
type Matcher struct {
	cfg MatchConfig
}

func NewMatcher(cfg MatchConfig) *Matcher {
	return &Matcher{cfg: cfg}
}

// Link consumes unlinked sale-common rows from pool against the exercise
// estimate for one date group. Consumed rows are marked Linked in place; when
// the last consumed row overshoots the needed amount it is split, the linked
// fragment joins the result and the residual fragment replaces the original
// in the pool (still unlinked, eligible for a later date group or the
// automatic-disposition bucket).
func (m *Matcher) Link(exerciseDate string, group []*models.Transaction, pool []*models.Transaction) *LinkResult {
	res := &LinkResult{
		ExerciseDate:  exerciseDate,
		ExerciseRows:  group,
		ValueComplete: true,
	}
	res.EstimateShares, res.EstimateMethod = exerciseEstimate(group)

	// Stable consumption order: trade date ascending, filing order as the
	// tie-break. Sorting index positions leaves the pool slice itself in
	// filing order for the caller.
	order := make([]int, len(pool))
	for i := range pool {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := pool[order[a]], pool[order[b]]
		if sa.TradeDate != sb.TradeDate {
			return sa.TradeDate < sb.TradeDate
		}
		return sa.FilingOrder < sb.FilingOrder
	})

	remaining := res.EstimateShares
	for _, i := range order {
		if remaining <= 0 {
			break
		}
		s := pool[i]
		if s.Linked {
			continue
		}
		if s.TradeDate < exerciseDate {
			continue
		}
		sAbs := math.Abs(s.Shares)
		if sAbs == 0 {
			// Zero-magnitude disposals are never linked.
			continue
		}

		if sAbs <= remaining {
			s.Linked = true
			upgradePlannedLabel(s)
			res.LinkedSales = append(res.LinkedSales, s)
			res.LinkedShares += sAbs
			if s.PricePerShare != nil {
				res.LinkedValue += sAbs * *s.PricePerShare
			} else {
				res.ValueComplete = false
			}
			remaining -= sAbs
			continue
		}

		// Overshoot: split into a linked fragment sized to the remaining need
		// and a residual fragment holding the excess.
		linked := splitFragment(s, remaining)
		linked.Linked = true
		upgradePlannedLabel(linked)
		res.LinkedSales = append(res.LinkedSales, linked)
		res.LinkedShares += remaining
		if s.PricePerShare != nil {
			res.LinkedValue += remaining * *s.PricePerShare
		} else {
			res.ValueComplete = false
		}

		residual := splitFragment(s, sAbs-remaining)
		pool[i] = residual

		remaining = 0
		break
	}

	res.Status, res.Delta, res.ToleranceUsed = MatchStatusFor(res.EstimateShares, res.LinkedShares, m.cfg)
	return res
}

// exerciseEstimate computes how many shares the group released. Method 1 sums
// the non-derivative acquisition rows in the group; when that is zero the
// derivative rows are assumed to convert 1:1.
func exerciseEstimate(group []*models.Transaction) (float64, string) {
	var underlying float64
	for _, r := range group {
		if !r.IsDerivative && strings.EqualFold(r.AcquiredDisposed, "A") {
			underlying += math.Abs(r.Shares)
		}
	}
	if underlying > 0 {
		return underlying, models.EstimateMethodUnderlyingA
	}

	var derivative float64
	for _, r := range group {
		derivative += math.Abs(r.Shares)
	}
	if derivative > 0 {
		return derivative, models.EstimateMethodDerivative
	}
	return 0, models.EstimateMethodUnknown
}

// MatchStatusFor classifies the reconciliation between an exercise estimate
// and the disposals linked to it. A zero estimate with a nonzero linked sum is
// legal and comes back as a large MISMATCH, not an error.
func MatchStatusFor(estimate, linkedSum float64, cfg MatchConfig) (models.MatchStatus, float64, bool) {
	delta := linkedSum - estimate
	maxTotal := math.Max(math.Abs(estimate), math.Abs(linkedSum))
	var threshold float64
	if maxTotal > 0 {
		threshold = math.Max(cfg.AbsTolerance, cfg.PctTolerance*maxTotal)
	}

	switch {
	case delta == 0:
		return models.MatchExact, delta, false
	case math.Abs(delta) <= threshold:
		return models.MatchWithinTolerance, delta, true
	default:
		return models.MatchMismatch, delta, false
	}
}

// splitFragment copies a disposal row into a SYNTHETIC fragment of the given
// magnitude, inheriting date, price and plan/tax fields. Polarity stays
// negative: fragments only ever come from disposals.
func splitFragment(s *models.Transaction, shares float64) *models.Transaction {
	frag := *s
	frag.ID = 0
	frag.Shares = shares
	frag.SignedShares = -shares
	frag.RowKind = models.RowKindSynthetic
	frag.Linked = false
	if s.PricePerShare != nil {
		v := utils.RoundFloat(shares**s.PricePerShare, 2)
		frag.Value = &v
	} else {
		frag.Value = nil
	}
	return &frag
}

// upgradePlannedLabel upgrades a linked planned sale to its derivative-linked
// variant. Idempotent, and only ever called on linked pieces.
func upgradePlannedLabel(s *models.Transaction) {
	if s.IsPlan && s.Label == LabelPlannedSale {
		s.Label = LabelPlannedSaleDerivative
	}
}
