package processors

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/username/insiderfolio/backend/src/models"
	"github.com/username/insiderfolio/backend/src/utils"
)

// Aggregate types carried on ROLLUP rows.
const (
	AggregateExerciseSale    = "Exercise - Sale"
	AggregateExerciseHold    = "Exercise - Hold"
	AggregateAutoDisposition = "Automatic Disposition"
)

const rollupSecurityTitle = "Class A Common Stock"

// RollupProcessor is the assembler: it partitions one filing's rows by link
// role, runs one matcher pass per exercise date against the filing's shared
// sale pool, synthesizes roll-up rows and orders the output waterfall.
type RollupProcessor struct {
	matcher *Matcher
}

func NewRollupProcessor(cfg MatchConfig) *RollupProcessor {
	return &RollupProcessor{matcher: NewMatcher(cfg)}
}

// BuildRollups processes one filing end to end. Rows are mutated in place
// (labels, event ids, row kinds); split rows are replaced by their two
// fragments; every other input row appears exactly once in the output.
//
// Rows that already carry an event id, and existing ROLLUP rows, are treated
// as processed and never relinked, so running the builder over its own output
// changes nothing.
func (p *RollupProcessor) BuildRollups(txs []*models.Transaction) []*models.Transaction {
	if len(txs) == 0 {
		return nil
	}

	var preprocessed, fresh []*models.Transaction
	for _, t := range txs {
		if t.RowKind == models.RowKindRollup || t.EventID != "" {
			preprocessed = append(preprocessed, t)
		} else {
			fresh = append(fresh, t)
		}
	}

	var exercises, sales, taxRows, otherRows []*models.Transaction
	for _, t := range fresh {
		switch t.LinkRole {
		case models.LinkRoleExercise:
			exercises = append(exercises, t)
		case models.LinkRoleSaleCommon:
			sales = append(sales, t)
		case models.LinkRoleTaxSaleIssuer, models.LinkRoleTaxSaleOpen:
			taxRows = append(taxRows, t)
		default:
			otherRows = append(otherRows, t)
		}
	}

	// No fresh exercises: nothing to link, everything passes through in the
	// original order. This also covers re-running on processed output.
	if len(exercises) == 0 {
		for _, t := range fresh {
			if t.RowKind == "" {
				t.RowKind = models.RowKindSource
			}
		}
		return txs
	}

	base := txs[0]
	accCompact := utils.CompactAccession(base.AccessionNumber)

	byDate := make(map[string][]*models.Transaction)
	for _, r := range exercises {
		byDate[r.TradeDate] = append(byDate[r.TradeDate], r)
	}
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]*models.Transaction, 0, len(txs)+len(dates)+1)
	out = append(out, preprocessed...)

	seq := 1
	for _, d := range dates {
		group := byDate[d]
		res := p.matcher.Link(d, group, sales)

		eventID := fmt.Sprintf("%s-%s-%02d", accCompact, strings.ReplaceAll(d, "-", ""), seq)
		seq++

		rollup := buildExerciseRollup(base, eventID, res, taxRows)
		for _, r := range group {
			r.EventID = eventID
			r.RowKind = models.RowKindSource
		}
		for _, s := range res.LinkedSales {
			s.EventID = eventID
			if s.RowKind == "" {
				s.RowKind = models.RowKindSource
			}
		}

		out = append(out, rollup)
		out = append(out, filingOrdered(group, func(t *models.Transaction) bool { return t.IsDerivative })...)
		out = append(out, filingOrdered(group, func(t *models.Transaction) bool { return !t.IsDerivative })...)
		out = append(out, filingOrdered(res.LinkedSales, nil)...)
	}

	var unlinked []*models.Transaction
	for _, s := range sales {
		if !s.Linked {
			unlinked = append(unlinked, s)
		}
	}
	if len(unlinked) > 0 {
		autoID := accCompact + "-AUTODISP-01"
		rollup := buildAutoDispositionRollup(base, autoID, unlinked)
		for _, s := range unlinked {
			s.EventID = autoID
			if s.RowKind == "" {
				s.RowKind = models.RowKindSource
			}
		}
		out = append(out, rollup)
		out = append(out, filingOrdered(unlinked, nil)...)
	}

	for _, t := range taxRows {
		t.RowKind = models.RowKindSource
	}
	out = append(out, filingOrdered(taxRows, nil)...)
	for _, t := range otherRows {
		t.RowKind = models.RowKindSource
	}
	out = append(out, filingOrdered(otherRows, nil)...)

	return out
}

// buildExerciseRollup synthesizes the summary row for one exercise-date group.
func buildExerciseRollup(base *models.Transaction, eventID string, res *LinkResult, taxRows []*models.Transaction) *models.Transaction {
	aggregateType := AggregateExerciseHold
	if res.LinkedShares > 0 {
		aggregateType = AggregateExerciseSale
	}

	summarized := append(append([]*models.Transaction{}, res.ExerciseRows...), res.LinkedSales...)
	dateStart, dateEnd := dateRange(summarized)
	priceMin, priceMax := priceRange(summarized)

	hasTax := false
	for _, tr := range taxRows {
		if tr.TradeDate >= res.ExerciseDate {
			hasTax = true
			break
		}
	}

	r := newRollupRow(base, eventID)
	r.AggregateType = aggregateType
	r.Label = aggregateType
	r.AggregateShares = -math.Abs(res.LinkedShares)
	if res.LinkedShares > 0 {
		v := res.LinkedValue
		r.AggregateValue = &v
	}
	r.PriceRangeMin = priceMin
	r.PriceRangeMax = priceMax
	r.TradeDateStart = dateStart
	r.TradeDateEnd = dateEnd
	r.TradeDate = spanLabel(dateStart, dateEnd)
	est := res.EstimateShares
	r.ExerciseSharesEst = &est
	r.ExerciseSharesMethod = res.EstimateMethod
	sold := res.LinkedShares
	r.SoldNonTaxSum = &sold
	delta := res.Delta
	r.MatchDelta = &delta
	r.MatchStatus = res.Status
	r.ToleranceUsed = res.ToleranceUsed
	r.HasTaxRows = hasTax
	r.LinkedTxnCount = len(res.ExerciseRows) + len(res.LinkedSales)

	r.Shares = res.LinkedShares
	r.SignedShares = -math.Abs(res.LinkedShares)
	r.Value = r.AggregateValue
	for _, s := range res.LinkedSales {
		if s.IsPlan {
			r.IsPlan = true
			break
		}
	}
	return r
}

// buildAutoDispositionRollup aggregates the filing's unlinked sale rows,
// residual split fragments included.
func buildAutoDispositionRollup(base *models.Transaction, eventID string, unlinked []*models.Transaction) *models.Transaction {
	var sumShares, sumValue float64
	for _, s := range unlinked {
		abs := math.Abs(s.Shares)
		sumShares += abs
		if s.PricePerShare != nil {
			sumValue += abs * *s.PricePerShare
		}
	}
	dateStart, dateEnd := dateRange(unlinked)
	priceMin, priceMax := priceRange(unlinked)

	r := newRollupRow(base, eventID)
	r.AggregateType = AggregateAutoDisposition
	r.Label = AggregateAutoDisposition
	r.AggregateShares = -sumShares
	if sumValue > 0 {
		v := sumValue
		r.AggregateValue = &v
	}
	r.PriceRangeMin = priceMin
	r.PriceRangeMax = priceMax
	r.TradeDateStart = dateStart
	r.TradeDateEnd = dateEnd
	r.TradeDate = spanLabel(dateStart, dateEnd)
	sold := sumShares
	r.SoldNonTaxSum = &sold
	r.LinkedTxnCount = len(unlinked)

	r.Shares = sumShares
	r.SignedShares = -sumShares
	r.Value = r.AggregateValue
	for _, s := range unlinked {
		if s.IsPlan {
			r.IsPlan = true
			break
		}
	}
	return r
}

// newRollupRow seeds a ROLLUP row with the filing metadata every row carries.
func newRollupRow(base *models.Transaction, eventID string) *models.Transaction {
	return &models.Transaction{
		AccessionNumber:  base.AccessionNumber,
		FiledDate:        base.FiledDate,
		FilingURL:        base.FilingURL,
		IssuerCik:        base.IssuerCik,
		IssuerName:       base.IssuerName,
		IssuerSymbol:     base.IssuerSymbol,
		OwnerCik:         base.OwnerCik,
		OwnerName:        base.OwnerName,
		OfficerTitle:     base.OfficerTitle,
		SecurityTitle:    rollupSecurityTitle,
		AcquiredDisposed: "D",
		RowKind:          models.RowKindRollup,
		EventID:          eventID,
	}
}

// filingOrdered returns the rows matching keep (nil keeps all), sorted by the
// original filing order.
func filingOrdered(rows []*models.Transaction, keep func(*models.Transaction) bool) []*models.Transaction {
	var res []*models.Transaction
	for _, r := range rows {
		if keep == nil || keep(r) {
			res = append(res, r)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].FilingOrder < res[j].FilingOrder
	})
	return res
}

func dateRange(rows []*models.Transaction) (string, string) {
	var start, end string
	for _, r := range rows {
		if r.TradeDate == "" {
			continue
		}
		if start == "" || r.TradeDate < start {
			start = r.TradeDate
		}
		if end == "" || r.TradeDate > end {
			end = r.TradeDate
		}
	}
	return start, end
}

func priceRange(rows []*models.Transaction) (*float64, *float64) {
	var min, max *float64
	for _, r := range rows {
		if r.PricePerShare == nil {
			continue
		}
		p := *r.PricePerShare
		if min == nil || p < *min {
			v := p
			min = &v
		}
		if max == nil || p > *max {
			v := p
			max = &v
		}
	}
	return min, max
}

func spanLabel(start, end string) string {
	if start == "" {
		return ""
	}
	if start == end {
		return start
	}
	return fmt.Sprintf("%s - %s", start, end)
}
