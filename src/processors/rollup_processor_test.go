package processors

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/insiderfolio/backend/src/models"
	"github.com/username/insiderfolio/backend/src/utils"
)

const testAccession = "0001209191-24-012345"

func filingRow(t *models.Transaction, order int) *models.Transaction {
	t.AccessionNumber = testAccession
	t.FiledDate = "2024-03-05"
	t.OwnerCik = "0001234567"
	t.FilingOrder = order
	return t
}

func taxRow(date string, shares, price float64, order int) *models.Transaction {
	r := saleRow(date, shares, price, order)
	r.TaxType = models.TaxTypeIssuer
	r.LinkRole = models.LinkRoleTaxSaleIssuer
	r.Label = LabelTaxToIssuer
	return r
}

func TestBuildRollupsExerciseSaleWaterfall(t *testing.T) {
	p := NewRollupProcessor(DefaultMatchConfig())

	derivExercise := filingRow(exerciseRow("2024-03-01", 1000), 0)
	underlying := filingRow(&models.Transaction{
		Code:             "M",
		AcquiredDisposed: "A",
		Shares:           1000,
		SignedShares:     1000,
		TradeDate:        "2024-03-01",
		LinkRole:         models.LinkRoleExercise,
	}, 1)
	sale := filingRow(saleRow("2024-03-01", 1000, 12.5, 2), 2)
	tax := filingRow(taxRow("2024-03-01", 300, 12.5, 3), 3)
	gift := filingRow(&models.Transaction{
		Code:      "G",
		Shares:    50,
		TradeDate: "2024-03-02",
		LinkRole:  models.LinkRoleOther,
		Label:     LabelGift,
	}, 4)

	out := p.BuildRollups([]*models.Transaction{derivExercise, underlying, sale, tax, gift})

	require.Len(t, out, 6)
	rollup := out[0]
	assert.Equal(t, models.RowKindRollup, rollup.RowKind)
	assert.Equal(t, AggregateExerciseSale, rollup.AggregateType)
	assert.Equal(t, "000120919124012345-20240301-01", rollup.EventID)
	assert.Equal(t, -1000.0, rollup.AggregateShares)
	require.NotNil(t, rollup.AggregateValue)
	assert.InDelta(t, 12500.0, *rollup.AggregateValue, 1e-9)
	assert.Equal(t, models.MatchExact, rollup.MatchStatus)
	assert.True(t, rollup.HasTaxRows)
	assert.Equal(t, 3, rollup.LinkedTxnCount)
	assert.Equal(t, "D", rollup.AcquiredDisposed)

	// Derivative exercise first, then the underlying acquisition, then the
	// linked sale, then tax and other rows.
	assert.Same(t, derivExercise, out[1])
	assert.Same(t, underlying, out[2])
	assert.Same(t, sale, out[3])
	assert.Same(t, tax, out[4])
	assert.Same(t, gift, out[5])

	// Every linked member carries the group's event id.
	for _, r := range out[1:4] {
		assert.Equal(t, rollup.EventID, r.EventID)
		assert.Equal(t, models.RowKindSource, r.RowKind)
	}
	assert.Empty(t, tax.EventID)
	assert.Empty(t, gift.EventID)
}

func TestBuildRollupsExerciseHoldWhenNoSales(t *testing.T) {
	p := NewRollupProcessor(DefaultMatchConfig())
	ex := filingRow(exerciseRow("2024-03-01", 1000), 0)

	out := p.BuildRollups([]*models.Transaction{ex})

	require.Len(t, out, 2)
	rollup := out[0]
	assert.Equal(t, AggregateExerciseHold, rollup.AggregateType)
	assert.Equal(t, 0.0, rollup.AggregateShares)
	assert.Nil(t, rollup.AggregateValue)
	assert.Equal(t, models.MatchMismatch, rollup.MatchStatus)
	require.NotNil(t, rollup.MatchDelta)
	assert.Equal(t, -1000.0, *rollup.MatchDelta)
	assert.False(t, rollup.HasTaxRows)
}

func TestBuildRollupsPassThroughWithoutExercises(t *testing.T) {
	p := NewRollupProcessor(DefaultMatchConfig())
	s1 := filingRow(saleRow("2024-03-01", 400, 10, 0), 0)
	s2 := filingRow(saleRow("2024-03-02", 600, 11, 1), 1)

	out := p.BuildRollups([]*models.Transaction{s1, s2})

	// No exercises: pass-through in original order, kinds normalized.
	require.Len(t, out, 2)
	assert.Same(t, s1, out[0])
	assert.Same(t, s2, out[1])
	assert.Equal(t, models.RowKindSource, s1.RowKind)
	assert.Empty(t, s1.EventID)
}

func TestBuildRollupsSplitsAndAutoDisposesResidual(t *testing.T) {
	p := NewRollupProcessor(DefaultMatchConfig())
	ex := filingRow(exerciseRow("2024-03-01", 1000), 0)
	sale := filingRow(saleRow("2024-03-01", 1500, 10, 1), 1)

	out := p.BuildRollups([]*models.Transaction{ex, sale})

	require.Len(t, out, 5)
	assert.Equal(t, AggregateExerciseSale, out[0].AggregateType)
	assert.Same(t, ex, out[1])
	assert.Equal(t, 1000.0, out[2].Shares)
	assert.Equal(t, models.RowKindSynthetic, out[2].RowKind)

	autoRollup := out[3]
	assert.Equal(t, AggregateAutoDisposition, autoRollup.AggregateType)
	assert.Equal(t, "000120919124012345-AUTODISP-01", autoRollup.EventID)
	assert.Equal(t, -500.0, autoRollup.AggregateShares)
	require.NotNil(t, autoRollup.AggregateValue)
	assert.InDelta(t, 5000.0, *autoRollup.AggregateValue, 1e-9)

	residual := out[4]
	assert.Equal(t, 500.0, residual.Shares)
	assert.Equal(t, models.RowKindSynthetic, residual.RowKind)
	assert.Equal(t, autoRollup.EventID, residual.EventID)

	// The original sale row does not appear; its two fragments conserve it.
	for _, r := range out {
		assert.NotSame(t, sale, r)
	}
	assert.Equal(t, sale.Shares, out[2].Shares+residual.Shares)
}

func TestBuildRollupsSequencesEventIDsPerDate(t *testing.T) {
	p := NewRollupProcessor(DefaultMatchConfig())
	ex1 := filingRow(exerciseRow("2024-03-04", 200), 0)
	ex2 := filingRow(exerciseRow("2024-03-01", 300), 1)
	s1 := filingRow(saleRow("2024-03-01", 300, 10, 2), 2)
	s2 := filingRow(saleRow("2024-03-04", 200, 10, 3), 3)

	out := p.BuildRollups([]*models.Transaction{ex1, ex2, s1, s2})

	var rollups []*models.Transaction
	for _, r := range out {
		if r.RowKind == models.RowKindRollup {
			rollups = append(rollups, r)
		}
	}
	require.Len(t, rollups, 2)

	// Date groups run ascending regardless of filing order.
	assert.Equal(t, "000120919124012345-20240301-01", rollups[0].EventID)
	assert.Equal(t, "000120919124012345-20240304-02", rollups[1].EventID)
	assert.Equal(t, rollups[0].EventID, ex2.EventID)
	assert.Equal(t, rollups[1].EventID, ex1.EventID)
	assert.Equal(t, rollups[0].EventID, s1.EventID)
	assert.Equal(t, rollups[1].EventID, s2.EventID)
}

func TestBuildRollupsEarlierGroupCannotConsumeEarlierSale(t *testing.T) {
	p := NewRollupProcessor(DefaultMatchConfig())
	ex := filingRow(exerciseRow("2024-03-04", 200), 0)
	staleSale := filingRow(saleRow("2024-03-01", 200, 10, 1), 1)

	out := p.BuildRollups([]*models.Transaction{ex, staleSale})

	var rollups []*models.Transaction
	for _, r := range out {
		if r.RowKind == models.RowKindRollup {
			rollups = append(rollups, r)
		}
	}
	require.Len(t, rollups, 2)
	assert.Equal(t, AggregateExerciseHold, rollups[0].AggregateType)
	assert.Equal(t, AggregateAutoDisposition, rollups[1].AggregateType)
	assert.Equal(t, rollups[1].EventID, staleSale.EventID)
}

func TestBuildRollupsIdempotentOnOwnOutput(t *testing.T) {
	p := NewRollupProcessor(DefaultMatchConfig())
	ex := filingRow(exerciseRow("2024-03-01", 1000), 0)
	sale := filingRow(saleRow("2024-03-01", 1000, 12.5, 1), 1)

	first := p.BuildRollups([]*models.Transaction{ex, sale})
	firstIDs := make([]string, len(first))
	for i, r := range first {
		firstIDs[i] = r.EventID
	}

	second := p.BuildRollups(first)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Same(t, first[i], second[i])
		assert.Equal(t, firstIDs[i], second[i].EventID)
	}
}

func TestBuildRollupsConservesInputMagnitude(t *testing.T) {
	p := NewRollupProcessor(DefaultMatchConfig())
	input := []*models.Transaction{
		filingRow(exerciseRow("2024-03-01", 1000), 0),
		filingRow(saleRow("2024-03-01", 700, 10, 1), 1),
		filingRow(saleRow("2024-03-02", 800, 10, 2), 2),
		filingRow(taxRow("2024-03-01", 150, 10, 3), 3),
	}
	var inputMagnitude float64
	for _, r := range input {
		inputMagnitude += math.Abs(r.Shares)
	}

	out := p.BuildRollups(input)

	var outMagnitude float64
	for _, r := range out {
		if r.RowKind == models.RowKindRollup {
			continue
		}
		outMagnitude += math.Abs(r.Shares)
	}
	assert.InDelta(t, inputMagnitude, outMagnitude, 1e-9)
}

func TestBuildRollupsRollupDateAndPriceRanges(t *testing.T) {
	p := NewRollupProcessor(DefaultMatchConfig())
	ex := filingRow(exerciseRow("2024-03-01", 900), 0)
	ex.PricePerShare = utils.Float64Ptr(2.5) // exercise/conversion price
	s1 := filingRow(saleRow("2024-03-01", 400, 10, 1), 1)
	s2 := filingRow(saleRow("2024-03-03", 500, 12, 2), 2)

	out := p.BuildRollups([]*models.Transaction{ex, s1, s2})

	rollup := out[0]
	assert.Equal(t, "2024-03-01", rollup.TradeDateStart)
	assert.Equal(t, "2024-03-03", rollup.TradeDateEnd)
	assert.Equal(t, "2024-03-01 - 2024-03-03", rollup.TradeDate)
	require.NotNil(t, rollup.PriceRangeMin)
	require.NotNil(t, rollup.PriceRangeMax)
	assert.Equal(t, 2.5, *rollup.PriceRangeMin)
	assert.Equal(t, 12.0, *rollup.PriceRangeMax)
}

func TestBuildRollupsEmptyInput(t *testing.T) {
	p := NewRollupProcessor(DefaultMatchConfig())
	assert.Nil(t, p.BuildRollups(nil))
}
