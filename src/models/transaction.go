package models

// RowKind tells whether a row was observed in the filing, synthesized by a
// split, or computed as a roll-up summary.
type RowKind string

const (
	RowKindSource    RowKind = "SOURCE"
	RowKindSynthetic RowKind = "SYNTHETIC"
	RowKindRollup    RowKind = "ROLLUP"
)

// LinkRole drives grouping eligibility in the roll-up builder.
type LinkRole string

const (
	LinkRoleExercise      LinkRole = "exercise"
	LinkRoleSaleCommon    LinkRole = "sale-common"
	LinkRoleTaxSaleIssuer LinkRole = "tax-sale-issuer"
	LinkRoleTaxSaleOpen   LinkRole = "tax-sale-open"
	LinkRoleOther         LinkRole = "other"
)

// TaxType classifies tax-related dispositions. Empty means not tax-related.
type TaxType string

const (
	TaxTypeNone       TaxType = ""
	TaxTypeIssuer     TaxType = "issuer"
	TaxTypeOpenMarket TaxType = "open-market"
)

// MatchStatus is the reconciliation verdict between an exercise estimate and
// the disposals linked to it.
type MatchStatus string

const (
	MatchExact           MatchStatus = "EXACT_MATCH"
	MatchWithinTolerance MatchStatus = "WITHIN_TOLERANCE"
	MatchMismatch        MatchStatus = "MISMATCH"
)

// Exercise share estimation methods.
const (
	EstimateMethodUnderlyingA = "UNDERLYING_A"
	EstimateMethodDerivative  = "DERV_1to1"
	EstimateMethodUnknown     = "UNKNOWN"
)

// Transaction is one row of the one-tab output: an observed Form 4 event
// (SOURCE), a fragment created by splitting one (SYNTHETIC), or a computed
// summary (ROLLUP). All three kinds share this shape so they can flow through
// storage and the API as a single ordered sequence per filing.
//
// Parsing of the raw filing happens upstream; records arrive here with shares
// fallback resolution and footnote-derived flags (IsPlan, TaxType) already
// applied.
type Transaction struct {
	ID int64 `json:"id,omitempty"`

	// Filing metadata, attached to every row of the filing.
	AccessionNumber string `json:"accessionNumber"`
	FiledDate       string `json:"filedDate"`
	FilingURL       string `json:"filingUrl,omitempty"`
	IssuerCik       string `json:"issuerCik"`
	IssuerName      string `json:"issuerName"`
	IssuerSymbol    string `json:"issuerTradingSymbol,omitempty"`
	OwnerCik        string `json:"rptOwnerCik"`
	OwnerName       string `json:"rptOwnerName"`
	OfficerTitle    string `json:"officerTitle,omitempty"`

	// Observed transaction fields.
	SecurityTitle    string   `json:"securityTitle,omitempty"`
	Code             string   `json:"transactionCode"`
	IsDerivative     bool     `json:"isDerivative"`
	AcquiredDisposed string   `json:"acquiredDisposedCode,omitempty"` // "A", "D" or absent
	Shares           float64  `json:"transactionShares"`              // unsigned magnitude
	SignedShares     float64  `json:"signedShares"`
	PricePerShare    *float64 `json:"transactionPricePerShare,omitempty"`
	Value            *float64 `json:"transactionValue,omitempty"`
	SharesAfter      *float64 `json:"sharesOwnedFollowingTransaction,omitempty"`
	TradeDate        string   `json:"transactionDate"` // ISO yyyy-mm-dd
	IsPlan           bool     `json:"is10b51"`
	TaxType          TaxType  `json:"taxType,omitempty"`
	PlanAdoptionDate string   `json:"planAdoptionDate,omitempty"`

	// Stable index within the filing, assigned upstream. Deterministic
	// tie-break key for linking and output ordering.
	FilingOrder int `json:"filingOrder"`

	// Classification, derived from code/plan/tax.
	Label    string   `json:"label"`
	LinkRole LinkRole `json:"linkRole"`

	// Set by the roll-up builder.
	RowKind RowKind `json:"rowType,omitempty"`
	EventID string  `json:"eventId,omitempty"`
	Linked  bool    `json:"-"`

	// Roll-up aggregates. Zero/nil on SOURCE and SYNTHETIC rows.
	AggregateType        string       `json:"aggregateType,omitempty"`
	AggregateShares      float64      `json:"aggregateShares,omitempty"`
	AggregateValue       *float64     `json:"aggregateValue,omitempty"`
	PriceRangeMin        *float64     `json:"priceRangeMin,omitempty"`
	PriceRangeMax        *float64     `json:"priceRangeMax,omitempty"`
	TradeDateStart       string       `json:"tradeDateStart,omitempty"`
	TradeDateEnd         string       `json:"tradeDateEnd,omitempty"`
	ExerciseSharesEst    *float64     `json:"exerciseSharesEst,omitempty"`
	ExerciseSharesMethod string       `json:"exerciseSharesMethod,omitempty"`
	SoldNonTaxSum        *float64     `json:"soldNonTaxSum,omitempty"`
	MatchDelta           *float64     `json:"matchDelta,omitempty"`
	MatchStatus          MatchStatus  `json:"matchStatus,omitempty"`
	ToleranceUsed        bool         `json:"toleranceUsed,omitempty"`
	HasTaxRows           bool         `json:"hasTaxRows,omitempty"`
	LinkedTxnCount       int          `json:"linkedTxnCount,omitempty"`
}

// IsTax reports whether the row is a tax-related disposition.
func (t *Transaction) IsTax() bool {
	return t.TaxType != TaxTypeNone
}
