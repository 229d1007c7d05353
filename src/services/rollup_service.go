package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/username/insiderfolio/backend/src/database"
	"github.com/username/insiderfolio/backend/src/logger"
	"github.com/username/insiderfolio/backend/src/models"
	"github.com/username/insiderfolio/backend/src/processors"
	"github.com/username/insiderfolio/backend/src/utils"
)

const (
	ckProcessedRows = "res_processed_rows_owner_%s"
	ckRollupRows    = "res_rollup_rows_owner_%s"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

// LabelParseWarning marks the visible row appended when the upstream parser
// reports fewer or more transaction nodes than it emitted.
const LabelParseWarning = "PARSE WARNING"

type rollupServiceImpl struct {
	builder     processors.RollupBuilder
	alerts      AlertService
	reportCache *cache.Cache
}

func NewRollupService(builder processors.RollupBuilder, alerts AlertService, reportCache *cache.Cache) RollupService {
	return &rollupServiceImpl{
		builder:     builder,
		alerts:      alerts,
		reportCache: reportCache,
	}
}

// ProcessFiling runs one filing through the linking engine and persists the
// resulting rows, replacing any previous ingest of the same accession.
func (s *rollupServiceImpl) ProcessFiling(env models.FilingEnvelope) (*models.IngestResult, error) {
	startTime := time.Now()
	if strings.TrimSpace(env.AccessionNumber) == "" {
		return nil, fmt.Errorf("%w: accession number required", ErrValidation)
	}
	if len(env.Transactions) == 0 && env.TransactionNodeCount == 0 {
		return nil, fmt.Errorf("%w: no transactions", ErrValidation)
	}

	batchID := uuid.NewString()
	logger.L.Info("ProcessFiling START", "accession", env.AccessionNumber, "batchID", batchID, "rows", len(env.Transactions))

	s.normalize(&env)

	parseWarning := env.TransactionNodeCount > 0 && env.TransactionNodeCount != len(env.Transactions)
	if parseWarning {
		logger.L.Warn("Transaction node count mismatch",
			"accession", env.AccessionNumber,
			"declared", env.TransactionNodeCount,
			"received", len(env.Transactions))
		env.Transactions = append(env.Transactions, warningRow(env))
	}

	txs := make([]*models.Transaction, len(env.Transactions))
	for i := range env.Transactions {
		txs[i] = &env.Transactions[i]
	}

	rolled := s.builder.BuildRollups(txs)

	if err := s.persist(env, batchID, rolled, parseWarning); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	}

	ownerCik := ""
	if len(rolled) > 0 {
		ownerCik = rolled[0].OwnerCik
	}
	s.InvalidateOwnerCache(ownerCik)

	result := &models.IngestResult{
		AccessionNumber: env.AccessionNumber,
		BatchID:         batchID,
		RowCount:        len(rolled),
		ParseWarning:    parseWarning,
	}
	var mismatched []*models.Transaction
	for _, r := range rolled {
		if r.RowKind != models.RowKindRollup {
			continue
		}
		result.RollupCount++
		if r.MatchStatus == models.MatchMismatch {
			mismatched = append(mismatched, r)
		}
	}
	result.MismatchCount = len(mismatched)

	if len(mismatched) > 0 && s.alerts != nil {
		if err := s.alerts.SendMismatchAlert(env.AccessionNumber, mismatched); err != nil {
			// Alerting is best-effort; the filing is already persisted.
			logger.L.Error("Failed to send mismatch alert", "accession", env.AccessionNumber, "error", err)
		}
	}

	logger.L.Info("ProcessFiling END",
		"accession", env.AccessionNumber,
		"rows", result.RowCount,
		"rollups", result.RollupCount,
		"mismatches", result.MismatchCount,
		"duration", time.Since(startTime))
	return result, nil
}

// normalize fills filing metadata, trade-date form, classification and
// ordering indexes the engine depends on. Upstream values win when present.
// Accession numbers are canonicalized to the dashed 18-digit form so that
// re-ingests of the same filing always replace, never duplicate.
func (s *rollupServiceImpl) normalize(env *models.FilingEnvelope) {
	env.AccessionNumber = utils.FormatAccession(env.AccessionNumber)

	anyOrder := false
	for i := range env.Transactions {
		if env.Transactions[i].FilingOrder != 0 {
			anyOrder = true
			break
		}
	}

	for i := range env.Transactions {
		t := &env.Transactions[i]
		if t.AccessionNumber == "" {
			t.AccessionNumber = env.AccessionNumber
		} else {
			t.AccessionNumber = utils.FormatAccession(t.AccessionNumber)
		}
		if t.FiledDate == "" {
			t.FiledDate = env.FiledDate
		}
		if t.FilingURL == "" {
			t.FilingURL = env.FilingURL
		}
		if !anyOrder {
			t.FilingOrder = i
		}

		if iso, err := utils.NormalizeDate(t.TradeDate); err == nil {
			t.TradeDate = iso
		} else {
			logger.L.Warn("Unparseable trade date, keeping raw value",
				"accession", t.AccessionNumber, "tradeDate", t.TradeDate)
		}

		if t.Label == "" {
			t.Label = processors.Classify(t.Code, t.IsPlan, t.TaxType)
		}
		if t.LinkRole == "" {
			t.LinkRole = processors.LinkRoleFor(t.Code, t.TaxType)
		}
		if t.SignedShares == 0 && t.Shares != 0 {
			t.SignedShares = deriveSignedShares(t)
		}
	}
}

// deriveSignedShares applies the acquired/disposed polarity, falling back on
// the tax flag and the transaction code when the flag is absent. Tax-related
// rows are always dispositions.
func deriveSignedShares(t *models.Transaction) float64 {
	abs := t.Shares
	if abs < 0 {
		abs = -abs
	}
	switch strings.ToUpper(t.AcquiredDisposed) {
	case "D":
		return -abs
	case "A":
		return abs
	}
	if t.IsTax() {
		return -abs
	}
	switch strings.ToUpper(strings.TrimSpace(t.Code)) {
	case "S", "F", "G":
		return -abs
	}
	return abs
}

// warningRow must stay reachable through the owner-filtered reads, so it
// carries the filing's owner and issuer identity alongside the warning label.
func warningRow(env models.FilingEnvelope) models.Transaction {
	w := models.Transaction{
		AccessionNumber: env.AccessionNumber,
		FiledDate:       env.FiledDate,
		FilingURL:       env.FilingURL,
		Label:           LabelParseWarning,
		LinkRole:        models.LinkRoleOther,
		RowKind:         models.RowKindSource,
		FilingOrder:     len(env.Transactions),
	}
	if len(env.Transactions) > 0 {
		first := env.Transactions[0]
		w.IssuerCik = first.IssuerCik
		w.IssuerName = first.IssuerName
		w.IssuerSymbol = first.IssuerSymbol
		w.OwnerCik = first.OwnerCik
		w.OwnerName = first.OwnerName
	}
	return w
}

func (s *rollupServiceImpl) persist(env models.FilingEnvelope, batchID string, rows []*models.Transaction, parseWarning bool) error {
	dbTx, err := database.DB.Begin()
	if err != nil {
		return fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.Exec(`DELETE FROM transaction_rows WHERE accession_number = ?`, env.AccessionNumber); err != nil {
		return fmt.Errorf("error clearing previous rows: %w", err)
	}

	var ownerCik, ownerName, issuerCik, issuerName string
	if len(rows) > 0 {
		ownerCik, ownerName = rows[0].OwnerCik, rows[0].OwnerName
		issuerCik, issuerName = rows[0].IssuerCik, rows[0].IssuerName
	}
	if _, err := dbTx.Exec(`INSERT OR REPLACE INTO filings
		(accession_number, filed_date, filing_url, issuer_cik, issuer_name, owner_cik, owner_name, batch_id, row_count, parse_warning)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		env.AccessionNumber, env.FiledDate, env.FilingURL, issuerCik, issuerName, ownerCik, ownerName, batchID, len(rows), parseWarning); err != nil {
		return fmt.Errorf("error recording filing: %w", err)
	}

	stmt, err := dbTx.Prepare(`INSERT INTO transaction_rows (
		accession_number, row_seq, row_kind, event_id, link_role, label,
		filed_date, filing_url, issuer_cik, issuer_name, issuer_symbol,
		owner_cik, owner_name, officer_title, security_title,
		transaction_code, is_derivative, acquired_disposed,
		shares, signed_shares, price_per_share, value, shares_after,
		trade_date, is_plan, tax_type, plan_adoption_date, filing_order,
		aggregate_type, aggregate_shares, aggregate_value,
		price_range_min, price_range_max, trade_date_start, trade_date_end,
		exercise_shares_est, exercise_shares_method, sold_non_tax_sum,
		match_delta, match_status, tolerance_used, has_tax_rows, linked_txn_count
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for i, t := range rows {
		_, err := stmt.Exec(
			t.AccessionNumber, i, string(t.RowKind), t.EventID, string(t.LinkRole), t.Label,
			t.FiledDate, t.FilingURL, t.IssuerCik, t.IssuerName, t.IssuerSymbol,
			t.OwnerCik, t.OwnerName, t.OfficerTitle, t.SecurityTitle,
			t.Code, t.IsDerivative, t.AcquiredDisposed,
			t.Shares, t.SignedShares, nullable(t.PricePerShare), nullable(t.Value), nullable(t.SharesAfter),
			t.TradeDate, t.IsPlan, string(t.TaxType), t.PlanAdoptionDate, t.FilingOrder,
			t.AggregateType, t.AggregateShares, nullable(t.AggregateValue),
			nullable(t.PriceRangeMin), nullable(t.PriceRangeMax), t.TradeDateStart, t.TradeDateEnd,
			nullable(t.ExerciseSharesEst), t.ExerciseSharesMethod, nullable(t.SoldNonTaxSum),
			nullable(t.MatchDelta), string(t.MatchStatus), t.ToleranceUsed, t.HasTaxRows, t.LinkedTxnCount,
		)
		if err != nil {
			return fmt.Errorf("error inserting row %d (event %s): %w", i, t.EventID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("error committing rows: %w", err)
	}
	return nil
}

func nullable(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func (s *rollupServiceImpl) GetProcessedTransactions(ownerCik string) ([]models.Transaction, error) {
	cacheKey := fmt.Sprintf(ckProcessedRows, ownerCik)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for processed rows", "ownerCik", ownerCik)
		return cached.([]models.Transaction), nil
	}

	rows, err := s.queryRows(`SELECT `+rowColumns+` FROM transaction_rows
		WHERE owner_cik = ?
		ORDER BY filed_date DESC, accession_number, row_seq`, ownerCik)
	if err != nil {
		return nil, err
	}

	s.reportCache.Set(cacheKey, rows, DefaultCacheExpiration)
	return rows, nil
}

func (s *rollupServiceImpl) GetRollups(ownerCik string) ([]models.Transaction, error) {
	cacheKey := fmt.Sprintf(ckRollupRows, ownerCik)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for rollup rows", "ownerCik", ownerCik)
		return cached.([]models.Transaction), nil
	}

	rows, err := s.queryRows(`SELECT `+rowColumns+` FROM transaction_rows
		WHERE owner_cik = ? AND row_kind = 'ROLLUP'
		ORDER BY filed_date DESC, accession_number, row_seq`, ownerCik)
	if err != nil {
		return nil, err
	}

	s.reportCache.Set(cacheKey, rows, DefaultCacheExpiration)
	return rows, nil
}

func (s *rollupServiceImpl) InvalidateOwnerCache(ownerCik string) {
	s.reportCache.Delete(fmt.Sprintf(ckProcessedRows, ownerCik))
	s.reportCache.Delete(fmt.Sprintf(ckRollupRows, ownerCik))
	logger.L.Debug("Invalidated report caches", "ownerCik", ownerCik)
}

const rowColumns = `id, accession_number, row_kind, event_id, link_role, label,
	filed_date, filing_url, issuer_cik, issuer_name, issuer_symbol,
	owner_cik, owner_name, officer_title, security_title,
	transaction_code, is_derivative, acquired_disposed,
	shares, signed_shares, price_per_share, value, shares_after,
	trade_date, is_plan, tax_type, plan_adoption_date, filing_order,
	aggregate_type, aggregate_shares, aggregate_value,
	price_range_min, price_range_max, trade_date_start, trade_date_end,
	exercise_shares_est, exercise_shares_method, sold_non_tax_sum,
	match_delta, match_status, tolerance_used, has_tax_rows, linked_txn_count`

func (s *rollupServiceImpl) queryRows(query string, args ...interface{}) ([]models.Transaction, error) {
	rows, err := database.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying transaction rows: %w", err)
	}
	defer rows.Close()

	result := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		var rowKind, linkRole, taxType, matchStatus string
		var price, value, sharesAfter, aggValue, priceMin, priceMax, est, sold, delta sql.NullFloat64
		if err := rows.Scan(
			&t.ID, &t.AccessionNumber, &rowKind, &t.EventID, &linkRole, &t.Label,
			&t.FiledDate, &t.FilingURL, &t.IssuerCik, &t.IssuerName, &t.IssuerSymbol,
			&t.OwnerCik, &t.OwnerName, &t.OfficerTitle, &t.SecurityTitle,
			&t.Code, &t.IsDerivative, &t.AcquiredDisposed,
			&t.Shares, &t.SignedShares, &price, &value, &sharesAfter,
			&t.TradeDate, &t.IsPlan, &taxType, &t.PlanAdoptionDate, &t.FilingOrder,
			&t.AggregateType, &t.AggregateShares, &aggValue,
			&priceMin, &priceMax, &t.TradeDateStart, &t.TradeDateEnd,
			&est, &t.ExerciseSharesMethod, &sold,
			&delta, &matchStatus, &t.ToleranceUsed, &t.HasTaxRows, &t.LinkedTxnCount,
		); err != nil {
			return nil, fmt.Errorf("error scanning transaction row: %w", err)
		}
		t.RowKind = models.RowKind(rowKind)
		t.LinkRole = models.LinkRole(linkRole)
		t.TaxType = models.TaxType(taxType)
		t.MatchStatus = models.MatchStatus(matchStatus)
		t.PricePerShare = fromNull(price)
		t.Value = fromNull(value)
		t.SharesAfter = fromNull(sharesAfter)
		t.AggregateValue = fromNull(aggValue)
		t.PriceRangeMin = fromNull(priceMin)
		t.PriceRangeMax = fromNull(priceMax)
		t.ExerciseSharesEst = fromNull(est)
		t.SoldNonTaxSum = fromNull(sold)
		t.MatchDelta = fromNull(delta)
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return result, nil
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
