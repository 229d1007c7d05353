package models

// FilingEnvelope is the ingest payload for one filing: the parsed transaction
// records plus enough metadata to detect upstream parsing gaps.
type FilingEnvelope struct {
	AccessionNumber string `json:"accessionNumber"`
	FiledDate       string `json:"filedDate"`
	FilingURL       string `json:"filingUrl,omitempty"`

	// Number of transaction nodes the upstream parser saw in the raw
	// document. When it disagrees with len(Transactions) a visible warning
	// row is appended instead of silently dropping the discrepancy.
	// Zero means "not reported".
	TransactionNodeCount int `json:"transactionNodeCount,omitempty"`

	Transactions []Transaction `json:"transactions"`
}

// IngestResult summarizes one processed filing.
type IngestResult struct {
	AccessionNumber string `json:"accessionNumber"`
	BatchID         string `json:"batchId"`
	RowCount        int    `json:"rowCount"`
	RollupCount     int    `json:"rollupCount"`
	MismatchCount   int    `json:"mismatchCount"`
	ParseWarning    bool   `json:"parseWarning"`
}
