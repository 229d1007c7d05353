package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/insiderfolio/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	}
	migrateTransactionRows()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS filings (
		accession_number TEXT PRIMARY KEY,
		filed_date TEXT,
		filing_url TEXT,
		issuer_cik TEXT,
		issuer_name TEXT,
		owner_cik TEXT,
		owner_name TEXT,
		batch_id TEXT,
		row_count INTEGER,
		parse_warning BOOLEAN DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS transaction_rows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		accession_number TEXT NOT NULL,
		row_seq INTEGER NOT NULL,
		row_kind TEXT NOT NULL,
		event_id TEXT,
		link_role TEXT,
		label TEXT,
		filed_date TEXT,
		filing_url TEXT,
		issuer_cik TEXT,
		issuer_name TEXT,
		issuer_symbol TEXT,
		owner_cik TEXT,
		owner_name TEXT,
		officer_title TEXT,
		security_title TEXT,
		transaction_code TEXT,
		is_derivative BOOLEAN,
		acquired_disposed TEXT,
		shares REAL,
		signed_shares REAL,
		price_per_share REAL,
		value REAL,
		shares_after REAL,
		trade_date TEXT,
		is_plan BOOLEAN,
		tax_type TEXT,
		plan_adoption_date TEXT,
		filing_order INTEGER,
		aggregate_type TEXT,
		aggregate_shares REAL,
		aggregate_value REAL,
		price_range_min REAL,
		price_range_max REAL,
		trade_date_start TEXT,
		trade_date_end TEXT,
		exercise_shares_est REAL,
		exercise_shares_method TEXT,
		sold_non_tax_sum REAL,
		match_delta REAL,
		match_status TEXT,
		tolerance_used BOOLEAN,
		has_tax_rows BOOLEAN,
		linked_txn_count INTEGER,
		FOREIGN KEY(accession_number) REFERENCES filings(accession_number),
		UNIQUE(accession_number, row_seq)
	);

	CREATE INDEX IF NOT EXISTS idx_transaction_rows_owner
		ON transaction_rows(owner_cik, filed_date);
	CREATE INDEX IF NOT EXISTS idx_transaction_rows_kind
		ON transaction_rows(row_kind);
	`

	if _, err = DB.Exec(createTableStatement); err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	}
}

// migrateTransactionRows backfills columns added after the first release.
func migrateTransactionRows() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='transaction_rows'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			return // table will be created with the full schema
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'transaction_rows' table", "error", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(transaction_rows)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error reading transaction_rows schema", "error", err)
		}
		return
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			continue
		}
		existing[name] = true
	}

	// plan_adoption_date arrived with the plan-metadata pass-through.
	if !existing["plan_adoption_date"] {
		if _, err := DB.Exec("ALTER TABLE transaction_rows ADD COLUMN plan_adoption_date TEXT"); err != nil {
			stdlog.Printf("failed to add plan_adoption_date column: %v", err)
		} else if logger.L != nil {
			logger.L.Info("Added 'plan_adoption_date' column to transaction_rows")
		}
	}
}
