package database

import (
	"database/sql"
	"fmt"
	stdlog "log"

	"github.com/username/blackledger/backend/src/logger"
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
		logger.L.Info("Ensuring database schema", "databasePath", databasePath)
	} else {
		stdlog.Println("Ensuring database schema for:", databasePath)
	}

	if err := EnsureSchema(DB); err != nil {
		if logger.L != nil {
			logger.L.Error("failed to ensure database schema", "error", err)
		}
		stdlog.Fatalf("failed to ensure database schema: %v", err)
	}

	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// EnsureSchema creates the tables if missing and applies column migrations.
// Exposed separately from InitDB so tests can run it against their own handles.
func EnsureSchema(db *sql.DB) error {
	createTableStatement := `
	CREATE TABLE IF NOT EXISTS configuration (
		key TEXT PRIMARY KEY,
		numeric_value TEXT NOT NULL,
		description TEXT,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS ledger_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		concept TEXT NOT NULL,
		amount_primary TEXT NOT NULL,
		amount_secondary TEXT NOT NULL DEFAULT '0',
		billing_date TEXT NOT NULL,
		client_ref TEXT
	);

	CREATE TABLE IF NOT EXISTS period_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		period TEXT NOT NULL UNIQUE,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		accounts_balance_total TEXT NOT NULL,
		split_amount TEXT NOT NULL,
		cashback_approved TEXT NOT NULL DEFAULT '0',
		cashback_hold TEXT NOT NULL DEFAULT '0',
		snapshot_taken_at TIMESTAMP,
		notes TEXT
	);
	`

	if _, err := db.Exec(createTableStatement); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}

	migrateLedgerEntriesTable(db)
	migrateSnapshotTable(db)
	return nil
}

func migrateLedgerEntriesTable(db *sql.DB) {
	columnExists, err := tableColumns(db, "ledger_entries")
	if err != nil {
		logColumnError("ledger_entries", err)
		return
	}
	if len(columnExists) == 0 {
		return
	}

	if _, ok := columnExists["amount_secondary"]; !ok {
		if _, err := db.Exec("ALTER TABLE ledger_entries ADD COLUMN amount_secondary TEXT NOT NULL DEFAULT '0'"); err != nil {
			logColumnError("ledger_entries.amount_secondary", err)
		} else if logger.L != nil {
			logger.L.Info("Added 'amount_secondary' column to 'ledger_entries' table")
		}
	}
	if _, ok := columnExists["client_ref"]; !ok {
		if _, err := db.Exec("ALTER TABLE ledger_entries ADD COLUMN client_ref TEXT"); err != nil {
			logColumnError("ledger_entries.client_ref", err)
		} else if logger.L != nil {
			logger.L.Info("Added 'client_ref' column to 'ledger_entries' table")
		}
	}
}

func migrateSnapshotTable(db *sql.DB) {
	columnExists, err := tableColumns(db, "period_snapshots")
	if err != nil {
		logColumnError("period_snapshots", err)
		return
	}
	if len(columnExists) == 0 {
		return
	}

	if _, ok := columnExists["notes"]; !ok {
		if _, err := db.Exec("ALTER TABLE period_snapshots ADD COLUMN notes TEXT"); err != nil {
			logColumnError("period_snapshots.notes", err)
		} else if logger.L != nil {
			logger.L.Info("Added 'notes' column to 'period_snapshots' table")
		}
	}
}

// tableColumns returns the existing column set for a table, or an empty map
// when the table does not exist yet.
func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	var tableName string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&tableName)
	if err == sql.ErrNoRows {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checking for table %s: %w", table, err)
	}

	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("querying schema for %s: %w", table, err)
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}

		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scanning column info for %s: %w", table, err)
		}
		columnExists[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating column info for %s: %w", table, err)
	}
	return columnExists, nil
}

func logColumnError(what string, err error) {
	if logger.L != nil {
		logger.L.Error("Database migration step failed", "target", what, "error", err)
	} else {
		stdlog.Printf("Database migration step failed for %s: %v", what, err)
	}
}
