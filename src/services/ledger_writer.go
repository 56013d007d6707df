package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/blackledger/backend/src/models"
	"github.com/username/blackledger/backend/src/utils"
)

// Configuration keys and ledger concepts written by the sync.
const (
	ConfigKeyBalanceNet       = "balance_neto"
	ConfigKeyCashbackApproved = "cashback_approved"
	ConfigKeyCashbackHold     = "cashback_hold"

	ConceptExternalSplit = "EXTERNAL_SPLIT"
)

type ledgerWriterImpl struct {
	db *sql.DB
}

func NewLedgerWriter(db *sql.DB) LedgerWriter {
	return &ledgerWriterImpl{db: db}
}

// UpsertConfig writes a keyed configuration value. At most one row per key
// ever exists; repeated writes replace the value and bump updated_at.
func (w *ledgerWriterImpl) UpsertConfig(key string, value decimal.Decimal, description string) error {
	_, err := w.db.Exec(`
		INSERT INTO configuration (key, numeric_value, description, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			numeric_value = excluded.numeric_value,
			description = excluded.description,
			updated_at = excluded.updated_at`,
		key, value.String(), description, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upserting configuration key %s: %w", key, err)
	}
	return nil
}

// UpsertMonthlyLedgerEntry guarantees exactly one ledger row per concept per
// calendar month: the first sync of the month inserts, later syncs update in
// place.
func (w *ledgerWriterImpl) UpsertMonthlyLedgerEntry(concept string, amountPrimary decimal.Decimal, billingDate time.Time) error {
	firstOfMonth := utils.FirstOfMonth(billingDate).Format(utils.DateOnlyFormat)
	billing := billingDate.Format(utils.DateOnlyFormat)

	var id int64
	err := w.db.QueryRow(`
		SELECT id FROM ledger_entries
		WHERE concept = ? AND billing_date >= ?
		ORDER BY billing_date DESC LIMIT 1`,
		concept, firstOfMonth).Scan(&id)

	switch {
	case err == sql.ErrNoRows:
		_, err = w.db.Exec(`
			INSERT INTO ledger_entries (concept, amount_primary, amount_secondary, billing_date, client_ref)
			VALUES (?, ?, '0', ?, NULL)`,
			concept, amountPrimary.String(), billing)
		if err != nil {
			return fmt.Errorf("inserting ledger entry for %s: %w", concept, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("looking up ledger entry for %s: %w", concept, err)
	default:
		_, err = w.db.Exec(`
			UPDATE ledger_entries SET amount_primary = ?, billing_date = ? WHERE id = ?`,
			amountPrimary.String(), billing, id)
		if err != nil {
			return fmt.Errorf("updating ledger entry %d for %s: %w", id, concept, err)
		}
		return nil
	}
}

// GetConfigValue reads a single configuration value; the boolean reports
// whether the key exists.
func (w *ledgerWriterImpl) GetConfigValue(key string) (decimal.Decimal, bool, error) {
	var raw string
	err := w.db.QueryRow(`SELECT numeric_value FROM configuration WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("reading configuration key %s: %w", key, err)
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("configuration key %s holds non-numeric value %q: %w", key, raw, err)
	}
	return value, true, nil
}

// GetConfigEntries returns every configuration row, for the dashboard read.
func (w *ledgerWriterImpl) GetConfigEntries() ([]models.ConfigEntry, error) {
	rows, err := w.db.Query(`SELECT key, numeric_value, description, updated_at FROM configuration ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("querying configuration: %w", err)
	}
	defer rows.Close()

	entries := []models.ConfigEntry{}
	for rows.Next() {
		var entry models.ConfigEntry
		var raw string
		var description sql.NullString
		var updatedAt sql.NullString
		if err := rows.Scan(&entry.Key, &raw, &description, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning configuration row: %w", err)
		}
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("configuration key %s holds non-numeric value %q: %w", entry.Key, raw, err)
		}
		entry.NumericValue = value
		entry.Description = description.String
		if updatedAt.Valid {
			if t, parseErr := time.Parse(time.RFC3339, updatedAt.String); parseErr == nil {
				entry.UpdatedAt = t
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating configuration rows: %w", err)
	}
	return entries, nil
}
