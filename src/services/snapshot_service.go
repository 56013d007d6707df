package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/blackledger/backend/src/logger"
	"github.com/username/blackledger/backend/src/models"
	"github.com/username/blackledger/backend/src/utils"
)

type snapshotServiceImpl struct {
	db     *sql.DB
	ledger LedgerWriter
}

func NewSnapshotService(db *sql.DB, ledger LedgerWriter) SnapshotService {
	return &snapshotServiceImpl{db: db, ledger: ledger}
}

// TakeSnapshotForPreviousPeriod freezes the current configuration values into
// an immutable row for the calendar month that just ended. Calling it again
// for the same period is a no-op that reports the existing row.
func (s *snapshotServiceImpl) TakeSnapshotForPreviousPeriod() (models.SnapshotResult, error) {
	period, year, month := utils.PreviousPeriod(time.Now())

	existing, err := s.GetSnapshot(period)
	if err != nil {
		return models.SnapshotResult{}, err
	}
	if existing != nil {
		logger.L.Info("snapshot already exists, leaving it untouched", "period", period)
		return models.SnapshotResult{
			Success:       true,
			Period:        period,
			AlreadyExists: true,
			Snapshot:      existing,
			Message:       fmt.Sprintf("snapshot for %s already exists", period),
		}, nil
	}

	split, err := s.configValueOrZero(ConfigKeyBalanceNet)
	if err != nil {
		return models.SnapshotResult{}, err
	}
	cashbackApproved, err := s.configValueOrZero(ConfigKeyCashbackApproved)
	if err != nil {
		return models.SnapshotResult{}, err
	}
	cashbackHold, err := s.configValueOrZero(ConfigKeyCashbackHold)
	if err != nil {
		return models.SnapshotResult{}, err
	}

	accountsBalanceTotal := split.Mul(decimal.NewFromInt(2))
	takenAt := time.Now().UTC().Format(time.RFC3339)

	_, err = s.db.Exec(`
		INSERT INTO period_snapshots
			(period, year, month, accounts_balance_total, split_amount, cashback_approved, cashback_hold, snapshot_taken_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		period, year, month,
		accountsBalanceTotal.String(), split.String(),
		cashbackApproved.String(), cashbackHold.String(), takenAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique constraint") {
			logger.L.Warn("snapshot insert raced with another writer", "period", period)
			existing, getErr := s.GetSnapshot(period)
			if getErr != nil {
				return models.SnapshotResult{}, getErr
			}
			return models.SnapshotResult{
				Success:       true,
				Period:        period,
				AlreadyExists: true,
				Snapshot:      existing,
				Message:       fmt.Sprintf("snapshot for %s already exists", period),
			}, nil
		}
		return models.SnapshotResult{}, fmt.Errorf("inserting snapshot for %s: %w", period, err)
	}

	logger.L.Info("snapshot taken",
		"period", period,
		"accounts_balance_total", accountsBalanceTotal.String(),
		"split_amount", split.String())

	created, err := s.GetSnapshot(period)
	if err != nil {
		return models.SnapshotResult{}, err
	}
	return models.SnapshotResult{
		Success:  true,
		Period:   period,
		Snapshot: created,
		Message:  fmt.Sprintf("snapshot for %s created", period),
	}, nil
}

// GetSnapshot returns the snapshot for a MM-YYYY period, or nil when no
// snapshot exists for it.
func (s *snapshotServiceImpl) GetSnapshot(period string) (*models.Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT id, period, year, month, accounts_balance_total, split_amount,
		       cashback_approved, cashback_hold, snapshot_taken_at, notes
		FROM period_snapshots WHERE period = ?`, period)
	snapshot, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot for %s: %w", period, err)
	}
	return snapshot, nil
}

// ListSnapshots returns every snapshot, newest period first.
func (s *snapshotServiceImpl) ListSnapshots() ([]models.Snapshot, error) {
	rows, err := s.db.Query(`
		SELECT id, period, year, month, accounts_balance_total, split_amount,
		       cashback_approved, cashback_hold, snapshot_taken_at, notes
		FROM period_snapshots ORDER BY year DESC, month DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []models.Snapshot{}
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		snapshots = append(snapshots, *snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshot rows: %w", err)
	}
	return snapshots, nil
}

func (s *snapshotServiceImpl) configValueOrZero(key string) (decimal.Decimal, error) {
	value, found, err := s.ledger.GetConfigValue(key)
	if err != nil {
		return decimal.Zero, err
	}
	if !found {
		logger.L.Warn("configuration key missing at snapshot time, using zero", "key", key)
		return decimal.Zero, nil
	}
	return value, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*models.Snapshot, error) {
	var snapshot models.Snapshot
	var total, split, approved, hold string
	var takenAt, notes sql.NullString
	err := row.Scan(&snapshot.ID, &snapshot.Period, &snapshot.Year, &snapshot.Month,
		&total, &split, &approved, &hold, &takenAt, &notes)
	if err != nil {
		return nil, err
	}
	if snapshot.AccountsBalanceTotal, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parsing accounts_balance_total %q: %w", total, err)
	}
	if snapshot.SplitAmount, err = decimal.NewFromString(split); err != nil {
		return nil, fmt.Errorf("parsing split_amount %q: %w", split, err)
	}
	if snapshot.CashbackApproved, err = decimal.NewFromString(approved); err != nil {
		return nil, fmt.Errorf("parsing cashback_approved %q: %w", approved, err)
	}
	if snapshot.CashbackHold, err = decimal.NewFromString(hold); err != nil {
		return nil, fmt.Errorf("parsing cashback_hold %q: %w", hold, err)
	}
	snapshot.SnapshotTakenAt = takenAt.String
	snapshot.Notes = notes.String
	return &snapshot, nil
}
