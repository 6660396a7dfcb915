package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sergiocharata1977/9001app-v6-sub009/internal/domain"
)

// RecordRepository implements domain.RecordRepository using SQLite.
// Concurrency is optimistic: Update commits against the record's
// version and fails with domain.ErrVersionConflict when another writer
// got there first, so history append order always matches commit
// order.
type RecordRepository struct {
	db *sql.DB
}

// Compile-time check: RecordRepository implements domain.RecordRepository.
var _ domain.RecordRepository = (*RecordRepository)(nil)

// NewRecordRepository creates the repository on the store's connection.
func NewRecordRepository(s *Store) *RecordRepository {
	return &RecordRepository{db: s.db}
}

func (r *RecordRepository) Create(ctx context.Context, rec domain.ProcessRecord) error {
	data, err := json.Marshal(rec.CustomData)
	if err != nil {
		return fmt.Errorf("encoding custom data: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO process_records (id, process_id, title, current_stage_id, custom_data, progress, lifecycle, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ProcessID, rec.Title, rec.CurrentStageID, string(data),
		rec.Progress, string(rec.Lifecycle), rec.Version,
		rec.CreatedAt.Format(timeFormat), rec.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("record %s already exists: %w", rec.ID, err)
		}
		return fmt.Errorf("inserting record: %w", err)
	}

	if err := insertHistory(ctx, tx, rec); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing record: %w", err)
	}
	return nil
}

func (r *RecordRepository) GetByID(ctx context.Context, id string) (domain.ProcessRecord, error) {
	rec, err := r.scanRecord(r.db.QueryRowContext(ctx,
		`SELECT id, process_id, title, current_stage_id, custom_data, progress, lifecycle, version, created_at, updated_at
		 FROM process_records WHERE id = ?`, id,
	))
	if err != nil {
		return domain.ProcessRecord{}, err
	}

	rec.StateHistory, err = r.loadHistory(ctx, id)
	if err != nil {
		return domain.ProcessRecord{}, err
	}

	return rec, nil
}

func (r *RecordRepository) ListByProcess(ctx context.Context, processID string) ([]domain.ProcessRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, process_id, title, current_stage_id, custom_data, progress, lifecycle, version, created_at, updated_at
		 FROM process_records WHERE process_id = ? ORDER BY created_at DESC`, processID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var records []domain.ProcessRecord
	for rows.Next() {
		rec, err := r.scanRecordFromRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range records {
		records[i].StateHistory, err = r.loadHistory(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return records, nil
}

func (r *RecordRepository) Update(ctx context.Context, rec domain.ProcessRecord) error {
	data, err := json.Marshal(rec.CustomData)
	if err != nil {
		return fmt.Errorf("encoding custom data: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE process_records
		 SET current_stage_id = ?, custom_data = ?, progress = ?, lifecycle = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		rec.CurrentStageID, string(data), rec.Progress, string(rec.Lifecycle),
		time.Now().UTC().Format(timeFormat), rec.ID, rec.Version,
	)
	if err != nil {
		return fmt.Errorf("updating record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM process_records WHERE id = ?`, rec.ID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking record existence: %w", err)
		}
		if exists == 0 {
			return domain.ErrRecordNotFound
		}
		return domain.ErrVersionConflict
	}

	if err := insertHistory(ctx, tx, rec); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing record: %w", err)
	}
	return nil
}

func (r *RecordRepository) StageRefCounts(ctx context.Context, processID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT current_stage_id, COUNT(*) FROM process_records
		 WHERE process_id = ? GROUP BY current_stage_id`, processID,
	)
	if err != nil {
		return nil, fmt.Errorf("counting stage references: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var stageID string
		var count int
		if err := rows.Scan(&stageID, &count); err != nil {
			return nil, fmt.Errorf("scanning stage reference: %w", err)
		}
		out[stageID] = count
	}
	return out, rows.Err()
}

// insertHistory writes the record's unpersisted entries (Seq zero).
// The autoincrement seq preserves commit order.
func insertHistory(ctx context.Context, tx *sql.Tx, rec domain.ProcessRecord) error {
	for _, entry := range rec.StateHistory {
		if entry.Seq != 0 {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO record_history (record_id, stage_id, changed_at, changed_by, comment)
			 VALUES (?, ?, ?, ?, ?)`,
			rec.ID, entry.StageID, entry.ChangedAt.Format(timeFormat), entry.ChangedBy, entry.Comment,
		)
		if err != nil {
			return fmt.Errorf("inserting history entry: %w", err)
		}
	}
	return nil
}

func (r *RecordRepository) loadHistory(ctx context.Context, recordID string) ([]domain.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, stage_id, changed_at, changed_by, comment
		 FROM record_history WHERE record_id = ? ORDER BY seq`, recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		var changedAt string
		if err := rows.Scan(&e.Seq, &e.StageID, &changedAt, &e.ChangedBy, &e.Comment); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		e.ChangedAt, _ = time.Parse(timeFormat, changedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *RecordRepository) scanRecord(row *sql.Row) (domain.ProcessRecord, error) {
	var rec domain.ProcessRecord
	var data, lifecycle, createdAt, updatedAt string

	err := row.Scan(&rec.ID, &rec.ProcessID, &rec.Title, &rec.CurrentStageID, &data,
		&rec.Progress, &lifecycle, &rec.Version, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProcessRecord{}, domain.ErrRecordNotFound
		}
		return domain.ProcessRecord{}, fmt.Errorf("scanning record: %w", err)
	}

	if err := json.Unmarshal([]byte(data), &rec.CustomData); err != nil {
		return domain.ProcessRecord{}, fmt.Errorf("decoding custom data: %w", err)
	}
	rec.Lifecycle = domain.Lifecycle(lifecycle)
	rec.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	rec.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return rec, nil
}

func (r *RecordRepository) scanRecordFromRows(rows *sql.Rows) (domain.ProcessRecord, error) {
	var rec domain.ProcessRecord
	var data, lifecycle, createdAt, updatedAt string

	err := rows.Scan(&rec.ID, &rec.ProcessID, &rec.Title, &rec.CurrentStageID, &data,
		&rec.Progress, &lifecycle, &rec.Version, &createdAt, &updatedAt)
	if err != nil {
		return domain.ProcessRecord{}, fmt.Errorf("scanning record row: %w", err)
	}

	if err := json.Unmarshal([]byte(data), &rec.CustomData); err != nil {
		return domain.ProcessRecord{}, fmt.Errorf("decoding custom data: %w", err)
	}
	rec.Lifecycle = domain.Lifecycle(lifecycle)
	rec.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	rec.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return rec, nil
}
