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

// ProcessRepository implements domain.ProcessRepository using SQLite.
type ProcessRepository struct {
	db *sql.DB
}

// Compile-time check: ProcessRepository implements domain.ProcessRepository.
var _ domain.ProcessRepository = (*ProcessRepository)(nil)

// NewProcessRepository creates the repository on the store's connection.
func NewProcessRepository(s *Store) *ProcessRepository {
	return &ProcessRepository{db: s.db}
}

func (r *ProcessRepository) Create(ctx context.Context, def domain.ProcessDefinition) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO processes (id, org_id, code, name, allows_records, lifecycle, stage_revision, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		def.ID, def.OrgID, def.Code, def.Name,
		boolToInt(def.AllowsRecords), string(def.Lifecycle), def.StageRevision,
		def.CreatedAt.Format(timeFormat), def.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting process: %w", err)
	}
	return nil
}

func (r *ProcessRepository) GetByID(ctx context.Context, id string) (domain.ProcessDefinition, error) {
	def, err := r.scanProcess(r.db.QueryRowContext(ctx,
		`SELECT id, org_id, code, name, allows_records, lifecycle, stage_revision, created_at, updated_at
		 FROM processes WHERE id = ?`, id,
	))
	if err != nil {
		return domain.ProcessDefinition{}, err
	}

	def.Stages, err = r.loadStages(ctx, id)
	if err != nil {
		return domain.ProcessDefinition{}, err
	}

	return def, nil
}

func (r *ProcessRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.ProcessDefinition, error) {
	query := `SELECT id, org_id, code, name, allows_records, lifecycle, stage_revision, created_at, updated_at FROM processes`
	var conds []string
	var args []any

	if filter.OrgID != "" {
		conds = append(conds, `org_id = ?`)
		args = append(args, filter.OrgID)
	}
	if filter.Lifecycle != nil {
		conds = append(conds, `lifecycle = ?`)
		args = append(args, string(*filter.Lifecycle))
	}
	for i, cond := range conds {
		if i == 0 {
			query += ` WHERE ` + cond
		} else {
			query += ` AND ` + cond
		}
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}
	defer rows.Close()

	var defs []domain.ProcessDefinition
	for rows.Next() {
		def, err := r.scanProcessFromRows(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range defs {
		defs[i].Stages, err = r.loadStages(ctx, defs[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return defs, nil
}

func (r *ProcessRepository) Update(ctx context.Context, def domain.ProcessDefinition) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE processes SET name = ?, allows_records = ?, lifecycle = ?, updated_at = ?
		 WHERE id = ?`,
		def.Name, boolToInt(def.AllowsRecords), string(def.Lifecycle),
		time.Now().UTC().Format(timeFormat), def.ID,
	)
	if err != nil {
		return fmt.Errorf("updating process: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrProcessNotFound
	}

	return nil
}

// SaveStages replaces the full stage set and stage revision in one
// transaction.
func (r *ProcessRepository) SaveStages(ctx context.Context, def domain.ProcessDefinition) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE processes SET stage_revision = ?, updated_at = ? WHERE id = ?`,
		def.StageRevision, time.Now().UTC().Format(timeFormat), def.ID,
	)
	if err != nil {
		return fmt.Errorf("updating stage revision: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrProcessNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM stage_fields WHERE process_id = ?`, def.ID); err != nil {
		return fmt.Errorf("clearing stage fields: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM process_stages WHERE process_id = ?`, def.ID); err != nil {
		return fmt.Errorf("clearing stages: %w", err)
	}

	for i, stage := range def.Stages {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO process_stages (id, process_id, name, color, position, insert_order, is_initial, is_final)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			stage.ID, def.ID, stage.Name, stage.Color, stage.Order, i,
			boolToInt(stage.IsInitial), boolToInt(stage.IsFinal),
		)
		if err != nil {
			return fmt.Errorf("inserting stage %s: %w", stage.ID, err)
		}

		for j, field := range stage.Fields {
			options, err := json.Marshal(field.Options)
			if err != nil {
				return fmt.Errorf("encoding options for field %s: %w", field.ID, err)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO stage_fields (id, process_id, stage_id, name, type, required, options, insert_order)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				field.ID, def.ID, stage.ID, field.Name, string(field.Type),
				boolToInt(field.Required), string(options), j,
			)
			if err != nil {
				return fmt.Errorf("inserting field %s: %w", field.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing stage set: %w", err)
	}
	return nil
}

func (r *ProcessRepository) loadStages(ctx context.Context, processID string) ([]domain.Stage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, color, position, is_initial, is_final
		 FROM process_stages WHERE process_id = ? ORDER BY insert_order`, processID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading stages: %w", err)
	}
	defer rows.Close()

	var stages []domain.Stage
	for rows.Next() {
		var s domain.Stage
		var isInitial, isFinal int
		if err := rows.Scan(&s.ID, &s.Name, &s.Color, &s.Order, &isInitial, &isFinal); err != nil {
			return nil, fmt.Errorf("scanning stage: %w", err)
		}
		s.IsInitial = isInitial != 0
		s.IsFinal = isFinal != 0
		stages = append(stages, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fields, err := r.loadFields(ctx, processID)
	if err != nil {
		return nil, err
	}
	for i := range stages {
		stages[i].Fields = fields[stages[i].ID]
	}

	return stages, nil
}

func (r *ProcessRepository) loadFields(ctx context.Context, processID string) (map[string][]domain.FieldDefinition, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT stage_id, id, name, type, required, options
		 FROM stage_fields WHERE process_id = ? ORDER BY insert_order`, processID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading stage fields: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.FieldDefinition)
	for rows.Next() {
		var stageID, options string
		var f domain.FieldDefinition
		var fieldType string
		var required int
		if err := rows.Scan(&stageID, &f.ID, &f.Name, &fieldType, &required, &options); err != nil {
			return nil, fmt.Errorf("scanning stage field: %w", err)
		}
		f.Type = domain.FieldType(fieldType)
		f.Required = required != 0
		if err := json.Unmarshal([]byte(options), &f.Options); err != nil {
			return nil, fmt.Errorf("decoding options for field %s: %w", f.ID, err)
		}
		if len(f.Options) == 0 {
			f.Options = nil
		}
		out[stageID] = append(out[stageID], f)
	}
	return out, rows.Err()
}

func (r *ProcessRepository) scanProcess(row *sql.Row) (domain.ProcessDefinition, error) {
	var def domain.ProcessDefinition
	var allows int
	var lifecycle, createdAt, updatedAt string

	err := row.Scan(&def.ID, &def.OrgID, &def.Code, &def.Name, &allows, &lifecycle, &def.StageRevision, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProcessDefinition{}, domain.ErrProcessNotFound
		}
		return domain.ProcessDefinition{}, fmt.Errorf("scanning process: %w", err)
	}

	def.AllowsRecords = allows != 0
	def.Lifecycle = domain.Lifecycle(lifecycle)
	def.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	def.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return def, nil
}

func (r *ProcessRepository) scanProcessFromRows(rows *sql.Rows) (domain.ProcessDefinition, error) {
	var def domain.ProcessDefinition
	var allows int
	var lifecycle, createdAt, updatedAt string

	err := rows.Scan(&def.ID, &def.OrgID, &def.Code, &def.Name, &allows, &lifecycle, &def.StageRevision, &createdAt, &updatedAt)
	if err != nil {
		return domain.ProcessDefinition{}, fmt.Errorf("scanning process row: %w", err)
	}

	def.AllowsRecords = allows != 0
	def.Lifecycle = domain.Lifecycle(lifecycle)
	def.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	def.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return def, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
