package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fieldline/intakeflow/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists aggregates in normalized tables. Transcript turns
// are append-only rows keyed by (session_id, seq), so re-saving a session is
// idempotent for turns already written.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) CreateSession(ctx context.Context, s *domain.IntakeSession) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO intake_sessions (id, owner_id, status, title, department, description,
			location, business_unit, contact_email, queue_priority, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.OwnerID, s.Status,
		s.Fields.Title, s.Fields.Department, s.Fields.Description,
		s.Fields.Location, s.Fields.BusinessUnit, s.Fields.ContactEmail, s.Fields.QueuePriority,
		s.CreatedAt, s.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	if err := insertTurns(ctx, tx, s); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (p *PostgresStore) GetSession(ctx context.Context, id string) (*domain.IntakeSession, error) {
	s := &domain.IntakeSession{}
	var promoted *string
	err := p.pool.QueryRow(ctx, `
		SELECT id, owner_id, status, title, department, description,
			location, business_unit, contact_email, queue_priority,
			analysis_brief, analysis_checkpoints, analysis_actionables,
			promoted_process_id, created_at, updated_at
		FROM intake_sessions WHERE id = $1`, id,
	).Scan(
		&s.ID, &s.OwnerID, &s.Status,
		&s.Fields.Title, &s.Fields.Department, &s.Fields.Description,
		&s.Fields.Location, &s.Fields.BusinessUnit, &s.Fields.ContactEmail, &s.Fields.QueuePriority,
		&s.AnalysisBrief, &s.AnalysisCheckpoints, &s.AnalysisActionables,
		&promoted, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if promoted != nil {
		s.PromotedProcessID = *promoted
	}

	rows, err := p.pool.Query(ctx, `
		SELECT role, body, created_at FROM intake_turns
		WHERE session_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("get turns: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t domain.ChatTurn
		if err := rows.Scan(&t.Role, &t.Text, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		s.Transcript = append(s.Transcript, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	attRows, err := p.pool.Query(ctx, `
		SELECT id, file_name, declared_type, storage_locator, size_bytes, enriched_text
		FROM intake_attachments WHERE session_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("get attachments: %w", err)
	}
	defer attRows.Close()
	for attRows.Next() {
		a := domain.Attachment{OwnerSessionID: id}
		if err := attRows.Scan(&a.ID, &a.FileName, &a.DeclaredType, &a.StorageLocator, &a.SizeBytes, &a.EnrichedText); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		s.Attachments = append(s.Attachments, a)
	}
	if err := attRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}

	return s, nil
}

func (p *PostgresStore) SaveSession(ctx context.Context, s *domain.IntakeSession) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := updateSessionRow(ctx, tx, s); err != nil {
		return err
	}
	if err := insertTurns(ctx, tx, s); err != nil {
		return err
	}
	for _, a := range s.Attachments {
		if _, err := tx.Exec(ctx, `
			INSERT INTO intake_attachments (id, session_id, file_name, declared_type, storage_locator, size_bytes, enriched_text)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET enriched_text = EXCLUDED.enriched_text`,
			a.ID, s.ID, a.FileName, a.DeclaredType, a.StorageLocator, a.SizeBytes, a.EnrichedText,
		); err != nil {
			return fmt.Errorf("upsert attachment: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (p *PostgresStore) ListSessionsByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.IntakeSession, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, owner_id, status, title, department, description,
			location, business_unit, contact_email, queue_priority,
			promoted_process_id, created_at, updated_at
		FROM intake_sessions WHERE owner_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.IntakeSession
	for rows.Next() {
		var s domain.IntakeSession
		var promoted *string
		if err := rows.Scan(
			&s.ID, &s.OwnerID, &s.Status,
			&s.Fields.Title, &s.Fields.Department, &s.Fields.Description,
			&s.Fields.Location, &s.Fields.BusinessUnit, &s.Fields.ContactEmail, &s.Fields.QueuePriority,
			&promoted, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if promoted != nil {
			s.PromotedProcessID = *promoted
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *PostgresStore) PromoteSession(ctx context.Context, s *domain.IntakeSession, rec *domain.ProcessRecord) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO process_records (id, name, description, department, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.Name, rec.Description, rec.Department, rec.OwnerID, rec.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert process record: %w", err)
	}

	if len(rec.Attachments) > 0 {
		batch := make([][]any, len(rec.Attachments))
		for i, a := range rec.Attachments {
			batch[i] = []any{a.ID, rec.ID, a.FileName, a.DeclaredType, a.StorageLocator, a.SizeBytes, a.EnrichedText}
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"process_attachments"},
			[]string{"id", "process_id", "file_name", "declared_type", "storage_locator", "size_bytes", "enriched_text"},
			pgx.CopyFromRows(batch),
		); err != nil {
			return fmt.Errorf("copy process attachments: %w", err)
		}
	}

	if err := updateSessionRow(ctx, tx, s); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (p *PostgresStore) GetProcess(ctx context.Context, id string) (*domain.ProcessRecord, error) {
	rec := &domain.ProcessRecord{}
	err := p.pool.QueryRow(ctx, `
		SELECT id, name, description, department, owner_id, created_at
		FROM process_records WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.Name, &rec.Description, &rec.Department, &rec.OwnerID, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProcessNotFound
		}
		return nil, fmt.Errorf("get process: %w", err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, file_name, declared_type, storage_locator, size_bytes, enriched_text
		FROM process_attachments WHERE process_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("get process attachments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		a := domain.ProcessAttachment{ProcessID: id}
		if err := rows.Scan(&a.ID, &a.FileName, &a.DeclaredType, &a.StorageLocator, &a.SizeBytes, &a.EnrichedText); err != nil {
			return nil, fmt.Errorf("scan process attachment: %w", err)
		}
		rec.Attachments = append(rec.Attachments, a)
	}
	return rec, rows.Err()
}

func updateSessionRow(ctx context.Context, tx pgx.Tx, s *domain.IntakeSession) error {
	var promoted *string
	if s.PromotedProcessID != "" {
		promoted = &s.PromotedProcessID
	}
	checkpoints := s.AnalysisCheckpoints
	if checkpoints == nil {
		checkpoints = []string{}
	}
	actionables := s.AnalysisActionables
	if actionables == nil {
		actionables = []string{}
	}
	tag, err := tx.Exec(ctx, `
		UPDATE intake_sessions SET
			status = $2, title = $3, department = $4, description = $5,
			location = $6, business_unit = $7, contact_email = $8, queue_priority = $9,
			analysis_brief = $10, analysis_checkpoints = $11, analysis_actionables = $12,
			promoted_process_id = $13, updated_at = $14
		WHERE id = $1`,
		s.ID, s.Status,
		s.Fields.Title, s.Fields.Department, s.Fields.Description,
		s.Fields.Location, s.Fields.BusinessUnit, s.Fields.ContactEmail, s.Fields.QueuePriority,
		s.AnalysisBrief, checkpoints, actionables,
		promoted, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func insertTurns(ctx context.Context, tx pgx.Tx, s *domain.IntakeSession) error {
	for seq, t := range s.Transcript {
		if _, err := tx.Exec(ctx, `
			INSERT INTO intake_turns (session_id, seq, role, body, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (session_id, seq) DO NOTHING`,
			s.ID, seq, t.Role, t.Text, t.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}
	return nil
}
