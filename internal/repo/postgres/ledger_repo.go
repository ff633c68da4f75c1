package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Acrellux/vctools-sub001/internal/domain/enums"
	"github.com/Acrellux/vctools-sub001/internal/domain/model"
)

// ErrDuplicateID maps the store's uniqueness violation on the ledger primary
// key. Callers treat it as retryable: re-read the max and insert once more.
var ErrDuplicateID = errors.New("ledger id already taken")

const uniqueViolationCode = "23505"

type LedgerRepo struct {
	pool *pgxpool.Pool
}

func NewLedgerRepo(pool *pgxpool.Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

func (r *LedgerRepo) MaxID(ctx context.Context) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var maxID int64
	if err := r.pool.QueryRow(ctx, `
SELECT COALESCE(MAX(id), 0)
FROM mod_actions
`).Scan(&maxID); err != nil {
		return 0, fmt.Errorf("read max ledger id: %w", err)
	}

	return maxID, nil
}

func (r *LedgerRepo) Insert(ctx context.Context, action model.ModerationAction) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	_, err := r.pool.Exec(ctx, `
INSERT INTO mod_actions (id, guild_id, target_id, actor_id, kind, reason, duration_seconds, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`,
		action.ID,
		action.GuildID,
		action.TargetID,
		action.ActorID,
		string(action.Kind),
		action.Reason,
		action.DurationSeconds,
		action.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return fmt.Errorf("insert ledger row %d: %w", action.ID, ErrDuplicateID)
		}
		return fmt.Errorf("insert ledger row: %w", err)
	}

	return nil
}

// ListByIdentity returns the guild's records where the identity appears as
// target or actor, newest first.
func (r *LedgerRepo) ListByIdentity(ctx context.Context, guildID, identity string, limit int) ([]model.ModerationAction, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, guild_id, target_id, actor_id, kind, reason, duration_seconds, created_at
FROM mod_actions
WHERE guild_id = $1
  AND (target_id = $2 OR actor_id = $2)
ORDER BY id DESC
LIMIT $3
`, guildID, identity, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger rows: %w", err)
	}
	defer rows.Close()

	result := make([]model.ModerationAction, 0, limit)
	for rows.Next() {
		var action model.ModerationAction
		var kind string
		if err := rows.Scan(
			&action.ID,
			&action.GuildID,
			&action.TargetID,
			&action.ActorID,
			&kind,
			&action.Reason,
			&action.DurationSeconds,
			&action.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		action.Kind = enumsKind(kind)
		result = append(result, action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}

	return result, nil
}

// ListByGuild returns every record of one guild, oldest first. Export
// consumers want chronological order.
func (r *LedgerRepo) ListByGuild(ctx context.Context, guildID string) ([]model.ModerationAction, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, guild_id, target_id, actor_id, kind, reason, duration_seconds, created_at
FROM mod_actions
WHERE guild_id = $1
ORDER BY id ASC
`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list guild ledger rows: %w", err)
	}
	defer rows.Close()

	var result []model.ModerationAction
	for rows.Next() {
		var action model.ModerationAction
		var kind string
		if err := rows.Scan(
			&action.ID,
			&action.GuildID,
			&action.TargetID,
			&action.ActorID,
			&kind,
			&action.Reason,
			&action.DurationSeconds,
			&action.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		action.Kind = enumsKind(kind)
		result = append(result, action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}

	return result, nil
}

// Delete removes a row only when both the id and the guild match. The guild
// predicate is the defense against cross-tenant deletion and must stay.
func (r *LedgerRepo) Delete(ctx context.Context, id int64, guildID string) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM mod_actions
WHERE id = $1 AND guild_id = $2
`, id, guildID)
	if err != nil {
		return false, fmt.Errorf("delete ledger row: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func enumsKind(raw string) enums.ActionKind {
	if kind, ok := enums.ParseActionKind(raw); ok {
		return kind
	}
	return enums.ActionKind(raw)
}
