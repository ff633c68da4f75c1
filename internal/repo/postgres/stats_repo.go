package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Acrellux/vctools-sub001/internal/domain/model"
	"github.com/Acrellux/vctools-sub001/internal/services/stats"
)

type StatsRepo struct {
	pool *pgxpool.Pool
}

func NewStatsRepo(pool *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{pool: pool}
}

// Aggregate rolls the guild's ledger up per actor with day/week/month
// windows applied store-side.
func (r *StatsRepo) Aggregate(ctx context.Context, guildID string, bounds stats.PeriodBounds) (model.ActivityReport, error) {
	if r.pool == nil {
		return model.ActivityReport{}, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT actor_id,
       COUNT(*) FILTER (WHERE created_at >= $2 AND created_at < $3) AS day_count,
       COUNT(*) FILTER (WHERE created_at >= $4 AND created_at < $5) AS week_count,
       COUNT(*) FILTER (WHERE created_at >= $6 AND created_at < $7) AS month_count,
       COUNT(*) AS all_count
FROM mod_actions
WHERE guild_id = $1
GROUP BY actor_id
ORDER BY all_count DESC, actor_id ASC
`,
		guildID,
		bounds.DayStart, bounds.DayEnd,
		bounds.WeekStart, bounds.WeekEnd,
		bounds.MonthStart, bounds.MonthEnd,
	)
	if err != nil {
		return model.ActivityReport{}, fmt.Errorf("aggregate activity rows: %w", err)
	}
	defer rows.Close()

	var report model.ActivityReport
	for rows.Next() {
		var actor model.ActivityActor
		if err := rows.Scan(&actor.ActorID, &actor.Day, &actor.Week, &actor.Month, &actor.All); err != nil {
			return model.ActivityReport{}, fmt.Errorf("scan activity row: %w", err)
		}
		report.Actors = append(report.Actors, actor)
		report.Totals.Day += actor.Day
		report.Totals.Week += actor.Week
		report.Totals.Month += actor.Month
		report.Totals.All += actor.All
	}
	if err := rows.Err(); err != nil {
		return model.ActivityReport{}, fmt.Errorf("iterate activity rows: %w", err)
	}

	return report, nil
}
