package usage

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// UserDirectory lists every known user for cross-user rollups.
type UserDirectory interface {
	ListUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

// DailyUserRow is one user's usage within a DailyReport.
type DailyUserRow struct {
	UserID      uuid.UUID `json:"user_id"`
	ActionCount int64     `json:"action_count"`
	InputUnits  int64     `json:"input_units"`
	OutputUnits int64     `json:"output_units"`
	CostMicros  int64     `json:"cost_micros"`
}

// DailyReport is the per-date rollup for the admin dashboard.
type DailyReport struct {
	Date            string         `json:"date"`
	TotalActions    int64          `json:"total_actions"`
	TotalCostMicros int64          `json:"total_cost_micros"`
	PerUser         []DailyUserRow `json:"per_user"`
}

// UserSummary is one user's usage across all days.
type UserSummary struct {
	UserID              uuid.UUID  `json:"user_id"`
	TotalActionsAllTime int64      `json:"total_actions_all_time"`
	ActionsToday        int64      `json:"actions_today"`
	LastActivityAt      *time.Time `json:"last_activity_at,omitempty"`
}

// AllUsersReport composes UserSummary over every known user.
type AllUsersReport struct {
	TotalActionsToday   int64         `json:"total_actions_today"`
	TotalActionsAllTime int64         `json:"total_actions_all_time"`
	Users               []UserSummary `json:"users"`
}

// Aggregator computes read-only rollups over the counter store. Views are
// always recomputed, never persisted, so they cannot go stale.
type Aggregator struct {
	store CounterStore
	users UserDirectory
}

func NewAggregator(store CounterStore, users UserDirectory) *Aggregator {
	return &Aggregator{store: store, users: users}
}

// DailyReport scans one day's records. Users with no actions that day are
// omitted; rows are ordered by action count descending, user ID ascending
// as the tie-break so output is deterministic.
func (a *Aggregator) DailyReport(ctx context.Context, date string) (*DailyReport, error) {
	recs, err := a.store.QueryByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	report := &DailyReport{Date: date, PerUser: []DailyUserRow{}}
	for _, rec := range recs {
		if rec.ActionCount <= 0 {
			continue
		}
		report.TotalActions += rec.ActionCount
		report.TotalCostMicros += rec.CostMicros
		report.PerUser = append(report.PerUser, DailyUserRow{
			UserID:      rec.UserID,
			ActionCount: rec.ActionCount,
			InputUnits:  rec.InputUnits,
			OutputUnits: rec.OutputUnits,
			CostMicros:  rec.CostMicros,
		})
	}

	sort.Slice(report.PerUser, func(i, j int) bool {
		if report.PerUser[i].ActionCount != report.PerUser[j].ActionCount {
			return report.PerUser[i].ActionCount > report.PerUser[j].ActionCount
		}
		return report.PerUser[i].UserID.String() < report.PerUser[j].UserID.String()
	})

	return report, nil
}

// UserSummary scans all of one user's records, isolating today's bucket by
// exact date match. LastActivityAt is nil when the user has no records.
func (a *Aggregator) UserSummary(ctx context.Context, userID uuid.UUID) (*UserSummary, error) {
	recs, err := a.store.QueryByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := Today()
	summary := &UserSummary{UserID: userID}
	for _, rec := range recs {
		summary.TotalActionsAllTime += rec.ActionCount
		if rec.Date == today {
			summary.ActionsToday += rec.ActionCount
		}
		if summary.LastActivityAt == nil || rec.LastUpdatedAt.After(*summary.LastActivityAt) {
			t := rec.LastUpdatedAt
			summary.LastActivityAt = &t
		}
	}
	return summary, nil
}

// AllUsersReport fans out UserSummary over every known user and adds grand
// totals. The per-user fan-out matches the store's partitioning; a date
// index would collapse it into one range query at larger scale.
func (a *Aggregator) AllUsersReport(ctx context.Context) (*AllUsersReport, error) {
	ids, err := a.users.ListUserIDs(ctx)
	if err != nil {
		return nil, err
	}

	report := &AllUsersReport{Users: make([]UserSummary, 0, len(ids))}
	for _, id := range ids {
		summary, err := a.UserSummary(ctx, id)
		if err != nil {
			return nil, err
		}
		report.TotalActionsToday += summary.ActionsToday
		report.TotalActionsAllTime += summary.TotalActionsAllTime
		report.Users = append(report.Users, *summary)
	}

	sort.Slice(report.Users, func(i, j int) bool {
		if report.Users[i].ActionsToday != report.Users[j].ActionsToday {
			return report.Users[i].ActionsToday > report.Users[j].ActionsToday
		}
		if report.Users[i].TotalActionsAllTime != report.Users[j].TotalActionsAllTime {
			return report.Users[i].TotalActionsAllTime > report.Users[j].TotalActionsAllTime
		}
		return report.Users[i].UserID.String() < report.Users[j].UserID.String()
	})

	return report, nil
}
