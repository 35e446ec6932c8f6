package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

// UsageRepository reads user_usage. Counters are written by the channel
// dispatchers, never here.
type UsageRepository struct {
	DB *sql.DB
}

func NewUsageRepository(db *sql.DB) *UsageRepository {
	return &UsageRepository{DB: db}
}

func (r *UsageRepository) ListAll(ctx context.Context) ([]entity.UsageCounter, error) {
	query := `
		SELECT user_id, calls_used, calls_limit, texts_used, texts_limit, emails_used, emails_limit
		FROM user_usage
		ORDER BY user_id
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	defer rows.Close()

	var counters []entity.UsageCounter
	for rows.Next() {
		var (
			c                       entity.UsageCounter
			callsUsed, callsLimit   sql.NullInt64
			textsUsed, textsLimit   sql.NullInt64
			emailsUsed, emailsLimit sql.NullInt64
		)
		if err := rows.Scan(&c.UserID, &callsUsed, &callsLimit, &textsUsed, &textsLimit, &emailsUsed, &emailsLimit); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		c.CallsUsed, c.CallsLimit = intPtr(callsUsed), intPtr(callsLimit)
		c.TextsUsed, c.TextsLimit = intPtr(textsUsed), intPtr(textsLimit)
		c.EmailsUsed, c.EmailsLimit = intPtr(emailsUsed), intPtr(emailsLimit)
		counters = append(counters, c)
	}
	return counters, rows.Err()
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
