package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type ConversationRepository struct {
	DB *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{DB: db}
}

func (r *ConversationRepository) List(ctx context.Context, leadID string, filter entity.ConversationFilter) ([]entity.ConversationEntry, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, lead_id, message_type, sender, text, created_at FROM conversation_entries WHERE lead_id = $1`)
	args := []any{leadID}

	if filter.Sender != "" {
		args = append(args, string(filter.Sender))
		fmt.Fprintf(&sb, " AND sender = $%d", len(args))
	}
	if filter.MessageType != "" {
		args = append(args, string(filter.MessageType))
		fmt.Fprintf(&sb, " AND message_type = $%d", len(args))
	}
	if filter.After != nil {
		args = append(args, *filter.After)
		fmt.Fprintf(&sb, " AND created_at > $%d", len(args))
	}
	if filter.Order == entity.OrderDesc {
		sb.WriteString(" ORDER BY created_at DESC")
	} else {
		sb.WriteString(" ORDER BY created_at ASC")
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	rows, err := r.DB.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	defer rows.Close()

	var entries []entity.ConversationEntry
	for rows.Next() {
		var e entity.ConversationEntry
		if err := rows.Scan(&e.ID, &e.LeadID, &e.MessageType, &e.Sender, &e.Text, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LatestBySender returns nil, nil when the sender never wrote to this lead.
func (r *ConversationRepository) LatestBySender(ctx context.Context, leadID string, sender entity.Sender) (*entity.ConversationEntry, error) {
	return latestBySender(ctx, r.DB, leadID, sender)
}

func (r *ConversationRepository) CountAfter(ctx context.Context, leadID string, messageType entity.MessageType, after time.Time) (int, error) {
	return countAfter(ctx, r.DB, leadID, messageType, after)
}

// Append writes an entry under the lead row lock. created_at becomes the
// later of the requested time (now when zero) and one microsecond after the
// lead's newest entry, so it strictly increases per lead.
func (r *ConversationRepository) Append(ctx context.Context, entry *entity.ConversationEntry) error {
	return r.appendTx(ctx, entry, nil)
}

// AppendFollowUp writes a follow-up only if the latest reply and the
// follow-up count still match what the decision was based on.
func (r *ConversationRepository) AppendFollowUp(ctx context.Context, entry *entity.ConversationEntry, expected entity.CadenceSnapshot) error {
	return r.appendTx(ctx, entry, &expected)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *ConversationRepository) appendTx(ctx context.Context, entry *entity.ConversationEntry, expected *entity.CadenceSnapshot) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var locked string
	err = tx.QueryRowContext(ctx, `SELECT id FROM leads WHERE id = $1 FOR UPDATE`, entry.LeadID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.ErrLeadNotFound
	}
	if err != nil {
		return fmt.Errorf("lock lead: %w", err)
	}

	if expected != nil {
		last, err := latestBySender(ctx, tx, entry.LeadID, entity.SenderUser)
		if err != nil {
			return err
		}
		if last == nil || last.ID != expected.LastUserEntryID {
			return entity.ErrStaleConversation
		}
		n, err := countAfter(ctx, tx, entry.LeadID, entity.MessageFollowUp, last.CreatedAt)
		if err != nil {
			return err
		}
		if n != expected.FollowUps {
			return entity.ErrStaleConversation
		}
	}

	requested := entry.CreatedAt
	if requested.IsZero() {
		requested = time.Now()
	}
	requested = requested.UTC().Truncate(time.Microsecond)

	query := `
		INSERT INTO conversation_entries (id, lead_id, message_type, sender, text, created_at)
		VALUES ($1, $2, $3, $4, $5, GREATEST(
			$6::timestamptz,
			COALESCE((SELECT MAX(created_at) FROM conversation_entries WHERE lead_id = $2) + INTERVAL '1 microsecond', $6::timestamptz)
		))
		RETURNING created_at
	`
	var createdAt time.Time
	err = tx.QueryRowContext(ctx, query,
		entry.ID,
		entry.LeadID,
		string(entry.MessageType),
		string(entry.Sender),
		entry.Text,
		requested,
	).Scan(&createdAt)
	if err != nil {
		return fmt.Errorf("insert conversation entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	entry.CreatedAt = createdAt
	return nil
}

func latestBySender(ctx context.Context, q querier, leadID string, sender entity.Sender) (*entity.ConversationEntry, error) {
	query := `
		SELECT id, lead_id, message_type, sender, text, created_at
		FROM conversation_entries
		WHERE lead_id = $1 AND sender = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	var e entity.ConversationEntry
	err := q.QueryRowContext(ctx, query, leadID, string(sender)).Scan(
		&e.ID, &e.LeadID, &e.MessageType, &e.Sender, &e.Text, &e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest entry by sender: %w", err)
	}
	return &e, nil
}

func countAfter(ctx context.Context, q querier, leadID string, messageType entity.MessageType, after time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM conversation_entries
		WHERE lead_id = $1 AND message_type = $2 AND created_at > $3
	`
	var n int
	if err := q.QueryRowContext(ctx, query, leadID, string(messageType), after).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}
