package repository

import (
	"context"
	"database/sql"
	"fmt"

	"signal-export/domain"
)

// Store issues the two query shapes the exporter needs against the decrypted
// message store: all conversations, and all messages of one conversation in
// chronological order. The cursor is read-only and safe to share across
// conversation workers.
type Store struct {
	DB *sql.DB
}

// New wraps an open store connection.
func New(db *sql.DB) *Store {
	return &Store{DB: db}
}

// Conversations returns every conversation record in the store, in store
// iteration order.
func (s *Store) Conversations(ctx context.Context) ([]domain.ConversationRecord, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, profileName, type, e164, serviceId FROM conversations`)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var records []domain.ConversationRecord
	for rows.Next() {
		var (
			rec                        domain.ConversationRecord
			name, profile, e164, svcID sql.NullString
		)
		if err := rows.Scan(&rec.ID, &name, &profile, &rec.Type, &e164, &svcID); err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}
		rec.Name = nullable(name)
		rec.ProfileName = nullable(profile)
		rec.E164 = nullable(e164)
		rec.ServiceID = nullable(svcID)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}
	return records, nil
}

// ForEachMessage streams the raw JSON payload of every message in the given
// conversation, ordered by sent_at ascending. Chronological order is a
// precondition of the segment writer's resume logic, it is enforced here and
// nowhere else.
func (s *Store) ForEachMessage(ctx context.Context, conversationID string, fn func(payload []byte) error) error {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT json FROM messages WHERE conversationId = ? ORDER BY sent_at ASC`, conversationID)
	if err != nil {
		return fmt.Errorf("querying messages for conversation %q: %w", conversationID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return fmt.Errorf("scanning message row for conversation %q: %w", conversationID, err)
		}
		if err := fn(payload); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating messages for conversation %q: %w", conversationID, err)
	}
	return nil
}

// nullable converts a scanned NULLable column into the domain's pointer form.
func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
