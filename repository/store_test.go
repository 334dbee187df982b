package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// openTestStore builds a minimal decrypted store with the two tables the
// exporter queries.
func openTestStore(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "store.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE conversations (
			id TEXT PRIMARY KEY, name TEXT, profileName TEXT,
			type TEXT, e164 TEXT, serviceId TEXT
		);
		CREATE TABLE messages (
			conversationId TEXT, sent_at INTEGER, json TEXT
		);`)
	require.NoError(t, err)
	return db
}

func TestConversationsScansNullableColumns(t *testing.T) {
	db := openTestStore(t)
	_, err := db.Exec(`INSERT INTO conversations VALUES
		('c1', 'Alice', NULL, 'private', '+15551230001', 'uuid-alice'),
		('g1', NULL, NULL, 'group', NULL, NULL)`)
	require.NoError(t, err)

	records, err := New(db).Conversations(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "c1", records[0].ID)
	require.NotNil(t, records[0].Name)
	assert.Equal(t, "Alice", *records[0].Name)
	assert.Equal(t, "+15551230001", *records[0].E164)

	assert.Equal(t, "g1", records[1].ID)
	assert.Nil(t, records[1].Name)
	assert.Nil(t, records[1].E164)
	assert.True(t, records[1].IsGroup())
}

func TestForEachMessageOrdersBySentAt(t *testing.T) {
	db := openTestStore(t)
	_, err := db.Exec(`INSERT INTO messages VALUES
		('c1', 300, '{"body": "third"}'),
		('c1', 100, '{"body": "first"}'),
		('c2', 150, '{"body": "other conversation"}'),
		('c1', 200, '{"body": "second"}')`)
	require.NoError(t, err)

	var payloads []string
	err = New(db).ForEachMessage(context.Background(), "c1", func(payload []byte) error {
		payloads = append(payloads, string(payload))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		`{"body": "first"}`,
		`{"body": "second"}`,
		`{"body": "third"}`,
	}, payloads)
}

func TestForEachMessagePropagatesCallbackError(t *testing.T) {
	db := openTestStore(t)
	_, err := db.Exec(`INSERT INTO messages VALUES ('c1', 100, '{}')`)
	require.NoError(t, err)

	wantErr := assert.AnError
	err = New(db).ForEachMessage(context.Background(), "c1", func([]byte) error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
}
