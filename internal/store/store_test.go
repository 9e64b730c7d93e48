package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereallemon/colonychat/internal/logging"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	log := logging.New(nil, "silent", "json")
	db, err := Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
}

func TestMigrations_Applied(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)

	err := db.migrate()
	require.NoError(t, err)

	var count int
	err = db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

// --- MemoryStore tests ---

func TestMemoryStore_AppendAndGet(t *testing.T) {
	db := testDB(t)
	ms, err := NewMemoryStore(db, 5)
	require.NoError(t, err)

	ms.Append(7, "first chat")
	ms.Append(7, "second chat")

	assert.Equal(t, []string{"second chat", "first chat"}, ms.Get(7))
	assert.Empty(t, ms.Get(8))
}

func TestMemoryStore_SurvivesReload(t *testing.T) {
	db := testDB(t)

	ms, err := NewMemoryStore(db, 5)
	require.NoError(t, err)
	ms.Append(7, "first chat")
	ms.Append(7, "second chat")
	ms.Append(12, "other npc")

	// A fresh store over the same DB sees the same state.
	reloaded, err := NewMemoryStore(db, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"second chat", "first chat"}, reloaded.Get(7))
	assert.Equal(t, []string{"other npc"}, reloaded.Get(12))
}

func TestMemoryStore_PrunesBeyondLimit(t *testing.T) {
	db := testDB(t)
	ms, err := NewMemoryStore(db, 3)
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		ms.Append(7, fmt.Sprintf("chat-%d", i))
	}

	assert.Equal(t, []string{"chat-5", "chat-4", "chat-3"}, ms.Get(7))

	var rows int
	err = db.sql.QueryRow("SELECT COUNT(*) FROM npc_memories WHERE npc_id = 7").Scan(&rows)
	require.NoError(t, err)
	assert.Equal(t, 3, rows)

	reloaded, err := NewMemoryStore(db, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"chat-5", "chat-4", "chat-3"}, reloaded.Get(7))
}
