package store

import (
	"fmt"

	"github.com/thereallemon/colonychat/internal/memory"
)

// MemoryStore is a durable memory.Store: reads are served from a bounded
// in-memory cache, every append writes through to SQLite so summaries
// survive host restarts. Rows beyond the retention limit are pruned as
// they age out of the cache.
type MemoryStore struct {
	db     *DB
	cache  *memory.InMemory
	maxLen int
}

// NewMemoryStore hydrates the cache from the database and returns the
// write-through store.
func NewMemoryStore(db *DB, maxLen int) (*MemoryStore, error) {
	s := &MemoryStore{db: db, cache: memory.NewInMemory(maxLen), maxLen: maxLen}
	if err := s.loadAll(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the NPC's summaries, most-recent-first.
func (s *MemoryStore) Get(npcID int) []string {
	return s.cache.Get(npcID)
}

// Append records a summary in the cache and the database, pruning rows
// past the retention limit.
func (s *MemoryStore) Append(npcID int, summary string) {
	s.cache.Append(npcID, summary)

	if _, err := s.db.sql.Exec(
		`INSERT INTO npc_memories (npc_id, summary) VALUES (?, ?)`,
		npcID, summary,
	); err != nil {
		s.db.log.Error().Err(err).Int("npc", npcID).Msg("failed to persist summary")
		return
	}

	// Drop rows older than the newest maxLen for this NPC.
	if _, err := s.db.sql.Exec(
		`DELETE FROM npc_memories
		 WHERE npc_id = ?
		   AND id NOT IN (
		     SELECT id FROM npc_memories WHERE npc_id = ? ORDER BY id DESC LIMIT ?
		   )`,
		npcID, npcID, s.maxLen,
	); err != nil {
		s.db.log.Error().Err(err).Int("npc", npcID).Msg("failed to prune memories")
	}
}

// loadAll hydrates the cache with every NPC's retained summaries.
// Rows are scanned oldest-first so cache appends land most-recent-first.
func (s *MemoryStore) loadAll() error {
	rows, err := s.db.sql.Query(
		`SELECT npc_id, summary FROM npc_memories ORDER BY npc_id, id ASC`,
	)
	if err != nil {
		return fmt.Errorf("loading memories: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var npcID int
		var summary string
		if err := rows.Scan(&npcID, &summary); err != nil {
			return fmt.Errorf("scanning memory row: %w", err)
		}
		s.cache.Append(npcID, summary)
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading memory rows: %w", err)
	}

	s.db.log.Info().Int("summaries", count).Msg("conversation memories loaded")
	return nil
}
