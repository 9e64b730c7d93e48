// Package memory keeps bounded per-NPC logs of conversation summaries.
package memory

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
)

// Store is the interface the conversation pipeline appends summaries to.
type Store interface {
	// Get returns a copy of the NPC's summaries, most-recent-first.
	// An NPC with no history yields an empty slice.
	Get(npcID int) []string

	// Append inserts a summary at the front and truncates the log to the
	// configured maximum, dropping the oldest entries.
	Append(npcID int, summary string)
}

// InMemory is the runtime Store. Each NPC's log has its own lock so
// appends for different NPCs never contend; the outer lock only guards
// the map of logs.
type InMemory struct {
	mu      sync.RWMutex
	logs    map[int]*npcLog
	maxLen  int
}

type npcLog struct {
	mu        sync.Mutex
	summaries []string // most-recent-first
}

// NewInMemory creates a store retaining at most maxLen summaries per NPC.
func NewInMemory(maxLen int) *InMemory {
	if maxLen < 1 {
		maxLen = 1
	}
	return &InMemory{logs: make(map[int]*npcLog), maxLen: maxLen}
}

// Get returns a copy of the NPC's summaries, creating an empty log on
// first access.
func (s *InMemory) Get(npcID int) []string {
	l := s.log(npcID)
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.summaries))
	copy(out, l.summaries)
	return out
}

// Append front-inserts a summary and drops overflow beyond the maximum.
func (s *InMemory) Append(npcID int, summary string) {
	l := s.log(npcID)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.summaries = append([]string{summary}, l.summaries...)
	if len(l.summaries) > s.maxLen {
		l.summaries = l.summaries[:s.maxLen]
	}
}

func (s *InMemory) log(npcID int) *npcLog {
	s.mu.RLock()
	l, ok := s.logs[npcID]
	s.mu.RUnlock()
	if ok {
		return l
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok = s.logs[npcID]; ok {
		return l
	}
	l = &npcLog{}
	s.logs[npcID] = l
	return l
}

// Serialize renders the store as JSON keyed by NPC id. encoding/json
// sorts map keys, so the output is deterministic and round-trips
// byte-exact through Load.
func (s *InMemory) Serialize() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string, len(s.logs))
	for id, l := range s.logs {
		l.mu.Lock()
		entries := make([]string, len(l.summaries))
		copy(entries, l.summaries)
		l.mu.Unlock()
		if len(entries) > 0 {
			out[strconv.Itoa(id)] = entries
		}
	}
	return json.Marshal(out)
}

// Load builds a store from Serialize output, truncating any log that
// exceeds maxLen.
func Load(data []byte, maxLen int) (*InMemory, error) {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing memory snapshot: %w", err)
	}

	s := NewInMemory(maxLen)
	for key, entries := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("bad NPC id %q in memory snapshot: %w", key, err)
		}
		if len(entries) > s.maxLen {
			entries = entries[:s.maxLen]
		}
		l := s.log(id)
		l.summaries = append(l.summaries, entries...)
	}
	return s, nil
}
