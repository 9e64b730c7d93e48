package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_EmptyForUnknownNPC(t *testing.T) {
	s := NewInMemory(5)
	assert.Empty(t, s.Get(42))
}

func TestAppend_MostRecentFirst(t *testing.T) {
	s := NewInMemory(5)
	s.Append(7, "first")
	s.Append(7, "second")
	s.Append(7, "third")

	assert.Equal(t, []string{"third", "second", "first"}, s.Get(7))
}

func TestAppend_TruncatesOldest(t *testing.T) {
	s := NewInMemory(3)
	for i := 1; i <= 4; i++ {
		s.Append(7, fmt.Sprintf("summary-%d", i))
	}

	got := s.Get(7)
	assert.Equal(t, []string{"summary-4", "summary-3", "summary-2"}, got)
	assert.Len(t, got, 3)
}

func TestGet_ReturnsCopy(t *testing.T) {
	s := NewInMemory(5)
	s.Append(7, "original")

	got := s.Get(7)
	got[0] = "mutated"

	assert.Equal(t, []string{"original"}, s.Get(7))
}

func TestSerialize_RoundTripsByteExact(t *testing.T) {
	s := NewInMemory(5)
	s.Append(7, "met the builder")
	s.Append(7, "argued about taxes")
	s.Append(12, "talked of the harvest")

	data, err := s.Serialize()
	require.NoError(t, err)

	loaded, err := Load(data, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"argued about taxes", "met the builder"}, loaded.Get(7))
	assert.Equal(t, []string{"talked of the harvest"}, loaded.Get(12))

	again, err := loaded.Serialize()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestLoad_TruncatesOversizedLogs(t *testing.T) {
	loaded, err := Load([]byte(`{"7":["a","b","c","d"]}`), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, loaded.Get(7))
}

func TestLoad_RejectsBadKeys(t *testing.T) {
	_, err := Load([]byte(`{"seven":["a"]}`), 5)
	assert.Error(t, err)
}

func TestConcurrentAppends_DifferentNPCs(t *testing.T) {
	s := NewInMemory(100)

	var wg sync.WaitGroup
	for npc := 0; npc < 8; npc++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Append(id, fmt.Sprintf("npc-%d-entry-%d", id, i))
			}
		}(npc)
	}
	wg.Wait()

	for npc := 0; npc < 8; npc++ {
		got := s.Get(npc)
		require.Len(t, got, 50)
		assert.Equal(t, fmt.Sprintf("npc-%d-entry-49", npc), got[0])
	}
}
