package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetGet(t *testing.T) {
	store := NewConfigStore()

	_, ok := store.Get("llm.model")
	assert.False(t, ok)

	require.NoError(t, store.Set("llm.model", "qwen-plus"))
	require.NoError(t, store.Set("llm.temperature", 0.2))
	require.NoError(t, store.Set("prompts.watch", true))

	v, ok := store.Get("llm.model")
	require.True(t, ok)
	assert.Equal(t, "qwen-plus", v)

	v, _ = store.Get("llm.temperature")
	assert.InDelta(t, 0.2, v, 1e-9)

	v, _ = store.Get("prompts.watch")
	assert.Equal(t, true, v)
}

func TestConfigStore_SetOverwrites(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("kb.backend", "sqlite"))
	require.NoError(t, store.Set("kb.backend", "neo4j"))

	v, _ := store.Get("kb.backend")
	assert.Equal(t, "neo4j", v)
}

func TestConfigStore_Unset(t *testing.T) {
	store := NewConfigStoreFrom(map[string]any{"neo4j.password": "secret"})

	require.NoError(t, store.Unset("neo4j.password"))
	_, ok := store.Get("neo4j.password")
	assert.False(t, ok)

	assert.NoError(t, store.Unset("neo4j.password"), "absent key")
}

func TestConfigStore_KeysSorted(t *testing.T) {
	store := NewConfigStoreFrom(map[string]any{
		"session.history_size": 5,
		"kb.backend":           "memory",
		"llm.model":            "m",
	})

	assert.Equal(t, []string{"kb.backend", "llm.model", "session.history_size"}, store.Keys())
	assert.Empty(t, NewConfigStore().Keys())
}

func TestConfigStore_SeedIsCopied(t *testing.T) {
	seed := map[string]any{"llm.model": "a"}
	store := NewConfigStoreFrom(seed)

	seed["llm.model"] = "b"
	v, _ := store.Get("llm.model")
	assert.Equal(t, "a", v)
}

func TestConfigStore_LoadRestoresLastSave(t *testing.T) {
	store := NewConfigStoreFrom(map[string]any{"llm.model": "seed"})

	require.NoError(t, store.Set("llm.model", "draft"))
	require.NoError(t, store.Load())
	v, _ := store.Get("llm.model")
	assert.Equal(t, "seed", v, "unsaved change discarded")

	require.NoError(t, store.Set("llm.model", "kept"))
	require.NoError(t, store.Save())
	require.NoError(t, store.Set("llm.model", "draft"))
	require.NoError(t, store.Load())
	v, _ = store.Get("llm.model")
	assert.Equal(t, "kept", v)
}

func TestConfigStore_LoadEmpty(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Load())
	require.NoError(t, store.Set("kb.fixture", "kb.yaml"))

	assert.Equal(t, []string{"kb.fixture"}, store.Keys())
}

func TestConfigStore_Path(t *testing.T) {
	assert.Equal(t, ":memory:", NewConfigStore().Path())
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("session.k%02d", n)
			_ = store.Set(key, n)
			_, _ = store.Get(key)
			_ = store.Keys()
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Keys(), 16)
}
