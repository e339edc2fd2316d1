package storage

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewell/filegate/types"
)

func TestIndexAppendAndReadBack(t *testing.T) {
	mem := afero.NewMemMapFs()
	store := NewIndexStore(mem, "/data/index.json")

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(types.StoredFileRecord{
			Name:      fmt.Sprintf("file-%d.txt", i),
			Hash:      fmt.Sprintf("hash-%d", i),
			Size:      int64(i * 10),
			Extension: "txt",
			StoredAt:  time.Now().UTC(),
		}))
	}

	records, err := store.All()
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, fmt.Sprintf("file-%d.txt", i), rec.Name, "insertion order must be preserved")
	}
}

func TestIndexEmptyWhenMissing(t *testing.T) {
	store := NewIndexStore(afero.NewMemMapFs(), "/data/index.json")
	records, err := store.All()
	require.NoError(t, err)
	assert.Empty(t, records)
}

// An unserialized read-modify-write would drop records when two
// finalizations race. The store serializes writers, so every record of a
// concurrent burst must survive.
func TestIndexConcurrentAppendsRetainAllRecords(t *testing.T) {
	mem := afero.NewMemMapFs()
	store := NewIndexStore(mem, "/data/index.json")

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Append(types.StoredFileRecord{Name: fmt.Sprintf("race-%d", i)})
		}(i)
	}
	wg.Wait()

	records, err := store.All()
	require.NoError(t, err)
	assert.Len(t, records, writers, "no record may be lost under concurrent finalization")
}
