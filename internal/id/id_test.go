package id

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormat(t *testing.T) {
	got, err := New()
	require.NoError(t, err)
	assert.Len(t, got, 26)
	assert.NotContains(t, got, "=")
	for _, r := range got {
		if (r < 'a' || r > 'z') && (r < '2' || r > '7') {
			t.Fatalf("unexpected character %q in id", r)
		}
	}

	decoded, err := encoding.DecodeString(strings.ToUpper(got))
	require.NoError(t, err)
	require.Len(t, decoded, 16)
	assert.Equal(t, byte(4), decoded[6]>>4, "uuid version")
	assert.Equal(t, byte(0x80), decoded[8]&0xC0, "uuid variant")
}

func TestNewNoCollisionsUnderConcurrency(t *testing.T) {
	const workers, perWorker = 8, 1250

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				v, err := New()
				if err != nil {
					t.Error(err)
					return
				}
				local = append(local, v)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, v := range local {
				seen[v] = struct{}{}
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestTab(t *testing.T) {
	got, err := Tab()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "tab-"))
	assert.Len(t, got, 14)
}
