package orchestrator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		holders = map[string]int{}
		peak    = map[string]int{}
	)
	for i := range 20 {
		key := []string{"apt", "nix"}[i%2]
		wg.Go(func() {
			unlock := k.Lock(key)
			defer unlock()

			mu.Lock()
			holders[key]++
			peak[key] = max(peak[key], holders[key])
			mu.Unlock()

			mu.Lock()
			holders[key]--
			mu.Unlock()
		})
	}
	wg.Wait()

	assert.Equal(t, 1, peak["apt"])
	assert.Equal(t, 1, peak["nix"])

	unlock := k.Lock("")
	unlock()
}
