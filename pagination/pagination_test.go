package pagination

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infiniscroll/dom"
	"infiniscroll/sites"
)

func TestNewStateFromNextLink(t *testing.T) {
	d, err := dom.ParseString(`<a id="pnnext" href="/search?q=go&amp;start=10">Next</a>`,
		"https://www.google.com/search?q=go")
	require.NoError(t, err)

	s := NewState(d, sites.Google())
	next, ok := s.Next()
	assert.True(t, ok)
	assert.Equal(t, "https://www.google.com/search?q=go&start=10", next)
	assert.False(t, s.Exhausted())
}

func TestNewStateWithoutNextLink(t *testing.T) {
	d, err := dom.ParseString(`<div id="rso"></div>`, "")
	require.NoError(t, err)

	s := NewState(d, sites.Google())
	_, ok := s.Next()
	assert.False(t, ok)
	assert.False(t, s.Exhausted(), "a missing pointer is not exhaustion")

	_, ok = NewState(nil, nil).Next()
	assert.False(t, ok)
}

func TestStateExhaustIsTerminal(t *testing.T) {
	s := &State{}
	s.Set("https://www.google.com/search?q=go&start=20")
	next, ok := s.Next()
	require.True(t, ok)
	assert.Contains(t, next, "start=20")

	s.Exhaust()
	s.Set("https://www.google.com/search?q=go&start=30")
	_, ok = s.Next()
	assert.False(t, ok)
	assert.True(t, s.Exhausted())
}

func TestGateSingleFlight(t *testing.T) {
	g := NewGate()
	assert.Equal(t, Idle, g.State())

	require.True(t, g.TryBegin())
	assert.Equal(t, InFlight, g.State())
	assert.False(t, g.TryBegin(), "second attempt is dropped")

	g.End()
	assert.Equal(t, Idle, g.State())
	g.End()
	assert.Equal(t, Idle, g.State(), "ending an idle gate is a no-op")
	assert.True(t, g.TryBegin())
}

func TestGateConcurrentAttempts(t *testing.T) {
	g := NewGate()
	var won atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.TryBegin() {
				won.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), won.Load())
	assert.Equal(t, "in-flight", g.State().String())
}
