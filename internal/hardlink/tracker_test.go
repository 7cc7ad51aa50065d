package hardlink

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSingleDiscoverer(t *testing.T) {
	tr := New(true)
	a := tr.Resolve(Key{Device: 1, Inode: 42}, "/dst/a")
	assert.Equal(t, Materialize, a.Kind)
}

func TestResolveSecondDiscovererAwaitsThenLinks(t *testing.T) {
	tr := New(true)
	key := Key{Device: 1, Inode: 42}

	first := tr.Resolve(key, "/dst/a")
	require.Equal(t, Materialize, first.Kind)

	second := tr.Resolve(key, "/dst/b")
	require.Equal(t, AwaitThen, second.Kind)

	tr.Publish(key, "/dst/a")

	assert.Equal(t, "/dst/a", second.Wait())
}

func TestResolveAfterPublishIsLinkTo(t *testing.T) {
	tr := New(true)
	key := Key{Device: 1, Inode: 7}
	tr.Resolve(key, "/dst/a")
	tr.Publish(key, "/dst/a")

	third := tr.Resolve(key, "/dst/c")
	require.Equal(t, LinkTo, third.Kind)
	assert.Equal(t, "/dst/a", third.Existing)
}

func TestDisabledTrackerAlwaysMaterializes(t *testing.T) {
	tr := New(false)
	key := Key{Device: 1, Inode: 7}
	a := tr.Resolve(key, "/dst/a")
	b := tr.Resolve(key, "/dst/b")
	assert.Equal(t, Materialize, a.Kind)
	assert.Equal(t, Materialize, b.Kind)
	assert.Equal(t, 0, tr.Len())
}

func TestExactlyOneMaterializeAcrossConcurrentDiscoverers(t *testing.T) {
	tr := New(true)
	key := Key{Device: 9, Inode: 99}

	const n = 50
	var wg sync.WaitGroup
	actions := make([]Action, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			actions[i] = tr.Resolve(key, "/dst/candidate")
		}()
	}
	wg.Wait()

	materializeCount := 0
	for _, a := range actions {
		if a.Kind == Materialize {
			materializeCount++
		}
	}
	assert.Equal(t, 1, materializeCount)
	tr.Publish(key, "/dst/winner")

	for _, a := range actions {
		if a.Kind == AwaitThen {
			assert.Equal(t, "/dst/winner", a.Wait())
		}
	}
}
