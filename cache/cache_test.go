package cache

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/keepalive/policy"
)

type fakeInstance struct {
	id        string
	destroyed int
}

func (f *fakeInstance) Destroy() { f.destroyed++ }

func entry(name, tag string) (Entry, *fakeInstance) {
	inst := &fakeInstance{id: name}
	return Entry{Name: name, Tag: tag, Instance: inst}, inst
}

// checkInvariants asserts that the list and the map hold the same keys,
// without duplicates, and that Len agrees with both.
func checkInvariants(t *testing.T, s *Store) {
	t.Helper()

	seen := make(map[string]struct{}, s.len)
	count := 0
	for n := s.tail; n != nil; n = n.prev {
		_, dup := seen[n.key]
		require.False(t, dup, "duplicate key %q in list", n.key)
		seen[n.key] = struct{}{}
		require.Same(t, s.m[n.key], n, "list node for %q not in map", n.key)
		count++
	}
	require.Equal(t, len(s.m), count, "map and list sizes differ")
	require.Equal(t, s.len, count, "len counter out of sync")
	if s.opt.Max > 0 {
		require.LessOrEqual(t, s.len, s.opt.Max)
	}
}

func TestStore_LookupDoesNotReorder(t *testing.T) {
	t.Parallel()

	s := New(Options{})
	a, _ := entry("a", "x")
	b, _ := entry("b", "y")
	require.True(t, s.Commit("a", a))
	require.True(t, s.Commit("b", b))

	got, ok := s.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.Name)
	assert.Equal(t, []string{"a", "b"}, s.Keys())

	_, ok = s.Lookup("zzz")
	assert.False(t, ok)
	checkInvariants(t, s)
}

func TestStore_TouchMovesToNewest(t *testing.T) {
	t.Parallel()

	s := New(Options{})
	for _, k := range []string{"a", "b", "c"} {
		e, _ := entry(k, k)
		s.Commit(k, e)
	}

	before, _ := s.Lookup("a")
	require.True(t, s.Touch("a"))
	after, _ := s.Lookup("a")

	assert.Equal(t, []string{"b", "c", "a"}, s.Keys())
	assert.Equal(t, before, after, "touch must not change entry contents")
	assert.Equal(t, 3, s.Len())

	require.True(t, s.Touch("a"), "touching the newest key is a no-op move")
	assert.Equal(t, []string{"b", "c", "a"}, s.Keys())

	assert.False(t, s.Touch("missing"))
	checkInvariants(t, s)
}

func TestStore_CommitDuplicateKeyIsRejected(t *testing.T) {
	t.Parallel()

	s := New(Options{})
	a1, _ := entry("a", "x")
	a2, inst2 := entry("a2", "x")

	require.True(t, s.Commit("a", a1))
	require.False(t, s.Commit("a", a2))

	got, _ := s.Lookup("a")
	assert.Equal(t, "a", got.Name)
	assert.Zero(t, inst2.destroyed)
	checkInvariants(t, s)
}

// max=2; commit A{x}, B{y}, C{z}: A is evicted and destroyed.
func TestStore_EvictionOrder(t *testing.T) {
	t.Parallel()

	var evicted []string
	s := New(Options{
		Max: 2,
		OnEvict: func(key string, _ Entry, reason EvictReason, disposed bool) {
			assert.Equal(t, EvictCapacity, reason)
			assert.True(t, disposed)
			evicted = append(evicted, key)
		},
	})
	a, instA := entry("A", "x")
	b, instB := entry("B", "y")
	c, instC := entry("C", "z")

	s.Commit("A", a)
	s.Commit("B", b)
	checkInvariants(t, s)
	s.Commit("C", c)

	assert.Equal(t, []string{"B", "C"}, s.Keys())
	assert.Equal(t, []string{"A"}, evicted)
	assert.Equal(t, 1, instA.destroyed)
	assert.Zero(t, instB.destroyed)
	assert.Zero(t, instC.destroyed)
	checkInvariants(t, s)
}

// Same as above but C carries A's tag: A leaves the store without Destroy.
func TestStore_EvictionSameTagSkipsDispose(t *testing.T) {
	t.Parallel()

	var disposedFlags []bool
	s := New(Options{
		Max: 2,
		OnEvict: func(_ string, _ Entry, _ EvictReason, disposed bool) {
			disposedFlags = append(disposedFlags, disposed)
		},
	})
	a, instA := entry("A", "x")
	b, _ := entry("B", "y")
	c, instC := entry("C", "x")

	s.Commit("A", a)
	s.Commit("B", b)
	s.Commit("C", c)

	assert.Equal(t, []string{"B", "C"}, s.Keys())
	_, ok := s.Lookup("A")
	assert.False(t, ok)
	assert.Zero(t, instA.destroyed)
	assert.Zero(t, instC.destroyed)
	assert.Equal(t, []bool{false}, disposedFlags)
	checkInvariants(t, s)
}

func TestStore_EvictionRespectsTouch(t *testing.T) {
	t.Parallel()

	s := New(Options{Max: 2})
	a, instA := entry("A", "x")
	b, instB := entry("B", "y")
	c, _ := entry("C", "z")

	s.Commit("A", a)
	s.Commit("B", b)
	s.Touch("A")
	s.Commit("C", c)

	assert.Equal(t, []string{"A", "C"}, s.Keys())
	assert.Zero(t, instA.destroyed)
	assert.Equal(t, 1, instB.destroyed)
}

func TestStore_EvictOldestDirect(t *testing.T) {
	t.Parallel()

	s := New(Options{})
	_, ok := s.EvictOldest()
	assert.False(t, ok, "empty store has nothing to evict")

	a, instA := entry("A", "x")
	b, instB := entry("B", "y")
	s.Commit("A", a)
	s.Commit("B", b)

	key, ok := s.EvictOldest("x")
	require.True(t, ok)
	assert.Equal(t, "A", key)
	assert.Zero(t, instA.destroyed, "exempt tag keeps the instance")

	key, ok = s.EvictOldest()
	require.True(t, ok)
	assert.Equal(t, "B", key)
	assert.Equal(t, 1, instB.destroyed, "no exemption tag means dispose")
	assert.Zero(t, s.Len())
	checkInvariants(t, s)
}

func TestStore_CustomExemption(t *testing.T) {
	t.Parallel()

	s := New(Options{Max: 1, Exemption: policy.Never})
	a, instA := entry("A", "x")
	b, _ := entry("B", "x")

	s.Commit("A", a)
	s.Commit("B", b)

	assert.Equal(t, 1, instA.destroyed)
	assert.Equal(t, []string{"B"}, s.Keys())
}

func TestStore_PruneWhere(t *testing.T) {
	t.Parallel()

	s := New(Options{})
	foo, instFoo := entry("foo", "x")
	bar, instBar := entry("bar", "x")
	anon, instAnon := entry("", "x")
	baz, instBaz := entry("baz", "y")

	s.Commit("foo", foo)
	s.Commit("anon", anon)
	s.Commit("bar", bar)
	s.Commit("baz", baz)

	n := s.PruneWhere(func(name string) bool { return name == "bar" })

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"anon", "bar"}, s.Keys(), "survivors keep their order")
	assert.Equal(t, 1, instFoo.destroyed)
	assert.Equal(t, 1, instBaz.destroyed, "prune never applies the tag exemption")
	assert.Zero(t, instBar.destroyed)
	assert.Zero(t, instAnon.destroyed, "unnamed entries are never pruned")
	checkInvariants(t, s)
}

func TestStore_PruneAcceptAllIsNoop(t *testing.T) {
	t.Parallel()

	s := New(Options{})
	var insts []*fakeInstance
	for _, k := range []string{"a", "b", "c"} {
		e, inst := entry(k, k)
		insts = append(insts, inst)
		s.Commit(k, e)
	}
	s.Touch("a")
	before := s.Keys()

	assert.Zero(t, s.PruneWhere(func(string) bool { return true }))
	assert.Equal(t, before, s.Keys())
	for _, inst := range insts {
		assert.Zero(t, inst.destroyed)
	}
}

func TestStore_EvictAll(t *testing.T) {
	t.Parallel()

	var reasons []EvictReason
	s := New(Options{
		OnEvict: func(_ string, _ Entry, reason EvictReason, disposed bool) {
			assert.True(t, disposed)
			reasons = append(reasons, reason)
		},
	})
	x, instX := entry("X", "x")
	y, instY := entry("Y", "y")
	s.Commit("X", x)
	s.Commit("Y", y)

	assert.Equal(t, 2, s.EvictAll())
	assert.Equal(t, 1, instX.destroyed)
	assert.Equal(t, 1, instY.destroyed)
	assert.Equal(t, []EvictReason{EvictTeardown, EvictTeardown}, reasons)
	assert.Empty(t, s.Keys())
	checkInvariants(t, s)

	assert.Zero(t, s.EvictAll(), "second teardown has nothing left")
	assert.Equal(t, 1, instX.destroyed, "no double dispose")
}

func TestStore_SetMaxTakesEffectOnNextCommit(t *testing.T) {
	t.Parallel()

	s := New(Options{})
	for _, k := range []string{"a", "b", "c"} {
		e, _ := entry(k, k)
		s.Commit(k, e)
	}
	s.SetMax(2)
	assert.Equal(t, 3, s.Len(), "lowering max does not evict by itself")

	d, _ := entry("d", "d")
	s.Commit("d", d)
	assert.Equal(t, []string{"b", "c", "d"}, s.Keys(), "one commit evicts one entry")

	e, _ := entry("e", "e")
	s.Commit("e", e)
	assert.Equal(t, []string{"c", "d", "e"}, s.Keys(), "the excess over a lowered max is kept, not grown")

	s.SetMax(-5)
	assert.Zero(t, s.Max())
}

type countingMetrics struct {
	hits, misses int
	evicts       map[EvictReason]int
	skipped      int
	size         int
}

func (m *countingMetrics) Hit()  { m.hits++ }
func (m *countingMetrics) Miss() { m.misses++ }
func (m *countingMetrics) Evict(r EvictReason, disposed bool) {
	if m.evicts == nil {
		m.evicts = map[EvictReason]int{}
	}
	m.evicts[r]++
	if !disposed {
		m.skipped++
	}
}
func (m *countingMetrics) Size(n int) { m.size = n }

func TestStore_Metrics(t *testing.T) {
	t.Parallel()

	m := &countingMetrics{}
	s := New(Options{Max: 1, Metrics: m})
	a, _ := entry("a", "x")
	b, _ := entry("b", "x")

	s.Lookup("a")
	s.Commit("a", a)
	s.Lookup("a")
	s.Commit("b", b)
	s.PruneWhere(func(string) bool { return false })

	assert.Equal(t, 1, m.hits)
	assert.Equal(t, 1, m.misses)
	assert.Equal(t, 1, m.evicts[EvictCapacity])
	assert.Equal(t, 1, m.evicts[EvictPrune])
	assert.Equal(t, 1, m.skipped)
	assert.Zero(t, m.size)
}

func TestEvictReason_String(t *testing.T) {
	t.Parallel()

	got := []string{EvictCapacity.String(), EvictPrune.String(), EvictTeardown.String(), EvictReason(99).String()}
	sort.Strings(got)
	assert.Equal(t, []string{"capacity", "prune", "teardown", "unknown"}, got)
}
