package keepalive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestTxn_CommitTwice(t *testing.T) {
	t.Parallel()

	b := New(Options{})
	_, txn := b.Render(&Candidate{Name: "a", Tag: "x", Key: "a"})
	require.NotNil(t, txn)
	assert.Equal(t, "a", txn.Key())
	assert.True(t, b.Pending())

	require.NoError(t, txn.Commit(&fakeInstance{}))
	assert.False(t, b.Pending())
	assert.ErrorIs(t, txn.Commit(&fakeInstance{}), ErrCommitted)
	assert.Equal(t, 1, b.Len())
}

func TestTxn_CommitAfterDiscard(t *testing.T) {
	t.Parallel()

	b := New(Options{})
	_, txn := b.Render(&Candidate{Name: "a", Tag: "x", Key: "a"})
	txn.Discard()
	txn.Discard()

	assert.False(t, b.Pending())
	assert.ErrorIs(t, txn.Commit(&fakeInstance{}), ErrCommitted)
	assert.Zero(t, b.Len())
}

func TestTxn_NilInstance(t *testing.T) {
	t.Parallel()

	b := New(Options{})
	_, txn := b.Render(&Candidate{Name: "a", Tag: "x", Key: "a"})
	assert.ErrorIs(t, txn.Commit(nil), ErrNilInstance)
	assert.True(t, b.Pending(), "a rejected commit leaves the insertion pending")
	require.NoError(t, txn.Commit(&fakeInstance{}))
}

func TestTxn_SupersededByNextRender(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	b := New(Options{Logger: zap.New(core)})

	_, stale := b.Render(&Candidate{Name: "a", Tag: "x", Key: "a"})
	_, fresh := b.Render(&Candidate{Name: "b", Tag: "y", Key: "b"})

	assert.Equal(t, 1, logs.FilterMessage(ErrPendingOutstanding.Error()).Len())
	assert.ErrorIs(t, stale.Commit(&fakeInstance{}), ErrStaleTxn)
	require.NoError(t, fresh.Commit(&fakeInstance{}))
	assert.Equal(t, []string{"b"}, b.Keys())
}

func TestTxn_StaleAfterClose(t *testing.T) {
	t.Parallel()

	b := New(Options{})
	_, txn := b.Render(&Candidate{Name: "a", Tag: "x", Key: "a"})
	require.NoError(t, b.Close())

	inst := &fakeInstance{}
	assert.ErrorIs(t, txn.Commit(inst), ErrStaleTxn)
	assert.Zero(t, b.Len())
	assert.Zero(t, inst.count(), "a rejected instance stays with the host")
}

func TestTxn_StrictPanics(t *testing.T) {
	t.Parallel()

	b := New(Options{Strict: true})
	_, txn := b.Render(&Candidate{Name: "a", Tag: "x", Key: "a"})
	require.NoError(t, txn.Commit(&fakeInstance{}))

	assert.PanicsWithError(t, ErrCommitted.Error(), func() { _ = txn.Commit(&fakeInstance{}) })

	_, _ = b.Render(&Candidate{Name: "b", Tag: "y", Key: "b"})
	assert.PanicsWithError(t, ErrPendingOutstanding.Error(), func() {
		b.Render(&Candidate{Name: "c", Tag: "z", Key: "c"})
	})

	// the boundary stays usable after a recovered violation
	assert.NotPanics(t, func() { b.Len() })
	assert.False(t, b.Pending(), "the superseded insertion is dropped before panicking")

	res, txn := b.Render(&Candidate{Name: "d", Tag: "w", Key: "d"})
	require.NotNil(t, txn, "a render after a recovered violation stages normally")
	assert.True(t, res.KeepAlive)
	require.NoError(t, txn.Commit(&fakeInstance{}))
	assert.Equal(t, []string{"a", "d"}, b.Keys())
}

func TestTxn_HitDoesNotStage(t *testing.T) {
	t.Parallel()

	b := New(Options{})
	_, txn := b.Render(&Candidate{Name: "a", Tag: "x", Key: "a"})
	require.NoError(t, txn.Commit(&fakeInstance{}))

	res, txn := b.Render(&Candidate{Name: "a", Tag: "x", Key: "a"})
	assert.True(t, res.Hit)
	assert.Nil(t, txn)
	assert.False(t, b.Pending())
}
