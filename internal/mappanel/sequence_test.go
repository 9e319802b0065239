package mappanel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceDrainsInOrder(t *testing.T) {
	var applied []string
	var failed error
	done := false

	seq := newSequence(1, func(err error) { failed = err })
	seq.onDone = func() { done = true }
	a, b, c := seq.add("a"), seq.add("b"), seq.add("c")

	seq.complete(c, func() { applied = append(applied, "c") }, nil)
	seq.complete(b, func() { applied = append(applied, "b") }, nil)
	assert.Empty(t, applied)
	assert.Equal(t, []string{"a", "b", "c"}, seq.pending())

	seq.complete(a, func() { applied = append(applied, "a") }, nil)
	assert.Equal(t, []string{"a", "b", "c"}, applied)
	assert.True(t, seq.finished())
	assert.True(t, done)
	assert.NoError(t, failed)

	// completing twice is a no-op
	seq.complete(a, func() { applied = append(applied, "again") }, nil)
	assert.Len(t, applied, 3)
}

func TestSequenceStopsAtFailure(t *testing.T) {
	var applied []string
	var failures int
	boom := errors.New("boom")

	seq := newSequence(1, func(err error) {
		failures++
		assert.ErrorIs(t, err, boom)
	})
	a, b, c := seq.add("a"), seq.add("b"), seq.add("c")

	seq.complete(c, func() { applied = append(applied, "c") }, nil)
	seq.complete(a, func() { applied = append(applied, "a") }, nil)
	assert.False(t, seq.finished())

	seq.complete(b, nil, boom)
	assert.True(t, seq.finished())
	assert.Equal(t, []string{"a"}, applied)
	assert.Equal(t, 1, failures)
}

func TestSequenceQueued(t *testing.T) {
	var applied []string
	seq := newSequence(1, nil)
	a, b, c := seq.add("a"), seq.add("b"), seq.add("c")

	assert.Nil(t, seq.queued(b), "nothing arrived yet")

	seq.complete(b, func() { applied = append(applied, "b") }, nil)
	apply := seq.queued(b)
	require.NotNil(t, apply, "b waits behind a")
	apply()
	assert.Equal(t, []string{"b"}, applied)

	seq.complete(c, nil, errors.New("boom"))
	assert.Nil(t, seq.queued(c), "failed steps are never handed out")

	seq.complete(a, nil, nil)
	assert.Nil(t, seq.queued(b), "drained steps are not queued")
	assert.Nil(t, seq.queued(7))
}
