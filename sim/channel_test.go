package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id int, key int64) Record {
	return Record{Key: key, PatientID: id, PersonsCount: 1}
}

func TestChan_LowestKeyFirst(t *testing.T) {
	// GIVEN records enqueued with keys 2, 1, 3
	c := NewChan[Record](8)
	require.NoError(t, c.TrySend(rec(1, 2)))
	require.NoError(t, c.TrySend(rec(2, 1)))
	require.NoError(t, c.TrySend(rec(3, 3)))

	// WHEN receiving with a bound covering all keys
	ctx := context.Background()
	var got []int64
	for i := 0; i < 3; i++ {
		r, err := c.Receive(ctx, 3)
		require.NoError(t, err)
		got = append(got, r.Key)
	}

	// THEN keys come back in non-decreasing order
	assert.Equal(t, []int64{1, 2, 3}, got)
}

func TestChan_FIFOWithinEqualKeys(t *testing.T) {
	// GIVEN three records sharing one key
	c := NewChan[Record](8)
	for id := 1; id <= 3; id++ {
		require.NoError(t, c.TrySend(rec(id, KeyNormal)))
	}

	// WHEN draining
	ctx := context.Background()
	var ids []int
	for i := 0; i < 3; i++ {
		r, err := c.Receive(ctx, KeyNormal)
		require.NoError(t, err)
		ids = append(ids, r.PatientID)
	}

	// THEN arrival order is preserved
	assert.Equal(t, []int{1, 2, 3}, ids)
}

func TestChan_MaxKeyExcludesHigherKeys(t *testing.T) {
	// GIVEN only a key-25 record queued
	c := NewChan[Record](8)
	require.NoError(t, c.TrySend(rec(1, 25)))

	// THEN a receive bounded at 13 does not see it
	_, ok := c.TryReceive(13)
	assert.False(t, ok)

	// WHEN a key-11 record arrives
	require.NoError(t, c.TrySend(rec(2, 11)))

	// THEN the bounded receive delivers it and leaves the 25 behind
	r, ok := c.TryReceive(13)
	require.True(t, ok)
	assert.Equal(t, 2, r.PatientID)
	assert.Equal(t, 1, c.Depth())
}

func TestChan_TrySendFull(t *testing.T) {
	c := NewChan[Record](2)
	require.NoError(t, c.TrySend(rec(1, 1)))
	require.NoError(t, c.TrySend(rec(2, 1)))

	err := c.TrySend(rec(3, 1))
	assert.ErrorIs(t, err, ErrChanFull)
}

func TestChan_DestroyUnblocksReceiver(t *testing.T) {
	c := NewChan[Record](2)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Receive(context.Background(), KeyNormal)
		errCh <- err
	}()

	time.Sleep(5 * time.Millisecond)
	c.Destroy()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrChanDestroyed)
	case <-time.After(time.Second):
		t.Fatal("receiver did not wake on Destroy")
	}

	// Senders now fail permanently.
	assert.ErrorIs(t, c.TrySend(rec(1, 1)), ErrChanDestroyed)
}

func TestChan_ReceiveCanceled(t *testing.T) {
	c := NewChan[Record](2)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Receive(ctx, KeyNormal)
		errCh <- err
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("receiver did not wake on cancelation")
	}
}

func TestChan_BlockedReceiverWakesOnMatchingSend(t *testing.T) {
	c := NewChan[Record](4)

	got := make(chan Record, 1)
	go func() {
		r, err := c.Receive(context.Background(), KeyNormal)
		if err == nil {
			got <- r
		}
	}()

	// A non-matching high-key record must not satisfy the receiver.
	require.NoError(t, c.TrySend(rec(1, 50)))
	select {
	case <-got:
		t.Fatal("receiver matched a record above its key bound")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, c.TrySend(rec(2, KeyVip)))
	select {
	case r := <-got:
		assert.Equal(t, 2, r.PatientID)
	case <-time.After(time.Second):
		t.Fatal("receiver did not wake on matching send")
	}
}
