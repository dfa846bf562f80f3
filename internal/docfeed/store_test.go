package docfeed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	s := NewStore(nil)

	t.Run("absent path delivers nil", func(t *testing.T) {
		var got [][]byte
		unsub := s.Subscribe("missing/doc", func(data []byte) {
			got = append(got, data)
		})
		defer unsub()

		require.Len(t, got, 1)
		assert.Nil(t, got[0])
	})

	t.Run("existing doc delivers synchronously", func(t *testing.T) {
		require.NoError(t, s.Publish("a/b", map[string]string{"k": "v"}))

		var got [][]byte
		unsub := s.Subscribe("a/b", func(data []byte) {
			got = append(got, data)
		})
		defer unsub()

		require.Len(t, got, 1)
		assert.JSONEq(t, `{"k":"v"}`, string(got[0]))
	})
}

func TestPublishNotifiesSubscribers(t *testing.T) {
	s := NewStore(nil)

	var got [][]byte
	unsub := s.Subscribe("doc", func(data []byte) {
		got = append(got, data)
	})
	defer unsub()

	require.NoError(t, s.Publish("doc", map[string]int{"n": 1}))
	require.NoError(t, s.Publish("doc", map[string]int{"n": 2}))

	require.Len(t, got, 3) // initial nil + two updates
	assert.JSONEq(t, `{"n":2}`, string(got[2]))
}

func TestDeleteDeliversNil(t *testing.T) {
	s := NewStore(nil)
	require.NoError(t, s.Publish("doc", map[string]int{"n": 1}))

	var got [][]byte
	unsub := s.Subscribe("doc", func(data []byte) {
		got = append(got, data)
	})
	defer unsub()

	require.NoError(t, s.Delete("doc"))

	require.Len(t, got, 2)
	assert.NotNil(t, got[0])
	assert.Nil(t, got[1])

	// A fresh subscriber sees the path as absent.
	var fresh [][]byte
	unsub2 := s.Subscribe("doc", func(data []byte) {
		fresh = append(fresh, data)
	})
	defer unsub2()
	require.Len(t, fresh, 1)
	assert.Nil(t, fresh[0])
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s := NewStore(nil)

	calls := 0
	unsub := s.Subscribe("doc", func([]byte) { calls++ })
	unsub()
	unsub() // safe to call twice

	require.NoError(t, s.Publish("doc", map[string]int{"n": 1}))
	assert.Equal(t, 1, calls) // initial snapshot only
}

func TestSubscribersArePerPath(t *testing.T) {
	s := NewStore(nil)

	aCalls, bCalls := 0, 0
	ua := s.Subscribe("a", func([]byte) { aCalls++ })
	ub := s.Subscribe("b", func([]byte) { bCalls++ })
	defer ua()
	defer ub()

	require.NoError(t, s.Publish("a", 1))

	assert.Equal(t, 2, aCalls)
	assert.Equal(t, 1, bCalls)
}

func TestCloseDropsSubscriptions(t *testing.T) {
	s := NewStore(nil)

	calls := 0
	s.Subscribe("doc", func([]byte) { calls++ })
	s.Close()

	require.NoError(t, s.Publish("doc", 1))
	assert.Equal(t, 1, calls)

	// Subscribing after Close is inert.
	unsub := s.Subscribe("doc", func([]byte) { t.Fatal("callback after Close") })
	unsub()
}
