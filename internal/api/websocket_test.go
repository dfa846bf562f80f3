package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(channels ...string) *WSClient {
	c := &WSClient{
		send:     make(chan []byte, 8),
		channels: make(map[string]bool),
	}
	for _, ch := range channels {
		c.channels[ch] = true
	}
	return c
}

func drain(c *WSClient) []WSMessage {
	var out []WSMessage
	for {
		select {
		case raw := <-c.send:
			var m WSMessage
			if err := json.Unmarshal(raw, &m); err == nil {
				out = append(out, m)
			}
		default:
			return out
		}
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub := NewWSHub()
	a := newTestClient("home")
	b := newTestClient()
	hub.addClient(a)
	hub.addClient(b)

	hub.Broadcast("home:update", map[string]int{"n": 1})

	require.Len(t, drain(a), 1)
	require.Len(t, drain(b), 1)
}

func TestBroadcastChannelFiltersBySubscription(t *testing.T) {
	hub := NewWSHub()
	in := newTestClient("premiere:e1")
	out := newTestClient("premiere:e2")
	hub.addClient(in)
	hub.addClient(out)

	hub.BroadcastChannel("premiere:e1", "chat:message", map[string]string{"body": "hi"})

	msgs := drain(in)
	require.Len(t, msgs, 1)
	assert.Equal(t, "chat:message", msgs[0].Event)
	assert.Empty(t, drain(out))
}

func TestSubscribeUnsubscribe(t *testing.T) {
	hub := NewWSHub()
	c := newTestClient()
	hub.addClient(c)

	c.setSubscribed("premiere:e1", true)
	hub.BroadcastChannel("premiere:e1", "premiere:live", nil)
	require.Len(t, drain(c), 1)

	c.setSubscribed("premiere:e1", false)
	hub.BroadcastChannel("premiere:e1", "premiere:live", nil)
	assert.Empty(t, drain(c))
}

func TestSlowConsumerDoesNotBlockBroadcast(t *testing.T) {
	hub := NewWSHub()
	c := &WSClient{send: make(chan []byte, 1), channels: map[string]bool{}}
	hub.addClient(c)

	// Second message overflows the buffer and is dropped, not blocked on.
	hub.Broadcast("a", nil)
	hub.Broadcast("b", nil)

	msgs := drain(c)
	require.Len(t, msgs, 1)
	assert.Equal(t, "a", msgs[0].Event)
}

func TestRemoveClientClosesSend(t *testing.T) {
	hub := NewWSHub()
	c := newTestClient()
	hub.addClient(c)
	require.Equal(t, 1, hub.ClientCount())

	hub.removeClient(c)
	assert.Equal(t, 0, hub.ClientCount())

	_, open := <-c.send
	assert.False(t, open)

	// Removing twice is a no-op.
	hub.removeClient(c)
}
