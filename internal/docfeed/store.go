// Package docfeed is the real-time document feed: the latest JSON document
// per path, with subscribe/unsubscribe semantics matching a managed document
// store. A subscription always receives an initial snapshot (nil when the
// path does not exist) and every subsequent change; nil signals deletion.
//
// Writes are relayed over a Redis pub/sub channel so every node's local
// store converges; a store built without a Redis client works standalone,
// which is what unit tests and single-node deployments use.
package docfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const relayChannel = "docfeed:relay"

// OnChange receives the latest raw document for a path, or nil when the
// document was deleted or does not exist.
type OnChange func(data []byte)

// Unsubscribe tears down a subscription. Safe to call more than once.
type Unsubscribe func()

type relayMessage struct {
	Origin  string          `json:"origin"`
	Path    string          `json:"path"`
	Doc     json.RawMessage `json:"doc,omitempty"`
	Deleted bool            `json:"deleted,omitempty"`
}

type Store struct {
	origin string
	rdb    *redis.Client

	mu     sync.RWMutex
	docs   map[string][]byte
	subs   map[string]map[int]OnChange
	nextID int
	closed bool

	cancelRelay context.CancelFunc
}

// NewStore creates a feed store. rdb may be nil for a standalone store.
func NewStore(rdb *redis.Client) *Store {
	return &Store{
		origin: uuid.NewString(),
		rdb:    rdb,
		docs:   make(map[string][]byte),
		subs:   make(map[string]map[int]OnChange),
	}
}

// Start begins consuming relayed writes from other nodes. No-op without a
// Redis client.
func (s *Store) Start(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	ctx, s.cancelRelay = context.WithCancel(ctx)
	sub := s.rdb.Subscribe(ctx, relayChannel)
	go func() {
		defer sub.Close()
		for {
			msg, err := sub.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("docfeed: relay receive: %v", err)
				continue
			}
			var m relayMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				log.Printf("docfeed: bad relay payload: %v", err)
				continue
			}
			if m.Origin == s.origin {
				continue // already applied locally
			}
			if m.Deleted {
				s.applyDelete(m.Path)
			} else {
				s.apply(m.Path, m.Doc)
			}
		}
	}()
}

// Publish stores the document for path, notifies local subscribers, and
// relays the write to other nodes.
func (s *Store) Publish(path string, doc interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal doc %s: %w", path, err)
	}
	s.apply(path, data)
	return s.relay(relayMessage{Origin: s.origin, Path: path, Doc: data})
}

// Delete removes the document for path. Subscribers observe nil.
func (s *Store) Delete(path string) error {
	s.applyDelete(path)
	return s.relay(relayMessage{Origin: s.origin, Path: path, Deleted: true})
}

// Subscribe registers fn for path and synchronously delivers the current
// snapshot (nil when absent). Every later Publish/Delete on the path invokes
// fn with the fresh document until the returned Unsubscribe is called.
func (s *Store) Subscribe(path string, fn OnChange) Unsubscribe {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	id := s.nextID
	s.nextID++
	if s.subs[path] == nil {
		s.subs[path] = make(map[int]OnChange)
	}
	s.subs[path][id] = fn
	snapshot := s.docs[path]
	s.mu.Unlock()

	fn(snapshot)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if m := s.subs[path]; m != nil {
				delete(m, id)
				if len(m) == 0 {
					delete(s.subs, path)
				}
			}
			s.mu.Unlock()
		})
	}
}

// Close drops all subscriptions and stops the relay. No callback fires after
// Close returns.
func (s *Store) Close() {
	if s.cancelRelay != nil {
		s.cancelRelay()
	}
	s.mu.Lock()
	s.closed = true
	s.subs = make(map[string]map[int]OnChange)
	s.mu.Unlock()
}

func (s *Store) apply(path string, data []byte) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.docs[path] = data
	fns := s.snapshotSubs(path)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(data)
	}
}

func (s *Store) applyDelete(path string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	delete(s.docs, path)
	fns := s.snapshotSubs(path)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(nil)
	}
}

// snapshotSubs copies the subscriber list so callbacks run outside the lock.
// Caller must hold s.mu.
func (s *Store) snapshotSubs(path string) []OnChange {
	m := s.subs[path]
	if len(m) == 0 {
		return nil
	}
	fns := make([]OnChange, 0, len(m))
	for _, fn := range m {
		fns = append(fns, fn)
	}
	return fns
}

func (s *Store) relay(m relayMessage) error {
	if s.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal relay: %w", err)
	}
	if err := s.rdb.Publish(context.Background(), relayChannel, payload).Err(); err != nil {
		return fmt.Errorf("relay publish: %w", err)
	}
	return nil
}
