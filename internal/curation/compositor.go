package curation

import (
	"encoding/json"
	"log"
	"sort"
	"sync"

	"github.com/caribbeat/caribbeat/internal/docfeed"
)

// Feed is the document feed the compositor listens on. Satisfied by
// *docfeed.Store.
type Feed interface {
	Subscribe(path string, fn docfeed.OnChange) docfeed.Unsubscribe
}

// Compositor owns the merge state for one home feed: the latest layout and
// slots documents, a live cache of every referenced content item, and the
// derived display lists. Every input change triggers a full recompute from
// the latest snapshot of everything, so the output is deterministic
// regardless of update arrival order.
//
// The cache and subscription table are owned exclusively by the Compositor;
// all access is serialized through its mutex.
type Compositor struct {
	feed     Feed
	onChange func(Snapshot)

	mu       sync.Mutex
	layout   LayoutDoc
	slots    SlotsDoc
	cache    map[string]Content
	itemSubs map[string]docfeed.Unsubscribe
	snapshot Snapshot
	closed   bool

	unsubLayout docfeed.Unsubscribe
	unsubSlots  docfeed.Unsubscribe
}

// New creates a compositor on feed. onChange, if non-nil, is invoked with
// the fresh snapshot after every recompute.
func New(feed Feed, onChange func(Snapshot)) *Compositor {
	return &Compositor{
		feed:     feed,
		onChange: onChange,
		cache:    make(map[string]Content),
		itemSubs: make(map[string]docfeed.Unsubscribe),
	}
}

// Start subscribes to the layout and slots documents. The feed delivers
// initial snapshots synchronously, so the first recompute happens before
// Start returns.
func (c *Compositor) Start() {
	c.unsubLayout = c.feed.Subscribe(LayoutPath, c.handleLayout)
	c.unsubSlots = c.feed.Subscribe(SlotsPath, c.handleSlots)
}

// Close tears down every active subscription. No recompute or onChange call
// happens afterwards.
func (c *Compositor) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	unsubs := make([]docfeed.Unsubscribe, 0, len(c.itemSubs)+2)
	if c.unsubLayout != nil {
		unsubs = append(unsubs, c.unsubLayout)
	}
	if c.unsubSlots != nil {
		unsubs = append(unsubs, c.unsubSlots)
	}
	for _, u := range c.itemSubs {
		if u != nil {
			unsubs = append(unsubs, u)
		}
	}
	c.itemSubs = make(map[string]docfeed.Unsubscribe)
	c.cache = make(map[string]Content)
	c.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
}

// Snapshot returns the latest derived display lists.
func (c *Compositor) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// ──────────────────── Input handlers ────────────────────

func (c *Compositor) handleLayout(data []byte) {
	var doc LayoutDoc
	if data != nil {
		if err := json.Unmarshal(data, &doc); err != nil {
			log.Printf("curation: bad layout doc: %v", err)
			return
		}
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.layout = doc
	c.mu.Unlock()

	c.reconcileSubscriptions()
	c.recompute()
}

func (c *Compositor) handleSlots(data []byte) {
	var doc SlotsDoc
	if data != nil {
		if err := json.Unmarshal(data, &doc); err != nil {
			log.Printf("curation: bad slots doc: %v", err)
			return
		}
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.slots = doc
	c.mu.Unlock()

	c.reconcileSubscriptions()
	c.recompute()
}

func (c *Compositor) handleItem(id string, data []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if _, referenced := c.itemSubs[id]; !referenced {
		// Stale callback from a subscription torn down mid-flight.
		c.mu.Unlock()
		return
	}
	if data == nil {
		// Deletion: drop the key entirely, never serve a stale copy.
		delete(c.cache, id)
	} else {
		var item Content
		if err := json.Unmarshal(data, &item); err != nil {
			log.Printf("curation: bad content doc %s: %v", id, err)
			delete(c.cache, id)
		} else {
			if item.ID == "" {
				item.ID = id
			}
			c.cache[id] = item
		}
	}
	c.mu.Unlock()

	c.recompute()
}

// ──────────────────── Subscription universe ────────────────────

// reconcileSubscriptions aligns per-item subscriptions with the set of
// content ids referenced by the current layout and slots. Ids that fell out
// of the universe are unsubscribed and evicted from the cache so the
// subscription count cannot grow without bound.
func (c *Compositor) reconcileSubscriptions() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	universe := c.universeLocked()

	var added []string
	for id := range universe {
		if _, ok := c.itemSubs[id]; !ok {
			c.itemSubs[id] = nil // reserved while the subscribe is in flight
			added = append(added, id)
		}
	}

	var stale []docfeed.Unsubscribe
	for id, unsub := range c.itemSubs {
		if _, ok := universe[id]; !ok {
			if unsub != nil {
				stale = append(stale, unsub)
			}
			delete(c.itemSubs, id)
			delete(c.cache, id)
		}
	}
	c.mu.Unlock()

	for _, unsub := range stale {
		unsub()
	}

	for _, id := range added {
		id := id
		unsub := c.feed.Subscribe(ContentPath(id), func(data []byte) {
			c.handleItem(id, data)
		})

		c.mu.Lock()
		_, wanted := c.itemSubs[id]
		if wanted && !c.closed {
			c.itemSubs[id] = unsub
			c.mu.Unlock()
		} else {
			// Universe changed (or Close ran) while subscribing.
			c.mu.Unlock()
			unsub()
		}
	}
}

// universeLocked computes the set of content ids referenced by any source.
func (c *Compositor) universeLocked() map[string]struct{} {
	u := make(map[string]struct{})
	collect := func(entries []LayoutEntry) {
		for _, e := range entries {
			if e.Kind == EntryInternal && e.Internal != nil && e.Internal.ContentID != "" {
				u[e.Internal.ContentID] = struct{}{}
			}
		}
	}
	collect(c.layout.FeaturedItems)
	collect(c.layout.TrendingItems)
	for _, s := range c.slots.All() {
		if s.Content != nil && s.Content.ID != "" {
			u[s.Content.ID] = struct{}{}
		}
	}
	return u
}

// ──────────────────── Recompute ────────────────────

// recompute rebuilds both display lists from scratch off the latest state.
// Full recompute, not incremental patching: correctness over
// micro-optimization, and it makes the output independent of update
// interleaving.
func (c *Compositor) recompute() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	featured := c.enrichLocked(sortByOrderIndex(c.layout.FeaturedItems))

	// Slots 1..6 in slot order lead the trending list; the embedded content
	// copy only contributes the id, enrichment resolves the live document.
	slotIDs := make(map[string]struct{})
	var slotEntries []LayoutEntry
	for _, s := range c.slots.All() {
		if s.Content == nil || s.Content.ID == "" {
			continue
		}
		if _, dup := slotIDs[s.Content.ID]; dup {
			continue
		}
		slotIDs[s.Content.ID] = struct{}{}
		slotEntries = append(slotEntries, NewInternalEntry(s.Content.ID, nil))
	}

	// Manual entries whose id is already taken by a slot are dropped; the
	// slot position wins.
	manual := make([]LayoutEntry, 0, len(c.layout.TrendingItems))
	for _, e := range c.layout.TrendingItems {
		if e.Kind == EntryInternal && e.Internal != nil {
			if _, taken := slotIDs[e.Internal.ContentID]; taken {
				continue
			}
		}
		manual = append(manual, e)
	}
	manual = sortByOrderIndex(manual)

	trending := dedupeByContentID(c.enrichLocked(append(slotEntries, manual...)))

	display := featured
	if len(featured) > 3 {
		display = make([]DisplayItem, 0, len(featured)+3)
		display = append(display, featured...)
		display = append(display, featured[:3]...)
	}

	snap := Snapshot{Featured: featured, FeaturedDisplay: display, Trending: trending}
	c.snapshot = snap
	cb := c.onChange
	c.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
}

// enrichLocked resolves internal entries through the live cache. Entries
// whose item is missing or inactive are dropped; external entries pass
// through unchanged. Caller must hold c.mu.
func (c *Compositor) enrichLocked(entries []LayoutEntry) []DisplayItem {
	out := make([]DisplayItem, 0, len(entries))
	for _, e := range entries {
		switch e.Kind {
		case EntryInternal:
			if e.Internal == nil {
				continue
			}
			item, ok := c.cache[e.Internal.ContentID]
			if !ok || !item.IsActive {
				continue
			}
			cc := item
			out = append(out, DisplayItem{
				Kind:      EntryInternal,
				ContentID: cc.ID,
				Content:   &cc,
				Title:     cc.Title,
				ImageURL:  cc.CustomThumbnailURL,
			})
		case EntryExternal:
			if e.External == nil {
				continue
			}
			out = append(out, DisplayItem{
				Kind:         EntryExternal,
				Title:        e.External.Title,
				ImageURL:     e.External.ImageURL,
				ExternalLink: e.External.ExternalLink,
			})
		}
	}
	return out
}

func sortByOrderIndex(entries []LayoutEntry) []LayoutEntry {
	sorted := make([]LayoutEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].orderIndex() < sorted[j].orderIndex()
	})
	return sorted
}

// dedupeByContentID keeps the first occurrence of each internal content id;
// external entries are never deduplicated.
func dedupeByContentID(items []DisplayItem) []DisplayItem {
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]
	for _, it := range items {
		if it.Kind == EntryInternal {
			if _, dup := seen[it.ContentID]; dup {
				continue
			}
			seen[it.ContentID] = struct{}{}
		}
		out = append(out, it)
	}
	return out
}
