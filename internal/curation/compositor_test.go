package curation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caribbeat/caribbeat/internal/docfeed"
)

func intp(n int) *int { return &n }

func item(id string) Content {
	return Content{ID: id, Title: "title-" + id, IsActive: true}
}

// harness wires a compositor to a standalone feed store and publishes the
// fixture documents.
type harness struct {
	feed *docfeed.Store
	comp *Compositor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{feed: docfeed.NewStore(nil)}
	h.comp = New(h.feed, nil)
	h.comp.Start()
	t.Cleanup(h.comp.Close)
	return h
}

func (h *harness) publishItem(c Content) {
	if err := h.feed.Publish(ContentPath(c.ID), c); err != nil {
		panic(err)
	}
}

func (h *harness) publishLayout(doc LayoutDoc) {
	if err := h.feed.Publish(LayoutPath, doc); err != nil {
		panic(err)
	}
}

func (h *harness) publishSlots(doc SlotsDoc) {
	if err := h.feed.Publish(SlotsPath, doc); err != nil {
		panic(err)
	}
}

func ids(items []DisplayItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		if it.Kind == EntryExternal {
			out[i] = "ext:" + it.Title
		} else {
			out[i] = it.ContentID
		}
	}
	return out
}

func TestFeaturedOrdering(t *testing.T) {
	h := newHarness(t)

	h.publishLayout(LayoutDoc{FeaturedItems: []LayoutEntry{
		NewInternalEntry("b", intp(2)),
		NewInternalEntry("a", intp(1)),
		NewInternalEntry("c", nil), // missing index sorts last
	}})
	for _, id := range []string{"a", "b", "c"} {
		h.publishItem(item(id))
	}

	snap := h.comp.Snapshot()
	assert.Equal(t, []string{"a", "b", "c"}, ids(snap.Featured))
}

func TestFeaturedOrderingIsStableForTies(t *testing.T) {
	h := newHarness(t)

	h.publishLayout(LayoutDoc{FeaturedItems: []LayoutEntry{
		NewInternalEntry("x", intp(5)),
		NewInternalEntry("y", intp(5)),
	}})
	h.publishItem(item("x"))
	h.publishItem(item("y"))

	assert.Equal(t, []string{"x", "y"}, ids(h.comp.Snapshot().Featured))
}

func TestFeaturedDisplayLoopExtension(t *testing.T) {
	h := newHarness(t)

	t.Run("short list is unchanged", func(t *testing.T) {
		h.publishLayout(LayoutDoc{FeaturedItems: []LayoutEntry{
			NewInternalEntry("a", intp(1)),
			NewInternalEntry("b", intp(2)),
			NewInternalEntry("c", intp(3)),
		}})
		for _, id := range []string{"a", "b", "c"} {
			h.publishItem(item(id))
		}
		snap := h.comp.Snapshot()
		assert.Equal(t, []string{"a", "b", "c"}, ids(snap.FeaturedDisplay))
	})

	t.Run("longer list re-appends the first three", func(t *testing.T) {
		h.publishLayout(LayoutDoc{FeaturedItems: []LayoutEntry{
			NewInternalEntry("a", intp(1)),
			NewInternalEntry("b", intp(2)),
			NewInternalEntry("c", intp(3)),
			NewInternalEntry("d", intp(4)),
		}})
		h.publishItem(item("d"))
		snap := h.comp.Snapshot()
		assert.Equal(t, []string{"a", "b", "c", "d", "a", "b", "c"}, ids(snap.FeaturedDisplay))
		assert.Equal(t, []string{"a", "b", "c", "d"}, ids(snap.Featured))
	})
}

func TestTrendingSlotsLeadThenManual(t *testing.T) {
	h := newHarness(t)

	var slots SlotsDoc
	s2 := item("s2")
	s5 := item("s5")
	slots.SetSlot(2, Slot{Content: &s2})
	slots.SetSlot(5, Slot{Content: &s5})
	h.publishSlots(slots)

	h.publishLayout(LayoutDoc{TrendingItems: []LayoutEntry{
		NewInternalEntry("m2", intp(2)),
		NewInternalEntry("m1", intp(1)),
	}})
	for _, id := range []string{"s2", "s5", "m1", "m2"} {
		h.publishItem(item(id))
	}

	snap := h.comp.Snapshot()
	assert.Equal(t, []string{"s2", "s5", "m1", "m2"}, ids(snap.Trending))
}

func TestTrendingSlotWinsOverManualDuplicate(t *testing.T) {
	h := newHarness(t)

	var slots SlotsDoc
	dup := item("dup")
	slots.SetSlot(1, Slot{Content: &dup})
	h.publishSlots(slots)

	// The manual entry for the same id carries the lowest order index, but
	// the slot position still decides placement.
	h.publishLayout(LayoutDoc{TrendingItems: []LayoutEntry{
		NewInternalEntry("dup", intp(0)),
		NewInternalEntry("other", intp(1)),
	}})
	h.publishItem(item("dup"))
	h.publishItem(item("other"))

	snap := h.comp.Snapshot()
	assert.Equal(t, []string{"dup", "other"}, ids(snap.Trending))
}

func TestExternalEntriesPassThrough(t *testing.T) {
	h := newHarness(t)

	h.publishLayout(LayoutDoc{TrendingItems: []LayoutEntry{
		NewExternalEntry(ExternalEntry{Title: "Carnival", ExternalLink: "https://example.com", OrderIndex: intp(1)}),
		NewInternalEntry("a", intp(2)),
	}})
	h.publishItem(item("a"))

	snap := h.comp.Snapshot()
	require.Len(t, snap.Trending, 2)
	assert.Equal(t, EntryExternal, snap.Trending[0].Kind)
	assert.Equal(t, "Carnival", snap.Trending[0].Title)
	assert.Equal(t, "https://example.com", snap.Trending[0].ExternalLink)
	assert.Nil(t, snap.Trending[0].Content)
}

func TestUnresolvedAndInactiveItemsAreDropped(t *testing.T) {
	h := newHarness(t)

	h.publishLayout(LayoutDoc{FeaturedItems: []LayoutEntry{
		NewInternalEntry("live", intp(1)),
		NewInternalEntry("missing", intp(2)),
		NewInternalEntry("inactive", intp(3)),
	}})
	h.publishItem(item("live"))
	inactive := item("inactive")
	inactive.IsActive = false
	h.publishItem(inactive)

	assert.Equal(t, []string{"live"}, ids(h.comp.Snapshot().Featured))
}

func TestItemDeletionEvictsFromOutput(t *testing.T) {
	h := newHarness(t)

	h.publishLayout(LayoutDoc{FeaturedItems: []LayoutEntry{
		NewInternalEntry("a", intp(1)),
		NewInternalEntry("b", intp(2)),
	}})
	h.publishItem(item("a"))
	h.publishItem(item("b"))
	require.Equal(t, []string{"a", "b"}, ids(h.comp.Snapshot().Featured))

	require.NoError(t, h.feed.Delete(ContentPath("a")))
	assert.Equal(t, []string{"b"}, ids(h.comp.Snapshot().Featured))
}

func TestLiveItemUpdateFlowsThrough(t *testing.T) {
	h := newHarness(t)

	h.publishLayout(LayoutDoc{FeaturedItems: []LayoutEntry{NewInternalEntry("a", intp(1))}})
	h.publishItem(item("a"))

	updated := item("a")
	updated.Title = "renamed"
	updated.ViewCount = 42
	h.publishItem(updated)

	snap := h.comp.Snapshot()
	require.Len(t, snap.Featured, 1)
	assert.Equal(t, "renamed", snap.Featured[0].Content.Title)
	assert.Equal(t, int64(42), snap.Featured[0].Content.ViewCount)
}

func TestOutputIndependentOfArrivalOrder(t *testing.T) {
	layout := LayoutDoc{FeaturedItems: []LayoutEntry{
		NewInternalEntry("a", intp(1)),
		NewInternalEntry("b", intp(2)),
	}}
	var slots SlotsDoc
	s1 := item("s1")
	slots.SetSlot(1, Slot{Content: &s1})

	run := func(publish func(h *harness)) Snapshot {
		h := newHarness(t)
		publish(h)
		return h.comp.Snapshot()
	}

	first := run(func(h *harness) {
		h.publishLayout(layout)
		h.publishSlots(slots)
		h.publishItem(item("a"))
		h.publishItem(item("b"))
		h.publishItem(item("s1"))
	})
	second := run(func(h *harness) {
		// Items land before the documents that reference them exist; the
		// store replays the snapshot when the subscription is established.
		h.publishItem(item("s1"))
		h.publishItem(item("b"))
		h.publishItem(item("a"))
		h.publishSlots(slots)
		h.publishLayout(layout)
	})

	assert.Equal(t, ids(first.Featured), ids(second.Featured))
	assert.Equal(t, ids(first.Trending), ids(second.Trending))
}

func TestSubscriptionsFollowTheUniverse(t *testing.T) {
	h := newHarness(t)

	h.publishLayout(LayoutDoc{FeaturedItems: []LayoutEntry{NewInternalEntry("a", intp(1))}})
	h.publishItem(item("a"))
	require.Equal(t, []string{"a"}, ids(h.comp.Snapshot().Featured))

	// Replacing the layout drops "a" from the universe; later writes to it
	// must not resurrect it.
	h.publishLayout(LayoutDoc{FeaturedItems: []LayoutEntry{NewInternalEntry("b", intp(1))}})
	h.publishItem(item("b"))
	h.publishItem(item("a"))

	assert.Equal(t, []string{"b"}, ids(h.comp.Snapshot().Featured))
}

func TestOnChangeFiresWithFreshSnapshot(t *testing.T) {
	feed := docfeed.NewStore(nil)
	var last Snapshot
	calls := 0
	comp := New(feed, func(s Snapshot) {
		last = s
		calls++
	})
	comp.Start()
	defer comp.Close()

	require.NoError(t, feed.Publish(LayoutPath, LayoutDoc{FeaturedItems: []LayoutEntry{NewInternalEntry("a", intp(1))}}))
	require.NoError(t, feed.Publish(ContentPath("a"), item("a")))

	assert.Greater(t, calls, 0)
	assert.Equal(t, []string{"a"}, ids(last.Featured))
}

func TestCloseStopsRecomputation(t *testing.T) {
	feed := docfeed.NewStore(nil)
	comp := New(feed, nil)
	comp.Start()

	require.NoError(t, feed.Publish(LayoutPath, LayoutDoc{FeaturedItems: []LayoutEntry{NewInternalEntry("a", intp(1))}}))
	require.NoError(t, feed.Publish(ContentPath("a"), item("a")))
	require.Equal(t, []string{"a"}, ids(comp.Snapshot().Featured))

	comp.Close()
	before := comp.Snapshot()
	require.NoError(t, feed.Publish(ContentPath("a"), item("changed")))
	assert.Equal(t, before, comp.Snapshot())
}
