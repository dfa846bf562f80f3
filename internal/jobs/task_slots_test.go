package jobs

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caribbeat/caribbeat/internal/config"
	"github.com/caribbeat/caribbeat/internal/curation"
	"github.com/caribbeat/caribbeat/internal/models"
)

type fakePerformerSource struct {
	items     []models.ContentItem
	gotWindow time.Duration
	gotLimit  int
}

func (f *fakePerformerSource) TopPerformers(window time.Duration, limit int) ([]models.ContentItem, error) {
	f.gotWindow = window
	f.gotLimit = limit
	if limit < len(f.items) {
		return f.items[:limit], nil
	}
	return f.items, nil
}

type fakeSlotStore struct {
	doc   *curation.SlotsDoc
	saved *curation.SlotsDoc
}

func (f *fakeSlotStore) GetSlots() (*curation.SlotsDoc, error) { return f.doc, nil }
func (f *fakeSlotStore) SaveSlots(doc *curation.SlotsDoc) error {
	f.saved = doc
	return nil
}

type fakePublisher struct {
	paths []string
	docs  []interface{}
}

func (f *fakePublisher) Publish(path string, doc interface{}) error {
	f.paths = append(f.paths, path)
	f.docs = append(f.docs, doc)
	return nil
}

type fakeBroadcaster struct {
	events []string
}

func (f *fakeBroadcaster) Broadcast(event string, data interface{}) {
	f.events = append(f.events, event)
}

func performer(title string) models.ContentItem {
	return models.ContentItem{ID: uuid.New(), Title: title, IsActive: true}
}

func slotIDs(doc *curation.SlotsDoc) []string {
	out := make([]string, 6)
	for i, s := range doc.All() {
		if s.Content != nil {
			out[i] = s.Content.ID
		}
	}
	return out
}

func TestRotateFillsUnlockedSlots(t *testing.T) {
	items := []models.ContentItem{
		performer("one"), performer("two"), performer("three"),
		performer("four"), performer("five"), performer("six"),
	}
	source := &fakePerformerSource{items: items}
	store := &fakeSlotStore{doc: &curation.SlotsDoc{}}
	pub := &fakePublisher{}
	ws := &fakeBroadcaster{}
	cfg := &config.Config{TrendingWindowDays: 7}

	h := NewSlotRotationHandler(source, store, pub, ws, cfg)
	require.NoError(t, h.Rotate())

	require.NotNil(t, store.saved)
	want := make([]string, 6)
	for i := range items {
		want[i] = items[i].ID.String()
	}
	assert.Equal(t, want, slotIDs(store.saved))

	assert.Equal(t, 7*24*time.Hour, source.gotWindow)

	require.Equal(t, []string{curation.SlotsPath}, pub.paths)
	assert.Same(t, store.saved, pub.docs[0])
	assert.Equal(t, []string{"slots:rotated"}, ws.events)
}

func TestRotateKeepsLockedSlots(t *testing.T) {
	pinned := curation.Content{ID: uuid.NewString(), Title: "pinned", IsActive: true}
	doc := &curation.SlotsDoc{}
	doc.SetSlot(2, curation.Slot{IsLocked: true, Content: &pinned})

	items := []models.ContentItem{performer("a"), performer("b")}
	source := &fakePerformerSource{items: items}
	store := &fakeSlotStore{doc: doc}

	h := NewSlotRotationHandler(source, store, &fakePublisher{}, nil, &config.Config{TrendingWindowDays: 7})
	require.NoError(t, h.Rotate())

	got := slotIDs(store.saved)
	assert.Equal(t, items[0].ID.String(), got[0])
	assert.Equal(t, pinned.ID, got[1]) // untouched
	assert.Equal(t, items[1].ID.String(), got[2])
	assert.True(t, store.saved.Slot2.IsLocked)
}

func TestRotateSkipsPinnedDuplicates(t *testing.T) {
	// The top performer is already pinned in a locked slot; it must not fill
	// an unlocked one too.
	dup := performer("dup")
	pinned := curation.FromModel(&dup)
	doc := &curation.SlotsDoc{}
	doc.SetSlot(1, curation.Slot{IsLocked: true, Content: &pinned})

	other := performer("other")
	source := &fakePerformerSource{items: []models.ContentItem{dup, other}}
	store := &fakeSlotStore{doc: doc}

	h := NewSlotRotationHandler(source, store, &fakePublisher{}, nil, &config.Config{TrendingWindowDays: 7})
	require.NoError(t, h.Rotate())

	got := slotIDs(store.saved)
	assert.Equal(t, dup.ID.String(), got[0])
	assert.Equal(t, other.ID.String(), got[1])
	for _, id := range got[2:] {
		assert.Empty(t, id) // candidates ran dry, slots empty rather than repeat
	}
}

func TestRotateSkipsWhenAllLocked(t *testing.T) {
	doc := &curation.SlotsDoc{}
	for n := 1; n <= 6; n++ {
		doc.SetSlot(n, curation.Slot{IsLocked: true})
	}
	source := &fakePerformerSource{}
	store := &fakeSlotStore{doc: doc}
	pub := &fakePublisher{}

	h := NewSlotRotationHandler(source, store, pub, nil, &config.Config{TrendingWindowDays: 7})
	require.NoError(t, h.Rotate())

	assert.Nil(t, store.saved)
	assert.Empty(t, pub.paths)
	assert.Zero(t, source.gotLimit)
}
