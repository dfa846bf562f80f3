// Package curation merges the manually curated home layout, the six
// automated top-performer slots, and live per-item content documents into
// the ordered, deduplicated Featured and Trending display lists.
package curation

import (
	"encoding/json"
	"fmt"
	"time"
)

// Feed document paths. These mirror the document store layout the rest of
// the platform writes to.
const (
	LayoutPath = "homeLayout/config"
	SlotsPath  = "homeLayout/automatedSlots"
)

func ContentPath(id string) string {
	return "content/" + id
}

// Content is the live per-item document the compositor enriches from. It is
// the JSON shape of a published content item.
type Content struct {
	ID                 string    `json:"id"`
	CreatorID          string    `json:"creator_id"`
	CreatorName        string    `json:"creator_name"`
	Title              string    `json:"title"`
	Description        string    `json:"description,omitempty"`
	MainURL            string    `json:"main_url"`
	EmbedURL           string    `json:"embed_url,omitempty"`
	CustomThumbnailURL string    `json:"custom_thumbnail_url,omitempty"`
	ContentType        string    `json:"content_type"`
	IsActive           bool      `json:"is_active"`
	IsFeatured         bool      `json:"is_featured"`
	ViewCount          int64     `json:"view_count"`
	LikeCount          int64     `json:"like_count"`
	CreatedAt          time.Time `json:"created_at"`
}

// ──────────────────── Layout entries ────────────────────

type EntryKind string

const (
	EntryInternal EntryKind = "internal"
	EntryExternal EntryKind = "external"
)

// InternalEntry is a weak reference to a content item; the entry never owns
// the item, only its id.
type InternalEntry struct {
	ContentID  string `json:"contentId"`
	OrderIndex *int   `json:"orderIndex,omitempty"`
}

// ExternalEntry is an inline record with no backing content item.
type ExternalEntry struct {
	Title        string `json:"title"`
	ImageURL     string `json:"imageUrl"`
	ExternalLink string `json:"externalLink"`
	OrderIndex   *int   `json:"orderIndex,omitempty"`
}

// LayoutEntry is a tagged union: exactly one of Internal or External is set,
// according to Kind. The wire shape is flat, discriminated by "type".
type LayoutEntry struct {
	Kind     EntryKind
	Internal *InternalEntry
	External *ExternalEntry
}

func NewInternalEntry(contentID string, orderIndex *int) LayoutEntry {
	return LayoutEntry{Kind: EntryInternal, Internal: &InternalEntry{ContentID: contentID, OrderIndex: orderIndex}}
}

func NewExternalEntry(e ExternalEntry) LayoutEntry {
	return LayoutEntry{Kind: EntryExternal, External: &e}
}

// orderIndex returns the entry's order index, or sentinel when absent so
// unindexed entries sort after all indexed ones.
func (e LayoutEntry) orderIndex() int {
	switch e.Kind {
	case EntryInternal:
		if e.Internal != nil && e.Internal.OrderIndex != nil {
			return *e.Internal.OrderIndex
		}
	case EntryExternal:
		if e.External != nil && e.External.OrderIndex != nil {
			return *e.External.OrderIndex
		}
	}
	return missingOrderIndex
}

// missingOrderIndex is larger than any real index; it is an implementation
// detail, not part of the wire contract.
const missingOrderIndex = int(^uint(0) >> 1)

type layoutEntryWire struct {
	Type         EntryKind `json:"type"`
	ContentID    string    `json:"contentId,omitempty"`
	OrderIndex   *int      `json:"orderIndex,omitempty"`
	Title        string    `json:"title,omitempty"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	ExternalLink string    `json:"externalLink,omitempty"`
}

func (e LayoutEntry) MarshalJSON() ([]byte, error) {
	w := layoutEntryWire{Type: e.Kind}
	switch e.Kind {
	case EntryInternal:
		if e.Internal == nil {
			return nil, fmt.Errorf("internal entry without body")
		}
		w.ContentID = e.Internal.ContentID
		w.OrderIndex = e.Internal.OrderIndex
	case EntryExternal:
		if e.External == nil {
			return nil, fmt.Errorf("external entry without body")
		}
		w.Title = e.External.Title
		w.ImageURL = e.External.ImageURL
		w.ExternalLink = e.External.ExternalLink
		w.OrderIndex = e.External.OrderIndex
	default:
		return nil, fmt.Errorf("unknown entry kind %q", e.Kind)
	}
	return json.Marshal(w)
}

func (e *LayoutEntry) UnmarshalJSON(data []byte) error {
	var w layoutEntryWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Type {
	case EntryExternal:
		e.Kind = EntryExternal
		e.External = &ExternalEntry{
			Title:        w.Title,
			ImageURL:     w.ImageURL,
			ExternalLink: w.ExternalLink,
			OrderIndex:   w.OrderIndex,
		}
		e.Internal = nil
	default:
		// Legacy documents omit "type" on internal entries.
		e.Kind = EntryInternal
		e.Internal = &InternalEntry{ContentID: w.ContentID, OrderIndex: w.OrderIndex}
		e.External = nil
	}
	return nil
}

// LayoutDoc is the manually curated layout document. An absent document is
// treated as empty lists.
type LayoutDoc struct {
	FeaturedItems []LayoutEntry `json:"featuredItems"`
	TrendingItems []LayoutEntry `json:"trendingItems"`
}

// ──────────────────── Automated slots ────────────────────

// Slot is one of the six fixed top-performer positions. Content is a
// denormalized copy taken at assignment time; the live per-item document is
// authoritative once its subscription is established.
type Slot struct {
	IsLocked bool     `json:"isLocked"`
	Content  *Content `json:"content"`
}

// SlotsDoc holds exactly six slots; slot order is the authoritative ordering
// for automated content.
type SlotsDoc struct {
	Slot1 Slot `json:"slot_1"`
	Slot2 Slot `json:"slot_2"`
	Slot3 Slot `json:"slot_3"`
	Slot4 Slot `json:"slot_4"`
	Slot5 Slot `json:"slot_5"`
	Slot6 Slot `json:"slot_6"`
}

// All returns the slots in slot order.
func (d *SlotsDoc) All() [6]Slot {
	return [6]Slot{d.Slot1, d.Slot2, d.Slot3, d.Slot4, d.Slot5, d.Slot6}
}

// SetSlot replaces slot n (1-based).
func (d *SlotsDoc) SetSlot(n int, s Slot) {
	switch n {
	case 1:
		d.Slot1 = s
	case 2:
		d.Slot2 = s
	case 3:
		d.Slot3 = s
	case 4:
		d.Slot4 = s
	case 5:
		d.Slot5 = s
	case 6:
		d.Slot6 = s
	}
}

// ──────────────────── Display output ────────────────────

// DisplayItem is one renderable row entry: either an enriched internal item
// carrying its live content record, or an external pass-through.
type DisplayItem struct {
	Kind         EntryKind `json:"type"`
	ContentID    string    `json:"contentId,omitempty"`
	Content      *Content  `json:"content,omitempty"`
	Title        string    `json:"title,omitempty"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	ExternalLink string    `json:"externalLink,omitempty"`
}

// Snapshot is the derived state of both display lists. FeaturedDisplay is
// Featured with the first three items re-appended when the list exceeds
// three, for seamless-loop auto-scroll.
type Snapshot struct {
	Featured        []DisplayItem `json:"featured"`
	FeaturedDisplay []DisplayItem `json:"featured_display"`
	Trending        []DisplayItem `json:"trending"`
}
