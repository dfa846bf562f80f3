package curation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutEntryDecode(t *testing.T) {
	t.Run("legacy entry without type is internal", func(t *testing.T) {
		var e LayoutEntry
		require.NoError(t, json.Unmarshal([]byte(`{"contentId":"abc","orderIndex":3}`), &e))
		assert.Equal(t, EntryInternal, e.Kind)
		require.NotNil(t, e.Internal)
		assert.Equal(t, "abc", e.Internal.ContentID)
		require.NotNil(t, e.Internal.OrderIndex)
		assert.Equal(t, 3, *e.Internal.OrderIndex)
	})

	t.Run("external entry", func(t *testing.T) {
		var e LayoutEntry
		require.NoError(t, json.Unmarshal([]byte(
			`{"type":"external","title":"Fete","imageUrl":"i.png","externalLink":"https://x"}`), &e))
		assert.Equal(t, EntryExternal, e.Kind)
		require.NotNil(t, e.External)
		assert.Equal(t, "Fete", e.External.Title)
		assert.Nil(t, e.External.OrderIndex)
	})

	t.Run("round trip keeps the discriminator", func(t *testing.T) {
		in := NewInternalEntry("abc", intp(1))
		data, err := json.Marshal(in)
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"internal","contentId":"abc","orderIndex":1}`, string(data))

		var out LayoutEntry
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, in, out)
	})
}

func TestSlotsDocAccessors(t *testing.T) {
	var d SlotsDoc
	c := item("x")
	d.SetSlot(3, Slot{IsLocked: true, Content: &c})

	all := d.All()
	assert.True(t, all[2].IsLocked)
	require.NotNil(t, all[2].Content)
	assert.Equal(t, "x", all[2].Content.ID)

	for i, s := range all {
		if i != 2 {
			assert.Nil(t, s.Content)
		}
	}

	// Out-of-range slot numbers are ignored.
	d.SetSlot(0, Slot{IsLocked: true})
	d.SetSlot(7, Slot{IsLocked: true})
	assert.Equal(t, all, d.All())
}
