package message

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipd/internal/history"
	"go.klb.dev/clipd/internal/hub"
)

func TestItemsKeepMIMEOrder(t *testing.T) {
	data := history.MIMEData{
		{MIME: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}},
		{MIME: history.MIMEText, Data: []byte("caption")},
	}
	items := ItemsOf(data)
	assert.Equal(t, "image/png", items[0].MIME)

	got, err := MIMEData(items)
	require.NoError(t, err)
	if diff := cmp.Diff(data, got); diff != "" {
		t.Errorf("mime data mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeHistoryResponse(t *testing.T) {
	m, err := Decode([]byte(`{"type":"HISTORY","items":[{"id":3,"content_type":"Url","preview":"https://go.dev","timestamp":1,"pinned":true}]}`))
	require.NoError(t, err)
	require.Len(t, m.History, 1)
	assert.Equal(t, history.Preview{
		ID:          3,
		ContentType: history.URL,
		Preview:     "https://go.dev",
		Timestamp:   1,
		Pinned:      true,
	}, m.History[0])

	_, err = Decode([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestErrorf(t *testing.T) {
	m := Errorf("no item %d", 4)
	assert.Equal(t, TypeError, m.Type)
	assert.Equal(t, "no item 4", m.Error)
}

func TestFromEventEncodesEntry(t *testing.T) {
	m := FromEvent(hub.Event{Kind: hub.NewItem, ID: 4, Entry: &history.Preview{ID: 4, ContentType: history.Code, Preview: "fn main"}})
	raw, err := m.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"NEW_ITEM","id":4,"entry":{"id":4,"content_type":"Code","preview":"fn main","timestamp":0,"pinned":false}}`, string(raw))
}
