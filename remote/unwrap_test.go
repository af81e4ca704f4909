package remote

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name string `json:"name"`
}

func TestUnwrapListBareArray(t *testing.T) {
	items := UnwrapList[item](json.RawMessage(`[{"name":"a"},{"name":"b"}]`))
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[1].Name)
}

func TestUnwrapListWrappedKeys(t *testing.T) {
	for _, raw := range []string{
		`{"products":[{"name":"a"}]}`,
		`{"data":[{"name":"a"}]}`,
		`{"results":[{"name":"a"}]}`,
		`{"reviews":[{"name":"a"}]}`,
		`{"orders":[{"name":"a"}]}`,
		`{"addresses":[{"name":"a"}]}`,
	} {
		items := UnwrapList[item](json.RawMessage(raw))
		require.Len(t, items, 1, raw)
		assert.Equal(t, "a", items[0].Name)
	}
}

func TestUnwrapListIgnoresUnknownShape(t *testing.T) {
	assert.Nil(t, UnwrapList[item](json.RawMessage(`{"stuff":[{"name":"a"}]}`)))
	assert.Nil(t, UnwrapList[item](json.RawMessage(`"nope"`)))
	assert.Nil(t, UnwrapList[item](json.RawMessage(`{"products":"not a list"}`)))
}

func TestUnwrapListEmpty(t *testing.T) {
	assert.Empty(t, UnwrapList[item](json.RawMessage(`[]`)))
	assert.Empty(t, UnwrapList[item](json.RawMessage(`{"products":[]}`)))
}
