package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		data, key, payload string
	}{
		{"select_chain:osmosis", "select_chain", "osmosis"},
		{"page:2", "page", "2"},
		{"chain_info", "chain_info", ""},
		{"\fpage:3", "page", "3"},
		{"select_chain:a:b", "select_chain", "a:b"},
		{"", "", ""},
	}
	for _, tc := range cases {
		key, payload := Split(tc.data)
		assert.Equal(t, tc.key, key, tc.data)
		assert.Equal(t, tc.payload, payload, tc.data)
	}
}

func TestParseCallbackDataPrefersUnique(t *testing.T) {
	key, payload := ParseCallbackData(&tele.Callback{Unique: "btn", Data: "x"})
	assert.Equal(t, "btn", key)
	assert.Equal(t, "x", payload)

	key, payload = ParseCallbackData(nil)
	assert.Empty(t, key)
	assert.Empty(t, payload)
}
