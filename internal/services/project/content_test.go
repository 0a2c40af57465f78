package project

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentFromStored(t *testing.T) {
	tests := []struct {
		name       string
		stored     string
		structured bool
	}{
		{"json object", `{"files":{"a.js":"x"}}`, true},
		{"json array", `[1,2,3]`, true},
		{"plain text", "hello world", false},
		{"numeric string stays text", "123", false},
		{"boolean string stays text", "true", false},
		{"quoted string stays text", `"hello"`, false},
		{"broken json stays text", `{"a":`, false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := FromStored(tt.stored)
			assert.Equal(t, tt.structured, c.Structured())
			assert.Equal(t, tt.stored, c.Stored())
		})
	}
}

func TestContentMarshal(t *testing.T) {
	raw, err := sonic.Marshal(Text("hello"))
	require.NoError(t, err)
	assert.Equal(t, `"hello"`, string(raw))

	// a numeric string must not turn into a JSON number
	raw, err = sonic.Marshal(Text("123"))
	require.NoError(t, err)
	assert.Equal(t, `"123"`, string(raw))

	raw, err = sonic.Marshal(FromStored(`{"a":1}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(raw))
}

func TestContentUnmarshal(t *testing.T) {
	var c Content

	require.NoError(t, sonic.Unmarshal([]byte(`"plain"`), &c))
	assert.False(t, c.Structured())
	assert.Equal(t, "plain", c.Stored())

	require.NoError(t, sonic.Unmarshal([]byte(`{"a":1}`), &c))
	assert.True(t, c.Structured())

	require.NoError(t, sonic.Unmarshal([]byte(`null`), &c))
	assert.Equal(t, "", c.Stored())

	require.NoError(t, sonic.Unmarshal([]byte(`42`), &c))
	assert.False(t, c.Structured())
	assert.Equal(t, "42", c.Stored())
}

func TestContentRoundTrip(t *testing.T) {
	// what goes in through the API must come back out unchanged after a
	// trip through storage
	inputs := [][]byte{
		[]byte(`"hello"`),
		[]byte(`"123"`),
		[]byte(`{"files":{"a.js":"code"}}`),
		[]byte(`[1,2,3]`),
	}

	for _, input := range inputs {
		var c Content
		require.NoError(t, sonic.Unmarshal(input, &c))

		restored := FromStored(c.Stored())
		out, err := sonic.Marshal(restored)
		require.NoError(t, err)
		assert.JSONEq(t, string(input), string(out), "input %s", input)
	}
}

func TestContentScanValue(t *testing.T) {
	c := FromStored(`{"a":1}`)
	v, err := c.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, v)

	var scanned Content
	require.NoError(t, scanned.Scan(`{"a":1}`))
	assert.True(t, scanned.Structured())

	require.NoError(t, scanned.Scan([]byte("plain")))
	assert.False(t, scanned.Structured())
	assert.Equal(t, "plain", scanned.Stored())

	require.NoError(t, scanned.Scan(nil))
	assert.Equal(t, "", scanned.Stored())

	assert.Error(t, scanned.Scan(42))
}
