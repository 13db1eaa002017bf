package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		check func(t *testing.T, m Message)
	}{
		{
			name:  "extra properties",
			input: `{"_msgid":"1","extra":[1,2],"payload":{"x":1},"result":null,"topic":"A-1"}`,
			check: func(t *testing.T, m Message) {
				assert.Equal(t, "1", m.ID)
				assert.Equal(t, "A-1", m.Topic)
				assert.JSONEq(t, `{"x":1}`, string(m.Payload))
				assert.JSONEq(t, `[1,2]`, string(m.Extra["extra"]))
				assert.True(t, m.HasPayload())
			},
		},
		{
			name:  "null properties",
			input: `{"payload":null,"result":null,"topic":null}`,
			want:  `{"payload":null,"result":null}`,
			check: func(t *testing.T, m Message) {
				assert.Empty(t, m.Topic)
				assert.False(t, m.HasPayload())
				assert.Empty(t, m.Extra)
			},
		},
		{
			name:  "numeric topic",
			input: `{"topic":42}`,
			want:  `{"topic":"42"}`,
			check: func(t *testing.T, m Message) {
				assert.Equal(t, "42", m.Topic)
			},
		},
		{
			name:  "boolean id",
			input: `{"_msgid":true,"jql":1.5}`,
			want:  `{"_msgid":"true","jql":"1.5"}`,
			check: func(t *testing.T, m Message) {
				assert.Equal(t, "true", m.ID)
				assert.Equal(t, "1.5", m.JQL)
			},
		},
		{
			name:  "object topic",
			input: `{"topic":{"a":1},"_msgid":"7"}`,
			check: func(t *testing.T, m Message) {
				assert.Empty(t, m.Topic)
				assert.JSONEq(t, `{"a":1}`, string(m.Extra["topic"]))
			},
		},
		{
			name:  "empty object",
			input: `{}`,
			check: func(t *testing.T, m Message) {
				assert.Equal(t, Message{}, m)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Message
			require.NoError(t, json.Unmarshal([]byte(tt.input), &m))
			tt.check(t, m)

			out, err := json.Marshal(m)
			require.NoError(t, err)
			want := tt.want
			if want == "" {
				want = tt.input
			}
			assert.JSONEq(t, want, string(out))
		})
	}
}

func TestMessageUnmarshalErrors(t *testing.T) {
	for _, input := range []string{`nope`, `[1,2]`, `"topic"`, `{"topic":`} {
		t.Run(input, func(t *testing.T) {
			var m Message
			assert.Error(t, json.Unmarshal([]byte(input), &m))
		})
	}
}

func TestMessageUnmarshalResetsFields(t *testing.T) {
	m := Message{ID: "old", Topic: "OLD-1", Extra: map[string]json.RawMessage{"x": json.RawMessage(`1`)}}
	require.NoError(t, json.Unmarshal([]byte(`{"jql":"project = A"}`), &m))

	assert.Equal(t, Message{JQL: "project = A"}, m)
}

func TestMessageClone(t *testing.T) {
	orig := &Message{
		ID:      "1",
		Topic:   "A-1",
		Payload: json.RawMessage(`{"x":1}`),
		Result:  json.RawMessage(`{"key":"A-1"}`),
		Extra:   map[string]json.RawMessage{"extra": json.RawMessage(`[1,2]`)},
	}

	c := orig.Clone()
	require.Equal(t, orig, c)

	c.Topic = "B-2"
	c.Payload[2] = 'y'
	c.Result[0] = '['
	c.Extra["extra"][1] = '9'
	c.Extra["added"] = json.RawMessage(`true`)

	assert.Equal(t, "A-1", orig.Topic)
	assert.JSONEq(t, `{"x":1}`, string(orig.Payload))
	assert.JSONEq(t, `{"key":"A-1"}`, string(orig.Result))
	assert.JSONEq(t, `[1,2]`, string(orig.Extra["extra"]))
	assert.NotContains(t, orig.Extra, "added")
}

func TestMessageCloneWithoutExtra(t *testing.T) {
	c := (&Message{Topic: "A-1"}).Clone()
	assert.Nil(t, c.Extra)
	assert.Nil(t, c.Payload)
}

func TestMessageSet(t *testing.T) {
	tests := []struct {
		name      string
		prop      string
		value     any
		field     func(m *Message) string
		wantField string
		extra     bool
	}{
		{name: "id", prop: PropID, value: "m-1", field: func(m *Message) string { return m.ID }, wantField: "m-1"},
		{name: "topic", prop: PropTopic, value: "A-1", field: func(m *Message) string { return m.Topic }, wantField: "A-1"},
		{name: "jql", prop: PropJQL, value: "project = A", field: func(m *Message) string { return m.JQL }, wantField: "project = A"},
		{name: "payload", prop: PropPayload, value: map[string]int{"x": 1}, field: func(m *Message) string { return string(m.Payload) }, wantField: `{"x":1}`},
		{name: "result", prop: PropResult, value: []string{"a"}, field: func(m *Message) string { return string(m.Result) }, wantField: `["a"]`},
		{name: "extra", prop: "issueKey", value: "A-1", field: func(m *Message) string { return string(m.Extra["issueKey"]) }, wantField: `"A-1"`, extra: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Message
			require.NoError(t, m.Set(tt.prop, tt.value))
			assert.Equal(t, tt.wantField, tt.field(&m))

			raw, ok := m.Get(tt.prop)
			require.True(t, ok)
			want, err := json.Marshal(tt.value)
			require.NoError(t, err)
			assert.JSONEq(t, string(want), string(raw))

			if !tt.extra {
				assert.Empty(t, m.Extra)
			}
		})
	}
}

func TestMessageSetErrors(t *testing.T) {
	tests := []struct {
		name  string
		prop  string
		value any
	}{
		{name: "numeric id", prop: PropID, value: 5},
		{name: "object topic", prop: PropTopic, value: map[string]int{"a": 1}},
		{name: "list jql", prop: PropJQL, value: []string{"a"}},
		{name: "unencodable extra", prop: "x", value: make(chan int)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Message
			err := m.Set(tt.prop, tt.value)
			assert.ErrorContains(t, err, tt.prop)
			assert.Equal(t, Message{}, m)
		})
	}
}

func TestMessageGetUnset(t *testing.T) {
	var m Message
	for _, name := range []string{PropID, PropTopic, PropJQL, PropPayload, PropResult, "other"} {
		_, ok := m.Get(name)
		assert.False(t, ok, name)
	}
}

func TestIssueField(t *testing.T) {
	issue := Issue{
		Key: "A-1",
		Fields: map[string]json.RawMessage{
			"summary":  json.RawMessage(`"first"`),
			"assignee": json.RawMessage(`null`),
			"votes":    json.RawMessage(`"many"`),
		},
	}

	t.Run("present", func(t *testing.T) {
		var summary string
		ok, err := issue.Field("summary", &summary)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "first", summary)
	})

	t.Run("absent and null", func(t *testing.T) {
		for _, name := range []string{"missing", "assignee"} {
			var v any
			ok, err := issue.Field(name, &v)
			require.NoError(t, err)
			assert.False(t, ok, name)
			assert.Nil(t, v)
		}
	})

	t.Run("wrong type", func(t *testing.T) {
		var votes int
		ok, err := issue.Field("votes", &votes)
		assert.True(t, ok)
		assert.ErrorContains(t, err, `"votes" of A-1`)
	})
}
