// Package models defines data structures shared across the application.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"sort"
	"strconv"
)

// Well-known message properties.
const (
	PropID      = "_msgid"
	PropTopic   = "topic"
	PropPayload = "payload"
	PropJQL     = "jql"
	PropResult  = "result"
)

// Message is the envelope flowing between nodes. It encodes as a flat JSON
// object: the well-known properties plus any extra properties the flow
// attached.
type Message struct {
	// ID identifies the message inside the flow
	ID string

	// Topic usually carries the issue key
	Topic string

	// Payload is the operation specific body
	Payload json.RawMessage

	// JQL optionally overrides the search query
	JQL string

	// Result holds a search hit
	Result json.RawMessage

	// Extra holds every other property, keyed by name
	Extra map[string]json.RawMessage
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	c := &Message{
		ID:      m.ID,
		Topic:   m.Topic,
		Payload: cloneRaw(m.Payload),
		JQL:     m.JQL,
		Result:  cloneRaw(m.Result),
	}
	if m.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(m.Extra))
		for k, v := range m.Extra {
			c.Extra[k] = cloneRaw(v)
		}
	}
	return c
}

// Set stores value under the named property. Well-known names map onto the
// typed fields; string properties (topic, jql, _msgid) accept JSON strings only.
func (m *Message) Set(name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode property %q: %w", name, err)
	}

	switch name {
	case PropID, PropTopic, PropJQL:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("property %q must be a string: %w", name, err)
		}
		switch name {
		case PropID:
			m.ID = s
		case PropTopic:
			m.Topic = s
		default:
			m.JQL = s
		}
	case PropPayload:
		m.Payload = raw
	case PropResult:
		m.Result = raw
	default:
		m.setExtra(name, raw)
	}
	return nil
}

func (m *Message) setExtra(name string, raw json.RawMessage) {
	if m.Extra == nil {
		m.Extra = make(map[string]json.RawMessage)
	}
	m.Extra[name] = raw
}

// Get returns the raw JSON of the named property and whether it is set.
func (m *Message) Get(name string) (json.RawMessage, bool) {
	switch name {
	case PropID:
		return stringRaw(m.ID)
	case PropTopic:
		return stringRaw(m.Topic)
	case PropJQL:
		return stringRaw(m.JQL)
	case PropPayload:
		return m.Payload, len(m.Payload) > 0
	case PropResult:
		return m.Result, len(m.Result) > 0
	}
	v, ok := m.Extra[name]
	return v, ok
}

// HasPayload reports whether the message carries a non-null payload.
func (m *Message) HasPayload() bool {
	return len(m.Payload) > 0 && string(m.Payload) != "null"
}

// MarshalJSON flattens the message into a single object.
func (m Message) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Extra)+5)
	maps.Copy(out, m.Extra)
	for _, name := range []string{PropID, PropTopic, PropJQL, PropPayload, PropResult} {
		if v, ok := m.Get(name); ok {
			out[name] = v
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a flat message object. Numbers and booleans given for
// _msgid, topic or jql are read as their JSON text; objects and arrays are
// kept in Extra.
func (m *Message) UnmarshalJSON(data []byte) error {
	var in map[string]json.RawMessage
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*m = Message{}
	// Sorted so that errors are reported deterministically.
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := in[k]
		switch k {
		case PropPayload:
			m.Payload = v
		case PropResult:
			m.Result = v
		case PropID, PropTopic, PropJQL:
			if string(v) == "null" {
				continue
			}
			s, ok := scalarString(v)
			if !ok {
				// Objects and arrays pass through untouched.
				m.setExtra(k, v)
				continue
			}
			if err := m.Set(k, s); err != nil {
				return err
			}
		default:
			m.setExtra(k, v)
		}
	}
	return nil
}

// Issue is a single Jira issue as returned by search.
type Issue struct {
	// ID is the numeric issue id (e.g., "10001")
	ID string `json:"id"`

	// Key is the issue identifier (e.g., "ABC-123")
	Key string `json:"key"`

	// Self is the REST URL of the issue
	Self string `json:"self"`

	// Fields holds the projected fields, undecoded
	Fields map[string]json.RawMessage `json:"fields"`

	// Raw is the full issue object exactly as the server sent it
	Raw json.RawMessage `json:"-"`
}

// Field decodes the named field into v. It returns false when the field is
// absent or null.
func (i *Issue) Field(name string, v any) (bool, error) {
	raw, ok := i.Fields[name]
	if !ok || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("failed to decode field %q of %s: %w", name, i.Key, err)
	}
	return true, nil
}

func cloneRaw(r json.RawMessage) json.RawMessage {
	if r == nil {
		return nil
	}
	return append(json.RawMessage(nil), r...)
}

// scalarString returns the text of a JSON string, number or boolean.
func scalarString(raw json.RawMessage) (string, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", false
	}
	switch v := v.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

func stringRaw(s string) (json.RawMessage, bool) {
	if s == "" {
		return nil, false
	}
	raw, _ := json.Marshal(s)
	return raw, true
}
