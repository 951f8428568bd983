package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// AppMessage is a message for the watch application keyed by message key names.
// Values are either int32 or string.
type AppMessage map[string]any

// Dictionary is an app message keyed by numeric message keys.
// This is the form in which the watch application receives a message.
type Dictionary map[uint32]any

// MessageAck identifies a sent message in delivery callbacks.
// The inbox replies with it as JSON.
type MessageAck struct {
	TransactionID uint32 `json:"transaction_id"`
}

// MessageKeys maps message key names to the numeric keys of the watch application.
type MessageKeys map[string]uint32

// DefaultMessageKeys are the message keys of the Steelers watch face.
var DefaultMessageKeys = MessageKeys{
	SettingAnimations: 0,
}

// Resolve converts a message into a dictionary.
// It reports an error for unknown keys and unsupported values.
func (mk MessageKeys) Resolve(m AppMessage) (Dictionary, error) {
	d := make(Dictionary, len(m))
	for _, name := range slices.Sorted(maps.Keys(m)) {
		k, ok := mk[name]
		if !ok {
			return nil, fmt.Errorf("unknown message key: %s", name)
		}
		v := m[name]
		switch v.(type) {
		case int32, string:
		default:
			return nil, fmt.Errorf("message key %s: unsupported value type %T", name, v)
		}
		d[k] = v
	}
	return d, nil
}

// MessageValueString returns the text form of a message value as it is persisted.
func MessageValueString(v any) string {
	switch x := v.(type) {
	case int32:
		return strconv.Itoa(int(x))
	case string:
		return x
	}
	return fmt.Sprint(v)
}

// Envelope is the wire format of a message delivered to the watch application.
type Envelope struct {
	TransactionID uint32     `json:"transaction_id"`
	Dictionary    Dictionary `json:"dictionary"`
}

// UnmarshalJSON decodes a dictionary and verifies that all values are int32 or string.
func (d *Dictionary) UnmarshalJSON(data []byte) error {
	var raw map[uint32]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	x := make(Dictionary, len(raw))
	for k, v := range raw {
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return fmt.Errorf("dictionary key %d: null value", k)
		}
		var i int32
		if err := json.Unmarshal(v, &i); err == nil {
			x[k] = i
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			x[k] = s
			continue
		}
		return fmt.Errorf("dictionary key %d: unsupported value %s", k, v)
	}
	*d = x
	return nil
}
