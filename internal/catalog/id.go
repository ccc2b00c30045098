package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ID is an opaque record identifier.
//
// The API encodes identifiers as JSON numbers, but nothing in the client
// depends on that: IDs decode from numbers or strings and compare as text.
// Integer-looking IDs are encoded back as JSON numbers so request bodies
// match what the server handed out.
type ID string

// IsZero reports whether the identifier is missing.
func (id ID) IsZero() bool {
	return id == ""
}

func (id ID) String() string {
	return string(id)
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.isInteger() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// isInteger reports whether id is a JSON integer literal that fits int64.
func (id ID) isInteger() bool {
	digits := strings.TrimPrefix(string(id), "-")
	if digits == "" || digits[0] < '0' || digits[0] > '9' {
		return false
	}
	if len(digits) > 1 && digits[0] == '0' {
		return false
	}
	_, err := strconv.ParseInt(string(id), 10, 64)
	return err == nil
}
