package pricing

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Number is a float that never fails to decode. JSON numbers and numeric
// strings are read as-is; null, booleans, objects and anything that does not
// parse to a finite value decode to 0.
type Number float64

// Float returns the value as a float64, mapping NaN and ±Inf to 0.
func (n Number) Float() float64 {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number(parseLenientFloat(data))
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Float())
}

// NumberFromJSON reads a lenient number from a raw JSON value.
func NumberFromJSON(raw json.RawMessage) float64 {
	return parseLenientFloat(raw)
}

func parseLenientFloat(data []byte) float64 {
	s := string(bytes.TrimSpace(data))
	if s == "" || s == "null" || s == "true" || s == "false" {
		return 0
	}
	if s[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return 0
		}
		s = strings.TrimSpace(unquoted)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Key is a catalog reference or label that may arrive as a JSON string or number.
type Key string

// UnmarshalJSON implements json.Unmarshaler.
func (k *Key) UnmarshalJSON(data []byte) error {
	*k = Key(KeyFromJSON(data))
	return nil
}

// KeyFromJSON reads a Key from a raw JSON value; non-scalars yield "".
func KeyFromJSON(raw json.RawMessage) string {
	s := string(bytes.TrimSpace(raw))
	if s == "" || s == "null" {
		return ""
	}
	switch s[0] {
	case '"':
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(unquoted)
	case '{', '[':
		return ""
	}
	return s
}

// Rows is a sequence that also accepts legacy documents where the list was
// stored as an object keyed by index. Elements that fail to decode are skipped.
type Rows[T any] []T

// UnmarshalJSON implements json.Unmarshaler.
func (r *Rows[T]) UnmarshalJSON(data []byte) error {
	values := RawList(data)
	out := make(Rows[T], 0, len(values))
	for _, raw := range values {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	*r = out
	return nil
}

// RawList returns the elements of a JSON array, or the values of a JSON object
// in JavaScript property order (integer-like keys ascending, then insertion
// order). Any other value yields nil.
func RawList(data []byte) []json.RawMessage {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil
		}
		return items
	case '{':
		fields := OrderedFields(trimmed)
		sort.SliceStable(fields, func(i, j int) bool {
			ai, aok := arrayIndex(fields[i].Key)
			bi, bok := arrayIndex(fields[j].Key)
			if aok && bok {
				return ai < bi
			}
			return aok && !bok
		})
		items := make([]json.RawMessage, 0, len(fields))
		for _, f := range fields {
			items = append(items, f.Value)
		}
		return items
	}
	return nil
}

// Field is one member of a JSON object.
type Field struct {
	Key   string
	Value json.RawMessage
}

// OrderedFields decodes a JSON object keeping member order. Anything that is
// not a well-formed object yields nil.
func OrderedFields(data []byte) []Field {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil
	}
	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil
		}
		fields = append(fields, Field{Key: key, Value: value})
	}
	return fields
}

func arrayIndex(key string) (uint64, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil {
		return 0, false
	}
	return n, true
}

// amount is the value used in cost arithmetic: finite and non-negative.
func amount(n Number) float64 {
	f := n.Float()
	if f < 0 {
		return 0
	}
	return f
}
