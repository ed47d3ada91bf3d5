package resync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/Simplici0/woodshop/internal/pricing"
)

// Details is the cost document stored on a price sheet item. Known blocks are
// typed; every other top-level key is kept verbatim in Extra.
//
// A nil block means the key was absent. Materials stays a raw keyed document
// because it mixes line rows and computed subtotals across record versions.
type Details struct {
	Materials  Materials
	Labor      *Labor
	CNC        *CNC
	Overhead   *Overhead
	Components Components
	Extra      map[string]json.RawMessage
}

// Materials is the materials block keyed by category.
type Materials map[string]json.RawMessage

// Labor is the labor block. A nil Breakdown was not supplied; a non-nil empty
// Breakdown is an explicit clear.
type Labor struct {
	Breakdown []LaborLine
	Cost      *pricing.Number
	Hours     *pricing.Number
	Extra     map[string]json.RawMessage
}

// LaborLine is one labor breakdown entry, keyed by Type. Keys other than
// the priced fields are kept in Extra.
type LaborLine struct {
	Type   string
	Hours  pricing.Number
	Rate   pricing.Number
	Cost   pricing.Number
	Detail string
	Extra  map[string]json.RawMessage
}

// CNC is the machine block.
type CNC struct {
	Runtime pricing.Number
	Rate    pricing.Number
	Cost    pricing.Number
	Extra   map[string]json.RawMessage
}

// Overhead is the overhead block.
type Overhead struct {
	Rate  pricing.Number
	Hours pricing.Number
	Cost  pricing.Number
	Extra map[string]json.RawMessage
}

// Component is one sub-assembly record. Fields are kept raw so a merge can
// overlay exactly the keys an update supplies.
type Component map[string]json.RawMessage

// Ref returns the component identity: id, else the legacy _id.
func (c Component) Ref() string {
	if id := pricing.KeyFromJSON(c["id"]); id != "" {
		return id
	}
	return pricing.KeyFromJSON(c["_id"])
}

// Number reads a numeric field leniently.
func (c Component) Number(key string) float64 {
	return pricing.NumberFromJSON(c[key])
}

// Components is the components block. Set reports whether the key was
// present at all; Array whether it arrived as a JSON array. Object-keyed
// legacy documents are normalized into Items in index order.
type Components struct {
	Items []Component
	Set   bool
	Array bool
}

// ComponentList builds an array-shaped Components block.
func ComponentList(items ...Component) Components {
	if items == nil {
		items = []Component{}
	}
	return Components{Items: items, Set: true, Array: true}
}

const (
	keyMaterials  = "materials"
	keyLabor      = "labor"
	keyCNC        = "cnc"
	keyOverhead   = "overhead"
	keyComponents = "components"
)

// UnmarshalJSON implements json.Unmarshaler. Blocks of the wrong shape are
// treated as empty rather than failing the whole document.
func (d *Details) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := Details{}
	for key, value := range raw {
		switch key {
		case keyMaterials:
			out.Materials = decodeObject(value)
		case keyLabor:
			out.Labor = decodeLabor(value)
		case keyCNC:
			if isObject(value) {
				var c CNC
				_ = json.Unmarshal(value, &c)
				out.CNC = &c
			}
		case keyOverhead:
			if isObject(value) {
				var o Overhead
				_ = json.Unmarshal(value, &o)
				out.Overhead = &o
			}
		case keyComponents:
			out.Components = decodeComponents(value)
		default:
			if out.Extra == nil {
				out.Extra = make(map[string]json.RawMessage)
			}
			out.Extra[key] = value
		}
	}
	*d = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Details) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(d.Extra)+5)
	for k, v := range d.Extra {
		doc[k] = v
	}
	if d.Materials != nil {
		doc[keyMaterials] = d.Materials
	}
	if d.Labor != nil {
		doc[keyLabor] = d.Labor
	}
	if d.CNC != nil {
		doc[keyCNC] = d.CNC
	}
	if d.Overhead != nil {
		doc[keyOverhead] = d.Overhead
	}
	if d.Components.Set || d.Components.Items != nil {
		items := d.Components.Items
		if items == nil {
			items = []Component{}
		}
		doc[keyComponents] = items
	}
	return json.Marshal(doc)
}

// MarshalJSON implements json.Marshaler.
func (l Labor) MarshalJSON() ([]byte, error) {
	doc := withExtra(l.Extra, 3)
	if l.Breakdown != nil {
		doc["breakdown"] = l.Breakdown
	}
	if l.Cost != nil {
		doc["cost"] = *l.Cost
	}
	if l.Hours != nil {
		doc["hours"] = *l.Hours
	}
	return json.Marshal(doc)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *LaborLine) UnmarshalJSON(data []byte) error {
	fields, err := objectFields(data)
	if err != nil {
		return err
	}
	out := LaborLine{}
	for key, v := range fields {
		switch key {
		case "type":
			if err := json.Unmarshal(v, &out.Type); err != nil {
				return err
			}
		case "detail":
			if kindOf(v) != kindNull {
				if err := json.Unmarshal(v, &out.Detail); err != nil {
					return err
				}
			}
		case "hours":
			out.Hours = number(v)
		case "rate":
			out.Rate = number(v)
		case "cost":
			out.Cost = number(v)
		default:
			out.Extra = addExtra(out.Extra, key, v)
		}
	}
	*l = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (l LaborLine) MarshalJSON() ([]byte, error) {
	doc := withExtra(l.Extra, 5)
	doc["type"] = l.Type
	doc["hours"] = l.Hours
	doc["rate"] = l.Rate
	doc["cost"] = l.Cost
	if l.Detail != "" {
		doc["detail"] = l.Detail
	}
	return json.Marshal(doc)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *CNC) UnmarshalJSON(data []byte) error {
	fields, err := objectFields(data)
	if err != nil {
		return err
	}
	out := CNC{}
	for key, v := range fields {
		switch key {
		case "runtime":
			out.Runtime = number(v)
		case "rate":
			out.Rate = number(v)
		case "cost":
			out.Cost = number(v)
		default:
			out.Extra = addExtra(out.Extra, key, v)
		}
	}
	*c = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c CNC) MarshalJSON() ([]byte, error) {
	doc := withExtra(c.Extra, 3)
	doc["runtime"] = c.Runtime
	doc["rate"] = c.Rate
	doc["cost"] = c.Cost
	return json.Marshal(doc)
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Overhead) UnmarshalJSON(data []byte) error {
	fields, err := objectFields(data)
	if err != nil {
		return err
	}
	out := Overhead{}
	for key, v := range fields {
		switch key {
		case "rate":
			out.Rate = number(v)
		case "hours":
			out.Hours = number(v)
		case "cost":
			out.Cost = number(v)
		default:
			out.Extra = addExtra(out.Extra, key, v)
		}
	}
	*o = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (o Overhead) MarshalJSON() ([]byte, error) {
	doc := withExtra(o.Extra, 3)
	doc["rate"] = o.Rate
	doc["hours"] = o.Hours
	doc["cost"] = o.Cost
	return json.Marshal(doc)
}

func decodeLabor(value json.RawMessage) *Labor {
	fields := decodeObject(value)
	if fields == nil {
		return nil
	}
	l := &Labor{}
	for key, v := range fields {
		switch key {
		case "breakdown":
			l.Breakdown = decodeLaborLines(v)
		case "cost":
			n := number(v)
			l.Cost = &n
		case "hours":
			n := number(v)
			l.Hours = &n
		default:
			l.Extra = addExtra(l.Extra, key, v)
		}
	}
	return l
}

func decodeLaborLines(value json.RawMessage) []LaborLine {
	if !isArray(value) {
		return nil
	}
	items := pricing.RawList(value)
	lines := make([]LaborLine, 0, len(items))
	for _, raw := range items {
		var line LaborLine
		if err := json.Unmarshal(raw, &line); err != nil {
			continue
		}
		lines = append(lines, line)
	}
	// Only a literally empty array clears; one with nothing usable in it was
	// not recomputed.
	if len(items) > 0 && len(lines) == 0 {
		return nil
	}
	return lines
}

func decodeComponents(value json.RawMessage) Components {
	c := Components{Set: true, Array: isArray(value)}
	items := pricing.RawList(value)
	if items == nil {
		return c
	}
	c.Items = make([]Component, 0, len(items))
	for _, raw := range items {
		if comp := Component(decodeObject(raw)); comp != nil {
			c.Items = append(c.Items, comp)
		}
	}
	return c
}

// decodeObject returns the members of a JSON object, or nil for anything else.
func decodeObject(value json.RawMessage) map[string]json.RawMessage {
	if !isObject(value) {
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(value, &m); err != nil {
		return nil
	}
	if m == nil {
		m = map[string]json.RawMessage{}
	}
	return m
}

// objectFields decodes a JSON object into its members.
func objectFields(data []byte) (map[string]json.RawMessage, error) {
	if !isObject(data) {
		return nil, fmt.Errorf("expected a JSON object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func addExtra(extra map[string]json.RawMessage, key string, v json.RawMessage) map[string]json.RawMessage {
	if extra == nil {
		extra = make(map[string]json.RawMessage)
	}
	extra[key] = v
	return extra
}

// withExtra starts an encoding document from the carried-through keys.
func withExtra(extra map[string]json.RawMessage, known int) map[string]any {
	doc := make(map[string]any, len(extra)+known)
	for k, v := range extra {
		doc[k] = v
	}
	return doc
}

func number(v json.RawMessage) pricing.Number {
	return pricing.Number(pricing.NumberFromJSON(v))
}

type jsonKind int

const (
	kindAbsent jsonKind = iota
	kindNull
	kindArray
	kindObject
	kindScalar
)

func kindOf(value json.RawMessage) jsonKind {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return kindAbsent
	}
	switch trimmed[0] {
	case 'n':
		return kindNull
	case '[':
		return kindArray
	case '{':
		return kindObject
	}
	return kindScalar
}

func isObject(value json.RawMessage) bool { return kindOf(value) == kindObject }
func isArray(value json.RawMessage) bool  { return kindOf(value) == kindArray }

// sortedKeys returns map keys in a stable order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func mustRaw(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return raw
}

func rawNumber(f float64) json.RawMessage {
	return json.RawMessage(strconv.FormatFloat(pricing.Number(f).Float(), 'g', -1, 64))
}
