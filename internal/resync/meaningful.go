package resync

import (
	"encoding/json"

	"github.com/Simplici0/woodshop/internal/pricing"
)

// Meaningful reports whether a materials block carries any priced data. A
// block that fails this test is treated as "not recomputed" by Merge.
func Meaningful(m Materials) bool {
	if positive(m["totalCost"]) || positive(m["total"]) {
		return true
	}
	if anyRow(m["wood"], "totalCost") {
		return true
	}
	if anyRow(m["sheet"], "cost") {
		return true
	}
	if anyRow(m["hardware"], "pricePerPack", "cost") {
		return true
	}
	for _, key := range []string{"finishing", "upholstery"} {
		obj := decodeObject(m[key])
		if obj == nil {
			continue
		}
		if positive(obj["cost"]) || len(pricing.RawList(obj["items"])) > 0 {
			return true
		}
	}
	return false
}

// anyRow checks a block that is either a row array or a subtotal object for a
// positive value under any of keys.
func anyRow(value json.RawMessage, keys ...string) bool {
	var rows []json.RawMessage
	switch kindOf(value) {
	case kindArray:
		rows = pricing.RawList(value)
	case kindObject:
		rows = []json.RawMessage{value}
	default:
		return false
	}
	for _, row := range rows {
		fields := decodeObject(row)
		for _, key := range keys {
			if positive(fields[key]) {
				return true
			}
		}
	}
	return false
}

func positive(raw json.RawMessage) bool {
	return pricing.NumberFromJSON(raw) > 0
}
