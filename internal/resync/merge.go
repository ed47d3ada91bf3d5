// Package resync reconciles a stored cost document with a freshly recomputed,
// possibly partial one. Recomputation paths that skip a block report zeros or
// empty lists, so the merge treats those as "not recomputed" and keeps the
// previous value instead of erasing it.
package resync

import (
	"encoding/json"
	"maps"

	"github.com/Simplici0/woodshop/internal/pricing"
)

// Report describes the decisions a merge made.
type Report struct {
	// MaterialsKept is set when the incoming materials block carried no
	// priced data and the previous block was kept whole.
	MaterialsKept bool
}

// Merge combines prev and next. Neither argument is modified.
func Merge(prev, next Details) Details {
	merged, _ := MergeWithReport(prev, next)
	return merged
}

// MergeWithReport is Merge that also reports which guards fired.
func MergeWithReport(prev, next Details) (Details, Report) {
	var report Report

	out := Details{Extra: mergeExtra(prev.Extra, next.Extra)}

	switch {
	case next.Materials == nil:
		out.Materials = cloneRaw(prev.Materials)
	case !Meaningful(next.Materials):
		out.Materials = cloneRaw(prev.Materials)
		report.MaterialsKept = true
	default:
		out.Materials = mergeMaterials(prev.Materials, next.Materials)
	}

	out.Labor = mergeLabor(prev.Labor, next.Labor)
	out.CNC = mergeCNC(prev.CNC, next.CNC)
	out.Overhead = mergeOverhead(prev.Overhead, next.Overhead)
	out.Components = mergeComponents(prev.Components, next.Components)

	return out, report
}

func mergeExtra(prev, next map[string]json.RawMessage) map[string]json.RawMessage {
	if prev == nil && next == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(prev)+len(next))
	maps.Copy(out, prev)
	maps.Copy(out, next)
	return out
}

// mergeMaterials applies next onto prev key by key. A null value clears the
// key. Empty arrays and empty objects leave prev untouched.
func mergeMaterials(prev, next Materials) Materials {
	out := cloneRaw(prev)
	if out == nil {
		out = Materials{}
	}
	for _, key := range sortedKeys(next) {
		value := next[key]
		switch kindOf(value) {
		case kindNull:
			out[key] = json.RawMessage("null")
		case kindArray:
			if len(pricing.RawList(value)) == 0 {
				continue
			}
			out[key] = value
		case kindObject:
			fields := decodeObject(value)
			if len(fields) == 0 {
				continue
			}
			base := decodeObject(out[key])
			if base == nil {
				base = map[string]json.RawMessage{}
			}
			maps.Copy(base, fields)
			out[key] = mustRaw(base)
		case kindScalar:
			out[key] = value
		}
	}
	return out
}

func mergeLabor(prev, next *Labor) *Labor {
	if next == nil {
		return cloneLabor(prev)
	}
	if prev == nil {
		prev = &Labor{}
	}
	out := &Labor{
		Cost:  prev.Cost,
		Hours: prev.Hours,
		Extra: mergeExtra(prev.Extra, next.Extra),
	}
	if next.Cost != nil {
		out.Cost = next.Cost
	}
	if next.Hours != nil {
		out.Hours = next.Hours
	}

	switch {
	case next.Breakdown == nil:
		out.Breakdown = cloneLines(prev.Breakdown)
	case len(next.Breakdown) == 0:
		out.Breakdown = []LaborLine{}
	default:
		out.Breakdown = mergeBreakdown(prev.Breakdown, next.Breakdown)
	}
	return out
}

// mergeBreakdown merges labor lines keyed by type. Lines keep the previous
// order; types seen only in next are appended.
func mergeBreakdown(prev, next []LaborLine) []LaborLine {
	out := cloneLines(prev)
	index := make(map[string]int, len(out))
	for i, line := range out {
		index[line.Type] = i
	}
	for _, line := range next {
		i, ok := index[line.Type]
		if !ok {
			index[line.Type] = len(out)
			line.Extra = maps.Clone(line.Extra)
			out = append(out, line)
			continue
		}
		merged := out[i]
		if line.Rate.Float() != 0 {
			merged.Rate = line.Rate
		}
		if line.Hours.Float() != 0 {
			merged.Hours = line.Hours
		}
		merged.Cost = line.Cost
		if line.Detail != "" {
			merged.Detail = line.Detail
		}
		merged.Extra = mergeExtra(merged.Extra, line.Extra)
		out[i] = merged
	}
	return out
}

func mergeCNC(prev, next *CNC) *CNC {
	switch {
	case next == nil && prev == nil:
		return nil
	case next == nil:
		return cloneCNC(prev)
	case prev == nil:
		return cloneCNC(next)
	}
	return &CNC{
		Runtime: keepNonZero(prev.Runtime, next.Runtime),
		Rate:    keepNonZero(prev.Rate, next.Rate),
		Cost:    keepNonZero(prev.Cost, next.Cost),
		Extra:   mergeExtra(prev.Extra, next.Extra),
	}
}

func mergeOverhead(prev, next *Overhead) *Overhead {
	switch {
	case next == nil && prev == nil:
		return nil
	case next == nil:
		return cloneOverhead(prev)
	case prev == nil:
		return cloneOverhead(next)
	}
	return &Overhead{
		Rate:  keepNonZero(prev.Rate, next.Rate),
		Hours: keepNonZero(prev.Hours, next.Hours),
		Cost:  keepNonZero(prev.Cost, next.Cost),
		Extra: mergeExtra(prev.Extra, next.Extra),
	}
}

func keepNonZero(prev, next pricing.Number) pricing.Number {
	if next.Float() == 0 {
		return prev
	}
	return next
}

// mergeComponents overlays incoming components onto their previous match by
// identity. Previous components absent from next are appended unchanged.
func mergeComponents(prev, next Components) Components {
	if !next.Set || !next.Array {
		if !prev.Set {
			return Components{}
		}
		return ComponentList(cloneComponents(prev.Items)...)
	}

	byRef := make(map[string]int, len(prev.Items))
	for i, c := range prev.Items {
		if ref := c.Ref(); ref != "" {
			if _, dup := byRef[ref]; !dup {
				byRef[ref] = i
			}
		}
	}

	matched := make(map[int]bool, len(prev.Items))
	out := make([]Component, 0, len(next.Items)+len(prev.Items))
	for _, c := range next.Items {
		merged := Component{}
		if i, ok := byRef[c.Ref()]; ok && c.Ref() != "" {
			maps.Copy(merged, prev.Items[i])
			matched[i] = true
		}
		maps.Copy(merged, c)
		out = append(out, merged)
	}
	for i, c := range prev.Items {
		if !matched[i] {
			out = append(out, maps.Clone(c))
		}
	}
	return ComponentList(out...)
}

func cloneRaw(m Materials) Materials {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

func cloneLabor(l *Labor) *Labor {
	if l == nil {
		return nil
	}
	return &Labor{
		Breakdown: cloneLines(l.Breakdown),
		Cost:      l.Cost,
		Hours:     l.Hours,
		Extra:     maps.Clone(l.Extra),
	}
}

func cloneLines(lines []LaborLine) []LaborLine {
	if lines == nil {
		return nil
	}
	out := make([]LaborLine, len(lines))
	for i, line := range lines {
		line.Extra = maps.Clone(line.Extra)
		out[i] = line
	}
	return out
}

func cloneCNC(c *CNC) *CNC {
	out := *c
	out.Extra = maps.Clone(c.Extra)
	return &out
}

func cloneOverhead(o *Overhead) *Overhead {
	out := *o
	out.Extra = maps.Clone(o.Extra)
	return &out
}

func cloneComponents(items []Component) []Component {
	out := make([]Component, 0, len(items))
	for _, c := range items {
		out = append(out, maps.Clone(c))
	}
	return out
}
