// Package pricesheet stores priced items and keeps them in step with the
// current rate settings.
package pricesheet

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Simplici0/woodshop/internal/pricing"
	"github.com/Simplici0/woodshop/internal/resync"
)

var (
	// ErrNotFound is returned when no item has the requested id.
	ErrNotFound = errors.New("price sheet item not found")
	// ErrVersionConflict is returned when a write names a version that is no
	// longer current.
	ErrVersionConflict = errors.New("price sheet item version conflict")
)

// Kind classifies an item.
type Kind string

const (
	KindPiece     Kind = "piece"
	KindComponent Kind = "component"
	KindCustom    Kind = "custom"
)

// ParseKind maps a filter value to a Kind. Empty and unknown values return "".
func ParseKind(s string) Kind {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindPiece, KindComponent, KindCustom:
		return k
	}
	return ""
}

// Identity names and classifies an item. A piece is addressed by collection,
// piece number and optional variation; a component by name; a custom
// project by name.
type Identity struct {
	IsComponent   bool   `json:"isComponent"`
	IsCustom      bool   `json:"isCustom"`
	Collection    string `json:"collection,omitempty" validate:"required_if=IsComponent false IsCustom false"`
	PieceNumber   string `json:"pieceNumber,omitempty" validate:"required_if=IsComponent false IsCustom false"`
	Variation     string `json:"variation,omitempty"`
	ComponentName string `json:"componentName,omitempty" validate:"required_if=IsComponent true"`
	ComponentType string `json:"componentType,omitempty"`
	Name          string `json:"name,omitempty" validate:"required_if=IsCustom true IsComponent false"`
}

// Kind returns the item classification.
func (id Identity) Kind() Kind {
	switch {
	case id.IsComponent:
		return KindComponent
	case id.IsCustom:
		return KindCustom
	}
	return KindPiece
}

// Label is the human name used in listings and exports.
func (id Identity) Label() string {
	switch id.Kind() {
	case KindComponent:
		if id.ComponentType != "" {
			return fmt.Sprintf("%s (%s)", id.ComponentName, id.ComponentType)
		}
		return id.ComponentName
	case KindCustom:
		return id.Name
	}
	label := strings.TrimSpace(id.Collection + " " + id.PieceNumber)
	if id.Variation != "" {
		label += "-" + id.Variation
	}
	return label
}

// Item is a saved priced item.
type Item struct {
	ID string `json:"id"`
	Identity
	Input              pricing.LineItemInput `json:"input"`
	Details            resync.Details        `json:"details"`
	Cost               float64               `json:"cost"`
	Prices             pricing.Quote         `json:"prices"`
	LastSyncedSettings *pricing.RateSettings `json:"lastSyncedSettings,omitempty"`
	Version            int64                 `json:"version"`
	CreatedAt          time.Time             `json:"createdAt"`
	UpdatedAt          time.Time             `json:"updatedAt"`
}

// Filter narrows List. Query matches any identity field, case-insensitively.
type Filter struct {
	Query string
	Kind  Kind
}

// SubmitRequest is a calculator submission. An empty ID creates an item;
// otherwise the item is replaced, guarded by Version when non-zero.
type SubmitRequest struct {
	ID      string `json:"id,omitempty"`
	Version int64  `json:"version,omitempty"`
	Identity
	Input pricing.LineItemInput `json:"input"`
}
