// Package settings persists the shop-wide rate settings every computation
// reads from.
package settings

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/Simplici0/woodshop/internal/pricing"
)

// ErrInvalid marks settings rejected by validation.
var ErrInvalid = errors.New("invalid rate settings")

// FieldError names one failed rule, addressed by JSON path.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// ValidationError lists every failed rule. It matches ErrInvalid with errors.Is.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Rule)
	}
	return fmt.Sprintf("%s: %s", ErrInvalid, strings.Join(parts, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

var validate = newValidator()

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate { return newValidator() }

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks rate settings: margins within [0, 99.9] and no negative
// rates, prices or overhead parameters.
func Validate(s pricing.RateSettings) error {
	return Check(validate, s)
}

// Check runs v against any struct and converts failures to a ValidationError.
func Check(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		out.Fields = append(out.Fields, FieldError{Field: field, Rule: fe.Tag(), Param: fe.Param()})
	}
	return out
}

// Defaults is the settings document used until one is saved.
func Defaults() pricing.RateSettings {
	return pricing.RateSettings{
		Labor: pricing.LaborSettings{
			Rates: []pricing.LaborRate{
				{Category: "stockProduction", Rate: 25},
				{Category: "cncOperator", Rate: 30},
				{Category: "assembly", Rate: 25},
				{Category: "upholstery", Rate: 28},
				{Category: "finishing", Rate: 25},
			},
		},
		Materials: pricing.MaterialSettings{
			Wood: map[string]map[string]pricing.WoodPrice{
				"walnut":   {"4/4": {Cost: 12}, "8/4": {Cost: 15}},
				"whiteOak": {"4/4": {Cost: 8}, "8/4": {Cost: 10}},
				"maple":    {"4/4": {Cost: 6}, "8/4": {Cost: 7.5}},
			},
			WoodWasteFactor: 20,
			Sheet: []pricing.SheetStock{
				{ID: "baltic-birch-18", Name: "Baltic birch 18mm", PricePerSheet: 95},
				{ID: "mdf-18", Name: "MDF 18mm", PricePerSheet: 42},
			},
			Hardware: []pricing.HardwareItem{
				{ID: "hinge-euro", Name: "Euro hinge", PricePerPack: 24, UnitsPerPack: 10},
				{ID: "slide-18", Name: "18in drawer slide", PricePerPack: 18, UnitsPerPack: 1},
			},
			UpholsteryMaterials: []pricing.UpholsteryMaterial{
				{ID: "linen", Name: "Linen", CostPerSqFt: 4.5},
			},
			Finishing: []pricing.FinishingMaterial{
				{ID: "hardwax-oil", Name: "Hardwax oil", ContainerCost: 60, ContainerSize: 2.5, Coverage: 30},
			},
		},
		CNC: pricing.CNCSettings{Rate: 60},
		Overhead: pricing.OverheadSettings{
			MonthlyOverhead:  8000,
			Employees:        3,
			MonthlyProdHours: 160,
			MonthlyCNCHours:  120,
		},
		Margins: pricing.Margins{Wholesale: 40, MSRP: 50},
	}
}
