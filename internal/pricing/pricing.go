// Package pricing turns calculator inputs and a rate settings snapshot into an
// itemized cost breakdown and wholesale/MSRP prices. Every function is pure and
// never fails: missing or non-numeric values count as zero and unresolved
// catalog references fall back to the values stored on the line item.
package pricing

// Option adjusts a single Compute call.
type Option func(*options)

type options struct {
	preserveWoodOverrides bool
}

// PreserveWoodOverrides keeps a wood row's own positive cost instead of
// refreshing it from the wood price table.
func PreserveWoodOverrides() Option {
	return func(o *options) { o.preserveWoodOverrides = true }
}

// Compute prices a line item against settings.
//
// Labor and CNC are priced first because overhead is allocated over their
// hours. GrandTotal is the plain sum of the five blocks with no rounding.
func Compute(input LineItemInput, settings RateSettings, opts ...Option) CostBreakdown {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	labor := Labor(input.Labor, settings.Labor)
	cnc := CNC(input.CNC, settings.CNC)
	overhead := Overhead(settings.Overhead, labor.Hours+cnc.Runtime)

	materials := MaterialsCost{
		Wood:       Wood(input.Materials.Wood, settings.Materials, o.preserveWoodOverrides),
		Sheet:      LineCost{Cost: Sheet(input.Materials.Sheet, settings.Materials.Sheet)},
		Hardware:   LineCost{Cost: Hardware(input.Materials.Hardware, settings.Materials.Hardware)},
		Upholstery: LineCost{Cost: Upholstery(input.Materials.Upholstery.Items, settings.Materials.UpholsteryMaterials)},
		Finishing:  LineCost{Cost: Finishing(input.Materials.Finishing, settings.Materials.Finishing)},
	}
	materials.Total = materials.Wood.TotalCost +
		materials.Sheet.Cost +
		materials.Hardware.Cost +
		materials.Upholstery.Cost +
		materials.Finishing.Cost

	components := ComponentsCost(input.ComponentRefs())

	return CostBreakdown{
		Labor:          labor,
		Materials:      materials,
		CNC:            cnc,
		Overhead:       overhead,
		ComponentsCost: components,
		GrandTotal:     labor.Cost + materials.Total + cnc.Cost + overhead.Cost + components,
	}
}

// ComponentRefs returns the sub-assemblies a line item consumes: the
// calculator's selectedComponents when present, else the stored components.
func (in LineItemInput) ComponentRefs() []ComponentRef {
	if len(in.SelectedComponents) > 0 {
		return in.SelectedComponents
	}
	return in.Components
}
