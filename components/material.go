package components

import "gonum.org/v1/gonum/floats"

// Material describes the physical properties of one material channel.
type Material struct {
	Name                string
	Density             float64 // g/cm^3
	Stiffness           float64 // Young's modulus, GPa
	ThermalConductivity float64 // W/(m*K)
	OpticalTransmission float64 // 0 = opaque, 1 = clear
	Diffusivity         float64 // relative mixing rate
	Color               string  // hex RGB, carried for downstream tools
}

// PropertyMaxima holds the per-property maxima used to normalize goal terms.
type PropertyMaxima struct {
	Density             float64
	Stiffness           float64
	ThermalConductivity float64
	OpticalTransmission float64
}

// MaterialTable is the read-only set of materials for a solve.
// Channel m of the particle pool corresponds to Materials[m].
type MaterialTable struct {
	Materials []Material
	Max       PropertyMaxima

	// Normalized property ratios per channel, cached so the hot loops
	// never divide by a maximum.
	DensityRatio   []float64
	StiffnessRatio []float64
	ThermalRatio   []float64
	OpticalRatio   []float64
}

// NewMaterialTable builds a table and computes property maxima from the materials.
func NewMaterialTable(materials []Material) *MaterialTable {
	n := len(materials)
	density := make([]float64, n)
	stiffness := make([]float64, n)
	thermal := make([]float64, n)
	optical := make([]float64, n)
	for i, m := range materials {
		density[i] = m.Density
		stiffness[i] = m.Stiffness
		thermal[i] = m.ThermalConductivity
		optical[i] = m.OpticalTransmission
	}

	var maxima PropertyMaxima
	if n > 0 {
		maxima = PropertyMaxima{
			Density:             floats.Max(density),
			Stiffness:           floats.Max(stiffness),
			ThermalConductivity: floats.Max(thermal),
			OpticalTransmission: floats.Max(optical),
		}
	}
	return NewMaterialTableWithMaxima(materials, maxima)
}

// NewMaterialTableWithMaxima builds a table using caller-supplied maxima.
// A zero maximum yields zero ratios for that property.
func NewMaterialTableWithMaxima(materials []Material, maxima PropertyMaxima) *MaterialTable {
	t := &MaterialTable{
		Materials:      append([]Material(nil), materials...),
		Max:            maxima,
		DensityRatio:   make([]float64, len(materials)),
		StiffnessRatio: make([]float64, len(materials)),
		ThermalRatio:   make([]float64, len(materials)),
		OpticalRatio:   make([]float64, len(materials)),
	}
	for i, m := range materials {
		t.DensityRatio[i] = ratio(m.Density, maxima.Density)
		t.StiffnessRatio[i] = ratio(m.Stiffness, maxima.Stiffness)
		t.ThermalRatio[i] = ratio(m.ThermalConductivity, maxima.ThermalConductivity)
		t.OpticalRatio[i] = ratio(m.OpticalTransmission, maxima.OpticalTransmission)
	}
	return t
}

// Len returns the number of material channels.
func (t *MaterialTable) Len() int {
	return len(t.Materials)
}

// Diffusivities returns the per-channel diffusion rates.
func (t *MaterialTable) Diffusivities() []float64 {
	rates := make([]float64, len(t.Materials))
	for i, m := range t.Materials {
		rates[i] = m.Diffusivity
	}
	return rates
}

// Index returns the channel of the named material, or -1.
func (t *MaterialTable) Index(name string) int {
	for i, m := range t.Materials {
		if m.Name == name {
			return i
		}
	}
	return -1
}

// Names returns material names in channel order.
func (t *MaterialTable) Names() []string {
	names := make([]string, len(t.Materials))
	for i, m := range t.Materials {
		names[i] = m.Name
	}
	return names
}

func ratio(v, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return v / max
}
