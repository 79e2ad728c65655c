package telemetry

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/pthm-cable/alloy/components"
	"github.com/pthm-cable/alloy/systems"
)

// FieldLayout documents the flattened cell order of field exports.
const FieldLayout = "x + y*resolution + z*resolution^2"

// FieldMeta describes an exported voxel field.
type FieldMeta struct {
	Resolution int        `yaml:"resolution"`
	Min        [3]float64 `yaml:"min"`
	Max        [3]float64 `yaml:"max"`
	CellSize   [3]float64 `yaml:"cell_size"`
	Materials  []string   `yaml:"materials"`
	Layout     string     `yaml:"layout"`

	OccupiedCells int                `yaml:"occupied_cells"`
	MaxDensity    float64            `yaml:"max_density"`
	MeanDensity   float64            `yaml:"mean_density"`
	MaterialShare map[string]float64 `yaml:"material_share"`
}

// NewFieldMeta summarizes a field for export.
func NewFieldMeta(f *systems.VoxelField, names []string) FieldMeta {
	summary := f.Summary()
	share := make(map[string]float64, len(summary.MaterialShare))
	for m, s := range summary.MaterialShare {
		share[materialName(names, m)] = s
	}
	return FieldMeta{
		Resolution:    f.Resolution,
		Min:           [3]float64{f.Bounds.Min.X, f.Bounds.Min.Y, f.Bounds.Min.Z},
		Max:           [3]float64{f.Bounds.Max.X, f.Bounds.Max.Y, f.Bounds.Max.Z},
		CellSize:      [3]float64{f.CellSize.X, f.CellSize.Y, f.CellSize.Z},
		Materials:     names,
		Layout:        FieldLayout,
		OccupiedCells: summary.OccupiedCells,
		MaxDensity:    summary.MaxDensity,
		MeanDensity:   summary.MeanDensity,
		MaterialShare: share,
	}
}

// WriteParticlesCSV writes one row per live particle: position, scalars,
// dominant material and one concentration column per material.
func WriteParticlesCSV(w io.Writer, pool *systems.ParticlePool, table *components.MaterialTable) error {
	cw := csv.NewWriter(w)
	names := table.Names()

	header := []string{"index", "x", "y", "z", "radius", "mass", "density", "temperature", "dominant"}
	for m := 0; m < pool.MaterialCount; m++ {
		header = append(header, materialName(names, m))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing particles header: %w", err)
	}

	row := make([]string, 0, len(header))
	for i := 0; i < pool.Count; i++ {
		row = append(row[:0],
			strconv.Itoa(i),
			formatFloat(pool.X[i]),
			formatFloat(pool.Y[i]),
			formatFloat(pool.Z[i]),
			formatFloat(pool.Radius[i]),
			formatFloat(pool.Mass[i]),
			formatFloat(pool.Pressure[i]),
			formatFloat(pool.Temperature[i]),
			materialName(names, pool.Dominant(i)),
		)
		for m := 0; m < pool.MaterialCount; m++ {
			row = append(row, formatFloat(pool.Materials[m][i]))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing particle %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFieldCSV writes one row per cell in flattened order: integer cell
// coordinates, density and one fraction column per material.
func WriteFieldCSV(w io.Writer, f *systems.VoxelField, names []string) error {
	cw := csv.NewWriter(w)

	header := []string{"x", "y", "z", "density"}
	for m := range f.Fractions {
		header = append(header, materialName(names, m))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing field header: %w", err)
	}

	row := make([]string, 0, len(header))
	for c := range f.Density {
		x, y, z := f.Coords(c)
		row = append(row[:0], strconv.Itoa(x), strconv.Itoa(y), strconv.Itoa(z), formatFloat(f.Density[c]))
		for m := range f.Fractions {
			row = append(row, formatFloat(f.Fractions[m][c]))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing cell %d: %w", c, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// materialName returns the name of channel m, or a positional fallback.
func materialName(names []string, m int) string {
	if m < len(names) && names[m] != "" {
		return names[m]
	}
	return "material_" + strconv.Itoa(m)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
