package components

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// GoalKind identifies a goal variant.
type GoalKind uint8

const (
	GoalStiffness GoalKind = iota
	GoalMass
	GoalTransparency
	GoalThermal
	GoalBlend
	numGoalKinds
)

// NumGoalKinds is the number of goal variants.
const NumGoalKinds = int(numGoalKinds)

var goalKindNames = [...]string{"stiffness", "mass", "transparency", "thermal", "blend"}

func (k GoalKind) String() string {
	if int(k) < len(goalKindNames) {
		return goalKindNames[k]
	}
	return fmt.Sprintf("GoalKind(%d)", uint8(k))
}

// ParseGoalKind maps a config name to a GoalKind.
func ParseGoalKind(name string) (GoalKind, error) {
	for i, n := range goalKindNames {
		if n == name {
			return GoalKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown goal type %q", name)
}

// GoalParams is the closed set of per-variant goal payloads.
// Only the types in this package implement it.
type GoalParams interface {
	Kind() GoalKind
	goalParams()
}

// StiffnessGoal favors stiff materials along the load axis.
type StiffnessGoal struct {
	Penalty   float64
	Load      r3.Vec // load direction; magnitude is ignored
	LoadPoint r3.Vec // origin for the relative-position alignment term
}

// MassGoal penalizes dense materials to reach a target mass fraction.
type MassGoal struct {
	TargetFraction float64
	DensityPenalty float64
}

// TransparencyGoal favors optically transmissive materials.
type TransparencyGoal struct {
	OpticalWeight float64
}

// ThermalMode selects whether a thermal goal conducts or insulates.
type ThermalMode uint8

const (
	ThermalConduct ThermalMode = iota
	ThermalInsulate
)

// ParseThermalMode maps a config name to a ThermalMode.
func ParseThermalMode(name string) (ThermalMode, error) {
	switch name {
	case "", "conduct":
		return ThermalConduct, nil
	case "insulate":
		return ThermalInsulate, nil
	}
	return 0, fmt.Errorf("unknown thermal mode %q", name)
}

func (m ThermalMode) String() string {
	if m == ThermalInsulate {
		return "insulate"
	}
	return "conduct"
}

// ThermalGoal favors conductive or insulating materials.
type ThermalGoal struct {
	ThermalWeight float64
	Mode          ThermalMode
}

// BlendGoal contributes no force; diffusion already blends. It only scores
// neighbor concentration differences in the energy.
type BlendGoal struct{}

func (StiffnessGoal) Kind() GoalKind    { return GoalStiffness }
func (MassGoal) Kind() GoalKind         { return GoalMass }
func (TransparencyGoal) Kind() GoalKind { return GoalTransparency }
func (ThermalGoal) Kind() GoalKind      { return GoalThermal }
func (BlendGoal) Kind() GoalKind        { return GoalBlend }

func (StiffnessGoal) goalParams()    {}
func (MassGoal) goalParams()         {}
func (TransparencyGoal) goalParams() {}
func (ThermalGoal) goalParams()      {}
func (BlendGoal) goalParams()        {}

// Goal is one weighted optimization objective.
type Goal struct {
	Weight float64
	Region *Bounds // nil = applies everywhere
	Params GoalParams
}

// Applies reports whether the goal acts at p.
func (g *Goal) Applies(p r3.Vec) bool {
	return g.Region == nil || g.Region.Contains(p)
}
