package solver

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/alloy/components"
	"github.com/pthm-cable/alloy/systems"
	"github.com/pthm-cable/alloy/telemetry"
)

func testProblem(count int) Problem {
	table := components.NewMaterialTable([]components.Material{
		{Name: "stiff", Density: 2, Stiffness: 10, ThermalConductivity: 1, OpticalTransmission: 0.1, Diffusivity: 1},
		{Name: "clear", Density: 1, Stiffness: 1, ThermalConductivity: 0.2, OpticalTransmission: 0.9, Diffusivity: 0.5},
	})
	top := components.NewBounds(r3.Vec{Z: 0.5}, r3.Vec{X: 1, Y: 1, Z: 1})
	return Problem{
		Bounds:    components.NewBounds(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}),
		Materials: table,
		Goals: []components.Goal{
			{Weight: 1, Params: components.StiffnessGoal{Penalty: 1, Load: r3.Vec{Z: -1}, LoadPoint: r3.Vec{X: 0.5, Y: 0.5, Z: 1}}},
			{Weight: 1, Region: &top, Params: components.TransparencyGoal{OpticalWeight: 1}},
			{Weight: 0.5, Params: components.BlendGoal{}},
		},
		Seeds: []components.Seed{
			{Position: r3.Vec{X: 0.5, Y: 0.5, Z: 0.1}, Radius: 0.3, Material: 0, Strength: 0.6},
			{Position: r3.Vec{X: 0.5, Y: 0.5, Z: 0.9}, Radius: 0.2, Material: 1, Strength: 0.2, Interval: 5},
		},
		Count:          count,
		ParticleRadius: 0.01,
		BaseMass:       1 / float64(count),
		Temperature:    20,
	}
}

func testOptions() Options {
	return Options{
		Iterations:      20,
		Tolerance:       1e-9,
		DT:              0.01,
		BlendStrength:   0.5,
		GoalStrength:    1,
		SmoothingRadius: 0.15,
		MaxNeighbors:    64,
		Workers:         1,
		Seed:            7,
	}
}

func solve(t *testing.T, p Problem, o Options) Result {
	t.Helper()
	s, err := New(p, o)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s.Run()
}

func TestSolveIsDeterministic(t *testing.T) {
	a := solve(t, testProblem(400), testOptions())
	b := solve(t, testProblem(400), testOptions())

	if len(a.EnergyHistory) != len(b.EnergyHistory) {
		t.Fatalf("expected equal history lengths, got %d and %d", len(a.EnergyHistory), len(b.EnergyHistory))
	}
	for k := range a.EnergyHistory {
		if a.EnergyHistory[k] != b.EnergyHistory[k] {
			t.Fatalf("iteration %d: energies differ %v vs %v", k+1, a.EnergyHistory[k], b.EnergyHistory[k])
		}
	}
	assertPoolsEqual(t, a.Pool, b.Pool)
}

func TestSolveParallelMatchesSequential(t *testing.T) {
	seqOpts := testOptions()
	parOpts := testOptions()
	parOpts.Workers = 4
	seqOpts.FieldResolution = 6
	parOpts.FieldResolution = 6

	seq := solve(t, testProblem(800), seqOpts)
	par := solve(t, testProblem(800), parOpts)

	for k := range seq.EnergyHistory {
		if seq.EnergyHistory[k] != par.EnergyHistory[k] {
			t.Fatalf("iteration %d: energies differ %v vs %v", k+1, seq.EnergyHistory[k], par.EnergyHistory[k])
		}
	}
	assertPoolsEqual(t, seq.Pool, par.Pool)
	for c := range seq.Field.Density {
		if seq.Field.Density[c] != par.Field.Density[c] {
			t.Fatalf("cell %d: field density differs", c)
		}
	}
}

func TestSolveKeepsNormalization(t *testing.T) {
	res := solve(t, testProblem(300), testOptions())
	pool := res.Pool
	for i := 0; i < pool.Count; i++ {
		if sum := pool.MaterialSum(i); math.Abs(sum-1) >= 1e-5 {
			t.Fatalf("particle %d: expected sum 1, got %f", i, sum)
		}
	}
}

func TestSolveReportsNotConverged(t *testing.T) {
	opts := testOptions()
	opts.Tolerance = 0
	opts.Iterations = 5

	res := solve(t, testProblem(200), opts)

	if res.Converged {
		t.Error("expected not converged with zero tolerance")
	}
	if res.Iterations != 5 || len(res.EnergyHistory) != 5 {
		t.Errorf("expected 5 iterations, got %d (history %d)", res.Iterations, len(res.EnergyHistory))
	}
}

func TestSolveConvergesOnFlatEnergy(t *testing.T) {
	p := testProblem(200)
	p.Goals = nil
	p.Seeds = nil
	opts := testOptions()
	opts.Tolerance = 1e-6

	res := solve(t, p, opts)

	if !res.Converged {
		t.Fatal("expected convergence with constant energy")
	}
	if res.Iterations != 2 {
		t.Errorf("expected convergence on iteration 2, got %d", res.Iterations)
	}
}

func TestSolveZeroIterations(t *testing.T) {
	opts := testOptions()
	opts.Iterations = 0
	opts.FieldResolution = 4

	res := solve(t, testProblem(100), opts)

	if res.Converged || res.Iterations != 0 || len(res.EnergyHistory) != 0 {
		t.Errorf("expected empty run, got %+v", res)
	}
	if res.Field == nil || res.Field.Len() != 64 {
		t.Error("expected field rasterized from initial state")
	}
}

func TestSolveRepeatingSeeds(t *testing.T) {
	opts := testOptions()
	opts.Tolerance = 0
	opts.Iterations = 12

	var applied []int
	opts.OnIteration = func(s telemetry.IterationStats) {
		if s.SeedsApplied > 0 {
			applied = append(applied, s.Iteration)
		}
	}
	solve(t, testProblem(200), opts)

	if len(applied) != 2 || applied[0] != 5 || applied[1] != 10 {
		t.Errorf("expected repeating seed on iterations 5 and 10, got %v", applied)
	}
}

func TestSolveReportsTruncation(t *testing.T) {
	opts := testOptions()
	opts.MaxNeighbors = 2
	opts.Iterations = 3
	opts.Tolerance = 0

	res := solve(t, testProblem(300), opts)

	if res.NeighborsDropped == 0 || res.NeighborsSaturated == 0 {
		t.Errorf("expected truncation with a cap of 2, got dropped=%d saturated=%d", res.NeighborsDropped, res.NeighborsSaturated)
	}
}

func TestSolveUsesInjectedRandom(t *testing.T) {
	optsA := testOptions()
	optsA.Random = &sequence{}
	optsB := testOptions()
	optsB.Random = &sequence{}
	optsB.Seed = 99 // ignored when Random is set

	a, err := New(testProblem(50), optsA)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(testProblem(50), optsB)
	if err != nil {
		t.Fatal(err)
	}
	assertPoolsEqual(t, a.Pool(), b.Pool())
}

func TestNewValidation(t *testing.T) {
	p := testProblem(10)
	p.Materials = components.NewMaterialTable(nil)
	if _, err := New(p, testOptions()); !errors.Is(err, ErrNoMaterials) {
		t.Errorf("expected ErrNoMaterials, got %v", err)
	}

	p = testProblem(0)
	if _, err := New(p, testOptions()); !errors.Is(err, systems.ErrInvalidCapacity) {
		t.Errorf("expected ErrInvalidCapacity, got %v", err)
	}

	opts := testOptions()
	opts.MaxNeighbors = -1
	if _, err := New(testProblem(10), opts); !errors.Is(err, systems.ErrInvalidNeighborCap) {
		t.Errorf("expected ErrInvalidNeighborCap, got %v", err)
	}
}

// sequence is a RandomSource cycling through a fixed ramp.
type sequence struct{ n int }

func (s *sequence) Float64() float64 {
	s.n++
	return float64(s.n%97) / 97
}

func assertPoolsEqual(t *testing.T, a, b *systems.ParticlePool) {
	t.Helper()
	if a.Count != b.Count {
		t.Fatalf("expected equal counts, got %d and %d", a.Count, b.Count)
	}
	for i := 0; i < a.Count; i++ {
		if a.X[i] != b.X[i] || a.Y[i] != b.Y[i] || a.Z[i] != b.Z[i] {
			t.Fatalf("particle %d: positions differ", i)
		}
		for m := range a.Materials {
			if a.Materials[m][i] != b.Materials[m][i] {
				t.Fatalf("particle %d material %d: %v vs %v", i, m, a.Materials[m][i], b.Materials[m][i])
			}
		}
	}
}
