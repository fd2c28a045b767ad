package physicsbox

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/taesiri/PhysicsBox/body"
)

func TestNewSimulatorValidation(t *testing.T) {
	if _, err := NewSimulator(nil, 640, 480); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("nil scene: err = %v, want ErrInvalidParameter", err)
	}
	if _, err := NewSimulator(NewScene(), 0, 480); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("zero width: err = %v, want ErrInvalidParameter", err)
	}
	if _, err := NewSimulator(NewScene(), 640, -1); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("negative height: err = %v, want ErrInvalidParameter", err)
	}
}

func TestStepValidation(t *testing.T) {
	sim, err := NewSimulator(NewScene(), 64, 48)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		dt       float64
		substeps int
	}{
		{"zero dt", 0, 1},
		{"negative dt", -0.01, 1},
		{"nan dt", math.NaN(), 1},
		{"zero substeps", 1.0 / 60, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := sim.Step(tt.dt, tt.substeps); !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("err = %v, want ErrInvalidParameter", err)
			}
		})
	}

	if sim.Time() != 0 {
		t.Errorf("time advanced by rejected steps: %v", sim.Time())
	}
}

func TestSetCameraValidation(t *testing.T) {
	sim, err := NewSimulator(NewScene(), 64, 48)
	if err != nil {
		t.Fatal(err)
	}

	if err := sim.SetCamera(mgl64.Vec3{math.NaN(), 0, 0}, mgl64.Vec3{}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("nan eye: err = %v, want ErrInvalidParameter", err)
	}
	if err := sim.SetCamera(mgl64.Vec3{1, 2, 3}, mgl64.Vec3{1, 2, 3}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("coincident: err = %v, want ErrInvalidParameter", err)
	}
	if err := sim.SetCamera(mgl64.Vec3{0, 10, 20}, mgl64.Vec3{0, 0, 0}); err != nil {
		t.Errorf("valid camera rejected: %v", err)
	}
}

func TestSetFOV(t *testing.T) {
	scene := NewScene()
	if _, err := scene.AddCube(mgl64.Vec3{0, 0, 0}, 1, 0); err != nil {
		t.Fatal(err)
	}

	sim, err := NewSimulator(scene, 64, 64)
	if err != nil {
		t.Fatal(err)
	}
	if err := sim.SetCamera(mgl64.Vec3{0, 0, 6}, mgl64.Vec3{0, 0, 0}); err != nil {
		t.Fatal(err)
	}

	for _, bad := range []float64{0, -10, 180, 360, math.NaN()} {
		if err := sim.SetFOV(bad); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("SetFOV(%v): err = %v, want ErrInvalidParameter", bad, err)
		}
	}

	covered := func(fov float64) int {
		if err := sim.SetFOV(fov); err != nil {
			t.Fatal(err)
		}
		fb := sim.RenderFrame()
		n := 0
		for y := 0; y < 64; y++ {
			for x := 0; x < 64; x++ {
				if fb.DepthAt(x, y) < math.MaxFloat32 {
					n++
				}
			}
		}
		return n
	}

	// Widening the field of view shrinks the same cube on screen.
	narrow := covered(20)
	wide := covered(120)
	if narrow <= wide {
		t.Errorf("coverage narrow=%d wide=%d, want the narrow view larger", narrow, wide)
	}
	if wide == 0 {
		t.Error("cube invisible at 120 degrees")
	}
}

func TestGetShapeTypes(t *testing.T) {
	scene := NewScene()
	if _, err := scene.AddCube(mgl64.Vec3{0, 0, 0}, 0.5, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := scene.AddSphere(mgl64.Vec3{3, 0, 0}, 0.5, 1); err != nil {
		t.Fatal(err)
	}
	if err := scene.AddCubeGrid(mgl64.Vec3{0, 10, 0}, 2, [3]int{2, 1, 1}, 0.5, 1); err != nil {
		t.Fatal(err)
	}

	sim, err := NewSimulator(scene, 64, 48)
	if err != nil {
		t.Fatal(err)
	}

	want := []body.ShapeKind{body.ShapeCube, body.ShapeSphere, body.ShapeCube, body.ShapeCube}
	got := sim.GetShapeTypes()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("kind[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFreeFallMatchesAnalytic(t *testing.T) {
	scene := NewScene()
	if _, err := scene.AddSphere(mgl64.Vec3{0, 100, 0}, 0.5, 1); err != nil {
		t.Fatal(err)
	}

	sim, err := NewSimulator(scene, 64, 48)
	if err != nil {
		t.Fatal(err)
	}

	dt := 0.001
	for i := 0; i < 1000; i++ {
		if err := sim.Step(dt, 1); err != nil {
			t.Fatal(err)
		}
	}

	// After 1s of free fall: y = y0 - g t^2 / 2. Semi-implicit Euler at
	// this step size lands within g*dt/2 of the closed form.
	got := sim.GetPositions()[0]
	want := 100 - 0.5*9.81
	if math.Abs(got.Y()-want) > 0.01 {
		t.Errorf("y = %v, want %v within 0.01", got.Y(), want)
	}
	if math.Abs(got.X()) > 1e-12 || math.Abs(got.Z()) > 1e-12 {
		t.Errorf("lateral drift in free fall: %v", got)
	}

	v := scene.Bodies[0].Velocity
	if math.Abs(v.Y()-(-9.81)) > 1e-6 {
		t.Errorf("velocity.y = %v, want -9.81", v.Y())
	}
}

func TestTimeAccumulates(t *testing.T) {
	sim, err := NewSimulator(NewScene(), 64, 48)
	if err != nil {
		t.Fatal(err)
	}

	dt := 1.0 / 60
	for i := 0; i < 60; i++ {
		if err := sim.Step(dt, 4); err != nil {
			t.Fatal(err)
		}
	}

	if math.Abs(sim.Time()-1.0) > 1e-9 {
		t.Errorf("time = %v, want 1.0", sim.Time())
	}
}

func TestSphereSettlesOnGround(t *testing.T) {
	scene := NewScene()
	if err := scene.AddGround(0, 50); err != nil {
		t.Fatal(err)
	}
	if _, err := scene.AddSphere(mgl64.Vec3{0, 2, 0}, 0.5, 1); err != nil {
		t.Fatal(err)
	}

	sim, err := NewSimulator(scene, 64, 48)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 300; i++ {
		if err := sim.Step(1.0/60, 2); err != nil {
			t.Fatal(err)
		}
	}

	y := sim.GetPositions()[0].Y()
	slop := DefaultSolverParams().Slop

	// Resting height: radius above the ground, sunk at most slop plus the
	// per-substep gravity increment.
	if y < 0.5-slop-0.01 {
		t.Errorf("sphere sunk to y = %v, below the slop tolerance", y)
	}
	if y > 0.55 {
		t.Errorf("sphere floating at y = %v", y)
	}

	if v := scene.Bodies[0].Velocity.Len(); v > 0.2 {
		t.Errorf("velocity = %v, want near rest", v)
	}
}

func TestCubeGridSettlesWithoutOverlap(t *testing.T) {
	scene := NewScene()
	if err := scene.AddGround(0, 50); err != nil {
		t.Fatal(err)
	}
	if err := scene.AddCubeGrid(mgl64.Vec3{0, 2, 0}, 2, [3]int{2, 2, 2}, 0.5, 1); err != nil {
		t.Fatal(err)
	}

	sim, err := NewSimulator(scene, 64, 48)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 600; i++ {
		if err := sim.Step(1.0/60, 2); err != nil {
			t.Fatal(err)
		}
	}

	positions := sim.GetPositions()

	for i, p := range positions {
		if p.Y() < 0.5-0.03 {
			t.Errorf("cube %d sunk into the ground: y = %v", i, p.Y())
		}
	}

	// No pair may interpenetrate beyond solver tolerance; stacked pairs
	// rest a full cube size apart, lateral neighbors two sizes.
	for i := 0; i < len(positions); i++ {
		for j := i + 1; j < len(positions); j++ {
			if d := positions[i].Sub(positions[j]).Len(); d < 0.95 {
				t.Errorf("cubes %d and %d overlap: center distance %v", i, j, d)
			}
		}
	}

	if ke := sim.KineticEnergy(); ke > 0.5 {
		t.Errorf("kinetic energy = %v, scene has not settled", ke)
	}
}

func buildImpactScene(t *testing.T) *Scene {
	t.Helper()

	scene := NewScene()
	if err := scene.AddGround(0, 50); err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 3; y++ {
		for z := -1; z <= 1; z++ {
			if _, err := scene.AddCube(mgl64.Vec3{0, 0.5 + float64(y), float64(z)}, 0.5, 1); err != nil {
				t.Fatal(err)
			}
		}
	}
	if _, err := scene.AddSphereWithVelocity(mgl64.Vec3{-8, 1.5, 0}, mgl64.Vec3{12, 2, 0}, 0.6, 4); err != nil {
		t.Fatal(err)
	}
	return scene
}

func runImpact(t *testing.T, workers int) ([]mgl64.Vec3, []mgl64.Quat) {
	t.Helper()

	sim, err := NewSimulator(buildImpactScene(t), 64, 48)
	if err != nil {
		t.Fatal(err)
	}
	sim.SetWorkers(workers)

	for i := 0; i < 120; i++ {
		if err := sim.Step(1.0/60, 2); err != nil {
			t.Fatal(err)
		}
	}
	return sim.GetPositions(), sim.GetRotations()
}

func TestDeterminism(t *testing.T) {
	pos1, rot1 := runImpact(t, 1)
	pos2, rot2 := runImpact(t, 1)
	pos4, rot4 := runImpact(t, 4)

	for i := range pos1 {
		if pos1[i] != pos2[i] {
			t.Errorf("body %d position differs across identical runs: %v vs %v", i, pos1[i], pos2[i])
		}
		if rot1[i] != rot2[i] {
			t.Errorf("body %d rotation differs across identical runs: %v vs %v", i, rot1[i], rot2[i])
		}
		if pos1[i] != pos4[i] || rot1[i] != rot4[i] {
			t.Errorf("body %d state depends on the worker count", i)
		}
	}
}

func TestCCDStopsTunneling(t *testing.T) {
	// A one-cube-thick static wall versus a small sphere moving fast
	// enough to cross the wall in a fraction of a substep.
	scene := NewScene()
	if err := scene.AddGround(0, 60); err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 6; y++ {
		for z := -3; z <= 3; z++ {
			if _, err := scene.AddCube(mgl64.Vec3{0, 0.5 + float64(y), float64(z)}, 0.5, 0); err != nil {
				t.Fatal(err)
			}
		}
	}
	idx, err := scene.AddSphereWithVelocity(mgl64.Vec3{-30, 3, 0}, mgl64.Vec3{200, 0, 0}, 0.5, 2)
	if err != nil {
		t.Fatal(err)
	}

	sim, err := NewSimulator(scene, 64, 48)
	if err != nil {
		t.Fatal(err)
	}

	ccdHits := 0
	for i := 0; i < 60; i++ {
		if err := sim.Step(1.0/60, 1); err != nil {
			t.Fatal(err)
		}
		ccdHits += sim.Stats().CCDHits

		if x := sim.GetPositions()[idx].X(); x > 0 {
			t.Fatalf("sphere tunneled through the wall at step %d: x = %v", i, x)
		}
	}

	if ccdHits == 0 {
		t.Error("expected at least one swept impact")
	}

	p := sim.GetPositions()[idx]
	for i := 0; i < 3; i++ {
		if math.IsNaN(p[i]) || math.IsInf(p[i], 0) {
			t.Fatalf("sphere state non-finite: %v", p)
		}
	}
}

func TestGetPositionsSnapshot(t *testing.T) {
	scene := NewScene()
	if _, err := scene.AddCube(mgl64.Vec3{1, 2, 3}, 0.5, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := scene.AddSphere(mgl64.Vec3{4, 5, 6}, 0.5, 1); err != nil {
		t.Fatal(err)
	}

	sim, err := NewSimulator(scene, 64, 48)
	if err != nil {
		t.Fatal(err)
	}

	positions := sim.GetPositions()
	if positions[0] != (mgl64.Vec3{1, 2, 3}) || positions[1] != (mgl64.Vec3{4, 5, 6}) {
		t.Errorf("positions = %v, want body-index order", positions)
	}

	// The snapshot is a copy; mutating it must not reach the scene.
	positions[0] = mgl64.Vec3{99, 99, 99}
	if scene.Bodies[0].Position != (mgl64.Vec3{1, 2, 3}) {
		t.Error("snapshot aliases scene state")
	}

	rotations := sim.GetRotations()
	if len(rotations) != 2 || rotations[0] != mgl64.QuatIdent() {
		t.Errorf("rotations = %v, want identity quaternions", rotations)
	}
}

func TestBodiesAddedBetweenSteps(t *testing.T) {
	scene := NewScene()
	if err := scene.AddGround(0, 50); err != nil {
		t.Fatal(err)
	}

	sim, err := NewSimulator(scene, 64, 48)
	if err != nil {
		t.Fatal(err)
	}
	if err := sim.Step(1.0/60, 1); err != nil {
		t.Fatal(err)
	}

	// Growing the scene after construction must be picked up by the next
	// step without touching the simulator.
	if _, err := scene.AddSphere(mgl64.Vec3{0, 1, 0}, 0.5, 1); err != nil {
		t.Fatal(err)
	}
	if err := sim.Step(1.0/60, 1); err != nil {
		t.Fatal(err)
	}

	if sim.BodyCount() != 1 {
		t.Errorf("body count = %d, want 1", sim.BodyCount())
	}
	if scene.Bodies[0].Velocity.Y() >= 0 {
		t.Error("late-added body did not start falling")
	}
}

func TestKineticEnergy(t *testing.T) {
	scene := NewScene()
	if _, err := scene.AddSphereWithVelocity(mgl64.Vec3{}, mgl64.Vec3{3, 0, 0}, 1, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := scene.AddCube(mgl64.Vec3{10, 0, 0}, 0.5, 0); err != nil { // static, excluded
		t.Fatal(err)
	}
	scene.Bodies[0].AngularVelocity = mgl64.Vec3{0, 0, 2}

	sim, err := NewSimulator(scene, 64, 48)
	if err != nil {
		t.Fatal(err)
	}

	// Linear 0.5*2*9 = 9, rotational 0.5*(0.4*2*1)*4 = 1.6.
	want := 9.0 + 1.6
	if got := sim.KineticEnergy(); math.Abs(got-want) > 1e-9 {
		t.Errorf("kinetic energy = %v, want %v", got, want)
	}
}

func TestStatsPopulated(t *testing.T) {
	scene := NewScene()
	if _, err := scene.AddSphere(mgl64.Vec3{0, 0, 0}, 1, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := scene.AddSphere(mgl64.Vec3{1.5, 0, 0}, 1, 1); err != nil {
		t.Fatal(err)
	}

	sim, err := NewSimulator(scene, 64, 48)
	if err != nil {
		t.Fatal(err)
	}
	if err := sim.Step(1.0/60, 1); err != nil {
		t.Fatal(err)
	}

	st := sim.Stats()
	if st.Pairs < 1 {
		t.Errorf("pairs = %d, want >= 1", st.Pairs)
	}
	if st.Contacts < 1 {
		t.Errorf("contacts = %d, want >= 1", st.Contacts)
	}
	if st.Repairs != 0 {
		t.Errorf("repairs = %d, want 0", st.Repairs)
	}
}

func TestRenderFrameAndDimensions(t *testing.T) {
	scene := NewScene()
	if _, err := scene.AddCube(mgl64.Vec3{0, 0, 0}, 1, 0); err != nil {
		t.Fatal(err)
	}

	sim, err := NewSimulator(scene, 64, 48)
	if err != nil {
		t.Fatal(err)
	}
	if err := sim.SetCamera(mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 0, 0}); err != nil {
		t.Fatal(err)
	}

	if w, h := sim.Dimensions(); w != 64 || h != 48 {
		t.Fatalf("dimensions = %dx%d, want 64x48", w, h)
	}

	fb := sim.RenderFrame()
	if w, h := fb.Dimensions(); w != 64 || h != 48 {
		t.Fatalf("frame dimensions = %dx%d, want 64x48", w, h)
	}

	// The cube fills the view center; an empty scene renders sky there.
	emptySim, err := NewSimulator(NewScene(), 64, 48)
	if err != nil {
		t.Fatal(err)
	}
	if err := emptySim.SetCamera(mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	empty := emptySim.RenderFrame()

	r1, g1, b1 := fb.At(32, 24)
	r2, g2, b2 := empty.At(32, 24)
	if r1 == r2 && g1 == g2 && b1 == b2 {
		t.Error("cube not visible at the frame center")
	}
}

func TestSavePNG(t *testing.T) {
	scene := NewScene()
	if err := scene.AddGround(0, 20); err != nil {
		t.Fatal(err)
	}
	if _, err := scene.AddSphere(mgl64.Vec3{0, 2, 0}, 1, 1); err != nil {
		t.Fatal(err)
	}

	sim, err := NewSimulator(scene, 64, 48)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "frame.png")
	if err := sim.SavePNG(path); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("written PNG is empty")
	}
}
