package body

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestNewBody(t *testing.T) {
	dynamic := New(Sphere(0.5), mgl64.Vec3{1, 2, 3}, 2)
	if dynamic.Static() {
		t.Error("mass 2 body should be dynamic")
	}
	if math.Abs(dynamic.InvMass-0.5) > 1e-12 {
		t.Errorf("InvMass = %v, want 0.5", dynamic.InvMass)
	}
	if dynamic.Rotation != mgl64.QuatIdent() {
		t.Errorf("Rotation = %v, want identity", dynamic.Rotation)
	}

	static := New(Cube(0.5), mgl64.Vec3{}, 0)
	if !static.Static() {
		t.Error("mass 0 body should be static")
	}
	if static.InvMass != 0 || static.InvInertiaLocal != (mgl64.Mat3{}) {
		t.Error("static body should carry zero inverse mass and inertia")
	}
}

func TestComputeAABB(t *testing.T) {
	t.Run("sphere", func(t *testing.T) {
		b := New(Sphere(0.5), mgl64.Vec3{1, 2, 3}, 1)

		wantMin := mgl64.Vec3{0.5, 1.5, 2.5}
		wantMax := mgl64.Vec3{1.5, 2.5, 3.5}
		if b.AABB.Min != wantMin || b.AABB.Max != wantMax {
			t.Errorf("AABB = %+v, want [%v, %v]", b.AABB, wantMin, wantMax)
		}
	})

	t.Run("axis aligned cube", func(t *testing.T) {
		b := New(Cube(0.5), mgl64.Vec3{0, 10, 0}, 1)

		if b.AABB.Min != (mgl64.Vec3{-0.5, 9.5, -0.5}) {
			t.Errorf("Min = %v, want (-0.5, 9.5, -0.5)", b.AABB.Min)
		}
	})

	t.Run("rotated cube grows in the rotation plane", func(t *testing.T) {
		b := New(Cube(0.5), mgl64.Vec3{}, 1)
		b.Rotation = mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 0, 1})
		b.ComputeAABB()

		// 45 degrees about Z: X and Y half widths grow to h*sqrt(2), Z
		// stays at h.
		want := 0.5 * math.Sqrt2
		if math.Abs(b.AABB.Max.X()-want) > 1e-9 || math.Abs(b.AABB.Max.Y()-want) > 1e-9 {
			t.Errorf("Max = %v, want (%v, %v, 0.5)", b.AABB.Max, want, want)
		}
		if math.Abs(b.AABB.Max.Z()-0.5) > 1e-9 {
			t.Errorf("Max.Z = %v, want 0.5", b.AABB.Max.Z())
		}
	})
}

func TestSweptAABB(t *testing.T) {
	b := New(Sphere(0.5), mgl64.Vec3{}, 1)
	b.Velocity = mgl64.Vec3{10, -5, 0}

	swept := b.SweptAABB(0.1)

	// Growth is directional: forward along +X, backward along -Y.
	if math.Abs(swept.Max.X()-1.5) > 1e-12 || math.Abs(swept.Min.X()-(-0.5)) > 1e-12 {
		t.Errorf("X range = [%v, %v], want [-0.5, 1.5]", swept.Min.X(), swept.Max.X())
	}
	if math.Abs(swept.Min.Y()-(-1.0)) > 1e-12 || math.Abs(swept.Max.Y()-0.5) > 1e-12 {
		t.Errorf("Y range = [%v, %v], want [-1.0, 0.5]", swept.Min.Y(), swept.Max.Y())
	}
}

func TestIntegrateVelocity(t *testing.T) {
	gravity := mgl64.Vec3{0, -9.81, 0}

	b := New(Sphere(0.5), mgl64.Vec3{}, 1)
	b.IntegrateVelocity(0.5, gravity)
	if math.Abs(b.Velocity.Y()-(-4.905)) > 1e-12 {
		t.Errorf("velocity.y = %v, want -4.905", b.Velocity.Y())
	}

	static := New(Cube(0.5), mgl64.Vec3{}, 0)
	static.IntegrateVelocity(0.5, gravity)
	if static.Velocity != (mgl64.Vec3{}) {
		t.Errorf("static velocity = %v, want zero", static.Velocity)
	}
}

func TestIntegratePosition(t *testing.T) {
	b := New(Sphere(0.5), mgl64.Vec3{}, 1)
	b.Velocity = mgl64.Vec3{2, 0, 0}
	b.AngularVelocity = mgl64.Vec3{0, 0, math.Pi}

	for i := 0; i < 100; i++ {
		b.IntegratePosition(0.01)
	}

	if math.Abs(b.Position.X()-2) > 1e-9 {
		t.Errorf("position.x = %v, want 2", b.Position.X())
	}

	// The orientation must stay unit length through repeated integration.
	if math.Abs(b.Rotation.Len()-1) > 1e-12 {
		t.Errorf("rotation norm = %v, want 1", b.Rotation.Len())
	}

	// One second at pi rad/s about Z is roughly a half turn; the rotated
	// +X axis should point near -X.
	rotated := b.Rotation.Rotate(mgl64.Vec3{1, 0, 0})
	if rotated.X() > -0.9 {
		t.Errorf("rotated x axis = %v, want near (-1, 0, 0)", rotated)
	}

	static := New(Cube(0.5), mgl64.Vec3{5, 5, 5}, 0)
	static.Velocity = mgl64.Vec3{1, 0, 0} // should never move regardless
	static.IntegratePosition(1)
	if static.Position != (mgl64.Vec3{5, 5, 5}) {
		t.Errorf("static position = %v, want unchanged", static.Position)
	}
}

func TestClampUnstable(t *testing.T) {
	t.Run("finite state untouched", func(t *testing.T) {
		b := New(Sphere(0.5), mgl64.Vec3{1, 2, 3}, 1)
		b.Velocity = mgl64.Vec3{4, 5, 6}

		if b.ClampUnstable() {
			t.Error("finite body reported as repaired")
		}
		if b.Velocity != (mgl64.Vec3{4, 5, 6}) {
			t.Errorf("velocity = %v, want unchanged", b.Velocity)
		}
	})

	t.Run("nan velocity zeroed", func(t *testing.T) {
		b := New(Sphere(0.5), mgl64.Vec3{1, 2, 3}, 1)
		b.Velocity = mgl64.Vec3{math.NaN(), 0, 0}
		b.AngularVelocity = mgl64.Vec3{0, 1, 0}

		if !b.ClampUnstable() {
			t.Fatal("expected repair")
		}
		if b.Velocity != (mgl64.Vec3{}) || b.AngularVelocity != (mgl64.Vec3{}) {
			t.Errorf("velocities = %v / %v, want zero", b.Velocity, b.AngularVelocity)
		}
		if b.Position != (mgl64.Vec3{1, 2, 3}) {
			t.Errorf("position = %v, want untouched", b.Position)
		}
	})

	t.Run("inf position frozen at origin", func(t *testing.T) {
		b := New(Sphere(0.5), mgl64.Vec3{}, 1)
		b.Position = mgl64.Vec3{math.Inf(1), 0, 0}
		b.Velocity = mgl64.Vec3{100, 0, 0}

		if !b.ClampUnstable() {
			t.Fatal("expected repair")
		}
		if b.Position != (mgl64.Vec3{}) || b.Velocity != (mgl64.Vec3{}) {
			t.Errorf("state = %v / %v, want frozen at the origin", b.Position, b.Velocity)
		}

		// The AABB must be refreshed to the repaired position.
		if !b.AABB.ContainsPoint(mgl64.Vec3{}) {
			t.Errorf("AABB = %+v, want re-centered on the origin", b.AABB)
		}
	})
}

func TestInverseInertiaWorld(t *testing.T) {
	// Cubes and spheres have isotropic tensors, so the world tensor must
	// be rotation invariant.
	b := New(Cube(0.5), mgl64.Vec3{}, 2)
	before := b.InverseInertiaWorld()

	b.Rotation = mgl64.QuatRotate(1.1, mgl64.Vec3{1, 2, 3}.Normalize())
	after := b.InverseInertiaWorld()

	for i := range before {
		if math.Abs(before[i]-after[i]) > 1e-9 {
			t.Errorf("entry %d changed under rotation: %v vs %v", i, before[i], after[i])
		}
	}

	static := New(Cube(0.5), mgl64.Vec3{}, 0)
	if static.InverseInertiaWorld() != (mgl64.Mat3{}) {
		t.Error("static world inverse inertia should be zero")
	}
}
