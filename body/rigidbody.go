package body

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Color is a cosmetic RGB triple in [0,1], consumed by the renderer only.
type Color [3]float32

// RigidBody represents a rigid body in the physics simulation. Bodies live
// in the scene's arena and are referred to by dense index; the struct holds
// no references to other bodies.
type RigidBody struct {
	Shape Shape

	Position mgl64.Vec3
	Rotation mgl64.Quat

	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3

	// Mass 0 marks a static body: InvMass and InvInertiaLocal stay zero,
	// so the solver's impulses have no effect on it.
	Mass            float64
	InvMass         float64
	InvInertiaLocal mgl64.Mat3

	Restitution float64
	Friction    float64
	Color       Color

	// World-space bounds, recomputed each substep before the broad phase.
	AABB AABB
}

// New creates a rigid body at the given position. Mass 0 makes the body
// static (infinite inverse mass).
func New(shape Shape, position mgl64.Vec3, mass float64) RigidBody {
	b := RigidBody{
		Shape:    shape,
		Position: position,
		Rotation: mgl64.QuatIdent(),
		Mass:     mass,
	}

	if mass > 0 {
		b.InvMass = 1.0 / mass
		b.InvInertiaLocal = shape.InverseInertia(mass)
	}

	b.ComputeAABB()

	return b
}

// Static reports whether the body has infinite mass.
func (b *RigidBody) Static() bool {
	return b.InvMass == 0
}

// InverseInertiaWorld returns the inverse inertia tensor rotated into world
// space: I_world^(-1) = R * I_local^(-1) * R^T.
func (b *RigidBody) InverseInertiaWorld() mgl64.Mat3 {
	if b.InvMass == 0 {
		return mgl64.Mat3{}
	}

	R := b.Rotation.Mat4().Mat3()
	return R.Mul3(b.InvInertiaLocal).Mul3(R.Transpose())
}

// ComputeAABB recalculates the world-space bounding box from the current
// position and orientation.
func (b *RigidBody) ComputeAABB() {
	switch b.Shape.Kind {
	case ShapeSphere:
		// Sphere AABB is not affected by rotation, only by position
		r := mgl64.Vec3{b.Shape.Radius, b.Shape.Radius, b.Shape.Radius}
		b.AABB = AABB{Min: b.Position.Sub(r), Max: b.Position.Add(r)}
	default:
		// World half-width along axis i is the absolute row sum of the
		// rotation matrix scaled by the half extent; equivalent to
		// transforming all 8 corners for a uniform cube.
		R := b.Rotation.Mat4().Mat3()
		h := b.Shape.HalfExtent
		ext := mgl64.Vec3{
			h * (math.Abs(R.At(0, 0)) + math.Abs(R.At(0, 1)) + math.Abs(R.At(0, 2))),
			h * (math.Abs(R.At(1, 0)) + math.Abs(R.At(1, 1)) + math.Abs(R.At(1, 2))),
			h * (math.Abs(R.At(2, 0)) + math.Abs(R.At(2, 1)) + math.Abs(R.At(2, 2))),
		}
		b.AABB = AABB{Min: b.Position.Sub(ext), Max: b.Position.Add(ext)}
	}
}

// SweptAABB returns the bounding box expanded by the body's displacement
// over dt, so the broad phase cannot miss a fast mover.
func (b *RigidBody) SweptAABB(dt float64) AABB {
	return b.AABB.ExpandedBy(b.Velocity.Mul(dt))
}

// IntegrateVelocity applies gravity to the linear velocity over dt.
// Static bodies are unaffected.
func (b *RigidBody) IntegrateVelocity(dt float64, gravity mgl64.Vec3) {
	if b.InvMass == 0 {
		return
	}

	b.Velocity = b.Velocity.Add(gravity.Mul(dt))
}

// IntegratePosition advances position and orientation by the current
// velocities over dt (semi-implicit Euler). The quaternion derivative
// q_dot = 0.5 * omega * q is applied and the result renormalized, keeping
// the unit-length orientation invariant.
func (b *RigidBody) IntegratePosition(dt float64) {
	if b.InvMass == 0 {
		return
	}

	b.Position = b.Position.Add(b.Velocity.Mul(dt))

	omega := mgl64.Quat{W: 0, V: b.AngularVelocity}
	qDot := omega.Mul(b.Rotation).Scale(0.5)
	b.Rotation = b.Rotation.Add(qDot.Scale(dt)).Normalize()
}

// ClampUnstable zeroes any non-finite velocity or position component left
// behind by a degenerate contact configuration. Returns true if anything
// had to be repaired; the caller is expected to log the recovery.
func (b *RigidBody) ClampUnstable() bool {
	repaired := false

	for i := 0; i < 3; i++ {
		if !isFinite(b.Velocity[i]) || !isFinite(b.AngularVelocity[i]) {
			b.Velocity = mgl64.Vec3{}
			b.AngularVelocity = mgl64.Vec3{}
			repaired = true
			break
		}
	}

	for i := 0; i < 3; i++ {
		if !isFinite(b.Position[i]) {
			// Position cannot be recovered meaningfully; freeze the body
			// at the origin rather than propagate NaN into the grid.
			b.Position = mgl64.Vec3{}
			b.Velocity = mgl64.Vec3{}
			b.AngularVelocity = mgl64.Vec3{}
			repaired = true
			break
		}
	}

	if repaired {
		b.ComputeAABB()
	}

	return repaired
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
