package physicsbox

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/taesiri/PhysicsBox/body"
)

// SolverParams tunes the sequential impulse contact solver.
type SolverParams struct {
	// Iterations is the number of Gauss-Seidel passes over the contact
	// list per substep.
	Iterations int
	// Slop is the penetration depth tolerated without correction, which
	// keeps resting contacts from jittering.
	Slop float64
	// Baumgarte is the fraction of the remaining penetration converted
	// into a velocity bias each substep.
	Baumgarte float64
	// MaxCorrection caps the bias velocity (m/s) so deep penetrations
	// cannot inject unbounded energy.
	MaxCorrection float64
	// RestitutionThreshold is the approach speed below which impacts are
	// treated as perfectly inelastic.
	RestitutionThreshold float64
}

// DefaultSolverParams returns the tuning used by the simulator unless
// overridden via config.
func DefaultSolverParams() SolverParams {
	return SolverParams{
		Iterations:           10,
		Slop:                 0.005,
		Baumgarte:            0.2,
		MaxCorrection:        4.0,
		RestitutionThreshold: 1.0,
	}
}

// maxImpulse bounds any single impulse magnitude. Degenerate geometry
// (near-zero effective mass) must clamp rather than propagate non-finite
// velocities.
const maxImpulse = 1e8

// groundMaterial carries the restitution and friction used for contacts
// against the ground half-space.
type groundMaterial struct {
	restitution float64
	friction    float64
}

// solveContacts runs the iterative sequential impulse solver over the
// contact list. For every contact it applies a normal impulse removing the
// approach velocity (scaled by the pair's combined restitution) plus a
// clamped Baumgarte bias, then a Coulomb friction impulse limited by the
// normal impulse. Iteration follows contact discovery order, which is
// deterministic for a given scene.
func solveContacts(bodies []body.RigidBody, contacts []Contact, ground groundMaterial, params SolverParams, dt float64) {
	if dt <= 0 {
		return
	}
	invDt := 1.0 / dt

	for iter := 0; iter < params.Iterations; iter++ {
		for i := range contacts {
			solveContact(bodies, &contacts[i], ground, params, invDt)
		}
	}
}

func solveContact(bodies []body.RigidBody, c *Contact, ground groundMaterial, params SolverParams, invDt float64) {
	a := &bodies[c.A]

	var b *body.RigidBody
	invMassB := 0.0
	var ibInv mgl64.Mat3
	restB := ground.restitution
	fricB := ground.friction
	var rB mgl64.Vec3

	if c.B != GroundBody {
		b = &bodies[c.B]
		invMassB = b.InvMass
		ibInv = b.InverseInertiaWorld()
		restB = b.Restitution
		fricB = b.Friction
		rB = c.Point.Sub(b.Position)
	}

	invMassA := a.InvMass
	iaInv := a.InverseInertiaWorld()
	rA := c.Point.Sub(a.Position)
	n := c.Normal

	// Effective mass along the normal, with angular terms.
	raCrossN := rA.Cross(n)
	rbCrossN := rB.Cross(n)
	k := invMassA + invMassB +
		iaInv.Mul3x1(raCrossN).Dot(raCrossN) +
		ibInv.Mul3x1(rbCrossN).Dot(rbCrossN)
	if k < 1e-10 || !isFinite(k) {
		return // both effectively static or degenerate
	}

	// Current relative normal velocity (B w.r.t. A; negative = closing).
	vn := relativeVelocity(a, b, rA, rB).Dot(n)

	// Restitution uses the approach speed captured at contact generation,
	// with the lower of the two restitutions.
	restitution := math.Min(a.Restitution, restB)
	bounce := 0.0
	if -c.ApproachSpeed > params.RestitutionThreshold {
		bounce = restitution * -c.ApproachSpeed
	}

	bias := params.Baumgarte * invDt * math.Max(0, c.Penetration-params.Slop)
	bias = math.Min(bias, params.MaxCorrection)

	lambda := (math.Max(bounce, bias) - vn) / k
	if lambda <= 0 || !isFinite(lambda) {
		return // separating already, or degenerate
	}
	lambda = math.Min(lambda, maxImpulse)

	applyImpulse(a, b, n.Mul(lambda), rA, rB, iaInv, ibInv)

	// Coulomb friction along the tangential velocity left after the
	// normal impulse, clamped to mu * normal impulse. Combined friction
	// is the geometric mean of the pair.
	friction := math.Sqrt(a.Friction * fricB)
	if friction <= 0 {
		return
	}

	dv := relativeVelocity(a, b, rA, rB)
	vt := dv.Sub(n.Mul(dv.Dot(n)))
	speed := vt.Len()
	if speed < 1e-9 {
		return
	}
	t := vt.Mul(1.0 / speed)

	raCrossT := rA.Cross(t)
	rbCrossT := rB.Cross(t)
	kt := invMassA + invMassB +
		iaInv.Mul3x1(raCrossT).Dot(raCrossT) +
		ibInv.Mul3x1(rbCrossT).Dot(rbCrossT)
	if kt < 1e-10 || !isFinite(kt) {
		return
	}

	lambdaT := speed / kt
	lambdaT = math.Min(lambdaT, friction*lambda)
	if !isFinite(lambdaT) {
		return
	}

	// Friction opposes the tangential motion of B relative to A.
	applyImpulse(a, b, t.Mul(-lambdaT), rA, rB, iaInv, ibInv)
}

// relativeVelocity returns the velocity of b relative to a at the contact
// point. A nil b stands for the ground, which is at rest.
func relativeVelocity(a, b *body.RigidBody, rA, rB mgl64.Vec3) mgl64.Vec3 {
	vA := a.Velocity.Add(a.AngularVelocity.Cross(rA))
	if b == nil {
		return vA.Mul(-1)
	}
	vB := b.Velocity.Add(b.AngularVelocity.Cross(rB))
	return vB.Sub(vA)
}

// applyImpulse applies impulse p to b and -p to a at their respective
// contact arms. Static bodies (zero inverse mass) are unaffected.
func applyImpulse(a, b *body.RigidBody, p, rA, rB mgl64.Vec3, iaInv, ibInv mgl64.Mat3) {
	if a.InvMass > 0 {
		a.Velocity = a.Velocity.Sub(p.Mul(a.InvMass))
		a.AngularVelocity = a.AngularVelocity.Sub(iaInv.Mul3x1(rA.Cross(p)))
	}
	if b != nil && b.InvMass > 0 {
		b.Velocity = b.Velocity.Add(p.Mul(b.InvMass))
		b.AngularVelocity = b.AngularVelocity.Add(ibInv.Mul3x1(rB.Cross(p)))
	}
}

// clampSmallVelocities zeroes velocities below the rest threshold so
// settled bodies stay put.
func clampSmallVelocities(b *body.RigidBody) {
	const velocityThreshold = 1e-5

	if b.Velocity.Len() < velocityThreshold {
		b.Velocity = mgl64.Vec3{}
	}
	if b.AngularVelocity.Len() < velocityThreshold {
		b.AngularVelocity = mgl64.Vec3{}
	}
}
