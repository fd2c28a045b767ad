package physicsbox

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/taesiri/PhysicsBox/body"
)

// ccdDisplacementFactor is the fast-mover heuristic: a sphere whose
// displacement in one substep exceeds this fraction of its own radius gets
// a swept test, since the discrete narrow phase could step it straight
// through thin geometry.
const ccdDisplacementFactor = 0.5

// ccdHit describes the earliest crossing found along a sphere's motion
// segment. Other is GroundBody for a ground crossing. Normal follows the
// contact convention: from the swept sphere toward the obstacle.
type ccdHit struct {
	t      float64
	normal mgl64.Vec3
	other  int
}

// sweepSphere finds the earliest time of impact of the sphere (body
// `self`, moving from->to) against the candidate bodies and the ground.
// Candidates are treated as stationary over the substep; the fast mover
// dominates the relative motion by the heuristic's own premise.
func sweepSphere(bodies []body.RigidBody, self int, from, to mgl64.Vec3, ground *Ground, candidates []int) (ccdHit, bool) {
	radius := bodies[self].Shape.Radius
	d := to.Sub(from)

	best := ccdHit{t: math.Inf(1)}
	found := false

	for _, idx := range candidates {
		if idx == self {
			continue
		}
		other := &bodies[idx]

		switch other.Shape.Kind {
		case body.ShapeSphere:
			if t, ok := segmentSphere(from, d, other.Position, radius+other.Shape.Radius); ok && t < best.t {
				hitPos := from.Add(d.Mul(t))
				outward := hitPos.Sub(other.Position)
				if outward.LenSqr() < 1e-18 {
					continue
				}
				best = ccdHit{t: t, normal: outward.Normalize().Mul(-1), other: idx}
				found = true
			}
		default:
			if t, n, ok := segmentCube(from, d, other, radius); ok && t < best.t {
				best = ccdHit{t: t, normal: n, other: idx}
				found = true
			}
		}
	}

	if ground != nil {
		bottomFrom := from.Y() - radius
		bottomTo := to.Y() - radius
		if bottomFrom >= ground.Height && bottomTo < ground.Height {
			t := (bottomFrom - ground.Height) / (bottomFrom - bottomTo)
			if t < best.t {
				best = ccdHit{t: t, normal: mgl64.Vec3{0, -1, 0}, other: GroundBody}
				found = true
			}
		}
	}

	return best, found
}

// segmentSphere intersects the segment o+t*d (t in [0,1]) against a sphere
// of combined radius r centered at c. Only entering hits from outside
// count; overlaps at t=0 are the discrete solver's job.
func segmentSphere(from, d, c mgl64.Vec3, r float64) (float64, bool) {
	o := from.Sub(c)
	if o.LenSqr() <= r*r {
		return 0, false // already overlapping
	}

	a := d.LenSqr()
	if a < 1e-18 {
		return 0, false
	}
	b := 2 * o.Dot(d)
	if b >= 0 {
		return 0, false // moving away
	}
	cq := o.LenSqr() - r*r

	disc := b*b - 4*a*cq
	if disc < 0 {
		return 0, false
	}

	t := (-b - math.Sqrt(disc)) / (2 * a)
	if t < 0 || t > 1 {
		return 0, false
	}
	return t, true
}

// segmentCube intersects the segment against a cube inflated by the sphere
// radius, via a slab test in the cube's local frame. The inflated box is a
// conservative Minkowski approximation; the error near corners only makes
// CCD stop a touch early, never miss. Returns the contact normal (sphere
// toward cube).
func segmentCube(from, d mgl64.Vec3, cube *body.RigidBody, radius float64) (float64, mgl64.Vec3, bool) {
	invRot := cube.Rotation.Inverse()
	o := invRot.Rotate(from.Sub(cube.Position))
	dir := invRot.Rotate(d)

	e := cube.Shape.HalfExtent + radius

	tMin := 0.0
	tMax := 1.0
	axis := -1
	sign := 1.0

	for i := 0; i < 3; i++ {
		if math.Abs(dir[i]) < 1e-12 {
			if o[i] < -e || o[i] > e {
				return 0, mgl64.Vec3{}, false
			}
			continue
		}

		inv := 1.0 / dir[i]
		t1 := (-e - o[i]) * inv
		t2 := (e - o[i]) * inv
		s := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			s = 1.0
		}
		if t1 > tMin {
			tMin = t1
			axis = i
			sign = s
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return 0, mgl64.Vec3{}, false
		}
	}

	// axis == -1 means the segment starts inside the inflated box; leave
	// that to the discrete contact pass.
	if axis == -1 || tMin <= 0 || tMin > 1 {
		return 0, mgl64.Vec3{}, false
	}

	var outwardLocal mgl64.Vec3
	outwardLocal[axis] = sign // face the segment entered through

	normal := cube.Rotation.Rotate(outwardLocal).Mul(-1)
	return tMin, normal, true
}
