package physicsbox

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/taesiri/PhysicsBox/body"
)

// GroundBody is the synthetic body index used for contacts against the
// ground half-space.
const GroundBody = -1

// groundMargin pads the broad phase test against the ground so bodies
// about to touch it next substep are already candidates.
const groundMargin = 0.1

// Contact is the transient product of the narrow phase for one candidate
// pair, regenerated every substep and consumed by the solver. Bodies are
// referenced by index; B may be GroundBody. Normal is unit length and
// points from A toward B.
type Contact struct {
	A, B        int
	Point       mgl64.Vec3
	Normal      mgl64.Vec3
	Penetration float64
	// ApproachSpeed is the relative velocity along Normal at generation
	// time; negative means the bodies are closing.
	ApproachSpeed float64
}

// generateContacts runs the narrow phase over the candidate pairs plus the
// ground candidates, appending to out (a scratch slice reused across
// steps). Pairs whose penetration is within the slop tolerance produce no
// contact.
func generateContacts(bodies []body.RigidBody, pairs []Pair, ground *Ground, slop float64, out []Contact) []Contact {
	for _, pair := range pairs {
		if c, ok := collidePair(bodies, pair.A, pair.B, slop); ok {
			out = append(out, c)
		}
	}

	if ground != nil {
		for i := range bodies {
			b := &bodies[i]
			if b.Static() {
				continue
			}
			if b.AABB.Min.Y() >= ground.Height+groundMargin {
				continue
			}
			if c, ok := collideGround(b, i, ground.Height, slop); ok {
				out = append(out, c)
			}
		}
	}

	return out
}

// collidePair dispatches on the shape kinds of the two bodies.
func collidePair(bodies []body.RigidBody, ai, bi int, slop float64) (Contact, bool) {
	a := &bodies[ai]
	b := &bodies[bi]

	var c Contact
	var ok bool

	switch {
	case a.Shape.Kind == body.ShapeSphere && b.Shape.Kind == body.ShapeSphere:
		c, ok = sphereSphere(a, b, ai, bi, slop)
	case a.Shape.Kind == body.ShapeSphere && b.Shape.Kind == body.ShapeCube:
		c, ok = sphereCube(a, b, ai, bi, slop)
	case a.Shape.Kind == body.ShapeCube && b.Shape.Kind == body.ShapeSphere:
		c, ok = sphereCube(b, a, bi, ai, slop)
	default:
		c, ok = cubeCube(a, b, ai, bi, slop)
	}

	if !ok {
		return Contact{}, false
	}

	// Sphere-cube dispatch may have swapped the pair order.
	c.ApproachSpeed = approachSpeed(&bodies[c.A], &bodies[c.B], c)
	return c, true
}

// approachSpeed is the relative velocity of body c.B w.r.t. body c.A at
// the contact point, projected on the normal.
func approachSpeed(a, b *body.RigidBody, c Contact) float64 {
	vA := a.Velocity.Add(a.AngularVelocity.Cross(c.Point.Sub(a.Position)))
	vB := b.Velocity.Add(b.AngularVelocity.Cross(c.Point.Sub(b.Position)))
	return vB.Sub(vA).Dot(c.Normal)
}

func sphereSphere(a, b *body.RigidBody, ai, bi int, slop float64) (Contact, bool) {
	d := b.Position.Sub(a.Position)
	dist := d.Len()
	pen := a.Shape.Radius + b.Shape.Radius - dist
	if pen <= slop {
		return Contact{}, false
	}

	normal := mgl64.Vec3{0, 1, 0}
	if dist > 1e-12 {
		normal = d.Mul(1.0 / dist)
	}

	point := a.Position.Add(normal.Mul(a.Shape.Radius - pen/2))

	return Contact{
		A:           ai,
		B:           bi,
		Point:       point,
		Normal:      normal,
		Penetration: pen,
	}, true
}

// sphereCube tests a sphere (index si) against a cube (index ci). The
// sphere center is transformed into cube-local space, clamped to the cube
// extents to find the closest point, then tested against the radius. A
// center fully inside the cube is pushed out through the nearest face.
func sphereCube(sphere, cube *body.RigidBody, si, ci int, slop float64) (Contact, bool) {
	h := cube.Shape.HalfExtent
	invRot := cube.Rotation.Inverse()
	local := invRot.Rotate(sphere.Position.Sub(cube.Position))

	clamped := mgl64.Vec3{
		mgl64.Clamp(local.X(), -h, h),
		mgl64.Clamp(local.Y(), -h, h),
		mgl64.Clamp(local.Z(), -h, h),
	}

	var pen float64
	var localNormal mgl64.Vec3 // cube -> sphere, in cube space

	delta := local.Sub(clamped)
	dist := delta.Len()

	if dist > 1e-12 {
		// Center outside: closest point is on a face, edge or corner.
		pen = sphere.Shape.Radius - dist
		if pen <= slop {
			return Contact{}, false
		}
		localNormal = delta.Mul(1.0 / dist)
	} else {
		// Center inside: exit through the face with the smallest
		// remaining distance.
		minDepth := math.Inf(1)
		axis := 0
		for i := 0; i < 3; i++ {
			depth := h - math.Abs(local[i])
			if depth < minDepth {
				minDepth = depth
				axis = i
			}
		}

		pen = sphere.Shape.Radius + minDepth
		if pen <= slop {
			return Contact{}, false
		}

		localNormal = mgl64.Vec3{}
		localNormal[axis] = math.Copysign(1, local[axis])
		clamped[axis] = math.Copysign(h, local[axis])
	}

	// Contact normal must point from the sphere toward the cube.
	normal := cube.Rotation.Rotate(localNormal).Mul(-1)
	point := cube.Position.Add(cube.Rotation.Rotate(clamped))

	return Contact{
		A:           si,
		B:           ci,
		Point:       point,
		Normal:      normal,
		Penetration: pen,
	}, true
}

// cubeCube runs a separating axis test over the 15 candidate axes: each
// cube's 3 face normals plus the 9 edge cross products. If every axis
// overlaps, the axis of minimum overlap gives the contact normal and
// depth, and the representative point is the midpoint of the two deepest
// features.
func cubeCube(a, b *body.RigidBody, ai, bi int, slop float64) (Contact, bool) {
	RA := a.Rotation.Mat4().Mat3()
	RB := b.Rotation.Mat4().Mat3()

	axesA := [3]mgl64.Vec3{RA.Col(0), RA.Col(1), RA.Col(2)}
	axesB := [3]mgl64.Vec3{RB.Col(0), RB.Col(1), RB.Col(2)}

	d := b.Position.Sub(a.Position)

	candidates := make([]mgl64.Vec3, 0, 15)
	candidates = append(candidates, axesA[:]...)
	candidates = append(candidates, axesB[:]...)
	for _, ea := range axesA {
		for _, eb := range axesB {
			cross := ea.Cross(eb)
			// Parallel edges produce degenerate axes already covered by
			// the face normals.
			if cross.LenSqr() > 1e-10 {
				candidates = append(candidates, cross.Normalize())
			}
		}
	}

	minOverlap := math.Inf(1)
	var normal mgl64.Vec3

	for _, axis := range candidates {
		ra := projectedRadius(axesA, a.Shape.HalfExtent, axis)
		rb := projectedRadius(axesB, b.Shape.HalfExtent, axis)
		dist := math.Abs(d.Dot(axis))

		overlap := ra + rb - dist
		if overlap <= 0 {
			return Contact{}, false // separating axis found
		}
		if overlap < minOverlap {
			minOverlap = overlap
			normal = axis
		}
	}

	if minOverlap <= slop {
		return Contact{}, false
	}

	// Orient the normal from A toward B.
	if d.Dot(normal) < 0 {
		normal = normal.Mul(-1)
	}

	// Deepest feature of A along +n and of B along -n; the contact point
	// is the midpoint of the two feature centroids, which lands on face
	// centers for axis-aligned stacks and on corners for tilted hits.
	cA := supportCentroid(a, normal)
	cB := supportCentroid(b, normal.Mul(-1))
	point := cA.Add(cB).Mul(0.5)

	return Contact{
		A:           ai,
		B:           bi,
		Point:       point,
		Normal:      normal,
		Penetration: minOverlap,
	}, true
}

// projectedRadius is the half-length of a cube's projection onto axis.
func projectedRadius(axes [3]mgl64.Vec3, halfExtent float64, axis mgl64.Vec3) float64 {
	return halfExtent * (math.Abs(axes[0].Dot(axis)) +
		math.Abs(axes[1].Dot(axis)) +
		math.Abs(axes[2].Dot(axis)))
}

// cubeVertices returns the 8 world-space corners of a cube body.
func cubeVertices(b *body.RigidBody) [8]mgl64.Vec3 {
	h := b.Shape.HalfExtent
	var out [8]mgl64.Vec3
	i := 0
	for _, sx := range [2]float64{-h, h} {
		for _, sy := range [2]float64{-h, h} {
			for _, sz := range [2]float64{-h, h} {
				out[i] = b.Position.Add(b.Rotation.Rotate(mgl64.Vec3{sx, sy, sz}))
				i++
			}
		}
	}
	return out
}

// supportCentroid returns the centroid of the cube vertices furthest along
// dir: a single corner, an edge midpoint or a face center depending on the
// cube's alignment with dir.
func supportCentroid(b *body.RigidBody, dir mgl64.Vec3) mgl64.Vec3 {
	verts := cubeVertices(b)

	maxProj := math.Inf(-1)
	for _, v := range verts {
		if p := v.Dot(dir); p > maxProj {
			maxProj = p
		}
	}

	const featureTol = 1e-6
	var sum mgl64.Vec3
	count := 0
	for _, v := range verts {
		if v.Dot(dir) >= maxProj-featureTol-featureTol*math.Abs(maxProj) {
			sum = sum.Add(v)
			count++
		}
	}

	return sum.Mul(1.0 / float64(count))
}

// collideGround tests a body against the ground half-space at y = height.
// The contact normal points into the ground.
func collideGround(b *body.RigidBody, bi int, height, slop float64) (Contact, bool) {
	switch b.Shape.Kind {
	case body.ShapeSphere:
		pen := height - (b.Position.Y() - b.Shape.Radius)
		if pen <= slop {
			return Contact{}, false
		}

		c := Contact{
			A:           bi,
			B:           GroundBody,
			Point:       mgl64.Vec3{b.Position.X(), b.Position.Y() - b.Shape.Radius, b.Position.Z()},
			Normal:      mgl64.Vec3{0, -1, 0},
			Penetration: pen,
		}
		c.ApproachSpeed = groundApproachSpeed(b, c)
		return c, true

	default:
		// Depth-weighted centroid of the penetrating corners: the face
		// center for a flat resting cube, the deepest corner for a
		// tilted one. Keeps single-point resting contact torque-free.
		verts := cubeVertices(b)

		maxPen := math.Inf(-1)
		var weighted mgl64.Vec3
		var total float64
		for _, v := range verts {
			pen := height - v.Y()
			if pen > maxPen {
				maxPen = pen
			}
			if pen > 0 {
				weighted = weighted.Add(v.Mul(pen))
				total += pen
			}
		}

		if maxPen <= slop || total <= 0 {
			return Contact{}, false
		}

		c := Contact{
			A:           bi,
			B:           GroundBody,
			Point:       weighted.Mul(1.0 / total),
			Normal:      mgl64.Vec3{0, -1, 0},
			Penetration: maxPen,
		}
		c.ApproachSpeed = groundApproachSpeed(b, c)
		return c, true
	}
}

func groundApproachSpeed(b *body.RigidBody, c Contact) float64 {
	v := b.Velocity.Add(b.AngularVelocity.Cross(c.Point.Sub(b.Position)))
	// Ground is at rest: relative velocity of B (ground) w.r.t. A.
	return v.Mul(-1).Dot(c.Normal)
}
