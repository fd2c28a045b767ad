package body

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeKind discriminates the shape variant of a rigid body.
type ShapeKind int

const (
	ShapeCube ShapeKind = iota
	ShapeSphere
)

// Shape is a tagged union over the supported collision primitives.
// Cubes use HalfExtent (uniform on all axes), spheres use Radius; the
// unused field stays zero. Geometry code dispatches on Kind.
type Shape struct {
	Kind       ShapeKind
	HalfExtent float64
	Radius     float64
}

// Cube returns a cube shape with the given uniform half extent.
func Cube(halfExtent float64) Shape {
	return Shape{Kind: ShapeCube, HalfExtent: halfExtent}
}

// Sphere returns a sphere shape with the given radius.
func Sphere(radius float64) Shape {
	return Shape{Kind: ShapeSphere, Radius: radius}
}

// BoundingRadius returns the radius of the smallest sphere centered on the
// body origin that encloses the shape. Used to size broad phase grid cells.
func (s Shape) BoundingRadius() float64 {
	switch s.Kind {
	case ShapeCube:
		return s.HalfExtent * math.Sqrt(3)
	default:
		return s.Radius
	}
}

// Inertia returns the body-space inertia tensor for the given mass.
// A zero mass (static body) yields a zero tensor.
func (s Shape) Inertia(mass float64) mgl64.Mat3 {
	if mass <= 0 {
		return mgl64.Mat3{}
	}

	switch s.Kind {
	case ShapeCube:
		// Solid box: I = (m/12) * (d1^2 + d2^2), identical on all axes
		// for a uniform cube of side 2*h.
		d := 2 * s.HalfExtent
		i := (mass / 12.0) * (d*d + d*d)
		return mgl64.Mat3{
			i, 0, 0,
			0, i, 0,
			0, 0, i,
		}
	default:
		// Solid sphere: I = (2/5) * m * r^2.
		i := (2.0 / 5.0) * mass * s.Radius * s.Radius
		return mgl64.Mat3{
			i, 0, 0,
			0, i, 0,
			0, 0, i,
		}
	}
}

// InverseInertia returns the inverted body-space inertia tensor.
// Static bodies (mass 0) get a zero tensor, i.e. infinite inertia.
func (s Shape) InverseInertia(mass float64) mgl64.Mat3 {
	if mass <= 0 {
		return mgl64.Mat3{}
	}

	return s.Inertia(mass).Inv()
}
