package physicsbox

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/taesiri/PhysicsBox/body"
)

// ErrInvalidParameter rejects scene or simulator calls whose inputs are
// degenerate: negative mass, non-positive extents, non-finite vectors.
// The scene is left unmodified when it is returned.
var ErrInvalidParameter = errors.New("invalid parameter")

const (
	DefaultRestitution = 0.3
	DefaultFriction    = 0.5
)

// Default body tints, one per shape kind. Overridable per body through the
// *Colored variants, and globally through the config package.
var (
	DefaultCubeColor   = body.Color{0.78, 0.33, 0.21}
	DefaultSphereColor = body.Color{0.25, 0.52, 0.88}
)

// Ground is the single static half-space of a scene, filling y <= Height.
// HalfExtent only bounds the rendered quad; collision-wise the plane is
// unbounded.
type Ground struct {
	Height     float64
	HalfExtent float64
}

// Scene owns the arena of rigid bodies. Bodies are appended only, never
// removed; the insertion index is the body's stable identity, used for
// contact pairs and position snapshots. Mutation must not be interleaved
// with a running Step (caller contract, not enforced).
type Scene struct {
	Bodies  []body.RigidBody
	Ground  *Ground
	Gravity mgl64.Vec3

	Restitution float64
	Friction    float64

	CubeColor   body.Color
	SphereColor body.Color

	cubes   int
	spheres int
}

// NewScene creates an empty scene with standard gravity and default
// material coefficients.
func NewScene() *Scene {
	return &Scene{
		Gravity:     mgl64.Vec3{0, -9.81, 0},
		Restitution: DefaultRestitution,
		Friction:    DefaultFriction,
		CubeColor:   DefaultCubeColor,
		SphereColor: DefaultSphereColor,
	}
}

// AddGround registers the ground half-space at the given height. A scene
// has exactly one ground; calling again replaces it.
func (s *Scene) AddGround(height, halfExtent float64) error {
	if !isFinite(height) {
		return fmt.Errorf("%w: ground height %v is not finite", ErrInvalidParameter, height)
	}
	if !isFinite(halfExtent) || halfExtent <= 0 {
		return fmt.Errorf("%w: ground half extent %v must be > 0", ErrInvalidParameter, halfExtent)
	}

	s.Ground = &Ground{Height: height, HalfExtent: halfExtent}
	return nil
}

// AddCube appends a cube body with the default cube color. Mass 0 makes it
// static. Returns the body index.
func (s *Scene) AddCube(position mgl64.Vec3, halfExtent, mass float64) (int, error) {
	return s.AddCubeColored(position, halfExtent, mass, s.CubeColor)
}

// AddCubeColored appends a cube body with an explicit color.
func (s *Scene) AddCubeColored(position mgl64.Vec3, halfExtent, mass float64, color body.Color) (int, error) {
	if err := checkExtent("half extent", halfExtent); err != nil {
		return 0, err
	}
	if err := checkBodyParams(position, mgl64.Vec3{}, mass); err != nil {
		return 0, err
	}

	return s.append(body.Cube(halfExtent), position, mgl64.Vec3{}, mass, color), nil
}

// AddSphere appends a sphere body at rest with the default sphere color.
func (s *Scene) AddSphere(position mgl64.Vec3, radius, mass float64) (int, error) {
	return s.AddSphereWithVelocityColored(position, mgl64.Vec3{}, radius, mass, s.SphereColor)
}

// AddSphereColored appends a sphere body at rest with an explicit color.
func (s *Scene) AddSphereColored(position mgl64.Vec3, radius, mass float64, color body.Color) (int, error) {
	return s.AddSphereWithVelocityColored(position, mgl64.Vec3{}, radius, mass, color)
}

// AddSphereWithVelocity appends a sphere body with an initial linear
// velocity, e.g. a projectile.
func (s *Scene) AddSphereWithVelocity(position, velocity mgl64.Vec3, radius, mass float64) (int, error) {
	return s.AddSphereWithVelocityColored(position, velocity, radius, mass, s.SphereColor)
}

// AddSphereWithVelocityColored appends a sphere body with an initial
// velocity and explicit color.
func (s *Scene) AddSphereWithVelocityColored(position, velocity mgl64.Vec3, radius, mass float64, color body.Color) (int, error) {
	if err := checkExtent("radius", radius); err != nil {
		return 0, err
	}
	if err := checkBodyParams(position, velocity, mass); err != nil {
		return 0, err
	}

	return s.append(body.Sphere(radius), position, velocity, mass, color), nil
}

// AddCubeGrid bulk-inserts a regular lattice of count[0] x count[1] x
// count[2] cubes centered on center. Cells are independent bodies with no
// bonding. The whole call validates before inserting anything.
func (s *Scene) AddCubeGrid(center mgl64.Vec3, spacing float64, count [3]int, halfExtent, mass float64) error {
	if err := checkExtent("half extent", halfExtent); err != nil {
		return err
	}
	if err := checkBodyParams(center, mgl64.Vec3{}, mass); err != nil {
		return err
	}
	if !isFinite(spacing) || spacing < 0 {
		return fmt.Errorf("%w: spacing %v must be >= 0", ErrInvalidParameter, spacing)
	}
	for i, c := range count {
		if c < 0 {
			return fmt.Errorf("%w: count[%d] = %d must be >= 0", ErrInvalidParameter, i, c)
		}
	}

	offset := mgl64.Vec3{
		float64(count[0]-1) * spacing / 2,
		float64(count[1]-1) * spacing / 2,
		float64(count[2]-1) * spacing / 2,
	}

	for ix := 0; ix < count[0]; ix++ {
		for iy := 0; iy < count[1]; iy++ {
			for iz := 0; iz < count[2]; iz++ {
				pos := mgl64.Vec3{
					center.X() + float64(ix)*spacing - offset.X(),
					center.Y() + float64(iy)*spacing - offset.Y(),
					center.Z() + float64(iz)*spacing - offset.Z(),
				}
				s.append(body.Cube(halfExtent), pos, mgl64.Vec3{}, mass, s.CubeColor)
			}
		}
	}

	return nil
}

// BodyCount returns the number of bodies in the scene. The ground is not a
// body.
func (s *Scene) BodyCount() int {
	return len(s.Bodies)
}

// ShapeCounts returns the number of cubes and spheres.
func (s *Scene) ShapeCounts() (cubes, spheres int) {
	return s.cubes, s.spheres
}

func (s *Scene) append(shape body.Shape, position, velocity mgl64.Vec3, mass float64, color body.Color) int {
	b := body.New(shape, position, mass)
	b.Velocity = velocity
	b.Restitution = s.Restitution
	b.Friction = s.Friction
	b.Color = color

	index := len(s.Bodies)
	s.Bodies = append(s.Bodies, b)

	switch shape.Kind {
	case body.ShapeCube:
		s.cubes++
	default:
		s.spheres++
	}

	return index
}

func checkExtent(name string, v float64) error {
	if !isFinite(v) || v <= 0 {
		return fmt.Errorf("%w: %s %v must be > 0", ErrInvalidParameter, name, v)
	}
	return nil
}

func checkBodyParams(position, velocity mgl64.Vec3, mass float64) error {
	if !isFinite(mass) || mass < 0 {
		return fmt.Errorf("%w: mass %v must be >= 0", ErrInvalidParameter, mass)
	}
	if !isFiniteVec(position) {
		return fmt.Errorf("%w: position %v has non-finite components", ErrInvalidParameter, position)
	}
	if !isFiniteVec(velocity) {
		return fmt.Errorf("%w: velocity %v has non-finite components", ErrInvalidParameter, velocity)
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isFiniteVec(v mgl64.Vec3) bool {
	return isFinite(v.X()) && isFinite(v.Y()) && isFinite(v.Z())
}
