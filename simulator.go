package physicsbox

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/taesiri/PhysicsBox/body"
	"github.com/taesiri/PhysicsBox/encode"
	"github.com/taesiri/PhysicsBox/render"
)

// Stats summarizes the most recent substep, for diagnostics and the CLI
// plots.
type Stats struct {
	// Pairs is the broad phase candidate count.
	Pairs int
	// Contacts is the narrow phase contact count.
	Contacts int
	// CCDHits counts fast movers clamped to a time of impact.
	CCDHits int
	// Repairs counts bodies whose non-finite state had to be clamped.
	Repairs int
}

// Simulator owns a scene, a camera and the render configuration, and
// advances the scene through fixed substeps. Step and the render calls
// are blocking and single-caller; a scene and its simulator belong to one
// goroutine for the duration of a run.
type Simulator struct {
	scene  *Scene
	params SolverParams

	grid       *SpatialGrid
	gridBodies int

	camera render.Camera
	width  int
	height int

	workers int
	log     *slog.Logger
	time    float64

	// contact scratch, reused every substep
	contacts []Contact
	stats    Stats
}

// NewSimulator wraps a scene with a simulator rendering at width x height.
func NewSimulator(scene *Scene, width, height int) (*Simulator, error) {
	if scene == nil {
		return nil, fmt.Errorf("%w: nil scene", ErrInvalidParameter)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d must be positive", ErrInvalidParameter, width, height)
	}

	s := &Simulator{
		scene:   scene,
		params:  DefaultSolverParams(),
		camera:  render.NewCamera(float32(width) / float32(height)),
		width:   width,
		height:  height,
		workers: 1,
		log:     slog.Default(),
	}
	s.rebuildGrid()

	return s, nil
}

// SetSolverParams overrides the default solver tuning.
func (s *Simulator) SetSolverParams(params SolverParams) {
	s.params = params
}

// SetWorkers sets the goroutine count for the per-body phases. Results
// are identical for any value; this is purely a throughput knob.
func (s *Simulator) SetWorkers(n int) {
	s.workers = max(1, n)
}

// SetLogger replaces the logger used for numerical recovery warnings.
func (s *Simulator) SetLogger(log *slog.Logger) {
	if log != nil {
		s.log = log
	}
}

// rebuildGrid sizes the broad phase grid to the scene: cells on the order
// of the largest body extent, cell count scaled with the body count.
func (s *Simulator) rebuildGrid() {
	cellSize := 1.0
	for i := range s.scene.Bodies {
		cellSize = math.Max(cellSize, 2*s.scene.Bodies[i].Shape.BoundingRadius())
	}

	numCells := max(1024, 2*len(s.scene.Bodies))
	s.grid = NewSpatialGrid(cellSize, numCells)
	s.gridBodies = len(s.scene.Bodies)
}

// SetFOV sets the camera's vertical field of view in degrees.
func (s *Simulator) SetFOV(degrees float64) error {
	if !isFinite(degrees) || degrees <= 0 || degrees >= 180 {
		return fmt.Errorf("%w: fov %v degrees must be in (0, 180)", ErrInvalidParameter, degrees)
	}

	s.camera.FOV = float32(degrees * math.Pi / 180)
	return nil
}

// SetCamera points the camera. eye and target must be finite and
// distinct.
func (s *Simulator) SetCamera(eye, target mgl64.Vec3) error {
	if !isFiniteVec(eye) || !isFiniteVec(target) {
		return fmt.Errorf("%w: camera vectors must be finite", ErrInvalidParameter)
	}
	if eye.Sub(target).LenSqr() < 1e-12 {
		return fmt.Errorf("%w: camera eye and target coincide", ErrInvalidParameter)
	}

	s.camera.LookAt(vec32(eye), vec32(target))
	return nil
}

// Step advances the simulation by dt seconds split into equal substeps.
func (s *Simulator) Step(dt float64, substeps int) error {
	if !isFinite(dt) || dt <= 0 {
		return fmt.Errorf("%w: dt %v must be > 0", ErrInvalidParameter, dt)
	}
	if substeps < 1 {
		return fmt.Errorf("%w: substeps %d must be >= 1", ErrInvalidParameter, substeps)
	}

	// Bodies may have been appended between steps.
	if len(s.scene.Bodies) != s.gridBodies {
		s.rebuildGrid()
	}

	h := dt / float64(substeps)
	for i := 0; i < substeps; i++ {
		s.substep(h)
	}

	return nil
}

func (s *Simulator) substep(h float64) {
	bodies := s.scene.Bodies
	gravity := s.scene.Gravity

	// Phase 1: gravity into velocities, refresh bounds.
	taskIndexed(s.workers, len(bodies), func(i int) {
		bodies[i].IntegrateVelocity(h, gravity)
		bodies[i].ComputeAABB()
	})

	// Phase 2: broad phase candidates.
	s.grid.Rebuild(bodies, h)
	pairs := s.grid.FindPairs(bodies, h)

	// Phase 3: narrow phase contact generation into the scratch list.
	s.contacts = generateContacts(bodies, pairs, s.scene.Ground, s.params.Slop, s.contacts[:0])

	// Phase 4: iterative impulse resolution.
	ground := groundMaterial{restitution: s.scene.Restitution, friction: s.scene.Friction}
	solveContacts(bodies, s.contacts, ground, s.params, h)

	// Phase 5: advance positions, with a swept correction for fast
	// spheres that would otherwise tunnel.
	repairs := 0
	ccdHits := 0
	for i := range bodies {
		b := &bodies[i]
		if b.Static() {
			continue
		}

		from := b.Position
		b.IntegratePosition(h)

		if b.Shape.Kind == body.ShapeSphere {
			if s.applyCCD(i, from, ground, h) {
				ccdHits++
			}
		}

		if b.ClampUnstable() {
			repairs++
			s.log.Warn("unstable body state clamped", "body", i)
		}
		clampSmallVelocities(b)
	}

	s.stats = Stats{
		Pairs:    len(pairs),
		Contacts: len(s.contacts),
		CCDHits:  ccdHits,
		Repairs:  repairs,
	}
	s.time += h
}

// applyCCD checks whether the sphere at index i moved far enough this
// substep to warrant a swept test, and if the sweep hits, clamps the body
// to the time of impact and resolves that contact immediately.
func (s *Simulator) applyCCD(i int, from mgl64.Vec3, ground groundMaterial, h float64) bool {
	bodies := s.scene.Bodies
	b := &bodies[i]

	disp := b.Position.Sub(from)
	if disp.Len() <= ccdDisplacementFactor*b.Shape.Radius {
		return false
	}

	candidates := s.grid.QuerySegment(bodies, from, b.Position, b.Shape.Radius, h)
	hit, ok := sweepSphere(bodies, i, from, b.Position, s.scene.Ground, candidates)
	if !ok {
		return false
	}

	// Stop just short of the impact so the clamped position is touching,
	// not embedded.
	t := math.Max(0, hit.t-1e-4)
	b.Position = from.Add(disp.Mul(t))
	b.ComputeAABB()

	c := Contact{
		A:      i,
		B:      hit.other,
		Point:  b.Position.Add(hit.normal.Mul(b.Shape.Radius)),
		Normal: hit.normal,
	}
	if hit.other == GroundBody {
		c.ApproachSpeed = groundApproachSpeed(b, c)
	} else {
		c.ApproachSpeed = approachSpeed(b, &bodies[hit.other], c)
	}

	// Resolve the impact contact now rather than letting the body carry
	// its full velocity into the next substep.
	solveContact(bodies, &c, ground, s.params, 1/h)

	return true
}

// Time returns the accumulated simulation time in seconds.
func (s *Simulator) Time() float64 {
	return s.time
}

// BodyCount returns the number of bodies in the simulated scene.
func (s *Simulator) BodyCount() int {
	return s.scene.BodyCount()
}

// Stats returns the stats of the most recent substep.
func (s *Simulator) Stats() Stats {
	return s.stats
}

// GetPositions returns a snapshot of every body position in body-index
// order.
func (s *Simulator) GetPositions() []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(s.scene.Bodies))
	for i := range s.scene.Bodies {
		out[i] = s.scene.Bodies[i].Position
	}
	return out
}

// GetRotations returns a snapshot of every body orientation in body-index
// order.
func (s *Simulator) GetRotations() []mgl64.Quat {
	out := make([]mgl64.Quat, len(s.scene.Bodies))
	for i := range s.scene.Bodies {
		out[i] = s.scene.Bodies[i].Rotation
	}
	return out
}

// GetShapeTypes returns every body's shape kind in body-index order.
func (s *Simulator) GetShapeTypes() []body.ShapeKind {
	out := make([]body.ShapeKind, len(s.scene.Bodies))
	for i := range s.scene.Bodies {
		out[i] = s.scene.Bodies[i].Shape.Kind
	}
	return out
}

// KineticEnergy returns the total kinetic energy of all dynamic bodies,
// linear plus rotational. Handy for judging whether a scene has settled.
func (s *Simulator) KineticEnergy() float64 {
	total := 0.0
	for i := range s.scene.Bodies {
		b := &s.scene.Bodies[i]
		if b.Static() {
			continue
		}

		total += 0.5 * b.Mass * b.Velocity.LenSqr()

		inertia := b.Shape.Inertia(b.Mass)
		w := b.AngularVelocity
		total += 0.5 * inertia.Mul3x1(w).Dot(w)
	}
	return total
}

// Dimensions returns the render size as (width, height).
func (s *Simulator) Dimensions() (int, int) {
	return s.width, s.height
}

// RenderFrame rasterizes the current body state into a fresh frame
// buffer. Stepping never renders; this is the explicit render call.
func (s *Simulator) RenderFrame() *render.FrameBuffer {
	fb := render.NewFrameBuffer(s.width, s.height)
	render.DrawScene(fb, s.camera, s.instances())
	return fb
}

// SavePNG renders the current state and hands the frame to the PNG
// encoder collaborator.
func (s *Simulator) SavePNG(path string) error {
	return encode.SavePNG(path, s.RenderFrame())
}

var groundColor = mgl32.Vec3{0.42, 0.46, 0.40}

// instances builds the render instance list: ground quad first, then one
// instance per body in index order.
func (s *Simulator) instances() []render.Instance {
	out := make([]render.Instance, 0, len(s.scene.Bodies)+1)

	if g := s.scene.Ground; g != nil {
		model := mgl32.Translate3D(0, float32(g.Height), 0).
			Mul4(mgl32.Scale3D(float32(g.HalfExtent), 1, float32(g.HalfExtent)))
		out = append(out, render.Instance{Mesh: render.QuadMesh(), Model: model, Color: groundColor})
	}

	for i := range s.scene.Bodies {
		b := &s.scene.Bodies[i]

		var mesh *render.Mesh
		var scale float32
		if b.Shape.Kind == body.ShapeCube {
			mesh = render.CubeMesh()
			scale = float32(b.Shape.HalfExtent)
		} else {
			mesh = render.SphereMesh()
			scale = float32(b.Shape.Radius)
		}

		p := b.Position
		q := b.Rotation
		rot := mgl32.Quat{
			W: float32(q.W),
			V: mgl32.Vec3{float32(q.V.X()), float32(q.V.Y()), float32(q.V.Z())},
		}

		model := mgl32.Translate3D(float32(p.X()), float32(p.Y()), float32(p.Z())).
			Mul4(rot.Mat4()).
			Mul4(mgl32.Scale3D(scale, scale, scale))

		out = append(out, render.Instance{
			Mesh:  mesh,
			Model: model,
			Color: mgl32.Vec3{b.Color[0], b.Color[1], b.Color[2]},
		})
	}

	return out
}

func vec32(v mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v.X()), float32(v.Y()), float32(v.Z())}
}
