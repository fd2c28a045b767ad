package render

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Fixed lighting: one directional light plus an ambient floor. No dynamic
// lights, no shadows; occlusion correctness comes from the depth buffer.
var lightDir = mgl32.Vec3{-0.5, 0.9, 0.6}.Normalize()

const (
	ambientIntensity = 0.35
	diffuseIntensity = 0.65
)

// Instance is one draw of a mesh with a model transform and a base color.
type Instance struct {
	Mesh  *Mesh
	Model mgl32.Mat4
	Color mgl32.Vec3
}

// DrawScene rasterizes the instances into the frame buffer: sky clear,
// then for every triangle a world-space flat shade and a depth-tested
// fill.
func DrawScene(fb *FrameBuffer, cam Camera, instances []Instance) {
	fb.ClearSky()

	vp := cam.ViewProjection()

	for _, inst := range instances {
		drawInstance(fb, cam, vp, inst)
	}
}

func drawInstance(fb *FrameBuffer, cam Camera, vp mgl32.Mat4, inst Instance) {
	width, height := fb.Dimensions()

	// Transform all vertices of the instance once.
	world := make([]mgl32.Vec3, len(inst.Mesh.Vertices))
	clip := make([]mgl32.Vec4, len(inst.Mesh.Vertices))
	for i, v := range inst.Mesh.Vertices {
		w4 := inst.Model.Mul4x1(v.Vec4(1))
		world[i] = w4.Vec3()
		clip[i] = vp.Mul4x1(w4)
	}

	for _, tri := range inst.Mesh.Triangles {
		c0, c1, c2 := clip[tri[0]], clip[tri[1]], clip[tri[2]]

		// No near-plane clipping: triangles reaching behind the camera
		// are dropped whole. Fine for sandbox cameras that look at the
		// scene from outside.
		if c0.W() < cam.Near || c1.W() < cam.Near || c2.W() < cam.Near {
			continue
		}

		w0, w1, w2 := world[tri[0]], world[tri[1]], world[tri[2]]

		// Flat shade in world space; flip the normal toward the camera
		// so winding never flips the lighting.
		n := w1.Sub(w0).Cross(w2.Sub(w0))
		if n.LenSqr() < 1e-16 {
			continue
		}
		n = n.Normalize()
		if n.Dot(cam.Eye.Sub(w0)) < 0 {
			n = n.Mul(-1)
		}

		intensity := ambientIntensity + diffuseIntensity*math32.Max(0, n.Dot(lightDir))
		shade := inst.Color.Mul(intensity)

		rasterTriangle(fb, width, height, c0, c1, c2, shade)
	}
}

// screenVertex is a projected vertex in pixel coordinates with NDC depth.
type screenVertex struct {
	x, y, z float32
}

func toScreen(c mgl32.Vec4, width, height int) screenVertex {
	invW := 1 / c.W()
	return screenVertex{
		x: (c.X()*invW + 1) * 0.5 * float32(width),
		y: (1 - c.Y()*invW) * 0.5 * float32(height),
		z: c.Z() * invW,
	}
}

// rasterTriangle fills one triangle with edge functions, interpolating
// depth across the face and letting the frame buffer's depth test decide
// visibility.
func rasterTriangle(fb *FrameBuffer, width, height int, c0, c1, c2 mgl32.Vec4, color mgl32.Vec3) {
	v0 := toScreen(c0, width, height)
	v1 := toScreen(c1, width, height)
	v2 := toScreen(c2, width, height)

	// Orient the triangle counter-clockwise in screen space so the
	// inside test below works for either source winding.
	if edge(v0, v1, v2) < 0 {
		v1, v2 = v2, v1
	}

	area := edge(v0, v1, v2)
	if area < 1e-6 {
		return
	}
	invArea := 1 / area

	minX := int(math32.Floor(min3(v0.x, v1.x, v2.x)))
	maxX := int(math32.Ceil(max3(v0.x, v1.x, v2.x)))
	minY := int(math32.Floor(min3(v0.y, v1.y, v2.y)))
	maxY := int(math32.Ceil(max3(v0.y, v1.y, v2.y)))

	minX = max(minX, 0)
	minY = max(minY, 0)
	maxX = min(maxX, width-1)
	maxY = min(maxY, height-1)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			p := screenVertex{x: float32(x) + 0.5, y: float32(y) + 0.5}

			b0 := edge(v1, v2, p) * invArea
			b1 := edge(v2, v0, p) * invArea
			b2 := edge(v0, v1, p) * invArea
			if b0 < 0 || b1 < 0 || b2 < 0 {
				continue
			}

			z := b0*v0.z + b1*v1.z + b2*v2.z
			fb.Plot(x, y, z, color)
		}
	}
}

// edge is the signed doubled area of triangle (a, b, c); its sign tells
// which side of ab point c lies on.
func edge(a, b, c screenVertex) float32 {
	return (b.x-a.x)*(c.y-a.y) - (b.y-a.y)*(c.x-a.x)
}

func min3(a, b, c float32) float32 { return math32.Min(a, math32.Min(b, c)) }
func max3(a, b, c float32) float32 { return math32.Max(a, math32.Max(b, c)) }
