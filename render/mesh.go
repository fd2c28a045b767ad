package render

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Mesh is unit-scale triangle geometry; instances scale it through their
// model matrix.
type Mesh struct {
	Vertices []mgl32.Vec3
	// Triangles index into Vertices, counter-clockwise seen from outside.
	Triangles [][3]int
}

var (
	cubeOnce   sync.Once
	cubeMesh   *Mesh
	sphereOnce sync.Once
	sphereMesh *Mesh
	quadOnce   sync.Once
	quadMesh   *Mesh
)

// CubeMesh returns the shared unit cube (half extent 1): 8 vertices, 12
// triangles.
func CubeMesh() *Mesh {
	cubeOnce.Do(func() {
		cubeMesh = &Mesh{
			Vertices: []mgl32.Vec3{
				{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
				{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
			},
			Triangles: [][3]int{
				{0, 2, 1}, {0, 3, 2}, // -Z
				{4, 5, 6}, {4, 6, 7}, // +Z
				{0, 1, 5}, {0, 5, 4}, // -Y
				{3, 6, 2}, {3, 7, 6}, // +Y
				{0, 7, 3}, {0, 4, 7}, // -X
				{1, 2, 6}, {1, 6, 5}, // +X
			},
		}
	})
	return cubeMesh
}

// Sphere tessellation. 12x18 is coarse enough to stay cheap for thousands
// of bodies and fine enough that flat shading reads as a sphere.
const (
	sphereStacks = 12
	sphereSlices = 18
)

// SphereMesh returns the shared unit sphere, tessellated by latitude and
// longitude.
func SphereMesh() *Mesh {
	sphereOnce.Do(func() {
		m := &Mesh{}

		for stack := 0; stack <= sphereStacks; stack++ {
			phi := math32.Pi * float32(stack) / sphereStacks
			y := math32.Cos(phi)
			r := math32.Sin(phi)
			for slice := 0; slice < sphereSlices; slice++ {
				theta := 2 * math32.Pi * float32(slice) / sphereSlices
				m.Vertices = append(m.Vertices, mgl32.Vec3{
					r * math32.Cos(theta),
					y,
					r * math32.Sin(theta),
				})
			}
		}

		at := func(stack, slice int) int {
			return stack*sphereSlices + slice%sphereSlices
		}

		for stack := 0; stack < sphereStacks; stack++ {
			for slice := 0; slice < sphereSlices; slice++ {
				a := at(stack, slice)
				b := at(stack+1, slice)
				c := at(stack+1, slice+1)
				d := at(stack, slice+1)
				if stack > 0 {
					m.Triangles = append(m.Triangles, [3]int{a, b, d})
				}
				if stack < sphereStacks-1 {
					m.Triangles = append(m.Triangles, [3]int{b, c, d})
				}
			}
		}

		sphereMesh = m
	})
	return sphereMesh
}

// QuadMesh returns the shared unit ground quad in the XZ plane at y = 0.
func QuadMesh() *Mesh {
	quadOnce.Do(func() {
		quadMesh = &Mesh{
			Vertices: []mgl32.Vec3{
				{-1, 0, -1}, {1, 0, -1}, {1, 0, 1}, {-1, 0, 1},
			},
			Triangles: [][3]int{
				{0, 2, 1}, {0, 3, 2},
			},
		}
	})
	return quadMesh
}
