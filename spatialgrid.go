package physicsbox

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/taesiri/PhysicsBox/body"
)

// CellKey addresses a cell in the unbounded 3D grid.
type CellKey struct {
	X, Y, Z int
}

// Cell holds the indices of the bodies whose swept AABB touches it.
type Cell struct {
	bodyIndices []int
}

// Pair is a broad phase candidate: two body indices with A < B. Ground
// candidates are not pairs; the simulator enumerates them separately.
type Pair struct {
	A, B int
}

// SpatialGrid is a uniform hashed grid used for broad phase culling. Cell
// coordinates hash into a fixed power-of-two cell array, so memory stays
// bounded no matter how far bodies fly. Hash collisions only ever produce
// false positive pairs, which the narrow phase rejects.
type SpatialGrid struct {
	cellSize float64
	cells    []Cell
	cellMask int

	// pair scratch, reused across steps to avoid allocator churn
	pairs []Pair
}

// NewSpatialGrid creates a grid. cellSize should be on the order of the
// largest body extent; numCells is rounded up to a power of two.
func NewSpatialGrid(cellSize float64, numCells int) *SpatialGrid {
	numCells = nextPowerOfTwo(numCells)

	cells := make([]Cell, numCells)
	for i := range cells {
		cells[i].bodyIndices = make([]int, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cells:    cells,
		cellMask: numCells - 1,
	}
}

// nextPowerOfTwo rounds up to the next power of 2.
func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

// CellSize returns the edge length of a grid cell.
func (sg *SpatialGrid) CellSize() float64 {
	return sg.cellSize
}

// Rebuild clears the grid and inserts every body, using AABBs swept by the
// body's displacement over dt so fast movers cannot slip between cells.
func (sg *SpatialGrid) Rebuild(bodies []body.RigidBody, dt float64) {
	for i := range sg.cells {
		sg.cells[i].bodyIndices = sg.cells[i].bodyIndices[:0]
	}

	for i := range bodies {
		sg.insert(i, bodies[i].SweptAABB(dt))
	}

	// Keep every cell's contents sorted so pair enumeration order depends
	// only on body indices, never on insertion history.
	for i := range sg.cells {
		if len(sg.cells[i].bodyIndices) > 1 {
			sort.Ints(sg.cells[i].bodyIndices)
		}
	}
}

func (sg *SpatialGrid) insert(bodyIndex int, aabb body.AABB) {
	minCell := sg.worldToCell(aabb.Min)
	maxCell := sg.worldToCell(aabb.Max)

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				cellIdx := sg.hashCell(CellKey{x, y, z})
				sg.cells[cellIdx].bodyIndices = append(sg.cells[cellIdx].bodyIndices, bodyIndex)
			}
		}
	}
}

// FindPairs enumerates candidate pairs whose swept AABBs overlap, in
// ascending (A, B) order. Static-static pairs are skipped. The returned
// slice is scratch owned by the grid, valid until the next call.
func (sg *SpatialGrid) FindPairs(bodies []body.RigidBody, dt float64) []Pair {
	sg.pairs = sg.pairs[:0]

	seen := make(map[int]struct{}, 16)

	for bodyIdx := range bodies {
		bodyA := &bodies[bodyIdx]
		sweptA := bodyA.SweptAABB(dt)

		minCell := sg.worldToCell(sweptA.Min)
		maxCell := sg.worldToCell(sweptA.Max)

		clear(seen)
		for x := minCell.X; x <= maxCell.X; x++ {
			for y := minCell.Y; y <= maxCell.Y; y++ {
				for z := minCell.Z; z <= maxCell.Z; z++ {
					cellIdx := sg.hashCell(CellKey{x, y, z})

					for _, otherIdx := range sg.cells[cellIdx].bodyIndices {
						// Each pair once, lower index first
						if otherIdx <= bodyIdx {
							continue
						}
						if _, dup := seen[otherIdx]; dup {
							continue
						}
						seen[otherIdx] = struct{}{}

						bodyB := &bodies[otherIdx]
						if bodyA.Static() && bodyB.Static() {
							continue
						}

						if sweptA.Overlaps(bodyB.SweptAABB(dt)) {
							sg.pairs = append(sg.pairs, Pair{A: bodyIdx, B: otherIdx})
						}
					}
				}
			}
		}
	}

	return sg.pairs
}

// QuerySegment returns the indices of bodies whose swept AABB overlaps the
// box covering the segment from..to inflated by radius. Used by the CCD
// sweep to collect obstacle candidates. Results are sorted ascending.
func (sg *SpatialGrid) QuerySegment(bodies []body.RigidBody, from, to mgl64.Vec3, radius, dt float64) []int {
	box := body.AABB{Min: from, Max: from}.ExpandedBy(to.Sub(from))
	r := mgl64.Vec3{radius, radius, radius}
	box.Min = box.Min.Sub(r)
	box.Max = box.Max.Add(r)

	minCell := sg.worldToCell(box.Min)
	maxCell := sg.worldToCell(box.Max)

	found := make(map[int]struct{}, 8)
	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				cellIdx := sg.hashCell(CellKey{x, y, z})
				for _, idx := range sg.cells[cellIdx].bodyIndices {
					if box.Overlaps(bodies[idx].SweptAABB(dt)) {
						found[idx] = struct{}{}
					}
				}
			}
		}
	}

	out := make([]int, 0, len(found))
	for idx := range found {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// worldToCell converts a world position to cell coordinates.
func (sg *SpatialGrid) worldToCell(pos mgl64.Vec3) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / sg.cellSize)),
		Y: int(math.Floor(pos.Y() / sg.cellSize)),
		Z: int(math.Floor(pos.Z() / sg.cellSize)),
	}
}

// hashCell hashes cell coordinates to an index in the cell array.
func (sg *SpatialGrid) hashCell(key CellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663) ^ (key.Z * 83492791)
	return h & sg.cellMask
}
