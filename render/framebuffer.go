package render

import (
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// FrameBuffer is a width x height grid of RGBA pixels with a per-pixel
// depth value. One is created per render call and handed off whole to the
// encoder collaborator; nothing in it survives between frames.
type FrameBuffer struct {
	width  int
	height int
	pix    []uint8 // RGBA, row-major
	depth  []float32
}

// NewFrameBuffer allocates a cleared frame buffer.
func NewFrameBuffer(width, height int) *FrameBuffer {
	fb := &FrameBuffer{
		width:  width,
		height: height,
		pix:    make([]uint8, width*height*4),
		depth:  make([]float32, width*height),
	}
	for i := range fb.depth {
		fb.depth[i] = math.MaxFloat32
	}
	return fb
}

// Dimensions returns (width, height).
func (fb *FrameBuffer) Dimensions() (int, int) {
	return fb.width, fb.height
}

// ClearSky fills the frame with a vertical sky gradient and resets depth.
func (fb *FrameBuffer) ClearSky() {
	top := mgl32.Vec3{0.36, 0.55, 0.85}
	bottom := mgl32.Vec3{0.80, 0.87, 0.95}

	for y := 0; y < fb.height; y++ {
		t := float32(y) / float32(fb.height-1)
		c := top.Mul(1 - t).Add(bottom.Mul(t))
		for x := 0; x < fb.width; x++ {
			i := (y*fb.width + x) * 4
			fb.pix[i+0] = toByte(c.X())
			fb.pix[i+1] = toByte(c.Y())
			fb.pix[i+2] = toByte(c.Z())
			fb.pix[i+3] = 0xff
		}
	}
	for i := range fb.depth {
		fb.depth[i] = math.MaxFloat32
	}
}

// Plot writes a fragment if it is nearer than what the depth buffer holds
// (nearest wins). z is NDC depth, smaller is nearer.
func (fb *FrameBuffer) Plot(x, y int, z float32, color mgl32.Vec3) {
	if x < 0 || x >= fb.width || y < 0 || y >= fb.height {
		return
	}

	di := y*fb.width + x
	if z >= fb.depth[di] {
		return
	}
	fb.depth[di] = z

	i := di * 4
	fb.pix[i+0] = toByte(color.X())
	fb.pix[i+1] = toByte(color.Y())
	fb.pix[i+2] = toByte(color.Z())
	fb.pix[i+3] = 0xff
}

// DepthAt returns the stored depth for a pixel.
func (fb *FrameBuffer) DepthAt(x, y int) float32 {
	return fb.depth[y*fb.width+x]
}

// At returns the stored color of a pixel.
func (fb *FrameBuffer) At(x, y int) (r, g, b uint8) {
	i := (y*fb.width + x) * 4
	return fb.pix[i], fb.pix[i+1], fb.pix[i+2]
}

// Image wraps the pixel data in an image.RGBA sharing the same backing
// array, ready for the encoder.
func (fb *FrameBuffer) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    fb.pix,
		Stride: fb.width * 4,
		Rect:   image.Rect(0, 0, fb.width, fb.height),
	}
}

func toByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xff
	}
	return uint8(v*255 + 0.5)
}
