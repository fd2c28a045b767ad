// Package render turns body state into shaded, depth-correct pixel
// frames through a software rasterizer. It deliberately knows nothing
// about PNG or files; encoding the FrameBuffer is the encode package's
// job.
package render

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a perspective look-at camera. It has no physical effect on
// the scene; the simulator owns one and feeds it to DrawScene.
type Camera struct {
	Eye    mgl32.Vec3
	Target mgl32.Vec3
	Up     mgl32.Vec3
	// FOV is the vertical field of view in radians.
	FOV    float32
	Aspect float32
	Near   float32
	Far    float32
}

// NewCamera returns a camera with the default framing: slightly above and
// behind the origin, 45 degree field of view.
func NewCamera(aspect float32) Camera {
	return Camera{
		Eye:    mgl32.Vec3{0, 20, 50},
		Target: mgl32.Vec3{0, 5, 0},
		Up:     mgl32.Vec3{0, 1, 0},
		FOV:    math32.Pi / 4,
		Aspect: aspect,
		Near:   0.1,
		Far:    1000,
	}
}

// LookAt repositions the camera.
func (c *Camera) LookAt(eye, target mgl32.Vec3) {
	c.Eye = eye
	c.Target = target
}

// View returns the world-to-camera transform.
func (c Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye, c.Target, c.Up)
}

// Projection returns the perspective projection transform.
func (c Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(c.FOV, c.Aspect, c.Near, c.Far)
}

// ViewProjection returns the combined world-to-clip transform.
func (c Camera) ViewProjection() mgl32.Mat4 {
	return c.Projection().Mul4(c.View())
}
