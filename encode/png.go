// Package encode is the file-format collaborator of the renderer: it
// takes a finished FrameBuffer and owns everything about getting it onto
// disk.
package encode

import (
	"fmt"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/taesiri/PhysicsBox/render"
)

// SavePNG encodes the frame buffer as a PNG file at path. A failure is an
// IO error of the render call only; simulation state is unaffected.
func SavePNG(path string, fb *render.FrameBuffer) error {
	if err := imgio.Save(path, fb.Image(), imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("write frame to %s: %w", path, err)
	}
	return nil
}
