// Package physicsbox is a rigid body physics sandbox: a Scene accumulates
// cubes, spheres and a ground plane, a Simulator advances it under gravity
// and contact impulses, and renders any state through a camera into a
// pixel frame.
package physicsbox

// EngineVersion is the engine version reported by Version().
const EngineVersion = "0.3.0"

// Version returns the engine version string.
func Version() string {
	return EngineVersion
}
