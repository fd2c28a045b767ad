// Command physbox renders the built-in demo scenes: it builds a scene
// through the public authoring surface, steps the simulation and writes
// one PNG per frame. It lives strictly on the caller side of the engine
// API, like any other scene-authoring script.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	physicsbox "github.com/taesiri/PhysicsBox"
	"github.com/taesiri/PhysicsBox/body"
	"github.com/taesiri/PhysicsBox/config"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

var (
	frames     int
	fps        int
	substeps   int
	outDir     string
	width      int
	height     int
	workers    int
	configFile string
	showEnergy bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "physbox",
		Short: "rigid body physics sandbox renderer",
	}

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "simulate a preset scene and write PNG frames",
		Args:  cobra.ExactArgs(1),
		RunE:  runPreset,
	}
	runCmd.Flags().IntVar(&frames, "frames", 180, "number of frames")
	runCmd.Flags().IntVar(&fps, "fps", 60, "frames per second")
	runCmd.Flags().IntVar(&substeps, "substeps", 0, "physics substeps per frame (0 = config default)")
	runCmd.Flags().StringVar(&outDir, "out", "render", "output directory")
	runCmd.Flags().IntVar(&width, "width", 0, "frame width (0 = config default)")
	runCmd.Flags().IntVar(&height, "height", 0, "frame height (0 = config default)")
	runCmd.Flags().IntVar(&workers, "workers", 1, "worker goroutines for per-body phases")
	runCmd.Flags().StringVar(&configFile, "config", "", "YAML tuning file")
	runCmd.Flags().BoolVar(&showEnergy, "energy", true, "plot kinetic energy after the run")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available preset scenes",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(titleStyle.Render("presets"))
			for _, p := range presetOrder {
				fmt.Printf("  %s  %s\n", p, dimStyle.Render(presets[p].desc))
			}
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "print the engine version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(physicsbox.Version())
		},
	}

	rootCmd.AddCommand(runCmd, presetsCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type preset struct {
	desc  string
	build func(scene *physicsbox.Scene, sim *physicsbox.Simulator) error
}

var presetOrder = []string{"falling-cubes", "ball-cannon", "tunneling"}

var presets = map[string]preset{
	"falling-cubes": {
		desc: "10x10x10 cube lattice dropped on the ground",
		build: func(scene *physicsbox.Scene, sim *physicsbox.Simulator) error {
			if err := scene.AddGround(0, 50); err != nil {
				return err
			}
			if err := scene.AddCubeGrid(vec(0, 15, 0), 2.0, [3]int{10, 10, 10}, 0.5, 1.0); err != nil {
				return err
			}
			return sim.SetCamera(vec(35, 30, 45), vec(0, 8, 0))
		},
	},
	"ball-cannon": {
		desc: "heavy spheres fired at a cube wall",
		build: func(scene *physicsbox.Scene, sim *physicsbox.Simulator) error {
			if err := scene.AddGround(0, 150); err != nil {
				return err
			}
			// 10 wide x 8 tall x 3 deep wall
			for y := 0; y < 8; y++ {
				for x := 0; x < 10; x++ {
					for z := 0; z < 3; z++ {
						pos := vec(
							(float64(x)-4.5)*1.05,
							1.0+float64(y)*1.05,
							(float64(z)-1)*1.05,
						)
						if _, err := scene.AddCube(pos, 0.5, 1.0); err != nil {
							return err
						}
					}
				}
			}
			shots := [][2][3]float64{
				{{-20, 2, 0}, {45, 5, 0}},
				{{-22, 3.5, 2}, {50, 3, -3}},
				{{-21, 1.5, -1.5}, {48, 6, 2}},
			}
			for _, shot := range shots {
				pos := vec(shot[0][0], shot[0][1], shot[0][2])
				vel := vec(shot[1][0], shot[1][1], shot[1][2])
				if _, err := scene.AddSphereWithVelocity(pos, vel, 1.0, 8.0); err != nil {
					return err
				}
			}
			return sim.SetCamera(vec(25, 12, 30), vec(0, 4, 0))
		},
	},
	"tunneling": {
		desc: "a very fast small sphere against a one-cube-thick wall",
		build: func(scene *physicsbox.Scene, sim *physicsbox.Simulator) error {
			if err := scene.AddGround(0, 60); err != nil {
				return err
			}
			for y := 0; y < 6; y++ {
				for z := -3; z <= 3; z++ {
					pos := vec(0, 0.5+float64(y), float64(z))
					if _, err := scene.AddCube(pos, 0.5, 0); err != nil {
						return err
					}
				}
			}
			if _, err := scene.AddSphereWithVelocity(vec(-30, 3, 0), vec(200, 0, 0), 0.5, 2.0); err != nil {
				return err
			}
			return sim.SetCamera(vec(18, 10, 24), vec(0, 3, 0))
		},
	},
}

func runPreset(cmd *cobra.Command, args []string) error {
	name := args[0]
	p, ok := presets[name]
	if !ok {
		return fmt.Errorf("unknown preset %q (see `physbox presets`)", name)
	}

	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if width <= 0 {
		width = cfg.Render.Width
	}
	if height <= 0 {
		height = cfg.Render.Height
	}
	if substeps <= 0 {
		substeps = cfg.Substeps
	}

	scene := physicsbox.NewScene()
	scene.Gravity[1] = cfg.GravityY
	scene.Restitution = cfg.Material.Restitution
	scene.Friction = cfg.Material.Friction
	scene.CubeColor = body.Color(cfg.Colors.Cube)
	scene.SphereColor = body.Color(cfg.Colors.Sphere)

	sim, err := physicsbox.NewSimulator(scene, width, height)
	if err != nil {
		return err
	}
	params := physicsbox.DefaultSolverParams()
	params.Iterations = cfg.Solver.Iterations
	params.Slop = cfg.Solver.Slop
	params.Baumgarte = cfg.Solver.Baumgarte
	sim.SetSolverParams(params)
	sim.SetWorkers(workers)
	if err := sim.SetFOV(cfg.Render.FOVDegrees); err != nil {
		return err
	}

	if err := p.build(scene, sim); err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	cubes, spheres := scene.ShapeCounts()
	fmt.Println(titleStyle.Render("physbox ▸ " + name))
	fmt.Printf("  %d bodies (%d cubes, %d spheres), %d frames at %d fps, %dx%d\n",
		scene.BodyCount(), cubes, spheres, frames, fps, width, height)

	dt := 1.0 / float64(fps)
	energy := make([]float64, 0, frames)

	for frame := 0; frame < frames; frame++ {
		if err := sim.Step(dt, substeps); err != nil {
			return err
		}
		energy = append(energy, sim.KineticEnergy())

		path := filepath.Join(outDir, fmt.Sprintf("frame_%04d.png", frame))
		if err := sim.SavePNG(path); err != nil {
			return err
		}

		if frame%fps == 0 {
			st := sim.Stats()
			fmt.Printf("  frame %4d/%d  t=%5.2fs  %s\n", frame, frames, sim.Time(),
				dimStyle.Render(fmt.Sprintf("%d pairs, %d contacts, %d ccd", st.Pairs, st.Contacts, st.CCDHits)))
		}
	}

	fmt.Println(okStyle.Render(fmt.Sprintf("  done: %d frames in %s", frames, outDir)))

	if showEnergy && len(energy) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(energy,
			asciigraph.Height(10),
			asciigraph.Caption("kinetic energy over time"),
		))
	}

	return nil
}

func vec(x, y, z float64) mgl64.Vec3 {
	return mgl64.Vec3{x, y, z}
}
