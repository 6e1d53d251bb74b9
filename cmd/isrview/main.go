// Command isrview is an interactive terminal visualizer for the
// shading-rate pipeline. It renders a procedural animated scene, feeds
// every frame through the analysis pipeline, and paints one terminal
// cell per grid tile in false color.
//
// Keys:
//
//	m      cycle view (stable tiers / raw tiers / importance)
//	space  pause
//	r      reset temporal history
//	q/Esc  quit
package main

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/gogpu/isr"
)

const (
	frameInterval = 33 * time.Millisecond
	tileSize      = 8
)

// tierStyles paints one cell per tile. Hot colors mark full-rate
// regions, cool colors mark savings.
var tierStyles = [4]tcell.Style{
	tcell.StyleDefault.Background(tcell.NewRGBColor(0xE5, 0x39, 0x35)),
	tcell.StyleDefault.Background(tcell.NewRGBColor(0xFB, 0x8C, 0x00)),
	tcell.StyleDefault.Background(tcell.NewRGBColor(0x43, 0xA0, 0x47)),
	tcell.StyleDefault.Background(tcell.NewRGBColor(0x1E, 0x88, 0xE5)),
}

type viewMode int

const (
	viewStable viewMode = iota
	viewRaw
	viewImportance
	viewModeCount
)

func (m viewMode) String() string {
	switch m {
	case viewStable:
		return "stable tiers"
	case viewRaw:
		return "raw tiers"
	default:
		return "importance"
	}
}

// scene holds the procedural inputs: a bright disc orbiting over a
// smooth gradient, with matching depth, normals, and motion vectors.
type scene struct {
	width, height int
	color         *isr.FloatImage
	normal        *isr.FloatImage
	depth         *isr.FloatImage
	motion        *isr.FloatImage

	cx, cy  float64
	px, py  float64
	haveVel bool
	phase   float64
}

func newScene(width, height int) *scene {
	return &scene{
		width:  width,
		height: height,
		color:  isr.NewFloatImage(width, height, 3),
		normal: isr.NewFloatImage(width, height, 3),
		depth:  isr.NewFloatImage(width, height, 1),
		motion: isr.NewFloatImage(width, height, 2),
	}
}

// advance moves the disc along its orbit and regenerates all inputs.
func (s *scene) advance(dt float64) {
	s.phase += dt * 0.8

	w := float64(s.width)
	h := float64(s.height)
	s.px, s.py = s.cx, s.cy
	s.cx = w/2 + math.Cos(s.phase)*w*0.3
	s.cy = h/2 + math.Sin(s.phase*1.3)*h*0.3

	vx := float32(0)
	vy := float32(0)
	if s.haveVel {
		vx = float32(s.cx - s.px)
		vy = float32(s.cy - s.py)
	}
	s.haveVel = true

	radius := math.Min(w, h) * 0.15

	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			dx := float64(x) - s.cx
			dy := float64(y) - s.cy
			dist := math.Sqrt(dx*dx + dy*dy)
			inside := dist < radius

			// Background: smooth horizontal luminance ramp.
			lum := float32(x) / float32(s.width)
			if inside {
				lum = 0.95
			}
			s.color.Set(x, y, 0, lum)
			s.color.Set(x, y, 1, lum)
			s.color.Set(x, y, 2, lum)

			// Normals: flat background, sphere shading on the disc.
			nx, ny, nz := float32(0), float32(0), float32(1)
			if inside && radius > 0 {
				nx = float32(dx / radius)
				ny = float32(dy / radius)
				nz = float32(math.Sqrt(math.Max(0, 1-float64(nx*nx+ny*ny))))
			}
			s.normal.Set(x, y, 0, nx)
			s.normal.Set(x, y, 1, ny)
			s.normal.Set(x, y, 2, nz)

			// Depth: disc near the camera, background far.
			d := float32(0.9)
			if inside {
				d = 0.2
			}
			s.depth.Set(x, y, 0, d)

			// Motion: only the disc moves.
			mx, my := float32(0), float32(0)
			if inside {
				mx, my = vx, vy
			}
			s.motion.Set(x, y, 0, mx)
			s.motion.Set(x, y, 1, my)
		}
	}
}

func (s *scene) inputs() isr.FrameInputs {
	return isr.FrameInputs{
		Color:  s.color,
		Normal: s.normal,
		Depth:  s.depth,
		Motion: s.motion,
	}
}

type viewer struct {
	screen tcell.Screen
	scene  *scene
	pipe   *isr.ISR

	cols, rows int
	mode       viewMode
	paused     bool
}

func newViewer() (*viewer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}

	v := &viewer{screen: screen}
	if err := v.resize(); err != nil {
		screen.Fini()
		return nil, err
	}
	return v, nil
}

// resize rebuilds the scene and pipeline so one grid tile covers one
// terminal cell. The bottom row is reserved for the status line.
func (v *viewer) resize() error {
	cols, rows := v.screen.Size()
	rows--
	if cols < 2 || rows < 2 {
		return fmt.Errorf("terminal too small: %dx%d", cols, rows+1)
	}
	if cols == v.cols && rows == v.rows {
		return nil
	}
	v.cols, v.rows = cols, rows

	if v.pipe != nil {
		v.pipe.Close()
	}
	pipe, err := isr.Create().
		Resolution(cols*tileSize, rows*tileSize).
		Hierarchical(true, tileSize).
		Build()
	if err != nil {
		return err
	}
	v.pipe = pipe
	v.scene = newScene(cols*tileSize, rows*tileSize)
	return nil
}

func (v *viewer) step() {
	if v.paused {
		return
	}
	v.scene.advance(frameInterval.Seconds())
	v.pipe.Update(v.scene.inputs())
}

func (v *viewer) draw() {
	grid := v.pipe.ShadingRateGrid()

	switch v.mode {
	case viewImportance:
		imp := v.pipe.ImportanceMap()
		for row := 0; row < v.rows; row++ {
			for col := 0; col < v.cols; col++ {
				// Sample the tile center.
				g := imp.At(col*tileSize+tileSize/2, row*tileSize+tileSize/2, 0)
				if g < 0 {
					g = 0
				} else if g > 1 {
					g = 1
				}
				shade := int32(g * 255)
				style := tcell.StyleDefault.Background(tcell.NewRGBColor(shade, shade, shade))
				v.screen.SetContent(col, row, ' ', nil, style)
			}
		}
	default:
		for row := 0; row < v.rows; row++ {
			for col := 0; col < v.cols; col++ {
				t := grid.At(col, row)
				v.screen.SetContent(col, row, ' ', nil, tierStyles[t])
			}
		}
	}

	v.drawStatus()
	v.screen.Show()
}

func (v *viewer) drawStatus() {
	st := v.pipe.Stats()
	state := ""
	if v.paused {
		state = " [paused]"
	}
	line := fmt.Sprintf(" %s%s | frame %d | 1x1:%d 2x2:%d 4x4:%d 8x8:%d | gain %.0f%% | m:view space:pause r:reset q:quit",
		v.mode, state, st.Frame,
		st.TileCounts[isr.TierFull], st.TileCounts[isr.TierHalf],
		st.TileCounts[isr.TierQuarter], st.TileCounts[isr.TierEighth],
		st.PerformanceGain*100)

	style := tcell.StyleDefault.Reverse(true)
	_, rows := v.screen.Size()
	for col := 0; col < v.cols; col++ {
		ch := ' '
		if col < len(line) {
			ch = rune(line[col])
		}
		v.screen.SetContent(col, rows-1, ch, nil, style)
	}
}

func (v *viewer) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() == tcell.KeyRune {
			switch ev.Rune() {
			case 'q':
				return false
			case 'm':
				v.mode = (v.mode + 1) % viewModeCount
			case ' ':
				v.paused = !v.paused
			case 'r':
				v.pipe.Reset()
			}
		}

	case *tcell.EventResize:
		v.screen.Sync()
		v.resize()
	}
	return true
}

func (v *viewer) run() {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 16)
	go func() {
		for {
			eventChan <- v.screen.PollEvent()
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if !v.handleInput(ev) {
				return
			}

		case <-ticker.C:
			v.step()
			v.draw()
		}
	}
}

func (v *viewer) cleanup() {
	if v.pipe != nil {
		v.pipe.Close()
	}
	v.screen.Fini()
}

func main() {
	v, err := newViewer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer v.cleanup()

	v.run()
}
