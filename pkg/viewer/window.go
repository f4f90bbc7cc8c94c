//go:build cgo

package viewer

import (
	"errors"
	"image"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"oscope-go/pkg/log"
)

// Source is the display the window mirrors.
type Source interface {
	Image() *image.RGBA
	Bounds() image.Rectangle
}

// Config configures the window.
type Config struct {
	Title string
	Scale int

	// Refresh bounds how often the display is re-composed.
	Refresh time.Duration

	Logger *log.Logger
}

type game struct {
	src     Source
	ctl     Controls
	log     *log.Logger
	refresh time.Duration

	img      *ebiten.Image
	last     time.Time
	quit     bool
	controls chan rune
}

// Run opens the window and blocks until it is closed or q is pressed.
func Run(src Source, ctl Controls, cfg Config) error {
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	if cfg.Refresh <= 0 {
		cfg.Refresh = 50 * time.Millisecond
	}
	if cfg.Title == "" {
		cfg.Title = "oscope"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.GetLogger("viewer")
	}

	g := &game{
		src:      src,
		ctl:      ctl,
		log:      logger,
		refresh:  cfg.Refresh,
		controls: make(chan rune, 16),
	}
	go g.runControls()
	defer close(g.controls)

	b := src.Bounds()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(b.Dx()*cfg.Scale, b.Dy()*cfg.Scale)
	ebiten.SetTPS(30)
	err := ebiten.RunGame(g)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

// runControls applies key presses off the render loop; a control waits on
// the capture loop and must not stall frames.
func (g *game) runControls() {
	for r := range g.controls {
		if err := Dispatch(g.ctl, r); err != nil && !errors.Is(err, ErrQuit) {
			g.log.WithError(err).WithField("key", string(r)).Warn("control failed")
		}
	}
}

func (g *game) Update() error {
	for _, r := range ebiten.AppendInputChars(nil) {
		if r == 'q' || r == 'Q' {
			g.quit = true
			continue
		}
		select {
		case g.controls <- r:
		default:
		}
	}
	if g.quit {
		return ebiten.Termination
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	b := g.src.Bounds()
	if g.img == nil || g.img.Bounds().Dx() != b.Dx() || g.img.Bounds().Dy() != b.Dy() {
		if g.img != nil {
			g.img.Deallocate()
		}
		g.img = ebiten.NewImage(b.Dx(), b.Dy())
		g.last = time.Time{}
	}
	if now := time.Now(); now.Sub(g.last) >= g.refresh {
		g.img.WritePixels(g.src.Image().Pix)
		g.last = now
	}
	screen.DrawImage(g.img, nil)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	b := g.src.Bounds()
	return b.Dx(), b.Dy()
}
