//go:build !cgo

package viewer

import (
	"errors"
	"image"
	"time"

	"oscope-go/pkg/log"
)

// Source is the display the window mirrors.
type Source interface {
	Image() *image.RGBA
	Bounds() image.Rectangle
}

// Config configures the window.
type Config struct {
	Title   string
	Scale   int
	Refresh time.Duration
	Logger  *log.Logger
}

// ErrUnsupported is returned when the binary was built without cgo.
var ErrUnsupported = errors.New("viewer: built without cgo, no window support")

// Run reports that no window can be opened.
func Run(src Source, ctl Controls, cfg Config) error {
	return ErrUnsupported
}
