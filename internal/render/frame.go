package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/san-kum/cableheat/internal/sim"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	DefaultFrameSize   = 1200
	DefaultPixelsPerCM = 15
	DefaultMarkerCM    = 25
)

var labelColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Frame draws the cross-section of one snapshot. Shell s is a disk of
// radius (s+1)*PixelsPerCM around the image centre; each pixel takes the
// colour of the smallest drawn disk containing it.
type Frame struct {
	Size        int
	PixelsPerCM int
	MarkerCM    int // 0 hides the marker line
	Palette     Palette

	shellColor []color.RGBA
}

func NewFrame(p Palette) *Frame {
	if p == nil {
		p = NewBandPalette()
	}
	return &Frame{
		Size:        DefaultFrameSize,
		PixelsPerCM: DefaultPixelsPerCM,
		MarkerCM:    DefaultMarkerCM,
		Palette:     p,
	}
}

func (f *Frame) Draw(s sim.Snapshot) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Size, f.Size))
	draw.Draw(img, img.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)

	f.paintShells(img, s)

	center := f.Size / 2
	if f.MarkerCM > 0 {
		y := center - f.PixelsPerCM*f.MarkerCM
		if y >= 0 {
			draw.Draw(img, image.Rect(0, y, f.Size, y+1), image.NewUniform(labelColor), image.Point{}, draw.Src)
			addLabel(img, f.Size*3/4, y-4, fmt.Sprintf("%d cm", f.MarkerCM))
		}
	}

	f.drawLegend(img)
	addLabel(img, f.Size/12, f.Size/12, fmt.Sprintf("%d Days", s.Days()))
	return img
}

func (f *Frame) paintShells(img *image.RGBA, s sim.Snapshot) {
	n := len(s.Temperatures)
	if cap(f.shellColor) < n+1 {
		f.shellColor = make([]color.RGBA, n+1)
	}
	eff := f.shellColor[:n+1]

	// eff[s] is what a pixel inside shell s shows: its own colour, or the
	// next drawn shell further out.
	eff[n] = Background
	for i := n - 1; i >= 0; i-- {
		if c, ok := f.Palette.Color(s.Temperatures[i], s.Ambient); ok {
			eff[i] = c
		} else {
			eff[i] = eff[i+1]
		}
	}

	ppc := float64(f.PixelsPerCM)
	c := float64(f.Size) / 2
	for y := 0; y < f.Size; y++ {
		dy := float64(y) + 0.5 - c
		for x := 0; x < f.Size; x++ {
			dx := float64(x) + 0.5 - c
			shell := int(math.Ceil(math.Hypot(dx, dy)/ppc)) - 1
			if shell < 0 {
				shell = 0
			}
			if shell >= n {
				continue
			}
			img.SetRGBA(x, y, eff[shell])
		}
	}
}

func (f *Frame) drawLegend(img *image.RGBA) {
	l, ok := f.Palette.(legender)
	if !ok {
		return
	}
	bands := l.Legend()
	if len(bands) == 0 {
		return
	}

	width := f.Size / 10
	height := f.Size / 20
	x := f.Size / 24
	y := f.Size - f.Size/12
	for _, b := range bands {
		if x+width > f.Size {
			break
		}
		draw.Draw(img, image.Rect(x, y, x+width, y+height), image.NewUniform(b.Color), image.Point{}, draw.Src)
		addLabel(img, x, y-5, strconv.Itoa(int(b.Min)))
		x += width
	}
}

func addLabel(img *image.RGBA, x, y int, label string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(label)
}

// FrameRenderer writes every snapshot as Dir/img_<step>.png.
type FrameRenderer struct {
	Dir   string
	Frame *Frame
	files []string
}

func NewFrameRenderer(dir string, p Palette) (*FrameRenderer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FrameRenderer{Dir: dir, Frame: NewFrame(p)}, nil
}

func FrameName(step int) string {
	return fmt.Sprintf("img_%05d.png", step)
}

func (r *FrameRenderer) Render(s sim.Snapshot) error {
	path := filepath.Join(r.Dir, FrameName(s.Step))
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := png.Encode(file, r.Frame.Draw(s)); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	r.files = append(r.files, path)
	return file.Close()
}

// Files lists the frames written so far.
func (r *FrameRenderer) Files() []string { return r.files }
