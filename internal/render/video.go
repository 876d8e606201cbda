package render

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/icza/mjpeg"
	"github.com/san-kum/cableheat/internal/sim"
	"golang.org/x/image/draw"
)

// VideoRenderer appends one JPEG frame per snapshot to an MJPEG AVI file.
// Frames are drawn at the Frame size and scaled down to the video size.
type VideoRenderer struct {
	Frame   *Frame
	Quality int

	w      mjpeg.AviWriter
	size   int
	buf    bytes.Buffer
	scaled *image.RGBA
	frames int
}

func NewVideoRenderer(path string, size, fps int, p Palette) (*VideoRenderer, error) {
	w, err := mjpeg.New(path, int32(size), int32(size), int32(fps))
	if err != nil {
		return nil, err
	}
	return &VideoRenderer{
		Frame:   NewFrame(p),
		Quality: 90,
		w:       w,
		size:    size,
	}, nil
}

func (v *VideoRenderer) Render(s sim.Snapshot) error {
	var img image.Image = v.Frame.Draw(s)
	if img.Bounds().Dx() != v.size {
		if v.scaled == nil {
			v.scaled = image.NewRGBA(image.Rect(0, 0, v.size, v.size))
		}
		draw.ApproxBiLinear.Scale(v.scaled, v.scaled.Bounds(), img, img.Bounds(), draw.Src, nil)
		img = v.scaled
	}

	v.buf.Reset()
	if err := jpeg.Encode(&v.buf, img, &jpeg.Options{Quality: v.Quality}); err != nil {
		return err
	}
	if err := v.w.AddFrame(v.buf.Bytes()); err != nil {
		return err
	}
	v.frames++
	return nil
}

func (v *VideoRenderer) Frames() int { return v.frames }

func (v *VideoRenderer) Close() error { return v.w.Close() }
