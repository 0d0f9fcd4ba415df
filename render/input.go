package render

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/soypat/glvj/uniform"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// InputProvider produces values shared by stages, usually textures.
// Providers are driven from the render thread only.
type InputProvider interface {
	// Provides returns the names of the values the provider produces.
	Provides() []string
	// Get returns the named value if it changed since the last Get call
	// with invalidate set. The boolean is false when there is nothing new.
	Get(name string, invalidate bool) (uniform.Value, bool)
	SetProperty(property string, v uniform.Value) error
	SetBeat(bpm float64, sync bool)
	SetTime(secs float64, sync bool)
	Play() error
	Pause() error
	Stop() error
}

var errUnknownProperty = errors.New("unknown property")

var _ InputProvider = (*Picture)(nil)

// Picture provides a still image as an sRGB texture.
type Picture struct {
	name   string
	path   string
	width  int
	height int
	tex    uniform.Value
	fresh  bool
}

// NewPicture loads the image at path. Width and height resize the image when
// both are positive, otherwise the image keeps its size. The pixel rows of the
// produced texture are stored bottom to top as OpenGL expects.
func NewPicture(name, path string, width, height int) (*Picture, error) {
	p := &Picture{name: name, path: path, width: width, height: height}
	err := p.load()
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Picture) Provides() []string { return []string{p.name} }

func (p *Picture) Get(name string, invalidate bool) (uniform.Value, bool) {
	if name != p.name || !p.fresh {
		return uniform.Value{}, false
	}
	if invalidate {
		p.fresh = false
	}
	return p.tex, true
}

// SetProperty accepts "path" as a string and "width" or "height" as ints.
// The image is reloaded and the previous texture kept if loading fails.
func (p *Picture) SetProperty(property string, v uniform.Value) error {
	old := *p
	switch property {
	case "path":
		if v.Kind() != uniform.KindString {
			return fmt.Errorf("picture %s: path must be a string, got %s", p.name, v.Kind())
		}
		p.path = v.Text()
	case "width", "height":
		if v.Kind() != uniform.KindInt {
			return fmt.Errorf("picture %s: %s must be an int, got %s", p.name, property, v.Kind())
		}
		size := int(v.Int32s()[0])
		if property == "width" {
			p.width = size
		} else {
			p.height = size
		}
	default:
		return fmt.Errorf("picture %s: %w %q", p.name, errUnknownProperty, property)
	}
	err := p.load()
	if err != nil {
		*p = old
		return err
	}
	return nil
}

func (p *Picture) SetBeat(bpm float64, sync bool)  {}
func (p *Picture) SetTime(secs float64, sync bool) {}
func (p *Picture) Play() error                     { return nil }
func (p *Picture) Pause() error                    { return nil }
func (p *Picture) Stop() error                     { return nil }

func (p *Picture) load() error {
	fp, err := os.Open(p.path)
	if err != nil {
		return err
	}
	defer fp.Close()
	img, _, err := image.Decode(fp)
	if err != nil {
		return fmt.Errorf("picture %s: %w", p.path, err)
	}
	p.tex = textureFromImage(img, p.width, p.height)
	p.fresh = true
	return nil
}

// textureFromImage converts img to a bottom-up RGBA texture, scaling it with
// bilinear filtering when width and height are positive and differ from img's size.
func textureFromImage(img image.Image, width, height int) uniform.Value {
	src := img.Bounds()
	if width <= 0 || height <= 0 {
		width, height = src.Dx(), src.Dy()
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if width == src.Dx() && height == src.Dy() {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)
	} else {
		draw.BiLinear.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	}
	rowLen := 4 * width
	data := make([]byte, rowLen*height)
	for y := 0; y < height; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+rowLen]
		copy(data[(height-1-y)*rowLen:], row)
	}
	return uniform.SrgbTexture(uint32(width), uint32(height), data)
}
