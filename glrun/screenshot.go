package glrun

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

// ScreenshotName returns the file name of a numbered screenshot. A path
// containing a % verb is formatted with the frame number, otherwise the
// number is inserted before the extension: shot.png becomes shot_0003.png.
func ScreenshotName(path string, frame int) string {
	if strings.Contains(path, "%") {
		return fmt.Sprintf(path, frame)
	}
	ext := filepath.Ext(path)
	if ext == "" {
		ext = ".png"
	}
	return fmt.Sprintf("%s_%04d%s", strings.TrimSuffix(path, filepath.Ext(path)), frame, ext)
}

// writePNG encodes width*height RGBA pixels stored bottom row first, as read
// back from OpenGL, into a PNG file.
func writePNG(filename string, width, height int, pix []byte) error {
	if len(pix) != 4*width*height {
		return fmt.Errorf("glrun: got %d bytes for %dx%d image", len(pix), width, height)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rowLen := 4 * width
	for y := 0; y < height; y++ {
		copy(img.Pix[y*img.Stride:], pix[(height-1-y)*rowLen:(height-y)*rowLen])
	}
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	err = png.Encode(fp, img)
	if err != nil {
		return err
	}
	return fp.Sync()
}
