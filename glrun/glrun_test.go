package glrun

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/soypat/glvj/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreenshotName(t *testing.T) {
	assert.Equal(t, "out/shot_0003.png", ScreenshotName("out/shot.png", 3))
	assert.Equal(t, "frame-7.jpg", ScreenshotName("frame-%d.jpg", 7))
	assert.Equal(t, "shot_0000.png", ScreenshotName("shot", 0))
}

func TestWritePNGFlipsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	// Bottom row green, top row white, as OpenGL reads them back.
	pix := []byte{
		0, 255, 0, 255,
		255, 255, 255, 255,
	}
	require.NoError(t, writePNG(path, 1, 2, pix))
	fp, err := os.Open(path)
	require.NoError(t, err)
	defer fp.Close()
	img, err := png.Decode(fp)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, color.RGBAModel.Convert(img.At(0, 0)))
	assert.Equal(t, color.RGBA{0, 255, 0, 255}, color.RGBAModel.Convert(img.At(0, 1)))

	assert.Error(t, writePNG(path, 2, 2, pix))
}

func TestConfigFromView(t *testing.T) {
	v := config.Default().View
	v.Screenshot = true
	v.ScreenshotPath = "shot.png"
	v.LockedSpeed = true
	cfg := ConfigFromView(v)
	assert.Equal(t, 1280, cfg.Width)
	assert.Equal(t, 1, cfg.ScreenshotFrames)
	assert.Equal(t, time.Second/60, cfg.frameDuration())

	ft := newFrameTimer(&cfg)
	assert.Equal(t, cfg.frameDuration(), ft.next(), "locked speed ignores wall time")

	cfg.TargetFPS = 0
	assert.Zero(t, cfg.frameDuration())
	ft = newFrameTimer(&cfg)
	assert.False(t, ft.locked)
}
