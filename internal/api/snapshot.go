package api

import (
	"image"
	"image/color"
	"image/png"
	"net/http"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	snapshotWidth  = 640
	snapshotHeight = 480
)

// writeSnapshot renders the below-Paused placeholder: a black frame with a
// centered message. While the pipeline is at Paused or above, the sink owns
// the pixels and no placeholder is served.
func writeSnapshot(w http.ResponseWriter, message string) {
	img := image.NewRGBA(image.Rect(0, 0, snapshotWidth, snapshotHeight))
	for y := 0; y < snapshotHeight; y++ {
		for x := 0; x < snapshotWidth; x++ {
			img.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
		}
	}

	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, message).Ceil()

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{200, 200, 200, 255}),
		Face: face,
		Dot: fixed.P(
			(snapshotWidth-textWidth)/2,
			snapshotHeight/2,
		),
	}
	d.DrawString(message)

	w.Header().Set("Content-Type", "image/png")
	png.Encode(w, img)
}
