package web

import (
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// annotate stamps a caption into the bottom-left corner of the image,
// white text on a black strip so it stays legible on any frame.
func annotate(img *image.RGBA, caption string) {
	face := basicfont.Face7x13
	pad := 4
	textW := font.MeasureString(face, caption).Ceil()
	textH := face.Metrics().Height.Ceil()

	b := img.Bounds()
	strip := image.Rect(b.Min.X, b.Max.Y-textH-2*pad, b.Min.X+textW+2*pad, b.Max.Y)
	draw.Draw(img, strip, image.NewUniform(color.Black), image.Point{}, draw.Src)

	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(b.Min.X + pad),
			Y: fixed.I(b.Max.Y - pad - face.Metrics().Descent.Ceil()),
		},
	}
	d.DrawString(caption)
}

func encodeJPEG(w io.Writer, img image.Image, quality int) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}
