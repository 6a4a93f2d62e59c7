// internal/compositor/compositor.go
package compositor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sort"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/golang/freetype"
	"golang.org/x/image/font/gofont/goregular"

	"fitroom/internal/acquire"
	"fitroom/internal/models"
)

// ErrNothingToSave is the guarded precondition for snapshot/save: no user
// image or no rendered canvas is bound.
var ErrNothingToSave = errors.New("nothing to save")

// anchorY places each body region as a fraction of canvas height. The
// horizontal anchor is always the canvas center.
var anchorY = map[models.BodyPosition]float64{
	models.PositionHead:      0.08,
	models.PositionNeck:      0.18,
	models.PositionUpperBody: 0.32,
	models.PositionWaist:     0.50,
	models.PositionLowerBody: 0.65,
	models.PositionFeet:      0.90,
	models.PositionFullBody:  0.50,
}

// Compositor flattens background + garments onto a fixed-size canvas.
type Compositor struct {
	width     int
	height    int
	watermark string
	acq       *acquire.Acquirer

	mu           sync.Mutex
	canvas       *image.NRGBA
	hasUserImage bool
}

func New(width, height int, watermark string, acq *acquire.Acquirer) *Compositor {
	return &Compositor{width: width, height: height, watermark: watermark, acq: acq}
}

// Render draws the background (or blank) first, then garments by z-index
// ascending with layer index as the stable tie-break, each scaled, rotated
// about its center and placed at its anchor position plus offset.
func (c *Compositor) Render(userImage *models.UserImageInfo, outfit models.OutfitTryOn) (*image.NRGBA, error) {
	const op = "compositor.Render"

	canvas := imaging.New(c.width, c.height, color.NRGBA{})

	if userImage != nil {
		bg, err := c.acq.Decode(userImage.URL)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", op, err)
		}
		fitted := imaging.Fit(bg.Image, c.width, c.height, imaging.Lanczos)
		canvas = imaging.PasteCenter(canvas, fitted)
	}

	garments := make([]*models.GarmentInfo, len(outfit.Garments))
	copy(garments, outfit.Garments)
	sort.SliceStable(garments, func(i, j int) bool {
		if garments[i].ZIndex != garments[j].ZIndex {
			return garments[i].ZIndex < garments[j].ZIndex
		}
		return garments[i].LayerIndex < garments[j].LayerIndex
	})

	for _, g := range garments {
		layer, err := c.renderGarment(g)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", op, err)
		}
		cx := float64(c.width)/2 + g.Offset.X
		cy := float64(c.height)*anchorY[g.BodyPosition] + g.Offset.Y
		b := layer.Bounds()
		pt := image.Pt(int(cx)-b.Dx()/2, int(cy)-b.Dy()/2)
		canvas = imaging.Overlay(canvas, layer, pt, 1.0)
	}

	c.mu.Lock()
	c.canvas = canvas
	c.hasUserImage = userImage != nil
	c.mu.Unlock()
	return canvas, nil
}

func (c *Compositor) renderGarment(g *models.GarmentInfo) (image.Image, error) {
	d, err := c.acq.Decode(g.URL)
	if err != nil {
		return nil, err
	}
	w, h := g.Dimensions.Width, g.Dimensions.Height
	if w <= 0 || h <= 0 {
		w = int(float64(g.OriginalDimensions.Width) * g.Scale)
		h = int(float64(g.OriginalDimensions.Height) * g.Scale)
	}
	var layer image.Image = imaging.Resize(d.Image, w, h, imaging.Lanczos)
	if g.Rotation != 0 {
		layer = imaging.Rotate(layer, g.Rotation, color.NRGBA{})
	}
	return layer, nil
}

// Snapshot encodes the canvas as it stood at the time of the call. It is a
// precondition failure, not a silent no-op, when no user image or canvas is
// bound.
func (c *Compositor) Snapshot() ([]byte, error) {
	c.mu.Lock()
	canvas := c.canvas
	hasUser := c.hasUserImage
	c.mu.Unlock()

	if canvas == nil || !hasUser {
		return nil, ErrNothingToSave
	}

	out := imaging.Clone(canvas)
	if c.watermark != "" {
		if err := drawWatermark(out, c.watermark); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Bound reports whether a snapshot would currently succeed.
func (c *Compositor) Bound() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canvas != nil && c.hasUserImage
}

func drawWatermark(dst *image.NRGBA, text string) error {
	f, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return err
	}
	fc := freetype.NewContext()
	fc.SetDPI(72)
	fc.SetFont(f)
	fc.SetFontSize(14)
	fc.SetClip(dst.Bounds())
	fc.SetDst(dst)
	fc.SetSrc(image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: 180}))
	_, err = fc.DrawString(text, freetype.Pt(12, dst.Bounds().Dy()-12))
	return err
}
