package compositor

import (
	"bytes"
	"encoding/base64"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"fitroom/internal/acquire"
	"fitroom/internal/capability"
	"fitroom/internal/models"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

func testCompositor(watermark string) *Compositor {
	acq := acquire.New(&capability.Capability{
		Preset: capability.QualityPreset{MaxEdge: 800, JPEGQuality: 75},
	})
	return New(100, 100, watermark, acq)
}

func solidDataURL(t *testing.T, w, h int, c color.NRGBA) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(w, h, c), imaging.PNG))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func testUserImage(t *testing.T) *models.UserImageInfo {
	return &models.UserImageInfo{
		ID:               uuid.New(),
		URL:              solidDataURL(t, 200, 200, white),
		Dimensions:       models.Dimensions{Width: 200, Height: 200},
		ProcessingStatus: models.StatusCompleted,
	}
}

func solidGarment(t *testing.T, c color.NRGBA, zIndex, layerIndex int, pos models.BodyPosition) *models.GarmentInfo {
	return &models.GarmentInfo{
		ID:                 uuid.New(),
		URL:                solidDataURL(t, 40, 40, c),
		Type:               models.GarmentTop,
		BodyPosition:       pos,
		ZIndex:             zIndex,
		LayerIndex:         layerIndex,
		OriginalDimensions: models.Dimensions{Width: 40, Height: 40},
		Dimensions:         models.Dimensions{Width: 40, Height: 40},
		Scale:              1.0,
	}
}

func pixel(t *testing.T, img interface {
	At(x, y int) color.Color
}, x, y int) color.NRGBA {
	t.Helper()
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func TestRenderBackgroundThenGarment(t *testing.T) {
	c := testCompositor("")
	g := solidGarment(t, red, 30, 0, models.PositionUpperBody)

	canvas, err := c.Render(testUserImage(t), models.OutfitTryOn{Garments: []*models.GarmentInfo{g}})
	require.NoError(t, err)

	// upper-body anchor: 40x40 garment centered at (50, 32)
	require.Equal(t, red, pixel(t, canvas, 50, 30))
	// far corner still shows the background
	require.Equal(t, white, pixel(t, canvas, 10, 90))
}

func TestRenderTieBreakByLayerIndex(t *testing.T) {
	c := testCompositor("")
	g1 := solidGarment(t, red, 5, 0, models.PositionFullBody)
	g2 := solidGarment(t, blue, 5, 1, models.PositionFullBody)

	// traversal order must not matter: hand the slice in reverse
	outfit := models.OutfitTryOn{Garments: []*models.GarmentInfo{g2, g1}}
	canvas, err := c.Render(testUserImage(t), outfit)
	require.NoError(t, err)

	// equal z-index: the later insertion (higher layer index) paints last
	require.Equal(t, blue, pixel(t, canvas, 50, 50))
}

func TestRenderZIndexOrder(t *testing.T) {
	c := testCompositor("")
	top := solidGarment(t, red, 10, 0, models.PositionFullBody)
	bottom := solidGarment(t, blue, 5, 1, models.PositionFullBody)

	canvas, err := c.Render(testUserImage(t), models.OutfitTryOn{Garments: []*models.GarmentInfo{top, bottom}})
	require.NoError(t, err)
	require.Equal(t, red, pixel(t, canvas, 50, 50))
}

func TestRenderAppliesOffset(t *testing.T) {
	c := testCompositor("")
	g := solidGarment(t, red, 5, 0, models.PositionFullBody)
	g.Offset = models.Offset{X: 30, Y: 0}

	canvas, err := c.Render(testUserImage(t), models.OutfitTryOn{Garments: []*models.GarmentInfo{g}})
	require.NoError(t, err)

	require.Equal(t, red, pixel(t, canvas, 80, 50))
	require.Equal(t, white, pixel(t, canvas, 20, 50))
}

func TestRenderGarmentDecodeFailure(t *testing.T) {
	c := testCompositor("")
	g := solidGarment(t, red, 5, 0, models.PositionFullBody)
	g.URL = "data:image/png;base64,broken!!!"

	_, err := c.Render(testUserImage(t), models.OutfitTryOn{Garments: []*models.GarmentInfo{g}})
	require.Error(t, err)
}

func TestSnapshotRequiresRender(t *testing.T) {
	c := testCompositor("")
	_, err := c.Snapshot()
	require.ErrorIs(t, err, ErrNothingToSave)
	require.False(t, c.Bound())
}

func TestSnapshotRequiresUserImage(t *testing.T) {
	c := testCompositor("")
	g := solidGarment(t, red, 5, 0, models.PositionFullBody)

	_, err := c.Render(nil, models.OutfitTryOn{Garments: []*models.GarmentInfo{g}})
	require.NoError(t, err)

	_, err = c.Snapshot()
	require.ErrorIs(t, err, ErrNothingToSave)
	require.False(t, c.Bound())
}

func TestSnapshotEncodesCanvas(t *testing.T) {
	c := testCompositor("")
	_, err := c.Render(testUserImage(t), models.OutfitTryOn{})
	require.NoError(t, err)
	require.True(t, c.Bound())

	data, err := c.Snapshot()
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 100, decoded.Bounds().Dx())
	require.Equal(t, 100, decoded.Bounds().Dy())
}

func TestSnapshotWithWatermark(t *testing.T) {
	c := testCompositor("fitroom")
	_, err := c.Render(testUserImage(t), models.OutfitTryOn{})
	require.NoError(t, err)

	data, err := c.Snapshot()
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
}

func TestRenderRotationKeepsCenter(t *testing.T) {
	c := testCompositor("")
	g := solidGarment(t, red, 5, 0, models.PositionFullBody)
	g.Rotation = 45

	canvas, err := c.Render(testUserImage(t), models.OutfitTryOn{Garments: []*models.GarmentInfo{g}})
	require.NoError(t, err)
	// rotation is about the garment's own center
	require.Equal(t, red, pixel(t, canvas, 50, 50))
}
