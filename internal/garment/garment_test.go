package garment

import (
	"bytes"
	"encoding/base64"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"fitroom/internal/acquire"
	"fitroom/internal/capability"
	"fitroom/internal/models"
)

func testRegistry() *Registry {
	return NewRegistry(acquire.New(&capability.Capability{
		Preset: capability.QualityPreset{MaxEdge: 800, JPEGQuality: 75},
	}))
}

func garmentDataURL(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(w, h, color.NRGBA{B: 200, A: 255}), imaging.PNG))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestRegisterDefaults(t *testing.T) {
	r := testRegistry()

	g, err := r.Register(garmentDataURL(t, 100, 200), models.GarmentTop)
	require.NoError(t, err)

	require.Equal(t, models.GarmentTop, g.Type)
	require.Equal(t, models.PositionUpperBody, g.BodyPosition)
	require.Equal(t, models.Dimensions{Width: 100, Height: 200}, g.OriginalDimensions)
	require.InDelta(t, 0.9, g.Scale, 0.001)
	require.Equal(t, models.Dimensions{Width: 90, Height: 180}, g.Dimensions)
	require.NotEqual(t, g.ID.String(), "00000000-0000-0000-0000-000000000000")
}

func TestRegisterBodyPositionMapping(t *testing.T) {
	r := testRegistry()
	src := garmentDataURL(t, 50, 50)

	cases := map[models.GarmentType]models.BodyPosition{
		models.GarmentTop:       models.PositionUpperBody,
		models.GarmentBottom:    models.PositionLowerBody,
		models.GarmentDress:     models.PositionFullBody,
		models.GarmentOuterwear: models.PositionUpperBody,
		models.GarmentShoes:     models.PositionFeet,
		models.GarmentAccessory: models.PositionUpperBody,
	}
	for typ, want := range cases {
		g, err := r.Register(src, typ)
		require.NoError(t, err)
		require.Equal(t, want, g.BodyPosition, "type %s", typ)
	}
}

func TestRegisterPaintOrder(t *testing.T) {
	r := testRegistry()
	src := garmentDataURL(t, 50, 50)

	z := func(typ models.GarmentType) int {
		g, err := r.Register(src, typ)
		require.NoError(t, err)
		return g.ZIndex
	}

	// back-to-front: dress, bottom, top, outerwear, accessory, shoes
	require.Less(t, z(models.GarmentDress), z(models.GarmentBottom))
	require.Less(t, z(models.GarmentBottom), z(models.GarmentTop))
	require.Less(t, z(models.GarmentTop), z(models.GarmentOuterwear))
	require.Less(t, z(models.GarmentOuterwear), z(models.GarmentAccessory))
	require.Less(t, z(models.GarmentAccessory), z(models.GarmentShoes))
}

func TestRegisterUnknownTypeFallsBackToTop(t *testing.T) {
	r := testRegistry()
	g, err := r.Register(garmentDataURL(t, 50, 50), models.GarmentType("hologram"))
	require.NoError(t, err)
	require.Equal(t, models.GarmentTop, g.Type)
}

func TestRegisterDecodeFailure(t *testing.T) {
	r := testRegistry()
	_, err := r.Register("data:image/png;base64,garbage!!!", models.GarmentTop)
	var de *acquire.DecodeError
	require.ErrorAs(t, err, &de)
}

func TestInferType(t *testing.T) {
	cases := []struct {
		text string
		want models.GarmentType
	}{
		{"Slim Fit Jeans", models.GarmentBottom},
		{"Pleated Midi Skirt", models.GarmentBottom},
		{"Floral Summer Gown", models.GarmentDress},
		{"Denim Jumpsuit", models.GarmentDress},
		{"Leather Jacket", models.GarmentOuterwear},
		{"Wool Trench Coat", models.GarmentOuterwear},
		{"Running Sneakers", models.GarmentShoes},
		{"Ankle Boots", models.GarmentShoes},
		{"Baseball Cap", models.GarmentAccessory},
		{"Silk Scarf", models.GarmentAccessory},
		{"Graphic Tee", models.GarmentTop},
		{"Oxford Shirt", models.GarmentTop},
		// top keywords win ties because the top group is checked first
		{"Dress Shirt", models.GarmentTop},
		// unmatched strings default to top
		{"mystery object", models.GarmentTop},
		{"", models.GarmentTop},
	}
	for _, c := range cases {
		require.Equal(t, c.want, InferType(c.text), "text %q", c.text)
	}
}
