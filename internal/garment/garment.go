// internal/garment/garment.go
package garment

import (
	"github.com/google/uuid"

	"fitroom/internal/acquire"
	"fitroom/internal/models"
)

// Per-type placement defaults. Configuration tables, not computed geometry.
var defaultBodyPosition = map[models.GarmentType]models.BodyPosition{
	models.GarmentTop:       models.PositionUpperBody,
	models.GarmentBottom:    models.PositionLowerBody,
	models.GarmentDress:     models.PositionFullBody,
	models.GarmentOuterwear: models.PositionUpperBody,
	models.GarmentShoes:     models.PositionFeet,
	models.GarmentAccessory: models.PositionUpperBody,
}

// paintOrder is the default back-to-front z-index per type.
var paintOrder = map[models.GarmentType]int{
	models.GarmentDress:     10,
	models.GarmentBottom:    20,
	models.GarmentTop:       30,
	models.GarmentOuterwear: 40,
	models.GarmentAccessory: 50,
	models.GarmentShoes:     60,
}

type transformDefaults struct {
	Scale  float64
	Offset models.Offset
}

var defaultTransform = map[models.GarmentType]transformDefaults{
	models.GarmentTop:       {Scale: 0.9},
	models.GarmentBottom:    {Scale: 0.85},
	models.GarmentDress:     {Scale: 1.0},
	models.GarmentOuterwear: {Scale: 0.95},
	models.GarmentShoes:     {Scale: 0.5},
	models.GarmentAccessory: {Scale: 0.4, Offset: models.Offset{Y: -20}},
}

// Registry turns garment image sources into GarmentInfo records.
type Registry struct {
	acq *acquire.Acquirer
}

func NewRegistry(acq *acquire.Acquirer) *Registry {
	return &Registry{acq: acq}
}

// Register decodes the garment image and builds its record with per-type
// defaults. A decode failure aborts the add with a typed error; no partial
// garment is produced. The layer index is assigned when the garment enters
// the outfit.
func (r *Registry) Register(source string, typ models.GarmentType) (*models.GarmentInfo, error) {
	d, err := r.acq.Decode(source)
	if err != nil {
		return nil, err
	}

	pos, ok := defaultBodyPosition[typ]
	if !ok {
		typ = models.GarmentTop
		pos = defaultBodyPosition[typ]
	}
	t := defaultTransform[typ]

	return &models.GarmentInfo{
		ID:                 uuid.New(),
		URL:                source,
		Type:               typ,
		BodyPosition:       pos,
		ZIndex:             paintOrder[typ],
		OriginalDimensions: d.Dimensions,
		Dimensions: models.Dimensions{
			Width:  int(float64(d.Dimensions.Width) * t.Scale),
			Height: int(float64(d.Dimensions.Height) * t.Scale),
		},
		Scale:  t.Scale,
		Offset: t.Offset,
	}, nil
}
