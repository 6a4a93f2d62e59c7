// internal/models/models.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type ProcessingStatus string

const (
	StatusIdle               ProcessingStatus = "idle"
	StatusRemovingBackground ProcessingStatus = "removing_background"
	StatusCompleted          ProcessingStatus = "completed"
	StatusFailed             ProcessingStatus = "failed"
)

// Terminal reports whether the status ends a removal attempt.
func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type GarmentType string

const (
	GarmentTop       GarmentType = "top"
	GarmentBottom    GarmentType = "bottom"
	GarmentDress     GarmentType = "dress"
	GarmentOuterwear GarmentType = "outerwear"
	GarmentShoes     GarmentType = "shoes"
	GarmentAccessory GarmentType = "accessory"
)

type BodyPosition string

const (
	PositionHead      BodyPosition = "head"
	PositionNeck      BodyPosition = "neck"
	PositionUpperBody BodyPosition = "upper_body"
	PositionWaist     BodyPosition = "waist"
	PositionLowerBody BodyPosition = "lower_body"
	PositionFeet      BodyPosition = "feet"
	PositionFullBody  BodyPosition = "full_body"
)

type RemovalMethod string

const (
	MethodOnDevice  RemovalMethod = "on_device"
	MethodRemoteAPI RemovalMethod = "remote_api"
)

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// UserImageInfo is the shopper photo under processing. The removal
// orchestrator is the only writer of the processing fields; everything else
// reads them through the session.
type UserImageInfo struct {
	ID                uuid.UUID          `json:"id"`
	URL               string             `json:"url"`
	Dimensions        Dimensions         `json:"dimensions"`
	ProcessingStatus  ProcessingStatus   `json:"processing_status"`
	BackgroundRemoved bool               `json:"background_removed"`
	BodyMeasurements  map[string]float64 `json:"body_measurements,omitempty"`
	ProcessingWarning string             `json:"processing_warning,omitempty"`
	ProcessingError   string             `json:"processing_error,omitempty"`
}

// GarmentInfo is one placed garment. OriginalDimensions is fixed at
// registration; Dimensions/Scale/Offset/Rotation are the adjustable
// transform.
type GarmentInfo struct {
	ID                 uuid.UUID    `json:"id"`
	URL                string       `json:"url"`
	Type               GarmentType  `json:"type"`
	BodyPosition       BodyPosition `json:"body_position"`
	ZIndex             int          `json:"z_index"`
	LayerIndex         int          `json:"layer_index"`
	Dimensions         Dimensions   `json:"dimensions"`
	OriginalDimensions Dimensions   `json:"original_dimensions"`
	Scale              float64      `json:"scale"`
	Offset             Offset       `json:"offset"`
	Rotation           float64      `json:"rotation,omitempty"`
}

type OutfitTryOn struct {
	ID        uuid.UUID      `json:"id"`
	Garments  []*GarmentInfo `json:"garments"`
	CreatedAt time.Time      `json:"created_at"`
}

// BackgroundRemovalResult is the transient outcome of one removal attempt;
// it is folded into UserImageInfo and never persisted on its own.
type BackgroundRemovalResult struct {
	Success          bool
	ImageURL         string
	Error            string
	BodyMeasurements map[string]float64
}

// SavedTryOnResult is a frozen composite snapshot. Only created, never
// mutated; garment ids are copied so later outfit edits cannot change a
// saved result's provenance.
type SavedTryOnResult struct {
	ID             string    `db:"id" json:"id"`
	OutfitID       string    `db:"outfit_id" json:"outfit_id"`
	UserID         string    `db:"user_id" json:"user_id"`
	UserImageURL   string    `db:"user_image_url" json:"user_image_url"`
	ResultImageURL string    `db:"result_image_url" json:"result_image_url"`
	GarmentIDs     []string  `db:"garment_ids" json:"garment_ids"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
