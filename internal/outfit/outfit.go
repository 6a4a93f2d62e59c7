// internal/outfit/outfit.go
package outfit

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"fitroom/internal/models"
)

// Session owns the active UserImageInfo and OutfitTryOn. Garment fields are
// written only through the operations below; processing fields only through
// CommitProcessing, whose reference is handed to the removal orchestrator
// alone.
type Session struct {
	mu     sync.Mutex
	image  *models.UserImageInfo
	outfit *models.OutfitTryOn
}

func NewSession() *Session {
	return &Session{outfit: newOutfit()}
}

func newOutfit() *models.OutfitTryOn {
	return &models.OutfitTryOn{
		ID:        uuid.New(),
		Garments:  []*models.GarmentInfo{},
		CreatedAt: time.Now(),
	}
}

// SetUserImage replaces the current photo wholesale. Any in-flight removal
// attempt on the previous record becomes stale: its commits no longer match
// the current id and are discarded.
func (s *Session) SetUserImage(img *models.UserImageInfo) {
	s.mu.Lock()
	s.image = img
	s.mu.Unlock()
}

func (s *Session) ClearUserImage() {
	s.mu.Lock()
	s.image = nil
	s.mu.Unlock()
}

// ImageSnapshot returns a copy of the current user image.
func (s *Session) ImageSnapshot() (models.UserImageInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.image == nil {
		return models.UserImageInfo{}, false
	}
	return *s.image, true
}

// CommitProcessing applies a processing-field mutation if and only if id
// still names the current image. Late writes from superseded attempts
// return false and change nothing.
func (s *Session) CommitProcessing(id uuid.UUID, mutate func(*models.UserImageInfo)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.image == nil || s.image.ID != id {
		return false
	}
	mutate(s.image)
	return true
}

// StartNewSession supersedes the current outfit with a fresh, empty one.
// The old outfit value is discarded, not mutated.
func (s *Session) StartNewSession() *models.OutfitTryOn {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outfit = newOutfit()
	return s.outfit
}

func (s *Session) SetCurrentOutfit(o *models.OutfitTryOn) {
	s.mu.Lock()
	s.outfit = o
	s.mu.Unlock()
}

// ClearOutfit empties the garment list of the current outfit in place.
func (s *Session) ClearOutfit() {
	s.mu.Lock()
	s.outfit.Garments = []*models.GarmentInfo{}
	s.mu.Unlock()
}

// AddGarment appends the garment, assigning its layer index from the
// insertion order. Ids are unique within the outfit.
func (s *Session) AddGarment(g *models.GarmentInfo) error {
	const op = "outfit.AddGarment"
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.outfit.Garments {
		if existing.ID == g.ID {
			return fmt.Errorf("%s: garment %s already in outfit", op, g.ID)
		}
	}
	g.LayerIndex = len(s.outfit.Garments)
	s.outfit.Garments = append(s.outfit.Garments, g)
	return nil
}

// RemoveGarment is idempotent: a missing id is a no-op.
func (s *Session) RemoveGarment(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, g := range s.outfit.Garments {
		if g.ID == id {
			s.outfit.Garments = append(s.outfit.Garments[:i], s.outfit.Garments[i+1:]...)
			return
		}
	}
}

// GarmentPatch is a partial transform update. Nil fields are left alone.
type GarmentPatch struct {
	Dimensions   *models.Dimensions   `json:"dimensions,omitempty"`
	Scale        *float64             `json:"scale,omitempty"`
	Offset       *models.Offset       `json:"offset,omitempty"`
	Rotation     *float64             `json:"rotation,omitempty"`
	ZIndex       *int                 `json:"z_index,omitempty"`
	BodyPosition *models.BodyPosition `json:"body_position,omitempty"`
}

// UpdateGarment replaces only the patched fields. Id, layer index and
// original dimensions are never touched. When scale changes without an
// explicit size, the post-transform dimensions follow the original size.
func (s *Session) UpdateGarment(id uuid.UUID, patch GarmentPatch) (models.GarmentInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.outfit.Garments {
		if g.ID != id {
			continue
		}
		if patch.Scale != nil {
			g.Scale = *patch.Scale
			g.Dimensions = models.Dimensions{
				Width:  int(float64(g.OriginalDimensions.Width) * g.Scale),
				Height: int(float64(g.OriginalDimensions.Height) * g.Scale),
			}
		}
		if patch.Dimensions != nil {
			g.Dimensions = *patch.Dimensions
		}
		if patch.Offset != nil {
			g.Offset = *patch.Offset
		}
		if patch.Rotation != nil {
			g.Rotation = *patch.Rotation
		}
		if patch.ZIndex != nil {
			g.ZIndex = *patch.ZIndex
		}
		if patch.BodyPosition != nil {
			g.BodyPosition = *patch.BodyPosition
		}
		return *g, true
	}
	return models.GarmentInfo{}, false
}

// OutfitSnapshot returns a copy of the current outfit with copied garment
// records, safe for the compositor to read while the UI keeps mutating.
func (s *Session) OutfitSnapshot() models.OutfitTryOn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := models.OutfitTryOn{
		ID:        s.outfit.ID,
		CreatedAt: s.outfit.CreatedAt,
		Garments:  make([]*models.GarmentInfo, len(s.outfit.Garments)),
	}
	for i, g := range s.outfit.Garments {
		copied := *g
		out.Garments[i] = &copied
	}
	return out
}

func (s *Session) GarmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outfit.Garments)
}
