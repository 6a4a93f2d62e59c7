// internal/removal/removal.go
package removal

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"fitroom/internal/acquire"
	"fitroom/internal/capability"
	"fitroom/internal/models"
)

// SessionState is the narrow writer the orchestrator holds. It is the only
// reference in the process capable of writing processing fields, and every
// commit is id-checked so writes to a superseded record are discarded.
type SessionState interface {
	ImageSnapshot() (models.UserImageInfo, bool)
	CommitProcessing(id uuid.UUID, mutate func(*models.UserImageInfo)) bool
}

// Orchestrator drives one background-removal attempt per user image:
// idle -> removing_background -> completed | failed.
type Orchestrator struct {
	cfg         models.RemovalConfig
	cap         *capability.Capability
	acq         *acquire.Acquirer
	session     SessionState
	onDevice    Remover
	remote      Remover
	storagePath string
}

func New(cfg models.RemovalConfig, cap *capability.Capability, acq *acquire.Acquirer,
	session SessionState, onDevice, remote Remover, storagePath string) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		cap:         cap,
		acq:         acq,
		session:     session,
		onDevice:    onDevice,
		remote:      remote,
		storagePath: storagePath,
	}
}

// Process runs the removal attempt for imageID. The returned error covers
// only the terminal-failure branch; degraded and partial results complete
// with a warning and return nil.
func (o *Orchestrator) Process(ctx context.Context, imageID uuid.UUID) error {
	const op = "removal.Process"

	img, ok := o.session.ImageSnapshot()
	if !ok || img.ID != imageID {
		return nil // superseded before the attempt started
	}
	if img.ProcessingStatus != models.StatusIdle {
		return nil // in flight or terminal; a new upload starts the next attempt
	}
	if !o.session.CommitProcessing(imageID, func(u *models.UserImageInfo) {
		u.ProcessingStatus = models.StatusRemovingBackground
	}) {
		return nil
	}

	decoded, err := o.acq.Decode(img.URL)
	if err != nil {
		o.fail(imageID, err.Error())
		return fmt.Errorf("%s: %v", op, err)
	}
	normalized := o.acq.Normalize(decoded.Image)

	remover, method := o.selectMethod()
	if remover == nil {
		o.fail(imageID, ErrCapabilityUnsupported.Error())
		return fmt.Errorf("%s: %v", op, ErrCapabilityUnsupported)
	}

	// One deadline covers the whole attempt, fallback retry included.
	res := race(ctx, o.cfg.Timeout(), func(ctx context.Context) (*Output, error) {
		return o.attempt(ctx, method, remover, normalized)
	})

	switch res.kind {
	case outcomeTimedOut:
		o.fail(imageID, fmt.Sprintf("%v after %s", ErrTimeout, o.cfg.Timeout()))
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	case outcomeErr:
		if IsGraphicsUnsupported(res.err) {
			o.degrade(imageID, "background removal is not supported on this device; showing the original photo")
			return nil
		}
		o.fail(imageID, res.err.Error())
		return fmt.Errorf("%s: %w", op, res.err)
	}

	out := res.output
	cutoutPath := filepath.Join(o.storagePath, "cutouts", imageID.String()+".png")
	if err := os.MkdirAll(filepath.Dir(cutoutPath), 0755); err != nil {
		o.fail(imageID, err.Error())
		return fmt.Errorf("%s: %v", op, err)
	}
	if err := imaging.Save(out.Cutout, cutoutPath); err != nil {
		o.fail(imageID, err.Error())
		return fmt.Errorf("%s: %v", op, err)
	}

	result := models.BackgroundRemovalResult{
		Success:          out.Success,
		ImageURL:         cutoutPath,
		Error:            out.Warning,
		BodyMeasurements: out.BodyMeasurements,
	}
	b := out.Cutout.Bounds()
	o.fold(imageID, result, models.Dimensions{Width: b.Dx(), Height: b.Dy()})
	return nil
}

// attempt runs the chosen path, retrying once through the remote path when
// on-device fails and the automatic fallback is allowed. A graphics failure
// keeps its identity so classification can still degrade when the retry
// fails too.
func (o *Orchestrator) attempt(ctx context.Context, method models.RemovalMethod, remover Remover, img image.Image) (*Output, error) {
	out, err := remover.Remove(ctx, img)
	if err == nil {
		return out, nil
	}
	if method == models.MethodOnDevice && o.cfg.AllowRemoteFallback && o.remote != nil {
		log.Printf("on-device removal failed (%v), retrying via remote", err)
		out2, err2 := o.remote.Remove(ctx, img)
		if err2 == nil {
			return out2, nil
		}
		if !IsGraphicsUnsupported(err) {
			return nil, err2
		}
	}
	return nil, err
}

func (o *Orchestrator) selectMethod() (Remover, models.RemovalMethod) {
	method := o.cfg.PreferredMethod
	if method == models.MethodOnDevice && (!o.cap.OnDeviceSupported || o.onDevice == nil) {
		// silent downgrade, not a user-visible warning
		method = models.MethodRemoteAPI
	}
	if method == models.MethodOnDevice {
		return o.onDevice, method
	}
	return o.remote, models.MethodRemoteAPI
}

// fold commits a usable removal result onto the user image. A partial
// result (usable cutout, reported error) completes with a warning instead
// of blocking the user.
func (o *Orchestrator) fold(imageID uuid.UUID, res models.BackgroundRemovalResult, dims models.Dimensions) {
	committed := o.session.CommitProcessing(imageID, func(u *models.UserImageInfo) {
		u.URL = res.ImageURL
		u.Dimensions = dims
		u.ProcessingStatus = models.StatusCompleted
		u.BackgroundRemoved = true
		u.BodyMeasurements = res.BodyMeasurements
		if !res.Success {
			u.ProcessingWarning = res.Error
		}
	})
	if !committed {
		log.Printf("discarding stale removal result for superseded image %s", imageID)
	}
}

// degrade completes the attempt on the original, uncut image.
func (o *Orchestrator) degrade(imageID uuid.UUID, warning string) {
	o.session.CommitProcessing(imageID, func(u *models.UserImageInfo) {
		u.ProcessingStatus = models.StatusCompleted
		u.BackgroundRemoved = false
		u.ProcessingWarning = warning
	})
}

func (o *Orchestrator) fail(imageID uuid.UUID, msg string) {
	o.session.CommitProcessing(imageID, func(u *models.UserImageInfo) {
		u.ProcessingStatus = models.StatusFailed
		u.ProcessingError = msg
	})
}
