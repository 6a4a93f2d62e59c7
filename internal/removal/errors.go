package removal

import (
	"errors"
	"fmt"
	"strings"

	"fitroom/internal/models"
)

var (
	// ErrCapabilityUnsupported means the device cannot run on-device
	// inference; recoverable by falling back to the remote path.
	ErrCapabilityUnsupported = errors.New("on-device inference unsupported")

	// ErrTimeout is the typed failure produced when the removal race hits
	// its deadline. Classified exactly like any other removal failure.
	ErrTimeout = errors.New("background removal timed out")
)

// RemovalError is a terminal failure: the inference path returned no usable
// image. The attempt ends in status failed.
type RemovalError struct {
	Method models.RemovalMethod
	Err    error
}

func (e *RemovalError) Error() string {
	return fmt.Sprintf("%s removal failed: %v", e.Method, e.Err)
}

func (e *RemovalError) Unwrap() error { return e.Err }

// GraphicsError is the recoverable subtype of a removal failure: the device
// cannot run the graphics stack the model needs. The orchestrator degrades
// to the uncut original instead of failing.
type GraphicsError struct {
	Err error
}

func (e *GraphicsError) Error() string {
	return fmt.Sprintf("graphics unsupported: %v", e.Err)
}

func (e *GraphicsError) Unwrap() error { return e.Err }

// graphicsSignatures is the last-resort adapter for black-box dependencies
// that only report opaque error text.
var graphicsSignatures = []string{
	"shader",
	"webgl",
	"gpu",
	"3d acceleration",
	"hardware acceleration",
	"graphics device",
}

// IsGraphicsUnsupported prefers the typed error and falls back to matching
// known shader / 3D-acceleration signatures in the message.
func IsGraphicsUnsupported(err error) bool {
	if err == nil {
		return false
	}
	var ge *GraphicsError
	if errors.As(err, &ge) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range graphicsSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
