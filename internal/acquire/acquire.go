// internal/acquire/acquire.go
package acquire

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"fitroom/internal/capability"
	"fitroom/internal/models"
)

// DecodeError marks malformed or unreadable image input. It aborts the
// operation that triggered the decode and leaves all session state unchanged.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decoded is an acquired image with its natural pixel dimensions, reported
// before any downscaling.
type Decoded struct {
	Image      image.Image
	Dimensions models.Dimensions
}

// Acquirer decodes files, URLs and data-URLs, keeping a process-lifetime
// decode cache. The cache has no automatic eviction; ClearCache is the only
// way entries leave it.
type Acquirer struct {
	cap    *capability.Capability
	client *http.Client

	mu    sync.Mutex
	cache map[string]*Decoded
}

func New(cap *capability.Capability) *Acquirer {
	return &Acquirer{
		cap:    cap,
		client: &http.Client{Timeout: 30 * time.Second},
		cache:  make(map[string]*Decoded),
	}
}

// Decode resolves a source (local path, http(s) URL, or data URL) into a
// decoded image. Results are cached by source.
func (a *Acquirer) Decode(source string) (*Decoded, error) {
	a.mu.Lock()
	if d, ok := a.cache[source]; ok {
		a.mu.Unlock()
		return d, nil
	}
	a.mu.Unlock()

	var img image.Image
	var err error
	switch {
	case strings.HasPrefix(source, "data:"):
		img, err = a.decodeDataURL(source)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		img, err = a.downloadImage(source)
	default:
		img, err = imaging.Open(source)
	}
	if err != nil {
		return nil, &DecodeError{Source: truncateSource(source), Err: err}
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, &DecodeError{Source: truncateSource(source), Err: fmt.Errorf("zero-dimension image")}
	}

	d := &Decoded{
		Image:      img,
		Dimensions: models.Dimensions{Width: b.Dx(), Height: b.Dy()},
	}
	a.mu.Lock()
	a.cache[source] = d
	a.mu.Unlock()
	return d, nil
}

// DecodeUpload feeds raw upload bytes through the data-URL path.
func (a *Acquirer) DecodeUpload(data []byte) (*Decoded, error) {
	return a.Decode("data:image/png;base64," + base64.StdEncoding.EncodeToString(data))
}

// Normalize downscales to the capability preset's max edge. It is applied
// before submission to any removal path, never after.
func (a *Acquirer) Normalize(img image.Image) image.Image {
	maxEdge := a.cap.Preset.MaxEdge
	b := img.Bounds()
	if b.Dx() <= maxEdge && b.Dy() <= maxEdge {
		return img
	}
	if b.Dx() >= b.Dy() {
		return imaging.Resize(img, maxEdge, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxEdge, imaging.Lanczos)
}

func (a *Acquirer) ClearCache() {
	a.mu.Lock()
	a.cache = make(map[string]*Decoded)
	a.mu.Unlock()
}

func (a *Acquirer) decodeDataURL(source string) (image.Image, error) {
	idx := strings.Index(source, ";base64,")
	if idx < 0 {
		return nil, fmt.Errorf("missing base64 payload")
	}
	raw, err := base64.StdEncoding.DecodeString(source[idx+len(";base64,"):])
	if err != nil {
		return nil, err
	}
	return imaging.Decode(bytes.NewReader(raw))
}

func (a *Acquirer) downloadImage(url string) (image.Image, error) {
	resp, err := a.client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return imaging.Decode(bytes.NewReader(data))
}

// truncateSource keeps data-URL payloads out of error messages.
func truncateSource(source string) string {
	if len(source) > 64 {
		return source[:64] + "..."
	}
	return source
}
