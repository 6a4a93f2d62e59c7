package removal

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/disintegration/imaging"

	"fitroom/internal/models"
)

// Output is what one removal attempt produced. Cutout may be present even
// when Success is false (usable-but-imperfect result).
type Output struct {
	Success          bool
	Cutout           image.Image
	Warning          string
	BodyMeasurements map[string]float64
}

// Remover is the opaque segmentation capability: given an image, return a
// person cutout or a typed failure.
type Remover interface {
	Remove(ctx context.Context, img image.Image) (*Output, error)
}

// Client talks to a matting endpoint over HTTP. The local inference server
// is the on-device path; the keyed cloud endpoint is the remote path. Calls
// are cold (no persistent connection) and safe to retry once.
type Client struct {
	endpoint string
	apiKey   string
	method   models.RemovalMethod
	httpc    *http.Client
}

func NewOnDeviceClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		method:   models.MethodOnDevice,
		httpc:    &http.Client{Transport: &http.Transport{DisableKeepAlives: true}},
	}
}

func NewRemoteClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		method:   models.MethodRemoteAPI,
		httpc:    &http.Client{Transport: &http.Transport{DisableKeepAlives: true}},
	}
}

type removeResponse struct {
	Success          bool               `json:"success"`
	Image            string             `json:"image,omitempty"` // base64 cutout
	Message          string             `json:"message,omitempty"`
	Error            string             `json:"error,omitempty"`
	Code             string             `json:"code,omitempty"`
	BodyMeasurements map[string]float64 `json:"body_measurements,omitempty"`
}

func (c *Client) Remove(ctx context.Context, img image.Image) (*Output, error) {
	const op = "removal.Client.Remove"

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "input.png")
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}
	if err := imaging.Encode(part, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}
	_ = writer.WriteField("type", "person")
	_ = writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &RemovalError{Method: c.method, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemovalError{Method: c.method, Err: err}
	}

	var rr removeResponse
	if err := json.Unmarshal(data, &rr); err != nil {
		return nil, &RemovalError{Method: c.method, Err: fmt.Errorf("bad response: %v", err)}
	}
	return c.classify(&rr)
}

func (c *Client) classify(rr *removeResponse) (*Output, error) {
	failure := rr.Error
	if failure == "" {
		failure = rr.Message
	}

	var cutout image.Image
	if rr.Image != "" {
		raw, err := base64.StdEncoding.DecodeString(rr.Image)
		if err != nil {
			return nil, &RemovalError{Method: c.method, Err: fmt.Errorf("bad cutout payload: %v", err)}
		}
		cutout, err = imaging.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, &RemovalError{Method: c.method, Err: fmt.Errorf("bad cutout image: %v", err)}
		}
	}

	if cutout == nil {
		err := fmt.Errorf("no usable image: %s", failure)
		if rr.Code == "graphics_unsupported" {
			return nil, &GraphicsError{Err: err}
		}
		return nil, &RemovalError{Method: c.method, Err: err}
	}

	out := &Output{
		Success:          rr.Success,
		Cutout:           cutout,
		BodyMeasurements: rr.BodyMeasurements,
	}
	if !rr.Success {
		out.Warning = failure
	}
	return out, nil
}
