package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"time"

	"github.com/petems/siren-tray/internal/recorder"
	"golang.org/x/net/http2"
)

var (
	// ErrNetwork means the request never produced an HTTP response
	ErrNetwork = errors.New("network error")
	// ErrMalformedResponse means the server answered with something other
	// than a JSON object carrying a string prediction
	ErrMalformedResponse = errors.New("malformed response")
)

// Prediction is the server's verdict for one clip
type Prediction struct {
	Label string
	RTT   time.Duration
}

// Config configures a Client
type Config struct {
	Endpoint    string
	FieldName   string
	FileName    string
	ContentType string
	Timeout     time.Duration
	EnableHTTP2 bool
}

// Client posts clips to the classification endpoint
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a Client; it never retries
func New(cfg Config) (*Client, error) {
	if cfg.FieldName == "" {
		cfg.FieldName = "file"
	}
	if cfg.FileName == "" {
		cfg.FileName = "recording.wav"
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "audio/x-wav"
	}

	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if cfg.EnableHTTP2 {
		if err := http2.ConfigureTransport(tr); err != nil {
			return nil, fmt.Errorf("configure http2: %w", err)
		}
	}

	return &Client{
		cfg:  cfg,
		http: &http.Client{Transport: tr, Timeout: cfg.Timeout},
	}, nil
}

// Upload sends the clip as a single multipart POST and parses the prediction
func (c *Client) Upload(ctx context.Context, clip *recorder.Clip) (*Prediction, error) {
	body, contentType, err := c.buildBody(clip)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}
	rtt := time.Since(start)

	var parsed struct {
		Prediction *string `json:"prediction"`
		Error      string  `json:"error"`
	}
	decodeErr := json.Unmarshal(data, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && parsed.Error != "" {
			return nil, fmt.Errorf("%w: HTTP %d: %s", ErrMalformedResponse, resp.StatusCode, parsed.Error)
		}
		return nil, fmt.Errorf("%w: HTTP %d", ErrMalformedResponse, resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)
	}
	if parsed.Prediction == nil {
		return nil, fmt.Errorf("%w: missing prediction field", ErrMalformedResponse)
	}

	return &Prediction{Label: *parsed.Prediction, RTT: rtt}, nil
}

func (c *Client) buildBody(clip *recorder.Clip) (io.Reader, string, error) {
	f, err := os.Open(clip.Path)
	if err != nil {
		return nil, "", fmt.Errorf("open clip: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, c.cfg.FieldName, c.cfg.FileName))
	h.Set("Content-Type", c.cfg.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("write clip: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}
