package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bryanwahyu/cyberveli/internal/domain/classify"
	"github.com/bryanwahyu/cyberveli/internal/domain/history"
)

// Client is a client for the image classification backend.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// response represents the classification result on the wire.
type response struct {
	PayloadClassification string             `json:"payload_classification"`
	IQAScore              float64            `json:"iqa_score"`
	ClassProbabilities    map[string]float64 `json:"class_probabilities"`
	FilteredImages        map[string]string  `json:"filtered_images,omitempty"`
}

// NewClient creates a new classifier client posting to endpoint.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Classify uploads the image as multipart field "file".
func (c *Client) Classify(ctx context.Context, fileName string, image []byte) (*classify.Result, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to send request: %v", classify.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: classifier returned status %d: %s", classify.ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", classify.ErrUnavailable, err)
	}
	if strings.TrimSpace(out.PayloadClassification) == "" {
		return nil, fmt.Errorf("%w: response has no payload_classification", classify.ErrUnavailable)
	}

	res := &classify.Result{
		Label:         out.PayloadClassification,
		Probabilities: out.ClassProbabilities,
		IQAScore:      out.IQAScore,
	}
	if res.Probabilities == nil {
		res.Probabilities = map[string]float64{}
	}
	for name, data := range out.FilteredImages {
		if strings.TrimSpace(data) == "" {
			continue
		}
		res.FilteredImages = append(res.FilteredImages, history.FilteredImage{Name: name, DataURI: asDataURI(data)})
	}
	history.SortFilteredImages(res.FilteredImages)
	return res, nil
}

// Check pings {scheme}://{host}/health.
func (c *Client) Check(ctx context.Context) error {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return err
	}
	u.Path = "/health"
	u.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("classifier health returned status %d", resp.StatusCode)
	}
	return nil
}

// bare base64 is assumed to be JPEG
func asDataURI(s string) string {
	if strings.HasPrefix(s, "data:") {
		return s
	}
	return "data:image/jpeg;base64," + s
}
