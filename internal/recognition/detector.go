package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const defaultDetectorURL = "http://localhost:8000"

// DetectorClient talks to the local face-detector model service. The
// service accepts a multipart image upload and returns one descriptor
// per detected face along with its detection score.
type DetectorClient struct {
	baseURL string
	client  *http.Client
}

func NewDetectorClient(baseURL string) *DetectorClient {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	return &DetectorClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

// DetectedFace is one face found by the detector service.
type DetectedFace struct {
	Descriptor []float32 `json:"descriptor"`
	Score      float64   `json:"score"`
}

type detectResponse struct {
	Faces []DetectedFace `json:"faces"`
}

// DetectFaces uploads the image and returns descriptors for every face
// found in it. Oversized images are downscaled first to keep the
// detector's input bounded.
func (c *DetectorClient) DetectFaces(ctx context.Context, imageData []byte) ([]DetectedFace, error) {
	prepared, err := ResizeImage(imageData, maxDetectorImageSize)
	if err != nil {
		return nil, fmt.Errorf("prepare image: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(prepared); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result detectResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("could not unmarshal response: %w", err)
	}
	return result.Faces, nil
}
