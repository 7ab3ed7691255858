package gallery

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

const defaultEmbedderURL = "http://localhost:8000"

// Detection is one detected face region from the embedding service:
// bounding box, detector confidence, and the face embedding.
type Detection struct {
	FaceIndex int       `json:"face_index"`
	Box       []float64 `json:"bbox"` // [x1, y1, x2, y2]
	Score     float64   `json:"det_score"`
	Embedding []float32 `json:"embedding"`
}

// faceResponse is the wire shape of the /embed/face endpoint.
type faceResponse struct {
	FacesCount int         `json:"faces_count"`
	Faces      []Detection `json:"faces"`
	Model      string      `json:"model"`
}

// FaceClient talks to the external face detection/embedding service.
// Detection and embedding happen there; this client only moves bytes.
type FaceClient struct {
	baseURL string
	client  *http.Client
}

// NewFaceClient creates a client for the embedding service at baseURL.
func NewFaceClient(baseURL string) *FaceClient {
	if baseURL == "" {
		baseURL = defaultEmbedderURL
	}
	return &FaceClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

// Detect posts one image frame and returns the detected faces with
// their embeddings. Zero detections is a valid, empty result.
func (c *FaceClient) Detect(ctx context.Context, imageData []byte) ([]Detection, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed/face", &buf)
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
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedder error (status %d): %s", resp.StatusCode, string(body))
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return faceResp.Faces, nil
}
