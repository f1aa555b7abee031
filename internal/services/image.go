package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ImageService generates an illustration for a narrative beat. It is
// purely advisory: on any failure the caller keeps the previous image.
type ImageService interface {
	// GenerateIllustration returns the path of a new image for the
	// narrative, styled after the previous one. Returns "" on failure.
	GenerateIllustration(ctx context.Context, narrative, priorImagePath string) string
}

// SiliconFlowImageService calls an OpenAI-compatible image generation
// endpoint and writes the result to the image directory.
type SiliconFlowImageService struct {
	baseURL    string
	apiKey     string
	modelName  string
	imageDir   string
	httpClient *http.Client
	logger     *slog.Logger
}

type sfImageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"image_size,omitempty"`
}

type sfImageResponse struct {
	Data []struct {
		URL     string `json:"url,omitempty"`
		B64JSON string `json:"b64_json,omitempty"`
	} `json:"data"`
}

// NewSiliconFlowImageService creates a new illustration client.
func NewSiliconFlowImageService(baseURL, apiKey, modelName, imageDir string, logger *slog.Logger) *SiliconFlowImageService {
	return &SiliconFlowImageService{
		baseURL:   baseURL,
		apiKey:    apiKey,
		modelName: modelName,
		imageDir:  imageDir,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

var _ ImageService = (*SiliconFlowImageService)(nil)

// GenerateIllustration requests an image for the narrative. Failures
// are logged and reported as "" so the game never blocks on art.
func (s *SiliconFlowImageService) GenerateIllustration(ctx context.Context, narrative, priorImagePath string) string {
	prompt := "游戏场景插画，延续之前的画风：" + narrative
	jsonBody, err := json.Marshal(sfImageRequest{
		Model:  s.modelName,
		Prompt: prompt,
	})
	if err != nil {
		s.logger.Warn("Failed to marshal image request", "error", err)
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/images/generations", bytes.NewBuffer(jsonBody))
	if err != nil {
		s.logger.Warn("Failed to create image request", "error", err)
		return ""
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("Image generation request failed", "error", err)
		return ""
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("Image generation API returned error", "status_code", resp.StatusCode)
		return ""
	}

	var body sfImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || len(body.Data) == 0 {
		s.logger.Warn("Failed to decode image response", "error", err)
		return ""
	}

	switch {
	case body.Data[0].B64JSON != "":
		return s.saveB64(body.Data[0].B64JSON)
	case body.Data[0].URL != "":
		return s.download(ctx, body.Data[0].URL)
	default:
		return ""
	}
}

func (s *SiliconFlowImageService) saveB64(b64 string) string {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		s.logger.Warn("Failed to decode image payload", "error", err)
		return ""
	}
	return s.write(data)
}

func (s *SiliconFlowImageService) download(ctx context.Context, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("Image download failed", "error", err)
		return ""
	}
	defer func() { _ = resp.Body.Close() }()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return ""
	}
	return s.write(buf.Bytes())
}

func (s *SiliconFlowImageService) write(data []byte) string {
	if err := os.MkdirAll(s.imageDir, 0o755); err != nil {
		s.logger.Warn("Failed to create image directory", "error", err)
		return ""
	}
	path := filepath.Join(s.imageDir, fmt.Sprintf("scene-%s.png", uuid.New().String()[:8]))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Warn("Failed to write image file", "error", err)
		return ""
	}
	return path
}
