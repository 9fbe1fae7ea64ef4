package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"germantopic/internal/capture"
)

// AssemblyAIConfig configures the asynchronous upload/poll STT backend.
type AssemblyAIConfig struct {
	APIKey       string
	BaseURL      string
	LanguageCode string
	PollInterval time.Duration
	MaxAttempts  int
}

// AssemblyAIProvider implements the asynchronous STT backend: upload raw
// bytes, submit a transcription job, poll until a terminal status.
type AssemblyAIProvider struct {
	cfg        AssemblyAIConfig
	httpClient *http.Client
}

// NewAssemblyAIProvider creates a new AssemblyAI STT provider
func NewAssemblyAIProvider(cfg AssemblyAIConfig) *AssemblyAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.assemblyai.com/v2"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 40
	}
	return &AssemblyAIProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

// Name returns the provider name
func (p *AssemblyAIProvider) Name() string {
	return "assemblyai"
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptJob struct {
	ID     string `json:"id"`
	Status string `json:"status"` // queued | processing | completed | error
	Text   string `json:"text"`
	Error  string `json:"error,omitempty"`
}

type submitRequest struct {
	AudioURL     string `json:"audio_url"`
	LanguageCode string `json:"language_code"`
	FormatText   bool   `json:"format_text"`
}

// Transcribe uploads the clip, submits a job and polls until the job is
// terminal, the attempt bound is exhausted, or ctx is cancelled.
func (p *AssemblyAIProvider) Transcribe(ctx context.Context, clip capture.Clip) (*Result, error) {
	startTime := time.Now()

	log.Printf("[AssemblyAI STT] Processing clip: size=%d bytes, mime=%s", len(clip.Data), clip.MimeType)

	if len(clip.Data) == 0 {
		return nil, fmt.Errorf("clip is empty")
	}

	uploadURL, err := p.upload(ctx, clip.Data)
	if err != nil {
		return nil, err
	}

	job, err := p.submit(ctx, uploadURL)
	if err != nil {
		return nil, err
	}
	log.Printf("[AssemblyAI STT] Job submitted: id=%s, status=%s", job.ID, job.Status)

	final, err := p.poll(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	transcript := strings.TrimSpace(final.Text)

	duration := time.Since(startTime)
	log.Printf("[AssemblyAI STT] Transcription successful: length=%d, duration=%v", len(transcript), duration)

	raw, _ := json.Marshal(final)
	return &Result{
		Transcript:  transcript,
		Provider:    p.Name(),
		RawResponse: string(raw),
	}, nil
}

// upload sends the raw audio bytes and returns the upload handle.
func (p *AssemblyAIProvider) upload(ctx context.Context, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/upload", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	body, err := p.do(req, "upload")
	if err != nil {
		return "", err
	}

	var resp uploadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse upload response: %w", err)
	}
	if resp.UploadURL == "" {
		return "", fmt.Errorf("upload response missing upload_url")
	}
	return resp.UploadURL, nil
}

// submit creates the transcription job referencing the upload handle.
func (p *AssemblyAIProvider) submit(ctx context.Context, audioURL string) (*transcriptJob, error) {
	payload, err := json.Marshal(submitRequest{
		AudioURL:     audioURL,
		LanguageCode: p.cfg.LanguageCode,
		FormatText:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal submit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/transcript", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create submit request: %w", err)
	}
	req.Header.Set("Authorization", p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	body, err := p.do(req, "submit")
	if err != nil {
		return nil, err
	}

	var job transcriptJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("failed to parse submit response: %w", err)
	}
	if job.ID == "" {
		return nil, fmt.Errorf("submit response missing job id")
	}
	return &job, nil
}

// poll checks job status on a fixed interval until terminal. Bounded by
// MaxAttempts and cancellable via ctx so a gone consumer does not leak an
// indefinite timer.
func (p *AssemblyAIProvider) poll(ctx context.Context, jobID string) (*transcriptJob, error) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transcription polling cancelled: %w", ctx.Err())
		case <-ticker.C:
		}

		job, err := p.status(ctx, jobID)
		if err != nil {
			return nil, err
		}

		switch job.Status {
		case "completed":
			return job, nil
		case "error":
			log.Printf("[AssemblyAI STT] Job %s failed: %s", jobID, job.Error)
			return nil, fmt.Errorf("transcription job failed: %s", job.Error)
		default:
			// queued / processing
			log.Printf("[AssemblyAI STT] Job %s status=%s (attempt %d/%d)",
				jobID, job.Status, attempt, p.cfg.MaxAttempts)
		}
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrPollTimeout, p.cfg.MaxAttempts)
}

func (p *AssemblyAIProvider) status(ctx context.Context, jobID string) (*transcriptJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/transcript/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	req.Header.Set("Authorization", p.cfg.APIKey)

	body, err := p.do(req, "status")
	if err != nil {
		return nil, err
	}

	var job transcriptJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w", err)
	}
	return &job, nil
}

// do executes the request and returns the body, treating non-2xx as failure.
func (p *AssemblyAIProvider) do(req *http.Request, op string) ([]byte, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("assemblyai %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		preview := string(body)
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		log.Printf("[AssemblyAI STT] %s error: status %d, body: %s", op, resp.StatusCode, preview)
		return nil, fmt.Errorf("assemblyai %s returned status %d", op, resp.StatusCode)
	}
	return body, nil
}
