package translator

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

const (
	DefaultGeminiModel = "gemini-flash-latest"

	defaultPollInterval = 2 * time.Second
	defaultPollTimeout  = 10 * time.Minute
)

// fileAPI is the part of the Gemini Files API the service uses.
type fileAPI interface {
	Upload(ctx context.Context, path, mimeType string) (*genai.File, error)
	Get(ctx context.Context, name string) (*genai.File, error)
}

// modelAPI generates a response for the given contents.
type modelAPI interface {
	Generate(ctx context.Context, model string, contents []*genai.Content) (string, error)
}

// GeminiService translates through Google's Gemini models. It is the only
// service that accepts document payloads: files are uploaded and polled
// until Gemini has finished processing them.
type GeminiService struct {
	model        string
	pollInterval time.Duration
	pollTimeout  time.Duration
	files        fileAPI
	models       modelAPI
}

// GeminiOptions tunes NewGeminiService. Zero values select the defaults.
type GeminiOptions struct {
	Model        string
	PollInterval time.Duration
	PollTimeout  time.Duration
}

func NewGeminiService(ctx context.Context, apiKey string, opts GeminiOptions) (*GeminiService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	adapter := &genaiAdapter{client: client}
	return newGeminiService(adapter, adapter, opts), nil
}

func newGeminiService(files fileAPI, models modelAPI, opts GeminiOptions) *GeminiService {
	s := &GeminiService{
		model:        opts.Model,
		pollInterval: opts.PollInterval,
		pollTimeout:  opts.PollTimeout,
		files:        files,
		models:       models,
	}
	if s.model == "" {
		s.model = DefaultGeminiModel
	}
	if s.pollInterval <= 0 {
		s.pollInterval = defaultPollInterval
	}
	if s.pollTimeout <= 0 {
		s.pollTimeout = defaultPollTimeout
	}
	return s
}

func (s *GeminiService) Name() string {
	return "gemini"
}

func (s *GeminiService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	model := cfg.Model
	if model == "" {
		model = s.model
	}
	result.Metadata = map[string]string{"model": model, "payload": req.Payload.Kind()}

	var parts []*genai.Part
	if req.Payload.IsFile() {
		file, err := s.upload(ctx, req.Payload)
		if err != nil {
			result.Error = err.Error()
			return result, err
		}
		result.Metadata["file"] = file.Name
		parts = append(parts, genai.NewPartFromURI(file.URI, file.MIMEType))
	} else {
		parts = append(parts, genai.NewPartFromText(req.Payload.Text))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	text, err := s.models.Generate(ctx, model, contents)
	if err != nil {
		result.Error = fmt.Sprintf("generation failed: %v", err)
		return result, fmt.Errorf("generation failed: %w", err)
	}
	if text == "" {
		result.Error = ErrEmptyResponse.Error()
		return result, ErrEmptyResponse
	}

	result.TranslatedText = text
	return result, nil
}

// upload sends the payload file and waits until Gemini reports it is no
// longer processing.
func (s *GeminiService) upload(ctx context.Context, p Payload) (*genai.File, error) {
	file, err := s.files.Upload(ctx, p.FilePath, p.MIMEType)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	deadline := time.Now().Add(s.pollTimeout)
	for file.State == genai.FileStateProcessing {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s still processing after %s", ErrFileProcessing, file.Name, s.pollTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.pollInterval):
		}
		file, err = s.files.Get(ctx, file.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh upload state: %w", err)
		}
	}

	if file.State == genai.FileStateFailed {
		return nil, fmt.Errorf("%w: %s failed processing", ErrFileProcessing, file.Name)
	}
	return file, nil
}

func (s *GeminiService) IsAvailable(ctx context.Context) error {
	if s.files == nil || s.models == nil {
		return fmt.Errorf("Gemini client not configured")
	}
	return nil
}

// genaiAdapter binds fileAPI and modelAPI to the genai SDK client.
type genaiAdapter struct {
	client *genai.Client
}

func (a *genaiAdapter) Upload(ctx context.Context, path, mimeType string) (*genai.File, error) {
	return a.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{MIMEType: mimeType})
}

func (a *genaiAdapter) Get(ctx context.Context, name string) (*genai.File, error) {
	return a.client.Files.Get(ctx, name, nil)
}

func (a *genaiAdapter) Generate(ctx context.Context, model string, contents []*genai.Content) (string, error) {
	resp, err := a.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
