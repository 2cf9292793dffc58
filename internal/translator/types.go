package translator

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"
)

type ServiceConfig struct {
	Credentials string        `mapstructure:"credentials" json:"credentials"`
	APIKey      string        `mapstructure:"api_key" json:"api_key"`
	Model       string        `mapstructure:"model" json:"model"`
	BaseURL     string        `mapstructure:"base_url" json:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	ProjectID   string        `mapstructure:"project_id" json:"project_id"`
}

// Payload is the content submitted for translation: either plain text or
// the path of a document file the service has to ingest itself.
type Payload struct {
	Text     string `json:"text,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
}

// TextPayload wraps plain text.
func TextPayload(text string) Payload {
	return Payload{Text: text}
}

// FilePayload references a document on disk. The MIME type is guessed from
// the extension.
func FilePayload(path string) Payload {
	mime := "application/octet-stream"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		mime = "application/pdf"
	case ".txt":
		mime = "text/plain"
	}
	return Payload{FilePath: path, MIMEType: mime}
}

func (p Payload) IsFile() bool {
	return p.FilePath != ""
}

// Kind names the payload type for logs and the journal.
func (p Payload) Kind() string {
	if p.IsFile() {
		return "file"
	}
	return "text"
}

type TranslateRequest struct {
	Payload    Payload `json:"payload"`
	Prompt     string  `json:"prompt"`
	TargetLang string  `json:"target_lang"`
}

type ServiceResult struct {
	ServiceName    string            `json:"service_name"`
	TranslatedText string            `json:"translated_text"`
	Metadata       map[string]string `json:"metadata"`
	Latency        time.Duration     `json:"latency"`
	Error          string            `json:"error,omitempty"`
}

type TranslationService interface {
	Name() string
	Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error)
	IsAvailable(ctx context.Context) error
}

var (
	// ErrBinaryUnsupported is returned by text-only services given a file payload.
	ErrBinaryUnsupported = errors.New("service accepts text payloads only")

	// ErrFileProcessing is returned when an uploaded file never becomes usable.
	ErrFileProcessing = errors.New("uploaded file is not ready")

	// ErrEmptyResponse is returned when the service answers without text.
	ErrEmptyResponse = errors.New("empty response from API")
)
