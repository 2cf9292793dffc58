package translator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"
)

type fakeFiles struct {
	states    []genai.FileState
	uploads   int
	gets      int
	uploadErr error
}

func (f *fakeFiles) file() *genai.File {
	i := f.gets
	if i >= len(f.states) {
		i = len(f.states) - 1
	}
	return &genai.File{
		Name:     "files/abc",
		URI:      "https://example.test/files/abc",
		MIMEType: "application/pdf",
		State:    f.states[i],
	}
}

func (f *fakeFiles) Upload(ctx context.Context, path, mimeType string) (*genai.File, error) {
	f.uploads++
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return f.file(), nil
}

func (f *fakeFiles) Get(ctx context.Context, name string) (*genai.File, error) {
	f.gets++
	return f.file(), nil
}

type fakeModels struct {
	text     string
	err      error
	model    string
	contents []*genai.Content
}

func (m *fakeModels) Generate(ctx context.Context, model string, contents []*genai.Content) (string, error) {
	m.model = model
	m.contents = contents
	return m.text, m.err
}

func fastOptions() GeminiOptions {
	return GeminiOptions{PollInterval: time.Millisecond, PollTimeout: time.Second}
}

func TestGeminiService_TextPayload(t *testing.T) {
	files := &fakeFiles{states: []genai.FileState{genai.FileStateActive}}
	models := &fakeModels{text: "ترجمه"}
	svc := newGeminiService(files, models, fastOptions())

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{
		Payload: TextPayload("Hello"),
		Prompt:  "Translate the following to Persian.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "ترجمه" {
		t.Errorf("expected response verbatim, got %q", result.TranslatedText)
	}
	if files.uploads != 0 {
		t.Error("text payload must not be uploaded")
	}
	if models.model != DefaultGeminiModel {
		t.Errorf("expected default model, got %q", models.model)
	}
	if len(models.contents) != 1 || len(models.contents[0].Parts) != 2 {
		t.Fatalf("expected one content with payload and prompt parts, got %+v", models.contents)
	}
	if models.contents[0].Parts[0].Text != "Hello" {
		t.Errorf("payload should come first, got %q", models.contents[0].Parts[0].Text)
	}
	if !strings.Contains(models.contents[0].Parts[1].Text, "Persian") {
		t.Errorf("prompt should come second, got %q", models.contents[0].Parts[1].Text)
	}
}

func TestGeminiService_FilePayloadPollsUntilActive(t *testing.T) {
	files := &fakeFiles{states: []genai.FileState{
		genai.FileStateProcessing, genai.FileStateProcessing, genai.FileStateActive,
	}}
	models := &fakeModels{text: "done"}
	svc := newGeminiService(files, models, fastOptions())

	result, err := svc.Translate(context.Background(), ServiceConfig{Model: "gemini-custom"}, TranslateRequest{
		Payload: FilePayload("/tmp/01_A.pdf"),
		Prompt:  "p",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if files.uploads != 1 {
		t.Errorf("expected a single upload, got %d", files.uploads)
	}
	if files.gets != 2 {
		t.Errorf("expected 2 state refreshes, got %d", files.gets)
	}
	if models.model != "gemini-custom" {
		t.Errorf("expected model override, got %q", models.model)
	}
	part := models.contents[0].Parts[0]
	if part.FileData == nil || part.FileData.FileURI != "https://example.test/files/abc" {
		t.Errorf("expected file part, got %+v", part)
	}
	if result.Metadata["payload"] != "file" {
		t.Errorf("expected file payload kind, got %v", result.Metadata)
	}
}

func TestGeminiService_FileProcessingFailed(t *testing.T) {
	files := &fakeFiles{states: []genai.FileState{genai.FileStateProcessing, genai.FileStateFailed}}
	models := &fakeModels{text: "never"}
	svc := newGeminiService(files, models, fastOptions())

	_, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Payload: FilePayload("a.pdf")})
	if !errors.Is(err, ErrFileProcessing) {
		t.Errorf("expected ErrFileProcessing, got %v", err)
	}
	if models.contents != nil {
		t.Error("generation must not run for a failed upload")
	}
}

func TestGeminiService_PollTimeout(t *testing.T) {
	files := &fakeFiles{states: []genai.FileState{genai.FileStateProcessing}}
	svc := newGeminiService(files, &fakeModels{}, GeminiOptions{
		PollInterval: time.Millisecond,
		PollTimeout:  5 * time.Millisecond,
	})

	_, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Payload: FilePayload("a.pdf")})
	if !errors.Is(err, ErrFileProcessing) {
		t.Errorf("expected ErrFileProcessing on timeout, got %v", err)
	}
}

func TestGeminiService_PollHonoursContext(t *testing.T) {
	files := &fakeFiles{states: []genai.FileState{genai.FileStateProcessing}}
	svc := newGeminiService(files, &fakeModels{}, GeminiOptions{PollInterval: time.Hour, PollTimeout: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Translate(ctx, ServiceConfig{}, TranslateRequest{Payload: FilePayload("a.pdf")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGeminiService_UploadError(t *testing.T) {
	files := &fakeFiles{uploadErr: errors.New("quota exceeded")}
	svc := newGeminiService(files, &fakeModels{}, fastOptions())

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Payload: FilePayload("a.pdf")})
	if err == nil {
		t.Fatal("expected error")
	}
	if result == nil || result.Error == "" {
		t.Error("expected error message in result")
	}
}

func TestGeminiService_GenerateErrorAndEmpty(t *testing.T) {
	files := &fakeFiles{states: []genai.FileState{genai.FileStateActive}}

	svc := newGeminiService(files, &fakeModels{err: errors.New("503")}, fastOptions())
	if _, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Payload: TextPayload("x")}); err == nil {
		t.Error("expected generation error")
	}

	svc = newGeminiService(files, &fakeModels{text: ""}, fastOptions())
	if _, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Payload: TextPayload("x")}); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestNewGeminiService_RequiresKey(t *testing.T) {
	if _, err := NewGeminiService(context.Background(), "", GeminiOptions{}); err == nil {
		t.Error("expected error without API key")
	}
}

func TestGeminiService_Name(t *testing.T) {
	svc := newGeminiService(&fakeFiles{}, &fakeModels{}, GeminiOptions{})
	if svc.Name() != "gemini" {
		t.Errorf("expected 'gemini', got %q", svc.Name())
	}
	if err := svc.IsAvailable(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
