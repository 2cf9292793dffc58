// Package orchestrator drives the slice → extract → translate pipeline over
// the artifact store. Each stage rediscovers its work from the artifacts on
// disk, so stages can run together or in separate invocations and a rerun
// only produces what is still missing.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/valpere/pdftran/internal"
	"github.com/valpere/pdftran/internal/artifact"
	"github.com/valpere/pdftran/internal/chunker"
	"github.com/valpere/pdftran/internal/document"
	"github.com/valpere/pdftran/internal/translator"
)

// Action selects which stages a run executes.
type Action string

const (
	ActionSlice     Action = "slice"
	ActionExtract   Action = "extract"
	ActionTranslate Action = "translate"
	ActionPrepare   Action = "prepare"
	ActionAll       Action = "all"
)

func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionSlice, ActionExtract, ActionTranslate, ActionPrepare, ActionAll:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q (want slice, extract, translate, prepare or all)", s)
}

// Includes reports whether running a covers the single stage.
func (a Action) Includes(stage Action) bool {
	switch a {
	case ActionAll:
		return stage == ActionSlice || stage == ActionExtract || stage == ActionTranslate
	case ActionPrepare:
		return stage == ActionSlice || stage == ActionExtract
	}
	return a == stage
}

// Filter restricts a run to a subset of segment indices. An exact Index
// takes precedence over the Start/End bounds, which are inclusive.
type Filter struct {
	Index *int
	Start *int
	End   *int
}

func (f Filter) Match(idx int) bool {
	if f.Index != nil {
		return idx == *f.Index
	}
	if f.Start != nil && idx < *f.Start {
		return false
	}
	if f.End != nil && idx > *f.End {
		return false
	}
	return true
}

type Config struct {
	Input      string
	Mode       chunker.Mode
	Action     Action
	TargetLang string
	Filter     Filter
	WorkDir    string
	Marker     string
	StyleGuide string
	Glossary   map[string]string
	Service    translator.ServiceConfig
	// Timeout bounds one translate call, polling included. Zero means no bound.
	Timeout time.Duration
}

// Journal receives one entry per translate attempt.
type Journal interface {
	RecordAttempt(ctx context.Context, a internal.Attempt) error
}

type Deps struct {
	Docs    document.Opener
	Writer  document.Writer
	Service translator.TranslationService
	Journal Journal
	Logger  *slog.Logger
	// Out receives operator progress messages.
	Out io.Writer
}

// Report tallies one run.
type Report struct {
	Sliced     int
	Extracted  int
	Translated int
	Skipped    int
	Failed     int
	Errors     []error
}

type Orchestrator struct {
	cfg     Config
	layout  artifact.Layout
	docs    document.Opener
	writer  document.Writer
	svc     translator.TranslationService
	journal Journal
	logger  *slog.Logger
	out     io.Writer
}

func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	out := deps.Out
	if out == nil {
		out = io.Discard
	}
	return &Orchestrator{
		cfg:     cfg,
		layout:  artifact.NewLayout(cfg.WorkDir, cfg.Input),
		docs:    deps.Docs,
		writer:  deps.Writer,
		svc:     deps.Service,
		journal: deps.Journal,
		logger:  logger,
		out:     out,
	}
}

// Layout exposes the artifact folders used for the configured input.
func (o *Orchestrator) Layout() artifact.Layout {
	return o.layout
}

// Run executes the stages selected by the configured action in pipeline
// order. Per-segment failures are tallied in the report; only a source that
// cannot be read, a missing capability or cancellation stop the run.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	if o.cfg.Action.Includes(ActionSlice) {
		if err := o.Slice(ctx, report); err != nil {
			return report, err
		}
	}
	if o.cfg.Action.Includes(ActionExtract) {
		if err := o.Extract(ctx, report); err != nil {
			return report, err
		}
	}
	if o.cfg.Action.Includes(ActionTranslate) {
		if err := o.Translate(ctx, report); err != nil {
			return report, err
		}
	}

	return report, nil
}

// Slice writes one standalone document per selected segment of a PDF input.
func (o *Orchestrator) Slice(ctx context.Context, report *Report) error {
	if !hasExt(o.cfg.Input, artifact.ExtPDF) {
		fmt.Fprintln(o.out, "Notice: Slicing skipped (only supported for PDF inputs).")
		return nil
	}
	if o.docs == nil || o.writer == nil {
		return errors.New("document capability is not configured")
	}

	doc, err := o.docs.Open(o.cfg.Input)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", o.cfg.Input, err)
	}
	defer doc.Close()

	segments, err := chunker.Resolve(doc, o.cfg.Mode, chunker.Options{Marker: o.cfg.Marker})
	if err != nil {
		return fmt.Errorf("failed to resolve segments: %w", err)
	}

	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !o.cfg.Filter.Match(seg.Index) {
			continue
		}

		base := artifact.Name(seg.Index, seg.Title)
		path := o.layout.SlicePath(base)
		if artifact.Exists(path) {
			report.Skipped++
			continue
		}

		fmt.Fprintf(o.out, "Slicing index %d...\n", seg.Index)
		err := artifact.Create(path, func(tmp string) error {
			return o.writer.WritePages(o.cfg.Input, seg.StartPage, seg.EndPage, tmp)
		})
		switch {
		case errors.Is(err, artifact.ErrExists):
			report.Skipped++
		case err != nil:
			o.fail(report, "slice failed", base, seg.Index, err)
		default:
			report.Sliced++
		}
	}
	return nil
}

// Extract writes the plain text of every selected sliced document that has
// no text artifact yet.
func (o *Orchestrator) Extract(ctx context.Context, report *Report) error {
	sections := o.layout.Sections
	if !artifact.DirExists(sections) {
		if !hasExt(o.cfg.Input, artifact.ExtText) {
			fmt.Fprintf(o.out, "Folder %s not found. Please run with '--action slice' first.\n", sections)
		}
		return nil
	}
	if o.docs == nil {
		return errors.New("document capability is not configured")
	}

	bases, err := artifact.List(sections, artifact.ExtPDF)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", sections, err)
	}

	for _, base := range bases {
		if err := ctx.Err(); err != nil {
			return err
		}
		idx := artifact.ParseIndex(base)
		if !o.cfg.Filter.Match(idx) {
			continue
		}
		textPath := o.layout.TextPath(base)
		if artifact.Exists(textPath) {
			report.Skipped++
			continue
		}

		fmt.Fprintf(o.out, "Extracting text for index %d...\n", idx)
		text, err := o.extractText(o.layout.SlicePath(base))
		if err == nil {
			err = artifact.WriteFile(textPath, []byte(text))
		}
		switch {
		case errors.Is(err, artifact.ErrExists):
			report.Skipped++
		case err != nil:
			o.fail(report, "extraction failed", base, idx, err)
		default:
			report.Extracted++
		}
	}
	return nil
}

func (o *Orchestrator) extractText(path string) (string, error) {
	doc, err := o.docs.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer doc.Close()
	return document.Text(doc)
}

// Translate submits every selected candidate without a translation to the
// translation service and stores the response verbatim.
func (o *Orchestrator) Translate(ctx context.Context, report *Report) error {
	scan := o.layout.Sections
	if !artifact.DirExists(scan) {
		scan = filepath.Dir(o.cfg.Input)
	}
	if !artifact.DirExists(scan) {
		fmt.Fprintf(o.out, "Folder %s not found. Nothing to translate.\n", scan)
		return nil
	}
	if o.svc == nil {
		return errors.New("translation service is not configured")
	}

	bases, err := artifact.List(scan, artifact.ExtPDF, artifact.ExtText)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", scan, err)
	}

	prompt := translator.BuildPrompt(o.cfg.TargetLang, o.cfg.StyleGuide, o.cfg.Glossary)

	for _, base := range bases {
		if err := ctx.Err(); err != nil {
			return err
		}
		idx := artifact.ParseIndex(base)
		if !o.cfg.Filter.Match(idx) {
			continue
		}
		target := o.layout.TranslationPath(base)
		if artifact.Exists(target) {
			report.Skipped++
			continue
		}

		payload, ok, err := payloadFor(scan, base)
		if err != nil {
			o.fail(report, "translation failed", base, idx, err)
			continue
		}
		if !ok {
			report.Skipped++
			continue
		}

		fmt.Fprintf(o.out, "Translating index %d (%s)...\n", idx, base)
		text, err := o.translateOne(ctx, base, idx, payload, prompt)
		if err == nil {
			err = artifact.WriteFile(target, []byte(text))
		}
		switch {
		case errors.Is(err, artifact.ErrExists):
			report.Skipped++
		case err != nil:
			o.fail(report, "translation failed", base, idx, err)
		default:
			o.logger.Info("translated segment", "index", idx, "segment", base, "payload", payload.Kind())
			report.Translated++
		}
	}
	return nil
}

// payloadFor prefers the extracted text, which the user may have corrected,
// over the sliced document. ok is false when neither exists.
func payloadFor(dir, base string) (translator.Payload, bool, error) {
	textPath := filepath.Join(dir, base+artifact.ExtText)
	if artifact.Exists(textPath) {
		text, err := artifact.ReadText(textPath)
		if err != nil {
			return translator.Payload{}, false, err
		}
		return translator.TextPayload(text), true, nil
	}
	pdfPath := filepath.Join(dir, base+artifact.ExtPDF)
	if artifact.Exists(pdfPath) {
		return translator.FilePayload(pdfPath), true, nil
	}
	return translator.Payload{}, false, nil
}

func (o *Orchestrator) translateOne(ctx context.Context, base string, idx int, payload translator.Payload, prompt string) (string, error) {
	callCtx := ctx
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := o.svc.Translate(callCtx, o.cfg.Service, translator.TranslateRequest{
		Payload:    payload,
		Prompt:     prompt,
		TargetLang: o.cfg.TargetLang,
	})
	o.record(ctx, base, idx, payload, res, err, time.Since(start))

	if err != nil {
		return "", err
	}
	if res == nil {
		return "", translator.ErrEmptyResponse
	}
	if res.Error != "" {
		return "", fmt.Errorf("%s: %s", res.ServiceName, res.Error)
	}
	return res.TranslatedText, nil
}

func (o *Orchestrator) record(ctx context.Context, base string, idx int, payload translator.Payload, res *translator.ServiceResult, callErr error, elapsed time.Duration) {
	if o.journal == nil {
		return
	}

	attempt := internal.Attempt{
		Segment:     base,
		Index:       idx,
		TargetLang:  o.cfg.TargetLang,
		Service:     o.svc.Name(),
		Model:       o.cfg.Service.Model,
		PayloadKind: payload.Kind(),
		LatencyMs:   int(elapsed.Milliseconds()),
		Timestamp:   time.Now(),
	}
	if res != nil {
		if m := res.Metadata["model"]; m != "" {
			attempt.Model = m
		}
		if res.Latency > 0 {
			attempt.LatencyMs = int(res.Latency.Milliseconds())
		}
	}
	if callErr != nil {
		attempt.Error = callErr.Error()
	} else if res != nil && res.Error != "" {
		attempt.Error = res.Error
	}

	if err := o.journal.RecordAttempt(ctx, attempt); err != nil {
		o.logger.Warn("failed to record attempt", "segment", base, "error", err)
	}
}

func (o *Orchestrator) fail(report *Report, msg, base string, idx int, err error) {
	report.Failed++
	report.Errors = append(report.Errors, fmt.Errorf("%s: %w", base, err))
	fmt.Fprintf(o.out, "Error on %s: %v\n", base, err)
	o.logger.Error(msg, "index", idx, "segment", base, "error", err)
}

func hasExt(path, ext string) bool {
	return strings.EqualFold(filepath.Ext(path), ext)
}
