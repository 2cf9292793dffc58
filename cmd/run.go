/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/pdftran/internal/chunker"
	"github.com/valpere/pdftran/internal/config"
	"github.com/valpere/pdftran/internal/document"
	"github.com/valpere/pdftran/internal/orchestrator"
	"github.com/valpere/pdftran/internal/translator"
)

var (
	segIndex int
	segStart int
	segEnd   int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Slice, extract and translate a document",
	Long: `Run the translation pipeline over a PDF (or a plain-text file).

Actions:
  - slice      split the PDF into one PDF per segment
  - extract    write the text of every sliced segment for review
  - translate  translate every segment (reviewed text first, else the PDF)
  - prepare    slice + extract
  - all        slice + extract + translate

Modes:
  - bookmark   one segment per table-of-contents entry
  - chapter    one segment per page mentioning the marker (default "Chapter")
  - full       the whole document as one segment

Existing files are never overwritten, so a run can be repeated safely.
Limit a run with --index N, or with --start N / --end N.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		mode, _ := chunker.ParseMode(cfg.Mode)
		action, _ := orchestrator.ParseAction(cfg.Action)

		logger, closeLog, err := newLogger(cfg.LogFile)
		if err != nil {
			return err
		}
		defer closeLog()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var svc translator.TranslationService
		if action.Includes(orchestrator.ActionTranslate) {
			svc, err = buildService(ctx, cfg)
			if err != nil {
				return err
			}
		}

		deps := orchestrator.Deps{
			Service: svc,
			Logger:  logger,
			Out:     os.Stdout,
		}
		pdf := document.NewPDF()
		deps.Docs = pdf
		deps.Writer = pdf

		var (
			glossary    map[string]string
			glossaryErr error
		)
		if cfg.DB != "" {
			db, err := openStore(cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()
			deps.Journal = db

			glossary, glossaryErr = db.GetGlossaryTerms(ctx, cfg.Lang)
		} else {
			// Terms added with "pdftran glossary add" and no --db live here.
			glossary, glossaryErr = loadGlossary(ctx, defaultDBPath, cfg.Lang)
		}
		if glossaryErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: glossary unavailable: %v\n", glossaryErr)
		}

		orch := orchestrator.New(orchestrator.Config{
			Input:      cfg.Input,
			Mode:       mode,
			Action:     action,
			TargetLang: cfg.Lang,
			Filter:     filterFromFlags(cmd),
			WorkDir:    cfg.WorkDir,
			Marker:     cfg.Marker,
			StyleGuide: translator.DefaultStyleGuide,
			Glossary:   glossary,
			Service:    serviceConfig(cfg),
			Timeout:    cfg.Timeout,
		}, deps)

		start := time.Now()
		logger.Info("run started", "input", cfg.Input, "mode", mode, "action", action, "lang", cfg.Lang, "service", cfg.Service)

		report, runErr := orch.Run(ctx)
		printReport(report, cfg)
		logger.Info("run finished",
			"sliced", report.Sliced,
			"extracted", report.Extracted,
			"translated", report.Translated,
			"skipped", report.Skipped,
			"failed", report.Failed,
			"elapsed", time.Since(start).Round(time.Millisecond))

		fmt.Println("Task execution finished.")
		return runErr
	},
}

func filterFromFlags(cmd *cobra.Command) orchestrator.Filter {
	var f orchestrator.Filter
	if cmd.Flags().Changed("index") {
		f.Index = &segIndex
	}
	if cmd.Flags().Changed("start") {
		f.Start = &segStart
	}
	if cmd.Flags().Changed("end") {
		f.End = &segEnd
	}
	return f
}

func printReport(r *orchestrator.Report, cfg config.Config) {
	if r == nil {
		return
	}
	fmt.Printf("Sliced: %d, Extracted: %d, Translated: %d, Skipped: %d, Failed: %d\n",
		r.Sliced, r.Extracted, r.Translated, r.Skipped, r.Failed)
	if r.Failed > 0 {
		fmt.Printf("Failed segments are retried on the next run; see %s for details.\n", cfg.LogFile)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("input", "i", "", "Input PDF or text file (required)")
	runCmd.Flags().StringP("mode", "m", string(chunker.ModeBookmark), "Chunking mode: bookmark, chapter or full")
	runCmd.Flags().StringP("action", "a", string(orchestrator.ActionAll), "Action: slice, extract, translate, prepare or all")
	runCmd.Flags().StringP("lang", "l", config.DefaultLang, "Target language")
	runCmd.Flags().StringP("key", "k", "", "Gemini API key (or PDFTRAN_KEY / GEMINI_API_KEY)")
	runCmd.Flags().String("model", "", "Model name (service default if empty)")
	runCmd.Flags().StringP("service", "s", config.DefaultService, "Translation service: gemini, openrouter, ollama or google")
	runCmd.Flags().String("workdir", ".", "Directory holding the sections_ and translations_ folders")
	runCmd.Flags().String("marker", chunker.DefaultMarker, "Term that starts a segment in chapter mode")
	runCmd.Flags().String("log-file", config.DefaultLogFile, "Persistent log file (empty to disable)")
	runCmd.Flags().String("db", "", "Journal and glossary database path (empty: no journal, glossary from "+defaultDBPath+" if present)")
	runCmd.Flags().Duration("poll-interval", 2*time.Second, "Delay between upload state checks")
	runCmd.Flags().Duration("poll-timeout", 10*time.Minute, "Maximum wait for an upload to finish processing")
	runCmd.Flags().Duration("timeout", 0, "Timeout for one translation call (0 for none)")
	runCmd.Flags().String("openrouter-key", "", "OpenRouter API key")
	runCmd.Flags().String("ollama-url", "http://localhost:11434", "Ollama base URL")
	runCmd.Flags().StringP("credentials", "c", "", "Path to Google Cloud credentials")
	runCmd.Flags().StringP("project", "p", "", "Google Cloud Project ID")

	runCmd.Flags().IntVar(&segIndex, "index", 0, "Process only this segment index")
	runCmd.Flags().IntVar(&segStart, "start", 0, "First segment index to process")
	runCmd.Flags().IntVar(&segEnd, "end", 0, "Last segment index to process")
}
