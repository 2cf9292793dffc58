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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/valpere/pdftran/internal/config"
	"github.com/valpere/pdftran/internal/store"
	"github.com/valpere/pdftran/internal/translator"
)

const defaultDBPath = "./data/pdftran.db"

// loadConfig binds the flags of the executing command and resolves the
// effective settings. Binding per command keeps flags that share a key
// (such as --db) from shadowing each other.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return config.Config{}, fmt.Errorf("failed to bind flags: %w", err)
	}
	return config.Load(v)
}

func serviceConfig(cfg config.Config) translator.ServiceConfig {
	return translator.ServiceConfig{
		Credentials: cfg.Credentials,
		APIKey:      cfg.Key,
		Model:       cfg.Model,
		ProjectID:   cfg.Project,
	}
}

// buildService constructs the configured translation backend.
func buildService(ctx context.Context, cfg config.Config) (translator.TranslationService, error) {
	switch cfg.Service {
	case "gemini":
		return translator.NewGeminiService(ctx, cfg.Key, translator.GeminiOptions{
			Model:        cfg.Model,
			PollInterval: cfg.PollInterval,
			PollTimeout:  cfg.PollTimeout,
		})
	case "openrouter":
		key := cfg.OpenRouterKey
		if key == "" {
			key = cfg.Key
		}
		return translator.NewOpenRouterService(key, "", nil), nil
	case "ollama":
		return translator.NewOllamaTranslator(cfg.OllamaURL, nil), nil
	case "google":
		return translator.NewGoogleService(), nil
	}
	return nil, fmt.Errorf("unknown service: %s", cfg.Service)
}

// newLogger appends structured records to path. An empty path discards them.
func newLogger(path string) (*slog.Logger, func() error, error) {
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, nil)), f.Close, nil
}

// openStore opens the journal database, creating its directory first.
func openStore(path string) (*store.Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// dbPathOr prefers an explicit --db flag, then the configured journal path,
// then the default location.
func dbPathOr(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := v.GetString("db"); p != "" {
		return p
	}
	return defaultDBPath
}

// loadGlossary returns the terms for lang from the database at path. A
// database that does not exist yet holds no terms and is not created.
func loadGlossary(ctx context.Context, path, lang string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	return db.GetGlossaryTerms(ctx, lang)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
