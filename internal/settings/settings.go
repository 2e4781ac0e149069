// Package settings persists the filtering rules as a single storage blob.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"reddit_filter/internal/model"
	"reddit_filter/internal/storage"
)

// Key is the fixed storage key for the settings blob.
const Key = "filter_settings"

// Default returns the settings used on first run.
func Default() model.FilterSettings {
	return model.FilterSettings{
		Keywords:            []string{},
		BlockedSubreddits:   []string{},
		Enabled:             true,
		MinAccountAgeMonths: 0,
		APIPaused:           false,
	}
}

// Load reads settings from the store. On first run the defaults are
// persisted and returned. A corrupt blob or a storage failure falls back
// to defaults; the engine never refuses to start over bad settings.
func Load(ctx context.Context, store storage.Store, log *slog.Logger) model.FilterSettings {
	blob, err := store.Load(ctx, Key)
	if errors.Is(err, storage.ErrNotFound) {
		def := Default()
		if err := Save(ctx, store, def); err != nil {
			log.Error("persist default settings", "error", err)
		}
		return def
	}
	if err != nil {
		log.Error("load settings", "error", err)
		return Default()
	}

	var s model.FilterSettings
	if err := json.Unmarshal(blob, &s); err != nil {
		log.Error("decode settings blob", "error", err)
		return Default()
	}
	if s.MinAccountAgeMonths < 0 {
		s.MinAccountAgeMonths = 0
	}
	return s
}

// Save writes settings to the store.
func Save(ctx context.Context, store storage.Store, s model.FilterSettings) error {
	blob, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := store.Save(ctx, Key, blob); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
