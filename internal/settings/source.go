package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"slotkeeper/backend/internal/domain"
)

// ErrNotConfigured is returned by a Source that has no document for a provider.
var ErrNotConfigured = errors.New("provider settings not configured")

// Source fetches the raw settings document for a provider.
type Source interface {
	Get(ctx context.Context, providerID string) (Payload, error)
}

// Loader turns a Source into validated engine settings.
type Loader struct {
	src Source
	log *slog.Logger
}

func NewLoader(src Source, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{src: src, log: log}
}

// Load returns the provider's settings. Missing or invalid documents surface
// as ErrUnavailable; infrastructure failures are returned as-is.
func (l *Loader) Load(ctx context.Context, providerID string) (domain.Settings, error) {
	p, err := l.src.Get(ctx, providerID)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return domain.Settings{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return domain.Settings{}, fmt.Errorf("load settings for %s: %w", providerID, err)
	}

	s, err := Normalize(providerID, p)
	if err != nil {
		l.log.Warn("provider settings rejected", slog.String("provider_id", providerID), slog.Any("err", err))
		return domain.Settings{}, err
	}
	return s, nil
}
