package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"slotkeeper/backend/internal/settings"
)

type providerSettingsRow struct {
	bun.BaseModel `bun:"table:provider_settings"`

	ProviderID string          `bun:"provider_id,pk"`
	Payload    json.RawMessage `bun:"payload,type:jsonb,notnull"`
	UpdatedAt  time.Time       `bun:"updated_at,notnull"`
}

// SettingsRepo stores each provider's settings document as JSONB.
type SettingsRepo struct {
	db bun.IDB
}

func NewSettingsRepo(db bun.IDB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

func (r *SettingsRepo) Get(ctx context.Context, providerID string) (settings.Payload, error) {
	var row providerSettingsRow
	err := r.db.NewSelect().
		Model(&row).
		Where("provider_id = ?", providerID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return settings.Payload{}, settings.ErrNotConfigured
		}
		return settings.Payload{}, err
	}

	var p settings.Payload
	if err := json.Unmarshal(row.Payload, &p); err != nil {
		return settings.Payload{}, fmt.Errorf("%w: stored document is not valid JSON: %v", settings.ErrUnavailable, err)
	}
	return p, nil
}

func (r *SettingsRepo) Put(ctx context.Context, providerID string, p settings.Payload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	row := providerSettingsRow{ProviderID: providerID, Payload: raw, UpdatedAt: time.Now().UTC()}
	_, err = r.db.NewInsert().
		Model(&row).
		On("CONFLICT (provider_id) DO UPDATE").
		Set("payload = EXCLUDED.payload").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}
