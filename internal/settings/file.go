package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// FileSource serves settings from a YAML or JSON file keyed by provider id:
//
//	providers:
//	  clinic-1:
//	    timezone: Europe/Berlin
//	    ...
//
// Viper lower-cases keys on load, so only lower-case provider ids can be
// served from a file.
type FileSource struct {
	v *viper.Viper
}

func NewFileSource(path string) (*FileSource, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	return &FileSource{v: v}, nil
}

// Get matches provider ids exactly, the same as the postgres source.
func (f *FileSource) Get(_ context.Context, providerID string) (Payload, error) {
	id := strings.TrimSpace(providerID)
	if id == "" || id != strings.ToLower(id) {
		return Payload{}, ErrNotConfigured
	}
	key := "providers." + id
	if !f.v.IsSet(key) {
		return Payload{}, ErrNotConfigured
	}
	var p Payload
	if err := f.v.UnmarshalKey(key, &p); err != nil {
		return Payload{}, fmt.Errorf("decode settings for %s: %w", providerID, err)
	}
	return p, nil
}
