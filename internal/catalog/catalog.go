package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Station is one SIAR reference station as listed in the static catalog.
// Latitude and Longitude keep the provider's encoded degree/minute/second
// form; decoding happens at ranking time (see internal/stations).
type Station struct {
	Code      string `json:"Codigo"`
	Name      string `json:"Estacion"`
	Latitude  string `json:"Latitud"`
	Longitude string `json:"Longitud"`
}

// Source yields the full station list. Implementations are read-only; the
// catalog is versioned reference data, never written by this service.
type Source interface {
	LoadAll(ctx context.Context) ([]Station, error)
}

// UnavailableError reports a catalog source that could not be read or that
// did not contain a station list.
type UnavailableError struct {
	Source string
	Cause  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("station catalog unavailable (%s): %v", e.Source, e.Cause)
}

func (e *UnavailableError) Unwrap() error { return e.Cause }

// FileSource reads the catalog from a JSON file: either a bare array of
// stations or an object with a single wrapper key holding the array.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// LoadAll reads and parses the catalog file on every call; callers that want
// caching hold on to the result themselves.
func (f *FileSource) LoadAll(_ context.Context) ([]Station, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, &UnavailableError{Source: f.Path, Cause: err}
	}

	stations, err := parseStations(raw)
	if err != nil {
		return nil, &UnavailableError{Source: f.Path, Cause: err}
	}
	return stations, nil
}

func parseStations(raw []byte) ([]Station, error) {
	var direct []Station
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	for _, val := range wrapped {
		var list []Station
		if err := json.Unmarshal(val, &list); err == nil {
			return list, nil
		}
	}

	return nil, fmt.Errorf("parse catalog: no station list under any top-level key")
}
