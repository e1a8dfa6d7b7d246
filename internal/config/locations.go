package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Location is one monitored point from the locations file.
type Location struct {
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	// SessionID keys the location's notification settings in the
	// persistence sink. Defaults to the location name.
	SessionID string `yaml:"session_id"`
}

type locationsFile struct {
	Locations []Location `yaml:"locations"`
}

// LoadLocations reads and validates the YAML locations file.
func LoadLocations(path string) ([]Location, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locations file %s: %w", path, err)
	}

	var f locationsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse locations file: %w", err)
	}
	if len(f.Locations) == 0 {
		return nil, fmt.Errorf("locations file %s contains no locations", path)
	}

	for i := range f.Locations {
		loc := &f.Locations[i]
		if loc.Name == "" {
			return nil, fmt.Errorf("location %d: name is required", i)
		}
		if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
			return nil, fmt.Errorf("location %q: coordinates out of range", loc.Name)
		}
		if loc.SessionID == "" {
			loc.SessionID = loc.Name
		}
	}
	return f.Locations, nil
}
