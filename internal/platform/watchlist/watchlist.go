// Package watchlist loads the YAML seed file that bootstraps the tracked
// asset fleet and configures the discovery scanner.
package watchlist

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Group is one category block of seed locators.
type Group struct {
	Category string   `yaml:"category"`
	Priority string   `yaml:"priority"`
	URLs     []string `yaml:"urls"`
}

// Watchlist is the full seed file: the CDN domains discovery filters on, the
// entry pages it scans, and the initially tracked locators by category.
type Watchlist struct {
	Domains []string `yaml:"domains"`
	Pages   []string `yaml:"pages"`
	Assets  []Group  `yaml:"assets"`
}

func Load(path string) (*Watchlist, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}
	var wl Watchlist
	if err := yaml.Unmarshal(raw, &wl); err != nil {
		return nil, fmt.Errorf("parse watchlist %s: %w", path, err)
	}
	return &wl, nil
}
