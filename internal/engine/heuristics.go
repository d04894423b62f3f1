package engine

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed heuristics.yaml
var defaultHeuristicsYAML []byte

// HeuristicEntry maps a name fragment to a currency code
type HeuristicEntry struct {
	Match    string `yaml:"match"`
	Currency string `yaml:"currency"`
}

// Heuristics holds the company-name and country currency tables. A loaded
// value is never mutated.
type Heuristics struct {
	Version   int              `yaml:"version"`
	Companies []HeuristicEntry `yaml:"companies"`
	Countries []HeuristicEntry `yaml:"countries"`

	companyPatterns []*regexp.Regexp
}

// ParseHeuristics parses and validates a YAML heuristics document
func ParseHeuristics(data []byte) (*Heuristics, error) {
	var h Heuristics
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("failed to parse currency heuristics: %w", err)
	}

	h.companyPatterns = make([]*regexp.Regexp, 0, len(h.Companies))
	for i, entry := range h.Companies {
		key := strings.ToLower(strings.TrimSpace(entry.Match))
		if key == "" || entry.Currency == "" {
			return nil, fmt.Errorf("company heuristic %d is incomplete", i)
		}
		h.Companies[i].Match = key
		h.Companies[i].Currency = strings.ToUpper(entry.Currency)
		// word boundaries keep "ing" from matching inside "holdings"
		h.companyPatterns = append(h.companyPatterns,
			regexp.MustCompile(`(^|[^a-z0-9])`+regexp.QuoteMeta(key)+`($|[^a-z0-9])`))
	}

	for i, entry := range h.Countries {
		key := strings.ToLower(strings.TrimSpace(entry.Match))
		if key == "" || entry.Currency == "" {
			return nil, fmt.Errorf("country heuristic %d is incomplete", i)
		}
		h.Countries[i].Match = key
		h.Countries[i].Currency = strings.ToUpper(entry.Currency)
	}

	return &h, nil
}

// LoadHeuristics reads a heuristics file, or returns the built-in tables when
// path is empty.
func LoadHeuristics(path string) (*Heuristics, error) {
	if path == "" {
		return DefaultHeuristics(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read currency heuristics %s: %w", path, err)
	}
	return ParseHeuristics(data)
}

var (
	defaultHeuristicsOnce sync.Once
	defaultHeuristics     *Heuristics
)

// DefaultHeuristics returns the built-in tables
func DefaultHeuristics() *Heuristics {
	defaultHeuristicsOnce.Do(func() {
		h, err := ParseHeuristics(defaultHeuristicsYAML)
		if err != nil {
			panic(err)
		}
		defaultHeuristics = h
	})
	return defaultHeuristics
}

// CompanyCurrency returns the currency of the first company entry matching name
func (h *Heuristics) CompanyCurrency(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", false
	}
	for i, pattern := range h.companyPatterns {
		if pattern.MatchString(name) {
			return h.Companies[i].Currency, true
		}
	}
	return "", false
}

// CountryCurrency returns the currency of the first country entry found in country
func (h *Heuristics) CountryCurrency(country string) (string, bool) {
	country = strings.ToLower(strings.TrimSpace(country))
	if country == "" {
		return "", false
	}
	for _, entry := range h.Countries {
		if strings.Contains(country, entry.Match) {
			return entry.Currency, true
		}
	}
	return "", false
}
