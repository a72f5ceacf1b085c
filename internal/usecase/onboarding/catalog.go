// Package onboarding holds the setup wizard core: per-platform answer state,
// step sequencing and persistence dispatch.
package onboarding

import (
	"fmt"
	"slices"

	"aisetup/internal/domain"
)

// Catalog is the fixed, ordered list of selectable models per platform.
// Order matters: index 0 is the default candidate.
type Catalog struct {
	models map[domain.PlatformType][]string
}

var defaultModels = map[domain.PlatformType][]string{
	domain.PlatformOpenAI:    {"gpt-4o", "gpt-4-turbo", "gpt-4", "gpt-3.5-turbo"},
	domain.PlatformAnthropic: {"claude-3-opus-20240229", "claude-3-sonnet-20240229", "claude-3-haiku-20240307"},
	domain.PlatformGoogle:    {"gemini-1.5-pro-latest", "gemini-1.5-flash-latest", "gemini-1.0-pro"},
}

// DefaultCatalog returns the built-in reference lists.
func DefaultCatalog() Catalog {
	c, _ := NewCatalog(nil)
	return c
}

// NewCatalog builds a catalog from overrides keyed by platform. Platforms
// missing from overrides keep the built-in list. Every list must be
// non-empty and free of duplicates.
func NewCatalog(overrides map[domain.PlatformType][]string) (Catalog, error) {
	models := make(map[domain.PlatformType][]string, len(defaultModels))
	for _, p := range domain.AllPlatformTypes() {
		list := defaultModels[p]
		if o, ok := overrides[p]; ok {
			list = o
		}
		if len(list) == 0 {
			return Catalog{}, fmt.Errorf("catalog %s: %w", p, domain.ErrInvalidInput)
		}
		seen := make(map[string]bool, len(list))
		for _, m := range list {
			if m == "" || seen[m] {
				return Catalog{}, fmt.Errorf("catalog %s: empty or duplicate model %q: %w", p, m, domain.ErrInvalidInput)
			}
			seen[m] = true
		}
		models[p] = slices.Clone(list)
	}
	for p := range overrides {
		if _, ok := models[p]; !ok {
			return Catalog{}, domain.NewDomainError("NewCatalog", domain.ErrUnknownPlatform, string(p))
		}
	}
	return Catalog{models: models}, nil
}

// Models returns a copy of the reference list for p.
func (c Catalog) Models(p domain.PlatformType) []string {
	return slices.Clone(c.models[p])
}

// Contains reports whether model belongs to p's reference list.
func (c Catalog) Contains(p domain.PlatformType, model string) bool {
	return slices.Contains(c.models[p], model)
}

// IndexOf returns the position of model in p's list, or -1.
func (c Catalog) IndexOf(p domain.PlatformType, model string) int {
	return slices.Index(c.models[p], model)
}

// ModelAt returns p's model at index i. It panics when i is out of range:
// the lists are static configuration, so a bad index is a programming error.
func (c Catalog) ModelAt(p domain.PlatformType, i int) string {
	list := c.models[p]
	if i < 0 || i >= len(list) {
		panic(fmt.Sprintf("onboarding: default model index %d out of range for %s (%d models)", i, p, len(list)))
	}
	return list[i]
}

// CheckIndex reports an error when i does not address an entry of p's list.
func (c Catalog) CheckIndex(p domain.PlatformType, i int) error {
	if n := len(c.models[p]); i < 0 || i >= n {
		return fmt.Errorf("default model index %d for %s (%d models): %w", i, p, n, domain.ErrInvalidInput)
	}
	return nil
}

// CatalogFromNames is NewCatalog for overrides keyed by platform name, as
// they appear in configuration files.
func CatalogFromNames(overrides map[string][]string) (Catalog, error) {
	typed := make(map[domain.PlatformType][]string, len(overrides))
	for name, list := range overrides {
		p, err := domain.ParsePlatformType(name)
		if err != nil {
			return Catalog{}, err
		}
		typed[p] = list
	}
	return NewCatalog(typed)
}
