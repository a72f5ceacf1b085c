package domain

import (
	"fmt"
	"strings"
)

// PlatformType identifies one configurable AI-service backend.
type PlatformType string

// Declaration order is the order records and model steps appear in.
const (
	PlatformOpenAI    PlatformType = "openai"
	PlatformAnthropic PlatformType = "anthropic"
	PlatformGoogle    PlatformType = "google"
)

var platformTypes = []PlatformType{PlatformOpenAI, PlatformAnthropic, PlatformGoogle}

var platformDisplayNames = map[PlatformType]string{
	PlatformOpenAI:    "OpenAI",
	PlatformAnthropic: "Anthropic",
	PlatformGoogle:    "Google",
}

// AllPlatformTypes returns every platform in declaration order.
func AllPlatformTypes() []PlatformType {
	out := make([]PlatformType, len(platformTypes))
	copy(out, platformTypes)
	return out
}

// ParsePlatformType converts an identifier such as "openai" into a PlatformType.
func ParsePlatformType(s string) (PlatformType, error) {
	want := PlatformType(strings.ToLower(strings.TrimSpace(s)))
	for _, p := range platformTypes {
		if p == want {
			return p, nil
		}
	}
	return "", NewDomainError("ParsePlatformType", ErrUnknownPlatform, s)
}

// DisplayName returns the human-readable platform name.
func (p PlatformType) DisplayName() string {
	if name, ok := platformDisplayNames[p]; ok {
		return name
	}
	return string(p)
}

func (p PlatformType) String() string { return string(p) }

// PlatformConfig is the in-progress wizard answer for one platform.
// A nil Token or Model means the value has not been provided yet.
type PlatformConfig struct {
	Name     PlatformType `json:"name"`
	Selected bool         `json:"selected"`
	Token    *string      `json:"token,omitempty"`
	Model    *string      `json:"model,omitempty"`
}

// NewPlatformConfig returns the default record for p.
func NewPlatformConfig(p PlatformType) PlatformConfig {
	return PlatformConfig{Name: p}
}

// HasToken reports whether a credential has been entered.
func (c PlatformConfig) HasToken() bool { return c.Token != nil }

// HasModel reports whether a model has been chosen.
func (c PlatformConfig) HasModel() bool { return c.Model != nil }

// TokenValue returns the credential or "" when absent.
func (c PlatformConfig) TokenValue() string {
	if c.Token == nil {
		return ""
	}
	return *c.Token
}

// ModelValue returns the model or "" when absent.
func (c PlatformConfig) ModelValue() string {
	if c.Model == nil {
		return ""
	}
	return *c.Model
}

// Equal compares records field by field, dereferencing optional values.
func (c PlatformConfig) Equal(o PlatformConfig) bool {
	return c.Name == o.Name &&
		c.Selected == o.Selected &&
		optionalEqual(c.Token, o.Token) &&
		optionalEqual(c.Model, o.Model)
}

func (c PlatformConfig) String() string {
	token := "<absent>"
	if c.Token != nil {
		token = MaskSecret(*c.Token)
	}
	model := "<absent>"
	if c.Model != nil {
		model = *c.Model
	}
	return fmt.Sprintf("%s{selected=%t token=%s model=%s}", c.Name, c.Selected, token, model)
}

func optionalEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// MaskSecret hides all but the last four characters of a credential.
func MaskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
