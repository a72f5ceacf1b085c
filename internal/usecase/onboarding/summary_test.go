package onboarding

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aisetup/internal/domain"
)

func TestSummaryRows_MasksTokens(t *testing.T) {
	s := newTestStore(t)
	s.ToggleSelected(mustPlatform(t, s, domain.PlatformOpenAI))
	s.SetToken(mustPlatform(t, s, domain.PlatformOpenAI), "sk-secret-1234")
	s.SetModel(domain.PlatformOpenAI, "gpt-4")

	rows := SummaryRows(s.Snapshot())
	require.Len(t, rows, 3)
	assert.Equal(t, SummaryRow{Platform: "OpenAI", Enabled: true, Token: "**********1234", Model: "gpt-4"}, rows[0])
	assert.Equal(t, "-", rows[1].Token)
	assert.Equal(t, "-", rows[1].Model)
	assert.False(t, rows[2].Enabled)
}

func TestSummaryMarkdown(t *testing.T) {
	s := newTestStore(t)
	md := SummaryMarkdown(s.Snapshot())
	assert.Contains(t, md, "| Platform | Enabled | Token | Model |")
	assert.Contains(t, md, "No platform was enabled")

	s.ToggleSelected(mustPlatform(t, s, domain.PlatformGoogle))
	s.SetToken(mustPlatform(t, s, domain.PlatformGoogle), "AIzaSyXYZ")
	md = SummaryMarkdown(s.Snapshot())
	assert.NotContains(t, md, "No platform was enabled")
	assert.NotContains(t, md, "AIzaSyXYZ")
	assert.Equal(t, 3, strings.Count(md, "| no |")+strings.Count(md, "| yes |"))
}
