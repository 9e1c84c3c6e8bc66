package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	r := Default()
	require.NoError(t, r.Validate())
	assert.Contains(t, r.RejectPhrases, "how much")
	assert.Contains(t, r.RejectPhrases, "?")
	assert.Contains(t, r.CountWords, "units")
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), r)
}

func TestLoad_OverlaysSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
reject_phrases:
  - "call me"
statuses:
  - label: Handover
    pattern: 'handover'
count_words:
  - lots
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	r, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"call me"}, r.RejectPhrases)
	assert.Equal(t, []Pattern{{Label: "Handover", Pattern: "handover"}}, r.Statuses)
	assert.Equal(t, []string{"lots"}, r.CountWords)
	// untouched sections keep defaults
	assert.Equal(t, Default().SizeUnits, r.SizeUnits)
	assert.Equal(t, Default().DatePatterns, r.DatePatterns)
}

func TestLoad_InvalidPattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("date_patterns:\n  - '(['\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
