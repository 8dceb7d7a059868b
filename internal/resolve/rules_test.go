package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules()

	assert.Equal(t, 2020, rules.MinYear)
	assert.Equal(t, 5, rules.MaxYearsAhead)
	assert.Equal(t, defaultScanLimit, rules.ItemScanLimit)
	assert.Contains(t, rules.TagDenylist, "teste")
	assert.Contains(t, rules.TagDenylist, "homologação")
	assert.Contains(t, rules.TagDenylist, "homologacao")
	assert.Contains(t, rules.OnlineWords, "eletrônico")
	assert.Contains(t, rules.InPersonWords, "presencial")
	assert.Contains(t, rules.EmailHosts, "gmail.com")
	assert.Contains(t, rules.GovSuffixes, ".gov.br")
	assert.NotEmpty(t, rules.TagKeywords["veículos"])
}

func TestLoadRules_EmptyPathReturnsDefaults(t *testing.T) {
	rules, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)
}

func TestLoadRules_OverridesMergeOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := "min_year: 2022\ntag_denylist:\n  - somente-este\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)

	assert.Equal(t, 2022, rules.MinYear)
	assert.Equal(t, []string{"somente-este"}, rules.TagDenylist)
	assert.Equal(t, 5, rules.MaxYearsAhead, "absent keys keep defaults")
	assert.Contains(t, rules.OnlineWords, "eletrônico")
}

func TestLoadRules_NonPositiveValuesClampToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := "min_year: -1\nmax_years_ahead: 0\nitem_scan_limit: -50\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)

	assert.Equal(t, 2020, rules.MinYear)
	assert.Equal(t, 5, rules.MaxYearsAhead)
	assert.Equal(t, defaultScanLimit, rules.ItemScanLimit)
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read rules file")
}

func TestLoadRules_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("min_year: [not a number"), 0o644))

	_, err := LoadRules(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse rules file")
}
