package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogValidate_Embedded(t *testing.T) {
	t.Setenv("CYBERQUEST_CATALOG", "")

	out, err := execute(t, "", "catalog", "validate")
	require.NoError(t, err)
	assert.Equal(t, "✓ embedded: 17 achievements, 3 mastery rules\n", out)
}

func TestCatalogValidate_Dir(t *testing.T) {
	dir := "../harness/testdata/catalogs/small"

	out, err := execute(t, "", "catalog", "validate", dir, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   CatalogSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, CatalogSummary{Source: dir, Achievements: 2, Mastery: 1}, resp.Data)
}

func TestCatalogValidate_Invalid(t *testing.T) {
	dir := t.TempDir()
	src := `package bad

achievement: dup: {
	name: "No Requirement"
	points: 10
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.cue"), []byte(src), 0o644))

	out, err := execute(t, "", "catalog", "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E_CATALOG]")
	assert.Contains(t, out, "requirement_type is required")
}

func TestCatalogValidate_MissingDir(t *testing.T) {
	_, err := execute(t, "", "catalog", "validate", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestCatalogList(t *testing.T) {
	out, err := execute(t, "", "catalog", "list", "../harness/testdata/catalogs/small")
	require.NoError(t, err)

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "REQUIREMENT")
	assert.Regexp(t, `codebreaker\s+Codebreaker\s+50\s+crypto_puzzles >= 1`, out)
	assert.Regexp(t, `crypto_master\s+Crypto Master\s+300\s+crypto_master >= 1`, out)
}

func TestCatalogList_JSON(t *testing.T) {
	t.Setenv("CYBERQUEST_CATALOG", "")

	out, err := execute(t, "", "catalog", "list", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data []CatalogEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 17)
	assert.Contains(t, resp.Data, CatalogEntry{
		ID:               "first_blood",
		Name:             "First Blood",
		Points:           50,
		RequirementType:  "challenges",
		RequirementValue: 1,
	})
}
