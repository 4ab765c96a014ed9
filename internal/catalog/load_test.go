package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Compiles(t *testing.T) {
	_, err := defaultCatalog()
	require.NoError(t, err)

	c := Default()
	assert.Greater(t, c.Len(), 0)

	for _, rule := range c.Mastery() {
		assert.True(t, IsIncrementable(rule.Counter), rule.Counter)
		assert.NotEmpty(t, c.Eligible(rule.Grants, 1), "mastery %s grants nothing", rule.Counter)
	}
}

func TestDefault_MasteryTotals(t *testing.T) {
	c := Default()

	want := map[CounterKind]MasteryRule{
		KindCryptoPuzzles: {Counter: KindCryptoPuzzles, Total: 6, Grants: KindCryptoMaster},
		KindSQLLevels:     {Counter: KindSQLLevels, Total: 8, Grants: KindSQLMaster},
		KindTerminalFlags: {Counter: KindTerminalFlags, Total: 10, Grants: KindTerminalMaster},
	}
	for counter, rule := range want {
		got := c.MasteryFor(counter)
		require.Len(t, got, 1, counter)
		assert.Equal(t, rule, got[0])
	}
}

func TestCompile_Achievements(t *testing.T) {
	src := `
achievement: {
	first: {
		name:              "First"
		requirement_type:  "challenges"
		requirement_value: 1
	}
	sql5: {
		name:              "Five"
		description:       "five levels"
		icon:              "db"
		points:            200
		requirement_type:  "sql_levels"
		requirement_value: 5
	}
}
`
	c, err := Compile(cuecontext.New().CompileString(src))
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	first, ok := c.Lookup("first")
	require.True(t, ok)
	assert.Equal(t, 0, first.Points)
	assert.Equal(t, "", first.Description)

	sql5, ok := c.Lookup("sql5")
	require.True(t, ok)
	assert.Equal(t, Achievement{
		ID:               "sql5",
		Name:             "Five",
		Description:      "five levels",
		Icon:             "db",
		Points:           200,
		RequirementType:  KindSQLLevels,
		RequirementValue: 5,
	}, sql5)
}

func TestCompile_MissingRequiredField(t *testing.T) {
	src := `
achievement: broken: {
	name:             "Broken"
	requirement_type: "missions"
}
`
	_, err := Compile(cuecontext.New().CompileString(src, cue.Filename("broken.cue")))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "achievement.broken.requirement_value", ce.Field)
}

func TestCompile_WrongFieldType(t *testing.T) {
	src := `
achievement: broken: {
	name:              "Broken"
	requirement_type:  "missions"
	requirement_value: "five"
}
`
	_, err := Compile(cuecontext.New().CompileString(src))
	require.Error(t, err)
}

func TestCompile_SyntaxError(t *testing.T) {
	_, err := Compile(cuecontext.New().CompileString(`achievement: {`))
	require.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	c, err := LoadDir(filepath.Join("testdata", "custom"))
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())
	rules := c.MasteryFor(KindMissions)
	require.Len(t, rules, 1)
	assert.Equal(t, 3, rules[0].Total)
}

func TestLoadDir_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
	})

	t.Run("file instead of directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file.cue")
		require.NoError(t, os.WriteFile(path, []byte("package x\n"), 0o644))
		_, err := LoadDir(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})

	t.Run("no cue files", func(t *testing.T) {
		_, err := LoadDir(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no CUE files")
	})

	t.Run("conflicting values", func(t *testing.T) {
		_, err := LoadDir(filepath.Join("testdata", "broken"))
		require.Error(t, err)
	})
}
