package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with stdin and returns combined output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// sqliteFlags points a command at fresh SQLite and snapshot files in dir.
func sqliteFlags(dir string) []string {
	return []string{
		"--backend", "sqlite",
		"--db", filepath.Join(dir, "cyberquest.db"),
		"--snapshot", filepath.Join(dir, "snapshot.yaml"),
	}
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "cyberquest", cmd.Use)
	assert.Contains(t, cmd.Long, "remote store")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"play"},
		{"status"},
		{"catalog", "validate"},
		{"catalog", "list"},
		{"test"},
		{"serve"},
		{"labs", "reset"},
	}

	for _, path := range commands {
		t.Run(strings.Join(path, " "), func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"backend", "db", "snapshot", "catalog", "project"} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, "", flag.DefValue, "%s falls back to the environment", name)
	}
}

func TestUserFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{{"play"}, {"status"}, {"labs", "reset"}} {
		subCmd, _, err := cmd.Find(path)
		require.NoError(t, err)
		assert.NotNil(t, subCmd.Flags().Lookup("user"), "%v --user", path)
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "", "catalog", "validate", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestInvalidBackendIsCommandError(t *testing.T) {
	dir := t.TempDir()
	args := append([]string{"status", "--user", "u1"}, sqliteFlags(dir)...)
	args = append(args, "--backend", "postgres")

	_, err := execute(t, "", args...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestStatusRequiresUser(t *testing.T) {
	_, err := execute(t, "", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user")
}
