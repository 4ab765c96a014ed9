package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlay_UnlocksAndPersists(t *testing.T) {
	dir := t.TempDir()
	script := `
# a new player
challenge xss-101
points 850
status
quit
`
	out, err := execute(t, script, append([]string{"play", "--user", "u1"}, sqliteFlags(dir)...)...)
	require.NoError(t, err)

	assert.Contains(t, out, "Achievement unlocked: First Blood (+50 points)")
	assert.Contains(t, out, "  Complete your first challenge")
	assert.Contains(t, out, "Achievement unlocked: Script Kiddie\n")
	assert.Contains(t, out, "user:         u1")
	assert.Contains(t, out, "points:       1,000 (level 2, 0/1,000)")
	assert.Contains(t, out, "achievements: first_blood, script_kiddie")

	// The snapshot survives the session.
	out, err = execute(t, "status\n", append([]string{"play"}, sqliteFlags(dir)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "user:         (signed out)")
	assert.Contains(t, out, "points:       1,000")
	assert.Contains(t, out, "challenges:   1")
	assert.Contains(t, out, "achievements: none")
}

func TestPlay_LabsAndCounters(t *testing.T) {
	dir := t.TempDir()
	script := `lab level-1 sql_injection 100
login u1
lab level-1 sql_injection 100
lab level-1 sql_injection 100
count sql_levels
count rootkits
bogus
status
`
	out, err := execute(t, script, append([]string{"play"}, sqliteFlags(dir)...)...)
	require.NoError(t, err)

	assert.Contains(t, out, "sign in to record labs")
	assert.Contains(t, out, "signed in as u1 (0 points)")
	assert.Contains(t, out, "lab sql_injection/level-1 recorded (+100 points)")
	assert.Contains(t, out, "lab sql_injection/level-1 already complete")
	assert.Contains(t, out, "Achievement unlocked: Injector (+50 points)")
	assert.Contains(t, out, `unknown counter "rootkits"`)
	assert.Contains(t, out, `unknown command "bogus"`)
	assert.Contains(t, out, "counters:     sql_levels=1")
	assert.Contains(t, out, "labs:         sql_injection/level-1")
	assert.Contains(t, out, "points:       150")
}

func TestPlay_Usage(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "points many\nlab x\nlogin\nhelp\n", append([]string{"play"}, sqliteFlags(dir)...)...)
	require.NoError(t, err)

	assert.Contains(t, out, "usage: points N")
	assert.Contains(t, out, "usage: lab ID TYPE POINTS")
	assert.Contains(t, out, "usage: login USER")
	assert.Contains(t, out, "commands:")
}

func TestStatus_ReadsRemote(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "challenge xss-101\nlab level-1 sql_injection 100\n",
		append([]string{"play", "--user", "u1"}, sqliteFlags(dir)...)...)
	require.NoError(t, err)

	out, err := execute(t, "", append([]string{"status", "--user", "u1", "--format", "json"}, sqliteFlags(dir)...)...)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   RemoteStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "u1", resp.Data.UserID)
	assert.Equal(t, 250, resp.Data.Points)
	assert.Equal(t, 1, resp.Data.Level)
	assert.Equal(t, []string{"first_blood"}, resp.Data.Achievements)
	require.Len(t, resp.Data.Awards, 1)
	require.Len(t, resp.Data.Labs, 1)
	assert.Equal(t, "level-1", resp.Data.Labs[0].LabID)

	out, err = execute(t, "", append([]string{"status", "--user", "nobody"}, sqliteFlags(dir)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "points:       0 (level 1)")
	assert.Contains(t, out, "achievements: none")
}

func TestLabsReset(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "lab level-1 sql_injection 100\nlab level-2 sql_injection 100\n",
		append([]string{"play", "--user", "u1"}, sqliteFlags(dir)...)...)
	require.NoError(t, err)

	out, err := execute(t, "", append([]string{"labs", "reset", "--user", "u1"}, sqliteFlags(dir)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "removed 2 lab completion(s) for u1")

	// Labs can be claimed again; points already paid stay.
	out, err = execute(t, "lab level-1 sql_injection 100\nstatus\n",
		append([]string{"play", "--user", "u1"}, sqliteFlags(dir)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "lab sql_injection/level-1 recorded (+100 points)")
	assert.Contains(t, out, "points:       300")
}
