package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqlAchievement(id string, value int) Achievement {
	return Achievement{
		ID:               id,
		Name:             id,
		Points:           200,
		RequirementType:  KindSQLLevels,
		RequirementValue: value,
	}
}

func TestNew_PreservesDeclarationOrder(t *testing.T) {
	c, err := New([]Achievement{
		sqlAchievement("b", 5),
		sqlAchievement("a", 1),
		sqlAchievement("c", 3),
	}, nil)
	require.NoError(t, err)

	var ids []string
	for _, a := range c.Achievements() {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
	assert.Equal(t, 3, c.Len())
}

func TestNew_RejectsDuplicateID(t *testing.T) {
	_, err := New([]Achievement{sqlAchievement("x", 1), sqlAchievement("x", 2)}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate achievement id")
}

func TestNew_RejectsUnknownRequirementType(t *testing.T) {
	a := sqlAchievement("x", 1)
	a.RequirementType = "bogus"

	_, err := New([]Achievement{a}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown requirement type")
}

func TestNew_RejectsMissingName(t *testing.T) {
	a := sqlAchievement("x", 1)
	a.Name = ""

	_, err := New([]Achievement{a}, nil)
	require.Error(t, err)
}

func TestNew_RejectsNegativePoints(t *testing.T) {
	a := sqlAchievement("x", 1)
	a.Points = -5

	_, err := New([]Achievement{a}, nil)
	require.Error(t, err)
}

func TestNew_SyntheticTypeNeedsMasteryRule(t *testing.T) {
	master := Achievement{ID: "m", Name: "m", RequirementType: KindSQLMaster, RequirementValue: 1}

	_, err := New([]Achievement{master}, nil)
	require.Error(t, err)

	c, err := New([]Achievement{master}, []MasteryRule{{Counter: KindSQLLevels, Total: 8, Grants: KindSQLMaster}})
	require.NoError(t, err)
	assert.Len(t, c.MasteryFor(KindSQLLevels), 1)
}

func TestNew_MasteryValidation(t *testing.T) {
	tests := []struct {
		name string
		rule MasteryRule
	}{
		{"counter not incrementable", MasteryRule{Counter: KindPoints, Total: 5, Grants: KindCryptoMaster}},
		{"grants counted kind", MasteryRule{Counter: KindCryptoPuzzles, Total: 5, Grants: KindSQLLevels}},
		{"grants challenges", MasteryRule{Counter: KindCryptoPuzzles, Total: 5, Grants: KindChallenges}},
		{"zero total", MasteryRule{Counter: KindCryptoPuzzles, Total: 0, Grants: KindCryptoMaster}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil, []MasteryRule{tt.rule})
			assert.Error(t, err)
		})
	}
}

func TestEligible_ThresholdIsInclusive(t *testing.T) {
	c, err := New([]Achievement{
		sqlAchievement("one", 1),
		sqlAchievement("five", 5),
		{ID: "pts", Name: "pts", RequirementType: KindPoints, RequirementValue: 1},
	}, nil)
	require.NoError(t, err)

	assert.Empty(t, c.Eligible(KindSQLLevels, 0))
	assert.Len(t, c.Eligible(KindSQLLevels, 4), 1)

	got := c.Eligible(KindSQLLevels, 5)
	require.Len(t, got, 2)
	assert.Equal(t, "one", got[0].ID)
	assert.Equal(t, "five", got[1].ID)
}

func TestLookup(t *testing.T) {
	c, err := New([]Achievement{sqlAchievement("one", 1)}, nil)
	require.NoError(t, err)

	a, ok := c.Lookup("one")
	require.True(t, ok)
	assert.Equal(t, 200, a.Points)

	_, ok = c.Lookup("missing")
	assert.False(t, ok)
}

func TestAchievements_ReturnsCopy(t *testing.T) {
	c, err := New([]Achievement{sqlAchievement("one", 1)}, nil)
	require.NoError(t, err)

	list := c.Achievements()
	list[0].Points = 9999

	a, _ := c.Lookup("one")
	assert.Equal(t, 200, a.Points)
}

func TestCounters_Sorted(t *testing.T) {
	assert.Equal(t, []CounterKind{
		KindChatMessages,
		KindCryptoPuzzles,
		KindMissions,
		KindSQLLevels,
		KindTerminalFlags,
	}, Counters())
	assert.False(t, IsIncrementable(KindPoints))
	assert.False(t, IsIncrementable(KindCryptoMaster))
}
