package rules

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewEngine_RejectsInvalidRules(t *testing.T) {
	t.Parallel()

	_, err := NewEngine([]Rule{{Name: "bad action", When: "true", Action: "respond"}})
	require.Error(t, err)

	_, err = NewEngine([]Rule{{Name: "empty", When: "   ", Action: "ignore"}})
	require.Error(t, err)
}

func TestMatch_FirstMatchWins(t *testing.T) {
	t.Parallel()

	eng, err := NewEngine([]Rule{
		{Name: "boss", When: `sender contains "boss@corp.example"`, Action: "notify"},
		{Name: "corp bulk", When: `sender endsWith "@corp.example"`, Action: "ignore"},
	})
	require.NoError(t, err)

	action, ok, err := eng.Match("Boss@corp.example", "plans", "meet at 9")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "notify", action)

	action, ok, err = eng.Match("intern@corp.example", "", "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "ignore", action)
}

func TestMatch_CaseInsensitiveFields(t *testing.T) {
	t.Parallel()

	eng, err := NewEngine([]Rule{
		{Name: "unsubscribe", When: `body contains "unsubscribe"`, Action: "ignore"},
	})
	require.NoError(t, err)

	action, ok, err := eng.Match("shop@example.com", "Deals", "Click here to UNSUBSCRIBE")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "ignore", action)
}

func TestMatch_NoMatch(t *testing.T) {
	t.Parallel()

	eng, err := NewEngine([]Rule{
		{Name: "newsletters", When: `subject contains "newsletter"`, Action: "ignore"},
	})
	require.NoError(t, err)

	_, ok, err := eng.Match("alice@example.com", "lunch?", "are you free")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMatch_BadExpressionReturnsError(t *testing.T) {
	t.Parallel()

	eng, err := NewEngine([]Rule{
		{Name: "broken", When: `sender +`, Action: "ignore"},
	})
	require.NoError(t, err)

	_, _, err = eng.Match("a@b.c", "s", "b")
	require.Error(t, err)
}

func TestMatch_NonBooleanExpressionReturnsError(t *testing.T) {
	t.Parallel()

	eng, err := NewEngine([]Rule{
		{Name: "not a bool", When: `subject`, Action: "ignore"},
	})
	require.NoError(t, err)

	_, _, err = eng.Match("a@b.c", "s", "b")
	require.Error(t, err)
}

func TestProgramCacheReuse(t *testing.T) {
	t.Parallel()

	eng, err := NewEngine([]Rule{
		{Name: "cached", When: `subject contains "ping"`, Action: "notify"},
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		action, ok, err := eng.Match("a@b.c", "ping pong", "")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "notify", action)
	}
	require.Len(t, eng.programs, 1)
}
