package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartupWaves_Chain(t *testing.T) {
	waves, err := startupWaves(map[string][]string{
		"db":    nil,
		"api":   {"db"},
		"front": {"api"},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"db"}, {"api"}, {"front"}}, waves)
}

func TestStartupWaves_Diamond(t *testing.T) {
	waves, err := startupWaves(map[string][]string{
		"db":    nil,
		"cache": nil,
		"api":   {"db", "cache"},
		"web":   {"api"},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"cache", "db"}, {"api"}, {"web"}}, waves)
}

func TestStartupWaves_Independent(t *testing.T) {
	waves, err := startupWaves(map[string][]string{
		"a": nil,
		"b": nil,
		"c": nil,
	})
	require.NoError(t, err)
	require.Len(t, waves, 1)
	assert.Equal(t, []string{"a", "b", "c"}, waves[0], "waves are sorted for determinism")
}

func TestStartupWaves_Empty(t *testing.T) {
	waves, err := startupWaves(nil)
	require.NoError(t, err)
	assert.Empty(t, waves)
}

func TestStartupWaves_Cycle(t *testing.T) {
	_, err := startupWaves(map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	})
	var cyc *CyclicDependencyError
	require.ErrorAs(t, err, &cyc)
	assert.Equal(t, []string{"a", "b", "c"}, cyc.Services)
}

func TestStartupWaves_CycleNamesDownstream(t *testing.T) {
	// A service hanging off a cycle can never start either, so it is
	// reported alongside the cycle's members.
	_, err := startupWaves(map[string][]string{
		"a":        {"b"},
		"b":        {"a"},
		"stranded": {"a"},
		"fine":     nil,
	})
	var cyc *CyclicDependencyError
	require.ErrorAs(t, err, &cyc)
	assert.Equal(t, []string{"a", "b", "stranded"}, cyc.Services)
}

func TestStartupWaves_SelfCycle(t *testing.T) {
	_, err := startupWaves(map[string][]string{"a": {"a"}})
	var cyc *CyclicDependencyError
	require.ErrorAs(t, err, &cyc)
	assert.Equal(t, []string{"a"}, cyc.Services)
}
