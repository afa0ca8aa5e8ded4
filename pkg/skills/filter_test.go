package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterByAllowlist(t *testing.T) {
	all := map[string]*Skill{
		"pdf":               {Name: "pdf"},
		"xlsx":              {Name: "xlsx"},
		"acme/toolbox/lint": {Name: "acme/toolbox/lint"},
	}

	t.Run("empty allowlist keeps everything", func(t *testing.T) {
		filtered, err := FilterByAllowlist(all, nil)
		require.NoError(t, err)
		assert.Len(t, filtered, 3)
	})

	t.Run("exact names", func(t *testing.T) {
		filtered, err := FilterByAllowlist(all, []string{"pdf", "missing"})
		require.NoError(t, err)
		assert.Len(t, filtered, 1)
		assert.Contains(t, filtered, "pdf")
	})

	t.Run("glob patterns respect separators", func(t *testing.T) {
		filtered, err := FilterByAllowlist(all, []string{"acme/*/*"})
		require.NoError(t, err)
		assert.Equal(t, []string{"acme/toolbox/lint"}, keys(filtered))

		filtered, err = FilterByAllowlist(all, []string{"acme/*"})
		require.NoError(t, err)
		assert.Empty(t, filtered)

		filtered, err = FilterByAllowlist(all, []string{"acme/**"})
		require.NoError(t, err)
		assert.Len(t, filtered, 1)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := FilterByAllowlist(all, []string{"[unterminated"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid skill allowlist pattern")
	})
}

func keys(m map[string]*Skill) []string {
	result := make([]string, 0, len(m))
	for k := range m {
		result = append(result, k)
	}
	return result
}
