package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNormalizeSelections(t *testing.T) {
	t.Run("historical sequence becomes a map of trues", func(t *testing.T) {
		got, ok := NormalizeSelections([]any{"radial", "median"})
		require.True(t, ok)
		assert.Equal(t, map[string]bool{"radial": true, "median": true}, got)
	})

	t.Run("string slice is accepted on the write path", func(t *testing.T) {
		got, ok := NormalizeSelections([]string{"ulnar"})
		require.True(t, ok)
		assert.Equal(t, map[string]bool{"ulnar": true}, got)
	})

	t.Run("current map shape passes through", func(t *testing.T) {
		got, ok := NormalizeSelections(map[string]any{"radial": true, "median": false})
		require.True(t, ok)
		assert.Equal(t, map[string]bool{"radial": true, "median": false}, got)
	})

	t.Run("typed map is copied, not aliased", func(t *testing.T) {
		src := map[string]bool{"radial": true}
		got, ok := NormalizeSelections(src)
		require.True(t, ok)
		got["median"] = true
		assert.NotContains(t, src, "median")
	})

	t.Run("absence is empty", func(t *testing.T) {
		got, ok := NormalizeSelections(nil)
		require.True(t, ok)
		assert.Empty(t, got)
	})

	t.Run("non-boolean map values are dropped", func(t *testing.T) {
		got, ok := NormalizeSelections(map[string]any{"radial": true, "median": "yes"})
		require.True(t, ok)
		assert.Equal(t, map[string]bool{"radial": true}, got)
	})

	t.Run("sequence with non-string element is malformed", func(t *testing.T) {
		got, ok := NormalizeSelections([]any{"radial", 7})
		assert.False(t, ok)
		assert.Empty(t, got, "malformed shapes degrade to empty, never error")
	})

	t.Run("unrecognized shapes are malformed", func(t *testing.T) {
		for _, v := range []any{42, "radial", true, 3.14} {
			got, ok := NormalizeSelections(v)
			assert.False(t, ok, "%T", v)
			assert.Empty(t, got)
		}
	})
}

func TestCanonicalSelections(t *testing.T) {
	t.Run("only affirmative selections persist", func(t *testing.T) {
		got := CanonicalSelections(map[string]bool{"radial": true, "median": false})
		assert.Equal(t, map[string]any{"radial": true}, got)
	})

	t.Run("map form round-trips unchanged", func(t *testing.T) {
		normalized, ok := NormalizeSelections(map[string]any{"radial": true})
		require.True(t, ok)
		assert.Equal(t, map[string]any{"radial": true}, CanonicalSelections(normalized))
	})

	t.Run("sequence form round-trips into the canonical map", func(t *testing.T) {
		normalized, ok := NormalizeSelections([]any{"radial", "median"})
		require.True(t, ok)
		assert.Equal(t, map[string]any{"radial": true, "median": true},
			CanonicalSelections(normalized))
	})
}

// TestNormalizeRoundTripProperty pins losslessness for both historical
// shapes: any set of identifiers survives sequence → normalize → canonical,
// and the canonical form is a normalization fixpoint.
func TestNormalizeRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		drawn := rapid.SliceOf(rapid.StringMatching(`[a-z][a-z-]{0,12}`)).Draw(t, "ids")

		var seq []any
		want := map[string]any{}
		for _, s := range drawn {
			if _, dup := want[s]; dup {
				continue
			}
			seq = append(seq, s)
			want[s] = true
		}

		normalized, ok := NormalizeSelections(seq)
		require.True(t, ok)
		canonical := CanonicalSelections(normalized)
		require.Equal(t, want, canonical)

		// The canonical form normalizes to itself.
		again, ok := NormalizeSelections(canonical)
		require.True(t, ok)
		require.Equal(t, canonical, CanonicalSelections(again))
	})
}
