package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewFingerSet(t *testing.T) {
	set, err := NewFingerSet(Pinky, Thumb, Pinky)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Has(Thumb))
	assert.True(t, set.Has(Pinky))
	assert.False(t, set.Has(Index))
	assert.Equal(t, []FingerName{Thumb, Pinky}, set.Fingers())

	_, err = NewFingerSet(Thumb, "toe")
	assert.ErrorIs(t, err, ErrUnknownFinger)
}

func TestParseFingerSet(t *testing.T) {
	set, err := ParseFingerSet([]string{"ring", "index"})
	require.NoError(t, err)
	assert.Equal(t, []string{"index", "ring"}, set.Strings())

	empty, err := ParseFingerSet(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	_, err = ParseFingerSet([]string{"Index"})
	assert.ErrorIs(t, err, ErrUnknownFinger)
}

func TestFingerSetJSON(t *testing.T) {
	set, err := NewFingerSet(Middle, Thumb)
	require.NoError(t, err)

	data, err := json.Marshal(set)
	require.NoError(t, err)
	assert.JSONEq(t, `["thumb","middle"]`, string(data))

	var decoded FingerSet
	require.NoError(t, json.Unmarshal([]byte(`["middle","thumb","thumb"]`), &decoded))
	assert.True(t, decoded.Equal(set))

	assert.Error(t, json.Unmarshal([]byte(`["elbow"]`), &decoded))

	empty, err := json.Marshal(FingerSet(0))
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(empty))
}

func TestFingerSetLenMatchesFingersProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		set := genFingerSet().Draw(t, "set")
		fingers := set.Fingers()
		if len(fingers) != set.Len() {
			t.Fatalf("Len %d but %d fingers", set.Len(), len(fingers))
		}
		rebuilt, err := NewFingerSet(fingers...)
		if err != nil {
			t.Fatal(err)
		}
		if !rebuilt.Equal(set) {
			t.Fatalf("rebuilt %v != %v", rebuilt, set)
		}
	})
}
