package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPokerTokens_AreUnique(t *testing.T) {
	tokens := PokerTokens()
	assert.Len(t, tokens, 52)
	seen := map[string]bool{}
	for _, tok := range tokens {
		assert.False(t, seen[tok], tok)
		seen[tok] = true
	}
}

func TestDeck_ShuffleAndDraw(t *testing.T) {
	d := NewDeck(PokerTokens(), SeededShuffler(7))
	d.Shuffle()
	drawn := append(d.Draw(2), d.Draw(50)...)
	assert.ElementsMatch(t, PokerTokens(), drawn)
	assert.Empty(t, d.Draw(1))
	assert.Equal(t, 0, d.Len())

	d.Shuffle()
	assert.Equal(t, 52, d.Len(), "shuffle restores the full deck")
}

func TestDeck_SeededShuffleIsDeterministic(t *testing.T) {
	a := NewDeck(PokerTokens(), SeededShuffler(42))
	b := NewDeck(PokerTokens(), SeededShuffler(42))
	a.Shuffle()
	b.Shuffle()
	assert.Equal(t, a.Draw(52), b.Draw(52))
}

func TestDeck_RecycleDiscards(t *testing.T) {
	d := NewDeck(GeneratedTokens(4), SeededShuffler(1))
	hand := d.Draw(4)
	d.Discard(hand[:2]...)
	assert.Equal(t, 0, d.Len())
	d.Recycle()
	assert.ElementsMatch(t, hand[:2], d.Draw(5))
}

func TestGeneratedTokens(t *testing.T) {
	assert.Equal(t, []string{"c01", "c02", "c03"}, GeneratedTokens(3))
}

func TestDirTokens(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "thumbs"), 0o700))

	tokens, err := DirTokens(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.png"}, tokens)

	_, err = DirTokens(filepath.Join(dir, "thumbs"))
	assert.Error(t, err)
}

func TestCommandError_IsMatchesKind(t *testing.T) {
	err := Errorf(KindWrongAmount, "need %d", 30)
	assert.True(t, errors.Is(err, ErrWrongAmount))
	assert.False(t, errors.Is(err, ErrWrongAction))
	assert.Equal(t, "wrong amount: need 30", err.Error())

	var ce *CommandError
	require.ErrorAs(t, errors.Join(errors.New("ctx"), err), &ce)
	assert.Equal(t, KindWrongAmount, ce.Kind)
}
