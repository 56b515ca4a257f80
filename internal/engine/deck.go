package engine

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"
	"os"
	"slices"
)

// Shuffler permutes n elements through swap, the same contract as
// rand.Shuffle.
type Shuffler func(n int, swap func(i, j int))

// NewShuffler returns a Shuffler backed by a ChaCha8 stream seeded from the
// operating system.
func NewShuffler() Shuffler {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic(fmt.Sprintf("engine: seeding shuffler: %v", err))
	}
	return rand.New(rand.NewChaCha8(seed)).Shuffle
}

// SeededShuffler is deterministic for a given seed.
func SeededShuffler(seed uint64) Shuffler {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)).Shuffle
}

// Deck hands out unique card tokens. It is owned by a single session.
type Deck struct {
	full    []string
	cards   []string
	discard []string
	shuffle Shuffler
}

// NewDeck builds a deck over the given tokens. Tokens are expected to be unique.
func NewDeck(tokens []string, shuffle Shuffler) *Deck {
	if shuffle == nil {
		shuffle = NewShuffler()
	}
	return &Deck{full: slices.Clone(tokens), cards: slices.Clone(tokens), shuffle: shuffle}
}

// Shuffle restores every token into the deck and permutes it.
func (d *Deck) Shuffle() {
	d.cards = append(d.cards[:0], d.full...)
	d.discard = d.discard[:0]
	d.shuffle(len(d.cards), func(i, j int) { d.cards[i], d.cards[j] = d.cards[j], d.cards[i] })
}

// Draw takes up to n tokens from the top. Fewer are returned once the deck
// runs dry.
func (d *Deck) Draw(n int) []string {
	n = min(n, len(d.cards))
	out := slices.Clone(d.cards[:n])
	d.cards = d.cards[n:]
	return out
}

// Len is the number of tokens left to draw.
func (d *Deck) Len() int { return len(d.cards) }

// Discard parks tokens that left play until Recycle.
func (d *Deck) Discard(tokens ...string) {
	d.discard = append(d.discard, tokens...)
}

// Recycle shuffles the discard pile under the remaining cards.
func (d *Deck) Recycle() {
	if len(d.discard) == 0 {
		return
	}
	pile := d.discard
	d.discard = nil
	d.shuffle(len(pile), func(i, j int) { pile[i], pile[j] = pile[j], pile[i] })
	d.cards = append(d.cards, pile...)
}

const pokerRanks = "23456789TJQKA"
const pokerSuits = "shdc"

// PokerTokens lists the 52 standard cards as rank+suit tokens ("As", "Td").
func PokerTokens() []string {
	out := make([]string, 0, len(pokerRanks)*len(pokerSuits))
	for _, r := range pokerRanks {
		for _, s := range pokerSuits {
			out = append(out, string(r)+string(s))
		}
	}
	return out
}

// GeneratedTokens names n picture cards c01, c02, ...
func GeneratedTokens(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("c%02d", i+1)
	}
	return out
}

// DirTokens lists the regular files of dir, sorted, as card tokens.
func DirTokens(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing card images: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			out = append(out, e.Name())
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no card images in %s", dir)
	}
	return out, nil
}

// HiddenCard replaces a token a viewer may not see.
const HiddenCard = "??"

// Hide returns one HiddenCard per token.
func Hide(tokens []string) []string {
	out := make([]string, len(tokens))
	for i := range out {
		out[i] = HiddenCard
	}
	return out
}
