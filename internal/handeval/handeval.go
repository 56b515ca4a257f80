// Package handeval ranks Texas Hold'em hands with github.com/paulhankin/poker.
package handeval

import (
	"fmt"

	"github.com/paulhankin/poker"
)

// Strength is a comparable hand value. Lower Ordinal is a stronger hand.
type Strength struct {
	Ordinal  int
	Category string
}

// Evaluator scores two hole cards against a five-card board.
type Evaluator struct{}

func New() Evaluator { return Evaluator{} }

// Evaluate builds the seven-card hand and scores it.
func (Evaluator) Evaluate(hole, board []string) (Strength, error) {
	if len(hole) != 2 || len(board) != 5 {
		return Strength{}, fmt.Errorf("need 2 hole and 5 board cards, got %d and %d", len(hole), len(board))
	}
	var hand [7]poker.Card
	for i, tok := range append(append([]string{}, board...), hole...) {
		c, err := ParseCard(tok)
		if err != nil {
			return Strength{}, err
		}
		hand[i] = c
	}
	label, err := poker.Describe(hand[:])
	if err != nil {
		return Strength{}, fmt.Errorf("describing hand: %w", err)
	}
	// Eval7 grows with hand strength; flip it so the best hand has the lowest ordinal.
	return Strength{Ordinal: -int(poker.Eval7(&hand)), Category: label}, nil
}

var noCard poker.Card

// ParseCard converts a rank+suit token such as "As" or "Td".
func ParseCard(tok string) (poker.Card, error) {
	if len(tok) != 2 {
		return noCard, fmt.Errorf("invalid card token %q", tok)
	}
	var r poker.Rank
	switch ch := tok[0]; {
	case ch >= '2' && ch <= '9':
		r = poker.Rank(ch - '0')
	case ch == 'T':
		r = 10
	case ch == 'J':
		r = 11
	case ch == 'Q':
		r = 12
	case ch == 'K':
		r = 13
	case ch == 'A':
		r = 1
	default:
		return noCard, fmt.Errorf("invalid rank in %q", tok)
	}
	var s poker.Suit
	switch tok[1] {
	case 's':
		s = poker.Spade
	case 'h':
		s = poker.Heart
	case 'd':
		s = poker.Diamond
	case 'c':
		s = poker.Club
	default:
		return noCard, fmt.Errorf("invalid suit in %q", tok)
	}
	c, err := poker.MakeCard(s, r)
	if err != nil {
		return noCard, fmt.Errorf("card %q: %w", tok, err)
	}
	return c, nil
}
