// Package dixit runs storytelling rounds of the picture-card game Dixit.
package dixit

import (
	"slices"
	"time"

	"github.com/DoyleJ11/cardtable-backend/internal/engine"
)

type Status string

const (
	StatusInitial Status = "initial"
	// StatusPhase1: the storyteller picks a card.
	StatusPhase1 Status = "phase1"
	// StatusPhase2: everyone else adds a card.
	StatusPhase2 Status = "phase2"
	// StatusPhase3: everyone but the storyteller guesses.
	StatusPhase3  Status = "phase3"
	StatusResults Status = "results"
)

// Active reports whether the status accepts player actions.
func (s Status) Active() bool {
	return s == StatusPhase1 || s == StatusPhase2 || s == StatusPhase3
}

type Player struct {
	Seat   int      `json:"seat"`
	Points int      `json:"pts"`
	Cards  []string `json:"cards"`
	Acted  bool     `json:"acted"`
	Guess  *string  `json:"guess"`
}

func (p *Player) clone() *Player {
	c := *p
	c.Cards = slices.Clone(p.Cards)
	if p.Guess != nil {
		g := *p.Guess
		c.Guess = &g
	}
	return &c
}

// takeCard removes chosen from the hand.
func (p *Player) takeCard(chosen string) error {
	i := slices.Index(p.Cards, chosen)
	if i < 0 {
		return engine.Errorf(engine.KindMissingCard, "card %s is not in the hand of seat %d", chosen, p.Seat)
	}
	p.Cards = slices.Delete(p.Cards, i, i+1)
	return nil
}

// TableCard is a card played this round. Author is -1 when redacted.
type TableCard struct {
	Card     string `json:"card"`
	Author   int    `json:"author"`
	Original bool   `json:"original"`
	Votes    []int  `json:"votes"`
}

type Result struct {
	Round     int   `json:"round"`
	Correct   []int `json:"players_guessed_correctly"`
	Incorrect []int `json:"players_guessed_incorrectly"`
}

type State struct {
	Status        Status                `json:"status"`
	Players       engine.Roster[Player] `json:"players"`
	CurrentPlayer int                   `json:"current_player"`
	Table         []TableCard           `json:"table"`
	LastResult    *Result               `json:"last_round_result"`
	Round         int                   `json:"round"`
}

func (st *State) clone() State {
	c := *st
	c.Players = st.Players.Clone((*Player).clone)
	c.Table = make([]TableCard, len(st.Table))
	for i, tc := range st.Table {
		tc.Votes = slices.Clone(tc.Votes)
		c.Table[i] = tc
	}
	if st.LastResult != nil {
		r := *st.LastResult
		r.Correct = slices.Clone(r.Correct)
		r.Incorrect = slices.Clone(r.Incorrect)
		c.LastResult = &r
	}
	return c
}

func (st *State) tableIndex(card string) int {
	return slices.IndexFunc(st.Table, func(tc TableCard) bool { return tc.Card == card })
}

// Action is the {seat, chosen} wire command used in every phase.
type Action struct {
	Seat   int    `json:"seat"`
	Chosen string `json:"chosen"`
}

type Config struct {
	Seats    int
	HandSize int
	WinDelay time.Duration
}

func DefaultConfig() Config {
	return Config{Seats: 10, HandSize: 5, WinDelay: 12 * time.Second}
}
