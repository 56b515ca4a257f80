// Package poker runs Texas Hold'em hands for a table of optional seats.
package poker

import (
	"fmt"
	"slices"
	"time"

	"github.com/DoyleJ11/cardtable-backend/internal/engine"
)

type Status string

const (
	StatusSetup    Status = "setup"
	StatusPreflop  Status = "preflop"
	StatusFlop     Status = "flop"
	StatusTurn     Status = "turn"
	StatusRiver    Status = "river"
	StatusVictory  Status = "victory"
	StatusFinished Status = "finished"
)

// Betting reports whether players act in this status.
func (s Status) Betting() bool {
	switch s {
	case StatusPreflop, StatusFlop, StatusTurn, StatusRiver:
		return true
	}
	return false
}

type ActionKind string

const (
	ActionCall     ActionKind = "call"
	ActionRaise    ActionKind = "raise"
	ActionBet      ActionKind = "bet"
	ActionCheck    ActionKind = "check"
	ActionFold     ActionKind = "fold"
	ActionFoldShow ActionKind = "fold_show"
)

func (k ActionKind) known() bool {
	switch k {
	case ActionCall, ActionRaise, ActionBet, ActionCheck, ActionFold, ActionFoldShow:
		return true
	}
	return false
}

// NoMinimum marks a legal action that takes no amount.
const NoMinimum = -1

// Action is both a player command and, in a legal-action list, the minimum
// amount that command requires.
type Action struct {
	Action ActionKind `json:"action"`
	Amount int        `json:"amount"`
}

type Player struct {
	Stack      int      `json:"stack"`
	Bet        int      `json:"bet"`
	Cards      []string `json:"cards"`
	Folded     bool     `json:"folded"`
	AllIn      bool     `json:"all_in"`
	SittingOut bool     `json:"sitting_out"`
	Acted      bool     `json:"acted"`
	LastAction *Action  `json:"last_action,omitempty"`
}

// commit moves up to amount chips from the stack into the current bet and
// returns what was actually paid.
func (p *Player) commit(amount int) int {
	pay := min(max(amount, 0), p.Stack)
	p.Stack -= pay
	p.Bet += pay
	if p.Stack == 0 {
		p.AllIn = true
	}
	return pay
}

func (p *Player) clone() *Player {
	c := *p
	c.Cards = slices.Clone(p.Cards)
	if p.LastAction != nil {
		a := *p.LastAction
		c.LastAction = &a
	}
	return &c
}

func inHand(p *Player) bool { return !p.Folded }

func canAct(p *Player) bool { return !p.Folded && !p.AllIn }

func funded(p *Player) bool { return p.Stack > 0 }

type Payout struct {
	Seat   int `json:"seat"`
	Amount int `json:"amount"`
}

// Result describes how the last hand ended. Combination is nil when every
// other player folded.
type Result struct {
	Round       int      `json:"round"`
	Winners     []Payout `json:"winners"`
	Combination *string  `json:"combination,omitempty"`
}

type State struct {
	Status      Status                `json:"status"`
	Players     engine.Roster[Player] `json:"players"`
	Dealer      int                   `json:"dealer"`
	Turn        int                   `json:"turn"`
	Table       []string              `json:"table"`
	Pot         int                   `json:"bank"`
	SmallBlind  int                   `json:"small_blind"`
	TotalRounds int                   `json:"total_rounds"`
	LastResult  *Result               `json:"last_result,omitempty"`
	Log         []string              `json:"log"`
}

func (st *State) logf(format string, args ...any) {
	st.Log = append(st.Log, fmt.Sprintf(format, args...))
}

// MaxBet is the highest current-round bet among players still in the hand.
func (st *State) MaxBet() int {
	m := 0
	st.Players.Each(func(_ int, p *Player) {
		if inHand(p) && p.Bet > m {
			m = p.Bet
		}
	})
	return m
}

// ActiveSeats lists seats still contesting the pot, ascending.
func (st *State) ActiveSeats() []int { return st.Players.Indices(inHand) }

// AllInRound is true when every player left in the hand is all-in, so hole
// cards no longer need hiding.
func (st *State) AllInRound() bool {
	return st.Status.Betting() && st.Players.Count(inHand) >= 2 && st.Players.Count(canAct) == 0
}

// Chips is the total money on the table: stacks, current bets and the pot.
func (st *State) Chips() int {
	total := st.Pot
	st.Players.Each(func(_ int, p *Player) { total += p.Stack + p.Bet })
	return total
}

func (st *State) clone() State {
	c := *st
	c.Players = st.Players.Clone((*Player).clone)
	c.Table = slices.Clone(st.Table)
	c.Log = slices.Clone(st.Log)
	if st.LastResult != nil {
		r := *st.LastResult
		r.Winners = slices.Clone(st.LastResult.Winners)
		c.LastResult = &r
	}
	return c
}

// LegalActions computes what the seat holding the turn may do now. It is
// empty outside betting.
func LegalActions(st *State) []Action {
	if !st.Status.Betting() {
		return nil
	}
	p := st.Players.At(st.Turn)
	if p == nil || !canAct(p) {
		return nil
	}
	if deficit := st.MaxBet() - p.Bet; deficit > 0 {
		return []Action{
			{Action: ActionCall, Amount: deficit},
			{Action: ActionRaise, Amount: 2 * deficit},
			{Action: ActionFold, Amount: NoMinimum},
			{Action: ActionFoldShow, Amount: NoMinimum},
		}
	}
	return []Action{
		{Action: ActionCheck, Amount: NoMinimum},
		{Action: ActionBet, Amount: 2 * st.SmallBlind},
		{Action: ActionFold, Amount: NoMinimum},
		{Action: ActionFoldShow, Amount: NoMinimum},
	}
}

type Config struct {
	Seats      int
	BuyIn      int
	SmallBlind int
	WinDelay   time.Duration
}

func DefaultConfig() Config {
	return Config{Seats: 9, BuyIn: 1500, SmallBlind: 15, WinDelay: 6 * time.Second}
}
