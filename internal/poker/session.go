package poker

import (
	"encoding/json"
	"time"

	"github.com/DoyleJ11/cardtable-backend/internal/engine"
	"github.com/DoyleJ11/cardtable-backend/internal/handeval"
)

// Evaluator ranks a hand; lower ordinals win.
type Evaluator interface {
	Evaluate(hole, board []string) (handeval.Strength, error)
}

// Session is the poker table a room talks to. It is not safe for concurrent
// use; the owning room applies one command at a time.
type Session struct {
	cfg   Config
	state State
	deck  *engine.Deck
	eval  Evaluator
}

func NewSession(cfg Config, deck *engine.Deck, eval Evaluator) *Session {
	s := &Session{cfg: cfg, deck: deck, eval: eval}
	s.reset()
	return s
}

func (s *Session) reset() {
	s.state = State{
		Status:     StatusSetup,
		Players:    engine.NewRoster[Player](s.cfg.Seats),
		SmallBlind: s.cfg.SmallBlind,
	}
}

func (s *Session) Kind() string            { return "poker" }
func (s *Session) Seats() int              { return s.cfg.Seats }
func (s *Session) WinDelay() time.Duration { return s.cfg.WinDelay }
func (s *Session) Started() bool           { return s.state.Status != StatusSetup }

// State returns a deep copy of the unredacted table.
func (s *Session) State() State { return s.state.clone() }

// Start seats a player with the buy-in on every occupied seat and deals the
// first hand.
func (s *Session) Start(occupied []bool) (bool, error) {
	if s.state.Status != StatusSetup {
		return false, engine.Errorf(engine.KindFalseStart, "cannot start game that is in %s state", s.state.Status)
	}
	seated := 0
	for i, ok := range occupied {
		if ok && i < s.cfg.Seats {
			s.state.Players.Set(i, &Player{Stack: s.cfg.BuyIn})
			seated++
		}
	}
	if seated == 0 {
		s.reset()
		return false, engine.Errorf(engine.KindFalseStart, "no seated players")
	}
	return s.startRound(), nil
}

// Apply decodes an {action, amount} payload and acts for seat.
func (s *Session) Apply(seat int, payload json.RawMessage) (bool, error) {
	var a Action
	if err := json.Unmarshal(payload, &a); err != nil {
		return false, engine.Errorf(engine.KindUnknownCommand, "malformed poker action: %v", err)
	}
	return s.Act(seat, a)
}

// Act applies a betting command. It reports true when the hand ended and the
// room should schedule NextRound.
func (s *Session) Act(seat int, a Action) (bool, error) {
	st := &s.state
	if st.Players.At(seat) == nil {
		return false, engine.Errorf(engine.KindWrongUser, "seat %d is empty", seat)
	}
	if !st.Status.Betting() {
		return false, engine.Errorf(engine.KindWrongPhase, "no betting in %s", st.Status)
	}
	if seat != st.Turn {
		return false, engine.Errorf(engine.KindWrongUser, "seat %d acted out of turn, waiting for seat %d", seat, st.Turn)
	}
	return s.act(seat, a)
}

// NextRound deals the next hand after a finished one. It is a no-op unless the
// last hand ended, so a late timer after a reset or teardown is harmless.
func (s *Session) NextRound() bool {
	if s.state.Status != StatusVictory {
		return false
	}
	if s.state.Players.Count(nil) == 0 {
		s.reset()
		return false
	}
	return s.startRound()
}

// Vacate clears a seat. Chips already bet this round stay in the pot. It
// reports true if the departure ended the hand.
func (s *Session) Vacate(seat int) bool {
	st := &s.state
	p := st.Players.At(seat)
	if p == nil {
		return false
	}
	st.Pot += p.Bet
	st.Players.Clear(seat)
	if st.Players.Count(nil) == 0 {
		s.reset()
		return false
	}
	if !st.Status.Betting() {
		return false
	}
	st.logf("seat %d left the table", seat)
	if seat == st.Turn || s.bettingDone() {
		return s.proceed()
	}
	return false
}

// LastResult is the outcome of the most recent hand, for the results store.
func (s *Session) LastResult() (int, any) {
	if s.state.LastResult == nil {
		return 0, nil
	}
	r := *s.state.LastResult
	return r.Round, r
}

// View is one player's picture of the table.
type View struct {
	Status          State    `json:"status"`
	Seat            int      `json:"seat"`
	ExpectedActions []Action `json:"expected_actions"`
}

// View redacts other players' hole cards for viewer (-1 for a spectator).
// Cards stay visible for the viewer's own seat, for fold_show, for players
// still in the hand once it is decided, and while everyone left is all-in.
func (s *Session) View(viewer int) any {
	st := s.state.clone()
	reveal := st.Status == StatusVictory || st.AllInRound()
	st.Players.Each(func(seat int, p *Player) {
		if seat == viewer || len(p.Cards) == 0 {
			return
		}
		if p.LastAction != nil && p.LastAction.Action == ActionFoldShow {
			return
		}
		if reveal && inHand(p) {
			return
		}
		p.Cards = engine.Hide(p.Cards)
	})
	v := View{Status: st, Seat: viewer}
	if viewer >= 0 && viewer == st.Turn {
		v.ExpectedActions = LegalActions(&st)
	}
	return v
}
