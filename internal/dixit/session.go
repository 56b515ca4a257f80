package dixit

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/DoyleJ11/cardtable-backend/internal/engine"
)

// Session is the Dixit table a room talks to. Not safe for concurrent use.
type Session struct {
	cfg     Config
	state   State
	deck    *engine.Deck
	shuffle engine.Shuffler
}

// NewSession uses shuffle to mix the table before voting; the deck shuffles
// itself.
func NewSession(cfg Config, deck *engine.Deck, shuffle engine.Shuffler) *Session {
	if shuffle == nil {
		shuffle = engine.NewShuffler()
	}
	s := &Session{cfg: cfg, deck: deck, shuffle: shuffle}
	s.reset()
	return s
}

// reset parks the storyteller cursor before seat 0 so the first storyteller
// is the lowest occupied seat.
func (s *Session) reset() {
	s.state = State{
		Status:        StatusInitial,
		Players:       engine.NewRoster[Player](s.cfg.Seats),
		CurrentPlayer: -1,
	}
}

func (s *Session) Kind() string            { return "dixit" }
func (s *Session) Seats() int              { return s.cfg.Seats }
func (s *Session) WinDelay() time.Duration { return s.cfg.WinDelay }
func (s *Session) Started() bool           { return s.state.Status != StatusInitial }

// State returns a deep copy of the unredacted game.
func (s *Session) State() State { return s.state.clone() }

// Start seats everyone, shuffles the deck and opens the first round.
func (s *Session) Start(occupied []bool) (bool, error) {
	if s.state.Status != StatusInitial {
		return false, engine.Errorf(engine.KindFalseStart, "cannot start game that is in %s state", s.state.Status)
	}
	seated := 0
	for i, ok := range occupied {
		if ok && i < s.cfg.Seats {
			s.state.Players.Set(i, &Player{Seat: i, Cards: []string{}})
			seated++
		}
	}
	if seated == 0 {
		s.reset()
		return false, engine.Errorf(engine.KindFalseStart, "no seated players")
	}
	s.deck.Shuffle()
	s.startRound()
	return false, nil
}

// Apply decodes a {seat, chosen} payload. A payload without a seat is taken to
// come from the sender.
func (s *Session) Apply(seat int, payload json.RawMessage) (bool, error) {
	a := Action{Seat: seat}
	if err := json.Unmarshal(payload, &a); err != nil {
		return false, engine.Errorf(engine.KindUnknownCommand, "malformed dixit action: %v", err)
	}
	if a.Seat != seat {
		return false, engine.Errorf(engine.KindWrongUser, "seat %d cannot act for seat %d", seat, a.Seat)
	}
	return s.Act(a)
}

// Act gates the command by phase and applies it. It reports true when the
// round reached results.
func (s *Session) Act(a Action) (bool, error) {
	st := &s.state
	p := st.Players.At(a.Seat)
	if p == nil {
		return false, engine.Errorf(engine.KindWrongUser, "seat %d does not exist", a.Seat)
	}
	switch st.Status {
	case StatusPhase1:
		if a.Seat != st.CurrentPlayer {
			return false, engine.Errorf(engine.KindWrongUser, "only the storyteller (seat %d) acts in phase 1", st.CurrentPlayer)
		}
		return s.tell(a.Seat, a.Chosen)
	case StatusPhase2:
		if p.Acted {
			return false, engine.Errorf(engine.KindWrongUser, "seat %d already acted", a.Seat)
		}
		return s.contribute(a.Seat, a.Chosen)
	case StatusPhase3:
		if a.Seat == st.CurrentPlayer {
			return false, engine.Errorf(engine.KindWrongUser, "the storyteller does not guess")
		}
		if p.Guess != nil {
			return false, engine.Errorf(engine.KindWrongUser, "seat %d already guessed", a.Seat)
		}
		return s.guess(a.Seat, a.Chosen)
	default:
		return false, engine.Errorf(engine.KindWrongPhase, "no actions in %s", st.Status)
	}
}

// NextRound opens the next round after results; otherwise it does nothing.
func (s *Session) NextRound() bool {
	if s.state.Status != StatusResults {
		return false
	}
	if s.state.Players.Count(nil) == 0 {
		s.reset()
		return false
	}
	s.startRound()
	return false
}

// Vacate removes a player mid-game. Losing the storyteller restarts the round
// with the next one; a decoy not yet voted on goes back out of play.
func (s *Session) Vacate(seat int) bool {
	st := &s.state
	p := st.Players.At(seat)
	if p == nil {
		return false
	}
	s.deck.Discard(p.Cards...)
	st.Players.Clear(seat)
	if st.Players.Count(nil) == 0 {
		s.reset()
		return false
	}
	if !st.Status.Active() {
		return false
	}
	if seat == st.CurrentPlayer {
		s.startRound()
		return false
	}
	if st.Status == StatusPhase2 {
		if i := slices.IndexFunc(st.Table, func(tc TableCard) bool { return tc.Author == seat }); i >= 0 {
			s.deck.Discard(st.Table[i].Card)
			st.Table = slices.Delete(st.Table, i, i+1)
		}
	}
	return s.settle()
}

// LastResult is the most recent round's scoring, for the results store.
func (s *Session) LastResult() (int, any) {
	if s.state.LastResult == nil {
		return 0, nil
	}
	r := *s.state.LastResult
	return r.Round, r
}

// View is one player's picture of the game.
type View struct {
	Status State `json:"status"`
	Seat   int   `json:"seat"`
}

// View hides other hands and guesses from viewer. Until results, table cards
// do not show their author, and before voting their faces stay hidden too,
// except for the viewer's own card.
func (s *Session) View(viewer int) any {
	st := s.state.clone()
	st.Players.Each(func(seat int, p *Player) {
		if seat == viewer {
			return
		}
		p.Cards = engine.Hide(p.Cards)
		if p.Guess != nil {
			hidden := engine.HiddenCard
			p.Guess = &hidden
		}
	})
	if st.Status != StatusResults {
		for i := range st.Table {
			tc := &st.Table[i]
			if tc.Author == viewer {
				continue
			}
			tc.Author = -1
			tc.Original = false
			if st.Status != StatusPhase3 {
				tc.Card = engine.HiddenCard
			}
		}
	}
	return View{Status: st, Seat: viewer}
}
