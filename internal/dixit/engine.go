package dixit

import "github.com/DoyleJ11/cardtable-backend/internal/engine"

// startRound hands the story to the next seat and tops every hand up.
func (s *Session) startRound() {
	st := &s.state
	st.Round++
	st.Players.Each(func(_ int, p *Player) {
		p.Acted = false
		p.Guess = nil
	})
	s.clearTable()
	st.CurrentPlayer = st.Players.NextOccupied(st.CurrentPlayer)
	s.replenish()
	st.Status = StatusPhase1
}

func (s *Session) clearTable() {
	for _, tc := range s.state.Table {
		s.deck.Discard(tc.Card)
	}
	s.state.Table = nil
}

// replenish deals each hand up to HandSize, recycling played cards when the
// deck runs short.
func (s *Session) replenish() {
	s.state.Players.Each(func(_ int, p *Player) {
		need := s.cfg.HandSize - len(p.Cards)
		if need <= 0 {
			return
		}
		if s.deck.Len() < need {
			s.deck.Recycle()
		}
		p.Cards = append(p.Cards, s.deck.Draw(need)...)
	})
}

// tell places the storyteller's card and opens phase 2.
func (s *Session) tell(seat int, chosen string) (bool, error) {
	st := &s.state
	p := st.Players.At(seat)
	if err := p.takeCard(chosen); err != nil {
		return false, err
	}
	st.Table = append(st.Table, TableCard{Card: chosen, Author: seat, Original: true})
	st.Players.Each(func(_ int, p *Player) { p.Acted = false })
	p.Acted = true
	st.Status = StatusPhase2
	return s.settle(), nil
}

// contribute adds a decoy card in phase 2.
func (s *Session) contribute(seat int, chosen string) (bool, error) {
	p := s.state.Players.At(seat)
	if err := p.takeCard(chosen); err != nil {
		return false, err
	}
	s.state.Table = append(s.state.Table, TableCard{Card: chosen, Author: seat})
	p.Acted = true
	return s.settle(), nil
}

// guess records a phase 3 vote for a card on the table.
func (s *Session) guess(seat int, chosen string) (bool, error) {
	st := &s.state
	i := st.tableIndex(chosen)
	if i < 0 {
		return false, engine.Errorf(engine.KindMissingCard, "card %s is not on the table", chosen)
	}
	if st.Table[i].Author == seat {
		return false, engine.Errorf(engine.KindWrongAction, "seat %d cannot vote for its own card", seat)
	}
	p := st.Players.At(seat)
	g := chosen
	p.Guess = &g
	p.Acted = true
	return s.settle(), nil
}

// settle runs every phase transition whose condition now holds. It reports
// true once the round reaches results.
func (s *Session) settle() bool {
	st := &s.state
	if st.Status == StatusPhase2 && st.Players.Count(func(p *Player) bool { return !p.Acted }) == 0 {
		s.startGuessing()
	}
	if st.Status == StatusPhase3 && st.Players.Count(s.waitingForGuess) == 0 {
		s.finalize()
		return true
	}
	return false
}

func (s *Session) waitingForGuess(p *Player) bool {
	return p.Seat != s.state.CurrentPlayer && p.Guess == nil
}

// startGuessing shuffles the table so position gives no hint of authorship.
func (s *Session) startGuessing() {
	st := &s.state
	st.Players.Each(func(_ int, p *Player) {
		p.Acted = false
		p.Guess = nil
	})
	s.shuffle(len(st.Table), func(i, j int) { st.Table[i], st.Table[j] = st.Table[j], st.Table[i] })
	st.Status = StatusPhase3
}

// finalize scores the votes: 2 points for finding the storyteller's card, 1
// point to the author of a decoy for each vote it drew.
func (s *Session) finalize() {
	st := &s.state
	res := &Result{Round: st.Round, Correct: []int{}, Incorrect: []int{}}
	st.Players.Each(func(seat int, p *Player) {
		if seat == st.CurrentPlayer {
			return
		}
		i := -1
		if p.Guess != nil {
			i = st.tableIndex(*p.Guess)
		}
		if i < 0 {
			res.Incorrect = append(res.Incorrect, seat)
			return
		}
		card := &st.Table[i]
		card.Votes = append(card.Votes, seat)
		if card.Original {
			p.Points += 2
			res.Correct = append(res.Correct, seat)
			return
		}
		if author := st.Players.At(card.Author); author != nil {
			author.Points++
		}
		res.Incorrect = append(res.Incorrect, seat)
	})
	st.Players.Each(func(_ int, p *Player) {
		p.Acted = false
		p.Guess = nil
	})
	st.LastResult = res
	st.Status = StatusResults
}
