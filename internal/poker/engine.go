package poker

import (
	"fmt"
	"math"
	"slices"

	"github.com/DoyleJ11/cardtable-backend/internal/engine"
)

// startRound deals a new hand. It reports true if the hand resolved without
// any decision, which happens when both blinds put everyone all-in.
func (s *Session) startRound() bool {
	st := &s.state
	st.TotalRounds++
	st.Pot = 0
	st.Table = nil
	st.Log = nil
	st.Players.Each(func(_ int, p *Player) {
		p.Bet = 0
		p.Cards = nil
		p.AllIn = false
		p.Acted = false
		p.LastAction = nil
		p.SittingOut = p.Stack == 0
		p.Folded = p.SittingOut
	})
	if st.Players.Count(funded) < 2 {
		st.Status = StatusFinished
		st.logf("game over")
		return false
	}

	st.Dealer = st.Players.NextOccupied(st.Dealer)
	s.deck.Shuffle()
	st.Players.Each(func(_ int, p *Player) {
		if !p.SittingOut {
			p.Cards = s.deck.Draw(2)
		}
	})
	st.Status = StatusPreflop
	st.logf("round %d, dealer is seat %d", st.TotalRounds, st.Dealer)

	sb := st.Players.Next(st.Dealer, inHand)
	s.postBlind(sb, st.SmallBlind, "small")
	bb := st.Players.Next(sb, inHand)
	s.postBlind(bb, 2*st.SmallBlind, "big")
	st.Turn = bb
	return s.proceed()
}

func (s *Session) postBlind(seat, amount int, name string) {
	p := s.state.Players.At(seat)
	paid := p.commit(amount)
	p.LastAction = &Action{Action: ActionBet, Amount: paid}
	s.state.logf("seat %d posts %s blind %d", seat, name, paid)
}

// act applies a validated turn holder's command.
func (s *Session) act(seat int, a Action) (bool, error) {
	st := &s.state
	if !a.Action.known() {
		return false, engine.Errorf(engine.KindUnknownCommand, "unknown action %q", a.Action)
	}
	i := slices.IndexFunc(LegalActions(st), func(l Action) bool { return l.Action == a.Action })
	if i < 0 {
		return false, engine.Errorf(engine.KindWrongAction, "%s is not allowed now", a.Action)
	}
	legal := LegalActions(st)[i]
	if legal.Amount >= 0 && a.Amount < legal.Amount {
		return false, engine.Errorf(engine.KindWrongAmount, "%s needs at least %d, got %d", a.Action, legal.Amount, a.Amount)
	}

	p := st.Players.At(seat)
	paid := 0
	switch a.Action {
	case ActionCall:
		paid = p.commit(legal.Amount)
		st.logf("seat %d calls %d", seat, paid)
	case ActionRaise:
		paid = p.commit(a.Amount)
		st.logf("seat %d raises %d", seat, paid)
	case ActionBet:
		paid = p.commit(a.Amount)
		st.logf("seat %d bets %d", seat, paid)
	case ActionCheck:
		st.logf("seat %d checks", seat)
	case ActionFold:
		p.Folded = true
		st.logf("seat %d folds", seat)
	case ActionFoldShow:
		p.Folded = true
		st.logf("seat %d folds and shows %v", seat, p.Cards)
	}
	if p.AllIn && paid > 0 {
		st.logf("seat %d is all-in", seat)
	}
	p.Acted = true
	p.LastAction = &Action{Action: a.Action, Amount: paid}
	return s.proceed(), nil
}

// bettingDone: fewer than two players contest the pot, or everyone who can
// still bet has acted and matched the highest bet.
func (s *Session) bettingDone() bool {
	st := &s.state
	if st.Players.Count(inHand) < 2 {
		return true
	}
	maxBet := st.MaxBet()
	done := true
	st.Players.Each(func(_ int, p *Player) {
		if canAct(p) && (!p.Acted || p.Bet != maxBet) {
			done = false
		}
	})
	return done
}

// proceed moves the turn on, or closes the betting round and walks the hand
// forward street by street. It reports true when the hand is over.
func (s *Session) proceed() bool {
	st := &s.state
	for {
		if !s.bettingDone() {
			st.Turn = st.Players.Next(st.Turn, canAct)
			return false
		}
		s.collectBets()
		if st.Players.Count(inHand) < 2 {
			s.awardFoldout()
			return true
		}
		if st.Status == StatusRiver || st.Players.Count(canAct) < 2 {
			for st.Status != StatusRiver {
				s.dealStreet()
			}
			s.showdown()
			return true
		}
		s.dealStreet()
		st.Turn = st.Dealer
	}
}

// collectBets sweeps every bet, folded players' included, into the pot.
func (s *Session) collectBets() {
	st := &s.state
	st.Players.Each(func(_ int, p *Player) {
		st.Pot += p.Bet
		p.Bet = 0
		p.Acted = false
	})
}

func (s *Session) dealStreet() {
	st := &s.state
	switch st.Status {
	case StatusPreflop:
		st.Table = append(st.Table, s.draw(3)...)
		st.Status = StatusFlop
	case StatusFlop:
		st.Table = append(st.Table, s.draw(1)...)
		st.Status = StatusTurn
	case StatusTurn:
		st.Table = append(st.Table, s.draw(1)...)
		st.Status = StatusRiver
	default:
		panic(fmt.Sprintf("poker: no street after %s", st.Status))
	}
	st.logf("%s %v", st.Status, st.Table)
}

func (s *Session) draw(n int) []string {
	cards := s.deck.Draw(n)
	if len(cards) != n {
		panic("poker: deck exhausted")
	}
	return cards
}

func (s *Session) awardFoldout() {
	s.award(s.state.ActiveSeats(), nil)
}

func (s *Session) showdown() {
	st := &s.state
	best := math.MaxInt
	var winners []int
	var category string
	st.Players.Each(func(seat int, p *Player) {
		if !inHand(p) {
			return
		}
		strength, err := s.eval.Evaluate(p.Cards, st.Table)
		if err != nil {
			panic(fmt.Sprintf("poker: evaluating seat %d: %v", seat, err))
		}
		st.logf("seat %d shows %v: %s", seat, p.Cards, strength.Category)
		switch {
		case strength.Ordinal < best:
			best = strength.Ordinal
			winners = []int{seat}
			category = strength.Category
		case strength.Ordinal == best:
			winners = append(winners, seat)
		}
	})
	s.award(winners, &category)
}

// award splits the pot evenly. Odd chips go one at a time to winners in seat
// order starting left of the dealer.
func (s *Session) award(winners []int, combination *string) {
	st := &s.state
	n := st.Players.Len()
	slices.SortFunc(winners, func(a, b int) int {
		return (a-st.Dealer-1+n)%n - (b-st.Dealer-1+n)%n
	})
	result := &Result{Round: st.TotalRounds, Combination: combination}
	if len(winners) > 0 {
		share, rest := st.Pot/len(winners), st.Pot%len(winners)
		for i, seat := range winners {
			amount := share
			if i < rest {
				amount++
			}
			st.Players.At(seat).Stack += amount
			result.Winners = append(result.Winners, Payout{Seat: seat, Amount: amount})
			if combination != nil {
				st.logf("seat %d wins %d with %s", seat, amount, *combination)
			} else {
				st.logf("seat %d wins %d, everyone else folded", seat, amount)
			}
		}
		st.Pot = 0
	}
	st.LastResult = result
	st.Status = StatusVictory
}
