package engine

// Clone returns a deep copy of the state with the display fields filled in
func (gs *GameState) Clone() *GameState {
	if gs == nil {
		return nil
	}
	out := *gs
	out.Cards = make([]Card, len(gs.Cards))
	copy(out.Cards, gs.Cards)
	out.Pending = make([]int, len(gs.Pending))
	copy(out.Pending, gs.Pending)
	out.History = make([]AttemptEntry, len(gs.History))
	copy(out.History, gs.History)
	out.ElapsedDisplay = FormatElapsed(gs.ElapsedSeconds)
	return &out
}

// PublicView returns a copy safe to hand to remote clients: face-down cards
// keep only their id and flags.
func (gs *GameState) PublicView() *GameState {
	out := gs.Clone()
	if out == nil {
		return nil
	}
	for i := range out.Cards {
		c := &out.Cards[i]
		if c.FaceUp() {
			continue
		}
		c.Content = ""
		c.Icon = ""
		c.Kind = ""
		c.PairID = HiddenPairID
	}
	return out
}

// LastAttempt returns a copy of the most recent attempt, or nil before the
// first comparison
func (gs *GameState) LastAttempt() *AttemptEntry {
	if len(gs.History) == 0 {
		return nil
	}
	last := gs.History[len(gs.History)-1]
	return &last
}

// FaceDownCards returns the ids of cards that can still be selected
func (gs *GameState) FaceDownCards() []int {
	var ids []int
	for _, c := range gs.Cards {
		if !c.FaceUp() {
			ids = append(ids, c.ID)
		}
	}
	return ids
}
