package lottery

import "math/big"

// Entry is a participant's accumulated weight in a round. Entries keep their
// insertion order; an account appears at most once.
type Entry struct {
	Account [20]byte `json:"account"`
	Amount  *big.Int `json:"amount"`
}

// Round is the singleton lottery round record. Ids are monotonic; at most one
// round is active at a time. Entries are cleared exactly once, during draw
// resolution.
type Round struct {
	ID           uint64   `json:"id"`
	StartTime    int64    `json:"startTime"`
	Duration     int64    `json:"duration"`
	Prize        *big.Int `json:"prize"`
	Active       bool     `json:"active"`
	TotalEntered *big.Int `json:"totalEntered"`
	Entries      []Entry  `json:"entries"`
}

// Normalize replaces nil fields with zero values.
func (r *Round) Normalize() *Round {
	if r == nil {
		return nil
	}
	if r.Prize == nil {
		r.Prize = big.NewInt(0)
	}
	if r.TotalEntered == nil {
		r.TotalEntered = big.NewInt(0)
	}
	for i := range r.Entries {
		if r.Entries[i].Amount == nil {
			r.Entries[i].Amount = big.NewInt(0)
		}
	}
	return r
}

// Clone returns a deep copy, protecting internal references.
func (r *Round) Clone() *Round {
	if r == nil {
		return nil
	}
	r = r.Normalize()
	clone := &Round{
		ID:           r.ID,
		StartTime:    r.StartTime,
		Duration:     r.Duration,
		Prize:        new(big.Int).Set(r.Prize),
		Active:       r.Active,
		TotalEntered: new(big.Int).Set(r.TotalEntered),
	}
	if r.Entries != nil {
		clone.Entries = make([]Entry, len(r.Entries))
		for i, entry := range r.Entries {
			clone.Entries[i] = Entry{Account: entry.Account, Amount: new(big.Int).Set(entry.Amount)}
		}
	}
	return clone
}

// EndTime returns the instant the round stops accepting entries.
func (r *Round) EndTime() int64 { return r.StartTime + r.Duration }

// Result is the per-round draw outcome. Written exactly once; Winner is nil
// when no participant qualified and nothing was paid.
type Result struct {
	Round       uint64    `json:"round"`
	Winner      *[20]byte `json:"winner,omitempty"`
	PrizePaid   *big.Int  `json:"prizePaid"`
	RandomValue *big.Int  `json:"randomValue"`
}

// Clone returns a deep copy, protecting internal references.
func (res *Result) Clone() *Result {
	if res == nil {
		return nil
	}
	clone := &Result{Round: res.Round}
	if res.Winner != nil {
		winner := *res.Winner
		clone.Winner = &winner
	}
	if res.PrizePaid != nil {
		clone.PrizePaid = new(big.Int).Set(res.PrizePaid)
	} else {
		clone.PrizePaid = big.NewInt(0)
	}
	if res.RandomValue != nil {
		clone.RandomValue = new(big.Int).Set(res.RandomValue)
	} else {
		clone.RandomValue = big.NewInt(0)
	}
	return clone
}
