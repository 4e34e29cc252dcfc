package staking

import "math/big"

// Precision is the fixed-point scale applied to the global accumulator so that
// integer division error stays bounded to one unit per account.
var Precision = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Account holds the per-participant stake and reward bookkeeping. Accounts
// spring into existence on first stake and are never deleted.
type Account struct {
	Staked *big.Int `json:"staked"`
	// RewardSnapshot is the accumulator value observed at the account's
	// last flush, in Precision-scaled reward-per-stake units.
	RewardSnapshot *big.Int `json:"rewardSnapshot"`
	// PendingReward is flushed but unclaimed reward.
	PendingReward *big.Int `json:"pendingReward"`
}

// Normalize replaces nil fields with zero values so callers can rely on the
// arithmetic invariants.
func (a *Account) Normalize() *Account {
	if a == nil {
		return &Account{Staked: big.NewInt(0), RewardSnapshot: big.NewInt(0), PendingReward: big.NewInt(0)}
	}
	if a.Staked == nil {
		a.Staked = big.NewInt(0)
	}
	if a.RewardSnapshot == nil {
		a.RewardSnapshot = big.NewInt(0)
	}
	if a.PendingReward == nil {
		a.PendingReward = big.NewInt(0)
	}
	return a
}

// Clone returns a deep copy, protecting internal references.
func (a *Account) Clone() *Account {
	a = a.Normalize()
	return &Account{
		Staked:         new(big.Int).Set(a.Staked),
		RewardSnapshot: new(big.Int).Set(a.RewardSnapshot),
		PendingReward:  new(big.Int).Set(a.PendingReward),
	}
}

// GlobalState is the singleton accrual record shared by every staker.
type GlobalState struct {
	TotalStaked *big.Int `json:"totalStaked"`
	// RewardRate is the emission in reward units per second, split across
	// all stakers proportionally.
	RewardRate *big.Int `json:"rewardRate"`
	// Accumulator is the cumulative reward per unit of stake since
	// inception, Precision-scaled. Non-decreasing while anything is staked.
	Accumulator *big.Int `json:"accumulator"`
	LastUpdate  int64    `json:"lastUpdate"`
}

// Normalize replaces nil fields with zero values.
func (g *GlobalState) Normalize() *GlobalState {
	if g == nil {
		return &GlobalState{TotalStaked: big.NewInt(0), RewardRate: big.NewInt(0), Accumulator: big.NewInt(0)}
	}
	if g.TotalStaked == nil {
		g.TotalStaked = big.NewInt(0)
	}
	if g.RewardRate == nil {
		g.RewardRate = big.NewInt(0)
	}
	if g.Accumulator == nil {
		g.Accumulator = big.NewInt(0)
	}
	return g
}

// Clone returns a deep copy, protecting internal references.
func (g *GlobalState) Clone() *GlobalState {
	g = g.Normalize()
	return &GlobalState{
		TotalStaked: new(big.Int).Set(g.TotalStaked),
		RewardRate:  new(big.Int).Set(g.RewardRate),
		Accumulator: new(big.Int).Set(g.Accumulator),
		LastUpdate:  g.LastUpdate,
	}
}
