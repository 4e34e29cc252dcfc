package events

import (
	"math/big"

	"prizepool/core/types"
)

const (
	// TypeStakeDeposited captures a stake deposit after rewards were flushed.
	TypeStakeDeposited = "staking.deposited"
	// TypeStakeWithdrawn captures a stake withdrawal after rewards were flushed.
	TypeStakeWithdrawn = "staking.withdrawn"
	// TypeRewardsClaimed is emitted when pending rewards are minted to an account.
	TypeRewardsClaimed = "staking.rewardsClaimed"
	// TypeRewardRateUpdated is emitted when the emission rate changes.
	TypeRewardRateUpdated = "staking.rewardRateUpdated"
)

// StakeDeposited captures the balances realised by a deposit.
type StakeDeposited struct {
	Account     [20]byte
	Amount      *big.Int
	NewStaked   *big.Int
	TotalStaked *big.Int
}

// EventType satisfies the Event interface.
func (StakeDeposited) EventType() string { return TypeStakeDeposited }

// Event converts the structured payload into a broadcastable event.
func (e StakeDeposited) Event() *types.Event {
	return &types.Event{
		Type: TypeStakeDeposited,
		Attributes: map[string]string{
			"account":     formatAddress(e.Account),
			"amount":      formatAmount(e.Amount),
			"newStaked":   formatAmount(e.NewStaked),
			"totalStaked": formatAmount(e.TotalStaked),
		},
	}
}

// StakeWithdrawn captures the balances realised by a withdrawal.
type StakeWithdrawn struct {
	Account     [20]byte
	Amount      *big.Int
	NewStaked   *big.Int
	TotalStaked *big.Int
}

// EventType satisfies the Event interface.
func (StakeWithdrawn) EventType() string { return TypeStakeWithdrawn }

// Event converts the structured payload into a broadcastable event.
func (e StakeWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeStakeWithdrawn,
		Attributes: map[string]string{
			"account":     formatAddress(e.Account),
			"amount":      formatAmount(e.Amount),
			"newStaked":   formatAmount(e.NewStaked),
			"totalStaked": formatAmount(e.TotalStaked),
		},
	}
}

// RewardsClaimed records a reward payout minted to an account.
type RewardsClaimed struct {
	Account [20]byte
	Amount  *big.Int
}

// EventType satisfies the Event interface.
func (RewardsClaimed) EventType() string { return TypeRewardsClaimed }

// Event converts the structured payload into a broadcastable event.
func (e RewardsClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeRewardsClaimed,
		Attributes: map[string]string{
			"account": formatAddress(e.Account),
			"amount":  formatAmount(e.Amount),
		},
	}
}

// RewardRateUpdated records an emission rate change.
type RewardRateUpdated struct {
	OldRate *big.Int
	NewRate *big.Int
}

// EventType satisfies the Event interface.
func (RewardRateUpdated) EventType() string { return TypeRewardRateUpdated }

// Event converts the structured payload into a broadcastable event.
func (e RewardRateUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeRewardRateUpdated,
		Attributes: map[string]string{
			"oldRate": formatAmount(e.OldRate),
			"newRate": formatAmount(e.NewRate),
		},
	}
}
