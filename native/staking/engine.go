package staking

import (
	"fmt"
	"math/big"
	"time"

	"prizepool/core/events"
	"prizepool/native/common"
	"prizepool/native/token"
)

type engineState interface {
	// StakingAccount returns the account record for addr, creating a zeroed
	// record when none exists yet.
	StakingAccount(addr [20]byte) (*Account, error)
	PutStakingAccount(addr [20]byte, acc *Account) error
	StakingGlobal() (*GlobalState, error)
	PutStakingGlobal(g *GlobalState) error
}

// Engine is the reward accumulator. Every state-changing operation first
// flushes the global accumulator and the target account so rewards accrued
// before the operation are frozen against the accumulator value at call time,
// keeping each staker's share independent of everyone else's timing.
type Engine struct {
	state     engineState
	emitter   events.Emitter
	guard     common.Guard
	stake     token.Token
	rewards   token.Minter
	vault     [20]byte
	authority [20]byte
	nowFn     func() int64
}

// NewEngine creates a staking engine with a no-op emitter. The vault address
// holds custody of all deposited stake.
func NewEngine(vault [20]byte) *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		vault:   vault,
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetStakeToken configures the stake token capability, bound to the vault.
func (e *Engine) SetStakeToken(t token.Token) { e.stake = t }

// SetRewardMinter configures the reward token mint capability.
func (e *Engine) SetRewardMinter(m token.Minter) { e.rewards = m }

// SetAuthority configures the address allowed to change the emission rate.
func (e *Engine) SetAuthority(addr [20]byte) { e.authority = addr }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) ready() error {
	if e.state == nil {
		return errNilState
	}
	return nil
}

// accrue advances the global accumulator to now. While nothing is staked the
// accumulator holds still and the elapsed emission is lost, not banked.
func accrue(g *GlobalState, now int64) {
	elapsed := now - g.LastUpdate
	if elapsed > 0 && g.TotalStaked.Sign() > 0 && g.RewardRate.Sign() > 0 {
		delta := new(big.Int).Mul(big.NewInt(elapsed), g.RewardRate)
		delta.Mul(delta, Precision)
		delta.Div(delta, g.TotalStaked)
		g.Accumulator.Add(g.Accumulator, delta)
	}
	if now > g.LastUpdate {
		g.LastUpdate = now
	}
}

// settle folds the accumulator movement since the account's last snapshot into
// its pending reward.
func settle(g *GlobalState, acc *Account) {
	diff := new(big.Int).Sub(g.Accumulator, acc.RewardSnapshot)
	if diff.Sign() > 0 && acc.Staked.Sign() > 0 {
		owed := new(big.Int).Mul(acc.Staked, diff)
		owed.Div(owed, Precision)
		acc.PendingReward.Add(acc.PendingReward, owed)
	}
	acc.RewardSnapshot = new(big.Int).Set(g.Accumulator)
}

func (e *Engine) loadFlushed(addr [20]byte) (*GlobalState, *Account, error) {
	g, err := e.state.StakingGlobal()
	if err != nil {
		return nil, nil, err
	}
	g = g.Normalize()
	accrue(g, e.nowFn())
	acc, err := e.state.StakingAccount(addr)
	if err != nil {
		return nil, nil, err
	}
	acc = acc.Normalize()
	settle(g, acc)
	return g, acc, nil
}

// Stake deposits amount of the stake token for caller. The token pull is the
// final effect; on pull failure all bookkeeping is restored.
func (e *Engine) Stake(caller [20]byte, amount *big.Int) error {
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()
	if err := e.ready(); err != nil {
		return err
	}
	if e.stake == nil {
		return errNilToken
	}
	if caller == ([20]byte{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	prevG, err := e.state.StakingGlobal()
	if err != nil {
		return err
	}
	prevG = prevG.Normalize().Clone()
	prevAcc, err := e.state.StakingAccount(caller)
	if err != nil {
		return err
	}
	prevAcc = prevAcc.Normalize().Clone()

	g, acc, err := e.loadFlushed(caller)
	if err != nil {
		return err
	}
	acc.Staked.Add(acc.Staked, amount)
	g.TotalStaked.Add(g.TotalStaked, amount)
	if err := e.state.PutStakingAccount(caller, acc); err != nil {
		return err
	}
	if err := e.state.PutStakingGlobal(g); err != nil {
		_ = e.state.PutStakingAccount(caller, prevAcc)
		return err
	}
	if err := e.stake.TransferFrom(caller, e.vault, amount); err != nil {
		_ = e.state.PutStakingAccount(caller, prevAcc)
		_ = e.state.PutStakingGlobal(prevG)
		return fmt.Errorf("staking engine: pull stake: %w", err)
	}
	e.emitter.Emit(events.StakeDeposited{
		Account:     caller,
		Amount:      new(big.Int).Set(amount),
		NewStaked:   new(big.Int).Set(acc.Staked),
		TotalStaked: new(big.Int).Set(g.TotalStaked),
	})
	return nil
}

// Unstake withdraws amount of staked tokens back to caller. The token payout
// is the final effect.
func (e *Engine) Unstake(caller [20]byte, amount *big.Int) error {
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()
	if err := e.ready(); err != nil {
		return err
	}
	if e.stake == nil {
		return errNilToken
	}
	if caller == ([20]byte{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	prevG, err := e.state.StakingGlobal()
	if err != nil {
		return err
	}
	prevG = prevG.Normalize().Clone()
	prevAcc, err := e.state.StakingAccount(caller)
	if err != nil {
		return err
	}
	prevAcc = prevAcc.Normalize().Clone()

	g, acc, err := e.loadFlushed(caller)
	if err != nil {
		return err
	}
	if acc.Staked.Cmp(amount) < 0 {
		return ErrInsufficientStake
	}
	acc.Staked.Sub(acc.Staked, amount)
	g.TotalStaked.Sub(g.TotalStaked, amount)
	if err := e.state.PutStakingAccount(caller, acc); err != nil {
		return err
	}
	if err := e.state.PutStakingGlobal(g); err != nil {
		_ = e.state.PutStakingAccount(caller, prevAcc)
		return err
	}
	if err := e.stake.Transfer(caller, amount); err != nil {
		_ = e.state.PutStakingAccount(caller, prevAcc)
		_ = e.state.PutStakingGlobal(prevG)
		return fmt.Errorf("staking engine: return stake: %w", err)
	}
	e.emitter.Emit(events.StakeWithdrawn{
		Account:     caller,
		Amount:      new(big.Int).Set(amount),
		NewStaked:   new(big.Int).Set(acc.Staked),
		TotalStaked: new(big.Int).Set(g.TotalStaked),
	})
	return nil
}

// Claim mints the caller's pending reward to them and zeroes it. A zero
// pending balance is a silent no-op.
func (e *Engine) Claim(caller [20]byte) error {
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()
	if err := e.ready(); err != nil {
		return err
	}
	if e.rewards == nil {
		return errNilMint
	}
	if caller == ([20]byte{}) {
		return ErrZeroAddress
	}
	prevG, err := e.state.StakingGlobal()
	if err != nil {
		return err
	}
	prevG = prevG.Normalize().Clone()
	prevAcc, err := e.state.StakingAccount(caller)
	if err != nil {
		return err
	}
	prevAcc = prevAcc.Normalize().Clone()

	g, acc, err := e.loadFlushed(caller)
	if err != nil {
		return err
	}
	payout := new(big.Int).Set(acc.PendingReward)
	if payout.Sign() == 0 {
		// Still persist the flush so LastUpdate advances.
		if err := e.state.PutStakingAccount(caller, acc); err != nil {
			return err
		}
		return e.state.PutStakingGlobal(g)
	}
	acc.PendingReward.SetInt64(0)
	if err := e.state.PutStakingAccount(caller, acc); err != nil {
		return err
	}
	if err := e.state.PutStakingGlobal(g); err != nil {
		_ = e.state.PutStakingAccount(caller, prevAcc)
		return err
	}
	if err := e.rewards.Mint(caller, payout); err != nil {
		_ = e.state.PutStakingAccount(caller, prevAcc)
		_ = e.state.PutStakingGlobal(prevG)
		return fmt.Errorf("staking engine: mint rewards: %w", err)
	}
	e.emitter.Emit(events.RewardsClaimed{Account: caller, Amount: payout})
	return nil
}

// SetRewardRate updates the per-second emission. The global accumulator is
// flushed first so the new rate only applies from now on; accrual earned
// under the old rate is already folded into the accumulator.
func (e *Engine) SetRewardRate(caller [20]byte, newRate *big.Int) error {
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()
	if err := e.ready(); err != nil {
		return err
	}
	if caller != e.authority {
		return ErrUnauthorized
	}
	if newRate == nil || newRate.Sign() < 0 {
		return ErrInvalidAmount
	}
	g, err := e.state.StakingGlobal()
	if err != nil {
		return err
	}
	g = g.Normalize()
	accrue(g, e.nowFn())
	oldRate := new(big.Int).Set(g.RewardRate)
	g.RewardRate = new(big.Int).Set(newRate)
	if err := e.state.PutStakingGlobal(g); err != nil {
		return err
	}
	e.emitter.Emit(events.RewardRateUpdated{OldRate: oldRate, NewRate: new(big.Int).Set(newRate)})
	return nil
}

// Earned projects the total reward addr could claim right now, without
// mutating stored state. It runs the flush arithmetic against copies.
func (e *Engine) Earned(addr [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	g, err := e.state.StakingGlobal()
	if err != nil {
		return nil, err
	}
	g = g.Normalize().Clone()
	accrue(g, e.nowFn())
	acc, err := e.state.StakingAccount(addr)
	if err != nil {
		return nil, err
	}
	acc = acc.Normalize().Clone()
	settle(g, acc)
	return acc.PendingReward, nil
}

// StakedBalance returns addr's current staked amount.
func (e *Engine) StakedBalance(addr [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	acc, err := e.state.StakingAccount(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.Normalize().Staked), nil
}

// Global returns a copy of the singleton accrual record.
func (e *Engine) Global() (*GlobalState, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	g, err := e.state.StakingGlobal()
	if err != nil {
		return nil, err
	}
	return g.Normalize().Clone(), nil
}
