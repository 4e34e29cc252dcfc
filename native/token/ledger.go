package token

import (
	"errors"
	"math/big"
)

var (
	errNilState              = errors.New("token ledger: state not configured")
	ErrInvalidAmount         = errors.New("token ledger: amount must be positive")
	ErrInsufficientBalance   = errors.New("token ledger: insufficient balance")
	ErrInsufficientAllowance = errors.New("token ledger: insufficient allowance")
	ErrNotMinter             = errors.New("token ledger: caller is not the mint authority")
)

type ledgerState interface {
	TokenBalance(symbol string, addr [20]byte) (*big.Int, error)
	PutTokenBalance(symbol string, addr [20]byte, amount *big.Int) error
	TokenAllowance(symbol string, owner, spender [20]byte) (*big.Int, error)
	PutTokenAllowance(symbol string, owner, spender [20]byte, amount *big.Int) error
}

// Ledger is an in-process fungible token backed by the keyed state store.
// Balances and allowances are persisted per symbol so several tokens (stake,
// reward, prize) can share one store.
type Ledger struct {
	state  ledgerState
	symbol string
	minter [20]byte
}

// NewLedger creates a ledger for the given token symbol.
func NewLedger(symbol string) *Ledger {
	return &Ledger{symbol: symbol}
}

// SetState wires the ledger to the persistence layer.
func (l *Ledger) SetState(state ledgerState) { l.state = state }

// SetMinter configures the sole address allowed to mint new supply.
func (l *Ledger) SetMinter(addr [20]byte) { l.minter = addr }

// Symbol returns the token symbol this ledger manages.
func (l *Ledger) Symbol() string { return l.symbol }

// BalanceOf returns the current balance of addr.
func (l *Ledger) BalanceOf(addr [20]byte) (*big.Int, error) {
	if l.state == nil {
		return nil, errNilState
	}
	return l.state.TokenBalance(l.symbol, addr)
}

// Allowance returns the amount spender may move out of owner's balance.
func (l *Ledger) Allowance(owner, spender [20]byte) (*big.Int, error) {
	if l.state == nil {
		return nil, errNilState
	}
	return l.state.TokenAllowance(l.symbol, owner, spender)
}

// Approve sets spender's allowance over owner's balance.
func (l *Ledger) Approve(owner, spender [20]byte, amount *big.Int) error {
	if l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return l.state.PutTokenAllowance(l.symbol, owner, spender, new(big.Int).Set(amount))
}

// Transfer moves amount from one balance to another. The full move either
// happens or the ledger is untouched.
func (l *Ledger) Transfer(from, to [20]byte, amount *big.Int) error {
	if l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	fromBal, err := l.state.TokenBalance(l.symbol, from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBal, err := l.state.TokenBalance(l.symbol, to)
	if err != nil {
		return err
	}
	if err := l.state.PutTokenBalance(l.symbol, from, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	if err := l.state.PutTokenBalance(l.symbol, to, new(big.Int).Add(toBal, amount)); err != nil {
		// Restore the debited balance so a partial move never persists.
		_ = l.state.PutTokenBalance(l.symbol, from, fromBal)
		return err
	}
	return nil
}

// TransferFrom moves amount from owner to recipient using spender's allowance.
func (l *Ledger) TransferFrom(spender, from, to [20]byte, amount *big.Int) error {
	if l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	allowance, err := l.state.TokenAllowance(l.symbol, from, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	// Consume the allowance before moving balances: Transfer is atomic on its
	// own, so the only write left to undo on failure is the allowance itself.
	if err := l.state.PutTokenAllowance(l.symbol, from, spender, new(big.Int).Sub(allowance, amount)); err != nil {
		return err
	}
	if err := l.Transfer(from, to, amount); err != nil {
		_ = l.state.PutTokenAllowance(l.symbol, from, spender, allowance)
		return err
	}
	return nil
}

// Mint credits freshly created supply to an account. Only the configured mint
// authority may call it.
func (l *Ledger) Mint(caller, to [20]byte, amount *big.Int) error {
	if l.state == nil {
		return errNilState
	}
	if caller != l.minter {
		return ErrNotMinter
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	bal, err := l.state.TokenBalance(l.symbol, to)
	if err != nil {
		return err
	}
	return l.state.PutTokenBalance(l.symbol, to, new(big.Int).Add(bal, amount))
}

// Bind returns the capability view of the ledger held by a single address.
// The returned value satisfies both Token and Minter.
func (l *Ledger) Bind(holder [20]byte) *Bound {
	return &Bound{ledger: l, holder: holder}
}

// Bound is a ledger scoped to one holder address, matching the capability
// interfaces the engines consume.
type Bound struct {
	ledger *Ledger
	holder [20]byte
}

// TransferFrom spends the allowance granted to the holder by from.
func (b *Bound) TransferFrom(from, to [20]byte, amount *big.Int) error {
	return b.ledger.TransferFrom(b.holder, from, to, amount)
}

// Transfer moves funds out of the holder's own balance.
func (b *Bound) Transfer(to [20]byte, amount *big.Int) error {
	return b.ledger.Transfer(b.holder, to, amount)
}

// BalanceOf reports any account's balance.
func (b *Bound) BalanceOf(addr [20]byte) (*big.Int, error) {
	return b.ledger.BalanceOf(addr)
}

// Mint creates supply as the holder; fails unless the holder is the mint
// authority.
func (b *Bound) Mint(to [20]byte, amount *big.Int) error {
	return b.ledger.Mint(b.holder, to, amount)
}
