package staking

import "errors"

var (
	errNilState = errors.New("staking engine: state not configured")
	errNilToken = errors.New("staking engine: stake token not configured")
	errNilMint  = errors.New("staking engine: reward minter not configured")

	// ErrInvalidAmount rejects zero or negative amounts.
	ErrInvalidAmount = errors.New("staking engine: amount must be positive")
	// ErrZeroAddress rejects the zero account address.
	ErrZeroAddress = errors.New("staking engine: zero address")
	// ErrInsufficientStake rejects withdrawals above the staked balance.
	ErrInsufficientStake = errors.New("staking engine: insufficient staked balance")
	// ErrUnauthorized rejects privileged calls from non-authority addresses.
	ErrUnauthorized = errors.New("staking engine: caller is not the authority")
)
