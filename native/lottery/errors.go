package lottery

import "errors"

var (
	errNilState  = errors.New("lottery engine: state not configured")
	errNilToken  = errors.New("lottery engine: token collaborators not configured")
	errNilRandom = errors.New("lottery engine: randomness source not configured")

	// ErrInvalidAmount rejects zero or negative entry amounts.
	ErrInvalidAmount = errors.New("lottery engine: amount must be positive")
	// ErrZeroAddress rejects the zero account address.
	ErrZeroAddress = errors.New("lottery engine: zero address")
	// ErrInvalidDuration rejects non-positive round durations.
	ErrInvalidDuration = errors.New("lottery engine: duration must be positive")
	// ErrRoundActive rejects starting a round while one is accepting entries.
	ErrRoundActive = errors.New("lottery engine: a round is already active")
	// ErrNoActiveRound rejects entries and draws outside an active round.
	ErrNoActiveRound = errors.New("lottery engine: no active round")
	// ErrRoundOpen rejects a draw before the round duration has elapsed.
	ErrRoundOpen = errors.New("lottery engine: round still open for entries")
	// ErrNoEntries rejects a draw on a round nobody entered.
	ErrNoEntries = errors.New("lottery engine: round has no entries")
	// ErrPrizeNotEscrowed rejects a round whose prize exceeds the escrow balance.
	ErrPrizeNotEscrowed = errors.New("lottery engine: prize exceeds escrowed balance")
	// ErrUnknownRequest rejects fulfillment for a request id never issued or
	// already consumed.
	ErrUnknownRequest = errors.New("lottery engine: unknown randomness request")
	// ErrStaleRequest rejects fulfillment whose round is no longer current.
	ErrStaleRequest = errors.New("lottery engine: request round is not the current round")
	// ErrAlreadyResolved rejects a second result write for the same round.
	ErrAlreadyResolved = errors.New("lottery engine: round already has a result")
	// ErrUnauthorized rejects privileged calls from non-authority addresses.
	ErrUnauthorized = errors.New("lottery engine: caller is not the authority")
)
