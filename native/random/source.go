package random

import (
	"encoding/hex"
	"math/big"
)

// RequestID identifies one outstanding randomness request.
type RequestID [32]byte

// String renders the id as 0x-prefixed hex.
func (id RequestID) String() string { return "0x" + hex.EncodeToString(id[:]) }

// Source accepts randomness requests synchronously and delivers each value
// asynchronously, exactly once, at its own discretion. The value is
// unpredictable until delivered.
type Source interface {
	Request() (RequestID, error)
}

// DeliverFunc is the inbound delivery callback a Source invokes once per
// request. Wired to the lottery engine's Fulfill by the daemon.
type DeliverFunc func(id RequestID, value *big.Int) error
