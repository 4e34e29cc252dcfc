package token

import "math/big"

// Token is the transfer capability an engine holds over a fungible token. The
// implementation is bound to the engine's own address, so Transfer moves funds
// out of the engine's balance while TransferFrom spends an allowance granted
// to the engine. Every method fails atomically: either the full amount moves
// or nothing does.
type Token interface {
	TransferFrom(from, to [20]byte, amount *big.Int) error
	Transfer(to [20]byte, amount *big.Int) error
	BalanceOf(addr [20]byte) (*big.Int, error)
}

// Minter is the supply-expansion capability layered onto the reward token.
// Only the configured mint authority may exercise it.
type Minter interface {
	Mint(to [20]byte, amount *big.Int) error
}
