// Package state persists every engine record behind the keyed accessors the
// native engines consume. Records are JSON-encoded into the generic KV
// database so any backend (memory, LevelDB, bbolt) can hold them.
package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"prizepool/native/lottery"
	"prizepool/native/random"
	"prizepool/native/staking"
	"prizepool/storage"
)

const (
	stakingAccountPrefix = "staking/account/"
	stakingGlobalKey     = "staking/global"
	lotteryRoundKey      = "lottery/round"
	drawRequestPrefix    = "lottery/request/"
	drawResultPrefix     = "lottery/result/"
	randomNonceKey       = "random/nonce"
	tokenPrefix          = "token/"
)

// Store is the durable keyed state shared by the staking engine, the lottery
// engine, and the token ledgers.
type Store struct {
	mu sync.RWMutex
	db storage.Database
}

// NewStore wraps a KV database in the record accessors.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

func (s *Store) getJSON(key string, out any) (bool, error) {
	raw, err := s.db.Get([]byte(key))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) putJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}
	return s.db.Put([]byte(key), raw)
}

func addressKey(prefix string, addr [20]byte) string {
	return prefix + hex.EncodeToString(addr[:])
}

// --- staking records ---

// StakingAccount loads the account record for addr, returning a zeroed record
// when none exists yet.
func (s *Store) StakingAccount(addr [20]byte) (*staking.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc := &staking.Account{}
	if _, err := s.getJSON(addressKey(stakingAccountPrefix, addr), acc); err != nil {
		return nil, err
	}
	return acc.Normalize(), nil
}

// PutStakingAccount persists the account record for addr.
func (s *Store) PutStakingAccount(addr [20]byte, acc *staking.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putJSON(addressKey(stakingAccountPrefix, addr), acc.Normalize())
}

// StakingGlobal loads the accrual singleton.
func (s *Store) StakingGlobal() (*staking.GlobalState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g := &staking.GlobalState{}
	if _, err := s.getJSON(stakingGlobalKey, g); err != nil {
		return nil, err
	}
	return g.Normalize(), nil
}

// PutStakingGlobal persists the accrual singleton.
func (s *Store) PutStakingGlobal(g *staking.GlobalState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putJSON(stakingGlobalKey, g.Normalize())
}

// --- lottery records ---

// LotteryRound loads the current round, or nil before the first round.
func (s *Store) LotteryRound() (*lottery.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	round := &lottery.Round{}
	ok, err := s.getJSON(lotteryRoundKey, round)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return round.Normalize(), nil
}

// PutLotteryRound persists the current round record.
func (s *Store) PutLotteryRound(round *lottery.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putJSON(lotteryRoundKey, round.Normalize())
}

type drawRequestRecord struct {
	Round uint64 `json:"round"`
}

// DrawRequest resolves a randomness request id to the round it was issued for.
func (s *Store) DrawRequest(id random.RequestID) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := drawRequestRecord{}
	ok, err := s.getJSON(drawRequestPrefix+hex.EncodeToString(id[:]), &rec)
	if err != nil || !ok {
		return 0, false, err
	}
	return rec.Round, true, nil
}

// PutDrawRequest records a request-to-round association.
func (s *Store) PutDrawRequest(id random.RequestID, round uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putJSON(drawRequestPrefix+hex.EncodeToString(id[:]), drawRequestRecord{Round: round})
}

// DeleteDrawRequest consumes a request association.
func (s *Store) DeleteDrawRequest(id random.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Delete([]byte(drawRequestPrefix + hex.EncodeToString(id[:])))
}

// DrawResult loads the recorded outcome for a round, if any.
func (s *Store) DrawResult(round uint64) (*lottery.Result, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := &lottery.Result{}
	ok, err := s.getJSON(drawResultPrefix+strconv.FormatUint(round, 10), res)
	if err != nil || !ok {
		return nil, false, err
	}
	return res, true, nil
}

// PutDrawResult records a round outcome.
func (s *Store) PutDrawResult(res *lottery.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putJSON(drawResultPrefix+strconv.FormatUint(res.Round, 10), res)
}

// DeleteDrawResult removes a round outcome. Only used to unwind a failed
// payout before the enclosing operation aborts.
func (s *Store) DeleteDrawResult(round uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Delete([]byte(drawResultPrefix + strconv.FormatUint(round, 10)))
}

// --- randomness records ---

// RandomNonce loads the randomness request counter, zero when never persisted.
func (s *Store) RandomNonce() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var nonce uint64
	if _, err := s.getJSON(randomNonceKey, &nonce); err != nil {
		return 0, err
	}
	return nonce, nil
}

// PutRandomNonce persists the randomness request counter.
func (s *Store) PutRandomNonce(nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putJSON(randomNonceKey, nonce)
}

// --- token records ---

type tokenAmountRecord struct {
	Amount *big.Int `json:"amount"`
}

func tokenBalanceKey(symbol string, addr [20]byte) string {
	return tokenPrefix + symbol + "/balance/" + hex.EncodeToString(addr[:])
}

func tokenAllowanceKey(symbol string, owner, spender [20]byte) string {
	return tokenPrefix + symbol + "/allowance/" + hex.EncodeToString(owner[:]) + "/" + hex.EncodeToString(spender[:])
}

// TokenBalance loads addr's balance for symbol, zero when absent.
func (s *Store) TokenBalance(symbol string, addr [20]byte) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := tokenAmountRecord{}
	if _, err := s.getJSON(tokenBalanceKey(symbol, addr), &rec); err != nil {
		return nil, err
	}
	if rec.Amount == nil {
		return big.NewInt(0), nil
	}
	return rec.Amount, nil
}

// PutTokenBalance persists addr's balance for symbol.
func (s *Store) PutTokenBalance(symbol string, addr [20]byte, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putJSON(tokenBalanceKey(symbol, addr), tokenAmountRecord{Amount: amount})
}

// TokenAllowance loads the spender allowance, zero when absent.
func (s *Store) TokenAllowance(symbol string, owner, spender [20]byte) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := tokenAmountRecord{}
	if _, err := s.getJSON(tokenAllowanceKey(symbol, owner, spender), &rec); err != nil {
		return nil, err
	}
	if rec.Amount == nil {
		return big.NewInt(0), nil
	}
	return rec.Amount, nil
}

// PutTokenAllowance persists the spender allowance.
func (s *Store) PutTokenAllowance(symbol string, owner, spender [20]byte, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putJSON(tokenAllowanceKey(symbol, owner, spender), tokenAmountRecord{Amount: amount})
}
