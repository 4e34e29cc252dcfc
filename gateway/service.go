package gateway

import (
	"math/big"
	"sync"

	"prizepool/native/lottery"
	"prizepool/native/random"
	"prizepool/native/staking"
	"prizepool/native/token"
	"prizepool/observability"
)

// Service serializes every state-changing operation behind one mutex so each
// call observes and leaves a fully consistent ledger, including randomness
// deliveries arriving on their own goroutine.
type Service struct {
	mu      sync.Mutex
	staking *staking.Engine
	lottery *lottery.Engine
	ledgers map[string]*token.Ledger
	vault   [20]byte
}

// NewService wires the engines and token ledgers into one serialized facade.
func NewService(stakingEngine *staking.Engine, lotteryEngine *lottery.Engine, vault [20]byte, ledgers ...*token.Ledger) *Service {
	bySymbol := make(map[string]*token.Ledger, len(ledgers))
	for _, ledger := range ledgers {
		if ledger != nil {
			bySymbol[ledger.Symbol()] = ledger
		}
	}
	return &Service{
		staking: stakingEngine,
		lottery: lotteryEngine,
		ledgers: bySymbol,
		vault:   vault,
	}
}

// Stake deposits stake tokens for account.
func (s *Service) Stake(account [20]byte, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.staking.Stake(account, amount)
	observability.PoolMetrics().RecordStakingOp("stake", err)
	return err
}

// Unstake withdraws stake tokens for account.
func (s *Service) Unstake(account [20]byte, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.staking.Unstake(account, amount)
	observability.PoolMetrics().RecordStakingOp("unstake", err)
	return err
}

// Claim mints account's pending rewards.
func (s *Service) Claim(account [20]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.staking.Claim(account)
	observability.PoolMetrics().RecordStakingOp("claim", err)
	return err
}

// SetRewardRate changes the emission rate.
func (s *Service) SetRewardRate(caller [20]byte, rate *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.staking.SetRewardRate(caller, rate)
	observability.PoolMetrics().RecordStakingOp("setRewardRate", err)
	return err
}

// Earned projects account's claimable rewards.
func (s *Service) Earned(account [20]byte) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staking.Earned(account)
}

// StakedBalance reads account's staked amount.
func (s *Service) StakedBalance(account [20]byte) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staking.StakedBalance(account)
}

// StakingGlobal reads the accrual singleton.
func (s *Service) StakingGlobal() (*staking.GlobalState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staking.Global()
}

// StartRound opens a new lottery round.
func (s *Service) StartRound(caller [20]byte, duration int64, prize *big.Int) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.lottery.StartRound(caller, duration, prize)
	observability.PoolMetrics().RecordLotteryOp("startRound", err)
	if err == nil {
		observability.PoolMetrics().RecordRoundStarted()
	}
	return id, err
}

// Enter commits a weighted entry to the active round.
func (s *Service) Enter(account [20]byte, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.lottery.Enter(account, amount)
	observability.PoolMetrics().RecordLotteryOp("enter", err)
	return err
}

// RequestDraw closes the round and requests randomness.
func (s *Service) RequestDraw(caller [20]byte) (random.RequestID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.lottery.RequestDraw(caller)
	observability.PoolMetrics().RecordLotteryOp("requestDraw", err)
	return id, err
}

// Fulfill is the inbound randomness delivery, serialized with every other
// operation.
func (s *Service) Fulfill(id random.RequestID, value *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.lottery.Fulfill(id, value)
	observability.PoolMetrics().RecordLotteryOp("fulfill", err)
	if err == nil {
		observability.PoolMetrics().RecordDrawResolved()
	}
	return err
}

// CurrentRound reads the round record.
func (s *Service) CurrentRound() (*lottery.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lottery.CurrentRound()
}

// ResultFor reads a round's draw outcome.
func (s *Service) ResultFor(round uint64) (*lottery.Result, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lottery.ResultFor(round)
}

// Approve grants the vault an allowance over owner's balance, the step every
// participant needs before stake or entry pulls can succeed.
func (s *Service) Approve(symbol string, owner [20]byte, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, ok := s.ledgers[symbol]
	if !ok {
		return ErrUnknownToken
	}
	return ledger.Approve(owner, s.vault, amount)
}

// TokenBalance reads an account balance for one of the configured tokens.
func (s *Service) TokenBalance(symbol string, account [20]byte) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, ok := s.ledgers[symbol]
	if !ok {
		return nil, ErrUnknownToken
	}
	return ledger.BalanceOf(account)
}
