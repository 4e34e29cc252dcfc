package lottery

import (
	"fmt"
	"math/big"
	"time"

	"prizepool/core/events"
	"prizepool/native/common"
	"prizepool/native/random"
	"prizepool/native/token"
)

type engineState interface {
	// LotteryRound returns the current round record, or nil when no round
	// has ever been started.
	LotteryRound() (*Round, error)
	PutLotteryRound(r *Round) error
	DrawRequest(id random.RequestID) (uint64, bool, error)
	PutDrawRequest(id random.RequestID, round uint64) error
	DeleteDrawRequest(id random.RequestID) error
	DrawResult(round uint64) (*Result, bool, error)
	PutDrawResult(res *Result) error
	DeleteDrawResult(round uint64) error
}

// Engine runs the lottery round lifecycle, the weighted draw, and the bridge
// that validates asynchronous randomness delivery against the current round.
type Engine struct {
	state     engineState
	emitter   events.Emitter
	guard     common.Guard
	entries   token.Token
	prize     token.Token
	random    random.Source
	vault     [20]byte
	authority [20]byte
	nowFn     func() int64
}

// NewEngine creates a lottery engine with a no-op emitter. The vault address
// holds entry proceeds and the escrowed prize balance.
func NewEngine(vault [20]byte) *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		vault:   vault,
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEntryToken configures the reward-token capability entries are paid in.
func (e *Engine) SetEntryToken(t token.Token) { e.entries = t }

// SetPrizeToken configures the prize-token capability the escrow pays from.
func (e *Engine) SetPrizeToken(t token.Token) { e.prize = t }

// SetRandomSource configures the randomness collaborator.
func (e *Engine) SetRandomSource(src random.Source) { e.random = src }

// SetAuthority configures the address allowed to start rounds and request draws.
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

// StartRound opens a new round. Allowed whenever no round is actively taking
// entries; a round awaiting its draw does not block the next one. The prize
// must already sit in the escrow vault.
func (e *Engine) StartRound(caller [20]byte, duration int64, prize *big.Int) (uint64, error) {
	if err := e.guard.Enter(); err != nil {
		return 0, err
	}
	defer e.guard.Exit()
	if e.state == nil {
		return 0, errNilState
	}
	if e.prize == nil {
		return 0, errNilToken
	}
	if caller != e.authority {
		return 0, ErrUnauthorized
	}
	if duration <= 0 {
		return 0, ErrInvalidDuration
	}
	if prize == nil || prize.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	current, err := e.state.LotteryRound()
	if err != nil {
		return 0, err
	}
	if current != nil && current.Active {
		return 0, ErrRoundActive
	}
	escrowed, err := e.prize.BalanceOf(e.vault)
	if err != nil {
		return 0, fmt.Errorf("lottery engine: escrow balance: %w", err)
	}
	if escrowed.Cmp(prize) < 0 {
		return 0, ErrPrizeNotEscrowed
	}
	var nextID uint64 = 1
	if current != nil {
		nextID = current.ID + 1
	}
	round := &Round{
		ID:           nextID,
		StartTime:    e.nowFn(),
		Duration:     duration,
		Prize:        new(big.Int).Set(prize),
		Active:       true,
		TotalEntered: big.NewInt(0),
	}
	if err := e.state.PutLotteryRound(round); err != nil {
		return 0, err
	}
	e.emitter.Emit(events.RoundStarted{
		Round:   round.ID,
		EndTime: round.EndTime(),
		Prize:   new(big.Int).Set(round.Prize),
	})
	return round.ID, nil
}

// Enter commits amount of the reward token as caller's weight in the active
// round. Entries are consumed, not refundable. The token pull is the final
// effect.
func (e *Engine) Enter(caller [20]byte, amount *big.Int) error {
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()
	if e.state == nil {
		return errNilState
	}
	if e.entries == nil {
		return errNilToken
	}
	if caller == ([20]byte{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	round, err := e.state.LotteryRound()
	if err != nil {
		return err
	}
	round = round.Normalize()
	if round == nil || !round.Active {
		return ErrNoActiveRound
	}
	prev := round.Clone()

	found := false
	for i := range round.Entries {
		if round.Entries[i].Account == caller {
			round.Entries[i].Amount.Add(round.Entries[i].Amount, amount)
			found = true
			break
		}
	}
	if !found {
		round.Entries = append(round.Entries, Entry{Account: caller, Amount: new(big.Int).Set(amount)})
	}
	round.TotalEntered.Add(round.TotalEntered, amount)
	if err := e.state.PutLotteryRound(round); err != nil {
		return err
	}
	if err := e.entries.TransferFrom(caller, e.vault, amount); err != nil {
		_ = e.state.PutLotteryRound(prev)
		return fmt.Errorf("lottery engine: pull entry: %w", err)
	}
	e.emitter.Emit(events.EntryRecorded{
		Round:        round.ID,
		Account:      caller,
		Amount:       new(big.Int).Set(amount),
		TotalEntered: new(big.Int).Set(round.TotalEntered),
	})
	return nil
}

// RequestDraw closes the active round once its duration has elapsed and asks
// the randomness collaborator for a value, recording the request-to-round
// association the asynchronous delivery will be validated against.
func (e *Engine) RequestDraw(caller [20]byte) (random.RequestID, error) {
	var zero random.RequestID
	if err := e.guard.Enter(); err != nil {
		return zero, err
	}
	defer e.guard.Exit()
	if e.state == nil {
		return zero, errNilState
	}
	if e.random == nil {
		return zero, errNilRandom
	}
	if caller != e.authority {
		return zero, ErrUnauthorized
	}
	round, err := e.state.LotteryRound()
	if err != nil {
		return zero, err
	}
	round = round.Normalize()
	if round == nil || !round.Active {
		return zero, ErrNoActiveRound
	}
	if e.nowFn() < round.EndTime() {
		return zero, ErrRoundOpen
	}
	if round.TotalEntered.Sign() == 0 {
		return zero, ErrNoEntries
	}
	prev := round.Clone()
	round.Active = false
	if err := e.state.PutLotteryRound(round); err != nil {
		return zero, err
	}
	requestID, err := e.random.Request()
	if err != nil {
		_ = e.state.PutLotteryRound(prev)
		return zero, fmt.Errorf("lottery engine: randomness request: %w", err)
	}
	if err := e.state.PutDrawRequest(requestID, round.ID); err != nil {
		_ = e.state.PutLotteryRound(prev)
		return zero, err
	}
	e.emitter.Emit(events.DrawRequested{Round: round.ID, RequestID: requestID})
	return requestID, nil
}

// Fulfill is the inbound randomness delivery. It validates the request against
// the current round, selects the winner, resets the round's entries, records
// the result exactly once, and pays the escrowed prize as the final effect.
// Deliveries for a superseded round are rejected and their request record is
// left dangling, never consumable again.
func (e *Engine) Fulfill(requestID random.RequestID, value *big.Int) error {
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()
	if e.state == nil {
		return errNilState
	}
	if e.prize == nil {
		return errNilToken
	}
	if value == nil {
		return ErrInvalidAmount
	}
	roundID, ok, err := e.state.DrawRequest(requestID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownRequest
	}
	round, err := e.state.LotteryRound()
	if err != nil {
		return err
	}
	round = round.Normalize()
	if round == nil || round.ID != roundID {
		return ErrStaleRequest
	}
	if _, exists, err := e.state.DrawResult(roundID); err != nil {
		return err
	} else if exists {
		return ErrAlreadyResolved
	}

	prev := round.Clone()
	winner := selectWinner(round, value)

	prizePaid := big.NewInt(0)
	if winner != nil {
		prizePaid = new(big.Int).Set(round.Prize)
	}
	round.Entries = nil
	round.TotalEntered = big.NewInt(0)

	result := &Result{
		Round:       roundID,
		Winner:      winner,
		PrizePaid:   prizePaid,
		RandomValue: new(big.Int).Set(value),
	}
	if err := e.state.PutLotteryRound(round); err != nil {
		return err
	}
	if err := e.state.PutDrawResult(result); err != nil {
		_ = e.state.PutLotteryRound(prev)
		return err
	}
	if err := e.state.DeleteDrawRequest(requestID); err != nil {
		_ = e.state.DeleteDrawResult(roundID)
		_ = e.state.PutLotteryRound(prev)
		return err
	}
	if winner != nil && prizePaid.Sign() > 0 {
		if err := e.prize.Transfer(*winner, prizePaid); err != nil {
			_ = e.state.PutDrawRequest(requestID, roundID)
			_ = e.state.DeleteDrawResult(roundID)
			_ = e.state.PutLotteryRound(prev)
			return fmt.Errorf("lottery engine: pay prize: %w", err)
		}
	}
	e.emitter.Emit(events.WinnerSelected{
		Round:       roundID,
		Winner:      winner,
		PrizePaid:   prizePaid,
		RandomValue: new(big.Int).Set(value),
	})
	return nil
}

// selectWinner reduces the random value to a ticket inside the total entered
// weight and walks the entries in insertion order until the ticket falls
// inside a participant's cumulative interval. A deterministic pure function of
// the frozen entry set and the random value.
func selectWinner(round *Round, value *big.Int) *[20]byte {
	if round.TotalEntered.Sign() <= 0 || len(round.Entries) == 0 {
		return nil
	}
	ticket := new(big.Int).Mod(value, round.TotalEntered)
	cumulative := big.NewInt(0)
	for i := range round.Entries {
		cumulative.Add(cumulative, round.Entries[i].Amount)
		if ticket.Cmp(cumulative) < 0 {
			winner := round.Entries[i].Account
			return &winner
		}
	}
	// Unreachable while weights are positive; kept as the null-winner
	// fallback for zero-weight entry sets.
	return nil
}

// CurrentRound returns a copy of the round record, or nil before the first
// round.
func (e *Engine) CurrentRound() (*Round, error) {
	if e.state == nil {
		return nil, errNilState
	}
	round, err := e.state.LotteryRound()
	if err != nil {
		return nil, err
	}
	return round.Clone(), nil
}

// ResultFor returns the recorded draw outcome for a round, if any.
func (e *Engine) ResultFor(roundID uint64) (*Result, bool, error) {
	if e.state == nil {
		return nil, false, errNilState
	}
	res, ok, err := e.state.DrawResult(roundID)
	if err != nil || !ok {
		return nil, ok, err
	}
	return res.Clone(), true, nil
}
