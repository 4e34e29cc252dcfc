package lottery

import (
	"errors"
	"math/big"
	"testing"

	"prizepool/native/random"
)

type mockState struct {
	round    *Round
	requests map[random.RequestID]uint64
	results  map[uint64]*Result
}

func newMockState() *mockState {
	return &mockState{
		requests: make(map[random.RequestID]uint64),
		results:  make(map[uint64]*Result),
	}
}

func (m *mockState) LotteryRound() (*Round, error) { return m.round.Clone(), nil }

func (m *mockState) PutLotteryRound(r *Round) error {
	m.round = r.Clone()
	return nil
}

func (m *mockState) DrawRequest(id random.RequestID) (uint64, bool, error) {
	roundID, ok := m.requests[id]
	return roundID, ok, nil
}

func (m *mockState) PutDrawRequest(id random.RequestID, round uint64) error {
	m.requests[id] = round
	return nil
}

func (m *mockState) DeleteDrawRequest(id random.RequestID) error {
	delete(m.requests, id)
	return nil
}

func (m *mockState) DrawResult(round uint64) (*Result, bool, error) {
	res, ok := m.results[round]
	return res.Clone(), ok, nil
}

func (m *mockState) PutDrawResult(res *Result) error {
	m.results[res.Round] = res.Clone()
	return nil
}

func (m *mockState) DeleteDrawResult(round uint64) error {
	delete(m.results, round)
	return nil
}

type mockToken struct {
	balances map[[20]byte]*big.Int
	pulls    int
	failNext error
}

func newMockToken() *mockToken {
	return &mockToken{balances: make(map[[20]byte]*big.Int)}
}

func (t *mockToken) credit(addr [20]byte, amount int64) {
	t.balances[addr] = big.NewInt(amount)
}

func (t *mockToken) TransferFrom(from, to [20]byte, amount *big.Int) error {
	if t.failNext != nil {
		return t.failNext
	}
	t.pulls++
	return nil
}

func (t *mockToken) Transfer(to [20]byte, amount *big.Int) error {
	if t.failNext != nil {
		return t.failNext
	}
	cur, ok := t.balances[to]
	if !ok {
		cur = big.NewInt(0)
	}
	t.balances[to] = new(big.Int).Add(cur, amount)
	return nil
}

func (t *mockToken) BalanceOf(addr [20]byte) (*big.Int, error) {
	if bal, ok := t.balances[addr]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

type stubSource struct {
	nonce byte
	fail  error
}

func (s *stubSource) Request() (random.RequestID, error) {
	if s.fail != nil {
		return random.RequestID{}, s.fail
	}
	s.nonce++
	var id random.RequestID
	id[0] = s.nonce
	return id, nil
}

type clock struct {
	now int64
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

var (
	authority = newTestAddress(0xAD)
	vault     = newTestAddress(0xEE)
)

func newTestEngine(t *testing.T) (*Engine, *mockState, *mockToken, *mockToken, *clock) {
	t.Helper()
	state := newMockState()
	entryTok := newMockToken()
	prizeTok := newMockToken()
	prizeTok.credit(vault, 1_000_000)
	clk := &clock{now: 10_000}
	engine := NewEngine(vault)
	engine.SetState(state)
	engine.SetEntryToken(entryTok)
	engine.SetPrizeToken(prizeTok)
	engine.SetRandomSource(&stubSource{})
	engine.SetAuthority(authority)
	engine.SetNowFunc(func() int64 { return clk.now })
	return engine, state, entryTok, prizeTok, clk
}

func mustStart(t *testing.T, e *Engine, duration int64, prize int64) uint64 {
	t.Helper()
	id, err := e.StartRound(authority, duration, big.NewInt(prize))
	if err != nil {
		t.Fatalf("start round: %v", err)
	}
	return id
}

func mustEnter(t *testing.T, e *Engine, account [20]byte, amount int64) {
	t.Helper()
	if err := e.Enter(account, big.NewInt(amount)); err != nil {
		t.Fatalf("enter: %v", err)
	}
}

func TestWeightedDrawSelectsByCumulativeWeight(t *testing.T) {
	engine, state, _, prizeTok, clk := newTestEngine(t)
	roundID := mustStart(t, engine, 60, 500)
	a := newTestAddress(0x01)
	b := newTestAddress(0x02)
	c := newTestAddress(0x03)
	mustEnter(t, engine, a, 100)
	mustEnter(t, engine, b, 200)
	mustEnter(t, engine, c, 300)

	clk.now += 60
	requestID, err := engine.RequestDraw(authority)
	if err != nil {
		t.Fatalf("request draw: %v", err)
	}

	// 850 mod 600 = 250: past A's interval [0,100), inside B's [100,300).
	if err := engine.Fulfill(requestID, big.NewInt(850)); err != nil {
		t.Fatalf("fulfill: %v", err)
	}

	res, ok, err := engine.ResultFor(roundID)
	if err != nil || !ok {
		t.Fatalf("result: ok=%v err=%v", ok, err)
	}
	if res.Winner == nil || *res.Winner != b {
		t.Fatalf("winner = %v, want %x", res.Winner, b)
	}
	if res.PrizePaid.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("prize paid = %s, want 500", res.PrizePaid)
	}
	if bal, _ := prizeTok.BalanceOf(b); bal.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("winner balance = %s, want 500", bal)
	}
	if _, ok := state.requests[requestID]; ok {
		t.Fatal("request association not consumed")
	}
	round := state.round
	if len(round.Entries) != 0 || round.TotalEntered.Sign() != 0 {
		t.Fatalf("round not reset: %d entries, total %s", len(round.Entries), round.TotalEntered)
	}
	if round.Active {
		t.Fatal("resolved round still active")
	}
}

func TestEntriesAccumulatePerAccount(t *testing.T) {
	engine, state, _, _, _ := newTestEngine(t)
	mustStart(t, engine, 60, 500)
	a := newTestAddress(0x01)
	b := newTestAddress(0x02)
	mustEnter(t, engine, a, 10)
	mustEnter(t, engine, b, 20)
	mustEnter(t, engine, a, 5)

	round := state.round
	if len(round.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(round.Entries))
	}
	if round.Entries[0].Account != a || round.Entries[0].Amount.Cmp(big.NewInt(15)) != 0 {
		t.Fatalf("first entry = %x %s", round.Entries[0].Account, round.Entries[0].Amount)
	}
	if round.Entries[1].Account != b {
		t.Fatal("insertion order not preserved")
	}
	sum := big.NewInt(0)
	for _, entry := range round.Entries {
		sum.Add(sum, entry.Amount)
	}
	if sum.Cmp(round.TotalEntered) != 0 {
		t.Fatalf("sum(entries) = %s, totalEntered = %s", sum, round.TotalEntered)
	}
}

func TestStartRoundGuards(t *testing.T) {
	engine, _, _, prizeTok, _ := newTestEngine(t)
	if _, err := engine.StartRound(newTestAddress(0x09), 60, big.NewInt(1)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unauthorized: got %v", err)
	}
	if _, err := engine.StartRound(authority, 0, big.NewInt(1)); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("zero duration: got %v", err)
	}
	if _, err := engine.StartRound(authority, 60, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero prize: got %v", err)
	}
	prizeTok.balances[vault] = big.NewInt(10)
	if _, err := engine.StartRound(authority, 60, big.NewInt(11)); !errors.Is(err, ErrPrizeNotEscrowed) {
		t.Fatalf("uncovered prize: got %v", err)
	}
	mustStart(t, engine, 60, 10)
	if _, err := engine.StartRound(authority, 60, big.NewInt(10)); !errors.Is(err, ErrRoundActive) {
		t.Fatalf("second active round: got %v", err)
	}
}

func TestEnterGuards(t *testing.T) {
	engine, _, _, _, clk := newTestEngine(t)
	a := newTestAddress(0x01)
	if err := engine.Enter(a, big.NewInt(1)); !errors.Is(err, ErrNoActiveRound) {
		t.Fatalf("enter before any round: got %v", err)
	}
	mustStart(t, engine, 60, 500)
	if err := engine.Enter(a, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero entry: got %v", err)
	}
	if err := engine.Enter([20]byte{}, big.NewInt(1)); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("zero address: got %v", err)
	}
	mustEnter(t, engine, a, 1)
	clk.now += 60
	if _, err := engine.RequestDraw(authority); err != nil {
		t.Fatal(err)
	}
	if err := engine.Enter(a, big.NewInt(1)); !errors.Is(err, ErrNoActiveRound) {
		t.Fatalf("enter after close: got %v", err)
	}
}

func TestRequestDrawGuards(t *testing.T) {
	engine, state, _, _, clk := newTestEngine(t)
	if _, err := engine.RequestDraw(authority); !errors.Is(err, ErrNoActiveRound) {
		t.Fatalf("draw without round: got %v", err)
	}
	mustStart(t, engine, 60, 500)
	if _, err := engine.RequestDraw(newTestAddress(0x09)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unauthorized draw: got %v", err)
	}
	mustEnter(t, engine, newTestAddress(0x01), 10)
	if _, err := engine.RequestDraw(authority); !errors.Is(err, ErrRoundOpen) {
		t.Fatalf("early draw: got %v", err)
	}
	if !state.round.Active {
		t.Fatal("failed draw deactivated round")
	}
	clk.now += 60
	if _, err := engine.RequestDraw(authority); err != nil {
		t.Fatalf("draw at end time: %v", err)
	}
}

func TestRequestDrawRejectsEmptyRound(t *testing.T) {
	engine, state, _, _, clk := newTestEngine(t)
	mustStart(t, engine, 60, 500)
	clk.now += 120
	if _, err := engine.RequestDraw(authority); !errors.Is(err, ErrNoEntries) {
		t.Fatalf("empty draw: got %v", err)
	}
	if !state.round.Active {
		t.Fatal("empty-round draw deactivated the round")
	}
}

func TestStaleFulfillLeavesNewRoundUntouched(t *testing.T) {
	engine, state, _, _, clk := newTestEngine(t)
	mustStart(t, engine, 60, 500)
	mustEnter(t, engine, newTestAddress(0x01), 100)
	clk.now += 60
	staleID, err := engine.RequestDraw(authority)
	if err != nil {
		t.Fatal(err)
	}

	// The next round starts while the first draw is still outstanding.
	nextID := mustStart(t, engine, 60, 500)
	mustEnter(t, engine, newTestAddress(0x02), 40)

	if err := engine.Fulfill(staleID, big.NewInt(7)); !errors.Is(err, ErrStaleRequest) {
		t.Fatalf("stale fulfill: got %v", err)
	}
	round := state.round
	if round.ID != nextID || !round.Active {
		t.Fatalf("stale fulfill mutated current round: id=%d active=%v", round.ID, round.Active)
	}
	if round.TotalEntered.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("stale fulfill mutated entries: %s", round.TotalEntered)
	}
	// The dangling association is preserved but never consumable.
	if _, ok := state.requests[staleID]; !ok {
		t.Fatal("stale request association was cleaned up")
	}
}

func TestFulfillUnknownAndDuplicate(t *testing.T) {
	engine, state, _, _, clk := newTestEngine(t)
	mustStart(t, engine, 60, 500)
	mustEnter(t, engine, newTestAddress(0x01), 100)
	clk.now += 60
	requestID, err := engine.RequestDraw(authority)
	if err != nil {
		t.Fatal(err)
	}
	var bogus random.RequestID
	bogus[0] = 0xFF
	if err := engine.Fulfill(bogus, big.NewInt(1)); !errors.Is(err, ErrUnknownRequest) {
		t.Fatalf("unknown request: got %v", err)
	}
	if err := engine.Fulfill(requestID, big.NewInt(1)); err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	// A consumed request is no longer known.
	if err := engine.Fulfill(requestID, big.NewInt(1)); !errors.Is(err, ErrUnknownRequest) {
		t.Fatalf("replayed fulfill: got %v", err)
	}

	// A round with a recorded result rejects a second write even if the
	// request association were still present.
	state.requests[requestID] = state.round.ID
	if err := engine.Fulfill(requestID, big.NewInt(1)); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("duplicate result: got %v", err)
	}
}

func TestFulfillRollsBackOnPrizeFailure(t *testing.T) {
	engine, state, _, prizeTok, clk := newTestEngine(t)
	mustStart(t, engine, 60, 500)
	mustEnter(t, engine, newTestAddress(0x01), 100)
	clk.now += 60
	requestID, err := engine.RequestDraw(authority)
	if err != nil {
		t.Fatal(err)
	}
	prizeTok.failNext = errors.New("escrow transfer rejected")
	if err := engine.Fulfill(requestID, big.NewInt(3)); err == nil {
		t.Fatal("expected fulfill to fail")
	}
	prizeTok.failNext = nil
	if _, ok := state.requests[requestID]; !ok {
		t.Fatal("request lost after failed payout")
	}
	if _, ok := state.results[state.round.ID]; ok {
		t.Fatal("result recorded despite failed payout")
	}
	if state.round.TotalEntered.Cmp(big.NewInt(100)) != 0 {
		t.Fatal("entries cleared despite failed payout")
	}
	// The delivery can be retried once the escrow works again.
	if err := engine.Fulfill(requestID, big.NewInt(3)); err != nil {
		t.Fatalf("retry fulfill: %v", err)
	}
}

func TestSelectWinnerDeterministic(t *testing.T) {
	round := &Round{
		TotalEntered: big.NewInt(600),
		Entries: []Entry{
			{Account: newTestAddress(0x01), Amount: big.NewInt(100)},
			{Account: newTestAddress(0x02), Amount: big.NewInt(200)},
			{Account: newTestAddress(0x03), Amount: big.NewInt(300)},
		},
	}
	first := selectWinner(round, big.NewInt(250))
	second := selectWinner(round, big.NewInt(250))
	if first == nil || second == nil || *first != *second {
		t.Fatalf("selection not deterministic: %v vs %v", first, second)
	}
	// Boundary: ticket 100 is the first unit of B's interval.
	boundary := selectWinner(round, big.NewInt(100))
	if boundary == nil || *boundary != newTestAddress(0x02) {
		t.Fatalf("boundary ticket chose %v", boundary)
	}
	// Ticket 99 is the last unit of A's interval.
	last := selectWinner(round, big.NewInt(99))
	if last == nil || *last != newTestAddress(0x01) {
		t.Fatalf("ticket 99 chose %v", last)
	}
}

func TestSelectWinnerZeroWeightFallback(t *testing.T) {
	round := &Round{
		TotalEntered: big.NewInt(10),
		Entries: []Entry{
			{Account: newTestAddress(0x01), Amount: big.NewInt(0)},
			{Account: newTestAddress(0x02), Amount: big.NewInt(0)},
		},
	}
	if winner := selectWinner(round, big.NewInt(4)); winner != nil {
		t.Fatalf("zero-weight entries produced winner %x", *winner)
	}
}

func TestFreshRoundAfterResolution(t *testing.T) {
	engine, _, _, _, clk := newTestEngine(t)
	first := mustStart(t, engine, 60, 500)
	mustEnter(t, engine, newTestAddress(0x01), 100)
	clk.now += 60
	requestID, err := engine.RequestDraw(authority)
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Fulfill(requestID, big.NewInt(42)); err != nil {
		t.Fatal(err)
	}
	next := mustStart(t, engine, 30, 500)
	if next != first+1 {
		t.Fatalf("round id = %d, want %d", next, first+1)
	}
	round, err := engine.CurrentRound()
	if err != nil {
		t.Fatal(err)
	}
	if len(round.Entries) != 0 || round.TotalEntered.Sign() != 0 || !round.Active {
		t.Fatalf("new round not clean: %+v", round)
	}
}
