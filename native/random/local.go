package random

import (
	"encoding/binary"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var errNilDeliver = errors.New("random source: delivery callback not configured")

// NonceStore persists the request counter so a restarted source never
// re-mints request ids it already issued for the same seed.
type NonceStore interface {
	RandomNonce() (uint64, error)
	PutRandomNonce(nonce uint64) error
}

type delivery struct {
	id    RequestID
	value *big.Int
}

// LocalSource is an in-process randomness collaborator. Request ids are
// Keccak-256 digests over the seed and a monotonic nonce; values derive from
// the id so each request resolves to exactly one value. Delivery runs on its
// own goroutine after a configurable delay, or is held for manual release in
// deterministic test mode.
type LocalSource struct {
	mu      sync.Mutex
	seed    []byte
	nonce   uint64
	delay   time.Duration
	manual  bool
	pending []delivery
	deliver DeliverFunc
	store   NonceStore
	logger  *slog.Logger
}

// NewLocalSource creates a source delivering through the given callback.
func NewLocalSource(seed []byte, deliver DeliverFunc) *LocalSource {
	return &LocalSource{
		seed:    append([]byte(nil), seed...),
		delay:   time.Second,
		deliver: deliver,
		logger:  slog.Default(),
	}
}

// SetNonceStore wires durable nonce persistence and resumes the counter from
// the stored value.
func (s *LocalSource) SetNonceStore(store NonceStore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if store == nil {
		s.store = nil
		return nil
	}
	nonce, err := store.RandomNonce()
	if err != nil {
		return err
	}
	s.store = store
	s.nonce = nonce
	return nil
}

// SetDelay configures how long after acceptance a value is delivered.
func (s *LocalSource) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// SetManual switches the source to hold deliveries until DeliverPending is
// called. Used by tests to control interleaving.
func (s *LocalSource) SetManual(manual bool) {
	s.mu.Lock()
	s.manual = manual
	s.mu.Unlock()
}

// SetLogger overrides the logger used for failed asynchronous deliveries.
func (s *LocalSource) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()
}

// Request accepts a randomness request and schedules its delivery.
func (s *LocalSource) Request() (RequestID, error) {
	s.mu.Lock()
	if s.deliver == nil {
		s.mu.Unlock()
		return RequestID{}, errNilDeliver
	}
	s.nonce++
	if s.store != nil {
		if err := s.store.PutRandomNonce(s.nonce); err != nil {
			s.nonce--
			s.mu.Unlock()
			return RequestID{}, err
		}
	}
	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], s.nonce)
	var id RequestID
	copy(id[:], ethcrypto.Keccak256(s.seed, nonceBytes[:]))
	value := new(big.Int).SetBytes(ethcrypto.Keccak256(id[:], s.seed, []byte("value")))
	d := delivery{id: id, value: value}
	if s.manual {
		s.pending = append(s.pending, d)
		s.mu.Unlock()
		return id, nil
	}
	delay := s.delay
	deliver := s.deliver
	logger := s.logger
	s.mu.Unlock()

	go func() {
		time.Sleep(delay)
		if err := deliver(d.id, d.value); err != nil {
			logger.Error("randomness delivery rejected", "requestId", d.id.String(), "err", err)
		}
	}()
	return id, nil
}

// DeliverPending releases held deliveries in acceptance order. Each request is
// delivered at most once; a rejected delivery is dropped, not retried.
func (s *LocalSource) DeliverPending() []error {
	s.mu.Lock()
	held := s.pending
	s.pending = nil
	deliver := s.deliver
	s.mu.Unlock()
	var errs []error
	for _, d := range held {
		if err := deliver(d.id, d.value); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
