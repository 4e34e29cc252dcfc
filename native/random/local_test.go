package random

import (
	"errors"
	"math/big"
	"testing"
)

func TestLocalSourceDeliversExactlyOnce(t *testing.T) {
	got := make(map[RequestID]int)
	src := NewLocalSource([]byte("seed"), func(id RequestID, value *big.Int) error {
		got[id]++
		if value == nil || value.Sign() <= 0 {
			t.Fatalf("unexpected value %v", value)
		}
		return nil
	})
	src.SetManual(true)

	first, err := src.Request()
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	second, err := src.Request()
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if first == second {
		t.Fatal("request ids must be unique per request")
	}
	if errs := src.DeliverPending(); len(errs) != 0 {
		t.Fatalf("delivery errors: %v", errs)
	}
	if got[first] != 1 || got[second] != 1 {
		t.Fatalf("expected one delivery per request, got %v", got)
	}
	// A second flush has nothing left to deliver.
	if errs := src.DeliverPending(); len(errs) != 0 {
		t.Fatalf("unexpected redelivery errors: %v", errs)
	}
	if got[first] != 1 || got[second] != 1 {
		t.Fatalf("request was redelivered: %v", got)
	}
}

func TestLocalSourceDeterministicIDs(t *testing.T) {
	noop := func(RequestID, *big.Int) error { return nil }
	a := NewLocalSource([]byte("seed"), noop)
	a.SetManual(true)
	b := NewLocalSource([]byte("seed"), noop)
	b.SetManual(true)

	idA, err := a.Request()
	if err != nil {
		t.Fatal(err)
	}
	idB, err := b.Request()
	if err != nil {
		t.Fatal(err)
	}
	if idA != idB {
		t.Fatalf("same seed and nonce produced different ids: %s vs %s", idA, idB)
	}
}

type memNonceStore struct {
	nonce   uint64
	failPut bool
}

func (m *memNonceStore) RandomNonce() (uint64, error) { return m.nonce, nil }

var errNoncePut = errors.New("nonce write failed")

func (m *memNonceStore) PutRandomNonce(nonce uint64) error {
	if m.failPut {
		return errNoncePut
	}
	m.nonce = nonce
	return nil
}

func TestLocalSourceResumesNonceAcrossRestart(t *testing.T) {
	noop := func(RequestID, *big.Int) error { return nil }
	store := &memNonceStore{}

	first := NewLocalSource([]byte("seed"), noop)
	first.SetManual(true)
	if err := first.SetNonceStore(store); err != nil {
		t.Fatal(err)
	}
	issued := make(map[RequestID]bool)
	for i := 0; i < 3; i++ {
		id, err := first.Request()
		if err != nil {
			t.Fatal(err)
		}
		issued[id] = true
	}

	// A fresh source over the same seed and store must not re-mint any id.
	restarted := NewLocalSource([]byte("seed"), noop)
	restarted.SetManual(true)
	if err := restarted.SetNonceStore(store); err != nil {
		t.Fatal(err)
	}
	id, err := restarted.Request()
	if err != nil {
		t.Fatal(err)
	}
	if issued[id] {
		t.Fatalf("restarted source reissued request id %s", id)
	}
	if store.nonce != 4 {
		t.Fatalf("persisted nonce = %d, want 4", store.nonce)
	}
}

func TestLocalSourceFailedNoncePersistAbortsRequest(t *testing.T) {
	noop := func(RequestID, *big.Int) error { return nil }
	store := &memNonceStore{failPut: true}
	src := NewLocalSource([]byte("seed"), noop)
	src.SetManual(true)
	if err := src.SetNonceStore(store); err != nil {
		t.Fatal(err)
	}
	if _, err := src.Request(); err == nil {
		t.Fatal("expected error when nonce persistence fails")
	}

	// The counter rolled back, so the next successful request uses nonce 1.
	store.failPut = false
	id, err := src.Request()
	if err != nil {
		t.Fatal(err)
	}
	fresh := NewLocalSource([]byte("seed"), noop)
	fresh.SetManual(true)
	want, err := fresh.Request()
	if err != nil {
		t.Fatal(err)
	}
	if id != want {
		t.Fatalf("nonce not rolled back after failed persist: %s vs %s", id, want)
	}
}

func TestLocalSourceRequiresCallback(t *testing.T) {
	src := NewLocalSource([]byte("seed"), nil)
	if _, err := src.Request(); err == nil {
		t.Fatal("expected error without delivery callback")
	}
}
