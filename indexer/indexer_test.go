package indexer

import (
	"encoding/json"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"prizepool/core/events"
)

func testAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func openTestIndexer(t *testing.T) *Indexer {
	t.Helper()
	ix, err := Open(filepath.Join(t.TempDir(), "events.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func TestIndexerPersistsEvents(t *testing.T) {
	ix := openTestIndexer(t)

	ix.Emit(events.StakeDeposited{
		Account:     testAddress(0x01),
		Amount:      big.NewInt(100),
		NewStaked:   big.NewInt(100),
		TotalStaked: big.NewInt(100),
	})
	winner := testAddress(0x02)
	ix.Emit(events.WinnerSelected{
		Round:       1,
		Winner:      &winner,
		PrizePaid:   big.NewInt(500),
		RandomValue: big.NewInt(850),
	})

	count, err := ix.CountByType(events.TypeStakeDeposited)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	rows, err := ix.Recent(10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, events.TypeWinnerSelected, rows[0].Type, "most recent first")

	var attrs map[string]string
	require.NoError(t, json.Unmarshal([]byte(rows[0].Attributes), &attrs))
	require.Equal(t, "0x0202020202020202020202020202020202020202", attrs["winner"])
	require.Equal(t, "500", attrs["prizePaid"])
}

func TestIndexerIgnoresUnknownEventShapes(t *testing.T) {
	ix := openTestIndexer(t)

	ix.Emit(opaqueEvent{})

	rows, err := ix.Recent(10)
	require.NoError(t, err)
	require.Empty(t, rows)
}

type opaqueEvent struct{}

func (opaqueEvent) EventType() string { return "opaque" }
