package events

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"prizepool/core/types"
)

const (
	// TypeRoundStarted is emitted when a new lottery round opens for entries.
	TypeRoundStarted = "lottery.roundStarted"
	// TypeEntryRecorded is emitted for every accepted lottery entry.
	TypeEntryRecorded = "lottery.entryRecorded"
	// TypeDrawRequested is emitted when a round closes and randomness is requested.
	TypeDrawRequested = "lottery.drawRequested"
	// TypeWinnerSelected is emitted when a draw resolves, with or without a winner.
	TypeWinnerSelected = "lottery.winnerSelected"
)

// RoundStarted announces a freshly opened round.
type RoundStarted struct {
	Round   uint64
	EndTime int64
	Prize   *big.Int
}

// EventType satisfies the Event interface.
func (RoundStarted) EventType() string { return TypeRoundStarted }

// Event converts the structured payload into a broadcastable event.
func (e RoundStarted) Event() *types.Event {
	return &types.Event{
		Type: TypeRoundStarted,
		Attributes: map[string]string{
			"round":   strconv.FormatUint(e.Round, 10),
			"endTime": strconv.FormatInt(e.EndTime, 10),
			"prize":   formatAmount(e.Prize),
		},
	}
}

// EntryRecorded captures a single weighted entry into the active round.
type EntryRecorded struct {
	Round        uint64
	Account      [20]byte
	Amount       *big.Int
	TotalEntered *big.Int
}

// EventType satisfies the Event interface.
func (EntryRecorded) EventType() string { return TypeEntryRecorded }

// Event converts the structured payload into a broadcastable event.
func (e EntryRecorded) Event() *types.Event {
	return &types.Event{
		Type: TypeEntryRecorded,
		Attributes: map[string]string{
			"round":        strconv.FormatUint(e.Round, 10),
			"account":      formatAddress(e.Account),
			"amount":       formatAmount(e.Amount),
			"totalEntered": formatAmount(e.TotalEntered),
		},
	}
}

// DrawRequested records the randomness request issued for a closed round.
type DrawRequested struct {
	Round     uint64
	RequestID [32]byte
}

// EventType satisfies the Event interface.
func (DrawRequested) EventType() string { return TypeDrawRequested }

// Event converts the structured payload into a broadcastable event.
func (e DrawRequested) Event() *types.Event {
	return &types.Event{
		Type: TypeDrawRequested,
		Attributes: map[string]string{
			"round":     strconv.FormatUint(e.Round, 10),
			"requestId": "0x" + hex.EncodeToString(e.RequestID[:]),
		},
	}
}

// WinnerSelected records the outcome of a resolved draw. Winner is nil when no
// participant qualified and the prize was withheld.
type WinnerSelected struct {
	Round       uint64
	Winner      *[20]byte
	PrizePaid   *big.Int
	RandomValue *big.Int
}

// EventType satisfies the Event interface.
func (WinnerSelected) EventType() string { return TypeWinnerSelected }

// Event converts the structured payload into a broadcastable event.
func (e WinnerSelected) Event() *types.Event {
	winner := ""
	if e.Winner != nil {
		winner = formatAddress(*e.Winner)
	}
	return &types.Event{
		Type: TypeWinnerSelected,
		Attributes: map[string]string{
			"round":       strconv.FormatUint(e.Round, 10),
			"winner":      winner,
			"prizePaid":   formatAmount(e.PrizePaid),
			"randomValue": formatAmount(e.RandomValue),
		},
	}
}
