package types

// Event is the wire form of a ledger event: a type tag plus flat string
// attributes, friendly to JSON clients and the websocket feed.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
