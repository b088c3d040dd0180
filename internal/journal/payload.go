package journal

import (
	"errors"
	"share-governance/internal/govfamily"

	"github.com/fxamacker/cbor"
)

// Payload describes one ledger operation. Times are unix nanoseconds and
// amounts of value are decimal wei strings.
type Payload struct {
	Action    govfamily.Action `cbor:"action"`
	Caller    string           `cbor:"caller"`
	Timestamp int64            `cbor:"timestamp"`

	Shares    uint64 `cbor:"shares"`
	Payment   string `cbor:"payment"`
	UnitPrice string `cbor:"unitPrice"`

	Title      string `cbor:"title"`
	ProposalID int    `cbor:"proposalID"`
	Choice     uint8  `cbor:"choice"`
	Deadline   int64  `cbor:"deadline"`

	ClosingTime int64 `cbor:"closingTime"`
}

func (p Payload) Marshal() ([]byte, error) {
	data, err := cbor.Marshal(p, cbor.CanonicalEncOptions())
	if err != nil {
		return nil, errors.New("failed to dump the payload: " + err.Error())
	}

	return data, nil
}

func UnmarshalPayload(data []byte) (Payload, error) {
	var payload Payload
	if err := cbor.Unmarshal(data, &payload); err != nil {
		return Payload{}, errors.New("failed to load the payload: " + err.Error())
	}
	if !payload.Action.IsValid() {
		return Payload{}, errors.New("unknown payload action: " + string(payload.Action))
	}

	return payload, nil
}
