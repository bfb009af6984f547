package item

import (
	"encoding/json"
	"fmt"
	"time"
)

// Item is the wire payload appended to the stream, one per generated
// sequence number. Sequence numbers are assigned once and never reused.
type Item struct {
	TimestampProducer int64   `json:"timestamp_producer"`
	Payload           Payload `json:"payload"`
}

type Payload struct {
	Package uint64 `json:"package"`
}

func New(sequence uint64, now time.Time) Item {
	return Item{
		TimestampProducer: now.Unix(),
		Payload:           Payload{Package: sequence},
	}
}

// Sequence returns the item's position in the produced stream.
func (i Item) Sequence() uint64 {
	return i.Payload.Package
}

func (i Item) Encode() ([]byte, error) {
	data, err := json.Marshal(i)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	return data, nil
}

func Decode(data []byte) (Item, error) {
	var i Item
	if err := json.Unmarshal(data, &i); err != nil {
		return Item{}, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	if i.Payload.Package == 0 {
		return Item{}, fmt.Errorf("item has no package number")
	}
	return i, nil
}
