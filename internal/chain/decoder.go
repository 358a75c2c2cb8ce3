package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrEnumRange marks a log whose enum field (side, order type) decoded to a
// value outside the known range. Per-log error, never fatal for a batch.
var ErrEnumRange = errors.New("enum value out of range")

// Decoder turns raw order-book logs into DecodedEvents by topic0 dispatch.
// Logs from contracts outside the allowlist, or with an unrecognized topic0,
// decode to KindUnknown without error.
type Decoder struct {
	allowed map[common.Address]struct{}
}

func NewDecoder(addresses []string) *Decoder {
	d := &Decoder{}
	for _, raw := range addresses {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if d.allowed == nil {
			d.allowed = map[common.Address]struct{}{}
		}
		d.allowed[common.HexToAddress(raw)] = struct{}{}
	}
	return d
}

func (d *Decoder) Decode(lg RawLog) (DecodedEvent, error) {
	if len(lg.Topics) == 0 {
		return DecodedEvent{Kind: KindUnknown}, nil
	}
	if d != nil && d.allowed != nil {
		if _, ok := d.allowed[common.HexToAddress(lg.Address)]; !ok {
			return DecodedEvent{Kind: KindUnknown}, nil
		}
	}
	kind, ok := kindByTopic[common.HexToHash(lg.Topics[0])]
	if !ok {
		return DecodedEvent{Kind: KindUnknown}, nil
	}
	if len(lg.Topics) != 4 {
		return DecodedEvent{}, fmt.Errorf("decode %s: want 4 topics, got %d", kind, len(lg.Topics))
	}

	data, err := decodeDataHex(lg.Data)
	if err != nil {
		return DecodedEvent{}, fmt.Errorf("decode %s: bad data hex: %w", kind, err)
	}
	vals, err := orderBookABI.Events[kind.String()].Inputs.NonIndexed().UnpackValues(data)
	if err != nil {
		return DecodedEvent{}, fmt.Errorf("decode %s: %w", kind, err)
	}

	switch kind {
	case KindPlaced:
		return decodePlaced(lg, vals)
	case KindCancelled:
		return DecodedEvent{
			Kind:     KindCancelled,
			OrderID:  topicBig(lg.Topics[1]),
			MarketID: topicHex(lg.Topics[2]),
			Trader:   topicAddress(lg.Topics[3]),
		}, nil
	case KindExecuted:
		ev := DecodedEvent{
			Kind:     KindExecuted,
			OrderID:  topicBig(lg.Topics[1]),
			MarketID: topicHex(lg.Topics[2]),
			Trader:   topicAddress(lg.Topics[3]),
		}
		if ev.Quantity, ev.Price, err = bigPair(kind, vals, 0, 1); err != nil {
			return DecodedEvent{}, err
		}
		return ev, nil
	case KindMatched:
		return decodeMatched(lg, vals)
	}
	return DecodedEvent{Kind: KindUnknown}, nil
}

func decodePlaced(lg RawLog, vals []interface{}) (DecodedEvent, error) {
	if len(vals) != 5 {
		return DecodedEvent{}, fmt.Errorf("decode OrderPlaced: want 5 data fields, got %d", len(vals))
	}
	side, ok := vals[0].(uint8)
	if !ok || side > SideSell {
		return DecodedEvent{}, fmt.Errorf("decode OrderPlaced: side %v: %w", vals[0], ErrEnumRange)
	}
	orderType, ok := vals[1].(uint8)
	if !ok || orderType > OrderTypeMarket {
		return DecodedEvent{}, fmt.Errorf("decode OrderPlaced: order type %v: %w", vals[1], ErrEnumRange)
	}
	ev := DecodedEvent{
		Kind:      KindPlaced,
		OrderID:   topicBig(lg.Topics[1]),
		MarketID:  topicHex(lg.Topics[2]),
		Trader:    topicAddress(lg.Topics[3]),
		Side:      side,
		OrderType: orderType,
	}
	var err error
	if ev.Quantity, ev.Price, err = bigPair(KindPlaced, vals, 2, 3); err != nil {
		return DecodedEvent{}, err
	}
	expiry, ok := vals[4].(uint64)
	if !ok {
		return DecodedEvent{}, fmt.Errorf("decode OrderPlaced: expiry has type %T", vals[4])
	}
	ev.ExpiryUnix = expiry
	return ev, nil
}

func decodeMatched(lg RawLog, vals []interface{}) (DecodedEvent, error) {
	if len(vals) != 4 {
		return DecodedEvent{}, fmt.Errorf("decode OrdersMatched: want 4 data fields, got %d", len(vals))
	}
	maker, ok := vals[0].(common.Address)
	if !ok {
		return DecodedEvent{}, fmt.Errorf("decode OrdersMatched: maker has type %T", vals[0])
	}
	taker, ok := vals[1].(common.Address)
	if !ok {
		return DecodedEvent{}, fmt.Errorf("decode OrdersMatched: taker has type %T", vals[1])
	}
	// Normalized onto the maker order; the taker order gets its own
	// OrderExecuted log from the contract.
	ev := DecodedEvent{
		Kind:         KindMatched,
		OrderID:      topicBig(lg.Topics[1]),
		MarketID:     topicHex(lg.Topics[3]),
		Trader:       maker,
		Counterparty: taker,
	}
	var err error
	if ev.Quantity, ev.Price, err = bigPair(KindMatched, vals, 2, 3); err != nil {
		return DecodedEvent{}, err
	}
	return ev, nil
}

func bigPair(kind Kind, vals []interface{}, qi, pi int) (*big.Int, *big.Int, error) {
	if len(vals) <= pi {
		return nil, nil, fmt.Errorf("decode %s: want %d data fields, got %d", kind, pi+1, len(vals))
	}
	quantity, ok := vals[qi].(*big.Int)
	if !ok {
		return nil, nil, fmt.Errorf("decode %s: quantity has type %T", kind, vals[qi])
	}
	price, ok := vals[pi].(*big.Int)
	if !ok {
		return nil, nil, fmt.Errorf("decode %s: price has type %T", kind, vals[pi])
	}
	return quantity, price, nil
}

func decodeDataHex(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0x" {
		return nil, nil
	}
	return hexutil.Decode(raw)
}

func topicBig(topic string) *big.Int {
	return common.HexToHash(topic).Big()
}

func topicHex(topic string) string {
	return common.HexToHash(topic).Hex()
}

func topicAddress(topic string) common.Address {
	return common.BytesToAddress(common.HexToHash(topic).Bytes())
}
