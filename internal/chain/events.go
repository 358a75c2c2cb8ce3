package chain

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// RawLog is one raw chain log as delivered by the provider, with envelope
// metadata already normalized (hex quantities parsed, timestamps resolved).
type RawLog struct {
	Address        string
	Topics         []string
	Data           string
	TxHash         string
	BlockNumber    uint64
	LogIndex       uint
	BlockTimestamp time.Time
}

type Kind int

const (
	KindUnknown Kind = iota
	KindPlaced
	KindCancelled
	KindExecuted
	KindMatched
)

func (k Kind) String() string {
	switch k {
	case KindPlaced:
		return "OrderPlaced"
	case KindCancelled:
		return "OrderCancelled"
	case KindExecuted:
		return "OrderExecuted"
	case KindMatched:
		return "OrdersMatched"
	default:
		return "Unknown"
	}
}

// DecodedEvent is the tagged result of decoding one log. Fields are populated
// per kind; KindUnknown carries nothing.
type DecodedEvent struct {
	Kind     Kind
	OrderID  *big.Int
	MarketID string

	Trader common.Address
	// Counterparty is the taker for OrdersMatched.
	Counterparty common.Address

	Side      uint8
	OrderType uint8
	Quantity  *big.Int
	Price     *big.Int
	// ExpiryUnix is the order's on-chain expiry timestamp, 0 for good-til-cancel.
	ExpiryUnix uint64
}

const (
	SideBuy  uint8 = 0
	SideSell uint8 = 1

	OrderTypeLimit  uint8 = 0
	OrderTypeMarket uint8 = 1
)

const orderBookABIJSON = `[
  {"type":"event","name":"OrderPlaced","inputs":[
    {"name":"orderId","type":"uint256","indexed":true},
    {"name":"marketId","type":"bytes32","indexed":true},
    {"name":"trader","type":"address","indexed":true},
    {"name":"side","type":"uint8","indexed":false},
    {"name":"orderType","type":"uint8","indexed":false},
    {"name":"quantity","type":"uint256","indexed":false},
    {"name":"price","type":"uint256","indexed":false},
    {"name":"expiry","type":"uint64","indexed":false}]},
  {"type":"event","name":"OrderCancelled","inputs":[
    {"name":"orderId","type":"uint256","indexed":true},
    {"name":"marketId","type":"bytes32","indexed":true},
    {"name":"trader","type":"address","indexed":true}]},
  {"type":"event","name":"OrderExecuted","inputs":[
    {"name":"orderId","type":"uint256","indexed":true},
    {"name":"marketId","type":"bytes32","indexed":true},
    {"name":"taker","type":"address","indexed":true},
    {"name":"quantity","type":"uint256","indexed":false},
    {"name":"price","type":"uint256","indexed":false}]},
  {"type":"event","name":"OrdersMatched","inputs":[
    {"name":"makerOrderId","type":"uint256","indexed":true},
    {"name":"takerOrderId","type":"uint256","indexed":true},
    {"name":"marketId","type":"bytes32","indexed":true},
    {"name":"maker","type":"address","indexed":false},
    {"name":"taker","type":"address","indexed":false},
    {"name":"quantity","type":"uint256","indexed":false},
    {"name":"price","type":"uint256","indexed":false}]}
]`

var orderBookABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(orderBookABIJSON))
	if err != nil {
		panic(err)
	}
	return parsed
}()

var kindByTopic = map[common.Hash]Kind{
	orderBookABI.Events["OrderPlaced"].ID:    KindPlaced,
	orderBookABI.Events["OrderCancelled"].ID: KindCancelled,
	orderBookABI.Events["OrderExecuted"].ID:  KindExecuted,
	orderBookABI.Events["OrdersMatched"].ID:  KindMatched,
}

// EventSignature returns the topic0 hash for a known event kind.
func EventSignature(k Kind) common.Hash {
	return orderBookABI.Events[k.String()].ID
}

// KnownEvents lists the decodable event names with their signature hashes.
func KnownEvents() map[string]string {
	out := make(map[string]string, len(kindByTopic))
	for topic, kind := range kindByTopic {
		out[kind.String()] = topic.Hex()
	}
	return out
}
