package chain

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	testMarket = "0x00000000000000000000000000000000000000000000000000000000000000aa"
	testTrader = "0x1b3cb81e51011b549d78bf720b0d924ac763a7c2"
)

func packData(t *testing.T, kind Kind, vals ...interface{}) string {
	t.Helper()
	data, err := orderBookABI.Events[kind.String()].Inputs.NonIndexed().Pack(vals...)
	if err != nil {
		t.Fatalf("pack %s: %v", kind, err)
	}
	return hexutil.Encode(data)
}

func addressTopic(addr string) string {
	return common.BytesToHash(common.HexToAddress(addr).Bytes()).Hex()
}

func orderIDTopic(id int64) string {
	return common.BigToHash(big.NewInt(id)).Hex()
}

func placedLog(t *testing.T, side, orderType uint8) RawLog {
	t.Helper()
	return RawLog{
		Address: "0xorderbook",
		Topics: []string{
			EventSignature(KindPlaced).Hex(),
			orderIDTopic(42),
			testMarket,
			addressTopic(testTrader),
		},
		Data:        packData(t, KindPlaced, side, orderType, big.NewInt(100), big.NewInt(500), uint64(0)),
		TxHash:      "0xaaa",
		BlockNumber: 1000,
		LogIndex:    0,
	}
}

func TestDecodePlaced(t *testing.T) {
	d := NewDecoder(nil)
	ev, err := d.Decode(placedLog(t, SideBuy, OrderTypeLimit))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != KindPlaced {
		t.Fatalf("kind=%v want placed", ev.Kind)
	}
	if ev.OrderID.Int64() != 42 {
		t.Fatalf("orderId=%s want 42", ev.OrderID)
	}
	if ev.MarketID != testMarket {
		t.Fatalf("marketId=%s", ev.MarketID)
	}
	if ev.Trader != common.HexToAddress(testTrader) {
		t.Fatalf("trader=%s", ev.Trader.Hex())
	}
	if ev.Side != SideBuy || ev.OrderType != OrderTypeLimit {
		t.Fatalf("side=%d orderType=%d", ev.Side, ev.OrderType)
	}
	if ev.Quantity.Int64() != 100 || ev.Price.Int64() != 500 {
		t.Fatalf("quantity=%s price=%s", ev.Quantity, ev.Price)
	}
}

func TestDecodeUnknownTopic(t *testing.T) {
	d := NewDecoder(nil)
	lg := placedLog(t, SideBuy, OrderTypeLimit)
	lg.Topics[0] = "0x" + "11" + lg.Topics[0][4:]
	ev, err := d.Decode(lg)
	if err != nil {
		t.Fatalf("unknown topic must not error, got %v", err)
	}
	if ev.Kind != KindUnknown {
		t.Fatalf("kind=%v want unknown", ev.Kind)
	}
}

func TestDecodeNoTopics(t *testing.T) {
	d := NewDecoder(nil)
	ev, err := d.Decode(RawLog{Data: "0x"})
	if err != nil || ev.Kind != KindUnknown {
		t.Fatalf("ev=%+v err=%v", ev, err)
	}
}

func TestDecodeSideOutOfRange(t *testing.T) {
	d := NewDecoder(nil)
	_, err := d.Decode(placedLog(t, 7, OrderTypeLimit))
	if !errors.Is(err, ErrEnumRange) {
		t.Fatalf("err=%v want ErrEnumRange", err)
	}
}

func TestDecodeOrderTypeOutOfRange(t *testing.T) {
	d := NewDecoder(nil)
	_, err := d.Decode(placedLog(t, SideSell, 9))
	if !errors.Is(err, ErrEnumRange) {
		t.Fatalf("err=%v want ErrEnumRange", err)
	}
}

func TestDecodeTruncatedData(t *testing.T) {
	d := NewDecoder(nil)
	lg := placedLog(t, SideBuy, OrderTypeLimit)
	lg.Data = lg.Data[:10]
	if _, err := d.Decode(lg); err == nil {
		t.Fatalf("expected error for truncated data")
	}
}

func TestDecodeAddressAllowlist(t *testing.T) {
	book := "0x52908400098527886e0f7030069857d2e4169ee7"
	d := NewDecoder([]string{book})

	lg := placedLog(t, SideBuy, OrderTypeLimit)
	lg.Address = "0x8617e340b3d01fa5f11f306f4090fd50e238070d"
	ev, err := d.Decode(lg)
	if err != nil || ev.Kind != KindUnknown {
		t.Fatalf("foreign contract must be skipped, ev=%+v err=%v", ev, err)
	}

	lg.Address = book
	ev, err = d.Decode(lg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != KindPlaced {
		t.Fatalf("kind=%v want placed", ev.Kind)
	}
}

func TestDecodeCancelled(t *testing.T) {
	d := NewDecoder(nil)
	ev, err := d.Decode(RawLog{
		Topics: []string{
			EventSignature(KindCancelled).Hex(),
			orderIDTopic(7),
			testMarket,
			addressTopic(testTrader),
		},
		Data: "0x",
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != KindCancelled || ev.OrderID.Int64() != 7 {
		t.Fatalf("ev=%+v", ev)
	}
}

func TestDecodeExecuted(t *testing.T) {
	d := NewDecoder(nil)
	ev, err := d.Decode(RawLog{
		Topics: []string{
			EventSignature(KindExecuted).Hex(),
			orderIDTopic(42),
			testMarket,
			addressTopic(testTrader),
		},
		Data: packData(t, KindExecuted, big.NewInt(60), big.NewInt(500)),
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != KindExecuted || ev.Quantity.Int64() != 60 || ev.Price.Int64() != 500 {
		t.Fatalf("ev=%+v", ev)
	}
}

func TestDecodeMatched(t *testing.T) {
	maker := common.HexToAddress("0x52908400098527886e0f7030069857d2e4169ee7")
	taker := common.HexToAddress("0x8617e340b3d01fa5f11f306f4090fd50e238070d")
	d := NewDecoder(nil)
	ev, err := d.Decode(RawLog{
		Topics: []string{
			EventSignature(KindMatched).Hex(),
			orderIDTopic(42),
			orderIDTopic(43),
			testMarket,
		},
		Data: packData(t, KindMatched, maker, taker, big.NewInt(25), big.NewInt(501)),
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != KindMatched {
		t.Fatalf("kind=%v", ev.Kind)
	}
	if ev.OrderID.Int64() != 42 {
		t.Fatalf("orderId=%s want maker order 42", ev.OrderID)
	}
	if ev.Trader != maker || ev.Counterparty != taker {
		t.Fatalf("trader=%s counterparty=%s", ev.Trader.Hex(), ev.Counterparty.Hex())
	}
	if ev.MarketID != testMarket {
		t.Fatalf("marketId=%s", ev.MarketID)
	}
}
