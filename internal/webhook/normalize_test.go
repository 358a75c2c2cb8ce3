package webhook

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"dexingest/internal/chain"
	"dexingest/internal/models"
)

var normalizeNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNormalizePlaced(t *testing.T) {
	dec := chain.DecodedEvent{
		Kind:       chain.KindPlaced,
		OrderID:    big.NewInt(42),
		MarketID:   "0x00000000000000000000000000000000000000000000000000000000000000aa",
		Trader:     common.HexToAddress("0x1B3cB81E51011b549d78bf720b0d924ac763A7C2"),
		Side:       chain.SideBuy,
		OrderType:  chain.OrderTypeLimit,
		Quantity:   big.NewInt(100),
		Price:      big.NewInt(500),
		ExpiryUnix: 1750000000,
	}
	lg := chain.RawLog{
		TxHash:         "0xABCD",
		LogIndex:       3,
		BlockNumber:    1000,
		BlockTimestamp: time.Unix(1700000000, 0).UTC(),
	}
	ev := NormalizeEvent(dec, lg, normalizeNow)
	if ev == nil {
		t.Fatalf("nil event")
	}
	if ev.EventType != models.EventTypePlaced {
		t.Fatalf("eventType=%s", ev.EventType)
	}
	if ev.OrderID.String() != "42" {
		t.Fatalf("orderId=%s", ev.OrderID)
	}
	if ev.Trader != "0x1b3cb81e51011b549d78bf720b0d924ac763a7c2" {
		t.Fatalf("trader not lower-cased: %s", ev.Trader)
	}
	if ev.TxHash != "0xabcd" {
		t.Fatalf("txHash not lower-cased: %s", ev.TxHash)
	}
	if ev.Side != models.SideBuy || ev.OrderType != "limit" {
		t.Fatalf("side=%s orderType=%s", ev.Side, ev.OrderType)
	}
	if ev.Quantity.String() != "100" || ev.Price.String() != "500" {
		t.Fatalf("quantity=%s price=%s", ev.Quantity, ev.Price)
	}
	if ev.ExpiresAt == nil || ev.ExpiresAt.Unix() != 1750000000 {
		t.Fatalf("expiresAt=%v", ev.ExpiresAt)
	}
	if !ev.OccurredAt.Equal(lg.BlockTimestamp) {
		t.Fatalf("occurredAt=%v want block timestamp", ev.OccurredAt)
	}
}

func TestNormalizeOccurredAtFallback(t *testing.T) {
	dec := chain.DecodedEvent{Kind: chain.KindCancelled, OrderID: big.NewInt(7), MarketID: "0xaa"}
	ev := NormalizeEvent(dec, chain.RawLog{TxHash: "0x1"}, normalizeNow)
	if ev == nil {
		t.Fatalf("nil event")
	}
	if !ev.OccurredAt.Equal(normalizeNow) {
		t.Fatalf("occurredAt=%v want receipt time fallback", ev.OccurredAt)
	}
}

func TestNormalizeCancelledZeroAmounts(t *testing.T) {
	dec := chain.DecodedEvent{Kind: chain.KindCancelled, OrderID: big.NewInt(7), MarketID: "0xaa"}
	ev := NormalizeEvent(dec, chain.RawLog{TxHash: "0x1"}, normalizeNow)
	if ev.EventType != models.EventTypeCancelled {
		t.Fatalf("eventType=%s", ev.EventType)
	}
	if !ev.Quantity.IsZero() || !ev.Price.IsZero() {
		t.Fatalf("cancel must carry zero amounts, got %s/%s", ev.Quantity, ev.Price)
	}
	if ev.ExpiresAt != nil || ev.Counterparty != nil {
		t.Fatalf("unexpected optional fields: %+v", ev)
	}
}

func TestNormalizeMatchedCounterparty(t *testing.T) {
	dec := chain.DecodedEvent{
		Kind:         chain.KindMatched,
		OrderID:      big.NewInt(42),
		MarketID:     "0xaa",
		Trader:       common.HexToAddress("0x52908400098527886E0F7030069857D2E4169EE7"),
		Counterparty: common.HexToAddress("0x8617E340B3D01FA5F11F306F4090FD50E238070D"),
		Quantity:     big.NewInt(25),
		Price:        big.NewInt(501),
	}
	ev := NormalizeEvent(dec, chain.RawLog{TxHash: "0x1"}, normalizeNow)
	if ev.EventType != models.EventTypeMatched {
		t.Fatalf("eventType=%s", ev.EventType)
	}
	if ev.Counterparty == nil || *ev.Counterparty != "0x8617e340b3d01fa5f11f306f4090fd50e238070d" {
		t.Fatalf("counterparty=%v", ev.Counterparty)
	}
}

func TestNormalizeUnknownKind(t *testing.T) {
	if ev := NormalizeEvent(chain.DecodedEvent{Kind: chain.KindUnknown}, chain.RawLog{}, normalizeNow); ev != nil {
		t.Fatalf("unknown kind must normalize to nil, got %+v", ev)
	}
}
