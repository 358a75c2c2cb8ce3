package webhook

import (
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"dexingest/internal/chain"
	"dexingest/internal/models"
)

// NormalizeEvent maps a decoded event plus its log provenance into the
// canonical fact row. Pure and total: KindUnknown yields nil, every other
// kind yields a row. Quantities stay in chain integer units; addresses and
// hashes are canonically lower-cased.
func NormalizeEvent(dec chain.DecodedEvent, lg chain.RawLog, now time.Time) *models.OrderEvent {
	if dec.Kind == chain.KindUnknown {
		return nil
	}

	occurred := lg.BlockTimestamp
	if occurred.IsZero() {
		occurred = now.UTC()
	}

	ev := &models.OrderEvent{
		MarketID:    dec.MarketID,
		OrderID:     bigDecimal(dec.OrderID),
		Trader:      strings.ToLower(dec.Trader.Hex()),
		Quantity:    bigDecimal(dec.Quantity),
		Price:       bigDecimal(dec.Price),
		TxHash:      strings.ToLower(lg.TxHash),
		LogIndex:    lg.LogIndex,
		BlockNumber: lg.BlockNumber,
		OccurredAt:  occurred,
	}

	switch dec.Kind {
	case chain.KindPlaced:
		ev.EventType = models.EventTypePlaced
		ev.Side = sideString(dec.Side)
		ev.OrderType = orderTypeString(dec.OrderType)
		if dec.ExpiryUnix > 0 {
			expires := time.Unix(int64(dec.ExpiryUnix), 0).UTC()
			ev.ExpiresAt = &expires
		}
	case chain.KindCancelled:
		ev.EventType = models.EventTypeCancelled
	case chain.KindExecuted:
		ev.EventType = models.EventTypeExecuted
	case chain.KindMatched:
		ev.EventType = models.EventTypeMatched
		counterparty := strings.ToLower(dec.Counterparty.Hex())
		ev.Counterparty = &counterparty
	}

	return ev
}

// bigDecimal keeps the chain's integer units exactly; cancel events carry no
// quantity and map to zero.
func bigDecimal(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, 0)
}

func sideString(side uint8) string {
	if side == chain.SideSell {
		return models.SideSell
	}
	return models.SideBuy
}

func orderTypeString(orderType uint8) string {
	if orderType == chain.OrderTypeMarket {
		return "market"
	}
	return "limit"
}
