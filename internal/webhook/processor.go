package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"dexingest/internal/chain"
	"dexingest/internal/models"
	"dexingest/internal/repository"
)

var (
	// ErrInvalidSignature rejects the whole batch with no writes.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMalformedPayload rejects a body that is not JSON or carries no logs path.
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

// OrderRef identifies one recorded event in a batch summary.
type OrderRef struct {
	OrderID     string `json:"orderId"`
	EventType   string `json:"eventType"`
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
}

type BatchResult struct {
	// Processed counts events recorded or recognized as idempotent
	// redeliveries. Unknown logs are skipped, not failed.
	Processed  int
	Skipped    int
	Duplicates int
	Orders     []OrderRef
	Errors     []string
}

// Processor runs verify -> parse -> decode -> normalize -> record for each
// delivery. Per-log failures are collected, never propagated; only an invalid
// signature or an unusable envelope aborts a batch, and then with zero writes.
type Processor struct {
	Repo     repository.Repository
	Verifier *SignatureVerifier
	Decoder  *chain.Decoder
	Logger   *zap.Logger
}

func (p *Processor) ProcessBatch(ctx context.Context, rawBody []byte, signature string) (BatchResult, error) {
	var result BatchResult
	if p == nil || p.Repo == nil || p.Decoder == nil {
		return result, errors.New("processor not configured")
	}
	if p.Verifier == nil || !p.Verifier.Verify(rawBody, signature) {
		return result, ErrInvalidSignature
	}

	deliveryID, logs, err := ExtractLogs(rawBody)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	p.archiveDelivery(ctx, deliveryID, rawBody, len(logs))

	for _, lg := range logs {
		out, err := p.ingestLog(ctx, lg)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s:%d: %v", lg.TxHash, lg.LogIndex, err))
			continue
		}
		if out.skipped {
			result.Skipped++
			continue
		}
		result.Processed++
		if out.duplicate {
			result.Duplicates++
		}
		result.Orders = append(result.Orders, out.ref)
	}

	if p.Logger != nil {
		p.Logger.Info("webhook batch processed",
			zap.String("delivery_id", deliveryID),
			zap.Int("logs", len(logs)),
			zap.Int("processed", result.Processed),
			zap.Int("skipped", result.Skipped),
			zap.Int("duplicates", result.Duplicates),
			zap.Int("errors", len(result.Errors)),
		)
	}
	return result, nil
}

// IngestLog feeds one log from the live stream path through the same
// decode/normalize/record pipeline as the webhook path. Both paths converge
// on the dedup key, so receiving a log on both is harmless.
func (p *Processor) IngestLog(ctx context.Context, lg chain.RawLog) error {
	if p == nil || p.Repo == nil || p.Decoder == nil {
		return errors.New("processor not configured")
	}
	_, err := p.ingestLog(ctx, lg)
	return err
}

type logOutcome struct {
	ref       OrderRef
	skipped   bool
	duplicate bool
}

func (p *Processor) ingestLog(ctx context.Context, lg chain.RawLog) (logOutcome, error) {
	dec, err := p.Decoder.Decode(lg)
	if err != nil {
		return logOutcome{}, err
	}
	ev := NormalizeEvent(dec, lg, time.Now().UTC())
	if ev == nil {
		return logOutcome{skipped: true}, nil
	}

	outcome, err := p.Repo.RecordEvent(ctx, ev)
	if err != nil {
		return logOutcome{}, fmt.Errorf("record order %s: %w", ev.OrderID.String(), err)
	}
	return logOutcome{
		ref: OrderRef{
			OrderID:     ev.OrderID.String(),
			EventType:   ev.EventType,
			TxHash:      ev.TxHash,
			BlockNumber: ev.BlockNumber,
		},
		duplicate: outcome.Duplicate,
	}, nil
}

// archiveDelivery is best-effort; losing the raw copy never fails the batch.
func (p *Processor) archiveDelivery(ctx context.Context, deliveryID string, rawBody []byte, logCount int) {
	item := &models.RawWebhookDelivery{
		Source:     "webhook",
		LogCount:   logCount,
		ReceivedAt: time.Now().UTC(),
		Payload:    datatypes.JSON(rawBody),
	}
	if deliveryID != "" {
		item.DeliveryID = &deliveryID
	}
	if err := p.Repo.InsertRawDelivery(ctx, item); err != nil && p.Logger != nil {
		p.Logger.Warn("raw delivery archive failed", zap.Error(err))
	}
}
