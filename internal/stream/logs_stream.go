package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"dexingest/internal/chain"
)

type Options struct {
	URL        string
	Addresses  []string
	BackoffMin time.Duration
	BackoffMax time.Duration
	Logger     *zap.Logger
}

// LogStream subscribes to the provider's websocket log feed
// (eth_subscribe "logs") as a secondary ingest path next to webhooks. Both
// paths converge on the same dedup key, so overlap is harmless.
type LogStream struct {
	opts Options
}

func New(opts Options) *LogStream {
	if opts.BackoffMin == 0 {
		opts.BackoffMin = 1 * time.Second
	}
	if opts.BackoffMax == 0 {
		opts.BackoffMax = 30 * time.Second
	}
	return &LogStream{opts: opts}
}

func (s *LogStream) Run(ctx context.Context, onLog func(chain.RawLog)) error {
	if s == nil {
		return fmt.Errorf("stream is nil")
	}
	if s.opts.URL == "" {
		return fmt.Errorf("stream url is empty")
	}
	backoff := s.opts.BackoffMin
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, _, err := websocket.Dial(ctx, s.opts.URL, nil)
		if err != nil {
			if s.opts.Logger != nil {
				s.opts.Logger.Warn("log stream connect failed", zap.Error(err))
			}
			if err := sleepWithJitter(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff, s.opts.BackoffMax)
			continue
		}
		conn.SetReadLimit(2 << 20) // 2MB

		if err := s.subscribe(ctx, conn); err != nil {
			if s.opts.Logger != nil {
				s.opts.Logger.Warn("log stream subscribe failed", zap.Error(err))
			}
			_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
			if err := sleepWithJitter(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff, s.opts.BackoffMax)
			continue
		}
		if s.opts.Logger != nil {
			s.opts.Logger.Info("log stream subscribed",
				zap.String("url", s.opts.URL),
				zap.Int("contracts", len(s.opts.Addresses)),
			)
		}
		backoff = s.opts.BackoffMin

		err = s.consume(ctx, conn, onLog)
		_ = conn.Close(websocket.StatusNormalClosure, "reconnect")
		if err == nil || errors.Is(err, context.Canceled) {
			return err
		}
		if s.opts.Logger != nil {
			s.opts.Logger.Warn("log stream disconnected", zap.Error(err))
		}
		if err := sleepWithJitter(ctx, backoff); err != nil {
			return err
		}
		backoff = nextBackoff(backoff, s.opts.BackoffMax)
	}
}

type subscribeRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type subscribeReply struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *LogStream) subscribe(ctx context.Context, conn *websocket.Conn) error {
	filter := map[string]any{}
	if len(s.opts.Addresses) > 0 {
		filter["address"] = s.opts.Addresses
	}
	req := subscribeRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_subscribe",
		Params:  []any{"logs", filter},
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return err
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		return err
	}
	var reply subscribeReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return err
	}
	if reply.Error != nil {
		return fmt.Errorf("subscription rejected: %s", reply.Error.Message)
	}
	return nil
}

type logNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Address         string   `json:"address"`
			Topics          []string `json:"topics"`
			Data            string   `json:"data"`
			BlockNumber     string   `json:"blockNumber"`
			TransactionHash string   `json:"transactionHash"`
			LogIndex        string   `json:"logIndex"`
			Removed         bool     `json:"removed"`
		} `json:"result"`
	} `json:"params"`
}

func (s *LogStream) consume(ctx context.Context, conn *websocket.Conn, onLog func(chain.RawLog)) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var note logNotification
		if err := json.Unmarshal(data, &note); err != nil {
			continue
		}
		if note.Method != "eth_subscription" {
			continue
		}
		result := note.Params.Result
		if result.Removed {
			// Reorged-out log; the canonical replacement arrives separately.
			continue
		}
		blockNumber, _ := hexutil.DecodeUint64(result.BlockNumber)
		logIndex, _ := hexutil.DecodeUint64(result.LogIndex)
		onLog(chain.RawLog{
			Address:     result.Address,
			Topics:      result.Topics,
			Data:        result.Data,
			TxHash:      result.TransactionHash,
			BlockNumber: blockNumber,
			LogIndex:    uint(logIndex),
		})
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}

func sleepWithJitter(ctx context.Context, d time.Duration) error {
	jitter := d/2 + time.Duration(rand.Int63n(int64(d/2)+1))
	timer := time.NewTimer(jitter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
