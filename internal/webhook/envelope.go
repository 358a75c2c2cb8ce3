package webhook

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"dexingest/internal/chain"
)

// Alchemy delivers logs in two envelope layouts: the GraphQL custom-webhook
// shape (event.data.block.logs) and the older address-activity shape
// (event.activity[].log). Both are accepted; anything else is malformed.

type envelope struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Event *struct {
		Data *struct {
			Block *graphqlBlock `json:"block"`
		} `json:"data"`
		Activity []activityEntry `json:"activity"`
	} `json:"event"`
}

type graphqlBlock struct {
	Number    uint64 `json:"number"`
	Timestamp int64  `json:"timestamp"`
	Logs      []struct {
		Index   uint     `json:"index"`
		Topics  []string `json:"topics"`
		Data    string   `json:"data"`
		Account struct {
			Address string `json:"address"`
		} `json:"account"`
		Transaction struct {
			Hash string `json:"hash"`
		} `json:"transaction"`
	} `json:"logs"`
}

type activityEntry struct {
	Hash     string `json:"hash"`
	BlockNum string `json:"blockNum"`
	Log      *struct {
		Address         string   `json:"address"`
		Topics          []string `json:"topics"`
		Data            string   `json:"data"`
		LogIndex        string   `json:"logIndex"`
		TransactionHash string   `json:"transactionHash"`
		BlockNumber     string   `json:"blockNumber"`
	} `json:"log"`
}

// ExtractLogs parses a raw webhook body into normalized logs. An envelope
// that carries neither logs path is malformed; a recognized path with zero
// logs is an empty batch, not an error.
func ExtractLogs(raw []byte) (deliveryID string, logs []chain.RawLog, err error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, err
	}
	if env.Event == nil {
		return "", nil, errors.New("envelope has no event")
	}

	if env.Event.Data != nil && env.Event.Data.Block != nil {
		block := env.Event.Data.Block
		ts := time.Time{}
		if block.Timestamp > 0 {
			ts = time.Unix(block.Timestamp, 0).UTC()
		}
		for _, lg := range block.Logs {
			logs = append(logs, chain.RawLog{
				Address:        lg.Account.Address,
				Topics:         lg.Topics,
				Data:           lg.Data,
				TxHash:         lg.Transaction.Hash,
				BlockNumber:    block.Number,
				LogIndex:       lg.Index,
				BlockTimestamp: ts,
			})
		}
		return env.ID, logs, nil
	}

	if env.Event.Activity != nil {
		for _, entry := range env.Event.Activity {
			if entry.Log == nil {
				continue
			}
			blockNum := parseQuantity(entry.Log.BlockNumber)
			if blockNum == 0 {
				blockNum = parseQuantity(entry.BlockNum)
			}
			txHash := entry.Log.TransactionHash
			if txHash == "" {
				txHash = entry.Hash
			}
			logs = append(logs, chain.RawLog{
				Address:     entry.Log.Address,
				Topics:      entry.Log.Topics,
				Data:        entry.Log.Data,
				TxHash:      txHash,
				BlockNumber: blockNum,
				LogIndex:    uint(parseQuantity(entry.Log.LogIndex)),
			})
		}
		return env.ID, logs, nil
	}

	return "", nil, errors.New("envelope carries no recognizable logs path")
}

// parseQuantity accepts both hex ("0x10") and decimal ("16") encodings.
func parseQuantity(raw string) uint64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		v, err := hexutil.DecodeUint64(strings.ToLower(raw))
		if err != nil {
			return 0
		}
		return v
	}
	v, _ := strconv.ParseUint(raw, 10, 64)
	return v
}
