package webhook

import (
	"testing"
	"time"
)

func TestExtractLogsGraphQLShape(t *testing.T) {
	body := []byte(`{
		"id": "whevt_123",
		"type": "GRAPHQL",
		"event": {
			"data": {
				"block": {
					"number": 19000000,
					"timestamp": 1700000000,
					"logs": [
						{
							"index": 5,
							"topics": ["0xaaa", "0xbbb"],
							"data": "0x01",
							"account": {"address": "0xBook"},
							"transaction": {"hash": "0xTx1"}
						}
					]
				}
			}
		}
	}`)
	id, logs, err := ExtractLogs(body)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if id != "whevt_123" {
		t.Fatalf("deliveryID=%s", id)
	}
	if len(logs) != 1 {
		t.Fatalf("logs=%d want 1", len(logs))
	}
	lg := logs[0]
	if lg.Address != "0xBook" || lg.TxHash != "0xTx1" || lg.BlockNumber != 19000000 || lg.LogIndex != 5 {
		t.Fatalf("log=%+v", lg)
	}
	if len(lg.Topics) != 2 || lg.Data != "0x01" {
		t.Fatalf("log=%+v", lg)
	}
	want := time.Unix(1700000000, 0).UTC()
	if !lg.BlockTimestamp.Equal(want) {
		t.Fatalf("timestamp=%v want %v", lg.BlockTimestamp, want)
	}
}

func TestExtractLogsActivityShape(t *testing.T) {
	body := []byte(`{
		"id": "whevt_456",
		"type": "ADDRESS_ACTIVITY",
		"event": {
			"activity": [
				{
					"hash": "0xTxOuter",
					"blockNum": "0x121eac0",
					"log": {
						"address": "0xBook",
						"topics": ["0xaaa"],
						"data": "0x02",
						"logIndex": "0x7",
						"transactionHash": "0xTxInner",
						"blockNumber": "0x121eac1"
					}
				},
				{"hash": "0xNoLog", "blockNum": "0x1"}
			]
		}
	}`)
	id, logs, err := ExtractLogs(body)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if id != "whevt_456" {
		t.Fatalf("deliveryID=%s", id)
	}
	if len(logs) != 1 {
		t.Fatalf("logs=%d want 1 (entries without a log are skipped)", len(logs))
	}
	lg := logs[0]
	if lg.TxHash != "0xTxInner" {
		t.Fatalf("txHash=%s want inner hash", lg.TxHash)
	}
	if lg.BlockNumber != 0x121eac1 || lg.LogIndex != 7 {
		t.Fatalf("blockNumber=%d logIndex=%d", lg.BlockNumber, lg.LogIndex)
	}
}

func TestExtractLogsActivityFallbacks(t *testing.T) {
	body := []byte(`{
		"event": {
			"activity": [
				{
					"hash": "0xTxOuter",
					"blockNum": "19000000",
					"log": {"address": "0xBook", "topics": ["0xaaa"], "data": "0x", "logIndex": "3"}
				}
			]
		}
	}`)
	_, logs, err := ExtractLogs(body)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("logs=%d", len(logs))
	}
	if logs[0].TxHash != "0xTxOuter" {
		t.Fatalf("txHash=%s want outer fallback", logs[0].TxHash)
	}
	if logs[0].BlockNumber != 19000000 || logs[0].LogIndex != 3 {
		t.Fatalf("blockNumber=%d logIndex=%d", logs[0].BlockNumber, logs[0].LogIndex)
	}
}

func TestExtractLogsEmptyBatch(t *testing.T) {
	body := []byte(`{"id":"whevt_empty","event":{"data":{"block":{"number":1,"timestamp":0,"logs":[]}}}}`)
	_, logs, err := ExtractLogs(body)
	if err != nil {
		t.Fatalf("empty batch must not error: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("logs=%d", len(logs))
	}
}

func TestExtractLogsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":      `{"id":`,
		"no event":      `{"id":"x"}`,
		"no known path": `{"id":"x","event":{"network":"ETH_MAINNET"}}`,
	}
	for name, body := range cases {
		if _, _, err := ExtractLogs([]byte(body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestParseQuantity(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
	}{
		{"0x10", 16},
		{"0X10", 16},
		{"16", 16},
		{"", 0},
		{"0xzz", 0},
		{" 7 ", 7},
	}
	for _, tc := range cases {
		if got := parseQuantity(tc.in); got != tc.want {
			t.Fatalf("parseQuantity(%q)=%d want %d", tc.in, got, tc.want)
		}
	}
}
