package usage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedgerAccumulates(t *testing.T) {
	ledger := NewLedger()

	ledger.Add(Record{Model: "gpt-3.5-turbo", Stage: "router", PromptTokens: 50, CompletionTokens: 2, Cost: 0.0001})
	ledger.Add(Record{Model: "gpt-4o-mini", Stage: "generator", PromptTokens: 800, CompletionTokens: 400, Cost: 0.0004})

	totals := ledger.Totals()
	assert.Equal(t, 2, totals.Calls)
	assert.Equal(t, 850, totals.PromptTokens)
	assert.Equal(t, 402, totals.CompletionTokens)
	assert.Equal(t, 1252, totals.TotalTokens())
	assert.InDelta(t, 0.0005, totals.Cost, 1e-9)

	records := ledger.Records()
	assert.Len(t, records, 2)
	assert.Equal(t, "router", records[0].Stage)
	assert.False(t, records[0].Timestamp.IsZero())
}

func TestLedgerReset(t *testing.T) {
	ledger := NewLedger()
	ledger.Add(Record{PromptTokens: 10})
	ledger.Reset()

	assert.Zero(t, ledger.Totals().Calls)
	assert.Empty(t, ledger.Records())
}

func TestLedgerConcurrentAdd(t *testing.T) {
	ledger := NewLedger()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ledger.Add(Record{PromptTokens: 1, CompletionTokens: 1})
		}()
	}
	wg.Wait()

	totals := ledger.Totals()
	assert.Equal(t, 50, totals.Calls)
	assert.Equal(t, 100, totals.TotalTokens())
}
