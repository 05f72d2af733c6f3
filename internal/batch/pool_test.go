package batch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/upi-statement-extractor/internal/extractor"
	"github.com/insightdelivered/upi-statement-extractor/internal/logger"
	"github.com/insightdelivered/upi-statement-extractor/internal/models"
	"github.com/insightdelivered/upi-statement-extractor/internal/parser"
)

var docs = map[string]string{
	"phonepe.txt": "PhonePe Statement\nPaid to Zomato ₹ 450.00 12 Dec 2025",
	"gpay.txt":    "Google Pay\nReceived from Rahul Kumar ₹ 2,000.00 13 Dec 2025",
	"blank.txt":   "   \n",
}

func mapLoader(path string) ([]string, error) {
	text, ok := docs[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []string{text}, nil
}

func TestPool_RunKeepsInputOrder(t *testing.T) {
	pool := NewPool(parser.New(), 2, WithLoader(mapLoader))
	paths := []string{"gpay.txt", "missing.txt", "phonepe.txt", "blank.txt"}

	results, err := pool.Run(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, results, len(paths))

	for i, r := range results {
		assert.Equal(t, paths[i], r.Path)
		assert.NotEmpty(t, r.JobID)
	}

	require.NoError(t, results[0].Err)
	assert.Equal(t, models.ProviderGooglePay, results[0].Info.Provider)
	require.Len(t, results[0].Info.Transactions, 1)
	assert.Equal(t, models.DirectionIncome, results[0].Info.Transactions[0].Type)

	assert.ErrorIs(t, results[1].Err, os.ErrNotExist)
	assert.Nil(t, results[1].Info)

	require.NoError(t, results[2].Err)
	assert.Equal(t, models.ProviderPhonePe, results[2].Info.Provider)
	require.Len(t, results[2].Info.Transactions, 1)
	assert.True(t, results[2].Info.Transactions[0].Amount.Equal(decimal.NewFromInt(450)))

	assert.ErrorIs(t, results[3].Err, parser.ErrEmptyInput)
	assert.True(t, IsEmpty(results[3]))

	assert.Equal(t, 2, Failed(results))
}

func TestPool_LogsJobFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := logger.NewWithWriter(buf, "info")
	require.NoError(t, err)

	results, err := NewPool(parser.New(), 1, WithLoader(mapLoader), WithLogger(log)).
		Run(context.Background(), []string{"phonepe.txt"})
	require.NoError(t, err)
	require.Len(t, results, 1)

	out := buf.String()
	assert.Contains(t, out, `"job_id":"`+results[0].JobID+`"`)
	assert.Contains(t, out, `"file":"phonepe.txt"`)
	assert.Contains(t, out, "document processed")
}

func TestPool_RespectsWorkerLimit(t *testing.T) {
	var active, peak int32
	loader := func(path string) ([]string, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return mapLoader("phonepe.txt")
	}

	paths := make([]string, 12)
	for i := range paths {
		paths[i] = "doc.txt"
	}

	results, err := NewPool(parser.New(), 3, WithLoader(loader)).Run(context.Background(), paths)
	require.NoError(t, err)
	assert.Len(t, results, 12)
	assert.Zero(t, Failed(results))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestPool_UniqueJobIDs(t *testing.T) {
	results, err := NewPool(parser.New(), 4, WithLoader(mapLoader)).
		Run(context.Background(), []string{"phonepe.txt", "phonepe.txt", "gpay.txt"})
	require.NoError(t, err)

	ids := map[string]bool{}
	for _, r := range results {
		ids[r.JobID] = true
	}
	assert.Len(t, ids, 3)
}

func TestPool_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	loader := func(path string) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		return mapLoader(path)
	}

	results, err := NewPool(parser.New(), 2, WithLoader(loader)).Run(ctx, []string{"phonepe.txt", "gpay.txt"})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestPool_CancelMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once
	loader := func(path string) ([]string, error) {
		once.Do(cancel)
		return mapLoader("phonepe.txt")
	}

	paths := []string{"a.txt", "b.txt", "c.txt", "d.txt"}
	results, err := NewPool(parser.New(), 1, WithLoader(loader)).Run(ctx, paths)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, len(paths))

	require.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[len(paths)-1].Err, context.Canceled)
}

func TestNewPool_ClampsWorkers(t *testing.T) {
	pool := NewPool(parser.New(), 0)
	assert.Equal(t, 1, pool.workers)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "statement.TXT")
	require.NoError(t, os.WriteFile(txt, []byte("Paid to Zomato ₹ 450.00"), 0o644))
	pages, err := LoadFile(txt)
	require.NoError(t, err)
	assert.Equal(t, []string{"Paid to Zomato ₹ 450.00"}, pages)

	_, err = LoadFile(filepath.Join(dir, "absent.txt"))
	assert.Error(t, err)

	bogus := filepath.Join(dir, "statement.pdf")
	require.NoError(t, os.WriteFile(bogus, []byte("not a pdf"), 0o644))
	_, err = LoadFile(bogus)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, extractor.ErrNoReadableText))
}
