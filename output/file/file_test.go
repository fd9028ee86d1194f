package file

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/neural"
)

func testResult(domain neural.Domain) neural.Result {
	r := neural.NewResult(domain)
	r.MentalState = &neural.MentalStateResult{State: neural.StateRelaxed}
	r.Confidence = 0.8
	return r
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
}

func TestDeliverWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results", "out.jsonl")
	s, err := New(Config{Path: path})
	require.NoError(t, err)

	first := testResult(neural.DomainMentalState)
	second := testResult(neural.DomainMentalState)
	require.NoError(t, s.Deliver(first))
	require.NoError(t, s.Deliver(second))
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r neural.Result
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r))
		ids = append(ids, r.ID)
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{first.ID, second.ID}, ids)
	assert.Equal(t, uint64(2), s.Written())
}

func TestAppendModeKeepsExistingLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")

	s, err := New(Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, s.Deliver(testResult(neural.DomainMentalState)))
	require.NoError(t, s.Close())

	s, err = New(Config{Path: path, Append: true})
	require.NoError(t, err)
	require.NoError(t, s.Deliver(testResult(neural.DomainMentalState)))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, countLines(data))
}

func TestPeriodicFlushMakesLinesVisible(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	s, err := New(Config{Path: path, FlushInterval: 20 * time.Millisecond})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Deliver(testResult(neural.DomainMentalState)))

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && countLines(data) == 1
	}, time.Second, 10*time.Millisecond, "flusher must surface buffered lines")
}

func TestDeliverAfterCloseFails(t *testing.T) {
	s, err := New(Config{Path: filepath.Join(t.TempDir(), "out.jsonl")})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "double close is a no-op")

	err = s.Deliver(testResult(neural.DomainMentalState))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyStopped)
}

func countLines(data []byte) int {
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n
}
