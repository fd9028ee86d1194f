package modelserver

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/neural"
)

// Fallback decorates a primary server with a backup. Availability failures
// of the primary are absorbed by retrying the call on the backup, so a dead
// inference service costs accuracy, not results. Invalid-input errors pass
// through unchanged since the backup would reject them too.
type Fallback struct {
	primary Server
	backup  Server
	logger  *slog.Logger

	primaryCalls    atomic.Uint64
	primaryFailures atomic.Uint64
	backupCalls     atomic.Uint64
	backupFailures  atomic.Uint64
}

// FallbackStats is a point-in-time snapshot of fallback activity.
type FallbackStats struct {
	PrimaryCalls    uint64 `json:"primary_calls"`
	PrimaryFailures uint64 `json:"primary_failures"`
	BackupCalls     uint64 `json:"backup_calls"`
	BackupFailures  uint64 `json:"backup_failures"`
}

// NewFallback wires a primary server to a backup.
func NewFallback(primary, backup Server, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{primary: primary, backup: backup, logger: logger}
}

// Infer tries the primary server and falls back to the backup on failure.
func (f *Fallback) Infer(ctx context.Context, domain neural.Domain, fv neural.FeatureVector) (RawOutput, error) {
	f.primaryCalls.Add(1)
	out, err := f.primary.Infer(ctx, domain, fv)
	if err == nil {
		return out, nil
	}
	f.primaryFailures.Add(1)

	if errors.IsInvalid(err) {
		return RawOutput{}, err
	}

	f.logger.Warn("primary model server failed, using backup",
		"primary", f.primary.Name(),
		"backup", f.backup.Name(),
		"domain", domain,
		"error", err)

	f.backupCalls.Add(1)
	out, backupErr := f.backup.Infer(ctx, domain, fv)
	if backupErr != nil {
		f.backupFailures.Add(1)
		return RawOutput{}, errors.WrapTransient(
			stderrors.Join(err, backupErr),
			"Fallback", "Infer", "primary and backup both failed")
	}
	return out, nil
}

// Name identifies the fallback chain.
func (f *Fallback) Name() string {
	return fmt.Sprintf("fallback(%s->%s)", f.primary.Name(), f.backup.Name())
}

// Close closes both servers.
func (f *Fallback) Close() error {
	return stderrors.Join(f.primary.Close(), f.backup.Close())
}

// Stats returns a snapshot of fallback activity.
func (f *Fallback) Stats() FallbackStats {
	return FallbackStats{
		PrimaryCalls:    f.primaryCalls.Load(),
		PrimaryFailures: f.primaryFailures.Load(),
		BackupCalls:     f.backupCalls.Load(),
		BackupFailures:  f.backupFailures.Load(),
	}
}
