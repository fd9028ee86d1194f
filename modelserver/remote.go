package modelserver

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/neural"
	"github.com/c360/neurostream/pkg/retry"
)

// DefaultRemoteTimeout bounds one inference round trip. It is deliberately
// tight: a slow model server must fail fast enough for the fallback path
// to still land inside the domain's latency budget.
const DefaultRemoteTimeout = 100 * time.Millisecond

// RemoteConfig configures a Remote model server.
type RemoteConfig struct {
	// Endpoint is the inference service URL, e.g.
	// "http://localhost:9000/v1/infer".
	Endpoint string

	// Timeout is the hard per-call deadline (default: DefaultRemoteTimeout).
	Timeout time.Duration

	// Retry controls retry of transient failures (default: retry.Inference()).
	Retry retry.Config

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client

	// Logger for call failures (optional, defaults to slog.Default()).
	Logger *slog.Logger
}

// Remote calls an external inference service over HTTP JSON. Every call
// carries a hard deadline; timeouts surface as ErrModelTimeout and
// connection or server failures as ErrModelUnavailable, both transient so
// callers can retry or fall back.
type Remote struct {
	endpoint string
	timeout  time.Duration
	retryCfg retry.Config
	client   *http.Client
	logger   *slog.Logger
}

// inferRequest is the wire format sent to the inference service.
type inferRequest struct {
	Domain        neural.Domain `json:"domain"`
	FeatureNames  []string      `json:"feature_names"`
	FeatureValues []float64     `json:"feature_values"`
	WindowEnd     float64       `json:"window_end"`
}

// inferResponse is the wire format returned by the inference service.
type inferResponse struct {
	Scores       []float64 `json:"scores"`
	ModelVersion string    `json:"model_version"`
}

// NewRemote creates an HTTP-backed model server.
func NewRemote(cfg RemoteConfig) (*Remote, error) {
	if cfg.Endpoint == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Remote", "NewRemote",
			"endpoint is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	retryCfg := cfg.Retry
	if retryCfg.MaxAttempts == 0 {
		retryCfg = retry.Inference()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Remote{
		endpoint: cfg.Endpoint,
		timeout:  timeout,
		retryCfg: retryCfg,
		client:   client,
		logger:   logger,
	}, nil
}

// Infer posts the feature vector to the inference service and decodes the
// raw scores. Transient failures are retried per the configured policy,
// all within the caller's context deadline.
func (r *Remote) Infer(ctx context.Context, domain neural.Domain, fv neural.FeatureVector) (RawOutput, error) {
	if !domain.Valid() {
		return RawOutput{}, errors.WrapInvalid(errors.ErrUnknownDomain, "Remote", "Infer",
			"unknown domain "+string(domain))
	}

	out, err := retry.DoWithResult(ctx, r.retryCfg, func() (RawOutput, error) {
		return r.call(ctx, domain, fv)
	})
	if err != nil {
		r.logger.Warn("remote inference failed",
			"domain", domain,
			"endpoint", r.endpoint,
			"error", err)
		return RawOutput{}, err
	}
	return out, nil
}

// call performs one HTTP round trip under the per-call timeout.
func (r *Remote) call(ctx context.Context, domain neural.Domain, fv neural.FeatureVector) (RawOutput, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	body, err := json.Marshal(inferRequest{
		Domain:        domain,
		FeatureNames:  fv.Names,
		FeatureValues: fv.Values,
		WindowEnd:     fv.WindowEnd,
	})
	if err != nil {
		return RawOutput{}, retry.NonRetryable(
			errors.WrapInvalid(err, "Remote", "call", "marshal request"))
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return RawOutput{}, retry.NonRetryable(
			errors.WrapInvalid(err, "Remote", "call", "build request"))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if stderrors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return RawOutput{}, errors.WrapTransient(errors.ErrModelTimeout, "Remote", "call",
				fmt.Sprintf("inference call exceeded %s", r.timeout))
		}
		return RawOutput{}, errors.WrapTransient(errors.ErrModelUnavailable, "Remote", "call",
			"inference service unreachable: "+err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return RawOutput{}, errors.WrapTransient(errors.ErrModelUnavailable, "Remote", "call",
			fmt.Sprintf("inference service returned %d", resp.StatusCode))
	default:
		io.Copy(io.Discard, resp.Body)
		return RawOutput{}, retry.NonRetryable(
			errors.WrapInvalid(errors.ErrModelUnavailable, "Remote", "call",
				fmt.Sprintf("inference service rejected request with %d", resp.StatusCode)))
	}

	var decoded inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return RawOutput{}, errors.WrapTransient(errors.ErrModelUnavailable, "Remote", "call",
			"malformed inference response: "+err.Error())
	}
	if len(decoded.Scores) != classCount(domain) {
		return RawOutput{}, errors.WrapTransient(errors.ErrModelUnavailable, "Remote", "call",
			fmt.Sprintf("expected %d scores for %s, got %d",
				classCount(domain), domain, len(decoded.Scores)))
	}

	return RawOutput{Scores: decoded.Scores, ModelVersion: decoded.ModelVersion}, nil
}

// Name returns the backend identifier.
func (r *Remote) Name() string { return "remote" }

// Close shuts down idle connections.
func (r *Remote) Close() error {
	r.client.CloseIdleConnections()
	return nil
}
