package compare

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/InjectiveLabs/coretracer"
	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	log "github.com/xlab/suplog"

	"github.com/InjectiveLabs/slotlens/layout/types"
)

const (
	maxRespTime        = 30 * time.Second
	maxRespHeadersTime = 30 * time.Second
	maxRespBytes       = 10 * 1024 * 1024

	defaultAttempts = 3
)

type RemoteConfig struct {
	// URL is the full address of the report endpoint.
	URL      string
	Attempts uint
	Delay    time.Duration
}

// RemoteAnalyzer delegates the analysis to an upgrade-safety service.
type RemoteAnalyzer struct {
	client *http.Client
	config *RemoteConfig

	logger  log.Logger
	svcTags coretracer.Tags
}

func NewRemoteAnalyzer(cfg *RemoteConfig) *RemoteAnalyzer {
	return &RemoteAnalyzer{
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: maxRespHeadersTime,
			},
			Timeout: maxRespTime,
		},
		config: checkRemoteConfig(cfg),

		logger: log.WithFields(log.Fields{
			"svc":      "comparator",
			"analyzer": "remote",
		}),
		svcTags: coretracer.NewTag("analyzer", "remote"),
	}
}

func checkRemoteConfig(cfg *RemoteConfig) *RemoteConfig {
	if cfg == nil {
		cfg = &RemoteConfig{}
	}

	if cfg.Attempts == 0 {
		cfg.Attempts = defaultAttempts
	}

	if cfg.Delay == 0 {
		cfg.Delay = 500 * time.Millisecond
	}

	return cfg
}

type reportRequest struct {
	OriginStorageLayout      *types.StorageLayout `json:"originStorageLayout"`
	DestinationStorageLayout *types.StorageLayout `json:"destinationStorageLayout"`
}

type reportResponse struct {
	CompatibilityReport string `json:"compatibilityReport"`
	Message             string `json:"message"`
}

func (a *RemoteAnalyzer) Analyze(ctx context.Context, origin, destination *types.StorageLayout) (string, error) {
	defer coretracer.Trace(&ctx, a.svcTags)()

	body, err := json.Marshal(reportRequest{
		OriginStorageLayout:      origin,
		DestinationStorageLayout: destination,
	})
	if err != nil {
		coretracer.TraceError(ctx, err)
		return "", errors.Wrap(err, "failed to encode layouts")
	}

	var report string
	err = retry.Do(
		func() error {
			text, err := a.post(ctx, body)
			if err != nil {
				return err
			}
			report = text
			return nil
		},
		retry.Attempts(a.config.Attempts),
		retry.Delay(a.config.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			a.logger.WithError(err).WithField("attempt", n+1).Warningln("report request failed, retrying")
		}),
	)
	if err != nil {
		coretracer.TraceError(ctx, err)
		return "", err
	}

	return report, nil
}

// post performs one request. Only transport failures and gateway errors are retried; an
// explanation of why the report could not be generated is final.
func (a *RemoteAnalyzer) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.URL, bytes.NewReader(body))
	if err != nil {
		return "", retry.Unrecoverable(errors.Wrap(err, "failed to create HTTP request"))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "failed to post layouts to %s", a.config.URL)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxRespBytes))
	_ = resp.Body.Close()
	if err != nil {
		return "", errors.Wrapf(err, "failed to read response body from %s", a.config.URL)
	}

	var decoded reportResponse
	decodeErr := json.Unmarshal(respBody, &decoded)

	switch {
	case resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		return "", errors.Errorf("report service unavailable: %s", resp.Status)
	case resp.StatusCode != http.StatusOK:
		msg := decoded.Message
		if decodeErr != nil || msg == "" {
			msg = resp.Status
		}
		return "", retry.Unrecoverable(errors.New(msg))
	case decodeErr != nil:
		return "", retry.Unrecoverable(errors.Wrap(decodeErr, "failed to decode report response"))
	}

	return decoded.CompatibilityReport, nil
}
