// Package sourcify fetches the storage layouts of verified contracts from a Sourcify server.
package sourcify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"cosmossdk.io/errors"
	"github.com/InjectiveLabs/coretracer"
	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common"
	pkgerrors "github.com/pkg/errors"
	log "github.com/xlab/suplog"

	"github.com/InjectiveLabs/slotlens/layout/types"
	"github.com/InjectiveLabs/slotlens/registry/solcbin"
)

const (
	maxRespTime        = 15 * time.Second
	maxRespHeadersTime = 15 * time.Second
	maxRespBytes       = 32 * 1024 * 1024
)

type Config struct {
	BaseURL  string
	Attempts uint
	Delay    time.Duration
}

type Client struct {
	client *http.Client
	config *Config

	logger  log.Logger
	svcTags coretracer.Tags
}

func NewClient(cfg *Config) *Client {
	return &Client{
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: maxRespHeadersTime,
			},
			Timeout: maxRespTime,
		},
		config: checkConfig(cfg),

		logger:  log.WithField("svc", "sourcify"),
		svcTags: coretracer.NewTag("svc", "sourcify"),
	}
}

func checkConfig(cfg *Config) *Config {
	if cfg == nil {
		cfg = &Config{}
	}

	if len(cfg.BaseURL) == 0 {
		cfg.BaseURL = "https://sourcify.dev/server"
	}

	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}

	if cfg.Delay == 0 {
		cfg.Delay = 300 * time.Millisecond
	}

	return cfg
}

func urlJoin(baseURL string, segments ...string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		panic(err)
	}
	u.Path = path.Join(append([]string{u.Path}, segments...)...)
	return u.String()
}

// Contract is a verified contract together with its compiler storage layout.
type Contract struct {
	ChainID         string               `json:"chainId"`
	Address         string               `json:"address"`
	Name            string               `json:"contractName"`
	CompilerVersion string               `json:"compilerVersion"`
	Match           string               `json:"match"`
	StorageLayout   *types.StorageLayout `json:"storageLayout"`
}

type contractResponse struct {
	Match         string               `json:"match"`
	ChainID       string               `json:"chainId"`
	Address       string               `json:"address"`
	StorageLayout *types.StorageLayout `json:"storageLayout"`
	Compilation   struct {
		Name               string `json:"name"`
		CompilerVersion    string `json:"compilerVersion"`
		FullyQualifiedName string `json:"fullyQualifiedName"`
	} `json:"compilation"`
}

// Chain is an entry of the server chain list.
type Chain struct {
	Name      string `json:"name"`
	Title     string `json:"title,omitempty"`
	ChainID   int64  `json:"chainId"`
	Supported bool   `json:"supported"`
}

// NormalizeAddress validates a hex address and returns its checksummed form.
func NormalizeAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", errors.Wrapf(types.ErrInvalidAddress, "%q", address)
	}
	return common.HexToAddress(address).Hex(), nil
}

// StorageLayout fetches the storage layout of a verified contract. Contracts unknown to the
// server yield ErrContractNotVerified; contracts built by compilers without layout output
// yield ErrUnsupportedCompiler.
func (c *Client) StorageLayout(ctx context.Context, chainID uint64, address string) (*Contract, error) {
	defer coretracer.Trace(&ctx, c.svcTags)()

	checksummed, err := NormalizeAddress(address)
	if err != nil {
		coretracer.TraceError(ctx, err)
		return nil, err
	}

	u, err := url.ParseRequestURI(urlJoin(c.config.BaseURL, "v2", "contract", strconv.FormatUint(chainID, 10), checksummed))
	if err != nil {
		coretracer.TraceError(ctx, err)
		return nil, pkgerrors.Wrap(err, "failed to parse URL")
	}

	q := make(url.Values)
	q.Set("fields", "storageLayout,compilation")
	u.RawQuery = q.Encode()

	var resp contractResponse
	if err := c.getJSON(ctx, u.String(), &resp); err != nil {
		coretracer.TraceError(ctx, err)
		return nil, err
	}

	contract := &Contract{
		ChainID:         strconv.FormatUint(chainID, 10),
		Address:         checksummed,
		Name:            resp.Compilation.Name,
		CompilerVersion: resp.Compilation.CompilerVersion,
		Match:           resp.Match,
		StorageLayout:   resp.StorageLayout,
	}

	if contract.StorageLayout == nil {
		if err := solcbin.SupportsStorageLayout(contract.CompilerVersion); err != nil {
			return nil, err
		}
		return nil, errors.Wrapf(types.ErrInvalidLayout, "no storage layout published for %s on chain %d", checksummed, chainID)
	}

	c.logger.WithFields(log.Fields{
		"chain":    chainID,
		"address":  checksummed,
		"contract": contract.Name,
	}).Debugln("fetched storage layout")

	return contract, nil
}

// Chains lists the chains known to the server.
func (c *Client) Chains(ctx context.Context) ([]Chain, error) {
	defer coretracer.Trace(&ctx, c.svcTags)()

	var chains []Chain
	if err := c.getJSON(ctx, urlJoin(c.config.BaseURL, "chains"), &chains); err != nil {
		coretracer.TraceError(ctx, err)
		return nil, err
	}

	return chains, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, out interface{}) error {
	return retry.Do(
		func() error {
			return c.get(ctx, reqURL, out)
		},
		retry.Attempts(c.config.Attempts),
		retry.Delay(c.config.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
}

func (c *Client) get(ctx context.Context, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return retry.Unrecoverable(pkgerrors.Wrap(err, "failed to create HTTP request"))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to fetch %s", reqURL)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxRespBytes))
	_ = resp.Body.Close()
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read response body from %s", reqURL)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return retry.Unrecoverable(errors.Wrap(types.ErrContractNotVerified, reqURL))
	case resp.StatusCode >= http.StatusInternalServerError, resp.StatusCode == http.StatusTooManyRequests:
		return pkgerrors.Errorf("sourcify responded %s", resp.Status)
	case resp.StatusCode != http.StatusOK:
		return retry.Unrecoverable(pkgerrors.Errorf("sourcify responded %s: %s", resp.Status, string(respBody)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return retry.Unrecoverable(pkgerrors.Wrap(err, "failed to decode sourcify response"))
	}

	return nil
}
