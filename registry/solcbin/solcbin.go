// Package solcbin reads the list of published solc releases and tells which compiler
// versions can produce the storage layouts this tool understands.
package solcbin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"cosmossdk.io/errors"
	"github.com/InjectiveLabs/coretracer"
	"github.com/hashicorp/go-version"
	pkgerrors "github.com/pkg/errors"
	log "github.com/xlab/suplog"

	"github.com/InjectiveLabs/slotlens/layout/types"
)

const (
	maxRespTime        = 15 * time.Second
	maxRespHeadersTime = 15 * time.Second
	maxRespBytes       = 10 * 1024 * 1024
)

const (
	MinStorageLayoutVersion = "0.5.13"
	MinViaIRVersion         = "0.8.13"
	MinNamespacesVersion    = "0.8.20"
)

// EVMVersions lists the EVM targets offered when compiling, newest first.
var EVMVersions = []string{
	"default",
	"cancun",
	"shanghai",
	"paris",
	"london",
	"berlin",
	"istanbul",
	"petersburg",
	"constantinople",
}

var (
	minStorageLayout = version.Must(version.NewVersion(MinStorageLayoutVersion))
	minViaIR         = version.Must(version.NewVersion(MinViaIRVersion))
	minNamespaces    = version.Must(version.NewVersion(MinNamespacesVersion))
)

type Config struct {
	// ListURL is the address of the solc-bin list.json.
	ListURL string
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

		logger:  log.WithField("svc", "solcbin"),
		svcTags: coretracer.NewTag("svc", "solcbin"),
	}
}

func checkConfig(cfg *Config) *Config {
	if cfg == nil {
		cfg = &Config{}
	}

	if len(cfg.ListURL) == 0 {
		cfg.ListURL = "https://raw.githubusercontent.com/ethereum/solc-bin/gh-pages/bin/list.json"
	}

	return cfg
}

type releaseList struct {
	Releases      map[string]string `json:"releases"`
	LatestRelease string            `json:"latestRelease"`
}

// Releases maps every released version to the file name of its build.
func (c *Client) Releases(ctx context.Context) (map[string]string, error) {
	defer coretracer.Trace(&ctx, c.svcTags)()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.ListURL, http.NoBody)
	if err != nil {
		coretracer.TraceError(ctx, err)
		return nil, pkgerrors.Wrap(err, "failed to create HTTP request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		coretracer.TraceError(ctx, err)
		return nil, pkgerrors.Wrapf(err, "failed to fetch compilers list from %s", c.config.ListURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = pkgerrors.Errorf("failed to fetch compilers list: %s", resp.Status)
		coretracer.TraceError(ctx, err)
		return nil, err
	}

	var list releaseList
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRespBytes)).Decode(&list); err != nil {
		coretracer.TraceError(ctx, err)
		return nil, pkgerrors.Wrap(err, "failed to decode compilers list")
	}

	c.logger.WithField("releases", len(list.Releases)).Debugln("fetched compilers list")

	return list.Releases, nil
}

// SortedVersions returns the keys of releases, newest first. Keys that are not versions
// are skipped.
func SortedVersions(releases map[string]string) []string {
	parsed := make([]*version.Version, 0, len(releases))
	for v := range releases {
		pv, err := version.NewVersion(v)
		if err != nil {
			continue
		}
		parsed = append(parsed, pv)
	}

	sort.Sort(sort.Reverse(version.Collection(parsed)))

	out := make([]string, 0, len(parsed))
	for _, v := range parsed {
		out = append(out, v.Original())
	}
	return out
}

// ParseCompilerVersion accepts the forms compilers report, e.g. "v0.8.20+commit.a1b79de6"
// or "0.8.24-nightly.2024.1.1", and returns the release it belongs to.
func ParseCompilerVersion(v string) (*version.Version, error) {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "soljson-")
	v = strings.TrimSuffix(v, ".js")

	parsed, err := version.NewVersion(v)
	if err != nil {
		return nil, errors.Wrapf(types.ErrUnsupportedCompiler, "%q: %s", v, err.Error())
	}

	return parsed.Core(), nil
}

func atLeast(v string, min *version.Version, feature string) error {
	parsed, err := ParseCompilerVersion(v)
	if err != nil {
		return err
	}

	if parsed.LessThan(min) {
		return errors.Wrapf(types.ErrUnsupportedCompiler, "%s requires solc %s or newer, got %s", feature, min.String(), parsed.String())
	}

	return nil
}

// SupportsStorageLayout returns nil when v emits storage layouts.
func SupportsStorageLayout(v string) error {
	return atLeast(v, minStorageLayout, "storage layout output")
}

// SupportsViaIR returns nil when v can compile through the IR pipeline.
func SupportsViaIR(v string) error {
	return atLeast(v, minViaIR, "via-IR compilation")
}

// SupportsNamespaces returns nil when v emits layouts of ERC-7201 namespaces.
func SupportsNamespaces(v string) error {
	return atLeast(v, minNamespaces, "namespaced storage layout")
}
