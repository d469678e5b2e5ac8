// Package compare checks whether a storage layout can safely replace another one.
//
// The analysis itself is delegated to an Analyzer that explains the incompatibilities in
// plain text; the Comparator parses that text into findings.
package compare

import (
	"context"
	"fmt"

	"cosmossdk.io/errors"
	"github.com/InjectiveLabs/coretracer"
	log "github.com/xlab/suplog"

	"github.com/InjectiveLabs/slotlens/layout/types"
)

// Analyzer explains the incompatibilities between two flat storage layouts. An empty
// explanation means the upgrade is safe.
type Analyzer interface {
	Analyze(ctx context.Context, origin, destination *types.StorageLayout) (string, error)
}

type Comparator struct {
	analyzer Analyzer

	logger  log.Logger
	svcTags coretracer.Tags
}

// NewComparator returns a comparator backed by analyzer, or by the builtin analyzer when
// analyzer is nil.
func NewComparator(analyzer Analyzer) *Comparator {
	if analyzer == nil {
		analyzer = NewBuiltinAnalyzer()
	}

	return &Comparator{
		analyzer: analyzer,
		logger:   log.WithField("svc", "comparator"),
		svcTags:  coretracer.NewTag("svc", "comparator"),
	}
}

// Compare produces the compatibility report of upgrading origin to destination. A failing
// analyzer yields ErrReportGeneration, never an empty report.
func (c *Comparator) Compare(ctx context.Context, origin, destination *types.StorageLayout) (*Report, error) {
	defer coretracer.Trace(&ctx, c.svcTags)()

	if origin == nil || destination == nil {
		err := errors.Wrap(types.ErrInvalidLayout, "both origin and destination layouts are required")
		coretracer.TraceError(ctx, err)
		return nil, err
	}

	text, err := c.analyzer.Analyze(ctx, origin, destination)
	if err != nil {
		coretracer.TraceError(ctx, err)
		c.logger.WithError(err).Warningln("analyzer failed")
		return nil, fmt.Errorf("%w: %w", types.ErrReportGeneration, err)
	}

	report := ParseReport(text)
	c.logger.WithField("findings", len(report.Findings)).Debugln("compatibility report generated")

	return report, nil
}
