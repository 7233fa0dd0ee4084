package mesh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultMinAlignInterval is the minimum time between two automatic alignments
const DefaultMinAlignInterval = 5 * time.Second

// AlignedFunc is called after every successful alignment
type AlignedFunc func(a *Alignment, scannerIDs []string)

// AutoAligner realigns the configured scanners whenever fresh reports make
// a new alignment possible. Alignments are serialized: a report arriving
// while one runs waits for it to finish.
type AutoAligner struct {
	config       *Config
	cachePath    string
	stateTracker *StateTracker
	onAligned    AlignedFunc
	logger       zerolog.Logger

	// MinInterval debounces report bursts; 0 aligns on every report
	MinInterval time.Duration

	mu          sync.Mutex
	limiter     *rate.Limiter
	lastAligned time.Time
	cache       *AlignmentData
}

// NewAutoAligner creates an AutoAligner over the scanners listed in config.
// An empty cachePath disables persistence.
func NewAutoAligner(config *Config, cache *AlignmentData, cachePath string, st *StateTracker) *AutoAligner {
	return &AutoAligner{
		config:       config,
		cache:        cache,
		cachePath:    cachePath,
		stateTracker: st,
		MinInterval:  DefaultMinAlignInterval,
		logger:       log.With().Str("component", "auto-align").Logger(),
	}
}

// OnAligned registers a callback invoked after each alignment
func (aa *AutoAligner) OnAligned(fn AlignedFunc) {
	aa.mu.Lock()
	defer aa.mu.Unlock()
	aa.onAligned = fn
}

// scannerIDs lists the configured scanners in index order
func (aa *AutoAligner) scannerIDs() []string {
	ids := make([]string, len(aa.config.Scanners))
	for i, sc := range aa.config.Scanners {
		ids[i] = sc.ID
	}
	return ids
}

// OnReport is the MessageHandler registered with the MQTT client.
// It is safe to call from any goroutine.
func (aa *AutoAligner) OnReport(scannerID string, cloud PointCloud, err error) {
	if err != nil {
		aa.logger.Warn().Err(err).Str("scanner", scannerID).Msg("ignoring undecodable report")
		return
	}
	if aa.config.ScannerIndex(scannerID) < 0 {
		aa.logger.Warn().Str("scanner", scannerID).Msg("report from unconfigured scanner")
		return
	}

	aa.stateTracker.UpdateReport(scannerID, cloud)
	aa.logger.Debug().Str("scanner", scannerID).Int("beacons", len(cloud)).Msg("report stored")

	if _, err := aa.Realign(context.Background(), false); err != nil {
		aa.logger.Error().Err(err).Msg("realignment failed, keeping previous alignment")
	}
}

// Realign runs the pipeline over the latest reports. Unless force is set it
// returns nil, nil when a scanner has not reported yet or the previous
// unforced attempt was less than MinInterval ago.
func (aa *AutoAligner) Realign(ctx context.Context, force bool) (*Alignment, error) {
	aa.mu.Lock()
	defer aa.mu.Unlock()

	ids := aa.scannerIDs()
	clouds, ok := aa.stateTracker.Clouds(ids)
	if !ok {
		aa.logger.Debug().Msg("waiting for every scanner to report")
		return nil, nil
	}
	if aa.limiter == nil {
		aa.limiter = rate.NewLimiter(rate.Every(aa.MinInterval), 1)
	}
	if !force && !aa.limiter.Allow() {
		aa.logger.Debug().Dur("since", time.Since(aa.lastAligned)).Msg("skipping, aligned recently")
		return nil, nil
	}

	a, err := Align(ctx, clouds, aa.config.AlignOptions())
	if err != nil {
		return nil, err
	}
	aa.lastAligned = time.Now()
	aa.stateTracker.SetAlignment(a, ids)

	aa.cache = NewAlignmentCache(a, ids)
	if aa.cachePath != "" {
		if err := SaveAlignment(aa.cachePath, aa.cache); err != nil {
			aa.logger.Error().Err(err).Str("path", aa.cachePath).Msg("saving alignment cache")
		}
	}

	if aa.onAligned != nil {
		aa.onAligned(a, ids)
	}
	return a, nil
}

// FetchReports pulls a fresh report from every scanner with an apiUrl,
// storing each in the state tracker
func (aa *AutoAligner) FetchReports(ctx context.Context, opts ...FetchOption) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, sc := range aa.config.Scanners {
		if sc.ApiURL == nil || *sc.ApiURL == "" {
			continue
		}
		g.Go(func() error {
			cloud, err := FetchReportFromAPI(gctx, *sc.ApiURL, opts...)
			if err != nil {
				return fmt.Errorf("scanner %s: %w", sc.ID, err)
			}
			aa.stateTracker.UpdateReport(sc.ID, cloud)
			aa.logger.Info().Str("scanner", sc.ID).Int("beacons", len(cloud)).Msg("fetched report")
			return nil
		})
	}
	return g.Wait()
}

// GetCache returns the latest alignment cache, possibly loaded at startup
func (aa *AutoAligner) GetCache() *AlignmentData {
	aa.mu.Lock()
	defer aa.mu.Unlock()
	return aa.cache
}

// String implements fmt.Stringer for debug logging.
func (aa *AutoAligner) String() string {
	aa.mu.Lock()
	defer aa.mu.Unlock()
	return fmt.Sprintf("AutoAligner{cachePath=%s, scanners=%d, lastAligned=%s}",
		aa.cachePath, len(aa.config.Scanners), aa.lastAligned.Format(time.RFC3339))
}
