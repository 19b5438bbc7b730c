// Package pipeline builds a multi-run design matrix from a configuration:
// each run is turned into its own design, the runs are built in parallel and
// then stacked in acquisition order.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"fmridesign/internal/models"
	"fmridesign/pkg/config"
	"fmridesign/pkg/design"
	"fmridesign/pkg/events"
	"fmridesign/pkg/hrf"
	"fmridesign/pkg/store"
	"fmridesign/pkg/visualization"
)

// Result is the outcome of a build.
type Result struct {
	// Design is the stacked design matrix
	Design *design.Matrix

	// Runs are the per-run designs in configuration order
	Runs []models.Run

	// VIF holds the variance inflation factors of the non-trend columns of
	// Design; empty when fewer than two such columns exist
	VIF design.VIFResult
}

// Builder turns a configuration into a design matrix.
type Builder struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewBuilder creates a builder. A nil logger discards output.
func NewBuilder(cfg *config.Config, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{cfg: cfg, logger: logger}
}

// Build validates the configuration, builds every run and stacks them.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	b.logger.Info("building design",
		zap.Int("runs", len(b.cfg.Runs)),
		zap.Float64("samplingFreq", b.cfg.SamplingFreq))

	runs, err := b.buildRunsInParallel(ctx)
	if err != nil {
		return nil, err
	}

	stacked, err := design.Empty(b.cfg.SamplingFreq)
	if err != nil {
		return nil, err
	}
	stacked = stacked.WithLogger(b.logger)
	mats := make([]*design.Matrix, len(runs))
	for i, r := range runs {
		mats[i] = r.Design
	}
	stacked, err = stacked.Append(design.AppendOptions{
		KeepSeparate: b.cfg.Append.KeepSeparate,
		UniqueCols:   b.cfg.Append.UniqueCols,
		FillNA:       b.cfg.Append.FillNA,
		Verbose:      b.cfg.Output.Verbose,
	}, mats...)
	if err != nil {
		return nil, fmt.Errorf("append runs: %w", err)
	}

	res := &Result{Design: stacked, Runs: runs}
	vif, err := stacked.VIF(true)
	switch {
	case err == nil:
		res.VIF = vif
		b.logger.Info("variance inflation", zap.Float64("max", vif.Max()))
	default:
		b.logger.Warn("skipping variance inflation", zap.Error(err))
	}

	r, c := stacked.Dims()
	b.logger.Info("design built", zap.Int("rows", r), zap.Int("columns", c))
	return res, nil
}

// buildRunsInParallel builds the configured runs on at most NumWorkers
// goroutines and returns them in configuration order
func (b *Builder) buildRunsInParallel(ctx context.Context) ([]models.Run, error) {
	numWorkers := b.cfg.Processing.NumWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}
	numWorkers = min(numWorkers, len(b.cfg.Runs))

	type buildResult struct {
		index int
		run   models.Run
		err   error
	}
	jobs := make(chan int)
	resultChan := make(chan buildResult, len(b.cfg.Runs))

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				m, err := b.BuildRun(b.cfg.Runs[i])
				resultChan <- buildResult{
					index: i,
					run:   models.Run{Index: i, Name: runName(b.cfg.Runs[i], i), Design: m},
					err:   err,
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range b.cfg.Runs {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	runs := make([]models.Run, len(b.cfg.Runs))
	completed := 0
	var firstErr error
	for res := range resultChan {
		if res.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("run %s: %w", res.run.Name, res.err)
			}
			continue
		}
		runs[res.index] = res.run
		completed++
		b.logger.Debug("run built",
			zap.String("run", res.run.Name),
			zap.Int("completed", completed),
			zap.Int("total", len(b.cfg.Runs)))
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// BuildRun builds the design of a single run: load it, convolve, add
// trends, z-score and clean.
func (b *Builder) BuildRun(run config.RunConfig) (*design.Matrix, error) {
	m, err := b.loadRun(run)
	if err != nil {
		return nil, err
	}
	m = m.WithLogger(b.logger.With(zap.String("run", run.Name)))
	d := b.cfg.Design

	if model := strings.ToLower(d.HRF); model != "none" {
		kernel, err := hrf.Kernel(model, m.TR())
		if err != nil {
			return nil, err
		}
		m, err = m.Convolve(design.ConvolveOptions{Kernel: kernel, Columns: d.ConvolveColumns})
		if err != nil {
			return nil, fmt.Errorf("convolve: %w", err)
		}
	}

	if d.PolyOrder >= 0 {
		if m, err = m.AddPoly(d.PolyOrder, true); err != nil {
			return nil, fmt.Errorf("add polynomials: %w", err)
		}
	}
	if d.DCTDuration > 0 {
		if m, err = m.AddDCTBasis(d.DCTDuration, d.DCTDrop); err != nil {
			return nil, fmt.Errorf("add cosine basis: %w", err)
		}
	}

	if len(d.ZScore) > 0 {
		matcher, err := design.NewColumnMatcher(d.ZScore)
		if err != nil {
			return nil, err
		}
		if cols := matcher.Select(m.Columns()); len(cols) > 0 {
			if m, err = m.ZScore(cols...); err != nil {
				return nil, fmt.Errorf("zscore: %w", err)
			}
		}
	}

	if b.cfg.Clean.Enabled {
		m, err = m.Clean(design.CleanOptions{
			FillNA:       design.Fill(0),
			ExcludePolys: b.cfg.Clean.ExcludePolys,
			Thresh:       b.cfg.Clean.Threshold,
			Verbose:      b.cfg.Output.Verbose,
		})
		if err != nil {
			return nil, fmt.Errorf("clean: %w", err)
		}
	}
	return m, nil
}

func (b *Builder) loadRun(run config.RunConfig) (*design.Matrix, error) {
	if run.Design != "" {
		f, err := os.Open(run.Design)
		if err != nil {
			return nil, fmt.Errorf("failed to open design: %w", err)
		}
		defer f.Close()
		m, err := design.ReadCSV(f, b.cfg.SamplingFreq)
		if err != nil {
			return nil, fmt.Errorf("failed to read design %s: %w", run.Design, err)
		}
		return m, nil
	}

	f, err := os.Open(run.Events)
	if err != nil {
		return nil, fmt.Errorf("failed to open events: %w", err)
	}
	defer f.Close()
	evs, err := events.ReadOnsets(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read events %s: %w", run.Events, err)
	}
	return events.ToMatrix(evs, b.cfg.SamplingFreq, run.Length, events.Options{UseWeights: b.cfg.Design.UseWeights})
}

// Write saves res according to the output configuration: CSV, then the
// optional heatmap and database record.
func (b *Builder) Write(res *Result) error {
	out := b.cfg.Output
	if out.CSV != "" {
		if err := os.MkdirAll(filepath.Dir(out.CSV), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		f, err := os.Create(out.CSV)
		if err != nil {
			return fmt.Errorf("failed to create csv: %w", err)
		}
		if err := design.WriteCSV(f, res.Design); err != nil {
			f.Close()
			return fmt.Errorf("failed to write csv: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		b.logger.Info("wrote design", zap.String("path", out.CSV))
	}

	if out.Heatmap != "" {
		if err := visualization.SaveHeatmap(res.Design, out.Heatmap); err != nil {
			return fmt.Errorf("failed to save heatmap: %w", err)
		}
		b.logger.Info("wrote heatmap", zap.String("path", out.Heatmap))
	}

	if out.Database != "" {
		db, err := store.Open(out.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		rec, err := db.Save(out.Name, res.Design)
		if err != nil {
			return err
		}
		for _, r := range res.Runs {
			if _, err := db.Save(out.Name+"/"+r.Name, r.Design); err != nil {
				return err
			}
		}
		b.logger.Info("saved design", zap.String("db", out.Database), zap.String("id", rec.ID))
	}
	return nil
}

func runName(run config.RunConfig, i int) string {
	if run.Name != "" {
		return run.Name
	}
	return fmt.Sprintf("run-%d", i+1)
}
