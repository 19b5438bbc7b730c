package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmridesign/pkg/config"
	"fmridesign/pkg/design"
	"fmridesign/pkg/store"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// twoRunConfig writes two event files with face and house blocks far apart
func twoRunConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	run1 := writeFile(t, dir, "run1.csv", "Onset,Duration,Stim\n0,4,face\n20,4,house\n")
	run2 := writeFile(t, dir, "run2.csv", "Onset,Duration,Stim\n0,4,house\n20,4,face\n")

	cfg := config.DefaultConfig()
	cfg.SamplingFreq = 0.5
	cfg.Runs = []config.RunConfig{
		{Name: "run1", Events: run1, Length: 20},
		{Name: "run2", Events: run2, Length: 20},
	}
	cfg.Design.PolyOrder = 1
	cfg.Processing.NumWorkers = 2
	cfg.Output.CSV = filepath.Join(dir, "out", "design.csv")
	return cfg, dir
}

func TestBuild(t *testing.T) {
	cfg, _ := twoRunConfig(t)
	res, err := NewBuilder(cfg, nil).Build(context.Background())
	require.NoError(t, err)

	r, c := res.Design.Dims()
	assert.Equal(t, 40, r)
	assert.Equal(t, []string{"face", "house", "0_poly_0", "0_poly_1", "1_poly_0", "1_poly_1"}, res.Design.Columns())
	assert.Equal(t, 6, c)
	assert.Equal(t, 2, res.Design.Runs())
	assert.ElementsMatch(t, []string{"face", "house"}, res.Design.Convolved())

	require.Len(t, res.Runs, 2)
	assert.Equal(t, "run1", res.Runs[0].Name)
	assert.Equal(t, "run2", res.Runs[1].Name)
	assert.Equal(t, 20, res.Runs[1].Design.Rows())

	assert.Equal(t, []string{"face", "house"}, res.VIF.Columns)

	// The first run's face regressor peaks after the block
	face, err := res.Design.Col("face")
	require.NoError(t, err)
	assert.Greater(t, face[3], face[0])
}

func TestBuildUniqueColumns(t *testing.T) {
	cfg, _ := twoRunConfig(t)
	cfg.Append.UniqueCols = []string{"face"}
	cfg.Processing.NumWorkers = 1

	res, err := NewBuilder(cfg, nil).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0_face", "house", "1_face", "0_poly_0", "0_poly_1", "1_poly_0", "1_poly_1"}, res.Design.Columns())
}

func TestBuildRunFromDesign(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "design.csv", "a,b,poly_0\n1,0,1\n0,1,1\n1,1,1\n0,0,1\n")

	cfg := config.DefaultConfig()
	cfg.SamplingFreq = 1
	cfg.Design.HRF = "none"
	cfg.Design.PolyOrder = 0
	cfg.Design.ZScore = []string{"a"}
	cfg.Clean.Enabled = false

	m, err := NewBuilder(cfg, nil).BuildRun(config.RunConfig{Name: "x", Design: path})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "poly_0"}, m.Columns())
	assert.Empty(t, m.Convolved())

	a, err := m.Col("a")
	require.NoError(t, err)
	assert.InDelta(t, 0, a[0]+a[1]+a[2]+a[3], 1e-12)
}

func TestBuildErrors(t *testing.T) {
	cfg, dir := twoRunConfig(t)
	cfg.Runs[1].Events = filepath.Join(dir, "missing.csv")
	_, err := NewBuilder(cfg, nil).Build(context.Background())
	assert.Error(t, err)

	cfg, _ = twoRunConfig(t)
	cfg.Design.HRF = "boxcar"
	_, err = NewBuilder(cfg, nil).Build(context.Background())
	assert.Error(t, err)

	cfg, _ = twoRunConfig(t)
	cfg.Runs = nil
	_, err = NewBuilder(cfg, nil).Build(context.Background())
	assert.Error(t, err)

	cfg, _ = twoRunConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewBuilder(cfg, nil).Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWrite(t *testing.T) {
	cfg, dir := twoRunConfig(t)
	cfg.Output.Heatmap = filepath.Join(dir, "out", "design.png")
	cfg.Output.Database = filepath.Join(dir, "designs.db")
	cfg.Output.Name = "sub-01"

	b := NewBuilder(cfg, nil)
	res, err := b.Build(context.Background())
	require.NoError(t, err)
	require.NoError(t, b.Write(res))

	f, err := os.Open(cfg.Output.CSV)
	require.NoError(t, err)
	defer f.Close()
	back, err := design.ReadCSV(f, cfg.SamplingFreq)
	require.NoError(t, err)
	assert.Equal(t, res.Design.Columns(), back.Columns())
	assert.Equal(t, 2, back.Runs())

	_, err = os.Stat(cfg.Output.Heatmap)
	assert.NoError(t, err)

	db, err := store.Open(cfg.Output.Database)
	require.NoError(t, err)
	defer db.Close()
	recs, err := db.List()
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	saved, err := db.LoadByName("sub-01")
	require.NoError(t, err)
	assert.Equal(t, res.Design.Columns(), saved.Columns())
	run1, err := db.LoadByName("sub-01/run1")
	require.NoError(t, err)
	assert.Equal(t, 20, run1.Rows())
}
