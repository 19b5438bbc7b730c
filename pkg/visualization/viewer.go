package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"fmridesign/pkg/design"
)

// Viewer renders design matrices as grayscale images. Rows (time) run down
// the image and regressors run across it, the usual way design matrices
// are inspected.
type Viewer struct {
	// data holds the matrix values column by column
	data [][]float64

	// columns are the regressor names
	columns []string

	// rows is the number of samples
	rows int
}

// NewViewer creates a viewer over a snapshot of m
func NewViewer(m *design.Matrix) *Viewer {
	names := m.Columns()
	data := make([][]float64, len(names))
	for j, name := range names {
		// Names come from m, so the lookup cannot fail
		data[j], _ = m.Col(name)
	}
	return &Viewer{
		data:    data,
		columns: names,
		rows:    m.Rows(),
	}
}

// Heatmap draws every column scaled to its own min/max, each value as a
// cellW x cellH block. Constant columns are drawn mid-gray and NaN black.
func (v *Viewer) Heatmap(cellW, cellH int) (image.Image, error) {
	if cellW <= 0 || cellH <= 0 {
		return nil, fmt.Errorf("cell size must be positive, got %dx%d", cellW, cellH)
	}
	if v.rows == 0 || len(v.columns) == 0 {
		return nil, fmt.Errorf("matrix is empty")
	}

	img := image.NewGray16(image.Rect(0, 0, len(v.columns)*cellW, v.rows*cellH))
	for j, col := range v.data {
		lo, hi := findMinMax(col)
		for i, val := range col {
			c := color.Gray16{Y: scale(val, lo, hi)}
			for y := i * cellH; y < (i+1)*cellH; y++ {
				for x := j * cellW; x < (j+1)*cellW; x++ {
					img.SetGray16(x, y, c)
				}
			}
		}
	}
	return img, nil
}

// ColumnTrace plots a single regressor over time as a height pixel tall
// image, one pixel column per sample.
func (v *Viewer) ColumnTrace(name string, height int) (image.Image, error) {
	if height < 2 {
		return nil, fmt.Errorf("height must be at least 2, got %d", height)
	}
	j := -1
	for k, c := range v.columns {
		if c == name {
			j = k
			break
		}
	}
	if j < 0 {
		return nil, fmt.Errorf("%w: %q", design.ErrUnknownColumn, name)
	}

	col := v.data[j]
	img := image.NewGray16(image.Rect(0, 0, v.rows, height))
	lo, hi := findMinMax(col)
	for x, val := range col {
		if math.IsNaN(val) {
			continue
		}
		level := float64(scale(val, lo, hi)) / 65535
		y := height - 1 - int(math.Round(level*float64(height-1)))
		img.SetGray16(x, y, color.White)
	}
	return img, nil
}

// SaveImage writes img as a PNG file
func (v *Viewer) SaveImage(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

// SaveColumnTraces writes one trace image per regressor into outputDir
func (v *Viewer) SaveColumnTraces(outputDir string, height int) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for j, name := range v.columns {
		img, err := v.ColumnTrace(name, height)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("column_%03d_%s.png", j, name))
		if err := v.SaveImage(img, filename); err != nil {
			return err
		}
	}

	return nil
}

// Heatmap renders m with the given cell size.
func Heatmap(m *design.Matrix, cellW, cellH int) (image.Image, error) {
	return NewViewer(m).Heatmap(cellW, cellH)
}

// SaveHeatmap renders m and writes it to path as PNG. Columns are 16 pixels
// wide and each sample one pixel tall.
func SaveHeatmap(m *design.Matrix, path string) error {
	v := NewViewer(m)
	img, err := v.Heatmap(16, 1)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return v.SaveImage(img, path)
}

func scale(val, lo, hi float64) uint16 {
	switch {
	case math.IsNaN(val):
		return 0
	case hi <= lo:
		return 32768
	}
	return uint16(math.Max(0, math.Min(65535, (val-lo)/(hi-lo)*65535)))
}

// findMinMax returns the range of data ignoring NaN
func findMinMax(data []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range data {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
