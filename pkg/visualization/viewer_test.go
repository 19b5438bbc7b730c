package visualization

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"

	"fmridesign/pkg/design"
)

// createTestMatrix builds a 6x3 matrix: a ramp, a constant and a column with
// a missing value
func createTestMatrix(t *testing.T) *design.Matrix {
	t.Helper()
	m, err := design.FromRows([][]float64{
		{0, 1, 1},
		{1, 1, 0},
		{2, 1, math.NaN()},
		{3, 1, 0},
		{4, 1, 1},
		{5, 1, 0},
	}, []string{"ramp", "const", "gappy"}, 1)
	if err != nil {
		t.Fatalf("Failed to create matrix: %v", err)
	}
	return m
}

// TestNewViewer verifies that the viewer copies the matrix layout
func TestNewViewer(t *testing.T) {
	m := createTestMatrix(t)
	viewer := NewViewer(m)

	if viewer.rows != 6 {
		t.Errorf("Expected 6 rows, got %d", viewer.rows)
	}

	if len(viewer.columns) != 3 {
		t.Errorf("Expected 3 columns, got %d", len(viewer.columns))
	}

	if viewer.data[0][5] != 5 {
		t.Errorf("Expected ramp value 5 at row 5, got %f", viewer.data[0][5])
	}
}

// TestHeatmap verifies image size and per-column scaling
func TestHeatmap(t *testing.T) {
	m := createTestMatrix(t)
	img, err := Heatmap(m, 4, 2)
	if err != nil {
		t.Fatalf("Failed to render heatmap: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 12 || bounds.Dy() != 12 {
		t.Errorf("Expected heatmap dimensions 12x12, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	gray, ok := img.(*image.Gray16)
	if !ok {
		t.Fatalf("Expected *image.Gray16, got %T", img)
	}

	// Ramp goes from black at the top to white at the bottom
	if v := gray.Gray16At(0, 0).Y; v != 0 {
		t.Errorf("Expected top of ramp to be 0, got %d", v)
	}
	if v := gray.Gray16At(3, 11).Y; v != 65535 {
		t.Errorf("Expected bottom of ramp to be 65535, got %d", v)
	}

	// Constant column is mid-gray
	if v := gray.Gray16At(5, 5).Y; v != 32768 {
		t.Errorf("Expected constant column to be 32768, got %d", v)
	}

	// NaN is black
	if v := gray.Gray16At(9, 4).Y; v != 0 {
		t.Errorf("Expected NaN cell to be 0, got %d", v)
	}

	_, err = Heatmap(m, 0, 1)
	if err == nil {
		t.Error("Expected error for zero cell width, got nil")
	}

	empty, _ := design.Empty(1)
	_, err = Heatmap(empty, 1, 1)
	if err == nil {
		t.Error("Expected error for empty matrix, got nil")
	}
}

// TestColumnTrace verifies that a regressor is plotted one sample per pixel column
func TestColumnTrace(t *testing.T) {
	viewer := NewViewer(createTestMatrix(t))

	img, err := viewer.ColumnTrace("ramp", 11)
	if err != nil {
		t.Fatalf("Failed to draw trace: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 6 || bounds.Dy() != 11 {
		t.Errorf("Expected trace dimensions 6x11, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	gray := img.(*image.Gray16)
	if v := gray.Gray16At(0, 10).Y; v != 65535 {
		t.Errorf("Expected first sample at the bottom row, got %d", v)
	}
	if v := gray.Gray16At(5, 0).Y; v != 65535 {
		t.Errorf("Expected last sample at the top row, got %d", v)
	}

	_, err = viewer.ColumnTrace("missing", 10)
	if err == nil {
		t.Error("Expected error for unknown column, got nil")
	}

	_, err = viewer.ColumnTrace("ramp", 1)
	if err == nil {
		t.Error("Expected error for height 1, got nil")
	}
}

// TestSaveHeatmap verifies that the heatmap is written to disk
func TestSaveHeatmap(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	filename := filepath.Join(t.TempDir(), "out", "design.png")
	if err := SaveHeatmap(createTestMatrix(t), filename); err != nil {
		t.Fatalf("Failed to save heatmap: %v", err)
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		t.Errorf("Saved file does not exist: %s", filename)
	}
}

// TestSaveColumnTraces verifies that one image is written per column
func TestSaveColumnTraces(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	outputDir := filepath.Join(t.TempDir(), "traces")
	viewer := NewViewer(createTestMatrix(t))
	if err := viewer.SaveColumnTraces(outputDir, 8); err != nil {
		t.Fatalf("Failed to save traces: %v", err)
	}

	for j, name := range []string{"ramp", "const", "gappy"} {
		filename := filepath.Join(outputDir, fmt.Sprintf("column_%03d_%s.png", j, name))
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Errorf("Expected trace file does not exist: %s", filename)
		}
	}
}
