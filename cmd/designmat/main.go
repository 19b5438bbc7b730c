package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"fmridesign/pkg/config"
	"fmridesign/pkg/pipeline"
	"fmridesign/pkg/visualization"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "designmat.yaml", "Path to the YAML configuration")
	outputPath := flag.String("output", "", "Output CSV file (overrides output.csv)")
	heatmapPath := flag.String("heatmap", "", "Write a PNG heatmap of the design (overrides output.heatmap)")
	dbPath := flag.String("db", "", "SQLite database to save the design to (overrides output.database)")
	tracesDir := flag.String("traces", "", "Directory to save one trace image per regressor")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	initConfig := flag.Bool("init-config", false, "Write a default configuration to -config and exit")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to create config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *outputPath != "" {
		cfg.Output.CSV = *outputPath
	}
	if *heatmapPath != "" {
		cfg.Output.Heatmap = *heatmapPath
	}
	if *dbPath != "" {
		cfg.Output.Database = *dbPath
	}
	if *verbose {
		cfg.Output.Verbose = true
	}

	logger, err := newLogger(cfg.Output.Verbose)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	builder := pipeline.NewBuilder(cfg, logger)

	startTime := time.Now()
	res, err := builder.Build(ctx)
	if err != nil {
		log.Fatalf("Build failed: %v", err)
	}
	if err := builder.Write(res); err != nil {
		log.Fatalf("Failed to write results: %v", err)
	}
	processingTime := time.Since(startTime)

	rows, cols := res.Design.Dims()
	fmt.Printf("\nDesign built in %.2f seconds: %d samples x %d regressors over %d runs\n",
		processingTime.Seconds(), rows, cols, res.Design.Runs())
	if cfg.Output.CSV != "" {
		fmt.Printf("Design matrix saved to: %s\n", cfg.Output.CSV)
	}

	if len(res.VIF.Columns) > 0 {
		fmt.Println("\nVariance inflation factors:")
		for i, name := range res.VIF.Columns {
			fmt.Printf("- %s: %.3f\n", name, res.VIF.Values[i])
		}
		if !res.VIF.AllBelow(5) {
			fmt.Println("Warning: some regressors are strongly collinear (VIF >= 5)")
		}
	}

	if *tracesDir != "" {
		viewer := visualization.NewViewer(res.Design)
		if err := viewer.SaveColumnTraces(filepath.Clean(*tracesDir), 128); err != nil {
			log.Printf("Warning: Failed to save traces: %v", err)
		} else {
			fmt.Printf("Regressor traces saved to: %s\n", *tracesDir)
		}
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	return cfg.Build()
}
