// Command bake bakes every volume of a scene config into EXR assets that the
// viewer loads at startup.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gekko3d/volumetrics"
	"github.com/gekko3d/volumetrics/fogrt/rt/volume"
)

func main() {
	configPath := flag.String("config", "", "Scene YAML (required)")
	outDir := flag.String("out", "", "Output directory, overrides settings.output_dir")
	workers := flag.Int("workers", 0, "Bake workers, overrides settings.workers")
	preview := flag.String("preview", "png", "Contact sheet format next to each bake: png, bmp, tiff or none")
	scale := flag.Int("scale", 4, "Contact sheet scale")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	log := volumetrics.NewDefaultLogger("[bake] ", *debug)
	if *configPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(log, *configPath, *outDir, *workers, *preview, *scale); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(log volumetrics.Logger, configPath, outDir string, workers int, preview string, scale int) error {
	cfg, err := volumetrics.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if outDir != "" {
		cfg.Settings.OutputDir = outDir
	}
	if workers > 0 {
		cfg.Settings.Workers = workers
	}
	if err := os.MkdirAll(cfg.Settings.OutputDir, 0o755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}

	vols, err := cfg.BuildVolumes()
	if err != nil {
		return err
	}
	registry := volume.NewRegistry(log)
	for _, v := range vols {
		registry.Add(v)
	}
	baker := volume.NewBaker(volume.WithWorkers(cfg.Settings.Workers), volume.WithLogger(log))

	profiler := volumetrics.NewProfiler()
	end := profiler.Scope("bake")
	err = registry.BakeAll(baker, cfg.Probes.ProbeField())
	end()
	if err != nil {
		return err
	}

	for _, v := range registry.Snapshot() {
		path, err := volume.SaveVolume(cfg.Settings.OutputDir, v)
		if err != nil {
			return err
		}
		log.Infof("wrote %s", path)
		if strings.EqualFold(preview, "none") {
			continue
		}
		if err := writePreview(path, v, preview, scale); err != nil {
			return err
		}
	}
	profiler.SetCount("volumes", registry.Len())
	log.Infof("\n%s", profiler.GetStatsString())
	return nil
}

func writePreview(assetPath string, v *volume.BakedVolume, format string, scale int) error {
	path := strings.TrimSuffix(assetPath, filepath.Ext(assetPath)) + "." + strings.ToLower(format)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("preview %s: %w", v, err)
	}
	if err := volume.WritePreview(f, v.Buffer, scale, format); err != nil {
		f.Close()
		return fmt.Errorf("preview %s: %w", v, err)
	}
	return f.Close()
}
