package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dshills/runtimeprefs/internal/settings/loader"
	"github.com/dshills/runtimeprefs/internal/settings/registry"
	"github.com/dshills/runtimeprefs/internal/settings/script"
)

func runEncode(e *env, args []string) error {
	fs := newFlagSet(e, "encode")
	configPath := fs.String("config", "", "Settings file (TOML); empty uses defaults and environment only")
	scriptPath := fs.String("script", "", "Lua script applied after the settings file")
	outPath := fs.String("out", "", "Output file (default stdout)")
	noEnv := fs.Bool("no-env", false, "Ignore PREFS_* environment overrides")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	opts := []loader.Option{loader.WithLogger(e.logger)}
	if *noEnv {
		opts = append(opts, loader.WithEnviron(nil))
	}
	reg, err := loader.New(opts...).Load(*configPath)
	if err != nil {
		return err
	}

	if *scriptPath != "" {
		r := script.New(script.WithLogger(e.logger))
		if err := r.RunFile(context.Background(), reg, *scriptPath); err != nil {
			return err
		}
	}

	return writeRegistry(e, reg, *outPath)
}

func writeRegistry(e *env, reg *registry.Registry, path string) error {
	data, err := reg.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}

	if path == "" {
		_, err = e.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	e.logger.Info("preferences written", slog.String("path", path), slog.Int("bytes", len(data)))
	return nil
}
