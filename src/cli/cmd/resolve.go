package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"time"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/sofmeright/droidplan/src/build"
	"github.com/sofmeright/droidplan/src/buildconf"
	"github.com/sofmeright/droidplan/src/config"
	"github.com/sofmeright/droidplan/src/output"
	"github.com/sofmeright/droidplan/src/provider"
	"github.com/sofmeright/droidplan/src/watch"
)

var (
	resolveBuildType string
	resolveFormat    string
	resolveOut       string
	resolveArtifacts []string
	resolveSet       map[string]string
	resolveWatch     bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [descriptor]",
	Short: "Resolve a build descriptor into a configuration and plan",
	Long: `Resolve a build descriptor for one build type.

flutter.* references are looked up in the provider chain from the config
file; --set overrides individual keys. The result is printed as text or
written as yaml, toml or json.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveBuildType, "build-type", "b", "", "build type to resolve (default: from config, then release)")
	resolveCmd.Flags().StringVarP(&resolveFormat, "format", "f", "", "output format: text, yaml, toml, json (default: from config)")
	resolveCmd.Flags().StringVarP(&resolveOut, "out", "o", "", "write the result to this file instead of stdout")
	resolveCmd.Flags().StringSliceVar(&resolveArtifacts, "artifact", nil, "artifacts to plan: apk, bundle (default: from config)")
	resolveCmd.Flags().StringToStringVar(&resolveSet, "set", nil, "override a provider value, e.g. --set minSdkVersion=24")
	resolveCmd.Flags().BoolVarP(&resolveWatch, "watch", "w", false, "re-resolve when the descriptor or provider files change")

	rootCmd.AddCommand(resolveCmd)
}

// resolveRequest is everything one resolve pass needs.
type resolveRequest struct {
	descriptor string
	buildType  string
	format     string
	outPath    string
	artifacts  []build.OutputMode
	overrides  map[string]string
}

func runResolve(cmd *cobra.Command, args []string) error {
	req := resolveRequest{
		descriptor: resolvePath(cfg.Descriptor),
		buildType:  cfg.BuildType,
		format:     cfg.Format,
		outPath:    resolveOut,
		overrides:  resolveSet,
	}
	if len(args) > 0 {
		req.descriptor = args[0]
	}
	// CLI flag > config > default
	if resolveBuildType != "" {
		req.buildType = resolveBuildType
	}
	if resolveFormat != "" {
		req.format = resolveFormat
	}
	artifacts := cfg.Outputs
	if len(resolveArtifacts) > 0 {
		artifacts = resolveArtifacts
	}
	for _, a := range artifacts {
		mode, err := build.ParseOutputMode(a)
		if err != nil {
			return err
		}
		req.artifacts = append(req.artifacts, mode)
	}

	w := cmd.OutOrStdout()
	err := resolveOnce(cmd.Context(), w, req)
	if !resolveWatch {
		return err
	}
	if err != nil {
		slog.Error("resolve failed", "error", err)
	}

	paths := append([]string{req.descriptor}, watchedProviderFiles(cfg.Provider)...)
	return watch.Run(cmd.Context(), paths, watch.DefaultDebounce, func(ctx context.Context) error {
		return resolveOnce(ctx, w, req)
	})
}

// resolveOnce loads, validates and renders the descriptor. A descriptor that
// fails validation is an error; warnings are logged and rendered.
func resolveOnce(_ context.Context, w io.Writer, req resolveRequest) error {
	start := time.Now()

	chain, err := providerChain(req.overrides)
	if err != nil {
		return err
	}

	bc, err := buildconf.Load(req.descriptor, chain,
		buildconf.WithBuildType(req.buildType),
		buildconf.WithLogger(slog.Default()),
	)
	if err != nil {
		return err
	}
	warnings, err := buildconf.Validate(bc)
	if err != nil {
		return fmt.Errorf("%s: %w", req.descriptor, err)
	}
	for _, warn := range warnings {
		slog.Warn(warn, "descriptor", req.descriptor)
	}

	plan := build.NewPlan(bc, req.artifacts...)
	slog.Debug("resolved descriptor",
		"descriptor", req.descriptor,
		"build_type", bc.BuildType,
		"tasks", plan.Tasks(),
		"elapsed", time.Since(start),
	)

	var buf bytes.Buffer
	if req.format == "text" {
		color := req.outPath == "" && output.UseColor()
		sec := output.NewSection(&buf, "Configuration", time.Since(start), color)
		output.SectionConfig(sec, bc)
		sec.Close()

		sec = output.NewSection(&buf, "Plan", 0, color)
		output.SectionPlan(sec, plan, color)
		if len(warnings) > 0 {
			sec.Separator()
			output.SectionWarnings(sec, warnings, color)
		}
		sec.Close()
	} else {
		doc := output.Resolved{Configuration: bc, Plan: plan, Warnings: warnings}
		if err := output.Encode(&buf, req.format, doc); err != nil {
			return err
		}
	}

	if req.outPath != "" {
		if err := renameio.WriteFile(req.outPath, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", req.outPath, err)
		}
		slog.Info("wrote resolved configuration", "path", req.outPath)
		return nil
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// providerChain builds the configured chain with CLI overrides in front.
func providerChain(overrides map[string]string) (provider.Chain, error) {
	chain, err := cfg.Provider.Build(baseDir(), slog.Default())
	if err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		chain = append(provider.Chain{provider.Map(maps.Clone(overrides))}, chain...)
	}
	return chain, nil
}

func watchedProviderFiles(pc config.ProviderConfig) []string {
	var paths []string
	for _, f := range pc.Files {
		paths = append(paths, resolvePath(f))
	}
	if pc.Pubspec != "" {
		paths = append(paths, resolvePath(pc.Pubspec))
	}
	return paths
}
