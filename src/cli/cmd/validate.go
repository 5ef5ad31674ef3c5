package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sofmeright/droidplan/src/audit"
	"github.com/sofmeright/droidplan/src/buildconf"
	"github.com/sofmeright/droidplan/src/output"
	"github.com/sofmeright/droidplan/src/provider"
)

var (
	validateBuildType string
	validateNoAudit   bool
	validateJUnit     string
	validateJobs      int
)

var validateCmd = &cobra.Command{
	Use:   "validate [descriptors...]",
	Short: "Check build descriptors for errors, warnings and inline secrets",
	Long: `Resolve and validate one or more build descriptors.

Each descriptor is resolved against the configured providers and checked
for configuration errors and warnings. Unless --no-audit is given, the
descriptor text is also scanned for committed credentials.

Exits non-zero if any descriptor fails or a secret is found.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateBuildType, "build-type", "b", "", "build type to resolve (default: from config, then release)")
	validateCmd.Flags().BoolVar(&validateNoAudit, "no-audit", false, "skip the inline secret scan")
	validateCmd.Flags().StringVar(&validateJUnit, "junit", "", "write a JUnit XML report to this file")
	validateCmd.Flags().IntVarP(&validateJobs, "jobs", "j", runtime.NumCPU(), "descriptors validated in parallel")

	rootCmd.AddCommand(validateCmd)
}

// validation is the per-descriptor outcome collected by runValidate.
type validation struct {
	output.Result
	Findings []audit.Finding
}

func runValidate(cmd *cobra.Command, args []string) error {
	files := args
	if len(files) == 0 {
		files = []string{resolvePath(cfg.Descriptor)}
	}
	buildType := cfg.BuildType
	if validateBuildType != "" {
		buildType = validateBuildType
	}
	doAudit := cfg.Audit && !validateNoAudit

	chain, err := providerChain(nil)
	if err != nil {
		return err
	}

	var scanner *audit.Scanner
	if doAudit {
		scanner = audit.NewScanner()
	}

	start := time.Now()
	results := make([]validation, len(files))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(validateJobs, 1))
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = validateOne(file, buildType, chain, scanner)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	w := cmd.OutOrStdout()
	color := output.UseColor()
	var failed, critical int
	var allFindings []audit.Finding

	output.SectionStart(w, "droidplan_validate", "Validate")
	sec := output.NewSection(w, "Validate", elapsed, color)
	for _, r := range results {
		status, detail := "success", fmt.Sprintf("%d warning(s)", len(r.Warnings))
		if r.Failed() {
			status, detail = "failed", r.Err.Error()
			failed++
		}
		output.RowStatus(sec, r.File, detail, status, color)
		if !r.Failed() {
			output.SectionWarnings(sec, r.Warnings, color)
		}
		for _, f := range r.Findings {
			if f.Severity == audit.SeverityCritical {
				critical++
			}
		}
		allFindings = append(allFindings, r.Findings...)
	}
	sec.Close()

	if doAudit {
		sec = output.NewSection(w, "Audit", 0, color)
		output.SectionFindings(sec, allFindings, color)
		sec.Row("%s", output.FindingsSummaryLine(allFindings, len(files), color))
		sec.Close()
	}

	if len(results) > 1 {
		sec = output.NewSection(w, "Summary", 0, color)
		for _, r := range results {
			sec.SummaryRow(filepath.Base(r.File), r.Elapsed, statusOf(r.Failed()))
		}
		sec.SummaryTotal(elapsed, statusOf(failed > 0 || critical > 0))
		sec.Close()
	}
	output.SectionEnd(w, "droidplan_validate")

	if validateJUnit != "" {
		plain := make([]output.Result, len(results))
		for i, r := range results {
			plain[i] = r.Result
		}
		if err := output.WriteJUnit(validateJUnit, plain, elapsed); err != nil {
			return err
		}
		slog.Info("wrote junit report", "path", validateJUnit)
	}

	if failed > 0 || critical > 0 {
		return fmt.Errorf("validate: %d of %d descriptor(s) failed, %d secret(s) found", failed, len(files), critical)
	}
	return nil
}

func statusOf(failed bool) string {
	if failed {
		return "failed"
	}
	return "success"
}

// validateOne resolves, validates and audits a single descriptor. The secret
// scan runs even when the descriptor does not resolve.
func validateOne(file, buildType string, p provider.Provider, scanner *audit.Scanner) (v validation) {
	start := time.Now()
	v.File = file
	defer func() { v.Elapsed = time.Since(start) }()

	data, err := os.ReadFile(file)
	if err != nil {
		v.Err = fmt.Errorf("reading descriptor: %w", err)
		return v
	}

	if scanner != nil {
		findings, err := scanner.Scan(file, data)
		if err != nil {
			slog.Warn("secret scan failed", "descriptor", file, "error", err)
		}
		v.Findings = findings
	}

	bc, err := buildconf.Parse(file, data, p,
		buildconf.WithBuildType(buildType),
		buildconf.WithLogger(slog.Default()),
	)
	if err != nil {
		v.Err = err
		return v
	}
	v.Warnings, v.Err = buildconf.Validate(bc)
	slog.Debug("validated descriptor", "descriptor", file, "warnings", len(v.Warnings), "error", v.Err)
	return v
}
