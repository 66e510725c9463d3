package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ComedicChimera/olive"
	"tlog.app/go/tlog"

	"cirlower/cir"
	"cirlower/common"
	"cirlower/config"
	"cirlower/generate"
	"cirlower/lower"
	"cirlower/report"
	"cirlower/rewrite"
)

// execLowerCommand executes the lower subcommand and handles all errors
func execLowerCommand(result *olive.ArgParseResult, logLevel string) {
	modPath, _ := result.PrimaryArg()

	cfg := loadConfig(result)
	initLogLevel(logLevel, cfg.LogLevel)

	if len(cfg.Dump) > 0 {
		tlog.SetVerbosity(strings.Join(cfg.Dump, ","))
	}

	ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())

	mod, err := cir.DecodeFile(modPath)
	if err != nil {
		report.ReportFatal("failed to load module: %s", err)
	}

	res, err := lower.Run(ctx, mod, cfg.LowerOptions())
	if err != nil {
		report.ReportError(err)
		return
	}

	reportStats(res.Stats)

	if result.HasFlag("stdout") {
		if err := generate.Emit(ctx, res.Module, os.Stdout); err != nil {
			report.ReportError(err)
		}

		return
	}

	outPath := outputPath(result, modPath)
	f, err := os.Create(outPath)
	if err != nil {
		report.ReportFatal("failed to create output file: %s", err)
	}
	defer f.Close()

	if err := generate.Emit(ctx, res.Module, f); err != nil {
		report.ReportError(err)
		return
	}

	report.ReportInfo("wrote %s", outPath)
}

// execDumpCommand executes the dump subcommand.
func execDumpCommand(result *olive.ArgParseResult) {
	modPath, _ := result.PrimaryArg()

	mod, err := cir.DecodeFile(modPath)
	if err != nil {
		report.ReportFatal("failed to load module: %s", err)
	}

	fmt.Print(mod.Repr())
}

// -----------------------------------------------------------------------------

// loadConfig loads the configuration named on the command line, the one found
// in the working directory or the default one in that order.
func loadConfig(result *olive.ArgParseResult) *config.Config {
	path := ""
	if arg, ok := result.Arguments["config"]; ok {
		path = arg.(string)
	} else if wd, err := os.Getwd(); err == nil {
		path = config.Find(wd)
	}

	if path == "" {
		return config.Default()
	}

	cfg, err := config.Load(path)
	if err != nil {
		report.ReportFatal("failed to load configuration: %s", err)
	}

	return cfg
}

// outputPath returns the path given by `-o` or the module path with the output
// file extension.
func outputPath(result *olive.ArgParseResult, modPath string) string {
	if arg, ok := result.Arguments["output"]; ok {
		return arg.(string)
	}

	return strings.TrimSuffix(modPath, filepath.Ext(modPath)) + common.OutputFileExt
}

func reportStats(stats *rewrite.Stats) {
	if stats == nil {
		return
	}

	names := make([]string, 0, len(stats.Rewritten))
	for name := range stats.Rewritten {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, len(names))
	for i, name := range names {
		rows[i] = []string{name, strconv.Itoa(stats.Rewritten[name])}
	}

	report.ReportTable([]string{"operation", "rewritten"}, rows)
	report.ReportInfo("%d rounds, %d operations outside the module walk", stats.Rounds, stats.Extra)
}
