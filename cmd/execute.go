package cmd

import (
	"os"

	"github.com/ComedicChimera/olive"

	"cirlower/common"
	"cirlower/report"
)

// Execute is the main entry point for the `cirlower` CLI utility
func Execute() {
	// set up the argument parser and all its extended commands and arguments
	cli := olive.NewCLI("cirlower", "cirlower lowers CIR modules to the LLVM dialect", true)

	// no default: the configuration file decides unless the flag is given
	cli.AddSelectorArg("loglevel", "ll", "the log level", false, report.LogLevelNames)

	lowerCmd := cli.AddSubcommand("lower", "lower a module to LLVM assembly", true)
	lowerCmd.AddPrimaryArg("module-path", "the path to the YAML module to lower", true)
	lowerCmd.AddStringArg("output", "o", "the path of the output file", false)
	lowerCmd.AddStringArg("config", "c", "the path of the configuration file", false)
	lowerCmd.AddFlag("stdout", "s", "write the LLVM assembly to standard out")

	dumpCmd := cli.AddSubcommand("dump", "print the decoded module", true)
	dumpCmd.AddPrimaryArg("module-path", "the path to the YAML module to dump", true)

	cli.AddSubcommand("version", "print the cirlower version", false)

	// run the argument parser
	result, err := olive.ParseArgs(cli, os.Args)
	if err != nil {
		report.ReportFatal(err.Error())
	}

	logLevel := ""
	if arg, ok := result.Arguments["loglevel"]; ok {
		logLevel = arg.(string)
	}

	// process the inputed command line
	subcmdName, subResult, _ := result.Subcommand()
	switch subcmdName {
	case "lower":
		execLowerCommand(subResult, logLevel)
	case "dump":
		initLogLevel(logLevel, report.LogLevelVerbose)
		execDumpCommand(subResult)
	case "version":
		initLogLevel(logLevel, report.LogLevelVerbose)
		report.ReportInfo("cirlower version %s", common.Version)
	}

	if report.AnyErrors() {
		os.Exit(1)
	}
}

// initLogLevel initializes the reporter from the command line log level or
// falls back to fallback if none was given.
func initLogLevel(name string, fallback int) {
	if name == "" {
		report.InitReporter(fallback)
		return
	}

	lvl, err := report.ParseLogLevel(name)
	if err != nil {
		report.InitReporter(fallback)
		report.ReportFatal(err.Error())
	}

	report.InitReporter(lvl)
}
