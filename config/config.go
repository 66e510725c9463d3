package config

import (
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/pelletier/go-toml"
	"tlog.app/go/errors"

	"cirlower/common"
	"cirlower/llvm"
	"cirlower/lower"
	"cirlower/report"
)

// tomlConfig is the configuration as it is encoded in TOML.
type tomlConfig struct {
	Requires string      `toml:"requires"`
	Target   tomlTarget  `toml:"target"`
	Layout   tomlLayout  `toml:"layout"`
	Lower    tomlLowerer `toml:"lower"`
}

type tomlTarget struct {
	Triple string `toml:"triple"`
}

type tomlLayout struct {
	PointerWidth uint `toml:"pointer-width"`
	IndexWidth   uint `toml:"index-width"`
	BoolWidth    uint `toml:"bool-width"`
}

type tomlLowerer struct {
	LogLevel string   `toml:"log-level"`
	Dump     []string `toml:"dump"`
}

// Config is the validated configuration of the tool.
type Config struct {
	// Path is the file the configuration was loaded from, if any.
	Path string

	// Triple is the target triple given to modules that carry none.
	Triple string

	// Layout is the data layout of the target.
	Layout *llvm.DataLayout

	// LogLevel is one of the enumerated reporter log levels.
	LogLevel int

	// Dump lists the tlog topics to enable, eg. `dump_before`.
	Dump []string
}

// Default returns the configuration used when no file is given: a 64-bit
// target with 8-bit booleans in memory.
func Default() *Config {
	return &Config{
		Layout:   llvm.DefaultLayout(),
		LogLevel: report.LogLevelVerbose,
	}
}

// Find returns the path of the configuration file in dir or an empty string if
// there is none.
func Find(dir string) string {
	path := filepath.Join(dir, common.ConfigFileName)
	if _, err := os.Stat(path); err != nil {
		return ""
	}

	return path
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	buff, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	cfg, err := Parse(buff)
	if err != nil {
		return nil, errors.Wrap(err, "%s", path)
	}

	cfg.Path = path
	return cfg, nil
}

// Parse decodes and validates a TOML configuration.  Missing keys keep the
// values of Default.
func Parse(buff []byte) (*Config, error) {
	tc := &tomlConfig{}
	if err := toml.Unmarshal(buff, tc); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}

	if err := checkRequires(tc.Requires); err != nil {
		return nil, err
	}

	cfg := Default()
	cfg.Triple = tc.Target.Triple
	cfg.Dump = tc.Lower.Dump

	if tc.Lower.LogLevel != "" {
		lvl, err := report.ParseLogLevel(tc.Lower.LogLevel)
		if err != nil {
			return nil, err
		}

		cfg.LogLevel = lvl
	}

	// zero widths select the defaults
	if w := tc.Layout.PointerWidth; w != 0 {
		cfg.Layout.PointerWidth = w
		cfg.Layout.IndexWidth = w
	}

	if w := tc.Layout.IndexWidth; w != 0 {
		cfg.Layout.IndexWidth = w
	}

	if w := tc.Layout.BoolWidth; w != 0 {
		cfg.Layout.BoolWidth = w
	}

	if err := checkLayout(cfg.Layout); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LowerOptions returns the options of the lowering pass.
func (c *Config) LowerOptions() lower.Options {
	return lower.Options{Layout: c.Layout, DefaultTriple: c.Triple}
}

// -----------------------------------------------------------------------------

// checkRequires checks the running version satisfies the version constraint
// of the configuration.
func checkRequires(requires string) error {
	if requires == "" {
		return nil
	}

	constraint, err := semver.NewConstraint(requires)
	if err != nil {
		return errors.Wrap(err, "invalid version constraint %q", requires)
	}

	version := semver.MustParse(common.Version)
	if !constraint.Check(version) {
		return errors.New("configuration requires cirlower %s but this is v%s", requires, common.Version)
	}

	return nil
}

func checkLayout(dl *llvm.DataLayout) error {
	switch dl.PointerWidth {
	case 16, 32, 64:
	default:
		return errors.New("unsupported pointer width %d", dl.PointerWidth)
	}

	if dl.IndexWidth%8 != 0 || dl.IndexWidth > dl.PointerWidth {
		return errors.New("index width %d must be a whole number of bytes no wider than pointers", dl.IndexWidth)
	}

	if dl.BoolWidth%8 != 0 || dl.BoolWidth > 64 {
		return errors.New("unsupported boolean width %d", dl.BoolWidth)
	}

	return nil
}
