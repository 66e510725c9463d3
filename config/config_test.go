package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cirlower/common"
	"cirlower/llvm"
	"cirlower/report"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, llvm.DefaultLayout(), cfg.Layout)
	assert.Equal(t, report.LogLevelVerbose, cfg.LogLevel)
	assert.Empty(t, cfg.Triple)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
requires = ">= 0.1, < 1.0"

[target]
triple = "riscv32-unknown-elf"

[layout]
pointer-width = 32

[lower]
log-level = "warn"
dump = ["dump_before", "rewrite"]
`))
	require.NoError(t, err)

	assert.Equal(t, "riscv32-unknown-elf", cfg.Triple)
	assert.Equal(t, &llvm.DataLayout{PointerWidth: 32, IndexWidth: 32, BoolWidth: 8}, cfg.Layout)
	assert.Equal(t, report.LogLevelWarn, cfg.LogLevel)
	assert.Equal(t, []string{"dump_before", "rewrite"}, cfg.Dump)

	opts := cfg.LowerOptions()
	assert.Same(t, cfg.Layout, opts.Layout)
	assert.Equal(t, "riscv32-unknown-elf", opts.DefaultTriple)
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[layout]
bool-width = 32
`))
	require.NoError(t, err)

	assert.Equal(t, &llvm.DataLayout{PointerWidth: 64, IndexWidth: 64, BoolWidth: 32}, cfg.Layout)
	assert.Equal(t, report.LogLevelVerbose, cfg.LogLevel)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"malformed":         `[layout`,
		"future version":    `requires = ">= 9.0"`,
		"bad constraint":    `requires = "not a version"`,
		"bad log level":     "[lower]\nlog-level = \"loud\"",
		"bad pointer width": "[layout]\npointer-width = 48",
		"index wider":       "[layout]\npointer-width = 32\nindex-width = 64",
		"odd boolean width": "[layout]\nbool-width = 3",
		"wrong type of key": "[layout]\npointer-width = \"wide\"",
	}

	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			assert.Error(t, err)
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, Find(dir))

	path := filepath.Join(dir, common.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("[target]\ntriple = \"x86_64-pc-linux-gnu\"\n"), 0o644))
	require.Equal(t, path, Find(dir))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, "x86_64-pc-linux-gnu", cfg.Triple)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}
