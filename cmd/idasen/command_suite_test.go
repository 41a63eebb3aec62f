package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/suite"
)

// CommandTestSuite is the shared base for command tests: it isolates flag
// state between tests and executes the root command with captured output.
type CommandTestSuite struct {
	suite.Suite
}

// SetupTest resets all flag state so tests do not leak into each other.
func (suite *CommandTestSuite) SetupTest() {
	resetFlags(rootCmd)

	scanDuration = 0
	scanFormat = "table"
	scanServices = nil
	scanAllowList = nil
	scanBlockList = nil
	scanNoDuplicate = true
}

// resetFlags restores every changed flag to its default, recursively.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		// Slice flags append on Set; their backing vars are reset directly
		// in SetupTest instead.
		if f.Value.Type() != "stringSlice" {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns the combined output.
func (suite *CommandTestSuite) execute(args ...string) (string, error) {
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// writeConfig drops a config file into a temp dir, pointing the device cache
// there too so tests never write into the working directory.
func (suite *CommandTestSuite) writeConfig(lines ...string) string {
	dir := suite.T().TempDir()

	content := "cache_file: " + filepath.Join(dir, "desk.cache.yaml") + "\n" + strings.Join(lines, "\n") + "\n"
	path := filepath.Join(dir, "config.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
	return path
}
