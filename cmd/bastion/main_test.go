package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

const testPolicy = `
whitelist:
  function: [strlen]
`

const validProgram = `
kind: file
stmts:
  - kind: expr_stmt
    expr:
      kind: func_call
      name: strlen
      args:
        - kind: arg
          expr: {kind: string, value: hello}
`

const rejectedProgram = `
kind: file
stmts:
  - kind: expr_stmt
    expr:
      kind: func_call
      name: exec
      location: {line: 4, column: 1}
      args:
        - kind: arg
          expr: {kind: string, value: ls}
`

// writeFile writes content to name under dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// testCommand returns a command whose output is captured in the buffer.
func testCommand() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	return cmd, &out
}

// resetGlobals restores the root flags to a config-less run.
func resetGlobals(t *testing.T) {
	t.Helper()
	cfgFile = ""
	verbose = false
	t.Setenv("BASTION_TELEMETRY_LOGGING_LEVEL", "error")
}
