package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/bastion/pkg/cli"
	"mercator-hq/bastion/pkg/sandbox/policy"
)

var policyFlags struct {
	format string
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect sandbox policies",
	Long: `Inspect sandbox policy documents.

Subcommands:
  lint  - Check policy documents for unknown categories and bad definitions
  show  - Print the names held by the configured policy

Examples:
  # Lint policy files
  bastion policy lint policy.yaml overrides.yaml

  # Show the configured policy as JSON
  bastion policy show --config bastion.yaml --format json`,
}

var policyLintCmd = &cobra.Command{
	Use:   "lint FILE...",
	Short: "Check policy documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPolicyLint,
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configured policy",
	Args:  cobra.NoArgs,
	RunE:  runPolicyShow,
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyLintCmd)
	policyCmd.AddCommand(policyShowCmd)

	policyCmd.PersistentFlags().StringVarP(&policyFlags.format, "format", "f", "text", "output format: text, json, yaml")
}

// lintResult is the outcome of linting one policy document.
type lintResult struct {
	File   string   `json:"file" yaml:"file"`
	Valid  bool     `json:"valid" yaml:"valid"`
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

type lintReport []lintResult

// String renders the report for text output.
func (r lintReport) String() string {
	var sb strings.Builder
	invalid := 0
	for _, res := range r {
		if res.Valid {
			fmt.Fprintf(&sb, "✓ %s\n", res.File)
			continue
		}
		invalid++
		fmt.Fprintf(&sb, "✗ %s\n", res.File)
		for _, e := range res.Errors {
			fmt.Fprintf(&sb, "    %s\n", e)
		}
	}
	fmt.Fprintf(&sb, "\n%d files, %d invalid", len(r), invalid)
	return sb.String()
}

// Header implements cli.Tabular.
func (r lintReport) Header() []string { return []string{"file", "valid", "errors"} }

// Rows implements cli.Tabular.
func (r lintReport) Rows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, res := range r {
		rows = append(rows, []string{res.File, fmt.Sprint(res.Valid), strings.Join(res.Errors, "; ")})
	}
	return rows
}

func runPolicyLint(cmd *cobra.Command, args []string) error {
	report := make(lintReport, 0, len(args))
	invalid := 0
	for _, file := range args {
		res := lintPolicyFile(file)
		if !res.Valid {
			invalid++
		}
		report = append(report, res)
	}

	if err := cli.NewFormatter(cli.OutputFormat(policyFlags.format)).FormatTo(cmd.OutOrStdout(), report); err != nil {
		return cli.NewCommandError("policy lint", err)
	}
	if invalid > 0 {
		return &cli.RejectedError{Rejected: invalid, Total: len(report)}
	}
	return nil
}

func lintPolicyFile(path string) lintResult {
	res := lintResult{File: path}
	data, err := os.ReadFile(path)
	if err != nil {
		res.Errors = []string{err.Error()}
		return res
	}
	doc, err := policy.ParseDocument(data)
	if err != nil {
		res.Errors = []string{err.Error()}
		return res
	}
	if err := doc.Validate(); err != nil {
		res.Errors = splitJoined(err)
		return res
	}
	res.Valid = true
	return res
}

// splitJoined breaks an error built with errors.Join back into its lines.
func splitJoined(err error) []string {
	var out []string
	for _, line := range strings.Split(err.Error(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// policyView is the printable form of a policy snapshot.
type policyView struct {
	Revision    string              `json:"revision" yaml:"revision"`
	Whitelist   map[string][]string `json:"whitelist,omitempty" yaml:"whitelist,omitempty"`
	Blacklist   map[string][]string `json:"blacklist,omitempty" yaml:"blacklist,omitempty"`
	Definitions map[string][]string `json:"definitions,omitempty" yaml:"definitions,omitempty"`
	Validators  []string            `json:"validators,omitempty" yaml:"validators,omitempty"`
}

func newPolicyView(revision string, snap policy.Snapshot) *policyView {
	v := &policyView{
		Revision:    revision,
		Whitelist:   byName(snap.Whitelist),
		Blacklist:   byName(snap.Blacklist),
		Definitions: byName(snap.Definitions),
	}
	for _, c := range snap.Validators {
		v.Validators = append(v.Validators, string(c))
	}
	return v
}

func byName(m map[policy.Category][]string) map[string][]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string][]string, len(m))
	for c, names := range m {
		out[string(c)] = names
	}
	return out
}

// String renders the view for text output.
func (v *policyView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Revision: %s\n", v.Revision)
	section := func(title string, m map[string][]string) {
		if len(m) == 0 {
			return
		}
		fmt.Fprintf(&sb, "%s:\n", title)
		for _, c := range policy.Categories() {
			if names, ok := m[string(c)]; ok {
				fmt.Fprintf(&sb, "  %s: %s\n", c, strings.Join(names, ", "))
			}
		}
	}
	section("Whitelist", v.Whitelist)
	section("Blacklist", v.Blacklist)
	section("Definitions", v.Definitions)
	if len(v.Validators) > 0 {
		fmt.Fprintf(&sb, "Validators: %s\n", strings.Join(v.Validators, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func runPolicyShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg.Cache.Enabled = false
	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return cli.NewCommandError("policy show", err)
	}
	defer a.Close()

	store, revision, err := a.loadPolicy(ctx)
	if err != nil {
		return cli.NewCommandError("policy show", err)
	}

	view := newPolicyView(revision, store.Snapshot())
	if err := cli.NewFormatter(cli.OutputFormat(policyFlags.format)).FormatTo(cmd.OutOrStdout(), view); err != nil {
		return cli.NewCommandError("policy show", err)
	}
	return nil
}
