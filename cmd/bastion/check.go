package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/bastion/pkg/cli"
	"mercator-hq/bastion/pkg/sandbox"
	sbErrors "mercator-hq/bastion/pkg/sandbox/errors"
	"mercator-hq/bastion/pkg/telemetry/logging"
)

var checkFlags struct {
	policy   string
	format   string
	output   bool
	progress bool
}

var checkCmd = &cobra.Command{
	Use:   "check FILE|DIR...",
	Short: "Validate programs against the sandbox policy",
	Long: `Validate serialized syntax trees against the configured policy and print
the rewritten program for each one that passes.

Programs are YAML or JSON documents produced by an external parser. Directories
are searched recursively for .yaml, .yml and .json files.

Examples:
  # Check one program with a policy file
  bastion check --policy policy.yaml job.yaml

  # Check a directory and print a CSV report
  bastion check --config bastion.yaml --format csv jobs/

  # Print the rewritten code of passing programs
  bastion check --policy policy.yaml --output job.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkFlags.policy, "policy", "p", "", "policy file (overrides the configured source)")
	checkCmd.Flags().StringVarP(&checkFlags.format, "format", "f", "text", "output format: text, json, yaml, csv")
	checkCmd.Flags().BoolVarP(&checkFlags.output, "output", "o", false, "include the rewritten code of passing programs")
	checkCmd.Flags().BoolVar(&checkFlags.progress, "progress", false, "show progress while checking")
}

// checkResult is the outcome of checking one program.
type checkResult struct {
	File     string `json:"file" yaml:"file"`
	Status   string `json:"status" yaml:"status"`
	Code     int    `json:"code,omitempty" yaml:"code,omitempty"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Line     int    `json:"line,omitempty" yaml:"line,omitempty"`
	Message  string `json:"message,omitempty" yaml:"message,omitempty"`
	Output   string `json:"output,omitempty" yaml:"output,omitempty"`
}

const (
	statusValid    = "valid"
	statusCached   = "cached"
	statusRejected = "rejected"
	statusError    = "error"
)

// checkReport collects the results of one check run.
type checkReport struct {
	Revision string        `json:"revision" yaml:"revision"`
	Identity string        `json:"identity,omitempty" yaml:"identity,omitempty"`
	Results  []checkResult `json:"results" yaml:"results"`
}

func (r *checkReport) count(status string) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// String renders the report for text output.
func (r *checkReport) String() string {
	var sb strings.Builder
	for _, res := range r.Results {
		switch res.Status {
		case statusValid, statusCached:
			fmt.Fprintf(&sb, "✓ %s (%s)\n", res.File, res.Status)
			if res.Output != "" {
				for _, line := range strings.Split(strings.TrimRight(res.Output, "\n"), "\n") {
					fmt.Fprintf(&sb, "    %s\n", line)
				}
			}
		case statusRejected:
			fmt.Fprintf(&sb, "✗ %s: [%d] %s\n", res.File, res.Code, res.Message)
			if res.Line > 0 {
				fmt.Fprintf(&sb, "    line %d\n", res.Line)
			}
		default:
			fmt.Fprintf(&sb, "! %s: %s\n", res.File, res.Message)
		}
	}
	passed := r.count(statusValid) + r.count(statusCached)
	fmt.Fprintf(&sb, "\n%d checked, %d passed, %d rejected, %d errors",
		len(r.Results), passed, r.count(statusRejected), r.count(statusError))
	return sb.String()
}

// Header implements cli.Tabular.
func (r *checkReport) Header() []string {
	return []string{"file", "status", "code", "category", "name", "line", "message"}
}

// Rows implements cli.Tabular.
func (r *checkReport) Rows() [][]string {
	rows := make([][]string, 0, len(r.Results))
	for _, res := range r.Results {
		code, line := "", ""
		if res.Code != 0 {
			code = fmt.Sprint(res.Code)
		}
		if res.Line != 0 {
			line = fmt.Sprint(res.Line)
		}
		rows = append(rows, []string{res.File, res.Status, code, res.Category, res.Name, line, res.Message})
	}
	return rows
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if checkFlags.policy != "" {
		cfg.Sandbox.Policy.Mode = "file"
		cfg.Sandbox.Policy.FilePath = checkFlags.policy
	}

	files, err := programFiles(args)
	if err != nil {
		return cli.NewCommandError("check", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return cli.NewCommandError("check", err)
	}
	defer a.Close()

	store, revision, err := a.loadPolicy(ctx)
	if err != nil {
		return cli.NewCommandError("check", err)
	}
	sb, err := a.newSandbox(store)
	if err != nil {
		return cli.NewCommandError("check", err)
	}
	defer sb.Close()

	ctx = logging.WithRevision(logging.WithSandboxID(ctx, sb.ID()), revision)

	var progress cli.ProgressReporter
	if checkFlags.progress {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr(), "Checking")
		progress.Start(int64(len(files)))
	}

	report := &checkReport{Revision: revision}
	for i, file := range files {
		report.Results = append(report.Results, checkFile(ctx, sb, file, checkFlags.output))
		if progress != nil {
			progress.Update(int64(i + 1))
		}
	}
	if progress != nil {
		progress.Finish()
	}
	report.Identity = sb.Identity()

	formatter := cli.NewFormatter(cli.OutputFormat(checkFlags.format))
	if err := formatter.FormatTo(cmd.OutOrStdout(), report); err != nil {
		return cli.NewCommandError("check", err)
	}

	if failed := len(report.Results) - report.count(statusValid) - report.count(statusCached); failed > 0 {
		return &cli.RejectedError{Rejected: failed, Total: len(report.Results)}
	}
	return nil
}

// checkFile reads and prepares one program.
func checkFile(ctx context.Context, sb *sandbox.Sandbox, file string, withOutput bool) checkResult {
	result := checkResult{File: file}

	tree, src, err := readProgram(file)
	if err != nil {
		result.Status = statusError
		result.Message = err.Error()
		return result
	}

	prepared, err := sb.Prepare(logging.WithSource(ctx, file), tree, src)
	if err != nil {
		var serr *sbErrors.Error
		if !errors.As(err, &serr) {
			result.Status = statusError
			result.Message = err.Error()
			return result
		}
		result.Status = statusRejected
		result.Code = int(serr.Code)
		result.Category = serr.Category
		result.Name = serr.Name
		result.Message = serr.Message
		if serr.Location != nil {
			result.Line = serr.Location.Line
		}
		return result
	}

	result.Status = statusValid
	if prepared.Cached {
		result.Status = statusCached
	}
	if withOutput {
		result.Output = prepared.Code
	}
	return result
}
