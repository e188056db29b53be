/*
Package cli provides command-line interface utilities for Bastion.

The cli package includes output formatters, progress reporters, exit code
mapping and signal helpers used by the bastion command.

Output Formatting:

Results can be printed as text, JSON, YAML, or CSV. CSV output requires the
result to implement Tabular:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, results); err != nil {
		return err
	}

Progress Reporting:

	progress := cli.NewProgressReporter(os.Stderr, "Checking")
	progress.Start(int64(len(files)))
	for i, file := range files {
		check(file)
		progress.Update(int64(i + 1))
	}
	progress.Finish()

Exit Codes:

ExitCode maps a RejectedError to ExitRejected and every other error to
ExitFailure, so scripts can tell policy violations from operational errors.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

	reload, stopReload := cli.ReloadSignals()
	defer stopReload()
*/
package cli
