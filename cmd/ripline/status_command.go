package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"ripline/internal/api"
	"ripline/internal/deps"
	"ripline/internal/preflight"
)

const (
	ansiGreen = "\033[32m"
	ansiRed   = "\033[31m"
	ansiReset = "\033[0m"
)

// statusProbe is swapped out in tests.
var statusProbe = preflight.ProbeDisc

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check tools, integrations, the daemon and the drive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			color := shouldColorize(out)
			runCtx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			fmt.Fprintln(out, "Daemon")
			address, _ := ctx.serverAddress()
			fmt.Fprintln(out, renderTable([]string{"Check", "OK", "Detail"}, [][]string{daemonRow(runCtx, address, color)}, nil))

			fmt.Fprintln(out, "Dependencies")
			fmt.Fprintln(out, renderTable([]string{"Tool", "OK", "Detail"}, dependencyRows(preflight.CheckSystemDeps(cfg), color), nil))

			fmt.Fprintln(out, "Checks")
			results := preflight.RunAll(runCtx, cfg)
			fmt.Fprintln(out, renderTable([]string{"Check", "OK", "Detail"}, resultRows(results, color), nil))
			if failed := preflight.Failed(results); len(failed) > 0 {
				fmt.Fprintf(out, "%d of %d checks failed\n", len(failed), len(results))
			}

			probe := statusProbe(runCtx, cfg.MakeMKV.OpticalDrive)
			fmt.Fprintf(out, "Drive %s: %s\n", probe.Device, probe.DiscDetail())
			return nil
		},
	}
}

func daemonRow(ctx context.Context, address string, color bool) []string {
	client, err := api.NewClient(address)
	if err != nil {
		return []string{"riplined", mark(false, color), err.Error()}
	}
	if err := client.Healthz(ctx); err != nil {
		return []string{"riplined", mark(false, color), "not reachable at " + client.BaseURL()}
	}
	return []string{"riplined", mark(true, color), "listening on " + client.BaseURL()}
}

func dependencyRows(statuses []deps.Status, color bool) [][]string {
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		detail := s.Path
		if !s.Available {
			detail = s.Detail
			if s.Optional {
				detail += " (optional)"
			}
		}
		rows = append(rows, []string{s.Name, mark(s.Available, color), detail})
	}
	return rows
}

func resultRows(results []preflight.Result, color bool) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{r.Name, mark(r.Passed, color), r.Detail})
	}
	return rows
}

func mark(ok bool, color bool) string {
	label := yesNo(ok)
	if !color {
		return label
	}
	if ok {
		return ansiGreen + label + ansiReset
	}
	return ansiRed + label + ansiReset
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
