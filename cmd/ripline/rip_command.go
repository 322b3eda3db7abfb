package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"ripline/internal/api"
	"ripline/internal/pipeline"
)

// ripChooser is swapped out in tests.
var ripChooser = newChooser

func newRipCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "rip",
		Short:       "Rip, encode and upload a disc",
		Annotations: daemonCommand,
	}
	cmd.AddCommand(newRipKindCommand(ctx, pipeline.MediaMovie))
	cmd.AddCommand(newRipKindCommand(ctx, pipeline.MediaTVShow))
	return cmd
}

func newRipKindCommand(ctx *commandContext, kind pipeline.MediaKind) *cobra.Command {
	req := ripRequest{kind: kind}
	use, short := "movie", "Rip a movie"
	if kind == pipeline.MediaTVShow {
		use, short = "tv", "Rip TV episodes"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				params, err := ripPlanner{lookup: client, choose: ripChooser()}.plan(cmd.Context(), req)
				if err != nil {
					return err
				}
				return runRip(cmd, client, params)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&req.device, "device", "d", "/dev/sr0", "Optical drive device path")
	flags.Int64Var(&req.tmdbID, "tmdb-id", 0, "TMDB id")
	flags.StringVar(&req.title, "title", "", "Title used for the library entry (defaults to the TMDB name)")
	flags.IntSliceVarP(&req.titles, "titles", "t", nil, "Disc title ids to rip (defaults to runtime matches)")
	flags.StringVarP(&req.profile, "profile", "p", "", "Encoding profile id")
	flags.IntVar(&req.qualityProfile, "quality-profile", 0, "Radarr/Sonarr quality profile id")
	flags.StringVar(&req.rootFolder, "root-folder", "", "Radarr/Sonarr root folder path")
	flags.StringSliceVar(&req.langs, "langs", nil, "Accepted audio languages for title matching")
	_ = cmd.MarkFlagRequired("tmdb-id")
	if kind == pipeline.MediaTVShow {
		flags.Int64Var(&req.tvdbID, "tvdb-id", 0, "TVDB id (defaults to the TMDB external id)")
		flags.StringVar(&req.seriesType, "series-type", "standard", "Sonarr series type")
		flags.IntVar(&req.season, "season", 1, "Season number")
		flags.IntSliceVar(&req.episodes, "episodes", nil, "Episode numbers, one per title")
		_ = cmd.MarkFlagRequired("episodes")
	}
	return cmd
}

// runRip streams the job and sends a cancel request on SIGINT or SIGTERM.
func runRip(cmd *cobra.Command, client *api.Client, params pipeline.Params) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	renderer := newProgressRenderer(cmd.OutOrStdout())
	finished := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			renderer.cancelling()
		case <-finished:
		}
	}()

	err := client.Rip(ctx, params, renderer.handle)
	close(finished)
	wg.Wait()
	renderer.finishLine()
	switch {
	case err == nil:
		fmt.Fprintln(cmd.OutOrStdout(), "Job finished")
		return nil
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(cmd.OutOrStdout(), "Job cancelled")
		return nil
	default:
		return err
	}
}
