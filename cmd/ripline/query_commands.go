package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ripline/internal/api"
	"ripline/internal/disc"
	"ripline/internal/pipeline"
)

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:         "devices",
		Short:       "List optical drives with a disc loaded",
		Annotations: daemonCommand,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				devices, err := client.Devices(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, devices)
				}
				rows := make([][]string, 0, len(devices))
				for _, d := range devices {
					rows = append(rows, []string{d.Path, d.Name, d.Description})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Device", "Disc", "Drive"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newTitlesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "titles",
		Short:       "Show the disc titles that match a TMDB runtime",
		Annotations: daemonCommand,
	}
	cmd.AddCommand(newMovieTitlesCommand(ctx))
	cmd.AddCommand(newTVTitlesCommand(ctx))
	return cmd
}

type titleFlags struct {
	device string
	tmdbID int64
	langs  []string
	asJSON bool
}

func (f *titleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.device, "device", "d", "/dev/sr0", "Optical drive device path")
	cmd.Flags().Int64Var(&f.tmdbID, "tmdb-id", 0, "TMDB id")
	cmd.Flags().StringSliceVar(&f.langs, "langs", nil, "Accepted audio languages (ISO 639-2)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print JSON")
	_ = cmd.MarkFlagRequired("tmdb-id")
}

func newMovieTitlesCommand(ctx *commandContext) *cobra.Command {
	var flags titleFlags
	cmd := &cobra.Command{
		Use:   "movie",
		Short: "Titles matching a movie runtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				found, err := client.MovieTitles(cmd.Context(), flags.device, flags.tmdbID, flags.langs)
				if err != nil {
					return err
				}
				return printTitles(cmd, found, flags.asJSON)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newTVTitlesCommand(ctx *commandContext) *cobra.Command {
	var flags titleFlags
	var season int
	var episodes []int
	cmd := &cobra.Command{
		Use:   "tv",
		Short: "Titles matching episode runtimes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				found, err := client.TVTitles(cmd.Context(), flags.device, flags.tmdbID, season, episodes, flags.langs)
				if err != nil {
					return err
				}
				return printTitles(cmd, found, flags.asJSON)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&season, "season", 1, "Season number")
	cmd.Flags().IntSliceVar(&episodes, "episodes", nil, "Episode numbers")
	_ = cmd.MarkFlagRequired("episodes")
	return cmd
}

func printTitles(cmd *cobra.Command, found *disc.Disc, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, found)
	}
	out := cmd.OutOrStdout()
	if found == nil || len(found.Titles) == 0 {
		fmt.Fprintln(out, "No titles match")
		return nil
	}
	rows := make([][]string, 0, len(found.Titles))
	for _, t := range found.Titles {
		langs := make([]string, 0, len(t.Audio))
		for _, a := range t.Audio {
			if a.LangCode != "" {
				langs = append(langs, a.LangCode)
			}
		}
		rows = append(rows, []string{
			strconv.Itoa(t.ID),
			t.Name,
			formatRuntime(t.Duration),
			strconv.Itoa(t.ChapterCount),
			t.DiskSize,
			strings.Join(langs, ","),
		})
	}
	if found.Name != "" {
		fmt.Fprintf(out, "Disc: %s\n", found.Name)
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Name", "Runtime", "Chapters", "Size", "Audio"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))
	return nil
}

func formatRuntime(seconds int) string {
	d := time.Duration(seconds) * time.Second
	return fmt.Sprintf("%d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, seconds%60)
}

func newProfilesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:         "profiles",
		Short:       "List encoding profiles",
		Annotations: daemonCommand,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				profiles, err := client.Profiles(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, profiles)
				}
				rows := make([][]string, 0, len(profiles))
				for _, p := range profiles {
					rows = append(rows, []string{p.ID, p.Label, p.PresetName})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Label", "Preset"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func mediaTypeFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "media-type", "m", string(pipeline.MediaMovie), "movie or tv_show")
}

func newQualityProfilesCommand(ctx *commandContext) *cobra.Command {
	var mediaType string
	var asJSON bool
	cmd := &cobra.Command{
		Use:         "quality-profiles",
		Short:       "List Radarr or Sonarr quality profiles",
		Annotations: daemonCommand,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := pipeline.ParseMediaKind(mediaType)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *api.Client) error {
				profiles, err := client.QualityProfiles(cmd.Context(), kind)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, profiles)
				}
				rows := make([][]string, 0, len(profiles))
				for _, p := range profiles {
					rows = append(rows, []string{strconv.Itoa(p.ID), p.Name})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name"}, rows, []columnAlignment{alignRight}))
				return nil
			})
		},
	}
	mediaTypeFlag(cmd, &mediaType)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newRootFoldersCommand(ctx *commandContext) *cobra.Command {
	var mediaType string
	var asJSON bool
	cmd := &cobra.Command{
		Use:         "root-folders",
		Short:       "List Radarr or Sonarr root folders",
		Annotations: daemonCommand,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := pipeline.ParseMediaKind(mediaType)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *api.Client) error {
				folders, err := client.RootFolders(cmd.Context(), kind)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, folders)
				}
				rows := make([][]string, 0, len(folders))
				for _, f := range folders {
					rows = append(rows, []string{strconv.Itoa(f.ID), f.Path, formatBytes(f.FreeSpace)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Path", "Free"}, rows, []columnAlignment{alignRight, alignLeft, alignRight}))
				return nil
			})
		},
	}
	mediaTypeFlag(cmd, &mediaType)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:         "history",
		Short:       "Show recent jobs",
		Annotations: daemonCommand,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				records, err := client.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, records)
				}
				rows := make([][]string, 0, len(records))
				for _, r := range records {
					status := r.Status
					if r.Stage != "" && r.ErrorKind != "" {
						status = fmt.Sprintf("%s (%s: %s)", r.Status, r.Stage, r.ErrorKind)
					}
					rows = append(rows, []string{
						r.CreatedAt.Local().Format("2006-01-02 15:04"),
						r.Title,
						r.MediaKind,
						r.Profile,
						status,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Started", "Title", "Type", "Profile", "Status"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:         "search",
		Short:       "Search TMDB through the daemon",
		Annotations: daemonCommand,
	}
	cmd.PersistentFlags().StringVar(&language, "lang", "", "TMDB language (defaults to tmdb.language)")

	movie := &cobra.Command{
		Use:   "movie <query>",
		Short: "Search movies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				results, err := client.SearchMovie(cmd.Context(), strings.Join(args, " "), language)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(results.Results))
				for _, r := range results.Results {
					rows = append(rows, []string{strconv.FormatInt(r.ID, 10), r.Title, year(r.ReleaseDate)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"TMDB ID", "Title", "Year"}, rows, []columnAlignment{alignRight}))
				return nil
			})
		},
	}
	tv := &cobra.Command{
		Use:   "tv <query>",
		Short: "Search TV shows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				results, err := client.SearchTV(cmd.Context(), strings.Join(args, " "), language)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(results.Results))
				for _, r := range results.Results {
					rows = append(rows, []string{strconv.FormatInt(r.ID, 10), r.Name, year(r.FirstAirDate)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"TMDB ID", "Name", "Year"}, rows, []columnAlignment{alignRight}))
				return nil
			})
		},
	}
	cmd.AddCommand(movie, tv)
	return cmd
}

func year(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return ""
}
