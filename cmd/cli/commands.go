package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/videold-go/internal/app"
	"github.com/yourusername/videold-go/internal/domain"
)

var infoCmd = &cobra.Command{
	Use:   "info [url]",
	Short: "Show a video's formats or a playlist's members",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ext, _ := cmd.Flags().GetString("ext")
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if err := s.orch().SetFilter(ext); err != nil {
				return err
			}
			res, err := fetch(ctx, s, args[0])
			if err != nil {
				return err
			}
			printResource(s, res)
			return nil
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get [url]",
	Short: "Download a single video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formatID, _ := cmd.Flags().GetString("format")
		ext, _ := cmd.Flags().GetString("ext")

		return withSession(cmd, func(ctx context.Context, s *session) error {
			if err := s.orch().SetFilter(ext); err != nil {
				return err
			}
			res, err := fetch(ctx, s, args[0])
			if err != nil {
				return err
			}
			if res.IsCollection() {
				return fmt.Errorf("%s is a playlist; use \"batch\" or \"members\"", res.Locator)
			}
			if formatID != "" {
				if err := s.orch().SelectFormat(formatID); err != nil {
					return err
				}
			}

			pick := sessionByKey(domain.SingleSessionKey)
			bar := track(s.orch(), "downloading", pick)
			transfer, err := s.orch().StartSingle(ctx)
			if err != nil {
				return err
			}
			return finish(s.orch(), transfer, bar, pick)
		})
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch [url]",
	Short: "Download selected playlist members as one ZIP archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if _, err := selectMembers(ctx, cmd, s, args[0]); err != nil {
				return err
			}

			bar := track(s.orch(), "archiving", batchSession)
			transfer, err := s.orch().StartBatch(ctx)
			if err != nil {
				return fmt.Errorf("%s: %w", domain.UserMessage(err), err)
			}
			return finish(s.orch(), transfer, bar, batchSession)
		})
	},
}

var membersCmd = &cobra.Command{
	Use:   "members [url]",
	Short: "Download selected playlist members as separate files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		return withSession(cmd, func(ctx context.Context, s *session) error {
			ids, err := selectMembers(ctx, cmd, s, args[0])
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				return fmt.Errorf("%s: %w", domain.UserMessage(domain.ErrSelectionEmpty), domain.ErrSelectionEmpty)
			}
			return downloadMembers(ctx, s, ids, concurrency)
		})
	},
}

var thumbnailCmd = &cobra.Command{
	Use:   "thumbnail [url] [file]",
	Short: "Save a video's thumbnail",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			res, err := fetch(ctx, s, args[0])
			if err != nil {
				return err
			}
			thumb := res.Thumbnail
			if thumb == "" && res.IsCollection() && len(res.Members) > 0 {
				thumb = res.Members[0].Thumbnail
			}
			if thumb == "" {
				return fmt.Errorf("%s has no thumbnail", res.Locator)
			}

			data, contentType, err := s.orch().Thumbnail(ctx, thumb)
			if err != nil {
				return err
			}
			if err := renameio.WriteFile(args[1], data, 0644); err != nil {
				return fmt.Errorf("failed to save thumbnail: %w", err)
			}
			fmt.Printf("Saved %s (%s, %d bytes)\n", args[1], contentType, len(data))
			return nil
		})
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with default values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			path = filepath.Join(home, ".videold", "config.yaml")
		}

		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := app.SaveConfig(domain.DefaultConfig(), path); err != nil {
			return err
		}
		fmt.Printf("Configuration written to %s\n", path)
		return nil
	},
}

func init() {
	infoCmd.Flags().StringP("ext", "e", domain.FilterAll, "Only list formats with this container (all, mp4, mkv, webm, mp3, m4a)")

	getCmd.Flags().StringP("format", "f", "", "Format id to download (default: best progressive format)")
	getCmd.Flags().StringP("ext", "e", domain.FilterAll, "Container filter used to pick the default format")

	for _, cmd := range []*cobra.Command{batchCmd, membersCmd} {
		cmd.Flags().StringSliceP("member", "m", nil, "Member id to select (repeatable)")
		cmd.Flags().BoolP("all", "a", false, "Select every member")
		cmd.Flags().StringToStringP("format", "f", nil, "Format choice per member, as id=format")
		cmd.Flags().StringP("ext", "e", domain.FilterAll, "Container filter used to pick default formats")
	}
	membersCmd.Flags().IntP("concurrency", "j", 3, "Maximum parallel downloads")

	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}

// selectMembers fetches a playlist and applies the selection flags, returning the selected ids
// in playlist order
func selectMembers(ctx context.Context, cmd *cobra.Command, s *session, url string) ([]string, error) {
	members, _ := cmd.Flags().GetStringSlice("member")
	all, _ := cmd.Flags().GetBool("all")
	formats, _ := cmd.Flags().GetStringToString("format")
	ext, _ := cmd.Flags().GetString("ext")

	if err := s.orch().SetFilter(ext); err != nil {
		return nil, err
	}
	res, err := fetch(ctx, s, url)
	if err != nil {
		return nil, err
	}
	if !res.IsCollection() {
		return nil, fmt.Errorf("%s is a single video; use \"get\"", res.Locator)
	}

	wanted := make(map[string]bool, len(members))
	for _, id := range members {
		wanted[id] = true
	}

	var ids []string
	for _, m := range res.Members {
		if !all && !wanted[m.ID] {
			continue
		}
		delete(wanted, m.ID)
		if _, err := s.orch().ToggleMember(m.ID); err != nil {
			return nil, err
		}
		ids = append(ids, m.ID)
	}
	for id := range wanted {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownMember, id)
	}

	for memberID, formatID := range formats {
		if err := s.orch().SetFormat(memberID, formatID); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// downloadMembers runs up to concurrency member transfers at once and reports every failure
func downloadMembers(ctx context.Context, s *session, ids []string, concurrency int) error {
	bar := newCountBar(len(ids), "members")

	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	var failed []string
	results := make(chan memberResult, len(ids))
	for _, id := range ids {
		id := id
		g.Go(func() error {
			transfer, err := s.orch().StartMember(ctx, id)
			if err == nil {
				err = transfer.Wait()
			}
			results <- memberResult{id: id, err: err}
			_ = bar.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	close(results)
	_ = bar.Finish()

	for r := range results {
		if r.err != nil {
			s.log.Error("Member download failed", zap.String("member_id", r.id), zap.Error(r.err))
			failed = append(failed, r.id)
		}
	}

	snap := s.orch().Snapshot()
	printSessions(snap, ids)

	if len(failed) > 0 {
		sort.Strings(failed)
		return fmt.Errorf("%d of %d downloads failed: %v", len(failed), len(ids), failed)
	}
	return nil
}

type memberResult struct {
	id  string
	err error
}

func printResource(s *session, res *domain.Resource) {
	fmt.Printf("Title: %s\n", res.Title)
	fmt.Printf("URL:   %s\n", res.Locator)
	filter := s.orch().Filter()
	restricted := s.orch().IsRestricted(res.Locator)
	if restricted {
		fmt.Println("Format choice is disabled for this platform; the best quality is downloaded.")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	if !res.IsCollection() {
		fmt.Printf("Formats (filter: %s):\n", filter)
		printFormats(w, res.Formats, filter)
		return
	}

	fmt.Printf("Playlist: %d videos\n", len(res.Members))
	fmt.Fprintln(w, "ID\tTITLE\tDEFAULT FORMAT")
	for _, m := range res.Members {
		def := "-"
		if f, ok := domain.DefaultFormat(m.Formats, filter); ok {
			def = f.FormatID + " (" + f.Label() + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, truncate(m.Title, 50), def)
	}
}

func printFormats(w *tabwriter.Writer, formats []domain.FormatVariant, filter string) {
	groups := domain.ClassifyProgressive(domain.FilterByExt(formats, filter))
	def, _ := groups.Default()

	fmt.Fprintln(w, "\tID\tFORMAT\tTRACKS")
	for _, f := range groups.Ordered() {
		mark := ""
		if f.FormatID == def.FormatID {
			mark = "*"
		}
		tracks := "audio+video"
		if !f.IsProgressive() {
			tracks = "single track"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", mark, f.FormatID, f.Label(), tracks)
	}
}

func printSessions(snap app.Snapshot, ids []string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tSTATE\tFILE")
	for _, id := range ids {
		session, ok := snap.Sessions[id]
		if !ok {
			continue
		}
		file := session.SavedPath
		if session.State == domain.StateFailed {
			file = session.ErrorMessage
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", id, session.State, file)
	}
}
