package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/nijaru/yt-transcript/db"
	"github.com/nijaru/yt-transcript/handlers"
	"github.com/nijaru/yt-transcript/transcript"
	"github.com/nijaru/yt-transcript/validation"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// errLookupFailed is returned after a failed result has already been printed.
var errLookupFailed = errors.New("lookup failed")

func newTranscriptCommand(ctx *commandContext) *cobra.Command {
	var langFlag string
	var textOnly bool

	cmd := &cobra.Command{
		Use:   "transcript <video-id|url>",
		Short: "Fetch the best transcript for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoID, err := validation.ExtractVideoID(args[0])
			if err != nil {
				return err
			}
			log, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			svc, err := ctx.service(log)
			if err != nil {
				return err
			}

			languages := svc.DefaultLanguages()
			if cmd.Flags().Changed("lang") {
				languages = handlers.ParseLanguages(langFlag)
			}
			result := svc.SelectAndFetch(cmd.Context(), videoID, languages)

			ctx.record(cmd.Context(), log, db.Lookup{
				VideoID:          videoID,
				Operation:        db.OperationTranscript,
				Languages:        languages,
				SelectedLanguage: result.Language,
				IsGenerated:      result.IsGenerated,
				Success:          result.Success,
				ErrorKind:        string(result.ErrorKind),
				SegmentCount:     len(result.Segments),
			})

			if textOnly && result.Success {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), result.FullText)
				return err
			}
			if err := writeJSON(cmd, result); err != nil {
				return err
			}
			if !result.Success {
				return errLookupFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&langFlag, "lang", "l", "", "Comma-separated language priority (default from config)")
	cmd.Flags().BoolVar(&textOnly, "text", false, "Print only the transcript text")
	return cmd
}

func newLanguagesCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "languages <video-id|url>",
		Short: "List caption tracks available for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoID, err := validation.ExtractVideoID(args[0])
			if err != nil {
				return err
			}
			log, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			svc, err := ctx.service(log)
			if err != nil {
				return err
			}

			list := svc.ListLanguages(cmd.Context(), videoID)

			ctx.record(cmd.Context(), log, db.Lookup{
				VideoID:   videoID,
				Operation: db.OperationLanguages,
				Success:   list.Success,
				ErrorKind: string(list.ErrorKind),
			})

			if jsonOutput || !isTerminal(cmd.OutOrStdout()) || !list.Success {
				if err := writeJSON(cmd, list); err != nil {
					return err
				}
				if !list.Success {
					return errLookupFailed
				}
				return nil
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderLanguages(list.Languages))
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent lookups from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			journal, err := ctx.openJournal()
			if err != nil {
				return err
			}
			if journal == nil {
				return errors.New("lookup journal is disabled; set DB_PATH or database.path")
			}
			defer journal.Close()

			lookups, err := journal.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if jsonOutput || !isTerminal(cmd.OutOrStdout()) {
				if lookups == nil {
					lookups = []db.Lookup{}
				}
				return writeJSON(cmd, lookups)
			}
			if len(lookups) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No lookups recorded")
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderHistory(lookups))
			return err
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of lookups to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// record journals a CLI lookup when a journal is configured. Failures are
// logged only.
func (c *commandContext) record(ctx context.Context, log *logrus.Logger, l db.Lookup) {
	journal, err := c.openJournal()
	if err != nil {
		log.WithError(err).Warn("Lookup journal unavailable")
		return
	}
	if journal == nil {
		return
	}
	defer journal.Close()

	if err := journal.Record(ctx, l); err != nil {
		log.WithError(err).WithField("video_id", l.VideoID).Warn("Failed to record lookup")
	}
}

func renderLanguages(languages []transcript.Language) string {
	rows := make([][]string, 0, len(languages))
	for _, l := range languages {
		rows = append(rows, []string{l.Code, l.Name, yesNo(l.IsGenerated)})
	}
	return renderTable([]string{"Code", "Name", "Generated"}, rows, nil)
}

func renderHistory(lookups []db.Lookup) string {
	rows := make([][]string, 0, len(lookups))
	for _, l := range lookups {
		outcome := "ok"
		if !l.Success {
			outcome = l.ErrorKind
		}
		rows = append(rows, []string{
			l.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			l.Operation,
			l.VideoID,
			l.SelectedLanguage,
			outcome,
			strconv.Itoa(l.SegmentCount),
		})
	}
	return renderTable(
		[]string{"Time", "Operation", "Video", "Language", "Outcome", "Segments"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
