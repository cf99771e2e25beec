package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"newscast/internal/production"
	"newscast/internal/services"
	"newscast/internal/wizard"
)

func newProductionCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "production",
		Aliases: []string{"prod"},
		Short:   "Create, run and recover productions",
	}
	cmd.AddCommand(newProductionNewCommand(ctx))
	cmd.AddCommand(newProductionRunCommand(ctx))
	cmd.AddCommand(newProductionStatusCommand(ctx))
	cmd.AddCommand(newProductionListCommand(ctx))
	cmd.AddCommand(newProductionAbortCommand(ctx))
	cmd.AddCommand(newProductionRetryCommand(ctx))
	cmd.AddCommand(newProductionRegenerateCommand(ctx))
	cmd.AddCommand(newProductionTimelineCommand(ctx))
	cmd.AddCommand(newProductionDeleteCommand(ctx))
	return cmd
}

func newProductionNewCommand(ctx *commandContext) *cobra.Command {
	var (
		id       string
		title    string
		date     string
		criteria string
		hint     string
		language string
		maxItems int
		selected []string
		ticker   []string
	)

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a production from a brief",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(id) == "" {
				id = uuid.NewString()
			}
			if strings.TrimSpace(date) == "" {
				date = time.Now().Format(time.DateOnly)
			}
			if maxItems == 0 {
				maxItems = cfg.Pipeline.MaxNewsItems
			}
			brief := production.Brief{
				Title:         strings.TrimSpace(title),
				Date:          date,
				Criteria:      criteria,
				NarrativeHint: hint,
				MaxItems:      maxItems,
				SelectedIDs:   selected,
				Language:      language,
				Channel: production.Channel{
					Name:      cfg.Channel.Name,
					Tagline:   cfg.Channel.Tagline,
					LiveLabel: cfg.Channel.LiveLabel,
					Ticker:    ticker,
					Anchors:   cfg.Channel.Anchors,
					Voices:    cfg.Channel.Voices,
				},
			}
			if err := production.Validate(brief); err != nil {
				return fmt.Errorf("invalid brief: %w", err)
			}

			mgr, err := ctx.checkpoints(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := mgr.Load(cmd.Context(), id); err == nil {
				return fmt.Errorf("production %s already exists", id)
			} else if !errors.Is(err, services.ErrNotFound) {
				return err
			}
			prod := wizard.NewProduction(id, brief, nil)
			if err := mgr.Save(cmd.Context(), prod.Snapshot()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created production %s (%s, %s)\n", id, brief.Title, brief.Date)
			fmt.Fprintf(cmd.OutOrStdout(), "Run it with: newscast production run %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Production id (defaults to a random UUID)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Broadcast title")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Broadcast date (YYYY-MM-DD, defaults to today)")
	cmd.Flags().StringVar(&criteria, "criteria", "", "News search criteria")
	cmd.Flags().StringVar(&hint, "hint", "", "Narrative hint for the script generator")
	cmd.Flags().StringVar(&language, "language", "", "Broadcast language")
	cmd.Flags().IntVar(&maxItems, "max-items", 0, "Maximum number of stories (defaults to pipeline.max_news_items)")
	cmd.Flags().StringSliceVar(&selected, "select", nil, "Explicit story ids to cover")
	cmd.Flags().StringSliceVar(&ticker, "ticker", nil, "Ticker headlines")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newProductionRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run <id>",
		Short: "Run a production until it finishes, fails or pauses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			lock, err := ctx.lockProduction(id)
			if err != nil {
				return err
			}
			defer lock.Release()

			prod, err := ctx.loadProduction(cmd.Context(), id)
			if err != nil {
				return err
			}
			runner, err := ctx.runner(cmd.Context(), true)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if prod.Aborted() {
				if err := runner.Resume(cmd.Context(), prod); err != nil {
					return err
				}
				fmt.Fprintln(out, "Resuming aborted production")
			}

			runErr := runner.Run(cmd.Context(), prod)
			fmt.Fprintln(out, renderSteps(prod))
			if runErr != nil {
				return runErr
			}
			if step := prod.CurrentStep(); step != production.StepDone {
				fmt.Fprintf(out, "Paused at %s; run again to resume\n", wizard.StepLabel(step))
				return nil
			}
			fmt.Fprintln(out, "Production complete")
			return nil
		},
	}
}

func newProductionStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Show step and segment progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prod, err := ctx.loadProduction(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, statusView(prod))
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader(prod.Brief.Title+" ("+prod.ID+")", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintf(out, "Current step: %s\n", wizard.StepLabel(prod.CurrentStep()))
			if prod.Aborted() {
				fmt.Fprintln(out, renderStatusLine("Abort", statusWarn, "abort requested", colorize))
			}
			fmt.Fprintln(out, renderSteps(prod))
			if segments := renderSegments(prod); segments != "" {
				fmt.Fprintln(out, segments)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newProductionListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored productions",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.checkpoints(cmd.Context())
			if err != nil {
				return err
			}
			summaries, err := mgr.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No productions")
				return nil
			}
			rows := make([][]string, 0, len(summaries))
			for _, s := range summaries {
				step := wizard.StepLabel(s.CurrentStep)
				if s.Aborted {
					step += " (aborted)"
				}
				rows = append(rows, []string{
					s.ProductionID,
					s.Title,
					s.Date,
					step,
					fmt.Sprintf("%d/%d", s.Ready, s.Segments),
					s.UpdatedAt.Local().Format(time.DateTime),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Date", "Step", "Ready", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newProductionAbortCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "abort <id>",
		Short: "Stop a running production from issuing new generation calls",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.checkpoints(cmd.Context())
			if err != nil {
				return err
			}
			if err := mgr.RequestAbort(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Abort requested for %s; finished segments are kept\n", args[0])
			return nil
		},
	}
}

func newProductionRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id> <step>",
		Short: "Reset a failed step so the next run repeats it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			step, err := production.ParseStep(args[1])
			if err != nil {
				return err
			}
			lock, err := ctx.lockProduction(args[0])
			if err != nil {
				return err
			}
			defer lock.Release()
			prod, err := ctx.loadProduction(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			runner, err := ctx.runner(cmd.Context(), false)
			if err != nil {
				return err
			}
			progress, err := runner.Retry(cmd.Context(), prod, step)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s reset (retry %d)\n", wizard.StepLabel(step), progress.RetryCount)
			return nil
		},
	}
}

func newProductionRegenerateCommand(ctx *commandContext) *cobra.Command {
	var segment int
	var kindFlag string
	cmd := &cobra.Command{
		Use:   "regenerate <id>",
		Short: "Discard one segment resource and regenerate it on the next run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := production.ParseResourceKind(kindFlag)
			if err != nil {
				return err
			}
			lock, err := ctx.lockProduction(args[0])
			if err != nil {
				return err
			}
			defer lock.Release()
			prod, err := ctx.loadProduction(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			runner, err := ctx.runner(cmd.Context(), false)
			if err != nil {
				return err
			}
			status, err := runner.Regenerate(cmd.Context(), prod, segment, kind)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Segment %d %s is %s; run the production to regenerate it\n", segment, kind, status.State(kind))
			return nil
		},
	}
	cmd.Flags().IntVarP(&segment, "segment", "s", -1, "Segment index")
	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "", "Resource kind (audio or video)")
	_ = cmd.MarkFlagRequired("segment")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func newProductionTimelineCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "timeline <id>",
		Short: "Print the timeline derived from the current segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prod, err := ctx.loadProduction(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			runner, err := ctx.runner(cmd.Context(), false)
			if err != nil {
				return err
			}
			spec, err := runner.Timeline(prod)
			if err != nil {
				return err
			}
			return writeJSON(cmd, spec)
		},
	}
}

func newProductionDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored production",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lock, err := ctx.lockProduction(args[0])
			if err != nil {
				return err
			}
			defer lock.Release()
			mgr, err := ctx.checkpoints(cmd.Context())
			if err != nil {
				return err
			}
			if err := mgr.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func renderSteps(prod *wizard.Production) string {
	state := prod.State()
	rows := make([][]string, 0, len(production.Steps()))
	for _, step := range production.Steps() {
		if step == production.StepDone {
			continue
		}
		progress := state.Progress(step)
		rows = append(rows, []string{
			wizard.StepLabel(step),
			string(progress.Status),
			formatTime(progress.StartedAt),
			formatTime(progress.CompletedAt),
			strconv.Itoa(progress.RetryCount),
			progress.Error,
		})
	}
	return renderTable(
		[]string{"Step", "Status", "Started", "Completed", "Retries", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func renderSegments(prod *wizard.Production) string {
	segments := prod.Segments()
	if len(segments) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(segments))
	for _, segment := range segments {
		status := prod.Status(segment.Index)
		rows = append(rows, []string{
			strconv.Itoa(segment.Index),
			segment.Speaker,
			resourceCell(status, production.ResourceAudio),
			resourceCell(status, production.ResourceVideo),
			firstNonEmpty(status.AudioError, status.VideoError),
		})
	}
	return renderTable(
		[]string{"#", "Speaker", "Audio", "Video", "Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}

func resourceCell(status production.SegmentStatus, kind production.ResourceKind) string {
	cell := string(status.State(kind))
	if attempts := status.Attempts(kind); attempts > 0 {
		cell += fmt.Sprintf(" (%d)", attempts)
	}
	return cell
}

type productionStatus struct {
	ID          string                                          `json:"id"`
	Title       string                                          `json:"title"`
	Date        string                                          `json:"date"`
	Aborted     bool                                            `json:"aborted"`
	CurrentStep production.Step                                 `json:"current_step"`
	Steps       map[production.Step]*production.SubStepProgress `json:"steps"`
	Segments    []segmentView                                   `json:"segments,omitempty"`
}

type segmentView struct {
	production.Segment
	Status production.SegmentStatus `json:"status"`
}

func statusView(prod *wizard.Production) productionStatus {
	state := prod.State()
	view := productionStatus{
		ID:          prod.ID,
		Title:       prod.Brief.Title,
		Date:        prod.Brief.Date,
		Aborted:     prod.Aborted(),
		CurrentStep: state.CurrentStep,
		Steps:       state.Steps,
	}
	for _, segment := range prod.Segments() {
		view.Segments = append(view.Segments, segmentView{Segment: segment, Status: prod.Status(segment.Index)})
	}
	return view
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
