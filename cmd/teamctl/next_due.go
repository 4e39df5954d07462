package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/yukikurage/teamflow/internal/models"
	"github.com/yukikurage/teamflow/internal/recurrence"
)

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

type nextDueOptions struct {
	frequency string
	interval  int
	days      string
	kind      string
	due       string
	completed string
	until     string
	count     int
}

func newNextDueCmd() *cobra.Command {
	var opts nextDueOptions

	cmd := &cobra.Command{
		Use:   "next-due",
		Short: "Preview the due dates a recurring task will produce",
		Example: `  teamctl next-due --frequency weekly --days mon,thu --due 2026-03-12 --count 4
  teamctl next-due --frequency monthly --due 2026-01-31 --count 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}

			var due *time.Time
			if opts.due != "" {
				t, err := parseWhen(opts.due)
				if err != nil {
					return fmt.Errorf("invalid --due: %w", err)
				}
				due = &t
			}

			completed := time.Now().UTC()
			if opts.completed != "" {
				completed, err = parseWhen(opts.completed)
				if err != nil {
					return fmt.Errorf("invalid --completed: %w", err)
				}
			}

			if opts.count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}

			previewNextDue(cmd.OutOrStdout(), cfg, due, completed, opts.count)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.frequency, "frequency", "", "daily, weekly, monthly or yearly")
	flags.IntVar(&opts.interval, "interval", 1, "repeat every N periods")
	flags.StringVar(&opts.days, "days", "", "weekdays for weekly rules, e.g. mon,wed,fri")
	flags.StringVar(&opts.kind, "type", string(models.RecurOnSchedule), "on_schedule or on_completion")
	flags.StringVar(&opts.due, "due", "", "current due date (YYYY-MM-DD or RFC3339)")
	flags.StringVar(&opts.completed, "completed", "", "completion time (default now)")
	flags.StringVar(&opts.until, "until", "", "end date of the recurrence")
	flags.IntVar(&opts.count, "count", 1, "number of occurrences to preview")
	_ = cmd.MarkFlagRequired("frequency")

	return cmd
}

func (o nextDueOptions) config() (models.RecurrenceConfig, error) {
	cfg := models.RecurrenceConfig{
		Frequency: models.RecurrenceFrequency(o.frequency),
		Interval:  o.interval,
		Type:      models.RecurrenceType(o.kind),
	}

	switch cfg.Frequency {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly, models.FrequencyYearly:
	default:
		return cfg, fmt.Errorf("unknown frequency %q", o.frequency)
	}
	switch cfg.Type {
	case models.RecurOnSchedule, models.RecurOnCompletion:
	default:
		return cfg, fmt.Errorf("unknown type %q", o.kind)
	}
	if o.interval < 1 {
		return cfg, fmt.Errorf("--interval must be at least 1")
	}

	if o.days != "" {
		for _, name := range strings.Split(o.days, ",") {
			day, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
			if !ok {
				return cfg, fmt.Errorf("unknown weekday %q", name)
			}
			cfg.DaysOfWeek = append(cfg.DaysOfWeek, day)
		}
	}

	if o.until != "" {
		end, err := parseWhen(o.until)
		if err != nil {
			return cfg, fmt.Errorf("invalid --until: %w", err)
		}
		cfg.EndCondition = &models.EndCondition{Type: models.EndOnDate, Date: &end}
	}
	return cfg, nil
}

// previewNextDue walks count completions forward. Each occurrence is assumed
// to be completed at its own due date.
func previewNextDue(w io.Writer, cfg models.RecurrenceConfig, due *time.Time, completed time.Time, count int) {
	task := &models.Task{Recurrence: &cfg, DueDate: due}
	for i := 0; i < count; i++ {
		if !recurrence.ShouldRecur(task, completed) {
			fmt.Fprintln(w, "recurrence ended")
			return
		}

		next := recurrence.NextDueDate(cfg, task.DueDate, completed)
		if cfg.Type == models.RecurOnCompletion {
			fmt.Fprintln(w, next.Format(time.RFC3339))
		} else {
			fmt.Fprintln(w, next.Format("2006-01-02 Mon"))
		}

		task.DueDate = &next
		completed = next
	}
}

func parseWhen(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
