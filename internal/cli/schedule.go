package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// NewScheduleCmd создаёт группу команд для расписаний пересчёта.
//
// Расписание периодически создаёт scoring job по сохранённым записям:
// всем или только по --students.
func NewScheduleCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage rescoring schedules",
	}

	cmd.AddCommand(
		newScheduleListCmd(clientFn, outputFn),
		newScheduleCreateCmd(clientFn, outputFn),
		newScheduleShowCmd(clientFn, outputFn),
		newScheduleUpdateCmd(clientFn, outputFn),
		newScheduleDeleteCmd(clientFn, outputFn),
		newScheduleToggleCmd(clientFn, outputFn, true),
		newScheduleToggleCmd(clientFn, outputFn, false),
		newScheduleJobsCmd(clientFn, outputFn),
	)

	return cmd
}

var scheduleHeaders = []string{"ID", "NAME", "TIMING", "TIMEZONE", "STUDENTS", "ENABLED", "NEXT_DUE", "LAST_JOB"}

func scheduleRow(s *ScheduleResponse) []string {
	return []string{
		s.ID,
		s.Name,
		formatTiming(s),
		s.Timezone,
		formatScope(s.StudentIDs),
		strconv.FormatBool(s.Enabled),
		s.NextDueAt,
		s.LastJobID,
	}
}

// scheduleFlags — общие флаги create и update.
type scheduleFlags struct {
	name     string
	cronExpr string
	interval time.Duration
	timezone string
	students []string
}

func (f *scheduleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Schedule name")
	cmd.Flags().StringVar(&f.cronExpr, "cron", "", "Cron expression, 5 fields (e.g. '0 6 * * 1')")
	cmd.Flags().DurationVar(&f.interval, "interval", 0, "Interval between runs (e.g. 24h, 90m)")
	cmd.Flags().StringVar(&f.timezone, "timezone", "", "IANA timezone for cron (default: UTC)")
	cmd.Flags().StringSliceVar(&f.students, "students", nil, "Student IDs to rescore (empty: all stored records)")
}

// intervalSec переводит --interval в целые секунды.
func (f *scheduleFlags) intervalSec() (int, error) {
	if f.interval < 0 || f.interval%time.Second != 0 {
		return 0, fmt.Errorf("--interval must be a positive whole number of seconds, got %s", f.interval)
	}
	return int(f.interval / time.Second), nil
}

func newScheduleListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			schedules, err := clientFn().ListSchedules()
			if err != nil {
				return err
			}

			rows := make([][]string, len(schedules))
			for i := range schedules {
				rows[i] = scheduleRow(&schedules[i])
			}
			outputFn().Print(scheduleHeaders, rows, schedules)
			return nil
		},
	}
}

func newScheduleCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var flags scheduleFlags
	var disabled bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a rescoring schedule",
		Example: "  riskwatch schedule create --name weekly --cron '0 6 * * 1' --timezone Europe/Moscow\n" +
			"  riskwatch schedule create --name nightly-risk --interval 24h --students 12,15,40",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			if (flags.cronExpr == "") == (flags.interval == 0) {
				return fmt.Errorf("exactly one of --cron or --interval is required")
			}
			interval, err := flags.intervalSec()
			if err != nil {
				return err
			}
			ids, err := parseIDs(flags.students)
			if err != nil {
				return err
			}

			schedule, err := clientFn().CreateSchedule(CreateScheduleRequest{
				Name:        flags.name,
				CronExpr:    flags.cronExpr,
				IntervalSec: interval,
				Timezone:    flags.timezone,
				StudentIDs:  ids,
				Enabled:     !disabled,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Schedule created: %s", schedule.ID))
			out.Print(scheduleHeaders, [][]string{scheduleRow(schedule)}, schedule)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the schedule disabled")
	cmd.MarkFlagRequired("name")

	return cmd
}

func newScheduleShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show schedule details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schedule, err := clientFn().GetSchedule(args[0])
			if err != nil {
				return err
			}
			outputFn().Print(scheduleHeaders, [][]string{scheduleRow(schedule)}, schedule)
			return nil
		},
	}
}

// newScheduleUpdateCmd отправляет только изменённые флаги.
func newScheduleUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var flags scheduleFlags

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			changed := cmd.Flags().Changed

			var req UpdateScheduleRequest
			if changed("name") {
				req.Name = &flags.name
			}
			if changed("cron") {
				req.CronExpr = &flags.cronExpr
			}
			if changed("interval") {
				sec, err := flags.intervalSec()
				if err != nil {
					return err
				}
				req.IntervalSec = &sec
			}
			if changed("timezone") {
				req.Timezone = &flags.timezone
			}
			if changed("students") {
				ids, err := parseIDs(flags.students)
				if err != nil {
					return err
				}
				req.StudentIDs = &ids
			}

			schedule, err := clientFn().UpdateSchedule(args[0], req)
			if err != nil {
				return err
			}

			out.Success("Schedule updated")
			out.Print(scheduleHeaders, [][]string{scheduleRow(schedule)}, schedule)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newScheduleDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().DeleteSchedule(args[0]); err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Schedule deleted: %s", args[0]))
			return nil
		},
	}
}

// newScheduleToggleCmd — enable или disable.
func newScheduleToggleCmd(clientFn func() *Client, outputFn func() *Output, enable bool) *cobra.Command {
	verb, short := "disable", "Disable a schedule"
	if enable {
		verb, short = "enable", "Enable a schedule"
	}

	return &cobra.Command{
		Use:   verb + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()

			var err error
			if enable {
				_, err = client.EnableSchedule(args[0])
			} else {
				_, err = client.DisableSchedule(args[0])
			}
			if err != nil {
				return err
			}

			outputFn().Success(fmt.Sprintf("Schedule %sd: %s", verb, args[0]))
			return nil
		},
	}
}

func newScheduleJobsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "jobs ID",
		Short: "List scoring jobs created by a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := clientFn().ListJobs(ListJobsOpts{ScheduleID: args[0], Limit: limit})
			if err != nil {
				return err
			}

			rows := make([][]string, len(jobs))
			for i := range jobs {
				rows[i] = jobRow(&jobs[i])
			}
			outputFn().Print(jobHeaders, rows, jobs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs")
	return cmd
}

// formatTiming: "cron 0 6 * * 1" или "every 24h0m0s".
func formatTiming(s *ScheduleResponse) string {
	if s.CronExpr != "" {
		return "cron " + s.CronExpr
	}
	if s.IntervalSec > 0 {
		return "every " + (time.Duration(s.IntervalSec) * time.Second).String()
	}
	return ""
}

func formatScope(ids []int64) string {
	if len(ids) == 0 {
		return "all"
	}
	return strconv.Itoa(len(ids))
}
