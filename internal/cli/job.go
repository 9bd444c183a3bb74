package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewJobCmd создаёт группу команд для scoring jobs.
func NewJobCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage batch scoring jobs",
	}

	cmd.AddCommand(
		newJobSubmitCmd(clientFn, outputFn),
		newJobListCmd(clientFn, outputFn),
		newJobShowCmd(clientFn, outputFn),
		newJobPredictionsCmd(clientFn, outputFn),
	)

	return cmd
}

func newJobSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string
	var students []string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a scoring job",
		Long: `Submit a scoring job.

With --file the CSV rows are scored inline. With --students the stored
records of those students are rescored. Without either flag every stored
record is rescored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := SubmitJobRequest{Source: "cli"}
			if file != "" {
				rows, err := ReadCSVFile(file)
				if err != nil {
					return err
				}
				req.Records = rows
			}
			if len(students) > 0 {
				if file != "" {
					return fmt.Errorf("--file and --students are mutually exclusive")
				}
				ids, err := parseIDs(students)
				if err != nil {
					return err
				}
				req.StudentIDs = ids
			}

			job, err := client.SubmitJob(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Job submitted: %s", job.ID))
			out.Print(jobHeaders, [][]string{jobRow(job)}, job)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "CSV with records to score inline")
	cmd.Flags().StringSliceVar(&students, "students", nil, "Stored student IDs to rescore (comma-separated)")

	return cmd
}

func newJobListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status string
	var scheduleID string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			jobs, err := client.ListJobs(ListJobsOpts{
				Status:     strings.ToUpper(status),
				ScheduleID: scheduleID,
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			rows := make([][]string, len(jobs))
			for i := range jobs {
				rows[i] = jobRow(&jobs[i])
			}

			out.Print(jobHeaders, rows, jobs)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, RUNNING, SUCCEEDED, FAILED)")
	cmd.Flags().StringVar(&scheduleID, "schedule-id", "", "Filter by schedule ID")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newJobShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show job details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			job, err := client.GetJob(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "STATUS", "SOURCE", "MODEL", "SCORED", "RISKS", "STARTED", "FINISHED", "ERROR"},
				[][]string{{
					job.ID, job.Status, job.Source, job.ModelVersion,
					fmt.Sprintf("%d/%d", job.Scored, job.Total),
					formatRiskCounts(job.RiskCounts),
					job.StartedAt, job.FinishedAt, job.Error,
				}},
				job,
			)
			return nil
		},
	}
}

func newJobPredictionsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "predictions ID",
		Short: "Show predictions produced by a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			preds, err := client.JobPredictions(args[0])
			if err != nil {
				return err
			}

			out.Print(predictionHeaders, predictionRows(preds), preds)
			out.ExplanationWarnings(preds)
			return nil
		},
	}
}

var jobHeaders = []string{"ID", "STATUS", "SOURCE", "SCORED", "CREATED"}

func jobRow(j *JobResponse) []string {
	return []string{j.ID, j.Status, j.Source, strconv.Itoa(j.Scored), j.CreatedAt}
}

// formatRiskCounts: "High Risk=2, Low Risk=5" в стабильном порядке.
func formatRiskCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, ", ")
}
