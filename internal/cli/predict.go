package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/Riskwatch/internal/domain"
)

// NewPredictCmd создаёт команду прогноза по CSV.
func NewPredictCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var local localOptions
	var persist bool

	cmd := &cobra.Command{
		Use:   "predict FILE.csv",
		Short: "Predict dropout risk for students in a CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			rows, err := ReadCSVFile(args[0])
			if err != nil {
				return err
			}

			var preds []domain.Prediction
			if local.offline {
				if persist {
					return fmt.Errorf("--persist requires the API, not --offline")
				}
				records, err := toRecords(rows)
				if err != nil {
					return err
				}
				p, err := local.open(out.errW)
				if err != nil {
					return err
				}
				preds, err = p.BatchPredict(cmd.Context(), records)
				if err != nil {
					return err
				}
			} else {
				resp, err := clientFn().Predict(PredictRequest{Records: rows, Persist: persist})
				if err != nil {
					return err
				}
				preds = resp.Predictions
			}

			out.Print(predictionHeaders, predictionRows(preds), preds)
			out.ExplanationWarnings(preds)
			return nil
		},
	}

	local.register(cmd)
	cmd.Flags().BoolVar(&persist, "persist", false, "Store predictions in the API database")

	return cmd
}

// NewSummaryCmd создаёт команду сводки рисков.
func NewSummaryCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show risk distribution of the latest predictions",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			summary, err := clientFn().Summary()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(domain.RiskLevels))
			for _, level := range domain.RiskLevels {
				rows = append(rows, []string{string(level), strconv.Itoa(summary.Counts[string(level)])})
			}
			rows = append(rows, []string{"Total", strconv.Itoa(summary.Total)})

			out.Print([]string{"RISK", "STUDENTS"}, rows, summary)
			return nil
		},
	}
}

var predictionHeaders = []string{"STUDENT_ID", "RISK", "CONFIDENCE", "LEARNING_STYLE", "TOP_FACTOR"}

func predictionRows(preds []domain.Prediction) [][]string {
	rows := make([][]string, len(preds))
	for i, p := range preds {
		top := ""
		if len(p.ShapExplanations) > 0 {
			top = p.ShapExplanations[0].Feature
		}
		rows[i] = []string{
			strconv.FormatInt(p.StudentID, 10),
			string(p.DropoutRisk),
			strconv.FormatFloat(p.RiskConfidence, 'f', 2, 64) + "%",
			p.LearningStyle,
			top,
		}
	}
	return rows
}

func toRecords(rows []map[string]any) ([]domain.StudentRecord, error) {
	records := make([]domain.StudentRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := domain.NewStudentRecord(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
