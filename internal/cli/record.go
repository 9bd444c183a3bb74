package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

// NewRecordCmd создаёт группу команд для записей студентов.
func NewRecordCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Manage stored student records",
	}

	cmd.AddCommand(
		newRecordImportCmd(clientFn, outputFn),
		newRecordShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newRecordImportCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE.csv",
		Short: "Store student records from a CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			rows, err := ReadCSVFile(args[0])
			if err != nil {
				return err
			}
			records, err := toRecords(rows)
			if err != nil {
				return err
			}

			for _, rec := range records {
				if _, err := client.PutRecord(rec.StudentID, rec.Fields); err != nil {
					return fmt.Errorf("student %d: %w", rec.StudentID, err)
				}
			}

			out.Success(fmt.Sprintf("Imported %d records", len(records)))
			return nil
		},
	}
}

func newRecordShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var withPrediction bool

	cmd := &cobra.Command{
		Use:   "show STUDENT_ID",
		Short: "Show a stored student record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid student id %q", args[0])
			}

			if withPrediction {
				pred, err := client.StudentPrediction(id)
				if err != nil {
					return err
				}
				out.Prediction(pred)
				return nil
			}

			rec, err := client.GetRecord(id)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(rec.Fields))
			for _, name := range sortedKeys(rec.Fields) {
				v, _ := json.Marshal(rec.Fields[name])
				rows = append(rows, []string{name, string(v)})
			}

			out.Print([]string{"FIELD", "VALUE"}, rows, rec)
			return nil
		},
	}

	cmd.Flags().BoolVar(&withPrediction, "prediction", false, "Show the latest prediction instead of the record")

	return cmd
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
