// Riskwatch CLI — инструмент командной строки для прогнозов риска
// отчисления, scoring jobs, записей студентов и расписаний пересчёта.
//
// Использование:
//
//	riskwatch [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	model     Обучение и информация о модели
//	predict   Прогноз по CSV (через API или --offline)
//	summary   Распределение студентов по уровням риска
//	job       Асинхронные scoring jobs
//	record    Записи студентов
//	schedule  Расписания пересчёта
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Riskwatch/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "riskwatch",
		Short:         "Riskwatch CLI — student dropout risk prediction",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := "http://localhost:8080"
	if v := os.Getenv("RISKWATCH_API_URL"); v != "" {
		defaultURL = v
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewModelCmd(clientFn, outputFn),
		cli.NewPredictCmd(clientFn, outputFn),
		cli.NewSummaryCmd(clientFn, outputFn),
		cli.NewJobCmd(clientFn, outputFn),
		cli.NewRecordCmd(clientFn, outputFn),
		cli.NewScheduleCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
