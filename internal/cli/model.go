package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Riskwatch/internal/model"
	"github.com/shaiso/Riskwatch/internal/predict"
	"github.com/shaiso/Riskwatch/internal/telemetry"
)

// NewModelCmd создаёт группу команд для работы с моделью.
func NewModelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Train and inspect the dropout risk model",
	}

	cmd.AddCommand(
		newModelTrainCmd(outputFn),
		newModelInfoCmd(clientFn, outputFn),
	)

	return cmd
}

func newModelTrainCmd(outputFn func() *Output) *cobra.Command {
	var dataPath string
	var outPath string
	var version string
	var label string
	var featureList []string
	fit := model.DefaultFitOptions()

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model bundle from a labelled CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			rows, err := ReadCSVFile(dataPath)
			if err != nil {
				return err
			}

			bundle, err := predict.Train(rows, predict.TrainOptions{
				Version:    version,
				Features:   featureList,
				LabelField: label,
				Fit:        fit,
			})
			if err != nil {
				return err
			}

			if err := bundle.Save(outPath); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Model %s saved to %s", bundle.Version, outPath))
			out.Print(
				[]string{"VERSION", "SAMPLES", "FEATURES", "CATEGORICAL", "TRAIN_ACCURACY"},
				[][]string{{
					bundle.Version,
					formatMetric(bundle.Metrics["train_samples"], 0),
					strconv.Itoa(len(bundle.FeatureNames)),
					strings.Join(bundle.CategoricalFeatures(), ","),
					formatMetric(bundle.Metrics["train_accuracy"], 4),
				}},
				bundle,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Training CSV with a risk label column (required)")
	cmd.Flags().StringVar(&outPath, "out", predict.DefaultModelPath, "Where to write the model bundle")
	cmd.Flags().StringVar(&version, "version", "", "Model version (default: training timestamp)")
	cmd.Flags().StringVar(&label, "label", predict.DefaultLabelField, "Label column")
	cmd.Flags().StringSliceVar(&featureList, "features", nil, "Feature columns in order (default: all columns)")
	cmd.Flags().IntVar(&fit.Epochs, "epochs", fit.Epochs, "Gradient descent epochs")
	cmd.Flags().Float64Var(&fit.LearningRate, "lr", fit.LearningRate, "Learning rate")
	cmd.Flags().Float64Var(&fit.L2, "l2", fit.L2, "L2 regularization")
	cmd.MarkFlagRequired("data")

	return cmd
}

func newModelInfoCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var local localOptions

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the loaded model",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			var info ModelInfoResponse
			if local.offline {
				p, err := local.open(out.errW)
				if err != nil {
					return err
				}
				mi := p.Info()
				info = ModelInfoResponse{
					Version:      mi.Version,
					CreatedAt:    mi.CreatedAt.Format(time.RFC3339),
					FeatureNames: mi.FeatureNames,
					Categorical:  mi.Categorical,
					Extended:     mi.Extended,
					Explainer:    mi.Explainer,
					Advisor:      mi.Advisor,
					Metrics:      mi.Metrics,
				}
				for _, c := range mi.Classes {
					info.Classes = append(info.Classes, string(c))
				}
			} else {
				resp, err := clientFn().ModelInfo()
				if err != nil {
					return err
				}
				info = *resp
			}

			categorical := make([]string, 0, len(info.Categorical))
			for name := range info.Categorical {
				categorical = append(categorical, name)
			}
			sort.Strings(categorical)

			out.Print(
				[]string{"VERSION", "FEATURES", "CATEGORICAL", "CLASSES", "EXPLAINER", "ADVISOR"},
				[][]string{{
					info.Version,
					strconv.Itoa(len(info.FeatureNames)),
					strings.Join(categorical, ","),
					strings.Join(info.Classes, ","),
					strconv.FormatBool(info.Explainer),
					strconv.FormatBool(info.Advisor),
				}},
				info,
			)
			return nil
		},
	}

	local.register(cmd)
	return cmd
}

// localOptions — флаги локального (без API) инференса.
type localOptions struct {
	offline      bool
	modelPath    string
	catalogPath  string
	advisorURL   string
	advisorModel string
}

func (o *localOptions) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.offline, "offline", false, "Use a local model bundle instead of the API")
	cmd.Flags().StringVar(&o.modelPath, "model", predict.DefaultModelPath, "Model bundle for --offline")
	cmd.Flags().StringVar(&o.catalogPath, "catalog", "", "Feature catalog YAML for --offline (default: embedded)")
	cmd.Flags().StringVar(&o.advisorURL, "advisor-url", "", "Ollama URL or 'rules' for --offline recommendations")
	cmd.Flags().StringVar(&o.advisorModel, "advisor-model", "", "Ollama model for --offline")
}

// open собирает пайплайн; предупреждения пайплайна пишутся в logW.
func (o *localOptions) open(logW io.Writer) (*predict.Pipeline, error) {
	logger := slog.New(slog.NewTextHandler(logW, &slog.HandlerOptions{Level: telemetry.LogLevel()}))
	return predict.Open(predict.Options{
		ModelPath:    o.modelPath,
		CatalogPath:  o.catalogPath,
		AdvisorURL:   o.advisorURL,
		AdvisorModel: o.advisorModel,
		Logger:       logger,
	})
}

func formatMetric(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
