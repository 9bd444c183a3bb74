package predict

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/shaiso/Riskwatch/internal/advice"
	"github.com/shaiso/Riskwatch/internal/model"
)

// DefaultModelPath — путь к модели, если MODEL_PATH не задан.
const DefaultModelPath = "models/dropout_model.json"

// AdvisorRules — значение AdvisorURL для локального RuleAdvisor.
const AdvisorRules = "rules"

// Options описывает, откуда собрать Pipeline.
type Options struct {
	ModelPath   string
	CatalogPath string // пусто — встроенный каталог

	// AdvisorURL — адрес Ollama, AdvisorRules или пусто (без генератора).
	AdvisorURL   string
	AdvisorModel string

	// MaxNewLabels — предел новых меток на признак (0 — по умолчанию).
	MaxNewLabels int

	Logger *slog.Logger
}

// OptionsFromEnv читает MODEL_PATH, FEATURE_CATALOG, ADVISOR_URL, ADVISOR_MODEL
// и MAX_NEW_LABELS.
func OptionsFromEnv() Options {
	opts := Options{
		ModelPath:    os.Getenv("MODEL_PATH"),
		CatalogPath:  os.Getenv("FEATURE_CATALOG"),
		AdvisorURL:   os.Getenv("ADVISOR_URL"),
		AdvisorModel: os.Getenv("ADVISOR_MODEL"),
	}
	if opts.ModelPath == "" {
		opts.ModelPath = DefaultModelPath
	}
	if n, err := strconv.Atoi(os.Getenv("MAX_NEW_LABELS")); err == nil && n > 0 {
		opts.MaxNewLabels = n
	}
	return opts
}

// Open загружает модель и каталог и собирает Pipeline.
func Open(opts Options) (*Pipeline, error) {
	path := opts.ModelPath
	if path == "" {
		path = DefaultModelPath
	}
	bundle, err := model.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}

	catalog := DefaultCatalog()
	if opts.CatalogPath != "" {
		catalog, err = LoadCatalog(opts.CatalogPath)
		if err != nil {
			return nil, err
		}
	}

	return New(Config{
		Bundle:  bundle,
		Catalog: catalog,
		Advisor: newAdvisor(opts),
		Logger:  opts.Logger,

		MaxNewLabels: opts.MaxNewLabels,
	})
}

func newAdvisor(opts Options) advice.Advisor {
	switch opts.AdvisorURL {
	case "":
		return nil
	case AdvisorRules:
		return advice.RuleAdvisor{}
	default:
		return advice.NewOllamaAdvisor(advice.OllamaConfig{
			URL:   opts.AdvisorURL,
			Model: opts.AdvisorModel,
		})
	}
}
