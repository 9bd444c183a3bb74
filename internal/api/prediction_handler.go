package api

import (
	"net/http"

	"github.com/shaiso/Riskwatch/internal/domain"
	"github.com/shaiso/Riskwatch/internal/repo"
)

// ListPredictions возвращает последние прогнозы студентов.
// GET /api/v1/predictions?risk=...&limit=...&offset=...
func (h *Handler) ListPredictions(w http.ResponseWriter, r *http.Request) {
	if h.predictions == nil {
		Unavailable(w, "prediction storage is not configured")
		return
	}

	filter := repo.PredictionFilter{}
	filter.Limit, filter.Offset = pagination(r)

	if riskStr := r.URL.Query().Get("risk"); riskStr != "" {
		risk, ok := domain.ParseRiskLevel(riskStr)
		if !ok {
			BadRequest(w, "invalid risk level")
			return
		}
		filter.Risk = risk
	}

	preds, err := h.predictions.List(r.Context(), filter)
	if HandleRepoError(w, h.log(r), err, "") {
		return
	}
	if preds == nil {
		preds = []domain.Prediction{}
	}

	List(w, preds, len(preds))
}

// PredictionSummary возвращает распределение последних прогнозов по рискам.
// GET /api/v1/predictions/summary
func (h *Handler) PredictionSummary(w http.ResponseWriter, r *http.Request) {
	if h.predictions == nil {
		Unavailable(w, "prediction storage is not configured")
		return
	}

	summary, err := h.predictions.RiskDistribution(r.Context())
	if HandleRepoError(w, h.log(r), err, "") {
		return
	}

	// Все уровни присутствуют, даже с нулём
	counts := make(map[domain.RiskLevel]int, len(domain.RiskLevels))
	for _, level := range domain.RiskLevels {
		counts[level] = summary.Counts[level]
	}
	summary.Counts = counts

	Success(w, summary)
}
