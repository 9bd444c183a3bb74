package api

import (
	"net/http"
)

// GetModel возвращает описание загруженной модели.
// GET /api/v1/model
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	Success(w, h.predictor.Info())
}

// Predict считает прогнозы синхронно.
// POST /api/v1/predict
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	req, err := decodePredictRequest(r.Body)
	if err != nil {
		invalidBody(w, err)
		return
	}

	records, err := toRecords(req.Records)
	if HandlePredictError(w, h.log(r), err) {
		return
	}

	if req.Persist && h.predictions == nil {
		Unavailable(w, "prediction storage is not configured")
		return
	}

	preds, err := h.predictor.BatchPredict(r.Context(), records)
	if HandlePredictError(w, h.log(r), err) {
		return
	}

	if req.Persist && len(preds) > 0 {
		if err := h.predictions.SaveBatch(r.Context(), preds); err != nil {
			InternalError(w, h.log(r), err)
			return
		}
	}

	Success(w, PredictResponse{
		ModelVersion: h.predictor.Info().Version,
		Count:        len(preds),
		Predictions:  preds,
	})
}
