package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shaiso/Riskwatch/internal/domain"
	"github.com/shaiso/Riskwatch/internal/predict"
	"github.com/shaiso/Riskwatch/internal/repo"
)

// ErrorCode — код ошибки API.
type ErrorCode string

const (
	ErrCodeBadRequest      ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeConflict        ErrorCode = "CONFLICT"
	ErrCodeInvalidState    ErrorCode = "INVALID_STATE"
	ErrCodeInternalError   ErrorCode = "INTERNAL_ERROR"
	ErrCodeFeatureMismatch ErrorCode = "FEATURE_MISMATCH"
	ErrCodeUnavailable     ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeTooLarge        ErrorCode = "PAYLOAD_TOO_LARGE"
)

// ErrorResponse — структура ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// DataResponse — структура успешного ответа.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — структура ответа со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total,omitempty"`
}

// JSON пишет тело ответа. Ошибка кодирования только логируется:
// заголовок к этому моменту уже отправлен.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().Debug("encode response", "error", err)
	}
}

func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, DataResponse{Data: data})
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// Error отправляет конверт {"error": {...}}.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// invalidBody отвечает на ошибку чтения тела: 413 при превышении
// предела, иначе 400.
func invalidBody(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		Error(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return
	}
	BadRequest(w, "invalid request body")
}

func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func Unavailable(w http.ResponseWriter, message string) {
	Error(w, http.StatusServiceUnavailable, ErrCodeUnavailable, message)
}

// InternalError логирует err и скрывает детали от клиента.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

// errorMapping — известные ошибки и их HTTP представление.
// Сообщение клиенту берётся из err.Error().
type errorMapping struct {
	target error
	status int
	code   ErrorCode
}

var repoErrors = []errorMapping{
	{repo.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{repo.ErrInvalidState, http.StatusUnprocessableEntity, ErrCodeInvalidState},
	{repo.ErrAlreadyExists, http.StatusConflict, ErrCodeConflict},
}

var predictErrors = []errorMapping{
	{predict.ErrFeatureMismatch, http.StatusBadRequest, ErrCodeFeatureMismatch},
	{predict.ErrNonNumericFeature, http.StatusBadRequest, ErrCodeBadRequest},
	{predict.ErrLabelLimit, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrMissingStudentID, http.StatusBadRequest, ErrCodeBadRequest},
}

// writeMapped отвечает по первой подходящей записи или 500.
func writeMapped(w http.ResponseWriter, logger *slog.Logger, err error, mappings []errorMapping, override func(errorMapping) string) {
	for _, m := range mappings {
		if !errors.Is(err, m.target) {
			continue
		}
		msg := err.Error()
		if override != nil {
			if s := override(m); s != "" {
				msg = s
			}
		}
		Error(w, m.status, m.code, msg)
		return
	}
	InternalError(w, logger, err)
}

// HandleRepoError отвечает ошибкой репозитория и возвращает true, если err != nil.
// Для ErrNotFound клиент получает notFoundMsg.
func HandleRepoError(w http.ResponseWriter, logger *slog.Logger, err error, notFoundMsg string) bool {
	if err == nil {
		return false
	}
	writeMapped(w, logger, err, repoErrors, func(m errorMapping) string {
		if m.target == repo.ErrNotFound {
			return notFoundMsg
		}
		return ""
	})
	return true
}

// HandlePredictError: ошибки входных данных — 400, остальное — 500.
func HandlePredictError(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	if err == nil {
		return false
	}
	writeMapped(w, logger, err, predictErrors, nil)
	return true
}
