package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shaiso/Riskwatch/internal/domain"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// ModelInfoResponse — описание модели из API.
type ModelInfoResponse struct {
	Version      string              `json:"version"`
	CreatedAt    string              `json:"created_at"`
	FeatureNames []string            `json:"feature_names"`
	Categorical  map[string][]string `json:"categorical"`
	Extended     map[string][]string `json:"extended_labels,omitempty"`
	Classes      []string            `json:"classes"`
	Explainer    bool                `json:"explainer"`
	Advisor      bool                `json:"advisor"`
	Metrics      map[string]float64  `json:"metrics,omitempty"`
}

// PredictResponse — результат синхронного прогноза.
type PredictResponse struct {
	ModelVersion string              `json:"model_version"`
	Count        int                 `json:"count"`
	Predictions  []domain.Prediction `json:"predictions"`
}

// JobResponse — job из API.
type JobResponse struct {
	ID             string         `json:"id"`
	Status         string         `json:"status"`
	Source         string         `json:"source"`
	ScheduleID     string         `json:"schedule_id,omitempty"`
	StudentIDs     []int64        `json:"student_ids,omitempty"`
	InlineRecords  int            `json:"inline_records,omitempty"`
	ModelVersion   string         `json:"model_version,omitempty"`
	Total          int            `json:"total"`
	Scored         int            `json:"scored"`
	RiskCounts     map[string]int `json:"risk_counts,omitempty"`
	StartedAt      string         `json:"started_at,omitempty"`
	FinishedAt     string         `json:"finished_at,omitempty"`
	Error          string         `json:"error,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	CreatedAt      string         `json:"created_at"`
}

// RecordResponse — запись студента из API.
type RecordResponse struct {
	StudentID int64          `json:"student_id"`
	Fields    map[string]any `json:"fields"`
	UpdatedAt string         `json:"updated_at"`
}

// ScheduleResponse — schedule из API.
type ScheduleResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	CronExpr    string  `json:"cron_expr,omitempty"`
	IntervalSec int     `json:"interval_sec,omitempty"`
	Timezone    string  `json:"timezone"`
	Enabled     bool    `json:"enabled"`
	StudentIDs  []int64 `json:"student_ids,omitempty"`
	NextDueAt   string  `json:"next_due_at,omitempty"`
	LastRunAt   string  `json:"last_run_at,omitempty"`
	LastJobID   string  `json:"last_job_id,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// SummaryResponse — распределение рисков.
type SummaryResponse struct {
	Total  int            `json:"total"`
	Counts map[string]int `json:"counts"`
}

// --- Request types ---

// PredictRequest — синхронный прогноз.
type PredictRequest struct {
	Records []map[string]any `json:"records"`
	Persist bool             `json:"persist,omitempty"`
}

// SubmitJobRequest — создание job.
type SubmitJobRequest struct {
	Records    []map[string]any `json:"records,omitempty"`
	StudentIDs []int64          `json:"student_ids,omitempty"`
	Source     string           `json:"source,omitempty"`
}

// CreateScheduleRequest — создание schedule.
type CreateScheduleRequest struct {
	Name        string  `json:"name"`
	CronExpr    string  `json:"cron_expr,omitempty"`
	IntervalSec int     `json:"interval_sec,omitempty"`
	Timezone    string  `json:"timezone,omitempty"`
	Enabled     bool    `json:"enabled"`
	StudentIDs  []int64 `json:"student_ids,omitempty"`
}

// UpdateScheduleRequest — обновление schedule.
type UpdateScheduleRequest struct {
	Name        *string  `json:"name,omitempty"`
	CronExpr    *string  `json:"cron_expr,omitempty"`
	IntervalSec *int     `json:"interval_sec,omitempty"`
	Timezone    *string  `json:"timezone,omitempty"`
	StudentIDs  *[]int64 `json:"student_ids,omitempty"`
}

// ListJobsOpts — параметры фильтрации jobs.
type ListJobsOpts struct {
	Status     string
	ScheduleID string
	Limit      int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Riskwatch API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute, // прогноз с генератором рекомендаций бывает долгим
		},
	}
}

// --- Model & predictions ---

// ModelInfo возвращает описание загруженной модели.
func (c *Client) ModelInfo() (*ModelInfoResponse, error) {
	var info ModelInfoResponse
	err := c.get("/api/v1/model", &info)
	return &info, err
}

// Predict считает прогнозы синхронно.
func (c *Client) Predict(req PredictRequest) (*PredictResponse, error) {
	var resp PredictResponse
	err := c.post("/api/v1/predict", req, &resp)
	return &resp, err
}

// StudentPrediction возвращает последний прогноз студента.
func (c *Client) StudentPrediction(studentID int64) (*domain.Prediction, error) {
	var pred domain.Prediction
	err := c.get("/api/v1/students/"+strconv.FormatInt(studentID, 10)+"/prediction", &pred)
	return &pred, err
}

// Summary возвращает распределение последних прогнозов по рискам.
func (c *Client) Summary() (*SummaryResponse, error) {
	var s SummaryResponse
	err := c.get("/api/v1/predictions/summary", &s)
	return &s, err
}

// --- Jobs ---

// SubmitJob создаёт scoring job.
func (c *Client) SubmitJob(req SubmitJobRequest) (*JobResponse, error) {
	var job JobResponse
	err := c.post("/api/v1/jobs", req, &job)
	return &job, err
}

// ListJobs возвращает список jobs с фильтрацией.
func (c *Client) ListJobs(opts ListJobsOpts) ([]JobResponse, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.ScheduleID != "" {
		params.Set("schedule_id", opts.ScheduleID)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var jobs []JobResponse
	err := c.list("/api/v1/jobs", params, &jobs)
	return jobs, err
}

// GetJob возвращает job по ID.
func (c *Client) GetJob(id string) (*JobResponse, error) {
	var job JobResponse
	err := c.get("/api/v1/jobs/"+id, &job)
	return &job, err
}

// JobPredictions возвращает прогнозы job.
func (c *Client) JobPredictions(id string) ([]domain.Prediction, error) {
	var preds []domain.Prediction
	err := c.list("/api/v1/jobs/"+id+"/predictions", nil, &preds)
	return preds, err
}

// --- Records ---

// PutRecord сохраняет запись студента.
func (c *Client) PutRecord(studentID int64, fields map[string]any) (*RecordResponse, error) {
	var rec RecordResponse
	err := c.put("/api/v1/students/"+strconv.FormatInt(studentID, 10)+"/record", fields, &rec)
	return &rec, err
}

// GetRecord возвращает запись студента.
func (c *Client) GetRecord(studentID int64) (*RecordResponse, error) {
	var rec RecordResponse
	err := c.get("/api/v1/students/"+strconv.FormatInt(studentID, 10)+"/record", &rec)
	return &rec, err
}

// --- Schedules ---

// ListSchedules возвращает schedules.
func (c *Client) ListSchedules() ([]ScheduleResponse, error) {
	var schedules []ScheduleResponse
	err := c.list("/api/v1/schedules", nil, &schedules)
	return schedules, err
}

// CreateSchedule создаёт schedule.
func (c *Client) CreateSchedule(req CreateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.post("/api/v1/schedules", req, &schedule)
	return &schedule, err
}

// GetSchedule возвращает schedule по ID.
func (c *Client) GetSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.get("/api/v1/schedules/"+id, &schedule)
	return &schedule, err
}

// UpdateSchedule обновляет schedule.
func (c *Client) UpdateSchedule(id string, req UpdateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.put("/api/v1/schedules/"+id, req, &schedule)
	return &schedule, err
}

// DeleteSchedule удаляет schedule.
func (c *Client) DeleteSchedule(id string) error {
	return c.delete("/api/v1/schedules/" + id)
}

// EnableSchedule включает schedule.
func (c *Client) EnableSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": true}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// DisableSchedule выключает schedule.
func (c *Client) DisableSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": false}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
