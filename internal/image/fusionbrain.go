package image

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/quotebot/quotebot/internal/cache"
	"github.com/quotebot/quotebot/internal/config"
	"github.com/quotebot/quotebot/internal/consts"
	"github.com/quotebot/quotebot/internal/logger"
)

// JobStatus is the normalized state of a generation job.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// GenerationJob is a submitted generation request. Result is set only when
// Status is JobDone.
type GenerationJob struct {
	ID     string
	Status JobStatus
	Result Reference
}

type FusionBrainOptions struct {
	BaseURL      string
	Key          string
	Secret       string
	Model        string
	Width        int
	Height       int
	Timeout      time.Duration
	PollInterval time.Duration
	MaxAttempts  int
}

// FusionBrain generates images through the FusionBrain pipeline API.
type FusionBrain struct {
	opts   FusionBrainOptions
	client *http.Client
	models *cache.Cache[string]
}

type pipeline struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type runResponse struct {
	UUID   string `json:"uuid"`
	Status string `json:"status"`
}

type statusResponse struct {
	UUID             string `json:"uuid"`
	Status           string `json:"status"`
	ErrorDescription string `json:"errorDescription"`
	Result           struct {
		Files    []string `json:"files"`
		Images   []string `json:"images"`
		Censored bool     `json:"censored"`
	} `json:"result"`
}

func NewFusionBrain(opts FusionBrainOptions, models *cache.Cache[string]) *FusionBrain {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Width == 0 {
		opts.Width = consts.GenerationWidth
	}
	if opts.Height == 0 {
		opts.Height = consts.GenerationHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 10
	}
	return &FusionBrain{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		models: models,
	}
}

func (f *FusionBrain) Name() string { return config.ImageProviderFusionBrain }

// Fetch runs the whole generation and returns None() on any failure. Total
// latency is bounded by MaxAttempts * PollInterval plus request timeouts.
func (f *FusionBrain) Fetch(ctx context.Context, promptSeed string) Reference {
	ref, err := f.Generate(ctx, promptSeed)
	if err != nil {
		logger.Warn("Image generation failed", map[string]interface{}{
			"provider": f.Name(),
			"error":    err.Error(),
		})
		return None()
	}
	return ref
}

func (f *FusionBrain) Generate(ctx context.Context, promptSeed string) (Reference, error) {
	pipelineID, err := f.resolvePipeline(ctx)
	if err != nil {
		return None(), err
	}

	job, err := f.submit(ctx, pipelineID, BuildPrompt(promptSeed))
	if err != nil {
		return None(), err
	}

	logger.Debug("Generation job submitted", map[string]interface{}{
		"job_id":      job.ID,
		"pipeline_id": pipelineID,
	})

	return f.await(ctx, job.ID)
}

func (f *FusionBrain) resolvePipeline(ctx context.Context) (string, error) {
	cacheKey := "fusionbrain:" + f.opts.Model
	if f.models != nil {
		if id, ok := f.models.Get(cacheKey); ok {
			return id, nil
		}
	}

	req, err := f.newRequest(ctx, http.MethodGet, "/key/api/v1/pipelines", nil)
	if err != nil {
		return "", err
	}

	var pipelines []pipeline
	if err := f.do(req, &pipelines); err != nil {
		return "", fmt.Errorf("failed to list pipelines: %w", err)
	}

	want := strings.ToLower(f.opts.Model)
	for _, p := range pipelines {
		if strings.Contains(strings.ToLower(p.Name), want) {
			if f.models != nil {
				f.models.Set(cacheKey, p.ID)
			}
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNoModel, f.opts.Model)
}

func (f *FusionBrain) submit(ctx context.Context, pipelineID, prompt string) (*GenerationJob, error) {
	params, err := json.Marshal(map[string]interface{}{
		"type":                  "GENERATE",
		"numImages":             1,
		"width":                 f.opts.Width,
		"height":                f.opts.Height,
		"negativePromptDecoder": consts.GenerationNegative,
		"generateParams": map[string]string{
			"query": prompt,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("pipeline_id", pipelineID); err != nil {
		return nil, fmt.Errorf("failed to write form: %w", err)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="params"`)
	h.Set("Content-Type", "application/json")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to write form: %w", err)
	}
	if _, err := part.Write(params); err != nil {
		return nil, fmt.Errorf("failed to write form: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to write form: %w", err)
	}

	req, err := f.newRequest(ctx, http.MethodPost, "/key/api/v1/pipeline/run", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var run runResponse
	if err := f.do(req, &run); err != nil {
		return nil, fmt.Errorf("failed to submit job: %w", err)
	}
	if run.UUID == "" {
		return nil, fmt.Errorf("submit response has no job id")
	}

	return &GenerationJob{ID: run.UUID, Status: JobPending}, nil
}

// await polls the job status, waiting PollInterval before each check.
func (f *FusionBrain) await(ctx context.Context, jobID string) (Reference, error) {
	timer := time.NewTimer(f.opts.PollInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= f.opts.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return None(), ctx.Err()
		case <-timer.C:
		}

		job, err := f.status(ctx, jobID)
		switch {
		case err != nil:
			logger.Debug("Generation status check failed", map[string]interface{}{
				"job_id":  jobID,
				"attempt": attempt,
				"error":   err.Error(),
			})
		case job.Status == JobDone:
			return job.Result, nil
		case job.Status == JobFailed:
			return None(), fmt.Errorf("%w: job %s", ErrGenerationFailed, jobID)
		}

		timer.Reset(f.opts.PollInterval)
	}

	return None(), fmt.Errorf("%w: job %s after %d attempts", ErrGenerationTimeout, jobID, f.opts.MaxAttempts)
}

func (f *FusionBrain) status(ctx context.Context, jobID string) (*GenerationJob, error) {
	req, err := f.newRequest(ctx, http.MethodGet, "/key/api/v1/pipeline/status/"+jobID, nil)
	if err != nil {
		return nil, err
	}

	var sr statusResponse
	if err := f.do(req, &sr); err != nil {
		return nil, err
	}

	job := &GenerationJob{ID: jobID}
	switch strings.ToUpper(sr.Status) {
	case "DONE":
		items := sr.Result.Files
		if len(items) == 0 {
			items = sr.Result.Images
		}
		if sr.Result.Censored || len(items) == 0 {
			job.Status = JobFailed
			return job, nil
		}
		job.Result = Detect(items[0])
		job.Status = JobDone
		if job.Result.IsNone() {
			job.Status = JobFailed
		}
	case "FAIL", "FAILED", "ERROR":
		job.Status = JobFailed
	default:
		job.Status = JobPending
	}
	return job, nil
}

func (f *FusionBrain) newRequest(ctx context.Context, method, path string, body *bytes.Buffer) (*http.Request, error) {
	var (
		req *http.Request
		err error
	)
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, f.opts.BaseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, f.opts.BaseURL+path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Key", "Key "+f.opts.Key)
	req.Header.Set("X-Secret", "Secret "+f.opts.Secret)
	return req, nil
}

func (f *FusionBrain) do(req *http.Request, out interface{}) error {
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// IsTimeout reports whether err came from exhausting the poll attempts.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrGenerationTimeout)
}
