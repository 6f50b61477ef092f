package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TaskName identifies one scraping task
type TaskName string

const (
	TaskNews          TaskName = "news"
	TaskFeaturedImage TaskName = "featured_image"
	TaskWeather       TaskName = "weather"
	TaskFacts         TaskName = "facts"
	TaskHemispheres   TaskName = "hemispheres"
)

// Tasks lists every declared task in report order
var Tasks = []TaskName{
	TaskNews,
	TaskFeaturedImage,
	TaskWeather,
	TaskFacts,
	TaskHemispheres,
}

// Valid reports whether n is one of the declared tasks
func (n TaskName) Valid() bool {
	for _, t := range Tasks {
		if t == n {
			return true
		}
	}
	return false
}

// TaskResult is the outcome of one task in one run.
// Payload is never nil: it holds either the extracted data or the task's fallback.
type TaskResult struct {
	Task      TaskName  `json:"task"`
	Success   bool      `json:"success"`
	VisitedAt time.Time `json:"visited_at"`
	Payload   Payload   `json:"payload"`
}

// Report is the aggregate of one run, one result per declared task
type Report struct {
	RunID      string       `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Results    []TaskResult `json:"results"`
}

// NewReport creates an empty report for a run
func NewReport(runID string, startedAt time.Time) *Report {
	return &Report{
		RunID:     runID,
		StartedAt: startedAt,
		Results:   make([]TaskResult, 0, len(Tasks)),
	}
}

// Add records a task result, replacing an earlier result for the same task
func (r *Report) Add(result TaskResult) {
	for i := range r.Results {
		if r.Results[i].Task == result.Task {
			r.Results[i] = result
			return
		}
	}
	r.Results = append(r.Results, result)
}

// Result returns the result recorded for a task
func (r *Report) Result(name TaskName) (TaskResult, bool) {
	for _, res := range r.Results {
		if res.Task == name {
			return res, true
		}
	}
	return TaskResult{}, false
}

// Complete reports whether the report holds exactly one entry per declared task
func (r *Report) Complete() bool {
	if len(r.Results) != len(Tasks) {
		return false
	}
	for _, t := range Tasks {
		if _, ok := r.Result(t); !ok {
			return false
		}
	}
	return true
}

// SuccessCount returns how many tasks extracted real data
func (r *Report) SuccessCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Success {
			n++
		}
	}
	return n
}

// News returns the news payload, or the zero payload if the task is missing
func (r *Report) News() NewsPayload {
	res, _ := r.Result(TaskNews)
	p, _ := res.Payload.(NewsPayload)
	return p
}

// FeaturedImage returns the featured image payload
func (r *Report) FeaturedImage() FeaturedImagePayload {
	res, _ := r.Result(TaskFeaturedImage)
	p, _ := res.Payload.(FeaturedImagePayload)
	return p
}

// Weather returns the weather payload
func (r *Report) Weather() WeatherPayload {
	res, _ := r.Result(TaskWeather)
	p, _ := res.Payload.(WeatherPayload)
	return p
}

// Facts returns the facts payload
func (r *Report) Facts() FactsPayload {
	res, _ := r.Result(TaskFacts)
	p, _ := res.Payload.(FactsPayload)
	return p
}

// Hemispheres returns the hemispheres payload
func (r *Report) Hemispheres() HemispheresPayload {
	res, _ := r.Result(TaskHemispheres)
	p, _ := res.Payload.(HemispheresPayload)
	return p
}

// MarshalJSON encodes the report with results as an object keyed by task name,
// keeping run order.
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"run_id":`)
	id, _ := json.Marshal(r.RunID)
	buf.Write(id)

	started, err := json.Marshal(r.StartedAt)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`,"started_at":`)
	buf.Write(started)

	finished, err := json.Marshal(r.FinishedAt)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`,"finished_at":`)
	buf.Write(finished)

	buf.WriteString(`,"tasks":{`)
	for i, res := range r.Results {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(string(res.Task))
		buf.Write(key)
		buf.WriteByte(':')

		entry, err := json.Marshal(struct {
			Success   bool      `json:"success"`
			VisitedAt time.Time `json:"visited_at"`
			Payload   Payload   `json:"payload"`
		}{res.Success, res.VisitedAt, res.Payload})
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s result: %w", res.Task, err)
		}
		buf.Write(entry)
	}
	buf.WriteString("}}")

	return buf.Bytes(), nil
}
