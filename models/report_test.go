package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullReport() *Report {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewReport("run-1", now)
	r.Add(TaskResult{Task: TaskNews, Success: true, VisitedAt: now, Payload: NewsPayload{Title: "Rover", Summary: "Drove"}})
	r.Add(TaskResult{Task: TaskFeaturedImage, VisitedAt: now, Payload: FeaturedImagePayload{ImageURL: "https://img"}})
	r.Add(TaskResult{Task: TaskWeather, Success: true, VisitedAt: now, Payload: WeatherPayload{TweetText: "Sol 1"}})
	r.Add(TaskResult{Task: TaskFacts, Success: true, VisitedAt: now, Payload: FactsPayload{TableHTML: "<table></table>"}})
	r.Add(TaskResult{Task: TaskHemispheres, VisitedAt: now, Payload: HemispheresPayload{Images: []HemisphereImage{{Title: "Cerberus"}}}})
	r.FinishedAt = now.Add(time.Minute)
	return r
}

func TestReportComplete(t *testing.T) {
	r := fullReport()
	assert.True(t, r.Complete())
	assert.Equal(t, 3, r.SuccessCount())

	partial := NewReport("run-2", time.Now())
	partial.Add(TaskResult{Task: TaskNews, Payload: NewsPayload{}})
	assert.False(t, partial.Complete())
}

func TestReportAddReplacesSameTask(t *testing.T) {
	r := NewReport("run", time.Now())
	r.Add(TaskResult{Task: TaskWeather, Payload: WeatherPayload{TweetText: "old"}})
	r.Add(TaskResult{Task: TaskWeather, Success: true, Payload: WeatherPayload{TweetText: "new"}})

	require.Len(t, r.Results, 1)
	assert.Equal(t, "new", r.Weather().TweetText)
}

func TestReportTypedAccessors(t *testing.T) {
	r := fullReport()
	assert.Equal(t, "Rover", r.News().Title)
	assert.Equal(t, "https://img", r.FeaturedImage().ImageURL)
	assert.Equal(t, "<table></table>", r.Facts().TableHTML)
	assert.Equal(t, "Cerberus", r.Hemispheres().Images[0].Title)
}

func TestReportMarshalJSONKeepsTaskOrder(t *testing.T) {
	data, err := json.Marshal(fullReport())
	require.NoError(t, err)

	s := string(data)
	last := -1
	for _, task := range Tasks {
		idx := strings.Index(s, `"`+string(task)+`":{`)
		require.NotEqual(t, -1, idx, "missing %s", task)
		assert.Greater(t, idx, last, "%s out of order", task)
		last = idx
	}

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	tasks := decoded["tasks"].(map[string]any)
	news := tasks["news"].(map[string]any)
	assert.Equal(t, true, news["success"])
	assert.Equal(t, "Rover", news["payload"].(map[string]any)["title"])
}

func TestDecodePayload(t *testing.T) {
	raw, err := json.Marshal(HemispheresPayload{Images: []HemisphereImage{{Title: "Syrtis Major", ImageURL: "https://x/s.jpg"}}})
	require.NoError(t, err)

	p, err := DecodePayload(TaskHemispheres, raw)
	require.NoError(t, err)
	assert.Equal(t, HemispheresPayload{Images: []HemisphereImage{{Title: "Syrtis Major", ImageURL: "https://x/s.jpg"}}}, p)

	_, err = DecodePayload("rings", raw)
	assert.Error(t, err)
}

func TestTaskNameValid(t *testing.T) {
	for _, task := range Tasks {
		assert.True(t, task.Valid())
	}
	assert.False(t, TaskName("moons").Valid())
}
