package models

import (
	"encoding/json"
	"fmt"
)

// Payload is the task-specific data carried by a TaskResult
type Payload interface {
	Task() TaskName
}

// NewsPayload holds the latest news headline
type NewsPayload struct {
	Title   string `json:"title" yaml:"title"`
	Summary string `json:"summary" yaml:"summary"`
}

func (NewsPayload) Task() TaskName { return TaskNews }

// FeaturedImagePayload holds the full-size featured image URL
type FeaturedImagePayload struct {
	ImageURL string `json:"image_url" yaml:"image_url"`
}

func (FeaturedImagePayload) Task() TaskName { return TaskFeaturedImage }

// WeatherPayload holds the text of the latest weather report
type WeatherPayload struct {
	TweetText string `json:"tweet_text" yaml:"tweet_text"`
}

func (WeatherPayload) Task() TaskName { return TaskWeather }

// FactsPayload holds the facts table as display-ready markup
type FactsPayload struct {
	TableHTML string `json:"table_html" yaml:"table_html"`
}

func (FactsPayload) Task() TaskName { return TaskFacts }

// HemisphereImage is one hemisphere title with its image
type HemisphereImage struct {
	Title    string `json:"title" yaml:"title"`
	ImageURL string `json:"image_url" yaml:"image_url"`
}

// HemisphereCount is the number of images a hemispheres payload always holds
const HemisphereCount = 4

// HemispheresPayload holds the hemisphere images in listing order
type HemispheresPayload struct {
	Images []HemisphereImage `json:"images" yaml:"images"`
}

func (HemispheresPayload) Task() TaskName { return TaskHemispheres }

// DecodePayload rebuilds a typed payload from its JSON encoding
func DecodePayload(task TaskName, raw []byte) (Payload, error) {
	var err error
	switch task {
	case TaskNews:
		var p NewsPayload
		err = json.Unmarshal(raw, &p)
		return p, err
	case TaskFeaturedImage:
		var p FeaturedImagePayload
		err = json.Unmarshal(raw, &p)
		return p, err
	case TaskWeather:
		var p WeatherPayload
		err = json.Unmarshal(raw, &p)
		return p, err
	case TaskFacts:
		var p FactsPayload
		err = json.Unmarshal(raw, &p)
		return p, err
	case TaskHemispheres:
		var p HemispheresPayload
		err = json.Unmarshal(raw, &p)
		return p, err
	}
	return nil, fmt.Errorf("unknown task %q", task)
}
