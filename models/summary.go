package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

var taskLabels = map[TaskName]string{
	TaskNews:          "📰 News",
	TaskFeaturedImage: "🖼 Featured image",
	TaskWeather:       "🌤 Weather",
	TaskFacts:         "📊 Facts",
	TaskHemispheres:   "🪐 Hemispheres",
}

// FormatSummary renders a report as plain text for the console and Telegram.
// Visit times are shown relative to now.
func FormatSummary(r *Report, now time.Time) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "🛰 Mars report %s\n", shortID(r.RunID))
	fmt.Fprintf(&sb, "%d/%d tasks found data, finished %s\n", r.SuccessCount(), len(r.Results), humanize.RelTime(r.FinishedAt, now, "ago", "from now"))

	for _, res := range r.Results {
		sb.WriteString("\n")
		label := taskLabels[res.Task]
		if label == "" {
			label = string(res.Task)
		}
		status := ""
		if !res.Success {
			status = " ⚠️ fallback"
		}
		fmt.Fprintf(&sb, "%s (visited %s)%s\n", label, humanize.RelTime(res.VisitedAt, now, "ago", "from now"), status)

		switch p := res.Payload.(type) {
		case NewsPayload:
			if p.Title != "" {
				sb.WriteString(p.Title + "\n")
			}
			sb.WriteString(p.Summary + "\n")
		case FeaturedImagePayload:
			sb.WriteString(p.ImageURL + "\n")
		case WeatherPayload:
			sb.WriteString(p.TweetText + "\n")
		case FactsPayload:
			fmt.Fprintf(&sb, "%s of table markup\n", humanize.Bytes(uint64(len(p.TableHTML))))
		case HemispheresPayload:
			for _, img := range p.Images {
				fmt.Fprintf(&sb, "• %s: %s\n", img.Title, img.ImageURL)
			}
		}
	}

	return sb.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
