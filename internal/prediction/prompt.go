package prediction

import (
	"fmt"
	"strings"
	"text/template"
	"time"
)

var promptTemplate = template.Must(template.New("predict-failure").Parse(
	`You are an expert in predicting machine failures in a manufacturing line.

Based on the provided sensor data, predict the type of failure that is likely to occur, the estimated time of occurrence, and a confidence score for the prediction.

Sensor Data:
- Temperature: {{.Temperature}} °C
- Load: {{.Load}} kg
- Speed: {{.Speed}} RPM
- Timestamp: {{.Timestamp}}

Consider common failure modes related to these parameters, such as overheating, overload, and excessive speed.
Provide the failure type, estimated time, and confidence score in the specified output format.
The confidence score should be between 0 and 1.
`))

type promptData struct {
	Temperature string
	Load        string
	Speed       string
	Timestamp   string
}

// RenderPrompt fills the failure prediction prompt with one set of readings
func RenderPrompt(in Input) (string, error) {
	data := promptData{
		Temperature: formatReading(in.Temperature),
		Load:        formatReading(in.Load),
		Speed:       formatReading(in.Speed),
		Timestamp:   in.Timestamp.UTC().Format(time.RFC3339),
	}

	var b strings.Builder
	if err := promptTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return b.String(), nil
}

func formatReading(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
