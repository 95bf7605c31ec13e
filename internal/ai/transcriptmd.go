package ai

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"
	"time"
)

//go:embed transcript_template.tmpl
var transcriptMarkdownTemplate string

var transcriptMarkdown = template.Must(template.New("transcript").Parse(transcriptMarkdownTemplate))

const transcriptTimeFormat = "2006-01-02 15:04:05 MST"

type transcriptMarkdownData struct {
	ID        string
	Provider  string
	Model     string
	Mode      string
	StartedAt string
	Messages  []transcriptMessage
}

type transcriptMessage struct {
	Heading string
	At      string
	Text    string
}

// ToMarkdown renders a transcript for reading
func (t Transcript) ToMarkdown() (string, error) {
	data := transcriptMarkdownData{
		ID:        t.ID,
		Provider:  t.Provider,
		Model:     t.Model,
		Mode:      string(t.Mode),
		StartedAt: formatTranscriptTime(t.StartedAt),
	}
	// Transcripts saved without a mode were all conversations
	firstHeading := "Priming"
	if t.Mode == TranscriptAnalysis {
		firstHeading = "Prompt"
	}
	for i, turn := range t.Turns {
		heading := "Model"
		switch {
		case i == 0 && turn.Role == RoleUser:
			heading = firstHeading
		case turn.Role == RoleUser:
			heading = "User"
		}
		data.Messages = append(data.Messages, transcriptMessage{
			Heading: heading,
			At:      formatTranscriptTime(turn.At),
			Text:    turn.Text,
		})
	}

	var buf bytes.Buffer
	if err := transcriptMarkdown.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render transcript: %w", err)
	}
	return buf.String(), nil
}

func formatTranscriptTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format(transcriptTimeFormat)
}
