package ai

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

// DefaultInstruction is the single-shot instruction used when none is configured
const DefaultInstruction = "Analyze the provided codebase."

//go:embed priming_prompt.tmpl
var primingPromptTemplate string

var primingPrompt = template.Must(template.New("priming").Parse(primingPromptTemplate))

type primingPromptData struct {
	Project string
	Context string
}

// BuildPrimingPrompt renders the first turn of an interactive session, which carries the whole codebase context
func BuildPrimingPrompt(project string, codebaseContext string) (string, error) {
	if strings.TrimSpace(project) == "" {
		project = "this project"
	}

	var buf bytes.Buffer
	err := primingPrompt.Execute(&buf, primingPromptData{
		Project: project,
		Context: codebaseContext,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render priming prompt: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// ComposeAnalysisPrompt joins a single-shot instruction and the codebase context
func ComposeAnalysisPrompt(instruction string, codebaseContext string) string {
	if instruction == "" {
		instruction = DefaultInstruction
	}
	return instruction + "\n\n" + codebaseContext
}
