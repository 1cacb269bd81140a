package main

import (
	"encoding/json"
	"errors"

	"github.com/mkihara/aiops/internal/task"
)

// codeFixPayload reads a code-fix request out of task metadata. A
// code-generation task without a code payload falls through to the agent
// loop instead.
func codeFixPayload(t *task.Task) (code, language, errText string, ok bool) {
	if t.Metadata == nil {
		return "", "", "", false
	}
	code = t.Metadata["code"]
	if code == "" {
		return "", "", "", false
	}
	language = t.Metadata["language"]
	if language == "" {
		language = "plain"
	}
	return code, language, t.Input, true
}

func marshalResult(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func errTaskFailed(msg string) error {
	return errors.New(msg)
}
