package client

import (
	"embed"
	"fmt"
)

// embeddedPrompts holds the built-in rubric texts so packaged executables
// can load them without needing access to the source tree.
//
//go:embed prompts/*.txt
var embeddedPrompts embed.FS

const (
	PromptReview  = "review_system"
	PromptRecheck = "recheck_system"
)

// Prompt returns the embedded prompt with the given name.
func Prompt(name string) (string, error) {
	data, err := embeddedPrompts.ReadFile("prompts/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("load prompt %s: %w", name, err)
	}
	return string(data), nil
}
