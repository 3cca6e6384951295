package patterns

import (
	"context"
	"fmt"
	"strings"

	"github.com/apresai/promptpatterns/internal/completion"
)

// Transform rewrites text in the named style with a single completion.
func Transform(ctx context.Context, client completion.Client, styleKey, text string) (Style, string, error) {
	style, err := StyleByKey(styleKey)
	if err != nil {
		return Style{}, "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return style, "", fmt.Errorf("text is empty")
	}
	out, err := client.Complete(ctx, completion.NewRequest(style.System, transformPrompt(text)))
	if err != nil {
		return style, "", fmt.Errorf("transform %s: %w", style.Key, err)
	}
	return style, out, nil
}

// Answer puts question to the named persona ("neutral" for the baseline).
func Answer(ctx context.Context, client completion.Client, personaKey, question string) (Persona, string, error) {
	persona, err := PersonaByKey(personaKey)
	if err != nil {
		return Persona{}, "", err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return persona, "", fmt.Errorf("question is empty")
	}
	out, err := client.Complete(ctx, completion.NewRequest(persona.System, question))
	if err != nil {
		return persona, "", fmt.Errorf("ask %s: %w", persona.Key, err)
	}
	return persona, out, nil
}
