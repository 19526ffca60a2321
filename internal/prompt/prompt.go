// Package prompt resolves the instruction sent to the generation API.
package prompt

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const defaultStyle = "Modern"

// Resolve returns customPrompt verbatim when present; otherwise it
// synthesizes a deterministic instruction for the requested style that keeps
// the room's structure intact while swapping out the decor.
func Resolve(styleLabel, customPrompt string) string {
	if p := strings.TrimSpace(customPrompt); p != "" {
		return p
	}
	return Fallback(styleLabel)
}

// Fallback builds the default redecoration instruction for a style label.
func Fallback(styleLabel string) string {
	style := strings.TrimSpace(styleLabel)
	if style == "" {
		style = defaultStyle
	}
	style = cases.Title(language.Und).String(style)
	return fmt.Sprintf(
		"Redecorate this room in %s style. Keep the walls, windows, ceiling and floor exactly as they are. "+
			"Replace the furniture, artwork and lighting with pieces that fit the %s aesthetic.",
		style, style,
	)
}
