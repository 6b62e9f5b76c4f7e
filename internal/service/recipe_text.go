package service

import (
	"regexp"
	"strings"
)

const (
	ingredientsHeader = "[재료]"
	stepsHeader       = "[조리 단계]"
)

var (
	bulletPrefix = regexp.MustCompile(`^\s*[-*•]\s*`)
	numberPrefix = regexp.MustCompile(`^\s*\d+\s*[.)]\s*`)
)

// ParseRecipeText splits recipe text into ingredient lines and step lines
// using its [재료] and [조리 단계] sections. Text without the sections
// yields empty slices.
func ParseRecipeText(text string) (ingredients, steps []string) {
	ingredients = []string{}
	steps = []string{}

	var section string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(strings.Trim(line, "*#"))
		switch {
		case strings.HasPrefix(trimmed, ingredientsHeader):
			section = ingredientsHeader
			continue
		case strings.HasPrefix(trimmed, stepsHeader):
			section = stepsHeader
			continue
		case strings.HasPrefix(trimmed, "["):
			section = ""
			continue
		}

		switch section {
		case ingredientsHeader:
			if item := strings.TrimSpace(bulletPrefix.ReplaceAllString(line, "")); item != "" {
				ingredients = append(ingredients, item)
			}
		case stepsHeader:
			if step := strings.TrimSpace(numberPrefix.ReplaceAllString(line, "")); step != "" {
				steps = append(steps, step)
			}
		}
	}
	return ingredients, steps
}
