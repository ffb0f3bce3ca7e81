package image

import (
	"fmt"
	"strings"

	"github.com/quotebot/quotebot/internal/consts"
)

// BuildPrompt turns attribution-free quote content into a generation prompt.
func BuildPrompt(seed string) string {
	seed = strings.TrimSpace(seed)
	return fmt.Sprintf("Иллюстрация к мысли: «%s». %s", seed, consts.GenerationStyle)
}

// BuildPromptWithNegative inlines the negative constraints for providers that
// take a single prompt string.
func BuildPromptWithNegative(seed string) string {
	return fmt.Sprintf("%s. Без: %s", BuildPrompt(seed), consts.GenerationNegative)
}
