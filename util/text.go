package util

import (
	"strings"

	"github.com/forPelevin/gomoji"
	"github.com/gosimple/slug"
	"github.com/mozillazg/go-unidecode"
)

//----------------------------------------------------------------------------------------------------
// Text Normalization (emoji tokens, ASCII transliteration, filesystem slugs)
//----------------------------------------------------------------------------------------------------

// NormalizeEmoji replaces every emoji and pictograph in the text with a
// readable `:token:` form, so the output survives ASCII transliteration
// and plain-text grepping.
func NormalizeEmoji(text string) string {
	for _, em := range gomoji.FindAll(text) {
		text = strings.ReplaceAll(text, em.Character, ":"+em.Slug+":")
	}
	return text
}

// ToASCII transliterates arbitrary unicode text into its closest ASCII
// representation. Total over any input, never fails.
func ToASCII(text string) string {
	return unidecode.Unidecode(text)
}

// ConversationSlug derives the filesystem-safe name stem used for a
// conversation's output directory and segment files. Emoji are tokenized
// first so a conversation named only with emoji still gets a usable slug.
func ConversationSlug(displayName string) string {
	return slug.Make(NormalizeEmoji(displayName))
}
