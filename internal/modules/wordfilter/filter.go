package wordfilter

import "strings"

var foldAccents = strings.NewReplacer(
	"à", "a", "á", "a", "â", "a", "ä", "a",
	"è", "e", "é", "e", "ê", "e", "ë", "e",
	"ì", "i", "í", "i", "î", "i", "ï", "i",
	"ò", "o", "ó", "o", "ô", "o", "ö", "o",
	"ù", "u", "ú", "u", "û", "u", "ü", "u",
	"ç", "c",
)

// Match reports the first configured word contained in content, compared
// case-insensitively. Blank entries never match.
func Match(content string, words []string) (string, bool) {
	if content == "" || len(words) == 0 {
		return "", false
	}
	normalized := normalizeText(content)
	for _, word := range words {
		needle := normalizeText(strings.TrimSpace(word))
		if needle == "" {
			continue
		}
		if strings.Contains(normalized, needle) {
			return word, true
		}
	}
	return "", false
}

func normalizeText(input string) string {
	return foldAccents.Replace(strings.ToLower(input))
}
