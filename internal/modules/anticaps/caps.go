package anticaps

import (
	"unicode"
	"unicode/utf8"
)

const DefaultMinLength = 10

// Percentage returns the share of uppercase letters among all letters in
// content, and the number of letters seen.
func Percentage(content string) (float64, int) {
	letters, upper := 0, 0
	for _, r := range content {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if letters == 0 {
		return 0, 0
	}
	return float64(upper) / float64(letters) * 100, letters
}

// Exceeds reports whether content is at least minLength characters long and
// its uppercase percentage is strictly above threshold.
func Exceeds(content string, threshold float64, minLength int) bool {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	if utf8.RuneCountInString(content) < minLength {
		return false
	}
	pct, letters := Percentage(content)
	if letters == 0 {
		return false
	}
	return pct > threshold
}
