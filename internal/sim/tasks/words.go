package tasks

import "strings"

// IndefArticle prefixes word with "a" or "an" by its first letter.
func IndefArticle(word string) string {
	if word != "" && strings.ContainsRune("aeiou", rune(word[0])) {
		return "an " + word
	}
	return "a " + word
}

func Pluralize(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
