package link

// FormatLetter converts a zero-based ordinal to its bijective base-26 label:
// 0='A', 25='Z', 26='AA', 27='AB', ...
func FormatLetter(ordinal int) string {
	letters := []byte{}
	n := ordinal
	for {
		letters = append([]byte{byte('A' + n%26)}, letters...)
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	return string(letters)
}

// ParseLetter converts a bijective base-26 label back to its zero-based
// ordinal. Returns -1 for an empty or malformed label.
func ParseLetter(label string) int {
	if label == "" {
		return -1
	}
	n := 0
	for i := 0; i < len(label); i++ {
		c := label[i]
		if c < 'A' || c > 'Z' {
			return -1
		}
		n = n*26 + int(c-'A') + 1
	}
	return n - 1
}
