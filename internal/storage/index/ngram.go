package index

// NgramSize is the size of the n-grams used for substring keys.
const NgramSize = 3

// GenerateNgrams returns the n-grams of s. A string shorter than n is
// returned whole; an empty string yields nothing. s is expected to be
// normalized already.
func GenerateNgrams(s string, n int) []string {
	if len(s) == 0 {
		return nil
	}
	if len(s) < n {
		return []string{s}
	}

	ngrams := make([]string, 0, len(s)-n+1)
	for i := 0; i <= len(s)-n; i++ {
		ngrams = append(ngrams, s[i:i+n])
	}
	return ngrams
}

// GenerateUniqueNgrams is GenerateNgrams without repeats, in first-seen order.
func GenerateUniqueNgrams(s string, n int) []string {
	ngrams := GenerateNgrams(s, n)
	if len(ngrams) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(ngrams))
	unique := ngrams[:0]
	for _, ngram := range ngrams {
		if _, exists := seen[ngram]; !exists {
			seen[ngram] = struct{}{}
			unique = append(unique, ngram)
		}
	}
	return unique
}
