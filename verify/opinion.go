package verify

import "regexp"

// opinionMarkers match hedges, first-person belief and evaluative phrasing.
var opinionMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bI\s+(?:think|believe|feel|guess|suppose|suspect|reckon|would\s+say)\b`),
	regexp.MustCompile(`(?i)\bin\s+my\s+(?:opinion|view|experience|estimation)\b`),
	regexp.MustCompile(`(?i)\b(?:we|I)\s+(?:should|ought\s+to)\b`),
	regexp.MustCompile(`(?i)\b(?:arguably|perhaps|maybe|possibly|presumably|personally|hopefully|probably)\b`),
	regexp.MustCompile(`(?i)\b(?:might|could\s+be)\b`),
	regexp.MustCompile(`(?i)\b(?:seems?|appears?)\s+to\s+me\b`),
	regexp.MustCompile(`(?i)\bit\s+seems\b`),
	regexp.MustCompile(`(?i)\b(?:to\s+me|for\s+me)\s*,`),
}

// IsOpinion reports whether a sentence expresses an opinion or hedge rather
// than a checkable fact.
func IsOpinion(sentence string) bool {
	for _, re := range opinionMarkers {
		if re.MatchString(sentence) {
			return true
		}
	}
	return false
}
