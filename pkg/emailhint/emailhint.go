// Package emailhint suggests corrections for mistyped email domains.
package emailhint

import "strings"

var knownDomains = []string{
	"gmail.com",
	"googlemail.com",
	"yahoo.com",
	"yahoo.in",
	"outlook.com",
	"hotmail.com",
	"live.com",
	"icloud.com",
	"protonmail.com",
	"rediffmail.com",
}

const maxDistance = 2

// Suggest returns the address with its domain replaced by the closest known
// provider, or false when the domain is known or nothing is close enough.
func Suggest(email string) (string, bool) {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", false
	}
	local, domain := email[:at], strings.ToLower(email[at+1:])

	best, bestDist := "", maxDistance+1
	for _, known := range knownDomains {
		if domain == known {
			return "", false
		}
		if d := distance(domain, known); d < bestDist {
			best, bestDist = known, d
		}
	}
	if best == "" {
		return "", false
	}
	return local + "@" + best, true
}

// distance is the Levenshtein edit distance with adjacent transpositions.
func distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev2 := make([]int, len(rb)+1)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				cur[j] = min(cur[j], prev2[j-2]+1)
			}
		}
		prev2, prev, cur = prev, cur, prev2
	}
	return prev[len(rb)]
}
