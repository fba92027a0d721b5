// internal/scoring/scorer.go
package scoring

import (
	"strings"

	"nearby-engine/internal/models"
)

const (
	pointsPerCommonInterest = 10
	mutualLookingForBonus   = 50
	oneWayLookingForBonus   = 30
	maxScore                = 100
)

// Result carries the locally computed score for one candidate. The scorer is
// a pure function over its inputs: a zero score is a valid result, never an
// error, and no filtering happens here.
type Result struct {
	MatchScore          int
	CommonInterestCount int
	LookingForMatched   bool
}

// Score computes the authoritative match score for candidate against the
// local profile. The external store computes its own advisory score with
// slightly different predicates; that value is never trusted for display.
func Score(local *models.UserProfile, candidate *models.Candidate) Result {
	common := CommonInterestCount(local.Interests, candidate.Interests)
	bonus := lookingForBonus(local, candidate)

	score := common*pointsPerCommonInterest + bonus
	if score > maxScore {
		score = maxScore
	}

	return Result{
		MatchScore:          score,
		CommonInterestCount: common,
		LookingForMatched:   bonus > 0,
	}
}

// Apply scores candidate in place and returns the scored copy.
func Apply(local *models.UserProfile, candidate models.Candidate) models.Candidate {
	r := Score(local, &candidate)
	candidate.MatchScore = r.MatchScore
	candidate.CommonInterestCount = r.CommonInterestCount
	candidate.LookingForMatched = r.LookingForMatched
	return candidate
}

// CommonInterestCount returns the size of the case-insensitive intersection
// of two interest lists. Duplicates on either side count once.
func CommonInterestCount(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(a))
	for _, s := range a {
		seen[normalize(s)] = struct{}{}
	}
	counted := make(map[string]struct{}, len(b))
	for _, s := range b {
		n := normalize(s)
		if _, ok := seen[n]; ok {
			counted[n] = struct{}{}
		}
	}
	return len(counted)
}

// lookingForBonus evaluates the tiered bonus in precedence order; the first
// matching tier wins.
func lookingForBonus(local *models.UserProfile, candidate *models.Candidate) int {
	localIntent := normalize(local.LookingFor)
	candIntent := normalize(candidate.LookingFor)

	if localIntent != "" && candIntent != "" && substringEither(localIntent, candIntent) {
		return mutualLookingForBonus
	}
	if localIntent != "" && intentMatchesAny(localIntent, candidate.Interests) {
		return oneWayLookingForBonus
	}
	if candIntent != "" && intentMatchesAny(candIntent, local.Interests) {
		return oneWayLookingForBonus
	}
	return 0
}

func intentMatchesAny(intent string, interests []string) bool {
	for _, s := range interests {
		if substringEither(intent, normalize(s)) {
			return true
		}
	}
	return false
}

func substringEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
