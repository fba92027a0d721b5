// internal/scoring/scorer_test.go
package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"nearby-engine/internal/models"
)

func localProfile(interests []string, lookingFor string) *models.UserProfile {
	return &models.UserProfile{
		ID:         "user-local",
		Interests:  interests,
		LookingFor: lookingFor,
	}
}

func candidate(interests []string, lookingFor string) *models.Candidate {
	return &models.Candidate{
		UserID:     "user-remote",
		Interests:  interests,
		LookingFor: lookingFor,
	}
}

func TestScore_InterestOverlap(t *testing.T) {
	tests := []struct {
		name           string
		local          []string
		remote         []string
		expectedCommon int
		expectedScore  int
	}{
		{
			name:           "single overlap",
			local:          []string{"music", "tech"},
			remote:         []string{"music", "art"},
			expectedCommon: 1,
			expectedScore:  10,
		},
		{
			name:           "no overlap yields zero, not an error",
			local:          []string{"music"},
			remote:         []string{"art"},
			expectedCommon: 0,
			expectedScore:  0,
		},
		{
			name:           "empty candidate interests",
			local:          []string{"music"},
			remote:         nil,
			expectedCommon: 0,
			expectedScore:  0,
		},
		{
			name:           "empty local interests",
			local:          nil,
			remote:         []string{"music"},
			expectedCommon: 0,
			expectedScore:  0,
		},
		{
			name:           "case-insensitive overlap",
			local:          []string{"Music", "TECH"},
			remote:         []string{"music", "tech"},
			expectedCommon: 2,
			expectedScore:  20,
		},
		{
			name:           "duplicates count once",
			local:          []string{"music", "music"},
			remote:         []string{"music", "music"},
			expectedCommon: 1,
			expectedScore:  10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Score(localProfile(tt.local, ""), candidate(tt.remote, ""))
			assert.Equal(t, tt.expectedCommon, r.CommonInterestCount)
			assert.Equal(t, tt.expectedScore, r.MatchScore)
			assert.False(t, r.LookingForMatched)
		})
	}
}

func TestScore_LookingForTiers(t *testing.T) {
	tests := []struct {
		name          string
		local         *models.UserProfile
		cand          *models.Candidate
		expectedScore int
		matched       bool
	}{
		{
			name:          "mutual intent substring match wins the 50 tier",
			local:         localProfile(nil, "hiking buddy"),
			cand:          candidate(nil, "hiking"),
			expectedScore: 50,
			matched:       true,
		},
		{
			name:          "local intent against candidate interests",
			local:         localProfile(nil, "hiking"),
			cand:          candidate([]string{"hiking club"}, ""),
			expectedScore: 30,
			matched:       true,
		},
		{
			name:          "candidate intent against local interests",
			local:         localProfile([]string{"board games"}, ""),
			cand:          candidate(nil, "games"),
			expectedScore: 30,
			matched:       true,
		},
		{
			name:          "mutual tier takes precedence over interest tiers",
			local:         localProfile([]string{"climbing"}, "climbing"),
			cand:          candidate([]string{"climbing"}, "Climbing Partner"),
			expectedScore: 60, // 50 mutual + 10 for the shared interest
			matched:       true,
		},
		{
			name:          "absent intent on both sides disables every tier",
			local:         localProfile([]string{"music"}, ""),
			cand:          candidate([]string{"music"}, ""),
			expectedScore: 10,
			matched:       false,
		},
		{
			name:          "case-insensitive intent match",
			local:         localProfile(nil, "HIKING"),
			cand:          candidate([]string{"hiking club"}, ""),
			expectedScore: 30,
			matched:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Score(tt.local, tt.cand)
			assert.Equal(t, tt.expectedScore, r.MatchScore)
			assert.Equal(t, tt.matched, r.LookingForMatched)
		})
	}
}

func TestScore_ClampedAt100(t *testing.T) {
	interests := []string{"a", "b", "c", "d", "e"}
	local := localProfile(interests, "running")
	cand := candidate(interests, "running")

	r := Score(local, cand)
	// 5*10 + 50 = 100 exactly; anything above must clamp.
	assert.Equal(t, 100, r.MatchScore)

	local = localProfile(append(interests, "f", "g"), "running")
	cand = candidate(append(interests, "f", "g"), "running")
	r = Score(local, cand)
	assert.Equal(t, 100, r.MatchScore)
}

func TestApply_PopulatesCandidate(t *testing.T) {
	local := localProfile([]string{"music", "tech"}, "")
	c := models.Candidate{
		UserID:           "user-remote",
		Interests:        []string{"music"},
		RemoteMatchScore: 85, // advisory value must not leak into the local score
	}

	scored := Apply(local, c)
	assert.Equal(t, 10, scored.MatchScore)
	assert.Equal(t, 1, scored.CommonInterestCount)
	assert.Equal(t, 85, scored.RemoteMatchScore)
}
