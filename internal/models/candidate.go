// internal/models/candidate.go
package models

// Candidate is a user returned by a proximity query. The Remote* fields carry
// the store's advisory score for parity/debugging; MatchScore and
// CommonInterestCount are recomputed locally every cycle and are authoritative.
type Candidate struct {
	UserID         string   `json:"userId"`
	Username       string   `json:"username"`
	Interests      []string `json:"interests"`
	LookingFor     string   `json:"lookingFor,omitempty"`
	Bio            string   `json:"bio,omitempty"`
	Avatar         string   `json:"avatar,omitempty"`
	DistanceMeters float64  `json:"distanceMeters"`

	CommonInterestCount int  `json:"commonInterestCount"`
	MatchScore          int  `json:"matchScore"`
	LookingForMatched   bool `json:"lookingForMatched"`

	RemoteMatchScore          int `json:"remoteMatchScore,omitempty"`
	RemoteCommonInterestCount int `json:"remoteCommonInterestCount,omitempty"`
}
