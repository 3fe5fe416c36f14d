package domain

import "time"

// Challenge difficulties and types accepted by the issuer. Unknown values
// default silently rather than erroring.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"

	ChallengeTypeCheckbox  = "checkbox"
	ChallengeTypeInvisible = "invisible"
)

// ChallengeTTL is how long an issued challenge token stays valid.
const ChallengeTTL = 300 * time.Second

// Challenge is the metadata embedded in an issued challenge token.
type Challenge struct {
	ID         string    `json:"id"`
	IssuedAt   time.Time `json:"issued_at"`
	Difficulty string    `json:"difficulty"`
	Type       string    `json:"type"`
}

// NormalizeDifficulty maps unknown difficulty labels to the default.
func NormalizeDifficulty(d string) string {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d
	}
	return DifficultyMedium
}

// NormalizeChallengeType maps unknown challenge types to the default.
func NormalizeChallengeType(t string) string {
	switch t {
	case ChallengeTypeCheckbox, ChallengeTypeInvisible:
		return t
	}
	return ChallengeTypeCheckbox
}
