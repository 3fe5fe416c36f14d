// Package scoring computes a bot-likelihood score from request metadata.
//
// The scorer is a placeholder heuristic, not a real bot-detection model: it
// counts a fixed set of boolean indicators over the user agent and IP
// country and maps the ratio onto an allow/challenge/block decision.
package scoring

import (
	"github.com/humanproof/humanproof/internal/domain"
)

// Decision thresholds over the indicator ratio. Boundaries are exact:
// a score of 0.3 still allows and a score of 0.6 still challenges.
const (
	BlockThreshold     = 0.6
	ChallengeThreshold = 0.3
)

// Input is the client metadata a strategy scores.
type Input struct {
	Challenge *domain.Challenge
	UserAgent string
	ClientIP  string
	Country   string // ISO country code from geo lookup, may be empty
}

// Decision is the outcome of scoring one verify call.
type Decision struct {
	Success    bool
	Confidence float64
	IsBot      bool
	Action     string // domain.ActionAllow, ActionChallenge or ActionBlock
	Result     string // outcome log result
	BotScore   float64
}

// Strategy scores a verify call. Implementations must be safe for
// concurrent use.
type Strategy interface {
	Score(in Input) Decision
}

// BotScore is the ratio of true indicators to the total indicator count.
// It is deterministic for a fixed indicator vector.
func BotScore(indicators []bool) float64 {
	if len(indicators) == 0 {
		return 0
	}
	trueCount := 0
	for _, v := range indicators {
		if v {
			trueCount++
		}
	}
	return float64(trueCount) / float64(len(indicators))
}

// decide maps a bot score onto a decision. randFloat supplies the
// randomness for allow confidence and the final pass/fail roll.
func decide(score float64, randFloat func() float64) Decision {
	switch {
	case score > BlockThreshold:
		return Decision{
			Success:    false,
			Confidence: 0.1,
			IsBot:      true,
			Action:     domain.ActionBlock,
			Result:     domain.ResultBlocked,
			BotScore:   score,
		}
	case score > ChallengeThreshold:
		return Decision{
			Success:    false,
			Confidence: 0.3,
			IsBot:      true,
			Action:     domain.ActionChallenge,
			Result:     domain.ResultSuspicious,
			BotScore:   score,
		}
	default:
		d := Decision{
			Confidence: 0.5 + randFloat()*0.4,
			Action:     domain.ActionAllow,
			BotScore:   score,
		}
		// Even clean-looking requests occasionally fail the roll.
		if randFloat() < allowFailProbability {
			d.Result = domain.ResultFailed
		} else {
			d.Success = true
			d.Result = domain.ResultSuccess
		}
		return d
	}
}

const allowFailProbability = 0.05
