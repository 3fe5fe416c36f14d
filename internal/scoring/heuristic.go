package scoring

import (
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/mileusna/useragent"
)

// DefaultCountryBlocklist is the small country blocklist the heuristic
// combines with a coin flip.
var DefaultCountryBlocklist = []string{"KP", "IR", "SY", "CU"}

// productTokenRe matches bare product tokens like "curl/7.1". CLI clients
// report no browser or OS family; a product token counts as parsed so they
// are not penalized twice on top of the length indicator.
var productTokenRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9._-]*/\d`)

// Heuristic is the randomized production strategy.
type Heuristic struct {
	blocklist map[string]bool
	randFloat func() float64
}

// NewHeuristic creates the randomized strategy with the default blocklist.
func NewHeuristic() *Heuristic {
	return newHeuristic(rand.Float64)
}

func newHeuristic(randFloat func() float64) *Heuristic {
	blocklist := make(map[string]bool, len(DefaultCountryBlocklist))
	for _, c := range DefaultCountryBlocklist {
		blocklist[c] = true
	}
	return &Heuristic{blocklist: blocklist, randFloat: randFloat}
}

// Score evaluates the indicator list and rolls the randomized parts.
func (h *Heuristic) Score(in Input) Decision {
	coin := h.randFloat() < 0.5
	score := BotScore(Indicators(in.UserAgent, in.Country, h.blocklist, coin))
	return decide(score, h.randFloat)
}

// Indicators evaluates the fixed list of eight boolean indicators. Order
// and count are part of the scorer's contract; changing either shifts
// every decision boundary. A bot-flagged parse counts as an unparseable
// browser family: the parser fills Name for known crawlers, which would
// otherwise hide them from this indicator.
func Indicators(ua, country string, blocklist map[string]bool, coin bool) []bool {
	lower := strings.ToLower(ua)
	parsed := useragent.Parse(ua)
	hasProductToken := productTokenRe.MatchString(ua)

	return []bool{
		ua == "",
		len(ua) < 10,
		strings.Contains(lower, "bot"),
		strings.Contains(lower, "crawler"),
		strings.Contains(lower, "spider"),
		(parsed.Name == "" || parsed.Bot) && !hasProductToken,
		parsed.OS == "" && !hasProductToken,
		blocklist[country] && coin,
	}
}

// Deterministic is the test strategy: same indicators and thresholds, no
// randomness. The blocklist indicator fires without a coin flip, allow
// confidence is fixed at 0.7 and the pass/fail roll always passes.
type Deterministic struct {
	blocklist map[string]bool
}

// NewDeterministic creates the deterministic strategy.
func NewDeterministic() *Deterministic {
	blocklist := make(map[string]bool, len(DefaultCountryBlocklist))
	for _, c := range DefaultCountryBlocklist {
		blocklist[c] = true
	}
	return &Deterministic{blocklist: blocklist}
}

// Score evaluates the indicators with all randomness pinned.
func (d *Deterministic) Score(in Input) Decision {
	score := BotScore(Indicators(in.UserAgent, in.Country, d.blocklist, true))
	return decide(score, func() float64 { return 0.5 })
}
