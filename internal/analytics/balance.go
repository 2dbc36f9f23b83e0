package analytics

import (
	"math"
	"strings"

	"github.com/claude/replift/internal/memo"
)

// Balance labels.
const (
	BalancePushDominant = "Push dominant"
	BalancePullDominant = "Pull dominant"
	BalanceEven         = "Équilibré"
	BalanceUnknown      = "-"
)

// Keyword lists are matched as lowercase substrings. Lower body movements
// are tested first so "leg press" is neither push nor pull, then push so
// names such as "narrow grip bench press" stay push movements.
var (
	legKeywords = []string{
		"leg", "jambe", "squat", "cuisse", "lunge", "fente", "calf", "mollet",
	}
	pushKeywords = []string{
		"développé", "developpe", "bench", "press", "dips", "pompe", "push",
		"militaire", "triceps", "élévation", "elevation", "écarté", "ecarte", "fly",
	}
	pullKeywords = []string{
		"traction", "rowing", "row", "curl", "tirage", "pull", "chin", "biceps",
		"soulevé", "souleve", "deadlift", "shrug",
	}
)

// Movement classifies an exercise name.
type Movement int

const (
	MovementOther Movement = iota
	MovementPush
	MovementPull
)

// ClassifyMovement matches the name against the keyword lists, ignoring
// case. Lower body movements count as neither.
func ClassifyMovement(name string) Movement {
	lower := strings.ToLower(name)
	for _, k := range legKeywords {
		if strings.Contains(lower, k) {
			return MovementOther
		}
	}
	for _, k := range pushKeywords {
		if strings.Contains(lower, k) {
			return MovementPush
		}
	}
	for _, k := range pullKeywords {
		if strings.Contains(lower, k) {
			return MovementPull
		}
	}
	return MovementOther
}

// MuscleBalance is the push/pull ratio over classified sets.
type MuscleBalance struct {
	PushSeries  int    `json:"push_series"`
	PullSeries  int    `json:"pull_series"`
	PushPercent int    `json:"push_percent"`
	Label       string `json:"label"`
}

// MuscleBalance counts sets of push and pull movements. Exercises matching
// neither list are left out of the ratio.
func (e *Engine) MuscleBalance() MuscleBalance {
	return memo.Load(e.cache, keyBalance, func() MuscleBalance {
		var b MuscleBalance
		for _, s := range e.sessions() {
			for _, ex := range s.Exercises {
				switch ClassifyMovement(ex.Name) {
				case MovementPush:
					b.PushSeries += len(ex.Series)
				case MovementPull:
					b.PullSeries += len(ex.Series)
				}
			}
		}
		classified := b.PushSeries + b.PullSeries
		if classified == 0 {
			b.Label = BalanceUnknown
			return b
		}
		ratio := float64(b.PushSeries) / float64(classified)
		b.PushPercent = int(math.Round(ratio * 100))
		switch {
		case ratio >= 0.6:
			b.Label = BalancePushDominant
		case ratio <= 0.4:
			b.Label = BalancePullDominant
		default:
			b.Label = BalanceEven
		}
		return b
	})
}
