// Package coach turns a goal into a short nudge message. Wording is
// presentation only; nothing downstream depends on the exact text.
package coach

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Title is the headline used alongside a nudge message.
const Title = "Time to move your goal"

const fallbackGoal = "your goal"

// Generator picks one of a fixed set of prompts, flavored by the part
// of the day.
type Generator struct {
	now  func() time.Time
	pick func(n int) int
}

func NewGenerator() *Generator {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Generator{
		now:  time.Now,
		pick: rng.Intn,
	}
}

// Message builds a nudge for the given goal.
func (g *Generator) Message(goal string) string {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		goal = fallbackGoal
	}
	prompts := g.prompts(goal)
	return prompts[g.pick(len(prompts))]
}

func (g *Generator) prompts(goal string) []string {
	part := partOfDay(g.now().Hour())
	return []string{
		fmt.Sprintf("Quick %s push: 10 focused minutes on “%s”. Start now.", part, goal),
		fmt.Sprintf("Tiny step on “%s” right now. Open the first tab and begin.", goal),
		fmt.Sprintf("Momentum beats motivation. What is the next 5-minute action for “%s”?", goal),
		fmt.Sprintf("Protect your time: 1 small commit on “%s”.", goal),
		fmt.Sprintf("Future-you will thank you. Nudge “%s” forward.", goal),
	}
}

func partOfDay(hour int) string {
	switch {
	case hour < 12:
		return "morning"
	case hour < 18:
		return "afternoon"
	default:
		return "evening"
	}
}
