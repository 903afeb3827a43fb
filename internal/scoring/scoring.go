package scoring

import (
	"fmt"
	"math"
)

// Strategy turns (base points, time limit, time taken, correctness) into a
// non-negative point value. Implementations are pure: no I/O, no shared
// state. The set is closed; pick one per scoring context.
type Strategy interface {
	// Score returns 0 for an incorrect answer under every strategy.
	// timeTaken beyond timeLimit never fails; it scores as "no remaining time".
	Score(basePoints int, timeLimitSeconds, timeTakenSeconds float64, correct bool) int
	Name() string
}

var (
	// TimeBonus is the default strategy: base points plus a linear bonus for
	// remaining time, between 1x and 2x base.
	TimeBonus Strategy = timeBonus{}
	// Flat awards the base points for a correct answer, time ignored.
	Flat Strategy = flat{}
	// Exponential rewards very fast answers heavily and floors at half base.
	Exponential Strategy = exponential{}
)

// FromName resolves a configured strategy name; empty means the default.
func FromName(name string) (Strategy, error) {
	switch name {
	case "", "time-bonus":
		return TimeBonus, nil
	case "flat":
		return Flat, nil
	case "exponential":
		return Exponential, nil
	}
	return nil, fmt.Errorf("unknown scoring strategy %q", name)
}

type timeBonus struct{}

func (timeBonus) Name() string { return "time-bonus" }

func (timeBonus) Score(basePoints int, timeLimit, timeTaken float64, correct bool) int {
	if !correct {
		return 0
	}
	remaining := 0.0
	if timeLimit > 0 {
		remaining = (timeLimit - timeTaken) / timeLimit
		if remaining < 0 {
			remaining = 0
		}
	}
	score := int(math.Round(float64(basePoints) + remaining*float64(basePoints)))
	if score < basePoints {
		score = basePoints
	}
	return score
}

type flat struct{}

func (flat) Name() string { return "flat" }

func (flat) Score(basePoints int, _, _ float64, correct bool) int {
	if !correct {
		return 0
	}
	return basePoints
}

type exponential struct{}

func (exponential) Name() string { return "exponential" }

func (exponential) Score(basePoints int, timeLimit, timeTaken float64, correct bool) int {
	if !correct {
		return 0
	}
	// Past the limit (or with no limit at all) there is no remaining time,
	// so the floor of half the base applies.
	if timeLimit <= 0 || timeTaken >= timeLimit {
		return int(math.Floor(0.5 * float64(basePoints)))
	}
	if timeTaken < 0 {
		timeTaken = 0
	}
	factor := 0.5 + math.Exp(-2*timeTaken/timeLimit)*0.5
	return int(math.Floor(float64(basePoints) * factor))
}
