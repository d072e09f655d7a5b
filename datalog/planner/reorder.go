package planner

import (
	"math"

	"github.com/wbrown/saturn/datalog"
)

// reorder keeps body[0] (the delta) in place and greedily places the rest.
// At each step the premise with the highest score against the variables
// bound so far is chosen:
//   - atoms score the fraction of their arguments that are already bound
//   - filters (unifiers, disunifiers, negated atoms) score +Inf once they can
//     run and -Inf until then
//
// Ties go to the premise that appears first in the remaining list.
func reorder(body []datalog.Premise) []datalog.Premise {
	if len(body) <= 2 {
		return body
	}

	bound := make(map[*datalog.Variable]bool)
	for _, v := range body[0].Variables() {
		bound[v] = true
	}

	result := make([]datalog.Premise, 0, len(body))
	result = append(result, body[0])
	remaining := append([]datalog.Premise(nil), body[1:]...)

	for len(remaining) > 0 {
		best := 0
		bestScore := math.Inf(-1)
		for i, p := range remaining {
			score := scorePremise(p, bound)
			if i == 0 || score > bestScore {
				best, bestScore = i, score
			}
		}

		selected := remaining[best]
		result = append(result, selected)
		remaining = append(remaining[:best], remaining[best+1:]...)

		if selected.Kind == datalog.PremiseNegated || selected.Kind == datalog.PremiseDisunifier {
			continue
		}
		for _, v := range selected.Variables() {
			bound[v] = true
		}
	}
	return result
}

// scorePremise rates how cheap and selective p is given the bound variables
func scorePremise(p datalog.Premise, bound map[*datalog.Variable]bool) float64 {
	isBound := func(t datalog.Term) bool {
		v, ok := t.(*datalog.Variable)
		return !ok || bound[v]
	}

	switch p.Kind {
	case datalog.PremiseUnifier:
		// One bound side is enough: the other gets bound by the unifier
		if isBound(p.Left) || isBound(p.Right) {
			return math.Inf(1)
		}
		return math.Inf(-1)

	case datalog.PremiseDisunifier:
		if isBound(p.Left) && isBound(p.Right) {
			return math.Inf(1)
		}
		return math.Inf(-1)

	case datalog.PremiseNegated:
		for _, t := range p.Atom.Args {
			if !isBound(t) {
				return math.Inf(-1)
			}
		}
		return math.Inf(1)

	default:
		if len(p.Atom.Args) == 0 {
			return 1
		}
		n := 0
		for _, t := range p.Atom.Args {
			if isBound(t) {
				n++
			}
		}
		return float64(n) / float64(len(p.Atom.Args))
	}
}
