package rating

import "math"

// Params are the rating model's tunable constants. Defaults match the
// standard TrueSkill-style parameterization named in the wire protocol
// section of the spec: mu0=25, sigma0=25/3, beta=sigma0/2, tau=sigma0/100,
// drawProbability=0.10.
type Params struct {
	Mu0             float64
	Sigma0          float64
	Beta            float64
	Tau             float64
	DrawProbability float64
}

// DefaultParams returns the standard defaults.
func DefaultParams() Params {
	sigma0 := 25.0 / 3.0
	return Params{
		Mu0:             25.0,
		Sigma0:          sigma0,
		Beta:            sigma0 / 2,
		Tau:             sigma0 / 100,
		DrawProbability: 0.10,
	}
}

// Rating is one player's belief, (mu, sigma).
type Rating struct {
	Mu    float64
	Sigma float64
}

// Display rounds mu-3*sigma to one decimal place, the user-visible number.
func (r Rating) Display() float64 {
	return math.Round((r.Mu-3*r.Sigma)*10) / 10
}

func (p Params) defaultRating() Rating {
	return Rating{Mu: p.Mu0, Sigma: p.Sigma0}
}

// drawMargin is the performance-difference threshold below which a result
// would be considered a draw. Every comparison in this system is a strict
// win (ties are broken deterministically before reaching the rating model,
// per §4.1 and §9), but the margin still governs how decisively a win
// must be signalled before it looks like "clearly separated" performance —
// it is baked into the standard TrueSkill formulation and is not optional.
func drawMargin(p Params) float64 {
	return invCDF((p.DrawProbability+1)/2) * math.Sqrt(2) * p.Beta
}

// scheduleIterations and scheduleTolerance bound the Gauss-Seidel relaxation
// in updateRanked: the chain of pairwise-difference factors is a tree, but
// each truncation factor's moment-matched outgoing message depends on its
// neighbors' current cavity, which only stabilizes once every other
// truncation factor on the chain has also settled. Two players need no
// relaxation (there is only one difference factor); three or more do, and
// the loop below exits as soon as every factor's message stops moving by
// more than scheduleTolerance rather than always spending the full budget.
const (
	scheduleIterations = 30
	scheduleTolerance  = 1e-6
)

// updateRanked runs one multiplayer TrueSkill update for the given
// priors, already sorted so ranked[0] is the best-placed player (rank 1)
// and ranked[len-1] is the worst. It returns updated ratings in the same
// order.
//
// The players are a chain of singleton teams linked by pairwise-difference
// factors, each observed through a truncation factor that encodes "the
// left side strictly outranks the right side". Every variable's message
// cache is seeded uninformative and then relaxed in place: each pass walks
// the chain left to right, recomputes each difference factor's cavities
// (its neighbors' marginals with this factor's own prior contribution
// divided back out), re-runs the moment-matching truncation, and pushes
// the updated message to both neighbors before moving on. Extracting the
// truncation factor's own contribution — dividing its post-truncation
// marginal by the pre-truncation one in canonical form — is what lets that
// contribution be re-added to a neighbor without double-counting the
// neighbor's own prior share.
func updateRanked(ranked []Rating, p Params) []Rating {
	n := len(ranked)
	if n < 2 {
		return ranked
	}

	eps := drawMargin(p)

	// Dynamics factor: widen each prior by tau^2 before anything else.
	skillToPerf := make([]gaussian, n)
	skill := make([]gaussian, n)
	for i, r := range ranked {
		s := fromMeanVar(r.Mu, r.Sigma*r.Sigma+p.Tau*p.Tau)
		skill[i] = s
		skillToPerf[i] = fromMeanVar(s.mean(), s.variance()+p.Beta*p.Beta)
	}

	uninformative := gaussian{}
	// leftMsg[k] is the message into perf_k from the difference factor
	// joining it to perf_{k-1}; rightMsg[k] is the message into perf_k from
	// the difference factor joining it to perf_{k+1}.
	leftMsg := make([]gaussian, n)
	rightMsg := make([]gaussian, n)
	for i := range leftMsg {
		leftMsg[i] = uninformative
		rightMsg[i] = uninformative
	}
	perfMarginal := make([]gaussian, n)
	copy(perfMarginal, skillToPerf)
	truncMsg := make([]gaussian, n-1)
	for i := range truncMsg {
		truncMsg[i] = uninformative
	}

	for iter := 0; iter < scheduleIterations; iter++ {
		maxDelta := 0.0
		for k := 0; k < n-1; k++ {
			cavityLeft := perfMarginal[k].div(rightMsg[k])
			cavityRight := perfMarginal[k+1].div(leftMsg[k+1])

			c2 := cavityLeft.variance() + cavityRight.variance()
			diffMean := cavityLeft.mean() - cavityRight.mean()
			t := diffMean / math.Sqrt(c2)
			epsRatio := eps / math.Sqrt(c2)
			v := vWin(t, epsRatio)
			w := wWin(t, epsRatio)
			newDiffMean := diffMean + math.Sqrt(c2)*v
			newDiffVar := c2 * (1 - w)

			preTruncation := fromMeanVar(diffMean, c2)
			postTruncation := fromMeanVar(newDiffMean, newDiffVar)
			truncationMsg := postTruncation.div(preTruncation)

			if d := math.Abs(truncationMsg.pi - truncMsg[k].pi); d > maxDelta {
				maxDelta = d
			}
			if d := math.Abs(truncationMsg.tau - truncMsg[k].tau); d > maxDelta {
				maxDelta = d
			}
			truncMsg[k] = truncationMsg

			newMsgToLeft := fromMeanVar(cavityRight.mean()+truncationMsg.mean(), cavityRight.variance()+truncationMsg.variance())
			newMsgToRight := fromMeanVar(cavityLeft.mean()-truncationMsg.mean(), cavityLeft.variance()+truncationMsg.variance())

			perfMarginal[k] = cavityLeft.mul(newMsgToLeft)
			rightMsg[k] = newMsgToLeft
			perfMarginal[k+1] = cavityRight.mul(newMsgToRight)
			leftMsg[k+1] = newMsgToRight
		}
		if maxDelta < scheduleTolerance {
			break
		}
	}

	out := make([]Rating, n)
	for k := 0; k < n; k++ {
		msgToSkill := perfMarginal[k].div(skillToPerf[k])
		msgThroughLikelihood := fromMeanVar(msgToSkill.mean(), msgToSkill.variance()+p.Beta*p.Beta)
		posterior := skill[k].mul(msgThroughLikelihood)

		variance := posterior.variance()
		if variance <= 0 {
			return nil // signals non-convergence to the caller
		}
		out[k] = Rating{Mu: posterior.mean(), Sigma: math.Sqrt(variance)}
	}
	return out
}
