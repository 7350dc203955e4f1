// sim/rng.go
//
// Random variates for the simulation. A single seeded source drives the
// whole run: two runs with the same seed and configuration produce identical
// event sequences. Uniform and exponential draws are generated directly;
// normal, lognormal, and Cauchy variates come from gonum's distuv over the
// shared source. Arbitrary distributions (life tables, initial disease-state
// mixes) are sampled through cumulative-probability tables with resampling,
// so a lifespan can be drawn conditional on an age already reached.

package sim

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// exponScale bounds exponential deviates to this multiple of the mean. The
// generator's finite granularity near zero can otherwise produce excessively
// large intervals.
const exponScale = 10

// Table sampling error conditions.
var (
	ErrTableBounds = errors.New("given value outside table range")
	ErrTableShape  = errors.New("cumulative table must run from 0 to 1")
)

// RNG is the simulation's deterministic random source. Not safe for
// concurrent use, like everything else in the dispatch loop.
type RNG struct {
	src  *rand.PCG
	rand *rand.Rand
}

// NewRNG seeds a generator. Equal seeds give equal sequences.
func NewRNG(seed int64) *RNG {
	src := rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)
	return &RNG{src: src, rand: rand.New(src)}
}

// Float64 returns a uniform deviate in [0, 1).
func (g *RNG) Float64() float64 { return g.rand.Float64() }

// IntN returns a uniform integer in [0, n).
func (g *RNG) IntN(n int) int { return g.rand.IntN(n) }

// Uniform returns a deviate uniformly distributed in [a, b).
func (g *RNG) Uniform(a, b float64) float64 {
	return g.rand.Float64()*(b-a) + a
}

// Expon returns the next interval of a Poisson process with the given rate
// of events per unit time: exponentially distributed with mean 1/lambda.
// Zero intervals are rejected so no two events share an instant, and
// intervals are capped at exponScale times the mean. A rate of zero or less
// yields an infinite interval, meaning the event never happens.
func (g *RNG) Expon(lambda float64) float64 {
	if lambda <= 0 {
		return math.Inf(1)
	}
	for {
		r := g.rand.Float64()
		if r == 0 {
			continue
		}
		dt := -math.Log(r)
		if dt == 0 || dt > exponScale {
			continue
		}
		return dt / lambda
	}
}

// Normal returns a Gaussian deviate with the given mean and deviation.
func (g *RNG) Normal(mu, sigma float64) float64 {
	return distuv.Normal{Mu: mu, Sigma: sigma, Src: g.src}.Rand()
}

// LogNormal returns a lognormal deviate; mu and sigma parameterize the
// underlying normal distribution.
func (g *RNG) LogNormal(mu, sigma float64) float64 {
	return distuv.LogNormal{Mu: mu, Sigma: sigma, Src: g.src}.Rand()
}

// Cauchy returns a Cauchy deviate with the given median and half-width, by
// inverting the CDF.
func (g *RNG) Cauchy(mu, gamma float64) float64 {
	return mu + gamma*math.Tan(math.Pi*(g.rand.Float64()-0.5))
}

// SampleFrom draws from an arbitrary distribution supplied as a cumulative
// table, conditional on a value already reached. values must be
// non-decreasing; probs[i] is the probability that a draw is at most
// values[i], running from exactly 0 to exactly 1. The draw is made from the
// transformed distribution F(x) = (P(x+given)-P(given)) / (1-P(given)) and
// the return is the increment beyond given. With given at the table origin
// this is plain inverse-CDF sampling. Memoryless distributions, the
// exponential included, are invariant under the transformation.
//
// The canonical use is age-specific mortality: given a cumulative lifespan
// table and an age already achieved, the result is how much longer the
// individual lives.
func (g *RNG) SampleFrom(values, probs []float64, given float64) (float64, error) {
	n := len(values)
	if values[0] > given || values[n-1] < given {
		return 0, fmt.Errorf("sample at %g outside [%g,%g]: %w",
			given, values[0], values[n-1], ErrTableBounds)
	}
	if probs[0] != 0 || probs[n-1] != 1 {
		return 0, fmt.Errorf("cumulative range [%g,%g]: %w", probs[0], probs[n-1], ErrTableShape)
	}

	r := g.rand.Float64()
	if given != values[0] {
		// Rescale the deviate into the part of the distribution not yet
		// ruled out by the value already reached.
		p := valAt(given, values, probs)
		r = p + r*(1-p)
	}

	i := bracket(probs, 0, n, r)
	w := probs[i+1] - probs[i]
	if w != 0 {
		w = (r - probs[i]) / w
	} else {
		w = 1
	}
	return values[i] - given + w*(values[i+1]-values[i]), nil
}

// valAt evaluates a function given as matched (xs, ys) tables, with linear
// interpolation between entries. Values of x outside the table clamp to the
// first or last y.
func valAt(x float64, xs, ys []float64) float64 {
	last := len(xs) - 1
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[last] {
		return ys[last]
	}
	i := bracket(xs, 0, len(xs), x)
	w := xs[i+1] - xs[i]
	if w != 0 {
		w = (x - xs[i]) / w
	} else {
		w = 1
	}
	return ys[i] + w*(ys[i+1]-ys[i])
}

// bracket binary-searches an increasing table, returning i such that
// tab[i] <= v <= tab[i+1]. Examines n entries starting at b; the table must
// bracket v.
func bracket(tab []float64, b, n int, v float64) int {
	m := n/2 + n%2
	if m <= 1 {
		return b
	}
	if v < tab[b+m-1] {
		return bracket(tab, b, m, v)
	}
	return bracket(tab, b+m-1, n-m+1, v)
}
