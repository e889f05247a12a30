package rating

import "testing"

func TestUpdateRankedTwoPlayerMatchesKnownReference(t *testing.T) {
	p := DefaultParams()
	out := updateRanked([]Rating{p.defaultRating(), p.defaultRating()}, p)
	want := [2][2]float64{{29.396, 7.171}, {20.604, 7.171}}
	for i, w := range want {
		if !approxEqual(out[i].Mu, w[0], 0.01) || !approxEqual(out[i].Sigma, w[1], 0.01) {
			t.Errorf("player %d: got (mu=%.3f, sigma=%.3f), want (mu=%.3f, sigma=%.3f)", i, out[i].Mu, out[i].Sigma, w[0], w[1])
		}
	}
}

func TestUpdateRankedFivePlayerStaysMonotonic(t *testing.T) {
	p := DefaultParams()
	ranked := make([]Rating, 5)
	for i := range ranked {
		ranked[i] = p.defaultRating()
	}
	out := updateRanked(ranked, p)
	if out == nil {
		t.Fatal("updateRanked returned nil (non-convergence) for a well-posed 5-player game")
	}
	for i := 1; i < len(out); i++ {
		if out[i-1].Mu <= out[i].Mu {
			t.Errorf("rank %d (mu=%.3f) did not beat rank %d (mu=%.3f)", i, out[i-1].Mu, i+1, out[i].Mu)
		}
	}
	for i, r := range out {
		if r.Sigma >= p.Sigma0 {
			t.Errorf("rank %d sigma=%.3f did not shrink below prior sigma0=%.3f", i+1, r.Sigma, p.Sigma0)
		}
	}
}

func TestUpdateRankedSymmetricAroundMidpoint(t *testing.T) {
	// With every player starting at the same prior, the posterior means
	// for a strictly-ordered 4-player game must mirror around mu0, since
	// the chain of difference factors is symmetric end to end.
	p := DefaultParams()
	out := updateRanked([]Rating{p.defaultRating(), p.defaultRating(), p.defaultRating(), p.defaultRating()}, p)
	if !approxEqual(out[0].Mu+out[3].Mu, 2*p.Mu0, 0.01) {
		t.Errorf("ranks 1 and 4 means not symmetric around mu0: %.3f + %.3f != 2*%.3f", out[0].Mu, out[3].Mu, p.Mu0)
	}
	if !approxEqual(out[1].Mu+out[2].Mu, 2*p.Mu0, 0.01) {
		t.Errorf("ranks 2 and 3 means not symmetric around mu0: %.3f + %.3f != 2*%.3f", out[1].Mu, out[2].Mu, p.Mu0)
	}
	if !approxEqual(out[0].Sigma, out[3].Sigma, 0.001) || !approxEqual(out[1].Sigma, out[2].Sigma, 0.001) {
		t.Errorf("sigma not symmetric: %+v", out)
	}
}
