package retriever

// Options configures a Search call per §4.7. Zero-valued options are
// filled in with spec defaults by ResolveOptions.
type Options struct {
	// NProbe is the number of nearest centroids per query token used
	// to gather candidates. Default 32.
	NProbe int

	// KTopCentroids is, per query token, the count of centroid scores
	// kept for MaxSim during the pre-filter. Default 2.
	KTopCentroids int

	// CentroidScoreThreshold is the minimum centroid score for a
	// token-centroid pair to contribute to the pre-filter. Default 0.45.
	CentroidScoreThreshold float32

	// NumSecondPass is the number of candidate documents retained
	// after the pre-filter. Default max(k*32, 1024).
	NumSecondPass int

	// NearestTokensToFetch is resolved to a default of 100 but is not
	// read by Search; the PLAID pipeline has no XTR-style scoring path
	// that would bound materialized token neighbors.
	NearestTokensToFetch int

	// ExpectedID is an optional diagnostic hint, never used for scoring.
	ExpectedID *uint64

	// Parallelism bounds the number of candidate documents scored
	// concurrently during Stage 3. Default: number of CPUs.
	Parallelism int
}

// ResolveOptions fills unset fields with spec defaults, given the
// requested top-k.
func ResolveOptions(opts Options, k int) Options {
	if opts.NProbe <= 0 {
		opts.NProbe = 32
	}
	if opts.KTopCentroids <= 0 {
		opts.KTopCentroids = 2
	}
	if opts.CentroidScoreThreshold == 0 {
		opts.CentroidScoreThreshold = 0.45
	}
	if opts.NumSecondPass <= 0 {
		opts.NumSecondPass = k * 32
		if opts.NumSecondPass < 1024 {
			opts.NumSecondPass = 1024
		}
	}
	if opts.NearestTokensToFetch <= 0 {
		opts.NearestTokensToFetch = 100
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 0 // resolved against runtime.NumCPU by the caller
	}
	return opts
}
