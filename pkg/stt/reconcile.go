package stt

// PreferredSide selects which engine's output simple-preference and
// tie-breaks favor.
type PreferredSide int

const (
	Primary PreferredSide = iota
	Secondary
)

// Reconciler merges an EnginePair into one TranscriptionResult whose
// EngineName is always "reconciled".
type Reconciler interface {
	Reconcile(pair EnginePair) TranscriptionResult
}

// reconcileNulls implements the shared both-null / one-null handling
// every strategy shares, returning (result, handled).
func reconcileNulls(pair EnginePair) (TranscriptionResult, bool) {
	if pair.Primary == nil && pair.Secondary == nil {
		return TranscriptionResult{Text: "", Confidence: 0.0, EngineName: ReconciledEngineName}, true
	}
	if pair.Primary == nil {
		return projectResult(*pair.Secondary), true
	}
	if pair.Secondary == nil {
		return projectResult(*pair.Primary), true
	}
	return TranscriptionResult{}, false
}

func projectResult(r EngineResult) TranscriptionResult {
	return TranscriptionResult{
		Text:       r.Text,
		Confidence: r.Confidence,
		EngineName: ReconciledEngineName,
	}
}

// SimplePreferenceReconciler returns the configured side's text if
// non-blank, else the other side's, else the configured side even blank.
type SimplePreferenceReconciler struct {
	PreferredSide PreferredSide
}

func NewSimplePreferenceReconciler(preferred PreferredSide) *SimplePreferenceReconciler {
	return &SimplePreferenceReconciler{PreferredSide: preferred}
}

func (r *SimplePreferenceReconciler) Reconcile(pair EnginePair) TranscriptionResult {
	if res, handled := reconcileNulls(pair); handled {
		return res
	}

	preferred, other := sidesFor(pair, r.PreferredSide)
	if preferred.Text != "" {
		return projectResult(*preferred)
	}
	if other.Text != "" {
		return projectResult(*other)
	}
	return projectResult(*preferred)
}

// ConfidenceReconciler returns the higher-confidence side; ties prefer
// non-blank text, double-ties prefer the configured primary.
type ConfidenceReconciler struct {
	PreferredSide PreferredSide
}

func NewConfidenceReconciler(preferred PreferredSide) *ConfidenceReconciler {
	return &ConfidenceReconciler{PreferredSide: preferred}
}

func (r *ConfidenceReconciler) Reconcile(pair EnginePair) TranscriptionResult {
	if res, handled := reconcileNulls(pair); handled {
		return res
	}

	primary, secondary := pair.Primary, pair.Secondary
	switch {
	case primary.Confidence > secondary.Confidence:
		return projectResult(*primary)
	case secondary.Confidence > primary.Confidence:
		return projectResult(*secondary)
	}

	// Tie on confidence: prefer non-blank text.
	switch {
	case primary.Text != "" && secondary.Text == "":
		return projectResult(*primary)
	case secondary.Text != "" && primary.Text == "":
		return projectResult(*secondary)
	}

	// Double-tie: configured primary.
	preferred, _ := sidesFor(pair, r.PreferredSide)
	return projectResult(*preferred)
}

// OverlapReconciler merges via Jaccard token-set similarity: the side
// with the higher similarity wins above threshold; below threshold, the
// longer text wins; ties prefer the configured primary.
type OverlapReconciler struct {
	PreferredSide PreferredSide
	Threshold     float64
}

func NewOverlapReconciler(preferred PreferredSide, threshold float64) *OverlapReconciler {
	return &OverlapReconciler{PreferredSide: preferred, Threshold: threshold}
}

func (r *OverlapReconciler) Reconcile(pair EnginePair) TranscriptionResult {
	if res, handled := reconcileNulls(pair); handled {
		return res
	}

	primary, secondary := pair.Primary, pair.Secondary
	simA, simB := jaccardSimilarities(primary.Tokens, secondary.Tokens)

	if simA < r.Threshold && simB < r.Threshold {
		switch {
		case len(primary.Text) > len(secondary.Text):
			return projectResult(*primary)
		case len(secondary.Text) > len(primary.Text):
			return projectResult(*secondary)
		default:
			preferred, _ := sidesFor(pair, r.PreferredSide)
			return projectResult(*preferred)
		}
	}

	switch {
	case simA > simB:
		return projectResult(*primary)
	case simB > simA:
		return projectResult(*secondary)
	default:
		preferred, _ := sidesFor(pair, r.PreferredSide)
		return projectResult(*preferred)
	}
}

// jaccardSimilarities computes each side's similarity to the union of
// both token sets: |side ∩ U| / |U|, i.e. |side| / |U| since each side's
// distinct tokens are a subset of the union by construction.
func jaccardSimilarities(a, b []string) (simA, simB float64) {
	setA := toSet(a)
	setB := toSet(b)
	union := make(map[string]struct{}, len(setA)+len(setB))
	for t := range setA {
		union[t] = struct{}{}
	}
	for t := range setB {
		union[t] = struct{}{}
	}
	if len(union) == 0 {
		return 0, 0
	}
	return float64(len(setA)) / float64(len(union)), float64(len(setB)) / float64(len(union))
}

func toSet(tokens []string) map[string]struct{} {
	s := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		s[t] = struct{}{}
	}
	return s
}

func sidesFor(pair EnginePair, preferred PreferredSide) (side, other *EngineResult) {
	if preferred == Primary {
		return pair.Primary, pair.Secondary
	}
	return pair.Secondary, pair.Primary
}
