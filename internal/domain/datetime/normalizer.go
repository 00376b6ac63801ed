package datetime

type memoKey struct {
	raw      string
	earliest bool
}

type memoEntry struct {
	ts Timestamp
	ok bool
}

// Normalizer memoizes Parse per (raw, rounding) pair. One instance serves
// a single query compilation and is not safe for concurrent use.
type Normalizer struct {
	bounds Bounds
	memo   map[memoKey]memoEntry
}

// NewNormalizer creates a Normalizer that accepts years within b.
func NewNormalizer(b Bounds) *Normalizer {
	return &Normalizer{bounds: b, memo: make(map[memoKey]memoEntry)}
}

// Bounds returns the accepted year range.
func (n *Normalizer) Bounds() Bounds { return n.bounds }

// Normalize completes raw to its earliest (roundToEarliest) or latest instant.
// ok is false for empty or malformed input.
func (n *Normalizer) Normalize(raw string, roundToEarliest bool) (Timestamp, bool) {
	key := memoKey{raw: raw, earliest: roundToEarliest}
	if e, hit := n.memo[key]; hit {
		return e.ts, e.ok
	}
	var e memoEntry
	if v, err := Parse(raw, n.bounds); err == nil {
		e.ok = true
		if roundToEarliest {
			e.ts = v.First()
		} else {
			e.ts = v.Last()
		}
	}
	n.memo[key] = e
	return e.ts, e.ok
}

// Span returns both completions of raw.
func (n *Normalizer) Span(raw string) (first, last Timestamp, ok bool) {
	first, ok = n.Normalize(raw, true)
	if !ok {
		return Timestamp{}, Timestamp{}, false
	}
	last, _ = n.Normalize(raw, false)
	return first, last, true
}

// Len reports how many distinct lookups have been memoized.
func (n *Normalizer) Len() int { return len(n.memo) }
