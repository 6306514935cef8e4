package price

import (
	"fmt"
	"sort"
	"time"

	"github.com/sboehler/coinbook/lib/common/compare"
	"github.com/sboehler/coinbook/lib/common/date"
	"github.com/sboehler/coinbook/lib/common/dict"
	"github.com/sboehler/coinbook/lib/common/num"
)

// History indexes recorded prices by pair symbol. Each per-pair series
// is kept sorted by date.
type History map[string][]*Price

func NewHistory() History {
	return make(History)
}

// Insert adds a price, keeping the pair's series sorted.
func (h History) Insert(p *Price) {
	series := h[p.Pair()]
	i := sort.Search(len(series), func(i int) bool {
		return Compare(series[i], p) != compare.Smaller
	})
	series = append(series, nil)
	copy(series[i+1:], series[i:])
	series[i] = p
	h[p.Pair()] = series
}

// Pairs returns the recorded pair symbols in lexicographic order.
func (h History) Pairs() []string {
	return dict.SortedKeys(h, compare.Ordered[string])
}

// Nearest finds the price in the pair's series closest in time to utc.
// A positive tolerance bounds the acceptable distance; zero disables
// the bound.
func (h History) Nearest(pair string, utc time.Time, within time.Duration) (*Price, error) {
	series := h[pair]
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, pair)
	}
	best := series[0]
	bestDist := date.Distance(best.UTC, utc)
	lo, hi := 0, len(series)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		p := series[mid]
		// The midpoint may beat the eventual convergence point in a
		// non-uniform series, so track the minimum distance seen.
		if d := date.Distance(p.UTC, utc); d < bestDist {
			best, bestDist = p, d
		}
		switch {
		case p.UTC.Before(utc):
			lo = mid + 1
		case p.UTC.After(utc):
			hi = mid - 1
		default:
			return p, nil
		}
	}
	for _, i := range []int{hi, lo} {
		if i < 0 || i >= len(series) {
			continue
		}
		if d := date.Distance(series[i].UTC, utc); d < bestDist {
			best, bestDist = series[i], d
		}
	}
	if within > 0 && bestDist > within {
		return nil, fmt.Errorf("%w: nearest %s price is %s away from %s, tolerance %s",
			ErrOutOfRange, pair, bestDist, utc.Format(time.RFC3339), within)
	}
	return best, nil
}

// Find resolves a rate for base/quote at utc. It tries the direct pair,
// the inverted pair, and finally a two-hop translation through each of
// the given translation currencies.
func (h History) Find(utc time.Time, base, quote string, within time.Duration, translations []string) (*Price, error) {
	if base == quote {
		return &Price{UTC: utc, Base: base, Quote: quote, Rate: num.One}, nil
	}
	if p, err := h.findDirect(utc, base, quote, within); err == nil {
		return p, nil
	}
	for _, t := range translations {
		if t == base || t == quote {
			continue
		}
		first, err := h.findDirect(utc, base, t, within)
		if err != nil {
			continue
		}
		second, err := h.findDirect(utc, t, quote, within)
		if err != nil {
			continue
		}
		return &Price{
			UTC:              date.Average(first.UTC, second.UTC),
			Base:             base,
			Quote:            quote,
			Rate:             num.Mul(first.Rate, second.Rate),
			TranslationChain: []string{first.Pair(), second.Pair()},
		}, nil
	}
	return nil, fmt.Errorf("%w: no price for %s/%s at %s", ErrNotFound, base, quote, utc.Format(time.RFC3339))
}

// findDirect resolves base/quote from the direct series or, failing
// that, by inverting the reciprocal series.
func (h History) findDirect(utc time.Time, base, quote string, within time.Duration) (*Price, error) {
	if _, ok := h[base+"/"+quote]; ok {
		return h.Nearest(base+"/"+quote, utc, within)
	}
	if _, ok := h[quote+"/"+base]; ok {
		p, err := h.Nearest(quote+"/"+base, utc, within)
		if err != nil {
			return nil, err
		}
		return p.Invert(), nil
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, base, quote)
}
