package services

import (
	"math/rand/v2"
)

// Shuffle permutes s in place with a Fisher-Yates walk: for i from n-1 down
// to 1, swap s[i] with s[j] for a uniform j in [0, i]. Every one of the n!
// orderings is equally likely.
//
// Deliberately not seedable: every test start yields a fresh,
// non-reproducible order so repeat takers cannot memorize positions.
func Shuffle[T any](s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := rand.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
