package embedcache

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
)

// KeyLen is the number of hex characters in a cache key.
const KeyLen = 16

// Key computes the content-addressed cache key for a corpus.
//
// Texts are sorted before hashing, so two corpora with the same texts in a
// different order share a key. Any change to any text changes the key.
// Matrices stored under a key therefore hold their rows in sorted-text
// order; see [Order].
func Key(texts []string) string {
	sorted := slices.Clone(texts)
	slices.Sort(sorted)

	sum := sha256.Sum256([]byte(strings.Join(sorted, "|")))
	return hex.EncodeToString(sum[:])[:KeyLen]
}

// Order returns the permutation that sorts texts: texts[order[i]] is the
// i-th text in the order Key hashes them. Equal texts keep their relative
// position.
func Order(texts []string) []int {
	order := make([]int, len(texts))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(texts[a], texts[b])
	})
	return order
}

// Sorted returns m with its rows rearranged from corpus order into the
// sorted-text order described by order.
func (m Matrix) Sorted(order []int) Matrix {
	out := make(Matrix, len(order))
	for i, pos := range order {
		out[i] = m[pos]
	}
	return out
}

// Unsorted is the inverse of Sorted: it maps rows stored in sorted-text
// order back to corpus positions.
func (m Matrix) Unsorted(order []int) Matrix {
	out := make(Matrix, len(order))
	for i, pos := range order {
		out[pos] = m[i]
	}
	return out
}

// ValidKey reports whether key has the shape produced by Key.
func ValidKey(key string) bool {
	if len(key) != KeyLen {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
