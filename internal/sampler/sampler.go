// Package sampler selects and pages question ids deterministically.
//
// Every function here is pure: identical inputs always yield identical
// outputs, which is what makes retried and resumed sessions reproducible.
package sampler

import (
	"hash/crc32"
	"math/rand/v2"
	"slices"
	"strconv"
)

// DefaultSeed replaces a zero seed.
const DefaultSeed int64 = 777

// PageSize is the number of questions in one exam page.
const PageSize = 40

// Sample shuffles a copy of pool with a generator seeded by seed and returns
// the first min(n, len(pool)) ids. A zero seed is replaced by DefaultSeed.
func Sample(pool []int, n int, seed int64) []int {
	if n <= 0 || len(pool) == 0 {
		return []int{}
	}
	if seed == 0 {
		seed = DefaultSeed
	}

	ids := slices.Clone(pool)
	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9E3779B97F4A7C15))
	r.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})

	if n > len(ids) {
		n = len(ids)
	}
	return ids[:n]
}

// Chunk splits pool, in its current order, into consecutive pages of size.
// The last page may be shorter.
func Chunk(pool []int, size int) [][]int {
	if size <= 0 {
		size = PageSize
	}
	var pages [][]int
	for start := 0; start < len(pool); start += size {
		end := min(start+size, len(pool))
		pages = append(pages, slices.Clone(pool[start:end]))
	}
	return pages
}

// PartCount returns the number of pages a pool of n ids splits into.
func PartCount(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + PageSize - 1) / PageSize
}

// ClampPart keeps a 1-based part number within [1, parts].
func ClampPart(part, parts int) int {
	if part > parts {
		part = parts
	}
	if part < 1 {
		part = 1
	}
	return part
}

// PadSeed derives the padding seed for one page of a topic.
func PadSeed(topic string, part int) int64 {
	return int64(crc32.ChecksumIEEE([]byte(topic + "|part|" + strconv.Itoa(part))))
}

// TrainerSeed derives the default sampling seed for a topic trainer.
func TrainerSeed(topic string) int64 {
	return int64(crc32.ChecksumIEEE([]byte(topic + "|trainer")))
}

// Page returns exactly target ids for the given 1-based part of a sorted
// topic pool. The part is clamped to the available pages. A short page is
// padded first from ids outside the page, then, if the pool is too small,
// from the whole pool with overlap. A non-zero seed overrides the derived
// padding seed. The returned part is the clamped one.
func Page(pool []int, topic string, part, target int, seed int64) ([]int, int) {
	if len(pool) == 0 || target <= 0 {
		return []int{}, 0
	}

	pages := Chunk(pool, target)
	part = ClampPart(part, len(pages))
	page := unique(pages[part-1])

	if len(page) >= target {
		return page[:target], part
	}

	padSeed := seed
	if padSeed == 0 {
		padSeed = PadSeed(topic, part)
	}

	inPage := make(map[int]bool, len(page))
	for _, id := range page {
		inPage[id] = true
	}
	var rest []int
	for _, id := range pool {
		if !inPage[id] {
			rest = append(rest, id)
		}
	}
	page = unique(append(page, Sample(rest, target-len(page), padSeed)...))

	// Pool smaller than target: reuse ids, each round with the next seed.
	for round := int64(1); len(page) < target; round++ {
		page = append(page, Sample(pool, target-len(page), padSeed+round)...)
	}

	return page[:target], part
}

// unique drops repeated ids, keeping first occurrences in order.
func unique(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
