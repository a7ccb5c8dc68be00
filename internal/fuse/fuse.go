// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fuse deduplicates canonical records across providers and
// ranks the merged list. Near-duplicate records are clustered by fuzzy
// name similarity gated on birth year, clusters are collapsed to their
// best representative, and representatives are scored so multi-source
// corroboration boosts rank without letting it override confidence.
// See docs/ARCHITECTURE.md § Fusion.
package fuse

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/xrash/smetrics"

	"github.com/pdiddy/records-router/pkg/types"
)

// Fuse clusters records, selects representatives, and returns the
// ranked, truncated list. Empty input yields empty output. Singletons
// are never discarded; ranking alone demotes low-confidence records.
func Fuse(records []types.CanonicalRecord, cfg types.FusionConfig, maxResults int) []types.FusedRecord {
	if len(records) == 0 {
		return nil
	}

	// Transitive clustering: if A~B and B~C then A, B, C share a
	// cluster even when A and C alone miss the threshold. This favors
	// recall over the rare over-merge a chain can cause.
	uf := newUnionFind(len(records))
	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			if candidates(records[i], records[j], cfg) {
				uf.union(i, j)
			}
		}
	}

	clusters := make(map[int][]int)
	for i := range records {
		root := uf.find(i)
		clusters[root] = append(clusters[root], i)
	}

	priority := providerRank(cfg.ProviderPriority)
	fused := make([]types.FusedRecord, 0, len(clusters))
	for _, members := range clusters {
		fused = append(fused, collapse(records, members, priority))
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].RankScore != fused[j].RankScore {
			return fused[i].RankScore > fused[j].RankScore
		}
		return fused[i].RecordID < fused[j].RecordID
	})

	if maxResults > 0 && len(fused) > maxResults {
		fused = fused[:maxResults]
	}
	return fused
}

// candidates reports whether two records may describe the same
// real-world record: name similarity meets the threshold AND their
// birth years agree within the tolerance (or both are absent).
func candidates(a, b types.CanonicalRecord, cfg types.FusionConfig) bool {
	if Similarity(a.NormalizedName, b.NormalizedName) < cfg.SimilarityThreshold {
		return false
	}
	ya, yb := BirthYear(a.BirthDate), BirthYear(b.BirthDate)
	if ya == 0 && yb == 0 {
		return true
	}
	if ya == 0 || yb == 0 {
		return false
	}
	diff := ya - yb
	if diff < 0 {
		diff = -diff
	}
	return diff <= cfg.YearTolerance
}

// collapse reduces one cluster to its representative FusedRecord.
func collapse(records []types.CanonicalRecord, members []int, priority map[string]int) types.FusedRecord {
	best := members[0]
	for _, idx := range members[1:] {
		if better(records[idx], records[best], priority) {
			best = idx
		}
	}

	mergedFrom := make([]string, len(members))
	for i, idx := range members {
		mergedFrom[i] = records[idx].RecordID
	}
	sort.Strings(mergedFrom)

	rep := records[best]
	count := len(members)
	return types.FusedRecord{
		CanonicalRecord: rep,
		MergedFrom:      mergedFrom,
		SourceCount:     count,
		RankScore:       rep.Confidence * (1 + math.Log(1+float64(count))),
	}
}

// better orders representative candidates: higher confidence wins; ties
// break by provider priority, then shortest record ID, then
// lexicographic, so selection is deterministic.
func better(a, b types.CanonicalRecord, priority map[string]int) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	pa, pb := providerPos(priority, a.ProviderID), providerPos(priority, b.ProviderID)
	if pa != pb {
		return pa < pb
	}
	if len(a.RecordID) != len(b.RecordID) {
		return len(a.RecordID) < len(b.RecordID)
	}
	return a.RecordID < b.RecordID
}

func providerRank(order []string) map[string]int {
	rank := make(map[string]int, len(order))
	for i, id := range order {
		rank[id] = i
	}
	return rank
}

func providerPos(rank map[string]int, id string) int {
	if pos, ok := rank[id]; ok {
		return pos
	}
	return len(rank) // unlisted providers sort after configured ones
}

// Similarity computes a token-sort ratio in [0,1]: tokens of each
// normalized name are sorted and rejoined, then scored by indel distance
// (Levenshtein with substitutions costing two), so word order never
// breaks a match ("smith john" ≈ "john smith").
func Similarity(a, b string) float64 {
	as, bs := tokenSort(a), tokenSort(b)
	if as == "" || bs == "" {
		return 0
	}
	if as == bs {
		return 1
	}
	total := len(as) + len(bs)
	dist := smetrics.WagnerFischer(as, bs, 1, 1, 2)
	return 1 - float64(dist)/float64(total)
}

func tokenSort(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

var yearPattern = regexp.MustCompile(`\b\d{4}\b`)

// BirthYear extracts the first plausible year from a provider date
// string ("1850", "abt 1850", "1850-1860"), or 0 when absent.
func BirthYear(date string) int {
	m := yearPattern.FindString(date)
	if m == "" {
		return 0
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return y
}

// unionFind is a disjoint-set forest with path compression and union by
// rank. Naive pairwise dedup under-merges chains; this is the part that
// makes clustering transitive.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(x, y int) {
	rx, ry := uf.find(x), uf.find(y)
	if rx == ry {
		return
	}
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
}
