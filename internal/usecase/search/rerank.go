package search

// rerankCandidates builds the bounded candidate views sent to the oracle:
// title plus roughly the first 200 characters of content.
func rerankCandidates(results []scoredDoc) []Candidate {
	candidates := make([]Candidate, len(results))
	for i, r := range results {
		content := r.doc.Content()
		if len(content) > rerankContentChars {
			content = content[:rerankContentChars]
		}
		candidates[i] = Candidate{Title: r.doc.Title(), Content: content}
	}
	return candidates
}

// isPermutation reports whether perm is a complete, duplicate-free, in-range
// permutation of n candidates. Anything else discards the rerank attempt.
func isPermutation(perm []int, n int) bool {
	if len(perm) != n {
		return false
	}
	seen := make([]bool, n)
	for _, p := range perm {
		if p < 0 || p >= n || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}

// applyRerank reorders the candidate head by the oracle permutation and
// replaces scores with the synthetic descending sequence 1 - rank/len, which
// preserves strict ordering semantics downstream.
func applyRerank(head []scoredDoc, perm []int) []scoredDoc {
	n := len(head)
	reordered := make([]scoredDoc, n)
	for rank, p := range perm {
		reordered[rank] = head[p]
		reordered[rank].score = 1 - float64(rank)/float64(n)
	}
	return reordered
}
