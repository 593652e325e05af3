package grade

// Distance computes the Levenshtein edit distance between a and b at rune
// granularity. Full DP matrix, O(n*m) time and space; answers are short
// (typically under 40 characters) so the quadratic cost is irrelevant.
func Distance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	n, m := len(ra), len(rb)
	if n == 0 {
		return m
	}
	if m == 0 {
		return n
	}

	d := make([][]int, n+1)
	for i := range d {
		d[i] = make([]int, m+1)
		d[i][0] = i
	}
	for j := 1; j <= m; j++ {
		d[0][j] = j
	}

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d[i][j] = min3(
				d[i-1][j]+1,      // deletion
				d[i][j-1]+1,      // insertion
				d[i-1][j-1]+cost, // substitution
			)
		}
	}
	return d[n][m]
}

// Similarity maps an edit distance onto [0,1]: 1 - d/max(len(a), len(b)).
// Two empty strings are defined as fully similar.
func Similarity(a, b string) float64 {
	return similarity(Distance(a, b), a, b)
}

func similarity(d int, a, b string) float64 {
	la := len([]rune(a))
	lb := len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(d)/float64(longest)
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
