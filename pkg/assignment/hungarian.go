package assignment

import "gonum.org/v1/gonum/mat"

// hungarian solves the square assignment problem for cost, returning a
// slice where result[i] is the column assigned to row i. This is the
// Jonker-Volgenant-style O(n^3) primal-dual algorithm (successive
// shortest augmenting paths with a potential function), since nothing in
// the module's dependency set provides a rectangular linear-sum-
// assignment solver.
func hungarian(cost *mat.Dense) []int {
	n, m := cost.Dims()
	if n != m {
		panic("hungarian: cost matrix must be square")
	}

	const inf = 1e18

	u := make([]float64, n+1)
	v := make([]float64, m+1)
	p := make([]int, m+1) // p[j] = row currently assigned to column j (1-indexed), 0 = unassigned
	way := make([]int, m+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minV := make([]float64, m+1)
		used := make([]bool, m+1)
		for j := range minV {
			minV[j] = inf
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1
			for j := 1; j <= m; j++ {
				if used[j] {
					continue
				}
				cur := cost.At(i0-1, j-1) - u[i0] - v[j]
				if cur < minV[j] {
					minV[j] = cur
					way[j] = j0
				}
				if minV[j] < delta {
					delta = minV[j]
					j1 = j
				}
			}
			for j := 0; j <= m; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minV[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	result := make([]int, n)
	for j := 1; j <= m; j++ {
		if p[j] != 0 {
			result[p[j]-1] = j - 1
		}
	}
	return result
}
