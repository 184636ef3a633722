package cluster

import (
	"math"
)

// Point is one positioned record in projection space.
type Point struct {
	ID    string
	Title string
	X, Y  float64
}

// minPointsPerCluster keeps K from degenerating into single-point clusters.
const minPointsPerCluster = 3

// ClampK bounds the requested cluster count by the input size.
func ClampK(k, n int) int {
	if max := n / minPointsPerCluster; k > max {
		k = max
	}
	if k < 1 {
		k = 1
	}
	return k
}

const maxIterations = 50

// kmeans partitions points into k groups by iterative centroid assignment.
// Seeding is deterministic (farthest-point from the first input), so the
// same result set always clusters the same way.
func kmeans(points []Point, k int) (assign []int, centroids [][2]float64) {
	n := len(points)
	assign = make([]int, n)
	if k <= 1 || n == 0 {
		return assign, [][2]float64{meanOf(points)}
	}

	centroids = seed(points, k)

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, p := range points {
			best := nearest(p.X, p.Y, centroids)
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}

		counts := make([]int, k)
		sums := make([][2]float64, k)
		for i, p := range points {
			c := assign[i]
			counts[c]++
			sums[c][0] += p.X
			sums[c][1] += p.Y
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Revive an empty cluster on the point farthest from its
				// current centroid.
				far := farthestFromAssigned(points, assign, centroids)
				centroids[c] = [2]float64{points[far].X, points[far].Y}
				assign[far] = c
				changed = true
				continue
			}
			centroids[c][0] = sums[c][0] / float64(counts[c])
			centroids[c][1] = sums[c][1] / float64(counts[c])
		}

		if !changed {
			break
		}
	}
	return assign, centroids
}

func seed(points []Point, k int) [][2]float64 {
	centroids := make([][2]float64, 0, k)
	centroids = append(centroids, [2]float64{points[0].X, points[0].Y})

	for len(centroids) < k {
		bestIdx, bestDist := 0, -1.0
		for i, p := range points {
			d := math.Inf(1)
			for _, c := range centroids {
				d = math.Min(d, sqDist(p.X, p.Y, c))
			}
			if d > bestDist {
				bestDist = d
				bestIdx = i
			}
		}
		centroids = append(centroids, [2]float64{points[bestIdx].X, points[bestIdx].Y})
	}
	return centroids
}

func nearest(x, y float64, centroids [][2]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, cen := range centroids {
		if d := sqDist(x, y, cen); d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

func farthestFromAssigned(points []Point, assign []int, centroids [][2]float64) int {
	best, bestDist := 0, -1.0
	for i, p := range points {
		if d := sqDist(p.X, p.Y, centroids[assign[i]]); d > bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func sqDist(x, y float64, c [2]float64) float64 {
	dx, dy := x-c[0], y-c[1]
	return dx*dx + dy*dy
}

func meanOf(points []Point) [2]float64 {
	var m [2]float64
	if len(points) == 0 {
		return m
	}
	for _, p := range points {
		m[0] += p.X
		m[1] += p.Y
	}
	m[0] /= float64(len(points))
	m[1] /= float64(len(points))
	return m
}
