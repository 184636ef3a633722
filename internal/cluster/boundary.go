package cluster

// Polygon is a closed boundary as an ordered vertex ring.
type Polygon [][2]float64

// boundary padding keeps edge points strictly inside their region.
const rectPadding = 1e-6

// boundaries computes one region per centroid: the nearest-centroid
// partition of the plane, clipped to the bounding rectangle of the input
// points. Regions tile the rectangle without overlap, so every point falls
// in exactly one region.
func boundaries(centroids [][2]float64, points []Point) []Polygon {
	minX, minY, maxX, maxY := boundingRect(points)

	rect := Polygon{
		{minX, minY},
		{maxX, minY},
		{maxX, maxY},
		{minX, maxY},
	}

	out := make([]Polygon, len(centroids))
	for i, ci := range centroids {
		poly := rect
		for j, cj := range centroids {
			if i == j {
				continue
			}
			poly = clipHalfPlane(poly, ci, cj)
			if len(poly) == 0 {
				break
			}
		}
		out[i] = poly
	}
	return out
}

func boundingRect(points []Point) (minX, minY, maxX, maxY float64) {
	if len(points) == 0 {
		return 0, 0, 0, 0
	}
	minX, maxX = points[0].X, points[0].X
	minY, maxY = points[0].Y, points[0].Y
	for _, p := range points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return minX - rectPadding, minY - rectPadding, maxX + rectPadding, maxY + rectPadding
}

// clipHalfPlane keeps the part of poly on ci's side of the perpendicular
// bisector between ci and cj (Sutherland-Hodgman against one edge).
func clipHalfPlane(poly Polygon, ci, cj [2]float64) Polygon {
	if len(poly) == 0 {
		return poly
	}

	// side(p) < 0 when p is nearer ci than cj; 0 on the bisector.
	mx, my := (ci[0]+cj[0])/2, (ci[1]+cj[1])/2
	nx, ny := cj[0]-ci[0], cj[1]-ci[1]
	side := func(p [2]float64) float64 {
		return nx*(p[0]-mx) + ny*(p[1]-my)
	}

	var out Polygon
	for i := range poly {
		cur := poly[i]
		next := poly[(i+1)%len(poly)]
		curSide, nextSide := side(cur), side(next)

		if curSide <= 0 {
			out = append(out, cur)
		}
		if (curSide < 0 && nextSide > 0) || (curSide > 0 && nextSide < 0) {
			t := curSide / (curSide - nextSide)
			out = append(out, [2]float64{
				cur[0] + t*(next[0]-cur[0]),
				cur[1] + t*(next[1]-cur[1]),
			})
		}
	}
	return out
}
