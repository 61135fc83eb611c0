// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package hydro

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// lcoePoints are (distance to port km, depth m, EUR/MWh) samples of the
// levelized cost of energy of North Sea offshore wind.
var lcoePoints = [][3]float64{
	{0, 5, 26.8},
	{0, 10, 26.9},
	{100, 7, 26.9},
	{125, 5, 26.9},
	{0, 17, 27},
	{150, 16, 27},
	{300, 14, 27},
	{0, 27, 27.5},
	{150, 26, 27.5},
	{300, 24, 27.5},
	{0, 40, 29},
	{150, 39, 29},
	{300, 38, 29},
	{0, 55, 30.7},
	{150, 55, 30.7},
	{300, 55, 30.7},
	{50, 25, 27.1},
}

// surface is a biquadratic sum_{i,j<=2} c[3i+j] x^i y^j fitted over a box.
// Evaluation clamps to the box.
type surface struct {
	coef                   [9]float64
	xmin, xmax, ymin, ymax float64
}

func monomials(x, y float64) [9]float64 {
	var m [9]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[3*i+j] = math.Pow(x, float64(i)) * math.Pow(y, float64(j))
		}
	}
	return m
}

// fitSurface solves the least-squares biquadratic through points.
func fitSurface(points [][3]float64) (*surface, error) {
	if len(points) < 9 {
		return nil, fmt.Errorf("need at least 9 points, got %d", len(points))
	}
	s := &surface{
		xmin: math.Inf(1), xmax: math.Inf(-1),
		ymin: math.Inf(1), ymax: math.Inf(-1),
	}
	a := mat.NewDense(len(points), 9, nil)
	b := mat.NewVecDense(len(points), nil)
	for r, p := range points {
		m := monomials(p[0], p[1])
		a.SetRow(r, m[:])
		b.SetVec(r, p[2])
		s.xmin, s.xmax = math.Min(s.xmin, p[0]), math.Max(s.xmax, p[0])
		s.ymin, s.ymax = math.Min(s.ymin, p[1]), math.Max(s.ymax, p[1])
	}

	var c mat.VecDense
	if err := c.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("least squares: %w", err)
	}
	for i := range s.coef {
		s.coef[i] = c.AtVec(i)
	}
	return s, nil
}

func (s *surface) eval(x, y float64) float64 {
	x = math.Max(s.xmin, math.Min(s.xmax, x))
	y = math.Max(s.ymin, math.Min(s.ymax, y))
	m := monomials(x, y)
	var v float64
	for i, c := range s.coef {
		v += c * m[i]
	}
	return v
}

var lcoeSurface = sync.OnceValue(func() *surface {
	s, err := fitSurface(lcoePoints)
	if err != nil {
		panic(err)
	}
	return s
})

// LCOE returns the levelized cost of energy in EUR/MWh for a wind farm at
// distanceToPort km from port in depth m of water.
func LCOE(distanceToPort, depth float64) float64 {
	return lcoeSurface().eval(distanceToPort, depth)
}

// Turbine constants.
const (
	airDensity       = 1.2
	betzPerformance  = 0.35
	rotorRadius      = 110.0
	generatorEff     = 0.8
	seaRoughness     = 0.0002
	referenceHeight  = 10.0
	defaultHubHeight = 130.0
)

// WindPower returns the mean power in W of one turbine at wind speed v m/s.
func WindPower(v float64) float64 {
	area := math.Pi * rotorRadius * rotorRadius
	return v * v * v * 0.5 * airDensity * betzPerformance * area * generatorEff
}

// heightConversion scales a 10 m wind speed to height using the
// logarithmic wind profile over sea.
func heightConversion(height float64) float64 {
	return math.Log(height/seaRoughness) / math.Log(referenceHeight/seaRoughness)
}
