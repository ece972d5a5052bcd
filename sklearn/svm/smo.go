package svm

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nidsbench/pkg/errors"
)

// tau replaces a non-positive curvature in the two-variable subproblem
const tau = 1e-12

func kernelValue(kernel string, gamma float64, a, b []float64) float64 {
	if kernel == KernelLinear {
		return floats.Dot(a, b)
	}
	d := 0.0
	for i := range a {
		t := a[i] - b[i]
		d += t * t
	}
	return errors.StabilizeExp(-gamma * d)
}

// kernelMatrix computes rows of the training Gram matrix on demand and keeps
// the most recently used ones up to the configured memory budget.
type kernelMatrix struct {
	X      *mat.Dense
	kernel string
	gamma  float64
	diag   []float64

	capacity int
	rows     map[int][]float64
	order    []int
}

func newKernel(X *mat.Dense, kernel string, gamma, cacheMB float64) *kernelMatrix {
	n, _ := X.Dims()
	capacity := int(cacheMB * (1 << 20) / float64(8*n))
	if capacity < 2 {
		capacity = 2
	}
	k := &kernelMatrix{
		X:        X,
		kernel:   kernel,
		gamma:    gamma,
		diag:     make([]float64, n),
		capacity: capacity,
		rows:     make(map[int][]float64),
	}
	for i := 0; i < n; i++ {
		x := X.RawRowView(i)
		k.diag[i] = kernelValue(kernel, gamma, x, x)
	}
	return k
}

func (k *kernelMatrix) row(i int) []float64 {
	if r, ok := k.rows[i]; ok {
		k.touch(i)
		return r
	}
	n, _ := k.X.Dims()
	var r []float64
	if len(k.order) >= k.capacity {
		oldest := k.order[0]
		k.order = k.order[1:]
		r = k.rows[oldest]
		delete(k.rows, oldest)
	} else {
		r = make([]float64, n)
	}
	xi := k.X.RawRowView(i)
	for j := 0; j < n; j++ {
		r[j] = kernelValue(k.kernel, k.gamma, xi, k.X.RawRowView(j))
	}
	k.rows[i] = r
	k.order = append(k.order, i)
	return r
}

// touch moves i to the most recently used end
func (k *kernelMatrix) touch(i int) {
	for p, v := range k.order {
		if v == i {
			copy(k.order[p:], k.order[p+1:])
			k.order[len(k.order)-1] = i
			return
		}
	}
}

type smoResult struct {
	alpha      []float64
	rho        float64
	iterations int
	converged  bool
}

// solveSMO minimises 0.5*a'Qa - e'a subject to 0 <= a <= C and y'a = 0 with
// Q_ij = y_i*y_j*K_ij, updating the maximal violating pair each iteration.
func solveSMO(k *kernelMatrix, y []float64, c, tol float64, maxIter int) smoResult {
	n := len(y)
	alpha := make([]float64, n)
	grad := make([]float64, n)
	for i := range grad {
		grad[i] = -1
	}

	upper := func(t int) bool {
		return (y[t] > 0 && alpha[t] < c) || (y[t] < 0 && alpha[t] > 0)
	}
	lower := func(t int) bool {
		return (y[t] > 0 && alpha[t] > 0) || (y[t] < 0 && alpha[t] < c)
	}

	iter := 0
	converged := false
	for ; iter < maxIter; iter++ {
		i, j := -1, -1
		gmax, gmin := math.Inf(-1), math.Inf(1)
		for t := 0; t < n; t++ {
			v := -y[t] * grad[t]
			if upper(t) && v > gmax {
				gmax, i = v, t
			}
			if lower(t) && v < gmin {
				gmin, j = v, t
			}
		}
		if i < 0 || j < 0 || gmax-gmin < tol {
			converged = true
			break
		}

		ki, kj := k.row(i), k.row(j)
		eta := k.diag[i] + k.diag[j] - 2*ki[j]
		if eta <= 0 {
			eta = tau
		}
		step := (gmax - gmin) / eta

		// box constraints along the direction (y_i, -y_j)
		if y[i] > 0 {
			step = math.Min(step, c-alpha[i])
		} else {
			step = math.Min(step, alpha[i])
		}
		if y[j] > 0 {
			step = math.Min(step, alpha[j])
		} else {
			step = math.Min(step, c-alpha[j])
		}

		alpha[i] = errors.ClipValue(alpha[i]+y[i]*step, 0, c)
		alpha[j] = errors.ClipValue(alpha[j]-y[j]*step, 0, c)
		for t := 0; t < n; t++ {
			grad[t] += y[t] * step * (ki[t] - kj[t])
		}
	}

	return smoResult{
		alpha:      alpha,
		rho:        computeRho(alpha, grad, y, c),
		iterations: iter,
		converged:  converged,
	}
}

// computeRho averages y_i*G_i over free support vectors, or takes the
// midpoint of the feasible interval when there are none.
func computeRho(alpha, grad, y []float64, c float64) float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	sum, nFree := 0.0, 0
	for t := range alpha {
		yg := y[t] * grad[t]
		switch {
		case alpha[t] >= c:
			if y[t] > 0 {
				lb = math.Max(lb, yg)
			} else {
				ub = math.Min(ub, yg)
			}
		case alpha[t] <= 0:
			if y[t] > 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			sum += yg
			nFree++
		}
	}
	if nFree > 0 {
		return sum / float64(nFree)
	}
	return (ub + lb) / 2
}

// plattScaling fits P(y=1|f) = 1/(1+exp(A*f+B)) by Newton's method with
// backtracking (Lin, Lin and Weng, 2007).
func plattScaling(dec, y []float64) (float64, float64) {
	const (
		maxIter = 100
		minStep = 1e-10
		sigma   = 1e-12
		eps     = 1e-5
	)
	prior1, prior0 := 0.0, 0.0
	for _, v := range y {
		if v > 0 {
			prior1++
		} else {
			prior0++
		}
	}
	hiTarget := (prior1 + 1) / (prior1 + 2)
	loTarget := 1 / (prior0 + 2)
	t := make([]float64, len(y))
	for i, v := range y {
		if v > 0 {
			t[i] = hiTarget
		} else {
			t[i] = loTarget
		}
	}

	objective := func(a, b float64) float64 {
		f := 0.0
		for i, d := range dec {
			fApB := d*a + b
			if fApB >= 0 {
				f += t[i]*fApB + math.Log1p(errors.StabilizeExp(-fApB))
			} else {
				f += (t[i]-1)*fApB + math.Log1p(errors.StabilizeExp(fApB))
			}
		}
		return f
	}

	a, b := 0.0, math.Log((prior0+1)/(prior1+1))
	fval := objective(a, b)
	for iter := 0; iter < maxIter; iter++ {
		h11, h22, h21, g1, g2 := sigma, sigma, 0.0, 0.0, 0.0
		for i, d := range dec {
			fApB := d*a + b
			var p, q float64
			if fApB >= 0 {
				e := errors.StabilizeExp(-fApB)
				p, q = e/(1+e), 1/(1+e)
			} else {
				e := errors.StabilizeExp(fApB)
				p, q = 1/(1+e), e/(1+e)
			}
			d2 := p * q
			h11 += d * d * d2
			h22 += d2
			h21 += d * d2
			d1 := t[i] - p
			g1 += d * d1
			g2 += d1
		}
		if math.Abs(g1) < eps && math.Abs(g2) < eps {
			break
		}

		det := h11*h22 - h21*h21
		dA := -(h22*g1 - h21*g2) / det
		dB := -(-h21*g1 + h11*g2) / det
		gd := g1*dA + g2*dB

		step := 1.0
		for step >= minStep {
			newA, newB := a+step*dA, b+step*dB
			newF := objective(newA, newB)
			if newF < fval+1e-4*step*gd {
				a, b, fval = newA, newB, newF
				break
			}
			step /= 2
		}
		if step < minStep {
			break
		}
	}
	return a, b
}

// sigmoidProbability evaluates the fitted Platt sigmoid
func sigmoidProbability(dec, a, b float64) float64 {
	fApB := dec*a + b
	if fApB >= 0 {
		e := errors.StabilizeExp(-fApB)
		return e / (1 + e)
	}
	return 1 / (1 + errors.StabilizeExp(fApB))
}
