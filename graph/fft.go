package graph

import "math"

// fft is an in-place radix-2 transform of a fixed power-of-two size, with a
// precomputed bit-reversal permutation.
type fft struct {
	n       int
	bitPerm []int
}

func newFFT(n int) *fft {
	f := &fft{n: n, bitPerm: make([]int, n)}
	for i := range n {
		f.bitPerm[i] = i
	}
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			f.bitPerm[i], f.bitPerm[j] = f.bitPerm[j], f.bitPerm[i]
		}
	}
	return f
}

// transform computes the forward transform of c, or the inverse (without
// the 1/n scaling) if inverse is true.
func (f *fft) transform(c []complex128, inverse bool) {
	for i, j := range f.bitPerm {
		if i < j {
			c[i], c[j] = c[j], c[i]
		}
	}
	sign := -1.0
	if inverse {
		sign = 1
	}
	n := f.n
	for length := 2; length <= n; length <<= 1 {
		ang := sign * 2 * math.Pi / float64(length)
		wlen := complex(math.Cos(ang), math.Sin(ang))
		for i := 0; i < n; i += length {
			w := complex(1, 0)
			for j := 0; j < length/2; j++ {
				u := c[i+j]
				v := c[i+j+length/2] * w
				c[i+j] = u + v
				c[i+j+length/2] = u - v
				w *= wlen
			}
		}
	}
}
