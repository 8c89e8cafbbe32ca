package linalg

import (
	"gonum.org/v1/gonum/mat"
)

// Kron returns the Kronecker product f0 ⊗ f1 ⊗ ... in the given order, so
// the first factor owns the most significant index bits. With no factors
// it returns the 1×1 identity.
func Kron(factors ...*mat.CDense) *mat.CDense {
	out := Eye(1)
	for _, f := range factors {
		out = kron2(out, f)
	}
	return out
}

// KronPower returns m ⊗ m ⊗ ... (n copies).
func KronPower(m *mat.CDense, n int) *mat.CDense {
	factors := make([]*mat.CDense, n)
	for i := range factors {
		factors[i] = m
	}
	return Kron(factors...)
}

func kron2(a, b *mat.CDense) *mat.CDense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	out := mat.NewCDense(ar*br, ac*bc, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			v := a.At(i, j)
			if v == 0 {
				continue
			}
			for k := 0; k < br; k++ {
				for l := 0; l < bc; l++ {
					out.Set(i*br+k, j*bc+l, v*b.At(k, l))
				}
			}
		}
	}
	return out
}

// ApplyKron returns x·(f0 ⊗ f1 ⊗ ...) without materializing the
// Kronecker product. Every factor must be square and the product of
// their sizes must equal the column count of x. Each factor is
// contracted against its own block of index bits in turn, so memory
// stays at O(rows·cols) instead of O(cols²).
func ApplyKron(x *mat.CDense, factors []*mat.CDense) *mat.CDense {
	rows, cols := x.Dims()
	dims := make([]int, len(factors))
	total := 1
	for i, f := range factors {
		r, c := f.Dims()
		if r != c {
			panic(mat.ErrSquare)
		}
		dims[i] = r
		total *= r
	}
	if total != cols {
		panic(mat.ErrShape)
	}

	cur := Rows(x)
	next := make([]complex128, len(cur))
	left := 1
	for i, f := range factors {
		di := dims[i]
		right := cols / (left * di)
		fr := f.RawCMatrix()
		for b := 0; b < rows; b++ {
			src := cur[b*cols : (b+1)*cols]
			dst := next[b*cols : (b+1)*cols]
			for l := 0; l < left; l++ {
				for r := 0; r < right; r++ {
					base := l*di*right + r
					for k := 0; k < di; k++ {
						var sum complex128
						for j := 0; j < di; j++ {
							sum += src[base+j*right] * fr.Data[j*fr.Stride+k]
						}
						dst[base+k*right] = sum
					}
				}
			}
		}
		cur, next = next, cur
		left *= di
	}
	return mat.NewCDense(rows, cols, cur)
}

// ConjTransposeAll returns fᴴ for every factor, in the same order.
// (A⊗B)ᴴ = Aᴴ⊗Bᴴ, so this is the factored form of the adjoint.
func ConjTransposeAll(factors []*mat.CDense) []*mat.CDense {
	out := make([]*mat.CDense, len(factors))
	for i, f := range factors {
		r, c := f.Dims()
		h := mat.NewCDense(c, r, nil)
		h.Copy(f.H())
		out[i] = h
	}
	return out
}
