package model

import "gonum.org/v1/gonum/mat"

// Transformer は列ごとの統計量を Fit で学習し、同じ幅の行列へ写す前処理。
// Transform は入力を変更せず新しい行列を返す。
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// InvertibleTransformer can map transformed rows back to the input space,
// e.g. to report scaled feature values in original units.
type InvertibleTransformer interface {
	Transformer
	InverseTransform(X mat.Matrix) (mat.Matrix, error)
}
