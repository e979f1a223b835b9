package gateway

import "math/rand/v2"

// Random はデモ用のランダム項目（状態、所在地、切り替え成否など）の乱数ソース。
// テストでは固定値を返す実装に差し替える。
type Random interface {
	// Float64 は[0.0, 1.0)の値を返す。
	Float64() float64
	// IntN は[0, n)の値を返す。nは正であること。
	IntN(n int) int
}

type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }
func (globalRandom) IntN(n int) int   { return rand.IntN(n) }

// DefaultRandom はmath/rand/v2のグローバルソースを使うRandomを返す。goroutineセーフ。
func DefaultRandom() Random {
	return globalRandom{}
}

// above は乱数がthresholdより大きい場合にtrueを返す。
func above(r Random, threshold float64) bool {
	return r.Float64() > threshold
}

// between は[lo, lo+span)の整数を返す。
func between(r Random, lo, span int) int {
	return lo + r.IntN(span)
}
