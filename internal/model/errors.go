// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodePostNotCreated  = "POST_NOT_CREATED"
	ErrCodeToggleFailed    = "TOGGLE_FAILED"
	ErrCodeProductNotFound = "PRODUCT_NOT_FOUND"
	ErrCodeInvalidID       = "INVALID_ID"
	ErrCodeUpstreamFailed  = "UPSTREAM_FAILED"
	ErrCodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidIDError はID形式エラーを生成する。
func NewInvalidIDError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidID,
		Message:  fmt.Sprintf("無効なIDです: %s", raw),
		Category: "validation",
		Action:   "正の整数のIDを指定してください。",
	}
}

// NewPostNotCreatedError は投稿作成失敗エラーを生成する。
func NewPostNotCreatedError() *APIError {
	return &APIError{
		Code:     ErrCodePostNotCreated,
		Message:  "Failed to create post",
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewToggleFailedError はいいね/お気に入り切り替え失敗エラーを生成する。
func NewToggleFailedError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeToggleFailed,
		Message:  message,
		Category: "upstream",
		Action:   "もう一度お試しください。",
	}
}

// NewProductNotFoundError は商品未検出エラーを生成する。
func NewProductNotFoundError(id int) *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  fmt.Sprintf("指定された商品が見つかりません: %d", id),
		Category: "upstream",
		Action:   "商品IDを確認してください。",
	}
}

// ErrDegraded は外部APIの呼び出しに失敗し、フォールバック値を返したことを表す。
var ErrDegraded = errors.New("upstream unavailable, fallback data returned")

// ErrorKind は外部API呼び出し失敗の種別を表す。
type ErrorKind string

const (
	// KindNone はエラーが発生していないことを表す。
	KindNone ErrorKind = ""
	// KindTransport はネットワーク・通信レベルの失敗。
	KindTransport ErrorKind = "transport"
	// KindStatus は2xx以外のHTTPステータス。
	KindStatus ErrorKind = "status"
	// KindDecode はレスポンス形式の不一致。
	KindDecode ErrorKind = "decode"
	// KindTimeout はゲートウェイ境界のタイムアウト。
	KindTimeout ErrorKind = "timeout"
	// KindInternal は想定外のpanicなど内部エラー。
	KindInternal ErrorKind = "internal"
)

// GatewayError は外部API呼び出しの失敗を表す。
// errors.Is(err, ErrDegraded) はフォールバック値が返された場合にtrueとなる。
type GatewayError struct {
	Op       string    // 操作名（例: get_posts）
	Kind     ErrorKind // 失敗種別
	Status   int       // KindStatusの場合のHTTPステータス
	Err      error     // 元のエラー
	Degraded bool      // フォールバック値を返したかどうか
}

// Error はerrorインターフェースを実装する。
func (e *GatewayError) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("%s: %s: HTTP %d", e.Op, e.Kind, e.Status)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Is はフォールバック返却時にErrDegradedと一致させる。
func (e *GatewayError) Is(target error) bool {
	return target == ErrDegraded && e.Degraded
}

// KindOf はエラーからErrorKindを取り出す。GatewayErrorでない場合はKindInternal。
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return KindInternal
}
