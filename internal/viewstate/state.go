// Package viewstate は表示層向けのリソース単位の状態コンテナを提供する。
// 各コンテナはデータ・読み込み中フラグ・エラーメッセージを保持し、
// 1つの公開メソッドにつき1つのゲートウェイ操作を呼び出して結果を状態に反映する。
//
// 取得要求には単調増加のトークンを割り当て、最新でない要求の完了結果は破棄する。
// Snapshotは常にコピーを返すため、呼び出し元が変更しても内部状態には影響しない。
package viewstate

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/hitoshi/socialdemo/internal/model"
)

// エラーメッセージ。表示層にそのまま表示される。
const (
	MsgFetchPosts     = "Failed to fetch posts"
	MsgCreatePost     = "Failed to create post"
	MsgToggleLike     = "Failed to toggle like"
	MsgFetchUsers     = "Failed to fetch users"
	MsgFetchComments  = "Failed to fetch comments"
	MsgFetchProducts  = "Failed to fetch products"
	MsgToggleFavorite = "Failed to toggle favorite"
	MsgFetchProduct   = "Failed to fetch product"
)

// Status は全コンテナ共通の読み込み状態とエラー状態。
// Errorは表示用の文字列、ErrorKindはその下にある構造化された失敗種別。
type Status struct {
	Loading   bool            `json:"loading"`
	Error     string          `json:"error,omitempty"`
	ErrorKind model.ErrorKind `json:"errorKind,omitempty"`
	// Degraded は表示中のデータがフォールバック値であることを表す。
	Degraded bool `json:"degraded"`
}

// fail はエラーメッセージと種別を設定する。
func (s *Status) fail(msg string, err error) {
	s.Error = msg
	s.ErrorKind = model.KindOf(err)
	if s.ErrorKind == model.KindNone {
		s.ErrorKind = model.KindInternal
	}
}

func (s *Status) clearError() {
	s.Error = ""
	s.ErrorKind = model.KindNone
}

// requests は取得要求のトークンを管理する。ロックは呼び出し元が保持する。
type requests struct {
	latest uint64
}

func (r *requests) next() uint64 {
	r.latest++
	return r.latest
}

func (r *requests) isLatest(token uint64) bool {
	return token == r.latest
}

// errPanic はゲートウェイ呼び出し中のpanicを表す。
var errPanic = errors.New("gateway panicked")

// protect はfnを実行し、panicをKindInternalのエラーに変換する。
// panic時はfnの戻り値を使わず、呼び出し元が直前のデータを保持できるようにする。
func protect(logger *slog.Logger, op string, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic recovered",
				slog.String("operation", op),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
			err = &model.GatewayError{Op: op, Kind: model.KindInternal, Err: fmt.Errorf("%w: %v", errPanic, rec)}
		}
	}()
	return fn()
}

// isPanic はprotectがpanicを捕捉したエラーかを返す。
func isPanic(err error) bool {
	return errors.Is(err, errPanic)
}

func clonePosts(posts []model.Post) []model.Post {
	out := make([]model.Post, len(posts))
	for i, p := range posts {
		out[i] = p.Clone()
	}
	return out
}

func cloneProducts(products []model.Product) []model.Product {
	out := make([]model.Product, len(products))
	for i, p := range products {
		out[i] = p.Clone()
	}
	return out
}
