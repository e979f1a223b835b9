// Package handler はビュー状態コンテナをJSONで公開するHTTPハンドラーを提供する。
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/socialdemo/internal/middleware"
	"github.com/hitoshi/socialdemo/internal/model"
)

// writeAPIError はAPIErrorコードに対応するステータスで統一エラーレスポンスを書き込む。
func writeAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest, model.ErrCodeInvalidID:
		return http.StatusBadRequest
	case model.ErrCodeProductNotFound, model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodePostNotCreated, model.ErrCodeToggleFailed, model.ErrCodeUpstreamFailed:
		return http.StatusBadGateway
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// parseID はURLパラメータ "id" を正の整数として取り出す。
func parseID(r *http.Request) (int, *model.APIError) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, model.NewInvalidIDError(raw)
	}
	return id, nil
}

// shared はコンテナ操作用のコンテキストを返す。
// コンテナの状態は全クライアントで共有するため、クライアントの切断では取得を中断しない。
// 取得時間の上限はゲートウェイのタイムアウトで制御される。
func shared(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// notFound は未定義ルートに統一フォーマットの404を返す。
func notFound(w http.ResponseWriter, r *http.Request) {
	writeAPIError(w, &model.APIError{
		Code:     model.ErrCodeNotFound,
		Message:  "指定されたエンドポイントは存在しません: " + r.URL.Path,
		Category: "validation",
		Action:   "URLを確認してください。",
	})
}

// methodNotAllowed は許可されていないメソッドに統一フォーマットの405を返す。
func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	middleware.WriteErrorResponse(w, http.StatusMethodNotAllowed, &model.APIError{
		Code:     model.ErrCodeInvalidRequest,
		Message:  "許可されていないメソッドです: " + r.Method,
		Category: "validation",
		Action:   "APIドキュメントを確認してください。",
	})
}
