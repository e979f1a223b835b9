package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/socialdemo/internal/fixture"
	"github.com/hitoshi/socialdemo/internal/middleware"
	"github.com/hitoshi/socialdemo/internal/model"
	"github.com/hitoshi/socialdemo/internal/viewstate"
)

const (
	// maxPostContentRunes は投稿本文の最大文字数。
	maxPostContentRunes = 5000
	// maxRequestBodyBytes はJSONリクエストボディの最大サイズ。
	maxRequestBodyBytes = 64 << 10
)

// PostsContainer はタイムラインのビュー状態コンテナのインターフェース。
type PostsContainer interface {
	FetchPosts(ctx context.Context)
	CreatePost(ctx context.Context, content string) bool
	ToggleLike(ctx context.Context, postID int) bool
	Snapshot() viewstate.PostsSnapshot
}

// UsersContainer はユーザー一覧のビュー状態コンテナのインターフェース。
type UsersContainer interface {
	FetchUsers(ctx context.Context)
	Snapshot() viewstate.UsersSnapshot
}

// PostsHandler はタイムライン・ユーザー・ストーリー・検索のHTTPハンドラー。
type PostsHandler struct {
	posts    PostsContainer
	users    UsersContainer
	comments viewstate.CommentsSource
	logger   *slog.Logger
}

// NewPostsHandler はPostsHandlerを生成する。
func NewPostsHandler(posts PostsContainer, users UsersContainer, comments viewstate.CommentsSource, logger *slog.Logger) *PostsHandler {
	return &PostsHandler{
		posts:    posts,
		users:    users,
		comments: comments,
		logger:   logger,
	}
}

// createPostRequest は投稿作成リクエストのボディ。
type createPostRequest struct {
	Content string `json:"content"`
}

// searchResponse は検索結果のレスポンス。
type searchResponse struct {
	Query string       `json:"query"`
	Users []model.User `json:"users"`
	Posts []model.Post `json:"posts"`
}

// ListPosts はタイムラインの現在の状態を返す。
// GET /api/posts
func (h *PostsHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.posts.Snapshot())
}

// RefreshPosts はタイムラインを再取得して状態を返す。
// POST /api/posts/refresh
func (h *PostsHandler) RefreshPosts(w http.ResponseWriter, r *http.Request) {
	h.posts.FetchPosts(shared(r))
	middleware.WriteJSON(w, http.StatusOK, h.posts.Snapshot())
}

// CreatePost は投稿を作成し、タイムラインの先頭に追加する。
// POST /api/posts
func (h *PostsHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		writeAPIError(w, model.NewInvalidRequestError("JSONの解析に失敗しました"))
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeAPIError(w, model.NewInvalidRequestError("contentは必須です"))
		return
	}
	if utf8.RuneCountInString(content) > maxPostContentRunes {
		writeAPIError(w, model.NewInvalidRequestError("contentが長すぎます"))
		return
	}

	if !h.posts.CreatePost(shared(r), content) {
		writeAPIError(w, model.NewPostNotCreatedError())
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, h.posts.Snapshot())
}

// ToggleLike は投稿のいいね状態を切り替える。
// POST /api/posts/{id}/like
func (h *PostsHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	id, apiErr := parseID(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	if !h.posts.ToggleLike(shared(r), id) {
		writeAPIError(w, model.NewToggleFailedError(viewstate.MsgToggleLike))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, h.posts.Snapshot())
}

// ListComments は投稿のコメント一覧を取得する。
// コメントはリクエストごとのコンテナで取得し、共有状態には保持しない。
// GET /api/posts/{id}/comments
func (h *PostsHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	id, apiErr := parseID(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	state := viewstate.NewCommentsState(h.comments, h.logger)
	state.SetPostID(r.Context(), id)
	middleware.WriteJSON(w, http.StatusOK, state.Snapshot())
}

// ListUsers はユーザー一覧の現在の状態を返す。
// GET /api/users
func (h *PostsHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.users.Snapshot())
}

// RefreshUsers はユーザー一覧を再取得して状態を返す。
// POST /api/users/refresh
func (h *PostsHandler) RefreshUsers(w http.ResponseWriter, r *http.Request) {
	h.users.FetchUsers(shared(r))
	middleware.WriteJSON(w, http.StatusOK, h.users.Snapshot())
}

// ListStories は固定のストーリー一覧を返す。
// GET /api/stories
func (h *PostsHandler) ListStories(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string][]model.Story{"stories": fixture.Stories()})
}

// Search は固定データのユーザーと投稿を検索する。
// GET /api/search?q=xxx
func (h *PostsHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	middleware.WriteJSON(w, http.StatusOK, searchResponse{
		Query: q,
		Users: fixture.SearchUsers(q),
		Posts: fixture.SearchPosts(q),
	})
}
