package viewstate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/socialdemo/internal/fixture"
	"github.com/hitoshi/socialdemo/internal/model"
)

// PostsSource は投稿コンテナが利用するゲートウェイ操作。
type PostsSource interface {
	GetPosts(ctx context.Context) ([]model.Post, error)
	CreatePost(ctx context.Context, content string, authorID int) (*model.Post, error)
	ToggleLike(ctx context.Context, postID int) bool
}

// PostsSnapshot は投稿コンテナの状態のコピー。
type PostsSnapshot struct {
	Posts []model.Post `json:"posts"`
	Status
}

// PostsState はフィードの投稿一覧の状態を保持する。
// 初期データは固定投稿一覧で、最初の取得は所有者がFetchPostsを呼び出して開始する。
type PostsState struct {
	source PostsSource
	logger *slog.Logger

	mu     sync.Mutex
	posts  []model.Post
	status Status
	reqs   requests
}

// NewPostsState はPostsStateの新しいインスタンスを生成する。
func NewPostsState(source PostsSource, logger *slog.Logger) *PostsState {
	return &PostsState{
		source: source,
		logger: logger,
		posts:  fixture.Posts(),
	}
}

// FetchPosts は投稿一覧を再取得する。
// フォールバック値が返された場合はデータを置き換えたうえでエラーを記録する。
func (s *PostsState) FetchPosts(ctx context.Context) {
	s.mu.Lock()
	token := s.reqs.next()
	s.status.Loading = true
	s.status.clearError()
	s.mu.Unlock()

	var posts []model.Post
	err := protect(s.logger, "fetch_posts", func() error {
		var err error
		posts, err = s.source.GetPosts(ctx)
		return err
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.reqs.isLatest(token) {
		s.logger.Debug("古い投稿取得結果を破棄しました", slog.Uint64("token", token))
		return
	}
	s.status.Loading = false
	s.status.Degraded = err != nil && !isPanic(err)
	if err != nil {
		s.status.fail(MsgFetchPosts, err)
	}
	if !isPanic(err) {
		s.posts = posts
	}
}

// CreatePost は投稿を作成し、成功時は一覧の先頭に追加する。
// 失敗時は一覧を変更せずにエラーを記録してfalseを返す。
func (s *PostsState) CreatePost(ctx context.Context, content string) bool {
	var post *model.Post
	err := protect(s.logger, "create_post", func() error {
		var err error
		post, err = s.source.CreatePost(ctx, content, 0)
		return err
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil || post == nil {
		s.status.fail(MsgCreatePost, err)
		return false
	}
	s.posts = append([]model.Post{post.Clone()}, s.posts...)
	return true
}

// ToggleLike はいいねを切り替える。成功時のみ該当投稿のいいね状態といいね数を更新する。
func (s *PostsState) ToggleLike(ctx context.Context, postID int) bool {
	var ok bool
	err := protect(s.logger, "toggle_like", func() error {
		ok = s.source.ToggleLike(ctx, postID)
		return nil
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil || !ok {
		s.status.fail(MsgToggleLike, err)
		return false
	}
	updated := make([]model.Post, len(s.posts))
	for i, p := range s.posts {
		if p.ID == postID {
			p = p.WithLikeToggled()
		}
		updated[i] = p
	}
	s.posts = updated
	return true
}

// DismissError は表示中のエラーメッセージを消去する。
func (s *PostsState) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.clearError()
}

// Snapshot は現在の状態のコピーを返す。
func (s *PostsState) Snapshot() PostsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return PostsSnapshot{Posts: clonePosts(s.posts), Status: s.status}
}

// UsersSource はユーザーコンテナが利用するゲートウェイ操作。
type UsersSource interface {
	GetUsers(ctx context.Context) ([]model.User, error)
}

// UsersSnapshot はユーザーコンテナの状態のコピー。
type UsersSnapshot struct {
	Users []model.User `json:"users"`
	Status
}

// UsersState はユーザー一覧の状態を保持する。初期データは固定ユーザー一覧。
type UsersState struct {
	source UsersSource
	logger *slog.Logger

	mount sync.Once

	mu     sync.Mutex
	users  []model.User
	status Status
	reqs   requests
}

// NewUsersState はUsersStateの新しいインスタンスを生成する。
func NewUsersState(source UsersSource, logger *slog.Logger) *UsersState {
	return &UsersState{
		source: source,
		logger: logger,
		users:  fixture.Users(),
	}
}

// Mount は初回利用時に1度だけユーザー一覧を取得する。2回目以降は何もしない。
func (s *UsersState) Mount(ctx context.Context) {
	s.mount.Do(func() { s.FetchUsers(ctx) })
}

// FetchUsers はユーザー一覧を再取得する。
func (s *UsersState) FetchUsers(ctx context.Context) {
	s.mu.Lock()
	token := s.reqs.next()
	s.status.Loading = true
	s.status.clearError()
	s.mu.Unlock()

	var users []model.User
	err := protect(s.logger, "fetch_users", func() error {
		var err error
		users, err = s.source.GetUsers(ctx)
		return err
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.reqs.isLatest(token) {
		return
	}
	s.status.Loading = false
	s.status.Degraded = err != nil && !isPanic(err)
	if err != nil {
		s.status.fail(MsgFetchUsers, err)
	}
	if !isPanic(err) {
		s.users = users
	}
}

// Snapshot は現在の状態のコピーを返す。
func (s *UsersState) Snapshot() UsersSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return UsersSnapshot{Users: append([]model.User(nil), s.users...), Status: s.status}
}

// CommentsSource はコメントコンテナが利用するゲートウェイ操作。
type CommentsSource interface {
	GetComments(ctx context.Context, postID int) ([]model.Comment, error)
}

// CommentsSnapshot はコメントコンテナの状態のコピー。
type CommentsSnapshot struct {
	PostID   int             `json:"postId"`
	Comments []model.Comment `json:"comments"`
	Status
}

// CommentsState は1つの投稿に対するコメント一覧の状態を保持する。
// 対象の投稿IDが変わるたびに再取得する。
type CommentsState struct {
	source CommentsSource
	logger *slog.Logger

	mu       sync.Mutex
	postID   int
	mounted  bool
	comments []model.Comment
	status   Status
	reqs     requests
}

// NewCommentsState はCommentsStateの新しいインスタンスを生成する。
func NewCommentsState(source CommentsSource, logger *slog.Logger) *CommentsState {
	return &CommentsState{
		source:   source,
		logger:   logger,
		comments: []model.Comment{},
	}
}

// SetPostID は対象の投稿IDを設定し、初回または値が変わった場合にコメントを取得する。
// 取得した場合はtrueを返す。
func (s *CommentsState) SetPostID(ctx context.Context, postID int) bool {
	s.mu.Lock()
	if s.mounted && s.postID == postID {
		s.mu.Unlock()
		return false
	}
	s.mounted = true
	s.postID = postID
	s.mu.Unlock()

	s.FetchComments(ctx)
	return true
}

// FetchComments は現在の投稿IDのコメントを再取得する。投稿IDが未設定（0以下）の場合は何もしない。
func (s *CommentsState) FetchComments(ctx context.Context) {
	s.mu.Lock()
	postID := s.postID
	if postID <= 0 {
		s.mu.Unlock()
		return
	}
	token := s.reqs.next()
	s.status.Loading = true
	s.status.clearError()
	s.mu.Unlock()

	var comments []model.Comment
	err := protect(s.logger, "fetch_comments", func() error {
		var err error
		comments, err = s.source.GetComments(ctx, postID)
		return err
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.reqs.isLatest(token) {
		return
	}
	s.status.Loading = false
	s.status.Degraded = err != nil && !isPanic(err)
	if err != nil {
		s.status.fail(MsgFetchComments, err)
	}
	if !isPanic(err) {
		if comments == nil {
			comments = []model.Comment{}
		}
		s.comments = comments
	}
}

// Snapshot は現在の状態のコピーを返す。
func (s *CommentsState) Snapshot() CommentsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CommentsSnapshot{
		PostID:   s.postID,
		Comments: append([]model.Comment{}, s.comments...),
		Status:   s.status,
	}
}
