package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/socialdemo/internal/fixture"
	"github.com/hitoshi/socialdemo/internal/model"
)

const (
	// maxFeedPosts はフィードに表示する投稿の最大件数。
	maxFeedPosts = 10
	// maxComments は1投稿あたりに取得するコメントの最大件数。
	maxComments = 5
	// maxTitleRunes は投稿作成時のタイトル文字数。
	maxTitleRunes = 50
	// defaultAuthorID は投稿作成時のデフォルト投稿者ID。
	defaultAuthorID = 1
	// toggleFailureThreshold 以下の乱数で切り替えは失敗する（成功率90%）。
	toggleFailureThreshold = 0.1
)

// apiPost は投稿APIのレスポンス形式。
type apiPost struct {
	ID     int    `json:"id"`
	UserID int    `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// apiUser はユーザーAPIのレスポンス形式。
type apiUser struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Website  string `json:"website"`
	Company  struct {
		CatchPhrase string `json:"catchPhrase"`
	} `json:"company"`
	Address struct {
		City    string `json:"city"`
		Zipcode string `json:"zipcode"`
	} `json:"address"`
}

// apiComment はコメントAPIのレスポンス形式。
type apiComment struct {
	ID     int    `json:"id"`
	PostID int    `json:"postId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Body   string `json:"body"`
}

// createPostRequest は投稿作成APIのリクエストボディ。
type createPostRequest struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	UserID int    `json:"userId"`
}

// GetPosts は投稿一覧を取得する。
// 各投稿は位置に応じた固定ユーザーと組み合わせ、表示用の項目をランダムに補完する。
// 失敗時は固定投稿一覧とErrDegradedを返す。
func (g *Gateway) GetPosts(ctx context.Context) ([]model.Post, error) {
	var raw []apiPost
	if err := g.getJSON(ctx, opGetPosts, upstreamPosts, g.cfg.PostsBaseURL+"/posts", &raw); err != nil {
		return degrade(g, opGetPosts, fixture.Posts(), err)
	}

	if len(raw) > maxFeedPosts {
		raw = raw[:maxFeedPosts]
	}
	now := g.now()
	posts := make([]model.Post, 0, len(raw))
	for i, p := range raw {
		posts = append(posts, g.toPost(p, i, now))
	}
	return posts, nil
}

// toPost は投稿APIのレコードを正規の投稿に変換する。
func (g *Gateway) toPost(p apiPost, index int, now time.Time) model.Post {
	companion := fixture.UserAt(index)

	user := companion
	user.ID = p.UserID
	user.Avatar = avatarURL(p.UserID)
	user.CoverPhoto = coverURL(p.UserID)
	g.randomizeSocial(&user)

	post := model.Post{
		ID:      p.ID,
		User:    user,
		Content: g.sanitizer.Sanitize(p.Body),
		Type:    model.PostTypeText,
	}
	if above(g.random, 0.6) {
		post.Media = []model.Media{{
			Type: model.MediaTypeImage,
			URL:  fmt.Sprintf("https://picsum.photos/600/400?random=%d", p.ID),
		}}
	}
	age := time.Duration(g.random.Float64() * float64(7*24*time.Hour))
	post.Timestamp = displayTime(now.Add(-age))
	post.Likes = between(g.random, 0, 500)
	post.Comments = between(g.random, 0, 50)
	post.Shares = between(g.random, 0, 20)
	post.IsLiked = above(g.random, 0.7)
	if above(g.random, 0.6) {
		post.Location = companion.Location
	}
	return post
}

// randomizeSocial はフォロー数などのソーシャル項目と在席状態をランダムに設定する。
func (g *Gateway) randomizeSocial(u *model.User) {
	u.Friends = between(g.random, 100, 1000)
	u.Following = between(g.random, 50, 800)
	u.Followers = between(g.random, 200, 2000)
	u.IsOnline = above(g.random, 0.5)
	u.LastSeen = ""
	if !u.IsOnline && above(g.random, 0.7) {
		u.LastSeen = fmt.Sprintf("%d hours ago", g.random.IntN(24))
	}
}

// GetUsers はユーザー一覧を取得する。
// 失敗時は固定ユーザー一覧とErrDegradedを返す。
func (g *Gateway) GetUsers(ctx context.Context) ([]model.User, error) {
	var raw []apiUser
	if err := g.getJSON(ctx, opGetUsers, upstreamPosts, g.cfg.PostsBaseURL+"/users", &raw); err != nil {
		return degrade(g, opGetUsers, fixture.Users(), err)
	}

	users := make([]model.User, 0, len(raw))
	for _, u := range raw {
		user := model.User{
			ID:         u.ID,
			Name:       u.Name,
			Username:   u.Username,
			Avatar:     avatarURL(u.ID),
			CoverPhoto: coverURL(u.ID + 100),
			Bio:        fmt.Sprintf("%s | %s", u.Company.CatchPhrase, u.Address.City),
			Location:   fmt.Sprintf("%s, %s", u.Address.City, u.Address.Zipcode),
			Website:    u.Website,
			JoinDate:   "January 2020",
		}
		g.randomizeSocial(&user)
		users = append(users, user)
	}
	return users, nil
}

// GetComments は投稿のコメントを最大5件取得する。
// 失敗時は空のスライスとErrDegradedを返す（固定コメントは存在しない）。
func (g *Gateway) GetComments(ctx context.Context, postID int) ([]model.Comment, error) {
	var raw []apiComment
	url := fmt.Sprintf("%s/posts/%d/comments", g.cfg.PostsBaseURL, postID)
	if err := g.getJSON(ctx, opGetComments, upstreamPosts, url, &raw); err != nil {
		return degrade(g, opGetComments, []model.Comment{}, err)
	}

	if len(raw) > maxComments {
		raw = raw[:maxComments]
	}
	now := g.now()
	comments := make([]model.Comment, 0, len(raw))
	for _, c := range raw {
		username, _, _ := strings.Cut(c.Email, "@")
		age := time.Duration(g.random.Float64() * float64(24*time.Hour))
		comments = append(comments, model.Comment{
			ID:      c.ID,
			Content: g.sanitizer.Sanitize(c.Body),
			User: model.CommentAuthor{
				ID:       c.ID,
				Name:     c.Name,
				Username: username,
				Avatar:   avatarURL(c.ID + 50),
			},
			Timestamp: displayTime(now.Add(-age)),
			Likes:     between(g.random, 0, 20),
		})
	}
	return comments, nil
}

// CreatePost は投稿を作成する。authorIDが0以下の場合はデフォルトの投稿者を使う。
// 作成された投稿は現在のユーザーに帰属し、反応数は0で初期化される。
// 失敗時はnilとエラーを返す（成功を装った投稿は生成しない）。
func (g *Gateway) CreatePost(ctx context.Context, content string, authorID int) (*model.Post, error) {
	if authorID <= 0 {
		authorID = defaultAuthorID
	}
	req := createPostRequest{
		Title:  truncateRunes(content, maxTitleRunes),
		Body:   content,
		UserID: authorID,
	}

	var created apiPost
	if err := g.postJSON(ctx, opCreatePost, upstreamPosts, g.cfg.PostsBaseURL+"/posts", req, &created); err != nil {
		return nil, err
	}

	return &model.Post{
		ID:        created.ID,
		User:      fixture.CurrentUser(),
		Content:   created.Body,
		Type:      model.PostTypeText,
		Timestamp: displayTime(g.now()),
	}, nil
}

// ToggleLike はいいねの切り替えをサーバーに送信したものとして擬似的に処理する。
// 固定の遅延の後、90%の確率で成功する。コンテキストがキャンセルされた場合はfalse。
func (g *Gateway) ToggleLike(ctx context.Context, postID int) bool {
	return g.simulateToggle(ctx, opToggleLike, slog.Int("post_id", postID))
}

// simulateToggle は切り替え系操作の共通処理。
func (g *Gateway) simulateToggle(ctx context.Context, op string, target slog.Attr) bool {
	g.logger.Debug("切り替えを送信します", slog.String("operation", op), target)

	if !sleep(ctx, g.cfg.ToggleDelay) {
		g.logger.Error("切り替えが中断されました",
			slog.String("operation", op),
			target,
			slog.String("error", context.Cause(ctx).Error()),
		)
		g.metrics.RecordToggle(op, false)
		return false
	}

	ok := above(g.random, toggleFailureThreshold)
	g.metrics.RecordToggle(op, ok)
	if !ok {
		g.logger.Warn("切り替えに失敗しました", slog.String("operation", op), target)
	}
	return ok
}

// Probe は投稿APIの死活確認を行う。到達可能で2xxを返した場合にnilを返す。
func (g *Gateway) Probe(ctx context.Context) error {
	return g.getJSON(ctx, opProbe, upstreamPosts, g.cfg.PostsBaseURL+"/posts/1", nil)
}

func avatarURL(id int) string {
	return fmt.Sprintf("https://i.pravatar.cc/150?img=%d", id)
}

func coverURL(seed int) string {
	return fmt.Sprintf("https://picsum.photos/850/320?random=%d", seed)
}

// truncateRunes は文字列を先頭n文字（rune単位）に切り詰める。
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
