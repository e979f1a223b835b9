package model

// PostType は投稿の種別を表す。
type PostType string

const (
	PostTypeText  PostType = "text"
	PostTypeImage PostType = "image"
	PostTypeVideo PostType = "video"
	PostTypeLink  PostType = "link"
)

// MediaType は添付メディアの種別を表す。
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// Media は投稿に添付されたメディアを表す。
type Media struct {
	Type      MediaType `json:"type" yaml:"type"`
	URL       string    `json:"url" yaml:"url"`
	Thumbnail string    `json:"thumbnail,omitempty" yaml:"thumbnail"`
}

// Post はフィードの投稿を表す。投稿者はUserを埋め込みで保持する。
// IsLikedとLikesは必ず同じ操作で更新する（WithLikeToggledを使う）。
type Post struct {
	ID        int      `json:"id" yaml:"id"`
	User      User     `json:"user" yaml:"-"`
	Content   string   `json:"content" yaml:"content"`
	Type      PostType `json:"type" yaml:"type"`
	Media     []Media  `json:"media,omitempty" yaml:"media"`
	Timestamp string   `json:"timestamp" yaml:"timestamp"` // 表示用に整形済みの文字列
	Likes     int      `json:"likes" yaml:"likes"`
	Comments  int      `json:"comments" yaml:"comments"`
	Shares    int      `json:"shares" yaml:"shares"`
	IsLiked   bool     `json:"isLiked" yaml:"isLiked"`
	Location  string   `json:"location,omitempty" yaml:"location"`
}

// WithLikeToggled はいいね状態を反転し、いいね数を±1したコピーを返す。
func (p Post) WithLikeToggled() Post {
	if p.IsLiked {
		p.Likes--
	} else {
		p.Likes++
	}
	p.IsLiked = !p.IsLiked
	return p
}

// Clone はMediaスライスを含めた独立したコピーを返す。
func (p Post) Clone() Post {
	if p.Media != nil {
		p.Media = append([]Media(nil), p.Media...)
	}
	return p
}

// Story はストーリーを表す。
type Story struct {
	ID        int       `json:"id" yaml:"id"`
	User      User      `json:"user" yaml:"-"`
	Type      MediaType `json:"type" yaml:"type"`
	Media     string    `json:"media" yaml:"media"`
	Timestamp string    `json:"timestamp" yaml:"timestamp"`
	IsViewed  bool      `json:"isViewed" yaml:"isViewed"`
}

// Comment は投稿ごとに取得される一時的なコメント。
type Comment struct {
	ID        int           `json:"id"`
	Content   string        `json:"content"`
	User      CommentAuthor `json:"user"`
	Timestamp string        `json:"timestamp"`
	Likes     int           `json:"likes"`
}
