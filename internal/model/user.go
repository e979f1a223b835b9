package model

// User はフィードやマーケットプレイスに表示されるユーザーを表す。
// 取得・変換サイクルごとに丸ごと生成され、フィールド単位では更新しない。
type User struct {
	ID         int    `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Username   string `json:"username" yaml:"username"`
	Avatar     string `json:"avatar" yaml:"avatar"`
	CoverPhoto string `json:"coverPhoto" yaml:"coverPhoto"`
	Bio        string `json:"bio" yaml:"bio"`
	Location   string `json:"location" yaml:"location"`
	Website    string `json:"website" yaml:"website"`
	JoinDate   string `json:"joinDate" yaml:"joinDate"`
	Friends    int    `json:"friends" yaml:"friends"`
	Following  int    `json:"following" yaml:"following"`
	Followers  int    `json:"followers" yaml:"followers"`
	IsOnline   bool   `json:"isOnline" yaml:"isOnline"`
	LastSeen   string `json:"lastSeen,omitempty" yaml:"lastSeen"` // オフライン時のみ
}

// CommentAuthor はコメント投稿者の最小限の情報。Userの完全な形ではない。
type CommentAuthor struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}
