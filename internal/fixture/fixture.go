// Package fixture はデモ用の固定サンプルデータを提供する。
// 外部API障害時のフォールバック値と、APIが提供しない項目の補完元として使用する。
// データは起動時に1回だけ読み込まれる読み取り専用のデータセットで、
// 公開関数は常に新しいスライスを返す（呼び出し元が変更しても共有データは変わらない）。
package fixture

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hitoshi/socialdemo/internal/model"
)

//go:embed fixtures.yaml
var rawFixtures []byte

// dataset はfixtures.yamlのデコード結果。
type dataset struct {
	Users    []model.User
	Posts    []model.Post
	Products []model.Product
	Stories  []model.Story
}

// yamlPost などはユーザーをインデックスで参照するYAML上の表現。
type yamlPost struct {
	model.Post `yaml:",inline"`
	UserIndex  int `yaml:"userIndex"`
}

type yamlProduct struct {
	model.Product `yaml:",inline"`
	SellerIndex   int `yaml:"sellerIndex"`
}

type yamlStory struct {
	model.Story `yaml:",inline"`
	UserIndex   int `yaml:"userIndex"`
}

type yamlDocument struct {
	Users    []model.User  `yaml:"users"`
	Posts    []yamlPost    `yaml:"posts"`
	Products []yamlProduct `yaml:"products"`
	Stories  []yamlStory   `yaml:"stories"`
}

// load は埋め込みデータを一度だけデコードする。
// 埋め込みデータの破損はビルド成果物の欠陥のためpanicする。
var load = sync.OnceValue(func() *dataset {
	ds, err := decode(rawFixtures)
	if err != nil {
		panic(fmt.Sprintf("invalid embedded fixtures: %v", err))
	}
	return ds
})

// decode はYAMLからデータセットを構築し、ユーザー参照を解決する。
func decode(b []byte) (*dataset, error) {
	var doc yamlDocument
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("fixtureのパースに失敗しました: %w", err)
	}
	if len(doc.Users) == 0 {
		return nil, fmt.Errorf("fixtureにユーザーが含まれていません")
	}

	userAt := func(kind string, id, idx int) (model.User, error) {
		if idx < 0 || idx >= len(doc.Users) {
			return model.User{}, fmt.Errorf("%s %d: ユーザーインデックスが範囲外です: %d", kind, id, idx)
		}
		return doc.Users[idx], nil
	}

	ds := &dataset{Users: doc.Users}
	for _, p := range doc.Posts {
		u, err := userAt("post", p.ID, p.UserIndex)
		if err != nil {
			return nil, err
		}
		p.Post.User = u
		ds.Posts = append(ds.Posts, p.Post)
	}
	for _, p := range doc.Products {
		u, err := userAt("product", p.ID, p.SellerIndex)
		if err != nil {
			return nil, err
		}
		p.Product.Seller = u
		ds.Products = append(ds.Products, p.Product)
	}
	for _, s := range doc.Stories {
		u, err := userAt("story", s.ID, s.UserIndex)
		if err != nil {
			return nil, err
		}
		s.Story.User = u
		ds.Stories = append(ds.Stories, s.Story)
	}
	return ds, nil
}

// Users は固定ユーザー一覧のコピーを返す。
func Users() []model.User {
	return append([]model.User(nil), load().Users...)
}

// Posts は固定投稿一覧のコピーを返す。
func Posts() []model.Post {
	src := load().Posts
	out := make([]model.Post, len(src))
	for i, p := range src {
		out[i] = p.Clone()
	}
	return out
}

// Products は固定商品一覧のコピーを返す。
func Products() []model.Product {
	return ProductsPage(-1)
}

// ProductsPage は固定商品一覧の先頭limit件を返す。limitが負の場合は全件。
func ProductsPage(limit int) []model.Product {
	src := load().Products
	if limit >= 0 && limit < len(src) {
		src = src[:limit]
	}
	out := make([]model.Product, len(src))
	for i, p := range src {
		out[i] = p.Clone()
	}
	return out
}

// Stories は固定ストーリー一覧のコピーを返す。
func Stories() []model.Story {
	return append([]model.Story(nil), load().Stories...)
}

// UserCount は固定ユーザー数を返す。
func UserCount() int {
	return len(load().Users)
}

// UserAt は位置indexに対応する固定ユーザーをラウンドロビンで返す。
// 同じindexは同じユーザーに対応する。負のindexも範囲内に折り返す。
func UserAt(index int) model.User {
	users := load().Users
	i := index % len(users)
	if i < 0 {
		i += len(users)
	}
	return users[i]
}

// CurrentUser はデモ上のログインユーザー（先頭ユーザー）を返す。
func CurrentUser() model.User {
	return load().Users[0]
}

// ProductByID はIDに一致する固定商品を返す。
func ProductByID(id int) (model.Product, bool) {
	for _, p := range load().Products {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return model.Product{}, false
}

// SearchUsers は名前・ユーザー名・自己紹介に対して大文字小文字を区別しない部分一致検索を行う。
// 空白のみのクエリは空の結果を返す（全件は返さない）。
func SearchUsers(query string) []model.User {
	if strings.TrimSpace(query) == "" {
		return []model.User{}
	}
	q := strings.ToLower(query)
	out := []model.User{}
	for _, u := range load().Users {
		if containsFold(u.Name, q) || containsFold(u.Username, q) || containsFold(u.Bio, q) {
			out = append(out, u)
		}
	}
	return out
}

// SearchPosts は本文と投稿者名に対して大文字小文字を区別しない部分一致検索を行う。
// 空白のみのクエリは空の結果を返す。
func SearchPosts(query string) []model.Post {
	if strings.TrimSpace(query) == "" {
		return []model.Post{}
	}
	q := strings.ToLower(query)
	out := []model.Post{}
	for _, p := range load().Posts {
		if containsFold(p.Content, q) || containsFold(p.User.Name, q) {
			out = append(out, p.Clone())
		}
	}
	return out
}

func containsFold(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}
