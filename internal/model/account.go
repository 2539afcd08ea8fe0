// Package model はドメインモデルを定義する。
package model

import "time"

// AccountsCollection はアカウントドキュメントを格納するコレクション名。
const AccountsCollection = "users"

// Account は大学アカウント（プロフィールドキュメント）を表す。
// IDは認証サブシステムが発行した識別子と常に一致し、
// クレデンシャルとアカウントは必ず同時に作成される。
type Account struct {
	ID               string
	Name             string
	Email            string
	UniversityDegree string
	GraduationYear   int
	CreatedAt        time.Time
	UpdatedAt        time.Time
	IsActive         bool

	// TempPassword は管理者が代理作成したアカウントにのみ存在する。
	// 生成されたワンタイムクレデンシャルを保持する。
	TempPassword string

	// CreatedBy は管理者作成時に作成者のアカウントIDを記録する。
	CreatedBy string
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	AccountID string
	ExpiresAt time.Time
	CreatedAt time.Time
}
