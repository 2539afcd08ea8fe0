// Package credential は外部認証サービスとの契約を定義する。
// クレデンシャル（メール+パスワードとバックエンド発行の識別子）の
// 作成と認証のみを扱い、セッションの発行・破棄はauthパッケージが担う。
package credential

import "context"

// Service は認証サービスのインターフェース。
type Service interface {
	// Create はメールとパスワードでクレデンシャルを作成し、発行された識別子を返す。
	// 失敗はAPIErrorで表現される:
	// EMAIL_IN_USE / INVALID_EMAIL / WEAK_PASSWORD / PERMISSION_DENIED / INTERNAL_ERROR。
	Create(ctx context.Context, email, password string) (string, error)

	// Authenticate はメールとパスワードを検証し、対応する識別子を返す。
	// 失敗はAPIErrorで表現される:
	// ACCOUNT_NOT_FOUND / WRONG_PASSWORD / INVALID_EMAIL / RATE_LIMITED。
	Authenticate(ctx context.Context, email, password string) (string, error)

	// Delete は指定識別子のクレデンシャルを削除する。
	Delete(ctx context.Context, id string) error
}
