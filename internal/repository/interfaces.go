// Package repository はセッションデータへのアクセスを抽象化する。
// アカウント文書はdocstore、クレデンシャルはcredentialが担い、
// セッションはバックエンド構成にかかわらずローカルに保持する。
package repository

import (
	"context"

	"github.com/hitoshi/cuentas/internal/model"
)

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByAccountID は指定アカウントの全セッションを削除する。
	DeleteByAccountID(ctx context.Context, accountID string) error
}
