// Package account はアカウント作成・編集・削除・一覧のドメインロジックを提供する。
package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/cuentas/internal/credential"
	"github.com/hitoshi/cuentas/internal/docstore"
	"github.com/hitoshi/cuentas/internal/form"
	"github.com/hitoshi/cuentas/internal/model"
	"github.com/hitoshi/cuentas/internal/repository"
)

// tempPasswordLength は管理者作成時に生成する一時パスワードの文字数。
const tempPasswordLength = 12

// 紛らわしい文字(0/O, 1/l)を除いた一時パスワード用アルファベット。
const tempPasswordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Sanitizer は自由入力テキストの無害化インターフェース。
type Sanitizer interface {
	Sanitize(raw string) string
}

// Recorder はミューテーションのメトリクス記録インターフェース。
type Recorder interface {
	RecordAccountCreated()
	RecordAccountUpdated()
	RecordAccountDeleted()
	RecordMutationFailure(code string)
}

// Service はアカウントミューテーションのサービス層。
// フォーム検証は呼び出し側（ハンドラ）が済ませている前提で動く。
type Service struct {
	creds     credential.Service
	store     docstore.Store
	sessions  repository.SessionRepository
	sanitizer Sanitizer
	metrics   Recorder
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	creds credential.Service,
	store docstore.Store,
	sessions repository.SessionRepository,
	sanitizer Sanitizer,
	metrics Recorder,
) *Service {
	return &Service{
		creds:     creds,
		store:     store,
		sessions:  sessions,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// Register は自己登録を実行する。
// 厳密に逐次: クレデンシャル作成 → プロフィールドキュメント格納。
// ドキュメント格納に失敗した場合、クレデンシャルは孤児として残る
// （自動リカバリはせず、システムエラーとして通知する）。
func (s *Service) Register(ctx context.Context, f *form.Form) (*model.Account, error) {
	id, err := s.creds.Create(ctx, f.Trimmed(FieldEmail), f.Value(FieldPassword))
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	acc := s.buildAccount(id, f)

	if err := s.store.Put(ctx, model.AccountsCollection, id, ToDocument(acc)); err != nil {
		slog.Error("profile store failed after credential creation",
			slog.String("account_id", id),
			slog.String("error", err.Error()),
		)
		s.recordFailure(err)
		return nil, model.NewSystemError("la cuenta quedó creada parcialmente")
	}

	if s.metrics != nil {
		s.metrics.RecordAccountCreated()
	}
	slog.Info("account registered", slog.String("account_id", id))
	return acc, nil
}

// AdminCreate は管理者による代理作成を実行する。
// パスワードは一時クレデンシャルとして生成し、ドキュメントにも保持して
// 呼び出し側へ返す（管理者が本人に伝える）。
func (s *Service) AdminCreate(ctx context.Context, f *form.Form, createdBy string) (*model.Account, error) {
	tempPassword, err := generateTempPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to generate temporary password: %w", err)
	}

	id, err := s.creds.Create(ctx, f.Trimmed(FieldEmail), tempPassword)
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	acc := s.buildAccount(id, f)
	acc.TempPassword = tempPassword
	acc.CreatedBy = createdBy

	if err := s.store.Put(ctx, model.AccountsCollection, id, ToDocument(acc)); err != nil {
		slog.Error("profile store failed after credential creation",
			slog.String("account_id", id),
			slog.String("created_by", createdBy),
			slog.String("error", err.Error()),
		)
		s.recordFailure(err)
		return nil, model.NewSystemError("la cuenta quedó creada parcialmente")
	}

	if s.metrics != nil {
		s.metrics.RecordAccountCreated()
	}
	slog.Info("account created by administrator",
		slog.String("account_id", id),
		slog.String("created_by", createdBy),
	)
	return acc, nil
}

// Update は本人によるプロフィール編集を実行する。
// 入力済みの可変フィールドのみを部分更新する。メールは決して含めない。
// バックエンド失敗は詳細を伝えず汎用のシステムエラーとして返す。
func (s *Service) Update(ctx context.Context, accountID string, f *form.Form) error {
	partial := s.buildPartial(f)
	if len(partial) == 1 {
		// updatedAtしか無い、つまり変更対象フィールドが全て空
		return model.NewNoChangesError()
	}

	if err := s.store.Patch(ctx, model.AccountsCollection, accountID, partial); err != nil {
		slog.Error("profile update failed",
			slog.String("account_id", accountID),
			slog.String("error", err.Error()),
		)
		s.recordFailure(err)
		return model.NewSystemError("")
	}

	if s.metrics != nil {
		s.metrics.RecordAccountUpdated()
	}
	return nil
}

// AdminUpdate は管理者によるアカウント編集を実行する。
// 事前条件: フォームがスナップショットから少なくとも1つの可変フィールドで
// 異なること。同一なら送信自体を拒否する。
func (s *Service) AdminUpdate(ctx context.Context, accountID string, f *form.Form, snapshot map[string]string) error {
	if !f.Changed(snapshot, MutableFields) {
		return model.NewNoChangesError()
	}
	return s.Update(ctx, accountID, f)
}

// Delete はアカウントを削除する。
// confirmNameは対象アカウントの表示名と完全一致しなければならない。
// 削除順: ドキュメント → クレデンシャル → セッション。失敗時のリトライはしない。
func (s *Service) Delete(ctx context.Context, accountID, confirmName string) error {
	doc, err := s.store.Get(ctx, model.AccountsCollection, accountID)
	if err != nil {
		s.recordFailure(err)
		return fmt.Errorf("failed to load account: %w", err)
	}
	if doc == nil {
		return model.NewAccountNotFoundError()
	}

	acc := FromDocument(accountID, doc)
	if strings.TrimSpace(confirmName) != acc.Name {
		return model.NewConfirmMismatchError()
	}

	if err := s.store.Delete(ctx, model.AccountsCollection, accountID); err != nil {
		s.recordFailure(err)
		return fmt.Errorf("failed to delete account document: %w", err)
	}
	if err := s.creds.Delete(ctx, accountID); err != nil {
		s.recordFailure(err)
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	if s.sessions != nil {
		if err := s.sessions.DeleteByAccountID(ctx, accountID); err != nil {
			return fmt.Errorf("failed to delete account sessions: %w", err)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordAccountDeleted()
	}
	slog.Info("account deleted", slog.String("account_id", accountID))
	return nil
}

// Get は指定IDのアカウントを取得する。存在しない場合はnilを返す。
func (s *Service) Get(ctx context.Context, accountID string) (*model.Account, error) {
	doc, err := s.store.Get(ctx, model.AccountsCollection, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	return FromDocument(accountID, doc), nil
}

// buildAccount は検証済みフォームからアカウントを組み立てる。
// 自由入力フィールドは格納前にサニタイズする。
func (s *Service) buildAccount(id string, f *form.Form) *model.Account {
	now := time.Now()
	year, _ := strconv.Atoi(f.Trimmed(FieldGraduationYear))
	return &model.Account{
		ID:               id,
		Name:             s.clean(f.Trimmed(FieldName)),
		Email:            f.Trimmed(FieldEmail),
		UniversityDegree: s.clean(f.Trimmed(FieldUniversityDegree)),
		GraduationYear:   year,
		CreatedAt:        now,
		UpdatedAt:        now,
		IsActive:         true,
	}
}

// buildPartial は入力済みの可変フィールドとupdatedAtからなる部分更新を作る。
func (s *Service) buildPartial(f *form.Form) docstore.Document {
	partial := docstore.Document{
		"updatedAt": time.Now().Format(timeLayout),
	}
	if v := f.Trimmed(FieldName); v != "" {
		partial[FieldName] = s.clean(v)
	}
	if v := f.Trimmed(FieldUniversityDegree); v != "" {
		partial[FieldUniversityDegree] = s.clean(v)
	}
	if v := f.Trimmed(FieldGraduationYear); v != "" {
		year, err := strconv.Atoi(v)
		if err == nil {
			partial[FieldGraduationYear] = year
		}
	}
	return partial
}

func (s *Service) clean(v string) string {
	if s.sanitizer == nil {
		return v
	}
	return s.sanitizer.Sanitize(v)
}

// recordFailure はエラーのコード別にミューテーション失敗を記録する。
func (s *Service) recordFailure(err error) {
	if s.metrics == nil {
		return
	}
	code := model.ErrCodeInternal
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		code = apiErr.Code
	}
	s.metrics.RecordMutationFailure(code)
}

// generateTempPassword は一時パスワードを生成する。
func generateTempPassword() (string, error) {
	buf := make([]byte, tempPasswordLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = tempPasswordAlphabet[int(b)%len(tempPasswordAlphabet)]
	}
	return string(buf), nil
}
