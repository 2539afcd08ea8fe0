// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// Message と Action はアプリの表示言語（スペイン語）でユーザーに提示される。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, account, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeEmailInUse       = "EMAIL_IN_USE"
	ErrCodeInvalidEmail     = "INVALID_EMAIL"
	ErrCodeWeakPassword     = "WEAK_PASSWORD"
	ErrCodePermissionDenied = "PERMISSION_DENIED"
	ErrCodeAccountNotFound  = "ACCOUNT_NOT_FOUND"
	ErrCodeWrongPassword    = "WRONG_PASSWORD"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeNoChanges        = "NO_CHANGES"
	ErrCodeInvalidField     = "INVALID_FIELD"
	ErrCodeConfirmMismatch  = "CONFIRM_MISMATCH"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// NewEmailInUseError は登録済みメールアドレスの重複エラーを生成する。
func NewEmailInUseError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailInUse,
		Message:  "Este correo electrónico ya está registrado",
		Category: "account",
		Action:   "Utiliza otro correo o inicia sesión con el existente.",
	}
}

// NewInvalidEmailError は不正なメールアドレス形式のエラーを生成する。
func NewInvalidEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  "Correo electrónico inválido",
		Category: "validation",
		Action:   "Ingresa un correo con el formato usuario@dominio.tld.",
	}
}

// NewWeakPasswordError は脆弱なパスワードのエラーを生成する。
func NewWeakPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  "La contraseña es muy débil",
		Category: "validation",
		Action:   "La contraseña debe tener al menos 6 caracteres.",
	}
}

// NewPermissionDeniedError は権限不足のエラーを生成する。
func NewPermissionDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodePermissionDenied,
		Message:  "No tienes permisos para crear usuarios",
		Category: "auth",
		Action:   "Contacta a un administrador del sistema.",
	}
}

// NewAccountNotFoundError はアカウント未検出のエラーを生成する。
func NewAccountNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotFound,
		Message:  "Usuario no encontrado",
		Category: "auth",
		Action:   "Verifica el correo ingresado o regístrate.",
	}
}

// NewWrongPasswordError はパスワード不一致のエラーを生成する。
func NewWrongPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeWrongPassword,
		Message:  "Contraseña incorrecta",
		Category: "auth",
		Action:   "Verifica tu contraseña e intenta de nuevo.",
	}
}

// NewRateLimitedError はログイン試行過多のエラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Demasiados intentos fallidos. Intenta más tarde",
		Category: "auth",
		Action:   "Espera unos minutos antes de volver a intentarlo.",
	}
}

// NewNoChangesError は変更なしの更新送信を拒否するエラーを生成する。
func NewNoChangesError() *APIError {
	return &APIError{
		Code:     ErrCodeNoChanges,
		Message:  "No se han realizado modificaciones",
		Category: "validation",
		Action:   "Modifica al menos un campo antes de guardar.",
	}
}

// NewInvalidFieldError はフォーム検証の失敗エラーを生成する。
// messageには最初に失敗したルールの説明を渡す。
func NewInvalidFieldError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidField,
		Message:  message,
		Category: "validation",
		Action:   "Corrige el campo indicado y vuelve a enviar.",
	}
}

// NewConfirmMismatchError は削除確認の名前不一致エラーを生成する。
func NewConfirmMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeConfirmMismatch,
		Message:  "El nombre de confirmación no coincide con el usuario",
		Category: "validation",
		Action:   "Escribe el nombre exacto del usuario a eliminar.",
	}
}

// NewSystemError は汎用のシステムエラーを生成する。
// detailには元のバックエンドメッセージを渡す（マッピング表に該当が無い場合）。
func NewSystemError(detail string) *APIError {
	msg := "Error del Sistema"
	if detail != "" {
		msg = fmt.Sprintf("Error: %s", detail)
	}
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  msg,
		Category: "system",
		Action:   "Intenta de nuevo más tarde o contacta a un administrador.",
	}
}
