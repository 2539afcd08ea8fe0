// Package validation はフォームの検証ルールを提供する。
// ルールは固定順で走り、最初に失敗したルールのみを報告する
// （ユーザーが「一度に一つずつ直す」期待に合わせた短絡評価）。
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/cuentas/internal/form"
	"github.com/hitoshi/cuentas/internal/model"
)

const (
	// MinPasswordLength はパスワードの最小文字数。
	MinPasswordLength = 6
	// MinGraduationYear は卒業年の下限。
	MinGraduationYear = 1950
	// MaxFutureYears は卒業年として許容する未来年数。
	// 画面によって+5と+10が混在していたが、自己登録フローの+10に統一する。
	MaxFutureYears = 10
)

// emailPattern は local@domain.tld 形式の基本パターン。
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// MaxGraduationYear は現時点で許容される卒業年の上限を返す。
func MaxGraduationYear() int {
	return time.Now().Year() + MaxFutureYears
}

// Validate はフォーム全体を固定順で検証する。
// ルール順: 必須チェック → パスワード長 → メール形式 → 卒業年範囲。
// 全ルール通過ならnilを返し、失敗時は最初の違反のみをAPIErrorで返す。
func Validate(f *form.Form) *model.APIError {
	// 1. 必須フィールドの空チェック（宣言順、trim後）。
	//    最初に空だった必須フィールドをラベル名で報告する。
	for _, field := range f.Fields() {
		if field.Required && f.Trimmed(field.Name) == "" {
			return model.NewInvalidFieldError(
				fmt.Sprintf("El campo %s es obligatorio", field.Label),
			)
		}
	}

	// 2. パスワード長（必須として存在する場合のみ）。バイト数ではなく文字数で数える。
	for _, field := range f.Fields() {
		if field.Kind != form.KindPassword || !field.Required {
			continue
		}
		if utf8.RuneCountInString(f.Value(field.Name)) < MinPasswordLength {
			return model.NewInvalidFieldError(
				fmt.Sprintf("La contraseña debe tener al menos %d caracteres", MinPasswordLength),
			)
		}
	}

	// 3. メール形式。
	for _, field := range f.Fields() {
		if field.Kind != form.KindEmail {
			continue
		}
		if v := f.Trimmed(field.Name); v != "" && !emailPattern.MatchString(v) {
			return model.NewInvalidFieldError("Por favor, ingresa un email válido")
		}
	}

	// 4. 卒業年の範囲。必須、または任意編集コンテキストで非空の場合に検証する。
	//    数値として解釈できない入力は範囲違反と同じ扱いにする（クラッシュさせない）。
	for _, field := range f.Fields() {
		if field.Kind != form.KindYear {
			continue
		}
		v := f.Trimmed(field.Name)
		if !field.Required && v == "" {
			continue
		}
		maxYear := MaxGraduationYear()
		year, err := strconv.Atoi(v)
		if err != nil || year < MinGraduationYear || year > maxYear {
			return model.NewInvalidFieldError(
				fmt.Sprintf("Por favor, ingresa un año válido entre %d y %d", MinGraduationYear, maxYear),
			)
		}
	}

	return nil
}
