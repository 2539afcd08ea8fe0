package validation

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/cuentas/internal/form"
)

// registerForm は自己登録フローのスキーマと同じ形のフォームを返す。
func registerForm() *form.Form {
	return form.New(
		form.Field{Name: "name", Label: "nombre completo", Kind: form.KindText, Required: true},
		form.Field{Name: "email", Label: "correo electrónico", Kind: form.KindEmail, Required: true},
		form.Field{Name: "password", Label: "contraseña", Kind: form.KindPassword, Required: true},
		form.Field{Name: "universityDegree", Label: "título universitario", Kind: form.KindText, Required: true},
		form.Field{Name: "graduationYear", Label: "año de graduación", Kind: form.KindYear, Required: true},
	)
}

func fillValid(f *form.Form) {
	f.Set("name", "Ana Lopez")
	f.Set("email", "ana@uni.edu")
	f.Set("password", "secreta1")
	f.Set("universityDegree", "BSc CS")
	f.Set("graduationYear", "2021")
}

// 完全に埋まったフォームは全ルールを通過することを検証
func TestValidate_ValidForm(t *testing.T) {
	f := registerForm()
	fillValid(f)

	if err := Validate(f); err != nil {
		t.Fatalf("Validate returned error for valid form: %v", err)
	}
}

// 必須フィールドが空（trim後）なら、そのフィールド名を含むエラーになることを検証
func TestValidate_RequiredFields_ShortCircuit(t *testing.T) {
	tests := []struct {
		name      string
		field     string
		value     string
		wantLabel string
	}{
		{"empty name", "name", "", "nombre completo"},
		{"whitespace name", "name", "   ", "nombre completo"},
		{"empty email", "email", "", "correo electrónico"},
		{"empty degree", "universityDegree", "", "título universitario"},
		{"empty year", "graduationYear", "", "año de graduación"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := registerForm()
			fillValid(f)
			f.Set(tt.field, tt.value)

			err := Validate(f)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Message, tt.wantLabel) {
				t.Errorf("message %q does not name field %q", err.Message, tt.wantLabel)
			}
		})
	}
}

// 複数の必須フィールドが空の場合、宣言順で最初のものだけ報告されることを検証
func TestValidate_ReportsFirstEmptyRequiredField(t *testing.T) {
	f := registerForm()
	fillValid(f)
	f.Set("email", "")
	f.Set("graduationYear", "")

	err := Validate(f)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Message, "correo electrónico") {
		t.Errorf("message %q, want first offender (correo electrónico)", err.Message)
	}
}

// 6文字未満のパスワードは拒否されることを検証
func TestValidate_PasswordTooShort(t *testing.T) {
	f := registerForm()
	fillValid(f)
	f.Set("password", "abc12")

	err := Validate(f)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Message, "6 caracteres") {
		t.Errorf("message = %q, want password-length message", err.Message)
	}
}

// パスワード長は文字数で数えることを検証（バイト数では多バイト文字がすり抜ける）
func TestValidate_PasswordLength_CountsRunes(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"3 multibyte chars rejected", "ñññ", true},         // 6バイトだが3文字
		{"5 multibyte chars rejected", "ááááá", true},       // 10バイトだが5文字
		{"6 multibyte chars accepted", "ññññññ", false},
		{"6 ascii chars accepted", "abc123", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := registerForm()
			fillValid(f)
			f.Set("password", tt.password)

			err := Validate(f)
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("Validate returned error: %v", err)
			}
			if tt.wantErr && !strings.Contains(err.Message, "6 caracteres") {
				t.Errorf("message = %q, want password-length message", err.Message)
			}
		})
	}
}

// メール形式のルールを検証
func TestValidate_EmailFormat(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"a@b.co", true},
		{"ana@uni.edu", true},
		{"sin-arroba.com", false},
		{"falta@punto", false},
		{"con espacios@uni.edu", false},
		{"@uni.edu", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			f := registerForm()
			fillValid(f)
			f.Set("email", tt.email)

			err := Validate(f)
			if tt.valid && err != nil {
				t.Errorf("email %q rejected: %v", tt.email, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("email %q accepted", tt.email)
			}
		})
	}
}

// 卒業年の境界値と非数値入力を検証
func TestValidate_GraduationYearBounds(t *testing.T) {
	maxYear := time.Now().Year() + MaxFutureYears

	tests := []struct {
		year  string
		valid bool
	}{
		{"1949", false},
		{"1950", true},
		{strconv.Itoa(maxYear), true},
		{strconv.Itoa(maxYear + 1), false},
		{"abcd", false}, // 範囲違反と同じ扱い、クラッシュしない
		{"20.5", false},
	}

	for _, tt := range tests {
		t.Run(tt.year, func(t *testing.T) {
			f := registerForm()
			fillValid(f)
			f.Set("graduationYear", tt.year)

			err := Validate(f)
			if tt.valid && err != nil {
				t.Errorf("year %q rejected: %v", tt.year, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("year %q accepted", tt.year)
			}
		})
	}
}

// 非数値の卒業年は範囲エラーと同一のメッセージで報告されることを検証
func TestValidate_NonNumericYear_SameMessageAsRange(t *testing.T) {
	maxYear := time.Now().Year() + MaxFutureYears
	want := fmt.Sprintf("Por favor, ingresa un año válido entre %d y %d", MinGraduationYear, maxYear)

	f := registerForm()
	fillValid(f)
	f.Set("graduationYear", "abcd")

	err := Validate(f)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err.Message != want {
		t.Errorf("message = %q, want %q", err.Message, want)
	}
}

// 任意編集コンテキストでは、空の卒業年は検証をスキップし、
// 非空なら範囲を検証することを確認
func TestValidate_OptionalYear_EditContext(t *testing.T) {
	editForm := func() *form.Form {
		f := form.New(
			form.Field{Name: "name", Label: "nombre completo", Kind: form.KindText, Required: true},
			form.Field{Name: "universityDegree", Label: "título universitario", Kind: form.KindText, Required: false},
			form.Field{Name: "graduationYear", Label: "año de graduación", Kind: form.KindYear, Required: false},
		)
		f.Set("name", "Ana Lopez")
		return f
	}

	f := editForm()
	if err := Validate(f); err != nil {
		t.Errorf("empty optional year rejected: %v", err)
	}

	f = editForm()
	f.Set("graduationYear", "1800")
	if err := Validate(f); err == nil {
		t.Error("out-of-range optional year accepted")
	}
}
