// Package form はアカウント系画面のフォーム状態を保持する。
// フィールド名から現在の入力文字列へのマッピングのみを管理し、
// 派生状態や更新時の副作用は一切持たない。
package form

import "strings"

// FieldKind はフィールドの検証種別を表す。
type FieldKind string

const (
	// KindText は自由入力テキストフィールド。
	KindText FieldKind = "text"
	// KindEmail はメールアドレスフィールド。
	KindEmail FieldKind = "email"
	// KindPassword はパスワードフィールド。
	KindPassword FieldKind = "password"
	// KindYear は卒業年フィールド。
	KindYear FieldKind = "year"
)

// Field はフォームの1フィールドのスキーマを表す。
// Labelはユーザーへのエラー表示に使うスペイン語名。
type Field struct {
	Name     string
	Label    string
	Kind     FieldKind
	Required bool
}

// Form は1画面分のフォーム状態。
// フィールドは宣言順を保持する（検証は宣言順に走る）。
type Form struct {
	fields []Field
	values map[string]string
}

// New は空値でシードされたフォームを生成する（作成フロー用）。
func New(fields ...Field) *Form {
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		values[f.Name] = ""
	}
	return &Form{fields: fields, values: values}
}

// Seed は既存の値でフィールドを初期化する（編集フロー用）。
// スキーマに無いキーは無視する。
func (f *Form) Seed(initial map[string]string) {
	for name, value := range initial {
		if _, ok := f.values[name]; ok {
			f.values[name] = value
		}
	}
}

// Set は1フィールドの値を置き換える。他のフィールドには触れない。
// スキーマに無いフィールド名は無視する。
func (f *Form) Set(name, value string) {
	if _, ok := f.values[name]; ok {
		f.values[name] = value
	}
}

// Value は指定フィールドの現在値を返す。
func (f *Form) Value(name string) string {
	return f.values[name]
}

// Trimmed は指定フィールドの前後空白を除いた値を返す。
func (f *Form) Trimmed(name string) string {
	return strings.TrimSpace(f.values[name])
}

// Fields はフィールドスキーマを宣言順で返す。
func (f *Form) Fields() []Field {
	return f.fields
}

// Snapshot は現在値の不変コピーを返す。
// 管理者編集フローで「元レコードとの差分」を判定する基準として使う。
func (f *Form) Snapshot() map[string]string {
	snap := make(map[string]string, len(f.values))
	for name, value := range f.values {
		snap[name] = value
	}
	return snap
}

// Changed は現在のフォームがスナップショットと異なるかを返す。
// mutableに列挙されたフィールドのみを比較する（emailは常に不変）。
// 保存された状態ではなく、呼び出しごとに計算される純粋な派生値。
func (f *Form) Changed(snapshot map[string]string, mutable []string) bool {
	for _, name := range mutable {
		if f.values[name] != snapshot[name] {
			return true
		}
	}
	return false
}
