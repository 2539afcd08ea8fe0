package account

import "github.com/hitoshi/cuentas/internal/form"

// フォームのフィールド名。ドキュメントのキー名と一致させる。
const (
	FieldName             = "name"
	FieldEmail            = "email"
	FieldPassword         = "password"
	FieldUniversityDegree = "universityDegree"
	FieldGraduationYear   = "graduationYear"
)

// MutableFields は編集フローで変更可能なフィールド。
// メールアドレスは作成後に変更できない。
var MutableFields = []string{FieldName, FieldUniversityDegree, FieldGraduationYear}

// RegisterForm は自己登録フローのフォームを生成する。全フィールド必須。
func RegisterForm() *form.Form {
	return form.New(
		form.Field{Name: FieldName, Label: "Nombre", Kind: form.KindText, Required: true},
		form.Field{Name: FieldEmail, Label: "Correo electrónico", Kind: form.KindEmail, Required: true},
		form.Field{Name: FieldPassword, Label: "Contraseña", Kind: form.KindPassword, Required: true},
		form.Field{Name: FieldUniversityDegree, Label: "Carrera", Kind: form.KindText, Required: true},
		form.Field{Name: FieldGraduationYear, Label: "Año de graduación", Kind: form.KindYear, Required: true},
	)
}

// AdminCreateForm は管理者による代理作成フローのフォームを生成する。
// パスワードは自動生成されるためフォームに含めない。
func AdminCreateForm() *form.Form {
	return form.New(
		form.Field{Name: FieldName, Label: "Nombre", Kind: form.KindText, Required: true},
		form.Field{Name: FieldEmail, Label: "Correo electrónico", Kind: form.KindEmail, Required: true},
		form.Field{Name: FieldUniversityDegree, Label: "Carrera", Kind: form.KindText, Required: true},
		form.Field{Name: FieldGraduationYear, Label: "Año de graduación", Kind: form.KindYear, Required: true},
	)
}

// SelfEditForm は本人によるプロフィール編集フローのフォームを生成する。
// 名前のみ必須で、カレッジ情報は任意（非空なら検証される）。
func SelfEditForm() *form.Form {
	return form.New(
		form.Field{Name: FieldName, Label: "Nombre", Kind: form.KindText, Required: true},
		form.Field{Name: FieldUniversityDegree, Label: "Carrera", Kind: form.KindText, Required: false},
		form.Field{Name: FieldGraduationYear, Label: "Año de graduación", Kind: form.KindYear, Required: false},
	)
}

// AdminEditForm は管理者によるアカウント編集フローのフォームを生成する。
// メールは不変のためフォームに含めない。
func AdminEditForm() *form.Form {
	return form.New(
		form.Field{Name: FieldName, Label: "Nombre", Kind: form.KindText, Required: true},
		form.Field{Name: FieldUniversityDegree, Label: "Carrera", Kind: form.KindText, Required: true},
		form.Field{Name: FieldGraduationYear, Label: "Año de graduación", Kind: form.KindYear, Required: true},
	)
}
