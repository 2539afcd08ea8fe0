package account

import (
	"strconv"
	"time"

	"github.com/hitoshi/cuentas/internal/docstore"
	"github.com/hitoshi/cuentas/internal/model"
)

// ドキュメントのタイムスタンプはクライアントが書き込むRFC3339文字列。
const timeLayout = time.RFC3339

// ToDocument はアカウントをストア格納形式へ変換する。
// 空のtempPassword/createdByはキー自体を書かない。
func ToDocument(acc *model.Account) docstore.Document {
	doc := docstore.Document{
		FieldName:             acc.Name,
		FieldEmail:            acc.Email,
		FieldUniversityDegree: acc.UniversityDegree,
		FieldGraduationYear:   acc.GraduationYear,
		"createdAt":           acc.CreatedAt.Format(timeLayout),
		"updatedAt":           acc.UpdatedAt.Format(timeLayout),
		"isActive":            acc.IsActive,
	}
	if acc.TempPassword != "" {
		doc["tempPassword"] = acc.TempPassword
	}
	if acc.CreatedBy != "" {
		doc["createdBy"] = acc.CreatedBy
	}
	return doc
}

// FromDocument はストアのドキュメントをアカウントへ復元する。
// 欠損キーや型不一致はゼロ値として扱う（ストア側の契約は緩いJSON）。
func FromDocument(id string, doc docstore.Document) *model.Account {
	acc := &model.Account{
		ID:               id,
		Name:             docString(doc, FieldName),
		Email:            docString(doc, FieldEmail),
		UniversityDegree: docString(doc, FieldUniversityDegree),
		GraduationYear:   docInt(doc, FieldGraduationYear),
		IsActive:         docBool(doc, "isActive"),
		TempPassword:     docString(doc, "tempPassword"),
		CreatedBy:        docString(doc, "createdBy"),
	}
	acc.CreatedAt = docTime(doc, "createdAt")
	acc.UpdatedAt = docTime(doc, "updatedAt")
	return acc
}

func docString(doc docstore.Document, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

// docInt はJSONデコード経由のfloat64と文字列の両方を受け付ける。
func docInt(doc docstore.Document, key string) int {
	switch v := doc[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func docBool(doc docstore.Document, key string) bool {
	if v, ok := doc[key].(bool); ok {
		return v
	}
	return false
}

func docTime(doc docstore.Document, key string) time.Time {
	s := docString(doc, key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
