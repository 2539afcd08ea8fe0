package handler

import (
	"time"

	"github.com/hitoshi/cuentas/internal/model"
)

// accountResponse はアカウントのJSON表現。
// tempPasswordは管理者作成の直後のレスポンスにのみ含まれる。
type accountResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	UniversityDegree string `json:"universityDegree"`
	GraduationYear   int    `json:"graduationYear"`
	CreatedAt        string `json:"createdAt,omitempty"`
	UpdatedAt        string `json:"updatedAt,omitempty"`
	IsActive         bool   `json:"isActive"`
	TempPassword     string `json:"tempPassword,omitempty"`
	CreatedBy        string `json:"createdBy,omitempty"`
}

// toAccountResponse はアカウントをJSON表現へ変換する。
// includeTempPasswordがfalseの場合、一時パスワードは落とす。
func toAccountResponse(acc *model.Account, includeTempPassword bool) accountResponse {
	res := accountResponse{
		ID:               acc.ID,
		Name:             acc.Name,
		Email:            acc.Email,
		UniversityDegree: acc.UniversityDegree,
		GraduationYear:   acc.GraduationYear,
		IsActive:         acc.IsActive,
		CreatedBy:        acc.CreatedBy,
	}
	if !acc.CreatedAt.IsZero() {
		res.CreatedAt = acc.CreatedAt.Format(time.RFC3339)
	}
	if !acc.UpdatedAt.IsZero() {
		res.UpdatedAt = acc.UpdatedAt.Format(time.RFC3339)
	}
	if includeTempPassword {
		res.TempPassword = acc.TempPassword
	}
	return res
}
