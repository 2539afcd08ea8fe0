package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/cuentas/internal/account"
	"github.com/hitoshi/cuentas/internal/form"
	"github.com/hitoshi/cuentas/internal/middleware"
	"github.com/hitoshi/cuentas/internal/model"
	"github.com/hitoshi/cuentas/internal/validation"
)

// AccountServiceInterface はアカウントハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	AdminCreate(ctx context.Context, f *form.Form, createdBy string) (*model.Account, error)
	Update(ctx context.Context, accountID string, f *form.Form) error
	AdminUpdate(ctx context.Context, accountID string, f *form.Form, snapshot map[string]string) error
	Delete(ctx context.Context, accountID, confirmName string) error
	Get(ctx context.Context, accountID string) (*model.Account, error)
}

// ListServiceInterface は一覧取得のサービスインターフェース。
type ListServiceInterface interface {
	ListOthers(ctx context.Context, callerID string) ([]*model.Account, error)
	StatsFor(count int) account.Stats
}

// ListRecorder は一覧取得レイテンシのメトリクス記録インターフェース。
type ListRecorder interface {
	RecordListLatency(d time.Duration)
}

// AccountHandler はアカウント管理のHTTPハンドラー。
type AccountHandler struct {
	service AccountServiceInterface
	list    ListServiceInterface
	metrics ListRecorder
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(service AccountServiceInterface, list ListServiceInterface, metrics ListRecorder) *AccountHandler {
	return &AccountHandler{
		service: service,
		list:    list,
		metrics: metrics,
	}
}

// listResponse は一覧のレスポンスボディ。
type listResponse struct {
	Accounts []accountResponse `json:"accounts"`
	Stats    account.Stats     `json:"stats"`
}

// List は呼び出し元本人を除く全アカウントと集計値を返す。
// GET /api/accounts
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	callerID, err := middleware.AccountIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	start := time.Now()
	accounts, err := h.list.ListOthers(r.Context(), callerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordListLatency(time.Since(start))
	}

	resp := listResponse{
		Accounts: make([]accountResponse, 0, len(accounts)),
		Stats:    h.list.StatsFor(len(accounts)),
	}
	for _, acc := range accounts {
		resp.Accounts = append(resp.Accounts, toAccountResponse(acc, false))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// createRequest は管理者による代理作成のリクエストボディ。
type createRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	UniversityDegree string `json:"universityDegree"`
	GraduationYear   string `json:"graduationYear"`
}

// Create は仮パスワード付きでアカウントを代理作成する。
// 仮パスワードはこのレスポンスでのみ返される。
// POST /api/accounts
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	callerID, err := middleware.AccountIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidFieldError("Cuerpo de la solicitud inválido"))
		return
	}

	f := account.AdminCreateForm()
	f.Set(account.FieldName, req.Name)
	f.Set(account.FieldEmail, req.Email)
	f.Set(account.FieldUniversityDegree, req.UniversityDegree)
	f.Set(account.FieldGraduationYear, req.GraduationYear)

	if apiErr := validation.Validate(f); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	acc, err := h.service.AdminCreate(r.Context(), f, callerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toAccountResponse(acc, true))
}

// GetSelf は呼び出し元本人のプロフィールを返す。
// GET /api/accounts/me
func (h *AccountHandler) GetSelf(w http.ResponseWriter, r *http.Request) {
	callerID, err := middleware.AccountIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	h.respondWithAccount(w, r, callerID)
}

// selfUpdateRequest は本人編集のリクエストボディ。
type selfUpdateRequest struct {
	Name             string `json:"name"`
	UniversityDegree string `json:"universityDegree"`
	GraduationYear   string `json:"graduationYear"`
}

// UpdateSelf は呼び出し元本人のプロフィールを更新する。
// PATCH /api/accounts/me
func (h *AccountHandler) UpdateSelf(w http.ResponseWriter, r *http.Request) {
	callerID, err := middleware.AccountIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req selfUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidFieldError("Cuerpo de la solicitud inválido"))
		return
	}

	f := account.SelfEditForm()
	f.Set(account.FieldName, req.Name)
	f.Set(account.FieldUniversityDegree, req.UniversityDegree)
	f.Set(account.FieldGraduationYear, req.GraduationYear)

	if apiErr := validation.Validate(f); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	if err := h.service.Update(r.Context(), callerID, f); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetByID は指定アカウントのプロフィールを返す。
// GET /api/accounts/{accountID}
func (h *AccountHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	h.respondWithAccount(w, r, chi.URLParam(r, "accountID"))
}

// adminUpdateRequest は管理者編集のリクエストボディ。
// snapshotは編集開始時点の値で、変更有無の判定基準になる。
type adminUpdateRequest struct {
	Name             string            `json:"name"`
	UniversityDegree string            `json:"universityDegree"`
	GraduationYear   string            `json:"graduationYear"`
	Snapshot         map[string]string `json:"snapshot"`
}

// UpdateByID は管理者として指定アカウントを更新する。
// 編集開始時点のスナップショットと差分が無ければNO_CHANGESで拒否される。
// PATCH /api/accounts/{accountID}
func (h *AccountHandler) UpdateByID(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	var req adminUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidFieldError("Cuerpo de la solicitud inválido"))
		return
	}

	f := account.AdminEditForm()
	f.Seed(req.Snapshot)
	f.Set(account.FieldName, req.Name)
	f.Set(account.FieldUniversityDegree, req.UniversityDegree)
	f.Set(account.FieldGraduationYear, req.GraduationYear)

	if apiErr := validation.Validate(f); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	if err := h.service.AdminUpdate(r.Context(), accountID, f, req.Snapshot); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// deleteRequest は削除のリクエストボディ。
// confirmNameにはアカウント名の完全一致入力が必要。
type deleteRequest struct {
	ConfirmName string `json:"confirmName"`
}

// Delete は指定アカウントを完全に削除する。
// DELETE /api/accounts/{accountID}
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidFieldError("Cuerpo de la solicitud inválido"))
		return
	}

	if err := h.service.Delete(r.Context(), accountID, req.ConfirmName); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// respondWithAccount はアカウント取得の共通レスポンス処理。
// ドキュメント不在（nil, nil）は404として扱う。
func (h *AccountHandler) respondWithAccount(w http.ResponseWriter, r *http.Request, accountID string) {
	acc, err := h.service.Get(r.Context(), accountID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if acc == nil {
		handleServiceError(w, model.NewAccountNotFoundError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toAccountResponse(acc, false))
}
