package account

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/cuentas/internal/docstore"
	"github.com/hitoshi/cuentas/internal/form"
	"github.com/hitoshi/cuentas/internal/model"
)

// --- モック ---

type mockCredential struct {
	createFn       func(ctx context.Context, email, password string) (string, error)
	authenticateFn func(ctx context.Context, email, password string) (string, error)
	deleteFn       func(ctx context.Context, id string) error
}

func (m *mockCredential) Create(ctx context.Context, email, password string) (string, error) {
	if m.createFn != nil {
		return m.createFn(ctx, email, password)
	}
	return "cred-1", nil
}
func (m *mockCredential) Authenticate(ctx context.Context, email, password string) (string, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, email, password)
	}
	return "cred-1", nil
}
func (m *mockCredential) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockStore struct {
	putFn     func(ctx context.Context, collection, id string, doc docstore.Document) error
	getFn     func(ctx context.Context, collection, id string) (docstore.Document, error)
	patchFn   func(ctx context.Context, collection, id string, partial docstore.Document) error
	deleteFn  func(ctx context.Context, collection, id string) error
	listAllFn func(ctx context.Context, collection string) ([]docstore.Entry, error)
}

func (m *mockStore) Put(ctx context.Context, collection, id string, doc docstore.Document) error {
	if m.putFn != nil {
		return m.putFn(ctx, collection, id, doc)
	}
	return nil
}
func (m *mockStore) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, collection, id)
	}
	return nil, nil
}
func (m *mockStore) Patch(ctx context.Context, collection, id string, partial docstore.Document) error {
	if m.patchFn != nil {
		return m.patchFn(ctx, collection, id, partial)
	}
	return nil
}
func (m *mockStore) Delete(ctx context.Context, collection, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, collection, id)
	}
	return nil
}
func (m *mockStore) ListAll(ctx context.Context, collection string) ([]docstore.Entry, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx, collection)
	}
	return nil, nil
}

type mockSessions struct {
	deleteByAccountIDFn func(ctx context.Context, accountID string) error
}

func (m *mockSessions) Create(ctx context.Context, session *model.Session) error { return nil }
func (m *mockSessions) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return nil, nil
}
func (m *mockSessions) DeleteByID(ctx context.Context, id string) error { return nil }
func (m *mockSessions) DeleteByAccountID(ctx context.Context, accountID string) error {
	if m.deleteByAccountIDFn != nil {
		return m.deleteByAccountIDFn(ctx, accountID)
	}
	return nil
}

type recordingMetrics struct {
	created  int
	updated  int
	deleted  int
	failures []string
}

func (r *recordingMetrics) RecordAccountCreated()             { r.created++ }
func (r *recordingMetrics) RecordAccountUpdated()             { r.updated++ }
func (r *recordingMetrics) RecordAccountDeleted()             { r.deleted++ }
func (r *recordingMetrics) RecordMutationFailure(code string) { r.failures = append(r.failures, code) }

func registerForm(name, email, password, degree, year string) *form.Form {
	f := RegisterForm()
	f.Set(FieldName, name)
	f.Set(FieldEmail, email)
	f.Set(FieldPassword, password)
	f.Set(FieldUniversityDegree, degree)
	f.Set(FieldGraduationYear, year)
	return f
}

// --- テスト ---

// TestService_Register はクレデンシャル作成とドキュメント格納が逐次に走ることを検証する。
func TestService_Register(t *testing.T) {
	var storedID string
	var storedDoc docstore.Document

	creds := &mockCredential{
		createFn: func(ctx context.Context, email, password string) (string, error) {
			if email != "ana@uni.es" {
				t.Errorf("unexpected email: %s", email)
			}
			return "uid-ana", nil
		},
	}
	store := &mockStore{
		putFn: func(ctx context.Context, collection, id string, doc docstore.Document) error {
			if collection != model.AccountsCollection {
				t.Errorf("unexpected collection: %s", collection)
			}
			storedID = id
			storedDoc = doc
			return nil
		},
	}
	metrics := &recordingMetrics{}
	svc := NewService(creds, store, &mockSessions{}, nil, metrics)

	acc, err := svc.Register(context.Background(), registerForm("Ana García", "ana@uni.es", "secreto1", "Ingeniería Informática", "2027"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if storedID != "uid-ana" {
		t.Errorf("document must be keyed by the credential id, got %s", storedID)
	}
	if acc.ID != "uid-ana" {
		t.Errorf("account id must equal credential id, got %s", acc.ID)
	}
	if storedDoc[FieldName] != "Ana García" {
		t.Errorf("unexpected name: %v", storedDoc[FieldName])
	}
	if storedDoc[FieldGraduationYear] != 2027 {
		t.Errorf("graduation year should be stored as int, got %v", storedDoc[FieldGraduationYear])
	}
	if storedDoc["isActive"] != true {
		t.Error("isActive should be true at creation")
	}
	if _, ok := storedDoc["createdAt"].(string); !ok {
		t.Error("createdAt should be an RFC3339 string")
	}
	if _, ok := storedDoc["tempPassword"]; ok {
		t.Error("self-registered account must not carry tempPassword")
	}
	if metrics.created != 1 {
		t.Errorf("expected 1 created metric, got %d", metrics.created)
	}
}

// TestService_Register_EmailInUse は重複メール時にドキュメントが書かれないことを検証する。
func TestService_Register_EmailInUse(t *testing.T) {
	putCalled := false

	creds := &mockCredential{
		createFn: func(ctx context.Context, email, password string) (string, error) {
			return "", model.NewEmailInUseError()
		},
	}
	store := &mockStore{
		putFn: func(ctx context.Context, collection, id string, doc docstore.Document) error {
			putCalled = true
			return nil
		},
	}
	metrics := &recordingMetrics{}
	svc := NewService(creds, store, &mockSessions{}, nil, metrics)

	_, err := svc.Register(context.Background(), registerForm("Ana", "ana@uni.es", "secreto1", "Derecho", "2026"))

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeEmailInUse {
		t.Errorf("expected code %s, got %s", model.ErrCodeEmailInUse, apiErr.Code)
	}
	if apiErr.Message != "Este correo electrónico ya está registrado" {
		t.Errorf("unexpected message: %s", apiErr.Message)
	}
	if putCalled {
		t.Error("no document may be written when the credential step fails")
	}
	if len(metrics.failures) != 1 || metrics.failures[0] != model.ErrCodeEmailInUse {
		t.Errorf("expected EMAIL_IN_USE failure metric, got %v", metrics.failures)
	}
}

// TestService_Register_PartialFailure はクレデンシャル作成後の格納失敗が
// システムエラーとして通知されることを検証する。
func TestService_Register_PartialFailure(t *testing.T) {
	creds := &mockCredential{}
	store := &mockStore{
		putFn: func(ctx context.Context, collection, id string, doc docstore.Document) error {
			return errors.New("store unavailable")
		},
	}
	svc := NewService(creds, store, &mockSessions{}, nil, &recordingMetrics{})

	_, err := svc.Register(context.Background(), registerForm("Ana", "ana@uni.es", "secreto1", "Derecho", "2026"))

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInternal {
		t.Errorf("expected code %s, got %s", model.ErrCodeInternal, apiErr.Code)
	}
}

// TestService_AdminCreate は一時パスワード付きの代理作成を検証する。
func TestService_AdminCreate(t *testing.T) {
	var createdWith string
	var storedDoc docstore.Document

	creds := &mockCredential{
		createFn: func(ctx context.Context, email, password string) (string, error) {
			createdWith = password
			return "uid-nuevo", nil
		},
	}
	store := &mockStore{
		putFn: func(ctx context.Context, collection, id string, doc docstore.Document) error {
			storedDoc = doc
			return nil
		},
	}
	svc := NewService(creds, store, &mockSessions{}, nil, &recordingMetrics{})

	f := AdminCreateForm()
	f.Set(FieldName, "Luis Pérez")
	f.Set(FieldEmail, "luis@uni.es")
	f.Set(FieldUniversityDegree, "Medicina")
	f.Set(FieldGraduationYear, "2028")

	acc, err := svc.AdminCreate(context.Background(), f, "uid-admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(acc.TempPassword) != tempPasswordLength {
		t.Errorf("expected %d character temp password, got %q", tempPasswordLength, acc.TempPassword)
	}
	if createdWith != acc.TempPassword {
		t.Error("credential must be created with the generated temp password")
	}
	if storedDoc["tempPassword"] != acc.TempPassword {
		t.Error("document must carry the temp password for later relay")
	}
	if storedDoc["createdBy"] != "uid-admin" {
		t.Errorf("document must record the creator, got %v", storedDoc["createdBy"])
	}
	for _, c := range acc.TempPassword {
		if !strings.ContainsRune(tempPasswordAlphabet, c) {
			t.Errorf("temp password contains character outside alphabet: %q", c)
		}
	}
}

// TestService_Update は入力済みフィールドのみが部分更新されることを検証する。
func TestService_Update(t *testing.T) {
	var partial docstore.Document

	store := &mockStore{
		patchFn: func(ctx context.Context, collection, id string, p docstore.Document) error {
			partial = p
			return nil
		},
	}
	svc := NewService(&mockCredential{}, store, &mockSessions{}, nil, &recordingMetrics{})

	f := SelfEditForm()
	f.Set(FieldName, "Ana García")
	f.Set(FieldUniversityDegree, "")
	f.Set(FieldGraduationYear, "2029")

	if err := svc.Update(context.Background(), "uid-ana", f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if partial[FieldName] != "Ana García" {
		t.Errorf("unexpected name: %v", partial[FieldName])
	}
	if _, ok := partial[FieldUniversityDegree]; ok {
		t.Error("empty field must be omitted from the patch")
	}
	if partial[FieldGraduationYear] != 2029 {
		t.Errorf("unexpected year: %v", partial[FieldGraduationYear])
	}
	if _, ok := partial[FieldEmail]; ok {
		t.Error("email must never appear in an update patch")
	}
	if _, ok := partial["updatedAt"].(string); !ok {
		t.Error("updatedAt must be refreshed on every update")
	}
}

// TestService_Update_BackendFailure は更新失敗が汎用システムエラーになることを検証する。
func TestService_Update_BackendFailure(t *testing.T) {
	store := &mockStore{
		patchFn: func(ctx context.Context, collection, id string, p docstore.Document) error {
			return errors.New("connection reset")
		},
	}
	svc := NewService(&mockCredential{}, store, &mockSessions{}, nil, &recordingMetrics{})

	f := SelfEditForm()
	f.Set(FieldName, "Ana")

	err := svc.Update(context.Background(), "uid-ana", f)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInternal {
		t.Errorf("expected generic system error, got %s", apiErr.Code)
	}
	if apiErr.Message != "Error del Sistema" {
		t.Errorf("backend detail must not leak, got %q", apiErr.Message)
	}
}

// TestService_AdminUpdate_NoChanges はスナップショットと同一の送信が拒否されることを検証する。
func TestService_AdminUpdate_NoChanges(t *testing.T) {
	patchCalled := false
	store := &mockStore{
		patchFn: func(ctx context.Context, collection, id string, p docstore.Document) error {
			patchCalled = true
			return nil
		},
	}
	svc := NewService(&mockCredential{}, store, &mockSessions{}, nil, &recordingMetrics{})

	f := AdminEditForm()
	f.Seed(map[string]string{
		FieldName:             "Luis",
		FieldUniversityDegree: "Medicina",
		FieldGraduationYear:   "2028",
	})
	snapshot := f.Snapshot()

	err := svc.AdminUpdate(context.Background(), "uid-luis", f, snapshot)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeNoChanges {
		t.Errorf("expected code %s, got %s", model.ErrCodeNoChanges, apiErr.Code)
	}
	if patchCalled {
		t.Error("unchanged form must not reach the store")
	}

	// 1フィールドでも変われば送信できる
	f.Set(FieldUniversityDegree, "Enfermería")
	if err := svc.AdminUpdate(context.Background(), "uid-luis", f, snapshot); err != nil {
		t.Fatalf("changed form should pass: %v", err)
	}
	if !patchCalled {
		t.Error("changed form must reach the store")
	}
}

// TestService_Delete は確認名の一致と削除順序を検証する。
func TestService_Delete(t *testing.T) {
	var order []string

	store := &mockStore{
		getFn: func(ctx context.Context, collection, id string) (docstore.Document, error) {
			return docstore.Document{FieldName: "Luis Pérez", FieldEmail: "luis@uni.es"}, nil
		},
		deleteFn: func(ctx context.Context, collection, id string) error {
			order = append(order, "document")
			return nil
		},
	}
	creds := &mockCredential{
		deleteFn: func(ctx context.Context, id string) error {
			order = append(order, "credential")
			return nil
		},
	}
	sessions := &mockSessions{
		deleteByAccountIDFn: func(ctx context.Context, accountID string) error {
			order = append(order, "sessions")
			return nil
		},
	}
	metrics := &recordingMetrics{}
	svc := NewService(creds, store, sessions, nil, metrics)

	if err := svc.Delete(context.Background(), "uid-luis", "Luis Pérez"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"document", "credential", "sessions"}
	if len(order) != len(want) {
		t.Fatalf("expected order %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
	if metrics.deleted != 1 {
		t.Errorf("expected 1 deleted metric, got %d", metrics.deleted)
	}
}

// TestService_Delete_ConfirmMismatch は確認名の不一致で削除が走らないことを検証する。
func TestService_Delete_ConfirmMismatch(t *testing.T) {
	deleteCalled := false
	store := &mockStore{
		getFn: func(ctx context.Context, collection, id string) (docstore.Document, error) {
			return docstore.Document{FieldName: "Luis Pérez"}, nil
		},
		deleteFn: func(ctx context.Context, collection, id string) error {
			deleteCalled = true
			return nil
		},
	}
	svc := NewService(&mockCredential{}, store, &mockSessions{}, nil, &recordingMetrics{})

	err := svc.Delete(context.Background(), "uid-luis", "Luis")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeConfirmMismatch {
		t.Errorf("expected code %s, got %s", model.ErrCodeConfirmMismatch, apiErr.Code)
	}
	if deleteCalled {
		t.Error("mismatched confirmation must not delete anything")
	}
}

// TestService_Delete_NotFound は存在しないアカウントの削除を検証する。
func TestService_Delete_NotFound(t *testing.T) {
	svc := NewService(&mockCredential{}, &mockStore{}, &mockSessions{}, nil, &recordingMetrics{})

	err := svc.Delete(context.Background(), "uid-fantasma", "Nadie")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeAccountNotFound {
		t.Errorf("expected code %s, got %s", model.ErrCodeAccountNotFound, apiErr.Code)
	}
}

// sanitizerのスタブ。呼ばれたことを記録する。
type markingSanitizer struct {
	called bool
}

func (m *markingSanitizer) Sanitize(raw string) string {
	m.called = true
	return raw
}

// TestService_Register_SanitizesFreeText は自由入力フィールドがサニタイズを通ることを検証する。
func TestService_Register_SanitizesFreeText(t *testing.T) {
	sanitizer := &markingSanitizer{}
	svc := NewService(&mockCredential{}, &mockStore{}, &mockSessions{}, sanitizer, &recordingMetrics{})

	_, err := svc.Register(context.Background(), registerForm("Ana", "ana@uni.es", "secreto1", "Derecho", "2026"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sanitizer.called {
		t.Error("free-text fields must pass through the sanitizer")
	}
}
