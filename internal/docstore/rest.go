package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/cuentas/internal/model"
)

// TokenSource はマネージドバックエンドへのリクエストに付与する
// IDトークンを提供するインターフェース。credentialパッケージが実装する。
type TokenSource interface {
	IDToken(ctx context.Context) (string, error)
}

// RESTStore はマネージドドキュメントストアのHTTP APIクライアント。
// エンドポイント形式: {base}/v1/collections/{collection}/documents/{id}
type RESTStore struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	tokens     TokenSource
}

// NewRESTStore はRESTStoreを生成する。
// httpClientにはsecurity.SSRFGuardが生成した安全なクライアントを渡すこと。
func NewRESTStore(httpClient *http.Client, logger *slog.Logger, baseURL string, tokens TokenSource) *RESTStore {
	return &RESTStore{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
		tokens:     tokens,
	}
}

// listResponse は一覧エンドポイントのレスポンスボディ。
type listResponse struct {
	Documents []struct {
		ID   string   `json:"id"`
		Data Document `json:"data"`
	} `json:"documents"`
}

// Put はドキュメントを指定IDで格納する。
func (s *RESTStore) Put(ctx context.Context, collection, id string, doc Document) error {
	resp, err := s.do(ctx, http.MethodPut, s.documentURL(collection, id), doc)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return s.checkStatus(resp, collection, id)
}

// Get は指定IDのドキュメントを取得する。404の場合はnilを返す。
func (s *RESTStore) Get(ctx context.Context, collection, id string) (Document, error) {
	resp, err := s.do(ctx, http.MethodGet, s.documentURL(collection, id), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err := s.checkStatus(resp, collection, id); err != nil {
		return nil, err
	}

	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// Patch は指定フィールドのみを部分更新する。
func (s *RESTStore) Patch(ctx context.Context, collection, id string, partial Document) error {
	resp, err := s.do(ctx, http.MethodPatch, s.documentURL(collection, id), partial)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("document not found: %s/%s", collection, id)
	}
	return s.checkStatus(resp, collection, id)
}

// Delete は指定IDのドキュメントを削除する。
func (s *RESTStore) Delete(ctx context.Context, collection, id string) error {
	resp, err := s.do(ctx, http.MethodDelete, s.documentURL(collection, id), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("document not found: %s/%s", collection, id)
	}
	return s.checkStatus(resp, collection, id)
}

// ListAll はコレクション全件を取得する。レスポンスの並び順を保持する。
func (s *RESTStore) ListAll(ctx context.Context, collection string) ([]Entry, error) {
	listURL := fmt.Sprintf("%s/v1/collections/%s/documents", s.baseURL, url.PathEscape(collection))
	resp, err := s.do(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := s.checkStatus(resp, collection, ""); err != nil {
		return nil, err
	}

	var body listResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode document list: %w", err)
	}

	entries := make([]Entry, 0, len(body.Documents))
	for _, d := range body.Documents {
		entries = append(entries, Entry{ID: d.ID, Doc: d.Data})
	}
	return entries, nil
}

// documentURL は単一ドキュメントのエンドポイントURLを構築する。
func (s *RESTStore) documentURL(collection, id string) string {
	return fmt.Sprintf("%s/v1/collections/%s/documents/%s",
		s.baseURL, url.PathEscape(collection), url.PathEscape(id))
}

// do は認証ヘッダー付きのHTTPリクエストを実行する。
func (s *RESTStore) do(ctx context.Context, method, reqURL string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := s.tokens.IDToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain id token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("document store request failed",
			slog.String("method", method),
			slog.String("url", reqURL),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("document store request failed: %w", err)
	}
	return resp, nil
}

// checkStatus はHTTPステータスをAPIErrorまたは内部エラーにマッピングする。
func (s *RESTStore) checkStatus(resp *http.Response, collection, id string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	s.logger.Error("document store returned error status",
		slog.Int("http_status", resp.StatusCode),
		slog.String("collection", collection),
		slog.String("id", id),
	)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return model.NewPermissionDeniedError()
	case http.StatusTooManyRequests:
		return model.NewRateLimitedError()
	default:
		return model.NewSystemError(fmt.Sprintf("document store status %d", resp.StatusCode))
	}
}

// compile-time interface check
var _ Store = (*RESTStore)(nil)
