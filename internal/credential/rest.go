package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/cuentas/internal/model"
)

// RESTService はマネージド認証プロバイダのHTTP APIクライアント。
// エンドポイント形式: {base}/v1/accounts:signUp?key={apiKey}
type RESTService struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	apiKey     string

	// ドキュメントストアへのリクエストに使うサービスアカウント
	serviceEmail    string
	servicePassword string

	mu          sync.Mutex
	cachedToken string
	tokenExpiry time.Time
}

// NewRESTService はRESTServiceを生成する。
// serviceEmail/servicePasswordはIDTokenの取得に使用するサービスアカウント。
func NewRESTService(httpClient *http.Client, logger *slog.Logger, baseURL, apiKey, serviceEmail, servicePassword string) *RESTService {
	return &RESTService{
		httpClient:      httpClient,
		logger:          logger,
		baseURL:         baseURL,
		apiKey:          apiKey,
		serviceEmail:    serviceEmail,
		servicePassword: servicePassword,
	}
}

// authRequest はsignUp/signInWithPassword共通のリクエストボディ。
type authRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

// authResponse はプロバイダの成功レスポンス。
type authResponse struct {
	LocalID string `json:"localId"`
	IDToken string `json:"idToken"`
}

// errorResponse はプロバイダのエラーレスポンス。
// messageには "EMAIL_EXISTS" のような定数コードが入る。
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Create はプロバイダにクレデンシャルを作成し、発行された識別子を返す。
func (s *RESTService) Create(ctx context.Context, email, password string) (string, error) {
	res, err := s.call(ctx, "signUp", email, password)
	if err != nil {
		return "", err
	}
	return res.LocalID, nil
}

// Authenticate はメールとパスワードを検証し、識別子を返す。
func (s *RESTService) Authenticate(ctx context.Context, email, password string) (string, error) {
	res, err := s.call(ctx, "signInWithPassword", email, password)
	if err != nil {
		return "", err
	}
	return res.LocalID, nil
}

// Delete は指定識別子のクレデンシャルを削除する。
func (s *RESTService) Delete(ctx context.Context, id string) error {
	token, err := s.IDToken(ctx)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/v1/accounts/%s?key=%s", s.baseURL, id, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return s.providerError(resp)
	}
	return nil
}

// IDToken はサービスアカウントのIDトークンを返す。
// 有効期限内のトークンはキャッシュから返し、期限切れなら再取得する。
func (s *RESTService) IDToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.cachedToken != "" && time.Now().Before(s.tokenExpiry) {
		token := s.cachedToken
		s.mu.Unlock()
		return token, nil
	}
	s.mu.Unlock()

	res, err := s.call(ctx, "signInWithPassword", s.serviceEmail, s.servicePassword)
	if err != nil {
		return "", fmt.Errorf("failed to acquire service token: %w", err)
	}

	expiry := tokenExpiry(res.IDToken)

	s.mu.Lock()
	s.cachedToken = res.IDToken
	s.tokenExpiry = expiry
	s.mu.Unlock()

	return res.IDToken, nil
}

// call は指定アクションのエンドポイントを呼び出す。
func (s *RESTService) call(ctx context.Context, action, email, password string) (*authResponse, error) {
	body, err := json.Marshal(authRequest{
		Email:             strings.TrimSpace(email),
		Password:          password,
		ReturnSecureToken: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/accounts:%s?key=%s", s.baseURL, action, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, s.providerError(resp)
	}

	var res authResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &res, nil
}

// providerError はプロバイダのエラーコードをAPIErrorへ変換する。
func (s *RESTService) providerError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body errorResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		s.logger.Error("unparseable provider error",
			slog.Int("status", resp.StatusCode))
		return model.NewSystemError(fmt.Sprintf("provider status %d", resp.StatusCode))
	}

	code := body.Error.Message
	// TOO_MANY_ATTEMPTS_TRY_LATER は末尾に詳細が付くことがある
	switch {
	case code == "EMAIL_EXISTS":
		return model.NewEmailInUseError()
	case code == "INVALID_EMAIL":
		return model.NewInvalidEmailError()
	case strings.HasPrefix(code, "WEAK_PASSWORD"):
		return model.NewWeakPasswordError()
	case code == "OPERATION_NOT_ALLOWED":
		return model.NewPermissionDeniedError()
	case code == "EMAIL_NOT_FOUND":
		return model.NewAccountNotFoundError()
	case code == "INVALID_PASSWORD", code == "INVALID_LOGIN_CREDENTIALS":
		return model.NewWrongPasswordError()
	case strings.HasPrefix(code, "TOO_MANY_ATTEMPTS_TRY_LATER"):
		return model.NewRateLimitedError()
	default:
		s.logger.Error("unexpected provider error",
			slog.Int("status", resp.StatusCode),
			slog.String("code", code))
		return model.NewSystemError(code)
	}
}

// tokenExpiry はIDトークンのexpクレームから失効時刻を読む。
// 読めない場合は保守的に50分後とする。
func tokenExpiry(idToken string) time.Time {
	fallback := time.Now().Add(50 * time.Minute)

	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(idToken, jwt.MapClaims{})
	if err != nil {
		return fallback
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fallback
	}
	// 時計のずれを見込んで1分前倒しで失効扱いにする
	return exp.Time.Add(-time.Minute)
}

// compile-time interface check
var _ Service = (*RESTService)(nil)
