package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/hitoshi/cuentas/internal/model"
)

const (
	// minPasswordLength はバックエンド側で拒否するパスワードの最小文字数。
	// クライアント側の検証とは独立に、契約として検出する。
	minPasswordLength = 6

	// uniqueViolation はPostgreSQLの一意制約違反のエラーコード。
	uniqueViolation = "23505"
)

// emailPattern は local@domain.tld 形式の基本パターン。
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// PostgresService はPostgreSQLとbcryptを使用した認証サービス。
// 自前ホスティング構成で使用する。
type PostgresService struct {
	db *sql.DB

	// ログイン試行のメールアドレス単位スロットリング
	loginRate  rate.Limit
	loginBurst int

	mu          sync.Mutex
	limiters    map[string]*emailLimiter
	lastCleanup time.Time
}

// emailLimiter はメールアドレスごとのリミッターとアクセス時刻を保持する。
type emailLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewPostgresService はPostgresServiceを生成する。
// loginPerMinuteはメールアドレスあたりのログイン試行回数上限（毎分）。
func NewPostgresService(db *sql.DB, loginPerMinute int) *PostgresService {
	return &PostgresService{
		db:          db,
		loginRate:   rate.Limit(float64(loginPerMinute) / 60.0),
		loginBurst:  loginPerMinute,
		limiters:    make(map[string]*emailLimiter),
		lastCleanup: time.Now(),
	}
}

// Create はクレデンシャルを作成し、発行した識別子を返す。
func (s *PostgresService) Create(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if !emailPattern.MatchString(email) {
		return "", model.NewInvalidEmailError()
	}
	if len(password) < minPasswordLength {
		return "", model.NewWeakPasswordError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	id := uuid.New().String()
	now := time.Now()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO credentials (id, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4)`,
		id, email, hash, now,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return "", model.NewEmailInUseError()
		}
		return "", fmt.Errorf("failed to insert credential: %w", err)
	}

	slog.Info("credential created", slog.String("credential_id", id))
	return id, nil
}

// Authenticate はメールとパスワードを検証し、識別子を返す。
func (s *PostgresService) Authenticate(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if !emailPattern.MatchString(email) {
		return "", model.NewInvalidEmailError()
	}

	if !s.allowAttempt(email) {
		slog.Warn("login rate limit exceeded", slog.String("email", email))
		return "", model.NewRateLimitedError()
	}

	var (
		id   string
		hash []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM credentials WHERE email = $1`,
		email,
	).Scan(&id, &hash)

	if err == sql.ErrNoRows {
		return "", model.NewAccountNotFoundError()
	}
	if err != nil {
		return "", fmt.Errorf("failed to find credential: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", model.NewWrongPasswordError()
	}

	return id, nil
}

// Delete は指定識別子のクレデンシャルを削除する。
func (s *PostgresService) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

// allowAttempt はメールアドレス単位のログイン試行を許可するかを返す。
func (s *PostgresService) allowAttempt(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	// 10分以上アクセスの無いエントリを定期的に破棄する
	if now.Sub(s.lastCleanup) > 5*time.Minute {
		for key, el := range s.limiters {
			if now.Sub(el.lastAccess) > 10*time.Minute {
				delete(s.limiters, key)
			}
		}
		s.lastCleanup = now
	}

	el, ok := s.limiters[email]
	if !ok {
		el = &emailLimiter{limiter: rate.NewLimiter(s.loginRate, s.loginBurst)}
		s.limiters[email] = el
	}
	el.lastAccess = now

	return el.limiter.Allow()
}

// compile-time interface check
var _ Service = (*PostgresService)(nil)
