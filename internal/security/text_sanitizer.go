// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はプロフィールの自由入力フィールド
// （名前、専攻）からHTMLマークアップを除去し、格納データを
// プレーンテキストに保つ。bluemondayの厳格ポリシーを使用する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService は自由入力テキストの無害化インターフェースを定義する。
// アカウントの作成・編集フローで格納前に使用される。
type TextSanitizerService interface {
	// Sanitize は入力からすべてのHTMLタグを除去したプレーンテキストを返す。
	// scriptタグやon*イベント属性を含むあらゆるマークアップが対象になる。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフに動作する。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは一切のタグと属性を許可しない。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からすべてのHTMLタグを除去したプレーンテキストを返す。
// StrictPolicyの出力はエンティティエスケープ済みのため、
// 格納用のプレーンテキストに戻してから返す。
func (s *textSanitizer) Sanitize(raw string) string {
	cleaned := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
