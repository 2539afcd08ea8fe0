// Package docstore は外部ドキュメントストアとの契約を定義する。
// コレクション指向のput/get/patch/delete/listAllのみを提供し、
// トランザクションやクエリフィルタは契約に含めない。
package docstore

import "context"

// Document はコレクションに格納されるJSONオブジェクトを表す。
type Document map[string]any

// Entry はlistAllが返す (id, document) の組。
type Entry struct {
	ID  string
	Doc Document
}

// Store はドキュメントストアの永続化インターフェース。
type Store interface {
	// Put はドキュメントを指定IDで格納する（既存は上書き）。
	Put(ctx context.Context, collection, id string, doc Document) error

	// Get は指定IDのドキュメントを取得する。見つからない場合はnilを返す。
	Get(ctx context.Context, collection, id string) (Document, error)

	// Patch は指定フィールドのみを部分更新する。既存フィールドは保持される。
	// ドキュメントが存在しない場合はエラーを返す。
	Patch(ctx context.Context, collection, id string, partial Document) error

	// Delete は指定IDのドキュメントを削除する。
	Delete(ctx context.Context, collection, id string) error

	// ListAll はコレクション全件を (id, document) の列で返す。
	// 並び順はバックエンドが返した順をそのまま保持する。
	ListAll(ctx context.Context, collection string) ([]Entry, error)
}
