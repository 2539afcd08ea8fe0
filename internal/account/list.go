package account

import (
	"context"
	"fmt"

	"github.com/hitoshi/cuentas/internal/docstore"
	"github.com/hitoshi/cuentas/internal/model"
)

// Stats は一覧画面のフッターに出す集計値。
// OccupancyPercentは表示専用の値で、1件以上あれば100、0件なら0になる。
type Stats struct {
	Count            int `json:"count"`
	Capacity         int `json:"capacity"`
	OccupancyPercent int `json:"occupancyPercent"`
}

// ListService はアカウント一覧の取得サービス。
// 状態を持たず、呼び出しのたびにストアを読み直す。
type ListService struct {
	store    docstore.Store
	capacity int
}

// NewListService はListServiceを生成する。
// capacityは表示専用の定員値（設定から渡す）。
func NewListService(store docstore.Store, capacity int) *ListService {
	return &ListService{store: store, capacity: capacity}
}

// ListOthers は呼び出し元本人を除く全アカウントを返す。
// 並び順はストアが返した順をそのまま保持する。
func (s *ListService) ListOthers(ctx context.Context, callerID string) ([]*model.Account, error) {
	entries, err := s.store.ListAll(ctx, model.AccountsCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	accounts := make([]*model.Account, 0, len(entries))
	for _, entry := range entries {
		if entry.ID == callerID {
			continue
		}
		accounts = append(accounts, FromDocument(entry.ID, entry.Doc))
	}
	return accounts, nil
}

// StatsFor は一覧の件数から集計値を計算する。
func (s *ListService) StatsFor(count int) Stats {
	percent := 0
	if count > 0 {
		percent = 100
	}
	return Stats{
		Count:            count,
		Capacity:         s.capacity,
		OccupancyPercent: percent,
	}
}
