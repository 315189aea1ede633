package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/dealwatch/internal/model"
)

// PostgresSubscriberRepo はPostgreSQLを使用した購読者リポジトリ。
// プロファイルはJSONBのsettingsカラムに保存する。
type PostgresSubscriberRepo struct {
	db *sql.DB
}

// NewPostgresSubscriberRepo はPostgresSubscriberRepoを生成する。
func NewPostgresSubscriberRepo(db *sql.DB) *PostgresSubscriberRepo {
	return &PostgresSubscriberRepo{db: db}
}

// ListIDs は登録済みの全購読者IDを昇順で返す。
func (r *PostgresSubscriberRepo) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM subscribers ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("購読者一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("購読者行の読み取りに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("購読者一覧の走査に失敗しました: %w", err)
	}
	return ids, nil
}

// FindProfile は購読者のプロファイルを取得する。見つからない場合はnilを返す。
// 保存時に存在しなかった項目はデフォルト値で補う。
func (r *PostgresSubscriberRepo) FindProfile(ctx context.Context, subscriberID int64) (*model.FilterProfile, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT settings FROM subscribers WHERE id = $1`,
		subscriberID,
	).Scan(&raw)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("プロファイルの取得に失敗しました: %w", err)
	}

	profile := model.NewFilterProfile(subscriberID)
	if err := json.Unmarshal(raw, profile); err != nil {
		return nil, fmt.Errorf("プロファイルのデコードに失敗しました: %w", err)
	}
	profile.SubscriberID = subscriberID
	return profile, nil
}

// SaveProfile はプロファイルをUPSERTする。
func (r *PostgresSubscriberRepo) SaveProfile(ctx context.Context, profile *model.FilterProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("プロファイルのエンコードに失敗しました: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO subscribers (id, settings, created_at, updated_at)
		 VALUES ($1, $2, now(), now())
		 ON CONFLICT (id) DO UPDATE SET settings = EXCLUDED.settings, updated_at = now()`,
		profile.SubscriberID, raw,
	)
	if err != nil {
		return fmt.Errorf("プロファイルの保存に失敗しました: %w", err)
	}
	return nil
}
