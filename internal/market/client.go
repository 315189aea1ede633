// Package market はマーケットプレイスAPIから出品一覧を取得するListing Sourceを提供する。
// カテゴリごとの検索リクエスト、フィルタ設定からのパラメータ変換、レスポンスのパースを含む。
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/dealwatch/internal/model"
)

const (
	// DefaultBaseURL はマーケットプレイスAPIのエンドポイント。
	DefaultBaseURL = "https://prod-api.lzt.market"
	// DefaultItemBaseURL は出品ページのベースURL。
	DefaultItemBaseURL = "https://lzt.market"
	// defaultMaxBodySize はレスポンスボディの最大サイズ（5MB）。
	defaultMaxBodySize = 5 << 20
)

// ClientConfig はClientの設定。
type ClientConfig struct {
	BaseURL     string
	ItemBaseURL string
	Token       string
	MaxBodySize int64
	// Retry のゼロ値は再試行なし。
	Retry RetryPolicy
}

// Client はマーケットプレイスAPIのクライアント。
// Bearerトークンで認証し、カテゴリ別の検索エンドポイントを呼び出す。
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	baseURL     string
	itemBaseURL string
	token       string
	maxBodySize int64
	retry       RetryPolicy
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ItemBaseURL == "" {
		cfg.ItemBaseURL = DefaultItemBaseURL
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaultMaxBodySize
	}
	return &Client{
		httpClient:  httpClient,
		logger:      logger,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		itemBaseURL: strings.TrimRight(cfg.ItemBaseURL, "/"),
		token:       cfg.Token,
		maxBodySize: cfg.MaxBodySize,
		retry:       cfg.Retry,
	}
}

// searchResponse は検索APIのレスポンス。
type searchResponse struct {
	Items []json.RawMessage `json:"items"`
}

type apiSeller struct {
	Username       string `json:"username"`
	SoldItemsCount int    `json:"sold_items_count"`
	RestorePercent *int   `json:"restore_percents"`
}

// apiItem は検索APIが返す出品1件。フラグは0/1の整数で返る。
type apiItem struct {
	ItemID             int64     `json:"item_id"`
	Title              string    `json:"title"`
	Price              float64   `json:"price"`
	ItemOrigin         string    `json:"item_origin"`
	Seller             apiSeller `json:"seller"`
	NSB                int       `json:"nsb"`
	AllowAskDiscount   int       `json:"allow_ask_discount"`
	MaxDiscountPercent int       `json:"max_discount_percent"`
	PublishedDate      int64     `json:"published_date"`
	EmailType          string    `json:"email_type"`
	EmailProvider      string    `json:"email_provider"`

	TarkovGameVersion  string `json:"tarkov_game_version"`
	TarkovLevel        int    `json:"tarkov_level"`
	TarkovRegion       string `json:"tarkov_region"`
	TarkovRubles       int64  `json:"tarkov_rubles"`
	TarkovDollars      int64  `json:"tarkov_dollars"`
	TarkovEuros        int64  `json:"tarkov_euros"`
	TarkovAccessPVE    int    `json:"tarkov_access_pve"`
	TarkovLastActivity int64  `json:"tarkov_last_activity"`
}

// Fetch は指定カテゴリの出品一覧を取得する。
// 未知のカテゴリはリクエストせず空の結果を返す。
// 通信・ステータス・パースの失敗は*model.UpstreamFetchErrorとして返す。
func (c *Client) Fetch(ctx context.Context, category string, profile *model.FilterProfile) ([]model.Listing, error) {
	cat, ok := model.LookupCategory(category)
	if !ok {
		c.logger.Warn("未知のカテゴリのためフェッチをスキップします",
			slog.String("category", category),
		)
		return nil, nil
	}

	start := time.Now()
	reqURL := c.baseURL + "/" + cat.Endpoint
	if q := BuildQuery(category, profile).Encode(); q != "" {
		reqURL += "?" + q
	}

	body, err := c.fetchWithRetry(ctx, category, reqURL)
	if err != nil {
		return nil, err
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, &model.UpstreamFetchError{Category: category, Err: fmt.Errorf("レスポンスJSONのパースに失敗: %w", err)}
	}

	listings := c.parseItems(sr.Items, category)

	c.logger.Info("出品一覧を取得しました",
		slog.String("category", category),
		slog.Int("items_total", len(sr.Items)),
		slog.Int("items_parsed", len(listings)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return listings, nil
}

// fetchWithRetry は一時的な失敗に限り、方針に従って待機しながら再試行する。
func (c *Client) fetchWithRetry(ctx context.Context, category, reqURL string) ([]byte, error) {
	attempts := max(c.retry.MaxAttempts, 1)
	for attempt := 1; ; attempt++ {
		body, retryAfter, err := c.fetchOnce(ctx, category, reqURL)
		if err == nil {
			return body, nil
		}
		if attempt >= attempts || !retryable(err) {
			return nil, err
		}

		wait := c.retry.backoff(attempt)
		if retryAfter > wait {
			wait = min(retryAfter, c.retry.MaxBackoff)
		}
		c.logger.Warn("上流の一時的な失敗のため再試行します",
			slog.String("category", category),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
		if serr := sleepContext(ctx, wait); serr != nil {
			return nil, &model.UpstreamFetchError{Category: category, Err: serr}
		}
	}
}

// fetchOnce は1回分のリクエストを送り、200のレスポンスボディを返す。
// 429/503でRetry-Afterが付いていれば待機時間として返す。
func (c *Client) fetchOnce(ctx context.Context, category, reqURL string) ([]byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, &model.UpstreamFetchError{Category: category, Err: fmt.Errorf("リクエスト作成に失敗: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &model.UpstreamFetchError{Category: category, Transport: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, retryAfter, &model.UpstreamFetchError{Category: category, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, 0, &model.UpstreamFetchError{Category: category, Transport: true, Err: fmt.Errorf("レスポンス読み取りに失敗: %w", err)}
	}
	return body, 0, nil
}

// parseItems は出品をパースする。パースできない出品はログに記録してスキップする。
func (c *Client) parseItems(raw []json.RawMessage, category string) []model.Listing {
	listings := make([]model.Listing, 0, len(raw))
	for _, r := range raw {
		var item apiItem
		if err := json.Unmarshal(r, &item); err != nil {
			c.logger.Warn("出品のパースに失敗しました",
				slog.String("category", category),
				slog.String("error", err.Error()),
			)
			continue
		}
		listings = append(listings, c.toListing(item, category))
	}
	return listings
}

func (c *Client) toListing(item apiItem, category string) model.Listing {
	l := model.Listing{
		ID:                 item.ItemID,
		Title:              item.Title,
		Price:              item.Price,
		Category:           category,
		URL:                fmt.Sprintf("%s/%d/", c.itemBaseURL, item.ItemID),
		Origin:             item.ItemOrigin,
		NeverSold:          item.NSB == 1,
		AllowAskDiscount:   item.AllowAskDiscount == 1,
		MaxDiscountPercent: item.MaxDiscountPercent,
		PublishedAt:        unixTime(item.PublishedDate),
		EmailType:          item.EmailType,
		EmailProvider:      item.EmailProvider,
		Seller: model.Seller{
			Username:       item.Seller.Username,
			SoldItems:      item.Seller.SoldItemsCount,
			RestorePercent: item.Seller.RestorePercent,
		},
	}

	if category == model.CategoryTarkov {
		l.Tarkov = &model.TarkovAttributes{
			Edition:      item.TarkovGameVersion,
			Level:        item.TarkovLevel,
			Region:       item.TarkovRegion,
			Rubles:       item.TarkovRubles,
			Dollars:      item.TarkovDollars,
			Euros:        item.TarkovEuros,
			PVEAccess:    item.TarkovAccessPVE == 1,
			LastActivity: unixTime(item.TarkovLastActivity),
		}
	}

	return l
}

func unixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
