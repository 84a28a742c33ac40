// Package revenuecat реализует клиент REST API биллинг-провайдера:
// чтение данных подписчика, каталог предложений, проведение чеков
// и выдача промо-entitlement'ов. Клиент только транспортирует данные,
// бизнес-решения принимает классификатор.
package revenuecat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/platemate/entitlement-reconciler/internal/config"
)

type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// NewClient создаёт новый клиент провайдера с ограниченным таймаутом.
func NewClient(cfg config.RevenueCat) *Client {
	return &Client{
		apiURL:     cfg.APIURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Сюда попадают и таймауты клиента
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %s", ErrProviderUnavailable, resp.Status)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: status %s", ErrProductNotFound, resp.Status)
	case resp.StatusCode >= 400:
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			return &PurchaseError{Code: resp.StatusCode, Message: resp.Status}
		}
		return classifyPurchaseError(apiErr)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrProviderUnavailable, err)
	}
	return nil
}

// GetSubscriber возвращает текущее состояние подписчика.
// Провайдер создаёт пустую запись для неизвестного идентификатора,
// поэтому для нового пользователя ответ содержит нулевые entitlement'ы.
func (c *Client) GetSubscriber(ctx context.Context, appUserID string) (*Subscriber, error) {
	const op = "revenuecat.GetSubscriber"
	req, err := c.newRequest(ctx, http.MethodGet, "/subscribers/"+url.PathEscape(appUserID), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var resp SubscriberResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &resp.Subscriber, nil
}

// GetOfferings возвращает доступные для покупки пакеты.
func (c *Client) GetOfferings(ctx context.Context, appUserID string) (*OfferingsResponse, error) {
	const op = "revenuecat.GetOfferings"
	req, err := c.newRequest(ctx, http.MethodGet, "/subscribers/"+url.PathEscape(appUserID)+"/offerings", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var resp OfferingsResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &resp, nil
}

// PostReceipt проводит чек магазина и возвращает обновлённое состояние
// подписчика. Повторная отправка того же чека безопасна: провайдер
// дедуплицирует по транзакции.
func (c *Client) PostReceipt(ctx context.Context, reqParams ReceiptRequest) (*Subscriber, error) {
	const op = "revenuecat.PostReceipt"
	req, err := c.newRequest(ctx, http.MethodPost, "/receipts", reqParams)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var resp SubscriberResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &resp.Subscriber, nil
}

// GrantPromotionalEntitlement выдаёт подписчику промо-entitlement
// до указанного момента времени.
func (c *Client) GrantPromotionalEntitlement(ctx context.Context, appUserID, entitlementID string, endTime time.Time) error {
	const op = "revenuecat.GrantPromotionalEntitlement"
	path := "/subscribers/" + url.PathEscape(appUserID) + "/entitlements/" + url.PathEscape(entitlementID) + "/promotional"
	req, err := c.newRequest(ctx, http.MethodPost, path, promotionalGrantRequest{
		EndTimeMs: endTime.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
