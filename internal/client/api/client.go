package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/iudanet/studysync/internal/models"
	"github.com/iudanet/studysync/internal/syncerr"
	"github.com/iudanet/studysync/pkg/api"
)

// Page страница изменений, полученная от сервера
type Page struct {
	NextCursor models.Cursor
	Records    []models.Record
	HasMore    bool
}

// Mutation локальная правка для отправки на сервер
type Mutation struct {
	Record      models.Record
	BaseVersion int64
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// Register регистрирует нового пользователя и сразу выдает токены
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/register", "", req, &resp); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp, nil
}

// Login выполняет аутентификацию пользователя
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", "", req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Refresh обменивает refresh token на новую пару токенов
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	req := api.RefreshRequest{RefreshToken: refreshToken}
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/refresh", "", req, &resp); err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	return &resp, nil
}

// Logout отзывает refresh token на сервере
func (c *Client) Logout(ctx context.Context, accessToken, refreshToken string) error {
	req := api.LogoutRequest{RefreshToken: refreshToken}
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/logout", accessToken, req, nil); err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	return nil
}

// VerifySession проверяет, что access token принимается сервером
func (c *Client) VerifySession(ctx context.Context, token string) error {
	var resp api.SessionResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/session", token, nil, &resp); err != nil {
		return fmt.Errorf("session check failed: %w", err)
	}
	return nil
}

// FetchSince читает изменения после курсора
func (c *Client) FetchSince(ctx context.Context, token string, cursor models.Cursor, pageSize int) (*Page, error) {
	q := url.Values{}
	q.Set("cursor", string(cursor))
	q.Set("limit", strconv.Itoa(pageSize))

	var resp api.PullResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/records?"+q.Encode(), token, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch request failed: %w", err)
	}

	page := &Page{
		NextCursor: models.Cursor(resp.NextCursor),
		HasMore:    resp.HasMore,
		Records:    make([]models.Record, 0, len(resp.Records)),
	}
	for _, r := range resp.Records {
		page.Records = append(page.Records, models.RecordFromWire(r))
	}
	return page, nil
}

// ApplyMutation отправляет правку и возвращает новую удаленную версию.
// Ошибки: *syncerr.ConflictError, *syncerr.TransientError, *syncerr.FatalError, syncerr.ErrUnauthorized.
func (c *Client) ApplyMutation(ctx context.Context, token string, m Mutation) (int64, error) {
	req := api.MutationRequest{
		Record:      m.Record.Wire(),
		BaseVersion: m.BaseVersion,
	}

	var resp api.MutationResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/records/mutations", token, req, &resp); err != nil {
		return 0, fmt.Errorf("mutation of %s failed: %w", m.Record.ID, err)
	}
	return resp.Version, nil
}

// doRequest выполняет HTTP запрос и классифицирует ошибки
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Отмена вызывающей стороной не является сбоем сети
		if errors.Is(err, context.Canceled) {
			return err
		}
		return syncerr.Transient(fmt.Errorf("request failed: %w", err), 0)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return syncerr.Transient(fmt.Errorf("failed to read response body: %w", err), 0)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classify(resp, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &syncerr.FatalError{Reason: fmt.Sprintf("failed to decode response: %v", err)}
		}
	}

	return nil
}

// classify переводит HTTP статус в таксономию ошибок синхронизации
func classify(resp *http.Response, body []byte) error {
	status := resp.StatusCode
	msg := errorMessage(status, body)

	switch {
	case status == http.StatusConflict:
		var conflict api.ConflictResponse
		if err := json.Unmarshal(body, &conflict); err != nil || conflict.Current.ID == "" {
			// 409 без текущей записи (например, занятый username)
			return &syncerr.FatalError{Reason: msg}
		}
		return &syncerr.ConflictError{Current: models.RecordFromWire(conflict.Current)}

	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: %w", msg, syncerr.ErrUnauthorized)

	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= http.StatusInternalServerError:
		return syncerr.Transient(errors.New(msg), retryAfter(resp.Header.Get("Retry-After")))

	default:
		return &syncerr.FatalError{Reason: msg}
	}
}

func errorMessage(status int, body []byte) string {
	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		if errResp.Message != "" {
			return fmt.Sprintf("server error (%d): %s: %s", status, errResp.Error, errResp.Message)
		}
		return fmt.Sprintf("server error (%d): %s", status, errResp.Error)
	}
	return fmt.Sprintf("request failed with status %d", status)
}

// retryAfter разбирает заголовок Retry-After: секунды или HTTP дата
func retryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
