package client

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/DarshikR/Chat-App/internal/domain"
	"github.com/DarshikR/Chat-App/internal/service"
)

// API is the REST surface consumed by the session controller.
type API struct {
	client *resty.Client
	token  string
}

func NewAPI(baseURL string) *API {
	return &API{
		client: resty.New().SetBaseURL(baseURL),
	}
}

// Token returns the access token obtained at login. The websocket dial
// needs it as a query parameter.
func (a *API) Token() string {
	return a.token
}

func (a *API) Register(ctx context.Context, email, password, displayName string) (*domain.User, error) {
	var user domain.User
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"email":        email,
			"password":     password,
			"display_name": displayName,
		}).
		SetResult(&user).
		Post("/api/v1/auth/register")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("register failed: %s", resp.String())
	}

	return &user, nil
}

func (a *API) Login(ctx context.Context, email, password string) (*domain.User, error) {
	var result service.LoginResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&result).
		Post("/api/v1/auth/login")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("login failed: %s", resp.String())
	}

	a.token = result.AccessToken
	a.client.SetAuthToken(result.AccessToken)
	return result.User, nil
}

func (a *API) Contacts(ctx context.Context) ([]*domain.Contact, error) {
	var contacts []*domain.Contact
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&contacts).
		Get("/api/v1/contacts")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("contacts fetch failed: %s", resp.String())
	}

	return contacts, nil
}

func (a *API) History(ctx context.Context, peerID string) ([]*domain.Message, error) {
	var messages []*domain.Message
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&messages).
		Get("/api/v1/messages/" + peerID)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("history fetch failed: %s", resp.String())
	}

	return messages, nil
}

func (a *API) SendMessage(ctx context.Context, peerID, text, image string) (*domain.Message, error) {
	var message domain.Message
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"text": text, "image": image}).
		SetResult(&message).
		Post("/api/v1/messages/" + peerID)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("send failed: %s", resp.String())
	}

	return &message, nil
}
