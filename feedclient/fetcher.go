package feedclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"agora/models"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

const defaultTimeout = 10 * time.Second

// HTTPFetcher fetches feed pages from the agora API
type HTTPFetcher struct {
	client *resty.Client
}

// NewHTTPFetcher creates a fetcher for the API at baseURL. A zero timeout
// uses the default.
func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "agora-cli")

	client.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		log.WithFields(log.Fields{
			"method": req.Method,
			"url":    req.URL,
		}).Debug("HTTP request")
		return nil
	})
	client.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		log.WithFields(log.Fields{
			"status":  resp.StatusCode(),
			"latency": resp.Time(),
		}).Debug("HTTP response")
		return nil
	})

	return &HTTPFetcher{client: client}
}

// SetToken authenticates later requests with a bearer token
func (f *HTTPFetcher) SetToken(token string) {
	f.client.SetAuthToken(token)
}

type signInResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// SignIn exchanges credentials for a token, which is kept for later
// requests, and returns the signed-in user
func (f *HTTPFetcher) SignIn(ctx context.Context, login, password string) (models.CurrentUser, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"emailOrUsername": login,
			"password":        password,
		}).
		Post("/api/auth/signin")
	if err != nil {
		return models.CurrentUser{}, fmt.Errorf("sign in: %w", err)
	}
	if resp.IsError() {
		return models.CurrentUser{}, fmt.Errorf("sign in: %w", responseError(resp))
	}

	var body signInResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return models.CurrentUser{}, fmt.Errorf("sign in: decode response: %w", err)
	}
	if body.Token == "" {
		return models.CurrentUser{}, errors.New("sign in: response has no token")
	}

	f.SetToken(body.Token)
	return models.CurrentUser{
		ID:       body.User.Id,
		Handle:   body.User.Handle,
		Username: body.User.Username,
	}, nil
}

// FetchPage returns one page of posts for view
func (f *HTTPFetcher) FetchPage(ctx context.Context, view models.View, page int) ([]models.Post, error) {
	path, err := viewPath(view)
	if err != nil {
		return nil, &FetchError{View: view, Page: page, Err: err}
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("page", strconv.Itoa(page)).
		Get(path)
	if err != nil {
		return nil, &FetchError{View: view, Page: page, Err: err}
	}
	if resp.IsError() {
		return nil, &FetchError{View: view, Page: page, StatusCode: resp.StatusCode(), Err: responseError(resp)}
	}

	var posts []models.Post
	if err := json.Unmarshal(resp.Body(), &posts); err != nil {
		return nil, &FetchError{View: view, Page: page, StatusCode: resp.StatusCode(), Err: fmt.Errorf("decode posts: %w", err)}
	}
	return posts, nil
}

// FetchCommunities returns the communities the signed-in user belongs to
func (f *HTTPFetcher) FetchCommunities(ctx context.Context) ([]models.Community, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		Get("/api/communities/user")
	if err != nil {
		return nil, fmt.Errorf("fetch communities: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch communities: %w", responseError(resp))
	}

	var communities []models.Community
	if err := json.Unmarshal(resp.Body(), &communities); err != nil {
		return nil, fmt.Errorf("fetch communities: decode response: %w", err)
	}
	return communities, nil
}

// viewPath maps a view onto its API route
func viewPath(view models.View) (string, error) {
	switch view {
	case models.ViewForYou:
		return "/api/posts/for-you", nil
	case models.ViewFollowing:
		return "/api/posts/following", nil
	case "":
		return "", errors.New("empty view")
	}
	return "/api/communities/" + url.PathEscape(string(view)) + "/posts", nil
}

// responseError turns an error response into an error, using the API's
// error message when there is one
func responseError(resp *resty.Response) error {
	var body errorResponse
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != "" {
		return fmt.Errorf("%s: %s", resp.Status(), body.Error)
	}
	return errors.New(resp.Status())
}

var _ Fetcher[models.Post] = (*HTTPFetcher)(nil)
var _ CommunityLister = (*HTTPFetcher)(nil)
