package postmark

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	publisher "github.com/interactive-solutions/go-template-publisher"
	"github.com/interactive-solutions/go-template-publisher/internal"
)

const DefaultBaseURL = "https://api.postmarkapp.com"

const tokenHeader = "X-Postmark-Server-Token"

type PostmarkOption func(c *client)

func SetBaseURL(baseURL string) PostmarkOption {
	return func(c *client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// SetHTTPClient replaces the default client, which never retries.
func SetHTTPClient(httpClient *retryablehttp.Client) PostmarkOption {
	return func(c *client) {
		c.http = httpClient
	}
}

// LevelWriter is satisfied by *logrus.Logger and *logrus.Entry. Fields on
// an entry are kept on every line the HTTP client logs.
type LevelWriter interface {
	WriterLevel(level logrus.Level) *io.PipeWriter
}

func SetLogger(logger LevelWriter) PostmarkOption {
	return func(c *client) {
		c.http.Logger = log.New(logger.WriterLevel(logrus.DebugLevel), "", 0)
	}
}

type client struct {
	http *retryablehttp.Client

	baseURL     string
	serverToken string
}

// NewClient returns a Postmark template service authorized by serverToken.
func NewClient(serverToken string, options ...PostmarkOption) publisher.TemplateService {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 0
	httpClient.CheckRetry = noRetry
	httpClient.Logger = nil

	c := &client{
		http:        httpClient,
		baseURL:     DefaultBaseURL,
		serverToken: serverToken,
	}

	for _, option := range options {
		option(c)
	}

	return c
}

// noRetry hands every response back to the caller untouched.
func noRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}

	return false, nil
}

func (c *client) CreateTemplate(ctx context.Context, payload publisher.Payload) (publisher.Response, error) {
	body := newTemplateRequest(payload.WithoutID())

	return c.do(ctx, http.MethodPost, "/templates", body)
}

func (c *client) EditTemplate(ctx context.Context, id publisher.TemplateID, payload publisher.Payload) (publisher.Response, error) {
	if id.IsZero() {
		return publisher.Response{}, errors.New("Cannot edit a template without an id")
	}

	body := newTemplateRequest(payload)

	return c.do(ctx, http.MethodPut, "/templates/"+url.PathEscape(id.String()), body)
}

func newTemplateRequest(payload publisher.Payload) internal.TemplateRequest {
	req := internal.TemplateRequest{
		Name:     payload.Name,
		Subject:  payload.Subject,
		HtmlBody: payload.HtmlBody,
		TextBody: payload.TextBody,
	}

	if payload.TemplateId.IsNumeric() {
		req.TemplateId = json.Number(payload.TemplateId)
	}

	return req
}

func (c *client) do(ctx context.Context, method, path string, body interface{}) (publisher.Response, error) {
	var out publisher.Response

	data, err := json.Marshal(body)
	if err != nil {
		return out, errors.Wrap(err, "Failed to encode template request")
	}

	req, err := retryablehttp.NewRequest(method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return out, err
	}

	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", publisher.UserAgent)
	req.Header.Set(tokenHeader, c.serverToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return out, errors.Wrapf(err, "%s %s failed", method, path)
	}
	defer resp.Body.Close()

	raw, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return out, errors.Wrap(err, "Failed to read Postmark response")
	}

	if resp.StatusCode >= 300 || resp.StatusCode <= 199 {
		return out, decodeError(resp.StatusCode, raw)
	}

	var tpl internal.TemplateResponse
	if err := json.Unmarshal(raw, &tpl); err != nil {
		return out, errors.Wrap(err, "Failed to decode Postmark response")
	}

	out.TemplateId = publisher.TemplateID(tpl.TemplateId.String())
	out.Name = tpl.Name

	return out, nil
}

func decodeError(status int, raw []byte) error {
	var body internal.ErrorResponse
	if err := json.Unmarshal(raw, &body); err != nil || (body.ErrorCode == 0 && body.Message == "") {
		return &publisher.Error{
			Kind: publisher.KindRemote,
			Err:  errors.Errorf("Unexpected response code %d received from Postmark", status),
		}
	}

	return publisher.NewRemoteError(body.ErrorCode, body.Message)
}
