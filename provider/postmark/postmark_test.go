package postmark

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	publisher "github.com/interactive-solutions/go-template-publisher"
	"github.com/interactive-solutions/go-template-publisher/provider/postmark/postmarktest"
)

func TestPostmark(t *testing.T) {
	suite.Run(t, new(postmarkTestSuite))
}

type postmarkTestSuite struct {
	suite.Suite

	server *postmarktest.Server
	client publisher.TemplateService
}

func (suite *postmarkTestSuite) SetupTest() {
	suite.server = postmarktest.NewServer("token", 1000)
	suite.client = NewClient("token", SetBaseURL(suite.server.URL+"/"))
}

func (suite *postmarkTestSuite) TearDownTest() {
	suite.server.Close()
}

func (suite *postmarkTestSuite) TestCreate() {
	resp, err := suite.client.CreateTemplate(context.Background(), publisher.Payload{
		Name:       "welcome",
		Subject:    "Hi",
		HtmlBody:   "<p>Hi</p>",
		TextBody:   "Hi",
		TemplateId: "5",
	})

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), publisher.TemplateID("1000"), resp.TemplateId)
	assert.Equal(suite.T(), "welcome", resp.Name)

	calls := suite.server.Calls()
	require.Len(suite.T(), calls, 1)
	assert.Equal(suite.T(), http.MethodPost, calls[0].Method)
	assert.Equal(suite.T(), "Hi", calls[0].Request.Subject)
	assert.Empty(suite.T(), calls[0].Request.TemplateId)
}

func (suite *postmarkTestSuite) TestEdit() {
	suite.server.Seed(postmarktest.Template{TemplateId: 12, Name: "welcome", Subject: "Old"})

	resp, err := suite.client.EditTemplate(context.Background(), "12", publisher.Payload{
		Name:       "welcome",
		Subject:    "New",
		TemplateId: "12",
	})

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), publisher.TemplateID("12"), resp.TemplateId)

	tpl, ok := suite.server.Template(12)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), "New", tpl.Subject)

	calls := suite.server.Calls()
	require.Len(suite.T(), calls, 1)
	assert.Equal(suite.T(), "12", calls[0].Request.TemplateId.String())
}

func (suite *postmarkTestSuite) TestEditMissingIsNotFound() {
	_, err := suite.client.EditTemplate(context.Background(), "404", publisher.Payload{Name: "welcome", Subject: "Hi"})

	require.Error(suite.T(), err)
	assert.True(suite.T(), publisher.IsNotFound(err))

	e, ok := publisher.AsError(err)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), publisher.PostmarkTemplateNotFound, e.Code)
}

func (suite *postmarkTestSuite) TestEditWithPaddedId() {
	_, err := suite.client.EditTemplate(context.Background(), "007", publisher.Payload{
		Name:       "welcome",
		Subject:    "Hi",
		TemplateId: "007",
	})

	require.Error(suite.T(), err)
	assert.True(suite.T(), publisher.IsNotFound(err))

	calls := suite.server.Calls()
	require.Len(suite.T(), calls, 1)
	assert.Equal(suite.T(), "007", calls[0].TemplateId)
	assert.Empty(suite.T(), calls[0].Request.TemplateId)
}

func (suite *postmarkTestSuite) TestEditWithoutId() {
	_, err := suite.client.EditTemplate(context.Background(), "", publisher.Payload{})

	assert.Error(suite.T(), err)
	assert.Empty(suite.T(), suite.server.Calls())
}

func (suite *postmarkTestSuite) TestInvalidToken() {
	client := NewClient("wrong", SetBaseURL(suite.server.URL))

	_, err := client.CreateTemplate(context.Background(), publisher.Payload{Name: "welcome", Subject: "Hi"})

	require.Error(suite.T(), err)
	assert.False(suite.T(), publisher.IsNotFound(err))
	assert.False(suite.T(), publisher.IsFatal(err))

	e, ok := publisher.AsError(err)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), publisher.KindRemote, e.Kind)
	assert.Equal(suite.T(), 10, e.Code)
	assert.Equal(suite.T(), "Request does not contain a valid Server token.", e.Message)
}

func (suite *postmarkTestSuite) TestErrorWithoutBody() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(suite.T(), "token", r.Header.Get("X-Postmark-Server-Token"))
		assert.Equal(suite.T(), "application/json", r.Header.Get("Accept"))
		assert.Equal(suite.T(), publisher.UserAgent, r.Header.Get("User-Agent"))

		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient("token", SetBaseURL(server.URL))

	_, err := client.CreateTemplate(context.Background(), publisher.Payload{Name: "welcome", Subject: "Hi"})

	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "Unexpected response code 500")

	e, ok := publisher.AsError(err)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), publisher.KindRemote, e.Kind)
}

func (suite *postmarkTestSuite) TestLoggerFromEntry() {
	logger, _ := test.NewNullLogger()
	entry := logger.WithField("run", "abc")

	c := NewClient("token", SetLogger(entry)).(*client)
	assert.NotNil(suite.T(), c.http.Logger)

	c = NewClient("token", SetLogger(logger)).(*client)
	assert.NotNil(suite.T(), c.http.Logger)

	c = NewClient("token").(*client)
	assert.Nil(suite.T(), c.http.Logger)
}
