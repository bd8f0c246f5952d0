package provider

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/aws/aws-sdk-go/service/ses/sesiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	publisher "github.com/interactive-solutions/go-template-publisher"
)

type fakeSES struct {
	sesiface.SESAPI

	templates map[string]ses.Template
}

func (f *fakeSES) CreateTemplateWithContext(ctx aws.Context, input *ses.CreateTemplateInput, _ ...request.Option) (*ses.CreateTemplateOutput, error) {
	name := aws.StringValue(input.Template.TemplateName)
	if _, ok := f.templates[name]; ok {
		return nil, awserr.New(ses.ErrCodeAlreadyExistsException, "Template "+name+" already exists", nil)
	}

	f.templates[name] = *input.Template
	return &ses.CreateTemplateOutput{}, nil
}

func (f *fakeSES) UpdateTemplateWithContext(ctx aws.Context, input *ses.UpdateTemplateInput, _ ...request.Option) (*ses.UpdateTemplateOutput, error) {
	name := aws.StringValue(input.Template.TemplateName)
	if _, ok := f.templates[name]; !ok {
		return nil, awserr.New(ses.ErrCodeTemplateDoesNotExistException, "Template "+name+" does not exist", nil)
	}

	f.templates[name] = *input.Template
	return &ses.UpdateTemplateOutput{}, nil
}

func TestSesCreate(t *testing.T) {
	fake := &fakeSES{templates: map[string]ses.Template{}}
	service := NewSesTemplateServiceWithClient(fake)

	resp, err := service.CreateTemplate(context.Background(), publisher.Payload{
		Name:     "welcome",
		Subject:  "Hi",
		HtmlBody: "<p>Hi</p>",
	})

	require.NoError(t, err)
	assert.Equal(t, publisher.TemplateID("welcome"), resp.TemplateId)

	tpl := fake.templates["welcome"]
	assert.Equal(t, "Hi", aws.StringValue(tpl.SubjectPart))
	assert.Equal(t, "<p>Hi</p>", aws.StringValue(tpl.HtmlPart))
	assert.Nil(t, tpl.TextPart)
}

func TestSesEditMissingIsNotFound(t *testing.T) {
	service := NewSesTemplateServiceWithClient(&fakeSES{templates: map[string]ses.Template{}})

	_, err := service.EditTemplate(context.Background(), "welcome", publisher.Payload{Name: "welcome", Subject: "Hi"})

	require.Error(t, err)
	assert.True(t, publisher.IsNotFound(err))
}

func TestSesEditExisting(t *testing.T) {
	fake := &fakeSES{templates: map[string]ses.Template{
		"welcome": {TemplateName: aws.String("welcome"), SubjectPart: aws.String("Old")},
	}}
	service := NewSesTemplateServiceWithClient(fake)

	resp, err := service.EditTemplate(context.Background(), "welcome", publisher.Payload{Name: "welcome", Subject: "New"})

	require.NoError(t, err)
	assert.Equal(t, publisher.TemplateID("welcome"), resp.TemplateId)
	assert.Equal(t, "New", aws.StringValue(fake.templates["welcome"].SubjectPart))
}

func TestSesOtherErrorsAreRemote(t *testing.T) {
	fake := &fakeSES{templates: map[string]ses.Template{"welcome": {}}}
	service := NewSesTemplateServiceWithClient(fake)

	_, err := service.CreateTemplate(context.Background(), publisher.Payload{Name: "welcome", Subject: "Hi"})

	require.Error(t, err)
	assert.False(t, publisher.IsNotFound(err))

	e, ok := publisher.AsError(err)
	require.True(t, ok)
	assert.Equal(t, publisher.KindRemote, e.Kind)
	assert.Contains(t, e.Message, ses.ErrCodeAlreadyExistsException)
}
