package provider

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/aws/aws-sdk-go/service/ses/sesiface"

	publisher "github.com/interactive-solutions/go-template-publisher"
)

// sesTemplates publishes to SES, where the template name is its id.
type sesTemplates struct {
	ses sesiface.SESAPI
}

func NewSesTemplateService(sess *session.Session) publisher.TemplateService {
	return NewSesTemplateServiceWithClient(ses.New(sess))
}

func NewSesTemplateServiceWithClient(client sesiface.SESAPI) publisher.TemplateService {
	return &sesTemplates{
		ses: client,
	}
}

func (s *sesTemplates) CreateTemplate(ctx context.Context, payload publisher.Payload) (publisher.Response, error) {
	input := &ses.CreateTemplateInput{
		Template: sesTemplate(payload.Name, payload),
	}

	if _, err := s.ses.CreateTemplateWithContext(ctx, input); err != nil {
		return publisher.Response{}, classify(err)
	}

	return publisher.Response{
		TemplateId: publisher.TemplateID(payload.Name),
		Name:       payload.Name,
	}, nil
}

func (s *sesTemplates) EditTemplate(ctx context.Context, id publisher.TemplateID, payload publisher.Payload) (publisher.Response, error) {
	input := &ses.UpdateTemplateInput{
		Template: sesTemplate(id.String(), payload),
	}

	if _, err := s.ses.UpdateTemplateWithContext(ctx, input); err != nil {
		return publisher.Response{}, classify(err)
	}

	return publisher.Response{
		TemplateId: id,
		Name:       id.String(),
	}, nil
}

func sesTemplate(name string, payload publisher.Payload) *ses.Template {
	tpl := &ses.Template{
		TemplateName: aws.String(name),
		SubjectPart:  aws.String(payload.Subject),
	}

	if payload.HtmlBody != "" {
		tpl.HtmlPart = aws.String(payload.HtmlBody)
	}

	if payload.TextBody != "" {
		tpl.TextPart = aws.String(payload.TextBody)
	}

	return tpl
}

func classify(err error) error {
	aerr, ok := err.(awserr.Error)
	if !ok {
		return &publisher.Error{Kind: publisher.KindRemote, Err: err}
	}

	if aerr.Code() == ses.ErrCodeTemplateDoesNotExistException {
		return publisher.NewNotFoundError(aerr.Message(), err)
	}

	return &publisher.Error{
		Kind:    publisher.KindRemote,
		Message: aerr.Code() + ": " + aerr.Message(),
		Err:     err,
	}
}
