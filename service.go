package publisher

import "context"

// TemplateService is the remote side of a publish. Implementations return
// *Error values and must report a missing template with KindNotFound.
type TemplateService interface {
	CreateTemplate(ctx context.Context, payload Payload) (Response, error)
	EditTemplate(ctx context.Context, id TemplateID, payload Payload) (Response, error)
}

type Response struct {
	TemplateId TemplateID
	Name       string
}
