package internal

import "encoding/json"

// TemplateRequest is the body of the Postmark create and edit template calls.
type TemplateRequest struct {
	Name     string `json:"Name"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody,omitempty"`
	TextBody string `json:"TextBody,omitempty"`

	TemplateId json.Number `json:"TemplateId,omitempty"`
}

type TemplateResponse struct {
	TemplateId json.Number `json:"TemplateId"`
	Name       string      `json:"Name"`
	Active     bool        `json:"Active"`
}

type ErrorResponse struct {
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}
