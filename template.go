package publisher

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// TemplateID identifies a template on the remote service. Postmark
// assigns numbers, SES uses the template name.
type TemplateID string

func (id TemplateID) IsZero() bool {
	return id == ""
}

func (id TemplateID) String() string {
	return string(id)
}

// IsNumeric reports whether id is a canonical integer, one that encodes
// as a bare JSON number.
func (id TemplateID) IsNumeric() bool {
	if id == "" {
		return false
	}

	n, err := strconv.ParseInt(string(id), 10, 64)
	return err == nil && strconv.FormatInt(n, 10) == string(id)
}

func (id TemplateID) MarshalJSON() ([]byte, error) {
	if id.IsNumeric() {
		return []byte(id), nil
	}

	return json.Marshal(string(id))
}

func (id *TemplateID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		*id = TemplateID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Wrap(err, "template id must be a number or a string")
	}

	*id = TemplateID(n.String())
	return nil
}

func (id *TemplateID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: template id must be a scalar", node.Line)
	}

	if node.Tag == "!!null" {
		*id = ""
		return nil
	}

	*id = TemplateID(node.Value)
	return nil
}

// Template is a single template definition as it appears in the
// configuration file.
type Template struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Subject  string `json:"subject,omitempty" yaml:"subject,omitempty"`
	HtmlBody string `json:"htmlBody,omitempty" yaml:"htmlBody,omitempty"`
	HtmlSrc  string `json:"htmlSrc,omitempty" yaml:"htmlSrc,omitempty"`
	TextBody string `json:"textBody,omitempty" yaml:"textBody,omitempty"`
	TextSrc  string `json:"textSrc,omitempty" yaml:"textSrc,omitempty"`

	TemplateId TemplateID `json:"templateId,omitempty" yaml:"templateId,omitempty"`
}

func (t Template) HasHtml() bool {
	return t.HtmlBody != "" || t.HtmlSrc != ""
}

func (t Template) HasText() bool {
	return t.TextBody != "" || t.TextSrc != ""
}

// Expand builds the request payload, reading htmlSrc and textSrc when the
// matching inline body is empty. Relative paths are resolved against baseDir.
func (t Template) Expand(baseDir string) (Payload, error) {
	payload := Payload{
		Name:       t.Name,
		Subject:    t.Subject,
		HtmlBody:   t.HtmlBody,
		TextBody:   t.TextBody,
		TemplateId: t.TemplateId,
	}

	if payload.HtmlBody == "" && t.HtmlSrc != "" {
		body, err := readSource(baseDir, t.HtmlSrc)
		if err != nil {
			return payload, err
		}

		payload.HtmlBody = body
	}

	if payload.TextBody == "" && t.TextSrc != "" {
		body, err := readSource(baseDir, t.TextSrc)
		if err != nil {
			return payload, err
		}

		payload.TextBody = body
	}

	return payload, nil
}

func readSource(baseDir, src string) (string, error) {
	path := src
	if baseDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return "", NewIOError(path, err)
	}

	return string(data), nil
}

// Payload is the request-ready form of a Template.
type Payload struct {
	Name       string
	Subject    string
	HtmlBody   string
	TextBody   string
	TemplateId TemplateID
}

func (p Payload) WithoutID() Payload {
	p.TemplateId = ""
	return p
}

// Result is what a successful publish records for one template. The name is
// the key it is stored under, so it is not repeated here.
type Result struct {
	Subject  string `json:"subject,omitempty"`
	HtmlBody string `json:"htmlBody,omitempty"`
	HtmlSrc  string `json:"htmlSrc,omitempty"`
	TextBody string `json:"textBody,omitempty"`
	TextSrc  string `json:"textSrc,omitempty"`

	TemplateId TemplateID `json:"templateId"`
}

func newResult(t Template, id TemplateID) Result {
	return Result{
		Subject:    t.Subject,
		HtmlBody:   t.HtmlBody,
		HtmlSrc:    t.HtmlSrc,
		TextBody:   t.TextBody,
		TextSrc:    t.TextSrc,
		TemplateId: id,
	}
}

// Target is one configured template together with the label it was
// configured under. The label is the default name.
type Target struct {
	Label    string
	Template Template
}

// Name is the name the template is published and recorded under.
func (t Target) Name() string {
	if t.Template.Name != "" {
		return t.Template.Name
	}

	return t.Label
}

// Targets keeps configured templates in document order.
type Targets []Target

func (targets *Targets) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*targets = nil
		return nil
	}

	if node.Kind != yaml.MappingNode {
		return errors.Errorf("line %d: templates must be a mapping of target to template", node.Line)
	}

	out := make(Targets, 0, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]

		var tpl Template
		if err := value.Decode(&tpl); err != nil {
			return errors.Wrapf(err, "template %q", key.Value)
		}

		out = append(out, Target{Label: key.Value, Template: tpl})
	}

	*targets = out
	return nil
}

func (targets *Targets) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if tok == nil {
		*targets = nil
		return nil
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("templates must be an object of target to template")
	}

	var out Targets

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}

		label, _ := tok.(string)

		var tpl Template
		if err := dec.Decode(&tpl); err != nil {
			return errors.Wrapf(err, "template %q", label)
		}

		out = append(out, Target{Label: label, Template: tpl})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*targets = out
	return nil
}
