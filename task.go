package publisher

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ServiceFactory builds the remote service once the server token is known.
type ServiceFactory func(token string) (TemplateService, error)

// Task runs a full publish: resolve the credential, publish every
// configured template, then write the results file.
type Task struct {
	Config *Config

	// Options override the options found in Config.
	Options Options
	// Output overrides the configured output filename.
	Output string
	// Merge seeds the results from the existing output file and reuses the
	// ids it records for templates configured without one. Entries for
	// configured templates are dropped first, so a template that fails in
	// this run has no entry in the output.
	Merge bool
	// SkipToken is set for services that authenticate on their own.
	SkipToken bool

	NewService       ServiceFactory
	PublisherOptions []PublisherOption
	Logger           logrus.FieldLogger
}

func (t *Task) Run(ctx context.Context) (*Results, error) {
	if t.Config == nil {
		return nil, errors.New("No configuration provided")
	}

	if t.NewService == nil {
		return nil, errors.New("No template service configured")
	}

	logger := t.Logger
	if logger == nil {
		logger = logrus.New()
	}

	opts := t.Config.Options
	if t.Options.ServerToken != "" {
		opts.ServerToken = t.Options.ServerToken
	}

	var token string
	if !t.SkipToken {
		var err error
		if token, err = ResolveServerToken(opts, t.Config.Store); err != nil {
			return nil, err
		}
	}

	output := t.Output
	if output == "" {
		output = t.Config.OutputFilename()
	}

	options := append([]PublisherOption{
		SetLogger(logger),
		SetBaseDir(t.Config.Dir),
	}, t.PublisherOptions...)

	service, err := t.NewService(token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create template service")
	}

	p := NewPublisher(service, options...)

	// Every template is checked before the first remote call.
	for _, target := range t.Config.Templates {
		if _, err := p.Validate(target.Label, target.Template); err != nil {
			return nil, errors.Wrapf(err, "template %q", target.Label)
		}
	}

	results := NewResults()
	targets := t.Config.Templates

	if t.Merge {
		if results, err = LoadResults(output); err != nil {
			return nil, err
		}

		targets = results.ApplyKnownIDs(targets)

		for _, target := range targets {
			results.Remove(target.Name())
		}
	}

	if err := p.PublishAll(ctx, results, targets); err != nil {
		return results, err
	}

	logger.WithField("published", results.Len()).Debug("publish finished")

	if err := WriteResults(output, results, logger); err != nil {
		return results, err
	}

	return results, nil
}
