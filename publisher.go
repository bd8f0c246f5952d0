package publisher

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

const UserAgent = "InteractiveSolutions/GoTemplatePublisher-1.0"

type PublisherOption func(p *Publisher)

func SetLogger(logger logrus.FieldLogger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// SetBaseDir sets the directory relative htmlSrc and textSrc paths are
// read from.
func SetBaseDir(dir string) PublisherOption {
	return func(p *Publisher) {
		p.baseDir = dir
	}
}

// SetConcurrency sets how many templates PublishAll keeps in flight. One
// publishes strictly in configuration order.
func SetConcurrency(count int) PublisherOption {
	return func(p *Publisher) {
		p.concurrency = count
	}
}

type Publisher struct {
	logger  logrus.FieldLogger
	service TemplateService

	baseDir     string
	concurrency int
}

func NewPublisher(service TemplateService, options ...PublisherOption) *Publisher {
	p := &Publisher{
		logger:      logrus.New(),
		service:     service,
		concurrency: 1,
	}

	for _, option := range options {
		option(p)
	}

	if p.concurrency < 1 {
		p.concurrency = 1
	}

	return p
}

// Validate applies the checks that must pass before any remote call. Name
// defaults to target. Missing bodies are only logged.
func (p *Publisher) Validate(target string, tpl Template) (Template, error) {
	if tpl.Name == "" {
		tpl.Name = target
	}

	if tpl.Name == "" {
		return tpl, NewValidationError("name")
	}

	if tpl.Subject == "" {
		return tpl, NewValidationError("subject")
	}

	return tpl, nil
}

// Publish creates or edits one template and records the outcome in results.
//
// A returned error is fatal for the run. A failure reported by the service
// is logged and yields a nil result with a nil error.
func (p *Publisher) Publish(ctx context.Context, results *Results, target string, tpl Template) (*Result, error) {
	tpl, err := p.Validate(target, tpl)
	if err != nil {
		return nil, err
	}

	logger := p.logger.WithField("template", tpl.Name)

	if !tpl.HasHtml() {
		logger.Warn(`Missing template property "htmlBody" or "htmlSrc"`)
	}

	if !tpl.HasText() {
		logger.Warn(`Missing template property "textBody" or "textSrc"`)
	}

	payload, err := tpl.Expand(p.baseDir)
	if err != nil {
		return nil, err
	}

	if tpl.TemplateId.IsZero() {
		return p.create(ctx, logger, results, tpl, payload)
	}

	resp, err := p.service.EditTemplate(ctx, tpl.TemplateId, payload)
	switch {
	case err == nil:
		logger.
			WithField("templateId", resp.TemplateId).
			Infof("Template %s updated: %s", tpl.Name, resp.TemplateId)

		return p.record(results, tpl, resp), nil

	case IsNotFound(err):
		logger.
			WithField("templateId", tpl.TemplateId).
			Warnf("Template %s not found, so attempting create", tpl.TemplateId)

		tpl.TemplateId = ""

		return p.create(ctx, logger, results, tpl, payload.WithoutID())

	default:
		return nil, p.failed(ctx, logger, err)
	}
}

func (p *Publisher) create(ctx context.Context, logger logrus.FieldLogger, results *Results, tpl Template, payload Payload) (*Result, error) {
	resp, err := p.service.CreateTemplate(ctx, payload)
	if err != nil {
		return nil, p.failed(ctx, logger, err)
	}

	logger.
		WithField("templateId", resp.TemplateId).
		Infof("Template %q created: %s", tpl.Name, resp.TemplateId)

	return p.record(results, tpl, resp), nil
}

func (p *Publisher) record(results *Results, tpl Template, resp Response) *Result {
	result := newResult(tpl, resp.TemplateId)

	if results != nil {
		results.Add(tpl.Name, result)
	}

	return &result
}

// failed logs a service failure. It only returns an error when the context
// was cancelled, which ends the run.
func (p *Publisher) failed(ctx context.Context, logger logrus.FieldLogger, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if e, ok := AsError(err); ok && e.Message != "" {
		logger.WithField("code", e.Code).Warn("Error: " + e.Message)
		return nil
	}

	logger.Warn(fmt.Sprintf("Error: %+v", err))

	return nil
}

// PublishAll publishes every target. The first fatal error stops the
// remaining work and is returned.
func (p *Publisher) PublishAll(ctx context.Context, results *Results, targets Targets) error {
	if p.concurrency == 1 {
		for _, target := range targets {
			if err := ctx.Err(); err != nil {
				return err
			}

			if _, err := p.Publish(ctx, results, target.Label, target.Template); err != nil {
				return err
			}
		}

		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg    sync.WaitGroup
		once  sync.Once
		fatal error
	)

	queue := make(chan Target)

	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			p.worker(workerCtx, results, queue, func(err error) {
				once.Do(func() {
					fatal = err
					cancel()
				})
			})
		}()
	}

feed:
	for _, target := range targets {
		select {
		case queue <- target:
		case <-workerCtx.Done():
			break feed
		}
	}

	close(queue)
	wg.Wait()

	if fatal != nil {
		return fatal
	}

	return ctx.Err()
}

func (p *Publisher) worker(ctx context.Context, results *Results, queue <-chan Target, abort func(error)) {
	for target := range queue {
		if ctx.Err() != nil {
			continue
		}

		if _, err := p.Publish(ctx, results, target.Label, target.Template); err != nil {
			abort(err)
		}
	}
}
