// Package dispatch personalizes a campaign for each recipient and hands the
// messages to an email transport, collecting per-recipient outcomes.
package dispatch

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ukaseai/brandlab/internal/metrics"
	"github.com/ukaseai/brandlab/internal/personalize"
	"github.com/ukaseai/brandlab/internal/pkg/logger"
	"github.com/ukaseai/brandlab/internal/provenance"
	"github.com/ukaseai/brandlab/internal/recipients"
	"github.com/ukaseai/brandlab/internal/transport"
)

// Campaign is a subject/body template pair.
type Campaign struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ValidationError reports a campaign that cannot be sent.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return "dispatch: campaign " + e.Field + " is required"
}

// Validate checks that subject and body are non-blank.
func (c Campaign) Validate() error {
	if strings.TrimSpace(c.Subject) == "" {
		return &ValidationError{Field: "subject"}
	}
	if strings.TrimSpace(c.Body) == "" {
		return &ValidationError{Field: "body"}
	}
	return nil
}

// Failure is one recipient the transport did not accept.
type Failure struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// Result aggregates a dispatch run.
//
// Queued means different things by mode: for a dry run it is the number of
// recipients that would be sent, for a live run it is the number the
// transport accepted.
type Result struct {
	Queued       int       `json:"queued"`
	Failed       []Failure `json:"failed"`
	QueuedEmails []string  `json:"queued_emails,omitempty"`
}

// Options tunes an Orchestrator.
type Options struct {
	// From is the sender address on every message.
	From string
	// Concurrency bounds in-flight sends. Values below 2 send one at a time.
	Concurrency int
	// SendTimeout bounds each transport call; zero means no per-send limit.
	SendTimeout time.Duration
	// Embedder stamps each body; nil uses the default signature.
	Embedder *provenance.Embedder
	// UnsubscribeURL returns a recipient's unsubscribe link. When nil or
	// empty the {unsubscribe_url} placeholder is left for the provider.
	UnsubscribeURL func(recipients.Recipient) string
}

// Orchestrator runs campaign dispatches.
type Orchestrator struct {
	sender transport.Sender
	opts   Options
}

// New returns an Orchestrator. sender may be nil when only dry runs are
// needed.
func New(sender transport.Sender, opts Options) *Orchestrator {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Orchestrator{sender: sender, opts: opts}
}

type outcome struct {
	email string
	err   error
}

// Dispatch sends campaign to each recipient. Per-recipient errors become
// Failure entries and never abort the run. list is expected to be free of
// duplicate emails.
func (o *Orchestrator) Dispatch(ctx context.Context, campaign Campaign, list []recipients.Recipient, dryRun bool) Result {
	if dryRun {
		metrics.DispatchRuns.WithLabelValues("dry_run").Inc()
		logger.Info("dispatch dry run", "recipients", len(list))
		return Result{Queued: len(list), Failed: []Failure{}}
	}
	metrics.DispatchRuns.WithLabelValues("live").Inc()

	start := time.Now()
	outcomes := make([]outcome, len(list))
	if o.opts.Concurrency == 1 || len(list) < 2 {
		for i, r := range list {
			outcomes[i] = o.sendOne(ctx, campaign, r)
		}
	} else {
		g := new(errgroup.Group)
		g.SetLimit(o.opts.Concurrency)
		for i, r := range list {
			i, r := i, r
			g.Go(func() error {
				outcomes[i] = o.sendOne(ctx, campaign, r)
				return nil
			})
		}
		g.Wait()
	}

	res := Result{Failed: []Failure{}, QueuedEmails: []string{}}
	for _, oc := range outcomes {
		if oc.err != nil {
			res.Failed = append(res.Failed, Failure{Email: oc.email, Reason: oc.err.Error()})
			metrics.DispatchMessages.WithLabelValues("failed").Inc()
			continue
		}
		res.QueuedEmails = append(res.QueuedEmails, oc.email)
		metrics.DispatchMessages.WithLabelValues("sent").Inc()
	}
	res.Queued = len(res.QueuedEmails)

	logger.Info("dispatch complete",
		"recipients", len(list),
		"queued", res.Queued,
		"failed", len(res.Failed),
		"concurrency", o.opts.Concurrency,
		"elapsed", time.Since(start).String(),
	)
	return res
}

func (o *Orchestrator) sendOne(ctx context.Context, campaign Campaign, r recipients.Recipient) outcome {
	if err := ctx.Err(); err != nil {
		return outcome{email: r.Email, err: err}
	}
	if o.sender == nil {
		return outcome{email: r.Email, err: transport.ErrNotConfigured}
	}

	unsubscribe := ""
	if o.opts.UnsubscribeURL != nil {
		unsubscribe = o.opts.UnsubscribeURL(r)
	}
	tokens := personalize.TokensFor(r, unsubscribe)
	msg := &transport.Message{
		To:      r.Email,
		From:    o.opts.From,
		Subject: personalize.Merge(campaign.Subject, tokens),
		HTML:    o.opts.Embedder.Embed(personalize.Merge(campaign.Body, tokens), provenance.KindHTML),
	}

	sendCtx := ctx
	if o.opts.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, o.opts.SendTimeout)
		defer cancel()
	}

	if err := o.sender.Send(sendCtx, msg); err != nil {
		logger.Warn("dispatch send failed", "to", r.Email, "error", err)
		return outcome{email: r.Email, err: err}
	}
	return outcome{email: r.Email}
}
