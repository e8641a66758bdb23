package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"
)

type builder func(ctx context.Context, cfg SinkConfig, log Logger) (Publisher, error)

var builders = map[string]builder{
	TypeHTTP:   newWebhookSink,
	TypeSQS:    newSQSSink,
	TypeSNS:    newSNSSink,
	TypePubSub: newPubSubSink,
}

type route struct {
	pub  Publisher
	when Route
}

// Fanout delivers verdicts to every sink whose route matches.
type Fanout struct {
	routes []route
}

// Delivery summarises one Publish call.
type Delivery struct {
	Delivered int
	Skipped   int
}

// NewFanout routes every verdict to each of pubs.
func NewFanout(pubs []Publisher) *Fanout {
	f := &Fanout{}
	for _, p := range pubs {
		f.Add(p, Route{})
	}
	return f
}

// Add registers pub for verdicts matching when. Nil publishers are ignored.
func (f *Fanout) Add(pub Publisher, when Route) {
	if pub == nil {
		return
	}
	f.routes = append(f.routes, route{pub: pub, when: when})
}

// Build creates a sink per config and routes verdicts to it. Sinks built
// before a failure are closed.
func Build(ctx context.Context, sinks []SinkConfig, log Logger) (*Fanout, error) {
	log = ensureLogger(log)
	f := &Fanout{}
	for _, cfg := range sinks {
		cfg.normalize()
		if err := cfg.validate(); err != nil {
			_ = f.Close()
			return nil, err
		}
		pub, err := builders[cfg.Type](ctx, cfg, log)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("build %s publisher %q: %w", cfg.Type, cfg.ID, err)
		}
		f.Add(pub, cfg.Route)
	}
	return f, nil
}

// Publish sends evt to the matching sinks. Every matching sink is attempted;
// failures are joined into the returned error.
func (f *Fanout) Publish(ctx context.Context, evt Event) (Delivery, error) {
	var (
		d    Delivery
		errs []error
	)
	if f == nil {
		return d, nil
	}
	for _, r := range f.routes {
		if !r.when.Matches(evt) {
			d.Skipped++
			continue
		}
		if err := r.pub.Publish(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("%s publisher[%s]: %w", r.pub.Type(), r.pub.ID(), err))
			continue
		}
		d.Delivered++
	}
	return d, errors.Join(errs...)
}

// Size returns the number of sinks.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.routes)
}

// Close releases sinks that hold connections.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, r := range f.routes {
		c, ok := r.pub.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s publisher[%s] close: %w", r.pub.Type(), r.pub.ID(), err))
		}
	}
	return errors.Join(errs...)
}
