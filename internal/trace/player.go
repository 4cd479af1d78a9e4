package trace

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/IvanBrykalov/keepalive/event"
	"github.com/IvanBrykalov/keepalive/keepalive"
	"github.com/IvanBrykalov/keepalive/registry"
)

// Step outcomes.
const (
	OutcomeHit     = "hit"
	OutcomeMiss    = "miss"
	OutcomeBypass  = "bypass"
	OutcomeDiscard = "discard"
	OutcomeApplied = "applied"
)

// StepResult records what one step did.
type StepResult struct {
	Op        string   `yaml:"op" json:"op"`
	Key       string   `yaml:"key,omitempty" json:"key,omitempty"`
	Outcome   string   `yaml:"outcome" json:"outcome"`
	Removed   int      `yaml:"removed,omitempty" json:"removed,omitempty"`
	Destroyed []string `yaml:"destroyed,omitempty" json:"destroyed,omitempty"`
}

// Report is the result of a replay.
type Report struct {
	Steps []StepResult          `yaml:"steps" json:"steps"`
	Final []keepalive.EntryInfo `yaml:"final" json:"final"`
}

// Write renders the report as YAML.
func (r *Report) Write(w io.Writer) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// Player drives a boundary through a trace. Configuration steps travel
// through an event emitter the boundary is bound to, the same way a host
// would deliver option changes.
type Player struct {
	trace *Trace
	reg   *registry.Registry
	em    *event.Emitter
	b     *keepalive.Boundary
	log   *zap.Logger

	destroyed []string
}

// NewPlayer registers the trace's types and builds its boundary. Fields of
// opt that the trace configures (include, exclude, max, strict) are
// overridden by the trace.
func NewPlayer(t *Trace, opt keepalive.Options) (*Player, error) {
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	reg := registry.New()
	defs := make(map[string]*registry.Definition)
	for _, ts := range t.Types {
		group := ts.Definition
		if group == "" {
			group = ts.Local
		}
		def, ok := defs[group]
		if !ok {
			def = &registry.Definition{Name: ts.Name}
			defs[group] = def
		}
		if _, err := reg.Register(ts.Local, def); err != nil {
			return nil, fmt.Errorf("register type: %w", err)
		}
	}

	opt.Include = t.Boundary.Include.Pattern()
	opt.Exclude = t.Boundary.Exclude.Pattern()
	opt.Max = keepalive.ParseMax(t.Boundary.Max)
	opt.Strict = opt.Strict || t.Boundary.Strict

	b := keepalive.New(opt)
	em := event.NewEmitter()
	b.Bind(em)

	return &Player{
		trace: t,
		reg:   reg,
		em:    em,
		b:     b,
		log:   opt.Logger.Named("trace"),
	}, nil
}

// Boundary returns the boundary under replay.
func (p *Player) Boundary() *keepalive.Boundary { return p.b }

// Play runs every step in order. It stops at the first failing step or
// when ctx is done; the report covers the steps run so far.
func (p *Player) Play(ctx context.Context) (*Report, error) {
	rep := &Report{Steps: make([]StepResult, 0, len(p.trace.Steps))}
	defer func() { rep.Final = p.b.Snapshot() }()

	for i, s := range p.trace.Steps {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		p.destroyed = p.destroyed[:0]
		res, err := p.step(s)
		if err != nil {
			return rep, fmt.Errorf("step %d (%s): %w", i, s.Op, err)
		}
		if len(p.destroyed) > 0 {
			res.Destroyed = append([]string(nil), p.destroyed...)
		}
		p.log.Debug("step",
			zap.Int("index", i),
			zap.String("op", s.Op),
			zap.String("outcome", res.Outcome),
			zap.Strings("destroyed", res.Destroyed),
		)
		rep.Steps = append(rep.Steps, res)
	}
	return rep, nil
}

func (p *Player) step(s Step) (StepResult, error) {
	res := StepResult{Op: s.Op, Outcome: OutcomeApplied}
	switch s.Op {
	case OpRender:
		c, err := p.candidate(s)
		if err != nil {
			return res, err
		}
		r, txn := p.b.Render(c)
		res.Key = r.Key
		switch {
		case !r.KeepAlive:
			res.Outcome = OutcomeBypass
		case r.Hit:
			res.Outcome = OutcomeHit
		case txn == nil:
			res.Outcome = OutcomeBypass
		case s.Discard:
			txn.Discard()
			res.Outcome = OutcomeDiscard
		default:
			if err := txn.Commit(&instance{key: r.Key, p: p}); err != nil {
				return res, err
			}
			res.Outcome = OutcomeMiss
		}
	case OpInclude, OpExclude:
		before := p.b.Len()
		if err := p.em.Emit(s.Op, s.Pattern.Pattern()); err != nil {
			return res, err
		}
		res.Removed = before - p.b.Len()
	case OpMax:
		if err := p.em.Emit(OpMax, s.Value); err != nil {
			return res, err
		}
	case OpClose:
		res.Removed = p.b.Len()
		if err := p.b.Close(); err != nil {
			return res, err
		}
	default:
		return res, fmt.Errorf("%q: %w", s.Op, ErrUnknownOp)
	}
	return res, nil
}

func (p *Player) candidate(s Step) (*keepalive.Candidate, error) {
	if s.Type == "" {
		return &keepalive.Candidate{Name: s.Name, Tag: s.Tag, Key: s.Key}, nil
	}
	t, ok := p.reg.Lookup(s.Type)
	if !ok {
		return nil, fmt.Errorf("%q: %w", s.Type, ErrUnknownType)
	}
	c := keepalive.CandidateFor(t, s.Tag, s.Key)
	if s.Name != "" {
		c.Name = s.Name
	}
	return c, nil
}

// instance stands in for a host-built instance and records its disposal.
type instance struct {
	key string
	p   *Player
}

func (i *instance) Destroy() { i.p.destroyed = append(i.p.destroyed, i.key) }
