package sandbox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/bastion/pkg/sandbox/ast"
	"mercator-hq/bastion/pkg/sandbox/cache"
	sbErrors "mercator-hq/bastion/pkg/sandbox/errors"
	"mercator-hq/bastion/pkg/sandbox/hooks"
	"mercator-hq/bastion/pkg/sandbox/options"
	"mercator-hq/bastion/pkg/sandbox/policy"
	"mercator-hq/bastion/pkg/sandbox/validator"
	"mercator-hq/bastion/pkg/sandbox/whitelist"
	"mercator-hq/bastion/pkg/telemetry/logging"
	"mercator-hq/bastion/pkg/telemetry/tracing"
)

// Validation outcomes reported to the Recorder.
const (
	OutcomeValid    = "valid"
	OutcomeCached   = "cached"
	OutcomeRejected = "rejected"
	OutcomeSkipped  = "skipped"
)

// Recorder observes validation runs. It is satisfied by
// metrics.ValidationMetrics.
type Recorder interface {
	validator.Recorder
	RecordValidation(outcome string, duration time.Duration)
}

// Config configures a Sandbox.
type Config struct {
	// ID identifies the sandbox in rewritten hook calls. A random UUID is
	// used when empty.
	ID string

	// Store holds the policy. A new empty store is created when nil.
	Store *policy.Store

	// Options are copied into the sandbox. Defaults are used when nil.
	Options *options.Options

	// Cache stores validated programs. Validation results are not cached
	// when nil.
	Cache cache.Store

	// Parser turns source text into a tree for PrepareSource.
	Parser ast.Parser

	// Registry receives the sandbox runtime when set.
	Registry *hooks.Registry

	// File and Superglobals are handed to the runtime.
	File         string
	Superglobals map[string]map[string]any

	Logger   *slog.Logger
	Recorder Recorder

	// Tracer starts a span per Prepare call. Spans are dropped when nil.
	Tracer trace.Tracer
}

// Prepared is a program ready for execution.
type Prepared struct {
	// Tree is the rewritten program with trusted code around it.
	Tree *ast.Node

	// Code is the canonical text of Tree.
	Code string

	// Identity is the policy identity the program was validated under.
	Identity string

	// Cached is true when the validated program came from the cache.
	Cached bool

	// ErrorLevel and TimeLimit are passed through to the execution facility.
	ErrorLevel int
	TimeLimit  time.Duration
}

// Sandbox validates and rewrites programs under one policy.
type Sandbox struct {
	mu sync.Mutex

	id        string
	store     *policy.Store
	opts      *options.Options
	reporter  *sbErrors.Reporter
	validator *validator.Validator
	runtime   *hooks.Runtime
	registry  *hooks.Registry
	cache     cache.Store
	parser    ast.Parser
	recorder  Recorder
	tracer    trace.Tracer
	logger    *slog.Logger

	prepended []*ast.Node
	appended  []*ast.Node
}

// New creates a sandbox.
func New(cfg Config) (*Sandbox, error) {
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	store := cfg.Store
	if store == nil {
		store = policy.NewStore()
	}
	opts := options.Defaults()
	if cfg.Options != nil {
		opts = *cfg.Options
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sandbox options: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	s := &Sandbox{
		id:       id,
		store:    store,
		opts:     &opts,
		reporter: sbErrors.NewReporter(logger),
		registry: cfg.Registry,
		cache:    cfg.Cache,
		parser:   cfg.Parser,
		recorder: cfg.Recorder,
		tracer:   tracer,
		logger:   logger.With("component", "sandbox", "sandbox_id", id),
	}

	vcfg := validator.Config{Store: store, Options: s.opts, Reporter: s.reporter, SandboxID: id}
	if cfg.Recorder != nil {
		vcfg.Recorder = cfg.Recorder
	}
	v, err := validator.New(vcfg)
	if err != nil {
		return nil, err
	}
	s.validator = v

	rt, err := hooks.NewRuntime(hooks.RuntimeConfig{
		ID:           id,
		Store:        store,
		Options:      opts,
		File:         cfg.File,
		Superglobals: cfg.Superglobals,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	s.runtime = rt
	if s.registry != nil {
		if err := s.registry.Register(rt); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ID returns the sandbox ID.
func (s *Sandbox) ID() string { return s.id }

// Store returns the policy store.
func (s *Sandbox) Store() *policy.Store { return s.store }

// Options returns a copy of the sandbox options.
func (s *Sandbox) Options() options.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.opts
}

// Runtime returns the runtime that serves the rewritten program's hook calls.
func (s *Sandbox) Runtime() *hooks.Runtime { return s.runtime }

// SetErrorHandler installs the host error handler. A handler that returns
// nil recovers from the violation and validation continues.
func (s *Sandbox) SetErrorHandler(h sbErrors.Handler) {
	s.reporter.SetHandler(h)
}

// LastError returns the most recently reported error.
func (s *Sandbox) LastError() *sbErrors.Error {
	return s.reporter.LastError()
}

// Prepend adds trusted code that runs before every prepared program.
func (s *Sandbox) Prepend(tree *ast.Node) error {
	return s.addTrusted(tree, &s.prepended)
}

// Append adds trusted code that runs after every prepared program.
func (s *Sandbox) Append(tree *ast.Node) error {
	return s.addTrusted(tree, &s.appended)
}

func (s *Sandbox) addTrusted(tree *ast.Node, list *[]*ast.Node) error {
	if tree == nil {
		return fmt.Errorf("trusted code cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	*list = append(*list, ast.Clone(tree))
	return nil
}

// Identity returns the current policy identity: a digest of the options,
// the store contents and the sandbox ID.
func (s *Sandbox) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity()
}

func (s *Sandbox) identity() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%s\n%s", s.opts.Fingerprint(), s.store.Fingerprint(), s.id)
	return hex.EncodeToString(h.Sum(nil))
}

// PrepareSource parses source with the configured parser and prepares it.
func (s *Sandbox) PrepareSource(ctx context.Context, source string) (*Prepared, error) {
	if s.parser == nil {
		return nil, fmt.Errorf("sandbox %s has no parser", s.id)
	}
	tree, err := s.parser.Parse(source)
	if err != nil {
		perr := sbErrors.Wrap(err, sbErrors.CodeParse, "could not parse sandboxed code")
		if rerr := s.reporter.Report(perr); rerr != nil {
			return nil, rerr
		}
		tree = &ast.Node{Kind: ast.KindFile}
	}
	return s.Prepare(ctx, tree, source)
}

// Prepare validates and rewrites program. source is the text the program was
// parsed from and, together with the policy identity, keys the cache. When
// source is empty the canonical text of program is used.
func (s *Sandbox) Prepare(ctx context.Context, program *ast.Node, source string) (prepared *Prepared, err error) {
	if program == nil {
		return nil, fmt.Errorf("program cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, tracing.SpanPrepare,
		trace.WithAttributes(attribute.String(tracing.AttrSandboxID, s.id)))
	defer func() {
		tracing.SetError(span, err)
		span.End()
	}()
	if name := logging.GetSource(ctx); name != "" {
		span.SetAttributes(attribute.String(tracing.AttrSource, name))
	}
	if rev := logging.GetRevision(ctx); rev != "" {
		span.SetAttributes(attribute.String(tracing.AttrRevision, rev))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	s.store.SetDefaultAllow(policy.Variable, s.opts.AllowVariables)

	if s.opts.SkipValidation {
		s.record(ctx, OutcomeSkipped, start)
		return s.compose([2][]*ast.Node{s.prepended, s.appended}, ast.Clone(program), s.identity(), false), nil
	}

	trusted, err := s.trustedTrees()
	if err != nil {
		return nil, fmt.Errorf("failed to scan trusted code: %w", err)
	}
	if err := whitelist.Declarations(s.store, s.opts, program); err != nil {
		return nil, fmt.Errorf("failed to whitelist declarations: %w", err)
	}

	if source == "" {
		source = ast.Print(program)
	}
	identity := s.identity()
	key := cache.Key(identity, source)

	if entry, ok := s.lookup(ctx, key); ok {
		s.record(ctx, OutcomeCached, start)
		return s.compose(trusted, entry.Tree, identity, true), nil
	}

	tree, err := s.validator.Validate(program)
	if err != nil {
		s.record(ctx, OutcomeRejected, start)
		return nil, err
	}
	entry := &cache.Entry{Tree: tree, Code: ast.Print(tree)}
	s.save(ctx, key, entry)

	// Validation may define namespaces and aliases, which changes the
	// identity later calls compute for the same program.
	if after := s.identity(); after != identity {
		s.save(ctx, cache.Key(after, source), entry)
	}

	s.record(ctx, OutcomeValid, start)
	return s.compose(trusted, ast.Clone(tree), identity, false), nil
}

// trustedTrees runs the trusted-code pass over clones of the prepended and
// appended code when the options enable it.
func (s *Sandbox) trustedTrees() ([2][]*ast.Node, error) {
	var out [2][]*ast.Node
	for i, list := range [][]*ast.Node{s.prepended, s.appended} {
		for _, tree := range list {
			tree = ast.Clone(tree)
			if s.opts.AutoWhitelistTrustedCode {
				var err error
				if tree, err = whitelist.Trusted(s.store, tree); err != nil {
					return out, err
				}
			}
			if tree != nil {
				out[i] = append(out[i], tree)
			}
		}
	}
	return out, nil
}

func (s *Sandbox) lookup(ctx context.Context, key string) (*cache.Entry, bool) {
	if s.cache == nil {
		return nil, false
	}
	entry, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "validation cache lookup failed", "error", err)
		return nil, false
	}
	if !ok || entry.Tree == nil {
		s.logger.DebugContext(ctx, "validation cache miss")
		return nil, false
	}
	s.logger.DebugContext(ctx, "validation cache hit")
	return entry, true
}

func (s *Sandbox) save(ctx context.Context, key string, entry *cache.Entry) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, entry); err != nil {
		s.logger.WarnContext(ctx, "failed to cache validated program", "error", err)
	}
}

// compose surrounds the validated program with trusted code.
func (s *Sandbox) compose(trusted [2][]*ast.Node, program *ast.Node, identity string, cached bool) *Prepared {
	root := &ast.Node{Kind: ast.KindFile, Location: program.Location}
	for _, t := range trusted[0] {
		root.Stmts = append(root.Stmts, fileStmts(t)...)
	}
	root.Stmts = append(root.Stmts, fileStmts(program)...)
	for _, t := range trusted[1] {
		root.Stmts = append(root.Stmts, fileStmts(t)...)
	}
	return &Prepared{
		Tree:       root,
		Code:       ast.Print(root),
		Identity:   identity,
		Cached:     cached,
		ErrorLevel: s.opts.ErrorLevel,
		TimeLimit:  s.opts.TimeLimit,
	}
}

func fileStmts(n *ast.Node) []*ast.Node {
	if n.Kind == ast.KindFile {
		return n.Stmts
	}
	return []*ast.Node{n}
}

func (s *Sandbox) record(ctx context.Context, outcome string, start time.Time) {
	if s.recorder != nil {
		s.recorder.RecordValidation(outcome, time.Since(start))
	}
	tracing.SetOutcome(trace.SpanFromContext(ctx), outcome, s.identity())
	s.logger.DebugContext(ctx, "prepared sandboxed program", "outcome", outcome, "duration", time.Since(start))
}

// Close unregisters the sandbox runtime.
func (s *Sandbox) Close() error {
	if s.registry != nil {
		s.registry.Remove(s.id)
	}
	return nil
}
