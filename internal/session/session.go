// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session implements the organize-pages workflow: it loads a
// document, renders a thumbnail per page, accumulates an ordered log of page
// edits, and submits the original bytes plus the log to a remote processor.
//
// A Session is safe for use from multiple goroutines, but its actions are
// serialized. Only one submission may be in flight at a time; while it is,
// load, mark, reset, and submit are refused with a ConcurrencyError.
package session

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/google/uuid"

	"github.com/pdiddy/pdf-organizer/internal/document"
	"github.com/pdiddy/pdf-organizer/internal/logging"
	"github.com/pdiddy/pdf-organizer/internal/oplog"
	"github.com/pdiddy/pdf-organizer/internal/remote"
	"github.com/pdiddy/pdf-organizer/internal/render"
	"github.com/pdiddy/pdf-organizer/pkg/types"
)

// Status messages shown to the user.
const (
	msgNoDocument    = "Please upload a PDF first."
	msgRenderFailed  = "Failed to render PDF preview"
	msgSubmitting    = "Processing..."
	msgSubmitDone    = "Organized PDF is ready!"
	msgSubmitFailed  = "Failed to organize PDF"
	msgLoadedPattern = "Loaded %s (%d pages)"
)

// Renderer produces thumbnails for a document in page order.
type Renderer interface {
	Pages(ctx context.Context, doc *document.Document) iter.Seq2[render.Thumbnail, error]
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the structured logger.
func WithLogger(l *bolt.Logger) Option {
	return func(s *Session) { s.log = logging.OrDiscard(l) }
}

// WithProgress registers fn to be called after each page is rendered with
// the thumbnail and the document's page count.
func WithProgress(fn func(t render.Thumbnail, total int)) Option {
	return func(s *Session) { s.progress = fn }
}

// WithSubmissionHook registers fn to be called after every completed
// submission, successful or not. It runs outside the session lock.
func WithSubmissionHook(fn func(types.Submission)) Option {
	return func(s *Session) { s.onSubmit = fn }
}

// Opener parses document bytes. document.Open is the default.
type Opener func(name string, data []byte) (*document.Document, error)

// WithOpener replaces the document parser.
func WithOpener(fn Opener) Option {
	return func(s *Session) { s.open = fn }
}

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// Session owns the loaded document, its thumbnails, and the operation log.
type Session struct {
	renderer  Renderer
	processor remote.Processor
	open      Opener
	encodeOps func(*oplog.Log) (string, error)
	log       *bolt.Logger
	progress  func(render.Thumbnail, int)
	onSubmit  func(types.Submission)
	id        string

	mu         sync.Mutex
	status     *statusMachine
	doc        *document.Document
	thumbs     []render.Thumbnail
	ops        *oplog.Log
	message    string
	result     []byte
	lastErr    error
	generation uint64
	loading    bool
	submitting bool
}

// New creates an empty session.
func New(renderer Renderer, processor remote.Processor, opts ...Option) (*Session, error) {
	s := &Session{
		renderer:  renderer,
		processor: processor,
		open:      document.Open,
		encodeOps: (*oplog.Log).JSON,
		log:       logging.Discard(),
		id:        uuid.NewString(),
		ops:       oplog.New(0),
	}
	for _, opt := range opts {
		opt(s)
	}

	sm, err := newStatusMachine(s.id, s.log)
	if err != nil {
		return nil, err
	}
	s.status = sm
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// LoadDocument replaces the session contents with the document in data. The
// previous document, thumbnails, log, and result are cleared before
// rendering starts. On a *LoadError the document stays absent and the
// status becomes error. If another load or reset starts before this one
// finishes, its result is discarded and ErrSuperseded is returned.
func (s *Session) LoadDocument(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return &ConcurrencyError{Action: "load"}
	}
	s.generation++
	gen := s.generation
	s.clearLocked()
	s.loading = true
	s.mu.Unlock()

	doc, err := s.open(name, data)
	if err != nil {
		return s.failLoad(gen, err)
	}

	thumbs := make([]render.Thumbnail, 0, doc.PageCount())
	for t, err := range s.renderer.Pages(ctx, doc) {
		if err != nil {
			return s.failLoad(gen, err)
		}
		if s.stale(gen) {
			return ErrSuperseded
		}
		thumbs = append(thumbs, t)
		if s.progress != nil {
			s.progress(t, doc.PageCount())
		}
	}
	if len(thumbs) != doc.PageCount() {
		return s.failLoad(gen, &LoadError{
			Filename: doc.Name(),
			Err:      fmt.Errorf("rendered %d of %d pages", len(thumbs), doc.PageCount()),
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return ErrSuperseded
	}
	s.loading = false
	s.doc = doc
	s.thumbs = thumbs
	s.ops.Reset(doc.PageCount())
	s.message = fmt.Sprintf(msgLoadedPattern, doc.Name(), doc.PageCount())
	logging.With(s.log.Info(), logging.SessionID(s.id), logging.Pages(doc.PageCount()), logging.Str("filename", doc.Name())).
		Msg("document loaded")
	return s.status.fire(evLoaded, StatusReady, true, "document loaded")
}

func (s *Session) failLoad(gen uint64, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return ErrSuperseded
	}
	s.loading = false
	var le *LoadError
	if !errors.As(err, &le) {
		err = &LoadError{Filename: document.DefaultFilename, Err: err}
	}
	s.lastErr = err
	s.message = msgRenderFailed
	logging.With(s.log.Warn(), logging.SessionID(s.id), logging.ErrorField(err)).Msg("document load failed")
	if ferr := s.status.fire(evRejected, StatusError, false, "load failed"); ferr != nil {
		return errors.Join(err, ferr)
	}
	return err
}

func (s *Session) stale(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen != s.generation
}

// clearLocked drops the document and everything derived from it.
func (s *Session) clearLocked() {
	s.doc = nil
	s.thumbs = nil
	s.ops.Reset(0)
	s.result = nil
	s.lastErr = nil
	s.message = ""
}

// Reset clears the session back to empty.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return &ConcurrencyError{Action: "reset"}
	}
	s.generation++
	s.loading = false
	s.clearLocked()
	return s.status.fire(evReset, StatusEmpty, false, "reset")
}

// MarkRotate records a rotation of the page at pageIndex by degrees
// (90, 180, or 270).
func (s *Session) MarkRotate(pageIndex, degrees int) error {
	return s.mark(oplog.Rotate(pageIndex, degrees))
}

// MarkDelete records deletion of the page at pageIndex.
func (s *Session) MarkDelete(pageIndex int) error {
	return s.mark(oplog.Delete(pageIndex))
}

// MarkDuplicate records duplication of the page at pageIndex. copies is the
// total number of occurrences the processor should produce.
func (s *Session) MarkDuplicate(pageIndex, copies int) error {
	return s.mark(oplog.Duplicate(pageIndex, copies))
}

// Apply appends op through the same validation as the Mark methods.
func (s *Session) Apply(op oplog.Operation) error {
	return s.mark(op)
}

func (s *Session) mark(op oplog.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return &ConcurrencyError{Action: "mark"}
	}

	var err error
	if s.doc == nil {
		err = &ValidationError{Op: op, Err: ErrNoDocument}
		s.message = msgNoDocument
	} else if err = s.ops.Append(op); err != nil {
		s.message = err.Error()
	}
	if err != nil {
		s.lastErr = err
		logging.With(s.log.Warn(), logging.SessionID(s.id), logging.Operation(string(op.Type)),
			logging.Page(op.PageIndex), logging.ErrorField(err)).Msg("operation rejected")
		if ferr := s.status.fire(evRejected, StatusError, s.doc != nil, "operation rejected"); ferr != nil {
			return errors.Join(err, ferr)
		}
		return err
	}

	s.lastErr = nil
	s.result = nil
	s.message = op.Describe()
	logging.With(s.log.Debug(), logging.SessionID(s.id), logging.Operation(string(op.Type)),
		logging.Page(op.PageIndex)).Msg("operation recorded")
	return s.status.fire(evMarked, StatusReady, true, s.message)
}

// Submit sends the document bytes and the serialized log to the processor
// exactly once and returns the result document. The log and document are
// kept on success and on failure. Submit returns ErrNoDocument without any
// network call when no document is loaded, and a *ConcurrencyError when a
// submission is already in flight.
func (s *Session) Submit(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return nil, &ConcurrencyError{Action: "submit"}
	}
	if s.doc == nil {
		defer s.mu.Unlock()
		s.lastErr = ErrNoDocument
		s.message = msgNoDocument
		if ferr := s.status.fire(evRejected, StatusError, false, "submit without document"); ferr != nil {
			return nil, errors.Join(ErrNoDocument, ferr)
		}
		return nil, ErrNoDocument
	}

	opsJSON, err := s.encodeOps(s.ops)
	if err != nil {
		defer s.mu.Unlock()
		serr := &SubmissionError{Err: fmt.Errorf("encoding operations: %w", err)}
		s.lastErr = serr
		s.message = fmt.Sprintf("%s: %v", msgSubmitFailed, serr.Err)
		logging.With(s.log.Warn(), logging.SessionID(s.id), logging.ErrorField(err)).Msg("encoding operations failed")
		if ferr := s.status.fire(evRejected, StatusError, true, "encoding operations failed"); ferr != nil {
			return nil, errors.Join(serr, ferr)
		}
		return nil, serr
	}
	doc := s.doc
	req := remote.Request{
		Filename:   doc.Name(),
		Document:   doc.Bytes(),
		Operations: []byte(opsJSON),
	}
	if err := s.status.fire(evSubmit, StatusSubmitting, true, "submit"); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.submitting = true
	s.result = nil
	s.lastErr = nil
	s.message = msgSubmitting
	s.mu.Unlock()

	rec := types.Submission{
		ID:         uuid.NewString(),
		SessionID:  s.id,
		Filename:   doc.Name(),
		PageCount:  doc.PageCount(),
		Operations: opsJSON,
		InputBytes: doc.Len(),
		StartedAt:  time.Now().UTC(),
	}
	logging.With(s.log.Info(), logging.SessionID(s.id), logging.Bytes("input_bytes", doc.Len()),
		logging.Str("operations", opsJSON)).Msg("submission started")

	out, perr := s.processor.Process(ctx, req)
	rec.FinishedAt = time.Now().UTC()
	if perr == nil && len(out) == 0 {
		perr = remote.ErrEmptyResult
	}

	s.mu.Lock()
	s.submitting = false
	var retErr error
	if perr != nil {
		serr := &SubmissionError{Err: perr}
		s.lastErr = serr
		s.message = fmt.Sprintf("%s: %v", msgSubmitFailed, perr)
		rec.Outcome = types.SubmissionFailed
		rec.Error = perr.Error()
		retErr = serr
		if ferr := s.status.fire(evFailed, StatusError, true, "submission failed"); ferr != nil {
			retErr = errors.Join(serr, ferr)
		}
		logging.With(s.log.Warn(), logging.SessionID(s.id), logging.Duration(rec.Duration()),
			logging.ErrorField(perr)).Msg("submission failed")
	} else {
		s.result = out
		s.message = msgSubmitDone
		rec.Outcome = types.SubmissionDone
		rec.OutputBytes = len(out)
		retErr = s.status.fire(evSucceeded, StatusDone, true, "submission done")
		logging.With(s.log.Info(), logging.SessionID(s.id), logging.Duration(rec.Duration()),
			logging.Bytes("output_bytes", len(out))).Msg("submission done")
	}
	s.mu.Unlock()

	if s.onSubmit != nil {
		s.onSubmit(rec)
	}
	if perr != nil {
		return nil, retErr
	}
	return copyBytes(out), retErr
}

// Status returns the current status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.Current()
}

// Message returns the last human-readable status message.
func (s *Session) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// Err returns the error behind the current error status, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Document returns the loaded document, or nil.
func (s *Session) Document() *document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Thumbnails returns the rendered thumbnails in page order.
func (s *Session) Thumbnails() []render.Thumbnail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]render.Thumbnail, len(s.thumbs))
	copy(out, s.thumbs)
	return out
}

// Operations returns the recorded operations in insertion order.
func (s *Session) Operations() []oplog.Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ops.Operations()
}

// Result returns the artifact of the last successful submission, or nil.
// Any later accepted mark clears it.
func (s *Session) Result() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyBytes(s.result)
}

// Snapshot is a point-in-time copy of the session for display.
type Snapshot struct {
	ID         string
	Status     Status
	Message    string
	Filename   string
	PageCount  int
	Thumbnails []render.Thumbnail
	Operations []oplog.Operation
	Result     []byte
	Err        error
	Loading    bool
	Submitting bool
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:         s.id,
		Status:     s.status.Current(),
		Message:    s.message,
		Thumbnails: append([]render.Thumbnail(nil), s.thumbs...),
		Operations: s.ops.Operations(),
		Result:     copyBytes(s.result),
		Err:        s.lastErr,
		Loading:    s.loading,
		Submitting: s.submitting,
	}
	if s.doc != nil {
		snap.Filename = s.doc.Name()
		snap.PageCount = s.doc.PageCount()
	}
	return snap
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
