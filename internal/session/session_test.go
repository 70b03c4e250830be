// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdf-organizer/internal/document"
	"github.com/pdiddy/pdf-organizer/internal/oplog"
	"github.com/pdiddy/pdf-organizer/internal/remote"
	"github.com/pdiddy/pdf-organizer/internal/render"
	"github.com/pdiddy/pdf-organizer/pkg/types"
)

// --- test helpers ---

// fakeOpen treats data of the form "pages=N[;tag]" as an N-page document.
// Anything else is a corrupt document.
func fakeOpen(name string, data []byte) (*document.Document, error) {
	s := string(data)
	if !strings.HasPrefix(s, "pages=") {
		return nil, &document.LoadError{Filename: name, Err: errors.New("not a PDF")}
	}
	field := strings.SplitN(strings.TrimPrefix(s, "pages="), ";", 2)[0]
	n, err := strconv.Atoi(field)
	if err != nil {
		return nil, &document.LoadError{Filename: name, Err: err}
	}
	return document.New(name, data, n)
}

func docBytes(pages int) []byte { return []byte(fmt.Sprintf("pages=%d", pages)) }

// rasterizer returns a 1x1 image per page and fails for pages listed in fail.
type rasterizer struct {
	mu    sync.Mutex
	calls []int
	fail  map[int]bool
}

func (r *rasterizer) Rasterize(_ context.Context, _ []byte, pageIndex int, _ float64) (image.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, pageIndex)
	if r.fail[pageIndex] {
		return nil, errors.New("raster failed")
	}
	return image.NewGray(image.Rect(0, 0, 1, 1)), nil
}

// processor records requests and returns a canned result or error.
type processor struct {
	mu       sync.Mutex
	requests []remote.Request
	result   []byte
	err      error
}

func (p *processor) Process(_ context.Context, req remote.Request) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

func (p *processor) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func newSession(t *testing.T, rast render.Rasterizer, proc remote.Processor, opts ...Option) *Session {
	t.Helper()
	if rast == nil {
		rast = &rasterizer{}
	}
	if proc == nil {
		proc = &processor{result: []byte("result")}
	}
	opts = append([]Option{WithOpener(fakeOpen)}, opts...)
	s, err := New(render.NewRenderer(rast, 0, nil), proc, opts...)
	require.NoError(t, err)
	return s
}

func loaded(t *testing.T, pages int, proc remote.Processor) *Session {
	t.Helper()
	s := newSession(t, nil, proc)
	require.NoError(t, s.LoadDocument(context.Background(), "in.pdf", docBytes(pages)))
	return s
}

// --- load ---

func TestNew_StartsEmpty(t *testing.T) {
	s := newSession(t, nil, nil)
	assert.Equal(t, StatusEmpty, s.Status())
	assert.Nil(t, s.Document())
	assert.Empty(t, s.Thumbnails())
	assert.Empty(t, s.Operations())
	assert.NotEmpty(t, s.ID())
}

func TestLoadDocument_ThumbnailPerPage(t *testing.T) {
	for _, n := range []int{1, 3, 9} {
		t.Run(fmt.Sprintf("%d pages", n), func(t *testing.T) {
			rast := &rasterizer{}
			s := newSession(t, rast, nil)

			require.NoError(t, s.LoadDocument(context.Background(), "in.pdf", docBytes(n)))

			thumbs := s.Thumbnails()
			require.Len(t, thumbs, n)
			for i, th := range thumbs {
				assert.Equal(t, i, th.Index)
			}
			assert.Equal(t, StatusReady, s.Status())
			assert.Equal(t, n, s.Document().PageCount())
			assert.Equal(t, fmt.Sprintf("Loaded in.pdf (%d pages)", n), s.Message())
		})
	}
}

func TestLoadDocument_CorruptInput(t *testing.T) {
	s := loaded(t, 2, nil)
	require.NoError(t, s.MarkDelete(0))

	err := s.LoadDocument(context.Background(), "bad.pdf", []byte("garbage"))
	var le *LoadError
	require.True(t, errors.As(err, &le))

	assert.Equal(t, StatusError, s.Status())
	assert.Nil(t, s.Document())
	assert.Empty(t, s.Thumbnails())
	assert.Empty(t, s.Operations())
	assert.Equal(t, "Failed to render PDF preview", s.Message())
	assert.Equal(t, err, s.Err())
}

func TestLoadDocument_RenderFailure(t *testing.T) {
	rast := &rasterizer{fail: map[int]bool{1: true}}
	s := newSession(t, rast, nil)

	err := s.LoadDocument(context.Background(), "in.pdf", docBytes(3))
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, StatusError, s.Status())
	assert.Nil(t, s.Document())
	assert.Empty(t, s.Thumbnails(), "no partial thumbnails")
}

func TestLoadDocument_ReplacesPreviousSession(t *testing.T) {
	proc := &processor{result: []byte("out")}
	s := loaded(t, 2, proc)
	require.NoError(t, s.MarkRotate(1, 90))
	_, err := s.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusDone, s.Status())

	require.NoError(t, s.LoadDocument(context.Background(), "next.pdf", docBytes(5)))
	assert.Equal(t, StatusReady, s.Status())
	assert.Len(t, s.Thumbnails(), 5)
	assert.Empty(t, s.Operations())
	assert.Nil(t, s.Result())
	assert.Equal(t, "next.pdf", s.Document().Name())

	require.NoError(t, s.MarkDelete(4), "new page count applies to the log")
}

func TestLoadDocument_Progress(t *testing.T) {
	var seen []int
	s := newSession(t, nil, nil, WithProgress(func(th render.Thumbnail, total int) {
		assert.Equal(t, 4, total)
		seen = append(seen, th.Index)
	}))
	require.NoError(t, s.LoadDocument(context.Background(), "in.pdf", docBytes(4)))
	assert.Equal(t, []int{0, 1, 2, 3}, seen)
}

// blockingRasterizer blocks page 0 of documents tagged "slow" until release
// is closed.
type blockingRasterizer struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingRasterizer) Rasterize(_ context.Context, data []byte, _ int, _ float64) (image.Image, error) {
	if strings.HasSuffix(string(data), ";slow") {
		b.once.Do(func() { close(b.entered) })
		<-b.release
	}
	return image.NewGray(image.Rect(0, 0, 1, 1)), nil
}

func TestLoadDocument_StaleRenderDiscarded(t *testing.T) {
	rast := &blockingRasterizer{entered: make(chan struct{}), release: make(chan struct{})}
	s := newSession(t, rast, nil)

	done := make(chan error, 1)
	go func() {
		done <- s.LoadDocument(context.Background(), "old.pdf", []byte("pages=3;slow"))
	}()
	<-rast.entered

	require.NoError(t, s.LoadDocument(context.Background(), "new.pdf", docBytes(2)))
	close(rast.release)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, "new.pdf", s.Document().Name())
	assert.Len(t, s.Thumbnails(), 2)
	assert.Equal(t, StatusReady, s.Status())
}

func TestLoadDocument_StaleAfterReset(t *testing.T) {
	rast := &blockingRasterizer{entered: make(chan struct{}), release: make(chan struct{})}
	s := newSession(t, rast, nil)

	done := make(chan error, 1)
	go func() {
		done <- s.LoadDocument(context.Background(), "old.pdf", []byte("pages=2;slow"))
	}()
	<-rast.entered
	assert.True(t, s.Snapshot().Loading)

	require.NoError(t, s.Reset())
	close(rast.release)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Nil(t, s.Document())
	assert.Empty(t, s.Thumbnails())
	assert.Equal(t, StatusEmpty, s.Status())
}

// --- marks ---

func TestMarkRotate_AppendsOneAndKeepsThumbnails(t *testing.T) {
	s := loaded(t, 3, nil)
	before := s.Thumbnails()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.MarkRotate(i, 90))
		assert.Len(t, s.Operations(), i+1)
		assert.Equal(t, before, s.Thumbnails())
		assert.Equal(t, StatusReady, s.Status())
	}
	assert.Equal(t, "Page 3 marked for rotation", s.Message())
}

func TestMark_Messages(t *testing.T) {
	s := loaded(t, 3, nil)

	require.NoError(t, s.MarkDelete(0))
	assert.Equal(t, "Page 1 marked for deletion", s.Message())

	require.NoError(t, s.MarkDuplicate(1, 2))
	assert.Equal(t, "Page 2 will be duplicated", s.Message())
}

func TestMark_OutOfRange(t *testing.T) {
	tests := []struct {
		name string
		mark func(*Session) error
	}{
		{"rotate past end", func(s *Session) error { return s.MarkRotate(3, 90) }},
		{"delete negative", func(s *Session) error { return s.MarkDelete(-1) }},
		{"duplicate far past end", func(s *Session) error { return s.MarkDuplicate(99, 2) }},
		{"bad degrees", func(s *Session) error { return s.MarkRotate(0, 45) }},
		{"bad copies", func(s *Session) error { return s.MarkDuplicate(0, 0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := loaded(t, 3, nil)
			require.NoError(t, s.MarkDelete(2))

			err := tt.mark(s)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Len(t, s.Operations(), 1, "log unchanged")
			assert.Equal(t, StatusError, s.Status())
			assert.Equal(t, err.Error(), s.Message())

			require.NoError(t, s.MarkRotate(0, 180), "a valid mark recovers")
			assert.Equal(t, StatusReady, s.Status())
			assert.Nil(t, s.Err())
		})
	}
}

func TestMark_WithoutDocument(t *testing.T) {
	s := newSession(t, nil, nil)
	err := s.MarkDelete(0)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.ErrorIs(t, err, ErrNoDocument)
	assert.Equal(t, StatusError, s.Status())
	assert.Equal(t, "Please upload a PDF first.", s.Message())
}

func TestApply(t *testing.T) {
	s := loaded(t, 2, nil)
	require.NoError(t, s.Apply(oplog.Duplicate(1, 3)))
	assert.Equal(t, []oplog.Operation{oplog.Duplicate(1, 3)}, s.Operations())
}

// --- reset ---

func TestReset(t *testing.T) {
	s := loaded(t, 4, nil)
	require.NoError(t, s.MarkDelete(3))

	require.NoError(t, s.Reset())
	assert.Equal(t, StatusEmpty, s.Status())
	assert.Empty(t, s.Operations())
	assert.Empty(t, s.Thumbnails())
	assert.Nil(t, s.Document())

	require.NoError(t, s.Reset(), "reset of an empty session is allowed")
}

// --- submit ---

func TestSubmit_PreservesOperationOrder(t *testing.T) {
	proc := &processor{result: []byte("out")}
	s := loaded(t, 3, proc)
	require.NoError(t, s.MarkRotate(2, 90))
	require.NoError(t, s.MarkDelete(0))

	_, err := s.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, proc.requests, 1)
	assert.Equal(t,
		`[{"type":"rotate","pageIndex":2,"degrees":90},{"type":"delete","pageIndex":0}]`,
		string(proc.requests[0].Operations))
}

func TestSubmit_WithoutDocumentMakesNoCall(t *testing.T) {
	proc := &processor{}
	s := newSession(t, nil, proc)

	_, err := s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNoDocument)
	assert.Equal(t, 0, proc.calls())
	assert.Equal(t, StatusError, s.Status())
	assert.Equal(t, "Please upload a PDF first.", s.Message())
}

func TestSubmit_EndToEnd(t *testing.T) {
	proc := &processor{result: []byte("D-prime")}
	var hooked []types.Submission
	s := newSession(t, nil, proc, WithSubmissionHook(func(rec types.Submission) {
		hooked = append(hooked, rec)
	}))
	data := docBytes(3)
	require.NoError(t, s.LoadDocument(context.Background(), "in.pdf", data))
	require.NoError(t, s.MarkDuplicate(1, 2))
	opsBefore := s.Operations()

	out, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("D-prime"), out)

	require.Len(t, proc.requests, 1)
	req := proc.requests[0]
	assert.Equal(t, data, req.Document)
	assert.Equal(t, "in.pdf", req.Filename)
	assert.Equal(t, `[{"type":"duplicate","pageIndex":1,"copies":2}]`, string(req.Operations))

	assert.Equal(t, StatusDone, s.Status())
	assert.Equal(t, []byte("D-prime"), s.Result())
	assert.Equal(t, "Organized PDF is ready!", s.Message())
	assert.Equal(t, opsBefore, s.Operations(), "log unchanged")
	assert.Equal(t, data, s.Document().Bytes(), "document unchanged")
	assert.Len(t, s.Thumbnails(), 3)

	require.Len(t, hooked, 1)
	assert.Equal(t, types.SubmissionDone, hooked[0].Outcome)
	assert.Equal(t, s.ID(), hooked[0].SessionID)
	assert.Equal(t, 3, hooked[0].PageCount)
	assert.Equal(t, len("D-prime"), hooked[0].OutputBytes)
	assert.False(t, hooked[0].FinishedAt.Before(hooked[0].StartedAt))
}

func TestSubmit_FailureKeepsLogForRetry(t *testing.T) {
	proc := &processor{err: errors.New("HTTP 500: boom")}
	s := loaded(t, 2, proc)
	require.NoError(t, s.MarkDelete(1))

	_, err := s.Submit(context.Background())
	var se *SubmissionError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StatusError, s.Status())
	assert.Equal(t, "Failed to organize PDF: HTTP 500: boom", s.Message())
	assert.Len(t, s.Operations(), 1)
	assert.NotNil(t, s.Document())
	assert.Equal(t, 1, proc.calls(), "no automatic retry")

	proc.mu.Lock()
	proc.err = nil
	proc.result = []byte("fixed")
	proc.mu.Unlock()

	out, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("fixed"), out)
	assert.Equal(t, StatusDone, s.Status())
	assert.Equal(t, 2, proc.calls())
	assert.Equal(t, proc.requests[0].Operations, proc.requests[1].Operations)
}

func TestSubmit_AgainAfterDone(t *testing.T) {
	proc := &processor{result: []byte("out")}
	s := loaded(t, 1, proc)

	_, err := s.Submit(context.Background())
	require.NoError(t, err)
	_, err = s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, proc.calls())
	assert.Equal(t, "[]", string(proc.requests[1].Operations))
}

// gatedProcessor blocks every call until release receives a value.
type gatedProcessor struct {
	entered chan struct{}
	release chan error
	calls   int
	mu      sync.Mutex
}

func (g *gatedProcessor) Process(_ context.Context, _ remote.Request) ([]byte, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	g.entered <- struct{}{}
	if err := <-g.release; err != nil {
		return nil, err
	}
	return []byte("out"), nil
}

func TestSubmit_ConcurrentSubmitRejected(t *testing.T) {
	for _, firstErr := range []error{nil, errors.New("down")} {
		t.Run(fmt.Sprintf("first fails=%v", firstErr != nil), func(t *testing.T) {
			proc := &gatedProcessor{entered: make(chan struct{}), release: make(chan error)}
			s := loaded(t, 2, proc)
			require.NoError(t, s.MarkRotate(0, 270))

			done := make(chan error, 1)
			go func() {
				_, err := s.Submit(context.Background())
				done <- err
			}()
			<-proc.entered
			assert.Equal(t, StatusSubmitting, s.Status())
			assert.True(t, s.Snapshot().Submitting)

			_, err := s.Submit(context.Background())
			var ce *ConcurrencyError
			require.True(t, errors.As(err, &ce))
			assert.ErrorIs(t, err, ErrSubmitInFlight)
			assert.Equal(t, "submit", ce.Action)

			assert.ErrorIs(t, s.MarkDelete(1), ErrSubmitInFlight)
			assert.ErrorIs(t, s.LoadDocument(context.Background(), "x.pdf", docBytes(1)), ErrSubmitInFlight)
			assert.ErrorIs(t, s.Reset(), ErrSubmitInFlight)
			assert.Equal(t, StatusSubmitting, s.Status(), "rejections have no side effect")
			assert.Len(t, s.Operations(), 1)

			proc.release <- firstErr
			<-done

			go func() {
				_, err := s.Submit(context.Background())
				done <- err
			}()
			<-proc.entered
			proc.release <- nil
			require.NoError(t, <-done)

			proc.mu.Lock()
			defer proc.mu.Unlock()
			assert.Equal(t, 2, proc.calls)
		})
	}
}

func TestSnapshot(t *testing.T) {
	proc := &processor{result: []byte("out")}
	s := loaded(t, 2, proc)
	require.NoError(t, s.MarkRotate(1, 90))
	_, err := s.Submit(context.Background())
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, s.ID(), snap.ID)
	assert.Equal(t, StatusDone, snap.Status)
	assert.Equal(t, "in.pdf", snap.Filename)
	assert.Equal(t, 2, snap.PageCount)
	assert.Len(t, snap.Thumbnails, 2)
	assert.Equal(t, []oplog.Operation{oplog.Rotate(1, 90)}, snap.Operations)
	assert.Equal(t, []byte("out"), snap.Result)
	assert.False(t, snap.Loading)
	assert.False(t, snap.Submitting)

	snap.Result[0] = 'X'
	assert.Equal(t, []byte("out"), s.Result(), "snapshot is a copy")
}

func TestWithID(t *testing.T) {
	s := newSession(t, nil, nil, WithID("fixed-id"))
	assert.Equal(t, "fixed-id", s.ID())
}

func TestSubmit_EmptyResultIsFailure(t *testing.T) {
	for _, result := range [][]byte{nil, {}} {
		t.Run(fmt.Sprintf("len=%d nil=%v", len(result), result == nil), func(t *testing.T) {
			var hooked []types.Submission
			proc := remote.ProcessorFunc(func(context.Context, remote.Request) ([]byte, error) {
				return result, nil
			})
			s := newSession(t, nil, proc, WithSubmissionHook(func(rec types.Submission) {
				hooked = append(hooked, rec)
			}))
			require.NoError(t, s.LoadDocument(context.Background(), "in.pdf", docBytes(2)))

			out, err := s.Submit(context.Background())
			assert.Nil(t, out)
			var se *SubmissionError
			require.True(t, errors.As(err, &se))
			assert.ErrorIs(t, err, remote.ErrEmptyResult)
			assert.Equal(t, StatusError, s.Status())
			assert.Nil(t, s.Result())
			assert.Contains(t, s.Message(), "Failed to organize PDF")

			require.Len(t, hooked, 1)
			assert.Equal(t, types.SubmissionFailed, hooked[0].Outcome)
		})
	}
}

func TestMark_ClearsStaleResult(t *testing.T) {
	proc := &processor{result: []byte("first")}
	s := loaded(t, 3, proc)
	require.NoError(t, s.MarkRotate(0, 90))
	_, err := s.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("first"), s.Result())

	require.Error(t, s.MarkDelete(9), "rejected mark keeps the artifact")
	assert.Equal(t, []byte("first"), s.Result())

	require.NoError(t, s.MarkDelete(2))
	assert.Equal(t, StatusReady, s.Status())
	assert.Nil(t, s.Result())
	assert.Nil(t, s.Snapshot().Result)
}

func TestSubmit_EncodingFailure(t *testing.T) {
	proc := &processor{result: []byte("out")}
	s := loaded(t, 2, proc)
	require.NoError(t, s.MarkDelete(1))
	s.encodeOps = func(*oplog.Log) (string, error) { return "", errors.New("boom") }

	_, err := s.Submit(context.Background())
	var se *SubmissionError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 0, proc.calls(), "nothing sent")
	assert.Equal(t, StatusError, s.Status())
	assert.Equal(t, err, s.Err())
	assert.Equal(t, "Failed to organize PDF: encoding operations: boom", s.Message())
	assert.False(t, s.Snapshot().Submitting)
	assert.Len(t, s.Operations(), 1, "log kept for retry")

	s.encodeOps = (*oplog.Log).JSON
	_, err = s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusDone, s.Status())
}
