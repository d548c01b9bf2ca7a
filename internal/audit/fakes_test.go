package audit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
	"github.com/cliniquerisimed-lab/jongwane/internal/playback"
)

type analyzeResult struct {
	text string
	err  error
}

// fakeAnalyzer pops scripted results in order. When gate is set every call
// blocks until a value is received from it.
type fakeAnalyzer struct {
	mu       sync.Mutex
	results  []analyzeResult
	requests []AnalysisRequest
	gate     chan struct{}
}

func (f *fakeAnalyzer) push(text string, err error) *fakeAnalyzer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, analyzeResult{text: text, err: err})
	return f
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req AnalysisRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.results) == 0 {
		return "", fmt.Errorf("no scripted result")
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.text, r.err
}

func (f *fakeAnalyzer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeAnalyzer) request(i int) AnalysisRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

// fakeSpeech returns a fresh buffer per call unless silent.
type fakeSpeech struct {
	mu     sync.Mutex
	silent bool
	texts  []string
}

func (f *fakeSpeech) Synthesize(_ context.Context, text string) *playback.Buffer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	if f.silent {
		return nil
	}
	return playback.NewNarrationBuffer([]byte(text))
}

func (f *fakeSpeech) spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

// countingDevice records how many devices were started.
type countingDevice struct {
	mu      sync.Mutex
	started []*playback.Buffer
	stopped int
}

func (d *countingDevice) factory() playback.DeviceFactory {
	return func() (playback.Device, error) { return deviceFunc{d}, nil }
}

func (d *countingDevice) starts() []*playback.Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*playback.Buffer(nil), d.started...)
}

type deviceFunc struct{ d *countingDevice }

func (f deviceFunc) Start(buf *playback.Buffer) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	f.d.started = append(f.d.started, buf)
	return nil
}

func (f deviceFunc) Stop() error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	f.d.stopped++
	return nil
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds(kind EventKind) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, ev := range l.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func sphinxDoc(t *testing.T) catalog.Document {
	t.Helper()
	doc, ok := catalog.NewStore(nil).Get(catalog.SphinxID)
	if !ok {
		t.Fatal("sphinx built-in missing")
	}
	return doc
}

func waitTask(t *testing.T, task *Task) (Outcome, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := task.Wait(ctx)
	if err == context.DeadlineExceeded {
		t.Fatal("task did not finish")
	}
	return out, err
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}
