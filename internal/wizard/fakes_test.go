package wizard_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"newscast/internal/checkpoint"
	"newscast/internal/config"
	"newscast/internal/logging"
	"newscast/internal/notifications"
	"newscast/internal/production"
	"newscast/internal/providers"
	"newscast/internal/render"
	"newscast/internal/services"
	"newscast/internal/testsupport"
	"newscast/internal/timeline"
	"newscast/internal/wizard"
)

type fakeNews struct {
	calls atomic.Int32
	items []production.NewsItem
}

func (f *fakeNews) FetchNews(context.Context, string, string) ([]production.NewsItem, error) {
	f.calls.Add(1)
	return f.items, nil
}

type fakeScripts struct {
	scenes int
	script *production.Script
}

func (f *fakeScripts) GenerateScript(context.Context, []production.NewsItem, string) (production.Script, error) {
	if f.script != nil {
		return *f.script, nil
	}
	return testsupport.Script(f.scenes), nil
}

type fakeSpeech struct {
	mu       sync.Mutex
	calls    map[string]int
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	hook     func(call int)
	total    int
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text, voice string) (providers.Speech, error) {
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if current <= peak || f.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[text]++
	f.total++
	call, n := f.total, f.calls[text]
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return providers.Speech{URL: fmt.Sprintf("https://cdn.test/audio/%d-%d.mp3", call, n), Duration: 5}, nil
}

func (f *fakeSpeech) count(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[text]
}

func (f *fakeSpeech) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

type fakeVideo struct {
	mu    sync.Mutex
	calls map[int]int
	fail  map[int]error
	audio map[int]string
}

func (f *fakeVideo) Synthesize(_ context.Context, req providers.VideoRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[int]int)
		f.audio = make(map[int]string)
	}
	f.calls[req.Segment]++
	f.audio[req.Segment] = req.AudioURL
	if err := f.fail[req.Segment]; err != nil {
		return "", err
	}
	return fmt.Sprintf("https://cdn.test/video/%d-%d.mp4", req.Segment, f.calls[req.Segment]), nil
}

func (f *fakeVideo) count(segment int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[segment]
}

func (f *fakeVideo) setFailure(segment int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail == nil {
		f.fail = make(map[int]error)
	}
	if err == nil {
		delete(f.fail, segment)
		return
	}
	f.fail[segment] = err
}

type fakeRenderer struct {
	mu          sync.Mutex
	submits     int
	awaited     []string
	awaitedJobs []render.Job
	specs       []timeline.Spec
	awaitErr    []error
}

func (f *fakeRenderer) Submit(_ context.Context, spec timeline.Spec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	f.specs = append(f.specs, spec)
	return fmt.Sprintf("job-%d", f.submits), nil
}

func (f *fakeRenderer) AwaitCompletion(_ context.Context, job render.Job, _, _ time.Duration) (render.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	jobID := job.ID
	f.awaited = append(f.awaited, jobID)
	f.awaitedJobs = append(f.awaitedJobs, job)
	if len(f.awaitErr) > 0 {
		err := f.awaitErr[0]
		f.awaitErr = f.awaitErr[1:]
		if err != nil {
			return render.Result{JobID: jobID, Status: render.StatusFailed}, err
		}
	}
	return render.Result{
		JobID:    jobID,
		Status:   render.StatusDone,
		URL:      "https://render.test/" + jobID + ".mp4",
		Duration: 14,
		Cost:     0.35,
	}, nil
}

type fakePublisher struct {
	calls atomic.Int32
	meta  providers.Metadata
}

func (f *fakePublisher) Publish(_ context.Context, _ string, meta providers.Metadata) (string, error) {
	f.calls.Add(1)
	f.meta = meta
	return "yt-123", nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) has(event notifications.Event) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}

type failingCheckpointer struct {
	saves atomic.Int32
}

func (f *failingCheckpointer) Save(context.Context, checkpoint.Snapshot) error {
	f.saves.Add(1)
	return services.Wrap(services.ErrPersistence, "checkpoint", "save", "disk full", nil)
}

func (f *failingCheckpointer) AbortRequested(context.Context, string) (bool, error) {
	return false, nil
}

func (f *failingCheckpointer) ClearAbort(context.Context, string) error { return nil }

// orderedCheckpointer records how many audio units each save persisted, in write order.
type orderedCheckpointer struct {
	*checkpoint.Manager

	mu        sync.Mutex
	doneAudio []int
}

func (o *orderedCheckpointer) Save(ctx context.Context, snap checkpoint.Snapshot) error {
	done := 0
	for _, status := range snap.Statuses {
		if status.Audio == production.ResourceDone {
			done++
		}
	}
	o.mu.Lock()
	o.doneAudio = append(o.doneAudio, done)
	o.mu.Unlock()
	return o.Manager.Save(ctx, snap)
}

func (o *orderedCheckpointer) history() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]int(nil), o.doneAudio...)
}

type harness struct {
	cfg       *config.Config
	mgr       *checkpoint.Manager
	news      *fakeNews
	scripts   *fakeScripts
	speech    *fakeSpeech
	video     *fakeVideo
	renderer  *fakeRenderer
	publisher *fakePublisher
	notifier  *recordingNotifier
	runner    *wizard.Runner
}

func newHarness(t *testing.T, scenes int, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	h := &harness{
		cfg: cfg,
		mgr: checkpoint.NewManager(st, logging.NewNop()),
		news: &fakeNews{items: []production.NewsItem{
			{ID: "n1", Headline: "Chip exports rise"},
			{ID: "n2", Headline: "New battery plant"},
			{ID: "n3", Headline: "Satellite launch"},
			{ID: "n4", Headline: "Open source funding"},
		}},
		scripts:   &fakeScripts{scenes: scenes},
		speech:    &fakeSpeech{},
		video:     &fakeVideo{},
		renderer:  &fakeRenderer{},
		publisher: &fakePublisher{},
		notifier:  &recordingNotifier{},
	}
	h.runner = h.build(h.mgr)
	return h
}

func (h *harness) build(checkpoints wizard.Checkpointer) *wizard.Runner {
	set := providers.Set{
		News:     h.news,
		Selector: providers.BriefSelector{DefaultMax: 3},
		Scripts:  h.scripts,
		Speech:   h.speech,
		Video:    h.video,
	}
	if h.publisher != nil {
		set.Publisher = h.publisher
	}
	return wizard.NewRunner(h.cfg, wizard.Deps{
		Providers:   set,
		Checkpoints: checkpoints,
		Renderer:    h.renderer,
		Notifier:    h.notifier,
		Logger:      logging.NewNop(),
	})
}

func (h *harness) newProduction(id string) *wizard.Production {
	return wizard.NewProduction(id, testsupport.Brief(), nil)
}

func (h *harness) reload(t *testing.T, id string) *wizard.Production {
	t.Helper()
	snap, err := h.mgr.Load(context.Background(), id)
	if err != nil {
		t.Fatalf("load %s: %v", id, err)
	}
	return wizard.FromSnapshot(snap, nil)
}
