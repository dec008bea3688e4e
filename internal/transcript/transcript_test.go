package transcript

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/exchange-desk/internal/domain"
	"github.com/dvloznov/exchange-desk/internal/jobs"
	jobsmem "github.com/dvloznov/exchange-desk/internal/jobs/inmemory"
	"github.com/dvloznov/exchange-desk/internal/metrics"
)

var fixedNow = time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

func completedTicket() domain.Ticket {
	closed := fixedNow.Add(-time.Minute)
	amount := decimal.RequireFromString("20")
	return domain.Ticket{
		Key:           "01HXKEY",
		ChannelName:   "exchange-alice-0001",
		RequesterID:   "u1",
		SendMethod:    domain.CashApp,
		ReceiveMethod: domain.Zelle,
		Amount:        &amount,
		Fee: &domain.FeeBreakdown{
			Percent:       decimal.NewFromInt(10),
			FeeAmount:     decimal.NewFromInt(3),
			ReceiveAmount: decimal.NewFromInt(17),
			Note:          "Minimum fee of $3 applied",
		},
		Claimed:     true,
		ClaimedBy:   "ex1",
		Status:      domain.StatusCompleted,
		CreatedAt:   fixedNow.Add(-time.Hour),
		ClosedBy:    "u1",
		CloseReason: "<b>done</b>",
		ClosedAt:    &closed,
	}
}

func TestRender(t *testing.T) {
	html, err := Render(completedTicket(), fixedNow)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := string(html)

	for _, want := range []string{
		"exchange-alice-0001",
		"Completed",
		"€20.00",
		"€3.00",
		"€17.00",
		"Minimum fee of $3 applied",
		"ex1",
		"2024-05-02 11:59 UTC",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("transcript missing %q", want)
		}
	}
	if strings.Contains(out, "<b>done</b>") {
		t.Error("close reason was not escaped")
	}
}

func TestRender_Cancelled(t *testing.T) {
	tk := completedTicket()
	tk.Status = domain.StatusCancelled
	tk.Amount = nil
	tk.Fee = nil
	tk.ClaimedBy = ""

	html, err := Render(tk, fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	out := string(html)
	if strings.Contains(out, "Amount Sent") || strings.Contains(out, "Amount Received") {
		t.Error("cancelled transcript should not show amounts")
	}
	if !strings.Contains(out, "Unclaimed") || !strings.Contains(out, "Cancelled") {
		t.Error("cancelled transcript missing status or claimant")
	}
}

func TestFilename(t *testing.T) {
	tk := domain.Ticket{Key: "K1", ChannelName: "exchange-a b/c-0001"}
	if got := Filename(tk); got != "transcript-exchange-a_b_c-0001-K1.html" {
		t.Errorf("Filename() = %q", got)
	}
}

func TestLocalSink(t *testing.T) {
	dir := t.TempDir()
	sink := LocalSink{Dir: dir}

	loc, err := sink.Deliver(context.Background(), completedTicket(), []byte("<html></html>"))
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	data, err := os.ReadFile(loc)
	if err != nil {
		t.Fatalf("reading delivered file: %v", err)
	}
	if string(data) != "<html></html>" {
		t.Errorf("file content = %q", data)
	}
}

type fakeStorage struct {
	bucket, object, contentType string
	err                         error
}

func (f *fakeStorage) Upload(ctx context.Context, bucket, object string, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.bucket, f.object, f.contentType = bucket, object, contentType
	return "gs://" + bucket + "/" + object, nil
}

func (f *fakeStorage) FetchFromGCS(ctx context.Context, uri string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func TestGCSSink(t *testing.T) {
	storage := &fakeStorage{}
	sink := GCSSink{Storage: storage, Bucket: "desk", Prefix: "transcripts"}

	loc, err := sink.Deliver(context.Background(), completedTicket(), []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	want := "transcripts/2024/05/transcript-exchange-alice-0001-01HXKEY.html"
	if storage.object != want {
		t.Errorf("object = %q, want %q", storage.object, want)
	}
	if loc != "gs://desk/"+want {
		t.Errorf("location = %q", loc)
	}
	if !strings.HasPrefix(storage.contentType, "text/html") {
		t.Errorf("content type = %q", storage.contentType)
	}
}

type stubSink struct {
	name string
	err  error
	got  []domain.Ticket
}

func (s *stubSink) Name() string { return s.name }

func (s *stubSink) Deliver(ctx context.Context, t domain.Ticket, html []byte) (string, error) {
	s.got = append(s.got, t)
	if s.err != nil {
		return "", s.err
	}
	return s.name + "://" + t.Key, nil
}

func TestHandler_AttemptsEverySink(t *testing.T) {
	first := &stubSink{name: "first", err: errors.New("disk full")}
	second := &stubSink{name: "second"}
	handler := Handler([]Sink{first, second}, func() time.Time { return fixedNow })

	job := &jobs.TranscriptJob{JobID: "j1", Ticket: completedTicket()}
	err := handler(context.Background(), job)

	if err == nil || !strings.Contains(err.Error(), "first") {
		t.Fatalf("handler error = %v, want failure naming first", err)
	}
	if len(second.got) != 1 {
		t.Error("second sink was skipped after first failed")
	}
	if len(job.Results) != 2 {
		t.Fatalf("results = %+v", job.Results)
	}
	if job.Results[0].Error != "disk full" || job.Results[1].Location != "second://01HXKEY" {
		t.Errorf("results = %+v", job.Results)
	}
}

func TestDispatcher_DeliversInBackground(t *testing.T) {
	store := jobsmem.NewStore()
	queue := jobsmem.NewQueue(4, 1, store)
	sink := &stubSink{name: "stub"}
	ctx := context.Background()

	if err := queue.Start(ctx, Handler([]Sink{sink}, nil)); err != nil {
		t.Fatal(err)
	}

	id, err := NewDispatcher(queue).Dispatch(ctx, completedTicket())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if id == "" {
		t.Fatal("expected job id")
	}

	if err := queue.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	job, err := store.GetJob(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != jobs.JobStatusCompleted || len(sink.got) != 1 {
		t.Errorf("job = %+v, deliveries = %d", job, len(sink.got))
	}
}

func TestDispatcher_FullQueueKeepsJobID(t *testing.T) {
	store := jobsmem.NewStore()
	queue := jobsmem.NewQueue(0, 1, store)
	defer queue.Close()
	ctx := context.Background()

	id, err := NewDispatcher(queue).Dispatch(ctx, completedTicket())
	if !errors.Is(err, jobs.ErrQueueFull) {
		t.Fatalf("Dispatch error = %v, want ErrQueueFull", err)
	}
	if id == "" {
		t.Fatal("expected job id for refused job")
	}
	job, err := store.GetJob(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != jobs.JobStatusFailed {
		t.Errorf("status = %s, want failed", job.Status)
	}
}

func TestCounted(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	ok := Counted(func(context.Context, *jobs.TranscriptJob) error { return nil }, m)
	bad := Counted(func(context.Context, *jobs.TranscriptJob) error { return errors.New("x") }, m)

	ctx := context.Background()
	_ = ok(ctx, &jobs.TranscriptJob{})
	_ = ok(ctx, &jobs.TranscriptJob{})
	if err := bad(ctx, &jobs.TranscriptJob{}); err == nil {
		t.Error("Counted swallowed the handler error")
	}

	if got := testutil.ToFloat64(m.TranscriptJobs.WithLabelValues("completed")); got != 2 {
		t.Errorf("completed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.TranscriptJobs.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed = %v, want 1", got)
	}
}
