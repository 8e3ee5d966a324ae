package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"examprep/app/client/llm"
	"examprep/app/client/llm/llmtest"
	"examprep/app/service/document"
	"examprep/app/service/examgen"
	"examprep/app/service/ingest"
	"examprep/app/service/qa"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIngester struct {
	docs map[string]document.Document
	err  error
}

func (s stubIngester) Process(_ context.Context, _ string, f ingest.File) (document.Document, error) {
	if s.err != nil {
		return document.Document{}, s.err
	}
	doc, ok := s.docs[f.Name]
	if !ok {
		return document.Document{Name: f.Name, Kind: document.KindUnknown}, nil
	}
	return doc, nil
}

// gatedIngester signals started on each call and blocks until gate is closed.
type gatedIngester struct {
	started chan string
	gate    chan struct{}
}

func (g gatedIngester) Process(ctx context.Context, _ string, f ingest.File) (document.Document, error) {
	g.started <- f.Name
	select {
	case <-g.gate:
	case <-ctx.Done():
		return document.Document{}, ctx.Err()
	}
	return testDocs[f.Name], nil
}

type panickingIngester struct{}

func (panickingIngester) Process(context.Context, string, ingest.File) (document.Document, error) {
	panic("extractor crashed")
}

var testDocs = map[string]document.Document{
	"lecture1.pdf": {Name: "lecture1.pdf", Text: "Gradient descent minimizes loss.", Kind: document.KindSlide},
	"lecture2.pdf": {Name: "lecture2.pdf", Text: "Backpropagation computes gradients.", Kind: document.KindSlide},
	"examA.pdf":    {Name: "examA.pdf", Text: "Q1. Define overfitting.", Kind: document.KindTest},
	"notes.txt":    {Name: "notes.txt", Text: "random notes", Kind: document.KindUnknown},
}

func newTestSession(t *testing.T, fake *llmtest.Fake) *Session {
	t.Helper()
	return newSession("test", 100, stubIngester{docs: testDocs}, qa.NewWithCompleter(fake), examgen.NewWithCompleter(fake))
}

func files(names ...string) []ingest.File {
	result := make([]ingest.File, 0, len(names))
	for _, name := range names {
		result = append(result, ingest.File{Name: name, Data: []byte(name)})
	}
	return result
}

func TestNewSessionSeedsGreeting(t *testing.T) {
	snapshot := newTestSession(t, &llmtest.Fake{}).Snapshot()

	require.Len(t, snapshot.Transcript, 1)
	assert.Equal(t, RoleAssistant, snapshot.Transcript[0].Role)
	assert.Equal(t, Greeting, snapshot.Transcript[0].Content)
	assert.False(t, snapshot.Uploading)
	assert.False(t, snapshot.Answering)
	assert.False(t, snapshot.GeneratingExam)
}

func TestAnswerWithoutDocumentSkipsModel(t *testing.T) {
	fake := &llmtest.Fake{}
	sess := newTestSession(t, fake)

	require.NoError(t, sess.Answer(context.Background(), "What is gradient descent?"))

	snapshot := sess.Snapshot()
	require.Len(t, snapshot.Transcript, 3)
	assert.Equal(t, RoleUser, snapshot.Transcript[1].Role)
	assert.Equal(t, "What is gradient descent?", snapshot.Transcript[1].Content)
	assert.Equal(t, qa.NoDocumentReply, snapshot.Transcript[2].Content)
	assert.Empty(t, fake.Calls())
	assert.False(t, snapshot.Answering)
}

func TestAnswerRejectsBlankQuestion(t *testing.T) {
	sess := newTestSession(t, &llmtest.Fake{})
	before := sess.Snapshot()

	assert.ErrorIs(t, sess.Answer(context.Background(), "   \n\t"), ErrEmptyQuestion)

	after := sess.Snapshot()
	assert.Equal(t, before.Version, after.Version)
	assert.Len(t, after.Transcript, 1)
}

func TestAnswerUsesLastUploadedDocument(t *testing.T) {
	fake := &llmtest.Fake{Reply: llmtest.Replies("It minimizes loss.")}
	sess := newTestSession(t, fake)

	require.NoError(t, sess.Upload(context.Background(), files("examA.pdf", "lecture1.pdf")))
	require.NoError(t, sess.Answer(context.Background(), "  What is gradient descent?  "))

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Messages[0].Content, "Gradient descent minimizes loss.")
	assert.NotContains(t, calls[0].Messages[0].Content, "Define overfitting")
	assert.Equal(t, "What is gradient descent?", calls[0].Messages[1].Content)

	snapshot := sess.Snapshot()
	last := snapshot.Transcript[len(snapshot.Transcript)-1]
	assert.Equal(t, RoleAssistant, last.Role)
	assert.Equal(t, "It minimizes loss.", last.Content)
}

func TestAnswerFailureIsInlineAndReleasesFlag(t *testing.T) {
	fake := &llmtest.Fake{Reply: llmtest.Fail(errors.New("rate limited"))}
	sess := newTestSession(t, fake)

	require.NoError(t, sess.Upload(context.Background(), files("lecture1.pdf")))
	require.NoError(t, sess.Answer(context.Background(), "Explain"))

	snapshot := sess.Snapshot()
	last := snapshot.Transcript[len(snapshot.Transcript)-1]
	assert.Equal(t, "An error occurred: rate limited", last.Content)
	assert.False(t, snapshot.Answering)
}

func TestUnconfiguredModelSurfacesAsReply(t *testing.T) {
	sess := newSession("test", 100, stubIngester{docs: testDocs},
		qa.NewWithCompleter(llm.NewWithModel(nil, "m")), examgen.NewWithCompleter(llm.NewWithModel(nil, "m")))

	require.NoError(t, sess.Upload(context.Background(), files("lecture1.pdf", "examA.pdf")))
	require.NoError(t, sess.Answer(context.Background(), "Explain"))
	require.NoError(t, sess.GenerateExam(context.Background()))

	snapshot := sess.Snapshot()
	n := len(snapshot.Transcript)
	assert.Contains(t, snapshot.Transcript[n-2].Content, llm.ErrUnconfigured.Error())
	assert.Contains(t, snapshot.Transcript[n-1].Content, llm.ErrUnconfigured.Error())
	assert.False(t, snapshot.Answering)
	assert.False(t, snapshot.GeneratingExam)
}

func TestAskWhileAnsweringIsRejected(t *testing.T) {
	fake := &llmtest.Fake{Gate: make(chan struct{})}
	sess := newTestSession(t, fake)
	require.NoError(t, sess.Upload(context.Background(), files("lecture1.pdf", "examA.pdf")))

	task, err := sess.Ask("first")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		task(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(fake.Calls()) == 1 }, time.Second, time.Millisecond)

	before := sess.Snapshot()
	assert.True(t, before.Answering)

	_, err = sess.Ask("second")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = sess.Exam()
	assert.ErrorIs(t, err, ErrBusy)

	assert.Equal(t, before.Transcript, sess.Snapshot().Transcript)

	close(fake.Gate)
	<-done

	after := sess.Snapshot()
	assert.False(t, after.Answering)
	assert.Len(t, after.Transcript, len(before.Transcript)+1)
	assert.Len(t, fake.Calls(), 1)
}

func TestAskAppliesPreSuspensionState(t *testing.T) {
	sess := newTestSession(t, &llmtest.Fake{})
	sess.SetPendingQuestion("draft")

	_, err := sess.Ask("draft")
	require.NoError(t, err)

	snapshot := sess.Snapshot()
	assert.True(t, snapshot.Answering)
	assert.Empty(t, snapshot.PendingQuestion)
	assert.Equal(t, "draft", snapshot.Transcript[len(snapshot.Transcript)-1].Content)
}

func TestGenerateExamRequiresBothKinds(t *testing.T) {
	fake := &llmtest.Fake{}
	sess := newTestSession(t, fake)
	require.NoError(t, sess.Upload(context.Background(), files("lecture1.pdf")))
	before := len(sess.Snapshot().Transcript)

	assert.ErrorIs(t, sess.GenerateExam(context.Background()), ErrCorpusIncomplete)

	snapshot := sess.Snapshot()
	require.Len(t, snapshot.Transcript, before+1)
	assert.Equal(t, examgen.MissingMaterialReply, snapshot.Transcript[before].Content)
	assert.False(t, snapshot.GeneratingExam)
	assert.Empty(t, fake.Calls())
}

func TestGenerateExamSendsWholeCorpus(t *testing.T) {
	fake := &llmtest.Fake{Reply: llmtest.Replies("Exam\n1. Define gradient descent.")}
	sess := newTestSession(t, fake)
	require.NoError(t, sess.Upload(context.Background(), files("lecture1.pdf", "examA.pdf", "lecture2.pdf")))

	require.NoError(t, sess.GenerateExam(context.Background()))

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.InDelta(t, 0.3, calls[0].Options.Temperature, 1e-9)
	user := calls[0].Messages[1].Content
	assert.Contains(t, user, "Gradient descent minimizes loss.")
	assert.Contains(t, user, "Backpropagation computes gradients.")
	assert.Contains(t, user, "Q1. Define overfitting.")

	snapshot := sess.Snapshot()
	assert.Equal(t, "Exam\n1. Define gradient descent.", snapshot.Transcript[len(snapshot.Transcript)-1].Content)
	assert.False(t, snapshot.GeneratingExam)
}

func TestGenerateExamFailureReleasesFlag(t *testing.T) {
	sess := newTestSession(t, &llmtest.Fake{Reply: llmtest.Fail(errors.New("timeout"))})
	require.NoError(t, sess.Upload(context.Background(), files("lecture1.pdf", "examA.pdf")))

	require.NoError(t, sess.GenerateExam(context.Background()))

	snapshot := sess.Snapshot()
	assert.Equal(t, "An error occurred: timeout", snapshot.Transcript[len(snapshot.Transcript)-1].Content)
	assert.False(t, snapshot.GeneratingExam)
}

func TestUploadRoutesSlide(t *testing.T) {
	sess := newTestSession(t, &llmtest.Fake{})

	require.NoError(t, sess.Upload(context.Background(), files("lecture1.pdf")))

	snapshot := sess.Snapshot()
	assert.Equal(t, []string{"Gradient descent minimizes loss."}, snapshot.Corpus.Slides)
	assert.Empty(t, snapshot.Corpus.Exams)
	assert.Equal(t, "lecture1.pdf", snapshot.LastUploadedName)
	require.Len(t, snapshot.Transcript, 2)
	assert.Equal(t, RoleAssistant, snapshot.Transcript[1].Role)
	assert.Contains(t, snapshot.Transcript[1].Content, "lecture1.pdf")
	assert.False(t, snapshot.Uploading)

	notifications := sess.TakeNotifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, LevelSuccess, notifications[0].Level)
	assert.Empty(t, sess.TakeNotifications())
}

func TestUploadKeepsDuplicatesInOrder(t *testing.T) {
	sess := newTestSession(t, &llmtest.Fake{})

	require.NoError(t, sess.Upload(context.Background(), files("examA.pdf")))
	require.NoError(t, sess.Upload(context.Background(), files("examA.pdf")))
	require.NoError(t, sess.Upload(context.Background(), files("lecture2.pdf", "lecture1.pdf")))

	snapshot := sess.Snapshot()
	assert.Len(t, snapshot.Corpus.Exams, 2)
	assert.Equal(t, []string{"Backpropagation computes gradients.", "Gradient descent minimizes loss."}, snapshot.Corpus.Slides)
	assert.Len(t, snapshot.Documents, 4)
}

func TestUploadUnknownKindIsNotRouted(t *testing.T) {
	sess := newTestSession(t, &llmtest.Fake{})

	require.NoError(t, sess.Upload(context.Background(), files("notes.txt")))

	snapshot := sess.Snapshot()
	assert.Empty(t, snapshot.Corpus.Slides)
	assert.Empty(t, snapshot.Corpus.Exams)
	assert.Equal(t, "notes.txt", snapshot.LastUploadedName)
	assert.Equal(t, "random notes", snapshot.LastUploadedText)

	notifications := sess.TakeNotifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, LevelWarning, notifications[0].Level)
}

func TestUploadWithoutFiles(t *testing.T) {
	sess := newTestSession(t, &llmtest.Fake{})
	before := sess.Snapshot()

	assert.ErrorIs(t, sess.Upload(context.Background(), nil), ErrNoFiles)

	assert.Equal(t, before.Version, sess.Snapshot().Version)
	notifications := sess.TakeNotifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, LevelWarning, notifications[0].Level)
}

func TestUploadStagingFailureSkipsFile(t *testing.T) {
	sess := newSession("test", 100, stubIngester{err: errors.New("disk full")}, qa.NewWithCompleter(&llmtest.Fake{}), examgen.NewWithCompleter(&llmtest.Fake{}))

	require.NoError(t, sess.Upload(context.Background(), files("lecture1.pdf")))

	snapshot := sess.Snapshot()
	assert.Len(t, snapshot.Transcript, 1)
	assert.Empty(t, snapshot.LastUploadedName)
	assert.False(t, snapshot.Uploading)

	notifications := sess.TakeNotifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, LevelError, notifications[0].Level)
}

func TestUploadPanicReleasesFlag(t *testing.T) {
	sess := newSession("test", 100, panickingIngester{}, qa.NewWithCompleter(&llmtest.Fake{}), examgen.NewWithCompleter(&llmtest.Fake{}))

	assert.ErrorIs(t, sess.Upload(context.Background(), files("lecture1.pdf")), ErrUploadFailed)
	assert.False(t, sess.Snapshot().Uploading)
}

func TestClearChatKeepsCorpus(t *testing.T) {
	sess := newTestSession(t, &llmtest.Fake{})
	require.NoError(t, sess.Upload(context.Background(), files("lecture1.pdf", "examA.pdf")))
	require.NoError(t, sess.Answer(context.Background(), "Explain"))

	require.NoError(t, sess.ClearChat())

	snapshot := sess.Snapshot()
	require.Len(t, snapshot.Transcript, 1)
	assert.Equal(t, Greeting, snapshot.Transcript[0].Content)
	assert.Empty(t, snapshot.LastUploadedName)
	assert.True(t, snapshot.Corpus.Complete())
	assert.NotEmpty(t, snapshot.LastUploadedText)
}

func TestResetDropsEverything(t *testing.T) {
	sess := newTestSession(t, &llmtest.Fake{})
	require.NoError(t, sess.Upload(context.Background(), files("lecture1.pdf", "examA.pdf")))

	require.NoError(t, sess.Reset())

	snapshot := sess.Snapshot()
	assert.Len(t, snapshot.Transcript, 1)
	assert.False(t, snapshot.Corpus.Complete())
	assert.Empty(t, snapshot.Documents)
	assert.Empty(t, snapshot.LastUploadedText)
}

func TestTranscriptIsBounded(t *testing.T) {
	sess := newSession("test", 5, stubIngester{docs: testDocs}, qa.NewWithCompleter(&llmtest.Fake{}), examgen.NewWithCompleter(&llmtest.Fake{}))

	for range 4 {
		require.NoError(t, sess.Answer(context.Background(), "again"))
	}

	snapshot := sess.Snapshot()
	require.Len(t, snapshot.Transcript, 5)
	assert.Equal(t, qa.NoDocumentReply, snapshot.Transcript[4].Content)
	assert.Equal(t, RoleAssistant, snapshot.Transcript[4].Role)
}

func TestSnapshotIsIsolated(t *testing.T) {
	sess := newTestSession(t, &llmtest.Fake{})
	require.NoError(t, sess.Upload(context.Background(), files("lecture1.pdf")))

	snapshot := sess.Snapshot()
	snapshot.Transcript[0].Content = "changed"
	snapshot.Corpus.Slides[0] = "changed"

	fresh := sess.Snapshot()
	assert.Equal(t, Greeting, fresh.Transcript[0].Content)
	assert.Equal(t, "Gradient descent minimizes loss.", fresh.Corpus.Slides[0])
}

func TestWaitChange(t *testing.T) {
	sess := newTestSession(t, &llmtest.Fake{})
	version := sess.Snapshot().Version

	go sess.SetPendingQuestion("typing")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	snapshot, err := sess.WaitChange(ctx, version)
	require.NoError(t, err)
	assert.Greater(t, snapshot.Version, version)
	assert.Equal(t, "typing", snapshot.PendingQuestion)

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = sess.WaitChange(ctx, snapshot.Version)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUploadInProgressRejectsSecondUpload(t *testing.T) {
	ing := gatedIngester{started: make(chan string, 1), gate: make(chan struct{})}
	sess := newSession("test", 100, ing, qa.NewWithCompleter(&llmtest.Fake{}), examgen.NewWithCompleter(&llmtest.Fake{}))

	result := make(chan error, 1)
	go func() {
		result <- sess.Upload(context.Background(), files("lecture1.pdf"))
	}()
	assert.Equal(t, "lecture1.pdf", <-ing.started)

	before := sess.Snapshot()
	assert.True(t, before.Uploading)

	assert.ErrorIs(t, sess.Upload(context.Background(), files("examA.pdf")), ErrUploadInProgress)

	after := sess.Snapshot()
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, before.Transcript, after.Transcript)
	notifications := sess.TakeNotifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, LevelWarning, notifications[0].Level)

	close(ing.gate)
	require.NoError(t, <-result)

	final := sess.Snapshot()
	assert.False(t, final.Uploading)
	assert.Equal(t, []string{"Gradient descent minimizes loss."}, final.Corpus.Slides)
	assert.Empty(t, final.Corpus.Exams)
}

func TestAskWhileGeneratingExamIsRejected(t *testing.T) {
	fake := &llmtest.Fake{Gate: make(chan struct{})}
	sess := newTestSession(t, fake)
	require.NoError(t, sess.Upload(context.Background(), files("lecture1.pdf", "examA.pdf")))

	task, err := sess.Exam()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		task(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(fake.Calls()) == 1 }, time.Second, time.Millisecond)

	before := sess.Snapshot()
	assert.True(t, before.GeneratingExam)

	_, err = sess.Ask("What is on the exam?")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = sess.Exam()
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, before.Transcript, sess.Snapshot().Transcript)

	close(fake.Gate)
	<-done

	after := sess.Snapshot()
	assert.False(t, after.GeneratingExam)
	assert.Len(t, after.Transcript, len(before.Transcript)+1)
	assert.Len(t, fake.Calls(), 1)
}

func TestClearAndResetRefusedWhileAnswering(t *testing.T) {
	fake := &llmtest.Fake{Gate: make(chan struct{})}
	sess := newTestSession(t, fake)
	require.NoError(t, sess.Upload(context.Background(), files("lecture1.pdf")))

	task, err := sess.Ask("Explain gradient descent")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		task(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(fake.Calls()) == 1 }, time.Second, time.Millisecond)

	assert.ErrorIs(t, sess.ClearChat(), ErrBusy)
	assert.ErrorIs(t, sess.Reset(), ErrBusy)

	close(fake.Gate)
	<-done

	transcript := sess.Snapshot().Transcript
	require.Len(t, transcript, 4)
	assert.Equal(t, RoleUser, transcript[2].Role)
	assert.Equal(t, "Explain gradient descent", transcript[2].Content)
	assert.Equal(t, RoleAssistant, transcript[3].Role)

	require.NoError(t, sess.ClearChat())
	assert.Len(t, sess.Snapshot().Transcript, 1)
}
