package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/lshigami/quizengine/internal/cache"
	"github.com/lshigami/quizengine/internal/model"
	"github.com/lshigami/quizengine/internal/repository"
	"gorm.io/datatypes"
)

var errTransient = errors.New("connection reset by peer")

var testPolicy = RetryPolicy{
	MaxAttempts:     5,
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
	MaxElapsed:      2 * time.Second,
}

var testPolicies = RetryPolicies{Autosave: testPolicy, Submit: testPolicy}

var testExpiry = ExpiryPolicy{Grace: 5 * time.Second}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func copyAttempt(a model.Attempt) model.Attempt {
	a.Answers = datatypes.NewJSONType(a.Answers.Data().Clone())
	a.AnswerKey = datatypes.NewJSONType(append([]model.QuestionSnapshot(nil), a.AnswerKey.Data()...))
	return a
}

// fakeAttemptRepo is an in-memory attempt table with a real compare-and-swap.
type fakeAttemptRepo struct {
	mu          sync.Mutex
	rows        map[string]model.Attempt
	seq         int
	casFailures int // upcoming CompareAndSwap calls that fail transiently
	findErrs    int // upcoming FindByID calls that fail transiently
	casCalls    int
	// readHook may rewrite a row copy before FindByID returns it.
	readHook func(a *model.Attempt)
}

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{rows: map[string]model.Attempt{}}
}

func (r *fakeAttemptRepo) Create(_ context.Context, a *model.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == "" {
		r.seq++
		a.ID = fmt.Sprintf("attempt-%d", r.seq)
	}
	if a.Version == 0 {
		a.Version = 1
	}
	r.rows[a.ID] = copyAttempt(*a)
	return nil
}

func (r *fakeAttemptRepo) FindByID(_ context.Context, id string) (*model.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErrs > 0 {
		r.findErrs--
		return nil, errTransient
	}
	row, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := copyAttempt(row)
	if r.readHook != nil {
		r.readHook(&out)
	}
	return &out, nil
}

func (r *fakeAttemptRepo) CountByQuizAndStudent(_ context.Context, quizID uint, studentID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.rows {
		if a.QuizID == quizID && a.StudentID == studentID {
			n++
		}
	}
	return n, nil
}

func (r *fakeAttemptRepo) ListByQuizAndStudent(_ context.Context, quizID uint, studentID string) ([]model.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Attempt
	for _, a := range r.rows {
		if a.QuizID == quizID && a.StudentID == studentID {
			out = append(out, copyAttempt(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (r *fakeAttemptRepo) ListExpiredInProgress(_ context.Context, now time.Time, limit int) ([]model.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Attempt
	for _, a := range r.rows {
		if a.Status != model.AttemptInProgress {
			continue
		}
		if deadline, ok := Deadline(a.StartedAt, a.TimeLimitMinutes); ok && !deadline.After(now) {
			out = append(out, copyAttempt(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		di, _ := Deadline(out[i].StartedAt, out[i].TimeLimitMinutes)
		dj, _ := Deadline(out[j].StartedAt, out[j].TimeLimitMinutes)
		return di.Before(dj)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeAttemptRepo) CompareAndSwap(_ context.Context, id string, status model.AttemptStatus, version int64, p repository.AttemptPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.casCalls++
	if r.casFailures > 0 {
		r.casFailures--
		return errTransient
	}
	row, ok := r.rows[id]
	if !ok || row.Status != status || row.Version != version {
		return repository.ErrStatusConflict
	}
	if p.Status != nil {
		row.Status = *p.Status
	}
	if p.Answers != nil {
		row.Answers = datatypes.NewJSONType(p.Answers.Clone())
	}
	if p.Score != nil {
		v := *p.Score
		row.Score = &v
	}
	if p.CompletedAt != nil {
		v := *p.CompletedAt
		row.CompletedAt = &v
	}
	if p.GradedAt != nil {
		v := *p.GradedAt
		row.GradedAt = &v
	}
	if p.SubmitSource != nil {
		v := *p.SubmitSource
		row.SubmitSource = &v
	}
	if p.ForceFinalized != nil {
		row.ForceFinalized = *p.ForceFinalized
	}
	if p.FinalizedBy != nil {
		v := *p.FinalizedBy
		row.FinalizedBy = &v
	}
	row.Version++
	r.rows[id] = row
	return nil
}

func (r *fakeAttemptRepo) get(t *testing.T, id string) model.Attempt {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		t.Fatalf("attempt %s not found", id)
	}
	return copyAttempt(row)
}

type fakeGradeRepo struct {
	mu     sync.Mutex
	grades map[string]map[uint]model.ManualGrade
}

func newFakeGradeRepo() *fakeGradeRepo {
	return &fakeGradeRepo{grades: map[string]map[uint]model.ManualGrade{}}
}

func (r *fakeGradeRepo) Upsert(_ context.Context, g *model.ManualGrade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.grades[g.AttemptID] == nil {
		r.grades[g.AttemptID] = map[uint]model.ManualGrade{}
	}
	r.grades[g.AttemptID][g.QuestionID] = *g
	return nil
}

func (r *fakeGradeRepo) ListByAttempt(_ context.Context, attemptID string) ([]model.ManualGrade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ManualGrade
	for _, g := range r.grades[attemptID] {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

type fakeQuizRepo struct {
	mu      sync.Mutex
	quizzes map[uint]model.Quiz
	seq     uint
}

func newFakeQuizRepo() *fakeQuizRepo {
	return &fakeQuizRepo{quizzes: map[uint]model.Quiz{}}
}

func (r *fakeQuizRepo) Create(_ context.Context, q *model.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	q.ID = r.seq
	for i := range q.Questions {
		q.Questions[i].ID = q.ID*100 + uint(i) + 1
		q.Questions[i].QuizID = q.ID
	}
	q.CreatedAt = time.Now()
	r.quizzes[q.ID] = *q
	return nil
}

func (r *fakeQuizRepo) FindByID(ctx context.Context, id uint) (*model.Quiz, error) {
	q, err := r.FindByIDWithQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	q.Questions = nil
	return q, nil
}

func (r *fakeQuizRepo) FindByIDWithQuestions(_ context.Context, id uint) (*model.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quizzes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	q.Questions = append([]model.Question(nil), q.Questions...)
	return &q, nil
}

func (r *fakeQuizRepo) FindAllWithQuestionCount(_ context.Context, status *model.QuizStatus) ([]repository.QuizSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.QuizSummary
	for _, q := range r.quizzes {
		if status != nil && q.Status != *status {
			continue
		}
		out = append(out, repository.QuizSummary{Quiz: q, QuestionCount: len(q.Questions)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeQuizRepo) UpdateStatus(_ context.Context, id uint, status model.QuizStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quizzes[id]
	if !ok {
		return repository.ErrNotFound
	}
	q.Status = status
	r.quizzes[id] = q
	return nil
}

func (r *fakeQuizRepo) FindByQuizID(ctx context.Context, quizID uint) ([]model.Question, error) {
	q, err := r.FindByIDWithQuestions(ctx, quizID)
	if err != nil {
		return nil, nil
	}
	return q.Questions, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []string
	graded    []string
}

func (n *recordingNotifier) AttemptCompleted(a model.Attempt) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, a.ID)
}

func (n *recordingNotifier) AttemptGraded(a model.Attempt) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.graded = append(n.graded, a.ID)
}

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.completed), len(n.graded)
}

type nopTracker struct{}

func (nopTracker) Track(string, string, map[string]string) {}

// Scenario quiz: two objective questions worth 2 and 3 points plus a 5 point essay.
func scenarioQuestions() []model.QuestionSnapshot {
	return []model.QuestionSnapshot{
		{ID: 1, Type: model.QuestionMultipleChoice, Prompt: "Pick A", Options: []string{"A", "B", "C"}, CorrectAnswer: strPtr("A"), Points: 2, OrderIndex: 1},
		{ID: 2, Type: model.QuestionTrueFalse, Prompt: "Is it true?", CorrectAnswer: strPtr("True"), Points: 3, OrderIndex: 2},
		{ID: 3, Type: model.QuestionEssay, Prompt: "Discuss.", Points: 5, OrderIndex: 3},
	}
}

func objectiveQuestions() []model.QuestionSnapshot {
	return scenarioQuestions()[:2]
}

type harness struct {
	attempts    *fakeAttemptRepo
	grades      *fakeGradeRepo
	quizzes     *fakeQuizRepo
	store       AnswerStore
	ledger      ManualGradeLedger
	machine     AttemptStateMachine
	coordinator SubmissionCoordinator
	notifier    *recordingNotifier
	now         time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		attempts: newFakeAttemptRepo(),
		grades:   newFakeGradeRepo(),
		quizzes:  newFakeQuizRepo(),
		notifier: &recordingNotifier{},
		now:      time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	h.store = NewAnswerStore(h.attempts)
	h.ledger = NewManualGradeLedger(h.attempts, h.grades, testPolicies)
	h.machine = NewAttemptStateMachine(h.attempts, h.grades)
	coordinator := NewSubmissionCoordinator(h.attempts, h.quizzes, h.store, h.machine, testPolicies, testExpiry, h.notifier, nopTracker{}, cache.NoopScoreCache{}).(*submissionCoordinator)
	coordinator.now = func() time.Time { return h.now }
	h.coordinator = coordinator
	return h
}

// seedQuiz stores a quiz with the given status and questions and returns its ID.
func (h *harness) seedQuiz(t *testing.T, status model.QuizStatus, questions []model.QuestionSnapshot, limit *int) uint {
	t.Helper()
	quiz := &model.Quiz{Title: "Unit quiz", Status: status, TimeLimitMinutes: limit}
	if err := h.quizzes.Create(context.Background(), quiz); err != nil {
		t.Fatal(err)
	}
	qs := make([]model.Question, 0, len(questions))
	for _, s := range questions {
		qs = append(qs, model.Question{ID: s.ID, QuizID: quiz.ID, Type: s.Type, Prompt: s.Prompt, Options: s.Options, CorrectAnswer: s.CorrectAnswer, Points: s.Points, OrderIndex: s.OrderIndex})
	}
	h.quizzes.mu.Lock()
	stored := h.quizzes.quizzes[quiz.ID]
	stored.Questions = qs
	h.quizzes.quizzes[quiz.ID] = stored
	h.quizzes.mu.Unlock()
	return quiz.ID
}

func (h *harness) seedAttempt(t *testing.T, quizID uint, student string, questions []model.QuestionSnapshot, answers model.Answers) string {
	t.Helper()
	a := &model.Attempt{
		QuizID:    quizID,
		StudentID: student,
		Status:    model.AttemptInProgress,
		Answers:   datatypes.NewJSONType(answers.Clone()),
		AnswerKey: datatypes.NewJSONType(questions),
		StartedAt: h.now,
	}
	if err := h.attempts.Create(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	return a.ID
}

// update mutates a stored row in place, bypassing the version check.
func (r *fakeAttemptRepo) update(id string, fn func(a *model.Attempt)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := r.rows[id]
	fn(&row)
	r.rows[id] = row
}

func (r *fakeQuizRepo) update(id uint, fn func(q *model.Quiz)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := r.quizzes[id]
	fn(&q)
	r.quizzes[id] = q
}

// memoryScoreCache stores JSON like the redis cache does.
type memoryScoreCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
}

func newMemoryScoreCache() *memoryScoreCache {
	return &memoryScoreCache{data: map[string][]byte{}}
}

func (c *memoryScoreCache) Get(_ context.Context, id string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[id]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(raw, dst)
}

func (c *memoryScoreCache) Set(_ context.Context, id string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[id] = raw
	return nil
}

func (c *memoryScoreCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, id)
	return nil
}

func (h *harness) attemptService(scoreCache cache.ScoreCache) *attemptService {
	svc := NewAttemptService(h.quizzes, h.quizzes, h.attempts, h.store, h.ledger, h.coordinator, testPolicies, testExpiry, scoreCache, nopTracker{}).(*attemptService)
	svc.now = func() time.Time { return h.now }
	return svc
}
