package service

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/examgate/internal/config"
	"github.com/stemsi/examgate/internal/database"
	"github.com/stemsi/examgate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingExams records how often the exam store is actually read.
type countingExams struct {
	ExamStore
	gets atomic.Int32
}

func (c *countingExams) GetExamByID(ctx context.Context, id uuid.UUID) (*model.ExamSpec, error) {
	c.gets.Add(1)
	return c.ExamStore.GetExamByID(ctx, id)
}

func newRedis(t *testing.T, addr string) *redis.Client {
	t.Helper()
	opt, err := database.RedisOptions("redis://" + addr)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

// newRedisFixture is newFixture with the cache and result feed on miniredis.
func newRedisFixture(t *testing.T) (*fixture, *countingExams, *miniredis.Miniredis) {
	t.Helper()
	base := newFixture(t)
	mr := miniredis.RunT(t)
	exams := &countingExams{ExamStore: base.store}
	return wireFixture(base.store, exams, base.store, base.store, newRedis(t, mr.Addr())), exams, mr
}

// blackHole accepts connections and never answers, like a hung Redis.
func blackHole(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})
	return ln.Addr().String()
}

func TestGetSpecServedFromCache(t *testing.T) {
	f, exams, mr := newRedisFixture(t)
	ctx := context.Background()

	spec := fourQuestionSpec(model.Timed{Start: windowStart, End: windowEnd, DurationMinutes: 90})
	spec.PassingPercentage = 0
	f.createExam(t, spec)

	_, err := f.exams.GetSpec(ctx, spec.ID)
	require.NoError(t, err)
	key := config.CacheKey.ExamSpecKey(spec.ID.String())
	require.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	cached, err := f.exams.GetSpec(ctx, spec.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), exams.gets.Load(), "second read should hit the cache")

	w, ok := cached.TimedWindow()
	require.True(t, ok)
	assert.True(t, w.Start.Equal(windowStart))
	assert.True(t, w.End.Equal(windowEnd))
	assert.Equal(t, 90, w.DurationMinutes)
	assert.Equal(t, 0, cached.PassingPercentage)
	assert.Equal(t, spec.Questions, cached.Questions)

	// A zero pass mark from the cache still passes a blank paper.
	assert.Equal(t, model.ResultStatusPass, Score(cached, nil).Status)
}

func TestGetSpecReloadsCorruptEntry(t *testing.T) {
	f, exams, mr := newRedisFixture(t)
	exam := f.timedExam(t)
	key := config.CacheKey.ExamSpecKey(exam.ID.String())
	require.NoError(t, mr.Set(key, "{not json"))

	got, err := f.exams.GetSpec(context.Background(), exam.ID)
	require.NoError(t, err)
	assert.Equal(t, exam.Title, got.Title)
	assert.Equal(t, int32(1), exams.gets.Load())

	raw, err := mr.Get(key)
	require.NoError(t, err)
	var c cachedExam
	require.NoError(t, json.Unmarshal([]byte(raw), &c))
	assert.Equal(t, exam.ID, c.ID)
}

func TestPrewarmCache(t *testing.T) {
	f, exams, mr := newRedisFixture(t)
	timed := f.timedExam(t)
	practice := f.practiceExam(t)

	require.NoError(t, f.exams.PrewarmCache(context.Background()))
	assert.True(t, mr.Exists(config.CacheKey.ExamSpecKey(timed.ID.String())))
	assert.True(t, mr.Exists(config.CacheKey.ExamSpecKey(practice.ID.String())))

	got, err := f.exams.GetSpec(context.Background(), practice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExamTypePractice, got.Type())
	assert.Zero(t, exams.gets.Load())
}

func TestSubmitPublishesResultEvent(t *testing.T) {
	f, _, _ := newRedisFixture(t)
	ctx := context.Background()
	exam := f.timedExam(t)

	pubsub, err := f.feed.Subscribe(ctx, exam.ID)
	require.NoError(t, err)
	defer pubsub.Close()

	res, err := f.submissions.Submit(ctx, attempt(5, exam.ID, live, intp(0), intp(1), intp(0), intp(2)))
	require.NoError(t, err)

	select {
	case msg := <-pubsub.Channel():
		var ev model.ResultEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.Equal(t, res.ID, ev.ResultID)
		assert.Equal(t, exam.ID, ev.ExamID)
		assert.Equal(t, 5, ev.StudentID)
		assert.Equal(t, res.Percentage, ev.Percentage)
		assert.Equal(t, res.Status, ev.Status)
		assert.True(t, ev.SubmittedAt.Equal(live))
	case <-time.After(5 * time.Second):
		t.Fatal("no result event published")
	}

	// Rejected and practice attempts publish nothing.
	_, err = f.submissions.Submit(ctx, attempt(5, exam.ID, live))
	require.ErrorIs(t, err, ErrAlreadySubmitted)
	practice := f.practiceExam(t)
	_, err = f.submissions.Submit(ctx, attempt(5, practice.ID, live))
	require.NoError(t, err)

	select {
	case msg := <-pubsub.Channel():
		t.Fatalf("unexpected event: %s", msg.Payload)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSubscribeDisabledWithoutRedis(t *testing.T) {
	f := newFixture(t)
	_, err := f.feed.Subscribe(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrFeedDisabled)
	assert.False(t, f.feed.Enabled())
}

func TestHungRedisDoesNotStallSubmit(t *testing.T) {
	base := newFixture(t)
	exam := base.timedExam(t)
	exams := &countingExams{ExamStore: base.store}
	f := wireFixture(base.store, exams, base.store, base.store, newRedis(t, blackHole(t)))

	start := time.Now()
	res, err := f.submissions.Submit(context.Background(), attempt(6, exam.ID, live))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, 2*time.Second)

	stored, err := base.store.GetByStudentAndExam(context.Background(), 6, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, stored.ID)
	assert.Equal(t, int32(1), exams.gets.Load())
}

func TestGetSpecSkipsWriteBackAfterFailedRead(t *testing.T) {
	base := newFixture(t)
	exam := base.timedExam(t)
	f := wireFixture(base.store, base.store, base.store, base.store, newRedis(t, blackHole(t)))

	// One bounded read and no write-back; without the skip this would wait
	// out a second cacheTimeout on the Set.
	start := time.Now()
	_, err := f.exams.GetSpec(context.Background(), exam.ID)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*cacheTimeout)
}
