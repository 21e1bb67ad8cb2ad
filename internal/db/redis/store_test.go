package redis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/cmsdex/internal/db"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error")
	}
}

// --- hash.go tests ---

func execOK() rueidis.RedisResult {
	return mock.Result(mock.RedisArray(mock.RedisInt64(1), mock.RedisInt64(1)))
}

func queued() rueidis.RedisResult { return mock.Result(mock.RedisString("QUEUED")) }

func TestHSetMulti_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(),
			mock.Match("MULTI"), mock.Match("DEL", "k1"), mock.Match("HSET", "k1", "f1", "v1"), mock.Match("EXEC"),
			mock.Match("MULTI"), mock.Match("DEL", "k2"), mock.Match("HSET", "k2", "f2", "v2"), mock.Match("EXEC"),
		).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")), queued(), queued(), execOK(),
			mock.Result(mock.RedisString("OK")), queued(), queued(), execOK(),
		})

	s := NewStoreForTest(c)
	err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"f1": "v1"}},
		{Key: "k2", Fields: map[string]string{"f2": "v2"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSetMulti_ErrorNamesKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(),
			gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
			gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
		).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")), queued(), queued(), execOK(),
			mock.Result(mock.RedisString("OK")), queued(),
			mock.Result(mock.RedisError("OOM command not allowed")),
			mock.Result(mock.RedisError("EXECABORT Transaction discarded")),
		})

	s := NewStoreForTest(c)
	err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"f1": "v1"}},
		{Key: "k2", Fields: map[string]string{"f2": "v2"}},
	})
	if err == nil || !strings.Contains(err.Error(), "k2") {
		t.Fatalf("expected error naming k2, got %v", err)
	}
}

func TestHSetMulti_ExecReplyErrorSurfaces(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")), queued(), queued(),
			mock.Result(mock.RedisArray(
				mock.RedisInt64(1),
				mock.RedisError("WRONGTYPE Operation against a key holding the wrong kind of value"),
			)),
		})

	s := NewStoreForTest(c)
	err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"f1": "v1"}},
	})
	if err == nil || !strings.Contains(err.Error(), "WRONGTYPE") || !strings.Contains(err.Error(), "k1") {
		t.Fatalf("expected WRONGTYPE error naming k1, got %v", err)
	}
}

func TestHSetMulti_Empty(t *testing.T) {
	s := NewStoreForTest(nil)
	if err := s.HSetMulti(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- index.go tests ---

func TestCreateIndex_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match(
			"FT.CREATE", "cms:idx", "ON", "HASH", "PREFIX", "1", "cms:record:",
			"SCHEMA", "title", "TEXT", "WEIGHT", "2", "day", "TAG", "SORTABLE",
		)).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	idx := db.NewIndex("cms:idx").
		Prefix("cms:record:").
		TextWeighted("title", 2).
		Tag("day").Sortable().
		MustBuild()
	if err := s.CreateIndex(context.Background(), idx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreForTest(c)
	idx := &db.IndexDefinition{
		Name:   "test:idx",
		Fields: []db.IndexField{{Name: "f", Type: db.IndexFieldTag}},
	}
	err := s.CreateIndex(context.Background(), idx)
	if !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
}

func TestIndexExists(t *testing.T) {
	tests := []struct {
		name   string
		result rueidis.RedisResult
		want   bool
	}{
		{"present", mock.Result(mock.RedisArray(mock.RedisString("index_name"), mock.RedisString("idx"))), true},
		{"absent", mock.Result(mock.RedisError("Unknown Index name")), false},
		{"absent redis 8", mock.Result(mock.RedisError("idx: no such index")), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			c := mock.NewClient(ctrl)
			c.EXPECT().Do(gomock.Any(), mock.Match("FT.INFO", "idx")).Return(tc.result)

			got, err := NewStoreForTest(c).IndexExists(context.Background(), "idx")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestBuildFieldArgs_Errors(t *testing.T) {
	if _, err := buildFieldArgs(&db.IndexField{}); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := buildFieldArgs(&db.IndexField{Name: "x", Type: db.IndexFieldType(99)}); err == nil {
		t.Error("expected error for unknown type")
	}
	if _, err := buildCreateArgs(&db.IndexDefinition{Name: "x"}); err == nil {
		t.Error("expected error for no fields")
	}
}

// --- search.go tests ---

func TestSearchText_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match(
			"FT.SEARCH", "cms:idx", "flood", "SORTBY", "day", "ASC",
			"LIMIT", "0", "50", "DIALECT", "2",
		)).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("cms:record:1"),
			mock.RedisArray(mock.RedisString("title"), mock.RedisString("Flood in town")),
			mock.RedisString("cms:record:2"),
			mock.RedisArray(mock.RedisString("title"), mock.RedisString("Flood relief")),
		)))

	s := NewStoreForTest(c)
	res, err := s.SearchText(context.Background(), &db.TextQuery{
		IndexName: "cms:idx",
		Query:     "flood",
		Limit:     50,
		SortBy:    "day",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 2 || len(res.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", res)
	}
	if res.Entries[1].Key != "cms:record:2" || res.Entries[1].Fields["title"] != "Flood relief" {
		t.Errorf("unexpected entry %+v", res.Entries[1])
	}
}

func TestSearchText_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c)
	res, err := s.SearchText(context.Background(), &db.TextQuery{IndexName: "idx", Query: "nothing", Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 0 || len(res.Entries) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestSearchText_MalformedReply(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("cms:record:1"),
			mock.RedisString("not-an-array"),
		)))

	s := NewStoreForTest(c)
	if _, err := s.SearchText(context.Background(), &db.TextQuery{IndexName: "idx", Query: "x", Limit: 10}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSearchText_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.Result(mock.RedisError("Syntax error at offset 3")))

	s := NewStoreForTest(c)
	_, err := s.SearchText(context.Background(), &db.TextQuery{IndexName: "idx", Query: "x", Limit: 10})
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpSearch {
		t.Fatalf("expected *db.Error with op FT.SEARCH, got %v", err)
	}
}

func TestSearchText_Validation(t *testing.T) {
	s := &Store{}
	ctx := context.Background()

	cases := []*db.TextQuery{
		{Query: "x", Limit: 1},
		{IndexName: "idx", Query: "  ", Limit: 1},
		{IndexName: "idx", Query: "x"},
		{IndexName: "idx", Query: "x", Limit: 1, Offset: -1},
	}
	for i, q := range cases {
		if _, err := s.SearchText(ctx, q); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestBuildTextQuery(t *testing.T) {
	tests := []struct {
		query  string
		fields []string
		want   string
	}{
		{"flood", nil, "flood"},
		{" flood warning ", nil, "flood warning"},
		{"e-mail", nil, `e\-mail`},
		{"a@b.com", nil, `a\@b\.com`},
		{"storm", []string{"title", "body"}, "@title|body:(storm)"},
	}
	for _, tc := range tests {
		if got := buildTextQuery(tc.query, tc.fields); got != tc.want {
			t.Errorf("buildTextQuery(%q, %v) = %q, want %q", tc.query, tc.fields, got, tc.want)
		}
	}
}

// --- queue.go tests ---

func TestPush_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("RPUSH", "cms:tasks", "a", "b")).
		Return(mock.Result(mock.RedisInt64(2)))

	s := NewStoreForTest(c)
	n, err := s.Push(context.Background(), "cms:tasks", []byte("a"), []byte("b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected length 2, got %d", n)
	}
}

func TestPush_NoPayloads(t *testing.T) {
	if _, err := NewStoreForTest(nil).Push(context.Background(), "q"); err == nil {
		t.Fatal("expected error")
	}
}

func TestPush_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.ErrorResult(errors.New("connection reset")))

	s := NewStoreForTest(c)
	_, err := s.Push(context.Background(), "q", []byte("a"))
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpRPush {
		t.Fatalf("expected *db.Error with op RPUSH, got %v", err)
	}
}

func TestPop_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("BLPOP", "q", "2")).
		Return(mock.Result(mock.RedisArray(mock.RedisString("q"), mock.RedisString(`{"day":"2020-01-01"}`))))

	s := NewStoreForTest(c)
	b, err := s.Pop(context.Background(), "q", 2*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != `{"day":"2020-01-01"}` {
		t.Errorf("unexpected payload %s", b)
	}
}

func TestPop_Timeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	if _, err := s.Pop(context.Background(), "q", time.Second); !errors.Is(err, db.ErrQueueEmpty) {
		t.Fatalf("expected ErrQueueEmpty, got %v", err)
	}
}

func TestLen(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("LLEN", "q")).
		Return(mock.Result(mock.RedisInt64(7)))

	n, err := NewStoreForTest(c).Len(context.Background(), "q")
	if err != nil || n != 7 {
		t.Fatalf("expected 7, got %d (%v)", n, err)
	}
}
