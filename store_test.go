package nskv

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"go.miragespace.co/nskv/backing"
	"go.miragespace.co/nskv/backing/sqlite"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type countingDialect struct {
	backing.Dialect
	calls atomic.Int32
}

func (c *countingDialect) CreateTable(table string) string {
	c.calls.Add(1)
	return c.Dialect.CreateTable(table)
}

func (c *countingDialect) Upsert(table string) string {
	c.calls.Add(1)
	return c.Dialect.Upsert(table)
}

func (c *countingDialect) Select(table string) string {
	c.calls.Add(1)
	return c.Dialect.Select(table)
}

func (c *countingDialect) Delete(table string) string {
	c.calls.Add(1)
	return c.Dialect.Delete(table)
}

func (c *countingDialect) DropTable(table string) string {
	c.calls.Add(1)
	return c.Dialect.DropTable(table)
}

func (c *countingDialect) TableExists() string {
	c.calls.Add(1)
	return c.Dialect.TableExists()
}

func newTestStore(t *testing.T, logger *zap.Logger) (*Store, *countingDialect) {
	t.Helper()

	b, err := sqlite.NewSQLiteBacking("memory")
	require.NoError(t, err)

	d := &countingDialect{Dialect: b.Dialect}
	b.Dialect = d

	s, err := NewStore(logger, b)
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
	})

	return s, d
}

func TestNewStoreRequiresArguments(t *testing.T) {
	as := require.New(t)

	_, err := NewStore(nil, &backing.Backing{})
	as.Error(err)

	_, err = NewStore(zaptest.NewLogger(t), nil)
	as.Error(err)
}

func TestOpenStoreUnknownBacking(t *testing.T) {
	as := require.New(t)

	_, err := OpenStore(zaptest.NewLogger(t), "redis://localhost")
	as.ErrorIs(err, backing.ErrBackingNotFound)
}

func TestSetThenGet(t *testing.T) {
	as := require.New(t)
	ctx := context.Background()
	s, _ := newTestStore(t, zaptest.NewLogger(t))

	for i, ns := range []string{"a", "Z9", "with_underscore", "sqlite_master", "___"} {
		ref := Ref{Namespace: ns, Key: fmt.Sprintf("key-%d", i)}
		val := []byte(fmt.Sprintf(`{"n":%d}`, i))

		res := s.Set(ctx, ref, val)
		as.True(res.OK, ns)
		as.NoError(res.Err, ns)

		res = s.Get(ctx, ref)
		as.True(res.OK, ns)
		as.Equal(val, res.Value, ns)
	}
}

func TestGetBeforeSet(t *testing.T) {
	as := require.New(t)
	ctx := context.Background()
	s, _ := newTestStore(t, zaptest.NewLogger(t))

	res := s.Get(ctx, Ref{Namespace: "empty", Key: "k"})
	as.False(res.OK)
	as.Nil(res.Value)
	as.ErrorIs(res.Err, ErrNamespaceNotFound)
	as.True(res.NotFound())

	as.True(s.Set(ctx, Ref{Namespace: "empty", Key: "other"}, []byte("v")).OK)

	res = s.Get(ctx, Ref{Namespace: "empty", Key: "k"})
	as.False(res.OK)
	as.ErrorIs(res.Err, ErrKeyNotFound)
	as.True(res.NotFound())
}

func TestGetDoesNotCreateNamespace(t *testing.T) {
	as := require.New(t)
	ctx := context.Background()
	s, _ := newTestStore(t, zaptest.NewLogger(t))

	as.False(s.Get(ctx, Ref{Namespace: "lazy", Key: "k"}).OK)
	as.False(s.Del(ctx, Ref{Namespace: "lazy", Key: "k"}).OK)

	res := s.Destroy(ctx, "lazy")
	as.False(res.OK)
	as.ErrorIs(res.Err, ErrNamespaceNotFound)
}

func TestLastWriteWins(t *testing.T) {
	as := require.New(t)
	ctx := context.Background()
	s, _ := newTestStore(t, zaptest.NewLogger(t))

	ref := Ref{Namespace: "lww", Key: "k"}
	as.True(s.Set(ctx, ref, []byte("v1")).OK)
	as.True(s.Set(ctx, ref, []byte("v2")).OK)

	res := s.Get(ctx, ref)
	as.True(res.OK)
	as.Equal("v2", string(res.Value))
}

func TestEmptyValue(t *testing.T) {
	as := require.New(t)
	ctx := context.Background()
	s, _ := newTestStore(t, zaptest.NewLogger(t))

	ref := Ref{Namespace: "blank", Key: "k"}
	as.True(s.Set(ctx, ref, nil).OK)

	res := s.Get(ctx, ref)
	as.True(res.OK)
	as.NotNil(res.Value)
	as.Len(res.Value, 0)
}

func TestDelete(t *testing.T) {
	as := require.New(t)
	ctx := context.Background()
	s, _ := newTestStore(t, zaptest.NewLogger(t))

	ref := Ref{Namespace: "del", Key: "k"}
	as.True(s.Set(ctx, ref, []byte("v")).OK)

	as.True(s.Del(ctx, ref).OK)
	as.False(s.Get(ctx, ref).OK)

	res := s.Del(ctx, ref)
	as.False(res.OK)
	as.ErrorIs(res.Err, ErrKeyNotFound)

	res = s.Del(ctx, Ref{Namespace: "missing", Key: "k"})
	as.False(res.OK)
	as.ErrorIs(res.Err, ErrNamespaceNotFound)
}

func TestNamespacesAreCaseSensitive(t *testing.T) {
	as := require.New(t)
	ctx := context.Background()
	s, _ := newTestStore(t, zaptest.NewLogger(t))

	as.True(s.Set(ctx, Ref{Namespace: "Users", Key: "x"}, []byte("upper")).OK)
	as.True(s.Set(ctx, Ref{Namespace: "users", Key: "k"}, []byte("lower")).OK)

	res := s.Get(ctx, Ref{Namespace: "users", Key: "k"})
	as.True(res.OK)
	as.Equal("lower", string(res.Value))

	res = s.Get(ctx, Ref{Namespace: "Users", Key: "x"})
	as.True(res.OK)
	as.Equal("upper", string(res.Value))

	res = s.Get(ctx, Ref{Namespace: "users", Key: "x"})
	as.False(res.OK)
	as.ErrorIs(res.Err, ErrKeyNotFound)

	as.True(s.Destroy(ctx, "Users").OK)
	as.False(s.Get(ctx, Ref{Namespace: "Users", Key: "x"}).OK)

	res = s.Get(ctx, Ref{Namespace: "users", Key: "k"})
	as.True(res.OK)
	as.Equal("lower", string(res.Value))

	as.True(s.Destroy(ctx, "users").OK)
	as.False(s.Destroy(ctx, "users").OK)
}

func TestDestroy(t *testing.T) {
	as := require.New(t)
	ctx := context.Background()
	s, _ := newTestStore(t, zaptest.NewLogger(t))

	for _, k := range []string{"a", "b", "c"} {
		as.True(s.Set(ctx, Ref{Namespace: "gone", Key: k}, []byte(k)).OK)
	}
	as.True(s.Set(ctx, Ref{Namespace: "kept", Key: "a"}, []byte("a")).OK)

	as.True(s.Destroy(ctx, "gone").OK)

	for _, k := range []string{"a", "b", "c"} {
		res := s.Get(ctx, Ref{Namespace: "gone", Key: k})
		as.False(res.OK)
		as.ErrorIs(res.Err, ErrNamespaceNotFound)
	}

	res := s.Destroy(ctx, "gone")
	as.False(res.OK)

	as.True(s.Get(ctx, Ref{Namespace: "kept", Key: "a"}).OK)

	// a destroyed namespace is recreated by the next write
	as.True(s.Set(ctx, Ref{Namespace: "gone", Key: "a"}, []byte("again")).OK)
	as.Equal("again", string(s.Get(ctx, Ref{Namespace: "gone", Key: "a"}).Value))
}

func TestDefaultNamespace(t *testing.T) {
	as := require.New(t)
	ctx := context.Background()
	s, _ := newTestStore(t, zaptest.NewLogger(t))

	as.True(s.Set(ctx, Ref{Key: "bare"}, []byte("v")).OK)

	res := s.Get(ctx, Ref{Namespace: DefaultNamespace, Key: "bare"})
	as.True(res.OK)
	as.Equal("v", string(res.Value))

	as.True(s.Destroy(ctx, "").OK)
	as.False(s.Get(ctx, Ref{Key: "bare"}).OK)
}

func TestInvalidNamespaceSkipsBackend(t *testing.T) {
	as := require.New(t)
	ctx := context.Background()
	s, d := newTestStore(t, zaptest.NewLogger(t))

	for _, ns := range []string{"bad name!", "a-b", "a;DROP TABLE x", "ns\n", "ünïcode", `a"b`} {
		ref := Ref{Namespace: ns, Key: "k"}

		res := s.Set(ctx, ref, []byte("v"))
		as.False(res.OK, ns)
		as.ErrorIs(res.Err, ErrInvalidNamespace, ns)

		res = s.Get(ctx, ref)
		as.False(res.OK, ns)
		as.Nil(res.Value, ns)
		as.ErrorIs(res.Err, ErrInvalidNamespace, ns)

		res = s.Del(ctx, ref)
		as.False(res.OK, ns)
		as.ErrorIs(res.Err, ErrInvalidNamespace, ns)

		res = s.Destroy(ctx, ns)
		as.False(res.OK, ns)
		as.ErrorIs(res.Err, ErrInvalidNamespace, ns)
	}

	as.Zero(d.calls.Load())
}

func TestEmptyKeyRejected(t *testing.T) {
	as := require.New(t)
	ctx := context.Background()
	s, d := newTestStore(t, zaptest.NewLogger(t))

	ref := Ref{Namespace: "ok", Key: ""}
	as.ErrorIs(s.Set(ctx, ref, []byte("v")).Err, ErrInvalidKey)
	as.ErrorIs(s.Get(ctx, ref).Err, ErrInvalidKey)
	as.ErrorIs(s.Del(ctx, ref).Err, ErrInvalidKey)
	as.Zero(d.calls.Load())
}

func TestKeysAreBound(t *testing.T) {
	as := require.New(t)
	ctx := context.Background()
	s, _ := newTestStore(t, zaptest.NewLogger(t))

	ref := Ref{Namespace: "inject", Key: `k'); DROP TABLE "ns_inject"; --`}
	val := []byte(`'); DELETE FROM "ns_inject"; --`)

	as.True(s.Set(ctx, ref, val).OK)
	as.True(s.Set(ctx, Ref{Namespace: "inject", Key: "other"}, []byte("x")).OK)

	res := s.Get(ctx, ref)
	as.True(res.OK)
	as.Equal(val, res.Value)
	as.True(s.Get(ctx, Ref{Namespace: "inject", Key: "other"}).OK)
}

func TestBackendErrorIsLogged(t *testing.T) {
	as := require.New(t)
	ctx := context.Background()

	core, logs := observer.New(zapcore.InfoLevel)
	s, _ := newTestStore(t, zap.New(core))

	as.True(s.Set(ctx, Ref{Namespace: "n", Key: "k"}, []byte("v")).OK)

	// not found is not an error
	as.False(s.Get(ctx, Ref{Namespace: "n", Key: "nope"}).OK)
	as.Zero(logs.FilterMessage("Backend operation failed").Len())

	as.NoError(s.db.Close())

	for _, res := range []Result{
		s.Set(ctx, Ref{Namespace: "n", Key: "k"}, []byte("v")),
		s.Get(ctx, Ref{Namespace: "n", Key: "k"}),
		s.Del(ctx, Ref{Namespace: "n", Key: "k"}),
		s.Destroy(ctx, "n"),
	} {
		as.False(res.OK)
		as.ErrorIs(res.Err, ErrBackend)
		as.False(res.NotFound())
	}

	failures := logs.FilterMessage("Backend operation failed").All()
	as.Len(failures, 4)
	for _, entry := range failures {
		as.Equal(zapcore.ErrorLevel, entry.Level)
		as.Equal("namespaceStore", entry.ContextMap()["component"])
	}
}

func TestPing(t *testing.T) {
	as := require.New(t)
	s, _ := newTestStore(t, zaptest.NewLogger(t))

	as.NoError(s.Ping(context.Background()))
}
