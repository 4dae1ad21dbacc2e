package nskv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.miragespace.co/nskv/backing"

	"go.uber.org/zap"
)

// Ref addresses a single entry. An empty Namespace means DefaultNamespace.
type Ref struct {
	Namespace string
	Key       string
}

func (r Ref) namespace() string {
	if r.Namespace == "" {
		return DefaultNamespace
	}
	return r.Namespace
}

// Store maps each namespace to its own table on a single relational handle.
// Tables are created on the first Set into a namespace and removed only by
// Destroy. No method returns a bare error or panics on a backend failure;
// the outcome is always reported through Result.
type Store struct {
	logger  *zap.Logger
	db      *sql.DB
	dialect backing.Dialect
	closer  func() error
}

func NewStore(logger *zap.Logger, b *backing.Backing) (*Store, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	if b == nil || b.DB == nil || b.Dialect == nil {
		return nil, fmt.Errorf("backing cannot be nil")
	}

	return &Store{
		logger:  logger.With(zap.String("component", "namespaceStore")),
		db:      b.DB,
		dialect: b.Dialect,
		closer:  b.Close,
	}, nil
}

// OpenStore opens the backing registered for uri and wraps it in a Store.
func OpenStore(logger *zap.Logger, uri string) (*Store, error) {
	b, err := backing.Open(uri)
	if err != nil {
		return nil, fmt.Errorf("error opening backing %q: %w", uri, err)
	}

	s, err := NewStore(logger, b)
	if err != nil {
		b.Close()
		return nil, err
	}
	return s, nil
}

// Set creates the namespace's table if needed and upserts the entry.
func (s *Store) Set(ctx context.Context, ref Ref, value []byte) Result {
	ns := ref.namespace()
	if err := s.validate("set", ns, ref.Key); err != nil {
		return failed(err)
	}

	table := tableName(ns)
	if _, err := s.db.ExecContext(ctx, s.dialect.CreateTable(table)); err != nil {
		return s.backendFailure("set", ns, err)
	}

	if value == nil {
		value = []byte{}
	}

	res, err := s.db.ExecContext(ctx, s.dialect.Upsert(table), ref.Key, value)
	if err != nil {
		return s.backendFailure("set", ns, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return s.backendFailure("set", ns, err)
	}
	if n < 1 {
		return s.backendFailure("set", ns, fmt.Errorf("upsert affected no rows"))
	}

	return succeeded()
}

// Get returns the stored value. A missing namespace or key is reported with
// ErrNamespaceNotFound or ErrKeyNotFound and is not logged.
func (s *Store) Get(ctx context.Context, ref Ref) Result {
	ns := ref.namespace()
	if err := s.validate("get", ns, ref.Key); err != nil {
		return failed(err)
	}

	table := tableName(ns)
	exists, err := s.exists(ctx, table)
	if err != nil {
		return s.backendFailure("get", ns, err)
	}
	if !exists {
		return failed(ErrNamespaceNotFound)
	}

	var val []byte
	err = s.db.QueryRowContext(ctx, s.dialect.Select(table), ref.Key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return failed(ErrKeyNotFound)
	}
	if err != nil {
		return s.backendFailure("get", ns, err)
	}

	if val == nil {
		val = []byte{}
	}
	return found(val)
}

// Del removes a single entry. OK is true only if exactly one row went away.
func (s *Store) Del(ctx context.Context, ref Ref) Result {
	ns := ref.namespace()
	if err := s.validate("del", ns, ref.Key); err != nil {
		return failed(err)
	}

	table := tableName(ns)
	exists, err := s.exists(ctx, table)
	if err != nil {
		return s.backendFailure("del", ns, err)
	}
	if !exists {
		return failed(ErrNamespaceNotFound)
	}

	res, err := s.db.ExecContext(ctx, s.dialect.Delete(table), ref.Key)
	if err != nil {
		return s.backendFailure("del", ns, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return s.backendFailure("del", ns, err)
	}
	if n != 1 {
		return failed(ErrKeyNotFound)
	}

	return succeeded()
}

// Destroy drops the namespace's table and every entry in it.
func (s *Store) Destroy(ctx context.Context, namespace string) Result {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if !ValidNamespace(namespace) {
		s.logger.Debug("Rejected namespace", zap.String("op", "destroy"), zap.String("namespace", namespace))
		return failed(ErrInvalidNamespace)
	}

	table := tableName(namespace)
	exists, err := s.exists(ctx, table)
	if err != nil {
		return s.backendFailure("destroy", namespace, err)
	}
	if !exists {
		return failed(ErrNamespaceNotFound)
	}

	if _, err := s.db.ExecContext(ctx, s.dialect.DropTable(table)); err != nil {
		return s.backendFailure("destroy", namespace, err)
	}

	s.logger.Info("Namespace destroyed", zap.String("namespace", namespace))
	return succeeded()
}

// Ping checks that the backing handle is still usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.closer()
}

func (s *Store) validate(op, ns, key string) error {
	if !ValidNamespace(ns) {
		s.logger.Debug("Rejected namespace", zap.String("op", op), zap.String("namespace", ns))
		return ErrInvalidNamespace
	}
	if key == "" {
		s.logger.Debug("Rejected empty key", zap.String("op", op), zap.String("namespace", ns))
		return ErrInvalidKey
	}
	return nil
}

func (s *Store) exists(ctx context.Context, table string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.dialect.TableExists(), table).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) backendFailure(op, ns string, err error) Result {
	s.logger.Error("Backend operation failed",
		zap.String("op", op),
		zap.String("namespace", ns),
		zap.Error(err),
	)
	return failed(backendError(err))
}
