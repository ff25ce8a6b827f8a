// Package mongostore implements the append-only audit trail backend
// (spec.md §4.D expansion): each AuditRecord passed to Append is inserted as
// an immutable document, adapting the
// corpus's Mongo session client (interface-narrowed collection wrapper,
// ensureIndexes-on-construct) from mutable session documents to an
// insert-only log.
package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/skillgate/skillgate/internal/model"
)

const (
	defaultCollection = "skillgate_audit"
	defaultOpTimeout  = 5 * time.Second
)

// collection narrows *mongo.Collection to the three operations the audit trail
// needs, mirroring the corpus's session-client interface-narrowing pattern so
// tests can substitute a fake without a live Mongo instance.
type collection interface {
	InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongodriver.InsertOneResult, error)
	Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (*mongodriver.Cursor, error)
	Indexes() mongodriver.IndexView
}

// Store appends AuditRecords to a Mongo collection and lists them by session.
type Store struct {
	coll    collection
	timeout time.Duration
}

// Options configures the audit store.
type Options struct {
	Client     *mongodriver.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

// New returns a Store backed by opts.Client, ensuring the session_id index exists.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	collName := opts.Collection
	if collName == "" {
		collName = defaultCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	coll := opts.Client.Database(opts.Database).Collection(collName)
	idxCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	index := mongodriver.IndexModel{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "recorded_at", Value: 1}}}
	if _, err := coll.Indexes().CreateOne(idxCtx, index); err != nil {
		return nil, err
	}
	return &Store{coll: coll, timeout: timeout}, nil
}

// Append inserts rec. Audit records are immutable: there is no update path.
func (s *Store) Append(ctx context.Context, rec model.AuditRecord) error {
	if rec.SessionID == "" {
		return errors.New("session id is required")
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.coll.InsertOne(ctx, rec)
	return err
}

// ListBySession returns every audit record for sessionID, oldest first.
func (s *Store) ListBySession(ctx context.Context, sessionID string) ([]model.AuditRecord, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cur, err := s.coll.Find(ctx, bson.M{"session_id": sessionID},
		options.Find().SetSort(bson.D{{Key: "recorded_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []model.AuditRecord
	for cur.Next(ctx) {
		var rec model.AuditRecord
		if err := cur.Decode(&rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, cur.Err()
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
