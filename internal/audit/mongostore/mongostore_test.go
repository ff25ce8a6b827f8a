package mongostore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/skillgate/skillgate/internal/model"
)

type fakeCollection struct {
	inserted []any
}

func (f *fakeCollection) InsertOne(_ context.Context, doc any, _ ...options.Lister[options.InsertOneOptions]) (*mongodriver.InsertOneResult, error) {
	f.inserted = append(f.inserted, doc)
	return &mongodriver.InsertOneResult{}, nil
}

func (f *fakeCollection) Find(context.Context, any, ...options.Lister[options.FindOptions]) (*mongodriver.Cursor, error) {
	return nil, nil
}

func (f *fakeCollection) Indexes() mongodriver.IndexView { return mongodriver.IndexView{} }

func TestAppendStampsRecordedAt(t *testing.T) {
	fc := &fakeCollection{}
	store := &Store{coll: fc, timeout: time.Second}

	err := store.Append(context.Background(), model.AuditRecord{
		SessionID: "sess-1",
		Kind:      "activation",
	})
	require.NoError(t, err)
	require.Len(t, fc.inserted, 1)

	rec := fc.inserted[0].(model.AuditRecord)
	assert.Equal(t, "sess-1", rec.SessionID)
	assert.False(t, rec.RecordedAt.IsZero())
}

func TestAppendRequiresSessionID(t *testing.T) {
	fc := &fakeCollection{}
	store := &Store{coll: fc, timeout: time.Second}
	err := store.Append(context.Background(), model.AuditRecord{Kind: "activation"})
	assert.Error(t, err)
}
