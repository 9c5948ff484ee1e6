package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kataras/golog"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/tcsec/vulncases/schema"
)

const (
	DefaultURI        = "mongodb://localhost:27017"
	DefaultDBName     = "tcs_vuln_db"
	DefaultCollection = "vuln_testcases"

	connectTimeout = 5 * time.Second
	uniqueIndex    = "uniq_vuln_id"
)

// ConflictError is a duplicate-key failure or a partially failed unordered
// bulk write. It is reported distinctly from generic write failures so the
// API can answer 409 instead of 500.
type ConflictError struct {
	Message string
	Details []string
}

func (e *ConflictError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Details, "; "))
}

// Mongo is the document-store handle. The underlying connection is created
// lazily on first use and reused for the life of the process; a failed
// connect leaves the handle unset so the next call retries.
type Mongo struct {
	uri    string
	dbName string
	coll   string
	log    *golog.Logger

	mu     sync.Mutex
	client *mongo.Client
}

func NewMongo(uri, dbName, coll string) *Mongo {
	if uri == "" {
		uri = DefaultURI
	}
	if dbName == "" {
		dbName = DefaultDBName
	}
	if coll == "" {
		coll = DefaultCollection
	}
	return &Mongo{
		uri:    uri,
		dbName: dbName,
		coll:   coll,
		log:    golog.Child("[store]"),
	}
}

func (m *Mongo) collection(ctx context.Context) (*mongo.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		client, err := mongo.Connect(options.Client().
			ApplyURI(m.uri).
			SetServerSelectionTimeout(connectTimeout))
		if err != nil {
			return nil, errors.Wrap(err, "connect to mongodb")
		}
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, errors.Wrap(err, "ping mongodb")
		}
		m.log.Infof("connected to %s/%s", m.dbName, m.coll)
		m.client = client
	}
	return m.client.Database(m.dbName).Collection(m.coll), nil
}

// FindByPlatform lists records, optionally filtered by canonical platform.
// An empty platform returns everything.
func (m *Mongo) FindByPlatform(ctx context.Context, platform string) ([]schema.TestCase, error) {
	coll, err := m.collection(ctx)
	if err != nil {
		return nil, err
	}
	filter := bson.M{}
	if platform != "" {
		filter["platform"] = platform
	}
	cursor, err := coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 0}))
	if err != nil {
		return nil, errors.Wrap(err, "find test cases")
	}
	records := make([]schema.TestCase, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, errors.Wrap(err, "decode test cases")
	}
	return records, nil
}

func (m *Mongo) InsertOne(ctx context.Context, tc *schema.TestCase) error {
	coll, err := m.collection(ctx)
	if err != nil {
		return err
	}
	if _, err := coll.InsertOne(ctx, tc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &ConflictError{Message: fmt.Sprintf("duplicate vuln_id %s", tc.VulnID)}
		}
		return errors.Wrap(err, "insert test case")
	}
	return nil
}

// InsertMany writes records unordered, so one item's failure does not block
// its siblings. The returned count is how many documents actually landed;
// on a partial failure it comes back together with a ConflictError carrying
// the per-item detail.
func (m *Mongo) InsertMany(ctx context.Context, tcs []*schema.TestCase) (int, error) {
	coll, err := m.collection(ctx)
	if err != nil {
		return 0, err
	}
	docs := make([]any, 0, len(tcs))
	for _, tc := range tcs {
		docs = append(docs, tc)
	}
	res, err := coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	inserted := 0
	if res != nil {
		inserted = len(res.InsertedIDs)
	}
	if err != nil {
		var bulkErr mongo.BulkWriteException
		if errors.As(err, &bulkErr) {
			details := make([]string, 0, len(bulkErr.WriteErrors))
			for _, we := range bulkErr.WriteErrors {
				details = append(details, we.Message)
			}
			return inserted, &ConflictError{Message: "bulk write error", Details: details}
		}
		if mongo.IsDuplicateKeyError(err) {
			return inserted, &ConflictError{Message: "duplicate vuln_id detected"}
		}
		return inserted, errors.Wrap(err, "insert test cases")
	}
	return inserted, nil
}

// UpdateOne applies a partial field-set to the record with the given id and
// reports whether a record matched.
func (m *Mongo) UpdateOne(ctx context.Context, vulnID string, fields map[string]any) (bool, error) {
	coll, err := m.collection(ctx)
	if err != nil {
		return false, err
	}
	res, err := coll.UpdateOne(ctx, bson.M{"vuln_id": vulnID}, bson.M{"$set": fields})
	if err != nil {
		return false, errors.Wrapf(err, "update test case %s", vulnID)
	}
	return res.MatchedCount > 0, nil
}

// DeleteMany removes every record whose vuln_id is in the given set and
// returns how many were deleted. Unknown ids are not an error.
func (m *Mongo) DeleteMany(ctx context.Context, vulnIDs []string) (int64, error) {
	coll, err := m.collection(ctx)
	if err != nil {
		return 0, err
	}
	res, err := coll.DeleteMany(ctx, bson.M{"vuln_id": bson.M{"$in": vulnIDs}})
	if err != nil {
		return 0, errors.Wrap(err, "delete test cases")
	}
	return res.DeletedCount, nil
}

// Ping checks storage liveness, connecting first if needed.
func (m *Mongo) Ping(ctx context.Context) error {
	if _, err := m.collection(ctx); err != nil {
		return err
	}
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()
	return client.Ping(pingCtx, readpref.Primary())
}

// EnsureIndex creates the unique index on vuln_id. Identifier collisions
// surface as duplicate-key errors only because of this index.
func (m *Mongo) EnsureIndex(ctx context.Context) error {
	coll, err := m.collection(ctx)
	if err != nil {
		return err
	}
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "vuln_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName(uniqueIndex),
	}
	if _, err := coll.Indexes().CreateOne(ctx, model); err != nil {
		return errors.Wrap(err, "create unique index")
	}
	m.log.Infof("unique index ensured on vuln_id")
	return nil
}

func (m *Mongo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	err := m.client.Disconnect(ctx)
	m.client = nil
	return err
}
