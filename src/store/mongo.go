package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultMongoCollection เก็บ key-value ทั้งหมดไว้ใน collection เดียว
const DefaultMongoCollection = "kvstore"

type kvDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	Origin    string    `bson:"origin"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoStore stores one document per key. Change notification uses a change
// stream, so the deployment must be a replica set.
type MongoStore struct {
	coll   *mongo.Collection
	origin string
	log    logrus.FieldLogger
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore สร้าง context ใหม่บน collection ที่กำหนด
func NewMongoStore(coll *mongo.Collection, log logrus.FieldLogger) *MongoStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MongoStore{coll: coll, origin: uuid.NewString(), log: log}
}

func (m *MongoStore) Origin() string { return m.origin }

func (m *MongoStore) Get(ctx context.Context, key string) (string, bool, error) {
	var doc kvDocument
	err := m.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, "mongo get %s", key)
	}
	return doc.Value, true, nil
}

func (m *MongoStore) Set(ctx context.Context, key, value string) error {
	update := bson.M{"$set": bson.M{
		"value":     value,
		"origin":    m.origin,
		"updatedAt": time.Now().UTC(),
	}}
	_, err := m.coll.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	if err != nil {
		return errors.Wrapf(err, "mongo set %s", key)
	}
	return nil
}

// Delete removes the key. Delete events carry no document, so every watcher
// (including this context) is notified.
func (m *MongoStore) Delete(ctx context.Context, key string) error {
	if _, err := m.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return errors.Wrapf(err, "mongo delete %s", key)
	}
	return nil
}

type changeStreamEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument      *kvDocument `bson:"fullDocument"`
	UpdateDescription *struct {
		UpdatedFields bson.M `bson:"updatedFields"`
	} `bson:"updateDescription"`
}

// origin extracts who wrote the change, or "" when unknown (deletes).
func (ev changeStreamEvent) origin() string {
	if ev.FullDocument != nil {
		return ev.FullDocument.Origin
	}
	if ev.UpdateDescription != nil {
		if o, ok := ev.UpdateDescription.UpdatedFields["origin"].(string); ok {
			return o
		}
	}
	return ""
}

type mongoSub struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *mongoSub) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}

func (m *MongoStore) OnChange(ctx context.Context, keys []string, fn ChangeFunc) (Subscription, error) {
	pipeline := []bson.M{
		{"$match": bson.M{"documentKey._id": bson.M{"$in": keys}}},
	}
	watchCtx, cancel := context.WithCancel(ctx)
	// updateLookup so updates that leave origin unchanged still carry it
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	cs, err := m.coll.Watch(watchCtx, pipeline, opts)
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "mongo watch")
	}

	sub := &mongoSub{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		defer cs.Close(context.Background())

		for cs.Next(watchCtx) {
			var ev changeStreamEvent
			if err := cs.Decode(&ev); err != nil {
				m.log.WithError(err).Warn("⚠️ ignoring undecodable change event")
				continue
			}
			origin := ev.origin()
			if origin == m.origin {
				continue
			}
			fn(ChangeEvent{
				Key:     ev.DocumentKey.ID,
				Origin:  origin,
				Deleted: ev.OperationType == "delete",
			})
		}
		if err := cs.Err(); err != nil && watchCtx.Err() == nil {
			m.log.WithError(err).Error("❌ change stream stopped")
		}
	}()
	return sub, nil
}
