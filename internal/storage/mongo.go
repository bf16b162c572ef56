package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"canvas/internal/domain"
	"canvas/internal/replica"
)

// MongoStore keeps snapshots in a documents collection and the log in ops.
type MongoStore struct {
	client *mongo.Client
	docs   *mongo.Collection
	ops    *mongo.Collection
}

type snapshotDoc struct {
	ID        string         `bson:"_id"`
	Seq       int64          `bson:"seq"`
	Shapes    []domain.Shape `bson:"shapes"`
	UpdatedAt time.Time      `bson:"updatedAt"`
}

type opDoc struct {
	DocID string      `bson:"docId"`
	Seq   int64       `bson:"seq"`
	Txn   replica.Txn `bson:"txn"`
}

// NewMongoStore connects to uri and uses database dbName.
func NewMongoStore(ctx context.Context, uri, dbName string, logger *log.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(dbName)
	s := &MongoStore{client: client, docs: db.Collection("documents"), ops: db.Collection("ops")}

	_, err = s.ops.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "docId", Value: 1}, {Key: "seq", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("create ops index: %w", err)
	}
	if logger != nil {
		logger.Debug("mongo store ready", "database", dbName)
	}
	return s, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Load returns the latest snapshot of docID and every op sequenced after it.
func (s *MongoStore) Load(ctx context.Context, docID string) (replica.Snapshot, []replica.Sequenced, error) {
	var snap replica.Snapshot
	var sd snapshotDoc
	err := s.docs.FindOne(ctx, bson.D{{Key: "_id", Value: docID}}).Decode(&sd)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
	case err != nil:
		return replica.Snapshot{}, nil, fmt.Errorf("find snapshot: %w", err)
	default:
		snap = replica.Snapshot{Seq: uint64(sd.Seq), Shapes: sd.Shapes}
	}

	cursor, err := s.ops.Find(ctx,
		bson.D{{Key: "docId", Value: docID}, {Key: "seq", Value: bson.D{{Key: "$gt", Value: int64(snap.Seq)}}}},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}),
	)
	if err != nil {
		return replica.Snapshot{}, nil, fmt.Errorf("find ops: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []replica.Sequenced
	for cursor.Next(ctx) {
		var od opDoc
		if err := cursor.Decode(&od); err != nil {
			return replica.Snapshot{}, nil, fmt.Errorf("decode op: %w", err)
		}
		entries = append(entries, replica.Sequenced{Seq: uint64(od.Seq), Txn: od.Txn})
	}
	return snap, entries, cursor.Err()
}

// Append writes one sequenced transaction.
func (s *MongoStore) Append(ctx context.Context, docID string, seq replica.Sequenced) error {
	_, err := s.ops.InsertOne(ctx, opDoc{DocID: docID, Seq: int64(seq.Seq), Txn: seq.Txn})
	if err != nil {
		return fmt.Errorf("insert op: %w", err)
	}
	return nil
}

// Compact replaces the snapshot and drops the ops it already contains.
func (s *MongoStore) Compact(ctx context.Context, docID string, snap replica.Snapshot) error {
	shapes := snap.Shapes
	if shapes == nil {
		shapes = []domain.Shape{}
	}
	_, err := s.docs.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: docID}},
		snapshotDoc{ID: docID, Seq: int64(snap.Seq), Shapes: shapes, UpdatedAt: time.Now().UTC()},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	_, err = s.ops.DeleteMany(ctx, bson.D{
		{Key: "docId", Value: docID},
		{Key: "seq", Value: bson.D{{Key: "$lte", Value: int64(snap.Seq)}}},
	})
	if err != nil {
		return fmt.Errorf("trim ops: %w", err)
	}
	return nil
}
