// Package mongobackend implements registry.Backend against MongoDB,
// matching the prototype's schema: database "crossgate", collection
// "discovery", document {_id, service, lba, addr, type, time}, with a TTL
// index on time expiring after 2 seconds. Renewal is an upsert-by-_id that
// bumps time; the change stream drives cache synchronization.
package mongobackend

import (
	"context"
	"fmt"
	"time"

	"github.com/source-build/go-crossgate/registry"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	databaseName   = "crossgate"
	collectionName = "discovery"
	ttlExpireAfter = 2 * time.Second
)

func init() {
	registry.RegisterBackend(registry.TypeMongoDB, New)
}

type document struct {
	ID      string    `bson:"_id"`
	Service string    `bson:"service"`
	Lba     string    `bson:"lba"`
	Addr    string    `bson:"addr"`
	Type    int       `bson:"type"`
	Time    time.Time `bson:"time"`
}

type backend struct {
	client *mongo.Client
	logger *zap.Logger
}

// New connects to cfg.Addr (a full mongodb:// URI) and ensures the TTL
// index exists on the discovery collection.
func New(cfg registry.Config) (registry.Backend, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Addr))
	if err != nil {
		return nil, fmt.Errorf("mongobackend: connect: %w", err)
	}

	b := &backend{client: client, logger: cfg.Logger}

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "time", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(ttlExpireAfter.Seconds())),
	}
	if _, err := b.collection().Indexes().CreateOne(ctx, indexModel); err != nil {
		return nil, fmt.Errorf("mongobackend: create ttl index: %w", err)
	}

	return b, nil
}

func (b *backend) collection() *mongo.Collection {
	return b.client.Database(databaseName).Collection(collectionName)
}

func (b *backend) Register(ctx context.Context, entry registry.ServiceEntry) error {
	filter := bson.M{"_id": entry.ID}
	update := bson.M{"$set": document{
		ID:      entry.ID,
		Service: entry.Service,
		Lba:     entry.Lba,
		Addr:    entry.Addr,
		Type:    int(entry.Kind),
		Time:    time.Now(),
	}}

	_, err := b.collection().UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongobackend: upsert: %w", err)
	}

	return nil
}

func (b *backend) Unregister(ctx context.Context, id string) error {
	_, err := b.collection().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongobackend: delete: %w", err)
	}
	return nil
}

func (b *backend) List(ctx context.Context, name string) ([]registry.ServiceEntry, error) {
	opts := options.Find().SetSort(bson.M{"time": -1})
	cursor, err := b.collection().Find(ctx, bson.M{"service": name}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongobackend: find: %w", err)
	}
	defer cursor.Close(ctx)

	var out []registry.ServiceEntry
	for cursor.Next(ctx) {
		var doc document
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		out = append(out, toEntry(doc))
	}

	return out, cursor.Err()
}

func (b *backend) GetBackendService(ctx context.Context, selfID, name string) (string, []string, error) {
	entries, err := b.List(ctx, name)
	if err != nil {
		return "", nil, err
	}

	var peers []registry.ServiceEntry
	for _, e := range entries {
		if e.Kind == registry.BackendService {
			peers = append(peers, e)
		}
	}

	found := ""
	for _, e := range peers {
		if e.ID == selfID {
			found = e.ID
		}
	}

	return found, registry.SortedIDs(peers), nil
}

// Watch opens a change stream over the discovery collection. Insert,
// Update and Replace all upsert into the cache (the source folds all
// three into the same branch); Delete removes by the deleted document's
// _id. On stream termination, it reopens with backoff rather than
// propagating (§9's resolved watch-resilience question).
func (b *backend) Watch(ctx context.Context, cache *registry.CacheMap) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := b.watchOnce(ctx, cache); err != nil {
			if b.logger != nil {
				b.logger.Warn("mongobackend: change stream error, retrying", zap.Error(err))
			}
		}

		if sleepOrDone(ctx, 2*time.Second) {
			return nil
		}
	}
}

func (b *backend) watchOnce(ctx context.Context, cache *registry.CacheMap) error {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := b.collection().Watch(ctx, mongo.Pipeline{}, opts)
	if err != nil {
		return fmt.Errorf("mongobackend: watch: %w", err)
	}
	defer stream.Close(ctx)

	for stream.Next(ctx) {
		var event struct {
			OperationType string   `bson:"operationType"`
			FullDocument  document `bson:"fullDocument"`
			DocumentKey   struct {
				ID string `bson:"_id"`
			} `bson:"documentKey"`
		}
		if err := stream.Decode(&event); err != nil {
			continue
		}

		switch event.OperationType {
		case "insert", "update", "replace":
			cache.Upsert(toEntry(event.FullDocument))
		case "delete":
			if event.DocumentKey.ID != "" {
				cache.Delete(event.DocumentKey.ID)
			}
		}
	}

	return stream.Err()
}

func (b *backend) Renew(ctx context.Context, owned *registry.OwnedSet) error {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for _, entry := range owned.All() {
				uctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := b.Unregister(uctx, entry.ID); err != nil && b.logger != nil {
					b.logger.Warn("mongobackend: unregister on shutdown failed", zap.String("id", entry.ID), zap.Error(err))
				}
				cancel()
			}
			return nil
		case <-ticker.C:
			for _, entry := range owned.All() {
				if err := b.Register(ctx, entry); err != nil && b.logger != nil {
					b.logger.Warn("mongobackend: renewal failed", zap.String("id", entry.ID), zap.Error(err))
				}
			}
		}
	}
}

func toEntry(doc document) registry.ServiceEntry {
	return registry.ServiceEntry{ID: doc.ID, Service: doc.Service, Lba: doc.Lba, Addr: doc.Addr, Kind: registry.Kind(doc.Type)}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-t.C:
		return false
	}
}
