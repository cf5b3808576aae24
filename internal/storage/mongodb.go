// mongodb.go - MongoDB-backed report archive

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bosocmputer/biometric_scan_gemini/internal/common"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReportsCollection holds archived reports.
const ReportsCollection = "biometric_reports"

const queryTimeout = 5 * time.Second

// MongoReportStore implements ReportStore on a MongoDB collection.
type MongoReportStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	ttl        time.Duration
}

// ConnectMongo connects, pings and prepares the reports collection.
// A positive ttl installs a TTL index on created_at so MongoDB expires old reports.
func ConnectMongo(ctx context.Context, uri, dbName string, ttl time.Duration) (*MongoReportStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store := &MongoReportStore{
		client:     client,
		collection: client.Database(dbName).Collection(ReportsCollection),
		ttl:        ttl,
	}
	if err := store.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	common.Logger.Infof("✅ Connected to MongoDB (%s.%s)", dbName, ReportsCollection)
	return store, nil
}

func (s *MongoReportStore) ensureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "report_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if s.ttl > 0 {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(s.ttl / time.Second)),
		})
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("failed to create indexes on %s: %w", ReportsCollection, err)
	}
	return nil
}

// Save inserts a report.
func (s *MongoReportStore) Save(ctx context.Context, r StoredReport) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := s.collection.InsertOne(ctx, r); err != nil {
		return fmt.Errorf("failed to save report %s: %w", r.ReportID, err)
	}
	return nil
}

// Get loads a report by id.
func (s *MongoReportStore) Get(ctx context.Context, id string) (*StoredReport, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var r StoredReport
	err := s.collection.FindOne(ctx, bson.M{"report_id": id}).Decode(&r)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query report %s: %w", id, err)
	}
	return &r, nil
}

// Close disconnects the client.
func (s *MongoReportStore) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.client.Disconnect(ctx); err != nil {
		return err
	}
	common.Logger.Info("MongoDB connection closed")
	return nil
}
