package services

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/AnshRaj112/solace-backend/internal/models"
)

const moderationCollection = "moderation_events"

// MongoAuditLog stores moderation events in MongoDB.
type MongoAuditLog struct {
	col *mongo.Collection
}

func NewMongoAuditLog(db *mongo.Database) *MongoAuditLog {
	return &MongoAuditLog{col: db.Collection(moderationCollection)}
}

// EnsureIndexes creates the lookup and retention indexes.
func (a *MongoAuditLog) EnsureIndexes(ctx context.Context) error {
	_, err := a.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_user_created"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_created"),
		},
	})
	return err
}

// Record inserts one event.
func (a *MongoAuditLog) Record(ctx context.Context, event models.ModerationEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = utcNow()
	}
	_, err := a.col.InsertOne(ctx, event)
	return err
}

// Recent returns the newest events, optionally only those of one user.
func (a *MongoAuditLog) Recent(ctx context.Context, userID string, limit int64) ([]models.ModerationEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if userID != "" {
		filter["user_id"] = userID
	}
	cursor, err := a.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	events := []models.ModerationEvent{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountSince returns how many events a user produced since the given time.
func (a *MongoAuditLog) CountSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return a.col.CountDocuments(ctx, bson.M{
		"user_id":    userID,
		"created_at": bson.M{"$gte": since},
	})
}

// DeleteBefore removes events older than cutoff.
func (a *MongoAuditLog) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	res, err := a.col.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteUser removes every event of a user. Called on account deletion.
func (a *MongoAuditLog) DeleteUser(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := a.col.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}

type auditPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ModerationJanitor periodically deletes audit events past retention.
type ModerationJanitor struct {
	audit     auditPruner
	interval  time.Duration
	retention time.Duration
	log       *zap.SugaredLogger
	now       func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewModerationJanitor defaults to an hourly sweep with 30 days retention.
func NewModerationJanitor(audit auditPruner, interval, retention time.Duration, log *zap.SugaredLogger) *ModerationJanitor {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &ModerationJanitor{audit: audit, interval: interval, retention: retention, log: log, now: utcNow}
}

// Start sweeps once immediately and then every interval until Stop.
func (j *ModerationJanitor) Start(ctx context.Context) {
	ctx, j.cancel = context.WithCancel(ctx)
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		j.sweep(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.sweep(ctx)
			}
		}
	}()
}

// Stop waits for the sweeper to exit.
func (j *ModerationJanitor) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	j.wg.Wait()
}

func (j *ModerationJanitor) sweep(ctx context.Context) {
	n, err := j.audit.DeleteBefore(ctx, j.now().Add(-j.retention))
	if err != nil {
		j.log.Warnw("moderation cleanup failed", "error", err)
		return
	}
	if n > 0 {
		j.log.Infow("moderation cleanup", "deleted", n)
	}
}
