package db

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"flashcard_spider/internal/config"
	"flashcard_spider/internal/models"
	"flashcard_spider/internal/urlutil"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDB struct {
	client  *mongo.Client
	records *mongo.Collection
	runs    *mongo.Collection
	logger  *slog.Logger
}

// recordDocument is what gets stored per record; the Record fields are inlined.
type recordDocument struct {
	RecordKey     string `bson:"record_key"`
	ListID        int    `bson:"list_id"`
	Position      int    `bson:"position"`
	LastScraped   int64  `bson:"last_scraped"`
	models.Record `bson:",inline"`
}

func NewMongoDB(ctx context.Context, cfg config.MongoConfig, logger *slog.Logger) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Connection))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("can't ping MongoDB: %w", err)
	}

	database := client.Database(cfg.Database)
	d := &MongoDB{
		client:  client,
		records: database.Collection(cfg.Collections.Records),
		runs:    database.Collection(cfg.Collections.Runs),
		logger:  logger,
	}

	d.createIndexes(ctx)
	return d, nil
}

func (d *MongoDB) createIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "record_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "list_id", Value: 1}},
		},
	}
	if _, err := d.records.Indexes().CreateMany(ctx, indexes); err != nil {
		d.logger.Warn("can't create record indexes", "err", err)
	}
}

// SaveRecords upserts every record and bumps its scraped_count.
func (d *MongoDB) SaveRecords(ctx context.Context, listID int, records []models.Record) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	docs := toDocuments(listID, records, time.Now().Unix())
	if len(docs) == 0 {
		return nil
	}

	writes := make([]mongo.WriteModel, 0, len(docs))
	for _, doc := range docs {
		set, err := toSetDocument(doc)
		if err != nil {
			return err
		}
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"record_key": doc.RecordKey}).
			SetUpdate(bson.M{
				"$set": set,
				"$inc": bson.M{"scraped_count": 1},
			}).
			SetUpsert(true))
	}

	res, err := d.records.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("can't save records: %w", err)
	}
	d.logger.Info("saved records to MongoDB",
		"upserted", res.UpsertedCount, "modified", res.ModifiedCount, "matched", res.MatchedCount)
	return nil
}

func (d *MongoDB) SaveRun(ctx context.Context, run models.CrawlRun) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := d.runs.InsertOne(ctx, run)
	return err
}

func (d *MongoDB) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}

// toDocuments keys records by list, page, position on the page and word, so
// repeated words stay separate rows.
func toDocuments(listID int, records []models.Record, now int64) []recordDocument {
	docs := make([]recordDocument, 0, len(records))
	positions := make(map[int]int)
	for _, record := range records {
		position := positions[record.Page]
		positions[record.Page]++
		docs = append(docs, recordDocument{
			RecordKey: urlutil.RecordKey(
				strconv.Itoa(listID),
				strconv.Itoa(record.Page),
				strconv.Itoa(position),
				record.Word,
			),
			ListID:      listID,
			Position:    position,
			LastScraped: now,
			Record:      record,
		})
	}
	return docs
}

func toSetDocument(doc recordDocument) (bson.M, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("can't marshal record %q: %w", doc.Word, err)
	}
	var set bson.M
	if err := bson.Unmarshal(data, &set); err != nil {
		return nil, err
	}
	delete(set, "scraped_count")
	return set, nil
}
