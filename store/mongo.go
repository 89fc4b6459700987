package store

import (
	"context"
	"time"

	"localvoice-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoReportStore is the production ReportStore. Vote and status mutations
// are single conditional updates, so concurrent callers never observe a
// partially-applied report.
type MongoReportStore struct {
	collection *mongo.Collection
}

func NewMongoReportStore(collection *mongo.Collection) *MongoReportStore {
	return &MongoReportStore{collection: collection}
}

// EnsureReportIndexes creates the 2dsphere index backing proximity queries
// plus the secondary indexes used by listing and statistics.
func EnsureReportIndexes(collection *mongo.Collection) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "location.coordinates", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "priority", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "language", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "reportedBy.email", Value: 1}}},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (s *MongoReportStore) Create(ctx context.Context, report *models.Report) error {
	_, err := s.collection.InsertOne(ctx, report)
	return err
}

func (s *MongoReportStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	var report models.Report
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&report)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &report, nil
}

func (s *MongoReportStore) FindMany(ctx context.Context, filter Filter, sort Sort, page Page) ([]models.Report, int64, error) {
	query := buildFilter(filter)

	totalCount, err := s.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	direction := 1
	if sort.Descending {
		direction = -1
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: sort.Field, Value: direction}}).
		SetSkip(int64(page.Skip())).
		SetLimit(int64(page.Size))

	cursor, err := s.collection.Find(ctx, query, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	reports := []models.Report{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, 0, err
	}
	return reports, totalCount, nil
}

func buildFilter(filter Filter) bson.M {
	query := bson.M{}
	if !filter.IncludeDeleted {
		query["isDeleted"] = bson.M{"$ne": true}
	}
	if filter.Status != nil {
		query["status"] = *filter.Status
	}
	if filter.Category != nil {
		query["category"] = *filter.Category
	}
	if filter.Priority != nil {
		query["priority"] = *filter.Priority
	}
	if filter.Language != "" {
		query["language"] = filter.Language
	}
	return query
}

func (s *MongoReportStore) Update(ctx context.Context, id primitive.ObjectID, mutation Mutation) (*models.Report, error) {
	set := bson.M{"updatedAt": time.Now()}
	if mutation.Priority != nil {
		set["priority"] = *mutation.Priority
	}
	if mutation.AdminNotes != nil {
		set["adminNotes"] = *mutation.AdminNotes
	}
	if mutation.IsFlagged != nil {
		set["isFlagged"] = *mutation.IsFlagged
	}
	if mutation.FlagReason != nil {
		set["flagReason"] = *mutation.FlagReason
	}
	if mutation.AssignedTo != nil {
		set["assignedTo"] = *mutation.AssignedTo
	}
	if mutation.Tags != nil {
		set["tags"] = models.NormalizeTags(mutation.Tags)
	}
	if mutation.Image != nil {
		set["image"] = *mutation.Image
	}

	return s.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

func (s *MongoReportStore) ChangeStatus(ctx context.Context, id primitive.ObjectID, status models.Status, changedBy, comment string) (*models.Report, error) {
	current, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entry := models.StatusChange{
		Status:    status,
		ChangedBy: changedBy,
		ChangedAt: now,
		Comment:   comment,
	}

	if status == models.StatusResolved {
		// Stamp the resolution together with the history append, but only
		// when no resolution exists yet. The resolvedAt filter makes the
		// first-resolution write a single atomic operation.
		hours := int(now.Sub(current.CreatedAt).Hours())
		updated, err := s.findOneAndUpdate(ctx,
			bson.M{"_id": id, "resolution.resolvedAt": nil},
			bson.M{
				"$set": bson.M{
					"status":                         status,
					"updatedAt":                      now,
					"resolution.resolvedAt":          now,
					"resolution.resolvedBy":          changedBy,
					"resolution.resolutionTimeHours": hours,
				},
				"$push": bson.M{"statusHistory": entry},
			})
		if err == nil {
			return updated, nil
		}
		if err != ErrNotFound {
			return nil, err
		}
		// Already resolved once before; fall through to a plain transition.
	}

	return s.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$set":  bson.M{"status": status, "updatedAt": now},
		"$push": bson.M{"statusHistory": entry},
	})
}

func (s *MongoReportStore) Upvote(ctx context.Context, id primitive.ObjectID, userID primitive.ObjectID) (*models.Report, error) {
	// Membership check and append are one conditional update; two concurrent
	// calls for the same user can never both match.
	updated, err := s.findOneAndUpdate(ctx,
		bson.M{"_id": id, "votedBy": bson.M{"$ne": userID}},
		bson.M{
			"$addToSet": bson.M{"votedBy": userID},
			"$inc":      bson.M{"votes": 1},
			"$set":      bson.M{"updatedAt": time.Now()},
		})
	if err == nil {
		return updated, nil
	}
	if err != ErrNotFound {
		return nil, err
	}
	// No match: either the report is missing or the user already voted.
	// A duplicate vote is a no-op returning the unchanged report.
	return s.FindByID(ctx, id)
}

func (s *MongoReportStore) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"views": 1},
		"$set": bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoReportStore) SetTranslations(ctx context.Context, id primitive.ObjectID, title, description string) error {
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"title.translated":       title,
			"description.translated": description,
			"updatedAt":              time.Now(),
		},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoReportStore) AddResponse(ctx context.Context, id primitive.ObjectID, response models.Response) (*models.Report, error) {
	return s.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"responses": response},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
}

func (s *MongoReportStore) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"isDeleted": true, "updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoReportStore) FindNearby(ctx context.Context, lat, lng, maxMeters float64) ([]models.Report, error) {
	// $near on the 2dsphere index returns documents ordered by distance
	filter := bson.M{
		"isDeleted": bson.M{"$ne": true},
		"location.coordinates": bson.M{
			"$near": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": []float64{lng, lat},
				},
				"$maxDistance": maxMeters,
			},
		},
	}

	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reports := []models.Report{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *MongoReportStore) Statistics(ctx context.Context) (*Statistics, error) {
	pipeline := []bson.M{
		{"$match": bson.M{"isDeleted": bson.M{"$ne": true}}},
		{"$facet": bson.M{
			"total": []bson.M{{"$count": "count"}},
			"byStatus": []bson.M{
				{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
			},
			"byCategory": []bson.M{
				{"$group": bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}},
			},
			"byPriority": []bson.M{
				{"$group": bson.M{"_id": "$priority", "count": bson.M{"$sum": 1}}},
			},
			"avgResolution": []bson.M{
				{"$match": bson.M{
					"status":                         models.StatusResolved,
					"resolution.resolutionTimeHours": bson.M{"$ne": nil},
				}},
				{"$group": bson.M{"_id": nil, "avg": bson.M{"$avg": "$resolution.resolutionTimeHours"}}},
			},
		}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	type bucket struct {
		ID    string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	var results []struct {
		Total []struct {
			Count int64 `bson:"count"`
		} `bson:"total"`
		ByStatus      []bucket `bson:"byStatus"`
		ByCategory    []bucket `bson:"byCategory"`
		ByPriority    []bucket `bson:"byPriority"`
		AvgResolution []struct {
			Avg float64 `bson:"avg"`
		} `bson:"avgResolution"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}

	stats := &Statistics{
		ByStatus:   map[models.Status]int64{},
		ByCategory: map[models.Category]int64{},
		ByPriority: map[models.Priority]int64{},
	}
	if len(results) == 0 {
		return stats, nil
	}
	raw := results[0]
	if len(raw.Total) > 0 {
		stats.Total = raw.Total[0].Count
	}
	for _, b := range raw.ByStatus {
		stats.ByStatus[models.Status(b.ID)] = b.Count
	}
	for _, b := range raw.ByCategory {
		stats.ByCategory[models.Category(b.ID)] = b.Count
	}
	for _, b := range raw.ByPriority {
		stats.ByPriority[models.Priority(b.ID)] = b.Count
	}
	if len(raw.AvgResolution) > 0 {
		avg := raw.AvgResolution[0].Avg
		stats.AvgResolutionHours = &avg
	}
	return stats, nil
}

func (s *MongoReportStore) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.Report, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var report models.Report
	err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&report)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &report, nil
}
