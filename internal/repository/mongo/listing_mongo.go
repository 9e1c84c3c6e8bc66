// Package mongo stores listings in a MongoDB collection. Documents keep the
// field names used by the HTTP API so existing collections stay readable.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"propertybot/internal/model"
	"propertybot/internal/repository"
)

type listingDocument struct {
	ID          string    `bson:"_id"`
	Developer   string    `bson:"developer"`
	Project     string    `bson:"project"`
	Prices      []float64 `bson:"price"`
	Sizes       []string  `bson:"size"`
	UnitTypes   []string  `bson:"unitType"`
	Status      string    `bson:"status"`
	LaunchDate  string    `bson:"launchDate"`
	Notes       string    `bson:"notes"`
	BrochureRef string    `bson:"brochure,omitempty"`
	CreatedAt   time.Time `bson:"createdAt"`
}

func fromModel(l *model.Listing) listingDocument {
	return listingDocument{
		ID:          l.ID,
		Developer:   l.Developer,
		Project:     l.Project,
		Prices:      nonNilFloats(l.Prices),
		Sizes:       nonNilStrings(l.Sizes),
		UnitTypes:   nonNilStrings(l.UnitTypes),
		Status:      l.Status,
		LaunchDate:  l.LaunchDate,
		Notes:       l.Notes,
		BrochureRef: l.BrochureRef,
		CreatedAt:   l.CreatedAt,
	}
}

func (d listingDocument) toModel() *model.Listing {
	return &model.Listing{
		ID:          d.ID,
		Developer:   d.Developer,
		Project:     d.Project,
		Prices:      d.Prices,
		Sizes:       d.Sizes,
		UnitTypes:   d.UnitTypes,
		Status:      d.Status,
		LaunchDate:  d.LaunchDate,
		Notes:       d.Notes,
		BrochureRef: d.BrochureRef,
		CreatedAt:   d.CreatedAt,
	}
}

func nonNilFloats(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

// ListingMongo is a MongoDB implementation of repository.ListingRepository.
type ListingMongo struct {
	coll *mongo.Collection
}

// NewListingMongo creates a repository over coll.
func NewListingMongo(coll *mongo.Collection) *ListingMongo {
	return &ListingMongo{coll: coll}
}

var _ repository.ListingRepository = (*ListingMongo)(nil)

// Create inserts a new listing document.
func (r *ListingMongo) Create(ctx context.Context, l *model.Listing) (*model.Listing, error) {
	doc := fromModel(l)
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

// FindByID fetches a single listing by its ID.
func (r *ListingMongo) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	var doc listingDocument
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

// List returns listings newest first with a total count.
func (r *ListingMongo) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Listing], error) {
	total, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(pq.Offset)).
		SetLimit(int64(pq.Limit))
	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []listingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	items := make([]model.Listing, 0, len(docs))
	for _, d := range docs {
		items = append(items, *d.toModel())
	}
	return &repository.PageResult[model.Listing]{
		Items: items,
		Total: int(total),
	}, nil
}

// Update replaces the mutable fields and returns the stored document.
func (r *ListingMongo) Update(ctx context.Context, l *model.Listing) (*model.Listing, error) {
	doc := fromModel(l)
	set := bson.D{
		{Key: "developer", Value: doc.Developer},
		{Key: "project", Value: doc.Project},
		{Key: "price", Value: doc.Prices},
		{Key: "size", Value: doc.Sizes},
		{Key: "unitType", Value: doc.UnitTypes},
		{Key: "status", Value: doc.Status},
		{Key: "launchDate", Value: doc.LaunchDate},
		{Key: "notes", Value: doc.Notes},
		{Key: "brochure", Value: doc.BrochureRef},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var out listingDocument
	err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: l.ID}}, bson.D{{Key: "$set", Value: set}}, opts).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return out.toModel(), nil
}

// Delete removes a listing by ID. A missing document is not an error.
func (r *ListingMongo) Delete(ctx context.Context, id string) error {
	_, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	return err
}

// Ping checks the client connection.
func (r *ListingMongo) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}
