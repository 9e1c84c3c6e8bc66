package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"propertybot/internal/model"
	"propertybot/internal/repository"
)

var created = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

func listingDoc(id, project string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "developer", Value: "Emaar"},
		{Key: "project", Value: project},
		{Key: "price", Value: bson.A{1200000.0, 1850000.0}},
		{Key: "size", Value: bson.A{"750 sqft", "1,150 sqft"}},
		{Key: "unitType", Value: bson.A{"1BR", "2BR"}},
		{Key: "status", Value: "Off-plan"},
		{Key: "launchDate", Value: "Q4 2027"},
		{Key: "notes", Value: project + " by Emaar"},
		{Key: "createdAt", Value: created},
	}
}

func TestListingMongo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create", func(mt *mtest.T) {
		repo := NewListingMongo(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		out, err := repo.Create(ctx, &model.Listing{ID: "id-1", Project: "Marina Vista", CreatedAt: created})
		require.NoError(mt, err)
		assert.Equal(mt, "id-1", out.ID)
		assert.Equal(mt, []float64{}, out.Prices)
		assert.Equal(mt, []string{}, out.Sizes)
	})

	mt.Run("find by id", func(mt *mtest.T) {
		repo := NewListingMongo(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, listingDoc("id-1", "Marina Vista")))

		out, err := repo.FindByID(ctx, "id-1")
		require.NoError(mt, err)
		assert.Equal(mt, "Marina Vista", out.Project)
		assert.Equal(mt, []float64{1200000, 1850000}, out.Prices)
		assert.Equal(mt, []string{"1BR", "2BR"}, out.UnitTypes)
		assert.True(mt, created.Equal(out.CreatedAt))
	})

	mt.Run("find by id missing", func(mt *mtest.T) {
		repo := NewListingMongo(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.FindByID(ctx, "nope")
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})

	mt.Run("list", func(mt *mtest.T) {
		repo := NewListingMongo(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(2)}}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, listingDoc("b", "Bay"), listingDoc("a", "Arc")),
		)

		res, err := repo.List(ctx, repository.PageQuery{Limit: 10})
		require.NoError(mt, err)
		assert.Equal(mt, 2, res.Total)
		require.Len(mt, res.Items, 2)
		assert.Equal(mt, "b", res.Items[0].ID)
		assert.Equal(mt, "Arc", res.Items[1].Project)
	})

	mt.Run("update", func(mt *mtest.T) {
		repo := NewListingMongo(mt.Coll)
		updated := listingDoc("id-1", "Marina Vista")
		updated[6] = bson.E{Key: "status", Value: "Sold out"}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: updated}))

		out, err := repo.Update(ctx, &model.Listing{ID: "id-1", Project: "Marina Vista", Status: "Sold out"})
		require.NoError(mt, err)
		assert.Equal(mt, "Sold out", out.Status)
		assert.True(mt, created.Equal(out.CreatedAt))
	})

	mt.Run("update missing", func(mt *mtest.T) {
		repo := NewListingMongo(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := repo.Update(ctx, &model.Listing{ID: "nope"})
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})

	mt.Run("delete", func(mt *mtest.T) {
		repo := NewListingMongo(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(1)}))

		assert.NoError(mt, repo.Delete(ctx, "id-1"))
	})

	mt.Run("delete error", func(mt *mtest.T) {
		repo := NewListingMongo(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad value"}))

		assert.Error(mt, repo.Delete(ctx, "id-1"))
	})
}
