package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"ai-networking-be/internal/entity"
	"ai-networking-be/internal/model"
	"ai-networking-be/internal/pkg/logger"
	"ai-networking-be/internal/repository/specification"
	"ai-networking-be/internal/repository/unitofwork"
	"ai-networking-be/internal/service"
	"ai-networking-be/pkg/database"
	"ai-networking-be/pkg/store"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormContacts(t *testing.T) {
	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err, "connect to DB")
	require.NoError(t, gormDB.AutoMigrate(&model.Contact{}))

	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	ctx := context.Background()
	userID := "it-" + uuid.NewString()

	t.Cleanup(func() {
		gormDB.Unscoped().Where("user_id = ?", userID).Delete(&model.Contact{})
	})

	t.Run("create and find case-insensitively", func(t *testing.T) {
		uow := uowFactory.NewUnitOfWork(ctx)
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		contact := &entity.Contact{
			UserId:   userID,
			Name:     "Sarah Chen",
			Email:    "Sarah@Acme.io",
			Snapshot: map[string]string{"name": "Sarah Chen"},
		}
		require.NoError(t, uow.ContactRepository().Create(ctx, contact))
		require.NoError(t, uow.Commit())

		found, err := uowFactory.NewUnitOfWork(ctx).ContactRepository().FindOne(ctx,
			specification.ByUserID{UserID: userID},
			specification.EmailEqualsFold{Email: "sarah@acme.io"},
		)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, contact.Id, found.Id)
		assert.Equal(t, "Sarah Chen", found.Snapshot["name"])
	})

	t.Run("rollback discards writes", func(t *testing.T) {
		uow := uowFactory.NewUnitOfWork(ctx)
		require.NoError(t, uow.Begin(ctx))
		require.NoError(t, uow.ContactRepository().Create(ctx, &entity.Contact{UserId: userID, Name: "Ghost"}))
		require.NoError(t, uow.Rollback())

		found, err := uowFactory.NewUnitOfWork(ctx).ContactRepository().FindOne(ctx,
			specification.ByUserID{UserID: userID},
			specification.NameEqualsFold{Name: "ghost"},
		)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("committer dedupes by name", func(t *testing.T) {
		committer := service.NewContactCommitter(uowFactory, time.Now, logger.NewNopLogger())
		draft := store.NewDraft()
		draft.Fields[store.FieldName] = "sarah chen"
		draft.Fields[store.FieldNotes] = "wants a demo"
		res, err := committer.Commit(ctx, userID, draft)
		require.NoError(t, err)
		assert.False(t, res.Created)

		count, err := uowFactory.NewUnitOfWork(ctx).ContactRepository().Count(ctx, specification.ByUserID{UserID: userID})
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)

		stored, err := committer.Lookup(ctx, userID, res.Ref)
		require.NoError(t, err)
		assert.Equal(t, "wants a demo", stored.Fields[store.FieldNotes])
	})
}
