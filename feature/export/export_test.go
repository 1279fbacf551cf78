package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"task-mirror/core/database"
	"task-mirror/core/storage"
	"task-mirror/core/storage/mocks"
	"task-mirror/feature/mirror/models"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var exportTime = time.Date(2024, 3, 10, 15, 4, 5, 0, time.UTC)

func seededDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	listID := int64(10)
	require.NoError(t, db.Create(&models.Root{ID: 1, Revision: 9}).Error)
	require.NoError(t, db.Create(&models.User{ID: 100, Name: "Ada", Revision: 1}).Error)
	require.NoError(t, db.Create(&models.List{ID: 10, Title: "Home", Order: 0, Revision: 1}).Error)
	require.NoError(t, db.Create(&[]models.Task{
		{ID: 2, ListID: &listID, Title: "Second", Order: 1, Revision: 1},
		{ID: 1, ListID: &listID, Title: "First #home", Order: 0, Revision: 1},
	}).Error)
	require.NoError(t, db.Create(&models.Hashtag{ID: "#home"}).Error)
	return db
}

func newExporter(client storage.Client, db *gorm.DB, keep int) *Exporter {
	e := NewExporter(client, storage.Config{Bucket: "mirror", Prefix: "/snapshots/", Keep: keep}, db, zap.NewNop())
	e.now = func() time.Time { return exportTime }
	return e
}

func objects(keys ...string) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		ch <- minio.ObjectInfo{Key: k}
	}
	close(ch)
	return ch
}

func TestBuild(t *testing.T) {
	e := newExporter(new(mocks.Client), seededDB(t), 0)

	snap, err := e.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9), snap.RootRevision)
	require.NotNil(t, snap.User)
	assert.Equal(t, "Ada", snap.User.Name)
	assert.Len(t, snap.Lists, 1)
	require.Len(t, snap.Tasks, 2)
	assert.Equal(t, int64(1), snap.Tasks[0].ID, "tasks in display order")
	assert.Equal(t, []string{"#home"}, snap.Hashtags)
}

func TestBuild_EmptyMirror(t *testing.T) {
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	snap, err := newExporter(new(mocks.Client), db, 0).Build(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snap.RootRevision)
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.Tasks)
}

func TestExport(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "mirror").Return(false, nil)
	client.On("MakeBucket", mock.Anything, "mirror", mock.Anything).Return(nil)

	uploaded := map[string][]byte{}
	client.On("PutObject", mock.Anything, "mirror", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			data, err := io.ReadAll(args.Get(3).(io.Reader))
			require.NoError(t, err)
			assert.Equal(t, int64(len(data)), args.Get(4).(int64))
			assert.Equal(t, "application/json", args.Get(5).(minio.PutObjectOptions).ContentType)
			uploaded[args.String(2)] = data
		}).
		Return(minio.UploadInfo{}, nil)
	client.On("ListObjects", mock.Anything, "mirror", mock.Anything).Return(objects(
		"snapshots/20240310T150405Z.json",
		"snapshots/20240309T000000Z.json",
		"snapshots/20240308T000000Z.json",
		"snapshots/latest.json",
		"snapshots/notes.txt",
	))
	client.On("RemoveObject", mock.Anything, "mirror", "snapshots/20240308T000000Z.json", mock.Anything).Return(nil)

	res, err := newExporter(client, seededDB(t), 2).Export(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "snapshots/20240310T150405Z.json", res.Object)
	assert.Equal(t, 2, res.Tasks)
	assert.Equal(t, []string{"snapshots/20240308T000000Z.json"}, res.Removed)

	require.Contains(t, uploaded, "snapshots/latest.json")
	assert.Equal(t, uploaded[res.Object], uploaded["snapshots/latest.json"])

	var snap Snapshot
	require.NoError(t, json.Unmarshal(uploaded["snapshots/latest.json"], &snap))
	assert.Equal(t, int64(9), snap.RootRevision)
	assert.True(t, exportTime.Equal(snap.GeneratedAt))

	client.AssertExpectations(t)
}

func TestExport_UploadFailure(t *testing.T) {
	boom := errors.New("boom")
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "mirror").Return(true, nil)
	client.On("PutObject", mock.Anything, "mirror", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, boom)

	_, err := newExporter(client, seededDB(t), 2).Export(context.Background())
	assert.ErrorIs(t, err, boom)
	client.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	client.AssertNumberOfCalls(t, "PutObject", 1)
}

func TestPrune_KeepAll(t *testing.T) {
	client := new(mocks.Client)
	removed, err := newExporter(client, nil, 0).Prune(context.Background())
	require.NoError(t, err)
	assert.Empty(t, removed)
	client.AssertNotCalled(t, "ListObjects", mock.Anything, mock.Anything, mock.Anything)
}

func TestLatest(t *testing.T) {
	body, err := json.Marshal(Snapshot{RootRevision: 4, Hashtags: []string{"#a"}})
	require.NoError(t, err)

	client := new(mocks.Client)
	client.On("GetObject", mock.Anything, "mirror", "snapshots/latest.json", mock.Anything).
		Return(io.NopCloser(bytes.NewReader(body)), nil)

	snap, err := newExporter(client, nil, 0).Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), snap.RootRevision)
	assert.Equal(t, []string{"#a"}, snap.Hashtags)
}
