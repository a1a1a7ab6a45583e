package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/activities-api/internal/models"
	"github.com/noah-isme/activities-api/internal/repository"
	"github.com/noah-isme/activities-api/internal/testsupport"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

type storageStub struct {
	uploaded bytes.Buffer
	name     string
	err      error
}

func (s *storageStub) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.name = name
	s.uploaded.Reset()
	if _, err := s.uploaded.ReadFrom(reader); err != nil {
		return "", err
	}
	return "https://cdn.example.com/" + name, nil
}

func newPhotoFixture(t *testing.T, storage FileStorage, maxSizeMB int) (PhotoService, repository.UserRepository) {
	t.Helper()
	repo := repository.NewUserRepository(testsupport.NewSQLiteDB(t))
	require.NoError(t, repo.Create(context.Background(), &models.User{UserName: "Bob", Email: "bob@test.com", DisplayName: "Bob", PasswordHash: "hash"}))
	return NewPhotoService(storage, repo, maxSizeMB, testLogger()), repo
}

func TestPhotoServiceStoresImageAndLinksUser(t *testing.T) {
	storage := &storageStub{}
	svc, repo := newPhotoFixture(t, storage, 5)

	resp, err := svc.UpdatePhoto(context.Background(), "bob", buildFileHeader(t, "Me.PNG", pngHeader))
	require.NoError(t, err)
	require.Equal(t, "image/png", resp.MimeType)
	require.Equal(t, int64(len(pngHeader)), resp.SizeBytes)
	require.Equal(t, pngHeader, storage.uploaded.Bytes())

	user, err := repo.FindByUserName(context.Background(), "bob")
	require.NoError(t, err)
	require.Equal(t, user.ID+".png", storage.name)
	require.Equal(t, "https://cdn.example.com/"+user.ID+".png", resp.URL)
	require.NotNil(t, user.Image)
	require.Equal(t, resp.URL, *user.Image)
}

func TestPhotoServiceStorageNamesAreDistinctPerUser(t *testing.T) {
	storage := &storageStub{}
	svc, repo := newPhotoFixture(t, storage, 5)

	userNames := []string{"bob.smith", "bob-smith", "bob_smith", "Иван", "Пётр"}
	names := make(map[string]string, len(userNames))
	for i, userName := range userNames {
		require.NoError(t, repo.Create(context.Background(), &models.User{
			UserName:     userName,
			Email:        fmt.Sprintf("user%d@test.com", i),
			DisplayName:  userName,
			PasswordHash: "hash",
		}))

		_, err := svc.UpdatePhoto(context.Background(), userName, buildFileHeader(t, "me.png", pngHeader))
		require.NoError(t, err)

		for other, name := range names {
			require.NotEqual(t, name, storage.name, "%s and %s share a storage name", other, userName)
		}
		names[userName] = storage.name
	}

	first, err := repo.FindByUserName(context.Background(), "bob.smith")
	require.NoError(t, err)
	second, err := repo.FindByUserName(context.Background(), "bob-smith")
	require.NoError(t, err)
	require.NotEqual(t, *first.Image, *second.Image)
}

func TestPhotoServiceRejectsSize(t *testing.T) {
	svc, _ := newPhotoFixture(t, &storageStub{}, 1)

	file := buildFileHeader(t, "big.png", append(pngHeader, bytes.Repeat([]byte("a"), 2*1024*1024)...))
	_, err := svc.UpdatePhoto(context.Background(), "bob", file)
	require.ErrorIs(t, err, ErrPhotoTooLarge)
}

func TestPhotoServiceRejectsNonImages(t *testing.T) {
	svc, _ := newPhotoFixture(t, &storageStub{}, 5)

	_, err := svc.UpdatePhoto(context.Background(), "bob", buildFileHeader(t, "notes.png", []byte("plain text")))
	require.ErrorIs(t, err, ErrPhotoTypeNotAllowed)
}

func TestPhotoServiceGuards(t *testing.T) {
	svc, _ := newPhotoFixture(t, nil, 5)
	_, err := svc.UpdatePhoto(context.Background(), "bob", buildFileHeader(t, "me.png", pngHeader))
	require.ErrorIs(t, err, ErrPhotoStorageUnavailable)

	svc, _ = newPhotoFixture(t, &storageStub{}, 5)
	_, err = svc.UpdatePhoto(context.Background(), "bob", nil)
	require.ErrorIs(t, err, ErrPhotoRequired)

	_, err = svc.UpdatePhoto(context.Background(), "ghost", buildFileHeader(t, "me.png", pngHeader))
	require.ErrorIs(t, err, ErrUserNotFound)

	svc, _ = newPhotoFixture(t, &storageStub{err: errors.New("quota")}, 5)
	_, err = svc.UpdatePhoto(context.Background(), "bob", buildFileHeader(t, "me.png", pngHeader))
	require.Error(t, err)
}

func buildFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {"form-data; name=\"file\"; filename=\"" + filename + "\""},
		"Content-Type":        {"application/octet-stream"},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content) + 1024))
	require.NoError(t, err)
	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}
