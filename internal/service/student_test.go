package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thedynamicdoers/institute-api/internal/images"
	"github.com/thedynamicdoers/institute-api/internal/images/local"
	"github.com/thedynamicdoers/institute-api/internal/storage"
	"github.com/thedynamicdoers/institute-api/internal/storage/memory"
	"github.com/thedynamicdoers/institute-api/internal/types"
)

// failingImages wraps a real store and fails the selected operation.
type failingImages struct {
	images.Store
	writeErr error
}

func (f *failingImages) Write(ctx context.Context, name string, data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	return f.Store.Write(ctx, name, data)
}

// failingUpdates wraps a real store and rejects updates.
type failingUpdates struct {
	storage.Storage
	updateErr error
}

func (f *failingUpdates) UpdateStudentByID(context.Context, int64, types.Student) (types.Student, error) {
	return types.Student{}, f.updateErr
}

func newImages(t *testing.T) *local.Dir {
	t.Helper()

	d, err := local.New(t.TempDir())
	require.NoError(t, err)
	return d
}

func TestCreateWithImage_AttachesImage(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	im := newImages(t)
	svc := NewStudents(st, im)

	created, err := svc.CreateWithImage(ctx, "Bob", "b@x.com", []byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NotNil(t, created.ImageName)
	assert.Equal(t, images.FileName(created.ID, "Bob"), *created.ImageName)

	stored, err := st.GetStudentByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, stored)

	data, err := svc.Image(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)
}

func TestCreateWithImage_NoImage(t *testing.T) {
	ctx := context.Background()
	svc := NewStudents(memory.New(), newImages(t))

	created, err := svc.CreateWithImage(ctx, "Ann", "a@x.com", nil)
	require.NoError(t, err)
	assert.Nil(t, created.ImageName)

	_, err = svc.Image(ctx, created.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, images.ErrNotExist)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateWithImage_ImageWriteFailureRemovesRecord(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := NewStudents(st, &failingImages{Store: newImages(t), writeErr: errors.New("disk full")})

	_, err := svc.CreateWithImage(ctx, "Bob", "b@x.com", []byte("jpeg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	students, err := st.GetStudents(ctx)
	require.NoError(t, err)
	assert.Empty(t, students)
}

func TestCreateWithImage_AttachFailureRemovesFileAndRecord(t *testing.T) {
	ctx := context.Background()
	base := memory.New()
	im := newImages(t)
	svc := NewStudents(&failingUpdates{Storage: base, updateErr: errors.New("locked")}, im)

	_, err := svc.CreateWithImage(ctx, "Bob", "b@x.com", []byte("jpeg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attach image")

	students, err := base.GetStudents(ctx)
	require.NoError(t, err)
	assert.Empty(t, students)

	_, err = im.Read(ctx, images.FileName(1, "Bob"))
	assert.ErrorIs(t, err, images.ErrNotExist)
}

func TestImage_UnknownStudent(t *testing.T) {
	svc := NewStudents(memory.New(), newImages(t))

	_, err := svc.Image(context.Background(), 404)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Contains(t, err.Error(), "404")
}

func TestImage_UsesStoredNameAfterRename(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := NewStudents(st, newImages(t))

	created, err := svc.CreateWithImage(ctx, "Bob", "b@x.com", []byte("jpeg"))
	require.NoError(t, err)

	created.Name = "Robert"
	_, err = st.UpdateStudentByID(ctx, created.ID, created)
	require.NoError(t, err)

	data, err := svc.Image(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)
}

func TestDelete_ImageRetention(t *testing.T) {
	tests := []struct {
		name        string
		deleteImage bool
	}{
		{name: "keeps image by default", deleteImage: false},
		{name: "removes image when configured", deleteImage: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			st := memory.New()
			im := newImages(t)
			svc := NewStudents(st, im, WithDeleteOnRemove(tt.deleteImage))

			created, err := svc.CreateWithImage(ctx, "Bob", "b@x.com", []byte("jpeg"))
			require.NoError(t, err)

			removed, err := svc.Delete(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, created, removed)

			_, err = st.GetStudentByID(ctx, created.ID)
			assert.ErrorIs(t, err, storage.ErrNotFound)

			_, err = im.Read(ctx, *created.ImageName)
			if tt.deleteImage {
				assert.ErrorIs(t, err, images.ErrNotExist)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDelete_Missing(t *testing.T) {
	svc := NewStudents(memory.New(), newImages(t))

	_, err := svc.Delete(context.Background(), 9)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateWithImage_RejectsNameWithSeparator(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := NewStudents(st, newImages(t))

	_, err := svc.CreateWithImage(ctx, "a/b", "a@x.com", []byte("jpeg"))
	assert.ErrorIs(t, err, images.ErrInvalidName)

	all, err := st.GetStudents(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// without an image the name never reaches a file name
	created, err := svc.CreateWithImage(ctx, "a/b", "a@x.com", nil)
	require.NoError(t, err)
	assert.Equal(t, "a/b", created.Name)
}

func TestUpdate_ClearsMissingFields(t *testing.T) {
	ctx := context.Background()
	svc := NewStudents(memory.New(), newImages(t))

	created, err := svc.CreateWithImage(ctx, "Bob", "b@x.com", []byte("jpeg"))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, types.Student{Name: "Carl"})
	require.NoError(t, err)
	assert.Equal(t, types.Student{ID: created.ID, Name: "Carl"}, updated)
}

func TestUpdate_ImageName(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	im := newImages(t)
	svc := NewStudents(st, im, WithDeleteOnRemove(true))

	ann, err := svc.CreateWithImage(ctx, "Ann", "a@x.com", []byte("ann-photo"))
	require.NoError(t, err)
	bob, err := svc.CreateWithImage(ctx, "Bob", "b@x.com", nil)
	require.NoError(t, err)

	t.Run("another student's image", func(t *testing.T) {
		_, err := svc.Update(ctx, bob.ID, types.Student{Name: "Bob", Email: "b@x.com", ImageName: ann.ImageName})
		assert.ErrorIs(t, err, ErrForeignImage)

		stored, err := st.GetStudentByID(ctx, bob.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.ImageName)
	})

	t.Run("keeps own image", func(t *testing.T) {
		updated, err := svc.Update(ctx, ann.ID, types.Student{Name: "Annie", Email: "a@x.com", ImageName: ann.ImageName})
		require.NoError(t, err)
		assert.Equal(t, ann.ImageName, updated.ImageName)
	})

	t.Run("missing student", func(t *testing.T) {
		_, err := svc.Update(ctx, 99, types.Student{Name: "Zed"})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	_, err = svc.Delete(ctx, bob.ID)
	require.NoError(t, err)

	data, err := svc.Image(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("ann-photo"), data)
}
