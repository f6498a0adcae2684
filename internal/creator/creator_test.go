package creator

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zcomx/zcomix/internal/image"
	"github.com/zcomx/zcomix/internal/platform/apperr"
	"github.com/zcomx/zcomix/pkg/pagination"
	"github.com/zcomx/zcomix/pkg/slug"
)

type fakeRepo struct {
	creators map[int64]*Creator
	nextID   int64
}

func newFakeRepo() *fakeRepo { return &fakeRepo{creators: map[int64]*Creator{}} }

func (f *fakeRepo) Create(_ context.Context, c *Creator) error {
	for _, existing := range f.creators {
		if slug.Fold(existing.Slug) == slug.Fold(c.Slug) {
			return apperr.Conflict("Resource already exists")
		}
	}
	f.nextID++
	c.ID = f.nextID
	f.creators[c.ID] = c
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*Creator, error) {
	c, ok := f.creators[id]
	if !ok {
		return nil, apperr.NotFound("Creator")
	}
	return c, nil
}

func (f *fakeRepo) GetBySlug(_ context.Context, s string) (*Creator, error) {
	for _, c := range f.creators {
		if slug.Fold(c.Slug) == slug.Fold(s) {
			return c, nil
		}
	}
	return nil, apperr.NotFound("Creator")
}

func (f *fakeRepo) Update(_ context.Context, c *Creator) error {
	f.creators[c.ID] = c
	return nil
}

func (f *fakeRepo) Search(_ context.Context, _ string, _ pagination.Params) ([]*Creator, int, error) {
	return nil, 0, nil
}

func (f *fakeRepo) List(_ context.Context) ([]*Creator, error) { return nil, nil }

func (f *fakeRepo) SetPortrait(_ context.Context, id int64, ref *string) error {
	f.creators[id].Portrait = ref
	return nil
}

func (f *fakeRepo) SetIndicia(_ context.Context, id int64, ref *string) error {
	f.creators[id].Indicia = ref
	return nil
}

func (f *fakeRepo) SetTorrent(_ context.Context, id int64, torrent *string) error {
	f.creators[id].Torrent = torrent
	return nil
}

func (f *fakeRepo) MarkRebuildTorrent(_ context.Context, id int64, rebuild bool) error {
	f.creators[id].RebuildTorrent = rebuild
	return nil
}

func (f *fakeRepo) ListRebuildTorrent(_ context.Context) ([]*Creator, error) { return nil, nil }

type fakeImages struct{}

func (fakeImages) Store(field, path, filename string) (image.Ref, error) {
	return image.NewRef(field, filename)
}

type fakeJobs struct {
	jobs []string
}

func (f *fakeJobs) Enqueue(_ context.Context, command string, args ...string) error {
	f.jobs = append(f.jobs, command)
	return nil
}

func newTestService() (*Service, *fakeRepo, *fakeJobs) {
	repo := newFakeRepo()
	jobs := &fakeJobs{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, fakeImages{}, jobs, logger), repo, jobs
}

/*
TestCreator_Letter verifies the archive shelf letter.
*/
func TestCreator_Letter(t *testing.T) {
	assert.Equal(t, "F", (&Creator{Slug: "FirstLast"}).Letter())
	assert.Equal(t, "A", (&Creator{Slug: "abc"}).Letter())
	assert.Equal(t, "Я", (&Creator{Slug: "янка"}).Letter())
	assert.Equal(t, "0", (&Creator{Slug: "99problems"}).Letter())
	assert.Equal(t, "0", (&Creator{}).Letter())
}

/*
TestService_CreateCreator verifies slug derivation and folded uniqueness.
*/
func TestService_CreateCreator(t *testing.T) {
	service, _, _ := newTestService()

	c := &Creator{Name: "First Last"}
	require.NoError(t, service.CreateCreator(context.Background(), c))
	assert.Equal(t, "FirstLast", c.Slug)

	t.Run("accent folded collision rejected", func(t *testing.T) {
		dupe := &Creator{Name: "Fïrst Lást"}
		err := service.CreateCreator(context.Background(), dupe)
		require.Error(t, err)
		assert.Equal(t, "CONFLICT", apperr.As(err).Code)
	})

	t.Run("missing name rejected", func(t *testing.T) {
		err := service.CreateCreator(context.Background(), &Creator{})
		require.Error(t, err)
	})
}

/*
TestService_GetCreator verifies id and slug resolution.
*/
func TestService_GetCreator(t *testing.T) {
	service, _, _ := newTestService()
	c := &Creator{Name: "First Last"}
	require.NoError(t, service.CreateCreator(context.Background(), c))

	byID, err := service.GetCreator(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byID.ID)

	bySlug, err := service.GetCreator(context.Background(), "firstlast")
	require.NoError(t, err)
	assert.Equal(t, c.ID, bySlug.ID)
}

/*
TestService_SetIndicia verifies indicia uploads queue archive regeneration.
*/
func TestService_SetIndicia(t *testing.T) {
	service, repo, jobs := newTestService()
	c := &Creator{Name: "First Last"}
	require.NoError(t, service.CreateCreator(context.Background(), c))

	updated, err := service.SetIndicia(context.Background(), c.ID, "unused", "indicia.png")
	require.NoError(t, err)
	require.NotNil(t, updated.Indicia)
	assert.NotNil(t, repo.creators[c.ID].Indicia)
	assert.Contains(t, jobs.jobs, "update_indicia")
}
