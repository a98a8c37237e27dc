package sitedb

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "data", "blog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestOpenIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blog.db")
	d, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	d, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, d.Close())
}

func TestSyncPostsUpsertsAndRemoves(t *testing.T) {
	d := setupTestDB(t)

	res, err := d.SyncPosts([]Post{
		{Slug: "sunset", Title: "Sunset", Body: "posts/sunset.html", Image: "../blog-images/sunset.jpg", Published: true, CreatedAt: "2024-05-01"},
		{Slug: "harbor", Title: "Harbor", Body: "posts/harbor.html", Image: "../blog-images/harbor.jpg", Published: true, CreatedAt: "2024-06-01"},
	})
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Upserted: 2}, res)

	slugs, err := d.ListSlugs()
	require.NoError(t, err)
	assert.Equal(t, []string{"harbor", "sunset"}, slugs)

	res, err = d.SyncPosts([]Post{
		{Slug: "sunset", Title: "Sunset Again", Body: "posts/sunset.html", Image: "../blog-images/sunset.jpg",
			Thumb: "../blog-images/thumbs/sunset-800.jpg", Hero: "../blog-images/thumbs/sunset-1600.jpg", Published: true, CreatedAt: "2024-05-01"},
	})
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Upserted: 1, Removed: 1}, res)

	got, err := d.GetPost("sunset")
	require.NoError(t, err)
	assert.Equal(t, "Sunset Again", got.Title)
	assert.Equal(t, "../blog-images/thumbs/sunset-800.jpg", got.Thumb)
	assert.Equal(t, "../blog-images/thumbs/sunset-1600.jpg", got.Hero)
	assert.True(t, got.Published)

	_, err = d.GetPost("harbor")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRecordImage(t *testing.T) {
	d := setupTestDB(t)

	added, err := d.RecordImage("sunset.jpg", "/blog-images/sunset.jpg")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = d.RecordImage("sunset.jpg", "/blog-images/sunset.jpg")
	require.NoError(t, err)
	assert.False(t, added)

	n, err := d.CountImages()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
