package aspacedb

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/barcode-sync/pkg/types"
)

func TestDSN(t *testing.T) {
	dsn := DSN(types.DatabaseConfig{Host: "db.example.edu", Name: "archivesspace", User: "as", Password: "p@ss"})
	mc, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "tcp", mc.Net)
	assert.Equal(t, "db.example.edu:3306", mc.Addr)
	assert.Equal(t, "archivesspace", mc.DBName)
	assert.Equal(t, "as", mc.User)
	assert.Equal(t, "p@ss", mc.Passwd)
	assert.True(t, mc.ParseTime)
}

func TestOpen_RequiresHostAndName(t *testing.T) {
	_, err := Open(context.Background(), types.DatabaseConfig{Host: "localhost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

// The query only uses SQL that SQLite also understands, so a small
// ArchivesSpace-shaped schema in memory exercises it.
func TestContainerRefs(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	schema := []string{
		`CREATE TABLE resource (id INTEGER PRIMARY KEY, repo_id INTEGER)`,
		`CREATE TABLE archival_object (id INTEGER PRIMARY KEY, root_record_id INTEGER, publish INTEGER, suppressed INTEGER)`,
		`CREATE TABLE instance (id INTEGER PRIMARY KEY, archival_object_id INTEGER)`,
		`CREATE TABLE sub_container (id INTEGER PRIMARY KEY, instance_id INTEGER)`,
		`CREATE TABLE top_container_link_rlshp (id INTEGER PRIMARY KEY, sub_container_id INTEGER, top_container_id INTEGER)`,
		`CREATE TABLE top_container (id INTEGER PRIMARY KEY)`,
		`INSERT INTO resource VALUES (7, 2), (8, 2)`,
		// Objects 1 and 2 are published, 3 is unpublished, 4 is suppressed, 5 is another resource.
		`INSERT INTO archival_object VALUES (1, 7, 1, 0), (2, 7, 1, 0), (3, 7, 0, 0), (4, 7, 1, 1), (5, 8, 1, 0)`,
		`INSERT INTO instance VALUES (1, 1), (2, 2), (3, 3), (4, 4), (5, 5)`,
		`INSERT INTO sub_container VALUES (1, 1), (2, 2), (3, 3), (4, 4), (5, 5)`,
		`INSERT INTO top_container_link_rlshp VALUES (1, 1, 20), (2, 2, 20), (3, 2, 10), (4, 3, 30), (5, 4, 40), (6, 5, 50)`,
		`INSERT INTO top_container VALUES (10), (20), (30), (40), (50)`,
	}
	for _, stmt := range schema {
		_, err := db.Exec(stmt)
		require.NoError(t, err, strings.SplitN(stmt, "(", 2)[0])
	}

	d := New(db)
	refs, err := d.ContainerRefs(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/repositories/2/top_containers/10",
		"/repositories/2/top_containers/20",
	}, refs)

	n, err := d.ContainerCount(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = d.ContainerCount(context.Background(), 99)
	require.NoError(t, err)
	assert.Zero(t, n)
}
