// Package aspacedb reads top container references straight from the
// ArchivesSpace MySQL database. The resource top_containers endpoint times
// out on resources with more than a few thousand containers; this query does
// not.
package aspacedb

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/pdiddy/barcode-sync/pkg/types"
)

// containerRefsQuery lists the distinct top containers reachable from the
// published, unsuppressed archival objects of one resource.
const containerRefsQuery = `
	select distinct
		concat('/repositories/', r.repo_id, '/top_containers/', tc.id) as container_uri
	from resource r
	inner join archival_object ao on r.id = ao.root_record_id
	inner join instance i on ao.id = i.archival_object_id
	inner join sub_container sc on i.id = sc.instance_id
	inner join top_container_link_rlshp tclr on sc.id = tclr.sub_container_id
	inner join top_container tc on tclr.top_container_id = tc.id
	where r.id = ?
	and ao.publish = 1
	and ao.suppressed = 0
	order by container_uri`

// DB is a read-only handle on the ArchivesSpace database.
type DB struct {
	db *sql.DB
}

// DSN builds the go-sql-driver connection string for cfg.
func DSN(cfg types.DatabaseConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Timeout = 10 * time.Second
	return mc.FormatDSN()
}

// Open connects to the database described by cfg and pings it.
func Open(ctx context.Context, cfg types.DatabaseConfig) (*DB, error) {
	if cfg.Host == "" || cfg.Name == "" {
		return nil, fmt.Errorf("aspacedb: host and database name are required")
	}
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening ArchivesSpace database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to ArchivesSpace database %s: %w", cfg.Host, err)
	}
	return &DB{db: db}, nil
}

// New wraps an existing connection.
func New(db *sql.DB) *DB {
	return &DB{db: db}
}

// Close closes the connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// ContainerRefs returns the sorted, distinct top container URIs of the
// published, unsuppressed archival objects under resourceID.
func (d *DB) ContainerRefs(ctx context.Context, resourceID int) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, containerRefsQuery, resourceID)
	if err != nil {
		return nil, fmt.Errorf("querying containers for resource %d: %w", resourceID, err)
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, fmt.Errorf("scanning container uri: %w", err)
		}
		refs = append(refs, uri)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading containers for resource %d: %w", resourceID, err)
	}
	return refs, nil
}

// ContainerCount returns len(ContainerRefs(resourceID)).
func (d *DB) ContainerCount(ctx context.Context, resourceID int) (int, error) {
	refs, err := d.ContainerRefs(ctx, resourceID)
	if err != nil {
		return 0, err
	}
	return len(refs), nil
}
