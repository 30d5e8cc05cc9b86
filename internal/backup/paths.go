package backup

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	manualPrefix = "gym-backup-"
	autoPrefix   = "gym-auto-backup-"
)

// Resolver computes destination paths for backups whose caller did not pick
// one. All generated names carry a UTC timestamp so they sort by creation.
type Resolver struct {
	dir string
}

func NewResolver(dir string) *Resolver {
	return &Resolver{dir: dir}
}

// Dir returns the default backup directory.
func (r *Resolver) Dir() string { return r.dir }

// Ensure creates the backup directory if it does not exist yet.
func (r *Resolver) Ensure() error {
	return os.MkdirAll(r.dir, 0755)
}

// ManualPath returns the destination for a user-requested backup taken at t.
func (r *Resolver) ManualPath(t time.Time) string {
	return filepath.Join(r.dir, manualPrefix+timestamp(t)+".db")
}

// AutoPath returns the destination for a scheduled backup taken at t.
func (r *Resolver) AutoPath(t time.Time) string {
	return filepath.Join(r.dir, autoPrefix+timestamp(t)+".db")
}

// timestamp renders t as an ISO 8601 stamp with colons replaced, since colons
// are not legal in Windows file names.
func timestamp(t time.Time) string {
	return strings.ReplaceAll(t.UTC().Format("2006-01-02T15:04:05.000Z"), ":", "-")
}
