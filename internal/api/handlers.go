// Package api exposes the cache coordinator and the admin content service
// as a JSON HTTP API.
package api

import (
	"github.com/vytor/lingoflash/internal/coordinator"
	"github.com/vytor/lingoflash/internal/db"
	"github.com/vytor/lingoflash/internal/jobs"
	"github.com/vytor/lingoflash/internal/services"
)

type Server struct {
	Coordinator *coordinator.Coordinator
	Content     services.ContentService
	Jobs        jobs.JobQueue
	// CacheDB backs the readiness probe.
	CacheDB *db.DB
	// JWTSecret signs bearer tokens. Empty means development mode, where the
	// caller is taken from the X-User-ID header.
	JWTSecret []byte
}
