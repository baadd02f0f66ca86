// Package retrieve implements the full-org retrieval coordinator: one
// composite manifest-driven CLI call per org, deduplicated so that at
// most one retrieval per org id is ever in flight, with the result
// cached on disk.
package retrieve

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sforg/internal/config"
	"sforg/internal/errors"
	"sforg/internal/logging"
	"sforg/internal/metadata"
	"sforg/internal/registry"
	"sforg/internal/sfcli"
	"sforg/internal/storage"
)

// outputCandidates are the relative paths a retrieval materializes
// files under, probed in order.
var outputCandidates = []string{
	filepath.Join("force-app", "main", "default"),
	"force-app",
}

// pendingRetrieval is the ledger entry for one in-flight retrieval.
// Joiners wait on done and then read dir/err.
type pendingRetrieval struct {
	done chan struct{}
	dir  string
	err  error
}

// Coordinator deduplicates and caches full-org retrievals. The active
// ledger holds at most one entry per org id: entries are inserted
// before the external call starts and removed when it finishes,
// success or failure alike.
type Coordinator struct {
	runner sfcli.Runner
	cfg    *config.Config
	reg    *registry.Registry
	db     *storage.DB // optional; nil disables history
	logger *logging.Logger

	mu     sync.Mutex
	active map[string]*pendingRetrieval
}

// NewCoordinator creates a retrieval coordinator. db may be nil.
func NewCoordinator(runner sfcli.Runner, cfg *config.Config, reg *registry.Registry, db *storage.DB, logger *logging.Logger) *Coordinator {
	return &Coordinator{
		runner: runner,
		cfg:    cfg,
		reg:    reg,
		db:     db,
		logger: logger.Component("retrieve"),
		active: make(map[string]*pendingRetrieval),
	}
}

// Retrieve returns the directory holding the org's retrieved source.
// A caller racing an in-flight retrieval for the same org joins it and
// receives the same outcome; a cached directory is returned without any
// external call. Only Invalidate forces a re-fetch.
func (c *Coordinator) Retrieve(ctx context.Context, org metadata.Org) (string, error) {
	// The tool being missing entirely is a precondition failure, not
	// a batch-element failure; surface it before touching the ledger.
	if chk, ok := c.runner.(interface{ CheckInstalled() error }); ok {
		if err := chk.CheckInstalled(); err != nil {
			return "", err
		}
	}

	c.mu.Lock()
	if p, ok := c.active[org.ID]; ok {
		c.mu.Unlock()
		c.logger.Debug("Joining in-flight retrieval", map[string]interface{}{
			"org": org.ID,
		})
		select {
		case <-p.done:
			return p.dir, p.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	p := &pendingRetrieval{done: make(chan struct{})}
	c.active[org.ID] = p
	c.mu.Unlock()

	start := time.Now()
	dir, err := c.doRetrieve(ctx, org)
	p.dir, p.err = dir, err

	c.mu.Lock()
	delete(c.active, org.ID)
	c.mu.Unlock()
	close(p.done)

	c.record(org, dir, err, time.Since(start))
	return dir, err
}

// CachedDir returns the populated output directory for an org if a
// prior retrieval is still on disk.
func (c *Coordinator) CachedDir(orgID string) (string, bool) {
	return probeOutput(c.orgDir(orgID))
}

// Invalidate removes any ledger entry and deletes the org's on-disk
// cache, forcing the next Retrieve to start fresh.
func (c *Coordinator) Invalidate(orgID string) error {
	c.mu.Lock()
	delete(c.active, orgID)
	c.mu.Unlock()

	if err := os.RemoveAll(c.orgDir(orgID)); err != nil {
		return errors.New(errors.CacheError,
			fmt.Sprintf("failed to delete cache for org %s", orgID), err)
	}
	if c.db != nil {
		if err := c.db.DeleteCacheEntry(orgID); err != nil {
			return errors.New(errors.CacheError,
				fmt.Sprintf("failed to drop cache entry for org %s", orgID), err)
		}
	}

	c.logger.Info("Cache invalidated", map[string]interface{}{"org": orgID})
	return nil
}

func (c *Coordinator) orgDir(orgID string) string {
	return filepath.Join(c.cfg.EffectiveCacheRoot(), orgID)
}

func (c *Coordinator) doRetrieve(ctx context.Context, org metadata.Org) (string, error) {
	orgDir := c.orgDir(org.ID)

	// A populated cache short-circuits the external call.
	if dir, ok := probeOutput(orgDir); ok {
		c.logger.Debug("Serving cached retrieval", map[string]interface{}{
			"org": org.ID,
			"dir": dir,
		})
		return dir, nil
	}

	// Create-if-absent; sibling org directories are never touched.
	if err := os.MkdirAll(orgDir, 0755); err != nil {
		return "", errors.New(errors.CacheError, "failed to create cache directory", err)
	}

	if err := c.writeProject(orgDir); err != nil {
		return "", err
	}

	manifestPath, err := c.writeManifest(orgDir)
	if err != nil {
		return "", err
	}

	policy := c.cfg.PolicyFor("retrieve")
	out, err := c.runner.Run(ctx, []string{
		"project", "retrieve", "start",
		"--manifest", manifestPath,
		"--target-org", org.Alias,
		"--json",
	}, sfcli.RunOptions{
		TimeoutMs: policy.TimeoutMs,
		Retries:   policy.RetryCount,
		Dir:       orgDir,
	})
	if err != nil {
		return "", err
	}
	if _, err := sfcli.ParseEnvelope(out); err != nil {
		return "", err
	}

	dir, ok := probeOutput(orgDir)
	if !ok {
		return "", errors.New(errors.CacheError,
			fmt.Sprintf("retrieval produced no files under %s", orgDir), nil)
	}

	if c.db != nil {
		if err := c.db.UpsertCacheEntry(org.ID, dir); err != nil {
			c.logger.Warn("Failed to index cache entry", map[string]interface{}{
				"org":   org.ID,
				"error": err.Error(),
			})
		}
	}

	return dir, nil
}

// writeProject drops the minimal sfdx-project.json the CLI requires to
// treat the cache directory as a project.
func (c *Coordinator) writeProject(orgDir string) error {
	project := map[string]interface{}{
		"packageDirectories": []map[string]interface{}{
			{"path": "force-app", "default": true},
		},
		"sourceApiVersion": c.cfg.APIVersion,
	}
	data, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return errors.New(errors.InternalError, "failed to render project file", err)
	}
	if err := os.WriteFile(filepath.Join(orgDir, "sfdx-project.json"), data, 0644); err != nil {
		return errors.New(errors.CacheError, "failed to write project file", err)
	}
	return nil
}

// writeManifest renders package.xml over every enabled type
func (c *Coordinator) writeManifest(orgDir string) (string, error) {
	var enabled []metadata.TypeDefinition
	for _, def := range c.reg.Definitions() {
		if c.cfg.PolicyFor(def.Name).Enabled {
			enabled = append(enabled, def)
		}
	}
	if len(enabled) == 0 {
		return "", errors.New(errors.ManifestFailed, "no enabled types to retrieve", nil)
	}

	body, err := BuildManifest(enabled, c.cfg.APIVersion)
	if err != nil {
		return "", errors.New(errors.ManifestFailed, "failed to render manifest", err)
	}

	path := filepath.Join(orgDir, "package.xml")
	if err := os.WriteFile(path, body, 0644); err != nil {
		return "", errors.New(errors.ManifestFailed, "failed to write manifest", err)
	}
	return path, nil
}

func (c *Coordinator) record(org metadata.Org, dir string, err error, elapsed time.Duration) {
	if c.db == nil {
		return
	}

	rec := storage.RetrievalRecord{
		OrgID:      org.ID,
		Directory:  dir,
		Status:     storage.RetrievalSucceeded,
		DurationMs: elapsed.Milliseconds(),
	}
	if err != nil {
		rec.Status = storage.RetrievalFailed
		rec.Error = err.Error()
	}
	if _, dbErr := c.db.RecordRetrieval(rec); dbErr != nil {
		c.logger.Warn("Failed to record retrieval", map[string]interface{}{
			"org":   org.ID,
			"error": dbErr.Error(),
		})
	}
}

// probeOutput checks the known candidate paths for a populated output
// tree and returns the first match.
func probeOutput(orgDir string) (string, bool) {
	for _, candidate := range outputCandidates {
		dir := filepath.Join(orgDir, candidate)
		entries, err := os.ReadDir(dir)
		if err == nil && len(entries) > 0 {
			return dir, true
		}
	}
	return "", false
}
