// Package geo loads the IBGE municipal mesh into the municipalities
// reference table that geocodes published notices.
package geo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lanceiro/radar-cli/internal/db"
	"github.com/lanceiro/radar-cli/internal/document"
	"github.com/lanceiro/radar-cli/internal/model"
)

// meshVintage is the IBGE territorial mesh release the loader targets.
const meshVintage = "2022"

// DefaultBaseURL serves one zipped shapefile per federative unit.
const DefaultBaseURL = "https://geoftp.ibge.gov.br/organizacao_do_territorio/malhas_territoriais/malhas_municipais/municipio_" + meshVintage + "/UFs"

// municipalityColumns matches the municipalities table layout.
var municipalityColumns = []string{"ibge_code", "name", "state_code", "lat", "lon", "geom"}

// Options configure a municipality import.
type Options struct {
	BaseURL string   // mesh root; DefaultBaseURL when empty
	Dir     string   // directory of pre-downloaded UF archives; skips the download
	States  []string // UF subset; empty loads all 27
	Workers int      // concurrent UF loads; default 4
}

// ImportMunicipalities loads the requested UF meshes and upserts every
// municipality keyed on its IBGE code. UF archives are independent, so they
// fan out through a bounded errgroup; everything downstream of the parse is
// a single bulk upsert.
func ImportMunicipalities(ctx context.Context, pool db.Pool, client *http.Client, opts Options) (int64, error) {
	if client == nil {
		client = http.DefaultClient
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	states := model.States()
	if len(opts.States) > 0 {
		states = make([]string, 0, len(opts.States))
		for _, s := range opts.States {
			uf := model.NormalizeState(s)
			if uf == model.StateUnknown {
				return 0, eris.Errorf("geo: unknown UF %q", s)
			}
			states = append(states, uf)
		}
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	log := zap.L().With(zap.String("component", "geo.loader"))

	workDir, err := os.MkdirTemp("", "radar-geo-*")
	if err != nil {
		return 0, eris.Wrap(err, "geo: create work dir")
	}
	defer os.RemoveAll(workDir) //nolint:errcheck

	var mu sync.Mutex
	var all []model.Municipality

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, uf := range states {
		g.Go(func() error {
			ms, err := loadUF(gctx, client, baseURL, opts.Dir, workDir, uf)
			if err != nil {
				return eris.Wrapf(err, "geo: load %s", uf)
			}
			mu.Lock()
			all = append(all, ms...)
			mu.Unlock()
			log.Info("UF mesh loaded", zap.String("uf", uf), zap.Int("municipalities", len(ms)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	rows := make([][]any, 0, len(all))
	for _, m := range all {
		rows = append(rows, []any{m.IBGECode, m.Name, m.StateCode, m.Lat, m.Lon, m.Geom})
	}

	n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        "municipalities",
		Columns:      municipalityColumns,
		ConflictKeys: []string{"ibge_code"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "geo: upsert municipalities")
	}

	log.Info("municipality reference loaded", zap.Int64("rows", n), zap.Int("states", len(states)))
	return n, nil
}

// loadUF resolves one UF archive, extracts it, and parses the shapefile.
func loadUF(ctx context.Context, client *http.Client, baseURL, localDir, workDir, uf string) ([]model.Municipality, error) {
	zipPath := filepath.Join(workDir, uf+".zip")
	if localDir != "" {
		local, err := localArchive(localDir, uf)
		if err != nil {
			return nil, err
		}
		zipPath = local
	} else {
		url := fmt.Sprintf("%s/%s/%s_Municipios_%s.zip", baseURL, uf, uf, meshVintage)
		zap.L().Debug("geo: downloading mesh", zap.String("url", url))
		if err := downloadFile(ctx, client, url, zipPath); err != nil {
			return nil, err
		}
	}

	files, err := document.ExtractZIP(zipPath, filepath.Join(workDir, uf))
	if err != nil {
		return nil, err
	}
	shpPath, err := shapefilePath(files)
	if err != nil {
		return nil, err
	}
	return parseShapefile(shpPath, uf)
}

// localArchive picks the UF archive from a pre-downloaded directory. Any
// vintage works locally; the lexically first match wins.
func localArchive(dir, uf string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, uf+"*.zip"))
	if err != nil {
		return "", eris.Wrapf(err, "scan %s", dir)
	}
	if len(matches) == 0 {
		return "", eris.Errorf("no %s archive under %s", uf, dir)
	}
	sort.Strings(matches)
	return matches[0], nil
}

// shapefilePath finds the .shp entry among extracted archive files.
func shapefilePath(files []string) (string, error) {
	for _, f := range files {
		if strings.EqualFold(filepath.Ext(f), ".shp") {
			return f, nil
		}
	}
	return "", eris.New("archive has no .shp file")
}

// downloadFile downloads a URL to a local file.
func downloadFile(ctx context.Context, client *http.Client, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "build request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return eris.Wrapf(err, "download %s", url)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("download %s: status %d", url, resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return eris.Wrap(err, "create file")
	}
	defer f.Close() //nolint:errcheck

	if _, err := io.Copy(f, resp.Body); err != nil {
		return eris.Wrapf(err, "write %s", dest)
	}

	return nil
}
