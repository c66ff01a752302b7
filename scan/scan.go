// Package scan reads the mods installed in a workshop content folder.
package scan

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"moddb-curator/moddb"

	"go.uber.org/zap"
)

const (
	unknownName   = "Unknown Name"
	unknownAuthor = "Unknown Author"

	defaultBatchSize = 10
)

// Options tune a directory scan.
type Options struct {
	// BatchSize controls how often OnProgress fires.
	BatchSize int
	// OnProgress, if set, is called every BatchSize folders and once more
	// after the last one.
	OnProgress func(done, total int)
	Log        *zap.SugaredLogger
}

// about mirrors the parts of About/About.xml the curator reads.
type about struct {
	XMLName           xml.Name   `xml:"ModMetaData"`
	PackageID         string     `xml:"packageId"`
	Name              string     `xml:"name"`
	Author            string     `xml:"author"`
	Authors           listOrText `xml:"authors"`
	SupportedVersions []string   `xml:"supportedVersions>li"`
}

// listOrText accepts either plain text or a list of <li> children.
type listOrText struct {
	Text  string   `xml:",chardata"`
	Items []string `xml:"li"`
}

func (l listOrText) join() string {
	if len(l.Items) > 0 {
		parts := make([]string, 0, len(l.Items))
		for _, item := range l.Items {
			if item = strings.TrimSpace(item); item != "" {
				parts = append(parts, item)
			}
		}
		return strings.Join(parts, ", ")
	}
	return strings.TrimSpace(l.Text)
}

// ModFolders lists the numeric sub-folders of modsDir, sorted by name. Each
// folder name is the remote id the mod was published under.
func ModFolders(modsDir string) ([]string, error) {
	entries, err := os.ReadDir(modsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read mods directory %s: %w", modsDir, err)
	}
	var folders []string
	for _, entry := range entries {
		if entry.IsDir() && moddb.ValidRemoteID(entry.Name()) {
			folders = append(folders, entry.Name())
		}
	}
	sort.Strings(folders)
	return folders, nil
}

// Dir scans modsDir and returns one observation per mod folder with a usable
// manifest. Folders without a manifest, or whose manifest does not parse or
// lacks a packageId, are skipped.
func Dir(modsDir string, opts Options) ([]moddb.Observation, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	folders, err := ModFolders(modsDir)
	if err != nil {
		return nil, err
	}

	total := len(folders)
	observations := make([]moddb.Observation, 0, total)
	for i, folder := range folders {
		manifest := filepath.Join(modsDir, folder, "About", "About.xml")
		obs, ok := ReadManifest(manifest, folder)
		if ok {
			observations = append(observations, obs)
		} else {
			log.Debugw("Skipping mod folder without usable manifest", zap.String("folder", folder))
		}

		done := i + 1
		if opts.OnProgress != nil && (done%batch == 0 || done == total) {
			opts.OnProgress(done, total)
		}
	}
	log.Infow("Scanned mods directory",
		zap.String("dir", modsDir),
		zap.Int("folders", total),
		zap.Int("mods", len(observations)),
	)
	return observations, nil
}

// ReadManifest parses one About.xml. It reports false when the file is
// missing, malformed or has no packageId.
func ReadManifest(path, remoteID string) (moddb.Observation, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return moddb.Observation{}, false
	}
	var meta about
	if err := xml.Unmarshal(data, &meta); err != nil {
		return moddb.Observation{}, false
	}

	stableID := moddb.NormalizeStableID(meta.PackageID)
	if stableID == "" {
		return moddb.Observation{}, false
	}

	name := strings.TrimSpace(meta.Name)
	if name == "" {
		name = unknownName
	}
	authors := meta.Authors.join()
	if authors == "" {
		authors = strings.TrimSpace(meta.Author)
	}
	if authors == "" {
		authors = unknownAuthor
	}

	versions := make([]string, 0, len(meta.SupportedVersions))
	for _, v := range meta.SupportedVersions {
		if v = strings.TrimSpace(v); v != "" {
			versions = append(versions, v)
		}
	}

	return moddb.Observation{
		StableID: stableID,
		RemoteID: remoteID,
		Name:     name,
		Authors:  authors,
		Versions: versions,
	}, true
}
