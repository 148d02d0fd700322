// Package credfile loads refresh-token credentials from JSON files on disk,
// the on-disk counterpart to the resource:add HTTP endpoint (see
// internal/api/resource.go). Each file is one JSON object; a directory of
// them is the bulk-onboarding path used at startup and on file-watch
// reload.
package credfile

import (
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Entry is one parsed credential file, ready to hand to
// credpool.Pool.SubmitRefreshTokens once grouped by Provider. ModelList
// mirrors config.ProviderConfig's field of the same name; empty means the
// caller should fall back to the provider's resolved default mask.
type Entry struct {
	Provider     string
	RefreshToken string
	ModelList    []string
	Path         string
}

// LoadDir scans dir for *.json files and parses each into an Entry. A
// missing directory is not an error: it returns an empty slice, since the
// directory is optional. Any other read failure, and any individual file
// that cannot be read, parsed, or is missing provider/refresh_token, is
// skipped with a warning rather than failing the whole load.
func LoadDir(dir string) ([]Entry, error) {
	if dir == "" {
		return nil, nil
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.WithField("dir", dir).Info("credfile: credentials directory not found, skipping")
			return nil, nil
		}
		return nil, err
	}

	var out []Entry
	for _, de := range dirEntries {
		if de.IsDir() || !strings.EqualFold(filepath.Ext(de.Name()), ".json") {
			continue
		}
		path := filepath.Join(dir, de.Name())
		entry, ok := parseFile(path)
		if !ok {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func parseFile(path string) (Entry, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).WithField("path", path).Warn("credfile: failed to read credential file")
		return Entry{}, false
	}
	if !gjson.ValidBytes(data) {
		log.WithField("path", path).Warn("credfile: invalid credential JSON")
		return Entry{}, false
	}

	root := gjson.ParseBytes(data)
	provider := strings.TrimSpace(root.Get("provider").String())
	token := strings.TrimSpace(root.Get("refresh_token").String())
	if token == "" {
		token = strings.TrimSpace(root.Get("refreshToken").String())
	}
	if provider == "" || token == "" {
		log.WithField("path", path).Warn("credfile: missing provider or refresh_token, skipping")
		return Entry{}, false
	}

	var modelList []string
	root.Get("model_list").ForEach(func(_, v gjson.Result) bool {
		modelList = append(modelList, v.String())
		return true
	})

	return Entry{Provider: provider, RefreshToken: token, ModelList: modelList, Path: path}, true
}
