package cli

import (
	"os"
	"path/filepath"
	"strings"

	"dyphal/internal/catalog"
	"dyphal/internal/mediatypes"
)

const catalogExtension = ".catalog"

// expandInputs turns the command line arguments into photo paths. A
// directory contributes the images directly inside it, in name order. A
// gThumb catalog contributes its local files. Anything else is taken as
// a photo; files that cannot be read are left for the add batch to
// report.
func expandInputs(args []string) ([]string, error) {
	var photos []string
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, err
		}

		if strings.EqualFold(filepath.Ext(abs), catalogExtension) {
			c, err := catalog.Load(abs)
			if err != nil {
				return nil, err
			}
			for _, uri := range c.Skipped {
				log.Warn("%s: skipping %s, which is not a local file", filepath.Base(abs), uri)
			}
			photos = append(photos, c.Files...)
			continue
		}

		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			photos = append(photos, abs)
			continue
		}

		entries, err := os.ReadDir(abs)
		if err != nil {
			return nil, err
		}
		found := 0
		for _, e := range entries {
			if e.Type().IsRegular() && mediatypes.IsImage(e.Name()) {
				photos = append(photos, filepath.Join(abs, e.Name()))
				found++
			}
		}
		log.Debug("%s: %d photos", abs, found)
	}
	return photos, nil
}
