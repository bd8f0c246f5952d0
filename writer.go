package publisher

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// WriteResults writes results as indented JSON to filename, or to
// DefaultOutputFile when filename is empty.
func WriteResults(filename string, results *Results, logger logrus.FieldLogger) error {
	if filename == "" {
		filename = DefaultOutputFile
	}

	if results == nil {
		results = NewResults()
	}

	data, err := json.MarshalIndent(results.Snapshot(), "", "  ")
	if err != nil {
		return NewIOError(filename, err)
	}

	data = append(data, '\n')

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return NewIOError(filename, err)
		}
	}

	if err := ioutil.WriteFile(filename, data, 0644); err != nil {
		return NewIOError(filename, err)
	}

	if logger != nil {
		logger.Infof("Updated template information written to %s", filename)
	}

	return nil
}
