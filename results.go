package publisher

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"sort"
	"sync"
)

// Results accumulates the outcome of every successful publish in a run,
// keyed by template name.
type Results struct {
	mu      sync.Mutex
	records map[string]Result
}

func NewResults() *Results {
	return &Results{
		records: make(map[string]Result),
	}
}

// LoadResults reads a file previously written by WriteResults. A missing
// file yields empty results.
func LoadResults(path string) (*Results, error) {
	results := NewResults()

	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return results, nil
	}

	if err != nil {
		return nil, NewIOError(path, err)
	}

	if err := json.Unmarshal(data, &results.records); err != nil {
		return nil, NewIOError(path, err)
	}

	if results.records == nil {
		results.records = make(map[string]Result)
	}

	return results, nil
}

func (r *Results) Add(name string, result Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[name] = result
}

func (r *Results) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, name)
}

func (r *Results) Get(name string) (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, ok := r.records[name]
	return result, ok
}

func (r *Results) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.records)
}

func (r *Results) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.records))
	for name := range r.records {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Snapshot returns a copy of the accumulated records.
func (r *Results) Snapshot() map[string]Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Result, len(r.records))
	for name, result := range r.records {
		out[name] = result
	}

	return out
}

func (r *Results) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Snapshot())
}

// ApplyKnownIDs returns a copy of targets where every template without an
// id takes the id recorded under its name by an earlier run.
func (r *Results) ApplyKnownIDs(targets Targets) Targets {
	out := make(Targets, len(targets))

	for i, target := range targets {
		out[i] = target

		if !target.Template.TemplateId.IsZero() {
			continue
		}

		if prev, ok := r.Get(target.Name()); ok {
			out[i].Template.TemplateId = prev.TemplateId
		}
	}

	return out
}
