// Package corpus provides read-only access to the criterion corpus. The
// engine loads the corpus once at construction; an empty or malformed file
// degrades to an empty corpus rather than an error, so the matcher simply
// reports zero trials evaluated.
package corpus

import (
	"context"
	"encoding/json"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/trial-match-engine/internal/domain"
)

// FileProvider implements domain.CorpusProvider over a JSON file.
type FileProvider struct {
	path   string
	logger *logrus.Logger
}

// corpusFile is the on-disk shape: either a flat criterion list or a
// wrapper object.
type corpusFile struct {
	Criteria []domain.Criterion `json:"criteria"`
}

// NewFileProvider creates a corpus provider reading from path.
func NewFileProvider(path string, logger *logrus.Logger) *FileProvider {
	return &FileProvider{path: path, logger: logger}
}

// Criteria reads and validates the corpus. Invalid entries are skipped with
// a warning; a missing or malformed file yields an empty corpus.
func (p *FileProvider) Criteria(ctx context.Context) ([]domain.Criterion, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		p.logger.WithError(err).WithField("path", p.path).Warn("Criterion corpus unreadable, using empty corpus")
		return nil, nil
	}

	var wrapper corpusFile
	if err := json.Unmarshal(data, &wrapper); err != nil {
		// Try the flat-list shape before giving up.
		var flat []domain.Criterion
		if err2 := json.Unmarshal(data, &flat); err2 != nil {
			p.logger.WithError(err).WithField("path", p.path).Warn("Criterion corpus malformed, using empty corpus")
			return nil, nil
		}
		wrapper.Criteria = flat
	}

	valid := make([]domain.Criterion, 0, len(wrapper.Criteria))
	for _, c := range wrapper.Criteria {
		if err := c.Validate(); err != nil {
			p.logger.WithError(err).WithFields(logrus.Fields{
				"criterion_id": c.ID,
				"trial_id":     c.TrialID,
			}).Warn("Skipping invalid criterion")
			continue
		}
		valid = append(valid, c)
	}

	p.logger.WithFields(logrus.Fields{
		"path":     p.path,
		"criteria": len(valid),
		"skipped":  len(wrapper.Criteria) - len(valid),
	}).Info("Loaded criterion corpus")

	return valid, nil
}

// StaticProvider serves a fixed criterion list; used in tests and embedded
// deployments.
type StaticProvider struct {
	criteria []domain.Criterion
}

// NewStaticProvider wraps a fixed criterion list.
func NewStaticProvider(criteria []domain.Criterion) *StaticProvider {
	return &StaticProvider{criteria: criteria}
}

// Criteria returns the fixed list.
func (p *StaticProvider) Criteria(ctx context.Context) ([]domain.Criterion, error) {
	return p.criteria, nil
}
