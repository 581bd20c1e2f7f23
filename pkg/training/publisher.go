package training

import (
	"context"
	"os"
	"time"

	"github.com/bodytwin/platform/pkg/registry"
)

// Publisher turns a fitted model into the family's active record: it
// stores the artifact and then promotes a record pointing at it.
type Publisher struct {
	store     *registry.Store
	artifacts *ArtifactWriter
	now       func() time.Time
}

func NewPublisher(store *registry.Store, artifacts *ArtifactWriter) *Publisher {
	return &Publisher{store: store, artifacts: artifacts, now: time.Now}
}

func (p *Publisher) Store() *registry.Store { return p.store }

// Publish fills Name, Path and CreatedAt on rec. When promotion fails the
// artifact is removed again so no file exists without a record.
func (p *Publisher) Publish(ctx context.Context, prefix string, payload []byte, rec registry.ModelRecord) (registry.ModelRecord, error) {
	name, path, err := p.artifacts.Write(prefix, payload)
	if err != nil {
		return registry.ModelRecord{}, err
	}
	rec.Name = name
	rec.Path = path
	rec.CreatedAt = p.now().UTC()

	promoted, err := p.store.Promote(ctx, rec)
	if err != nil {
		_ = os.Remove(path)
		return registry.ModelRecord{}, err
	}
	active, _ := promoted.Active()
	return active, nil
}
