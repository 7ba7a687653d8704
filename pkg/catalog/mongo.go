package catalog

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/launchforge/forgekit/pkg/errors"
)

// Mongo is a catalog provider backed by MongoDB collections. It is used by
// hosted deployments where the catalog is managed out-of-band; the resolver
// only ever reads from it.
//
// Service documents live in the "services" collection, bundle documents in
// "bundles". Refs are stored as "type/provider[@constraint]" strings, the
// same notation the TOML catalog uses.
type Mongo struct {
	services *mongo.Collection
	bundles  *mongo.Collection
}

// NewMongo creates a provider reading from the given database.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		services: db.Collection("services"),
		bundles:  db.Collection("bundles"),
	}
}

// serviceDoc is the BSON shape of a catalog service document.
type serviceDoc struct {
	Type        string         `bson:"type"`
	Provider    string         `bson:"provider"`
	Version     string         `bson:"version"`
	Requires    []string       `bson:"requires,omitempty"`
	Optional    []string       `bson:"optional,omitempty"`
	Conflicts   []string       `bson:"conflicts,omitempty"`
	Frameworks  []string       `bson:"frameworks,omitempty"`
	Platforms   []string       `bson:"platforms,omitempty"`
	Priority    int            `bson:"priority,omitempty"`
	Description string         `bson:"description,omitempty"`
	Config      map[string]any `bson:"config,omitempty"`
}

type bundleDoc struct {
	ID          string   `bson:"_id"`
	Name        string   `bson:"name,omitempty"`
	Description string   `bson:"description,omitempty"`
	Required    []string `bson:"required"`
	Optional    []string `bson:"optional,omitempty"`
}

// GetService implements Provider.
func (m *Mongo) GetService(ctx context.Context, typ ServiceType, provider, constraint string) (*Service, error) {
	filter := bson.M{"type": string(typ), "provider": provider}

	var doc serviceDoc
	err := m.services.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		ref := Ref{Type: typ, Provider: provider}
		return nil, errors.New(errors.ErrCodeServiceNotFound, "no catalog entry for %s", ref.ID())
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCatalog, err, "query service %s/%s", typ, provider)
	}

	svc, err := doc.toService()
	if err != nil {
		return nil, err
	}
	ref := Ref{Type: typ, Provider: provider, Constraint: constraint}
	if !ref.Allows(svc.Version) {
		return nil, errors.New(errors.ErrCodeServiceNotFound,
			"catalog entry %s@%s does not satisfy constraint %q", svc.ID(), svc.Version, constraint)
	}
	return svc, nil
}

// ListByType implements Provider. Results are sorted by provider name at
// the database for deterministic iteration.
func (m *Mongo) ListByType(ctx context.Context, typ ServiceType) ([]*Service, error) {
	opts := options.Find().SetSort(bson.D{{Key: "provider", Value: 1}})
	cur, err := m.services.Find(ctx, bson.M{"type": string(typ)}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCatalog, err, "list services of type %s", typ)
	}
	defer cur.Close(ctx)

	var services []*Service
	for cur.Next(ctx) {
		var doc serviceDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeCatalog, err, "decode service of type %s", typ)
		}
		svc, err := doc.toService()
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	if err := cur.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCatalog, err, "iterate services of type %s", typ)
	}
	return services, nil
}

// GetBundle implements BundleSource.
func (m *Mongo) GetBundle(ctx context.Context, id string) (*Bundle, error) {
	var doc bundleDoc
	err := m.bundles.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeBundleNotFound, "no bundle named %q", id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCatalog, err, "query bundle %s", id)
	}
	return doc.toBundle()
}

// ListBundles implements BundleSource.
func (m *Mongo) ListBundles(ctx context.Context) ([]*Bundle, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := m.bundles.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCatalog, err, "list bundles")
	}
	defer cur.Close(ctx)

	var bundles []*Bundle
	for cur.Next(ctx) {
		var doc bundleDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeCatalog, err, "decode bundle")
		}
		b, err := doc.toBundle()
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}
	if err := cur.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCatalog, err, "iterate bundles")
	}
	return bundles, nil
}

// Snapshot reads the full catalog into an in-memory copy. Processes that
// need linting, full listings, or isolation from database latency resolve
// against the snapshot and refresh it by calling Snapshot again.
func (m *Mongo) Snapshot(ctx context.Context) (*Memory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "type", Value: 1}, {Key: "provider", Value: 1}})
	cur, err := m.services.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCatalog, err, "list services")
	}
	defer cur.Close(ctx)

	var services []*Service
	for cur.Next(ctx) {
		var doc serviceDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeCatalog, err, "decode service")
		}
		svc, err := doc.toService()
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	if err := cur.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCatalog, err, "iterate services")
	}

	bundles, err := m.ListBundles(ctx)
	if err != nil {
		return nil, err
	}
	return NewMemory(services, bundles)
}

func (d *serviceDoc) toService() (*Service, error) {
	svc := &Service{
		Type:        ServiceType(d.Type),
		Provider:    d.Provider,
		Version:     d.Version,
		Frameworks:  d.Frameworks,
		Platforms:   d.Platforms,
		Priority:    d.Priority,
		Description: d.Description,
		Config:      d.Config,
	}
	var err error
	if svc.Requires, err = parseRefs(d.Requires); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCatalog, err, "service %s requires", svc.ID())
	}
	if svc.Optional, err = parseRefs(d.Optional); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCatalog, err, "service %s optional", svc.ID())
	}
	if svc.ConflictsWith, err = parseRefs(d.Conflicts); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCatalog, err, "service %s conflicts", svc.ID())
	}
	if err := svc.Validate(); err != nil {
		return nil, err
	}
	return svc, nil
}

func (d *bundleDoc) toBundle() (*Bundle, error) {
	b := &Bundle{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
	}
	var err error
	if b.Required, err = parseRefs(d.Required); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCatalog, err, "bundle %s required", b.ID)
	}
	if b.Optional, err = parseRefs(d.Optional); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCatalog, err, "bundle %s optional", b.ID)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func parseRefs(raw []string) ([]Ref, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	refs := make([]Ref, 0, len(raw))
	for _, s := range raw {
		ref, err := ParseRef(s)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Ensure Mongo implements both catalog interfaces.
var (
	_ Provider     = (*Mongo)(nil)
	_ BundleSource = (*Mongo)(nil)
)
