package catalog

import (
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/launchforge/forgekit/pkg/errors"
)

// catalogFile mirrors the on-disk TOML catalog layout:
//
//	[[service]]
//	type = "auth"
//	provider = "clerk"
//	version = "2.1.0"
//	priority = 10
//	requires = ["cache/redis@^7.0"]
//	optional = ["authz/casbin"]
//	conflicts = ["auth/better-auth"]
//	frameworks = ["nextjs", "remix"]
//	platforms = ["vercel", "aws"]
//
//	[[bundle]]
//	id = "saas-starter"
//	name = "SaaS Starter"
//	required = ["auth/clerk", "database/postgresql"]
//	optional = ["email/resend"]
type catalogFile struct {
	Services []*Service `toml:"service"`
	Bundles  []*Bundle  `toml:"bundle"`
}

// LoadFile reads a TOML catalog file into a Memory catalog.
func LoadFile(path string) (*Memory, error) {
	if err := errors.ValidateCatalogPath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCatalog, err, "open catalog %s", path)
	}
	defer f.Close()

	m, err := Load(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCatalog, err, "load catalog %s", path)
	}
	return m, nil
}

// Load reads a TOML catalog from r into a Memory catalog.
func Load(r io.Reader) (*Memory, error) {
	var file catalogFile
	meta, err := toml.NewDecoder(r).Decode(&file)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCatalog, err, "decode catalog")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidCatalog, "unknown catalog key %q", undecoded[0].String())
	}
	return NewMemory(file.Services, file.Bundles)
}
