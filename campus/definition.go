package campus

import (
	_ "embed"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"

	"github.com/campusapp/go-campusdata/service"
)

// Resource names understood by Definition and Client.
const (
	Guides    = "guides"
	Resources = "resources"
	Account   = "account"
)

// StorageRoot is the bucket campus content is published under.
const StorageRoot = "https://storage.googleapis.com/storage-campus-app"

var ErrUnknownResource = errors.New("unknown resource")

//go:embed campus.yaml
var defaultDefinition []byte

// Duration is a time.Duration that also accepts day and week units in YAML,
// such as 3d or 1w2d.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := str2duration.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return errors.Wrapf(err, "line %d: invalid duration %q", node.Line, s)
	}
	if v < 0 {
		return errors.Newf("line %d: negative duration %q", node.Line, s)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return str2duration.String(time.Duration(d)), nil
}

// ResourceDefinition describes where one resource lives and how long it
// may be cached.
type ResourceDefinition struct {
	File            string   `yaml:"file"`
	CacheKey        string   `yaml:"cacheKey,omitempty"`
	CacheExpiration Duration `yaml:"cacheExpiration,omitempty"`
}

// Definition describes a campus deployment.
type Definition struct {
	ID             string                        `yaml:"id"`
	DisplayName    string                        `yaml:"displayName"`
	StorageBaseURL string                        `yaml:"storageBaseURL,omitempty"`
	Resources      map[string]ResourceDefinition `yaml:"resources,omitempty"`
}

// DefaultResources are used for any resource a definition leaves out.
var DefaultResources = map[string]ResourceDefinition{
	Guides:    {File: "guides.json", CacheKey: "guides", CacheExpiration: Duration(time.Hour)},
	Resources: {File: "resources.json", CacheKey: "resources", CacheExpiration: Duration(72 * time.Hour)},
	Account:   {File: "account.json", CacheKey: "account", CacheExpiration: Duration(time.Hour)},
}

// ParseDefinition parses a YAML campus definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, errors.Wrap(err, "parse campus definition")
	}
	if def.ID == "" && def.StorageBaseURL == "" {
		return nil, errors.New("campus definition needs an id or a storageBaseURL")
	}
	for name, r := range def.Resources {
		if _, ok := DefaultResources[name]; !ok {
			return nil, errors.Wrapf(ErrUnknownResource, "%q", name)
		}
		if r.File == "" {
			r.File = DefaultResources[name].File
			def.Resources[name] = r
		}
	}
	return &def, nil
}

// LoadDefinition reads a definition from path.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read campus definition %s", path)
	}
	return ParseDefinition(data)
}

// DefaultDefinition returns the definition compiled into the binary.
func DefaultDefinition() *Definition {
	def, err := ParseDefinition(defaultDefinition)
	if err != nil {
		panic(err)
	}
	return def
}

// BaseURL returns the remote directory holding the campus files.
func (d *Definition) BaseURL() string {
	if d.StorageBaseURL != "" {
		return strings.TrimRight(d.StorageBaseURL, "/")
	}
	return StorageRoot + "/" + d.ID
}

// CloudURL returns the remote location of file.
func (d *Definition) CloudURL(file string) string {
	return d.BaseURL() + "/" + strings.TrimLeft(file, "/")
}

// Resource returns the definition of name with defaults filled in.
func (d *Definition) Resource(name string) (ResourceDefinition, error) {
	def, ok := DefaultResources[name]
	if !ok {
		return ResourceDefinition{}, errors.Wrapf(ErrUnknownResource, "%q", name)
	}
	if r, ok := d.Resources[name]; ok {
		def.File = r.File
		if r.CacheKey != "" {
			def.CacheKey = r.CacheKey
		}
		if r.CacheExpiration > 0 {
			def.CacheExpiration = r.CacheExpiration
		}
	}
	return def, nil
}

// Configuration returns the service configuration of name.
func (d *Definition) Configuration(name string) (service.Configuration, error) {
	r, err := d.Resource(name)
	if err != nil {
		return service.Configuration{}, err
	}
	return service.NewConfiguration(r.File,
		service.WithRemoteURLString(d.CloudURL(r.File)),
		service.WithCacheKey(r.CacheKey),
		service.WithCacheExpiration(time.Duration(r.CacheExpiration)),
	)
}

// LocalConfiguration returns the configuration of name without a remote
// location.
func LocalConfiguration(name string) (service.Configuration, error) {
	r, ok := DefaultResources[name]
	if !ok {
		return service.Configuration{}, errors.Wrapf(ErrUnknownResource, "%q", name)
	}
	return service.NewConfiguration(r.File,
		service.WithCacheKey(r.CacheKey),
		service.WithCacheExpiration(time.Duration(r.CacheExpiration)),
	)
}

// ResourceNames returns the known resource names, sorted.
func ResourceNames() []string {
	names := make([]string, 0, len(DefaultResources))
	for name := range DefaultResources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
