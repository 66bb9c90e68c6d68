// Package stackfile loads stack definitions from YAML files using a
// subset of the Docker Compose service schema.
//
// A stack file looks like:
//
//	name: demo
//	services:
//	  db:
//	    image: postgres:13
//	    volumes:
//	      - pgdata:/var/lib/postgresql/data
//	  web:
//	    image: nginx:latest
//	    ports:
//	      - "8080:80"
//	    depends_on:
//	      - db
//	    deploy:
//	      replicas: 2
//
// Supported service keys: image, hostname, ports, environment (map or
// KEY=value list), env_file, volumes, command, entrypoint, networks,
// depends_on, restart (including "on-failure:N"), deploy.replicas,
// healthcheck, labels (map or list), mem_limit, cpus. Unknown keys are
// rejected so typos surface as errors instead of being silently dropped.
package stackfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/caravel/engine"
	"github.com/mmr-tortoise/caravel/stack"
)

// File is a parsed stack file: the stack name plus the service
// descriptors in document order, ready to be registered on a Stack.
type File struct {
	// Name is the stack name from the top-level "name" key. Load falls
	// back to the file's base name (without extension) when absent.
	Name string

	// Services holds the descriptors in the order they appear in the file.
	Services []*stack.Service
}

// Load reads and parses a stack file. env_file paths are resolved
// relative to the stack file's directory.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stack file %q: %w", path, err)
	}

	f, err := parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("stack file %q: %w", path, err)
	}
	if f.Name == "" {
		base := filepath.Base(path)
		f.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return f, nil
}

// Parse parses stack file contents. env_file paths are resolved relative
// to the current working directory.
func Parse(data []byte) (*File, error) {
	return parse(data, ".")
}

// document is the top-level YAML structure. KnownFields is enforced via
// the strict decoder in parse.
type document struct {
	Name     string          `yaml:"name"`
	Version  string          `yaml:"version"` // accepted and ignored, for compose compatibility
	Services orderedServices `yaml:"services"`
}

// namedService pairs a service name with its definition, preserving the
// order services appear in the document (Go maps would lose it).
type namedService struct {
	name string
	def  serviceDef
}

type orderedServices []namedService

// UnmarshalYAML decodes the services mapping while keeping key order.
func (o *orderedServices) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("services must be a mapping of name to definition")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return fmt.Errorf("service name: %w", err)
		}
		var def serviceDef
		if err := node.Content[i+1].Decode(&def); err != nil {
			return fmt.Errorf("service %q: %w", name, err)
		}
		*o = append(*o, namedService{name: name, def: def})
	}
	return nil
}

// serviceDef mirrors the supported compose service keys.
type serviceDef struct {
	Image       string      `yaml:"image"`
	Hostname    string      `yaml:"hostname"`
	Ports       []string    `yaml:"ports"`
	Environment keyValues   `yaml:"environment"`
	EnvFile     stringList  `yaml:"env_file"`
	Volumes     []string    `yaml:"volumes"`
	Command     commandLine `yaml:"command"`
	Entrypoint  commandLine `yaml:"entrypoint"`
	Networks    []string    `yaml:"networks"`
	DependsOn   stringList  `yaml:"depends_on"`
	Restart     string      `yaml:"restart"`
	Deploy      deployDef   `yaml:"deploy"`
	Healthcheck *healthDef  `yaml:"healthcheck"`
	Labels      keyValues   `yaml:"labels"`
	MemLimit    string      `yaml:"mem_limit"`
	CPUs        float64     `yaml:"cpus"`
}

type deployDef struct {
	Replicas int `yaml:"replicas"`
}

// healthDef uses compose's string durations ("1m30s", "10s").
type healthDef struct {
	Test        commandLine `yaml:"test"`
	Interval    string      `yaml:"interval"`
	Timeout     string      `yaml:"timeout"`
	StartPeriod string      `yaml:"start_period"`
	Retries     int         `yaml:"retries"`
}

func parse(data []byte, baseDir string) (*File, error) {
	var doc document
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if len(doc.Services) == 0 {
		return nil, fmt.Errorf("no services defined")
	}

	f := &File{Name: doc.Name}
	for _, entry := range doc.Services {
		svc, err := buildService(entry.name, entry.def, baseDir)
		if err != nil {
			return nil, err
		}
		f.Services = append(f.Services, svc)
	}
	return f, nil
}

// buildService translates one service definition into a descriptor and
// validates it, so problems are attributed to the file rather than
// surfacing later at registration.
func buildService(name string, def serviceDef, baseDir string) (*stack.Service, error) {
	svc := stack.NewService(name).Image(def.Image)

	if def.Hostname != "" {
		svc.Hostname(def.Hostname)
	}
	for _, p := range def.Ports {
		svc.Port(p)
	}

	// env_file values load first so inline environment entries win,
	// matching compose precedence.
	for _, file := range def.EnvFile {
		path := file
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		vars, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("service %q: env_file %q: %w", name, file, err)
		}
		svc.EnvMap(vars)
	}
	for _, kv := range def.Environment {
		svc.Env(kv.key, kv.value)
	}

	for _, v := range def.Volumes {
		svc.Volume(v)
	}
	if len(def.Command) > 0 {
		svc.Command(def.Command...)
	}
	if len(def.Entrypoint) > 0 {
		svc.Entrypoint(def.Entrypoint...)
	}
	for _, n := range def.Networks {
		svc.Network(n)
	}
	if len(def.DependsOn) > 0 {
		svc.DependsOn(def.DependsOn...)
	}
	if def.Deploy.Replicas > 0 {
		svc.Replicas(def.Deploy.Replicas)
	}
	for _, kv := range def.Labels {
		svc.Label(kv.key, kv.value)
	}

	if def.Restart != "" {
		if err := applyRestart(svc, def.Restart); err != nil {
			return nil, fmt.Errorf("service %q: %w", name, err)
		}
	}
	if def.Healthcheck != nil {
		hc, err := def.Healthcheck.toEngine()
		if err != nil {
			return nil, fmt.Errorf("service %q: healthcheck: %w", name, err)
		}
		svc.Healthcheck(hc)
	}
	if def.MemLimit != "" {
		bytes, err := units.RAMInBytes(def.MemLimit)
		if err != nil {
			return nil, fmt.Errorf("service %q: invalid mem_limit %q: %w", name, def.MemLimit, err)
		}
		svc.MemoryLimit(bytes)
	}
	if def.CPUs > 0 {
		svc.CPULimit(def.CPUs)
	}

	if err := svc.Validate(); err != nil {
		return nil, err
	}
	return svc, nil
}

// applyRestart maps a compose restart string onto the descriptor.
// "on-failure:N" carries a retry budget.
func applyRestart(svc *stack.Service, value string) error {
	if retries, ok := strings.CutPrefix(value, "on-failure:"); ok {
		var n int
		if _, err := fmt.Sscanf(retries, "%d", &n); err != nil || n < 0 {
			return fmt.Errorf("invalid restart %q: retry count must be a non-negative integer", value)
		}
		svc.RestartOnFailure(n)
		return nil
	}

	switch value {
	case "no":
		svc.Restart(engine.RestartNone)
	case "always":
		svc.Restart(engine.RestartAlways)
	case "unless-stopped":
		svc.Restart(engine.RestartUnlessStopped)
	case "on-failure":
		svc.RestartOnFailure(0)
	default:
		return fmt.Errorf("invalid restart %q: must be no, always, unless-stopped, or on-failure[:N]", value)
	}
	return nil
}

func (h *healthDef) toEngine() (engine.Healthcheck, error) {
	hc := engine.Healthcheck{
		Test:    []string(h.Test),
		Retries: h.Retries,
	}

	// A bare string test runs through the shell, per compose.
	if len(hc.Test) > 0 && hc.Test[0] != "CMD" && hc.Test[0] != "CMD-SHELL" && hc.Test[0] != "NONE" {
		hc.Test = append([]string{"CMD-SHELL"}, strings.Join(hc.Test, " "))
	}

	for _, d := range []struct {
		value string
		dst   *time.Duration
		field string
	}{
		{h.Interval, &hc.Interval, "interval"},
		{h.Timeout, &hc.Timeout, "timeout"},
		{h.StartPeriod, &hc.StartPeriod, "start_period"},
	} {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return engine.Healthcheck{}, fmt.Errorf("invalid %s %q: %w", d.field, d.value, err)
		}
		*d.dst = parsed
	}
	return hc, nil
}
