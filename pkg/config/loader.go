package config

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roster/roster/pkg/telemetry"
)

// Loader reads configuration files and checks them against the schema.
type Loader struct {
	ctx       *cue.Context
	schema    cue.Value
	validator *validator.Validate
}

// NewLoader creates a loader with the built-in schema.
func NewLoader() (*Loader, error) {
	ctx := cuecontext.New()

	val := ctx.CompileString(rosterSchema, cue.Filename("schema.cue"))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Loader{
		ctx:       ctx,
		schema:    val.LookupPath(cue.ParsePath("#Config")),
		validator: validator.New(),
	}, nil
}

// Load reads path, applies defaults, and validates the result. An empty
// path yields the defaults.
func (l *Loader) Load(path string) (*Config, error) {
	if path == "" {
		return l.Parse(nil)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := l.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML content, unifies it with the schema, and validates it.
func (l *Loader) Parse(content []byte) (*Config, error) {
	data := map[string]interface{}{}
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	if data == nil {
		data = map[string]interface{}{}
	}

	dataVal := l.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	unified := l.schema.Unify(dataVal)
	if err := unified.Validate(cue.Final(), cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("schema validation failed: %s", formatCUEError(err))
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Telemetry.Tracing.ExportTimeout = telemetry.DefaultConfig().Tracing.ExportTimeout

	if err := l.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field rules, typically after flag overrides.
func (l *Loader) Validate(cfg *Config) error {
	if err := l.validator.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("invalid config: %s", formatValidationErrors(verrs))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := cfg.Telemetry.Validate(); err != nil {
		return fmt.Errorf("invalid telemetry config: %w", err)
	}
	return nil
}

// Default returns the schema defaults.
func Default() *Config {
	l, err := NewLoader()
	if err != nil {
		panic(err)
	}
	cfg, err := l.Parse(nil)
	if err != nil {
		panic(err)
	}
	return cfg
}

func formatCUEError(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	msg := ""
	for i, e := range errs {
		if i > 0 {
			msg += "; "
		}
		msg += e.Error()
	}
	return msg
}

func formatValidationErrors(verrs validator.ValidationErrors) string {
	msg := ""
	for i, fe := range verrs {
		if i > 0 {
			msg += "; "
		}
		switch fe.Tag() {
		case "required", "required_if", "required_with", "required_without":
			msg += fmt.Sprintf("%s is required", fe.Namespace())
		case "oneof":
			msg += fmt.Sprintf("%s must be one of [%s]", fe.Namespace(), fe.Param())
		default:
			msg += fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
		}
	}
	return msg
}
