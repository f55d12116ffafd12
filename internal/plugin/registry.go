package plugin

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownPlugin   = errors.New("unknown plugin")
	ErrDuplicatePlugin = errors.New("duplicate plugin")
)

// Kind names a plugin category.
type Kind string

const (
	KindFileHeader    Kind = "file header"
	KindValidator     Kind = "validator"
	KindPostProcessor Kind = "post-processor"
	KindContentSource Kind = "content source"
	KindValueProvider Kind = "value provider"
)

// Registry holds plugins per category in registration order. It is filled
// once at startup and read-only afterwards, so concurrent reads need no
// locking.
type Registry struct {
	headers        []FileHeader
	validators     []Validator
	postProcessors []PostProcessor
	sources        []ContentSource
	providers      []ValueProvider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds p to every category it implements.
func (r *Registry) Register(p Plugin) error {
	matched := false
	if h, ok := p.(FileHeader); ok {
		if err := checkDuplicate(KindFileHeader, r.headers, h.Name()); err != nil {
			return err
		}
		r.headers = append(r.headers, h)
		matched = true
	}
	if v, ok := p.(Validator); ok {
		if err := checkDuplicate(KindValidator, r.validators, v.Name()); err != nil {
			return err
		}
		r.validators = append(r.validators, v)
		matched = true
	}
	if pp, ok := p.(PostProcessor); ok {
		if err := checkDuplicate(KindPostProcessor, r.postProcessors, pp.Name()); err != nil {
			return err
		}
		r.postProcessors = append(r.postProcessors, pp)
		matched = true
	}
	if s, ok := p.(ContentSource); ok {
		if err := checkDuplicate(KindContentSource, r.sources, s.Name()); err != nil {
			return err
		}
		r.sources = append(r.sources, s)
		matched = true
	}
	if vp, ok := p.(ValueProvider); ok {
		if err := checkDuplicate(KindValueProvider, r.providers, vp.Name()); err != nil {
			return err
		}
		r.providers = append(r.providers, vp)
		matched = true
	}
	if !matched {
		return fmt.Errorf("plugin %q implements no known extension point", p.Name())
	}
	return nil
}

// MustRegister is Register for startup wiring; it panics on error.
func (r *Registry) MustRegister(plugins ...Plugin) {
	for _, p := range plugins {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
}

func checkDuplicate[T Plugin](kind Kind, list []T, name string) error {
	if _, ok := find(list, name); ok {
		return fmt.Errorf("%w: %s %q", ErrDuplicatePlugin, kind, name)
	}
	return nil
}

func find[T Plugin](list []T, name string) (T, bool) {
	for _, p := range list {
		if p.Name() == name {
			return p, true
		}
	}
	var zero T
	return zero, false
}

func unknown(kind Kind, name string) error {
	return fmt.Errorf("%w: %s %q", ErrUnknownPlugin, kind, name)
}

func (r *Registry) FileHeaders() []FileHeader       { return r.headers }
func (r *Registry) Validators() []Validator         { return r.validators }
func (r *Registry) ContentSources() []ContentSource { return r.sources }
func (r *Registry) ValueProviders() []ValueProvider { return r.providers }

// FileHeader returns the header plugin called name.
func (r *Registry) FileHeader(name string) (FileHeader, error) {
	if p, ok := find(r.headers, name); ok {
		return p, nil
	}
	return nil, unknown(KindFileHeader, name)
}

// Validator returns the validator called name.
func (r *Registry) Validator(name string) (Validator, error) {
	if p, ok := find(r.validators, name); ok {
		return p, nil
	}
	return nil, unknown(KindValidator, name)
}

// PostProcessor returns the post-processor called name.
func (r *Registry) PostProcessor(name string) (PostProcessor, error) {
	if p, ok := find(r.postProcessors, name); ok {
		return p, nil
	}
	return nil, unknown(KindPostProcessor, name)
}
