package config

import "fmt"

// RunConfig holds optional compilation settings. Fields omitted from the
// JSON fall back to the defaults returned by the Get* methods.
type RunConfig struct {
	Timesteps *int    `json:"timesteps,omitempty"`
	Cache     *string `json:"cache,omitempty"` // sqlite path for the fragment cache
	Verbose   *bool   `json:"verbose,omitempty"`
	Plot      *string `json:"plot,omitempty"` // PNG path for the geometry plot
	Barriers  *bool   `json:"barriers,omitempty"`
}

func ptrInt(v int) *int          { return &v }
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }

// Validate checks that the configuration values are valid.
func (r *RunConfig) Validate() error {
	if r.Timesteps != nil && *r.Timesteps < 1 {
		return fmt.Errorf("run.timesteps must be at least 1, got %d", *r.Timesteps)
	}
	return nil
}

// GetTimesteps returns the number of time steps to compile.
func (r *RunConfig) GetTimesteps() int {
	if r.Timesteps == nil {
		return 1 // default
	}
	return *r.Timesteps
}

// GetCache returns the fragment cache path, or "" when caching is off.
func (r *RunConfig) GetCache() string {
	if r.Cache == nil {
		return ""
	}
	return *r.Cache
}

// GetVerbose returns whether diagnostic logging is on.
func (r *RunConfig) GetVerbose() bool {
	if r.Verbose == nil {
		return false
	}
	return *r.Verbose
}

// GetPlot returns the geometry plot path, or "".
func (r *RunConfig) GetPlot() string {
	if r.Plot == nil {
		return ""
	}
	return *r.Plot
}

// GetBarriers returns whether barriers separate operators in the assembled circuit.
func (r *RunConfig) GetBarriers() bool {
	if r.Barriers == nil {
		return true // default
	}
	return *r.Barriers
}

// WithTimesteps returns a copy of r with the time step count overridden.
func (r *RunConfig) WithTimesteps(n int) *RunConfig {
	out := *r
	out.Timesteps = ptrInt(n)
	return &out
}

// WithCache returns a copy of r with the cache path overridden.
func (r *RunConfig) WithCache(path string) *RunConfig {
	out := *r
	out.Cache = ptrString(path)
	return &out
}

// WithVerbose returns a copy of r with verbose logging overridden.
func (r *RunConfig) WithVerbose(v bool) *RunConfig {
	out := *r
	out.Verbose = ptrBool(v)
	return &out
}
