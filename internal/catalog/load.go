package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

//go:embed default.cue
var defaultCUE []byte

// CompileError reports a catalog entry that could not be compiled, with the
// CUE source position when one is known.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	v := cuecontext.New().CompileBytes(defaultCUE, cue.Filename("default.cue"))
	return Compile(v)
})

// Default returns the embedded catalog. It panics if the embedded source does
// not compile, which the package tests rule out.
func Default() *Catalog {
	c, err := defaultCatalog()
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded default: %v", err))
	}
	return c
}

// LoadDir compiles every .cue file in dir as a single CUE package.
func LoadDir(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, fmt.Errorf("scan catalog directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := cuecontext.New().BuildInstance(inst)
	return Compile(value)
}

// Compile reads the `achievement` and `mastery` structs from a CUE value.
//
//	achievement: first_flag: {
//		name:              "Flag Finder"
//		points:            50
//		requirement_type:  "terminal_flags"
//		requirement_value: 1
//	}
//	mastery: terminal_flags: { total: 10, grants: "terminal_master" }
func Compile(v cue.Value) (*Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	var mastery []MasteryRule
	if mv := v.LookupPath(cue.ParsePath("mastery")); mv.Exists() {
		iter, err := mv.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			rule, err := compileMastery(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			mastery = append(mastery, rule)
		}
	}

	var achievements []Achievement
	if av := v.LookupPath(cue.ParsePath("achievement")); av.Exists() {
		iter, err := av.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			a, err := compileAchievement(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			achievements = append(achievements, a)
		}
	}

	return New(achievements, mastery)
}

func compileAchievement(id string, v cue.Value) (Achievement, error) {
	a := Achievement{ID: id}
	var err error

	if a.Name, err = requiredString(v, "name", "achievement."+id); err != nil {
		return a, err
	}
	if a.Description, err = optionalString(v, "description"); err != nil {
		return a, err
	}
	if a.Icon, err = optionalString(v, "icon"); err != nil {
		return a, err
	}
	if a.Points, err = optionalInt(v, "points"); err != nil {
		return a, err
	}

	kind, err := requiredString(v, "requirement_type", "achievement."+id)
	if err != nil {
		return a, err
	}
	a.RequirementType = CounterKind(kind)

	if a.RequirementValue, err = requiredInt(v, "requirement_value", "achievement."+id); err != nil {
		return a, err
	}
	return a, nil
}

func compileMastery(counter string, v cue.Value) (MasteryRule, error) {
	rule := MasteryRule{Counter: CounterKind(counter)}

	total, err := requiredInt(v, "total", "mastery."+counter)
	if err != nil {
		return rule, err
	}
	rule.Total = total

	grants, err := requiredString(v, "grants", "mastery."+counter)
	if err != nil {
		return rule, err
	}
	rule.Grants = CounterKind(grants)
	return rule, nil
}

func requiredString(v cue.Value, field, owner string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Field: owner + "." + field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func requiredInt(v cue.Value, field, owner string) (int, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, &CompileError{Field: owner + "." + field, Message: field + " is required", Pos: v.Pos()}
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

func optionalInt(v cue.Value, field string) (int, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
